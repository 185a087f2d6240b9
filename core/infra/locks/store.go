package locks

import (
	"context"
	"time"
)

// Store serializes reconciliation of a named resource. The lookup-then-create
// sequence in the reconciler is not atomic, so concurrent publishers must
// hold the resource-name lock across it.
type Store interface {
	Acquire(ctx context.Context, resource, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, resource, owner string) error
}
