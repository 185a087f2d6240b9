// Package reconcile implements get-or-create semantics for named external
// resources: groups and auto-remediation jobs must never be duplicated.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/packbridge/packbridge/core/infra/locks"
	"github.com/packbridge/packbridge/core/infra/logging"
)

// FindFunc looks a resource up by exact display name, returning its
// identifier when present.
type FindFunc func(ctx context.Context, name string) (id string, found bool, err error)

// CreateFunc constructs the resource with the supplied description tag and
// returns the new identifier.
type CreateFunc func(ctx context.Context, name, tag string) (id string, err error)

// Reconciler ensures named resources exist exactly once. The lookup-then-
// create sequence holds a per-name lock so concurrent publishers cannot race
// the same name.
type Reconciler struct {
	Locks   locks.Store
	Owner   string
	Tag     string
	LockTTL time.Duration
}

// New returns a reconciler with an in-process lock store.
func New(tag string) *Reconciler {
	return &Reconciler{
		Locks:   locks.NewMemoryStore(),
		Owner:   uuid.NewString(),
		Tag:     tag,
		LockTTL: 30 * time.Second,
	}
}

// Ensure returns the identifier of the named resource, creating it only if
// absent. An existing resource is never mutated.
func (r *Reconciler) Ensure(ctx context.Context, kind Kind, name string, find FindFunc, create CreateFunc) (string, error) {
	if name == "" {
		return "", fmt.Errorf("resource name required")
	}
	if find == nil || create == nil {
		return "", fmt.Errorf("find and create functions required")
	}

	if r.Locks != nil {
		resource := string(kind) + ":" + name
		ok, err := r.Locks.Acquire(ctx, resource, r.Owner, r.LockTTL)
		if err != nil {
			return "", fmt.Errorf("acquire reconcile lock: %w", err)
		}
		if !ok {
			return "", fmt.Errorf("resource %q is being reconciled by another publisher", name)
		}
		defer func() {
			_ = r.Locks.Release(context.Background(), resource, r.Owner)
		}()
	}

	id, found, err := find(ctx, name)
	if err != nil {
		return "", fmt.Errorf("look up %s %q: %w", kind, name, err)
	}
	if found {
		logging.Info("reconcile", "resource exists", "kind", string(kind), "name", name, "id", id)
		return id, nil
	}

	id, err = create(ctx, name, r.Tag)
	if err != nil {
		// A duplicate-name conflict from the backend propagates as fatal:
		// the pre-check window is documented, not swallowed.
		return "", fmt.Errorf("create %s %q: %w", kind, name, err)
	}
	logging.Info("reconcile", "resource created", "kind", string(kind), "name", name, "id", id)
	return id, nil
}
