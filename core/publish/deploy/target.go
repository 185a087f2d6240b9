package deploy

import (
	"context"
	"fmt"
)

// renewableTarget adapts a backend content file to the transfer package's
// renewable upload target. Renewal asks the backend for fresh credentials,
// waits for the renewal stage to succeed, and swaps in the refreshed URI
// before any further block PUT.
type renewableTarget struct {
	orch    *Orchestrator
	locator string
	uri     string
}

func (t *renewableTarget) URI() string {
	return t.uri
}

func (t *renewableTarget) Renew(ctx context.Context) error {
	if err := t.orch.API.RenewUpload(ctx, t.locator); err != nil {
		return fmt.Errorf("request renewal: %w", err)
	}
	res, err := t.orch.waiter().WaitFor(ctx, t.locator, StageRenewal)
	if err != nil {
		return err
	}
	if res.StorageURI == "" {
		return fmt.Errorf("renewal returned no storage uri")
	}
	t.uri = res.StorageURI
	return nil
}
