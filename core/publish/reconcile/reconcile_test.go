package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/packbridge/packbridge/core/infra/locks"
)

type fakeBackend struct {
	ids     map[string]string
	creates int
	findErr error
}

func (b *fakeBackend) find(ctx context.Context, name string) (string, bool, error) {
	if b.findErr != nil {
		return "", false, b.findErr
	}
	id, ok := b.ids[name]
	return id, ok, nil
}

func (b *fakeBackend) create(ctx context.Context, name, tag string) (string, error) {
	b.creates++
	if b.ids == nil {
		b.ids = map[string]string{}
	}
	id := "res-" + name
	b.ids[name] = id
	return id, nil
}

func TestEnsureCreatesOnce(t *testing.T) {
	b := &fakeBackend{}
	r := New("Published by packbridge")
	ctx := context.Background()

	first, err := r.Ensure(ctx, KindInstall, "Acme Tool Required", b.find, b.create)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	second, err := r.Ensure(ctx, KindInstall, "Acme Tool Required", b.find, b.create)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if first != second {
		t.Fatalf("identifiers differ: %s vs %s", first, second)
	}
	if b.creates != 1 {
		t.Fatalf("expected exactly one creation call, got %d", b.creates)
	}
}

func TestEnsureExistingIsNotMutated(t *testing.T) {
	b := &fakeBackend{ids: map[string]string{"Acme Tool Uninstall": "g-42"}}
	r := New("tag")

	id, err := r.Ensure(context.Background(), KindUninstall, "Acme Tool Uninstall", b.find, b.create)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if id != "g-42" {
		t.Fatalf("unexpected id: %s", id)
	}
	if b.creates != 0 {
		t.Fatalf("existing resource must not trigger creation")
	}
}

func TestEnsureLookupErrorPropagates(t *testing.T) {
	b := &fakeBackend{findErr: errors.New("backend down")}
	r := New("tag")
	if _, err := r.Ensure(context.Background(), KindInstall, "X Required", b.find, b.create); err == nil {
		t.Fatalf("expected lookup error")
	}
}

func TestEnsureCreateConflictPropagates(t *testing.T) {
	r := New("tag")
	find := func(ctx context.Context, name string) (string, bool, error) { return "", false, nil }
	create := func(ctx context.Context, name, tag string) (string, error) {
		return "", errors.New("duplicate display name")
	}
	_, err := r.Ensure(context.Background(), KindInstall, "X Required", find, create)
	if err == nil {
		t.Fatalf("expected conflict to propagate as fatal")
	}
}

func TestEnsureContendedLockFails(t *testing.T) {
	store := locks.NewMemoryStore()
	if ok, err := store.Acquire(context.Background(), "Install:X Required", "someone-else", time.Minute); err != nil || !ok {
		t.Fatalf("prep lock: ok=%v err=%v", ok, err)
	}
	r := New("tag")
	r.Locks = store
	b := &fakeBackend{}
	if _, err := r.Ensure(context.Background(), KindInstall, "X Required", b.find, b.create); err == nil {
		t.Fatalf("expected lock contention error")
	}
	if b.creates != 0 {
		t.Fatalf("no creation may happen without the lock")
	}
}

func TestDeriveName(t *testing.T) {
	if got := DeriveName(KindInstall, "Acme Tool"); got != "Acme Tool Required" {
		t.Fatalf("install name: %s", got)
	}
	if got := DeriveName(KindUninstall, "Acme Tool"); got != "Acme Tool Uninstall" {
		t.Fatalf("uninstall name: %s", got)
	}
	if got := DeriveName(KindRemediation, "Acme Tool"); got != "Acme Tool Remediation" {
		t.Fatalf("remediation name: %s", got)
	}
}
