package tasks

import (
	"context"
	"testing"

	"github.com/kvasir-labs/parlor/internal/apperr"
	"github.com/kvasir-labs/parlor/internal/log"
	"github.com/kvasir-labs/parlor/internal/store"
	"github.com/kvasir-labs/parlor/internal/store/sqlite"
)

func newFixture(t *testing.T) (*Service, *store.User, *store.User) {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	alice, err := st.CreateUser(ctx, "alice", "Alice", "hash", store.RoleUser)
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := st.CreateUser(ctx, "bob", "Bob", "hash", store.RoleUser)
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}

	return NewService(st, log.Nop()), alice, bob
}

func TestCreateRequiresTitle(t *testing.T) {
	svc, alice, _ := newFixture(t)

	_, err := svc.Create(context.Background(), alice, "  ", "")
	if !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestToggleAndDelete(t *testing.T) {
	svc, alice, _ := newFixture(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, alice, "ship it", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	toggled, err := svc.Toggle(ctx, alice, task.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !toggled.Completed {
		t.Error("expected completed after toggle")
	}

	toggled, err = svc.Toggle(ctx, alice, task.ID)
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if toggled.Completed {
		t.Error("expected not completed after second toggle")
	}

	if err := svc.Delete(ctx, alice, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, alice, task.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestOwnershipEnforced(t *testing.T) {
	svc, alice, bob := newFixture(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, alice, "alice's task", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Toggle(ctx, bob, task.ID); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if err := svc.Delete(ctx, bob, task.ID); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}

	// Bob's list never includes alice's tasks.
	list, err := svc.List(ctx, bob)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list for bob, got %d", len(list))
	}
}
