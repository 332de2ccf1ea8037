package shop

import (
	"context"
	"testing"

	"github.com/kvasir-labs/parlor/internal/apperr"
	"github.com/kvasir-labs/parlor/internal/log"
	"github.com/kvasir-labs/parlor/internal/store"
	"github.com/kvasir-labs/parlor/internal/store/sqlite"
)

type fixture struct {
	svc   *Service
	admin *store.User
	alice *store.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	admin, err := st.CreateUser(ctx, "root", "Root", "hash", store.RoleAdmin)
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	alice, err := st.CreateUser(ctx, "alice", "Alice", "hash", store.RoleUser)
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}

	return &fixture{svc: NewService(st, log.Nop()), admin: admin, alice: alice}
}

func (f *fixture) seedProduct(t *testing.T, stock int) *store.Product {
	t.Helper()
	ctx := context.Background()

	cat, err := f.svc.CreateCategory(ctx, f.admin, "widgets")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	product, err := f.svc.CreateProduct(ctx, f.admin, &store.Product{
		Name:       "sprocket",
		Price:      1999,
		Stock:      stock,
		CategoryID: cat.ID,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func TestCatalogMutationsAreAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreateCategory(ctx, f.alice, "nope"); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if _, err := f.svc.CreateProduct(ctx, f.alice, &store.Product{Name: "nope"}); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}

	product := f.seedProduct(t, 5)

	if _, err := f.svc.UpdateProduct(ctx, f.alice, product); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if err := f.svc.DeleteProduct(ctx, f.alice, product.ID); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}

	// Reads stay public.
	if _, err := f.svc.ListProducts(ctx); err != nil {
		t.Fatalf("list products: %v", err)
	}
	if _, err := f.svc.GetProduct(ctx, product.ID); err != nil {
		t.Fatalf("get product: %v", err)
	}
}

func TestProductValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreateProduct(ctx, f.admin, &store.Product{Name: " ", Price: 1}); !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Fatalf("expected InvalidInput for empty name, got %v", err)
	}
	if _, err := f.svc.CreateProduct(ctx, f.admin, &store.Product{Name: "x", Price: -1}); !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Fatalf("expected InvalidInput for negative price, got %v", err)
	}
}

func TestCartStockBound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.seedProduct(t, 5)

	item, err := f.svc.AddItem(ctx, f.alice, product.ID, 3)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if item.Quantity != 3 {
		t.Errorf("expected quantity 3, got %d", item.Quantity)
	}

	// Merging 3 more would exceed the stock of 5.
	if _, err := f.svc.AddItem(ctx, f.alice, product.ID, 3); !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}

	// 3 + 2 fits exactly.
	item, err = f.svc.AddItem(ctx, f.alice, product.ID, 2)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if item.Quantity != 5 {
		t.Errorf("expected merged quantity 5, got %d", item.Quantity)
	}

	if _, err := f.svc.UpdateItemQuantity(ctx, f.alice, item.ID, 99); !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Fatalf("expected InvalidInput beyond stock, got %v", err)
	}

	updated, err := f.svc.UpdateItemQuantity(ctx, f.alice, item.ID, 1)
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if updated.Quantity != 1 {
		t.Errorf("expected quantity 1, got %d", updated.Quantity)
	}
}

func TestCartUnknownProduct(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.AddItem(context.Background(), f.alice, 9999, 1); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestRemoveAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.seedProduct(t, 5)

	item, err := f.svc.AddItem(ctx, f.alice, product.ID, 1)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	if err := f.svc.RemoveItem(ctx, f.alice, item.ID); err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if err := f.svc.RemoveItem(ctx, f.alice, item.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	if _, err := f.svc.AddItem(ctx, f.alice, product.ID, 2); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := f.svc.ClearCart(ctx, f.alice); err != nil {
		t.Fatalf("clear cart: %v", err)
	}
	cart, err := f.svc.GetCart(ctx, f.alice)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Errorf("expected empty cart, got %d lines", len(cart.Items))
	}
}
