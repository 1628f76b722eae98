package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/safar/go-order-store/internal/database"
	"github.com/safar/go-order-store/internal/store"
)

func TestProductLifecycle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product, err := store.CreateProduct(ctx, db, "Widget", decimal.NewFromInt(100), 10, "user-1")
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}
	if product.ID == "" {
		t.Error("Product ID should not be empty")
	}
	if product.Stock != 10 {
		t.Errorf("Expected stock 10, got %d", product.Stock)
	}

	fetched, err := store.GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if !fetched.Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected price 100, got %s", fetched.Price)
	}

	updated, err := store.UpdateProduct(ctx, db, product.ID, "Widget v2", decimal.NewFromInt(120), 8, "user-1")
	if err != nil {
		t.Fatalf("Update product: %v", err)
	}
	if updated.Name != "Widget v2" {
		t.Errorf("Expected updated name, got %q", updated.Name)
	}
	if updated.Version != product.Version+1 {
		t.Errorf("Expected version bump to %d, got %d", product.Version+1, updated.Version)
	}

	if err := store.DeleteProduct(ctx, db, product.ID); err != nil {
		t.Fatalf("Delete product: %v", err)
	}

	if _, err := store.GetProduct(ctx, db, product.ID); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected product not found, got: %v", err)
	}
}

func TestCreateProductValidation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	_, err := store.CreateProduct(ctx, db, "", decimal.NewFromInt(10), 5, "user-1")
	if !errors.Is(err, database.ErrValidation) {
		t.Errorf("Expected validation error for empty name, got: %v", err)
	}

	_, err = store.CreateProduct(ctx, db, "Widget", decimal.NewFromInt(-1), 5, "user-1")
	if !errors.Is(err, database.ErrValidation) {
		t.Errorf("Expected validation error for negative price, got: %v", err)
	}

	_, err = store.CreateProduct(ctx, db, "Widget", decimal.NewFromInt(10), -5, "user-1")
	if !errors.Is(err, database.ErrValidation) {
		t.Errorf("Expected validation error for negative stock, got: %v", err)
	}
}

func TestAdjustStockGuard(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product, err := store.CreateProduct(ctx, db, "Guarded", decimal.NewFromInt(50), 3, "user-1")
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	products := store.NewTxProducts(tx)

	if err := products.AdjustStock(ctx, product.ID, -5); !errors.Is(err, database.ErrInsufficientStock) {
		t.Errorf("Expected insufficient stock, got: %v", err)
	}

	if err := products.AdjustStock(ctx, product.ID, -3); err != nil {
		t.Fatalf("Adjust stock to zero: %v", err)
	}

	if err := products.AdjustStock(ctx, product.ID, -1); !errors.Is(err, database.ErrInsufficientStock) {
		t.Errorf("Expected insufficient stock at zero, got: %v", err)
	}

	if err := products.AdjustStock(ctx, "missing-id", 4); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected product not found, got: %v", err)
	}
}

func TestListProductsPagination(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := store.CreateProduct(ctx, db, "Bulk", decimal.NewFromInt(10), 1, "user-1"); err != nil {
			t.Fatalf("Create product %d: %v", i, err)
		}
	}

	page, err := store.ListProducts(ctx, db, 1, 2)
	if err != nil {
		t.Fatalf("List products: %v", err)
	}
	if page.Total != 5 {
		t.Errorf("Expected total 5, got %d", page.Total)
	}
	if page.TotalPages != 3 {
		t.Errorf("Expected 3 pages, got %d", page.TotalPages)
	}
}
