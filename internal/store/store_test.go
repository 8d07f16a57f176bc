package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mkravets/unimarket/internal/model"
)

// setupTestStore creates a temporary database for testing.
func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	st, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	if err := st.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return st, dbPath
}

func testProduct(id string) model.Product {
	return model.Product{
		ID:       id,
		SellerID: "seller-1",
		Title:    "Product " + id,
		Price:    10,
		Labels:   []string{"books"},
		Status:   model.ProductAvailable,
	}
}

func TestReplaceProducts(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	err := st.ReplaceProducts(ctx, []model.Product{testProduct("p1"), testProduct("p2")}, now)
	if err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	products, err := st.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}

	// A second replace is a full swap, not a merge.
	err = st.ReplaceProducts(ctx, []model.Product{testProduct("p3")}, now)
	if err != nil {
		t.Fatalf("second replace failed: %v", err)
	}
	products, err = st.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(products) != 1 || products[0].ID != "p3" {
		t.Fatalf("expected only p3 after replace, got %+v", products)
	}
	if len(products[0].Labels) != 1 || products[0].Labels[0] != "books" {
		t.Errorf("labels not round-tripped: %+v", products[0].Labels)
	}
}

func TestGetProductNotFound(t *testing.T) {
	st, _ := setupTestStore(t)

	_, err := st.GetProduct(context.Background(), "missing")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOldestCacheTimestamp(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	_, ok, err := st.OldestCacheTimestamp(ctx)
	if err != nil {
		t.Fatalf("oldest failed: %v", err)
	}
	if ok {
		t.Fatal("empty cache should report no timestamp")
	}

	cachedAt := time.Now().Add(-time.Minute)
	if err := st.ReplaceProducts(ctx, []model.Product{testProduct("p1")}, cachedAt); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	oldest, ok, err := st.OldestCacheTimestamp(ctx)
	if err != nil {
		t.Fatalf("oldest failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a timestamp")
	}
	if !oldest.Equal(cachedAt) {
		t.Errorf("timestamp precision lost: want %v, got %v", cachedAt, oldest)
	}
}

func TestDestructiveMigration(t *testing.T) {
	st, dbPath := setupTestStore(t)
	ctx := context.Background()

	if err := st.ReplaceProducts(ctx, []model.Product{testProduct("p1")}, time.Now()); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if _, err := st.EnqueueOp(ctx, model.OpWishlist,
		model.WishlistPayload{UserID: "u1", ProductID: "p1", Add: true}, "", time.Now()); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	// Simulate a database written by an older app version.
	if _, err := st.RawDB().Exec("PRAGMA user_version=1"); err != nil {
		t.Fatalf("failed to stamp old version: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	st2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer st2.Close()
	if err := st2.InitSchema(); err != nil {
		t.Fatalf("init after version bump failed: %v", err)
	}

	products, err := st2.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(products) != 0 {
		t.Errorf("products survived destructive migration: %+v", products)
	}

	// The queue is not spared: queued intent is lost by the rebuild.
	count, err := st2.PendingCount(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("pending operations survived destructive migration: %d", count)
	}

	var version int
	if err := st2.RawDB().QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to read version: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("expected version %d after rebuild, got %d", SchemaVersion, version)
	}
}

func TestInitSchemaIdempotent(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	if err := st.ReplaceProducts(ctx, []model.Product{testProduct("p1")}, time.Now()); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if err := st.InitSchema(); err != nil {
		t.Fatalf("second init failed: %v", err)
	}

	products, err := st.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(products) != 1 {
		t.Errorf("re-init at the same version must not lose data, got %d products", len(products))
	}
}
