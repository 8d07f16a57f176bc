package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/unimarket/internal/backend"
	"github.com/mkravets/unimarket/internal/model"
	"github.com/mkravets/unimarket/internal/repo"
	"github.com/mkravets/unimarket/internal/store"
)

// scriptedBackend implements backend.DocStore and backend.BlobStore with
// per-method failure injection and call recording.
type scriptedBackend struct {
	wishlistErr error
	statusErr   error
	orderErr    error
	uploadErr   error

	// wishlist mirrors the remote membership set as calls replay.
	wishlist map[string]bool
	calls    []string
	orders   []model.Order

	serverOrderDate time.Time
}

func newScriptedBackend() *scriptedBackend {
	return &scriptedBackend{wishlist: make(map[string]bool)}
}

func (b *scriptedBackend) FetchProducts(ctx context.Context) ([]model.Product, error) {
	return nil, nil
}

func (b *scriptedBackend) SetWishlist(ctx context.Context, userID, productID string, add bool) error {
	if b.wishlistErr != nil {
		return b.wishlistErr
	}
	b.calls = append(b.calls, fmt.Sprintf("wishlist:%s:%v", productID, add))
	if add {
		b.wishlist[productID] = true
	} else {
		delete(b.wishlist, productID)
	}
	return nil
}

func (b *scriptedBackend) UpdateProductStatus(ctx context.Context, productID string, status model.ProductStatus) error {
	if b.statusErr != nil {
		return b.statusErr
	}
	b.calls = append(b.calls, "status:"+productID)
	return nil
}

func (b *scriptedBackend) CreateOrder(ctx context.Context, order model.Order) (time.Time, error) {
	if b.orderErr != nil {
		return time.Time{}, b.orderErr
	}
	b.calls = append(b.calls, "order:"+order.ID)
	b.orders = append(b.orders, order)
	return b.serverOrderDate, nil
}

func (b *scriptedBackend) CreateProduct(ctx context.Context, product model.Product) (time.Time, time.Time, error) {
	b.calls = append(b.calls, "product:"+product.ID)
	return time.Time{}, time.Time{}, nil
}

func (b *scriptedBackend) CreateReview(ctx context.Context, review model.Review) error {
	b.calls = append(b.calls, "review:"+review.OrderID)
	return nil
}

func (b *scriptedBackend) SendMessage(ctx context.Context, message model.Message) (time.Time, error) {
	b.calls = append(b.calls, "message:"+message.ID)
	return time.Time{}, nil
}

func (b *scriptedBackend) Upload(ctx context.Context, localPath, remotePath string) (string, error) {
	if b.uploadErr != nil {
		return "", b.uploadErr
	}
	b.calls = append(b.calls, "upload:"+remotePath)
	return "https://cdn.example.com/" + remotePath, nil
}

func setupWorker(t *testing.T) (*Worker, *repo.Repository, *store.Store, *scriptedBackend) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "worker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.InitSchema())

	b := newScriptedBackend()
	return New(st, b, b, nil), repo.New(st, b, nil), st, b
}

func TestRunOnceEmptyQueue(t *testing.T) {
	w, _, _, _ := setupWorker(t)

	res, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, Result{}, res)
}

func TestUploadFailureDoesNotAbortRun(t *testing.T) {
	w, r, st, b := setupWorker(t)
	ctx := context.Background()

	cid, err := r.UploadImage(ctx, "/tmp/a.jpg", "products/u1/a.jpg")
	require.NoError(t, err)
	require.NoError(t, r.MarkUnavailable(ctx, "p1"))

	b.uploadErr = fmt.Errorf("connection reset")

	res, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Failed)
	require.Equal(t, 1, res.Synced, "operation behind the failed upload must still replay")
	require.False(t, res.Retry)

	// The upload op is gone; its outcome lives on the correlated record.
	count, err := st.PendingCount(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	record, err := st.GetImageUpload(ctx, cid)
	require.NoError(t, err)
	require.Equal(t, model.UploadFailed, record.State)
}

func TestUploadSuccessResolvesURL(t *testing.T) {
	w, r, st, _ := setupWorker(t)
	ctx := context.Background()

	cid, err := r.UploadImage(ctx, "/tmp/a.jpg", "products/u1/a.jpg")
	require.NoError(t, err)

	res, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Synced)

	record, err := st.GetImageUpload(ctx, cid)
	require.NoError(t, err)
	require.Equal(t, model.UploadSuccess, record.State)
	require.Equal(t, "https://cdn.example.com/products/u1/a.jpg", record.RemoteURL)
}

func TestUploadRecordWriteFaultKeepsOp(t *testing.T) {
	w, r, st, _ := setupWorker(t)
	ctx := context.Background()

	_, err := r.UploadImage(ctx, "/tmp/a.jpg", "products/u1/a.jpg")
	require.NoError(t, err)

	// The upload itself succeeds, but recording the outcome cannot.
	_, err = st.RawDB().Exec("DROP TABLE image_uploads")
	require.NoError(t, err)

	res, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.True(t, res.Retry, "a store fault aborts the run")
	require.Zero(t, res.Synced)

	// The op stays queued so the outcome is re-recorded next run; it must
	// not vanish while the record still reads pending.
	count, err := st.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestTransientFailureAbortsRun(t *testing.T) {
	w, r, st, b := setupWorker(t)
	ctx := context.Background()

	_, err := r.ToggleWishlist(ctx, "u1", "p1")
	require.NoError(t, err)
	require.NoError(t, r.MarkUnavailable(ctx, "p1"))

	b.wishlistErr = fmt.Errorf("503 service unavailable")

	res, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.True(t, res.Retry)
	require.Zero(t, res.Synced)

	// Nothing was consumed: the failed op and everything after it stay
	// queued in order.
	ops, err := st.PendingOps(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	require.Equal(t, model.OpWishlist, ops[0].Kind)

	// Clearing the fault lets the next run drain both.
	b.wishlistErr = nil
	res, err = w.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, res.Synced)
	require.False(t, res.Retry)
}

func TestPermanentFailureDeadLetters(t *testing.T) {
	w, r, st, b := setupWorker(t)
	ctx := context.Background()

	_, err := r.ToggleWishlist(ctx, "u1", "p1")
	require.NoError(t, err)
	require.NoError(t, r.MarkUnavailable(ctx, "p1"))

	b.wishlistErr = backend.MarkPermanent(fmt.Errorf("404 product gone"))

	res, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.DeadLettered)
	require.Equal(t, 1, res.Synced, "the run continues past a dead-lettered op")
	require.False(t, res.Retry)

	dead, err := st.ListDeadOps(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	require.Equal(t, model.OpWishlist, dead[0].Kind)
}

func TestUnknownKindDropped(t *testing.T) {
	w, _, st, _ := setupWorker(t)
	ctx := context.Background()

	_, err := st.EnqueueOp(ctx, model.OpKind("legacy_op"), map[string]string{"x": "y"}, "", time.Now())
	require.NoError(t, err)

	res, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Dropped)

	count, err := st.PendingCount(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestToggleReplayConverges(t *testing.T) {
	w, r, _, b := setupWorker(t)
	ctx := context.Background()

	// Two rapid offline toggles: add then remove.
	_, err := r.ToggleWishlist(ctx, "u1", "p1")
	require.NoError(t, err)
	_, err = r.ToggleWishlist(ctx, "u1", "p1")
	require.NoError(t, err)

	res, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, res.Synced)

	want := []string{"wishlist:p1:true", "wishlist:p1:false"}
	if diff := cmp.Diff(want, b.calls); diff != "" {
		t.Fatalf("replay order mismatch (-want +got):\n%s", diff)
	}
	require.False(t, b.wishlist["p1"], "remote converges to absent")
}

func TestOfflineOrderEndToEnd(t *testing.T) {
	w, r, st, b := setupWorker(t)
	ctx := context.Background()

	b.serverOrderDate = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.CreateOrder(ctx, model.Order{
		BuyerID: "u1", SellerID: "s1", ProductID: "p1", Price: 25,
	}))

	res, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Synced)

	count, err := st.PendingCount(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	require.Len(t, b.orders, 1, "backend observed the order")

	// The optimistic client timestamp is reconciled with the server's.
	orders, err := st.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.True(t, orders[0].OrderDate.Equal(b.serverOrderDate))
}

func TestSubmitReviewReplay(t *testing.T) {
	w, r, st, _ := setupWorker(t)
	ctx := context.Background()

	id, err := r.SubmitReview(ctx, model.Review{
		TargetUserID: "s1", ReviewerID: "u1", OrderID: "o1", Rating: 5,
	})
	require.NoError(t, err)

	res, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Synced)

	reviews, err := st.ListReviews(ctx)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.Equal(t, id, reviews[0].ID)
	require.Equal(t, model.ReviewSent, reviews[0].Status)
}

func TestCancelledContextLeavesQueue(t *testing.T) {
	w, r, st, _ := setupWorker(t)

	_, err := r.ToggleWishlist(context.Background(), "u1", "p1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = w.RunOnce(ctx)
	require.Error(t, err)

	count, err := st.PendingCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
