// Package repo is the single point of truth for the rest of the application.
// It hides the cache/queue/remote split: reads come from the local store
// under a TTL policy with remote fallback, and every write-intent becomes an
// optimistic local mutation plus a queued pending operation, committed in
// one transaction.
//
// Write paths never surface remote failures. Only storage-level faults are
// returned; everything remote is deferred to the sync worker.
package repo

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkravets/unimarket/internal/backend"
	"github.com/mkravets/unimarket/internal/model"
	"github.com/mkravets/unimarket/internal/store"
)

// Repository mediates between the local store and the remote backend.
// Construct with New; all collaborators are injected so tests can swap in
// fakes.
type Repository struct {
	store  *store.Store
	docs   backend.DocStore
	logger *zap.Logger

	// now is swappable for TTL boundary tests.
	now func() time.Time
}

// New creates a Repository.
func New(st *store.Store, docs backend.DocStore, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{
		store:  st,
		docs:   docs,
		logger: logger,
		now:    time.Now,
	}
}

// Products returns the product catalog.
//
// If the cache is non-empty and its oldest entry is younger than ttl, the
// cached set is returned without touching the network. Otherwise the full
// collection is fetched remotely, merged into the cache with a fresh
// timestamp, and returned. When the remote fetch fails but a stale cache
// exists, the stale set is returned: offline reads degrade to
// stale-but-available.
//
// The TTL is shared across the whole collection, not per item. One round
// trip per refresh, acceptable for a catalog that changes infrequently
// relative to a TTL on the order of minutes.
func (r *Repository) Products(ctx context.Context, ttl time.Duration) ([]model.Product, error) {
	oldest, ok, err := r.store.OldestCacheTimestamp(ctx)
	if err != nil {
		return nil, err
	}
	if ok && r.now().Sub(oldest) < ttl {
		return r.store.ListProducts(ctx)
	}

	fresh, err := r.docs.FetchProducts(ctx)
	if err != nil {
		if ok {
			r.logger.Warn("product fetch failed, serving stale cache", zap.Error(err))
			return r.store.ListProducts(ctx)
		}
		return nil, fmt.Errorf("fetch products: %w", err)
	}

	if err := r.store.ReplaceProducts(ctx, fresh, r.now()); err != nil {
		return nil, err
	}
	return r.store.ListProducts(ctx)
}

// ToggleWishlist inverts the local wishlist membership of product for user.
//
// The decision is made against local state, not remote: two rapid offline
// toggles enqueue two opposite operations, and the remote converges because
// they replay in order as idempotent set/delete calls. The enqueue and the
// local mutation commit in one transaction so the UI can never show a state
// with no corresponding queued intent.
//
// Returns the new local membership.
func (r *Repository) ToggleWishlist(ctx context.Context, userID, productID string) (bool, error) {
	member, err := r.store.WishlistContains(ctx, productID)
	if err != nil {
		return false, err
	}
	add := !member
	now := r.now()

	err = r.store.WithTx(ctx, func(tx *store.Tx) error {
		payload := model.WishlistPayload{UserID: userID, ProductID: productID, Add: add}
		if _, err := tx.EnqueueOp(ctx, model.OpWishlist, payload, "", now); err != nil {
			return err
		}
		if add {
			return tx.AddWishlist(ctx, productID, now)
		}
		return tx.RemoveWishlist(ctx, productID)
	})
	if err != nil {
		return false, err
	}
	return add, nil
}

// MarkUnavailable flips a product to unavailable locally and queues the
// remote status update.
func (r *Repository) MarkUnavailable(ctx context.Context, productID string) error {
	now := r.now()
	return r.store.WithTx(ctx, func(tx *store.Tx) error {
		payload := model.MarkUnavailablePayload{ProductID: productID}
		if _, err := tx.EnqueueOp(ctx, model.OpMarkUnavailable, payload, "", now); err != nil {
			return err
		}
		return tx.SetProductStatus(ctx, productID, model.ProductUnavailable)
	})
}

// CreateOrder records an initiated purchase locally and queues the remote
// order document. The local row carries the client clock until the worker
// reconciles it with the server timestamp.
func (r *Repository) CreateOrder(ctx context.Context, order model.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := r.now()
	if order.OrderDate.IsZero() {
		order.OrderDate = now
	}

	return r.store.WithTx(ctx, func(tx *store.Tx) error {
		payload := model.CreateOrderPayload{Order: order}
		if _, err := tx.EnqueueOp(ctx, model.OpCreateOrder, payload, "", now); err != nil {
			return err
		}
		return tx.InsertOrder(ctx, &order)
	})
}

// UploadImage queues an image upload and records it in pending state. The
// queue payload and the record share a correlation id assigned here, so the
// worker resolves the outcome by key rather than by path equality.
//
// Returns the correlation id for the caller to observe the outcome with.
func (r *Repository) UploadImage(ctx context.Context, localPath, remotePath string) (string, error) {
	correlationID := uuid.NewString()
	now := r.now()

	err := r.store.WithTx(ctx, func(tx *store.Tx) error {
		payload := model.UploadImagePayload{
			CorrelationID: correlationID,
			LocalPath:     localPath,
			RemotePath:    remotePath,
		}
		if _, err := tx.EnqueueOp(ctx, model.OpUploadImage, payload, correlationID, now); err != nil {
			return err
		}
		return tx.InsertImageUpload(ctx, &model.ImageUpload{
			CorrelationID: correlationID,
			LocalPath:     localPath,
			RemotePath:    remotePath,
			State:         model.UploadPending,
			CreatedAt:     now,
		})
	})
	if err != nil {
		return "", err
	}
	return correlationID, nil
}

// PublishProduct inserts the listing locally and queues the remote append.
// Server timestamps are reconciled by the worker.
func (r *Repository) PublishProduct(ctx context.Context, product model.Product) (string, error) {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := r.now()
	if product.Status == "" {
		product.Status = model.ProductAvailable
	}
	product.CreatedAt = now
	product.UpdatedAt = now

	err := r.store.WithTx(ctx, func(tx *store.Tx) error {
		payload := model.PublishProductPayload{Product: product}
		if _, err := tx.EnqueueOp(ctx, model.OpPublishProduct, payload, "", now); err != nil {
			return err
		}
		return tx.InsertProduct(ctx, &product, now)
	})
	if err != nil {
		return "", err
	}
	return product.ID, nil
}

// PublishProductWithImage queues an upload-then-publish operation: the
// worker uploads the image first and appends the product document with the
// resolved URL. Locally the listing appears immediately, without the image.
func (r *Repository) PublishProductWithImage(ctx context.Context, product model.Product, localPath string) (string, error) {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := r.now()
	if product.Status == "" {
		product.Status = model.ProductAvailable
	}
	product.CreatedAt = now
	product.UpdatedAt = now

	remotePath := path.Join("products", product.SellerID, path.Base(localPath))

	err := r.store.WithTx(ctx, func(tx *store.Tx) error {
		payload := model.PublishWithImagePayload{
			Product:    product,
			LocalPath:  localPath,
			RemotePath: remotePath,
		}
		if _, err := tx.EnqueueOp(ctx, model.OpPublishWithImage, payload, "", now); err != nil {
			return err
		}
		return tx.InsertProduct(ctx, &product, now)
	})
	if err != nil {
		return "", err
	}
	return product.ID, nil
}

// SendMessage stores the outgoing message in pending state and queues its
// delivery.
func (r *Repository) SendMessage(ctx context.Context, message model.Message) (string, error) {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.ConversationID == "" {
		message.ConversationID = model.ConversationID(message.SenderID, message.RecipientID)
	}
	now := r.now()
	if message.SentAt.IsZero() {
		message.SentAt = now
	}

	err := r.store.WithTx(ctx, func(tx *store.Tx) error {
		payload := model.SendMessagePayload{Message: message}
		if _, err := tx.EnqueueOp(ctx, model.OpSendMessage, payload, "", now); err != nil {
			return err
		}
		return tx.InsertMessage(ctx, &message)
	})
	if err != nil {
		return "", err
	}
	return message.ID, nil
}

// SubmitReview stores the review in pending state and queues its delivery.
// The payload carries the local row id so the worker can flip its status
// after the replay attempt.
func (r *Repository) SubmitReview(ctx context.Context, review model.Review) (int64, error) {
	if err := review.Validate(); err != nil {
		return 0, err
	}
	now := r.now()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}

	var localID int64
	err := r.store.WithTx(ctx, func(tx *store.Tx) error {
		id, err := tx.InsertReview(ctx, &review)
		if err != nil {
			return err
		}
		localID = id
		payload := model.SubmitReviewPayload{LocalID: id, Review: review}
		_, err = tx.EnqueueOp(ctx, model.OpSubmitReview, payload, "", now)
		return err
	})
	if err != nil {
		return 0, err
	}
	return localID, nil
}

// Wishlist returns the local wishlist entries.
func (r *Repository) Wishlist(ctx context.Context) ([]model.WishlistEntry, error) {
	return r.store.ListWishlist(ctx)
}

// Orders returns the locally known orders.
func (r *Repository) Orders(ctx context.Context) ([]model.Order, error) {
	return r.store.ListOrders(ctx)
}

// Conversation returns the cached messages of one conversation.
func (r *Repository) Conversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	return r.store.ListConversation(ctx, conversationID)
}

// ImageUpload returns the current state of a requested upload.
func (r *Repository) ImageUpload(ctx context.Context, correlationID string) (*model.ImageUpload, error) {
	return r.store.GetImageUpload(ctx, correlationID)
}

// ClearImageUpload removes an upload record whose outcome was observed.
func (r *Repository) ClearImageUpload(ctx context.Context, correlationID string) error {
	return r.store.ClearImageUpload(ctx, correlationID)
}

// SetNow overrides the repository clock. Tests only.
func (r *Repository) SetNow(now func() time.Time) {
	r.now = now
}
