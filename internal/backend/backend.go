// Package backend defines the contract the sync layer expects from the
// remote marketplace backend: a document store for domain entities and a
// blob store for image files.
//
// The backend itself is out of scope; tests use in-memory fakes and
// production uses the httpapi client.
package backend

import (
	"context"
	"time"

	"github.com/mkravets/unimarket/internal/model"
)

// DocStore is the remote document backend. Create calls return the
// server-assigned timestamps so callers can reconcile local rows.
type DocStore interface {
	// FetchProducts returns the full product collection.
	FetchProducts(ctx context.Context) ([]model.Product, error)

	// SetWishlist adds (add=true) or removes a wishlist membership document
	// under the user. Adds get a server-assigned timestamp. Both directions
	// are idempotent set/delete calls, which is what makes in-order replay
	// of queued toggles converge on user intent.
	SetWishlist(ctx context.Context, userID, productID string, add bool) error

	// UpdateProductStatus updates a product document's status field.
	UpdateProductStatus(ctx context.Context, productID string, status model.ProductStatus) error

	// CreateOrder appends a new order document and returns the server
	// timestamp assigned to it.
	CreateOrder(ctx context.Context, order model.Order) (time.Time, error)

	// CreateProduct appends a new product document and returns the server
	// created/updated timestamps.
	CreateProduct(ctx context.Context, product model.Product) (created, updated time.Time, err error)

	// CreateReview appends a review document.
	CreateReview(ctx context.Context, review model.Review) error

	// SendMessage appends a chat message and returns the server timestamp.
	SendMessage(ctx context.Context, message model.Message) (time.Time, error)
}

// BlobStore is the remote object storage. Paths follow the
// <category>/<owner>/<filename> convention.
type BlobStore interface {
	// Upload stores the local file at remotePath and resolves its public
	// download URL.
	Upload(ctx context.Context, localPath, remotePath string) (string, error)
}
