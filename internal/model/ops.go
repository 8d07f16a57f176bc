package model

import (
	"encoding/json"
	"time"
)

// OpKind identifies what a queued operation does when replayed against the
// backend. Kinds the worker does not recognize are dropped without replay,
// which tolerates payload-schema drift across app versions.
type OpKind string

const (
	OpWishlist         OpKind = "wishlist"
	OpMarkUnavailable  OpKind = "mark_unavailable"
	OpCreateOrder      OpKind = "create_order"
	OpUploadImage      OpKind = "upload_image"
	OpPublishProduct   OpKind = "publish_product"
	OpPublishWithImage OpKind = "publish_with_image"
	OpSendMessage      OpKind = "send_message"
	OpSubmitReview     OpKind = "submit_review"
)

// PendingOp is one not-yet-synchronized mutation. Ops are created only by the
// repository and consumed only by the sync worker, strictly oldest-first.
type PendingOp struct {
	ID   int64  `json:"-"`
	Kind OpKind `json:"kind"`

	// Payload is the serialized per-kind payload. Opaque to the store.
	Payload json.RawMessage `json:"payload"`

	// CorrelationID links upload ops to their ImageUpload record.
	// Empty for kinds that need no correlation.
	CorrelationID string `json:"correlationId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// WishlistPayload carries the toggle decision made at enqueue time. The
// repository inverts the *local* membership, so replaying queued decisions in
// order reproduces user intent on the backend.
type WishlistPayload struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Add       bool   `json:"add"`
}

// MarkUnavailablePayload flips a product's status remotely.
type MarkUnavailablePayload struct {
	ProductID string `json:"productId"`
}

// CreateOrderPayload carries the full order document. The backend assigns
// the authoritative order date on append.
type CreateOrderPayload struct {
	Order Order `json:"order"`
}

// UploadImagePayload carries a file upload request. CorrelationID must match
// an ImageUpload record in the store.
type UploadImagePayload struct {
	CorrelationID string `json:"correlationId"`
	LocalPath     string `json:"localPath"`
	RemotePath    string `json:"remotePath"`
}

// PublishProductPayload appends a new product document. Server timestamps
// for created/updated are assigned remotely.
type PublishProductPayload struct {
	Product Product `json:"product"`
}

// PublishWithImagePayload uploads an image first and publishes the product
// with the resolved URL appended to its image list.
type PublishWithImagePayload struct {
	Product    Product `json:"product"`
	LocalPath  string  `json:"localPath"`
	RemotePath string  `json:"remotePath"`
}

// SendMessagePayload carries an outgoing chat message.
type SendMessagePayload struct {
	Message Message `json:"message"`
}

// SubmitReviewPayload carries a pending review. LocalID ties the replay back
// to the review row so the worker can flip its status.
type SubmitReviewPayload struct {
	LocalID int64  `json:"localId"`
	Review  Review `json:"review"`
}
