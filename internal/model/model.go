// Package model defines the domain entities cached by the local store and
// the payloads carried by the pending-operation queue.
//
// Wire field names are canonical lowerCamel (buyerId, sellerId, productId)
// for both the queue payloads and the remote document backend.
package model

import (
	"fmt"
	"time"
)

// ProductStatus is the lifecycle state of a listing.
type ProductStatus string

const (
	// ProductAvailable means the listing can still be purchased.
	ProductAvailable ProductStatus = "available"
	// ProductUnavailable means the listing was sold or withdrawn.
	ProductUnavailable ProductStatus = "unavailable"
)

// Product is a cached marketplace listing.
type Product struct {
	// ID uniquely identifies the listing.
	ID string `json:"id"`

	// SellerID is the publishing user.
	SellerID string `json:"sellerId"`

	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`

	// Images holds public URLs in display order.
	Images []string `json:"images"`

	// Labels holds free-form tags in display order.
	Labels []string `json:"labels"`

	Status ProductStatus `json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// CachedAt is when the row was last written from the backend.
	// It drives the collection-wide TTL policy and is not sent upstream.
	CachedAt time.Time `json:"-"`
}

// Validate checks the fields the store and backend both require.
func (p *Product) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("product: missing id")
	}
	if p.Title == "" {
		return fmt.Errorf("product %s: missing title", p.ID)
	}
	if p.Price < 0 {
		return fmt.Errorf("product %s: negative price", p.ID)
	}
	switch p.Status {
	case ProductAvailable, ProductUnavailable:
	default:
		return fmt.Errorf("product %s: unknown status %q", p.ID, p.Status)
	}
	return nil
}

// WishlistEntry is a locally cached wishlist membership. The authoritative
// state lives in the user's wishlist sub-collection on the backend.
type WishlistEntry struct {
	ProductID string    `json:"productId"`
	AddedAt   time.Time `json:"addedAt"`
}

// Order mirrors a remote order document. It is created locally the moment a
// purchase is initiated and replayed to the backend by the sync worker.
type Order struct {
	ID        string    `json:"id"`
	BuyerID   string    `json:"buyerId"`
	SellerID  string    `json:"sellerId"`
	ProductID string    `json:"productId"`
	OrderDate time.Time `json:"orderDate"`
	Price     float64   `json:"price"`

	// Status is free form ("Unpaid", "Delivered", ...). The backend owns the
	// vocabulary; the client just mirrors it.
	Status string `json:"status"`
}

// UploadState tracks the outcome of an image upload.
type UploadState string

const (
	UploadPending UploadState = "pending"
	UploadSuccess UploadState = "success"
	UploadFailed  UploadState = "failed"
)

// ImageUpload records a requested image upload and its eventual outcome.
//
// The record and its queue operation share CorrelationID, assigned at enqueue
// time. The worker resolves the record by that key, never by path equality.
// Records are not deleted by the worker; the consumer clears them once the
// outcome has been observed.
type ImageUpload struct {
	ID            int64       `json:"-"`
	CorrelationID string      `json:"correlationId"`
	LocalPath     string      `json:"localPath"`
	RemotePath    string      `json:"remotePath"`
	State         UploadState `json:"state"`

	// RemoteURL is the resolved public URL, set on success.
	RemoteURL string    `json:"remoteUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReviewStatus is the local sync state of a review.
type ReviewStatus string

const (
	ReviewPending ReviewStatus = "pending"
	ReviewSent    ReviewStatus = "sent"
	ReviewFailed  ReviewStatus = "failed"
)

// Review is a user review written after an order completes.
type Review struct {
	ID           int64        `json:"-"`
	TargetUserID string       `json:"targetUserId"`
	ReviewerID   string       `json:"reviewerId"`
	OrderID      string       `json:"orderId"`
	Rating       int          `json:"rating"`
	Comment      string       `json:"comment"`
	CreatedAt    time.Time    `json:"createdAt"`
	Status       ReviewStatus `json:"-"`
}

// Validate enforces the 1..5 rating bound before the review is accepted.
func (r *Review) Validate() error {
	if r.TargetUserID == "" || r.ReviewerID == "" {
		return fmt.Errorf("review: missing user ids")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("review: rating %d out of range 1..5", r.Rating)
	}
	return nil
}

// MessageStatus is the local sync state of an outgoing chat message.
type MessageStatus string

const (
	MessagePending MessageStatus = "pending"
	MessageSent    MessageStatus = "sent"
	MessageFailed  MessageStatus = "failed"
)

// ConversationID derives the canonical conversation key for a pair of
// users. Both directions of a chat map to the same key.
func ConversationID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// Message is a chat message between two users. Outgoing messages are queued
// like any other mutation; incoming ones arrive over the stream subscription.
type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversationId"`
	SenderID       string        `json:"senderId"`
	RecipientID    string        `json:"recipientId"`
	Body           string        `json:"body"`
	SentAt         time.Time     `json:"sentAt"`
	Status         MessageStatus `json:"-"`
}
