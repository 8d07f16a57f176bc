// Package httpapi implements the backend contract over the marketplace REST
// API: JSON documents with lowerCamel field names and an object-storage
// upload endpoint that resolves public URLs.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/mkravets/unimarket/internal/backend"
	"github.com/mkravets/unimarket/internal/model"
)

// Client talks to the marketplace backend over HTTP. It implements both
// backend.DocStore and backend.BlobStore.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger

	// per-call retry budget for transient failures; run-level retry is the
	// sync worker's job
	maxRetries   uint64
	retryBackoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRetries overrides the per-call transient retry budget.
func WithRetries(max uint64, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// New creates a backend client for the given base URL.
func New(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
		maxRetries:   2,
		retryBackoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ backend.DocStore  = (*Client)(nil)
	_ backend.BlobStore = (*Client)(nil)
)

// FetchProducts implements backend.DocStore.
func (c *Client) FetchProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := c.doJSON(ctx, http.MethodGet, "/products", nil, &products); err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	return products, nil
}

// SetWishlist implements backend.DocStore.
func (c *Client) SetWishlist(ctx context.Context, userID, productID string, add bool) error {
	path := fmt.Sprintf("/users/%s/wishlist/%s", url.PathEscape(userID), url.PathEscape(productID))
	method := http.MethodPut
	if !add {
		method = http.MethodDelete
	}
	if err := c.doJSON(ctx, method, path, nil, nil); err != nil {
		return fmt.Errorf("set wishlist %s/%s: %w", userID, productID, err)
	}
	return nil
}

// UpdateProductStatus implements backend.DocStore.
func (c *Client) UpdateProductStatus(ctx context.Context, productID string, status model.ProductStatus) error {
	path := "/products/" + url.PathEscape(productID) + "/status"
	body := map[string]string{"status": string(status)}
	if err := c.doJSON(ctx, http.MethodPatch, path, body, nil); err != nil {
		return fmt.Errorf("update product %s status: %w", productID, err)
	}
	return nil
}

// CreateOrder implements backend.DocStore.
func (c *Client) CreateOrder(ctx context.Context, order model.Order) (time.Time, error) {
	var resp struct {
		OrderDate time.Time `json:"orderDate"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/orders", order, &resp); err != nil {
		return time.Time{}, fmt.Errorf("create order %s: %w", order.ID, err)
	}
	return resp.OrderDate, nil
}

// CreateProduct implements backend.DocStore.
func (c *Client) CreateProduct(ctx context.Context, product model.Product) (time.Time, time.Time, error) {
	var resp struct {
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/products", product, &resp); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("create product %s: %w", product.ID, err)
	}
	return resp.CreatedAt, resp.UpdatedAt, nil
}

// CreateReview implements backend.DocStore.
func (c *Client) CreateReview(ctx context.Context, review model.Review) error {
	if err := c.doJSON(ctx, http.MethodPost, "/reviews", review, nil); err != nil {
		return fmt.Errorf("create review for %s: %w", review.TargetUserID, err)
	}
	return nil
}

// SendMessage implements backend.DocStore.
func (c *Client) SendMessage(ctx context.Context, message model.Message) (time.Time, error) {
	var resp struct {
		SentAt time.Time `json:"sentAt"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/messages", message, &resp); err != nil {
		return time.Time{}, fmt.Errorf("send message %s: %w", message.ID, err)
	}
	return resp.SentAt, nil
}

// Upload implements backend.BlobStore. The file body is streamed to the
// storage endpoint, which responds with the resolved public URL.
func (c *Client) Upload(ctx context.Context, localPath, remotePath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		// A missing local file will never succeed on retry.
		return "", backend.MarkPermanent(fmt.Errorf("read %s: %w", localPath, err))
	}

	var resp struct {
		URL string `json:"url"`
	}
	path := "/storage/" + remotePath
	if err := c.doRaw(ctx, http.MethodPut, path, data, "application/octet-stream", &resp); err != nil {
		return "", fmt.Errorf("upload %s: %w", remotePath, err)
	}
	return resp.URL, nil
}

// doJSON performs a JSON request with transient-failure retries.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return backend.MarkPermanent(fmt.Errorf("marshal request: %w", err))
		}
	}
	return c.doRaw(ctx, method, path, data, "application/json", out)
}

func (c *Client) doRaw(ctx context.Context, method, path string, body []byte, contentType string, out any) error {
	b := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBackoff))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return backend.MarkPermanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if err := classifyStatus(resp.StatusCode, method, path); err != nil {
			if !backend.IsPermanent(err) {
				c.logger.Debug("transient backend failure",
					zap.String("path", path), zap.Int("status", resp.StatusCode))
				return retry.RetryableError(err)
			}
			return err
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return backend.MarkPermanent(fmt.Errorf("decode response: %w", err))
			}
		}
		return nil
	})
}

// classifyStatus maps an HTTP status to the worker's failure taxonomy.
// 4xx responses (except timeouts and throttling) will not succeed on retry.
func classifyStatus(status int, method, path string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		return fmt.Errorf("%s %s: status %d", method, path, status)
	case status >= 400 && status < 500:
		return backend.MarkPermanent(fmt.Errorf("%s %s: status %d", method, path, status))
	default:
		return fmt.Errorf("%s %s: status %d", method, path, status)
	}
}
