// Package stream subscribes to the backend's realtime message feed over
// WebSocket and mirrors incoming chat messages into the local store.
//
// Outgoing messages go through the pending-operation queue like any other
// mutation; this package only handles the receive side.
package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/mkravets/unimarket/internal/model"
)

// MessageSink receives messages from the feed. *store.Store satisfies it.
type MessageSink interface {
	UpsertMessage(ctx context.Context, m *model.Message) error
}

// Subscriber maintains a WebSocket subscription with reconnect backoff.
type Subscriber struct {
	url    string
	sink   MessageSink
	logger *zap.Logger

	backoffMin time.Duration
	backoffMax time.Duration
}

// New creates a Subscriber for the given feed URL.
func New(url string, sink MessageSink, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{
		url:        url,
		sink:       sink,
		logger:     logger,
		backoffMin: time.Second,
		backoffMax: time.Minute,
	}
}

// Run connects and consumes the feed until ctx is cancelled. Connection
// failures reconnect with exponential backoff.
func (s *Subscriber) Run(ctx context.Context) error {
	var backoff time.Duration
	for {
		started := time.Now()
		err := s.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		backoff = s.nextDelay(backoff, time.Since(started))
		if err != nil {
			s.logger.Warn("message feed disconnected", zap.Error(err),
				zap.Duration("reconnect_in", backoff))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// nextDelay computes the wait before the next reconnect attempt. Rapid
// failures double the previous delay up to backoffMax; a connection that
// survived longer than a full backoffMax window resets to backoffMin.
func (s *Subscriber) nextDelay(prev, connectedFor time.Duration) time.Duration {
	if prev == 0 || connectedFor > s.backoffMax {
		return s.backoffMin
	}
	next := prev * 2
	if next > s.backoffMax {
		next = s.backoffMax
	}
	return next
}

func (s *Subscriber) consume(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	s.logger.Info("message feed connected", zap.String("url", s.url))

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var m model.Message
		if err := json.Unmarshal(data, &m); err != nil {
			// Unknown frame shape: skip it, the feed may be ahead of us.
			s.logger.Debug("skipping unparseable frame", zap.Error(err))
			continue
		}
		if m.ID == "" {
			continue
		}

		m.Status = model.MessageSent
		if err := s.sink.UpsertMessage(ctx, &m); err != nil {
			s.logger.Warn("failed to store incoming message",
				zap.String("id", m.ID), zap.Error(err))
		}
	}
}
