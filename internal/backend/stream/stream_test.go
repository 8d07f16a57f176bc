package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/unimarket/internal/model"
)

type captureSink struct {
	messages []model.Message
}

func (c *captureSink) UpsertMessage(ctx context.Context, m *model.Message) error {
	c.messages = append(c.messages, *m)
	return nil
}

// feedServer accepts one WebSocket client, writes the given frames, and
// closes the connection.
func feedServer(t *testing.T, frames []string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept failed: %v", err)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		for _, frame := range frames {
			if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
				t.Errorf("write failed: %v", err)
				return
			}
		}
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConsumeStoresMessages(t *testing.T) {
	url := feedServer(t, []string{
		`{"id":"m1","conversationId":"u1:u2","senderId":"u2","recipientId":"u1","body":"hi","sentAt":"2026-01-10T10:00:00Z"}`,
	})

	sink := &captureSink{}
	s := New(url, sink, nil)

	err := s.consume(context.Background())
	require.Error(t, err, "consume returns once the feed closes")

	require.Len(t, sink.messages, 1)
	require.Equal(t, "m1", sink.messages[0].ID)
	require.Equal(t, "hi", sink.messages[0].Body)
	require.Equal(t, model.MessageSent, sink.messages[0].Status)
}

func TestNextDelay(t *testing.T) {
	s := New("ws://unused", &captureSink{}, nil)

	// First attempt starts at the minimum.
	d := s.nextDelay(0, 0)
	require.Equal(t, s.backoffMin, d)

	// Rapid failures double up to the cap.
	d = s.nextDelay(d, 0)
	require.Equal(t, 2*s.backoffMin, d)
	d = s.nextDelay(s.backoffMax, 0)
	require.Equal(t, s.backoffMax, d)

	// A connection that held well past the cap resets the ladder.
	d = s.nextDelay(s.backoffMax, 2*time.Hour)
	require.Equal(t, s.backoffMin, d)
}

func TestConsumeSkipsBadFrames(t *testing.T) {
	url := feedServer(t, []string{
		`not json at all`,
		`{"body":"missing id"}`,
		`{"id":"m2","conversationId":"u1:u2","senderId":"u2","recipientId":"u1","body":"ok","sentAt":"2026-01-10T10:01:00Z"}`,
	})

	sink := &captureSink{}
	s := New(url, sink, nil)

	_ = s.consume(context.Background())

	require.Len(t, sink.messages, 1)
	require.Equal(t, "m2", sink.messages[0].ID)
}
