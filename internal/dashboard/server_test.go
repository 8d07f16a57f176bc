package dashboard

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/unimarket/internal/model"
	"github.com/mkravets/unimarket/internal/store"
	"github.com/mkravets/unimarket/internal/worker"
)

func setupServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "dash.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.InitSchema())

	srv := NewServer(0, st, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })

	return srv, st
}

func TestSnapshotAndBroadcast(t *testing.T) {
	srv, st := setupServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := st.EnqueueOp(ctx, model.OpWishlist,
		model.WishlistPayload{UserID: "u1", ProductID: "p1", Add: true}, "", time.Now())
	require.NoError(t, err)

	conn, _, err := websocket.Dial(ctx, "ws://"+srv.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// First frame is the snapshot with current queue depth.
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var snap struct {
		Type       string `json:"type"`
		PendingOps int    `json:"pendingOps"`
	}
	require.NoError(t, json.Unmarshal(data, &snap))
	require.Equal(t, "snapshot", snap.Type)
	require.Equal(t, 1, snap.PendingOps)

	// Published events reach the client.
	srv.Publish(worker.Event{Type: worker.EventOpSynced, Kind: model.OpWishlist, OpID: 1})

	_, data, err = conn.Read(ctx)
	require.NoError(t, err)

	var ev worker.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	require.Equal(t, worker.EventOpSynced, ev.Type)
	require.Equal(t, int64(1), ev.OpID)
}
