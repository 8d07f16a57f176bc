package store

import (
	"context"
	"testing"
	"time"

	"github.com/mkravets/unimarket/internal/model"
)

func TestQueueFIFOAcrossKinds(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()
	base := time.Now()

	kinds := []model.OpKind{
		model.OpWishlist,
		model.OpCreateOrder,
		model.OpUploadImage,
		model.OpMarkUnavailable,
		model.OpWishlist,
	}
	for i, kind := range kinds {
		_, err := st.EnqueueOp(ctx, kind, map[string]int{"seq": i}, "", base.Add(time.Duration(i)*time.Millisecond))
		if err != nil {
			t.Fatalf("enqueue %d failed: %v", i, err)
		}
	}

	ops, err := st.PendingOps(ctx)
	if err != nil {
		t.Fatalf("pending failed: %v", err)
	}
	if len(ops) != len(kinds) {
		t.Fatalf("expected %d ops, got %d", len(kinds), len(ops))
	}
	for i, op := range ops {
		if op.Kind != kinds[i] {
			t.Errorf("position %d: want %s, got %s", i, kinds[i], op.Kind)
		}
	}
}

func TestQueueTiebreakOnEqualTimestamps(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()
	at := time.Now()

	first, err := st.EnqueueOp(ctx, model.OpWishlist, nil, "", at)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	second, err := st.EnqueueOp(ctx, model.OpMarkUnavailable, nil, "", at)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	ops, err := st.PendingOps(ctx)
	if err != nil {
		t.Fatalf("pending failed: %v", err)
	}
	if len(ops) != 2 || ops[0].ID != first || ops[1].ID != second {
		t.Fatalf("equal timestamps must order by insertion id: %+v", ops)
	}
}

func TestRemoveOpIdempotent(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	id, err := st.EnqueueOp(ctx, model.OpWishlist, nil, "", time.Now())
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := st.RemoveOp(ctx, id); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := st.RemoveOp(ctx, id); err != nil {
		t.Fatalf("second remove must be a no-op, got: %v", err)
	}

	count, err := st.PendingCount(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty queue, got %d", count)
	}
}

func TestDeadLetterMovesOp(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := st.EnqueueOp(ctx, model.OpCreateOrder,
		model.CreateOrderPayload{Order: model.Order{ID: "o1"}}, "", time.Now())
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	ops, err := st.PendingOps(ctx)
	if err != nil {
		t.Fatalf("pending failed: %v", err)
	}

	failedAt := time.Now().UTC()
	if err := st.DeadLetter(ctx, ops[0], failedAt, "409 conflict"); err != nil {
		t.Fatalf("dead letter failed: %v", err)
	}

	count, err := st.PendingCount(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("dead-lettered op still pending")
	}

	dead, err := st.ListDeadOps(ctx)
	if err != nil {
		t.Fatalf("list dead failed: %v", err)
	}
	if len(dead) != 1 {
		t.Fatalf("expected 1 dead op, got %d", len(dead))
	}
	if dead[0].Kind != model.OpCreateOrder || dead[0].Reason != "409 conflict" {
		t.Errorf("dead op lost detail: %+v", dead[0])
	}
	if dead[0].OpID != ops[0].ID {
		t.Errorf("dead op must keep the original op id")
	}
}
