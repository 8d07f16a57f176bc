package worker

import (
	"time"

	"github.com/mkravets/unimarket/internal/model"
)

const timeLayout = time.RFC3339Nano

func nowUTC() time.Time {
	return time.Now().UTC()
}

// EventType labels a replay outcome for observers.
type EventType string

const (
	// EventOpSynced means an operation was replayed and removed.
	EventOpSynced EventType = "op_synced"
	// EventOpFailed means an upload operation completed with a failed
	// outcome recorded on its ImageUpload record.
	EventOpFailed EventType = "op_failed"
	// EventOpDeadLettered means an operation was retired permanently.
	EventOpDeadLettered EventType = "op_dead_lettered"
	// EventRunComplete means a drain run finished.
	EventRunComplete EventType = "run_complete"
	// EventConnectivity means the online state changed.
	EventConnectivity EventType = "connectivity"
)

// Event describes one observable sync occurrence.
type Event struct {
	Type EventType    `json:"type"`
	Kind model.OpKind `json:"kind,omitempty"`
	OpID int64        `json:"opId,omitempty"`

	// Result is set for run_complete events.
	Result *Result `json:"result,omitempty"`

	// Online is set for connectivity events.
	Online bool `json:"online,omitempty"`
}

// EventSink receives sync events. Implementations must not block.
type EventSink interface {
	Publish(e Event)
}

func (w *Worker) emit(e Event) {
	if w.events != nil {
		w.events.Publish(e)
	}
}
