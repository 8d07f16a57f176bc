// Package worker drains the pending-operation queue against the remote
// backend.
//
// One run replays queued operations strictly oldest-first. Each outcome is
// one of:
//   - success: the operation is deleted and the run continues
//   - transient failure: the run aborts, everything from the failed
//     operation on stays queued in order for the next trigger
//   - permanent failure: the operation is retired to the dead-letter table
//     and the run continues, so one doomed operation cannot block the queue
//     head forever
//
// Image uploads are the exception to the abort rule: they never abort the
// run. Their operation is always deleted, success or failure, and the
// outcome is recorded on the correlated ImageUpload record instead. A broken
// upload should not hold up an unrelated product publish queued behind it.
//
// Operations of unknown kind, or with unparseable payloads, are dropped
// without replay. That tolerates payload-schema drift across app versions.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/mkravets/unimarket/internal/backend"
	"github.com/mkravets/unimarket/internal/model"
	"github.com/mkravets/unimarket/internal/store"
)

// Worker replays pending operations. Construct with New.
type Worker struct {
	store  *store.Store
	docs   backend.DocStore
	blobs  backend.BlobStore
	logger *zap.Logger

	// events receives replay outcomes when set; nil means no observer.
	events EventSink
}

// Result summarizes one drain run.
type Result struct {
	// Synced counts operations replayed and deleted.
	Synced int `json:"synced"`
	// DeadLettered counts operations retired on permanent failure.
	DeadLettered int `json:"deadLettered"`
	// Dropped counts unknown or unparseable operations discarded.
	Dropped int `json:"dropped"`
	// Failed counts upload operations that completed with a failed outcome.
	Failed int `json:"failed"`
	// Retry is true when the run aborted on a transient failure and the
	// scheduler should try again later.
	Retry bool `json:"retry"`
}

// New creates a Worker over the given store and backend.
func New(st *store.Store, docs backend.DocStore, blobs backend.BlobStore, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{store: st, docs: docs, blobs: blobs, logger: logger}
}

// SetEvents registers an observer for replay outcomes.
func (w *Worker) SetEvents(sink EventSink) {
	w.events = sink
}

// RunOnce drains the queue once, in FIFO creation order.
//
// Deletion strictly follows a confirmed remote success (or a deliberate
// retirement), so a run cancelled midway leaves the remaining operations
// queued and consistent.
func (w *Worker) RunOnce(ctx context.Context) (Result, error) {
	var res Result

	ops, err := w.store.PendingOps(ctx)
	if err != nil {
		return res, err
	}
	if len(ops) == 0 {
		return res, nil
	}

	w.logger.Debug("draining pending operations", zap.Int("count", len(ops)))

	for _, op := range ops {
		if ctx.Err() != nil {
			res.Retry = true
			return res, ctx.Err()
		}

		outcome, err := w.dispatch(ctx, op)
		switch outcome {
		case outcomeSynced:
			if err := w.store.RemoveOp(ctx, op.ID); err != nil {
				return res, err
			}
			res.Synced++
			w.emit(Event{Type: EventOpSynced, Kind: op.Kind, OpID: op.ID})

		case outcomeDropped:
			w.logger.Warn("dropping unrecognized operation",
				zap.Int64("id", op.ID), zap.String("kind", string(op.Kind)))
			if err := w.store.RemoveOp(ctx, op.ID); err != nil {
				return res, err
			}
			res.Dropped++

		case outcomeUploadFailed:
			// Upload ops are removed regardless; the failure lives on the
			// ImageUpload record, not in the queue.
			if err := w.store.RemoveOp(ctx, op.ID); err != nil {
				return res, err
			}
			res.Failed++
			w.emit(Event{Type: EventOpFailed, Kind: op.Kind, OpID: op.ID})

		case outcomeDeadLettered:
			reason := "permanent failure"
			if err != nil {
				reason = err.Error()
			}
			w.logger.Warn("retiring operation after permanent failure",
				zap.Int64("id", op.ID), zap.String("kind", string(op.Kind)), zap.Error(err))
			if dlErr := w.store.DeadLetter(ctx, op, nowUTC(), reason); dlErr != nil {
				return res, dlErr
			}
			res.DeadLettered++
			w.emit(Event{Type: EventOpDeadLettered, Kind: op.Kind, OpID: op.ID})

		case outcomeRetry:
			w.logger.Info("sync run aborted, will retry",
				zap.Int64("id", op.ID), zap.String("kind", string(op.Kind)), zap.Error(err))
			res.Retry = true
			return res, nil
		}
	}

	return res, nil
}

type outcome int

const (
	outcomeSynced outcome = iota
	outcomeRetry
	outcomeDeadLettered
	outcomeDropped
	outcomeUploadFailed
)

// dispatch applies one operation's remote effect and classifies the result.
func (w *Worker) dispatch(ctx context.Context, op model.PendingOp) (outcome, error) {
	switch op.Kind {
	case model.OpWishlist:
		var p model.WishlistPayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return outcomeDropped, err
		}
		return w.classify(w.docs.SetWishlist(ctx, p.UserID, p.ProductID, p.Add))

	case model.OpMarkUnavailable:
		var p model.MarkUnavailablePayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return outcomeDropped, err
		}
		return w.classify(w.docs.UpdateProductStatus(ctx, p.ProductID, model.ProductUnavailable))

	case model.OpCreateOrder:
		var p model.CreateOrderPayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return outcomeDropped, err
		}
		serverDate, err := w.docs.CreateOrder(ctx, p.Order)
		if err != nil {
			return w.classify(err)
		}
		// Reconcile the optimistic row with the server timestamp. Failing to
		// do so is not worth re-running the remote append.
		if !serverDate.IsZero() {
			if err := w.store.SetOrderDate(ctx, p.Order.ID, serverDate.UTC().Format(timeLayout)); err != nil {
				w.logger.Warn("failed to reconcile order date",
					zap.String("order", p.Order.ID), zap.Error(err))
			}
		}
		return outcomeSynced, nil

	case model.OpUploadImage:
		var p model.UploadImagePayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return outcomeDropped, err
		}
		return w.uploadImage(ctx, p)

	case model.OpPublishProduct:
		var p model.PublishProductPayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return outcomeDropped, err
		}
		return w.publishProduct(ctx, p.Product)

	case model.OpPublishWithImage:
		var p model.PublishWithImagePayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return outcomeDropped, err
		}
		url, err := w.blobs.Upload(ctx, p.LocalPath, p.RemotePath)
		if err != nil {
			// Unlike a bare upload, the publish depends on the image; the
			// whole operation follows the normal failure policy.
			return w.classify(err)
		}
		p.Product.Images = append(p.Product.Images, url)
		return w.publishProduct(ctx, p.Product)

	case model.OpSendMessage:
		var p model.SendMessagePayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return outcomeDropped, err
		}
		sentAt, err := w.docs.SendMessage(ctx, p.Message)
		if err != nil {
			if backend.IsPermanent(err) {
				if stErr := w.store.SetMessageStatus(ctx, p.Message.ID, model.MessageFailed); stErr != nil {
					return outcomeRetry, stErr
				}
				return outcomeDeadLettered, err
			}
			return outcomeRetry, err
		}
		if !sentAt.IsZero() {
			p.Message.SentAt = sentAt
		}
		if err := w.store.SetMessageStatus(ctx, p.Message.ID, model.MessageSent); err != nil {
			return outcomeRetry, err
		}
		return outcomeSynced, nil

	case model.OpSubmitReview:
		var p model.SubmitReviewPayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return outcomeDropped, err
		}
		if err := w.docs.CreateReview(ctx, p.Review); err != nil {
			if backend.IsPermanent(err) {
				if stErr := w.store.SetReviewStatus(ctx, p.LocalID, model.ReviewFailed); stErr != nil {
					return outcomeRetry, stErr
				}
				return outcomeDeadLettered, err
			}
			return outcomeRetry, err
		}
		if err := w.store.SetReviewStatus(ctx, p.LocalID, model.ReviewSent); err != nil {
			return outcomeRetry, err
		}
		return outcomeSynced, nil

	default:
		return outcomeDropped, fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

// uploadImage applies the upload and records the outcome on the correlated
// record. A failed upload never aborts the run; the op is retired and the
// failure lives on the record. A failure to write the record itself is a
// store fault and aborts like any other, keeping the op queued so the
// outcome is re-recorded on the next run.
func (w *Worker) uploadImage(ctx context.Context, p model.UploadImagePayload) (outcome, error) {
	url, err := w.blobs.Upload(ctx, p.LocalPath, p.RemotePath)
	if err != nil {
		w.logger.Warn("image upload failed",
			zap.String("remote_path", p.RemotePath), zap.Error(err))
		if stErr := w.store.ResolveImageUpload(ctx, p.CorrelationID, model.UploadFailed, ""); stErr != nil {
			return outcomeRetry, stErr
		}
		return outcomeUploadFailed, err
	}

	if err := w.store.ResolveImageUpload(ctx, p.CorrelationID, model.UploadSuccess, url); err != nil {
		return outcomeRetry, err
	}
	return outcomeSynced, nil
}

// publishProduct appends the product document and reconciles local
// timestamps with the server's.
func (w *Worker) publishProduct(ctx context.Context, product model.Product) (outcome, error) {
	created, updated, err := w.docs.CreateProduct(ctx, product)
	if err != nil {
		return w.classify(err)
	}
	if !created.IsZero() {
		product.CreatedAt = created
		product.UpdatedAt = updated
		if err := w.store.WithTx(ctx, func(tx *store.Tx) error {
			return tx.InsertProduct(ctx, &product, nowUTC())
		}); err != nil {
			w.logger.Warn("failed to reconcile published product",
				zap.String("product", product.ID), zap.Error(err))
		}
	}
	return outcomeSynced, nil
}

// classify maps a replay error to the run policy: nil is success, permanent
// retires the op, everything else aborts the run for a later retry.
func (w *Worker) classify(err error) (outcome, error) {
	if err == nil {
		return outcomeSynced, nil
	}
	if backend.IsPermanent(err) {
		return outcomeDeadLettered, err
	}
	return outcomeRetry, err
}
