// Package jobs runs background work over Asynq: pre-rendering bill PDFs so
// the first download hits a warm cache.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/scrapledger/scrapledger/internal/billing"
	"github.com/scrapledger/scrapledger/internal/billing/render"
	"github.com/scrapledger/scrapledger/internal/observability"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBillPrerender warms the PDF cache right after a bill is created.
	TaskBillPrerender = "bill:prerender"
)

// PrerenderPayload identifies the bill to render.
type PrerenderPayload struct {
	BillID uuid.UUID `json:"billId"`
}

// NewPrerenderTask constructs an Asynq task for a bill.
func NewPrerenderTask(billID uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(PrerenderPayload{BillID: billID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBillPrerender, data, asynq.MaxRetry(3), asynq.Timeout(time.Minute)), nil
}

// BillLoader fetches the bill to render. Satisfied by the billing repository.
type BillLoader interface {
	GetBill(ctx context.Context, id uuid.UUID) (*billing.Bill, error)
}

// PrerenderHandler renders a bill's PDF so the bytes land in the shared
// cache before anyone asks for them.
type PrerenderHandler struct {
	loader   BillLoader
	renderer *render.Renderer
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewPrerenderHandler constructs the handler.
func NewPrerenderHandler(loader BillLoader, renderer *render.Renderer, metrics *observability.Metrics, logger *slog.Logger) *PrerenderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrerenderHandler{loader: loader, renderer: renderer, metrics: metrics, logger: logger}
}

// Handle processes TaskBillPrerender tasks. A bill deleted between enqueue
// and execution is not an error worth retrying.
func (h *PrerenderHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload PrerenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	bill, err := h.loader.GetBill(ctx, payload.BillID)
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			h.logger.Warn("prerender: bill vanished", slog.String("bill_id", payload.BillID.String()))
			return asynq.SkipRetry
		}
		return err
	}

	start := time.Now()
	_, err = h.renderer.Render(ctx, bill.RenderDocument(time.Now()))
	if err != nil {
		h.metrics.ObserveJob(TaskBillPrerender, "error")
		return err
	}
	h.metrics.ObserveJob(TaskBillPrerender, "ok")
	h.logger.Info("prerendered bill pdf",
		slog.String("bill_number", bill.BillNumber),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}
