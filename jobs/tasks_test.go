package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/scrapledger/scrapledger/internal/billing"
	"github.com/scrapledger/scrapledger/internal/billing/render"
	"github.com/scrapledger/scrapledger/internal/observability"
)

type stubLoader struct {
	bill *billing.Bill
}

func (s *stubLoader) GetBill(_ context.Context, id uuid.UUID) (*billing.Bill, error) {
	if s.bill == nil || s.bill.ID != id {
		return nil, billing.ErrNotFound
	}
	return s.bill, nil
}

type stubBackend struct {
	calls int
}

func (s *stubBackend) RenderHTML(_ context.Context, _ string) ([]byte, error) {
	s.calls++
	return []byte("%PDF-1.7"), nil
}

func sampleBill() *billing.Bill {
	sgst, cgst := 3825.0, 3825.0
	return &billing.Bill{
		ID:             uuid.New(),
		BillType:       billing.BillTypeTaxInvoice,
		BillNumber:     "TAX-20250410-0001",
		BillDate:       time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		PartyName:      "Sharma Metals",
		TotalBeforeTax: 42500,
		SGST:           &sgst,
		CGST:           &cgst,
		TotalAmount:    50150,
		AmountInWords:  "Fifty Thousand One Hundred Fifty",
		Status:         billing.StatusDraft,
	}
}

func TestPrerenderHandlerRendersBill(t *testing.T) {
	bill := sampleBill()
	backend := &stubBackend{}
	handler := NewPrerenderHandler(
		&stubLoader{bill: bill},
		render.NewRenderer(backend, render.Options{}),
		observability.NewMetrics(),
		nil,
	)

	task, err := NewPrerenderTask(bill.ID)
	require.NoError(t, err)
	require.Equal(t, TaskBillPrerender, task.Type())

	require.NoError(t, handler.Handle(context.Background(), task))
	require.Equal(t, 1, backend.calls)
}

func TestPrerenderHandlerSkipsVanishedBill(t *testing.T) {
	handler := NewPrerenderHandler(
		&stubLoader{},
		render.NewRenderer(&stubBackend{}, render.Options{}),
		observability.NewMetrics(),
		nil,
	)

	task, err := NewPrerenderTask(uuid.New())
	require.NoError(t, err)

	err = handler.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestPrerenderHandlerSkipsMalformedPayload(t *testing.T) {
	handler := NewPrerenderHandler(
		&stubLoader{},
		render.NewRenderer(&stubBackend{}, render.Options{}),
		observability.NewMetrics(),
		nil,
	)

	task := asynq.NewTask(TaskBillPrerender, []byte("{broken"))
	err := handler.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestPrerenderPayloadRoundTrip(t *testing.T) {
	id := uuid.New()
	task, err := NewPrerenderTask(id)
	require.NoError(t, err)

	var payload PrerenderPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, id, payload.BillID)
}
