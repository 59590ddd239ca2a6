package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/scrapledger/scrapledger/internal/billing/render"
)

func newTestRouter(t *testing.T, repo *fakeRepo) http.Handler {
	t.Helper()
	backend := backendFunc(func(_ context.Context, _ string) ([]byte, error) {
		return []byte("%PDF-1.7 test"), nil
	})
	svc := NewService(repo, newFakeAllocator(), render.NewRenderer(backend, render.Options{}), ServiceConfig{})
	h := NewHandler(slog.Default(), svc)
	r := chi.NewRouter()
	r.Route("/bills", h.MountRoutes)
	return r
}

type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Pagination json.RawMessage `json:"pagination"`
	Error      *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"error"`
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func generateBill(t *testing.T, router http.Handler) Bill {
	t.Helper()
	rec, env := doJSON(t, router, http.MethodPost, "/bills/generate", map[string]any{
		"billType":       "TAX_INVOICE",
		"partyName":      "Sharma Metals",
		"partyState":     "Maharashtra",
		"partyStateCode": "27",
		"items": []map[string]any{
			{"description": "MS Scrap", "hsnCode": "7204", "quantity": 500, "rate": 85},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, env.Success)

	var bill Bill
	require.NoError(t, json.Unmarshal(env.Data, &bill))
	return bill
}

func TestHandlerGenerate(t *testing.T) {
	router := newTestRouter(t, newFakeRepo())
	bill := generateBill(t, router)

	require.Equal(t, "TAX-", bill.BillNumber[:4])
	require.InDelta(t, 50150.0, bill.TotalAmount, 0.001)
	require.Equal(t, "Fifty Thousand One Hundred Fifty", bill.AmountInWords)
	require.Equal(t, StatusDraft, bill.Status)
}

func TestHandlerGenerateValidation(t *testing.T) {
	router := newTestRouter(t, newFakeRepo())

	rec, env := doJSON(t, router, http.MethodPost, "/bills/generate", map[string]any{
		"billType":  "GIFT_CARD",
		"partyName": "Sharma Metals",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	require.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	require.Equal(t, "BillType", env.Error.Field)
}

func TestHandlerGenerateMalformedBody(t *testing.T) {
	router := newTestRouter(t, newFakeRepo())

	req := httptest.NewRequest(http.MethodPost, "/bills/generate", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestHandlerGet(t *testing.T) {
	router := newTestRouter(t, newFakeRepo())
	bill := generateBill(t, router)

	rec, env := doJSON(t, router, http.MethodGet, "/bills/"+bill.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got Bill
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Equal(t, bill.BillNumber, got.BillNumber)
}

func TestHandlerGetNotFound(t *testing.T) {
	router := newTestRouter(t, newFakeRepo())

	rec, env := doJSON(t, router, http.MethodGet, "/bills/1b671a64-40d5-491e-99b0-da01ff1f3341", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", env.Error.Code)

	// Non-UUID ids are indistinguishable from unknown bills.
	rec, env = doJSON(t, router, http.MethodGet, "/bills/not-a-uuid", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestHandlerList(t *testing.T) {
	router := newTestRouter(t, newFakeRepo())
	generateBill(t, router)

	rec, env := doJSON(t, router, http.MethodGet, "/bills/?status=DRAFT&page=1&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var bills []Bill
	require.NoError(t, json.Unmarshal(env.Data, &bills))
	require.Len(t, bills, 1)

	var page struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Pagination, &page))
	require.Equal(t, 1, page.Page)
	require.Equal(t, 10, page.Limit)
	require.Equal(t, 1, page.Total)
}

func TestHandlerListRejectsBadParams(t *testing.T) {
	router := newTestRouter(t, newFakeRepo())

	rec, env := doJSON(t, router, http.MethodGet, "/bills/?status=SHIPPED", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "status", env.Error.Field)

	rec, env = doJSON(t, router, http.MethodGet, "/bills/?minAmount=lots", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "minAmount", env.Error.Field)
}

func TestHandlerUpdateStatus(t *testing.T) {
	router := newTestRouter(t, newFakeRepo())
	bill := generateBill(t, router)

	rec, env := doJSON(t, router, http.MethodPut, "/bills/"+bill.ID.String(), map[string]any{
		"status": "SENT",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var got Bill
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Equal(t, StatusSent, got.Status)
}

func TestHandlerUpdateImmutableField(t *testing.T) {
	router := newTestRouter(t, newFakeRepo())
	bill := generateBill(t, router)

	for _, field := range []string{"billNumber", "totalAmount", "partyName", "digitalSignature"} {
		rec, env := doJSON(t, router, http.MethodPut, "/bills/"+bill.ID.String(), map[string]any{
			field: "tampered",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code, field)
		require.Equal(t, "IMMUTABLE_FIELD", env.Error.Code, field)
		require.Equal(t, field, env.Error.Field)
	}

	// The record is untouched after rejected updates.
	_, env := doJSON(t, router, http.MethodGet, "/bills/"+bill.ID.String(), nil)
	var got Bill
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Equal(t, bill.BillNumber, got.BillNumber)
	require.Equal(t, StatusDraft, got.Status)
}

func TestHandlerUpdateBackwardTransition(t *testing.T) {
	router := newTestRouter(t, newFakeRepo())
	bill := generateBill(t, router)

	rec, _ := doJSON(t, router, http.MethodPut, "/bills/"+bill.ID.String(), map[string]any{"status": "PAID"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := doJSON(t, router, http.MethodPut, "/bills/"+bill.ID.String(), map[string]any{"status": "DRAFT"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	require.Equal(t, "status", env.Error.Field)
}

func TestHandlerPDF(t *testing.T) {
	router := newTestRouter(t, newFakeRepo())
	bill := generateBill(t, router)

	req := httptest.NewRequest(http.MethodGet, "/bills/"+bill.ID.String()+"/pdf", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Equal(t,
		fmt.Sprintf("attachment; filename=%q", "TAX_INVOICE_"+bill.BillNumber+".pdf"),
		rec.Header().Get("Content-Disposition"))
	require.NotEmpty(t, rec.Body.Bytes())
}
