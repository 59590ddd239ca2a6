package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/scrapledger/scrapledger/internal/billing/number"
	"github.com/scrapledger/scrapledger/internal/billing/render"
	"github.com/scrapledger/scrapledger/internal/billing/tax"
	"github.com/scrapledger/scrapledger/internal/platform/httpx"
	"github.com/scrapledger/scrapledger/internal/shared"
)

// Handler exposes the bill HTTP surface.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers bill routes; mount under /bills.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/generate", h.generate)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/pdf", h.pdf)
	r.Put("/{id}", h.update)
}

type itemRequest struct {
	Description string  `json:"description" validate:"required"`
	HSNCode     string  `json:"hsnCode"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	Rate        float64 `json:"rate" validate:"required,gt=0"`
}

type generateRequest struct {
	TransactionID  string        `json:"transactionId"`
	BillType       string        `json:"billType" validate:"required,oneof=PURCHASE_VOUCHER TAX_INVOICE"`
	PartyName      string        `json:"partyName" validate:"required"`
	PartyAddress   string        `json:"partyAddress"`
	PartyGstin     string        `json:"partyGstin" validate:"omitempty,len=15"`
	PartyState     string        `json:"partyState"`
	PartyStateCode string        `json:"partyStateCode" validate:"omitempty,numeric"`
	TotalBeforeTax *float64      `json:"totalBeforeTax" validate:"omitempty,gt=0"`
	SGST           *float64      `json:"sgst" validate:"omitempty,gte=0"`
	CGST           *float64      `json:"cgst" validate:"omitempty,gte=0"`
	IGST           *float64      `json:"igst" validate:"omitempty,gte=0"`
	TotalAmount    *float64      `json:"totalAmount" validate:"omitempty,gt=0"`
	ReverseCharge  bool          `json:"reverseCharge"`
	Items          []itemRequest `json:"items" validate:"omitempty,dive"`
	Terms          string        `json:"terms"`
	BillDate       *time.Time    `json:"billDate"`
}

// generate handles POST /bills/generate.
func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeBadRequest, "malformed JSON body", "")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation,
				fmt.Sprintf("invalid value for %s", fe.Field()), fe.Field())
			return
		}
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "invalid request", "")
		return
	}

	items := make([]tax.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, tax.Item{
			Description: it.Description,
			HSNCode:     it.HSNCode,
			Quantity:    it.Quantity,
			Rate:        it.Rate,
		})
	}

	bill, err := h.service.Generate(r.Context(), GenerateInput{
		BillType:       req.BillType,
		TransactionID:  req.TransactionID,
		PartyName:      req.PartyName,
		PartyAddress:   req.PartyAddress,
		PartyGSTIN:     req.PartyGstin,
		PartyState:     req.PartyState,
		PartyStateCode: req.PartyStateCode,
		Items:          items,
		TotalBeforeTax: req.TotalBeforeTax,
		SGST:           req.SGST,
		CGST:           req.CGST,
		IGST:           req.IGST,
		TotalAmount:    req.TotalAmount,
		ReverseCharge:  req.ReverseCharge,
		BillDate:       req.BillDate,
		Terms:          req.Terms,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, bill)
}

// get handles GET /bills/{id}.
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	bill, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, bill)
}

// list handles GET /bills with search/status/amount filters and paging.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Search: q.Get("search"),
	}
	if s := q.Get("status"); s != "" {
		status, ok := ParseBillStatus(s)
		if !ok {
			httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "unknown status", "status")
			return
		}
		filter.Status = status
	}
	var parseErr error
	filter.MinAmount, parseErr = parseFloatParam(q.Get("minAmount"))
	if parseErr != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "minAmount must be a number", "minAmount")
		return
	}
	filter.MaxAmount, parseErr = parseFloatParam(q.Get("maxAmount"))
	if parseErr != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "maxAmount must be a number", "maxAmount")
		return
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	bills, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if bills == nil {
		bills = []Bill{}
	}
	// Mirror the service's paging clamps so the metadata reflects the
	// page actually returned.
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	httpx.OKPage(w, http.StatusOK, bills, shared.NewPagination(filter.Page, filter.Limit, total))
}

// pdf handles GET /bills/{id}/pdf, rendering from stored fields on every
// request.
func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	pdf, filename, err := h.service.RenderPDF(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// Fields a PUT may touch; anything else is an immutable-field violation.
var mutableFields = map[string]struct{}{
	"status": {},
	"terms":  {},
	"notes":  {},
}

// update handles PUT /bills/{id}.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var raw map[string]json.RawMessage
	if err := httpx.DecodeJSON(r, &raw); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeBadRequest, "malformed JSON body", "")
		return
	}
	for key := range raw {
		if _, allowed := mutableFields[key]; !allowed {
			httpx.Error(w, http.StatusBadRequest, httpx.CodeImmutableField,
				fmt.Sprintf("field %s cannot be modified", key), key)
			return
		}
	}

	var patch UpdatePatch
	if v, ok := raw["status"]; ok {
		var s BillStatus
		if err := json.Unmarshal(v, &s); err != nil {
			httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "status must be a string", "status")
			return
		}
		patch.Status = &s
	}
	if v, ok := raw["terms"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "terms must be a string", "terms")
			return
		}
		patch.Terms = &s
	}
	if v, ok := raw["notes"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "notes must be a string", "notes")
			return
		}
		patch.Notes = &s
	}

	bill, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, bill)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "bill not found", "")
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service errors onto the envelope. Internal failures are
// logged with full context but surfaced generically.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, vErr.Message, vErr.Field)
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "bill not found", "")
	case errors.Is(err, ErrImmutableField):
		httpx.Error(w, http.StatusBadRequest, httpx.CodeImmutableField, "attempted to modify an immutable field", "")
	case errors.Is(err, ErrInvalidTransition):
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "status can only move forward", "status")
	case errors.Is(err, number.ErrExhausted):
		h.logger.Error("bill number sequence exhausted", slog.String("path", r.URL.Path))
		httpx.Error(w, http.StatusInternalServerError, httpx.CodeInternal, "bill generation failed", "")
	case errors.Is(err, render.ErrTemplateData), errors.Is(err, render.ErrRenderTimeout):
		h.logger.Error("bill pdf render failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, httpx.CodeInternal, "document rendering failed", "")
	default:
		h.logger.Error("bill request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, httpx.CodeInternal, "internal error", "")
	}
}

func parseFloatParam(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
