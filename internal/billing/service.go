package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/scrapledger/scrapledger/internal/billing/number"
	"github.com/scrapledger/scrapledger/internal/billing/render"
	"github.com/scrapledger/scrapledger/internal/billing/tax"
	"github.com/scrapledger/scrapledger/internal/billing/words"
)

// Sentinel errors surfaced by the service layer.
var (
	ErrNotFound          = errors.New("billing: bill not found")
	ErrImmutableField    = errors.New("billing: immutable field")
	ErrInvalidTransition = errors.New("billing: invalid status transition")
)

// ValidationError carries field-level detail for a rejected request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("billing: validation failed on %s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// RepositoryPort defines data access for bills.
type RepositoryPort interface {
	CreateBill(ctx context.Context, bill *Bill) error
	GetBill(ctx context.Context, id uuid.UUID) (*Bill, error)
	ListBills(ctx context.Context, filter ListFilter) ([]Bill, int, error)
	UpdateBill(ctx context.Context, id uuid.UUID, patch UpdatePatch) (*Bill, error)
}

// ListFilter narrows and pages a bill listing.
type ListFilter struct {
	Search    string
	Status    BillStatus
	MinAmount *float64
	MaxAmount *float64
	Page      int
	Limit     int
}

// UpdatePatch carries the only fields mutable after creation.
type UpdatePatch struct {
	Status *BillStatus
	Terms  *string
	Notes  *string
}

// Prerenderer enqueues a background PDF warm-up after creation. Optional;
// failures never affect the bill record.
type Prerenderer interface {
	EnqueuePrerender(ctx context.Context, billID uuid.UUID) error
}

// Service orchestrates bill generation, lookup and rendering.
type Service struct {
	repo      RepositoryPort
	alloc     number.Allocator
	renderer  *render.Renderer
	hsn       *tax.HSNLookup
	prerender Prerenderer
	logger    *slog.Logger
	now       func() time.Time
}

// ServiceConfig groups optional service dependencies.
type ServiceConfig struct {
	HSN       *tax.HSNLookup
	Prerender Prerenderer
	Logger    *slog.Logger
	Now       func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, alloc number.Allocator, renderer *render.Renderer, cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		repo:      repo,
		alloc:     alloc,
		renderer:  renderer,
		hsn:       cfg.HSN,
		prerender: cfg.Prerender,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
}

// GenerateInput is the validated request to create a bill. Callers supply
// either line items (amounts are computed) or precomputed amounts (which
// must reconcile).
type GenerateInput struct {
	BillType       string
	TransactionID  string
	PartyName      string
	PartyAddress   string
	PartyGSTIN     string
	PartyState     string
	PartyStateCode string
	Items          []tax.Item
	TotalBeforeTax *float64
	SGST           *float64
	CGST           *float64
	IGST           *float64
	TotalAmount    *float64
	ReverseCharge  bool
	BillDate       *time.Time
	Terms          string
}

// Generate validates the input fully, then allocates a bill number and
// persists the record. Validation happens before allocation so a rejected
// request never consumes a sequence value.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*Bill, error) {
	billType, ok := ParseBillType(in.BillType)
	if !ok {
		return nil, invalid("billType", "must be PURCHASE_VOUCHER or TAX_INVOICE")
	}
	if in.PartyName == "" {
		return nil, invalid("partyName", "required")
	}

	interState := in.PartyStateCode != "" && in.PartyStateCode != render.CompanyStateCode

	totalBeforeTax, split, totalAmount, err := s.resolveAmounts(in, interState)
	if err != nil {
		return nil, err
	}

	amountWords, err := words.NumberToWords(totalAmount)
	if err != nil {
		return nil, invalid("totalAmount", "not representable in words")
	}

	billDate := s.now()
	if in.BillDate != nil {
		billDate = *in.BillDate
	}

	// All validation passed; minting the number is the first side effect.
	bill := &Bill{
		ID:             uuid.New(),
		BillType:       billType,
		BillDate:       billDate,
		PartyName:      in.PartyName,
		PartyAddress:   in.PartyAddress,
		PartyGSTIN:     in.PartyGSTIN,
		PartyState:     in.PartyState,
		PartyStateCode: in.PartyStateCode,
		Items:          in.Items,
		TotalBeforeTax: totalBeforeTax,
		SGST:           split.SGST,
		CGST:           split.CGST,
		IGST:           split.IGST,
		TotalAmount:    totalAmount,
		ReverseCharge:  billType == BillTypePurchaseVoucher && in.ReverseCharge,
		AmountInWords:  amountWords,
		Status:         StatusDraft,
		TransactionID:  in.TransactionID,
		CreatedAt:      s.now(),
		UpdatedAt:      s.now(),
		Terms:          in.Terms,
	}

	// Retry once on a duplicate number: the allocator itself never repeats,
	// so a conflict means another instance raced us on the same sequence
	// row before the constraint existed, or the sequence table was reset.
	for attempt := 0; attempt < 2; attempt++ {
		bill.BillNumber, err = s.alloc.Next(ctx, billType.Prefix(), billDate)
		if err != nil {
			return nil, err
		}
		bill.DigitalSignature = Signature(bill.BillNumber, bill.PartyName, bill.TotalAmount)

		err = s.repo.CreateBill(ctx, bill)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrDuplicateNumber) || attempt == 1 {
			return nil, err
		}
		s.logger.Warn("bill number conflict, reallocating",
			slog.String("bill_number", bill.BillNumber))
	}

	if s.prerender != nil {
		if err := s.prerender.EnqueuePrerender(ctx, bill.ID); err != nil {
			s.logger.Warn("enqueue pdf prerender",
				slog.String("bill_number", bill.BillNumber), slog.Any("error", err))
		}
	}

	return bill, nil
}

// resolveAmounts derives totalBeforeTax, the tax split and the grand total
// either from line items or from the caller's precomputed amounts.
func (s *Service) resolveAmounts(in GenerateInput, interState bool) (float64, tax.Split, float64, error) {
	if len(in.Items) > 0 {
		if err := s.validateItems(in.Items); err != nil {
			return 0, tax.Split{}, 0, err
		}
		totalBeforeTax, err := tax.Totals(in.Items)
		if err != nil {
			return 0, tax.Split{}, 0, invalid("items", err.Error())
		}
		split, err := tax.ComputeSplit(totalBeforeTax, interState, tax.DefaultRate)
		if err != nil {
			return 0, tax.Split{}, 0, invalid("items", err.Error())
		}
		totalAmount := tax.GrandTotal(totalBeforeTax, split)
		if in.TotalAmount != nil && math.Abs(*in.TotalAmount-totalAmount) > 0.01 {
			return 0, tax.Split{}, 0, invalid("totalAmount", "does not match computed total")
		}
		return totalBeforeTax, split, totalAmount, nil
	}

	if in.TotalBeforeTax == nil || *in.TotalBeforeTax <= 0 {
		return 0, tax.Split{}, 0, invalid("totalBeforeTax", "required when no items are given")
	}
	if in.TotalAmount == nil || *in.TotalAmount <= 0 {
		return 0, tax.Split{}, 0, invalid("totalAmount", "required")
	}

	hasGSTPair := in.SGST != nil || in.CGST != nil
	if hasGSTPair && in.IGST != nil {
		return 0, tax.Split{}, 0, invalid("igst", "mutually exclusive with sgst/cgst")
	}

	var split tax.Split
	switch {
	case in.IGST != nil:
		split = tax.Split{IGST: in.IGST}
	case hasGSTPair:
		if in.SGST == nil || in.CGST == nil {
			return 0, tax.Split{}, 0, invalid("sgst", "sgst and cgst must be supplied together")
		}
		split = tax.Split{SGST: in.SGST, CGST: in.CGST}
	default:
		var err error
		split, err = tax.ComputeSplit(*in.TotalBeforeTax, interState, tax.DefaultRate)
		if err != nil {
			return 0, tax.Split{}, 0, invalid("totalBeforeTax", err.Error())
		}
	}

	if math.Abs(*in.TotalBeforeTax+split.TaxAmount()-*in.TotalAmount) > 0.01 {
		return 0, tax.Split{}, 0, invalid("totalAmount", "GST arithmetic mismatch")
	}
	return *in.TotalBeforeTax, split, *in.TotalAmount, nil
}

func (s *Service) validateItems(items []tax.Item) error {
	for i, it := range items {
		if it.Quantity <= 0 || it.Rate <= 0 {
			return invalid(fmt.Sprintf("items[%d]", i), "quantity and rate must be positive")
		}
		if it.HSNCode != "" && s.hsn != nil && !s.hsn.Exists(it.HSNCode) {
			return invalid(fmt.Sprintf("items[%d].hsnCode", i), "unknown HSN code")
		}
	}
	return nil
}

// Get returns a bill by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return s.repo.GetBill(ctx, id)
}

// List returns a page of bills and the total match count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Bill, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return s.repo.ListBills(ctx, filter)
}

// Update mutates the bill's status and annotation fields. Status moves only
// forward through DRAFT -> SENT -> PAID.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch UpdatePatch) (*Bill, error) {
	bill, err := s.repo.GetBill(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Status != nil {
		next, ok := ParseBillStatus(string(*patch.Status))
		if !ok {
			return nil, invalid("status", "must be DRAFT, SENT or PAID")
		}
		if !bill.Status.CanTransitionTo(next) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, bill.Status, next)
		}
	}
	return s.repo.UpdateBill(ctx, id, patch)
}

// RenderPDF renders the bill's document from stored fields. It is
// idempotent and never mutates the record; a failed render can simply be
// retried.
func (s *Service) RenderPDF(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	bill, err := s.repo.GetBill(ctx, id)
	if err != nil {
		return nil, "", err
	}
	pdf, err := s.renderer.Render(ctx, bill.RenderDocument(s.now()))
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("%s_%s.pdf", bill.BillType, bill.BillNumber)
	return pdf, filename, nil
}
