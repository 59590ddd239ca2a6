// Package billing implements the bill lifecycle for the scrap-trading
// ledger: GST-split tax computation, sequential bill numbering, persistence
// and PDF document generation.
package billing

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/scrapledger/scrapledger/internal/billing/render"
	"github.com/scrapledger/scrapledger/internal/billing/tax"
)

// BillType discriminates the two document kinds the company issues.
type BillType string

const (
	BillTypePurchaseVoucher BillType = "PURCHASE_VOUCHER"
	BillTypeTaxInvoice      BillType = "TAX_INVOICE"
)

// ParseBillType validates a raw bill type string.
func ParseBillType(s string) (BillType, bool) {
	switch BillType(s) {
	case BillTypePurchaseVoucher, BillTypeTaxInvoice:
		return BillType(s), true
	}
	return "", false
}

// Prefix returns the bill number prefix for the type.
func (t BillType) Prefix() string {
	if t == BillTypePurchaseVoucher {
		return "PV"
	}
	return "TAX"
}

// BillStatus enumerates bill lifecycle states.
type BillStatus string

const (
	StatusDraft BillStatus = "DRAFT"
	StatusSent  BillStatus = "SENT"
	StatusPaid  BillStatus = "PAID"
)

// ParseBillStatus validates a raw status string.
func ParseBillStatus(s string) (BillStatus, bool) {
	switch BillStatus(s) {
	case StatusDraft, StatusSent, StatusPaid:
		return BillStatus(s), true
	}
	return "", false
}

func (s BillStatus) rank() int {
	switch s {
	case StatusDraft:
		return 0
	case StatusSent:
		return 1
	case StatusPaid:
		return 2
	}
	return -1
}

// CanTransitionTo reports whether moving to next is allowed. Transitions
// are monotonic DRAFT -> SENT -> PAID; setting the current status again is
// a no-op and permitted.
func (s BillStatus) CanTransitionTo(next BillStatus) bool {
	return next.rank() >= s.rank() && next.rank() >= 0 && s.rank() >= 0
}

// Bill is the finalized document record. Monetary and numbering fields are
// fixed at creation; only Status, Terms and Notes may change afterwards.
type Bill struct {
	ID               uuid.UUID  `json:"id"`
	BillType         BillType   `json:"billType"`
	BillNumber       string     `json:"billNumber"`
	BillDate         time.Time  `json:"billDate"`
	PartyName        string     `json:"partyName"`
	PartyAddress     string     `json:"partyAddress,omitempty"`
	PartyGSTIN       string     `json:"partyGstin,omitempty"`
	PartyState       string     `json:"partyState,omitempty"`
	PartyStateCode   string     `json:"partyStateCode,omitempty"`
	Items            []tax.Item `json:"items,omitempty"`
	TotalBeforeTax   float64    `json:"totalBeforeTax"`
	SGST             *float64   `json:"sgst"`
	CGST             *float64   `json:"cgst"`
	IGST             *float64   `json:"igst"`
	TotalAmount      float64    `json:"totalAmount"`
	ReverseCharge    bool       `json:"reverseCharge"`
	AmountInWords    string     `json:"amountInWords"`
	Status           BillStatus `json:"status"`
	TransactionID    string     `json:"transactionId,omitempty"`
	DigitalSignature string     `json:"digitalSignature"`
	Terms            string     `json:"terms,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Reconciles reports whether totalBeforeTax plus the tax amounts matches
// totalAmount within a paisa, and that the tax fields are mutually
// exclusive.
func (b *Bill) Reconciles() bool {
	hasGSTPair := b.SGST != nil || b.CGST != nil
	if hasGSTPair && b.IGST != nil {
		return false
	}
	split := tax.Split{SGST: b.SGST, CGST: b.CGST, IGST: b.IGST}
	return math.Abs(b.TotalBeforeTax+split.TaxAmount()-b.TotalAmount) <= 0.01
}

// RenderDocument maps the bill onto the renderer's document shape.
func (b *Bill) RenderDocument(now time.Time) render.Document {
	lines := make([]render.Line, 0, len(b.Items))
	for _, it := range b.Items {
		amount, err := tax.LineAmount(it.Quantity, it.Rate)
		if err != nil {
			amount = 0
		}
		lines = append(lines, render.Line{
			Description: it.Description,
			HSNCode:     it.HSNCode,
			Quantity:    it.Quantity,
			Rate:        it.Rate,
			Amount:      amount,
		})
	}
	return render.Document{
		BillType:       string(b.BillType),
		BillNumber:     b.BillNumber,
		BillDate:       b.BillDate,
		PartyName:      b.PartyName,
		PartyAddress:   b.PartyAddress,
		PartyGSTIN:     b.PartyGSTIN,
		PartyState:     b.PartyState,
		PartyStateCode: b.PartyStateCode,
		Lines:          lines,
		TotalBeforeTax: b.TotalBeforeTax,
		SGST:           b.SGST,
		CGST:           b.CGST,
		IGST:           b.IGST,
		TotalAmount:    b.TotalAmount,
		AmountInWords:  b.AmountInWords,
		ReverseCharge:  b.ReverseCharge,
		Terms:          b.Terms,
		GeneratedAt:    now,
	}
}
