package render

import (
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	xnumber "golang.org/x/text/number"
)

// Company branding printed on every document.
const (
	CompanyName      = "Shivam Scrap Traders"
	CompanyAddress   = "Plot 14, MIDC Industrial Area, Nashik, Maharashtra 422010"
	CompanyGSTIN     = "27AABCS1429B1ZD"
	CompanyState     = "Maharashtra"
	CompanyStateCode = "27"
)

// ErrTemplateData indicates a required document field is absent; detected
// before the rendering engine is invoked.
var ErrTemplateData = errors.New("render: required field missing")

// Line is one priced row of the item table.
type Line struct {
	Description string
	HSNCode     string
	Quantity    float64
	Rate        float64
	Amount      float64
}

// Document is the fully-resolved input to a render. It carries everything
// the templates substitute; nothing is looked up during rendering.
type Document struct {
	BillType       string
	BillNumber     string
	BillDate       time.Time
	PartyName      string
	PartyAddress   string
	PartyGSTIN     string
	PartyState     string
	PartyStateCode string
	Lines          []Line
	TotalBeforeTax float64
	SGST           *float64
	CGST           *float64
	IGST           *float64
	TotalAmount    float64
	AmountInWords  string
	ReverseCharge  bool
	Terms          string
	GeneratedAt    time.Time
}

// Title returns the document heading for the bill type.
func (d Document) Title() string {
	if d.BillType == "PURCHASE_VOUCHER" {
		return "Purchase Voucher"
	}
	return "Tax Invoice"
}

// Fingerprint canonically encodes every content field except GeneratedAt.
// Two documents with equal fingerprints render materially identical PDFs,
// differing only in the timestamp footer.
func (d Document) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%s|%s|%s|%s|%s|",
		d.BillType, d.BillNumber, d.BillDate.Format("20060102"),
		d.PartyName, d.PartyAddress, d.PartyGSTIN, d.PartyState, d.PartyStateCode)
	for _, l := range d.Lines {
		fmt.Fprintf(&b, "%s~%s~%g~%g~%g;", l.Description, l.HSNCode, l.Quantity, l.Rate, l.Amount)
	}
	fmt.Fprintf(&b, "|%.2f|%v|%v|%v|%.2f|%s|%t|%s",
		d.TotalBeforeTax, floatOrNil(d.SGST), floatOrNil(d.CGST), floatOrNil(d.IGST),
		d.TotalAmount, d.AmountInWords, d.ReverseCharge, d.Terms)
	return b.String()
}

func floatOrNil(f *float64) any {
	if f == nil {
		return "nil"
	}
	return *f
}

// inr formats an amount with Indian digit grouping and two decimals.
var inrPrinter = message.NewPrinter(language.MustParse("en-IN"))

func inr(v float64) string {
	return inrPrinter.Sprint(xnumber.Decimal(v,
		xnumber.MinFractionDigits(2), xnumber.MaxFractionDigits(2)))
}

var billTemplate = template.Must(template.New("bill").Funcs(template.FuncMap{
	"inr": inr,
	"date": func(t time.Time) string {
		return t.Format("02 Jan 2006")
	},
	"datetime": func(t time.Time) string {
		return t.Format("02 Jan 2006 15:04")
	},
	"deref": func(f *float64) float64 {
		if f == nil {
			return 0
		}
		return *f
	},
	"add1": func(i int) int { return i + 1 },
}).Parse(billHTML))

// templateData joins the document with the fixed branding constants.
type templateData struct {
	Document
	CompanyName      string
	CompanyAddress   string
	CompanyGSTIN     string
	CompanyState     string
	CompanyStateCode string
}

// BuildHTML validates the document and substitutes it into the bill
// template. It fails before any engine call when a required field is
// missing.
func BuildHTML(doc Document) (string, error) {
	if doc.BillType != "TAX_INVOICE" && doc.BillType != "PURCHASE_VOUCHER" {
		return "", fmt.Errorf("%w: billType", ErrTemplateData)
	}
	if doc.BillNumber == "" {
		return "", fmt.Errorf("%w: billNumber", ErrTemplateData)
	}
	if doc.PartyName == "" {
		return "", fmt.Errorf("%w: partyName", ErrTemplateData)
	}
	if doc.AmountInWords == "" {
		return "", fmt.Errorf("%w: amountInWords", ErrTemplateData)
	}
	if doc.TotalAmount <= 0 {
		return "", fmt.Errorf("%w: totalAmount", ErrTemplateData)
	}
	var out strings.Builder
	data := templateData{
		Document:         doc,
		CompanyName:      CompanyName,
		CompanyAddress:   CompanyAddress,
		CompanyGSTIN:     CompanyGSTIN,
		CompanyState:     CompanyState,
		CompanyStateCode: CompanyStateCode,
	}
	if err := billTemplate.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render: execute template: %w", err)
	}
	return out.String(), nil
}

const billHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: "Helvetica Neue", Arial, sans-serif; font-size: 12px; color: #1a1a1a; margin: 32px; }
  .header { border-bottom: 2px solid #1a1a1a; padding-bottom: 12px; }
  .header h1 { margin: 0 0 2px; font-size: 20px; }
  .header .doc-title { float: right; font-size: 16px; font-weight: bold; text-transform: uppercase; }
  .meta, .party { margin-top: 14px; }
  .meta td, .party td { padding: 2px 12px 2px 0; vertical-align: top; }
  table.items { width: 100%; border-collapse: collapse; margin-top: 18px; }
  table.items th, table.items td { border: 1px solid #444; padding: 6px 8px; }
  table.items th { background: #efefef; text-align: left; }
  td.num, th.num { text-align: right; }
  .totals { margin-top: 12px; width: 40%; margin-left: auto; border-collapse: collapse; }
  .totals td { padding: 3px 8px; }
  .totals tr.grand td { border-top: 1px solid #444; font-weight: bold; }
  .words { margin-top: 10px; font-style: italic; }
  .terms { margin-top: 18px; font-size: 11px; color: #333; }
  .footer { margin-top: 28px; font-size: 10px; color: #777; border-top: 1px solid #ccc; padding-top: 6px; }
  .signature { margin-top: 36px; text-align: right; }
</style>
</head>
<body>
<div class="header">
  <span class="doc-title">{{.Title}}</span>
  <h1>{{.CompanyName}}</h1>
  <div>{{.CompanyAddress}}</div>
  <div>GSTIN: {{.CompanyGSTIN}} &middot; State: {{.CompanyState}} ({{.CompanyStateCode}})</div>
</div>

<table class="meta">
  <tr><td><strong>Bill No:</strong> {{.BillNumber}}</td>
      <td><strong>Date:</strong> {{date .BillDate}}</td>
      {{if .ReverseCharge}}<td><strong>Reverse Charge:</strong> Yes</td>{{end}}</tr>
</table>

<table class="party">
  <tr><td><strong>Party:</strong></td><td>{{.PartyName}}</td></tr>
  {{if .PartyAddress}}<tr><td></td><td>{{.PartyAddress}}</td></tr>{{end}}
  {{if .PartyGSTIN}}<tr><td><strong>GSTIN:</strong></td><td>{{.PartyGSTIN}}</td></tr>{{end}}
  {{if .PartyState}}<tr><td><strong>State:</strong></td><td>{{.PartyState}} ({{.PartyStateCode}})</td></tr>{{end}}
</table>

{{if .Lines}}
<table class="items">
  <tr><th>#</th><th>Description</th><th>HSN</th><th class="num">Qty</th><th class="num">Rate</th><th class="num">Amount</th></tr>
  {{range $i, $l := .Lines}}
  <tr>
    <td>{{add1 $i}}</td>
    <td>{{$l.Description}}</td>
    <td>{{$l.HSNCode}}</td>
    <td class="num">{{$l.Quantity}}</td>
    <td class="num">{{inr $l.Rate}}</td>
    <td class="num">{{inr $l.Amount}}</td>
  </tr>
  {{end}}
</table>
{{end}}

<table class="totals">
  <tr><td>Taxable Value</td><td class="num">{{inr .TotalBeforeTax}}</td></tr>
  {{if .IGST}}
  <tr><td>IGST</td><td class="num">{{inr (deref .IGST)}}</td></tr>
  {{else}}
  <tr><td>SGST</td><td class="num">{{inr (deref .SGST)}}</td></tr>
  <tr><td>CGST</td><td class="num">{{inr (deref .CGST)}}</td></tr>
  {{end}}
  <tr class="grand"><td>Grand Total</td><td class="num">&#8377; {{inr .TotalAmount}}</td></tr>
</table>

<div class="words">Amount in words: Rupees {{.AmountInWords}} Only</div>

{{if .Terms}}<div class="terms"><strong>Terms:</strong> {{.Terms}}</div>{{end}}

<div class="signature">For {{.CompanyName}}<br><br><br>Authorised Signatory</div>

<div class="footer">Generated at {{datetime .GeneratedAt}} &middot; This is a computer generated document.</div>
</body>
</html>`
