package tax

import "math"

// HSNEntry is one row of the HSN master list: a code and a permitted GST
// rate for goods under that code.
type HSNEntry struct {
	Code string
	Rate float64
}

// HSNLookup answers whether an HSN code exists and whether a GST rate is
// permitted for it. It is immutable after construction and safe for
// concurrent use.
type HSNLookup struct {
	byCode map[string][]float64
}

// DefaultHSNEntries covers the chapters a scrap trader actually deals in.
var DefaultHSNEntries = []HSNEntry{
	{Code: "3915", Rate: 18}, // plastic waste and scrap
	{Code: "4004", Rate: 18}, // rubber waste and scrap
	{Code: "4707", Rate: 18}, // recovered paper
	{Code: "7001", Rate: 18}, // glass cullet
	{Code: "7204", Rate: 18}, // ferrous waste and scrap
	{Code: "7404", Rate: 18}, // copper waste and scrap
	{Code: "7503", Rate: 18}, // nickel waste and scrap
	{Code: "7602", Rate: 18}, // aluminium waste and scrap
	{Code: "7802", Rate: 18}, // lead waste and scrap
	{Code: "7902", Rate: 18}, // zinc waste and scrap
	{Code: "8548", Rate: 18}, // electrical scrap, spent batteries
}

// NewHSNLookup builds a lookup from master list entries.
func NewHSNLookup(entries []HSNEntry) *HSNLookup {
	m := make(map[string][]float64, len(entries))
	for _, e := range entries {
		m[e.Code] = append(m[e.Code], e.Rate)
	}
	return &HSNLookup{byCode: m}
}

// Rates returns the permitted rates for a code. Exact match is tried first,
// then 6- and 4-digit prefixes, mirroring the hierarchical HSN structure.
func (h *HSNLookup) Rates(code string) []float64 {
	if h == nil || len(h.byCode) == 0 || code == "" {
		return nil
	}
	if rates, ok := h.byCode[code]; ok {
		return rates
	}
	for _, prefixLen := range []int{6, 4} {
		if len(code) > prefixLen {
			if rates, ok := h.byCode[code[:prefixLen]]; ok {
				return rates
			}
		}
	}
	return nil
}

// Exists reports whether the code or one of its prefixes is in the master
// list.
func (h *HSNLookup) Exists(code string) bool {
	return len(h.Rates(code)) > 0
}

// RateMatches reports whether rate is permitted for the code.
func (h *HSNLookup) RateMatches(code string, rate float64) bool {
	for _, r := range h.Rates(code) {
		if math.Abs(r-rate) < 0.0001 {
			return true
		}
	}
	return false
}
