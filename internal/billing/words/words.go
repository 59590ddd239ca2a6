// Package words converts rupee amounts into their Indian-English wording
// using crore/lakh/thousand grouping.
package words

import (
	"errors"
	"math"
	"strings"
)

// ErrInvalidAmount indicates a negative or non-finite amount.
var ErrInvalidAmount = errors.New("words: invalid amount")

var small = [...]string{
	"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight",
	"Nine", "Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen",
	"Sixteen", "Seventeen", "Eighteen", "Nineteen",
}

var tens = [...]string{
	"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy",
	"Eighty", "Ninety",
}

// NumberToWords renders the integer rupee part of amount in words. Paise are
// truncated. Zero renders as "Zero".
func NumberToWords(amount float64) (string, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return "", ErrInvalidAmount
	}
	n := int64(amount)
	if n == 0 {
		return "Zero", nil
	}
	return convert(n), nil
}

// convert assumes n > 0. The Indian system groups units up to 999, then two
// digits each for thousand, lakh and crore; amounts of a crore and above
// recurse on the crore count.
func convert(n int64) string {
	switch {
	case n < 20:
		return small[n]
	case n < 100:
		return join(tens[n/10], convert0(n%10))
	case n < 1000:
		return join(small[n/100]+" Hundred", convert0(n%100))
	case n < 100000:
		return join(convert(n/1000)+" Thousand", convert0(n%1000))
	case n < 10000000:
		return join(convert(n/100000)+" Lakh", convert0(n%100000))
	default:
		return join(convert(n/10000000)+" Crore", convert0(n%10000000))
	}
}

func convert0(n int64) string {
	if n == 0 {
		return ""
	}
	return convert(n)
}

func join(head, tail string) string {
	if tail == "" {
		return head
	}
	return head + " " + tail
}

// Vocabulary lists every word NumberToWords can emit, for output validation.
func Vocabulary() []string {
	out := make([]string, 0, len(small)+len(tens)+5)
	for _, w := range small[1:] {
		out = append(out, w)
	}
	out = append(out, tens[2:]...)
	out = append(out, "Hundred", "Thousand", "Lakh", "Crore", "Zero")
	return out
}

// InVocabulary reports whether every space-separated token of s is a known
// output word.
func InVocabulary(s string) bool {
	known := make(map[string]struct{})
	for _, w := range Vocabulary() {
		known[w] = struct{}{}
	}
	for _, tok := range strings.Fields(s) {
		if _, ok := known[tok]; !ok {
			return false
		}
	}
	return true
}
