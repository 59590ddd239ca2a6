package words

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumberToWordsExamples(t *testing.T) {
	cases := []struct {
		amount float64
		want   string
	}{
		{0, "Zero"},
		{1, "One"},
		{13, "Thirteen"},
		{20, "Twenty"},
		{29, "Twenty Nine"},
		{100, "One Hundred"},
		{105, "One Hundred Five"},
		{999, "Nine Hundred Ninety Nine"},
		{1000, "One Thousand"},
		{29500, "Twenty Nine Thousand Five Hundred"},
		{42500, "Forty Two Thousand Five Hundred"},
		{50150, "Fifty Thousand One Hundred Fifty"},
		{100000, "One Lakh"},
		{2350000, "Twenty Three Lakh Fifty Thousand"},
		{10000000, "One Crore"},
		{123456789, "Twelve Crore Thirty Four Lakh Fifty Six Thousand Seven Hundred Eighty Nine"},
		{1000000000, "One Hundred Crore"},
	}
	for _, tc := range cases {
		got, err := NumberToWords(tc.amount)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "amount %v", tc.amount)
	}
}

func TestNumberToWordsTruncatesPaise(t *testing.T) {
	got, err := NumberToWords(29500.99)
	require.NoError(t, err)
	require.Equal(t, "Twenty Nine Thousand Five Hundred", got)
}

func TestNumberToWordsRejectsInvalid(t *testing.T) {
	_, err := NumberToWords(-1)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = NumberToWords(math.NaN())
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = NumberToWords(math.Inf(1))
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestNumberToWordsVocabularyOnly(t *testing.T) {
	// Sweep a spread of values up to eight digits; output must contain no
	// digit characters and only known words.
	for n := int64(0); n <= 99999999; n += 73019 {
		got, err := NumberToWords(float64(n))
		require.NoError(t, err)
		require.NotContains(t, got, "  ")
		require.False(t, strings.ContainsAny(got, "0123456789"), "digits in %q", got)
		require.True(t, InVocabulary(got), "unknown token in %q", got)
	}
}
