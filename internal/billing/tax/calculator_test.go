package tax

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineAmount(t *testing.T) {
	amt, err := LineAmount(500, 85)
	require.NoError(t, err)
	require.Equal(t, 42500.0, amt)

	amt, err = LineAmount(2.5, 33.333)
	require.NoError(t, err)
	require.Equal(t, 83.33, amt)
}

func TestLineAmountRejectsNonPositive(t *testing.T) {
	_, err := LineAmount(0, 85)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = LineAmount(500, -1)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = LineAmount(math.NaN(), 85)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestTotals(t *testing.T) {
	total, err := Totals([]Item{
		{Quantity: 500, Rate: 85},
		{Quantity: 10, Rate: 12.5},
	})
	require.NoError(t, err)
	require.Equal(t, 42625.0, total)
}

func TestTotalsRejectsEmpty(t *testing.T) {
	_, err := Totals(nil)
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestComputeSplitIntraState(t *testing.T) {
	split, err := ComputeSplit(42500, false, DefaultRate)
	require.NoError(t, err)
	require.Nil(t, split.IGST)
	require.NotNil(t, split.SGST)
	require.NotNil(t, split.CGST)
	require.Equal(t, 3825.0, *split.SGST)
	require.Equal(t, 3825.0, *split.CGST)

	require.InDelta(t, 42500*DefaultRate, *split.SGST+*split.CGST, 0.01)
}

func TestComputeSplitInterState(t *testing.T) {
	split, err := ComputeSplit(42500, true, DefaultRate)
	require.NoError(t, err)
	require.Nil(t, split.SGST)
	require.Nil(t, split.CGST)
	require.NotNil(t, split.IGST)
	require.Equal(t, 7650.0, *split.IGST)
}

func TestComputeSplitRejectsBadInput(t *testing.T) {
	_, err := ComputeSplit(-1, false, DefaultRate)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ComputeSplit(100, false, 1.5)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestGrandTotal(t *testing.T) {
	split, err := ComputeSplit(42500, false, DefaultRate)
	require.NoError(t, err)
	require.Equal(t, 50150.0, GrandTotal(42500, split))

	igst := 7650.0
	require.Equal(t, 50150.0, GrandTotal(42500, Split{IGST: &igst}))
}

func TestSplitHalvesReconcile(t *testing.T) {
	// Odd paise amounts force rounding on each half; the halves must still
	// sum to the whole-rate tax within a paisa.
	for _, base := range []float64{0.01, 0.07, 99.99, 1234.53, 42500.55} {
		split, err := ComputeSplit(base, false, DefaultRate)
		require.NoError(t, err)
		require.InDelta(t, base*DefaultRate, *split.SGST+*split.CGST, 0.01)
	}
}

func TestHSNLookup(t *testing.T) {
	lookup := NewHSNLookup([]HSNEntry{
		{Code: "7204", Rate: 0.18},
		{Code: "720410", Rate: 0.18},
		{Code: "4004", Rate: 0.05},
		{Code: "4004", Rate: 0.18},
	})

	require.True(t, lookup.Exists("7204"))
	require.True(t, lookup.Exists("72041000"), "8-digit code should fall back to its prefix")
	require.False(t, lookup.Exists("9999"))

	require.True(t, lookup.RateMatches("7204", 0.18))
	require.False(t, lookup.RateMatches("7204", 0.05))
	require.True(t, lookup.RateMatches("4004", 0.05))
	require.True(t, lookup.RateMatches("4004", 0.18))
}

func TestHSNLookupNilSafe(t *testing.T) {
	var lookup *HSNLookup
	require.False(t, lookup.Exists("7204"))
	require.Nil(t, lookup.Rates("7204"))
}
