package number

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memoryAllocator mirrors the PGAllocator contract with an in-process
// counter, for exercising the format and exhaustion rules without a
// database.
type memoryAllocator struct {
	mu   sync.Mutex
	last map[string]int64
}

func newMemoryAllocator() *memoryAllocator {
	return &memoryAllocator{last: make(map[string]int64)}
}

func (a *memoryAllocator) Next(ctx context.Context, prefix string, issueDate time.Time) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := prefix + issueDate.Format("20060102")
	a.last[key]++
	seq := a.last[key]
	if seq > MaxPerDay {
		return "", ErrExhausted
	}
	return Format(prefix, issueDate, seq), nil
}

var billNumberPattern = regexp.MustCompile(`^(PV|TAX)-\d{8}-\d{4}$`)

func TestFormat(t *testing.T) {
	day := time.Date(2026, 8, 26, 10, 30, 0, 0, time.UTC)
	require.Equal(t, "TAX-20260826-0001", Format("TAX", day, 1))
	require.Equal(t, "PV-20260826-0042", Format("PV", day, 42))
	require.Equal(t, "TAX-20260826-9999", Format("TAX", day, 9999))
	require.Regexp(t, billNumberPattern, Format("TAX", day, 7))
}

func TestNextSequencesPerPrefixAndDay(t *testing.T) {
	ctx := context.Background()
	alloc := newMemoryAllocator()
	day := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	first, err := alloc.Next(ctx, "TAX", day)
	require.NoError(t, err)
	require.Equal(t, "TAX-20260826-0001", first)

	second, err := alloc.Next(ctx, "TAX", day)
	require.NoError(t, err)
	require.Equal(t, "TAX-20260826-0002", second)

	pv, err := alloc.Next(ctx, "PV", day)
	require.NoError(t, err)
	require.Equal(t, "PV-20260826-0001", pv, "prefixes sequence independently")

	nextDay, err := alloc.Next(ctx, "TAX", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Equal(t, "TAX-20260827-0001", nextDay, "sequence resets per day")
}

func TestNextExhaustsAtCap(t *testing.T) {
	ctx := context.Background()
	alloc := newMemoryAllocator()
	day := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	seen := make(map[string]struct{}, MaxPerDay)
	for i := 0; i < MaxPerDay; i++ {
		n, err := alloc.Next(ctx, "TAX", day)
		require.NoError(t, err)
		_, dup := seen[n]
		require.False(t, dup, "duplicate number %s", n)
		seen[n] = struct{}{}
	}

	_, err := alloc.Next(ctx, "TAX", day)
	require.ErrorIs(t, err, ErrExhausted)
}

func TestNextConcurrentUniqueness(t *testing.T) {
	ctx := context.Background()
	alloc := newMemoryAllocator()
	day := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	const workers = 50
	results := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := alloc.Next(ctx, "PV", day)
			require.NoError(t, err)
			results <- n
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]struct{}, workers)
	for n := range results {
		_, dup := seen[n]
		require.False(t, dup, "duplicate number %s", n)
		seen[n] = struct{}{}
	}
	require.Len(t, seen, workers)
}
