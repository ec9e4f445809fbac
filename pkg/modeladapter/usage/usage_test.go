package usage_test

import (
	"sync"
	"testing"

	"github.com/germanamz/agentry/pkg/modeladapter/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCount(t *testing.T) {
	tc := usage.TokenCount{InputTokens: 1200, OutputTokens: 340}

	assert.Equal(t, 1540, tc.Total())
	assert.Equal(t, "1200 in / 340 out", tc.String())
}

func TestTracker(t *testing.T) {
	var tr usage.Tracker

	_, ok := tr.Last()
	require.False(t, ok, "zero tracker has no calls")

	calls := []usage.TokenCount{
		{InputTokens: 800, OutputTokens: 120},
		{InputTokens: 950, OutputTokens: 60},
		{InputTokens: 1100, OutputTokens: 300},
	}
	for _, c := range calls {
		tr.Add(c)
	}

	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, calls[2], last)
	assert.Equal(t, usage.TokenCount{InputTokens: 2850, OutputTokens: 480}, tr.Total())
	assert.Equal(t, 3, tr.Count())

	tr.Reset()
	assert.Zero(t, tr.Count())
	assert.Zero(t, tr.Total())
	_, ok = tr.Last()
	assert.False(t, ok)
}

func TestTracker_ConcurrentAdds(t *testing.T) {
	var (
		tr usage.Tracker
		wg sync.WaitGroup
	)

	for range 40 {
		wg.Go(func() { tr.Add(usage.TokenCount{InputTokens: 3, OutputTokens: 2}) })
	}
	wg.Wait()

	assert.Equal(t, 40, tr.Count())
	assert.Equal(t, 200, tr.Total().Total())
}
