// Package usage accumulates token counts reported by model providers.
package usage

import (
	"fmt"
	"sync"
)

// TokenCount holds the input and output tokens of one model call.
type TokenCount struct {
	InputTokens  int
	OutputTokens int
}

// Total returns input plus output tokens.
func (tc TokenCount) Total() int {
	return tc.InputTokens + tc.OutputTokens
}

func (tc TokenCount) String() string {
	return fmt.Sprintf("%d in / %d out", tc.InputTokens, tc.OutputTokens)
}

// Tracker accumulates token usage across calls. It is safe for concurrent
// use; the zero value is ready.
type Tracker struct {
	mu    sync.Mutex
	calls int
	total TokenCount
	last  TokenCount
}

// Add records one call.
func (t *Tracker) Add(tc TokenCount) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls++
	t.last = tc
	t.total.InputTokens += tc.InputTokens
	t.total.OutputTokens += tc.OutputTokens
}

// Last returns the most recent entry, or false when nothing was recorded.
func (t *Tracker) Last() (TokenCount, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.last, t.calls > 0
}

// Total returns the sum over all recorded calls.
func (t *Tracker) Total() TokenCount {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.total
}

// Count returns the number of recorded calls.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.calls
}

// Reset clears the tracker.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls = 0
	t.total = TokenCount{}
	t.last = TokenCount{}
}
