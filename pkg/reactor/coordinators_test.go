package reactor

import (
	"context"
	"errors"
	"testing"

	"github.com/germanamz/agentry/pkg/chats/chat"
	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/germanamz/agentry/pkg/chats/role"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCompleter answers with responses in order and fails once they run out.
type mockCompleter struct {
	responses []message.Message
	index     int
}

func (m *mockCompleter) Complete(_ context.Context, _ *chat.Chat, _ []toolbox.Tool) (message.Message, error) {
	if m.index >= len(m.responses) {
		return message.Message{}, errors.New("no more responses")
	}

	resp := m.responses[m.index]
	m.index++
	return resp, nil
}

type errCompleter struct {
	err error
}

func (e *errCompleter) Complete(_ context.Context, _ *chat.Chat, _ []toolbox.Tool) (message.Message, error) {
	return message.Message{}, e.err
}

func workers(names ...string) []TeamMember {
	out := make([]TeamMember, len(names))
	for i, n := range names {
		out[i] = member(newMockAgent(n), "worker")
	}
	return out
}

// drive calls Next n times and returns the single index picked each time.
// A Done selection is recorded as -1.
func drive(t *testing.T, c Coordinator, shared *chat.Chat, members []TeamMember, n int) []int {
	t.Helper()

	var picks []int
	for range n {
		sel, err := c.Next(context.Background(), shared, members)
		require.NoError(t, err)
		if sel.Done {
			picks = append(picks, -1)
			continue
		}
		require.Len(t, sel.Members, 1)
		picks = append(picks, sel.Members[0])
	}
	return picks
}

func TestSequence(t *testing.T) {
	picks := drive(t, NewSequence(), chat.New(), workers("A", "B", "C"), 4)
	assert.Equal(t, []int{0, 1, 2, -1}, picks)
}

func TestSequenceRestartsAfterDone(t *testing.T) {
	c := NewSequence()
	members := workers("A", "B")

	assert.Equal(t, []int{0, 1, -1}, drive(t, c, chat.New(), members, 3))
	assert.Equal(t, []int{0, 1, -1}, drive(t, c, chat.New(), members, 3))
}

func TestLoop(t *testing.T) {
	tests := []struct {
		name      string
		maxRounds int
		calls     int
		want      []int
	}{
		{name: "unlimited", maxRounds: 0, calls: 7, want: []int{0, 1, 0, 1, 0, 1, 0}},
		{name: "one round", maxRounds: 1, calls: 2, want: []int{0, 1}},
		{name: "two rounds", maxRounds: 2, calls: 4, want: []int{0, 1, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := drive(t, NewLoop(tt.maxRounds), chat.New(), workers("A", "B"), tt.calls)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoopMaxRounds(t *testing.T) {
	c := NewLoop(1)
	members := workers("A", "B")
	drive(t, c, chat.New(), members, 2)

	_, err := c.Next(context.Background(), chat.New(), members)
	require.ErrorIs(t, err, ErrMaxRounds)

	// The counter starts over for the next run.
	assert.Equal(t, []int{0}, drive(t, c, chat.New(), members, 1))
}

func TestLoopNoMembers(t *testing.T) {
	sel, err := NewLoop(3).Next(context.Background(), chat.New(), nil)
	require.NoError(t, err)
	assert.True(t, sel.Done)
}

func TestRoundRobinUntil(t *testing.T) {
	shared := chat.New()
	approved := func(c *chat.Chat) bool {
		last, ok := c.Last()
		return ok && last.TextContent() == "APPROVED"
	}

	c := NewRoundRobinUntil(0, approved)
	members := workers("writer", "reviewer")

	assert.Equal(t, []int{0, 1, 0}, drive(t, c, shared, members, 3))

	shared.Append(message.NewText("reviewer", role.User, "APPROVED"))
	assert.Equal(t, []int{-1}, drive(t, c, shared, members, 1))
}

func TestRoundRobinUntilDoneBeforeFirstTurn(t *testing.T) {
	c := NewRoundRobinUntil(0, func(*chat.Chat) bool { return true })
	assert.Equal(t, []int{-1}, drive(t, c, chat.New(), workers("A"), 1))
}

func TestRoundRobinUntilMaxRounds(t *testing.T) {
	c := NewRoundRobinUntil(2, func(*chat.Chat) bool { return false })
	members := workers("A", "B")
	drive(t, c, chat.New(), members, 4)

	_, err := c.Next(context.Background(), chat.New(), members)
	assert.ErrorIs(t, err, ErrMaxRounds)
}

func TestScriptedCoordinatorDrivesReactor(t *testing.T) {
	a := newMockAgent("writer", "draft 1", "draft 2")
	b := newMockAgent("reviewer", "needs work", "APPROVED")

	r, err := New("review", nil, []TeamMember{member(a, "writer"), member(b, "reviewer")}, Options{
		Coordinator: NewRoundRobinUntil(3, func(c *chat.Chat) bool {
			last, ok := c.Last()
			return ok && last.TextContent() == "APPROVED"
		}),
	})
	require.NoError(t, err)

	out, err := r.Invoke(context.Background(), "write a haiku")
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", out)
	assert.Equal(t, 5, r.Chat().Len())
}
