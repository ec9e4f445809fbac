package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/germanamz/agentry/pkg/modeladapter"
)

var (
	// ErrPanicked wraps a panic recovered by Recovery.
	ErrPanicked = errors.New("agent: panicked")
	// ErrOutputRejected wraps the error of a failed OutputGuardrail check.
	ErrOutputRejected = errors.New("agent: output rejected")
)

// Runner produces an agent's final reply.
type Runner interface {
	Run(ctx context.Context) (message.Message, error)
}

// RunnerFunc turns a function into a Runner.
type RunnerFunc func(ctx context.Context) (message.Message, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context) (message.Message, error) {
	return f(ctx)
}

// Middleware decorates a Runner.
type Middleware func(next Runner) Runner

// Chain applies mws around r. The first middleware ends up outermost.
func Chain(r Runner, mws ...Middleware) Runner {
	for i := len(mws) - 1; i >= 0; i-- {
		r = mws[i](r)
	}
	return r
}

// Timeout cancels the run after d. A non-positive d disables it.
func Timeout(d time.Duration) Middleware {
	return func(next Runner) Runner {
		if d <= 0 {
			return next
		}
		return RunnerFunc(func(ctx context.Context) (message.Message, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			return next.Run(ctx)
		})
	}
}

// Recovery turns a panic inside the run into an error wrapping ErrPanicked.
func Recovery() Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context) (msg message.Message, err error) {
			defer func() {
				if r := recover(); r != nil {
					msg, err = message.Message{}, fmt.Errorf("%w: %v", ErrPanicked, r)
				}
			}()

			return next.Run(ctx)
		})
	}
}

// Logger records each run of the named agent: a debug line when it starts
// and one line with the duration when it ends. A nil log uses slog.Default().
func Logger(log *slog.Logger, name string) Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context) (message.Message, error) {
			log.DebugContext(ctx, "agent run started", "agent", name)
			start := time.Now()

			msg, err := next.Run(ctx)

			attrs := []any{"agent", name, "duration", time.Since(start)}
			if err != nil {
				log.ErrorContext(ctx, "agent run failed", append(attrs, "error", err)...)
			} else {
				log.InfoContext(ctx, "agent run finished", append(attrs, "reply_chars", len(msg.TextContent()))...)
			}

			return msg, err
		})
	}
}

// OutputGuardrail passes each successful reply through check. A failed
// check replaces the reply with an error wrapping ErrOutputRejected.
func OutputGuardrail(check func(message.Message) error) Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context) (message.Message, error) {
			msg, err := next.Run(ctx)
			if err != nil {
				return msg, err
			}

			if err := check(msg); err != nil {
				return message.Message{}, fmt.Errorf("%w: %w", ErrOutputRejected, err)
			}
			return msg, nil
		})
	}
}

// RetryRateLimited runs the agent again, at most attempts more times, when
// it fails with a *modeladapter.RateLimitError. Each wait is the error's
// RetryAfter, or fallback without one, capped at maxWait. The chat keeps
// what was appended before the failure, so a retry resumes the loop.
func RetryRateLimited(attempts int, fallback, maxWait time.Duration) Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context) (message.Message, error) {
			for retry := 0; ; retry++ {
				msg, err := next.Run(ctx)

				var rle *modeladapter.RateLimitError
				if err == nil || retry >= attempts || !errors.As(err, &rle) {
					return msg, err
				}

				wait := rle.RetryAfter
				if wait <= 0 {
					wait = fallback
				}

				t := time.NewTimer(min(wait, maxWait))
				select {
				case <-ctx.Done():
					t.Stop()
					return message.Message{}, ctx.Err()
				case <-t.C:
				}
			}
		})
	}
}
