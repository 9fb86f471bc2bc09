package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/gtool/internal/logging"
)

const (
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3
	// DefaultBaseDelay is the wait before the first retry.
	DefaultBaseDelay = 2 * time.Second
)

// Sleeper waits for d or until ctx is done, returning ctx.Err() in the latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// Observer is notified about every retry and every final outcome.
// instrumentation.Metrics implements it.
type Observer interface {
	RecordRetry(ctx context.Context, operation, category string)
	RecordRetryOutcome(ctx context.Context, operation, status string, attempts int)
}

// Policy retries QUOTA and TRANSIENT failures with exponential backoff.
// A Policy holds no per-call state and is safe for concurrent use.
type Policy struct {
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
	sleep      Sleeper
	observer   Observer
}

// Option configures a Policy.
type Option func(*Policy)

// WithMaxRetries sets the number of retries after the first attempt.
// Negative values are treated as zero.
func WithMaxRetries(n int) Option {
	return func(p *Policy) {
		if n < 0 {
			n = 0
		}
		p.maxRetries = n
	}
}

// WithBaseDelay sets the wait before the first retry. Later waits double.
func WithBaseDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d < 0 {
			d = 0
		}
		p.baseDelay = d
	}
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSleeper replaces the wait between attempts. Intended for tests.
func WithSleeper(s Sleeper) Option {
	return func(p *Policy) {
		if s != nil {
			p.sleep = s
		}
	}
}

// WithObserver registers a metrics observer.
func WithObserver(o Observer) Option {
	return func(p *Policy) {
		p.observer = o
	}
}

// New creates a Policy with DefaultMaxRetries and DefaultBaseDelay unless overridden.
func New(opts ...Option) *Policy {
	p := &Policy{
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		logger:     slog.Default(),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxRetries returns the configured retry count.
func (p *Policy) MaxRetries() int {
	return p.maxRetries
}

// Backoff returns the wait before retry attempt (1-based): base * 2^(attempt-1).
func (p *Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return p.baseDelay << (attempt - 1)
}

// Run is Execute for calls without a result value.
func (p *Policy) Run(ctx context.Context, op string, fn func(context.Context) error) error {
	_, err := Execute(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Execute invokes fn until it succeeds, fails with a non-retryable category,
// or p's retries are used up. The call is made at most MaxRetries+1 times.
// Failures are returned as *Error; a context cancelled while waiting returns
// the context error.
func Execute[T any](ctx context.Context, p *Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	if p == nil {
		p = New()
	}
	logger := logging.WithOperation(p.logger, op)

	var zero T
	for attempt := 1; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			p.recordOutcome(ctx, op, logging.StatusSuccess, attempt)
			return result, nil
		}

		category, catErr := Categorize(err)
		if catErr != nil {
			category = CategoryClient
		}

		if !category.Retryable() {
			p.recordOutcome(ctx, op, logging.StatusError, attempt)
			return zero, &Error{Op: op, Category: category, Attempts: attempt, Err: err}
		}

		if attempt > p.maxRetries {
			p.recordOutcome(ctx, op, logging.StatusError, attempt)
			logger.Error("retries exhausted",
				logging.Category(category.String()),
				logging.Attempt(attempt),
				logging.Err(err))
			return zero, &Error{Op: op, Category: category, Attempts: attempt, Exhausted: true, Err: err}
		}

		delay := p.Backoff(attempt)
		logger.Warn("retrying call",
			logging.Category(category.String()),
			logging.Attempt(attempt),
			logging.Delay(delay),
			logging.Err(err))
		if p.observer != nil {
			p.observer.RecordRetry(ctx, op, category.String())
		}

		if err := p.sleep(ctx, delay); err != nil {
			p.recordOutcome(ctx, op, logging.StatusError, attempt)
			return zero, err
		}
	}
}

func (p *Policy) recordOutcome(ctx context.Context, op, status string, attempts int) {
	if p.observer != nil {
		p.observer.RecordRetryOutcome(ctx, op, status, attempts)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
