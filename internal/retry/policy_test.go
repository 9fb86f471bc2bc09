package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gtool/internal/logging"
)

// recordingSleeper captures waits instead of sleeping.
type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return ctx.Err()
}

type fakeObserver struct {
	retries  []string
	outcomes []string
	attempts int
}

func (o *fakeObserver) RecordRetry(_ context.Context, _ string, category string) {
	o.retries = append(o.retries, category)
}

func (o *fakeObserver) RecordRetryOutcome(_ context.Context, _ string, status string, attempts int) {
	o.outcomes = append(o.outcomes, status)
	o.attempts = attempts
}

func newTestPolicy(sleeper *recordingSleeper, opts ...Option) *Policy {
	base := []Option{
		WithLogger(logging.Discard()),
		WithSleeper(sleeper.sleep),
	}
	return New(append(base, opts...)...)
}

func TestExecuteSuccessFirstTry(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := newTestPolicy(sleeper)

	calls := 0
	got, err := Execute(context.Background(), p, "test", func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.waits)
}

func TestExecuteExhaustsTransient(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := newTestPolicy(sleeper, WithMaxRetries(3), WithBaseDelay(time.Second))

	calls := 0
	_, err := Execute(context.Background(), p, "calendar.freebusy", func(context.Context) (int, error) {
		calls++
		return 0, apiError(503)
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, sleeper.waits)
	assert.ErrorIs(t, err, ErrRetriesExhausted)

	var retryErr *Error
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, CategoryTransient, retryErr.Category)
	assert.Equal(t, 4, retryErr.Attempts)
	assert.True(t, retryErr.Exhausted)
	assert.Contains(t, err.Error(), "TRANSIENT")
}

func TestExecuteAuthFailsFast(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := newTestPolicy(sleeper)

	calls := 0
	_, err := Execute(context.Background(), p, "calendar.list", func(context.Context) (int, error) {
		calls++
		return 0, apiError(401)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.waits)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)

	category, ok := CategoryOf(err)
	require.True(t, ok)
	assert.Equal(t, CategoryAuth, category)
}

func TestExecuteClientFailsFast(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := newTestPolicy(sleeper)

	calls := 0
	original := apiError(404, "notFound")
	err := p.Run(context.Background(), "calendar.get", func(context.Context) error {
		calls++
		return original
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, original)
	category, _ := CategoryOf(err)
	assert.Equal(t, CategoryClient, category)
}

func TestExecuteUnclassifiableErrorIsClient(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := newTestPolicy(sleeper)

	plain := errors.New("boom")
	calls := 0
	err := p.Run(context.Background(), "op", func(context.Context) error {
		calls++
		return plain
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, plain)
	category, ok := CategoryOf(err)
	assert.True(t, ok)
	assert.Equal(t, CategoryClient, category)
}

func TestExecuteQuotaThenSuccess(t *testing.T) {
	sleeper := &recordingSleeper{}
	observer := &fakeObserver{}
	p := newTestPolicy(sleeper, WithBaseDelay(2*time.Second), WithObserver(observer))

	calls := 0
	got, err := Execute(context.Background(), p, "calendar.freebusy", func(context.Context) ([]int, error) {
		calls++
		if calls <= 2 {
			return nil, apiError(429)
		}
		return []int{1, 2}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.waits)
	assert.Equal(t, []string{"QUOTA", "QUOTA"}, observer.retries)
	assert.Equal(t, []string{logging.StatusSuccess}, observer.outcomes)
	assert.Equal(t, 3, observer.attempts)
}

func TestExecuteZeroRetries(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := newTestPolicy(sleeper, WithMaxRetries(0))

	calls := 0
	err := p.Run(context.Background(), "op", func(context.Context) error {
		calls++
		return apiError(500)
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Empty(t, sleeper.waits)
}

func TestExecuteContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New(
		WithLogger(logging.Discard()),
		WithBaseDelay(time.Hour),
	)

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, "op", func(context.Context) error {
			calls++
			return apiError(503)
		})
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestBackoff(t *testing.T) {
	p := New(WithBaseDelay(2 * time.Second))
	assert.Equal(t, time.Duration(0), p.Backoff(0))
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
	assert.Equal(t, 8*time.Second, p.Backoff(3))
}

func TestNewDefaults(t *testing.T) {
	p := New()
	assert.Equal(t, DefaultMaxRetries, p.MaxRetries())
	assert.Equal(t, DefaultBaseDelay, p.Backoff(1))

	p = New(WithMaxRetries(-1), WithBaseDelay(-time.Second))
	assert.Equal(t, 0, p.MaxRetries())
	assert.Equal(t, time.Duration(0), p.Backoff(1))
}

func TestExecuteNilPolicy(t *testing.T) {
	got, err := Execute(context.Background(), nil, "op", func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}
