package retry

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned by Categorize for errors that carry no status signal.
	ErrInvalidInput = errors.New("error carries no status code")

	// ErrRetriesExhausted matches an *Error whose retries ran out.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Error is returned by Execute when the wrapped call ultimately fails.
type Error struct {
	// Op names the wrapped call, e.g. "calendar.freebusy".
	Op string
	// Category is the category of the last failure.
	Category Category
	// Attempts is the number of times the call was invoked.
	Attempts int
	// Exhausted is true when the last failure was retryable but no retries were left.
	Exhausted bool
	// Err is the last error returned by the call.
	Err error
}

func (e *Error) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("%s: %s error after %d attempts: %v", e.Op, e.Category, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Category, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports ErrRetriesExhausted for exhausted errors.
func (e *Error) Is(target error) bool {
	return target == ErrRetriesExhausted && e.Exhausted
}

// CategoryOf returns the category of the first *Error in err's chain.
// The second result is false when err did not come from a Policy.
func CategoryOf(err error) (Category, bool) {
	var retryErr *Error
	if errors.As(err, &retryErr) {
		return retryErr.Category, true
	}
	return CategoryClient, false
}
