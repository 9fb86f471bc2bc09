package retry

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Category classifies a failed external call for retry decisions.
type Category int

const (
	// CategoryClient is a malformed request or an unknown error shape. Never retried.
	CategoryClient Category = iota
	// CategoryAuth is a credential or permission problem. Never retried.
	CategoryAuth
	// CategoryQuota is rate or quota limiting. Retried with backoff.
	CategoryQuota
	// CategoryTransient is a temporary server-side failure. Retried with backoff.
	CategoryTransient
)

// String returns the upper-case category name.
func (c Category) String() string {
	switch c {
	case CategoryAuth:
		return "AUTH"
	case CategoryQuota:
		return "QUOTA"
	case CategoryTransient:
		return "TRANSIENT"
	default:
		return "CLIENT"
	}
}

// Retryable reports whether failures of this category are worth retrying.
func (c Category) Retryable() bool {
	return c == CategoryQuota || c == CategoryTransient
}

// StatusCoder is implemented by errors that carry an HTTP-like status code.
type StatusCoder interface {
	StatusCode() int
}

// Reasoner is optionally implemented by StatusCoder errors that carry a
// machine-readable reason such as "rateLimitExceeded".
type Reasoner interface {
	Reason() string
}

// quotaReasons are the Google API error reasons that turn a 403 into a quota error.
var quotaReasons = []string{"ratelimit", "quota", "dailylimit", "usagelimit"}

// Categorize classifies err by its status code and reason.
// It returns ErrInvalidInput if err carries no status signal.
func Categorize(err error) (Category, error) {
	if err == nil {
		return CategoryClient, ErrInvalidInput
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return CategoryAuth, nil
	}

	code, reasons, ok := statusOf(err)
	if !ok {
		return CategoryClient, ErrInvalidInput
	}
	return categorizeStatus(code, reasons), nil
}

func categorizeStatus(code int, reasons []string) Category {
	switch code {
	case http.StatusUnauthorized:
		return CategoryAuth
	case http.StatusForbidden:
		if isQuotaReason(reasons) {
			return CategoryQuota
		}
		return CategoryAuth
	case http.StatusTooManyRequests:
		return CategoryQuota
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return CategoryTransient
	default:
		return CategoryClient
	}
}

// statusOf extracts the status code and reasons from err or anything it wraps.
func statusOf(err error) (int, []string, bool) {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		reasons := make([]string, 0, len(apiErr.Errors))
		for _, item := range apiErr.Errors {
			reasons = append(reasons, item.Reason)
		}
		if len(reasons) == 0 {
			// Some responses only carry the reason in the message body.
			reasons = append(reasons, apiErr.Message)
		}
		return apiErr.Code, reasons, true
	}

	var coder StatusCoder
	if errors.As(err, &coder) {
		var reasons []string
		if r, ok := coder.(Reasoner); ok {
			reasons = append(reasons, r.Reason())
		}
		return coder.StatusCode(), reasons, true
	}

	return 0, nil, false
}

func isQuotaReason(reasons []string) bool {
	for _, reason := range reasons {
		normalized := strings.ToLower(strings.ReplaceAll(reason, " ", ""))
		for _, marker := range quotaReasons {
			if strings.Contains(normalized, marker) {
				return true
			}
		}
	}
	return false
}
