// Package retry wraps calls to Google APIs with a categorized retry policy.
//
// Every failed call is first classified by Categorize into one of four
// categories:
//
//   - AUTH: credentials are missing, expired or lack permission (401, 403)
//   - QUOTA: the caller is rate limited or over quota (429, 403 with a quota reason)
//   - TRANSIENT: the server had a temporary problem (500, 502, 503)
//   - CLIENT: the request itself is wrong (any other status)
//
// Policy retries QUOTA and TRANSIENT failures with exponential backoff and
// returns AUTH and CLIENT failures immediately.
//
// Example usage:
//
//	policy := retry.New(retry.WithMaxRetries(3), retry.WithBaseDelay(2*time.Second))
//	list, err := retry.Execute(ctx, policy, "calendar.list", func(ctx context.Context) (*calendar.CalendarList, error) {
//	    return svc.CalendarList.List().Context(ctx).Do()
//	})
package retry
