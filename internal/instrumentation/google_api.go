package instrumentation

import (
	"context"
	"time"
)

// TrackGoogleAPI runs fn inside a google.<service>.<operation> span and
// records its duration and outcome on m. m may be nil.
func TrackGoogleAPI[T any](ctx context.Context, m *Metrics, service, operation string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := StartGoogleAPISpan(ctx, service, operation)
	start := time.Now()

	result, err := fn(ctx)

	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.RecordGoogleAPIOperation(ctx, service, operation, status, time.Since(start))
	EndSpan(span, err)

	return result, err
}
