package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"google.golang.org/api/googleapi"

	"github.com/teemow/gtool/internal/instrumentation"
	"github.com/teemow/gtool/internal/logging"
	"github.com/teemow/gtool/internal/retry"
)

// fakeProvider serves busy intervals keyed by YYYY-MM-DD and counts calls.
type fakeProvider struct {
	mu    sync.Mutex
	busy  map[string][]BusyInterval
	errs  map[string][]error
	calls map[string]int
	ids   [][]string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		busy:  map[string][]BusyInterval{},
		errs:  map[string][]error{},
		calls: map[string]int{},
	}
}

func (f *fakeProvider) DayBusyTimes(_ context.Context, calendarIDs []string, day time.Time, loc *time.Location) ([]BusyInterval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := day.In(loc).Format(time.DateOnly)
	f.calls[key]++
	f.ids = append(f.ids, calendarIDs)
	if queue := f.errs[key]; len(queue) > 0 {
		err := queue[0]
		f.errs[key] = queue[1:]
		return nil, err
	}
	return f.busy[key], nil
}

type fakeRecorder struct {
	status string
	days   int
	slots  int
}

func (r *fakeRecorder) RecordFreeSlotSearch(_ context.Context, status string, days, slots int, _ time.Duration) {
	r.status = status
	r.days = days
	r.slots = slots
}

func noWait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func testPolicy() *retry.Policy {
	return retry.New(retry.WithLogger(logging.Discard()), retry.WithSleeper(noWait))
}

func dayParams(start, end time.Time) SearchParameters {
	return SearchParameters{
		Start:             start,
		End:               end,
		CalendarIDs:       []string{"primary", "team@example.com"},
		Duration:          30 * time.Minute,
		AvailabilityStart: TimeOfDay{Hour: 9},
		AvailabilityEnd:   TimeOfDay{Hour: 17},
		Location:          time.UTC,
	}
}

func TestFreeSlotsSingleDay(t *testing.T) {
	provider := newFakeProvider()
	provider.busy["2024-03-12"] = []BusyInterval{busy(10, 0, 10, 30)}
	recorder := &fakeRecorder{}

	s := New(provider, testPolicy(), WithLogger(logging.Discard()), WithMetrics(recorder))
	got, err := s.FreeSlots(context.Background(), dayParams(at(0, 0), at(23, 59)))

	require.NoError(t, err)
	assert.Equal(t, []FreeSlot{slot(9, 0, 10, 0), slot(10, 30, 17, 0)}, got)
	assert.Equal(t, 1, provider.calls["2024-03-12"])
	assert.Equal(t, []string{"primary", "team@example.com"}, provider.ids[0])
	assert.Equal(t, logging.StatusSuccess, recorder.status)
	assert.Equal(t, 1, recorder.days)
	assert.Equal(t, 2, recorder.slots)
}

func TestFreeSlotsMultiDay(t *testing.T) {
	provider := newFakeProvider()
	provider.busy["2024-03-12"] = []BusyInterval{busy(9, 0, 17, 0)}
	// An overnight event reported on both days is clipped per day.
	overnight := BusyInterval{Start: at(16, 0).AddDate(0, 0, 1), End: at(10, 0).AddDate(0, 0, 2)}
	provider.busy["2024-03-13"] = []BusyInterval{overnight}
	provider.busy["2024-03-14"] = []BusyInterval{overnight}

	s := New(provider, testPolicy(), WithLogger(logging.Discard()))
	got, err := s.FreeSlots(context.Background(), dayParams(at(0, 0), at(23, 59).AddDate(0, 0, 2)))

	require.NoError(t, err)
	assert.Equal(t, []FreeSlot{
		{Start: at(9, 0).AddDate(0, 0, 1), End: at(16, 0).AddDate(0, 0, 1)},
		{Start: at(10, 0).AddDate(0, 0, 2), End: at(17, 0).AddDate(0, 0, 2)},
	}, got)
}

func TestFreeSlotsClipsToSearchRange(t *testing.T) {
	provider := newFakeProvider()

	s := New(provider, testPolicy(), WithLogger(logging.Discard()))
	got, err := s.FreeSlots(context.Background(), dayParams(at(13, 0), at(15, 0)))

	require.NoError(t, err)
	assert.Equal(t, []FreeSlot{slot(13, 0, 15, 0)}, got)
}

func TestFreeSlotsSkipsDaysWithEmptyWindow(t *testing.T) {
	provider := newFakeProvider()

	// Starts after the 12th's window closed and ends before the 13th's opens.
	s := New(provider, testPolicy(), WithLogger(logging.Discard()))
	got, err := s.FreeSlots(context.Background(), dayParams(at(18, 0), at(8, 0).AddDate(0, 0, 1)))

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, provider.calls)
}

func TestFreeSlotsIdempotent(t *testing.T) {
	provider := newFakeProvider()
	provider.busy["2024-03-12"] = []BusyInterval{busy(11, 0, 12, 0), busy(10, 0, 10, 45)}
	provider.busy["2024-03-13"] = []BusyInterval{{Start: at(14, 0).AddDate(0, 0, 1), End: at(15, 0).AddDate(0, 0, 1)}}

	s := New(provider, testPolicy(), WithLogger(logging.Discard()))
	params := dayParams(at(0, 0), at(23, 0).AddDate(0, 0, 1))

	first, err := s.FreeSlots(context.Background(), params)
	require.NoError(t, err)
	second, err := s.FreeSlots(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFreeSlotsParallelMatchesSequential(t *testing.T) {
	provider := newFakeProvider()
	for i := 0; i < 7; i++ {
		day := testDay.AddDate(0, 0, i)
		start := day.Add(time.Duration(9+i) * time.Hour)
		provider.busy[day.Format(time.DateOnly)] = []BusyInterval{{Start: start, End: start.Add(45 * time.Minute)}}
	}
	params := dayParams(at(0, 0), at(23, 0).AddDate(0, 0, 6))

	sequential, err := New(provider, testPolicy(), WithLogger(logging.Discard())).FreeSlots(context.Background(), params)
	require.NoError(t, err)
	parallel, err := New(provider, testPolicy(), WithLogger(logging.Discard()), WithConcurrency(4)).FreeSlots(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
	assert.Len(t, parallel, 13)
}

func TestFreeSlotsRetriesTransientErrors(t *testing.T) {
	provider := newFakeProvider()
	provider.errs["2024-03-12"] = []error{&googleapi.Error{Code: 503}, &googleapi.Error{Code: 429}}

	s := New(provider, testPolicy(), WithLogger(logging.Discard()))
	got, err := s.FreeSlots(context.Background(), dayParams(at(0, 0), at(23, 0)))

	require.NoError(t, err)
	assert.Equal(t, []FreeSlot{slot(9, 0, 17, 0)}, got)
	assert.Equal(t, 3, provider.calls["2024-03-12"])
}

func TestFreeSlotsAbortsOnError(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
	}{
		{"sequential", 1},
		{"parallel", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newFakeProvider()
			provider.errs["2024-03-13"] = []error{&googleapi.Error{Code: 401}}
			recorder := &fakeRecorder{}

			s := New(provider, testPolicy(),
				WithLogger(logging.Discard()),
				WithConcurrency(tt.concurrency),
				WithMetrics(recorder))
			got, err := s.FreeSlots(context.Background(), dayParams(at(0, 0), at(23, 0).AddDate(0, 0, 2)))

			require.Error(t, err)
			assert.Nil(t, got)
			category, ok := retry.CategoryOf(err)
			require.True(t, ok)
			assert.Equal(t, retry.CategoryAuth, category)
			assert.Equal(t, 1, provider.calls["2024-03-13"])
			assert.Equal(t, logging.StatusError, recorder.status)
		})
	}
}

func TestFreeSlotsExhaustedRetries(t *testing.T) {
	provider := newFakeProvider()
	permanent := &googleapi.Error{Code: 500}
	provider.errs["2024-03-12"] = []error{permanent, permanent, permanent, permanent, permanent}

	policy := retry.New(retry.WithLogger(logging.Discard()), retry.WithSleeper(noWait), retry.WithMaxRetries(3))
	s := New(provider, policy, WithLogger(logging.Discard()))
	_, err := s.FreeSlots(context.Background(), dayParams(at(0, 0), at(23, 0)))

	assert.ErrorIs(t, err, retry.ErrRetriesExhausted)
	assert.Equal(t, 4, provider.calls["2024-03-12"])
}

func TestFreeSlotsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := newFakeProvider()
	s := New(provider, testPolicy(), WithLogger(logging.Discard()))
	_, err := s.FreeSlots(ctx, dayParams(at(0, 0), at(23, 0)))

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, provider.calls)
}

func TestFreeSlotsTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	var gotDay time.Time
	provider := BusyTimeProviderFunc(func(_ context.Context, _ []string, day time.Time, l *time.Location) ([]BusyInterval, error) {
		gotDay = day
		// 17:00-18:00 UTC is 10:00-11:00 in Los Angeles during PDT.
		return []BusyInterval{{
			Start: time.Date(2024, 6, 3, 17, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 6, 3, 18, 0, 0, 0, time.UTC),
		}}, nil
	})

	params := SearchParameters{
		Start:             time.Date(2024, 6, 3, 0, 0, 0, 0, loc),
		End:               time.Date(2024, 6, 3, 23, 59, 59, 0, loc),
		CalendarIDs:       []string{"primary"},
		Duration:          time.Hour,
		AvailabilityStart: TimeOfDay{Hour: 8},
		AvailabilityEnd:   TimeOfDay{Hour: 18},
		Location:          loc,
	}

	slots, err := New(provider, testPolicy(), WithLogger(logging.Discard())).FreeSlots(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, slots, 2)

	assert.Equal(t, loc, gotDay.Location())
	assert.True(t, slots[0].Start.Equal(time.Date(2024, 6, 3, 8, 0, 0, 0, loc)))
	assert.True(t, slots[0].End.Equal(time.Date(2024, 6, 3, 10, 0, 0, 0, loc)))
	assert.True(t, slots[1].Start.Equal(time.Date(2024, 6, 3, 11, 0, 0, 0, loc)))
	assert.True(t, slots[1].End.Equal(time.Date(2024, 6, 3, 18, 0, 0, 0, loc)))
}

func TestSearchParametersValidate(t *testing.T) {
	valid := dayParams(at(0, 0), at(23, 0))
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*SearchParameters)
	}{
		{"nil location", func(p *SearchParameters) { p.Location = nil }},
		{"zero start", func(p *SearchParameters) { p.Start = time.Time{} }},
		{"end before start", func(p *SearchParameters) { p.End = p.Start.Add(-time.Minute) }},
		{"zero duration", func(p *SearchParameters) { p.Duration = 0 }},
		{"negative duration", func(p *SearchParameters) { p.Duration = -time.Minute }},
		{"no calendars", func(p *SearchParameters) { p.CalendarIDs = nil }},
		{"empty calendar id", func(p *SearchParameters) { p.CalendarIDs = []string{"primary", ""} }},
		{"availability inverted", func(p *SearchParameters) {
			p.AvailabilityStart = TimeOfDay{Hour: 18}
			p.AvailabilityEnd = TimeOfDay{Hour: 8}
		}},
		{"availability equal", func(p *SearchParameters) { p.AvailabilityEnd = p.AvailabilityStart }},
		{"availability out of range", func(p *SearchParameters) { p.AvailabilityEnd = TimeOfDay{Hour: 25} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			p.CalendarIDs = append([]string(nil), valid.CalendarIDs...)
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidParameters)

			_, err := New(newFakeProvider(), testPolicy(), WithLogger(logging.Discard())).FreeSlots(context.Background(), p)
			assert.ErrorIs(t, err, ErrInvalidParameters)
		})
	}
}

func TestFreeSlotsOvernightAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	// Clocks jump from 02:00 PST to 03:00 PDT on 2024-03-10.
	overnight := BusyInterval{
		Start: time.Date(2024, 3, 9, 22, 0, 0, 0, loc),
		End:   time.Date(2024, 3, 10, 10, 0, 0, 0, loc),
	}
	want := []FreeSlot{
		{Start: time.Date(2024, 3, 9, 1, 0, 0, 0, loc), End: time.Date(2024, 3, 9, 22, 0, 0, 0, loc)},
		{Start: time.Date(2024, 3, 10, 10, 0, 0, 0, loc), End: time.Date(2024, 3, 10, 23, 0, 0, 0, loc)},
		{Start: time.Date(2024, 3, 11, 1, 0, 0, 0, loc), End: time.Date(2024, 3, 11, 23, 0, 0, 0, loc)},
	}

	for _, concurrency := range []int{1, 4} {
		provider := newFakeProvider()
		provider.busy["2024-03-09"] = []BusyInterval{overnight}
		provider.busy["2024-03-10"] = []BusyInterval{overnight}

		s := New(provider, testPolicy(), WithLogger(logging.Discard()), WithConcurrency(concurrency))
		got, err := s.FreeSlots(context.Background(), SearchParameters{
			Start:             time.Date(2024, 3, 9, 0, 0, 0, 0, loc),
			End:               time.Date(2024, 3, 11, 23, 59, 59, 0, loc),
			CalendarIDs:       []string{"primary"},
			Duration:          30 * time.Minute,
			AvailabilityStart: TimeOfDay{Hour: 1},
			AvailabilityEnd:   TimeOfDay{Hour: 23},
			Location:          loc,
		})
		require.NoError(t, err, "concurrency %d", concurrency)
		require.Len(t, got, len(want), "concurrency %d", concurrency)
		for i := range want {
			assert.True(t, want[i].Start.Equal(got[i].Start), "concurrency %d slot %d start: got %s", concurrency, i, got[i].Start)
			assert.True(t, want[i].End.Equal(got[i].End), "concurrency %d slot %d end: got %s", concurrency, i, got[i].End)
		}
		// The 23 hour day still has a 13 hour slot after the overnight block.
		assert.Equal(t, 13*time.Hour, got[1].Duration())
		assert.Equal(t, 3, len(provider.calls))
	}
}

func TestFreeSlotsRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	provider := newFakeProvider()
	provider.busy["2024-03-12"] = []BusyInterval{busy(10, 0, 11, 0)}

	s := New(provider, testPolicy(), WithLogger(logging.Discard()))
	got, err := s.FreeSlots(context.Background(), dayParams(at(0, 0), at(23, 0).AddDate(0, 0, 1)))
	require.NoError(t, err)

	spanAttrs := func(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
		attrs := map[attribute.Key]attribute.Value{}
		for _, kv := range span.Attributes() {
			attrs[kv.Key] = kv.Value
		}
		return attrs
	}

	var search sdktrace.ReadOnlySpan
	var days []string
	for _, span := range recorder.Ended() {
		switch span.Name() {
		case "scheduler.free_slots":
			search = span
		case "scheduler.day":
			days = append(days, spanAttrs(span)[instrumentation.SpanAttrDay].AsString())
		}
	}

	require.NotNil(t, search)
	attrs := spanAttrs(search)
	assert.Equal(t, int64(2), attrs[instrumentation.SpanAttrDays].AsInt64())
	assert.Equal(t, int64(2), attrs[instrumentation.SpanAttrCalendars].AsInt64())
	assert.Equal(t, int64(len(got)), attrs[instrumentation.SpanAttrSlots].AsInt64())
	assert.ElementsMatch(t, []string{"2024-03-12", "2024-03-13"}, days)
}
