// Package calendar provides a client for the Google Calendar API.
//
// The client lists calendars and events, and implements
// scheduler.BusyTimeProvider on top of the freebusy endpoint so the
// scheduler can compute open meeting time. List calls run through the
// client's retry policy. DayBusyTimes does not retry on its own; the
// scheduler wraps each day's query in the policy.
//
// Example usage:
//
//	httpClient, err := auth.HTTPClient(ctx)
//	if err != nil {
//	    return err
//	}
//	client, err := calendar.NewClient(ctx, httpClient, calendar.WithPolicy(policy))
//	if err != nil {
//	    return err
//	}
//	calendars, err := client.ListCalendars(ctx)
package calendar
