// Package scheduler computes open meeting time across Google calendars.
//
// For every day of a search range the Scheduler fetches the merged busy
// intervals of all requested calendars from a BusyTimeProvider, clips them to
// the day's availability window and returns the gaps that are at least as long
// as the requested meeting duration. Provider calls go through a retry.Policy.
//
// FreeSlotsForDay exposes the per-day merge and gap extraction as a pure
// function.
package scheduler
