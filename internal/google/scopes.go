package google

import (
	"slices"
	"strings"
)

// OAuth scopes used by gtool.
const (
	ScopeCalendar         = "https://www.googleapis.com/auth/calendar"
	ScopeCalendarReadonly = "https://www.googleapis.com/auth/calendar.readonly"
	ScopeGmailReadonly    = "https://www.googleapis.com/auth/gmail.readonly"
	ScopeGmailModify      = "https://www.googleapis.com/auth/gmail.modify"
)

// ScopeAliases maps the short names accepted on the command line to scopes.
var ScopeAliases = map[string]string{
	"calendar":          ScopeCalendar,
	"calendar.readonly": ScopeCalendarReadonly,
	"gmail.readonly":    ScopeGmailReadonly,
	"gmail.modify":      ScopeGmailModify,
}

// ResolveScopes expands short aliases to full scope URLs and drops duplicates.
// Unknown values are passed through unchanged.
func ResolveScopes(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if full, ok := ScopeAliases[name]; ok {
			name = full
		}
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// MissingScopes returns the requested scopes that granted does not include.
func MissingScopes(requested, granted []string) []string {
	var missing []string
	for _, s := range requested {
		if !slices.Contains(granted, s) {
			missing = append(missing, s)
		}
	}
	return missing
}
