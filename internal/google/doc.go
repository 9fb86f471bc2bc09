// Package google provides OAuth2 authentication and token storage for the
// Google Calendar and Gmail APIs.
//
// Authentication uses the installed-app flow: Login starts a loopback HTTP
// listener, sends the user to Google's consent page and exchanges the returned
// code (with PKCE) for a token that TokenStore persists as JSON. Later runs
// load the token through a TokenProvider, refresh it when it expires and
// write refreshed tokens back to disk.
package google
