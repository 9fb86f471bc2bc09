// Package gmail provides a client for the Gmail API.
//
// The client lists messages with their Subject, From and Date headers,
// reads single messages including their plain text or HTML body, and moves
// messages to the trash or deletes them permanently. Every call runs
// through the client's retry policy and is recorded as a Google API
// operation.
//
// Listing and reading require the gmail.readonly scope; trash and delete
// require gmail.modify. Permanent deletion is only accepted by the API for
// the full mail scope.
//
// Example usage:
//
//	client, err := gmail.NewClient(ctx, httpClient, gmail.WithPolicy(policy))
//	if err != nil {
//	    return err
//	}
//	messages, err := client.ListMessages(ctx, gmail.ListOptions{Query: "is:unread", Limit: 10})
package gmail
