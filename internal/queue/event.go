// Package queue defines message payloads exchanged over the message broker
// and the background worker that drains them.
package queue

// EmailQueueName is the durable queue carrying outbound email requests.
const EmailQueueName = "auth.email"

// EmailRequested is published whenever an auth flow needs to reach a user by
// email, currently only for password-reset instructions. It carries the full
// rendered message so the delivery worker needs no access to user records.
type EmailRequested struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	QueuedAt string `json:"queued_at"` // RFC3339, UTC
}
