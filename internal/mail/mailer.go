// Package mail defines the outbound email contract and its AMQP-backed
// implementation. The auth flows only depend on the Sender interface, so
// tests substitute an in-memory fake and the transport can change without
// touching them.
package mail

import "context"

// Message is one outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers a message to the outbound transport. Send must return a
// non-nil error whenever delivery cannot be guaranteed to have been handed
// off; callers compensate by rolling back state that depends on the email
// reaching the user.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
