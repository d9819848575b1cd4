// Package email defines the outbound mail transport interface, its SMTP,
// Resend and log-only implementations, the inquiry notification templates,
// and the Notifier that turns one validated inquiry into admin and customer
// messages.
package email

import (
	"context"
	"fmt"
	"strings"
)

// Message is one outbound email. From and To accept either a bare address
// or "Name <address>".
type Message struct {
	From    string
	To      string
	ReplyTo string // optional
	Subject string
	HTML    string
}

// Transport delivers messages. The Notifier depends on this interface so
// tests inject a recorder that never touches the network.
type Transport interface {
	// Send makes exactly one delivery attempt. It must honour ctx.
	Send(ctx context.Context, m Message) error

	// Verify checks credentials and connectivity without sending anything.
	// Called once at startup; a failure is logged but does not stop the
	// server.
	Verify(ctx context.Context) error
}

// Role names which half of a notification pair a message is.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// DeliveryError reports a failed send for one role. The Notifier joins one
// per failed message, so callers can log exactly which half failed.
type DeliveryError struct {
	Role Role
	To   string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("email: send %s message to %s: %v", e.Role, e.To, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// FormatAddress renders "Name <addr>", or just addr when name is empty.
func FormatAddress(name, addr string) string {
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}

// headerSafe strips CR and LF so submitted text cannot inject headers when
// it ends up in a subject line.
func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
