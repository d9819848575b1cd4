package email

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the relay address and the authenticated sender account.
// For Gmail, Password is an app password.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// Timeout bounds dialing and each SMTP command. Default 15s.
	Timeout time.Duration
}

// SMTPTransport delivers through an authenticated SMTP relay. A new
// connection is opened per message so concurrent sends never share state.
type SMTPTransport struct {
	cfg SMTPConfig
}

// NewSMTPTransport returns an SMTP-backed Transport.
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTPTransport{cfg: cfg}
}

// Send dials, authenticates, sends m and disconnects.
func (t *SMTPTransport) Send(ctx context.Context, m Message) error {
	msg, err := buildMsg(m)
	if err != nil {
		return err
	}

	client, err := t.client()
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("email: smtp send: %w", err)
	}
	return nil
}

// Verify dials and authenticates, then closes the connection.
func (t *SMTPTransport) Verify(ctx context.Context) error {
	client, err := t.client()
	if err != nil {
		return err
	}
	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("email: smtp verify: %w", err)
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("email: smtp close: %w", err)
	}
	return nil
}

func (t *SMTPTransport) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(t.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(t.cfg.Username),
		mail.WithPassword(t.cfg.Password),
		mail.WithTimeout(t.cfg.Timeout),
	}
	// 465 is implicit TLS; anything else must upgrade with STARTTLS.
	if t.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(t.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("email: smtp client: %w", err)
	}
	return client, nil
}

func buildMsg(m Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, fmt.Errorf("email: from address %q: %w", m.From, err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("email: to address %q: %w", m.To, err)
	}
	if m.ReplyTo != "" {
		if err := msg.ReplyTo(m.ReplyTo); err != nil {
			return nil, fmt.Errorf("email: reply-to address %q: %w", m.ReplyTo, err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextHTML, m.HTML)
	return msg, nil
}
