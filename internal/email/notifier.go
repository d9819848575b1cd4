package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wednerevents/inquiry-backend/internal/inquiry"
)

// NotifierConfig holds addressing and presentation settings.
type NotifierConfig struct {
	// From is the sender for both messages, e.g. "Wedner Events <eventswedner@gmail.com>".
	From string

	// AdminTo is the operator inbox that receives every inquiry.
	AdminTo string

	Business Business

	// Dates renders the optional event date. Nil means en-IN.
	Dates *inquiry.DateFormatter

	// Location is the zone the received-at timestamp is printed in. Nil means UTC.
	Location *time.Location

	// Timeout bounds one Notify call, both sends included. Zero means no
	// bound beyond the caller's context.
	Timeout time.Duration
}

// Notifier builds and dispatches the messages for one accepted inquiry.
type Notifier struct {
	transport Transport
	cfg       NotifierConfig
	logger    *slog.Logger
}

// NewNotifier constructs a Notifier. It fails only if the default date
// formatter cannot be built.
func NewNotifier(transport Transport, cfg NotifierConfig, logger *slog.Logger) (*Notifier, error) {
	if cfg.Dates == nil {
		f, err := inquiry.NewDateFormatter(inquiry.DefaultLocale)
		if err != nil {
			return nil, err
		}
		cfg.Dates = f
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Notifier{transport: transport, cfg: cfg, logger: logger}, nil
}

// envelope pairs a message with the role it plays.
type envelope struct {
	role Role
	msg  Message
}

// Compose renders the messages for inq without sending them. Enhanced
// inquiries yield the admin and the customer message; Basic ones only the
// admin message.
func (n *Notifier) Compose(inq inquiry.Inquiry) ([]Message, error) {
	envs, err := n.compose(inq)
	if err != nil {
		return nil, err
	}
	msgs := make([]Message, len(envs))
	for i, e := range envs {
		msgs[i] = e.msg
	}
	return msgs, nil
}

func (n *Notifier) compose(inq inquiry.Inquiry) ([]envelope, error) {
	data := templateData{
		Business:   n.cfg.Business,
		Reference:  inq.Reference,
		ReceivedAt: n.receivedAt(inq.ReceivedAt),
		Name:       inq.Name,
		Email:      inq.Email,
		Phone:      inq.Phone,
		Event:      inq.Event,
		Date:       n.cfg.Dates.Format(inq.Date),
		Message:    inq.Message,
		Guests:     inq.Guests,
		Budget:     inq.Budget,
		Venue:      inq.Venue,
	}

	if inq.Profile == inquiry.Basic {
		html, err := render(basicAdminTmpl, data)
		if err != nil {
			return nil, err
		}
		return []envelope{{
			role: RoleAdmin,
			msg: Message{
				From:    n.cfg.From,
				To:      n.cfg.AdminTo,
				Subject: headerSafe(fmt.Sprintf("New %s Inquiry", inq.Event)),
				HTML:    html,
			},
		}}, nil
	}

	adminHTML, err := render(adminTmpl, data)
	if err != nil {
		return nil, err
	}
	customerHTML, err := render(customerTmpl, data)
	if err != nil {
		return nil, err
	}

	return []envelope{
		{
			role: RoleAdmin,
			msg: Message{
				From:    n.cfg.From,
				To:      n.cfg.AdminTo,
				ReplyTo: inq.Email,
				Subject: headerSafe(fmt.Sprintf("🎊 New %s Inquiry from %s", inq.Event, inq.Name)),
				HTML:    adminHTML,
			},
		},
		{
			role: RoleCustomer,
			msg: Message{
				From:    n.cfg.From,
				To:      inq.Email,
				Subject: headerSafe(fmt.Sprintf("Thank You for Contacting %s - %s", n.cfg.Business.Name, inq.Event)),
				HTML:    customerHTML,
			},
		},
	}, nil
}

// Notify sends every composed message concurrently and waits for all of
// them. It succeeds only if every send succeeded; otherwise it returns one
// *DeliveryError per failed message, joined. A message that was delivered
// before its sibling failed is not recalled.
//
// Each message gets a single attempt.
func (n *Notifier) Notify(ctx context.Context, inq inquiry.Inquiry) error {
	envs, err := n.compose(inq)
	if err != nil {
		return err
	}

	if n.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.cfg.Timeout)
		defer cancel()
	}

	errs := make([]error, len(envs))

	// A plain Group, not WithContext: one failure must not cancel the
	// other send.
	var g errgroup.Group
	for i, e := range envs {
		g.Go(func() error {
			start := time.Now()
			if err := n.transport.Send(ctx, e.msg); err != nil {
				errs[i] = &DeliveryError{Role: e.role, To: e.msg.To, Err: err}
				return errs[i]
			}
			n.logger.Debug("email: sent",
				"role", e.role,
				"reference", inq.Reference,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return nil
		})
	}
	// Wait only carries the first failure; errs has every one.
	if err := g.Wait(); err == nil {
		return nil
	}

	return errors.Join(errs...)
}

func (n *Notifier) receivedAt(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.In(n.cfg.Location).Format("2 January 2006, 3:04 PM MST")
}
