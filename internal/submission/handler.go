// Package submission runs one contact-form submission through its steps:
// rate-limit admission, validation, notification dispatch. It knows nothing
// about HTTP; the api package maps a Result onto a response.
package submission

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wednerevents/inquiry-backend/internal/inquiry"
	"github.com/wednerevents/inquiry-backend/internal/ratelimit"
)

// Outcome is the terminal state of one submission.
type Outcome int

const (
	// Accepted: every notification was sent.
	Accepted Outcome = iota

	// RateLimited: the client exceeded its window; nothing else ran.
	RateLimited

	// Invalid: validation failed; no notification was attempted.
	Invalid

	// DeliveryFailed: at least one notification send failed. Some mail may
	// still have been delivered.
	DeliveryFailed
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case RateLimited:
		return "rate_limited"
	case Invalid:
		return "invalid"
	case DeliveryFailed:
		return "delivery_failed"
	default:
		return "unknown"
	}
}

// Notifier dispatches the messages for an accepted inquiry. *email.Notifier
// satisfies it; tests inject a stub.
type Notifier interface {
	Notify(ctx context.Context, inq inquiry.Inquiry) error
}

// Result describes how a submission ended.
type Result struct {
	Outcome Outcome

	// Err is the *inquiry.ValidationError for Invalid and the delivery error
	// for DeliveryFailed. Never shown to the client verbatim.
	Err error

	// Decision is the limiter's verdict. Limited reports whether one was made.
	Decision ratelimit.Decision
	Limited  bool

	// Reference identifies an inquiry that reached the notification step.
	Reference string
}

// Handler wires a limiter, a profile and a notifier together. One Handler
// serves one route.
type Handler struct {
	limiter  ratelimit.Limiter // nil: route is not rate limited
	notifier Notifier
	profile  inquiry.Profile
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler builds a Handler. limiter may be nil.
func NewHandler(limiter ratelimit.Limiter, notifier Notifier, profile inquiry.Profile, logger *slog.Logger) *Handler {
	return &Handler{
		limiter:  limiter,
		notifier: notifier,
		profile:  profile,
		logger:   logger,
		now:      time.Now,
	}
}

// Profile reports which field set this handler accepts.
func (h *Handler) Profile() inquiry.Profile {
	return h.profile
}

// Handle processes one submission from clientKey. Each step is terminal on
// failure:
//
//  1. Admit clientKey; rejected → RateLimited.
//  2. Validate req; invalid → Invalid.
//  3. Notify; any send failing → DeliveryFailed.
//  4. Otherwise Accepted.
//
// Nothing outside the limiter's counter is touched before step 3.
func (h *Handler) Handle(ctx context.Context, req inquiry.Request, clientKey string) Result {
	var res Result

	// ── 1. Rate limit ─────────────────────────────────────────────────────────
	if h.limiter != nil {
		d, err := h.limiter.Allow(ctx, clientKey)
		switch {
		case err != nil:
			// Counter store unavailable: admit rather than block every client.
			h.logger.Warn("submission: rate limiter unavailable, admitting",
				"client", clientKey,
				"error", err,
			)
		case !d.Allowed:
			return Result{Outcome: RateLimited, Decision: d, Limited: true}
		default:
			res.Decision, res.Limited = d, true
		}
	}

	// ── 2. Validate ───────────────────────────────────────────────────────────
	inq, err := inquiry.Validate(req, h.profile)
	if err != nil {
		res.Outcome, res.Err = Invalid, err
		return res
	}

	// ── 3. Notify ─────────────────────────────────────────────────────────────
	inq.Reference = uuid.NewString()
	inq.ReceivedAt = h.now()
	res.Reference = inq.Reference

	if err := h.notifier.Notify(ctx, inq); err != nil {
		res.Outcome, res.Err = DeliveryFailed, err
		return res
	}

	// ── 4. Done ───────────────────────────────────────────────────────────────
	res.Outcome = Accepted
	return res
}
