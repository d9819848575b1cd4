// Package inquiry holds the contact-form data model and the pure validation
// rules applied to every submission. It imports nothing from internal/ and
// performs no I/O, so it can be tested without a mail server or a clock.
package inquiry

import "time"

// Profile selects how much of a submission is kept and how rich the
// notification content is. Both profiles run the same validation.
type Profile int

const (
	// Enhanced keeps the full field set (date, guests, budget, venue) and
	// sends both the admin and the customer message.
	Enhanced Profile = iota

	// Basic is the reduced field set served by the legacy endpoint: name,
	// email, phone, event and message only.
	Basic
)

func (p Profile) String() string {
	switch p {
	case Enhanced:
		return "enhanced"
	case Basic:
		return "basic"
	default:
		return "unknown"
	}
}

// Request is the raw submission as decoded from the HTTP body. Every field is
// free text; nothing here has been checked yet.
type Request struct {
	Name    string
	Email   string
	Phone   string
	Event   string
	Date    string
	Message string
	Guests  string
	Budget  string
	Venue   string
}

// Inquiry is a Request that passed Validate. Text fields are trimmed, the
// optional ones are empty when they were not provided, and Date is nil unless
// the submitted value parsed as a calendar date.
type Inquiry struct {
	Name    string
	Email   string
	Phone   string // as submitted, trimmed
	Event   string
	Message string

	// PhoneDigits is Phone with every non-digit removed: exactly ten digits
	// starting with 6–9.
	PhoneDigits string

	Date   *time.Time
	Guests string
	Budget string
	Venue  string

	Profile Profile

	// Set by the submission handler once the inquiry is accepted; Validate
	// leaves them zero.
	Reference  string
	ReceivedAt time.Time
}

// HasDate reports whether a usable event date was submitted.
func (i Inquiry) HasDate() bool {
	return i.Date != nil
}
