package inquiry

import (
	"regexp"
	"strings"
	"time"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// Indian mobile numbers: ten digits, leading 6–9.
	phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// dateLayouts are tried in order. Date-only input is by far the most common
// (an <input type="date"> value).
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006-01-02T15:04",
	time.DateTime,
}

// Validate checks a raw submission and returns the normalised Inquiry.
//
// Checks run in a fixed order and stop at the first failure: required-field
// presence, then email syntax, then phone syntax. The returned error is always
// a *ValidationError. Validate has no side effects.
func Validate(req Request, profile Profile) (Inquiry, error) {
	inq := Inquiry{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Event:   strings.TrimSpace(req.Event),
		Message: strings.TrimSpace(req.Message),
		Profile: profile,
	}

	if inq.Name == "" || inq.Email == "" || inq.Phone == "" || inq.Event == "" || inq.Message == "" {
		return Inquiry{}, &ValidationError{Reason: ReasonMissingFields}
	}

	if !ValidEmail(inq.Email) {
		return Inquiry{}, &ValidationError{Reason: ReasonBadEmail}
	}

	inq.PhoneDigits = DigitsOnly(inq.Phone)
	if !phonePattern.MatchString(inq.PhoneDigits) {
		return Inquiry{}, &ValidationError{Reason: ReasonBadPhone}
	}

	if profile == Enhanced {
		inq.Date = ParseDate(req.Date)
		inq.Guests = strings.TrimSpace(req.Guests)
		inq.Budget = strings.TrimSpace(req.Budget)
		inq.Venue = strings.TrimSpace(req.Venue)
	}

	return inq, nil
}

// ValidEmail reports whether s has the local@domain.tld shape.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidPhone reports whether s, once stripped to digits, is a ten-digit
// number starting with 6–9. "98765-43210" is valid, "5876543210" is not.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(DigitsOnly(s))
}

// DigitsOnly drops every byte that is not an ASCII digit.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ParseDate returns the calendar date in s, or nil when s is blank or does
// not parse. Only the year, month and day are kept.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	}
	return nil
}
