package inquiry

import "errors"

// Reason identifies the first validation rule a submission failed.
type Reason string

const (
	ReasonMissingFields Reason = "missing_fields"
	ReasonBadEmail      Reason = "bad_email"
	ReasonBadPhone      Reason = "bad_phone"
)

// Sentinels for errors.Is matching against a *ValidationError.
var (
	ErrMissingFields = &ValidationError{Reason: ReasonMissingFields}
	ErrBadEmail      = &ValidationError{Reason: ReasonBadEmail}
	ErrBadPhone      = &ValidationError{Reason: ReasonBadPhone}
)

// ValidationError is returned by Validate. Message is safe to show to the
// submitter.
type ValidationError struct {
	Reason Reason
}

func (e *ValidationError) Error() string {
	return "inquiry: " + e.Message()
}

// Message is the human-readable reason returned in the HTTP response.
func (e *ValidationError) Message() string {
	switch e.Reason {
	case ReasonMissingFields:
		return "Required fields missing"
	case ReasonBadEmail:
		return "Invalid email address"
	case ReasonBadPhone:
		return "Invalid phone number"
	default:
		return "Invalid request"
	}
}

// Is matches any *ValidationError carrying the same Reason.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Reason == e.Reason
}

// ReasonOf extracts the Reason from err, or "" when err is not a
// *ValidationError.
func ReasonOf(err error) Reason {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return ""
}
