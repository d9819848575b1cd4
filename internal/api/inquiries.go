package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/wednerevents/inquiry-backend/internal/inquiry"
	"github.com/wednerevents/inquiry-backend/internal/ratelimit"
	"github.com/wednerevents/inquiry-backend/internal/submission"
)

const (
	maxBodyBytes = 1 << 20

	msgSent       = "Message sent successfully"
	msgTooMany    = "Too many requests from this IP, please try again later."
	msgSendFailed = "Failed to send message"
	msgBadBody    = "Invalid request body"
	msgPostOnly   = "This endpoint only supports POST request"
	msgInternal   = "Internal server error"
)

// ─── POST /send-email, POST /api/send-email ───────────────────────────────────

// handleSubmit returns the handler for one submission route. The body is
// decoded before the limiter runs, so a malformed body is not counted.
func (s *Server) handleSubmit(h *submission.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeInquiry(w, r)
		if err != nil {
			s.logger.Debug("submit: bad body", "error", err, logField(r))
			respondErr(w, http.StatusBadRequest, msgBadBody)
			return
		}

		res := h.Handle(r.Context(), req, clientKey(r))

		if res.Limited {
			setRateLimitHeaders(w, res.Decision)
		}

		switch res.Outcome {
		case submission.Accepted:
			s.logger.Info("inquiry accepted",
				"reference", res.Reference,
				"event", req.Event,
				"profile", h.Profile().String(),
				logField(r),
			)
			respond(w, http.StatusOK, envelope{Success: true, Message: msgSent})

		case submission.RateLimited:
			s.logger.Warn("inquiry rate limited", "client", clientKey(r), logField(r))
			w.Header().Set("Retry-After", strconv.Itoa(int(res.Decision.RetryAfter(s.now()).Seconds())))
			respondErr(w, http.StatusTooManyRequests, msgTooMany)

		case submission.Invalid:
			respondErr(w, http.StatusBadRequest, validationMessage(res.Err))

		default:
			s.logger.Error("inquiry delivery failed",
				"reference", res.Reference,
				"error", res.Err,
				logField(r),
			)
			respondErr(w, http.StatusInternalServerError, msgSendFailed)
		}
	}
}

// handlePostOnly answers GET on a submission path.
func (s *Server) handlePostOnly(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	respondErr(w, http.StatusMethodNotAllowed, msgPostOnly)
}

func setRateLimitHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

func validationMessage(err error) string {
	var ve *inquiry.ValidationError
	if errors.As(err, &ve) {
		return ve.Message()
	}
	return inquiry.ErrMissingFields.Message()
}

// ─── DECODING ─────────────────────────────────────────────────────────────────

// inquiryBody mirrors the contact form. Numeric or boolean JSON values are
// accepted for any field and carried as their literal text; unknown fields
// are ignored.
type inquiryBody struct {
	Name    flexString `json:"name"`
	Email   flexString `json:"email"`
	Phone   flexString `json:"phone"`
	Event   flexString `json:"event"`
	Date    flexString `json:"date"`
	Message flexString `json:"message"`
	Guests  flexString `json:"guests"`
	Budget  flexString `json:"budget"`
	Venue   flexString `json:"venue"`
}

func (b inquiryBody) request() inquiry.Request {
	return inquiry.Request{
		Name:    string(b.Name),
		Email:   string(b.Email),
		Phone:   string(b.Phone),
		Event:   string(b.Event),
		Date:    string(b.Date),
		Message: string(b.Message),
		Guests:  string(b.Guests),
		Budget:  string(b.Budget),
		Venue:   string(b.Venue),
	}
}

// flexString decodes a JSON string, number, or boolean. null decodes to "".
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*f = flexString(data)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("field must be a string or number: %w", err)
		}
		*f = flexString(n.String())
		return nil
	}
}

// decodeInquiry reads a JSON or form-encoded body, capped at 1 MB. An empty
// body decodes to an empty request so validation reports the missing fields.
func decodeInquiry(w http.ResponseWriter, r *http.Request) (inquiry.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return inquiry.Request{}, fmt.Errorf("parse form: %w", err)
		}
		f := r.PostForm
		return inquiry.Request{
			Name:    f.Get("name"),
			Email:   f.Get("email"),
			Phone:   f.Get("phone"),
			Event:   f.Get("event"),
			Date:    f.Get("date"),
			Message: f.Get("message"),
			Guests:  f.Get("guests"),
			Budget:  f.Get("budget"),
			Venue:   f.Get("venue"),
		}, nil
	}

	var body inquiryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return inquiry.Request{}, nil
		}
		return inquiry.Request{}, fmt.Errorf("decode json: %w", err)
	}
	return body.request(), nil
}
