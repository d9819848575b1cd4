package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultResendEndpoint = "https://api.resend.com"

// ResendTransport is a Transport backed by the Resend HTTP API.
type ResendTransport struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// ResendOption configures a ResendTransport.
type ResendOption func(*ResendTransport)

// WithResendEndpoint points the transport at another API root. Tests use an
// httptest server.
func WithResendEndpoint(endpoint string) ResendOption {
	return func(t *ResendTransport) { t.endpoint = endpoint }
}

// WithHTTPClient replaces the default client (15s timeout).
func WithHTTPClient(c *http.Client) ResendOption {
	return func(t *ResendTransport) { t.httpClient = c }
}

// NewResendTransport returns a Transport that delivers email via Resend.
func NewResendTransport(apiKey string, opts ...ResendOption) *ResendTransport {
	t := &ResendTransport{
		apiKey:   apiKey,
		endpoint: defaultResendEndpoint,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ─── RESEND API SHAPES ────────────────────────────────────────────────────────

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo []string `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendError struct {
	Name       string `json:"name"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

type resendResponse struct {
	ID    string       `json:"id"`
	Error *resendError `json:"error"`

	// Error responses are also returned flat, without the wrapper.
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ─── TRANSPORT IMPLEMENTATION ─────────────────────────────────────────────────

// Send posts one message to /emails.
func (t *ResendTransport) Send(ctx context.Context, m Message) error {
	reqBody := resendRequest{
		From:    m.From,
		To:      []string{m.To},
		Subject: m.Subject,
		HTML:    m.HTML,
	}
	if m.ReplyTo != "" {
		reqBody.ReplyTo = []string{m.ReplyTo}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("email: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"/emails", bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	status, parsed, raw, err := t.do(req)
	if err != nil {
		return err
	}

	if name, msg := parsed.failure(); name != "" {
		return fmt.Errorf("email: Resend error %s: %s", name, msg)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("email: unexpected status %d: %.200s", status, raw)
	}
	return nil
}

// Verify lists domains to prove the API key is accepted. A send-only key is
// refused that endpoint with restricted_api_key, which still proves the key
// is real.
func (t *ResendTransport) Verify(ctx context.Context) error {
	if t.apiKey == "" {
		return fmt.Errorf("email: resend api key is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"/domains", nil)
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	status, parsed, raw, err := t.do(req)
	if err != nil {
		return err
	}

	if name, _ := parsed.failure(); name == "restricted_api_key" {
		return nil
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("email: verify: unexpected status %d: %.200s", status, raw)
	}
	return nil
}

func (t *ResendTransport) do(req *http.Request) (int, resendResponse, []byte, error) {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, resendResponse{}, nil, fmt.Errorf("email: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return 0, resendResponse{}, nil, fmt.Errorf("email: read response: %w", err)
	}

	var parsed resendResponse
	if len(bytes.TrimSpace(respBytes)) > 0 {
		if err := json.Unmarshal(respBytes, &parsed); err != nil {
			return 0, resendResponse{}, nil, fmt.Errorf("email: unmarshal response (status %d): %w", resp.StatusCode, err)
		}
	}
	return resp.StatusCode, parsed, respBytes, nil
}

func (r resendResponse) failure() (string, string) {
	if r.Error != nil {
		return r.Error.Name, r.Error.Message
	}
	return r.Name, r.Message
}
