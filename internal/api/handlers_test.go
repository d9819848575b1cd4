package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wednerevents/inquiry-backend/internal/api"
	"github.com/wednerevents/inquiry-backend/internal/email"
	"github.com/wednerevents/inquiry-backend/internal/inquiry"
	"github.com/wednerevents/inquiry-backend/internal/ratelimit"
	"github.com/wednerevents/inquiry-backend/internal/submission"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

// stubMailer captures sent messages. failTo makes sends to that address fail.
type stubMailer struct {
	mu     sync.Mutex
	sent   []email.Message
	failTo string
}

func (m *stubMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo != "" && msg.To == m.failTo {
		return errors.New("smtp: 550 mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *stubMailer) Verify(context.Context) error { return nil }

func (m *stubMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

const adminInbox = "eventswedner@gmail.com"

type testDeps struct {
	mailer  *stubMailer
	handler http.Handler
}

type testOptions struct {
	cfg           api.Config
	max           int
	legacyLimited bool
	noLegacy      bool
	failTo        string
}

func newTestServer(t *testing.T, overrides ...func(*testOptions)) *testDeps {
	t.Helper()

	opts := testOptions{
		cfg: api.Config{Env: "development", Version: "3.0"},
		max: ratelimit.DefaultMax,
	}
	for _, fn := range overrides {
		fn(&opts)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ml := &stubMailer{failTo: opts.failTo}

	notifier, err := email.NewNotifier(ml, email.NotifierConfig{
		From:     email.FormatAddress("Wedner Events", adminInbox),
		AdminTo:  adminInbox,
		Business: email.Business{Name: "Wedner Events", Email: adminInbox},
	}, logger)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	limiter := ratelimit.NewMemory(ratelimit.DefaultWindow, opts.max)
	submit := submission.NewHandler(limiter, notifier, inquiry.Enhanced, logger)

	var legacy *submission.Handler
	if !opts.noLegacy {
		var legacyLimiter ratelimit.Limiter
		if opts.legacyLimited {
			legacyLimiter = limiter
		}
		legacy = submission.NewHandler(legacyLimiter, notifier, inquiry.Basic, logger)
	}

	return &testDeps{
		mailer:  ml,
		handler: api.NewServer(submit, legacy, opts.cfg, logger),
	}
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		bodyReader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dst); err != nil {
		t.Fatalf("decode response body: %v (raw: %s)", err, rr.Body.String())
	}
}

func expectEnvelope(t *testing.T, rr *httptest.ResponseRecorder, status int, success bool, message string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
	var got envelope
	decodeJSON(t, rr, &got)
	if got.Success != success || got.Message != message {
		t.Fatalf("expected {%v %q}, got {%v %q}", success, message, got.Success, got.Message)
	}
}

func validBody() map[string]any {
	return map[string]any{
		"name":    "Asha",
		"email":   "asha@example.com",
		"phone":   "98765 43210",
		"event":   "Wedding",
		"message": "Planning a December wedding.",
		"date":    "2025-12-25",
		"guests":  250,
		"budget":  "10-15 lakh",
		"venue":   "Udaipur",
	}
}

// ─── GET /health, /healthz, /test ─────────────────────────────────────────────

func TestHealth(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/health", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var resp struct {
		Status    string `json:"status"`
		Service   string `json:"service"`
		Version   string `json:"version"`
		Timestamp string `json:"timestamp"`
	}
	decodeJSON(t, rr, &resp)

	if resp.Status != "running" || resp.Service != "Wedner Events API" || resp.Version != "3.0" {
		t.Errorf("unexpected health body: %+v", resp)
	}
	if _, err := time.Parse(time.RFC3339Nano, resp.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC 3339: %v", resp.Timestamp, err)
	}
}

func TestHealthz(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/healthz", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestTestEndpoint(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/test", nil, nil)

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["message"] != "Backend is working perfectly!" {
		t.Errorf("unexpected body: %v", resp)
	}
}

// ─── POST /send-email ─────────────────────────────────────────────────────────

func TestSubmit_ValidInquirySendsTwoMessages(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/send-email", validBody(), nil)

	expectEnvelope(t, rr, http.StatusOK, true, "Message sent successfully")

	if deps.mailer.count() != 2 {
		t.Fatalf("expected 2 messages, got %d", deps.mailer.count())
	}

	var admin, customer *email.Message
	for i := range deps.mailer.sent {
		switch deps.mailer.sent[i].To {
		case adminInbox:
			admin = &deps.mailer.sent[i]
		case "asha@example.com":
			customer = &deps.mailer.sent[i]
		}
	}
	if admin == nil || customer == nil {
		t.Fatalf("expected admin and customer messages, got %+v", deps.mailer.sent)
	}
	if !strings.Contains(admin.Subject, "Wedding") || !strings.Contains(admin.Subject, "Asha") {
		t.Errorf("admin subject %q missing event or name", admin.Subject)
	}
	if admin.ReplyTo != "asha@example.com" {
		t.Errorf("admin reply-to = %q", admin.ReplyTo)
	}
	if !strings.Contains(admin.HTML, "250") || !strings.Contains(admin.HTML, "Udaipur") {
		t.Error("admin body should carry the optional fields")
	}
	if customer.Subject != "Thank You for Contacting Wedner Events - Wedding" {
		t.Errorf("customer subject = %q", customer.Subject)
	}

	if rr.Header().Get("X-RateLimit-Limit") != "5" || rr.Header().Get("X-RateLimit-Remaining") != "4" {
		t.Errorf("unexpected rate-limit headers: %v", rr.Header())
	}
}

func TestSubmit_BadPhoneSendsNothing(t *testing.T) {
	deps := newTestServer(t)
	body := validBody()
	body["phone"] = "12345"

	rr := doRequest(t, deps.handler, http.MethodPost, "/send-email", body, nil)

	expectEnvelope(t, rr, http.StatusBadRequest, false, "Invalid phone number")
	if deps.mailer.count() != 0 {
		t.Errorf("expected no messages, got %d", deps.mailer.count())
	}
}

func TestSubmit_BadEmail(t *testing.T) {
	deps := newTestServer(t)
	body := validBody()
	body["email"] = "asha@example"

	rr := doRequest(t, deps.handler, http.MethodPost, "/send-email", body, nil)
	expectEnvelope(t, rr, http.StatusBadRequest, false, "Invalid email address")
}

func TestSubmit_MissingFields(t *testing.T) {
	deps := newTestServer(t)
	body := validBody()
	delete(body, "message")

	rr := doRequest(t, deps.handler, http.MethodPost, "/send-email", body, nil)
	expectEnvelope(t, rr, http.StatusBadRequest, false, "Required fields missing")
}

func TestSubmit_EmptyBodyIsMissingFields(t *testing.T) {
	deps := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/send-email", nil)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	deps.handler.ServeHTTP(rr, req)

	expectEnvelope(t, rr, http.StatusBadRequest, false, "Required fields missing")
}

func TestSubmit_MalformedJSON(t *testing.T) {
	deps := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/send-email", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	deps.handler.ServeHTTP(rr, req)

	expectEnvelope(t, rr, http.StatusBadRequest, false, "Invalid request body")
	if rr.Header().Get("X-RateLimit-Limit") != "" {
		t.Error("malformed bodies should not reach the limiter")
	}
}

func TestSubmit_FormEncodedBody(t *testing.T) {
	deps := newTestServer(t)
	form := url.Values{
		"name":    {"Ravi"},
		"email":   {"ravi@example.com"},
		"phone":   {"9123456789"},
		"event":   {"Birthday"},
		"message": {"Surprise party"},
	}
	req := httptest.NewRequest(http.MethodPost, "/send-email", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	deps.handler.ServeHTTP(rr, req)

	expectEnvelope(t, rr, http.StatusOK, true, "Message sent successfully")
	if deps.mailer.count() != 2 {
		t.Errorf("expected 2 messages, got %d", deps.mailer.count())
	}
}

func TestSubmit_DeliveryFailureIs500(t *testing.T) {
	deps := newTestServer(t, func(o *testOptions) { o.failTo = "asha@example.com" })

	rr := doRequest(t, deps.handler, http.MethodPost, "/send-email", validBody(), nil)
	expectEnvelope(t, rr, http.StatusInternalServerError, false, "Failed to send message")
}

func TestSubmit_SixthRequestIsRateLimited(t *testing.T) {
	deps := newTestServer(t)

	for i := 0; i < 5; i++ {
		rr := doRequest(t, deps.handler, http.MethodPost, "/send-email", validBody(), nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
	}

	rr := doRequest(t, deps.handler, http.MethodPost, "/send-email", validBody(), nil)
	expectEnvelope(t, rr, http.StatusTooManyRequests, false, "Too many requests from this IP, please try again later.")

	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("remaining = %q", rr.Header().Get("X-RateLimit-Remaining"))
	}
	if deps.mailer.count() != 10 {
		t.Errorf("expected 10 messages from the admitted requests, got %d", deps.mailer.count())
	}
}

func TestSubmit_InvalidRequestsCountTowardsLimit(t *testing.T) {
	deps := newTestServer(t, func(o *testOptions) { o.max = 1 })

	body := validBody()
	body["phone"] = "12345"
	doRequest(t, deps.handler, http.MethodPost, "/send-email", body, nil)

	rr := doRequest(t, deps.handler, http.MethodPost, "/send-email", validBody(), nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
}

func TestSubmit_ForwardedHeadersIgnoredByDefault(t *testing.T) {
	deps := newTestServer(t)

	for i := 1; i <= 5; i++ {
		rr := doRequest(t, deps.handler, http.MethodPost, "/send-email", validBody(),
			map[string]string{"X-Forwarded-For": fmt.Sprintf("198.51.100.%d", i)})
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}

	rr := doRequest(t, deps.handler, http.MethodPost, "/send-email", validBody(),
		map[string]string{"X-Forwarded-For": "198.51.100.6", "X-Real-IP": "198.51.100.7"})
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("rotating forwarded headers from one socket must not reset the limit: got %d", rr.Code)
	}
	if deps.mailer.count() != 10 {
		t.Errorf("expected 10 messages, got %d", deps.mailer.count())
	}
}

func TestSubmit_TrustedProxyKeysByForwardedAddress(t *testing.T) {
	deps := newTestServer(t, func(o *testOptions) {
		o.max = 1
		o.cfg.TrustProxy = true
	})

	a := doRequest(t, deps.handler, http.MethodPost, "/send-email", validBody(),
		map[string]string{"X-Forwarded-For": "203.0.113.1"})
	b := doRequest(t, deps.handler, http.MethodPost, "/send-email", validBody(),
		map[string]string{"X-Forwarded-For": "203.0.113.2"})

	if a.Code != http.StatusOK || b.Code != http.StatusOK {
		t.Fatalf("distinct forwarded clients should be limited separately: %d, %d", a.Code, b.Code)
	}
}

func TestSubmit_GetIsMethodNotAllowed(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/send-email", nil, nil)

	expectEnvelope(t, rr, http.StatusMethodNotAllowed, false, "This endpoint only supports POST request")
	if deps.mailer.count() != 0 {
		t.Error("GET must not send anything")
	}
}

func TestSubmit_PreflightIsAnswered(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodOptions, "/send-email", nil,
		map[string]string{"Origin": "https://wednerevents.com"})

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://wednerevents.com" {
		t.Errorf("allow-origin = %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
}

// ─── POST /api/send-email ─────────────────────────────────────────────────────

func TestLegacySubmit_SendsAdminOnly(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/send-email", validBody(), nil)

	expectEnvelope(t, rr, http.StatusOK, true, "Message sent successfully")
	if deps.mailer.count() != 1 {
		t.Fatalf("expected 1 message, got %d", deps.mailer.count())
	}
	msg := deps.mailer.sent[0]
	if msg.To != adminInbox || msg.Subject != "New Wedding Inquiry" {
		t.Errorf("unexpected legacy message: to=%q subject=%q", msg.To, msg.Subject)
	}
	if rr.Header().Get("X-RateLimit-Limit") != "" {
		t.Error("legacy route is unlimited by default")
	}
}

func TestLegacySubmit_StillValidatesPhone(t *testing.T) {
	deps := newTestServer(t)
	body := validBody()
	body["phone"] = "12345"

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/send-email", body, nil)
	expectEnvelope(t, rr, http.StatusBadRequest, false, "Invalid phone number")
}

func TestLegacySubmit_SharesLimiterWhenEnabled(t *testing.T) {
	deps := newTestServer(t, func(o *testOptions) {
		o.max = 1
		o.legacyLimited = true
	})

	doRequest(t, deps.handler, http.MethodPost, "/send-email", validBody(), nil)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/send-email", validBody(), nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
}

func TestLegacySubmit_DisabledIsNotFound(t *testing.T) {
	deps := newTestServer(t, func(o *testOptions) { o.noLegacy = true })
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/send-email", validBody(), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

// ─── PANIC RECOVERY ───────────────────────────────────────────────────────────

type panickingNotifier struct{}

func (panickingNotifier) Notify(context.Context, inquiry.Inquiry) error {
	panic("template exploded")
}

func TestSubmit_PanicIsJSON500(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	submit := submission.NewHandler(nil, panickingNotifier{}, inquiry.Enhanced, logger)
	handler := api.NewServer(submit, nil, api.Config{Env: "development"}, logger)

	rr := doRequest(t, handler, http.MethodPost, "/send-email", validBody(), nil)

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}
	expectEnvelope(t, rr, http.StatusInternalServerError, false, "Internal server error")
}

// ─── STATIC FRONTEND ──────────────────────────────────────────────────────────

func TestStaticDirIsServed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>Wedner</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	deps := newTestServer(t, func(o *testOptions) { o.cfg.StaticDir = dir })

	rr := doRequest(t, deps.handler, http.MethodGet, "/", nil, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Wedner") {
		t.Fatalf("expected index.html, got %d: %s", rr.Code, rr.Body.String())
	}

	// The explicit GET route still wins over the file server.
	rr = doRequest(t, deps.handler, http.MethodGet, "/send-email", nil, nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestUnknownPathIsJSON404(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/nope", nil, nil)
	expectEnvelope(t, rr, http.StatusNotFound, false, "not found")
}
