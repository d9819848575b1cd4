// Package config loads and validates all environment variables at startup.
// Every other package receives typed values; nothing reads os.Getenv directly.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without zoneinfo

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config is the fully-parsed application configuration.
type Config struct {
	// ── Server ────────────────────────────────────────────────────────────────
	Port       string `env:"PORT" envDefault:"3000" validate:"required,numeric"`
	Env        string `env:"ENV" envDefault:"development" validate:"oneof=development staging production"`
	TrustProxy bool   `env:"TRUST_PROXY" envDefault:"false"` // forwarded headers are client-controlled
	StaticDir  string `env:"STATIC_DIR" envDefault:"public"`

	// ── Mail transport ────────────────────────────────────────────────────────
	MailTransport string `env:"MAIL_TRANSPORT" envDefault:"smtp" validate:"oneof=smtp resend log"`

	// EmailUser is the SMTP login and the fallback sender and admin address.
	EmailUser        string `env:"EMAIL_USER" envDefault:"eventswedner@gmail.com" validate:"required,email"`
	EmailPass        string `env:"EMAIL_PASS"`
	EmailAppPassword string `env:"EMAIL_APP_PASSWORD"`
	SMTPHost         string `env:"SMTP_HOST" envDefault:"smtp.gmail.com" validate:"required_if=MailTransport smtp"`
	SMTPPort         int    `env:"SMTP_PORT" envDefault:"587" validate:"min=1,max=65535"`

	// SMTPPassword is EMAIL_PASS, or EMAIL_APP_PASSWORD when that is empty.
	SMTPPassword string `validate:"required_if=MailTransport smtp"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=MailTransport resend"`

	// ── Addressing ────────────────────────────────────────────────────────────
	EmailFromAddr string `env:"EMAIL_FROM_ADDR" validate:"omitempty,email"` // default EMAIL_USER
	EmailFromName string `env:"EMAIL_FROM_NAME" envDefault:"Wedner Events"`
	AdminEmail    string `env:"ADMIN_EMAIL" validate:"omitempty,email"` // default EMAIL_USER

	// ── Business details shown in messages ────────────────────────────────────
	BusinessName     string `env:"BUSINESS_NAME" envDefault:"Wedner Events" validate:"required"`
	BusinessPhone    string `env:"BUSINESS_PHONE"`
	BusinessWhatsApp string `env:"BUSINESS_WHATSAPP"`
	BusinessWebsite  string `env:"BUSINESS_WEBSITE" validate:"omitempty,url"`

	// ── Presentation ──────────────────────────────────────────────────────────
	MailLocale  string        `env:"MAIL_LOCALE" envDefault:"en-IN" validate:"required"`
	Timezone    string        `env:"TIMEZONE" envDefault:"Asia/Kolkata" validate:"required"`
	SendTimeout time.Duration `env:"SEND_TIMEOUT" envDefault:"15s" validate:"gte=0"`

	// ── Rate limiting ─────────────────────────────────────────────────────────
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m" validate:"gt=0"`
	RateLimitMax      int           `env:"RATE_LIMIT_MAX" envDefault:"5" validate:"min=1"`
	RateLimitBackend  string        `env:"RATE_LIMIT_BACKEND" envDefault:"memory" validate:"oneof=memory postgres"`
	DatabaseURL       string        `env:"DATABASE_URL" validate:"required_if=RateLimitBackend postgres"`
	SweepInterval     time.Duration `env:"RATE_LIMIT_SWEEP_INTERVAL" envDefault:"5m" validate:"gt=0"`
	LegacyEnabled     bool          `env:"LEGACY_ROUTE_ENABLED" envDefault:"true"`
	LegacyRateLimited bool          `env:"LEGACY_RATE_LIMITED" envDefault:"false"`

	location *time.Location
}

// Load reads all environment variables and returns a validated Config.
// It automatically loads a .env file from the working directory when present,
// so plain `go run ./cmd/api` works in development without any wrapper.
// Real environment variables always take precedence over .env values.
func Load() (*Config, error) {
	loadDotEnv(".env")
	return parse()
}

func parse() (*Config, error) {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	c.SMTPPassword = c.EmailPass
	if c.SMTPPassword == "" {
		c.SMTPPassword = c.EmailAppPassword
	}
	if c.EmailFromAddr == "" {
		c.EmailFromAddr = c.EmailUser
	}
	if c.AdminEmail == "" {
		c.AdminEmail = c.EmailUser
	}

	return c, c.validate()
}

// Location is the parsed TIMEZONE. Valid only after Load succeeded.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// ─── VALIDATION ──────────────────────────────────────────────────────────────

var structValidator = newValidator()

// newValidator reports fields by their env var name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("env"), ",")
		return name
	})
	return v
}

func (c *Config) validate() error {
	var errs []error

	if err := structValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, fieldError(fe))
		}
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err))
	}
	c.location = loc

	return errors.Join(errs...)
}

func fieldError(fe validator.FieldError) error {
	name := fe.Field()
	if fe.StructField() == "SMTPPassword" {
		name = "EMAIL_PASS or EMAIL_APP_PASSWORD"
	}

	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Errorf("missing required env var: %s", name)
	case "oneof":
		return fmt.Errorf("invalid %s %q: must be one of %s", name, fe.Value(), fe.Param())
	default:
		return fmt.Errorf("invalid %s %v: failed %q check", name, fe.Value(), fe.Tag())
	}
}

// ─── DOT-ENV LOADER ──────────────────────────────────────────────────────────

// loadDotEnv reads key=value pairs from path and sets them in the environment,
// but only for keys that are not already set. This means real env vars (e.g.
// from Docker / Railway / your shell) always win over the file.
// Missing file, blank lines, and #-comments are all silently ignored.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = strings.TrimSpace(value)
		// Strip optional surrounding quotes: KEY="value" or KEY='value'
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		if _, set := os.LookupEnv(key); !set {
			_ = os.Setenv(key, value)
		}
	}
}
