package email

import (
	"context"
	"log/slog"
)

// LogTransport records messages in the log instead of sending them. Used for
// local development and for deployments that only want inquiries in the
// platform logs.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport returns a Transport that never touches the network.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.logger.Info("email: delivery disabled, message logged",
		"to", m.To,
		"reply_to", m.ReplyTo,
		"subject", m.Subject,
		"html_bytes", len(m.HTML),
	)
	return nil
}

func (t *LogTransport) Verify(context.Context) error { return nil }
