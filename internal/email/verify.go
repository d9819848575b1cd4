package email

import (
	"context"
	"log/slog"
	"time"
)

// VerifyAsync runs t.Verify in the background and logs the outcome. It
// returns immediately so the server starts serving while the mail relay is
// still being checked. onResult, if non-nil, receives the verify error (nil
// on success).
func VerifyAsync(ctx context.Context, t Transport, timeout time.Duration, logger *slog.Logger, onResult func(error)) {
	go func() {
		vctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		err := t.Verify(vctx)
		if err != nil {
			logger.Error("email: configuration error", "error", err)
		} else {
			logger.Info("email: service is ready")
		}
		if onResult != nil {
			onResult(err)
		}
	}()
}
