// Package mail holds the delivery stub for outbound messages. Real delivery
// belongs to an external provider; the auth service only depends on the
// narrow Mailer seam defined in internal/auth.
package mail

import (
	"context"
	"time"

	"vidaplus.org/internal/obs"
)

// LogMailer records password-reset dispatches on the shared log transport
// instead of sending anything. Tokens are truncated: a log line must never be
// enough to complete a reset.
type LogMailer struct{}

// NewLogMailer constructs a LogMailer.
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

// SendPasswordReset implements auth.Mailer.
func (m *LogMailer) SendPasswordReset(ctx context.Context, to, token string, expiresAt time.Time) error {
	obs.LogEntry(map[string]any{
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		"level":      "info",
		"msg":        "password_reset_dispatch",
		"to":         to,
		"token_hint": truncate(token, 12),
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
