package auth

import (
	"context"

	"sopline.io/internal/obs"
)

// Notifier delivers password reset links.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, resetURL string) error
}

// LogNotifier writes reset links to the service log instead of sending mail.
type LogNotifier struct{}

func (LogNotifier) SendPasswordReset(_ context.Context, email, resetURL string) error {
	obs.Logger().Info().
		Str("component", "notifier").
		Str("email", email).
		Str("reset_url", resetURL).
		Msg("password_reset_link")
	return nil
}
