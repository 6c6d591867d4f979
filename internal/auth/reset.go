package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"sopline.io/internal/ids"
)

const minResetTokenLength = 10

// RequestPasswordReset creates a reset token for email and hands the link to
// the notifier. Unknown addresses succeed silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	token, err := ids.Token(resetTokenBytes)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	if err := s.store.ReplacePasswordReset(ctx, PasswordReset{
		ID:        ids.New(),
		UserID:    user.ID,
		TokenHash: HashToken(token),
		ExpiresAt: now.Add(s.resetTTL),
		CreatedAt: now,
	}); err != nil {
		return err
	}
	link := s.appURL + "/reset-password?token=" + url.QueryEscape(token)
	if err := s.notifier.SendPasswordReset(ctx, user.Email, link); err != nil {
		return fmt.Errorf("send reset link: %w", err)
	}
	return nil
}

// ResetPassword consumes token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if len(token) < minResetTokenLength {
		return fmt.Errorf("%w: reset token is invalid", ErrInvalidInput)
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	err = s.store.ConsumePasswordReset(ctx, HashToken(token), s.now().UTC(), hash)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: reset link is invalid or expired", ErrInvalidInput)
	}
	return err
}
