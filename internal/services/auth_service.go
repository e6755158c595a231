package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"

	"org-dashboard/internal/gateway"
	"org-dashboard/security"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/mailer"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidResetToken  = errors.New("invalid or expired password reset token")
	ErrInvalidRedirect    = errors.New("redirect url must point to this site")
)

const resetConfirmPath = "/reset-password/confirm"

type AuthService struct {
	gw           *gateway.Gateway
	resetLimiter *security.RateLimiter
}

// NewAuthService builds the auth flows. resetLimiter may be nil to disable
// reset throttling.
func NewAuthService(gw *gateway.Gateway, resetLimiter *security.RateLimiter) *AuthService {
	return &AuthService{
		gw:           gw,
		resetLimiter: resetLimiter,
	}
}

// SignIn checks the credentials and returns the user record. Unknown emails
// and wrong passwords produce the same error.
func (s *AuthService) SignIn(_ context.Context, email, password string) (*core.Record, error) {
	rec, err := s.gw.App.FindAuthRecordByEmail(UsersCollection, strings.TrimSpace(email))
	if err != nil || !rec.ValidatePassword(password) {
		return nil, ErrInvalidCredentials
	}
	return rec, nil
}

// SignOut rotates the token key of the user, invalidating every token issued
// to them.
func (s *AuthService) SignOut(ctx context.Context, rec *core.Record) error {
	rec.RefreshTokenKey()
	if err := s.gw.Save(ctx, rec); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}

	slog.Info("User signed out", "userID", rec.Id)
	return nil
}

// RequestPasswordReset mails a reset link to email if it belongs to a user.
// Unknown addresses return nil so callers cannot probe for accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, redirectURL string) error {
	target, err := s.resetTarget(redirectURL)
	if err != nil {
		return err
	}

	email = strings.TrimSpace(email)
	if s.resetLimiter != nil {
		if err := s.resetLimiter.Check(email); err != nil {
			return err
		}
	}

	rec, err := s.gw.App.FindAuthRecordByEmail(UsersCollection, email)
	if err != nil {
		slog.Info("Password reset requested for unknown email")
		return nil
	}

	token, err := rec.NewPasswordResetToken()
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	q := target.Query()
	q.Set("token", token)
	target.RawQuery = q.Encode()

	if err := s.sendResetMail(rec, target.String()); err != nil {
		return err
	}

	slog.Info("Password reset mail sent", "userID", rec.Id)
	return nil
}

// resetTarget resolves the link the reset mail points to. It must live under
// the public URL of the dashboard.
func (s *AuthService) resetTarget(redirectURL string) (*url.URL, error) {
	base := s.gw.Config.PublicURL
	if strings.TrimSpace(redirectURL) == "" {
		redirectURL = base + resetConfirmPath
	}

	target, err := url.Parse(redirectURL)
	if err != nil {
		return nil, ErrInvalidRedirect
	}
	if redirectURL != base && !strings.HasPrefix(redirectURL, base+"/") && !strings.HasPrefix(redirectURL, base+"?") {
		return nil, ErrInvalidRedirect
	}
	return target, nil
}

func (s *AuthService) sendResetMail(rec *core.Record, link string) error {
	meta := s.gw.App.Settings().Meta

	message := &mailer.Message{
		From: mail.Address{
			Name:    meta.SenderName,
			Address: meta.SenderAddress,
		},
		To:      []mail.Address{{Address: rec.Email()}},
		Subject: "Reset your password",
		HTML: fmt.Sprintf(
			`<p>Hello %s,</p><p>Follow the link below to choose a new password.</p><p><a href="%s">Reset password</a></p><p>If you did not ask for this, you can ignore this email.</p>`,
			html.EscapeString(rec.GetString("name")),
			html.EscapeString(link),
		),
	}

	if err := s.gw.App.NewMailClient().Send(message); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// ConfirmPasswordReset sets a new password for the user the token was issued
// to. The token key is rotated so the token cannot be used twice.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	rec, err := s.gw.App.FindAuthRecordByToken(token, core.TokenTypePasswordReset)
	if err != nil {
		return ErrInvalidResetToken
	}

	rec.SetPassword(password)
	rec.RefreshTokenKey()
	if err := s.gw.Save(ctx, rec); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	slog.Info("Password reset", "userID", rec.Id)
	return nil
}

// UpdatePassword changes the password of a signed in user.
func (s *AuthService) UpdatePassword(ctx context.Context, rec *core.Record, password string) error {
	rec.SetPassword(password)
	if err := s.gw.Save(ctx, rec); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	slog.Info("Password updated", "userID", rec.Id)
	return nil
}
