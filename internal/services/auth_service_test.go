package services

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenInLink = regexp.MustCompile(`\?token=([A-Za-z0-9_\-.]+)`)

func TestAuthService_SignIn(t *testing.T) {
	env := setupEnv(t)
	svc := NewAuthService(env.gw, nil)
	ctx := context.Background()
	user := env.createUser(t, "Alice", "alice@example.com")

	rec, err := svc.SignIn(ctx, " alice@example.com ", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.Id, rec.Id)

	_, err = svc.SignIn(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_SignOutRotatesTokenKey(t *testing.T) {
	env := setupEnv(t)
	svc := NewAuthService(env.gw, nil)
	user := env.createUser(t, "Alice", "alice@example.com")
	before := user.TokenKey()

	require.NoError(t, svc.SignOut(context.Background(), user))

	rec, err := env.app.FindRecordById(UsersCollection, user.Id)
	require.NoError(t, err)
	assert.NotEqual(t, before, rec.TokenKey())
}

func TestAuthService_PasswordResetFlow(t *testing.T) {
	env := setupEnv(t)
	svc := NewAuthService(env.gw, nil)
	ctx := context.Background()
	user := env.createUser(t, "Alice", "alice@example.com")

	require.NoError(t, svc.RequestPasswordReset(ctx, "alice@example.com", ""))
	require.Equal(t, 1, env.app.TestMailer.TotalSend())

	msg := env.app.TestMailer.LastMessage()
	assert.Equal(t, "alice@example.com", msg.To[0].Address)
	assert.Contains(t, msg.HTML, "http://dash.test/reset-password/confirm?token=")

	match := tokenInLink.FindStringSubmatch(msg.HTML)
	require.Len(t, match, 2)

	require.NoError(t, svc.ConfirmPasswordReset(ctx, match[1], "new-password-1"))

	_, err := svc.SignIn(ctx, "alice@example.com", "new-password-1")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.ConfirmPasswordReset(ctx, match[1], "another-pass"), ErrInvalidResetToken,
		"a used token is rejected")

	rec, err := env.app.FindRecordById(UsersCollection, user.Id)
	require.NoError(t, err)
	assert.True(t, rec.ValidatePassword("new-password-1"))
}

func TestAuthService_PasswordResetUnknownEmail(t *testing.T) {
	env := setupEnv(t)
	svc := NewAuthService(env.gw, nil)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "nobody@example.com", ""))
	assert.Zero(t, env.app.TestMailer.TotalSend())
}

func TestAuthService_PasswordResetRedirect(t *testing.T) {
	env := setupEnv(t)
	svc := NewAuthService(env.gw, nil)
	env.createUser(t, "Alice", "alice@example.com")

	tests := []struct {
		name     string
		redirect string
		wantErr  error
	}{
		{"same site", "http://dash.test/account/reset", nil},
		{"other site", "https://evil.example/reset", ErrInvalidRedirect},
		{"prefix trick", "http://dash.test.evil.example/reset", ErrInvalidRedirect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.RequestPasswordReset(context.Background(), "alice@example.com", tt.redirect)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAuthService_UpdatePassword(t *testing.T) {
	env := setupEnv(t)
	svc := NewAuthService(env.gw, nil)
	ctx := context.Background()
	user := env.createUser(t, "Alice", "alice@example.com")

	require.NoError(t, svc.UpdatePassword(ctx, user, "changed-pass"))

	_, err := svc.SignIn(ctx, "alice@example.com", "changed-pass")
	assert.NoError(t, err)
	_, err = svc.SignIn(ctx, "alice@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
