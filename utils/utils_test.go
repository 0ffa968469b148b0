package utils

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"projectflow/models"
)

func TestPasswordPolicyViolations(t *testing.T) {
	tests := []struct {
		password string
		want     []string
	}{
		{password: "Str0ngPass", want: nil},
		{password: "Ab1", want: []string{"Passwords must be at least 8 characters."}},
		{password: "ALLUPPER123", want: []string{"Passwords must have at least one lowercase ('a'-'z')."}},
		{password: "", want: []string{
			"Passwords must be at least 8 characters.",
			"Passwords must have at least one digit ('0'-'9').",
			"Passwords must have at least one lowercase ('a'-'z').",
			"Passwords must have at least one uppercase ('A'-'Z').",
		}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PasswordPolicyViolations(tt.password), tt.password)
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Str0ngPass")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "Str0ngPass"))
	assert.False(t, CheckPassword(hash, "str0ngpass"))
	assert.False(t, CheckPassword("", "Str0ngPass"))
}

func TestSecureTokens(t *testing.T) {
	a, err := GenerateSecureToken()
	require.NoError(t, err)
	b, err := GenerateSecureToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Len(t, HashToken(a), 64)
	assert.Equal(t, HashToken(a), HashToken(a))
	assert.NotEqual(t, a, HashToken(a))
}

func TestSessionTokens(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	user := &models.User{Email: "a@example.com"}
	user.ID = uuid.New()
	user.Credentials.TokenVersion = 3

	tokens, err := GenerateSessionTokens("secret", user, false, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(RefreshTokenTTL), tokens.RefreshExpiresAt)

	claims, err := ParseSessionToken("secret", tokens.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, 3, claims.TokenVersion)

	_, err = ParseSessionToken("secret", tokens.AccessToken, TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrInvalidSessionToken)
	_, err = ParseSessionToken("other", tokens.AccessToken, TokenTypeAccess)
	assert.Error(t, err)

	remembered, err := GenerateSessionTokens("secret", user, true, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(RememberTokenTTL), remembered.RefreshExpiresAt)
	claims, err = ParseSessionToken("secret", remembered.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)
	assert.True(t, claims.Remember)

	expired, err := GenerateSessionTokens("secret", user, false, now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = ParseSessionToken("secret", expired.AccessToken, TokenTypeAccess)
	assert.Error(t, err)

	_, err = GenerateSessionTokens("", user, false, now)
	assert.Error(t, err)
}

func TestValidateStruct(t *testing.T) {
	type input struct {
		FirstName string `validate:"required"`
		Code      string `validate:"len=3"`
		Website   string `validate:"omitempty,url"`
	}
	assert.Nil(t, ValidateStruct(input{FirstName: "a", Code: "abc"}))
	assert.Equal(t,
		[]string{"first_name is required", "code must be exactly 3 characters", "website must be a valid URL"},
		ValidateStruct(input{Code: "ab", Website: "nope"}))
}

func TestValidateEmailFormat(t *testing.T) {
	assert.NoError(t, ValidateEmailFormat("dev@example.com"))
	assert.ErrorIs(t, ValidateEmailFormat("dev.example.com"), ErrInvalidEmailFormat)
	assert.ErrorIs(t, ValidateEmailFormat("  "), ErrInvalidEmailFormat)
}

func TestRetry(t *testing.T) {
	transient := errors.New("connection reset by peer")
	classify := func(err error) FailureClass {
		if errors.Is(err, transient) {
			return Transient
		}
		return Fatal
	}

	var slept []time.Duration
	policy := RetryPolicy{Attempts: 4, Backoff: 100 * time.Millisecond, Sleep: func(d time.Duration) { slept = append(slept, d) }}

	calls := 0
	err := Retry(context.Background(), policy, classify, func(context.Context) error {
		calls++
		if calls < 3 {
			return transient
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, slept)

	calls = 0
	fatal := errors.New("bad query")
	err = Retry(context.Background(), policy, classify, func(context.Context) error {
		calls++
		return fatal
	})
	assert.Same(t, fatal, err)
	assert.Equal(t, 1, calls)

	calls = 0
	err = Retry(context.Background(), RetryPolicy{Attempts: 2, Sleep: func(time.Duration) {}}, classify, func(context.Context) error {
		calls++
		return transient
	})
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 2, calls)
}

func TestClassifySMTPFailure(t *testing.T) {
	assert.Equal(t, Transient, ClassifySMTPFailure(errors.New("451 4.7.1 try again later")))
	assert.Equal(t, Fatal, ClassifySMTPFailure(errors.New("550 no such user")))
	assert.Equal(t, Fatal, ClassifySMTPFailure(nil))
}

type captureSender struct {
	messages []*gomail.Message
	err      error
}

func (c *captureSender) DialAndSend(m ...*gomail.Message) error {
	c.messages = append(c.messages, m...)
	return c.err
}

func TestSMTPMailer(t *testing.T) {
	sender := &captureSender{}
	mailer := NewSMTPMailerWithSender(SMTPConfig{
		FromEmail: "noreply@projectflow.dev",
		FromName:  "ProjectFlow",
		AppURL:    "https://app.projectflow.dev",
	}, sender)

	require.NoError(t, mailer.SendPasswordReset("dev@example.com", "Dev", "abc123"))
	require.Len(t, sender.messages, 1)
	msg := sender.messages[0]
	assert.Equal(t, []string{"dev@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Password Reset Request"}, msg.GetHeader("Subject"))
	assert.Contains(t, msg.GetHeader("From")[0], "noreply@projectflow.dev")

	link, err := url.Parse(mailer.link("/reset-password", "dev@example.com", "abc123"))
	require.NoError(t, err)
	assert.Equal(t, "/reset-password", link.Path)
	assert.Equal(t, "abc123", link.Query().Get("token"))
	assert.Equal(t, "dev@example.com", link.Query().Get("email"))

	sender.err = errors.New("421 too many connections")
	err = mailer.SendWelcome("dev@example.com", "Dev")
	require.Error(t, err)
	assert.Equal(t, Transient, ClassifySMTPFailure(err))

	err = mailer.SendEmail(EmailData{Template: "missing"})
	assert.True(t, strings.Contains(err.Error(), "not found"))
}
