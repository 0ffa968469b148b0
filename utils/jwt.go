package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"projectflow/models"
)

const (
	AccessTokenTTL   = 15 * time.Minute
	RefreshTokenTTL  = 24 * time.Hour
	RememberTokenTTL = 30 * 24 * time.Hour

	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrInvalidSessionToken = errors.New("invalid token")

type Claims struct {
	UserID       uuid.UUID `json:"user_id"`
	TokenVersion int       `json:"token_version"`
	TokenType    string    `json:"token_type"`
	Remember     bool      `json:"remember,omitempty"`
	jwt.RegisteredClaims
}

// SessionTokens is the pair handed to a client after sign-in.
type SessionTokens struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// GenerateSessionTokens signs an access and a refresh token for user. The
// remember flag stretches the refresh token from a day to a month.
func GenerateSessionTokens(secret string, user *models.User, remember bool, now time.Time) (*SessionTokens, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is not configured")
	}
	refreshTTL := RefreshTokenTTL
	if remember {
		refreshTTL = RememberTokenTTL
	}

	tokens := &SessionTokens{
		AccessExpiresAt:  now.Add(AccessTokenTTL),
		RefreshExpiresAt: now.Add(refreshTTL),
	}

	var err error
	tokens.AccessToken, err = signToken(secret, user, TokenTypeAccess, remember, now, tokens.AccessExpiresAt)
	if err != nil {
		return nil, err
	}
	tokens.RefreshToken, err = signToken(secret, user, TokenTypeRefresh, remember, now, tokens.RefreshExpiresAt)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func signToken(secret string, user *models.User, tokenType string, remember bool, now, expires time.Time) (string, error) {
	claims := &Claims{
		UserID:       user.ID,
		TokenVersion: user.Credentials.TokenVersion,
		TokenType:    tokenType,
		Remember:     remember,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseSessionToken verifies signature, expiry and token type.
func ParseSessionToken(secret, tokenString, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != wantType || claims.UserID == uuid.Nil {
		return nil, ErrInvalidSessionToken
	}
	return claims, nil
}
