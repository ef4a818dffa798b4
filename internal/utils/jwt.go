package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prperemyshlev/media-favourites/internal/domain"
)

// ErrInvalidToken is returned for any token that fails verification
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenClaims represents the claims carried by every issued token
type TokenClaims struct {
	Kind domain.TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

type kindSettings struct {
	secret []byte
	expiry time.Duration
}

// TokenManager issues and validates access, refresh and password reset tokens.
// Each kind is signed with its own secret.
type TokenManager struct {
	kinds map[domain.TokenKind]kindSettings
	now   func() time.Time
}

// TokenSettings configures one token kind
type TokenSettings struct {
	Secret string
	Expiry time.Duration
}

// NewTokenManager creates a new token manager
func NewTokenManager(access, refresh, reset TokenSettings) *TokenManager {
	return &TokenManager{
		kinds: map[domain.TokenKind]kindSettings{
			domain.TokenKindAccess:        {secret: []byte(access.Secret), expiry: access.Expiry},
			domain.TokenKindRefresh:       {secret: []byte(refresh.Secret), expiry: refresh.Expiry},
			domain.TokenKindPasswordReset: {secret: []byte(reset.Secret), expiry: reset.Expiry},
		},
		now: time.Now,
	}
}

// WithClock returns a copy of the manager that reads time from now
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	return &TokenManager{kinds: m.kinds, now: now}
}

// GenerateAccessToken generates a new access token
func (m *TokenManager) GenerateAccessToken(userID string) (string, error) {
	return m.generate(domain.TokenKindAccess, userID)
}

// GenerateRefreshToken generates a new refresh token
func (m *TokenManager) GenerateRefreshToken(userID string) (string, error) {
	return m.generate(domain.TokenKindRefresh, userID)
}

// GeneratePasswordResetToken generates a new password reset token
func (m *TokenManager) GeneratePasswordResetToken(userID string) (string, error) {
	return m.generate(domain.TokenKindPasswordReset, userID)
}

// ValidateAccessToken validates an access token and returns the user ID
func (m *TokenManager) ValidateAccessToken(token string) (string, error) {
	return m.validate(domain.TokenKindAccess, token)
}

// ValidateRefreshToken validates a refresh token and returns the user ID
func (m *TokenManager) ValidateRefreshToken(token string) (string, error) {
	return m.validate(domain.TokenKindRefresh, token)
}

// ValidatePasswordResetToken validates a password reset token and returns the user ID
func (m *TokenManager) ValidatePasswordResetToken(token string) (string, error) {
	return m.validate(domain.TokenKindPasswordReset, token)
}

// Expiry returns the lifetime configured for kind
func (m *TokenManager) Expiry(kind domain.TokenKind) time.Duration {
	return m.kinds[kind].expiry
}

func (m *TokenManager) generate(kind domain.TokenKind, userID string) (string, error) {
	ks, ok := m.kinds[kind]
	if !ok {
		return "", fmt.Errorf("unknown token kind %q", kind)
	}
	if userID == "" {
		return "", errors.New("user id is empty")
	}

	now := m.now()
	claims := TokenClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ks.expiry)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(ks.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	return tokenString, nil
}

func (m *TokenManager) validate(kind domain.TokenKind, tokenString string) (string, error) {
	ks, ok := m.kinds[kind]
	if !ok || tokenString == "" {
		return "", ErrInvalidToken
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ks.secret, nil
	},
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	if claims.Kind != kind || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
