package domain

// TokenKind distinguishes the signed tokens issued by the service
type TokenKind string

const (
	TokenKindAccess        TokenKind = "access"
	TokenKindRefresh       TokenKind = "refresh"
	TokenKindPasswordReset TokenKind = "password_reset"
)

// TokenPair represents a pair of access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
