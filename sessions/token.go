package sessions

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "tenant-notes"

// sessionClaims is the payload of a session token. The token only names the
// session; the session record decides whether it is still live.
type sessionClaims struct {
	TenantID string `json:"tenant"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies HS256 session tokens.
type TokenSigner struct {
	key []byte
}

func NewTokenSigner(key []byte) (*TokenSigner, error) {
	if len(key) == 0 {
		return nil, errors.New("[NewTokenSigner] signing key is required")
	}
	return &TokenSigner{key: key}, nil
}

// Sign creates a signed token for the session.
func (ts *TokenSigner) Sign(s *Session) (string, error) {
	claims := sessionClaims{
		TenantID: s.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   s.UserID,
			ID:        s.ID,
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// SessionID verifies the token signature and expiry at now and returns the
// session id it carries.
func (ts *TokenSigner) SessionID(rawToken string, now time.Time) (string, error) {
	return ts.parse(rawToken, jwt.WithTimeFunc(func() time.Time { return now }))
}

// SessionIDIgnoringExpiry verifies only the signature. Used by logout, which
// must accept a token that expired a moment ago.
func (ts *TokenSigner) SessionIDIgnoringExpiry(rawToken string) (string, error) {
	return ts.parse(rawToken, jwt.WithoutClaimsValidation())
}

func (ts *TokenSigner) parse(rawToken string, opts ...jwt.ParserOption) (string, error) {
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(rawToken, claims, func(*jwt.Token) (any, error) {
		return ts.key, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("invalid session token: %w", err)
	}
	if claims.ID == "" {
		return "", errors.New("invalid session token: missing jti")
	}
	return claims.ID, nil
}
