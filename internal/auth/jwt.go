package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by a session token issued at login.
type Claims struct {
	ProfileID string `json:"profile_id"`
	Name      string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenTTL is how long an issued session token stays valid.
const TokenTTL = 24 * time.Hour

// Issuer signs and validates session tokens with an HS256 secret.
type Issuer struct {
	secret []byte
}

// NewIssuer requires a non-empty secret, normally from SESSION_SECRET.
func NewIssuer(secret string) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	return &Issuer{secret: []byte(secret)}, nil
}

// IssueToken signs a token for an authenticated profile.
func (i *Issuer) IssueToken(profileID, name string) (string, time.Time, error) {
	expiresAt := time.Now().Add(TokenTTL)
	claims := &Claims{
		ProfileID: profileID,
		Name:      name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken parses a token and returns its claims.
func (i *Issuer) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
