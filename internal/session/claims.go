package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields the upstream embeds in its session token.
type Claims struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the token payload without verifying its signature. The
// upstream owns the signing key; the claims are only used for display and
// log correlation, never for authorization.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token claims: %w", err)
	}
	return claims, nil
}
