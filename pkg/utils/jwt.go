package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenExpired = errors.New("token expired")

// TokenClaims is what the client can read from a backend token.
// The signature is not checked; only the backend holds the key.
type TokenClaims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// InspectToken decodes a JWT without verifying it and rejects it when expired.
// Tokens without an exp claim are accepted.
func InspectToken(tokenString string, now time.Time) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("empty token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	out := &TokenClaims{}
	out.Subject, _ = claims.GetSubject()
	if role, ok := claims["role"].(string); ok {
		out.Role = role
	} else if role, ok := claims["rol"].(string); ok {
		out.Role = role
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if exp != nil {
		out.ExpiresAt = exp.Time
		if !now.Before(exp.Time) {
			return out, ErrTokenExpired
		}
	}
	return out, nil
}
