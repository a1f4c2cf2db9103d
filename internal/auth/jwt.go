package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims expected in session tokens
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles"`
}

// JWTResolver validates HS256 session tokens
type JWTResolver struct {
	secret []byte
	issuer string
}

// NewJWTResolver returns nil when secret is empty so callers fail closed
func NewJWTResolver(secret, issuer string) *JWTResolver {
	if secret == "" {
		return nil
	}
	return &JWTResolver{secret: []byte(secret), issuer: issuer}
}

// Resolve parses and validates a token string
func (v *JWTResolver) Resolve(_ context.Context, tokenStr string) (User, error) {
	if v == nil || len(v.secret) == 0 {
		return User{}, ErrNotConfigured
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return User{}, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return User{}, errors.New("invalid token")
	}
	if claims.Subject == "" && claims.Email == "" {
		return User{}, errors.New("token subject is required")
	}

	return User{
		ID:    claims.Subject,
		Email: claims.Email,
		Roles: claims.Roles,
	}, nil
}

// Issue signs a token for u valid for ttl from now
func (v *JWTResolver) Issue(u User, ttl time.Duration, now time.Time) (string, error) {
	if v == nil || len(v.secret) == 0 {
		return "", ErrNotConfigured
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: u.Email,
		Roles: u.Roles,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
