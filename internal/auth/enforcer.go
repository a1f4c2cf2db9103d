// Package auth resolves request credentials to a user and checks roles.
// Every ambiguity denies: missing configuration, missing or malformed
// credentials and resolver failures all end in an AuthorizationError.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// AdminRole satisfies every role requirement
const AdminRole = "admin"

// User is an authenticated caller
type User struct {
	ID    string
	Email string
	Roles []string
}

// Identity is the handle recorded for audit attribution
func (u User) Identity() string {
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}

// HasRole reports whether u holds role or is an administrator
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role || r == AdminRole {
			return true
		}
	}
	return false
}

// AuthorizationError is a denial. Status is 401 for unauthenticated and 403
// for insufficient role.
type AuthorizationError struct {
	Status  int
	Message string
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

func unauthenticated(msg string) error {
	return &AuthorizationError{Status: http.StatusUnauthorized, Message: msg}
}

func forbidden(msg string) error {
	return &AuthorizationError{Status: http.StatusForbidden, Message: msg}
}

// ErrNotConfigured is returned by resolvers that have no key material
var ErrNotConfigured = errors.New("authentication is not configured")

// Resolver turns opaque credentials into a user
type Resolver interface {
	Resolve(ctx context.Context, credentials string) (User, error)
}

// Enforcer guards operations with a required role
type Enforcer struct {
	resolver Resolver
	cookie   string
	logger   *slog.Logger
}

// NewEnforcer creates an enforcer. A nil resolver denies every request.
// Credentials are read from the bearer token, then from sessionCookie.
func NewEnforcer(logger *slog.Logger, resolver Resolver, sessionCookie string) *Enforcer {
	return &Enforcer{
		resolver: resolver,
		cookie:   sessionCookie,
		logger:   logger.With("component", "auth"),
	}
}

// Enforce authenticates r and checks that the caller holds requiredRole
func (e *Enforcer) Enforce(r *http.Request, requiredRole string) (User, error) {
	if strings.TrimSpace(requiredRole) == "" {
		e.logger.Warn("Denied request: no required role configured", "path", r.URL.Path)
		return User{}, forbidden("required role is not configured")
	}

	user, err := e.authenticate(r)
	if err != nil {
		return User{}, err
	}

	if !user.HasRole(requiredRole) {
		e.logger.Info("Denied request: insufficient role",
			"user", user.Identity(),
			"required_role", requiredRole,
			"path", r.URL.Path,
		)
		return User{}, forbidden("role " + requiredRole + " is required")
	}
	return user, nil
}

// Identify resolves the caller without requiring a role. It never fails;
// ok is false when the request carries no valid credentials.
func (e *Enforcer) Identify(r *http.Request) (User, bool) {
	user, err := e.authenticate(r)
	if err != nil {
		return User{}, false
	}
	return user, true
}

func (e *Enforcer) authenticate(r *http.Request) (User, error) {
	if e.resolver == nil {
		return User{}, unauthenticated(ErrNotConfigured.Error())
	}

	credentials, err := e.credentials(r)
	if err != nil {
		return User{}, err
	}

	user, err := e.resolver.Resolve(r.Context(), credentials)
	if err != nil {
		e.logger.Info("Denied request: credentials rejected", "path", r.URL.Path, "error", err)
		if errors.Is(err, ErrNotConfigured) {
			return User{}, unauthenticated(ErrNotConfigured.Error())
		}
		return User{}, unauthenticated("invalid or expired credentials")
	}
	if user.Identity() == "" {
		return User{}, unauthenticated("credentials carry no identity")
	}
	return user, nil
}

func (e *Enforcer) credentials(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", unauthenticated("invalid Authorization header format (expected 'Bearer <token>')")
		}
		return strings.TrimSpace(token), nil
	}

	if e.cookie != "" {
		if c, err := r.Cookie(e.cookie); err == nil && c.Value != "" {
			return c.Value, nil
		}
	}
	return "", unauthenticated("missing credentials")
}
