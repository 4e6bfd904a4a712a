package auth

import (
	"context"
)

type Kind int

const (
	NoIdentification Kind = iota
	SessionAuth
	TokenAuth
	BasicAuth
	UnknownScheme
)

func (k Kind) String() string {
	switch k {
	case SessionAuth:
		return "session"
	case TokenAuth:
		return "auth_token"
	case BasicAuth:
		return "basic"
	case UnknownScheme:
		return "unknown_scheme"
	}
	return "none"
}

// Authentication is the outcome of resolving one request.
type Authentication struct {
	Kind Kind
	// Session is set for SessionAuth.
	Session *Session
	// Token is set for TokenAuth.
	Token *AuthToken
	// User is set for TokenAuth and BasicAuth.
	User *User
	// Scheme and Value are set for UnknownScheme.
	Scheme string
	Value  string
}

// ResolveUser returns the user behind the authentication, or nil when anonymous.
func (a Authentication) ResolveUser(ctx context.Context, users UserStore) (*User, error) {
	switch a.Kind {
	case TokenAuth, BasicAuth:
		return a.User, nil
	case SessionAuth:
		if a.Session == nil || a.Session.UserID == 0 {
			return nil, nil
		}
		return users.GetUserByID(ctx, a.Session.UserID)
	}
	return nil, nil
}

type contextKey struct{}

func WithAuthentication(ctx context.Context, a Authentication) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// FromContext returns the Authentication the middleware attached, or
// NoIdentification.
func FromContext(ctx context.Context) Authentication {
	if a, ok := ctx.Value(contextKey{}).(Authentication); ok {
		return a
	}
	return Authentication{Kind: NoIdentification}
}
