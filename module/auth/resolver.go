package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nitro-repo/nitro-repo/module/repository/api"

	"github.com/rs/zerolog/log"
)

const (
	SessionCookie = "session"
	// basicTokenUser lets Basic-only clients such as Maven send an auth token.
	basicTokenUser = "token"
)

// Resolver turns request credentials into an Authentication.
type Resolver struct {
	Sessions SessionManager
	Users    UserStore
	Now      func() time.Time
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Resolve returns the request's Authentication and, when a session was created
// or rotated, the session whose cookie must be sent back. Only undecodable
// basic credentials are an error.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (Authentication, *Session, error) {
	logger := log.Ctx(ctx)
	if cookie, err := req.Cookie(SessionCookie); err == nil {
		session, err := r.Sessions.RetrieveSession(ctx, cookie.Value)
		if err != nil {
			return Authentication{}, nil, err
		}
		if session == nil {
			if req.Header.Get("Origin") == "" {
				return Authentication{Kind: NoIdentification}, nil, nil
			}
			logger.Trace().Msg("Session cookie not found, creating a new session")
			return r.newSession(ctx)
		}
		if session.Expired(r.now()) {
			rotated, err := r.Sessions.RecreateSession(ctx, session.Token)
			if err != nil {
				return Authentication{}, nil, err
			}
			return Authentication{Kind: SessionAuth, Session: rotated}, rotated, nil
		}
		return Authentication{Kind: SessionAuth, Session: session}, nil, nil
	}

	if header := req.Header.Get("Authorization"); header != "" {
		return r.resolveHeader(ctx, header)
	}

	if req.Header.Get("Origin") != "" {
		return r.newSession(ctx)
	}
	logger.Trace().Msg("Request without origin or credentials")
	return Authentication{Kind: NoIdentification}, nil, nil
}

func (r *Resolver) newSession(ctx context.Context) (Authentication, *Session, error) {
	session, err := r.Sessions.CreateSession(ctx)
	if err != nil {
		return Authentication{}, nil, err
	}
	return Authentication{Kind: SessionAuth, Session: session}, session, nil
}

func (r *Resolver) resolveHeader(ctx context.Context, header string) (Authentication, *Session, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		log.Ctx(ctx).Debug().Msg("Invalid Authorization header")
		return Authentication{Kind: NoIdentification}, nil, nil
	}
	scheme, value := parts[0], parts[1]
	switch scheme {
	case "Bearer":
		a, err := r.token(ctx, value)
		return a, nil, err
	case "Basic":
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return Authentication{}, nil, api.NewBadRequest("basic credentials", err)
		}
		if !utf8.Valid(decoded) {
			return Authentication{}, nil, api.NewBadRequest("basic credentials", errors.New("credentials are not valid UTF-8"))
		}
		username, password, ok := strings.Cut(string(decoded), ":")
		if !ok {
			log.Ctx(ctx).Debug().Msg("Invalid Authorization Basic header")
			return Authentication{Kind: NoIdentification}, nil, nil
		}
		if username == basicTokenUser {
			a, err := r.token(ctx, password)
			return a, nil, err
		}
		user, err := r.Users.VerifyLogin(ctx, username, password)
		if err != nil {
			return Authentication{}, nil, err
		}
		if user == nil {
			log.Ctx(ctx).Trace().Str("user", username).Msg("Invalid username:password combo")
			return Authentication{Kind: NoIdentification}, nil, nil
		}
		return Authentication{Kind: BasicAuth, User: user}, nil, nil
	}
	return Authentication{Kind: UnknownScheme, Scheme: scheme, Value: value}, nil, nil
}

func (r *Resolver) token(ctx context.Context, value string) (Authentication, error) {
	user, token, err := r.Users.GetUserByToken(ctx, value)
	if err != nil {
		return Authentication{}, err
	}
	if user == nil || token == nil {
		return Authentication{Kind: NoIdentification}, nil
	}
	return Authentication{Kind: TokenAuth, Token: token, User: user}, nil
}
