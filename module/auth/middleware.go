package auth

import (
	"errors"
	"net/http"

	"github.com/nitro-repo/nitro-repo/module/repository/api"

	"github.com/rs/zerolog/log"
)

// SessionCookieFor builds the cookie echoing a new or rotated session.
func SessionCookieFor(session *Session) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.Expiration,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	}
}

// Middleware resolves the caller of every request except OPTIONS pre-flights
// and stores the result in the request context.
func Middleware(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			authentication, session, err := resolver.Resolve(r.Context(), r)
			if err != nil {
				var badRequest *api.BadRequestError
				if errors.As(err, &badRequest) {
					http.Error(w, badRequest.Error(), http.StatusBadRequest)
					return
				}
				log.Ctx(r.Context()).Error().Err(err).Msg("Unable to resolve authentication")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			// Headers are frozen once next writes, so the cookie goes first.
			if session != nil {
				http.SetCookie(w, SessionCookieFor(session))
			}
			next.ServeHTTP(w, r.WithContext(WithAuthentication(r.Context(), authentication)))
		})
	}
}
