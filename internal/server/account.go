package server

import (
	"encoding/json"
	"net/http"

	"github.com/nitro-repo/nitro-repo/module/auth"
	"github.com/nitro-repo/nitro-repo/module/permissions"
	"github.com/nitro-repo/nitro-repo/module/repository/api"

	"github.com/rs/zerolog/log"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) routeAccount(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("GET /api/me", s.handleMe)
}

func (s *Server) currentUser(r *http.Request) (*auth.User, error) {
	return auth.FromContext(r.Context()).ResolveUser(r.Context(), s.users)
}

func permissionsOf(user *auth.User) *permissions.UserPermissions {
	if user == nil {
		return nil
	}
	return &user.Permissions
}

// handleLogin binds the user to the caller's session, creating one when the
// request came without.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, r, api.NewBadRequest("login body", err))
		return
	}
	user, err := s.users.VerifyLogin(ctx, body.Username, body.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil || user.Permissions.Disabled {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid username or password"})
		return
	}

	authentication := auth.FromContext(ctx)
	session := authentication.Session
	if authentication.Kind != auth.SessionAuth || session == nil {
		session, err = s.sessions.CreateSession(ctx)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	if err := s.sessions.SetUser(ctx, session.Token, user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, auth.SessionCookieFor(session))
	log.Ctx(ctx).Info().Str("user", user.Username).Msg("User logged in")
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	authentication := auth.FromContext(r.Context())
	if authentication.Kind == auth.SessionAuth && authentication.Session != nil {
		if err := s.sessions.DeleteSession(r.Context(), authentication.Session.Token); err != nil {
			writeError(w, r, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{Name: auth.SessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Not logged in"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}
