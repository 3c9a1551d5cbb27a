package http

import (
	"net/http"

	"github.com/Badr133ne/sim-charge-guardian/internal/core"
	"github.com/Badr133ne/sim-charge-guardian/internal/log"
)

type loginRequest struct {
	Username string `json:"username"`
}

type sessionResponse struct {
	IsLoggedIn bool       `json:"isLoggedIn"`
	User       *core.User `json:"user"`
}

func (s *Server) session() sessionResponse {
	resp := sessionResponse{IsLoggedIn: s.store.IsLoggedIn()}
	if u, ok := s.store.CurrentUser(); ok {
		resp.User = &u
	}
	return resp
}

func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, log.OpLogin, err)
		return
	}
	username := sanitizeInput(req.Username)
	if err := core.ValidateUsername(username); err != nil {
		fail(w, r, log.OpLogin, invalid("please enter a valid username (at least %d characters)", core.MinUsernameLength))
		return
	}
	if err := s.store.Login(r.Context(), username); err != nil {
		fail(w, r, log.OpLogin, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session())
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Logout(r.Context()); err != nil {
		fail(w, r, log.OpLogout, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
