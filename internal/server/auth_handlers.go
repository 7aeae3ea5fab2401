package server

import (
	"errors"
	"net/http"

	"github.com/nhle/todolist/internal/auth"
	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/store"
)

type tokenResponse struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	token, err := s.auth.Register(r.Context(), creds)
	switch {
	case err == nil:
		s.logger.Info("account registered", "email", creds.Email)
		writeJSON(w, http.StatusOK, tokenResponse{Token: token})
	case errors.Is(err, auth.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, "Email and password are required")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "User already exists")
	default:
		s.logger.Error("register failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Registration failed")
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	token, err := s.auth.Login(r.Context(), creds)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, tokenResponse{Token: token})
	case errors.Is(err, auth.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, "Email and password are required")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		s.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
	}
}

// handleLogout always succeeds; tokens are stateless and the client drops
// its copy.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}
