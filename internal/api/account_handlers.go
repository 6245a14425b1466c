package api

import (
	"net/http"

	"github.com/terra-clan/studyhub/internal/marketplace"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req marketplace.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.svc.Register(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, r, "register", err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "username and password are required")
		return
	}

	res, err := s.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.respondServiceError(w, r, "log in", err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "no active session")
		return
	}

	if err := s.svc.Logout(r.Context(), session.ID); err != nil {
		s.respondServiceError(w, r, "log out", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "logged out",
	})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	profile, err := s.svc.Profile(r.Context(), user.ID)
	if err != nil {
		s.respondServiceError(w, r, "load profile", err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req marketplace.ProfileInput
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := s.svc.UpdateProfile(r.Context(), user.ID, req)
	if err != nil {
		s.respondServiceError(w, r, "update profile", err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleMyCourses(w http.ResponseWriter, r *http.Request) {
	mine, err := s.svc.MyCourses(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, "list my courses", err)
		return
	}

	respondJSON(w, http.StatusOK, mine)
}
