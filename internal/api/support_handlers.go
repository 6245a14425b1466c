package api

import (
	"net/http"

	"github.com/terra-clan/studyhub/internal/marketplace"
)

type supportStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleCreateSupportRequest(w http.ResponseWriter, r *http.Request) {
	var req marketplace.SupportInput
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := s.svc.CreateSupportRequest(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, r, "create support request", err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListSupportRequests(w http.ResponseWriter, r *http.Request) {
	inbox, err := s.svc.SupportRequests(r.Context(), UserFromContext(r.Context()), r.URL.Query().Get("status"))
	if err != nil {
		s.respondServiceError(w, r, "list support requests", err)
		return
	}
	respondJSON(w, http.StatusOK, inbox)
}

func (s *Server) handleUpdateSupportRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req supportStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := s.svc.UpdateSupportStatus(r.Context(), UserFromContext(r.Context()), id, req.Status)
	if err != nil {
		s.respondServiceError(w, r, "update support request", err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.AdminStats(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, "load statistics", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
