package api

import (
	"net/http"

	"github.com/terra-clan/studyhub/internal/marketplace"
)

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	res, err := s.svc.QuickEnroll(r.Context(), UserFromContext(r.Context()), id)
	if err != nil {
		s.respondServiceError(w, r, "enroll", err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyEnrolled {
		status = http.StatusOK
	}
	respondJSON(w, status, res)
}

func (s *Server) handleAddReview(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req marketplace.ReviewInput
	if !decodeJSON(w, r, &req) {
		return
	}

	review, err := s.svc.AddReview(r.Context(), UserFromContext(r.Context()), id, req)
	if err != nil {
		s.respondServiceError(w, r, "add review", err)
		return
	}
	respondJSON(w, http.StatusCreated, review)
}

type completeLessonRequest struct {
	Completed *bool `json:"completed"`
}

// handleCompleteLesson marks a lesson done. An optional {"completed": false}
// body clears the mark.
func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := idParam(w, r, "lessonId")
	if !ok {
		return
	}

	completed := true
	if r.ContentLength > 0 {
		var req completeLessonRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Completed != nil {
			completed = *req.Completed
		}
	}

	progress, err := s.svc.SetLessonCompleted(r.Context(), UserFromContext(r.Context()), lessonID, completed)
	if err != nil {
		s.respondServiceError(w, r, "update progress", err)
		return
	}
	respondJSON(w, http.StatusOK, progress)
}
