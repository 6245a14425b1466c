package api

import (
	"net/http"

	"github.com/terra-clan/studyhub/internal/marketplace"
)

// Authoring handlers: courses, modules and lessons owned by tutors

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req marketplace.CourseInput
	if !decodeJSON(w, r, &req) {
		return
	}

	course, err := s.svc.CreateCourse(r.Context(), UserFromContext(r.Context()), req)
	if err != nil {
		s.respondServiceError(w, r, "create course", err)
		return
	}
	respondJSON(w, http.StatusCreated, course)
}

func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req marketplace.CourseInput
	if !decodeJSON(w, r, &req) {
		return
	}

	course, err := s.svc.UpdateCourse(r.Context(), UserFromContext(r.Context()), id, req)
	if err != nil {
		s.respondServiceError(w, r, "update course", err)
		return
	}
	respondJSON(w, http.StatusOK, course)
}

func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := s.svc.DeleteCourse(r.Context(), UserFromContext(r.Context()), id); err != nil {
		s.respondServiceError(w, r, "delete course", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "course deleted",
	})
}

func (s *Server) handleCreateModule(w http.ResponseWriter, r *http.Request) {
	courseID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req marketplace.ModuleInput
	if !decodeJSON(w, r, &req) {
		return
	}

	module, err := s.svc.CreateModule(r.Context(), UserFromContext(r.Context()), courseID, req)
	if err != nil {
		s.respondServiceError(w, r, "create module", err)
		return
	}
	respondJSON(w, http.StatusCreated, module)
}

func (s *Server) handleUpdateModule(w http.ResponseWriter, r *http.Request) {
	courseID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	moduleID, ok := idParam(w, r, "moduleId")
	if !ok {
		return
	}

	var req marketplace.ModuleInput
	if !decodeJSON(w, r, &req) {
		return
	}

	module, err := s.svc.UpdateModule(r.Context(), UserFromContext(r.Context()), courseID, moduleID, req)
	if err != nil {
		s.respondServiceError(w, r, "update module", err)
		return
	}
	respondJSON(w, http.StatusOK, module)
}

func (s *Server) handleDeleteModule(w http.ResponseWriter, r *http.Request) {
	courseID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	moduleID, ok := idParam(w, r, "moduleId")
	if !ok {
		return
	}

	if err := s.svc.DeleteModule(r.Context(), UserFromContext(r.Context()), courseID, moduleID); err != nil {
		s.respondServiceError(w, r, "delete module", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "module deleted",
	})
}

func (s *Server) handleCreateLesson(w http.ResponseWriter, r *http.Request) {
	courseID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	moduleID, ok := idParam(w, r, "moduleId")
	if !ok {
		return
	}

	var req marketplace.LessonInput
	if !decodeJSON(w, r, &req) {
		return
	}

	lesson, err := s.svc.CreateLesson(r.Context(), UserFromContext(r.Context()), courseID, moduleID, req)
	if err != nil {
		s.respondServiceError(w, r, "create lesson", err)
		return
	}
	respondJSON(w, http.StatusCreated, lesson)
}

func (s *Server) handleUpdateLesson(w http.ResponseWriter, r *http.Request) {
	courseID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	moduleID, ok := idParam(w, r, "moduleId")
	if !ok {
		return
	}
	lessonID, ok := idParam(w, r, "lessonId")
	if !ok {
		return
	}

	var req marketplace.LessonInput
	if !decodeJSON(w, r, &req) {
		return
	}

	lesson, err := s.svc.UpdateLesson(r.Context(), UserFromContext(r.Context()), courseID, moduleID, lessonID, req)
	if err != nil {
		s.respondServiceError(w, r, "update lesson", err)
		return
	}
	respondJSON(w, http.StatusOK, lesson)
}

func (s *Server) handleDeleteLesson(w http.ResponseWriter, r *http.Request) {
	courseID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	moduleID, ok := idParam(w, r, "moduleId")
	if !ok {
		return
	}
	lessonID, ok := idParam(w, r, "lessonId")
	if !ok {
		return
	}

	if err := s.svc.DeleteLesson(r.Context(), UserFromContext(r.Context()), courseID, moduleID, lessonID); err != nil {
		s.respondServiceError(w, r, "delete lesson", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "lesson deleted",
	})
}
