package api

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/terra-clan/studyhub/internal/marketplace"
	"github.com/terra-clan/studyhub/internal/recommend"
	"github.com/terra-clan/studyhub/internal/validation"
)

// Catalog handlers: browsing courses, modules and lessons

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	home, err := s.svc.Home(r.Context())
	if err != nil {
		s.respondServiceError(w, r, "load home page", err)
		return
	}
	respondJSON(w, http.StatusOK, home)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.svc.Categories(r.Context())
	if err != nil {
		s.respondServiceError(w, r, "list categories", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"total":      len(categories),
	})
}

func (s *Server) handleListTutors(w http.ResponseWriter, r *http.Request) {
	tutors, err := s.svc.Tutors(r.Context())
	if err != nil {
		s.respondServiceError(w, r, "list tutors", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tutors": tutors,
		"total":  len(tutors),
	})
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := marketplace.CourseFilter{
		Level:  query.Get("level"),
		Free:   queryBool(r, "free"),
		Search: query.Get("search"),
	}
	if filter.Search == "" {
		filter.Search = query.Get("q")
	}
	if category, err := strconv.ParseInt(query.Get("category"), 10, 64); err == nil && category > 0 {
		filter.CategoryID = category
	}
	if page, err := strconv.Atoi(query.Get("page")); err == nil {
		filter.Page = page
	}

	page, err := s.svc.ListCourses(r.Context(), filter)
	if err != nil {
		s.respondServiceError(w, r, "list courses", err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	detail, err := s.svc.CourseDetail(r.Context(), UserFromContext(r.Context()), id)
	if err != nil {
		s.respondServiceError(w, r, "get course", err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleListModules(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	modules, err := s.svc.Modules(r.Context(), UserFromContext(r.Context()), id)
	if err != nil {
		s.respondServiceError(w, r, "list modules", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"modules": modules,
		"total":   len(modules),
	})
}

func (s *Server) handleGetModule(w http.ResponseWriter, r *http.Request) {
	courseID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	moduleID, ok := idParam(w, r, "moduleId")
	if !ok {
		return
	}

	detail, err := s.svc.ModuleDetail(r.Context(), UserFromContext(r.Context()), courseID, moduleID)
	if err != nil {
		s.respondServiceError(w, r, "get module", err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
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

	detail, err := s.svc.LessonDetail(r.Context(), UserFromContext(r.Context()), courseID, moduleID, lessonID)
	if err != nil {
		s.respondServiceError(w, r, "get lesson", err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// handleRecommendations accepts the questionnaire as query parameters (GET),
// a form post or a JSON object (POST)
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	form, ok := questionnaireForm(w, r)
	if !ok {
		return
	}

	res, err := s.svc.Recommend(r.Context(), recommend.ParseQuestionnaire(form))
	if err != nil {
		s.respondServiceError(w, r, "recommend courses", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func questionnaireForm(w http.ResponseWriter, r *http.Request) (url.Values, bool) {
	if r.Method == http.MethodGet {
		return r.URL.Query(), true
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body map[string]interface{}
		if !decodeJSON(w, r, &body) {
			return nil, false
		}
		if err := checkInterestRange(body); err != nil {
			writeError(w, http.StatusBadRequest, &apiError{Code: "validation_error", Message: err.Error(), Fields: err.Fields})
			return nil, false
		}
		return jsonToForm(body), true
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid form body")
		return nil, false
	}
	return r.PostForm, true
}

// checkInterestRange rejects numeric JSON interests outside 1-5 or with a
// fractional part. Form and query input stays lenient.
func checkInterestRange(body map[string]interface{}) *validation.Error {
	var fields []validation.FieldError
	for _, d := range recommend.Domains {
		name := recommend.FieldFor(d)
		n, ok := body[name].(float64)
		if !ok {
			continue
		}
		if n != math.Trunc(n) {
			fields = append(fields, validation.FieldError{
				Field:   name,
				Tag:     "integer",
				Message: name + " must be a whole number",
			})
			continue
		}
		if err := validation.Validator().Var(n, "min=1,max=5"); err != nil {
			fields = append(fields, validation.FieldError{
				Field:   name,
				Tag:     "range",
				Message: name + " must be between 1 and 5",
			})
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &validation.Error{Fields: fields}
}

// jsonToForm flattens scalar JSON fields into form values so both encodings
// go through the same lenient questionnaire parsing
func jsonToForm(body map[string]interface{}) url.Values {
	form := make(url.Values, len(body))
	for key, value := range body {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			form.Set(key, v)
		case bool:
			form.Set(key, strconv.FormatBool(v))
		case float64:
			form.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
		case json.Number:
			form.Set(key, v.String())
		default:
			form.Set(key, "")
		}
	}
	return form
}

func (s *Server) handleFAQ(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.svc.FAQ(r.URL.Query().Get("category")))
}
