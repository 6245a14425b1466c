package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/terra-clan/studyhub/internal/authz"
	"github.com/terra-clan/studyhub/internal/cart"
	"github.com/terra-clan/studyhub/internal/config"
	"github.com/terra-clan/studyhub/internal/health"
	"github.com/terra-clan/studyhub/internal/marketplace"
	"github.com/terra-clan/studyhub/internal/models"
	"github.com/terra-clan/studyhub/internal/storage"
)

type testEnv struct {
	t        *testing.T
	server   *Server
	svc      *marketplace.Service
	repo     *storage.MemoryRepository
	carts    *cart.MemoryStore
	registry *health.Registry
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func newTestEnv(t *testing.T, rateLimit int) *testEnv {
	t.Helper()

	guard, err := authz.NewGuard()
	require.NoError(t, err)

	env := &testEnv{
		t:        t,
		repo:     storage.NewMemoryRepository(),
		carts:    cart.NewMemoryStore(),
		registry: health.NewRegistry(time.Second),
	}
	env.svc, err = marketplace.New(
		marketplace.Deps{Repo: env.repo, Carts: env.carts, Guard: guard},
		marketplace.Config{JWTSecret: "api-test-secret-key", BcryptCost: bcrypt.MinCost},
	)
	require.NoError(t, err)

	env.server = NewServer(config.ServerConfig{RateLimit: rateLimit}, env.svc, env.registry)
	return env
}

func (e *testEnv) do(method, path, token string, body interface{}) (int, *envelope) {
	e.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.serve(req)
}

func (e *testEnv) serve(req *http.Request) (int, *envelope) {
	e.t.Helper()

	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)

	var env envelope
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, &env
}

func decode[T any](t *testing.T, env *envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// login creates a user with the given role and returns a bearer token
func (e *testEnv) login(username string, role models.Role) (string, *models.User) {
	e.t.Helper()
	ctx := context.Background()

	user, err := e.svc.Register(ctx, marketplace.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.NoError(e.t, err)

	if role != models.RoleStudent {
		user.Role = role
		require.NoError(e.t, e.repo.UpdateUser(ctx, user))
	}

	res, err := e.svc.Login(ctx, username, "password123")
	require.NoError(e.t, err)
	return res.Token, user
}

func (e *testEnv) course(author *models.User, title string, price int64) *models.Course {
	e.t.Helper()
	c := &models.Course{
		Title:       title,
		Description: title,
		Level:       models.LevelBeginner,
		Price:       price,
		AuthorID:    author.ID,
		IsPublished: true,
	}
	require.NoError(e.t, e.repo.CreateCourse(context.Background(), c))
	return c
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, 100)

	status, body := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)

	env.registry.Register(health.NewCheckerFunc("storage", env.repo.Ping))
	status, _ = env.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)

	env.registry.Register(health.NewCheckerFunc("redis", func(ctx context.Context) error {
		return errors.New("connection refused")
	}))
	status, body = env.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "not_ready", body.Error.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, 100)
	env.do(http.MethodGet, "/health", "", nil)

	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "studyhub_http_requests_total")
}

func TestAccountFlow(t *testing.T) {
	env := newTestEnv(t, 100)

	status, body := env.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, status)
	user := decode[models.User](t, body)
	assert.Equal(t, models.RoleStudent, user.Role)

	status, body = env.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", body.Error.Code)

	status, body = env.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, status)
	token := decode[marketplace.LoginResult](t, body).Token
	require.NotEmpty(t, token)

	status, body = env.do(http.MethodPut, "/api/v1/me", token, map[string]string{
		"first_name": "Alice",
		"birth_date": "1990-05-01",
	})
	require.Equal(t, http.StatusOK, status)
	profile := decode[map[string]interface{}](t, body)
	assert.Equal(t, true, profile["is_adult"])
	assert.Equal(t, "Alice", profile["full_name"])

	status, _ = env.do(http.MethodGet, "/api/v1/me", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = env.do(http.MethodGet, "/api/v1/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", body.Error.Code)
}

func TestRegisterValidationErrors(t *testing.T) {
	env := newTestEnv(t, 100)

	status, body := env.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "al",
		"email":    "nope",
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", body.Error.Code)
	assert.Len(t, body.Error.Fields, 2)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader("{"))
	status, body = env.serve(req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_request", body.Error.Code)
}

func TestPermissions(t *testing.T) {
	env := newTestEnv(t, 100)
	student, _ := env.login("student", models.RoleStudent)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"anonymous browses catalog", http.MethodGet, "/api/v1/courses", "", http.StatusOK},
		{"anonymous reads faq", http.MethodGet, "/api/v1/faq", "", http.StatusOK},
		{"anonymous cart", http.MethodGet, "/api/v1/cart", "", http.StatusUnauthorized},
		{"anonymous my courses", http.MethodGet, "/api/v1/me/courses", "", http.StatusUnauthorized},
		{"student cart", http.MethodGet, "/api/v1/cart", student, http.StatusOK},
		{"student stats", http.MethodGet, "/api/v1/admin/stats", student, http.StatusForbidden},
		{"student creates course", http.MethodPost, "/api/v1/courses", student, http.StatusForbidden},
		{"garbage token", http.MethodGet, "/api/v1/courses", "garbage", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := env.do(tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestCatalogEndpoints(t *testing.T) {
	env := newTestEnv(t, 100)
	_, tutor := env.login("tutor", models.RoleTutor)
	course := env.course(tutor, "Python для начинающих", 0)

	status, body := env.do(http.MethodGet, "/api/v1/courses?search=python&page=abc", "", nil)
	require.Equal(t, http.StatusOK, status)
	page := decode[marketplace.Page](t, body)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.Page)

	status, body = env.do(http.MethodGet, fmt.Sprintf("/api/v1/courses/%d", course.ID), "", nil)
	require.Equal(t, http.StatusOK, status)
	detail := decode[map[string]interface{}](t, body)
	assert.Contains(t, detail, "course")

	status, body = env.do(http.MethodGet, "/api/v1/courses/999", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body.Error.Code)

	status, _ = env.do(http.MethodGet, "/api/v1/courses/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	for _, path := range []string{"/api/v1/home", "/api/v1/categories", "/api/v1/tutors", "/api/v1/faq?category=2"} {
		status, _ = env.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, status, path)
	}
}

func TestRecommendationEncodings(t *testing.T) {
	env := newTestEnv(t, 100)
	_, tutor := env.login("tutor", models.RoleTutor)
	env.course(tutor, "Python для начинающих", 0)

	check := func(status int, body *envelope) {
		t.Helper()
		require.Equal(t, http.StatusOK, status)
		res := decode[marketplace.Recommendations](t, body)
		require.Len(t, res.Courses, 1)
		assert.Equal(t, 5, res.Interests["programming"])
	}

	check(env.do(http.MethodGet, "/api/v1/recommendations?coding_interest=5&free_only=on", "", nil))
	check(env.do(http.MethodPost, "/api/v1/recommendations", "", map[string]interface{}{
		"coding_interest": 5,
		"free_only":       true,
	}))

	status, body := env.do(http.MethodPost, "/api/v1/recommendations", "", map[string]interface{}{
		"coding_interest": 9,
		"ml_interest":     0,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, body.Error.Fields, 2)
	assert.Equal(t, "coding_interest", body.Error.Fields[0].Field)

	status, body = env.do(http.MethodPost, "/api/v1/recommendations", "", map[string]interface{}{
		"coding_interest": 4.5,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, body.Error.Fields, 1)
	assert.Equal(t, "integer", body.Error.Fields[0].Tag)

	// out-of-range query values are clamped, not rejected
	check(env.do(http.MethodGet, "/api/v1/recommendations?coding_interest=9223372036854775807", "", nil))

	form := url.Values{"coding_interest": {"5"}, "level": {"beginner"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	check(env.serve(req))
}

func TestEnrollmentAndProgress(t *testing.T) {
	env := newTestEnv(t, 100)
	token, _ := env.login("student", models.RoleStudent)
	_, tutor := env.login("tutor", models.RoleTutor)
	free := env.course(tutor, "Free", 0)
	paid := env.course(tutor, "Paid", 100000)

	ctx := context.Background()
	module := &models.Module{CourseID: free.ID, Title: "M1", Order: 1}
	require.NoError(t, env.repo.CreateModule(ctx, module))
	lesson := &models.Lesson{ModuleID: module.ID, Title: "L1", Order: 1}
	require.NoError(t, env.repo.CreateLesson(ctx, lesson))

	completePath := fmt.Sprintf("/api/v1/lessons/%d/complete", lesson.ID)
	status, _ := env.do(http.MethodPost, completePath, token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(http.MethodPost, fmt.Sprintf("/api/v1/courses/%d/enroll", free.ID), token, nil)
	assert.Equal(t, http.StatusCreated, status)
	status, body := env.do(http.MethodPost, fmt.Sprintf("/api/v1/courses/%d/enroll", free.ID), token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, decode[marketplace.EnrollResult](t, body).AlreadyEnrolled)

	status, body = env.do(http.MethodPost, fmt.Sprintf("/api/v1/courses/%d/enroll", paid.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "course_not_free", body.Error.Code)

	status, body = env.do(http.MethodPost, completePath, token, nil)
	require.Equal(t, http.StatusOK, status)
	progress := decode[marketplace.LessonProgress](t, body)
	assert.Equal(t, 100, progress.CourseProgress)

	status, body = env.do(http.MethodPost, completePath, token, map[string]bool{"completed": false})
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, decode[marketplace.LessonProgress](t, body).CourseProgress)

	reviewPath := fmt.Sprintf("/api/v1/courses/%d/reviews", free.ID)
	status, _ = env.do(http.MethodPost, reviewPath, token, map[string]interface{}{"rating": 5})
	assert.Equal(t, http.StatusCreated, status)
	status, body = env.do(http.MethodPost, reviewPath, token, map[string]interface{}{"rating": 4})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", body.Error.Code)
}

func TestCartAndCheckout(t *testing.T) {
	env := newTestEnv(t, 100)
	token, student := env.login("student", models.RoleStudent)
	_, tutor := env.login("tutor", models.RoleTutor)
	a := env.course(tutor, "A", 100000)
	b := env.course(tutor, "B", 50000)
	free := env.course(tutor, "Free", 0)

	status, body := env.do(http.MethodPost, "/api/v1/cart/checkout", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "cart_empty", body.Error.Code)

	status, _ = env.do(http.MethodPost, fmt.Sprintf("/api/v1/cart/items/%d", a.ID), token, nil)
	assert.Equal(t, http.StatusCreated, status)
	status, body = env.do(http.MethodPost, fmt.Sprintf("/api/v1/cart/items/%d", a.ID), token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, decode[cartResponse](t, body).AlreadyInCart)
	status, _ = env.do(http.MethodPost, fmt.Sprintf("/api/v1/cart/items/%d", b.ID), token, nil)
	assert.Equal(t, http.StatusCreated, status)

	status, body = env.do(http.MethodPost, fmt.Sprintf("/api/v1/cart/items/%d", free.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "course_not_free", body.Error.Code)

	status, body = env.do(http.MethodGet, "/api/v1/cart", token, nil)
	require.Equal(t, http.StatusOK, status)
	view := decode[marketplace.CartView](t, body)
	assert.Equal(t, int64(150000), view.Total)
	assert.Equal(t, 2, view.Count)

	status, _ = env.do(http.MethodDelete, fmt.Sprintf("/api/v1/cart/items/%d", b.ID), token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = env.do(http.MethodPost, "/api/v1/cart/checkout", token, nil)
	require.Equal(t, http.StatusCreated, status)
	order := decode[models.Order](t, body)
	assert.Equal(t, int64(100000), order.Total)
	assert.Equal(t, models.OrderPaid, order.Status)

	stored, err := env.carts.Load(context.Background(), student.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsEmpty(), "checkout clears the cart")

	status, body = env.do(http.MethodGet, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusOK, status)
	orders := decode[map[string]interface{}](t, body)
	assert.EqualValues(t, 1, orders["total"])

	status, body = env.do(http.MethodPost, fmt.Sprintf("/api/v1/cart/items/%d", a.ID), token, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestAuthoringOwnership(t *testing.T) {
	env := newTestEnv(t, 100)
	author, _ := env.login("author", models.RoleTutor)
	other, _ := env.login("other", models.RoleTutor)

	status, body := env.do(http.MethodPost, "/api/v1/courses", author, map[string]interface{}{
		"title":       "Go",
		"description": "Backend",
		"level":       "advanced",
		"price":       100000,
	})
	require.Equal(t, http.StatusCreated, status)
	course := decode[models.Course](t, body)
	coursePath := fmt.Sprintf("/api/v1/courses/%d", course.ID)

	status, _ = env.do(http.MethodPut, coursePath, other, map[string]interface{}{
		"title": "Hijacked", "description": "x", "level": "beginner",
	})
	assert.Equal(t, http.StatusNotFound, status, "drafts of other tutors are hidden")

	status, body = env.do(http.MethodPost, coursePath+"/modules", author, map[string]interface{}{"title": "Intro", "order": 1})
	require.Equal(t, http.StatusCreated, status)
	module := decode[models.Module](t, body)

	status, _ = env.do(http.MethodPost, fmt.Sprintf("%s/modules/%d/lessons", coursePath, module.ID), author, map[string]interface{}{
		"title": "Hello", "duration_minutes": 5,
	})
	assert.Equal(t, http.StatusCreated, status)

	status, _ = env.do(http.MethodDelete, coursePath, other, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = env.do(http.MethodDelete, coursePath, author, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestSupportAndAdmin(t *testing.T) {
	env := newTestEnv(t, 100)
	admin, _ := env.login("admin", models.RoleAdmin)

	status, body := env.do(http.MethodPost, "/api/v1/support", "", map[string]string{
		"name":         "Ivan",
		"contact":      "ivan@example.com",
		"contact_type": "email",
		"message":      "Help me",
	})
	require.Equal(t, http.StatusCreated, status)
	created := decode[models.SupportRequest](t, body)

	status, body = env.do(http.MethodGet, "/api/v1/admin/support?status=all", admin, nil)
	require.Equal(t, http.StatusOK, status)
	inbox := decode[marketplace.SupportInbox](t, body)
	assert.Len(t, inbox.Requests, 1)
	assert.Equal(t, 1, inbox.Counts.Pending)

	path := fmt.Sprintf("/api/v1/admin/support/%d", created.ID)
	status, body = env.do(http.MethodPatch, path, admin, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, status)
	assert.NotNil(t, decode[models.SupportRequest](t, body).CompletedAt)

	status, _ = env.do(http.MethodPatch, path, admin, map[string]string{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(http.MethodGet, "/api/v1/admin/stats", admin, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRateLimitOnLogin(t *testing.T) {
	env := newTestEnv(t, 2)
	creds := map[string]string{"username": "nobody", "password": "password123"}

	for i := 0; i < 2; i++ {
		status, _ := env.do(http.MethodPost, "/api/v1/auth/login", "", creds)
		assert.Equal(t, http.StatusForbidden, status)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"nobody","password":"password123"}`))
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
