package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/terra-clan/studyhub/internal/authz"
	"github.com/terra-clan/studyhub/internal/config"
	"github.com/terra-clan/studyhub/internal/health"
	"github.com/terra-clan/studyhub/internal/marketplace"
	"github.com/terra-clan/studyhub/internal/metrics"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	svc            *marketplace.Service
	health         *health.Registry
	authMiddleware *AuthMiddleware
	logger         *slog.Logger
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, svc *marketplace.Service, registry *health.Registry) *Server {
	if registry == nil {
		registry = health.NewRegistry(0)
	}
	if cfg.RateLimit < 1 {
		cfg.RateLimit = 20
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	s := &Server{
		config:         cfg,
		svc:            svc,
		health:         registry,
		authMiddleware: NewAuthMiddleware(svc),
		logger:         slog.With("component", "api"),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Operational endpoints
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	limited := httprate.LimitByIP(s.config.RateLimit, time.Minute)
	auth := s.authMiddleware
	perm := auth.RequirePermission

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Route("/auth", func(r chi.Router) {
			r.With(limited, perm(authz.AccountCreate)).Post("/register", s.handleRegister)
			r.With(limited).Post("/login", s.handleLogin)
			r.With(auth.RequireAuth).Post("/logout", s.handleLogout)
		})

		r.Route("/me", func(r chi.Router) {
			r.With(perm(authz.AccountRead)).Get("/", s.handleGetProfile)
			r.With(perm(authz.AccountUpdate)).Put("/", s.handleUpdateProfile)
			r.With(perm(authz.MyCoursesRead)).Get("/courses", s.handleMyCourses)
		})

		r.Group(func(r chi.Router) {
			r.Use(perm(authz.CatalogRead))
			r.Get("/home", s.handleHome)
			r.Get("/categories", s.handleListCategories)
		})
		r.With(perm(authz.TutorsRead)).Get("/tutors", s.handleListTutors)

		r.With(perm(authz.RecommendationsRead)).Get("/recommendations", s.handleRecommendations)
		r.With(perm(authz.RecommendationsRead)).Post("/recommendations", s.handleRecommendations)

		r.Route("/courses", func(r chi.Router) {
			r.With(perm(authz.CatalogRead)).Get("/", s.handleListCourses)
			r.With(perm(authz.CourseCreate)).Post("/", s.handleCreateCourse)

			r.Route("/{id}", func(r chi.Router) {
				r.With(perm(authz.CatalogRead)).Get("/", s.handleGetCourse)
				r.With(perm(authz.CourseUpdate)).Put("/", s.handleUpdateCourse)
				r.With(perm(authz.CourseDelete)).Delete("/", s.handleDeleteCourse)
				r.With(perm(authz.EnrollmentCreate)).Post("/enroll", s.handleEnroll)
				r.With(perm(authz.ReviewCreate)).Post("/reviews", s.handleAddReview)

				r.Route("/modules", func(r chi.Router) {
					r.With(perm(authz.CatalogRead)).Get("/", s.handleListModules)
					r.With(perm(authz.CourseUpdate)).Post("/", s.handleCreateModule)

					r.Route("/{moduleId}", func(r chi.Router) {
						r.With(perm(authz.CatalogRead)).Get("/", s.handleGetModule)
						r.With(perm(authz.CourseUpdate)).Put("/", s.handleUpdateModule)
						r.With(perm(authz.CourseUpdate)).Delete("/", s.handleDeleteModule)
						r.With(perm(authz.CourseUpdate)).Post("/lessons", s.handleCreateLesson)

						r.Route("/lessons/{lessonId}", func(r chi.Router) {
							r.With(perm(authz.CatalogRead)).Get("/", s.handleGetLesson)
							r.With(perm(authz.CourseUpdate)).Put("/", s.handleUpdateLesson)
							r.With(perm(authz.CourseUpdate)).Delete("/", s.handleDeleteLesson)
						})
					})
				})
			})
		})

		r.With(perm(authz.ProgressWrite)).Post("/lessons/{lessonId}/complete", s.handleCompleteLesson)

		r.Route("/cart", func(r chi.Router) {
			r.With(perm(authz.CartRead)).Get("/", s.handleGetCart)
			r.With(perm(authz.CartWrite)).Post("/items/{courseId}", s.handleAddToCart)
			r.With(perm(authz.CartWrite)).Delete("/items/{courseId}", s.handleRemoveFromCart)
			r.With(perm(authz.OrderCreate)).Post("/checkout", s.handleCheckout)
		})
		r.With(perm(authz.OrderRead)).Get("/orders", s.handleListOrders)

		r.With(perm(authz.FAQRead)).Get("/faq", s.handleFAQ)
		r.With(limited, perm(authz.SupportCreate)).Post("/support", s.handleCreateSupportRequest)

		r.Route("/admin", func(r chi.Router) {
			r.With(perm(authz.SupportRead)).Get("/support", s.handleListSupportRequests)
			r.With(perm(authz.SupportUpdate)).Patch("/support/{id}", s.handleUpdateSupportRequest)
			r.With(perm(authz.StatsRead)).Get("/stats", s.handleAdminStats)
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
