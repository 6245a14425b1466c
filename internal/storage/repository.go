package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/terra-clan/studyhub/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("storage: not found")

	// ErrDuplicate is returned when a unique constraint would be violated
	ErrDuplicate = errors.New("storage: duplicate")
)

// CourseQuery filters ListCourses. Zero values disable a filter.
type CourseQuery struct {
	PublishedOnly bool
	CategoryID    int64
	Level         models.Level
	FreeOnly      bool
	PopularOnly   bool
	Search        string // case-insensitive match on title, description, author username
	AuthorID      int64
	ExcludeID     int64
	Limit         int // 0 = no limit
	Offset        int
}

// SupportCounts summarizes the support inbox
type SupportCounts struct {
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Repository defines the interface for marketplace persistence
type Repository interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	ListUsersByRole(ctx context.Context, role models.Role) ([]*models.User, error)

	// Sessions
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	// Categories
	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	// Courses (newest first)
	CreateCourse(ctx context.Context, c *models.Course) error
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	UpdateCourse(ctx context.Context, c *models.Course) error
	DeleteCourse(ctx context.Context, id int64) error
	ListCourses(ctx context.Context, q CourseQuery) ([]*models.Course, int, error)
	PublishedCourses(ctx context.Context) ([]*models.Course, error)

	// Modules and lessons (ordered by "order")
	CreateModule(ctx context.Context, m *models.Module) error
	GetModule(ctx context.Context, id int64) (*models.Module, error)
	UpdateModule(ctx context.Context, m *models.Module) error
	DeleteModule(ctx context.Context, id int64) error
	ListModules(ctx context.Context, courseID int64) ([]*models.Module, error)
	CreateLesson(ctx context.Context, l *models.Lesson) error
	GetLesson(ctx context.Context, id int64) (*models.Lesson, error)
	UpdateLesson(ctx context.Context, l *models.Lesson) error
	DeleteLesson(ctx context.Context, id int64) error

	// Enrollments
	CreateEnrollment(ctx context.Context, e *models.Enrollment) error
	GetEnrollment(ctx context.Context, userID, courseID int64) (*models.Enrollment, error)
	ListEnrolledCourses(ctx context.Context, userID int64) ([]*models.Course, error)
	CountStudents(ctx context.Context, authorID int64) (int, error)

	// Reviews (newest first)
	CreateReview(ctx context.Context, r *models.Review) error
	ListReviews(ctx context.Context, courseID int64) ([]*models.Review, error)

	// Progress
	UpsertProgress(ctx context.Context, p *models.Progress) error
	ListProgress(ctx context.Context, userID, courseID int64) ([]*models.Progress, error)

	// Orders
	PlaceOrder(ctx context.Context, o *models.Order) error
	ListOrders(ctx context.Context, userID int64) ([]*models.Order, error)
	TopSellingCourses(ctx context.Context, limit int) ([]*models.CourseSales, error)
	RevenueSince(ctx context.Context, since time.Time) (int64, int, error)
	Totals(ctx context.Context) (*models.PlatformTotals, error)

	// Support
	CreateSupportRequest(ctx context.Context, r *models.SupportRequest) error
	GetSupportRequest(ctx context.Context, id int64) (*models.SupportRequest, error)
	UpdateSupportRequest(ctx context.Context, r *models.SupportRequest) error
	ListSupportRequests(ctx context.Context, status models.SupportStatus) ([]*models.SupportRequest, error)
	CountSupportRequests(ctx context.Context) (*SupportCounts, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// normalizeEmail lowercases and trims an address for case-insensitive lookups
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes LIKE wildcards so the search term matches literally
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
