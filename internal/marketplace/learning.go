package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/terra-clan/studyhub/internal/authz"
	"github.com/terra-clan/studyhub/internal/metrics"
	"github.com/terra-clan/studyhub/internal/models"
	"github.com/terra-clan/studyhub/internal/storage"
	"github.com/terra-clan/studyhub/internal/validation"
)

// EnrollResult reports the outcome of a free enrollment
type EnrollResult struct {
	Enrollment      *models.Enrollment `json:"enrollment"`
	AlreadyEnrolled bool               `json:"already_enrolled"`
}

// ReviewInput is the review form
type ReviewInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=5000"`
}

// LessonProgress is returned after a lesson is marked
type LessonProgress struct {
	LessonID        int64      `json:"lesson_id"`
	Completed       bool       `json:"completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	ModuleProgress  int        `json:"module_progress"`
	CourseProgress  int        `json:"course_progress"`
	ModuleCompleted int        `json:"module_completed"`
	ModuleTotal     int        `json:"module_total"`
	CourseCompleted int        `json:"course_completed"`
	CourseTotal     int        `json:"course_total"`
}

// AuthoringStats summarizes the courses a tutor created
type AuthoringStats struct {
	CreatedCount     int            `json:"created_count"`
	PublishedCount   int            `json:"published_count"`
	DraftCount       int            `json:"draft_count"`
	CreatedHours     int            `json:"created_hours"`
	PublishedPercent int            `json:"published_percent"`
	DraftPercent     int            `json:"draft_percent"`
	TotalStudents    int            `json:"total_students"`
	LatestCourse     *models.Course `json:"latest_created_course,omitempty"`
}

// MyCourses is the personal course list
type MyCourses struct {
	Courses       []*models.Course `json:"courses"`
	EnrolledCount int              `json:"enrolled_count"`
	EnrolledHours int              `json:"enrolled_hours"`
	Authoring     *AuthoringStats  `json:"authoring,omitempty"`
}

// QuickEnroll enrolls the user into a free published course
func (s *Service) QuickEnroll(ctx context.Context, user *models.User, courseID int64) (*EnrollResult, error) {
	if err := s.authorize(user, authz.EnrollmentCreate, nil); err != nil {
		return nil, err
	}

	course, err := s.publishedCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsFree() {
		return nil, fmt.Errorf("enroll in %q: %w", course.Title, ErrCourseNotFree)
	}

	existing, err := s.enrollment(ctx, user, course.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &EnrollResult{Enrollment: existing, AlreadyEnrolled: true}, nil
	}

	e := &models.Enrollment{UserID: user.ID, CourseID: course.ID, EnrolledAt: s.now().UTC()}
	if err := s.repo.CreateEnrollment(ctx, e); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			existing, err := s.repo.GetEnrollment(ctx, user.ID, course.ID)
			if err != nil {
				return nil, storageErr("get enrollment", err)
			}
			return &EnrollResult{Enrollment: existing, AlreadyEnrolled: true}, nil
		}
		return nil, storageErr("create enrollment", err)
	}

	metrics.RecordFreeEnrollment()
	s.logger.Info("free enrollment", "user_id", user.ID, "course_id", course.ID)
	return &EnrollResult{Enrollment: e}, nil
}

// publishedCourse loads a course that is open for enrollment and purchase
func (s *Service) publishedCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, storageErr("get course", err)
	}
	if !course.IsPublished {
		return nil, fmt.Errorf("get course: %w", ErrNotFound)
	}
	return course, nil
}

// AddReview rates a course, once per user
func (s *Service) AddReview(ctx context.Context, user *models.User, courseID int64, in ReviewInput) (*models.Review, error) {
	if err := s.authorize(user, authz.ReviewCreate, nil); err != nil {
		return nil, err
	}
	in.Comment = strings.TrimSpace(in.Comment)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	course, err := s.visibleCourse(ctx, user, courseID)
	if err != nil {
		return nil, err
	}

	review := &models.Review{
		UserID:    user.ID,
		Username:  user.Username,
		CourseID:  course.ID,
		Rating:    in.Rating,
		Comment:   in.Comment,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateReview(ctx, review); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, fmt.Errorf("review %q: %w", course.Title, ErrAlreadyReviewed)
		}
		return nil, storageErr("create review", err)
	}

	s.logger.Info("review added", "user_id", user.ID, "course_id", course.ID, "rating", in.Rating)
	return review, nil
}

// MarkLessonCompleted marks a lesson as done
func (s *Service) MarkLessonCompleted(ctx context.Context, user *models.User, lessonID int64) (*LessonProgress, error) {
	return s.SetLessonCompleted(ctx, user, lessonID, true)
}

// SetLessonCompleted records lesson completion for an enrolled user and
// returns the resulting module and course progress
func (s *Service) SetLessonCompleted(ctx context.Context, user *models.User, lessonID int64, completed bool) (*LessonProgress, error) {
	if err := s.authorize(user, authz.ProgressWrite, nil); err != nil {
		return nil, err
	}

	lesson, err := s.repo.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, storageErr("get lesson", err)
	}
	module, err := s.repo.GetModule(ctx, lesson.ModuleID)
	if err != nil {
		return nil, storageErr("get module", err)
	}

	enrollment, err := s.enrollment(ctx, user, module.CourseID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, fmt.Errorf("lesson %d: %w", lesson.ID, ErrNotEnrolled)
	}

	p := &models.Progress{UserID: user.ID, LessonID: lesson.ID, Completed: completed}
	if completed {
		at := s.now().UTC()
		p.CompletedAt = &at
	}
	if err := s.repo.UpsertProgress(ctx, p); err != nil {
		return nil, storageErr("save progress", err)
	}

	moduleProgress, courseProgress, _, err := s.progress(ctx, user.ID, module.CourseID, module.ID)
	if err != nil {
		return nil, err
	}

	return &LessonProgress{
		LessonID:        lesson.ID,
		Completed:       p.Completed,
		CompletedAt:     p.CompletedAt,
		ModuleProgress:  moduleProgress.Percentage,
		CourseProgress:  courseProgress.Percentage,
		ModuleCompleted: moduleProgress.Completed,
		ModuleTotal:     moduleProgress.Total,
		CourseCompleted: courseProgress.Completed,
		CourseTotal:     courseProgress.Total,
	}, nil
}

// MyCourses lists the user's courses. Tutors and admins also see the courses
// they authored along with authoring statistics.
func (s *Service) MyCourses(ctx context.Context, user *models.User) (*MyCourses, error) {
	if err := s.authorize(user, authz.MyCoursesRead, nil); err != nil {
		return nil, err
	}

	enrolled, err := s.repo.ListEnrolledCourses(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list enrolled courses: %w", err)
	}

	out := &MyCourses{Courses: make([]*models.Course, 0, len(enrolled)), EnrolledCount: len(enrolled)}
	seen := make(map[int64]bool, len(enrolled))
	for _, c := range enrolled {
		out.EnrolledHours += c.DurationHours
		seen[c.ID] = true
		out.Courses = append(out.Courses, c)
	}

	if !user.IsTutorOrAdmin() {
		return out, nil
	}

	authored, _, err := s.repo.ListCourses(ctx, storage.CourseQuery{AuthorID: user.ID})
	if err != nil {
		return nil, fmt.Errorf("list authored courses: %w", err)
	}

	stats := &AuthoringStats{CreatedCount: len(authored)}
	for _, c := range authored {
		if c.IsPublished {
			stats.PublishedCount++
		}
		stats.CreatedHours += c.DurationHours
		if !seen[c.ID] {
			seen[c.ID] = true
			out.Courses = append(out.Courses, c)
		}
	}
	stats.DraftCount = stats.CreatedCount - stats.PublishedCount
	if stats.CreatedCount > 0 {
		stats.PublishedPercent = percent(stats.PublishedCount, stats.CreatedCount)
		stats.DraftPercent = 100 - stats.PublishedPercent
		stats.LatestCourse = authored[0]
	}

	if stats.TotalStudents, err = s.repo.CountStudents(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("count students: %w", err)
	}

	out.Authoring = stats
	return out, nil
}
