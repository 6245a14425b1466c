package marketplace

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/terra-clan/studyhub/internal/authz"
	"github.com/terra-clan/studyhub/internal/models"
	"github.com/terra-clan/studyhub/internal/storage"
)

const (
	// PageSize is the number of courses per catalog page
	PageSize = 9

	homeSectionSize = 3
	similarCourses  = 3
)

// CourseFilter narrows the public catalog
type CourseFilter struct {
	CategoryID int64
	Level      string // "" or "all" disables the filter
	Free       bool
	Search     string
	Page       int
}

// Page is one page of catalog results
type Page struct {
	Items    []*models.Course `json:"items"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
	Total    int              `json:"total"`
	PageSize int              `json:"page_size"`
}

// CourseDetail is everything shown on a course page
type CourseDetail struct {
	Course           *models.Course     `json:"course"`
	Modules          []*models.Module   `json:"modules"`
	Reviews          []*models.Review   `json:"reviews"`
	AverageRating    float64            `json:"average_rating"`
	ReviewCount      int                `json:"review_count"`
	HasReviewed      bool               `json:"has_reviewed"`
	Enrollment       *models.Enrollment `json:"enrollment,omitempty"`
	IsEnrolled       bool               `json:"is_enrolled"`
	Similar          []*models.Course   `json:"similar_courses"`
	TotalLessons     int                `json:"total_lessons"`
	CompletedLessons int                `json:"completed_lessons"`
	ProgressPercent  int                `json:"progress_percent"`
	CanEdit          bool               `json:"can_edit"`
}

// HomePage is the landing page content
type HomePage struct {
	Featured    []*models.Course   `json:"featured"`
	FreeCourses []*models.Course   `json:"free_courses"`
	FreeTotal   int                `json:"free_total"`
	Categories  []*models.Category `json:"categories"`
}

// Tutor is the public view of a tutor
type Tutor struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	Bio         string `json:"bio,omitempty"`
	CourseCount int    `json:"course_count"`
}

// ModuleSummary is a module in the course outline
type ModuleSummary struct {
	*models.Module
	LessonCount     int `json:"lesson_count"`
	DurationMinutes int `json:"duration_minutes"`
}

// ProgressSummary counts completed lessons in a module or course
type ProgressSummary struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

func newProgressSummary(completed, total int) *ProgressSummary {
	return &ProgressSummary{Completed: completed, Total: total, Percentage: percent(completed, total)}
}

// LessonStatus is a lesson with the viewer's completion flag
type LessonStatus struct {
	*models.Lesson
	Completed bool `json:"completed"`
}

// ModuleDetail is a module page
type ModuleDetail struct {
	Course     *models.Course   `json:"course"`
	Module     *models.Module   `json:"module"`
	Lessons    []*LessonStatus  `json:"lessons"`
	IsEnrolled bool             `json:"is_enrolled"`
	Progress   *ProgressSummary `json:"progress,omitempty"`
}

// LessonDetail is a lesson page
type LessonDetail struct {
	Course         *models.Course   `json:"course"`
	Module         *models.Module   `json:"module"`
	Lesson         *models.Lesson   `json:"lesson"`
	Previous       *models.Lesson   `json:"previous,omitempty"`
	Next           *models.Lesson   `json:"next,omitempty"`
	IsEnrolled     bool             `json:"is_enrolled"`
	Completed      bool             `json:"completed"`
	ModuleProgress *ProgressSummary `json:"module_progress,omitempty"`
	CourseProgress *ProgressSummary `json:"course_progress,omitempty"`
}

// ListCourses returns one page of the published catalog, newest first
func (s *Service) ListCourses(ctx context.Context, f CourseFilter) (*Page, error) {
	q := storage.CourseQuery{
		PublishedOnly: true,
		CategoryID:    f.CategoryID,
		FreeOnly:      f.Free,
		Search:        strings.TrimSpace(f.Search),
		Limit:         PageSize,
	}
	if level := strings.TrimSpace(f.Level); level != "" && level != "all" {
		q.Level = models.Level(level)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	q.Offset = (page - 1) * PageSize

	items, total, err := s.repo.ListCourses(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	pages := pageCount(total)
	if page > pages {
		page = pages
		q.Offset = (page - 1) * PageSize
		items, total, err = s.repo.ListCourses(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("list courses: %w", err)
		}
	}

	if items == nil {
		items = []*models.Course{}
	}
	return &Page{Items: items, Page: page, Pages: pages, Total: total, PageSize: PageSize}, nil
}

func pageCount(total int) int {
	if total <= 0 {
		return 1
	}
	return (total + PageSize - 1) / PageSize
}

// Categories lists course categories
func (s *Service) Categories(ctx context.Context) ([]*models.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if categories == nil {
		categories = []*models.Category{}
	}
	return categories, nil
}

// visibleCourse loads a course the viewer may see. Drafts are visible only
// to their author and to admins; to everyone else they do not exist.
func (s *Service) visibleCourse(ctx context.Context, viewer *models.User, courseID int64) (*models.Course, error) {
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, storageErr("get course", err)
	}
	if !course.IsPublished && !s.canEdit(viewer, course) {
		return nil, fmt.Errorf("get course: %w", ErrNotFound)
	}
	return course, nil
}

func (s *Service) canEdit(viewer *models.User, course *models.Course) bool {
	return viewer != nil && s.guard.Can(viewer, authz.CourseUpdate, course)
}

// enrollment returns the viewer's enrollment in a course or nil
func (s *Service) enrollment(ctx context.Context, viewer *models.User, courseID int64) (*models.Enrollment, error) {
	if viewer == nil {
		return nil, nil
	}
	e, err := s.repo.GetEnrollment(ctx, viewer.ID, courseID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return e, nil
}

// completedLessons returns the set of lessons the user completed in a course
func (s *Service) completedLessons(ctx context.Context, userID, courseID int64) (map[int64]bool, error) {
	progress, err := s.repo.ListProgress(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	done := make(map[int64]bool, len(progress))
	for _, p := range progress {
		if p.Completed {
			done[p.LessonID] = true
		}
	}
	return done, nil
}

// CourseDetail assembles the course page for viewer (nil for anonymous)
func (s *Service) CourseDetail(ctx context.Context, viewer *models.User, courseID int64) (*CourseDetail, error) {
	course, err := s.visibleCourse(ctx, viewer, courseID)
	if err != nil {
		return nil, err
	}

	detail := &CourseDetail{
		Course:  course,
		CanEdit: s.canEdit(viewer, course),
		Similar: []*models.Course{},
		Reviews: []*models.Review{},
		Modules: []*models.Module{},
	}

	var done map[int64]bool
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reviews, err := s.repo.ListReviews(gctx, course.ID)
		if err != nil {
			return fmt.Errorf("list reviews: %w", err)
		}
		if reviews != nil {
			detail.Reviews = reviews
		}
		return nil
	})

	g.Go(func() error {
		modules, err := s.repo.ListModules(gctx, course.ID)
		if err != nil {
			return fmt.Errorf("list modules: %w", err)
		}
		if modules != nil {
			detail.Modules = modules
		}
		return nil
	})

	if course.CategoryID != 0 {
		g.Go(func() error {
			similar, _, err := s.repo.ListCourses(gctx, storage.CourseQuery{
				PublishedOnly: true,
				CategoryID:    course.CategoryID,
				ExcludeID:     course.ID,
				Limit:         similarCourses,
			})
			if err != nil {
				return fmt.Errorf("list similar courses: %w", err)
			}
			if similar != nil {
				detail.Similar = similar
			}
			return nil
		})
	}

	if viewer != nil {
		g.Go(func() error {
			e, err := s.enrollment(gctx, viewer, course.ID)
			detail.Enrollment = e
			return err
		})
		g.Go(func() error {
			var err error
			done, err = s.completedLessons(gctx, viewer.ID, course.ID)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	detail.ReviewCount = len(detail.Reviews)
	if detail.ReviewCount > 0 {
		sum := 0
		for _, r := range detail.Reviews {
			sum += r.Rating
			if viewer != nil && r.UserID == viewer.ID {
				detail.HasReviewed = true
			}
		}
		detail.AverageRating = math.Round(float64(sum)/float64(detail.ReviewCount)*10) / 10
	}

	for _, m := range detail.Modules {
		detail.TotalLessons += len(m.Lessons)
	}

	detail.IsEnrolled = detail.Enrollment != nil
	if detail.IsEnrolled {
		for _, m := range detail.Modules {
			for _, l := range m.Lessons {
				if done[l.ID] {
					detail.CompletedLessons++
				}
			}
		}
		detail.ProgressPercent = percent(detail.CompletedLessons, detail.TotalLessons)
	}

	return detail, nil
}

// Home returns the landing page: featured courses, free courses and categories
func (s *Service) Home(ctx context.Context) (*HomePage, error) {
	home := &HomePage{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		featured, _, err := s.repo.ListCourses(gctx, storage.CourseQuery{
			PublishedOnly: true,
			PopularOnly:   true,
			Limit:         homeSectionSize,
		})
		if err != nil {
			return fmt.Errorf("list popular courses: %w", err)
		}
		if len(featured) == 0 {
			featured, _, err = s.repo.ListCourses(gctx, storage.CourseQuery{
				PublishedOnly: true,
				Limit:         homeSectionSize,
			})
			if err != nil {
				return fmt.Errorf("list latest courses: %w", err)
			}
		}
		home.Featured = featured
		return nil
	})

	g.Go(func() error {
		free, total, err := s.repo.ListCourses(gctx, storage.CourseQuery{
			PublishedOnly: true,
			FreeOnly:      true,
			Limit:         homeSectionSize,
		})
		if err != nil {
			return fmt.Errorf("list free courses: %w", err)
		}
		home.FreeCourses = free
		home.FreeTotal = total
		return nil
	})

	g.Go(func() error {
		categories, err := s.Categories(gctx)
		home.Categories = categories
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if home.Featured == nil {
		home.Featured = []*models.Course{}
	}
	if home.FreeCourses == nil {
		home.FreeCourses = []*models.Course{}
	}
	return home, nil
}

// Tutors lists users with the tutor role and their published course counts
func (s *Service) Tutors(ctx context.Context) ([]*Tutor, error) {
	users, err := s.repo.ListUsersByRole(ctx, models.RoleTutor)
	if err != nil {
		return nil, fmt.Errorf("list tutors: %w", err)
	}

	tutors := make([]*Tutor, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, u := range users {
		g.Go(func() error {
			_, count, err := s.repo.ListCourses(gctx, storage.CourseQuery{
				PublishedOnly: true,
				AuthorID:      u.ID,
				Limit:         1,
			})
			if err != nil {
				return fmt.Errorf("count courses of %s: %w", u.Username, err)
			}
			tutors[i] = &Tutor{
				ID:          u.ID,
				Username:    u.Username,
				FullName:    u.FullName(),
				Bio:         u.Bio,
				CourseCount: count,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tutors, nil
}

// Modules returns the outline of a course
func (s *Service) Modules(ctx context.Context, viewer *models.User, courseID int64) ([]*ModuleSummary, error) {
	if _, err := s.visibleCourse(ctx, viewer, courseID); err != nil {
		return nil, err
	}

	modules, err := s.repo.ListModules(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}

	out := make([]*ModuleSummary, 0, len(modules))
	for _, m := range modules {
		out = append(out, &ModuleSummary{
			Module:          m,
			LessonCount:     len(m.Lessons),
			DurationMinutes: m.TotalDuration(),
		})
	}
	return out, nil
}

// courseModule loads a visible course and one of its modules
func (s *Service) courseModule(ctx context.Context, viewer *models.User, courseID, moduleID int64) (*models.Course, *models.Module, error) {
	course, err := s.visibleCourse(ctx, viewer, courseID)
	if err != nil {
		return nil, nil, err
	}

	module, err := s.repo.GetModule(ctx, moduleID)
	if err != nil {
		return nil, nil, storageErr("get module", err)
	}
	if module.CourseID != course.ID {
		return nil, nil, fmt.Errorf("get module: %w", ErrNotFound)
	}
	return course, module, nil
}

// ModuleDetail returns a module with its ordered lessons. Enrolled viewers
// also get completion flags and module progress.
func (s *Service) ModuleDetail(ctx context.Context, viewer *models.User, courseID, moduleID int64) (*ModuleDetail, error) {
	course, module, err := s.courseModule(ctx, viewer, courseID, moduleID)
	if err != nil {
		return nil, err
	}

	detail := &ModuleDetail{Course: course, Module: module, Lessons: make([]*LessonStatus, 0, len(module.Lessons))}

	enrollment, err := s.enrollment(ctx, viewer, course.ID)
	if err != nil {
		return nil, err
	}

	var done map[int64]bool
	if enrollment != nil {
		detail.IsEnrolled = true
		if done, err = s.completedLessons(ctx, viewer.ID, course.ID); err != nil {
			return nil, err
		}
	}

	completed := 0
	for _, l := range module.Lessons {
		status := &LessonStatus{Lesson: l, Completed: done[l.ID]}
		if status.Completed {
			completed++
		}
		detail.Lessons = append(detail.Lessons, status)
	}

	if detail.IsEnrolled {
		detail.Progress = newProgressSummary(completed, len(module.Lessons))
	}
	return detail, nil
}

// LessonDetail returns a lesson with its neighbours in the module. Lessons
// are public; enrolled viewers also get lesson, module and course progress.
func (s *Service) LessonDetail(ctx context.Context, viewer *models.User, courseID, moduleID, lessonID int64) (*LessonDetail, error) {
	course, module, err := s.courseModule(ctx, viewer, courseID, moduleID)
	if err != nil {
		return nil, err
	}

	detail := &LessonDetail{Course: course, Module: module}
	for i, l := range module.Lessons {
		if l.ID != lessonID {
			continue
		}
		detail.Lesson = l
		if i > 0 {
			detail.Previous = module.Lessons[i-1]
		}
		if i+1 < len(module.Lessons) {
			detail.Next = module.Lessons[i+1]
		}
		break
	}
	if detail.Lesson == nil {
		return nil, fmt.Errorf("get lesson: %w", ErrNotFound)
	}

	enrollment, err := s.enrollment(ctx, viewer, course.ID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return detail, nil
	}

	detail.IsEnrolled = true
	moduleProgress, courseProgress, done, err := s.progress(ctx, viewer.ID, course.ID, module.ID)
	if err != nil {
		return nil, err
	}
	detail.Completed = done[lessonID]
	detail.ModuleProgress = moduleProgress
	detail.CourseProgress = courseProgress
	return detail, nil
}

// progress computes module and course progress of a user
func (s *Service) progress(ctx context.Context, userID, courseID, moduleID int64) (*ProgressSummary, *ProgressSummary, map[int64]bool, error) {
	done, err := s.completedLessons(ctx, userID, courseID)
	if err != nil {
		return nil, nil, nil, err
	}

	modules, err := s.repo.ListModules(ctx, courseID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list modules: %w", err)
	}

	var moduleDone, moduleTotal, courseDone, courseTotal int
	for _, m := range modules {
		for _, l := range m.Lessons {
			courseTotal++
			if done[l.ID] {
				courseDone++
			}
			if m.ID == moduleID {
				moduleTotal++
				if done[l.ID] {
					moduleDone++
				}
			}
		}
	}
	return newProgressSummary(moduleDone, moduleTotal), newProgressSummary(courseDone, courseTotal), done, nil
}
