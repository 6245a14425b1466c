package marketplace

import (
	"context"
	"fmt"
	"strings"

	"github.com/terra-clan/studyhub/internal/authz"
	"github.com/terra-clan/studyhub/internal/models"
	"github.com/terra-clan/studyhub/internal/validation"
)

// CourseInput is the course authoring form. Price is in kopecks.
type CourseInput struct {
	Title           string `json:"title" validate:"required,max=200"`
	Description     string `json:"description" validate:"required"`
	FullDescription string `json:"full_description"`
	CategoryID      int64  `json:"category_id" validate:"gte=0"`
	Level           string `json:"level" validate:"required,oneof=beginner middle advanced"`
	Price           int64  `json:"price" validate:"gte=0"`
	DurationHours   int    `json:"duration_hours" validate:"gte=0"`
	IsPopular       bool   `json:"is_popular"`
	IsPublished     bool   `json:"is_published"`
}

// ModuleInput is the module authoring form
type ModuleInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	Order       int    `json:"order" validate:"gte=0"`
}

// LessonInput is the lesson authoring form
type LessonInput struct {
	Title           string `json:"title" validate:"required,max=200"`
	Content         string `json:"content"`
	VideoURL        string `json:"video_url" validate:"omitempty,url"`
	DurationMinutes int    `json:"duration_minutes" validate:"gte=0"`
	Order           int    `json:"order" validate:"gte=0"`
}

func (s *Service) checkCourseInput(ctx context.Context, in *CourseInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return err
	}
	if in.CategoryID == 0 {
		return nil
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	for _, c := range categories {
		if c.ID == in.CategoryID {
			return nil
		}
	}
	return validationErr("category %d does not exist", in.CategoryID)
}

func (in CourseInput) apply(c *models.Course) {
	c.Title = in.Title
	c.Description = in.Description
	c.FullDescription = in.FullDescription
	c.CategoryID = in.CategoryID
	c.Level = models.Level(in.Level)
	c.Price = in.Price
	c.DurationHours = in.DurationHours
	c.IsPopular = in.IsPopular
	c.IsPublished = in.IsPublished
}

// CreateCourse creates a course owned by author
func (s *Service) CreateCourse(ctx context.Context, author *models.User, in CourseInput) (*models.Course, error) {
	if err := s.authorize(author, authz.CourseCreate, nil); err != nil {
		return nil, err
	}
	if err := s.checkCourseInput(ctx, &in); err != nil {
		return nil, err
	}

	course := &models.Course{AuthorID: author.ID}
	in.apply(course)
	if err := s.repo.CreateCourse(ctx, course); err != nil {
		return nil, storageErr("create course", err)
	}

	s.logger.Info("course created", "course_id", course.ID, "author_id", author.ID, "published", course.IsPublished)
	return s.reloadCourse(ctx, course)
}

// reloadCourse re-reads a course so joined names are filled in
func (s *Service) reloadCourse(ctx context.Context, course *models.Course) (*models.Course, error) {
	fresh, err := s.repo.GetCourse(ctx, course.ID)
	if err != nil {
		return nil, storageErr("get course", err)
	}
	return fresh, nil
}

// editableCourse loads a course the user may modify. Courses the user may
// not even see are reported as missing.
func (s *Service) editableCourse(ctx context.Context, user *models.User, action authz.Action, courseID int64) (*models.Course, error) {
	if user == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, authz.ReasonAuthRequired)
	}

	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, storageErr("get course", err)
	}

	if err := s.authorize(user, action, course); err != nil {
		if !course.IsPublished {
			return nil, fmt.Errorf("get course: %w", ErrNotFound)
		}
		return nil, err
	}
	return course, nil
}

// UpdateCourse replaces the editable fields of a course
func (s *Service) UpdateCourse(ctx context.Context, user *models.User, courseID int64, in CourseInput) (*models.Course, error) {
	course, err := s.editableCourse(ctx, user, authz.CourseUpdate, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCourseInput(ctx, &in); err != nil {
		return nil, err
	}

	in.apply(course)
	if err := s.repo.UpdateCourse(ctx, course); err != nil {
		return nil, storageErr("update course", err)
	}

	s.logger.Info("course updated", "course_id", course.ID, "user_id", user.ID)
	return s.reloadCourse(ctx, course)
}

// DeleteCourse removes a course with its modules, lessons and enrollments
func (s *Service) DeleteCourse(ctx context.Context, user *models.User, courseID int64) error {
	course, err := s.editableCourse(ctx, user, authz.CourseDelete, courseID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteCourse(ctx, course.ID); err != nil {
		return storageErr("delete course", err)
	}

	s.logger.Info("course deleted", "course_id", course.ID, "user_id", user.ID)
	return nil
}

// editableModule loads a module of an editable course
func (s *Service) editableModule(ctx context.Context, user *models.User, courseID, moduleID int64) (*models.Module, error) {
	course, err := s.editableCourse(ctx, user, authz.CourseUpdate, courseID)
	if err != nil {
		return nil, err
	}

	module, err := s.repo.GetModule(ctx, moduleID)
	if err != nil {
		return nil, storageErr("get module", err)
	}
	if module.CourseID != course.ID {
		return nil, fmt.Errorf("get module: %w", ErrNotFound)
	}
	return module, nil
}

// CreateModule adds a module to a course
func (s *Service) CreateModule(ctx context.Context, user *models.User, courseID int64, in ModuleInput) (*models.Module, error) {
	course, err := s.editableCourse(ctx, user, authz.CourseUpdate, courseID)
	if err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	module := &models.Module{
		CourseID:    course.ID,
		Title:       in.Title,
		Description: in.Description,
		Order:       in.Order,
	}
	if err := s.repo.CreateModule(ctx, module); err != nil {
		return nil, storageErr("create module", err)
	}
	return module, nil
}

// UpdateModule replaces the editable fields of a module
func (s *Service) UpdateModule(ctx context.Context, user *models.User, courseID, moduleID int64, in ModuleInput) (*models.Module, error) {
	module, err := s.editableModule(ctx, user, courseID, moduleID)
	if err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	module.Title = in.Title
	module.Description = in.Description
	module.Order = in.Order
	if err := s.repo.UpdateModule(ctx, module); err != nil {
		return nil, storageErr("update module", err)
	}
	return module, nil
}

// DeleteModule removes a module and its lessons
func (s *Service) DeleteModule(ctx context.Context, user *models.User, courseID, moduleID int64) error {
	module, err := s.editableModule(ctx, user, courseID, moduleID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteModule(ctx, module.ID); err != nil {
		return storageErr("delete module", err)
	}
	return nil
}

// editableLesson loads a lesson of an editable module
func (s *Service) editableLesson(ctx context.Context, user *models.User, courseID, moduleID, lessonID int64) (*models.Lesson, error) {
	module, err := s.editableModule(ctx, user, courseID, moduleID)
	if err != nil {
		return nil, err
	}

	lesson, err := s.repo.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, storageErr("get lesson", err)
	}
	if lesson.ModuleID != module.ID {
		return nil, fmt.Errorf("get lesson: %w", ErrNotFound)
	}
	return lesson, nil
}

func (in *LessonInput) check() error {
	in.Title = strings.TrimSpace(in.Title)
	in.VideoURL = strings.TrimSpace(in.VideoURL)
	return validation.Struct(in)
}

// CreateLesson adds a lesson to a module
func (s *Service) CreateLesson(ctx context.Context, user *models.User, courseID, moduleID int64, in LessonInput) (*models.Lesson, error) {
	module, err := s.editableModule(ctx, user, courseID, moduleID)
	if err != nil {
		return nil, err
	}
	if err := in.check(); err != nil {
		return nil, err
	}

	lesson := &models.Lesson{
		ModuleID:        module.ID,
		Title:           in.Title,
		Content:         in.Content,
		VideoURL:        in.VideoURL,
		DurationMinutes: in.DurationMinutes,
		Order:           in.Order,
	}
	if err := s.repo.CreateLesson(ctx, lesson); err != nil {
		return nil, storageErr("create lesson", err)
	}
	return lesson, nil
}

// UpdateLesson replaces the editable fields of a lesson
func (s *Service) UpdateLesson(ctx context.Context, user *models.User, courseID, moduleID, lessonID int64, in LessonInput) (*models.Lesson, error) {
	lesson, err := s.editableLesson(ctx, user, courseID, moduleID, lessonID)
	if err != nil {
		return nil, err
	}
	if err := in.check(); err != nil {
		return nil, err
	}

	lesson.Title = in.Title
	lesson.Content = in.Content
	lesson.VideoURL = in.VideoURL
	lesson.DurationMinutes = in.DurationMinutes
	lesson.Order = in.Order
	if err := s.repo.UpdateLesson(ctx, lesson); err != nil {
		return nil, storageErr("update lesson", err)
	}
	return lesson, nil
}

// DeleteLesson removes a lesson
func (s *Service) DeleteLesson(ctx context.Context, user *models.User, courseID, moduleID, lessonID int64) error {
	lesson, err := s.editableLesson(ctx, user, courseID, moduleID, lessonID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteLesson(ctx, lesson.ID); err != nil {
		return storageErr("delete lesson", err)
	}
	return nil
}
