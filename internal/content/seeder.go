package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/terra-clan/studyhub/internal/models"
	"github.com/terra-clan/studyhub/internal/storage"
)

// SeedResult reports what a seed run created
type SeedResult struct {
	TutorCreated      bool
	Tutor             string
	CategoriesCreated int
	Categories        int
	CoursesCreated    int
	Cleared           bool
}

// Seeder writes a SeedCatalog into a repository
type Seeder struct {
	repo   storage.Repository
	logger *slog.Logger
}

// NewSeeder creates a seeder for repo
func NewSeeder(repo storage.Repository) *Seeder {
	return &Seeder{
		repo:   repo,
		logger: slog.With("component", "seeder"),
	}
}

// Seed creates the demo tutor, categories and published courses.
// Existing rows (by username, category name, course title) are left alone,
// so running it twice creates nothing new. With clear set, all courses and
// categories are removed first.
func (s *Seeder) Seed(ctx context.Context, catalog *SeedCatalog, clear bool) (*SeedResult, error) {
	result := &SeedResult{Tutor: catalog.Tutor.Username}

	if clear {
		if err := s.clear(ctx); err != nil {
			return nil, err
		}
		result.Cleared = true
	}

	tutor, created, err := s.tutor(ctx, catalog.Tutor)
	if err != nil {
		return nil, err
	}
	result.TutorCreated = created

	categories := make(map[string]int64, len(catalog.Categories))
	for _, c := range catalog.Categories {
		existing, err := s.repo.GetCategoryByName(ctx, c.Name)
		if err == nil {
			categories[c.Name] = existing.ID
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("lookup category %q: %w", c.Name, err)
		}

		cat := &models.Category{Name: c.Name, Description: c.Description}
		if err := s.repo.CreateCategory(ctx, cat); err != nil {
			return nil, fmt.Errorf("create category %q: %w", c.Name, err)
		}
		categories[c.Name] = cat.ID
		result.CategoriesCreated++
		s.logger.Info("category created", "name", cat.Name)
	}
	result.Categories = len(categories)

	existing, _, err := s.repo.ListCourses(ctx, storage.CourseQuery{})
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	titles := make(map[string]bool, len(existing))
	for _, c := range existing {
		titles[c.Title] = true
	}

	for _, sc := range catalog.Courses {
		if titles[sc.Title] {
			continue
		}
		course := &models.Course{
			Title:           sc.Title,
			Description:     sc.Description,
			FullDescription: sc.FullDescription,
			CategoryID:      categories[sc.Category],
			Level:           sc.Level,
			Price:           sc.Price * 100,
			DurationHours:   sc.DurationHours,
			IsPopular:       sc.Popular,
			IsPublished:     true,
			AuthorID:        tutor.ID,
		}
		if err := s.repo.CreateCourse(ctx, course); err != nil {
			return nil, fmt.Errorf("create course %q: %w", sc.Title, err)
		}
		titles[sc.Title] = true
		result.CoursesCreated++
		s.logger.Info("course created", "title", course.Title)
	}

	return result, nil
}

func (s *Seeder) tutor(ctx context.Context, t SeedTutor) (*models.User, bool, error) {
	u, err := s.repo.GetUserByUsername(ctx, t.Username)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("lookup tutor: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(t.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("hash tutor password: %w", err)
	}

	u = &models.User{
		Username:     t.Username,
		Email:        t.Email,
		PasswordHash: string(hash),
		FirstName:    t.FirstName,
		LastName:     t.LastName,
		Role:         models.RoleTutor,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, false, fmt.Errorf("create tutor: %w", err)
	}
	s.logger.Info("tutor created", "username", u.Username)
	return u, true, nil
}

func (s *Seeder) clear(ctx context.Context) error {
	s.logger.Warn("removing existing courses and categories")

	courses, _, err := s.repo.ListCourses(ctx, storage.CourseQuery{})
	if err != nil {
		return fmt.Errorf("list courses: %w", err)
	}
	for _, c := range courses {
		if err := s.repo.DeleteCourse(ctx, c.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("delete course %d: %w", c.ID, err)
		}
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	for _, c := range categories {
		if err := s.repo.DeleteCategory(ctx, c.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("delete category %d: %w", c.ID, err)
		}
	}
	return nil
}
