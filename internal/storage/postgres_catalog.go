package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/terra-clan/studyhub/internal/models"
)

// --- Categories ---

// CreateCategory inserts a category and sets its ID
func (r *PostgresRepository) CreateCategory(ctx context.Context, c *models.Category) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING id`,
		c.Name, c.Description,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// GetCategoryByName retrieves a category by its unique name
func (r *PostgresRepository) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var c models.Category
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description FROM categories WHERE name = $1`, name,
	).Scan(&c.ID, &c.Name, &c.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// ListCategories returns all categories ordered by name
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// DeleteCategory removes a category; its courses become uncategorized
func (r *PostgresRepository) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Courses ---

const courseSelect = `
	SELECT c.id, c.title, c.description, c.full_description, COALESCE(c.category_id, 0), COALESCE(cat.name, ''),
	       c.level, c.price, c.duration_hours, c.is_popular, c.is_published, c.author_id, u.username,
	       c.created_at, c.updated_at
	FROM courses c
	LEFT JOIN categories cat ON cat.id = c.category_id
	JOIN users u ON u.id = c.author_id
`

// CreateCourse inserts a course and sets its ID
func (r *PostgresRepository) CreateCourse(ctx context.Context, c *models.Course) error {
	query := `
		INSERT INTO courses (title, description, full_description, category_id, level, price, duration_hours,
		                     is_popular, is_published, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt

	err := r.pool.QueryRow(ctx, query,
		c.Title,
		c.Description,
		c.FullDescription,
		nullInt64(c.CategoryID),
		string(c.Level),
		c.Price,
		c.DurationHours,
		c.IsPopular,
		c.IsPublished,
		c.AuthorID,
		c.CreatedAt,
		c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	return nil
}

// GetCourse retrieves a course by ID
func (r *PostgresRepository) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	c, err := scanCourse(r.pool.QueryRow(ctx, courseSelect+` WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return c, nil
}

// UpdateCourse updates an existing course
func (r *PostgresRepository) UpdateCourse(ctx context.Context, c *models.Course) error {
	query := `
		UPDATE courses
		SET title = $2, description = $3, full_description = $4, category_id = $5, level = $6, price = $7,
		    duration_hours = $8, is_popular = $9, is_published = $10, updated_at = $11
		WHERE id = $1
	`

	c.UpdatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx, query,
		c.ID,
		c.Title,
		c.Description,
		c.FullDescription,
		nullInt64(c.CategoryID),
		string(c.Level),
		c.Price,
		c.DurationHours,
		c.IsPopular,
		c.IsPublished,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCourse removes a course with its modules, lessons and enrollments
func (r *PostgresRepository) DeleteCourse(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCourses returns courses matching q, newest first, and the total match count
func (r *PostgresRepository) ListCourses(ctx context.Context, q CourseQuery) ([]*models.Course, int, error) {
	where := ` WHERE 1=1`
	args := make([]interface{}, 0)
	argNum := 1

	if q.PublishedOnly {
		where += " AND c.is_published = TRUE"
	}

	if q.CategoryID != 0 {
		where += fmt.Sprintf(" AND c.category_id = $%d", argNum)
		args = append(args, q.CategoryID)
		argNum++
	}

	if q.Level != "" {
		where += fmt.Sprintf(" AND c.level = $%d", argNum)
		args = append(args, string(q.Level))
		argNum++
	}

	if q.FreeOnly {
		where += " AND c.price = 0"
	}

	if q.PopularOnly {
		where += " AND c.is_popular = TRUE"
	}

	if q.Search != "" {
		where += fmt.Sprintf(" AND (c.title ILIKE $%d OR c.description ILIKE $%d OR u.username ILIKE $%d)", argNum, argNum, argNum)
		args = append(args, "%"+escapeLike(q.Search)+"%")
		argNum++
	}

	if q.AuthorID != 0 {
		where += fmt.Sprintf(" AND c.author_id = $%d", argNum)
		args = append(args, q.AuthorID)
		argNum++
	}

	if q.ExcludeID != 0 {
		where += fmt.Sprintf(" AND c.id <> $%d", argNum)
		args = append(args, q.ExcludeID)
		argNum++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM courses c JOIN users u ON u.id = c.author_id` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	query := courseSelect + where + " ORDER BY c.created_at DESC, c.id DESC"

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, q.Limit)
		argNum++
	}

	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, q.Offset)
	}

	courses, err := r.queryCourses(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

// PublishedCourses returns the whole published catalog, newest first
func (r *PostgresRepository) PublishedCourses(ctx context.Context) ([]*models.Course, error) {
	courses, _, err := r.ListCourses(ctx, CourseQuery{PublishedOnly: true})
	return courses, err
}

func (r *PostgresRepository) queryCourses(ctx context.Context, query string, args ...interface{}) ([]*models.Course, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var courses []*models.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func scanCourse(row pgx.Row) (*models.Course, error) {
	var c models.Course
	var level string

	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.FullDescription,
		&c.CategoryID,
		&c.CategoryName,
		&level,
		&c.Price,
		&c.DurationHours,
		&c.IsPopular,
		&c.IsPublished,
		&c.AuthorID,
		&c.AuthorName,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Level = models.Level(level)
	return &c, nil
}

// --- Modules ---

// CreateModule inserts a module and sets its ID
func (r *PostgresRepository) CreateModule(ctx context.Context, m *models.Module) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO modules (course_id, title, description, "order", created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		m.CourseID, m.Title, m.Description, m.Order, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to create module: %w", err)
	}
	return nil
}

// GetModule retrieves a module with its lessons
func (r *PostgresRepository) GetModule(ctx context.Context, id int64) (*models.Module, error) {
	var m models.Module
	err := r.pool.QueryRow(ctx,
		`SELECT id, course_id, title, description, "order", created_at FROM modules WHERE id = $1`, id,
	).Scan(&m.ID, &m.CourseID, &m.Title, &m.Description, &m.Order, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get module: %w", err)
	}

	lessons, err := r.listLessons(ctx, `WHERE module_id = $1`, id)
	if err != nil {
		return nil, err
	}
	m.Lessons = lessons
	return &m, nil
}

// UpdateModule updates title, description and order
func (r *PostgresRepository) UpdateModule(ctx context.Context, m *models.Module) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE modules SET title = $2, description = $3, "order" = $4 WHERE id = $1`,
		m.ID, m.Title, m.Description, m.Order,
	)
	if err != nil {
		return fmt.Errorf("failed to update module: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteModule removes a module and its lessons
func (r *PostgresRepository) DeleteModule(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM modules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete module: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListModules returns the modules of a course with their lessons
func (r *PostgresRepository) ListModules(ctx context.Context, courseID int64) ([]*models.Module, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, course_id, title, description, "order", created_at FROM modules WHERE course_id = $1 ORDER BY "order", id`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	var modules []*models.Module
	byID := make(map[int64]*models.Module)
	for rows.Next() {
		var m models.Module
		if err := rows.Scan(&m.ID, &m.CourseID, &m.Title, &m.Description, &m.Order, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		modules = append(modules, &m)
		byID[m.ID] = &m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lessons, err := r.listLessons(ctx, `WHERE module_id IN (SELECT id FROM modules WHERE course_id = $1)`, courseID)
	if err != nil {
		return nil, err
	}
	for _, l := range lessons {
		if m, ok := byID[l.ModuleID]; ok {
			m.Lessons = append(m.Lessons, l)
		}
	}

	return modules, nil
}

// --- Lessons ---

// CreateLesson inserts a lesson and sets its ID
func (r *PostgresRepository) CreateLesson(ctx context.Context, l *models.Lesson) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO lessons (module_id, title, content, video_url, duration_minutes, "order", created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		l.ModuleID, l.Title, l.Content, l.VideoURL, l.DurationMinutes, l.Order, l.CreatedAt,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("failed to create lesson: %w", err)
	}
	return nil
}

// GetLesson retrieves a lesson by ID
func (r *PostgresRepository) GetLesson(ctx context.Context, id int64) (*models.Lesson, error) {
	lessons, err := r.listLessons(ctx, `WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(lessons) == 0 {
		return nil, ErrNotFound
	}
	return lessons[0], nil
}

// UpdateLesson updates an existing lesson
func (r *PostgresRepository) UpdateLesson(ctx context.Context, l *models.Lesson) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE lessons SET title = $2, content = $3, video_url = $4, duration_minutes = $5, "order" = $6 WHERE id = $1`,
		l.ID, l.Title, l.Content, l.VideoURL, l.DurationMinutes, l.Order,
	)
	if err != nil {
		return fmt.Errorf("failed to update lesson: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLesson removes a lesson
func (r *PostgresRepository) DeleteLesson(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lesson: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) listLessons(ctx context.Context, where string, args ...interface{}) ([]*models.Lesson, error) {
	query := `SELECT id, module_id, title, content, video_url, duration_minutes, "order", created_at FROM lessons ` +
		where + ` ORDER BY "order", id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	defer rows.Close()

	var lessons []*models.Lesson
	for rows.Next() {
		var l models.Lesson
		if err := rows.Scan(&l.ID, &l.ModuleID, &l.Title, &l.Content, &l.VideoURL, &l.DurationMinutes, &l.Order, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		lessons = append(lessons, &l)
	}
	return lessons, rows.Err()
}
