package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/terra-clan/studyhub/internal/models"
)

// --- Enrollments ---

// CreateEnrollment inserts an enrollment; ErrDuplicate if the user is already enrolled
func (r *PostgresRepository) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO enrollments (user_id, course_id, enrolled_at, completed) VALUES ($1, $2, $3, $4) RETURNING id`,
		e.UserID, e.CourseID, e.EnrolledAt, e.Completed,
	).Scan(&e.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create enrollment: %w", err)
	}
	return nil
}

// GetEnrollment returns the enrollment of a user in a course
func (r *PostgresRepository) GetEnrollment(ctx context.Context, userID, courseID int64) (*models.Enrollment, error) {
	var e models.Enrollment
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, course_id, enrolled_at, completed FROM enrollments WHERE user_id = $1 AND course_id = $2`,
		userID, courseID,
	).Scan(&e.ID, &e.UserID, &e.CourseID, &e.EnrolledAt, &e.Completed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return &e, nil
}

// ListEnrolledCourses returns the courses a user is enrolled in, most recent enrollment first
func (r *PostgresRepository) ListEnrolledCourses(ctx context.Context, userID int64) ([]*models.Course, error) {
	query := courseSelect + `
		JOIN enrollments e ON e.course_id = c.id
		WHERE e.user_id = $1
		ORDER BY e.enrolled_at DESC, e.id DESC
	`
	return r.queryCourses(ctx, query, userID)
}

// CountStudents counts distinct students enrolled in courses written by authorID
func (r *PostgresRepository) CountStudents(ctx context.Context, authorID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT e.user_id)
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		WHERE c.author_id = $1
	`, authorID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return n, nil
}

// --- Reviews ---

// CreateReview inserts a review; ErrDuplicate if the user already reviewed the course
func (r *PostgresRepository) CreateReview(ctx context.Context, rv *models.Review) error {
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO reviews (user_id, course_id, rating, comment, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		rv.UserID, rv.CourseID, rv.Rating, rv.Comment, rv.CreatedAt,
	).Scan(&rv.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// ListReviews returns reviews of a course, newest first
func (r *PostgresRepository) ListReviews(ctx context.Context, courseID int64) ([]*models.Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT rv.id, rv.user_id, u.username, rv.course_id, rv.rating, rv.comment, rv.created_at
		FROM reviews rv
		JOIN users u ON u.id = rv.user_id
		WHERE rv.course_id = $1
		ORDER BY rv.created_at DESC, rv.id DESC
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*models.Review
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.Username, &rv.CourseID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, &rv)
	}
	return reviews, rows.Err()
}

// --- Progress ---

// UpsertProgress creates or replaces the progress record of a lesson
func (r *PostgresRepository) UpsertProgress(ctx context.Context, p *models.Progress) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO progress (user_id, lesson_id, completed, completed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, lesson_id)
		DO UPDATE SET completed = EXCLUDED.completed, completed_at = EXCLUDED.completed_at
	`, p.UserID, p.LessonID, p.Completed, nullTime(p.CompletedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return nil
}

// ListProgress returns a user's progress records for lessons of a course
func (r *PostgresRepository) ListProgress(ctx context.Context, userID, courseID int64) ([]*models.Progress, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.user_id, p.lesson_id, p.completed, p.completed_at
		FROM progress p
		JOIN lessons l ON l.id = p.lesson_id
		JOIN modules m ON m.id = l.module_id
		WHERE p.user_id = $1 AND m.course_id = $2
	`, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	var out []*models.Progress
	for rows.Next() {
		var p models.Progress
		var completedAt sql.NullTime
		if err := rows.Scan(&p.UserID, &p.LessonID, &p.Completed, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		if completedAt.Valid {
			p.CompletedAt = &completedAt.Time
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// --- Orders ---

// PlaceOrder stores an order with its items and enrolls the buyer in every
// purchased course, all in one transaction. Existing enrollments are kept.
func (r *PostgresRepository) PlaceOrder(ctx context.Context, o *models.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO orders (user_id, status, total, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		o.UserID, string(o.Status), o.Total, o.CreatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range o.Items {
		item.OrderID = o.ID
		err := tx.QueryRow(ctx,
			`INSERT INTO order_items (order_id, course_id, title, price) VALUES ($1, $2, $3, $4) RETURNING id`,
			item.OrderID, item.CourseID, item.CourseTitle, item.Price,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO enrollments (user_id, course_id, enrolled_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, course_id) DO NOTHING
		`, o.UserID, item.CourseID, o.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to enroll in course %d: %w", item.CourseID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

// ListOrders returns a user's orders with items, newest first
func (r *PostgresRepository) ListOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, status, total, created_at FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	byID := make(map[int64]*models.Order)
	for rows.Next() {
		var o models.Order
		var status string
		if err := rows.Scan(&o.ID, &o.UserID, &status, &o.Total, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Status = models.OrderStatus(status)
		o.Items = []*models.OrderItem{}
		orders = append(orders, &o)
		byID[o.ID] = &o
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := r.pool.Query(ctx, `
		SELECT oi.id, oi.order_id, COALESCE(oi.course_id, 0), oi.title, oi.price
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.user_id = $1
		ORDER BY oi.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item models.OrderItem
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.CourseID, &item.CourseTitle, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, &item)
		}
	}
	return orders, itemRows.Err()
}

// TopSellingCourses ranks courses by the number of items sold in paid orders
func (r *PostgresRepository) TopSellingCourses(ctx context.Context, limit int) ([]*models.CourseSales, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT COALESCE(oi.course_id, 0), oi.title, COUNT(*) AS sold, COALESCE(SUM(oi.price), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.status = 'paid'
		GROUP BY oi.course_id, oi.title
		ORDER BY sold DESC, oi.title
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank courses: %w", err)
	}
	defer rows.Close()

	var out []*models.CourseSales
	for rows.Next() {
		var s models.CourseSales
		if err := rows.Scan(&s.CourseID, &s.Title, &s.Sold, &s.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan course sales: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// RevenueSince sums item prices and counts paid orders created at or after since
func (r *PostgresRepository) RevenueSince(ctx context.Context, since time.Time) (int64, int, error) {
	var revenue int64
	var orders int
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE((SELECT SUM(oi.price) FROM order_items oi JOIN orders o ON o.id = oi.order_id
			          WHERE o.status = 'paid' AND o.created_at >= $1), 0),
			(SELECT COUNT(*) FROM orders WHERE status = 'paid' AND created_at >= $1)
	`, since).Scan(&revenue, &orders)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to compute revenue: %w", err)
	}
	return revenue, orders, nil
}

// Totals returns platform-wide counters
func (r *PostgresRepository) Totals(ctx context.Context) (*models.PlatformTotals, error) {
	var t models.PlatformTotals
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM courses),
			(SELECT COUNT(*) FROM courses WHERE is_published),
			(SELECT COUNT(*) FROM enrollments),
			(SELECT COUNT(*) FROM orders)
	`).Scan(&t.Users, &t.Courses, &t.PublishedCourses, &t.Enrollments, &t.Orders)
	if err != nil {
		return nil, fmt.Errorf("failed to compute totals: %w", err)
	}
	return &t, nil
}

// --- Support requests ---

const supportColumns = `id, name, contact, contact_type, message, status, created_at, completed_at`

// CreateSupportRequest stores a support request
func (r *PostgresRepository) CreateSupportRequest(ctx context.Context, s *models.SupportRequest) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO support_requests (name, contact, contact_type, message, status, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, s.Name, s.Contact, s.ContactType, s.Message, string(s.Status), s.CreatedAt, nullTime(s.CompletedAt)).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to create support request: %w", err)
	}
	return nil
}

// GetSupportRequest retrieves a support request by ID
func (r *PostgresRepository) GetSupportRequest(ctx context.Context, id int64) (*models.SupportRequest, error) {
	s, err := scanSupportRequest(r.pool.QueryRow(ctx, `SELECT `+supportColumns+` FROM support_requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get support request: %w", err)
	}
	return s, nil
}

// UpdateSupportRequest updates status and completion time
func (r *PostgresRepository) UpdateSupportRequest(ctx context.Context, s *models.SupportRequest) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE support_requests SET status = $2, completed_at = $3 WHERE id = $1`,
		s.ID, string(s.Status), nullTime(s.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update support request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSupportRequests returns requests with the given status (all when empty), newest first
func (r *PostgresRepository) ListSupportRequests(ctx context.Context, status models.SupportStatus) ([]*models.SupportRequest, error) {
	query := `SELECT ` + supportColumns + ` FROM support_requests`
	args := make([]interface{}, 0)
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list support requests: %w", err)
	}
	defer rows.Close()

	var out []*models.SupportRequest
	for rows.Next() {
		s, err := scanSupportRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan support request: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountSupportRequests counts requests by status
func (r *PostgresRepository) CountSupportRequests(ctx context.Context) (*SupportCounts, error) {
	var c SupportCounts
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*)
		FROM support_requests
	`).Scan(&c.Pending, &c.Completed, &c.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to count support requests: %w", err)
	}
	return &c, nil
}

func scanSupportRequest(row pgx.Row) (*models.SupportRequest, error) {
	var s models.SupportRequest
	var status string
	var completedAt sql.NullTime

	if err := row.Scan(&s.ID, &s.Name, &s.Contact, &s.ContactType, &s.Message, &status, &s.CreatedAt, &completedAt); err != nil {
		return nil, err
	}
	s.Status = models.SupportStatus(status)
	if completedAt.Valid {
		s.CompletedAt = &completedAt.Time
	}
	return &s, nil
}
