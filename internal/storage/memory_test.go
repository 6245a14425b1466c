package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/studyhub/internal/models"
)

func seedAuthor(t *testing.T, repo *MemoryRepository, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Role: models.RoleTutor}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	u := seedAuthor(t, repo, "alice")
	assert.NotZero(t, u.ID)

	err := repo.CreateUser(ctx, &models.User{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)

	err = repo.CreateUser(ctx, &models.User{Username: "bob", Email: "ALICE@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := repo.GetUserByEmail(ctx, "  Alice@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	got.Bio = "changed"
	require.NoError(t, repo.UpdateUser(ctx, got))
	again, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "changed", again.Bio)

	tutors, err := repo.ListUsersByRole(ctx, models.RoleTutor)
	require.NoError(t, err)
	assert.Len(t, tutors, 1)
}

func TestMemorySessionsExpire(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateSession(ctx, &models.Session{ID: "a", UserID: 1, ExpiresAt: base.Add(time.Hour)}))
	require.NoError(t, repo.CreateSession(ctx, &models.Session{ID: "b", UserID: 1, ExpiresAt: base.Add(-time.Hour)}))

	n, err := repo.DeleteExpiredSessions(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetSession(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetSession(ctx, "a")
	assert.NoError(t, err)
}

func TestMemoryListCourses(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	author := seedAuthor(t, repo, "tutor_demo")

	cat := &models.Category{Name: "Программирование"}
	require.NoError(t, repo.CreateCategory(ctx, cat))

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	courses := []*models.Course{
		{Title: "Python для начинающих", Level: models.LevelBeginner, CategoryID: cat.ID, IsPublished: true, IsPopular: true, CreatedAt: base},
		{Title: "Продвинутый Python", Level: models.LevelAdvanced, Price: 500000, CategoryID: cat.ID, IsPublished: true, CreatedAt: base.Add(time.Hour)},
		{Title: "Черновик", Level: models.LevelBeginner, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, c := range courses {
		c.AuthorID = author.ID
		require.NoError(t, repo.CreateCourse(ctx, c))
	}

	published, err := repo.PublishedCourses(ctx)
	require.NoError(t, err)
	require.Len(t, published, 2)
	assert.Equal(t, "Продвинутый Python", published[0].Title)
	assert.Equal(t, "Программирование", published[0].CategoryName)
	assert.Equal(t, "tutor_demo", published[0].AuthorName)

	free, total, err := repo.ListCourses(ctx, CourseQuery{PublishedOnly: true, FreeOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Python для начинающих", free[0].Title)

	found, _, err := repo.ListCourses(ctx, CourseQuery{Search: "TUTOR_demo"})
	require.NoError(t, err)
	assert.Len(t, found, 3)

	page, total, err := repo.ListCourses(ctx, CourseQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Продвинутый Python", page[0].Title)

	empty, _, err := repo.ListCourses(ctx, CourseQuery{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryDeleteCourseCascades(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	author := seedAuthor(t, repo, "author")

	course := &models.Course{Title: "Go", AuthorID: author.ID, Price: 1000, IsPublished: true}
	require.NoError(t, repo.CreateCourse(ctx, course))
	mod := &models.Module{CourseID: course.ID, Title: "Intro"}
	require.NoError(t, repo.CreateModule(ctx, mod))
	lesson := &models.Lesson{ModuleID: mod.ID, Title: "Hello"}
	require.NoError(t, repo.CreateLesson(ctx, lesson))

	order := &models.Order{UserID: author.ID, Status: models.OrderPaid, Total: 1000,
		Items: []*models.OrderItem{{CourseID: course.ID, CourseTitle: "Go", Price: 1000}}}
	require.NoError(t, repo.PlaceOrder(ctx, order))

	require.NoError(t, repo.DeleteCourse(ctx, course.ID))

	_, err := repo.GetModule(ctx, mod.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetLesson(ctx, lesson.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetEnrollment(ctx, author.ID, course.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	orders, err := repo.ListOrders(ctx, author.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(0), orders[0].Items[0].CourseID)
	assert.Equal(t, "Go", orders[0].Items[0].CourseTitle)

	assert.ErrorIs(t, repo.DeleteCourse(ctx, course.ID), ErrNotFound)
}

func TestMemoryModulesOrdered(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	author := seedAuthor(t, repo, "author")

	course := &models.Course{Title: "Go", AuthorID: author.ID}
	require.NoError(t, repo.CreateCourse(ctx, course))

	second := &models.Module{CourseID: course.ID, Title: "Second", Order: 2}
	first := &models.Module{CourseID: course.ID, Title: "First", Order: 1}
	require.NoError(t, repo.CreateModule(ctx, second))
	require.NoError(t, repo.CreateModule(ctx, first))
	require.NoError(t, repo.CreateLesson(ctx, &models.Lesson{ModuleID: first.ID, Title: "b", Order: 2, DurationMinutes: 10}))
	require.NoError(t, repo.CreateLesson(ctx, &models.Lesson{ModuleID: first.ID, Title: "a", Order: 1, DurationMinutes: 5}))

	modules, err := repo.ListModules(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "First", modules[0].Title)
	require.Len(t, modules[0].Lessons, 2)
	assert.Equal(t, "a", modules[0].Lessons[0].Title)
	assert.Equal(t, 15, modules[0].TotalDuration())

	assert.ErrorIs(t, repo.CreateModule(ctx, &models.Module{CourseID: 999}), ErrNotFound)
	assert.ErrorIs(t, repo.CreateLesson(ctx, &models.Lesson{ModuleID: 999}), ErrNotFound)
}

func TestMemoryEnrollmentsAndReviews(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	author := seedAuthor(t, repo, "author")
	student := &models.User{Username: "student", Email: "s@example.com", Role: models.RoleStudent}
	require.NoError(t, repo.CreateUser(ctx, student))

	course := &models.Course{Title: "Go", AuthorID: author.ID}
	require.NoError(t, repo.CreateCourse(ctx, course))

	require.NoError(t, repo.CreateEnrollment(ctx, &models.Enrollment{UserID: student.ID, CourseID: course.ID}))
	assert.ErrorIs(t, repo.CreateEnrollment(ctx, &models.Enrollment{UserID: student.ID, CourseID: course.ID}), ErrDuplicate)

	n, err := repo.CountStudents(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	enrolled, err := repo.ListEnrolledCourses(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, enrolled, 1)
	assert.Equal(t, course.ID, enrolled[0].ID)

	require.NoError(t, repo.CreateReview(ctx, &models.Review{UserID: student.ID, CourseID: course.ID, Rating: 5}))
	assert.ErrorIs(t, repo.CreateReview(ctx, &models.Review{UserID: student.ID, CourseID: course.ID, Rating: 1}), ErrDuplicate)

	reviews, err := repo.ListReviews(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "student", reviews[0].Username)
}

func TestMemoryProgressScopedToCourse(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	author := seedAuthor(t, repo, "author")

	var lessons []int64
	var courses []int64
	for i := 0; i < 2; i++ {
		c := &models.Course{Title: "c", AuthorID: author.ID}
		require.NoError(t, repo.CreateCourse(ctx, c))
		m := &models.Module{CourseID: c.ID}
		require.NoError(t, repo.CreateModule(ctx, m))
		l := &models.Lesson{ModuleID: m.ID}
		require.NoError(t, repo.CreateLesson(ctx, l))
		courses = append(courses, c.ID)
		lessons = append(lessons, l.ID)
	}

	at := time.Now()
	for _, l := range lessons {
		require.NoError(t, repo.UpsertProgress(ctx, &models.Progress{UserID: 7, LessonID: l, Completed: true, CompletedAt: &at}))
	}
	require.NoError(t, repo.UpsertProgress(ctx, &models.Progress{UserID: 7, LessonID: lessons[0], Completed: false}))

	progress, err := repo.ListProgress(ctx, 7, courses[0])
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.False(t, progress[0].Completed)
	assert.Nil(t, progress[0].CompletedAt)
}

func TestMemoryOrderStats(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	author := seedAuthor(t, repo, "author")

	a := &models.Course{Title: "A", AuthorID: author.ID, Price: 100, IsPublished: true}
	b := &models.Course{Title: "B", AuthorID: author.ID, Price: 200}
	require.NoError(t, repo.CreateCourse(ctx, a))
	require.NoError(t, repo.CreateCourse(ctx, b))

	old := time.Now().Add(-48 * time.Hour)
	orders := []*models.Order{
		{UserID: 10, Status: models.OrderPaid, Items: []*models.OrderItem{{CourseID: a.ID, CourseTitle: "A", Price: 100}, {CourseID: b.ID, CourseTitle: "B", Price: 200}}},
		{UserID: 11, Status: models.OrderPaid, Items: []*models.OrderItem{{CourseID: a.ID, CourseTitle: "A", Price: 100}}},
		{UserID: 12, Status: models.OrderPaid, CreatedAt: old, Items: []*models.OrderItem{{CourseID: a.ID, CourseTitle: "A", Price: 100}}},
		{UserID: 13, Status: models.OrderCanceled, Items: []*models.OrderItem{{CourseID: b.ID, CourseTitle: "B", Price: 200}}},
	}
	for _, o := range orders {
		require.NoError(t, repo.PlaceOrder(ctx, o))
	}

	top, err := repo.TopSellingCourses(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "A", top[0].Title)
	assert.Equal(t, 3, top[0].Sold)
	assert.Equal(t, int64(300), top[0].Revenue)
	assert.Equal(t, 1, top[1].Sold)

	revenue, count, err := repo.RevenueSince(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(400), revenue)
	assert.Equal(t, 2, count)

	totals, err := repo.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Courses)
	assert.Equal(t, 1, totals.PublishedCourses)
	assert.Equal(t, 4, totals.Orders)
	assert.Equal(t, 5, totals.Enrollments)
}

func TestMemorySupportRequests(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	first := &models.SupportRequest{Name: "Ann", Contact: "ann@example.com", Message: "help", Status: models.SupportPending}
	second := &models.SupportRequest{Name: "Bob", Contact: "+7999", Message: "hi", Status: models.SupportPending,
		CreatedAt: time.Now().Add(time.Minute)}
	require.NoError(t, repo.CreateSupportRequest(ctx, first))
	require.NoError(t, repo.CreateSupportRequest(ctx, second))

	done := time.Now()
	first.Status = models.SupportCompleted
	first.CompletedAt = &done
	require.NoError(t, repo.UpdateSupportRequest(ctx, first))

	all, err := repo.ListSupportRequests(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Bob", all[0].Name)

	pending, err := repo.ListSupportRequests(ctx, models.SupportPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	counts, err := repo.CountSupportRequests(ctx)
	require.NoError(t, err)
	assert.Equal(t, SupportCounts{Pending: 1, Completed: 1, Total: 2}, *counts)

	assert.ErrorIs(t, repo.UpdateSupportRequest(ctx, &models.SupportRequest{ID: 999}), ErrNotFound)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
}
