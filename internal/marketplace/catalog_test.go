package marketplace

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/studyhub/internal/models"
)

func TestListCoursesPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.user(t, "tutor", models.RoleTutor)

	for i := 0; i < 20; i++ {
		f.course(t, tutor, fmt.Sprintf("Course %02d", i))
	}
	f.course(t, tutor, "Hidden draft", draft())

	page, err := f.svc.ListCourses(ctx, CourseFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, 20, page.Total)
	require.Len(t, page.Items, PageSize)
	assert.Equal(t, "Course 19", page.Items[0].Title)

	page, err = f.svc.ListCourses(ctx, CourseFilter{Page: -4})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)

	page, err = f.svc.ListCourses(ctx, CourseFilter{Page: 99})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Page)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Course 00", page.Items[1].Title)
}

func TestListCoursesFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.user(t, "pythonista", models.RoleTutor)
	other := f.user(t, "designer", models.RoleTutor)
	prog := f.category(t, "Программирование")

	f.course(t, tutor, "Python basics", inCategory(prog.ID))
	f.course(t, tutor, "Go services", inCategory(prog.ID), price(150000), func(c *models.Course) { c.Level = models.LevelAdvanced })
	f.course(t, other, "Figma", price(450000))

	tests := []struct {
		name   string
		filter CourseFilter
		want   []string
	}{
		{"category", CourseFilter{CategoryID: prog.ID}, []string{"Go services", "Python basics"}},
		{"level", CourseFilter{Level: "advanced"}, []string{"Go services"}},
		{"all levels", CourseFilter{Level: "all"}, []string{"Figma", "Go services", "Python basics"}},
		{"free", CourseFilter{Free: true}, []string{"Python basics"}},
		{"search title", CourseFilter{Search: "PYTHON"}, []string{"Python basics"}},
		{"search author", CourseFilter{Search: "design"}, []string{"Figma"}},
		{"no match", CourseFilter{Search: "rust"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.svc.ListCourses(ctx, tt.filter)
			require.NoError(t, err)

			var titles []string
			for _, c := range page.Items {
				titles = append(titles, c.Title)
			}
			assert.Equal(t, tt.want, titles)
			assert.Equal(t, 1, page.Pages)
		})
	}
}

func TestCourseDetail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.user(t, "tutor", models.RoleTutor)
	student := f.user(t, "student", models.RoleStudent)
	reviewer := f.user(t, "reviewer", models.RoleStudent)
	cat := f.category(t, "Дизайн")

	course := f.course(t, tutor, "Main", inCategory(cat.ID))
	for i := 0; i < 4; i++ {
		f.course(t, tutor, fmt.Sprintf("Similar %d", i), inCategory(cat.ID))
	}
	f.course(t, tutor, "Similar draft", inCategory(cat.ID), draft())
	modules := f.lessons(t, course, 2, 1)

	f.enroll(t, student, course)
	_, err := f.svc.AddReview(ctx, student, course.ID, ReviewInput{Rating: 5})
	require.NoError(t, err)
	_, err = f.svc.AddReview(ctx, reviewer, course.ID, ReviewInput{Rating: 4})
	require.NoError(t, err)
	_, err = f.svc.AddReview(ctx, tutor, course.ID, ReviewInput{Rating: 4})
	require.NoError(t, err)
	_, err = f.svc.MarkLessonCompleted(ctx, student, modules[0].Lessons[0].ID)
	require.NoError(t, err)

	detail, err := f.svc.CourseDetail(ctx, student, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.3, detail.AverageRating)
	assert.Equal(t, 3, detail.ReviewCount)
	assert.True(t, detail.HasReviewed)
	assert.True(t, detail.IsEnrolled)
	assert.False(t, detail.CanEdit)
	assert.Len(t, detail.Similar, 3)
	for _, c := range detail.Similar {
		assert.NotEqual(t, course.ID, c.ID)
		assert.True(t, c.IsPublished)
	}
	assert.Len(t, detail.Modules, 2)
	assert.Equal(t, 3, detail.TotalLessons)
	assert.Equal(t, 1, detail.CompletedLessons)
	assert.Equal(t, 33, detail.ProgressPercent)

	anon, err := f.svc.CourseDetail(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.False(t, anon.IsEnrolled)
	assert.False(t, anon.HasReviewed)
	assert.Zero(t, anon.ProgressPercent)

	own, err := f.svc.CourseDetail(ctx, tutor, course.ID)
	require.NoError(t, err)
	assert.True(t, own.CanEdit)
}

func TestCourseDetailWithoutReviews(t *testing.T) {
	f := newFixture(t)
	tutor := f.user(t, "tutor", models.RoleTutor)
	course := f.course(t, tutor, "Lonely")

	detail, err := f.svc.CourseDetail(context.Background(), nil, course.ID)
	require.NoError(t, err)
	assert.Zero(t, detail.AverageRating)
	assert.Empty(t, detail.Reviews)
	assert.Empty(t, detail.Similar)
	assert.Zero(t, detail.ProgressPercent)
}

func TestDraftVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author", models.RoleTutor)
	otherTutor := f.user(t, "other", models.RoleTutor)
	admin := f.user(t, "admin", models.RoleAdmin)
	student := f.user(t, "student", models.RoleStudent)
	course := f.course(t, author, "Draft", draft())

	for _, viewer := range []*models.User{nil, student, otherTutor} {
		_, err := f.svc.CourseDetail(ctx, viewer, course.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	for _, viewer := range []*models.User{author, admin} {
		_, err := f.svc.CourseDetail(ctx, viewer, course.ID)
		assert.NoError(t, err)
	}

	_, err := f.svc.CourseDetail(ctx, nil, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.user(t, "tutor", models.RoleTutor)
	f.category(t, "Программирование")

	for i := 0; i < 4; i++ {
		f.course(t, tutor, fmt.Sprintf("Free %d", i))
	}
	f.course(t, tutor, "Paid", price(100000))

	home, err := f.svc.Home(ctx)
	require.NoError(t, err)
	assert.Len(t, home.Featured, 3, "falls back to latest courses")
	assert.Equal(t, "Paid", home.Featured[0].Title)
	assert.Len(t, home.FreeCourses, 3)
	assert.Equal(t, 4, home.FreeTotal)
	assert.Len(t, home.Categories, 1)

	f.course(t, tutor, "Popular", popular(), price(5000))
	home, err = f.svc.Home(ctx)
	require.NoError(t, err)
	require.Len(t, home.Featured, 1)
	assert.Equal(t, "Popular", home.Featured[0].Title)
}

func TestTutors(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", models.RoleTutor)
	f.user(t, "bob", models.RoleTutor)
	f.user(t, "student", models.RoleStudent)
	f.course(t, alice, "One")
	f.course(t, alice, "Two")
	f.course(t, alice, "Draft", draft())

	tutors, err := f.svc.Tutors(context.Background())
	require.NoError(t, err)
	require.Len(t, tutors, 2)
	assert.Equal(t, "alice", tutors[0].Username)
	assert.Equal(t, 2, tutors[0].CourseCount)
	assert.Equal(t, 0, tutors[1].CourseCount)
}

func TestModulesAndLessons(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.user(t, "tutor", models.RoleTutor)
	student := f.user(t, "student", models.RoleStudent)
	course := f.course(t, tutor, "Course")
	other := f.course(t, tutor, "Other")
	modules := f.lessons(t, course, 3, 1)
	otherModules := f.lessons(t, other, 1)

	outline, err := f.svc.Modules(ctx, nil, course.ID)
	require.NoError(t, err)
	require.Len(t, outline, 2)
	assert.Equal(t, 3, outline[0].LessonCount)
	assert.Equal(t, 30, outline[0].DurationMinutes)

	first := modules[0]
	detail, err := f.svc.ModuleDetail(ctx, student, course.ID, first.ID)
	require.NoError(t, err)
	assert.False(t, detail.IsEnrolled)
	assert.Nil(t, detail.Progress)
	assert.Len(t, detail.Lessons, 3)

	f.enroll(t, student, course)
	_, err = f.svc.MarkLessonCompleted(ctx, student, first.Lessons[1].ID)
	require.NoError(t, err)

	detail, err = f.svc.ModuleDetail(ctx, student, course.ID, first.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Progress)
	assert.Equal(t, ProgressSummary{Completed: 1, Total: 3, Percentage: 33}, *detail.Progress)
	assert.True(t, detail.Lessons[1].Completed)
	assert.False(t, detail.Lessons[0].Completed)

	lesson, err := f.svc.LessonDetail(ctx, student, course.ID, first.ID, first.Lessons[1].ID)
	require.NoError(t, err)
	assert.True(t, lesson.Completed)
	assert.Equal(t, first.Lessons[0].ID, lesson.Previous.ID)
	assert.Equal(t, first.Lessons[2].ID, lesson.Next.ID)
	assert.Equal(t, 33, lesson.ModuleProgress.Percentage)
	assert.Equal(t, ProgressSummary{Completed: 1, Total: 4, Percentage: 25}, *lesson.CourseProgress)

	edge, err := f.svc.LessonDetail(ctx, nil, course.ID, first.ID, first.Lessons[0].ID)
	require.NoError(t, err)
	assert.Nil(t, edge.Previous)
	assert.NotNil(t, edge.Next)
	assert.Nil(t, edge.CourseProgress)

	_, err = f.svc.ModuleDetail(ctx, nil, course.ID, otherModules[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.LessonDetail(ctx, nil, course.ID, first.ID, otherModules[0].Lessons[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
