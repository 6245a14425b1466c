package content

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/terra-clan/studyhub/internal/models"
	"github.com/terra-clan/studyhub/internal/storage"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader()
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}
	return l
}

func TestEmbeddedFAQ(t *testing.T) {
	l := newTestLoader(t)

	page := l.FAQ("")
	if len(page.Categories) != 4 {
		t.Fatalf("expected 4 FAQ categories, got %d", len(page.Categories))
	}
	if page.Current.Name != "Общие вопросы" {
		t.Errorf("expected first category to be selected, got '%s'", page.Current.Name)
	}
	if len(page.Questions) != 4 {
		t.Errorf("expected 4 general questions, got %d", len(page.Questions))
	}

	total := 0
	for _, c := range page.Categories {
		total += len(c.Questions)
	}
	if total != 17 {
		t.Errorf("expected 17 questions in total, got %d", total)
	}

	// Check category order
	want := []string{"Общие вопросы", "Оплата и возврат", "Техническая поддержка", "О курсах"}
	for i, name := range want {
		if page.Categories[i].Name != name {
			t.Errorf("category %d: expected '%s', got '%s'", i, name, page.Categories[i].Name)
		}
	}
}

func TestFAQCategorySelection(t *testing.T) {
	l := newTestLoader(t)

	page := l.FAQ("4")
	if page.Current.Name != "О курсах" {
		t.Errorf("expected 'О курсах', got '%s'", page.Current.Name)
	}
	if len(page.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(page.Questions))
	}
	if page.Questions[0].ID != 13 {
		t.Errorf("expected first question id 13, got %d", page.Questions[0].ID)
	}

	// Unknown categories fall back to the first one
	for _, param := range []string{"abc", "99", "-1", " "} {
		if id := l.FAQ(param).Current.ID; id != 1 {
			t.Errorf("FAQ(%q): expected category 1, got %d", param, id)
		}
	}
}

func TestEmbeddedSeed(t *testing.T) {
	l := newTestLoader(t)

	seed := l.Seed()
	if seed.Tutor.Username != "tutor_demo" {
		t.Errorf("expected tutor 'tutor_demo', got '%s'", seed.Tutor.Username)
	}
	if len(seed.Categories) != 8 {
		t.Errorf("expected 8 categories, got %d", len(seed.Categories))
	}
	if len(seed.Courses) != 23 {
		t.Fatalf("expected 23 courses, got %d", len(seed.Courses))
	}

	first := seed.Courses[0]
	if first.Title != "Python для начинающих" {
		t.Errorf("unexpected first course '%s'", first.Title)
	}
	if first.Level != models.LevelBeginner {
		t.Errorf("expected level beginner, got '%s'", first.Level)
	}
	if first.Price != 0 {
		t.Errorf("expected free course, got price %d", first.Price)
	}
	if !first.Popular {
		t.Error("expected first course to be popular")
	}
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	faq := `
categories:
  - id: 7
    name: Custom
    questions:
      - id: 1
        question: Q?
        answer: A.
`
	if err := os.WriteFile(filepath.Join(dir, "faq.yaml"), []byte(faq), 0o644); err != nil {
		t.Fatalf("write faq.yaml: %v", err)
	}

	l := newTestLoader(t)
	if err := l.LoadFromDir(dir); err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}

	page := l.FAQ("")
	if len(page.Categories) != 1 {
		t.Fatalf("expected 1 category, got %d", len(page.Categories))
	}
	if page.Current.Name != "Custom" {
		t.Errorf("expected 'Custom', got '%s'", page.Current.Name)
	}

	// seed.yaml is absent, so the embedded catalog stays
	if n := len(l.Seed().Courses); n != 23 {
		t.Errorf("expected embedded seed to be kept, got %d courses", n)
	}
}

func TestParseErrors(t *testing.T) {
	faqCases := map[string]string{
		"no categories":      "categories: []",
		"duplicate category": "categories:\n  - id: 1\n    name: A\n  - id: 1\n    name: B\n",
	}
	for name, data := range faqCases {
		if _, err := parseFAQ([]byte(data)); err == nil {
			t.Errorf("parseFAQ(%s): expected error", name)
		}
	}

	seedCases := map[string]string{
		"unknown level":    "tutor: {username: t}\ncourses:\n  - title: X\n    level: expert\n",
		"unknown category": "tutor: {username: t}\ncourses:\n  - title: X\n    level: beginner\n    category: Nope\n",
	}
	for name, data := range seedCases {
		if _, err := parseSeed([]byte(data)); err == nil {
			t.Errorf("parseSeed(%s): expected error", name)
		}
	}
}

func TestSeederIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	l := newTestLoader(t)
	seeder := NewSeeder(repo)

	res, err := seeder.Seed(ctx, l.Seed(), false)
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if !res.TutorCreated || res.CategoriesCreated != 8 || res.CoursesCreated != 23 {
		t.Errorf("unexpected first seed result: %+v", res)
	}

	published, err := repo.PublishedCourses(ctx)
	if err != nil {
		t.Fatalf("PublishedCourses failed: %v", err)
	}
	if len(published) != 23 {
		t.Errorf("expected 23 published courses, got %d", len(published))
	}

	var advancedPython *models.Course
	for _, c := range published {
		if c.Title == "Продвинутый Python" {
			advancedPython = c
		}
	}
	if advancedPython == nil {
		t.Fatal("'Продвинутый Python' not seeded")
	}
	if advancedPython.Price != 500000 {
		t.Errorf("expected price 500000, got %d", advancedPython.Price)
	}
	if advancedPython.CategoryName != "Программирование" {
		t.Errorf("expected category 'Программирование', got '%s'", advancedPython.CategoryName)
	}
	if advancedPython.AuthorName != "tutor_demo" {
		t.Errorf("expected author 'tutor_demo', got '%s'", advancedPython.AuthorName)
	}

	// Second run creates nothing
	res, err = seeder.Seed(ctx, l.Seed(), false)
	if err != nil {
		t.Fatalf("second Seed failed: %v", err)
	}
	if res.TutorCreated || res.CategoriesCreated != 0 || res.CoursesCreated != 0 {
		t.Errorf("expected idempotent seed, got %+v", res)
	}

	// Clearing recreates the catalog
	res, err = seeder.Seed(ctx, l.Seed(), true)
	if err != nil {
		t.Fatalf("Seed with clear failed: %v", err)
	}
	if !res.Cleared || res.CoursesCreated != 23 || res.CategoriesCreated != 8 {
		t.Errorf("unexpected cleared seed result: %+v", res)
	}
}
