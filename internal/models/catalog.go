package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Level is the difficulty level of a course
type Level string

const (
	LevelBeginner Level = "beginner"
	LevelMiddle   Level = "middle"
	LevelAdvanced Level = "advanced"
)

// Valid reports whether l is one of the known levels
func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelMiddle, LevelAdvanced:
		return true
	}
	return false
}

// Category groups courses by subject (e.g. "Программирование")
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Course is a catalog entry. Price is stored in minor units (kopecks).
type Course struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	FullDescription string    `json:"full_description,omitempty"`
	CategoryID      int64     `json:"category_id"`
	CategoryName    string    `json:"category"`
	Level           Level     `json:"level"`
	Price           int64     `json:"price"`
	DurationHours   int       `json:"duration_hours"`
	IsPopular       bool      `json:"is_popular"`
	IsPublished     bool      `json:"is_published"`
	AuthorID        int64     `json:"author_id"`
	AuthorName      string    `json:"author"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsFree reports whether the course costs nothing
func (c *Course) IsFree() bool {
	return c.Price == 0
}

// OwnerID returns the author of the course
func (c *Course) OwnerID() int64 {
	return c.AuthorID
}

// MarshalJSON adds the derived is_free flag
func (c *Course) MarshalJSON() ([]byte, error) {
	type course Course
	return json.Marshal(struct {
		*course
		IsFree bool `json:"is_free"`
	}{
		course: (*course)(c),
		IsFree: c.IsFree(),
	})
}

// Module is an ordered section of a course
type Module struct {
	ID          int64     `json:"id"`
	CourseID    int64     `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Order       int       `json:"order"`
	Lessons     []*Lesson `json:"lessons,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TotalDuration sums lesson durations in minutes
func (m *Module) TotalDuration() int {
	total := 0
	for _, l := range m.Lessons {
		total += l.DurationMinutes
	}
	return total
}

// Lesson is an ordered unit of a module
type Lesson struct {
	ID              int64     `json:"id"`
	ModuleID        int64     `json:"module_id"`
	Title           string    `json:"title"`
	Content         string    `json:"content,omitempty"`
	VideoURL        string    `json:"video_url,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	Order           int       `json:"order"`
	CreatedAt       time.Time `json:"created_at"`
}

// Review is a student's rating of a course, one per user and course
type Review struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	CourseID  int64     `json:"course_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Enrollment links a user to a course
type Enrollment struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	CourseID   int64     `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
	Completed  bool      `json:"completed"`
}

// Progress records lesson completion for a user
type Progress struct {
	UserID      int64      `json:"user_id"`
	LessonID    int64      `json:"lesson_id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
