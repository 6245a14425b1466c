// Package content loads the static content of the platform: the FAQ assistant
// data and the demo catalog used by the seed command.
package content

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/studyhub/internal/models"
)

//go:embed faq.yaml
var defaultFAQ []byte

//go:embed seed.yaml
var defaultSeed []byte

// FAQItem is a single question with its answer
type FAQItem struct {
	ID       int    `yaml:"id" json:"id"`
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// FAQCategory groups FAQ items under a heading
type FAQCategory struct {
	ID        int        `yaml:"id" json:"id"`
	Name      string     `yaml:"name" json:"name"`
	Questions []*FAQItem `yaml:"questions" json:"questions"`
}

// FAQPage is what the assistant shows for a selected category
type FAQPage struct {
	Categories []*FAQCategory `json:"categories"`
	Current    *FAQCategory   `json:"current_category"`
	Questions  []*FAQItem     `json:"questions"`
}

// SeedTutor is the demo author that owns seeded courses
type SeedTutor struct {
	Username  string `yaml:"username"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

// SeedCourse is a course entry of the demo catalog. Price is in rubles.
type SeedCourse struct {
	Title           string       `yaml:"title"`
	Description     string       `yaml:"description"`
	FullDescription string       `yaml:"full_description"`
	Category        string       `yaml:"category"`
	Level           models.Level `yaml:"level"`
	Price           int64        `yaml:"price"`
	DurationHours   int          `yaml:"duration_hours"`
	Popular         bool         `yaml:"popular"`
}

// SeedCatalog is the demo data set
type SeedCatalog struct {
	Tutor      SeedTutor          `yaml:"tutor"`
	Categories []*models.Category `yaml:"categories"`
	Courses    []*SeedCourse      `yaml:"courses"`
}

type faqFile struct {
	Categories []*FAQCategory `yaml:"categories"`
}

// Loader holds the loaded content
type Loader struct {
	mu   sync.RWMutex
	faq  []*FAQCategory
	seed *SeedCatalog
}

// NewLoader creates a loader populated with the embedded content
func NewLoader() (*Loader, error) {
	faq, err := parseFAQ(defaultFAQ)
	if err != nil {
		return nil, fmt.Errorf("embedded faq: %w", err)
	}
	seed, err := parseSeed(defaultSeed)
	if err != nil {
		return nil, fmt.Errorf("embedded seed: %w", err)
	}
	return &Loader{faq: faq, seed: seed}, nil
}

// LoadFromDir replaces content with faq.yaml and seed.yaml found in dir.
// Missing files keep the current content.
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading content from directory", "dir", dir)

	for _, name := range []string{"faq.yaml", "seed.yaml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := l.LoadFromFile(path); err != nil {
			return err
		}
	}
	return nil
}

// LoadFromFile loads a single content file, picked by its base name
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	switch strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) {
	case "faq":
		faq, err := parseFAQ(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		l.mu.Lock()
		l.faq = faq
		l.mu.Unlock()
		slog.Info("faq loaded", "file", path, "categories", len(faq))
	case "seed":
		seed, err := parseSeed(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		l.mu.Lock()
		l.seed = seed
		l.mu.Unlock()
		slog.Info("seed catalog loaded", "file", path, "courses", len(seed.Courses))
	default:
		return fmt.Errorf("unknown content file %q", path)
	}
	return nil
}

func parseFAQ(data []byte) ([]*FAQCategory, error) {
	var f faqFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("at least one faq category is required")
	}

	seen := make(map[int]bool)
	for _, c := range f.Categories {
		if c.Name == "" {
			return nil, fmt.Errorf("faq category %d has no name", c.ID)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate faq category id %d", c.ID)
		}
		seen[c.ID] = true
		for _, q := range c.Questions {
			if q.Question == "" || q.Answer == "" {
				return nil, fmt.Errorf("faq item %d in %q needs a question and an answer", q.ID, c.Name)
			}
		}
	}
	return f.Categories, nil
}

func parseSeed(data []byte) (*SeedCatalog, error) {
	var s SeedCatalog
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if s.Tutor.Username == "" {
		return nil, fmt.Errorf("tutor username is required")
	}

	categories := make(map[string]bool, len(s.Categories))
	for _, c := range s.Categories {
		categories[c.Name] = true
	}
	for _, c := range s.Courses {
		if c.Title == "" {
			return nil, fmt.Errorf("course title is required")
		}
		if !c.Level.Valid() {
			return nil, fmt.Errorf("course %q: unknown level %q", c.Title, c.Level)
		}
		if c.Category != "" && !categories[c.Category] {
			return nil, fmt.Errorf("course %q: unknown category %q", c.Title, c.Category)
		}
		if c.Price < 0 {
			return nil, fmt.Errorf("course %q: negative price", c.Title)
		}
		if c.FullDescription == "" {
			c.FullDescription = c.Description
		}
	}
	return &s, nil
}

// FAQ returns the page for the category with the given id.
// An empty, malformed or unknown id selects the first category.
func (l *Loader) FAQ(category string) *FAQPage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	page := &FAQPage{Categories: l.faq, Questions: []*FAQItem{}}

	if id, err := strconv.Atoi(strings.TrimSpace(category)); err == nil {
		for _, c := range l.faq {
			if c.ID == id {
				page.Current = c
				break
			}
		}
	}
	if page.Current == nil && len(l.faq) > 0 {
		page.Current = l.faq[0]
	}
	if page.Current != nil && page.Current.Questions != nil {
		page.Questions = page.Current.Questions
	}
	return page
}

// Seed returns the demo catalog
func (l *Loader) Seed() *SeedCatalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seed
}
