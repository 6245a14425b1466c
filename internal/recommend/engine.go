// Package recommend matches a course questionnaire against the published
// catalog. Scoring is a deterministic keyword heuristic:
//
//	score = Σ interest(d) * (2 + matches(d))   for every domain d with interest >= 3 and matches > 0
//	      + 5                                  when the course is popular
//
// A course that scores 0 is floored to 1 so it can still fill results.
// Results are stable-sorted by score and capped at MaxResults.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/terra-clan/studyhub/internal/models"
)

const (
	// MaxResults caps the number of recommended courses
	MaxResults = 10

	// ActiveInterest is the lowest interest level that lets a domain contribute
	ActiveInterest = 3

	keywordBase     = 2
	popularityBonus = 5
	minimumScore    = 1
)

// CatalogSource supplies the published course catalog
type CatalogSource interface {
	PublishedCourses(ctx context.Context) ([]*models.Course, error)
}

// ScoredCourse pairs a course with its score for one request
type ScoredCourse struct {
	Course *models.Course `json:"course"`
	Score  int            `json:"score"`
}

// Engine scores catalogs against questionnaires
type Engine struct {
	keywords *Keywords
	source   CatalogSource
	logger   *slog.Logger
}

// NewEngine creates an engine. source may be nil when only Recommend is used.
func NewEngine(keywords *Keywords, source CatalogSource) *Engine {
	if keywords == nil {
		keywords = DefaultKeywords()
	}
	return &Engine{
		keywords: keywords,
		source:   source,
		logger:   slog.With("component", "recommend"),
	}
}

// RecommendFromStore fetches the published catalog and ranks it
func (e *Engine) RecommendFromStore(ctx context.Context, q Questionnaire) ([]ScoredCourse, error) {
	if e.source == nil {
		return nil, fmt.Errorf("recommend: no catalog source configured")
	}

	catalog, err := e.source.PublishedCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	results := e.Recommend(q, catalog)
	e.logger.Debug("recommendations computed",
		"catalog_size", len(catalog),
		"results", len(results),
		"level", q.Level,
		"free_only", q.FreeOnly,
	)
	return results, nil
}

// Recommend filters, scores and ranks catalog for q
func (e *Engine) Recommend(q Questionnaire, catalog []*models.Course) []ScoredCourse {
	candidates := filter(q, catalog)

	scored := make([]ScoredCourse, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, ScoredCourse{Course: c, Score: e.Score(q, c)})
	}

	// Ties keep catalog order
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > MaxResults {
		scored = scored[:MaxResults]
	}
	return scored
}

// Score computes the score of a single course, ignoring the hard filters
func (e *Engine) Score(q Questionnaire, c *models.Course) int {
	text := matchText(c)

	score := 0
	for _, d := range Domains {
		interest := q.Interest(d)
		if interest < ActiveInterest {
			continue
		}
		if matches := e.keywords.CountMatches(d, text); matches > 0 {
			score += interest * (keywordBase + matches)
		}
	}

	if c.IsPopular {
		score += popularityBonus
	}

	if score == 0 {
		score = minimumScore
	}
	return score
}

func filter(q Questionnaire, catalog []*models.Course) []*models.Course {
	out := make([]*models.Course, 0, len(catalog))
	for _, c := range catalog {
		if !c.IsPublished {
			continue
		}
		if q.Level != "" && string(c.Level) != q.Level {
			continue
		}
		if q.FreeOnly && !c.IsFree() {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchText(c *models.Course) string {
	return strings.ToLower(c.CategoryName) + " " + strings.ToLower(c.Title) + " " + strings.ToLower(c.Description)
}

// Courses strips scores from a result set
func Courses(scored []ScoredCourse) []*models.Course {
	out := make([]*models.Course, len(scored))
	for i, s := range scored {
		out[i] = s.Course
	}
	return out
}
