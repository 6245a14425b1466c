package marketplace

import (
	"context"
	"fmt"

	"github.com/terra-clan/studyhub/internal/metrics"
	"github.com/terra-clan/studyhub/internal/recommend"
)

// Recommendations is the result page of the course questionnaire
type Recommendations struct {
	Courses   []recommend.ScoredCourse `json:"courses"`
	Interests map[recommend.Domain]int `json:"interests"`
	Level     string                   `json:"level"`
	FreeOnly  bool                     `json:"free_only"`
}

// Recommend ranks the published catalog against a questionnaire
func (s *Service) Recommend(ctx context.Context, q recommend.Questionnaire) (*Recommendations, error) {
	scored, err := s.engine.RecommendFromStore(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	if scored == nil {
		scored = []recommend.ScoredCourse{}
	}

	metrics.RecordRecommendation(len(scored))
	return &Recommendations{
		Courses:   scored,
		Interests: recommend.SummarizeInterests(q),
		Level:     q.Level,
		FreeOnly:  q.FreeOnly,
	}, nil
}
