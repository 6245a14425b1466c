package recommend

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/terra-clan/studyhub/internal/models"
)

const (
	// NeutralInterest is assumed for every missing or malformed answer
	NeutralInterest = 3

	// Interest levels are clamped into [MinInterest, MaxInterest]
	MinInterest = 1
	MaxInterest = 5

	// DefaultLevel is applied when the level field is absent
	DefaultLevel = string(models.LevelBeginner)
)

// Form field names carrying each domain's interest level
var interestFields = map[Domain]string{
	Programming: "coding_interest",
	Design:      "design_interest",
	Web:         "web_development",
	Mobile:      "mobile_development",
	Database:    "database_interest",
	ML:          "ml_interest",
}

// FieldFor returns the form field name of a domain
func FieldFor(d Domain) string {
	return interestFields[d]
}

// Questionnaire is the answer set of a single recommendation request
type Questionnaire struct {
	Interests map[Domain]int
	Level     string
	FreeOnly  bool
}

// NewQuestionnaire returns a questionnaire with every interest at the midpoint
// and the default level
func NewQuestionnaire() Questionnaire {
	q := Questionnaire{
		Interests: make(map[Domain]int, len(Domains)),
		Level:     DefaultLevel,
	}
	for _, d := range Domains {
		q.Interests[d] = NeutralInterest
	}
	return q
}

// Interest returns the level of a domain, NeutralInterest when unset
func (q Questionnaire) Interest(d Domain) int {
	if v, ok := q.Interests[d]; ok {
		return clampInterest(v)
	}
	return NeutralInterest
}

func clampInterest(v int) int {
	return min(max(v, MinInterest), MaxInterest)
}

// ParseQuestionnaire builds a questionnaire from submitted form fields.
// It never fails: malformed or absent interests become NeutralInterest and
// out-of-range ones are clamped.
func ParseQuestionnaire(form url.Values) Questionnaire {
	q := NewQuestionnaire()

	for _, d := range Domains {
		q.Interests[d] = parseInterest(form, interestFields[d])
	}

	if _, ok := form["level"]; ok {
		q.Level = form.Get("level")
	}

	switch form.Get("free_only") {
	case "on", "true", "1":
		q.FreeOnly = true
	}

	return q
}

func parseInterest(form url.Values, field string) int {
	raw, ok := form[field]
	if !ok || len(raw) == 0 {
		return NeutralInterest
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw[0]))
	if err != nil {
		return NeutralInterest
	}
	return clampInterest(v)
}

// SummarizeInterests echoes the six coerced interest levels keyed by domain
func SummarizeInterests(q Questionnaire) map[Domain]int {
	summary := make(map[Domain]int, len(Domains))
	for _, d := range Domains {
		summary[d] = q.Interest(d)
	}
	return summary
}
