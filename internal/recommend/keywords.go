package recommend

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Domain is one interest dimension of the questionnaire
type Domain string

const (
	Programming Domain = "programming"
	Design      Domain = "design"
	Web         Domain = "web"
	Mobile      Domain = "mobile"
	Database    Domain = "database"
	ML          Domain = "ml"
)

// Domains lists every interest dimension in display order
var Domains = []Domain{Programming, Design, Web, Mobile, Database, ML}

//go:embed keywords.yaml
var defaultKeywordsYAML []byte

// Keywords holds the per-domain keyword tables. It is immutable once loaded.
type Keywords struct {
	tables map[Domain][]string
}

// DefaultKeywords returns the embedded keyword tables
func DefaultKeywords() *Keywords {
	kw, err := ParseKeywords(defaultKeywordsYAML)
	if err != nil {
		// embedded file is part of the build
		panic(fmt.Sprintf("recommend: invalid embedded keywords: %v", err))
	}
	return kw
}

// LoadKeywordsFile reads keyword tables from a YAML file
func LoadKeywordsFile(path string) (*Keywords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keywords file: %w", err)
	}
	return ParseKeywords(data)
}

// ParseKeywords parses YAML keyword tables. Every domain must be present
// and no keyword may be blank.
func ParseKeywords(data []byte) (*Keywords, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse keywords YAML: %w", err)
	}

	tables := make(map[Domain][]string, len(Domains))
	for _, d := range Domains {
		words, ok := raw[string(d)]
		if !ok {
			return nil, fmt.Errorf("keywords for domain %q are missing", d)
		}
		normalized := make([]string, 0, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" {
				return nil, fmt.Errorf("domain %q contains an empty keyword", d)
			}
			normalized = append(normalized, w)
		}
		tables[d] = normalized
	}

	for name := range raw {
		if !slices.Contains(Domains, Domain(name)) {
			return nil, fmt.Errorf("unknown keyword domain %q", name)
		}
	}

	return &Keywords{tables: tables}, nil
}

// For returns a copy of the keyword list of a domain
func (k *Keywords) For(d Domain) []string {
	return slices.Clone(k.tables[d])
}

// CountMatches counts the keywords of d that occur in the lower-cased text
func (k *Keywords) CountMatches(d Domain, text string) int {
	n := 0
	for _, w := range k.tables[d] {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}
