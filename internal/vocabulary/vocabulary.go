// Package vocabulary holds the keyword and small-talk pattern sets used by the retrieval gate.
// A Vocabulary is built once at startup and is safe for concurrent use.
package vocabulary

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/cloudflare/ahocorasick"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// ErrEmptyCity is returned when no commune name is configured.
var ErrEmptyCity = errors.New("commune name is empty")

type rawVocabulary struct {
	Topics    []string `yaml:"topics"`
	Greetings []string `yaml:"greetings"`
}

// Vocabulary is the immutable keyword set (city first, then topics) and greeting pattern set.
type Vocabulary struct {
	city      string
	keywords  []string
	greetings []*regexp.Regexp
	matcher   *ahocorasick.Matcher
}

// New compiles a vocabulary. The city is lower-cased and placed first in the keyword set;
// duplicate keywords keep their first position.
func New(city string, topics []string, greetings []string) (*Vocabulary, error) {
	city = strings.ToLower(strings.TrimSpace(city))
	if city == "" {
		return nil, ErrEmptyCity
	}

	keywords := make([]string, 0, len(topics)+1)
	for _, kw := range append([]string{city}, topics...) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || slices.Contains(keywords, kw) {
			continue
		}
		keywords = append(keywords, kw)
	}

	patterns := make([]*regexp.Regexp, 0, len(greetings))
	for _, raw := range greetings {
		// Wrapped so a pattern always has to cover the whole utterance.
		pattern, err := regexp.Compile(`(?i)^(?:` + raw + `)$`)
		if err != nil {
			return nil, fmt.Errorf("compile greeting pattern %q: %w", raw, err)
		}
		patterns = append(patterns, pattern)
	}

	dictionary := make([][]byte, len(keywords))
	for i, kw := range keywords {
		dictionary[i] = []byte(kw)
	}

	return &Vocabulary{
		city:      city,
		keywords:  keywords,
		greetings: patterns,
		matcher:   ahocorasick.NewMatcher(dictionary),
	}, nil
}

// Default builds the built-in French event vocabulary for city.
func Default(city string) (*Vocabulary, error) {
	return Parse(defaultYAML, city)
}

// Parse builds a vocabulary from a YAML document with `topics` and `greetings` lists.
func Parse(data []byte, city string) (*Vocabulary, error) {
	var raw rawVocabulary
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse vocabulary yaml: %w", err)
	}
	return New(city, raw.Topics, raw.Greetings)
}

// Load reads a vocabulary file, or the built-in one when path is empty.
func Load(path, city string) (*Vocabulary, error) {
	if strings.TrimSpace(path) == "" {
		return Default(city)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary file: %w", err)
	}
	return Parse(data, city)
}

// City returns the lower-cased commune name.
func (v *Vocabulary) City() string {
	return v.city
}

// Keywords returns a copy of the ordered keyword set.
func (v *Vocabulary) Keywords() []string {
	return slices.Clone(v.keywords)
}

// IsGreeting reports whether the lower-cased, trimmed text is pure small talk.
func (v *Vocabulary) IsGreeting(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, pattern := range v.greetings {
		if pattern.MatchString(normalized) {
			return true
		}
	}
	return false
}

// MatchKeywords returns every keyword contained in the lower-cased text, in keyword-set order.
func (v *Vocabulary) MatchKeywords(text string) []string {
	if len(v.keywords) == 0 {
		return nil
	}
	hits := v.matcher.MatchThreadSafe([]byte(strings.ToLower(text)))
	if len(hits) == 0 {
		return nil
	}
	slices.Sort(hits)
	hits = slices.Compact(hits)

	found := make([]string, 0, len(hits))
	for _, index := range hits {
		if index < 0 || index >= len(v.keywords) {
			continue
		}
		found = append(found, v.keywords[index])
	}
	return found
}
