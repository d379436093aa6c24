package affect

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nikhilbhutani/affectrelay/internal/emotion"
)

// Category is one of the six application-level affect buckets.
type Category string

const (
	Neutral     Category = "neutral"
	Anger       Category = "anger"
	Compassion  Category = "compassion"
	Frustration Category = "frustration"
	Enthusiasm  Category = "enthusiasm"
	Concern     Category = "concern"
)

// All returns the categories in a fixed order.
func All() []Category {
	return []Category{Neutral, Anger, Compassion, Frustration, Enthusiasm, Concern}
}

func (c Category) Valid() bool {
	switch c {
	case Neutral, Anger, Compassion, Frustration, Enthusiasm, Concern:
		return true
	}
	return false
}

// Parse normalizes caller input. Anything unrecognized is Neutral.
func Parse(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	return Neutral
}

//go:embed taxonomy.yaml
var taxonomyYAML []byte

var table = mustLoadTable(taxonomyYAML)

// Table is the provider label -> category mapping, keyed by label as written
// in the taxonomy file.
type Table map[string]Category

// LoadTable decodes a taxonomy document: category keys, each with a list of
// provider labels. Labels must be unique, case-insensitively.
func LoadTable(data []byte) (Table, error) {
	var doc map[Category][]string
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}

	t := make(Table)
	seen := make(map[string]Category)
	for category, labels := range doc {
		if !category.Valid() {
			return nil, fmt.Errorf("taxonomy: unknown category %q", category)
		}
		for _, label := range labels {
			key := normalize(label)
			if key == "" {
				return nil, fmt.Errorf("taxonomy: empty label under %q", category)
			}
			if prev, dup := seen[key]; dup {
				return nil, fmt.Errorf("taxonomy: label %q listed under both %q and %q", label, prev, category)
			}
			seen[key] = category
			t[label] = category
		}
	}
	return t, nil
}

func mustLoadTable(data []byte) map[string]Category {
	t, err := LoadTable(data)
	if err != nil {
		panic(err)
	}
	index := make(map[string]Category, len(t))
	for label, c := range t {
		index[normalize(label)] = c
	}
	return index
}

// Labels returns a copy of the built-in taxonomy, keyed by lower-cased label.
func Labels() map[string]Category {
	out := make(map[string]Category, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}

// Lookup maps a provider label to its category. Unknown labels are Neutral.
func Lookup(label string) Category {
	if c, ok := table[normalize(label)]; ok {
		return c
	}
	return Neutral
}

// Classify reduces a profile to its dominant category.
func Classify(p emotion.Profile) Category {
	top, ok := p.Top()
	if !ok {
		return Neutral
	}
	return Lookup(top.Name)
}

func normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
