// Package lessons holds the teaching content of the explorer page and the
// interactive demos behind its widgets.
package lessons

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed lessons.yaml
var content []byte

// Section is one teaching block of the page.
type Section struct {
	ID      string `yaml:"id" json:"id"`
	Title   string `yaml:"title" json:"title"`
	Body    string `yaml:"body" json:"body"`
	Example string `yaml:"example" json:"example,omitempty"`
}

// Content is the whole page.
type Content struct {
	Title      string    `yaml:"title" json:"title"`
	Intro      string    `yaml:"intro" json:"intro"`
	Sections   []Section `yaml:"sections" json:"sections"`
	Playground string    `yaml:"playground" json:"playground"`
	Takeaways  []string  `yaml:"takeaways" json:"takeaways"`
}

// Load parses the embedded lesson content.
func Load() (*Content, error) {
	return Parse(content)
}

// Parse decodes and validates lesson content.
func Parse(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing lessons: %w", err)
	}

	if c.Title == "" {
		return nil, fmt.Errorf("lessons: missing title")
	}
	seen := make(map[string]bool, len(c.Sections))
	for i, s := range c.Sections {
		if s.ID == "" || s.Title == "" {
			return nil, fmt.Errorf("lessons: section %d needs an id and a title", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("lessons: duplicate section id %q", s.ID)
		}
		seen[s.ID] = true
	}
	return &c, nil
}

// Section returns the section with the given id.
func (c *Content) Section(id string) (Section, bool) {
	for _, s := range c.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}
