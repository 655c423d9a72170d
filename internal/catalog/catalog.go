package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

const (
	PlaceholderBusinessName = "{business_name}"
	PlaceholderTagline      = "{tagline}"
)

type Festival struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Emoji    string `yaml:"emoji" json:"emoji"`
	Template string `yaml:"template" json:"-"`
}

type Style struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Phrase string `yaml:"phrase" json:"phrase"`
}

type AspectRatio struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

type file struct {
	DefaultStyle       string        `yaml:"default_style"`
	DefaultAspectRatio string        `yaml:"default_aspect_ratio"`
	Festivals          []Festival    `yaml:"festivals"`
	Styles             []Style       `yaml:"styles"`
	AspectRatios       []AspectRatio `yaml:"aspect_ratios"`
}

// Catalog holds the festival templates, style modifiers and aspect ratios.
// It is never mutated after Parse returns, so one value can be shared by
// every request handler.
type Catalog struct {
	defaultStyle string
	defaultRatio string

	festivalOrder []string
	festivals     map[string]Festival

	styleOrder []string
	styles     map[string]Style

	ratioOrder []string
	ratios     map[string]AspectRatio
}

var placeholderRegex = regexp.MustCompile(`\{[^{}]*\}`)

func Default() (*Catalog, error) {
	return Parse(embedded)
}

func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Load returns the catalog at path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	return LoadFile(path)
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{
		defaultStyle: strings.TrimSpace(f.DefaultStyle),
		defaultRatio: strings.TrimSpace(f.DefaultAspectRatio),
		festivals:    make(map[string]Festival, len(f.Festivals)),
		styles:       make(map[string]Style, len(f.Styles)),
		ratios:       make(map[string]AspectRatio, len(f.AspectRatios)),
	}

	if len(f.Festivals) == 0 {
		return nil, errors.New("catalog has no festivals")
	}
	for _, fest := range f.Festivals {
		fest.ID = strings.TrimSpace(fest.ID)
		if fest.ID == "" {
			return nil, errors.New("festival with empty id")
		}
		if _, dup := c.festivals[fest.ID]; dup {
			return nil, fmt.Errorf("duplicate festival %q", fest.ID)
		}
		if err := validateTemplate(fest.Template); err != nil {
			return nil, fmt.Errorf("festival %q: %w", fest.ID, err)
		}
		if fest.Name == "" {
			fest.Name = fest.ID
		}
		c.festivals[fest.ID] = fest
		c.festivalOrder = append(c.festivalOrder, fest.ID)
	}

	for _, s := range f.Styles {
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" || strings.TrimSpace(s.Phrase) == "" {
			return nil, fmt.Errorf("style %q: id and phrase are required", s.ID)
		}
		if _, dup := c.styles[s.ID]; dup {
			return nil, fmt.Errorf("duplicate style %q", s.ID)
		}
		c.styles[s.ID] = s
		c.styleOrder = append(c.styleOrder, s.ID)
	}
	if _, ok := c.styles[c.defaultStyle]; !ok {
		return nil, fmt.Errorf("default style %q is not defined", c.defaultStyle)
	}

	for _, r := range f.AspectRatios {
		r.ID = strings.TrimSpace(r.ID)
		if r.ID == "" {
			return nil, errors.New("aspect ratio with empty id")
		}
		if r.Width <= 0 || r.Height <= 0 {
			return nil, fmt.Errorf("aspect ratio %q: width and height must be positive", r.ID)
		}
		if _, dup := c.ratios[r.ID]; dup {
			return nil, fmt.Errorf("duplicate aspect ratio %q", r.ID)
		}
		c.ratios[r.ID] = r
		c.ratioOrder = append(c.ratioOrder, r.ID)
	}
	if _, ok := c.ratios[c.defaultRatio]; !ok {
		return nil, fmt.Errorf("default aspect ratio %q is not defined", c.defaultRatio)
	}

	return c, nil
}

func validateTemplate(tmpl string) error {
	if strings.TrimSpace(tmpl) == "" {
		return errors.New("template is empty")
	}
	if !strings.Contains(tmpl, PlaceholderBusinessName) {
		return fmt.Errorf("template must contain %s", PlaceholderBusinessName)
	}
	for _, p := range placeholderRegex.FindAllString(tmpl, -1) {
		if p != PlaceholderBusinessName && p != PlaceholderTagline {
			return fmt.Errorf("unknown placeholder %s", p)
		}
	}
	return nil
}

func (c *Catalog) Festival(id string) (Festival, bool) {
	f, ok := c.festivals[id]
	return f, ok
}

func (c *Catalog) Festivals() []Festival {
	out := make([]Festival, 0, len(c.festivalOrder))
	for _, id := range c.festivalOrder {
		out = append(out, c.festivals[id])
	}
	return out
}

func (c *Catalog) DefaultStyle() string {
	return c.defaultStyle
}

func (c *Catalog) HasStyle(id string) bool {
	_, ok := c.styles[id]
	return ok
}

// StylePhrase never fails: unknown ids resolve to the default style.
func (c *Catalog) StylePhrase(id string) string {
	if s, ok := c.styles[id]; ok {
		return s.Phrase
	}
	return c.styles[c.defaultStyle].Phrase
}

func (c *Catalog) Styles() []Style {
	out := make([]Style, 0, len(c.styleOrder))
	for _, id := range c.styleOrder {
		out = append(out, c.styles[id])
	}
	return out
}

func (c *Catalog) DefaultAspectRatio() string {
	return c.defaultRatio
}

func (c *Catalog) HasAspectRatio(id string) bool {
	_, ok := c.ratios[id]
	return ok
}

// Dimensions resolves a ratio token, falling back to the default entry.
func (c *Catalog) Dimensions(id string) AspectRatio {
	if r, ok := c.ratios[id]; ok {
		return r
	}
	return c.ratios[c.defaultRatio]
}

func (c *Catalog) AspectRatios() []AspectRatio {
	out := make([]AspectRatio, 0, len(c.ratioOrder))
	for _, id := range c.ratioOrder {
		out = append(out, c.ratios[id])
	}
	return out
}
