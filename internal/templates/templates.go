/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package templates provides the onboarding templates that seed a new account.
package templates

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/cronoapp/internal/events"
	"github.com/friendsincode/cronoapp/internal/models"
	"github.com/friendsincode/cronoapp/internal/store"
)

//go:embed data/*.yaml
var builtin embed.FS

// ErrTemplateNotFound is returned for an unknown template id.
var ErrTemplateNotFound = errors.New("template not found")

// Area is a life area seeded by a template.
type Area struct {
	Name       string   `yaml:"name" json:"name"`
	Color      string   `yaml:"color" json:"color"`
	Activities []string `yaml:"activities" json:"activities"`
}

// Template is one onboarding preset. Title and Description are keyed by language.
type Template struct {
	ID          string            `yaml:"id" json:"id"`
	Title       map[string]string `yaml:"title" json:"title"`
	Description map[string]string `yaml:"description" json:"description"`
	Color       string            `yaml:"color" json:"color"`
	Order       int               `yaml:"order" json:"-"`
	Areas       []Area            `yaml:"areas" json:"areas"`
}

// Seed converts the template into rows for the repository.
func (t Template) Seed() []store.SeedArea {
	out := make([]store.SeedArea, len(t.Areas))
	for i, a := range t.Areas {
		out[i] = store.SeedArea{Name: a.Name, Color: a.Color, Activities: a.Activities}
	}
	return out
}

// Catalog holds the parsed templates.
type Catalog struct {
	byID    map[string]Template
	ordered []Template
}

// Load parses every *.yaml file in fsys.
func Load(fsys fs.FS) (*Catalog, error) {
	files, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, err
	}

	c := &Catalog{byID: make(map[string]Template, len(files))}
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var t Template
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if err := validate(t); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate template id %q", name, t.ID)
		}
		c.byID[t.ID] = t
		c.ordered = append(c.ordered, t)
	}

	sort.SliceStable(c.ordered, func(i, j int) bool { return c.ordered[i].Order < c.ordered[j].Order })
	return c, nil
}

// Builtin returns the templates shipped with the binary.
func Builtin() (*Catalog, error) {
	sub, err := fs.Sub(builtin, "data")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

func validate(t Template) error {
	if t.ID == "" {
		return errors.New("template id is required")
	}
	if len(t.Areas) == 0 {
		return errors.New("template has no areas")
	}
	for _, a := range t.Areas {
		if a.Name == "" {
			return errors.New("area name is required")
		}
	}
	return nil
}

// List returns the templates in display order.
func (c *Catalog) List() []Template {
	return append([]Template(nil), c.ordered...)
}

// Get returns a template by id.
func (c *Catalog) Get(id string) (Template, error) {
	t, ok := c.byID[id]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}
	return t, nil
}

// Result is what applying a template created.
type Result struct {
	Areas      []models.LifeArea `json:"areas"`
	Activities []models.Activity `json:"activities"`
}

// Service applies templates to accounts.
type Service struct {
	catalog *Catalog
	store   store.TemplateStore
	bus     events.Broker
	logger  zerolog.Logger
}

// NewService creates a template service.
func NewService(catalog *Catalog, st store.TemplateStore, bus events.Broker, logger zerolog.Logger) *Service {
	return &Service{
		catalog: catalog,
		store:   st,
		bus:     bus,
		logger:  logger.With().Str("component", "templates").Logger(),
	}
}

// Catalog returns the templates known to the service.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Apply creates the areas and activities of template id for userID and marks the
// user onboarded.
func (s *Service) Apply(ctx context.Context, userID, id string) (*Result, error) {
	t, err := s.catalog.Get(id)
	if err != nil {
		return nil, err
	}

	areas, activities, err := s.store.ApplyTemplate(ctx, userID, t.Seed())
	if err != nil {
		return nil, fmt.Errorf("apply template %s: %w", id, err)
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("template", id).
		Int("areas", len(areas)).
		Int("activities", len(activities)).
		Msg("template applied")

	if s.bus != nil {
		s.bus.Publish(events.EventAreaChanged, events.Payload{"user_id": userID, "template": id})
		s.bus.Publish(events.EventActivityChanged, events.Payload{"user_id": userID, "template": id})
	}
	return &Result{Areas: areas, Activities: activities}, nil
}
