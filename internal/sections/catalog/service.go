package catalog

import (
	"fmt"

	"github.com/almostacms/almostacms/internal/log"
	"github.com/almostacms/almostacms/internal/sections"
	"github.com/almostacms/almostacms/internal/sections/editors"
)

// Service owns the section registry built from the built-in catalog and
// the user catalog.
type Service struct {
	registry *sections.Registry
	userDir  string
}

// NewService builds the registry. userDir may be empty to skip user
// catalogs. Built-ins are registered first so a user entry with the same
// id wins while keeping the built-in's position.
func NewService(userDir string) (*Service, error) {
	reg := sections.NewRegistry(sections.WithFallbackEditor(editors.Generic{}))

	builtIn, err := LoadBuiltIn()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	for _, def := range builtIn {
		_ = reg.Register(def)
	}

	user := LoadUserCatalogFromDir(userDir)
	for _, def := range user {
		_ = reg.Register(def)
	}

	log.Info(log.CatSections, "section catalog loaded", "builtin", len(builtIn), "user", len(user), "total", reg.Len())
	return &Service{registry: reg, userDir: userDir}, nil
}

// Registry returns the underlying registry.
func (s *Service) Registry() *sections.Registry { return s.registry }

// UserDir returns the user catalog directory the service was built with.
func (s *Service) UserDir() string { return s.userDir }

// Group is one category with its sections, for listings.
type Group struct {
	Category sections.CategoryInfo
	Sections []*sections.Definition
}

// Grouped returns every category in display order with its sections.
// Empty categories are included so callers can show them as such.
func (s *Service) Grouped() []Group {
	cats := s.registry.Categories()
	groups := make([]Group, 0, len(cats))
	for _, c := range cats {
		groups = append(groups, Group{Category: c, Sections: s.registry.ListByCategory(c.ID)})
	}
	return groups
}

// Show returns the definition for id.
func (s *Service) Show(id string) (*sections.Definition, error) {
	def, ok := s.registry.Resolve(id)
	if !ok {
		return nil, fmt.Errorf("section %q: %w", id, sections.ErrNotFound)
	}
	return def, nil
}
