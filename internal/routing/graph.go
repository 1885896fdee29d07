// Package routing models the category -> subcategory -> authority type
// table and turns it into responsible authorities and officials.
package routing

import (
	"context"
	"errors"
	"strings"

	"issue-service/internal/model"

	"github.com/google/uuid"
)

var (
	ErrUnknownCategory     = errors.New("unknown category")
	ErrUnknownSubcategory  = errors.New("unknown subcategory")
	ErrSubcategoryMismatch = errors.New("subcategory does not belong to category")
	ErrInactive            = errors.New("category or subcategory is inactive")
)

// Graph is an immutable snapshot of the routing table.
type Graph struct {
	categories    []model.Category
	byCategory    map[uuid.UUID]*model.Category
	bySubcategory map[uuid.UUID]*model.Subcategory
}

func NewGraph(categories []model.Category) *Graph {
	g := &Graph{
		categories:    categories,
		byCategory:    make(map[uuid.UUID]*model.Category, len(categories)),
		bySubcategory: make(map[uuid.UUID]*model.Subcategory),
	}
	for i := range g.categories {
		c := &g.categories[i]
		g.byCategory[c.ID] = c
		for j := range c.Subcategories {
			s := &c.Subcategories[j]
			g.bySubcategory[s.ID] = s
		}
	}
	return g
}

// Categories returns the snapshot contents; callers must not mutate it.
func (g *Graph) Categories() []model.Category {
	return g.categories
}

func (g *Graph) Category(id uuid.UUID) (*model.Category, bool) {
	c, ok := g.byCategory[id]
	return c, ok
}

func (g *Graph) Subcategory(id uuid.UUID) (*model.Subcategory, bool) {
	s, ok := g.bySubcategory[id]
	return s, ok
}

// AuthorityTypes returns a copy of the subcategory's routing list.
func (g *Graph) AuthorityTypes(subcategoryID uuid.UUID) ([]string, error) {
	s, ok := g.bySubcategory[subcategoryID]
	if !ok {
		return nil, ErrUnknownSubcategory
	}
	return append([]string{}, s.AuthorityTypes...), nil
}

// Validate checks that both ids exist, are active, and that the
// subcategory belongs to the category.
func (g *Graph) Validate(categoryID, subcategoryID uuid.UUID) error {
	c, ok := g.byCategory[categoryID]
	if !ok {
		return ErrUnknownCategory
	}
	s, ok := g.bySubcategory[subcategoryID]
	if !ok {
		return ErrUnknownSubcategory
	}
	if s.CategoryID != categoryID {
		return ErrSubcategoryMismatch
	}
	if !c.IsActive || !s.IsActive {
		return ErrInactive
	}
	return nil
}

// NormalizeAuthorityTypes trims names, drops empties and removes repeats,
// keeping first-seen order.
func NormalizeAuthorityTypes(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// GraphSource loads the current routing table.
type GraphSource interface {
	LoadGraph(ctx context.Context) (*Graph, error)
}

// CategoryLister is the storage the table is built from.
type CategoryLister interface {
	ListCategories(ctx context.Context, activeOnly bool) ([]model.Category, error)
}

type storeSource struct {
	lister CategoryLister
}

// NewStoreSource reads the table straight from storage on every call.
func NewStoreSource(lister CategoryLister) GraphSource {
	return storeSource{lister: lister}
}

func (s storeSource) LoadGraph(ctx context.Context) (*Graph, error) {
	categories, err := s.lister.ListCategories(ctx, false)
	if err != nil {
		return nil, err
	}
	return NewGraph(categories), nil
}
