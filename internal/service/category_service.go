package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"issue-service/internal/model"
	"issue-service/internal/repository"
	"issue-service/internal/routing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type CategoryStore interface {
	ListCategories(ctx context.Context, activeOnly bool) ([]model.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error)
	CreateCategory(ctx context.Context, c *model.Category) error
	UpdateCategory(ctx context.Context, c *model.Category) error
	DeactivateCategory(ctx context.Context, id uuid.UUID) error
	GetSubcategory(ctx context.Context, id uuid.UUID) (*model.Subcategory, error)
	CreateSubcategory(ctx context.Context, s *model.Subcategory) error
	UpdateSubcategory(ctx context.Context, s *model.Subcategory) error
	DeactivateSubcategory(ctx context.Context, id uuid.UUID) error
}

// GraphInvalidator drops a cached routing table after admin writes.
type GraphInvalidator interface {
	Invalidate(ctx context.Context) error
}

type CategoryService struct {
	store  CategoryStore
	graphs routing.GraphSource
	cache  GraphInvalidator
	log    zerolog.Logger
	now    func() time.Time
}

func NewCategoryService(log zerolog.Logger, store CategoryStore, graphs routing.GraphSource) *CategoryService {
	return &CategoryService{
		store:  store,
		graphs: graphs,
		log:    log.With().Str("component", "category_service").Logger(),
		now:    time.Now,
	}
}

func (s *CategoryService) SetCache(cache GraphInvalidator) {
	s.cache = cache
}

// List returns active categories with their active subcategories; admins
// may ask for everything.
func (s *CategoryService) List(ctx context.Context, includeInactive bool, actor model.Identity) ([]model.Category, error) {
	if includeInactive && actor.IsAdmin() {
		return s.store.ListCategories(ctx, false)
	}
	graph, err := s.graphs.LoadGraph(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.Category{}
	for _, c := range graph.Categories() {
		if !c.IsActive {
			continue
		}
		cp := c
		cp.Subcategories = []model.Subcategory{}
		for _, sub := range c.Subcategories {
			if sub.IsActive {
				cp.Subcategories = append(cp.Subcategories, sub)
			}
		}
		out = append(out, cp)
	}
	return out, nil
}

func (s *CategoryService) Get(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, storeError(err, "category")
	}
	return c, nil
}

// AuthorityTypes is the capture-field list shown when reporting under the
// subcategory.
func (s *CategoryService) AuthorityTypes(ctx context.Context, subcategoryID uuid.UUID) ([]string, error) {
	graph, err := s.graphs.LoadGraph(ctx)
	if err != nil {
		return nil, err
	}
	types, err := graph.AuthorityTypes(subcategoryID)
	if err != nil {
		return nil, NotFound("subcategory")
	}
	return routing.NormalizeAuthorityTypes(types), nil
}

func (s *CategoryService) Create(ctx context.Context, req *model.CategoryRequest, actor model.Identity) (*model.Category, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("admin only")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	now := s.now()
	c := &model.Category{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Icon:          req.Icon,
		Color:         req.Color,
		IsActive:      req.IsActive == nil || *req.IsActive,
		CreatedAt:     now,
		UpdatedAt:     now,
		Subcategories: []model.Subcategory{},
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, storeError(err, "category")
	}
	s.invalidate(ctx)
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, req *model.CategoryRequest, actor model.Identity) (*model.Category, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("admin only")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, storeError(err, "category")
	}
	c.Name = strings.TrimSpace(req.Name)
	c.Description = req.Description
	c.Icon = req.Icon
	c.Color = req.Color
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	c.UpdatedAt = s.now()
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return nil, storeError(err, "category")
	}
	s.invalidate(ctx)
	return c, nil
}

func (s *CategoryService) Deactivate(ctx context.Context, id uuid.UUID, actor model.Identity) error {
	if !actor.IsAdmin() {
		return Forbidden("admin only")
	}
	if err := s.store.DeactivateCategory(ctx, id); err != nil {
		return storeError(err, "category")
	}
	s.invalidate(ctx)
	return nil
}

func (s *CategoryService) CreateSubcategory(ctx context.Context, categoryID uuid.UUID, req *model.SubcategoryRequest, actor model.Identity) (*model.Subcategory, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("admin only")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if _, err := s.store.GetCategory(ctx, categoryID); err != nil {
		return nil, storeError(err, "category")
	}
	now := s.now()
	sub := &model.Subcategory{
		ID:             uuid.New(),
		CategoryID:     categoryID,
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		AuthorityTypes: routing.NormalizeAuthorityTypes(req.AuthorityTypes),
		IsActive:       req.IsActive == nil || *req.IsActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateSubcategory(ctx, sub); err != nil {
		return nil, storeError(err, "subcategory")
	}
	s.invalidate(ctx)
	return sub, nil
}

func (s *CategoryService) UpdateSubcategory(ctx context.Context, id uuid.UUID, req *model.SubcategoryRequest, actor model.Identity) (*model.Subcategory, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("admin only")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	sub, err := s.store.GetSubcategory(ctx, id)
	if err != nil {
		return nil, storeError(err, "subcategory")
	}
	sub.Name = strings.TrimSpace(req.Name)
	sub.Description = req.Description
	if req.AuthorityTypes != nil {
		sub.AuthorityTypes = routing.NormalizeAuthorityTypes(req.AuthorityTypes)
	}
	if req.IsActive != nil {
		sub.IsActive = *req.IsActive
	}
	sub.UpdatedAt = s.now()
	if err := s.store.UpdateSubcategory(ctx, sub); err != nil {
		return nil, storeError(err, "subcategory")
	}
	s.invalidate(ctx)
	return sub, nil
}

func (s *CategoryService) DeactivateSubcategory(ctx context.Context, id uuid.UUID, actor model.Identity) error {
	if !actor.IsAdmin() {
		return Forbidden("admin only")
	}
	if err := s.store.DeactivateSubcategory(ctx, id); err != nil {
		return storeError(err, "subcategory")
	}
	s.invalidate(ctx)
	return nil
}

func (s *CategoryService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to invalidate routing table cache")
	}
}

// storeError maps repository sentinels for simple CRUD paths.
func storeError(err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return NotFound(what)
	case errors.Is(err, repository.ErrDuplicate):
		return Conflict(what + " already exists")
	}
	return err
}
