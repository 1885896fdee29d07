package service

import (
	"context"
	"strings"
	"time"

	"issue-service/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type AuthorityStore interface {
	List(ctx context.Context, subcategoryID *uuid.UUID) ([]model.Authority, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Authority, error)
	Create(ctx context.Context, a *model.Authority) error
	Update(ctx context.Context, a *model.Authority, replaceSubcategories bool) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type AuthorityService struct {
	store AuthorityStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewAuthorityService(log zerolog.Logger, store AuthorityStore) *AuthorityService {
	return &AuthorityService{
		store: store,
		log:   log.With().Str("component", "authority_service").Logger(),
		now:   time.Now,
	}
}

func (s *AuthorityService) List(ctx context.Context, subcategoryID *uuid.UUID) ([]model.Authority, error) {
	return s.store.List(ctx, subcategoryID)
}

func (s *AuthorityService) Get(ctx context.Context, id uuid.UUID) (*model.Authority, error) {
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "authority")
	}
	return a, nil
}

// Create accepts level under its legacy aliases; they are folded into
// level before validation.
func (s *AuthorityService) Create(ctx context.Context, req *model.AuthorityRequest, actor model.Identity) (*model.Authority, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("admin only")
	}
	req.Normalize()
	req.Level = strings.TrimSpace(req.Level)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	now := s.now()
	a := &model.Authority{
		ID:             uuid.New(),
		SubcategoryIDs: []uuid.UUID{},
		CreatedAt:      now,
	}
	applyAuthority(a, req, now)
	if err := s.store.Create(ctx, a); err != nil {
		return nil, storeError(err, "authority level")
	}
	s.log.Info().Str("level", a.Level).Str("authority_id", a.ID.String()).Msg("authority created")
	return a, nil
}

func (s *AuthorityService) Update(ctx context.Context, id uuid.UUID, req *model.AuthorityRequest, actor model.Identity) (*model.Authority, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("admin only")
	}
	req.Normalize()
	req.Level = strings.TrimSpace(req.Level)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "authority")
	}
	applyAuthority(a, req, s.now())
	if err := s.store.Update(ctx, a, req.Subcategories != nil); err != nil {
		return nil, storeError(err, "authority level")
	}
	return a, nil
}

// Delete deactivates; authorities stay referenced by routed issues.
func (s *AuthorityService) Delete(ctx context.Context, id uuid.UUID, actor model.Identity) error {
	if !actor.IsAdmin() {
		return Forbidden("admin only")
	}
	if err := s.store.Deactivate(ctx, id); err != nil {
		return storeError(err, "authority")
	}
	return nil
}

func applyAuthority(a *model.Authority, req *model.AuthorityRequest, now time.Time) {
	a.Level = req.Level
	a.Description = req.Description
	a.Notes = req.Notes
	a.IsActive = req.IsActive == nil || *req.IsActive
	a.CategoryIDs = parseIDs(req.Categories)
	// Omitted subcategories keep the current links.
	if req.Subcategories != nil {
		a.SubcategoryIDs = parseIDs(req.Subcategories)
	}
	a.UpdatedAt = now
}

// parseIDs expects already validated uuids.
func parseIDs(in []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(in))
	for _, s := range in {
		out = append(out, uuid.MustParse(s))
	}
	return out
}
