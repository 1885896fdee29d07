package service

import (
	"context"
	"strings"
	"time"

	"issue-service/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultSuggestLimit = 5

type OfficialStore interface {
	List(ctx context.Context, f model.OfficialFilter) ([]model.Official, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Official, error)
	Create(ctx context.Context, o *model.Official) error
	Update(ctx context.Context, o *model.Official) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Suggest(ctx context.Context, categoryID uuid.UUID, limit int) ([]model.Official, error)
}

type OfficialService struct {
	store OfficialStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewOfficialService(log zerolog.Logger, store OfficialStore) *OfficialService {
	return &OfficialService{
		store: store,
		log:   log.With().Str("component", "official_service").Logger(),
		now:   time.Now,
	}
}

func (s *OfficialService) List(ctx context.Context, f model.OfficialFilter) (*model.OfficialListResponse, error) {
	f.Page, f.Limit = pageBounds(f.Page, f.Limit)
	f.Department = strings.TrimSpace(f.Department)
	officials, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if officials == nil {
		officials = []model.Official{}
	}
	return &model.OfficialListResponse{
		Officials:  officials,
		Pagination: model.NewPagination(total, f.Page, f.Limit),
	}, nil
}

func (s *OfficialService) Get(ctx context.Context, id uuid.UUID) (*model.Official, error) {
	o, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "official")
	}
	return o, nil
}

// Suggest ranks active officials of a category by how fast and how often
// they resolve issues.
func (s *OfficialService) Suggest(ctx context.Context, categoryID uuid.UUID, limit int) ([]model.Official, error) {
	if limit < 1 {
		limit = defaultSuggestLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	officials, err := s.store.Suggest(ctx, categoryID, limit)
	if err != nil {
		return nil, err
	}
	if officials == nil {
		officials = []model.Official{}
	}
	return officials, nil
}

func (s *OfficialService) Create(ctx context.Context, req *model.OfficialRequest, actor model.Identity) (*model.Official, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("admin only")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	now := s.now()
	o := &model.Official{ID: uuid.New(), CreatedAt: now}
	applyOfficial(o, req, now)
	if err := s.store.Create(ctx, o); err != nil {
		return nil, storeError(err, "official")
	}
	s.log.Info().Str("official_id", o.ID.String()).Str("department", o.Department).Msg("official created")
	return o, nil
}

func (s *OfficialService) Update(ctx context.Context, id uuid.UUID, req *model.OfficialRequest, actor model.Identity) (*model.Official, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("admin only")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	o, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "official")
	}
	applyOfficial(o, req, s.now())
	if err := s.store.Update(ctx, o); err != nil {
		return nil, storeError(err, "official")
	}
	return o, nil
}

func (s *OfficialService) Deactivate(ctx context.Context, id uuid.UUID, actor model.Identity) error {
	if !actor.IsAdmin() {
		return Forbidden("admin only")
	}
	if err := s.store.Deactivate(ctx, id); err != nil {
		return storeError(err, "official")
	}
	return nil
}

func applyOfficial(o *model.Official, req *model.OfficialRequest, now time.Time) {
	o.Name = strings.TrimSpace(req.Name)
	o.Designation = req.Designation
	o.Department = req.Department
	o.Email = req.Email
	o.Phone = req.Phone
	o.AuthorityID = nil
	if req.AuthorityID != "" {
		id := uuid.MustParse(req.AuthorityID)
		o.AuthorityID = &id
	}
	o.Jurisdiction = req.Jurisdiction
	o.Categories = parseIDs(req.Categories)
	o.IsActive = req.IsActive == nil || *req.IsActive
	o.UpdatedAt = now
}
