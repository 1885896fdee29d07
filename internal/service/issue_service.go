package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"issue-service/internal/lifecycle"
	"issue-service/internal/model"
	"issue-service/internal/repository"
	"issue-service/internal/routing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	locationSourceClient = "client"
)

type IssueStore interface {
	Create(ctx context.Context, issue *model.Issue) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Issue, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Issue, error)
	List(ctx context.Context, f model.IssueFilter) ([]model.Issue, int, error)
	Update(ctx context.Context, issue *model.Issue) error
	UpdateStatus(ctx context.Context, issue *model.Issue, expected model.IssueStatus, actor model.Role) error
	Escalate(ctx context.Context, issue *model.Issue) error
	AddComment(ctx context.Context, c *model.Comment) error
	ListComments(ctx context.Context, issueID uuid.UUID, includeInternal bool) ([]model.Comment, error)
}

type AuthorityRouter interface {
	RouteFor(ctx context.Context, subcategoryID uuid.UUID) (*routing.Route, error)
}

type OfficialAssigner interface {
	Assign(ctx context.Context, categoryID uuid.UUID) ([]uuid.UUID, error)
}

// OfficialMetrics is the part of the official store issues touch.
type OfficialMetrics interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Official, error)
	RefreshMetrics(ctx context.Context, ids []uuid.UUID) error
}

// IssueSearcher is the full-text index. Search returns matching issue ids
// in relevance order plus the estimated total.
type IssueSearcher interface {
	Healthy() bool
	Search(ctx context.Context, f model.IssueFilter) ([]uuid.UUID, int, error)
}

type IssueService struct {
	issues     IssueStore
	graphs     routing.GraphSource
	router     AuthorityRouter
	assigner   OfficialAssigner
	officials  OfficialMetrics
	search     IssueSearcher
	moderation bool
	log        zerolog.Logger
	now        func() time.Time
}

func NewIssueService(
	log zerolog.Logger,
	issues IssueStore,
	graphs routing.GraphSource,
	router AuthorityRouter,
	assigner OfficialAssigner,
	officials OfficialMetrics,
	moderation bool,
) *IssueService {
	return &IssueService{
		issues:     issues,
		graphs:     graphs,
		router:     router,
		assigner:   assigner,
		officials:  officials,
		moderation: moderation,
		log:        log.With().Str("component", "issue_service").Logger(),
		now:        time.Now,
	}
}

// SetSearch injects the search index used for free-text listing queries.
func (s *IssueService) SetSearch(search IssueSearcher) {
	s.search = search
}

// Create validates the submission, routes it to the subcategory's
// authorities, auto-assigns officials when none were named and persists
// the issue in its initial state.
func (s *IssueService) Create(ctx context.Context, req *model.CreateIssueRequest, actor model.Identity) (*model.Issue, error) {
	if !actor.Authenticated() {
		return nil, Unauthorized("authentication required")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	categoryID := uuid.MustParse(req.CategoryID)
	subcategoryID := uuid.MustParse(req.SubcategoryID)

	graph, err := s.graphs.LoadGraph(ctx)
	if err != nil {
		return nil, err
	}
	if err := graph.Validate(categoryID, subcategoryID); err != nil {
		return nil, routingError(err)
	}

	route, err := s.router.RouteFor(ctx, subcategoryID)
	if err != nil {
		return nil, routingError(err)
	}

	assigned, err := s.assignees(ctx, req, categoryID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	loc := req.Location
	location := model.Location{
		Lat:     *loc.Lat,
		Lng:     *loc.Lng,
		Address: strings.TrimSpace(loc.Address),
		Source:  locationSourceClient,
	}
	if loc.Components != nil {
		location.Components = *loc.Components
	}

	issue := &model.Issue{
		ID:                  uuid.New(),
		Title:               strings.TrimSpace(req.Title),
		Description:         strings.TrimSpace(req.Description),
		Status:              lifecycle.InitialStatus(s.moderation),
		Priority:            priority,
		Location:            location,
		Media:               append([]string{}, req.Media...),
		IsAnonymous:         req.IsAnonymous || actor.Anonymous,
		ReporterName:        actor.Name,
		UserID:              actor.UserID,
		CategoryID:          categoryID,
		SubcategoryID:       subcategoryID,
		AssignedOfficials:   assigned,
		AssignedAuthorityID: route.Primary(),
		AuthorityContacts:   filterContacts(req.AuthorityContacts, route.AuthorityTypes),
		Representatives:     representatives(req.MLAInfo, req.MPInfo),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.issues.Create(ctx, issue); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("category or subcategory")
		}
		return nil, err
	}

	s.log.Info().
		Str("issue_id", issue.IssueID).
		Str("subcategory_id", subcategoryID.String()).
		Int("authorities", len(route.Authorities)).
		Int("assigned", len(assigned)).
		Msg("issue created")

	issue.Redact(actor)
	return issue, nil
}

// assignees uses the officials named in the request, or auto-assigns. A
// failing auto-assignment leaves the issue unassigned.
func (s *IssueService) assignees(ctx context.Context, req *model.CreateIssueRequest, categoryID uuid.UUID) ([]uuid.UUID, error) {
	if len(req.AssignedOfficials) > 0 {
		ids := make([]uuid.UUID, 0, len(req.AssignedOfficials))
		seen := make(map[uuid.UUID]struct{}, len(req.AssignedOfficials))
		for _, raw := range req.AssignedOfficials {
			id := uuid.MustParse(raw)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		return ids, nil
	}

	ids, err := s.assigner.Assign(ctx, categoryID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.log.Warn().Err(err).Str("category_id", categoryID.String()).Msg("auto-assignment failed")
		return []uuid.UUID{}, nil
	}
	return ids, nil
}

// filterContacts keeps only names typed for the routed authority types.
func filterContacts(in map[string]string, types []string) model.AuthorityContacts {
	out := model.AuthorityContacts{}
	allowed := make(map[string]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}
	for k, v := range in {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := allowed[k]; ok {
			out[k] = v
		}
	}
	return out
}

func representatives(mla, mp *model.Representative) model.Representatives {
	var r model.Representatives
	if mla != nil && strings.TrimSpace(mla.Name) != "" {
		r.MLA = mla
	}
	if mp != nil && strings.TrimSpace(mp.Name) != "" {
		r.MP = mp
	}
	return r
}

func routingError(err error) error {
	switch {
	case errors.Is(err, routing.ErrUnknownCategory):
		return NotFound("category")
	case errors.Is(err, routing.ErrUnknownSubcategory):
		return NotFound("subcategory")
	case errors.Is(err, routing.ErrSubcategoryMismatch):
		return Invalid(FieldError{Field: "subcategoryId", Message: "does not belong to the category"})
	case errors.Is(err, routing.ErrInactive):
		return Invalid(FieldError{Field: "subcategoryId", Message: "is not accepting issues"})
	}
	return err
}

// Get returns the issue with its comments. Internal comments are only
// included for officials and admins.
func (s *IssueService) Get(ctx context.Context, id uuid.UUID, actor model.Identity) (*model.Issue, error) {
	issue, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	issue.Comments, err = s.issues.ListComments(ctx, id, actor.IsOfficial() || actor.IsAdmin())
	if err != nil {
		return nil, err
	}
	issue.Redact(actor)
	return issue, nil
}

// List pages issues. A free-text query goes to the search index while it
// is healthy and to the database otherwise.
func (s *IssueService) List(ctx context.Context, f model.IssueFilter, viewer model.Identity) (*model.IssueListResponse, error) {
	var bad []FieldError
	if f.Status != "" && !f.Status.Valid() {
		bad = append(bad, FieldError{Field: "status", Message: "is not a known status"})
	}
	if f.Priority != "" && !f.Priority.Valid() {
		bad = append(bad, FieldError{Field: "priority", Message: "is not a known priority"})
	}
	switch f.Sort {
	case "", "newest", "oldest", "upvotes":
	default:
		bad = append(bad, FieldError{Field: "sort", Message: "must be one of newest oldest upvotes"})
	}
	if len(bad) > 0 {
		return nil, Invalid(bad...)
	}
	f.Page, f.Limit = pageBounds(f.Page, f.Limit)
	f.Query = strings.TrimSpace(f.Query)

	var (
		issues []model.Issue
		total  int
		err    error
	)
	if f.Query != "" && s.search != nil && s.search.Healthy() {
		issues, total, err = s.searchIndex(ctx, f)
		if err != nil {
			s.log.Warn().Err(err).Msg("search index query failed, falling back to database")
			issues, total, err = s.issues.List(ctx, f)
		}
	} else {
		issues, total, err = s.issues.List(ctx, f)
	}
	if err != nil {
		return nil, err
	}

	if issues == nil {
		issues = []model.Issue{}
	}
	for i := range issues {
		issues[i].Redact(viewer)
	}
	return &model.IssueListResponse{
		Issues:     issues,
		Pagination: model.NewPagination(total, f.Page, f.Limit),
	}, nil
}

func (s *IssueService) searchIndex(ctx context.Context, f model.IssueFilter) ([]model.Issue, int, error) {
	ids, total, err := s.search.Search(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	issues, err := s.issues.GetByIDs(ctx, ids)
	return issues, total, err
}

// Mine lists the caller's own issues, anonymous ones included.
func (s *IssueService) Mine(ctx context.Context, actor model.Identity, page, limit int) (*model.IssueListResponse, error) {
	if actor.UserID == nil {
		return nil, Unauthorized("authentication required")
	}
	resp, err := s.List(ctx, model.IssueFilter{UserID: actor.UserID, Page: page, Limit: limit}, actor)
	if err != nil {
		return nil, err
	}
	for i := range resp.Issues {
		resp.Issues[i].UserID = actor.UserID
	}
	return resp, nil
}

func pageBounds(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// Update lets the reporter or an admin edit the descriptive fields.
func (s *IssueService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateIssueRequest, actor model.Identity) (*model.Issue, error) {
	if !actor.Authenticated() {
		return nil, Unauthorized("authentication required")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	issue, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !isReporter(issue, actor) {
		return nil, Forbidden("only the reporter or an admin can edit this issue")
	}

	if req.Title != nil {
		issue.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		issue.Description = strings.TrimSpace(*req.Description)
	}
	if req.Priority != nil {
		issue.Priority = *req.Priority
	}
	if req.Media != nil {
		issue.Media = append([]string{}, req.Media...)
	}
	issue.UpdatedAt = s.now()

	if err := s.issues.Update(ctx, issue); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("issue")
		}
		return nil, err
	}
	issue.Redact(actor)
	return issue, nil
}

func isReporter(issue *model.Issue, actor model.Identity) bool {
	return issue.ReportedBy(actor)
}

// UpdateStatus moves the issue through the lifecycle. The write only lands
// if nobody changed the status since it was read.
func (s *IssueService) UpdateStatus(ctx context.Context, id uuid.UUID, req *model.UpdateStatusRequest, actor model.Identity) (*model.Issue, error) {
	if !actor.Authenticated() {
		return nil, Unauthorized("authentication required")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	issue, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := issue.Status
	changed, err := lifecycle.Apply(issue, actor, lifecycle.Change{
		Status:          req.Status,
		ResolutionNotes: req.ResolutionNotes,
		ResolutionMedia: req.ResolutionMedia,
		Reason:          req.Reason,
	}, s.now())
	if err != nil {
		return nil, transitionError(err, previous, req.Status)
	}
	if !changed {
		issue.Redact(actor)
		return issue, nil
	}

	if err := s.issues.UpdateStatus(ctx, issue, previous, actor.Role); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleStatus):
			return nil, Conflict("issue status was changed by another request")
		case errors.Is(err, repository.ErrNotFound):
			return nil, NotFound("issue")
		}
		return nil, err
	}

	s.log.Info().
		Str("issue_id", issue.IssueID).
		Str("from", string(previous)).
		Str("to", string(issue.Status)).
		Str("actor_role", string(actor.Role)).
		Msg("issue status updated")

	if issue.Status == model.StatusResolved && len(issue.AssignedOfficials) > 0 {
		if err := s.officials.RefreshMetrics(ctx, issue.AssignedOfficials); err != nil {
			s.log.Error().Err(err).Str("issue_id", issue.IssueID).Msg("failed to refresh official metrics")
		}
	}

	issue.Redact(actor)
	return issue, nil
}

func transitionError(err error, from, to model.IssueStatus) error {
	switch {
	case errors.Is(err, lifecycle.ErrForbidden):
		return Forbidden("not permitted to move this issue from " + string(from) + " to " + string(to))
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return InvalidTransition("cannot move issue from " + string(from) + " to " + string(to))
	case errors.Is(err, lifecycle.ErrReasonRequired):
		return Invalid(FieldError{Field: "reason", Message: "is required"})
	case errors.Is(err, lifecycle.ErrUnknownStatus):
		return Invalid(FieldError{Field: "status", Message: "is not a known status"})
	}
	return err
}

// Escalate records that an official or admin handed the issue to another
// official.
func (s *IssueService) Escalate(ctx context.Context, id uuid.UUID, req *model.EscalateRequest, actor model.Identity) (*model.Issue, error) {
	if !actor.IsOfficial() && !actor.IsAdmin() {
		return nil, Forbidden("only officials and admins can escalate issues")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	officialID := uuid.MustParse(req.OfficialID)
	if _, err := s.officials.GetByID(ctx, officialID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("official")
		}
		return nil, err
	}
	issue, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	issue.EscalatedAt = &now
	issue.EscalatedTo = &officialID
	issue.UpdatedAt = now
	if err := s.issues.Escalate(ctx, issue); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("issue")
		}
		return nil, err
	}

	s.log.Info().Str("issue_id", issue.IssueID).Str("escalated_to", officialID.String()).Msg("issue escalated")
	issue.Redact(actor)
	return issue, nil
}

// AddComment attaches a comment. Officials comment as their official
// record; only officials and admins may post internal notes.
func (s *IssueService) AddComment(ctx context.Context, id uuid.UUID, req *model.CreateCommentRequest, actor model.Identity) (*model.Comment, error) {
	if !actor.Authenticated() {
		return nil, Unauthorized("authentication required")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	staff := actor.IsOfficial() || actor.IsAdmin()
	if req.IsInternal && !staff {
		return nil, Forbidden("only officials and admins can post internal comments")
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	c := &model.Comment{
		ID:         uuid.New(),
		IssueID:    id,
		Content:    strings.TrimSpace(req.Content),
		IsOfficial: actor.IsOfficial(),
		IsInternal: req.IsInternal,
		AuthorName: actor.Name,
		CreatedAt:  s.now(),
	}
	switch {
	case actor.IsOfficial() && actor.OfficialID != nil:
		c.OfficialID = actor.OfficialID
	case !actor.Anonymous:
		c.UserID = actor.UserID
	}

	if err := s.issues.AddComment(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("issue")
		}
		return nil, err
	}
	return c, nil
}

func (s *IssueService) load(ctx context.Context, id uuid.UUID) (*model.Issue, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("issue")
		}
		return nil, err
	}
	return issue, nil
}
