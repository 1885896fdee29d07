package service

import (
	"context"
	"sync"

	"issue-service/internal/model"
	"issue-service/internal/repository"
	"issue-service/internal/routing"

	"github.com/google/uuid"
)

var (
	roadsID    = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	waterID    = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")
	potholesID = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000001")
	leakageID  = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")
)

func testCategories() []model.Category {
	return []model.Category{
		{
			ID: roadsID, Name: "Roads & Transport", IsActive: true,
			Subcategories: []model.Subcategory{{
				ID: potholesID, CategoryID: roadsID, Name: "Potholes", IsActive: true,
				AuthorityTypes: model.AuthorityTypes{"Corporator", "Municipal Engineer", "Contractor", "MLA", "MP"},
			}},
		},
		{
			ID: waterID, Name: "Water Supply & Drainage", IsActive: false,
			Subcategories: []model.Subcategory{{
				ID: leakageID, CategoryID: waterID, Name: "Leakage", IsActive: true,
				AuthorityTypes: model.AuthorityTypes{"Water Board Engineer"},
			}},
		},
	}
}

type graphSource struct {
	categories []model.Category
}

func (g graphSource) LoadGraph(context.Context) (*routing.Graph, error) {
	return routing.NewGraph(g.categories), nil
}

// fakeIssueStore keeps issues in memory and emulates the status
// compare-and-set. Function fields override individual calls.
type fakeIssueStore struct {
	mu       sync.Mutex
	issues   map[uuid.UUID]*model.Issue
	comments []model.Comment
	seq      int64

	statusWrites int
	listCalls    int
	lastFilter   model.IssueFilter

	updateStatusFn func(issue *model.Issue, expected model.IssueStatus) error
}

func newFakeIssueStore() *fakeIssueStore {
	return &fakeIssueStore{issues: map[uuid.UUID]*model.Issue{}}
}

func (f *fakeIssueStore) put(issue model.Issue) *model.Issue {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := issue
	f.issues[issue.ID] = &cp
	return &cp
}

func (f *fakeIssueStore) Create(_ context.Context, issue *model.Issue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	issue.IssueID = repository.FormatIssueNumber(issue.CreatedAt.Year(), f.seq)
	cp := *issue
	f.issues[issue.ID] = &cp
	return nil
}

func (f *fakeIssueStore) GetByID(_ context.Context, id uuid.UUID) (*model.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	is, ok := f.issues[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *is
	return &cp, nil
}

func (f *fakeIssueStore) GetByIDs(_ context.Context, ids []uuid.UUID) ([]model.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Issue{}
	for _, id := range ids {
		if is, ok := f.issues[id]; ok {
			out = append(out, *is)
		}
	}
	return out, nil
}

func (f *fakeIssueStore) List(_ context.Context, filter model.IssueFilter) ([]model.Issue, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.lastFilter = filter
	out := []model.Issue{}
	for _, is := range f.issues {
		if filter.UserID != nil && (is.UserID == nil || *is.UserID != *filter.UserID) {
			continue
		}
		out = append(out, *is)
	}
	return out, len(out), nil
}

func (f *fakeIssueStore) Update(_ context.Context, issue *model.Issue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.issues[issue.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *issue
	f.issues[issue.ID] = &cp
	return nil
}

func (f *fakeIssueStore) UpdateStatus(_ context.Context, issue *model.Issue, expected model.IssueStatus, _ model.Role) error {
	if f.updateStatusFn != nil {
		if err := f.updateStatusFn(issue, expected); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.issues[issue.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != expected {
		return repository.ErrStaleStatus
	}
	f.statusWrites++
	cp := *issue
	f.issues[issue.ID] = &cp
	return nil
}

func (f *fakeIssueStore) Escalate(_ context.Context, issue *model.Issue) error {
	return f.Update(context.Background(), issue)
}

func (f *fakeIssueStore) AddComment(_ context.Context, c *model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments = append(f.comments, *c)
	return nil
}

func (f *fakeIssueStore) ListComments(_ context.Context, issueID uuid.UUID, includeInternal bool) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Comment{}
	for _, c := range f.comments {
		if c.IssueID == issueID && (includeInternal || !c.IsInternal) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeRouter struct {
	routeFn func(ctx context.Context, subcategoryID uuid.UUID) (*routing.Route, error)
}

func (f fakeRouter) RouteFor(ctx context.Context, subcategoryID uuid.UUID) (*routing.Route, error) {
	return f.routeFn(ctx, subcategoryID)
}

type fakeAssigner struct {
	assignFn func(ctx context.Context, categoryID uuid.UUID) ([]uuid.UUID, error)
}

func (f fakeAssigner) Assign(ctx context.Context, categoryID uuid.UUID) ([]uuid.UUID, error) {
	return f.assignFn(ctx, categoryID)
}

type fakeOfficialMetrics struct {
	officials map[uuid.UUID]model.Official
	refreshed [][]uuid.UUID
}

func (f *fakeOfficialMetrics) GetByID(_ context.Context, id uuid.UUID) (*model.Official, error) {
	o, ok := f.officials[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (f *fakeOfficialMetrics) RefreshMetrics(_ context.Context, ids []uuid.UUID) error {
	f.refreshed = append(f.refreshed, ids)
	return nil
}

type fakeSearcher struct {
	healthy  bool
	searchFn func(ctx context.Context, f model.IssueFilter) ([]uuid.UUID, int, error)
}

func (f fakeSearcher) Healthy() bool { return f.healthy }

func (f fakeSearcher) Search(ctx context.Context, filter model.IssueFilter) ([]uuid.UUID, int, error) {
	return f.searchFn(ctx, filter)
}

func floatPtr(v float64) *float64 { return &v }

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }

func strPtr(s string) *string { return &s }
