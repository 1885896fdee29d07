package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"
	"time"

	"issue-service/internal/model"
	"issue-service/internal/repository"
	"issue-service/internal/routing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type issueFixture struct {
	svc       *IssueService
	store     *fakeIssueStore
	officials *fakeOfficialMetrics
	route     *routing.Route
	assigned  []uuid.UUID
	assignErr error
	assignHit int
}

func newIssueFixture(t *testing.T, moderation bool) *issueFixture {
	t.Helper()
	fx := &issueFixture{
		store:     newFakeIssueStore(),
		officials: &fakeOfficialMetrics{officials: map[uuid.UUID]model.Official{}},
		route: &routing.Route{
			CategoryID:     roadsID,
			SubcategoryID:  potholesID,
			AuthorityTypes: []string{"Corporator", "Municipal Engineer", "Contractor", "MLA", "MP"},
			Authorities: []model.Authority{
				{ID: uuid.New(), Level: "Corporator"},
				{ID: uuid.New(), Level: "Municipal Engineer"},
			},
		},
		assigned: []uuid.UUID{uuid.New(), uuid.New(), uuid.New()},
	}
	router := fakeRouter{routeFn: func(_ context.Context, sub uuid.UUID) (*routing.Route, error) {
		if sub != potholesID {
			return nil, routing.ErrUnknownSubcategory
		}
		return fx.route, nil
	}}
	assigner := fakeAssigner{assignFn: func(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
		fx.assignHit++
		return fx.assigned, fx.assignErr
	}}
	fx.svc = NewIssueService(zerolog.Nop(), fx.store, graphSource{testCategories()}, router, assigner, fx.officials, moderation)
	fx.svc.now = func() time.Time { return fixedNow }
	return fx
}

func validCreateRequest() *model.CreateIssueRequest {
	return &model.CreateIssueRequest{
		Title:         "Deep pothole near bus stop",
		Description:   "A large pothole has formed next to the bus stop and is flooding.",
		CategoryID:    roadsID.String(),
		SubcategoryID: potholesID.String(),
		Location: &model.LocationInput{
			Lat:     floatPtr(17.5004),
			Lng:     floatPtr(78.3356),
			Address: "Hyderabad, Telangana, 500001",
		},
	}
}

func citizen() model.Identity {
	return model.Identity{UserID: uuidPtr(uuid.New()), Role: model.RoleCitizen, Name: "Asha"}
}

func anonymous(name string) model.Identity {
	return model.Identity{UserID: uuidPtr(uuid.New()), Role: model.RoleCitizen, Name: name, Anonymous: true}
}

func admin() model.Identity {
	return model.Identity{UserID: uuidPtr(uuid.New()), Role: model.RoleAdmin, Name: "Admin"}
}

func official() model.Identity {
	return model.Identity{UserID: uuidPtr(uuid.New()), Role: model.RoleOfficial, Name: "Officer", OfficialID: uuidPtr(uuid.New())}
}

func assertCode(t *testing.T, err error, code ErrorCode) *DomainError {
	t.Helper()
	de, ok := AsDomainError(err)
	if !ok {
		t.Fatalf("err = %v, want DomainError %s", err, code)
	}
	if de.Code != code {
		t.Fatalf("code = %s, want %s (%s)", de.Code, code, de.Message)
	}
	return de
}

func fields(de *DomainError) []string {
	var out []string
	for _, d := range de.Details {
		out = append(out, d.Field)
	}
	sort.Strings(out)
	return out
}

func TestCreateIssueRoutesAndAutoAssigns(t *testing.T) {
	fx := newIssueFixture(t, false)
	req := validCreateRequest()
	req.AuthorityContacts = map[string]string{
		"Corporator": " Ramesh ",
		"MLA":        "",
		"Mayor":      "not a routed authority",
	}
	req.MLAInfo = &model.Representative{Name: "K. Rao", Constituency: "Serilingampally"}
	req.MPInfo = &model.Representative{}

	actor := citizen()
	issue, err := fx.svc.Create(context.Background(), req, actor)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if issue.Status != model.StatusOpen {
		t.Errorf("status = %s, want open", issue.Status)
	}
	if issue.Priority != model.PriorityMedium {
		t.Errorf("priority = %s, want medium", issue.Priority)
	}
	if issue.IssueID != "JR-2026-0001" {
		t.Errorf("issueId = %s", issue.IssueID)
	}
	if issue.AssignedAuthorityID == nil || *issue.AssignedAuthorityID != fx.route.Authorities[0].ID {
		t.Errorf("assignedAuthorityId = %v, want first routed authority", issue.AssignedAuthorityID)
	}
	if !reflect.DeepEqual(issue.AssignedOfficials, fx.assigned) {
		t.Errorf("assignedOfficials = %v, want %v", issue.AssignedOfficials, fx.assigned)
	}
	if !reflect.DeepEqual(issue.AuthorityContacts, model.AuthorityContacts{"Corporator": "Ramesh"}) {
		t.Errorf("authorityContacts = %v", issue.AuthorityContacts)
	}
	if issue.Representatives.MLA == nil || issue.Representatives.MP != nil {
		t.Errorf("representatives = %+v", issue.Representatives)
	}
	if issue.UserID == nil || *issue.UserID != *actor.UserID {
		t.Errorf("userId = %v", issue.UserID)
	}
	if issue.Location.Address != "Hyderabad, Telangana, 500001" || issue.Location.Lat != 17.5004 {
		t.Errorf("location = %+v", issue.Location)
	}
	if issue.Media == nil {
		t.Error("media must be an empty list, not nil")
	}
	if _, err := fx.store.GetByID(context.Background(), issue.ID); err != nil {
		t.Errorf("issue not persisted: %v", err)
	}
}

func TestCreateIssueModerationStartsPending(t *testing.T) {
	fx := newIssueFixture(t, true)
	issue, err := fx.svc.Create(context.Background(), validCreateRequest(), citizen())
	if err != nil {
		t.Fatal(err)
	}
	if issue.Status != model.StatusPending {
		t.Errorf("status = %s, want pending", issue.Status)
	}
}

func TestCreateIssueKeepsExplicitOfficials(t *testing.T) {
	fx := newIssueFixture(t, false)
	named := uuid.New()
	req := validCreateRequest()
	req.AssignedOfficials = []string{named.String(), named.String()}

	issue, err := fx.svc.Create(context.Background(), req, citizen())
	if err != nil {
		t.Fatal(err)
	}
	if fx.assignHit != 0 {
		t.Error("auto-assignment ran despite explicit officials")
	}
	if !reflect.DeepEqual(issue.AssignedOfficials, []uuid.UUID{named}) {
		t.Errorf("assignedOfficials = %v", issue.AssignedOfficials)
	}
}

func TestCreateIssueSurvivesAssignmentFailure(t *testing.T) {
	fx := newIssueFixture(t, false)
	fx.assigned, fx.assignErr = nil, errors.New("officials table unavailable")

	issue, err := fx.svc.Create(context.Background(), validCreateRequest(), citizen())
	if err != nil {
		t.Fatal(err)
	}
	if len(issue.AssignedOfficials) != 0 || issue.AssignedOfficials == nil {
		t.Errorf("assignedOfficials = %#v, want empty list", issue.AssignedOfficials)
	}
}

func TestCreateIssueAnonymousHidesReporter(t *testing.T) {
	fx := newIssueFixture(t, false)
	issue, err := fx.svc.Create(context.Background(), validCreateRequest(), anonymous("Ravi"))
	if err != nil {
		t.Fatal(err)
	}
	if !issue.IsAnonymous || issue.UserID != nil || issue.ReporterName != "Ravi" {
		t.Errorf("anonymous issue = anon:%v user:%v name:%q", issue.IsAnonymous, issue.UserID, issue.ReporterName)
	}
	stored, _ := fx.store.GetByID(context.Background(), issue.ID)
	if stored.UserID == nil {
		t.Error("stored issue should keep the session user id for ownership")
	}
}

func TestCreateIssueRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *model.CreateIssueRequest)
		actor  model.Identity
		code   ErrorCode
		fields []string
	}{
		{
			name:  "no identity",
			actor: model.Identity{IP: "1.2.3.4"},
			code:  CodeUnauthorized,
		},
		{
			name: "every failing field is listed",
			mutate: func(r *model.CreateIssueRequest) {
				r.Title = "abc"
				r.Description = ""
				r.CategoryID = "not-a-uuid"
				r.Location.Lat = floatPtr(123)
				r.Location.Address = ""
			},
			actor:  citizen(),
			code:   CodeValidation,
			fields: []string{"categoryId", "description", "location.address", "location.lat", "title"},
		},
		{
			name:   "missing location",
			mutate: func(r *model.CreateIssueRequest) { r.Location = nil },
			actor:  citizen(),
			code:   CodeValidation,
			fields: []string{"location"},
		},
		{
			name:   "unknown category",
			mutate: func(r *model.CreateIssueRequest) { r.CategoryID = uuid.NewString() },
			actor:  citizen(),
			code:   CodeNotFound,
		},
		{
			name:   "subcategory of another category",
			mutate: func(r *model.CreateIssueRequest) { r.SubcategoryID = leakageID.String() },
			actor:  citizen(),
			code:   CodeValidation,
			fields: []string{"subcategoryId"},
		},
		{
			name: "inactive category",
			mutate: func(r *model.CreateIssueRequest) {
				r.CategoryID = waterID.String()
				r.SubcategoryID = leakageID.String()
			},
			actor:  citizen(),
			code:   CodeValidation,
			fields: []string{"subcategoryId"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newIssueFixture(t, false)
			req := validCreateRequest()
			if tt.mutate != nil {
				tt.mutate(req)
			}
			_, err := fx.svc.Create(context.Background(), req, tt.actor)
			de := assertCode(t, err, tt.code)
			if tt.fields != nil && !reflect.DeepEqual(fields(de), tt.fields) {
				t.Errorf("fields = %v, want %v", fields(de), tt.fields)
			}
			if len(fx.store.issues) != 0 {
				t.Error("rejected issue was persisted")
			}
		})
	}
}

func seedIssue(fx *issueFixture, mutate func(is *model.Issue)) *model.Issue {
	is := model.Issue{
		ID:                uuid.New(),
		IssueID:           "JR-2026-0042",
		Title:             "Streetlight out",
		Description:       "The streetlight has been out for a week.",
		Status:            model.StatusOpen,
		Priority:          model.PriorityMedium,
		UserID:            uuidPtr(uuid.New()),
		ReporterName:      "Asha",
		CategoryID:        roadsID,
		SubcategoryID:     potholesID,
		AssignedOfficials: []uuid.UUID{uuid.New()},
		Media:             []string{},
		CreatedAt:         fixedNow.Add(-48 * time.Hour),
		UpdatedAt:         fixedNow.Add(-48 * time.Hour),
	}
	if mutate != nil {
		mutate(&is)
	}
	return fx.store.put(is)
}

func TestUpdateStatusAnonymousNameMatch(t *testing.T) {
	fx := newIssueFixture(t, false)
	issue := seedIssue(fx, func(is *model.Issue) {
		is.IsAnonymous = true
		is.ReporterName = "Ravi"
	})
	req := &model.UpdateStatusRequest{Status: model.StatusResolved, ResolutionNotes: strPtr("filled")}

	_, err := fx.svc.UpdateStatus(context.Background(), issue.ID, req, anonymous("Sunil"))
	assertCode(t, err, CodeForbidden)

	got, err := fx.svc.UpdateStatus(context.Background(), issue.ID, req, anonymous("Ravi"))
	if err != nil {
		t.Fatalf("Ravi: %v", err)
	}
	if got.Status != model.StatusResolved || got.ResolvedAt == nil || !got.ResolvedAt.Equal(fixedNow) {
		t.Errorf("status = %s resolvedAt = %v", got.Status, got.ResolvedAt)
	}
	if got.UserID != nil {
		t.Error("anonymous issue leaked a user id")
	}
}

func TestUpdateStatusResolvedRefreshesOfficialMetrics(t *testing.T) {
	fx := newIssueFixture(t, false)
	issue := seedIssue(fx, nil)

	_, err := fx.svc.UpdateStatus(context.Background(), issue.ID, &model.UpdateStatusRequest{Status: model.StatusResolved}, official())
	if err != nil {
		t.Fatal(err)
	}
	if len(fx.officials.refreshed) != 1 || !reflect.DeepEqual(fx.officials.refreshed[0], issue.AssignedOfficials) {
		t.Errorf("refreshed = %v", fx.officials.refreshed)
	}
}

func TestUpdateStatusSameStatusIsNoop(t *testing.T) {
	fx := newIssueFixture(t, false)
	issue := seedIssue(fx, func(is *model.Issue) { is.Status = model.StatusInProgress })

	got, err := fx.svc.UpdateStatus(context.Background(), issue.ID, &model.UpdateStatusRequest{Status: model.StatusInProgress}, official())
	if err != nil {
		t.Fatal(err)
	}
	if fx.store.statusWrites != 0 {
		t.Errorf("no-op transition wrote %d times", fx.store.statusWrites)
	}
	if !got.UpdatedAt.Equal(issue.UpdatedAt) {
		t.Error("no-op transition touched updatedAt")
	}
}

func TestUpdateStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status model.IssueStatus
		from   model.IssueStatus
		actor  model.Identity
		reason string
		code   ErrorCode
	}{
		{"backward by official", model.StatusResolved, model.StatusVerified, official(), "", CodeInvalidTransition},
		{"admin reject without reason", model.StatusRejected, model.StatusOpen, admin(), "", CodeValidation},
		{"non-admin on closed", model.StatusOpen, model.StatusClosed, official(), "", CodeForbidden},
		{"stranger", model.StatusInProgress, model.StatusOpen, citizen(), "", CodeForbidden},
		{"unknown status", "archived", model.StatusOpen, admin(), "", CodeValidation},
		{"unauthenticated", model.StatusInProgress, model.StatusOpen, model.Identity{IP: "1.2.3.4"}, "", CodeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newIssueFixture(t, false)
			issue := seedIssue(fx, func(is *model.Issue) { is.Status = tt.from })
			_, err := fx.svc.UpdateStatus(context.Background(), issue.ID,
				&model.UpdateStatusRequest{Status: tt.status, Reason: tt.reason}, tt.actor)
			assertCode(t, err, tt.code)
			stored, _ := fx.store.GetByID(context.Background(), issue.ID)
			if stored.Status != tt.from {
				t.Errorf("status changed to %s", stored.Status)
			}
		})
	}
}

func TestUpdateStatusConcurrentChangeConflicts(t *testing.T) {
	fx := newIssueFixture(t, false)
	issue := seedIssue(fx, nil)
	fx.store.updateStatusFn = func(is *model.Issue, _ model.IssueStatus) error {
		// Another request moves the issue between our read and write.
		fx.store.mu.Lock()
		fx.store.issues[is.ID].Status = model.StatusInProgress
		fx.store.mu.Unlock()
		return nil
	}

	_, err := fx.svc.UpdateStatus(context.Background(), issue.ID, &model.UpdateStatusRequest{Status: model.StatusResolved}, official())
	assertCode(t, err, CodeConflict)
	if len(fx.officials.refreshed) != 0 {
		t.Error("metrics refreshed for a write that did not land")
	}
}

func TestUpdateStatusUnknownIssue(t *testing.T) {
	fx := newIssueFixture(t, false)
	_, err := fx.svc.UpdateStatus(context.Background(), uuid.New(), &model.UpdateStatusRequest{Status: model.StatusOpen}, admin())
	assertCode(t, err, CodeNotFound)
}

func TestUpdateIssueOwnership(t *testing.T) {
	fx := newIssueFixture(t, false)
	owner := citizen()
	issue := seedIssue(fx, func(is *model.Issue) { is.UserID = owner.UserID })
	req := &model.UpdateIssueRequest{Title: strPtr("Streetlight still out")}

	_, err := fx.svc.Update(context.Background(), issue.ID, req, citizen())
	assertCode(t, err, CodeForbidden)

	_, err = fx.svc.Update(context.Background(), issue.ID, req, official())
	assertCode(t, err, CodeForbidden)

	got, err := fx.svc.Update(context.Background(), issue.ID, req, owner)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Streetlight still out" || !got.UpdatedAt.Equal(fixedNow) {
		t.Errorf("title = %q updatedAt = %v", got.Title, got.UpdatedAt)
	}

	if _, err := fx.svc.Update(context.Background(), issue.ID, req, admin()); err != nil {
		t.Errorf("admin edit: %v", err)
	}
}

func TestAnonymousIssueShowsReporterNameOnlyToReporter(t *testing.T) {
	fx := newIssueFixture(t, false)
	owner := citizen()
	owner.Name = "Asha Rao"
	issue := seedIssue(fx, func(is *model.Issue) {
		is.UserID = owner.UserID
		is.IsAnonymous = true
		is.ReporterName = "Asha Rao"
	})
	ctx := context.Background()

	tests := []struct {
		name     string
		viewer   model.Identity
		wantName string
	}{
		{"stranger", citizen(), ""},
		{"unauthenticated", model.Identity{Role: model.RoleCitizen, IP: "10.0.0.9"}, ""},
		{"official", official(), ""},
		{"reporter by user id", owner, "Asha Rao"},
		{"anonymous session with same name", anonymous("Asha Rao"), "Asha Rao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fx.svc.Get(ctx, issue.ID, tt.viewer)
			if err != nil {
				t.Fatal(err)
			}
			if got.ReporterName != tt.wantName || got.UserID != nil {
				t.Errorf("reporterName = %q userId = %v, want %q and no user id", got.ReporterName, got.UserID, tt.wantName)
			}
		})
	}

	resp, err := fx.svc.List(ctx, model.IssueFilter{}, citizen())
	if err != nil {
		t.Fatal(err)
	}
	for _, is := range resp.Issues {
		if is.ID == issue.ID && is.ReporterName != "" {
			t.Errorf("listing leaked reporter name %q", is.ReporterName)
		}
	}

	stored, _ := fx.store.GetByID(ctx, issue.ID)
	if stored.ReporterName != "Asha Rao" {
		t.Errorf("stored reporterName = %q, redaction must not touch storage", stored.ReporterName)
	}
}

func TestGetHidesInternalCommentsFromCitizens(t *testing.T) {
	fx := newIssueFixture(t, false)
	issue := seedIssue(fx, nil)
	ctx := context.Background()
	if _, err := fx.svc.AddComment(ctx, issue.ID, &model.CreateCommentRequest{Content: "Crew scheduled", IsInternal: true}, official()); err != nil {
		t.Fatal(err)
	}
	if _, err := fx.svc.AddComment(ctx, issue.ID, &model.CreateCommentRequest{Content: "Thanks!"}, citizen()); err != nil {
		t.Fatal(err)
	}

	public, err := fx.svc.Get(ctx, issue.ID, citizen())
	if err != nil {
		t.Fatal(err)
	}
	if len(public.Comments) != 1 || public.Comments[0].Content != "Thanks!" {
		t.Errorf("citizen sees %+v", public.Comments)
	}

	staff, err := fx.svc.Get(ctx, issue.ID, official())
	if err != nil {
		t.Fatal(err)
	}
	if len(staff.Comments) != 2 {
		t.Errorf("official sees %d comments, want 2", len(staff.Comments))
	}
}

func TestAddCommentAuthorship(t *testing.T) {
	fx := newIssueFixture(t, false)
	issue := seedIssue(fx, nil)
	ctx := context.Background()

	_, err := fx.svc.AddComment(ctx, issue.ID, &model.CreateCommentRequest{Content: "note", IsInternal: true}, citizen())
	assertCode(t, err, CodeForbidden)

	off := official()
	c, err := fx.svc.AddComment(ctx, issue.ID, &model.CreateCommentRequest{Content: "On it"}, off)
	if err != nil {
		t.Fatal(err)
	}
	if !c.IsOfficial || c.UserID != nil || c.OfficialID == nil || *c.OfficialID != *off.OfficialID {
		t.Errorf("official comment = %+v", c)
	}

	anon, err := fx.svc.AddComment(ctx, issue.ID, &model.CreateCommentRequest{Content: "Same here"}, anonymous("Ravi"))
	if err != nil {
		t.Fatal(err)
	}
	if anon.UserID != nil || anon.IsOfficial || anon.AuthorName != "Ravi" {
		t.Errorf("anonymous comment = %+v", anon)
	}

	_, err = fx.svc.AddComment(ctx, uuid.New(), &model.CreateCommentRequest{Content: "hello"}, citizen())
	assertCode(t, err, CodeNotFound)
}

func TestEscalate(t *testing.T) {
	fx := newIssueFixture(t, false)
	issue := seedIssue(fx, nil)
	target := uuid.New()
	fx.officials.officials[target] = model.Official{ID: target, IsActive: true}
	ctx := context.Background()

	_, err := fx.svc.Escalate(ctx, issue.ID, &model.EscalateRequest{OfficialID: target.String()}, citizen())
	assertCode(t, err, CodeForbidden)

	_, err = fx.svc.Escalate(ctx, issue.ID, &model.EscalateRequest{OfficialID: uuid.NewString()}, official())
	assertCode(t, err, CodeNotFound)

	got, err := fx.svc.Escalate(ctx, issue.ID, &model.EscalateRequest{OfficialID: target.String()}, official())
	if err != nil {
		t.Fatal(err)
	}
	if got.EscalatedTo == nil || *got.EscalatedTo != target || got.EscalatedAt == nil {
		t.Errorf("escalation = %v at %v", got.EscalatedTo, got.EscalatedAt)
	}
}

func TestListUsesSearchIndexWhenHealthy(t *testing.T) {
	fx := newIssueFixture(t, false)
	a := seedIssue(fx, nil)
	b := seedIssue(fx, func(is *model.Issue) { is.IsAnonymous = true })
	fx.svc.SetSearch(fakeSearcher{healthy: true, searchFn: func(_ context.Context, f model.IssueFilter) ([]uuid.UUID, int, error) {
		if f.Query != "streetlight" {
			t.Errorf("query = %q", f.Query)
		}
		return []uuid.UUID{b.ID, a.ID}, 2, nil
	}})

	resp, err := fx.svc.List(context.Background(), model.IssueFilter{Query: " streetlight "}, citizen())
	if err != nil {
		t.Fatal(err)
	}
	if fx.store.listCalls != 0 {
		t.Error("database listing used while index is healthy")
	}
	if len(resp.Issues) != 2 || resp.Issues[0].ID != b.ID {
		t.Fatalf("issues = %v", resp.Issues)
	}
	if resp.Issues[0].UserID != nil {
		t.Error("anonymous issue leaked a user id")
	}
	if resp.Pagination != (model.Pagination{Total: 2, Page: 1, Limit: DefaultPageSize, Pages: 1}) {
		t.Errorf("pagination = %+v", resp.Pagination)
	}
}

func TestListFallsBackToDatabase(t *testing.T) {
	tests := []struct {
		name     string
		searcher IssueSearcher
	}{
		{"no index", nil},
		{"unhealthy index", fakeSearcher{healthy: false}},
		{"index error", fakeSearcher{healthy: true, searchFn: func(context.Context, model.IssueFilter) ([]uuid.UUID, int, error) {
			return nil, 0, errors.New("meili down")
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newIssueFixture(t, false)
			seedIssue(fx, nil)
			if tt.searcher != nil {
				fx.svc.SetSearch(tt.searcher)
			}
			resp, err := fx.svc.List(context.Background(), model.IssueFilter{Query: "light", Page: -1, Limit: 500}, citizen())
			if err != nil {
				t.Fatal(err)
			}
			if fx.store.listCalls != 1 || len(resp.Issues) != 1 {
				t.Errorf("listCalls = %d issues = %d", fx.store.listCalls, len(resp.Issues))
			}
			if fx.store.lastFilter.Page != 1 || fx.store.lastFilter.Limit != MaxPageSize {
				t.Errorf("page bounds = %d/%d", fx.store.lastFilter.Page, fx.store.lastFilter.Limit)
			}
		})
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	fx := newIssueFixture(t, false)
	_, err := fx.svc.List(context.Background(), model.IssueFilter{Status: "archived"}, citizen())
	assertCode(t, err, CodeValidation)
}

func TestMineIncludesAnonymousIssues(t *testing.T) {
	fx := newIssueFixture(t, false)
	me := anonymous("Ravi")
	seedIssue(fx, func(is *model.Issue) {
		is.UserID = me.UserID
		is.IsAnonymous = true
	})
	seedIssue(fx, nil)

	resp, err := fx.svc.Mine(context.Background(), me, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Issues) != 1 || resp.Issues[0].UserID == nil {
		t.Errorf("mine = %+v", resp.Issues)
	}

	_, err = fx.svc.Mine(context.Background(), model.Identity{IP: "1.2.3.4"}, 1, 10)
	assertCode(t, err, CodeUnauthorized)
}

func TestStoreErrorMapping(t *testing.T) {
	if !HasCode(storeError(repository.ErrNotFound, "x"), CodeNotFound) {
		t.Error("not found")
	}
	if !HasCode(storeError(fmt.Errorf("%w: authorities_level_key", repository.ErrDuplicate), "x"), CodeConflict) {
		t.Error("duplicate")
	}
	plain := errors.New("boom")
	if storeError(plain, "x") != plain {
		t.Error("unknown errors must pass through")
	}
}
