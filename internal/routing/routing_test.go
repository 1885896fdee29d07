package routing

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"issue-service/internal/model"
	"issue-service/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	roadsID    = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	waterID    = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")
	potholesID = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000001")
	leakageID  = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")
	retiredID  = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000003")
)

func testGraph() *Graph {
	return NewGraph([]model.Category{
		{
			ID: roadsID, Name: "Roads & Transport", IsActive: true,
			Subcategories: []model.Subcategory{
				{ID: potholesID, CategoryID: roadsID, Name: "Potholes", IsActive: true,
					AuthorityTypes: model.AuthorityTypes{"Corporator", "Municipal Engineer", "Contractor", "MLA", "MP"}},
				{ID: retiredID, CategoryID: roadsID, Name: "Old", IsActive: false},
			},
		},
		{
			ID: waterID, Name: "Water Supply & Drainage", IsActive: true,
			Subcategories: []model.Subcategory{
				{ID: leakageID, CategoryID: waterID, Name: "Leakage", IsActive: true,
					AuthorityTypes: model.AuthorityTypes{"Water Board Engineer", " Corporator ", "Corporator", ""}},
			},
		},
	})
}

type staticSource struct{ g *Graph }

func (s staticSource) LoadGraph(context.Context) (*Graph, error) { return s.g, nil }

// fakeAuthorities enforces level uniqueness the way the database does.
type fakeAuthorities struct {
	mu      sync.Mutex
	byLevel map[string]*model.Authority
	links   map[[3]uuid.UUID]struct{}
	creates int

	// beforeCreate runs outside the lock, letting a test slip in a
	// competing insert between lookup and create.
	beforeCreate func(level string)
}

func newFakeAuthorities() *fakeAuthorities {
	return &fakeAuthorities{
		byLevel: map[string]*model.Authority{},
		links:   map[[3]uuid.UUID]struct{}{},
	}
}

func (f *fakeAuthorities) FindByLevel(_ context.Context, level string) (*model.Authority, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byLevel[level]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAuthorities) Create(_ context.Context, a *model.Authority) error {
	if f.beforeCreate != nil {
		f.beforeCreate(a.Level)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byLevel[a.Level]; ok {
		return repository.ErrDuplicate
	}
	cp := *a
	f.byLevel[a.Level] = &cp
	f.creates++
	return nil
}

func (f *fakeAuthorities) Link(_ context.Context, a, c, s uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[[3]uuid.UUID{a, c, s}] = struct{}{}
	return nil
}

func ids(as []model.Authority) []uuid.UUID {
	out := make([]uuid.UUID, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}

func TestGraphValidate(t *testing.T) {
	g := testGraph()
	tests := []struct {
		name     string
		category uuid.UUID
		sub      uuid.UUID
		want     error
	}{
		{"consistent", roadsID, potholesID, nil},
		{"sub of another category", waterID, potholesID, ErrSubcategoryMismatch},
		{"unknown category", uuid.New(), potholesID, ErrUnknownCategory},
		{"unknown subcategory", roadsID, uuid.New(), ErrUnknownSubcategory},
		{"inactive subcategory", roadsID, retiredID, ErrInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.Validate(tt.category, tt.sub); !errors.Is(err, tt.want) {
				t.Errorf("Validate = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNormalizeAuthorityTypes(t *testing.T) {
	got := NormalizeAuthorityTypes([]string{" MLA", "Corporator", "", "MLA", "Corporator ", "MP"})
	want := []string{"MLA", "Corporator", "MP"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAuthorityTypesReturnsCopy(t *testing.T) {
	g := testGraph()
	types, err := g.AuthorityTypes(potholesID)
	if err != nil {
		t.Fatal(err)
	}
	types[0] = "mutated"
	again, _ := g.AuthorityTypes(potholesID)
	if again[0] != "Corporator" {
		t.Errorf("graph was mutated through returned slice")
	}
}

func TestRouteForCreatesAndLinksEveryAuthorityType(t *testing.T) {
	store := newFakeAuthorities()
	r := NewRouter(zerolog.Nop(), staticSource{testGraph()}, store)

	route, err := r.RouteFor(context.Background(), potholesID)
	if err != nil {
		t.Fatalf("RouteFor: %v", err)
	}

	want := []string{"Corporator", "Municipal Engineer", "Contractor", "MLA", "MP"}
	if !reflect.DeepEqual(route.AuthorityTypes, want) {
		t.Errorf("types = %v, want %v", route.AuthorityTypes, want)
	}
	if len(route.Authorities) != 5 || store.creates != 5 {
		t.Fatalf("authorities = %d, creates = %d, want 5", len(route.Authorities), store.creates)
	}
	for _, a := range route.Authorities {
		if _, ok := store.links[[3]uuid.UUID{a.ID, roadsID, potholesID}]; !ok {
			t.Errorf("authority %s not linked to potholes", a.Level)
		}
	}
	if route.Primary() == nil || *route.Primary() != route.Authorities[0].ID {
		t.Errorf("primary = %v", route.Primary())
	}
}

func TestRouteForIsIdempotent(t *testing.T) {
	store := newFakeAuthorities()
	r := NewRouter(zerolog.Nop(), staticSource{testGraph()}, store)

	first, err := r.RouteFor(context.Background(), potholesID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.RouteFor(context.Background(), potholesID)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(ids(first.Authorities), ids(second.Authorities)) {
		t.Errorf("second routing returned different authorities")
	}
	if store.creates != 5 {
		t.Errorf("creates = %d, want 5", store.creates)
	}
}

func TestRouteForSharesAuthoritiesAcrossSubcategories(t *testing.T) {
	store := newFakeAuthorities()
	r := NewRouter(zerolog.Nop(), staticSource{testGraph()}, store)

	if _, err := r.RouteFor(context.Background(), potholesID); err != nil {
		t.Fatal(err)
	}
	route, err := r.RouteFor(context.Background(), leakageID)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(route.AuthorityTypes, []string{"Water Board Engineer", "Corporator"}) {
		t.Errorf("types = %v", route.AuthorityTypes)
	}
	// Corporator already exists; only the water engineer is new.
	if store.creates != 6 {
		t.Errorf("creates = %d, want 6", store.creates)
	}
	if _, ok := store.links[[3]uuid.UUID{route.Authorities[1].ID, waterID, leakageID}]; !ok {
		t.Error("existing authority not linked to the new subcategory")
	}
}

func TestRouteForRetriesLookupAfterLosingCreateRace(t *testing.T) {
	store := newFakeAuthorities()
	winner := uuid.New()
	store.beforeCreate = func(level string) {
		if level != "Corporator" {
			return
		}
		store.beforeCreate = nil
		store.mu.Lock()
		store.byLevel[level] = &model.Authority{ID: winner, Level: level, IsActive: true}
		store.mu.Unlock()
	}

	r := NewRouter(zerolog.Nop(), staticSource{testGraph()}, store)
	route, err := r.RouteFor(context.Background(), potholesID)
	if err != nil {
		t.Fatalf("RouteFor: %v", err)
	}
	if route.Authorities[0].ID != winner {
		t.Errorf("expected the concurrently created authority to be reused")
	}
	if len(store.byLevel) != 5 {
		t.Errorf("levels = %d, want 5", len(store.byLevel))
	}
}

func TestRouteForConcurrentCallsCreateNoDuplicates(t *testing.T) {
	store := newFakeAuthorities()
	r := NewRouter(zerolog.Nop(), staticSource{testGraph()}, store)

	var wg sync.WaitGroup
	results := make([][]uuid.UUID, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			route, err := r.RouteFor(context.Background(), potholesID)
			errs[i] = err
			if err == nil {
				results[i] = ids(route.Authorities)
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if !reflect.DeepEqual(results[i], results[0]) {
			t.Errorf("call %d returned different authority ids", i)
		}
	}
	if store.creates != 5 {
		t.Errorf("creates = %d, want 5", store.creates)
	}
}

func TestRouteForUnknownSubcategory(t *testing.T) {
	r := NewRouter(zerolog.Nop(), staticSource{testGraph()}, newFakeAuthorities())
	if _, err := r.RouteFor(context.Background(), uuid.New()); !errors.Is(err, ErrUnknownSubcategory) {
		t.Errorf("err = %v, want ErrUnknownSubcategory", err)
	}
}

type fakeOfficials struct {
	officials []model.Official
	gotLimit  int
}

func (f *fakeOfficials) ListActiveByCategory(_ context.Context, categoryID uuid.UUID, limit int) ([]model.Official, error) {
	f.gotLimit = limit
	var out []model.Official
	for _, o := range f.officials {
		for _, c := range o.Categories {
			if c == categoryID && o.IsActive && len(out) < limit {
				out = append(out, o)
			}
		}
	}
	return out, nil
}

func TestAssignerTakesFirstThreeMatching(t *testing.T) {
	var officials []model.Official
	for i := 0; i < 5; i++ {
		officials = append(officials, model.Official{ID: uuid.New(), IsActive: true, Categories: []uuid.UUID{roadsID}})
	}
	officials = append([]model.Official{{ID: uuid.New(), IsActive: false, Categories: []uuid.UUID{roadsID}}}, officials...)
	store := &fakeOfficials{officials: officials}

	got, err := NewAssigner(store, 0).Assign(context.Background(), roadsID)
	if err != nil {
		t.Fatal(err)
	}
	want := []uuid.UUID{officials[1].ID, officials[2].ID, officials[3].ID}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("assigned %v, want %v", got, want)
	}
	if store.gotLimit != DefaultAssignLimit {
		t.Errorf("limit = %d", store.gotLimit)
	}
}

func TestAssignerNoMatches(t *testing.T) {
	got, err := NewAssigner(&fakeOfficials{}, 3).Assign(context.Background(), waterID)
	if err != nil || len(got) != 0 {
		t.Errorf("got %v, %v", got, err)
	}
}
