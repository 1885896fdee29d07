// Package search keeps a Meilisearch index of issues for free-text listing.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"issue-service/internal/model"

	"github.com/google/uuid"
	meili "github.com/meilisearch/meilisearch-go"
	"github.com/rs/zerolog"
)

const (
	IssuesIndex = "issues"

	healthInterval = 10 * time.Second
	defaultLimit   = 20
)

var ErrUnavailable = errors.New("search index unavailable")

// IssueDocument is the indexed projection of an issue. Reporter identity
// is never indexed.
type IssueDocument struct {
	ID            string `json:"id"`
	IssueID       string `json:"issueId"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Address       string `json:"address"`
	Status        string `json:"status"`
	Priority      string `json:"priority"`
	CategoryID    string `json:"categoryId"`
	SubcategoryID string `json:"subcategoryId"`
	Upvotes       int    `json:"upvotes"`
	CreatedAt     int64  `json:"createdAt"`
}

func NewIssueDocument(issue *model.Issue) IssueDocument {
	return IssueDocument{
		ID:            issue.ID.String(),
		IssueID:       issue.IssueID,
		Title:         issue.Title,
		Description:   issue.Description,
		Address:       issue.Location.Address,
		Status:        string(issue.Status),
		Priority:      string(issue.Priority),
		CategoryID:    issue.CategoryID.String(),
		SubcategoryID: issue.SubcategoryID.String(),
		Upvotes:       issue.Upvotes,
		CreatedAt:     issue.CreatedAt.Unix(),
	}
}

type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
	log     zerolog.Logger
}

// NewMeili connects and configures the index. An unreachable server is
// not an error: the client reports unhealthy and keeps probing.
func NewMeili(log zerolog.Logger, url, apiKey string) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		done:   make(chan struct{}),
		log:    log.With().Str("component", "search").Logger(),
	}

	if _, err := m.client.Health(); err != nil {
		m.log.Warn().Err(err).Str("url", url).Msg("meilisearch unavailable")
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: IssuesIndex, PrimaryKey: "id"}); err != nil {
		m.log.Debug().Err(err).Msg("create index (may already exist)")
	}

	index := m.client.Index(IssuesIndex)
	filterable := []interface{}{"status", "priority", "categoryId", "subcategoryId"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.log.Warn().Err(err).Msg("update filterable attributes")
	}
	searchable := []string{"title", "description", "address", "issueId"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.log.Warn().Err(err).Msg("update searchable attributes")
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.log.Info().Msg("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Index adds or replaces the issue's document.
func (m *Meili) Index(issue *model.Issue) error {
	if !m.healthy.Load() {
		return ErrUnavailable
	}
	_, err := m.client.Index(IssuesIndex).AddDocuments([]IssueDocument{NewIssueDocument(issue)}, nil)
	return err
}

func (m *Meili) Delete(id uuid.UUID) error {
	if !m.healthy.Load() {
		return ErrUnavailable
	}
	_, err := m.client.Index(IssuesIndex).DeleteDocument(id.String(), nil)
	return err
}

// Search runs the free-text query with the listing filters applied and
// returns issue ids in relevance order.
func (m *Meili) Search(_ context.Context, f model.IssueFilter) ([]uuid.UUID, int, error) {
	if !m.healthy.Load() {
		return nil, 0, ErrUnavailable
	}

	limit := int64(f.Limit)
	if limit <= 0 {
		limit = defaultLimit
	}
	page := int64(f.Page)
	if page < 1 {
		page = 1
	}
	req := &meili.SearchRequest{
		IndexUID: IssuesIndex,
		Query:    f.Query,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
	if filters := Filters(f); len(filters) > 0 {
		req.Filter = filters
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{Queries: []*meili.SearchRequest{req}})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	var ids []uuid.UUID
	total := 0
	for _, r := range resp.Results {
		total += int(r.EstimatedTotalHits)
		for _, hit := range r.Hits {
			if id, ok := hitID(hit); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids, total, nil
}

// Filters renders the listing filter as Meilisearch filter expressions.
func Filters(f model.IssueFilter) []string {
	var out []string
	if f.Status != "" {
		out = append(out, fmt.Sprintf("status = %q", string(f.Status)))
	}
	if f.Priority != "" {
		out = append(out, fmt.Sprintf("priority = %q", string(f.Priority)))
	}
	if f.CategoryID != nil {
		out = append(out, fmt.Sprintf("categoryId = %q", f.CategoryID.String()))
	}
	if f.SubcategoryID != nil {
		out = append(out, fmt.Sprintf("subcategoryId = %q", f.SubcategoryID.String()))
	}
	return out
}

func hitID(hit meili.Hit) (uuid.UUID, bool) {
	raw, ok := hit["id"]
	if !ok {
		return uuid.Nil, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	return id, err == nil
}
