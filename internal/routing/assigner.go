package routing

import (
	"context"

	"issue-service/internal/model"

	"github.com/google/uuid"
)

// DefaultAssignLimit is how many officials a new issue gets.
const DefaultAssignLimit = 3

type OfficialStore interface {
	ListActiveByCategory(ctx context.Context, categoryID uuid.UUID, limit int) ([]model.Official, error)
}

// Assigner picks the first N active officials serving a category. It does
// not rank by jurisdiction or performance.
type Assigner struct {
	store OfficialStore
	limit int
}

func NewAssigner(store OfficialStore, limit int) *Assigner {
	if limit <= 0 {
		limit = DefaultAssignLimit
	}
	return &Assigner{store: store, limit: limit}
}

func (a *Assigner) Assign(ctx context.Context, categoryID uuid.UUID) ([]uuid.UUID, error) {
	officials, err := a.store.ListActiveByCategory(ctx, categoryID, a.limit)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(officials))
	for _, o := range officials {
		if !o.IsActive || len(ids) == a.limit {
			continue
		}
		ids = append(ids, o.ID)
	}
	return ids, nil
}
