package routing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"issue-service/internal/model"
	"issue-service/internal/repository"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	findOrCreateAttempts = 3
	findOrCreateDelay    = 20 * time.Millisecond
)

// AuthorityStore persists authorities. Create must fail with
// repository.ErrDuplicate when the level is taken; Link must be idempotent.
type AuthorityStore interface {
	FindByLevel(ctx context.Context, level string) (*model.Authority, error)
	Create(ctx context.Context, a *model.Authority) error
	Link(ctx context.Context, authorityID, categoryID, subcategoryID uuid.UUID) error
}

// Route is the routing outcome for one subcategory.
type Route struct {
	CategoryID     uuid.UUID
	SubcategoryID  uuid.UUID
	AuthorityTypes []string
	Authorities    []model.Authority
}

// Primary is the first routed authority, if any.
func (r *Route) Primary() *uuid.UUID {
	if len(r.Authorities) == 0 {
		return nil
	}
	id := r.Authorities[0].ID
	return &id
}

type Router struct {
	graphs GraphSource
	store  AuthorityStore
	log    zerolog.Logger
}

func NewRouter(log zerolog.Logger, graphs GraphSource, store AuthorityStore) *Router {
	return &Router{
		graphs: graphs,
		store:  store,
		log:    log.With().Str("component", "authority_router").Logger(),
	}
}

// RouteFor resolves every authority type of the subcategory to an Authority
// row, creating missing ones, and links each to the subcategory and its
// category. Routing the same subcategory again returns the same rows.
func (r *Router) RouteFor(ctx context.Context, subcategoryID uuid.UUID) (*Route, error) {
	graph, err := r.graphs.LoadGraph(ctx)
	if err != nil {
		return nil, fmt.Errorf("load routing table: %w", err)
	}
	sub, ok := graph.Subcategory(subcategoryID)
	if !ok {
		return nil, ErrUnknownSubcategory
	}

	route := &Route{
		CategoryID:     sub.CategoryID,
		SubcategoryID:  sub.ID,
		AuthorityTypes: NormalizeAuthorityTypes(sub.AuthorityTypes),
	}
	for _, level := range route.AuthorityTypes {
		a, err := r.findOrCreate(ctx, level)
		if err != nil {
			return nil, fmt.Errorf("authority %q: %w", level, err)
		}
		if err := r.store.Link(ctx, a.ID, sub.CategoryID, sub.ID); err != nil {
			return nil, fmt.Errorf("link authority %q: %w", level, err)
		}
		route.Authorities = append(route.Authorities, *a)
	}
	return route, nil
}

// findOrCreate looks the level up first and only inserts on a miss. If a
// concurrent insert wins the unique constraint, the lookup is retried.
func (r *Router) findOrCreate(ctx context.Context, level string) (*model.Authority, error) {
	var found *model.Authority
	err := retry.Do(
		func() error {
			a, err := r.store.FindByLevel(ctx, level)
			if err == nil {
				found = a
				return nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}

			now := time.Now()
			a = &model.Authority{
				ID:          uuid.New(),
				Level:       level,
				Description: level,
				IsActive:    true,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := r.store.Create(ctx, a); err != nil {
				return err
			}
			r.log.Info().Str("level", level).Str("authority_id", a.ID.String()).Msg("authority created")
			found = a
			return nil
		},
		retry.Attempts(findOrCreateAttempts),
		retry.Delay(findOrCreateDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, repository.ErrDuplicate) && ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			r.log.Debug().Str("level", level).Uint("attempt", n+1).Err(err).Msg("authority create raced, retrying lookup")
		}),
	)
	if err != nil {
		return nil, err
	}
	return found, nil
}
