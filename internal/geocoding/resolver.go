package geocoding

import (
	"context"
	"time"

	"issue-service/internal/model"

	"github.com/rs/zerolog"
)

const (
	SourceCoordinates = "coordinates"

	defaultTimeout         = 5 * time.Second
	defaultProviderTimeout = 3 * time.Second
)

// Provider is a reverse geocoder. Implementations must be side-effect free;
// any error is treated as a failed attempt.
type Provider interface {
	Name() string
	Reverse(ctx context.Context, lat, lng float64) (FieldSet, error)
}

type Options struct {
	// Timeout bounds the whole provider chain.
	Timeout time.Duration
	// ProviderTimeout bounds a single provider attempt.
	ProviderTimeout time.Duration
}

// Resolver walks providers in priority order and races the chain against
// a wall-clock budget. Resolve never fails.
type Resolver struct {
	providers []Provider
	opts      Options
	log       zerolog.Logger
}

func NewResolver(log zerolog.Logger, opts Options, providers ...Provider) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = defaultProviderTimeout
	}
	return &Resolver{
		providers: providers,
		opts:      opts,
		log:       log.With().Str("component", "location_resolver").Logger(),
	}
}

func (r *Resolver) Resolve(ctx context.Context, lat, lng float64) model.Location {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	// Buffered so a chain finishing after the deadline never blocks.
	done := make(chan []FieldSet, 1)
	go func() {
		done <- r.chain(ctx, lat, lng)
	}()

	select {
	case sets := <-done:
		return Normalize(lat, lng, sets...)
	case <-ctx.Done():
		r.log.Warn().
			Float64("lat", lat).
			Float64("lng", lng).
			Dur("timeout", r.opts.Timeout).
			Msg("location resolution timed out, using coordinates")
		return Normalize(lat, lng)
	}
}

// chain stops at the first provider that yields usable data.
func (r *Resolver) chain(ctx context.Context, lat, lng float64) []FieldSet {
	for _, p := range r.providers {
		if ctx.Err() != nil {
			return nil
		}

		set, err := r.attempt(ctx, p, lat, lng)
		if err != nil {
			r.log.Debug().Err(err).Str("provider", p.Name()).Msg("provider failed")
			continue
		}
		if !set.Usable() {
			r.log.Debug().Str("provider", p.Name()).Msg("provider returned no address")
			continue
		}
		if set.Provider == "" {
			set.Provider = p.Name()
		}
		return []FieldSet{set}
	}
	return nil
}

func (r *Resolver) attempt(ctx context.Context, p Provider, lat, lng float64) (FieldSet, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.ProviderTimeout)
	defer cancel()
	return p.Reverse(ctx, lat, lng)
}
