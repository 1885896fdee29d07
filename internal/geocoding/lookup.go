package geocoding

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"issue-service/internal/model"

	"github.com/rs/zerolog"
)

// Forward resolves a free-text query (street, locality or pincode) to a
// location using the first search hit.
type Forward struct {
	endpoint string
	client   httpClient
	timeout  time.Duration
	log      zerolog.Logger
}

func NewForward(log zerolog.Logger, endpoint, userAgent string, timeout time.Duration, doer HTTPDoer) *Forward {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Forward{
		endpoint: endpoint,
		client:   httpClient{doer: doer, userAgent: userAgent},
		timeout:  timeout,
		log:      log.With().Str("component", "forward_geocoder").Logger(),
	}
}

// Search returns nil when the provider fails or has no usable hit.
func (f *Forward) Search(ctx context.Context, query string) *model.Location {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", query)
	q.Set("limit", "1")
	q.Set("addressdetails", "1")
	q.Set("accept-language", "en")

	var hits []nominatimPlace
	if err := f.client.getJSON(ctx, f.endpoint, q, &hits); err != nil {
		f.log.Debug().Err(err).Str("query", query).Msg("forward search failed")
		return nil
	}
	if len(hits) == 0 {
		return nil
	}

	hit := hits[0]
	lat, errLat := strconv.ParseFloat(hit.Lat, 64)
	lng, errLng := strconv.ParseFloat(hit.Lon, 64)
	if errLat != nil || errLng != nil {
		f.log.Debug().Str("lat", hit.Lat).Str("lon", hit.Lon).Msg("forward search returned bad coordinates")
		return nil
	}

	set := FieldSet{Provider: "nominatim_search", DisplayName: hit.DisplayName}
	if hit.Address != nil {
		set.Address = hit.Address.toModel()
	}
	loc := Normalize(lat, lng, set)
	if hit.DisplayName != "" {
		loc.Address = hit.DisplayName
	}
	return &loc
}

type Constituency struct {
	Name           string `json:"name"`
	State          string `json:"state,omitempty"`
	Representative string `json:"representative,omitempty"`
	Party          string `json:"party,omitempty"`
}

type Constituencies struct {
	Assembly   []Constituency `json:"assembly_constituencies"`
	Parliament []Constituency `json:"parliament_constituencies"`
}

// ConstituencyLookup pre-populates representative fields. Failures yield
// empty lists and never block issue submission.
type ConstituencyLookup struct {
	endpoint string
	client   httpClient
	timeout  time.Duration
	log      zerolog.Logger
}

func NewConstituencyLookup(log zerolog.Logger, endpoint, userAgent string, timeout time.Duration, doer HTTPDoer) *ConstituencyLookup {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ConstituencyLookup{
		endpoint: endpoint,
		client:   httpClient{doer: doer, userAgent: userAgent},
		timeout:  timeout,
		log:      log.With().Str("component", "constituency_lookup").Logger(),
	}
}

func (c *ConstituencyLookup) Find(ctx context.Context, lat, lng float64) Constituencies {
	empty := Constituencies{Assembly: []Constituency{}, Parliament: []Constituency{}}
	if c.endpoint == "" {
		return empty
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("lat", formatCoord(lat))
	q.Set("lng", formatCoord(lng))

	var body Constituencies
	if err := c.client.getJSON(ctx, c.endpoint, q, &body); err != nil {
		c.log.Debug().Err(err).Msg("constituency lookup failed")
		return empty
	}
	if body.Assembly == nil {
		body.Assembly = []Constituency{}
	}
	if body.Parliament == nil {
		body.Parliament = []Constituency{}
	}
	return body
}

// Representatives picks the first assembly and parliament constituency.
func (c Constituencies) Representatives() model.Representatives {
	var r model.Representatives
	if len(c.Assembly) > 0 {
		a := c.Assembly[0]
		r.MLA = &model.Representative{Name: a.Representative, Party: a.Party, Constituency: a.Name}
	}
	if len(c.Parliament) > 0 {
		p := c.Parliament[0]
		r.MP = &model.Representative{Name: p.Representative, Party: p.Party, Constituency: p.Name}
	}
	return r
}
