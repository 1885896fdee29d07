package service

import (
	"context"
	"strings"

	"issue-service/internal/geocoding"
	"issue-service/internal/model"
)

type LocationResolver interface {
	Resolve(ctx context.Context, lat, lng float64) model.Location
}

type PlaceSearcher interface {
	Search(ctx context.Context, query string) *model.Location
}

type ConstituencyFinder interface {
	Find(ctx context.Context, lat, lng float64) geocoding.Constituencies
}

type CoordinatesRequest struct {
	Lat *float64 `json:"lat" form:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" form:"lng" validate:"required,longitude"`
}

type SearchRequest struct {
	Query string `form:"q" json:"q" validate:"required,min=3,max=200"`
}

// LocationService fronts the geocoding pipeline. Provider trouble never
// surfaces as an error; only bad input does.
type LocationService struct {
	resolver       LocationResolver
	forward        PlaceSearcher
	constituencies ConstituencyFinder
}

func NewLocationService(resolver LocationResolver, forward PlaceSearcher, constituencies ConstituencyFinder) *LocationService {
	return &LocationService{resolver: resolver, forward: forward, constituencies: constituencies}
}

func (s *LocationService) Resolve(ctx context.Context, req *CoordinatesRequest) (*model.Location, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	loc := s.resolver.Resolve(ctx, *req.Lat, *req.Lng)
	return &loc, nil
}

// Search resolves a free-text place or pincode; nil means nothing usable.
func (s *LocationService) Search(ctx context.Context, req *SearchRequest) (*model.Location, error) {
	req.Query = strings.TrimSpace(req.Query)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	return s.forward.Search(ctx, req.Query), nil
}

func (s *LocationService) Constituencies(ctx context.Context, req *CoordinatesRequest) (*geocoding.Constituencies, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	c := s.constituencies.Find(ctx, *req.Lat, *req.Lng)
	return &c, nil
}
