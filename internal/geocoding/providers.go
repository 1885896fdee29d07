package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"issue-service/internal/model"
)

const maxBodyBytes = 1 << 20

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type httpClient struct {
	doer      HTTPDoer
	userAgent string
}

// getJSON treats any transport error, non-2xx status or undecodable body
// as a failure.
func (c httpClient) getJSON(ctx context.Context, endpoint string, query url.Values, dst interface{}) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fmt.Errorf("%s: status %d", u.Host, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(dst); err != nil {
		return fmt.Errorf("%s: decode: %w", u.Host, err)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BigDataCloud is the primary reverse geocoder.
type BigDataCloud struct {
	endpoint string
	client   httpClient
}

func NewBigDataCloud(endpoint, userAgent string, doer HTTPDoer) *BigDataCloud {
	return &BigDataCloud{endpoint: endpoint, client: httpClient{doer: doer, userAgent: userAgent}}
}

func (p *BigDataCloud) Name() string { return "bigdatacloud" }

type bigDataCloudResponse struct {
	Locality             string `json:"locality"`
	City                 string `json:"city"`
	PrincipalSubdivision string `json:"principalSubdivision"`
	Postcode             string `json:"postcode"`
	CountryName          string `json:"countryName"`
	LocalityInfo         struct {
		Administrative []struct {
			Name       string `json:"name"`
			AdminLevel int    `json:"adminLevel"`
		} `json:"administrative"`
	} `json:"localityInfo"`
}

func (p *BigDataCloud) Reverse(ctx context.Context, lat, lng float64) (FieldSet, error) {
	q := url.Values{}
	q.Set("latitude", formatCoord(lat))
	q.Set("longitude", formatCoord(lng))
	q.Set("localityLanguage", "en")

	var body bigDataCloudResponse
	if err := p.client.getJSON(ctx, p.endpoint, q, &body); err != nil {
		return FieldSet{}, err
	}

	set := FieldSet{Provider: p.Name()}
	// Without a locality the response is country-level noise.
	if body.Locality == "" {
		return set, nil
	}

	var district string
	for _, a := range body.LocalityInfo.Administrative {
		if a.AdminLevel == 5 {
			district = a.Name
		}
	}

	set.Address = model.Address{
		Area:     body.Locality,
		City:     body.City,
		District: district,
		State:    body.PrincipalSubdivision,
		Postcode: body.Postcode,
		Country:  body.CountryName,
	}
	return set, nil
}

// Nominatim is the OpenStreetMap reverse geocoder used as fallback.
type Nominatim struct {
	endpoint string
	client   httpClient
}

func NewNominatim(endpoint, userAgent string, doer HTTPDoer) *Nominatim {
	return &Nominatim{endpoint: endpoint, client: httpClient{doer: doer, userAgent: userAgent}}
}

func (p *Nominatim) Name() string { return "nominatim" }

type nominatimAddress struct {
	HouseNumber   string `json:"house_number"`
	Building      string `json:"building"`
	Road          string `json:"road"`
	Suburb        string `json:"suburb"`
	Neighbourhood string `json:"neighbourhood"`
	CityDistrict  string `json:"city_district"`
	Hamlet        string `json:"hamlet"`
	Village       string `json:"village"`
	Municipality  string `json:"municipality"`
	Zone          string `json:"zone"`
	City          string `json:"city"`
	Town          string `json:"town"`
	StateDistrict string `json:"state_district"`
	Mandal        string `json:"mandal"`
	County        string `json:"county"`
	State         string `json:"state"`
	Postcode      string `json:"postcode"`
	Country       string `json:"country"`
}

func (a nominatimAddress) toModel() model.Address {
	area := a.Suburb
	if area == "" {
		area = a.Neighbourhood
	}
	city := a.City
	if city == "" {
		city = a.Town
	}
	return model.Address{
		HouseNumber:  a.HouseNumber,
		Building:     a.Building,
		Street:       a.Road,
		Area:         area,
		Ward:         a.CityDistrict,
		Hamlet:       a.Hamlet,
		Village:      a.Village,
		Municipality: a.Municipality,
		Zone:         a.Zone,
		City:         city,
		District:     a.StateDistrict,
		Mandal:       a.Mandal,
		County:       a.County,
		State:        a.State,
		Postcode:     a.Postcode,
		Country:      a.Country,
	}
}

type nominatimPlace struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Address     *nominatimAddress `json:"address"`
}

func (p *Nominatim) Reverse(ctx context.Context, lat, lng float64) (FieldSet, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", formatCoord(lat))
	q.Set("lon", formatCoord(lng))
	q.Set("addressdetails", "1")
	q.Set("accept-language", "en")

	var body nominatimPlace
	if err := p.client.getJSON(ctx, p.endpoint, q, &body); err != nil {
		return FieldSet{}, err
	}

	set := FieldSet{Provider: p.Name()}
	if body.Address == nil {
		return set, nil
	}
	set.Address = body.Address.toModel()
	set.DisplayName = body.DisplayName
	return set, nil
}
