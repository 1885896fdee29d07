package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Address is the structured field set a geocoding provider may fill.
// Fields are declared in hierarchical order, most specific first.
type Address struct {
	HouseNumber  string `json:"houseNumber,omitempty"`
	Building     string `json:"building,omitempty"`
	Street       string `json:"street,omitempty"`
	Area         string `json:"area,omitempty"`
	Ward         string `json:"ward,omitempty"`
	Hamlet       string `json:"hamlet,omitempty"`
	Village      string `json:"village,omitempty"`
	Municipality string `json:"municipality,omitempty"`
	Zone         string `json:"zone,omitempty"`
	City         string `json:"city,omitempty"`
	District     string `json:"district,omitempty"`
	Mandal       string `json:"mandal,omitempty"`
	County       string `json:"county,omitempty"`
	State        string `json:"state,omitempty"`
	Postcode     string `json:"postcode,omitempty"`
	Country      string `json:"country,omitempty"`
}

// Parts returns the address fields in hierarchical order.
func (a Address) Parts() []string {
	return []string{
		a.HouseNumber, a.Building,
		a.Street,
		a.Area, a.Ward, a.Hamlet, a.Village,
		a.Municipality, a.Zone,
		a.City,
		a.District, a.Mandal, a.County,
		a.State,
		a.Postcode,
		a.Country,
	}
}

func (a Address) IsZero() bool {
	for _, p := range a.Parts() {
		if p != "" {
			return false
		}
	}
	return true
}

// Location is stored as JSONB on issues.
type Location struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Address    string  `json:"address"`
	Components Address `json:"components"`
	Source     string  `json:"source,omitempty"`
}

func (l Location) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *Location) Scan(src interface{}) error {
	return scanJSON(src, l)
}

type Representative struct {
	Name         string `json:"name,omitempty"`
	Party        string `json:"party,omitempty"`
	Constituency string `json:"constituency,omitempty"`
}

// Representatives holds the optional MLA/MP details captured at submission.
type Representatives struct {
	MLA *Representative `json:"mla,omitempty"`
	MP  *Representative `json:"mp,omitempty"`
}

func (r Representatives) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *Representatives) Scan(src interface{}) error {
	return scanJSON(src, r)
}

// AuthorityContacts maps an authority type to the name the reporter typed for it.
type AuthorityContacts map[string]string

func (c AuthorityContacts) Value() (driver.Value, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]string(c))
}

func (c *AuthorityContacts) Scan(src interface{}) error {
	return scanJSON(src, (*map[string]string)(c))
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported JSONB source %T", src)
	}
}
