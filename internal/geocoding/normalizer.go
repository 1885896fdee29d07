package geocoding

import (
	"fmt"
	"strings"

	"issue-service/internal/model"
)

const partSeparator = ", "

// FieldSet is one provider's contribution to a resolution.
type FieldSet struct {
	Provider    string
	Address     model.Address
	DisplayName string
}

// Usable reports whether the set carries any address data at all.
// Partial sets count.
func (f FieldSet) Usable() bool {
	return !f.Address.IsZero() || strings.TrimSpace(f.DisplayName) != ""
}

// JoinParts appends each non-empty part unless it equals the part appended
// immediately before it.
func JoinParts(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1] == p {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, partSeparator)
}

// Merge fills each field from the first set that has it.
func Merge(sets ...FieldSet) model.Address {
	var a model.Address
	for _, s := range sets {
		b := s.Address
		first(&a.HouseNumber, b.HouseNumber)
		first(&a.Building, b.Building)
		first(&a.Street, b.Street)
		first(&a.Area, b.Area)
		first(&a.Ward, b.Ward)
		first(&a.Hamlet, b.Hamlet)
		first(&a.Village, b.Village)
		first(&a.Municipality, b.Municipality)
		first(&a.Zone, b.Zone)
		first(&a.City, b.City)
		first(&a.District, b.District)
		first(&a.Mandal, b.Mandal)
		first(&a.County, b.County)
		first(&a.State, b.State)
		first(&a.Postcode, b.Postcode)
		first(&a.Country, b.Country)
	}
	return a
}

func first(dst *string, v string) {
	if *dst == "" {
		*dst = strings.TrimSpace(v)
	}
}

// CoordinateAddress is the guaranteed fallback address.
func CoordinateAddress(lat, lng float64) string {
	return fmt.Sprintf("%.6f, %.6f", lat, lng)
}

// Normalize merges provider sets into a single location. A raw display name
// strictly longer than the assembled line wins, whether one provider or
// several contributed. An empty result falls back to the coordinates.
func Normalize(lat, lng float64, sets ...FieldSet) model.Location {
	loc := model.Location{Lat: lat, Lng: lng}

	var usable []FieldSet
	for _, s := range sets {
		if s.Usable() {
			usable = append(usable, s)
		}
	}

	loc.Components = Merge(usable...)
	loc.Address = JoinParts(loc.Components.Parts())

	var display, source string
	for _, s := range usable {
		if d := strings.TrimSpace(s.DisplayName); len(d) > len(display) {
			display, source = d, s.Provider
		}
	}
	if len(usable) > 0 {
		loc.Source = usable[0].Provider
	}

	if len(display) > len(loc.Address) {
		loc.Address, loc.Source = display, source
	}

	if loc.Address == "" {
		loc.Address = CoordinateAddress(lat, lng)
		loc.Source = SourceCoordinates
	}
	return loc
}
