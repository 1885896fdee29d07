package geocoding

import (
	"testing"

	"issue-service/internal/model"
)

func TestJoinParts(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"collapses consecutive duplicate", []string{"Delhi", "Delhi", "Telangana"}, "Delhi, Telangana"},
		{"keeps non-consecutive repeat", []string{"Delhi", "Telangana", "Delhi"}, "Delhi, Telangana, Delhi"},
		{"skips empty and blank", []string{"", "Madhapur", "  ", "Hyderabad"}, "Madhapur, Hyderabad"},
		{"duplicate across a gap collapses", []string{"Hyderabad", "", "Hyderabad"}, "Hyderabad"},
		{"case sensitive", []string{"hyderabad", "Hyderabad"}, "hyderabad, Hyderabad"},
		{"nothing", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinParts(tt.parts); got != tt.want {
				t.Errorf("JoinParts(%q) = %q, want %q", tt.parts, got, tt.want)
			}
		})
	}
}

func TestNormalizeHierarchicalOrder(t *testing.T) {
	set := FieldSet{
		Provider: "nominatim",
		Address: model.Address{
			Country:     "India",
			Postcode:    "500081",
			State:       "Telangana",
			District:    "Hyderabad",
			City:        "Hyderabad",
			Area:        "Madhapur",
			Street:      "Hitech City Road",
			HouseNumber: "12",
		},
	}

	loc := Normalize(17.45, 78.38, set)
	want := "12, Hitech City Road, Madhapur, Hyderabad, Telangana, 500081, India"
	if loc.Address != want {
		t.Errorf("address = %q, want %q", loc.Address, want)
	}
	if loc.Source != "nominatim" {
		t.Errorf("source = %q, want nominatim", loc.Source)
	}
}

func TestNormalizePrefersLongerDisplayNameWithMultipleProviders(t *testing.T) {
	a := FieldSet{Provider: "bigdatacloud", Address: model.Address{City: "Hyderabad", State: "Telangana"}}
	b := FieldSet{
		Provider:    "nominatim",
		Address:     model.Address{City: "Hyderabad"},
		DisplayName: "Gachibowli, Serilingampally, Hyderabad, Telangana, 500032, India",
	}

	loc := Normalize(17.44, 78.34, a, b)
	if loc.Address != b.DisplayName {
		t.Errorf("address = %q, want display name", loc.Address)
	}
	if loc.Source != "nominatim" {
		t.Errorf("source = %q, want nominatim", loc.Source)
	}
}

func TestNormalizeSingleProviderPrefersLongerDisplayName(t *testing.T) {
	set := FieldSet{
		Provider:    "nominatim",
		Address:     model.Address{City: "Hyderabad", State: "Telangana"},
		DisplayName: "Hyderabad, Hyderabad District, Telangana, India",
	}

	loc := Normalize(17.38, 78.48, set)
	if loc.Address != set.DisplayName {
		t.Errorf("address = %q, want display name", loc.Address)
	}
}

func TestNormalizeKeepsAssembledLineWhenDisplayNameIsShorter(t *testing.T) {
	set := FieldSet{
		Provider:    "nominatim",
		Address:     model.Address{Street: "Road No. 36", Area: "Jubilee Hills", City: "Hyderabad", State: "Telangana"},
		DisplayName: "Jubilee Hills, Hyderabad",
	}

	loc := Normalize(17.43, 78.40, set)
	if loc.Address != "Road No. 36, Jubilee Hills, Hyderabad, Telangana" {
		t.Errorf("address = %q, want assembled line", loc.Address)
	}
}

func TestNormalizeUsesDisplayNameWhenNoFields(t *testing.T) {
	set := FieldSet{Provider: "nominatim", DisplayName: "Somewhere, India"}
	loc := Normalize(1, 2, set)
	if loc.Address != "Somewhere, India" {
		t.Errorf("address = %q", loc.Address)
	}
}

func TestNormalizeFallsBackToCoordinates(t *testing.T) {
	loc := Normalize(17.5004, 78.3356, FieldSet{Provider: "empty"})
	if loc.Address != "17.500400, 78.335600" {
		t.Errorf("address = %q, want coordinate string", loc.Address)
	}
	if loc.Source != SourceCoordinates {
		t.Errorf("source = %q, want %q", loc.Source, SourceCoordinates)
	}
}

func TestMergeFirstProviderWins(t *testing.T) {
	got := Merge(
		FieldSet{Address: model.Address{City: "Hyderabad"}},
		FieldSet{Address: model.Address{City: "Secunderabad", Postcode: "500003"}},
	)
	if got.City != "Hyderabad" || got.Postcode != "500003" {
		t.Errorf("merge = %+v", got)
	}
}
