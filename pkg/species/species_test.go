package species

import (
	"errors"
	"testing"
)

func TestDefaultMolarMasses(t *testing.T) {
	cases := []struct {
		id   string
		want float64
	}{
		{"cc", 100.089},
		{"dlm", 184.403},
		{"gbas", 120.496},
		{"amnt", 80.043},
		{"fo", 140.694},
		{"g2", 30},
	}
	for _, tc := range cases {
		got, err := Default.MolarMass(tc.id)
		if err != nil {
			t.Fatalf("MolarMass(%s): %v", tc.id, err)
		}
		if got != tc.want {
			t.Fatalf("MolarMass(%s) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestUnknownSpecies(t *testing.T) {
	_, err := Default.MolarMass("unobtainium")
	var unknown *UnknownSpeciesError
	if !errors.As(err, &unknown) {
		t.Fatalf("want UnknownSpeciesError, got %v", err)
	}
	if unknown.Species != "unobtainium" {
		t.Fatalf("Species = %q", unknown.Species)
	}
	if Default.Has("unobtainium") {
		t.Fatalf("Has should be false")
	}
}

func TestNewRegistryCopiesInput(t *testing.T) {
	src := map[string]float64{"cc": 100.089}
	reg := NewRegistry(src)
	src["cc"] = 1
	got, err := reg.MolarMass("cc")
	if err != nil {
		t.Fatalf("MolarMass: %v", err)
	}
	if got != 100.089 {
		t.Fatalf("registry shares caller map: got %v", got)
	}
}
