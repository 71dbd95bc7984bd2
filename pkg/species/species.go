// Package species provides the immutable molar-mass registry used to convert
// molar fluxes into mass fluxes. Values follow Kanzaki et al. (2022), table 1,
// with amnt from Kanzaki et al. (2023), table 3.
package species

import "fmt"

// UnknownSpeciesError reports a molar-mass lookup for a species the registry
// does not know. It is fatal to the metric performing the lookup.
type UnknownSpeciesError struct {
	Species string
}

func (e *UnknownSpeciesError) Error() string {
	return fmt.Sprintf("species: unknown species %q", e.Species)
}

// Registry maps species identifiers to molar masses in g/mol. It is immutable
// after construction; tests substitute fixture registries instead of mutating
// a process-wide table.
type Registry struct {
	masses map[string]float64
}

// NewRegistry builds a registry from id -> molar mass [g/mol]. The map is
// copied.
func NewRegistry(masses map[string]float64) Registry {
	m := make(map[string]float64, len(masses))
	for k, v := range masses {
		m[k] = v
	}
	return Registry{masses: m}
}

// MolarMass returns the molar mass of id in g/mol.
func (r Registry) MolarMass(id string) (float64, error) {
	v, ok := r.masses[id]
	if !ok {
		return 0, &UnknownSpeciesError{Species: id}
	}
	return v, nil
}

// Has reports whether id is registered.
func (r Registry) Has(id string) bool {
	_, ok := r.masses[id]
	return ok
}

// Default is the standard solid-species registry.
//
// gbas is not in Kanzaki et al. (2022) table 1; its molar mass is computed
// from the oxide fractions in basalt_defines.h (the mod_basalt_cmp build):
// si 60.085 + al 23.875 + na 2.5066 + k 0.3971 + ca 13.675 + mg 10.969
// + fe2 8.9886 = 120.496.
var Default = NewRegistry(map[string]float64{
	"amsi": 60.085,
	"qtz":  60.085,
	"gb":   78.004,
	"gt":   88.854,
	"hm":   159.692,
	"gps":  172.168,
	"arg":  100.089,
	"cc":   100.089,
	"dlm":  184.403,
	"ab":   262.225,
	"kfs":  278.33,
	"an":   278.311,
	"fo":   140.694,
	"fa":   203.778,
	"en":   100.389,
	"fer":  131.931,
	"dp":   216.553,
	"hb":   248.09,
	"tm":   812.374,
	"antp": 780.976,
	"mscv": 398.311,
	"plgp": 417.262,
	"ct":   277.113,
	"ka":   258.162,
	"anl":  220.155,
	"nph":  142.055,
	"nabd": 367.609,
	"kbd":  372.978,
	"cabd": 366.625,
	"mgbd": 363.996,
	"ill":  383.90,
	"g1":   30,
	"g2":   30,
	"g3":   30,
	"amnt": 80.043,
	"gbas": 120.496,
})
