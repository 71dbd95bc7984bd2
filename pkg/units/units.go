// Package units converts molar area-normalized fluxes between unit systems:
// mol m-2 yr-1 to g m-2 yr-1 (times molar mass) or to ton ha-1 yr-1 (times
// molar mass times TonHaPerGM2), plus the matching time-integrated labels.
package units

const (
	// TonPerGram converts grams to metric tons.
	TonPerGram = 1 / 1e6
	// M2PerHectare converts per-m2 quantities to per-hectare.
	M2PerHectare = 10e3
	// TonHaPerGM2 converts g m-2 (yr-1) to ton ha-1 (yr-1). Downstream
	// comparisons depend on this exact constant.
	TonHaPerGM2 = TonPerGram * M2PerHectare

	// CO2MolarMass is the molar mass of CO2 [g/mol].
	CO2MolarMass = 44.01
	// CO2PotentialSilicate is the potential grams of CO2 per mole of
	// alkalinity for a silicate feedstock (2 mol DIC per mol alkalinity).
	CO2PotentialSilicate = 88.02
	// CO2PotentialCarbonate is the potential grams of CO2 per mole of
	// alkalinity for a carbonate feedstock (1:1).
	CO2PotentialCarbonate = 44.01
)

// MassFactor returns the multiplier taking a mol m-2 yr-1 flux of a species
// with the given molar mass to g m-2 yr-1 (toTonHa false) or ton ha-1 yr-1
// (toTonHa true).
func MassFactor(molarMass float64, toTonHa bool) float64 {
	if toTonHa {
		return molarMass * TonHaPerGM2
	}
	return molarMass
}

// InvMassFactor returns the inverse of MassFactor, taking a mass flux back to
// mol m-2 yr-1.
func InvMassFactor(molarMass float64, toTonHa bool) float64 {
	return 1 / MassFactor(molarMass, toTonHa)
}

// RateLabel is the units tag for instantaneous (rate) columns.
func RateLabel(toTonHa bool) string {
	if toTonHa {
		return "ton ha-1 yr-1"
	}
	return "g m-2 yr-1"
}

// IntegralLabel is the units tag for time-integrated columns.
func IntegralLabel(toTonHa bool) string {
	if toTonHa {
		return "ton ha-1"
	}
	return "g m-2"
}
