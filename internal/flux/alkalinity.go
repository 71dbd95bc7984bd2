package flux

import (
	"cdrflux/pkg/table"
	"cdrflux/pkg/units"
)

// AlkalinityOptions parameterizes the carbonate-alkalinity flux metric.
// Carbonate alkalinity is ALK = [HCO3-] + 2[CO3--].
type AlkalinityOptions struct {
	Stem     string // default flx_co2sp
	Variable string // default ALK
	// CO2PotentialSilicate is grams of CO2 per mole of alkalinity assuming
	// a silicate feedstock (2 mol DIC from CO2 per mol alkalinity).
	CO2PotentialSilicate float64
	// CO2PotentialCarbonate is grams of CO2 per mole of alkalinity assuming
	// a carbonate feedstock (1:1).
	CO2PotentialCarbonate float64
}

// DefaultAlkalinityOptions returns the standard flx_co2sp/ALK configuration.
func DefaultAlkalinityOptions() AlkalinityOptions {
	return AlkalinityOptions{
		Stem:                  "flx_co2sp",
		Variable:              "ALK",
		CO2PotentialSilicate:  units.CO2PotentialSilicate,
		CO2PotentialCarbonate: units.CO2PotentialCarbonate,
	}
}

// Alkalinity assembles the carbonate-alkalinity advective and storage flux
// record. Diffusive flux is negligibly small and source/sink contributions
// are not present in the input files, so total = advective + storage by
// construction.
func Alkalinity(runDir, runName string, cfg Config, opt AlkalinityOptions) (*table.Table, error) {
	p, err := loadPair(runDir, opt.Stem, opt.Variable)
	if err != nil {
		return nil, err
	}
	inst, err := buildAlkalinity(p.inst, cfg, opt, false)
	if err != nil {
		return nil, err
	}
	integ, err := buildAlkalinity(p.integ, cfg, opt, true)
	if err != nil {
		return nil, err
	}
	// Alkalinity fluxes themselves stay molar; only the co2pot_* columns
	// carry the mass conversion.
	return finishPair(inst, integ, "mol m-2 yr", "mol m-2", runName, opt.Variable)
}

func buildAlkalinity(raw *table.Table, cfg Config, opt AlkalinityOptions, integrated bool) (*table.Table, error) {
	t, err := raw.Select("time", "tflx", "adv")
	if err != nil {
		return nil, err
	}
	if err := t.Rename("tflx", "calkflx_tflx"); err != nil {
		return nil, err
	}
	if err := t.Rename("adv", "calkflx_adv"); err != nil {
		return nil, err
	}
	if err := t.SumInto("calkflx_tot", []string{"calkflx_adv", "calkflx_tflx"}); err != nil {
		return nil, err
	}

	adv, err := t.Floats("calkflx_adv")
	if err != nil {
		return nil, err
	}
	tot, err := t.Floats("calkflx_tot")
	if err != nil {
		return nil, err
	}
	factor := 1.0
	if cfg.ToTonHa {
		factor = units.TonHaPerGM2
	}
	addPot := func(name string, src []float64, gPerMol float64) error {
		vals := make([]float64, len(src))
		for i, v := range src {
			vals[i] = v * gPerMol * factor
		}
		return t.AddNumeric(name, vals)
	}
	suffix := potSuffix(cfg.ToTonHa, integrated)
	if err := addPot("co2pot_adv_"+suffix+"_sil", adv, opt.CO2PotentialSilicate); err != nil {
		return nil, err
	}
	if err := addPot("co2pot_adv_"+suffix+"_cc", adv, opt.CO2PotentialCarbonate); err != nil {
		return nil, err
	}
	if err := addPot("co2pot_tot_"+suffix+"_sil", tot, opt.CO2PotentialSilicate); err != nil {
		return nil, err
	}
	if err := addPot("co2pot_tot_"+suffix+"_cc", tot, opt.CO2PotentialCarbonate); err != nil {
		return nil, err
	}
	return t, nil
}

// potSuffix names CO2-potential columns after their physical unit: rate
// columns carry the Yr suffix, integrated columns drop it.
func potSuffix(toTonHa, integrated bool) string {
	switch {
	case toTonHa && integrated:
		return "tonHa"
	case toTonHa:
		return "tonHaYr"
	case integrated:
		return "gm2"
	default:
		return "gm2Yr"
	}
}
