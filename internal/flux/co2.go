package flux

import (
	"cdrflux/pkg/table"
	"cdrflux/pkg/units"
)

// CO2Options parameterizes the CO2 gas-flux metric.
type CO2Options struct {
	Stem     string // flux file stem, default flx_gas
	Variable string // metric variable, default pco2
	// OrganicSources are the organic-carbon (respiration) source columns.
	OrganicSources []string
	// CarbonateSources are the carbonate-mineral source columns.
	CarbonateSources []string
	// CO2GramsPerMol converts the mol CO2 fluxes to mass. The input files
	// are already in mol CO2, so this is the CO2 molar mass rather than a
	// species lookup.
	CO2GramsPerMol float64
}

// DefaultCO2Options returns the standard flx_gas/pco2 configuration.
func DefaultCO2Options() CO2Options {
	return CO2Options{
		Stem:             "flx_gas",
		Variable:         "pco2",
		OrganicSources:   []string{"g1", "g2", "g3"},
		CarbonateSources: []string{"arg", "cc", "dlm"},
		CO2GramsPerMol:   units.CO2MolarMass,
	}
}

// CO2 assembles the CO2 diffusive/advective/storage flux record for a run.
//
// The flux balance is adv = -dif - [sources] - tflx with positive values
// indicating net advection out. With respiration and carbonate dissolution as
// the only sources, adv = -dif - resp - inorg - tflx, so the advective flux
// with the carbonate contribution undone is adv_noinorg = adv + inorg.
//
// The flx_co2sp/DIC pair would work here too, but it omits aqueous
// complexation between CO2 species and some cations, so flx_gas/pco2 is the
// default.
func CO2(runDir, runName string, cfg Config, opt CO2Options) (*table.Table, error) {
	p, err := loadPair(runDir, opt.Stem, opt.Variable)
	if err != nil {
		return nil, err
	}
	inst, err := buildCO2(p.inst, opt)
	if err != nil {
		return nil, err
	}
	integ, err := buildCO2(p.integ, opt)
	if err != nil {
		return nil, err
	}

	factor := units.MassFactor(opt.CO2GramsPerMol, cfg.ToTonHa)
	inst.ScaleExcept(factor, tagColumns...)
	integ.ScaleExcept(factor, tagColumns...)

	return finishPair(inst, integ,
		units.RateLabel(cfg.ToTonHa), units.IntegralLabel(cfg.ToTonHa),
		runName, opt.Variable)
}

// buildCO2 derives the co2flx_* columns from one raw table (instantaneous or
// integrated; both get the same treatment).
func buildCO2(raw *table.Table, opt CO2Options) (*table.Table, error) {
	t, err := raw.Select("time", "dif", "tflx", "adv")
	if err != nil {
		return nil, err
	}
	renames := [][2]string{{"dif", "co2flx_dif"}, {"tflx", "co2flx_tflx"}, {"adv", "co2flx_adv"}}
	for _, r := range renames {
		if err := t.Rename(r[0], r[1]); err != nil {
			return nil, err
		}
	}

	// Sum whichever organic sources this run tracks into the respiration
	// component; absent columns are simply skipped.
	if org := raw.Present(opt.OrganicSources); len(org) > 0 {
		for _, sp := range org {
			vals, err := raw.Floats(sp)
			if err != nil {
				return nil, err
			}
			if err := t.AddNumeric(sp, append([]float64(nil), vals...)); err != nil {
				return nil, err
			}
		}
		if err := t.SumInto("co2flx_resp", org); err != nil {
			return nil, err
		}
	}

	// Same for the carbonate-mineral sources, which additionally yield the
	// advective flux with the inorganic contribution undone.
	if inorg := raw.Present(opt.CarbonateSources); len(inorg) > 0 {
		for _, sp := range inorg {
			vals, err := raw.Floats(sp)
			if err != nil {
				return nil, err
			}
			if err := t.AddNumeric(sp, append([]float64(nil), vals...)); err != nil {
				return nil, err
			}
		}
		if err := t.SumInto("co2flx_inorg", inorg); err != nil {
			return nil, err
		}
		if err := t.SumInto("co2flx_adv_noinorg", []string{"co2flx_adv", "co2flx_inorg"}); err != nil {
			return nil, err
		}
	}
	return t, nil
}
