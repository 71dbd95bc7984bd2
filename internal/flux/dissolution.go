package flux

import (
	"cdrflux/internal/integrate"
	"cdrflux/pkg/table"
	"cdrflux/pkg/units"
)

// DissolutionOptions parameterizes the feedstock dissolution metric.
type DissolutionOptions struct {
	Stem string // default flx_sld
	// DustFromFile recomputes the cumulative applied-dust mass from the raw
	// dust.txt series instead of trusting the upstream int_ file. Required
	// for re-application runs: their int_ files are stitched from multiple
	// sub-runs and reflect per-sub-run integrals only, not the whole-run
	// time integral. This is the default, safe path; the rain-column
	// alternative is retained for single-sub-run runs.
	DustFromFile bool
	// DustFile is the raw dust application series, default dust.txt.
	DustFile string
}

// DefaultDissolutionOptions returns the standard flx_sld configuration with
// dust recomputation enabled.
func DefaultDissolutionOptions() DissolutionOptions {
	return DissolutionOptions{Stem: "flx_sld", DustFromFile: true, DustFile: "dust.txt"}
}

// Dissolution assembles the feedstock dissolution record: cumulative applied
// dust, advected-out mass, total dissolution, and the four dimensionless
// fractions. Only time-integrated quantities are reported, in ton/ha.
//
// A zero cumulative-dust value makes the fractions non-finite; that
// propagates into the output rather than raising.
func Dissolution(runDir, runName, feedstock string, cfg Config, opt DissolutionOptions) (*table.Table, error) {
	p, err := loadPair(runDir, opt.Stem, feedstock)
	if err != nil {
		return nil, err
	}
	integ := p.integ
	// Recover true cumulative quantities from the average-rate int_ file.
	if err := integ.MulByColumnExcept("time"); err != nil {
		return nil, err
	}

	molarMass, err := cfg.Species.MolarMass(feedstock)
	if err != nil {
		return nil, err
	}
	massFactor := molarMass * units.TonHaPerGM2

	var intDust []float64
	if opt.DustFromFile {
		intDust, err = dustIntegral(runDir, feedstock, opt, integ)
		if err != nil {
			return nil, err
		}
	} else {
		// rain is negative into the soil column and already multiplied by
		// time above, so the cumulative applied mass is -rain in mass units.
		rain, err := integ.Floats("rain")
		if err != nil {
			return nil, err
		}
		intDust = make([]float64, len(rain))
		for i, v := range rain {
			intDust[i] = -v * massFactor
		}
	}
	if err := integ.AddNumeric("int_dust_ton_ha_yr", intDust); err != nil {
		return nil, err
	}

	for _, name := range []string{"adv", feedstock} {
		vals, err := integ.Floats(name)
		if err != nil {
			return nil, err
		}
		for i := range vals {
			vals[i] *= massFactor
		}
	}

	t, err := integ.Select("time", "int_dust_ton_ha_yr", "adv", feedstock)
	if err != nil {
		return nil, err
	}
	dust, _ := t.Floats("int_dust_ton_ha_yr")
	adv, _ := t.Floats("adv")
	dissolved, _ := t.Floats(feedstock)

	n := t.Len()
	remaining := make([]float64, n)   // dust left after solid advection
	fracAdv := make([]float64, n)     // advected / applied
	fracRemain := make([]float64, n)  // remaining undissolved / applied
	fracRemDiss := make([]float64, n) // dissolved / non-advected
	fracTotDiss := make([]float64, n) // dissolved / applied
	for i := 0; i < n; i++ {
		remaining[i] = dust[i] - adv[i]
		fracAdv[i] = adv[i] / dust[i]
		fracRemain[i] = (dust[i] - adv[i] - dissolved[i]) / dust[i]
		fracRemDiss[i] = dissolved[i] / remaining[i]
		fracTotDiss[i] = dissolved[i] / dust[i]
	}
	if err := t.AddNumeric("dust_minus_adv", remaining); err != nil {
		return nil, err
	}
	if err := t.AddNumeric("total_dissolution", append([]float64(nil), dissolved...)); err != nil {
		return nil, err
	}
	for _, col := range []struct {
		name string
		vals []float64
	}{
		{"fraction_sld_advected", fracAdv},
		{"fraction_sld_remaining", fracRemain},
		{"fraction_remaining_dissolved", fracRemDiss},
		{"fraction_total_dissolved", fracTotDiss},
	} {
		if err := t.AddNumeric(col.name, col.vals); err != nil {
			return nil, err
		}
	}
	t.SetConstText("runname", runName)
	t.SetConstText("var", feedstock)
	return t, nil
}

// dustIntegral rebuilds the cumulative applied-dust series [ton/ha] from the
// raw dust.txt rates. The numeric rate column belonging to the feedstock is
// identified by scanning the categorical dustsp1/dustsp2 labels; when no
// label matches, the first slot is assumed. No mol-to-mass conversion applies
// because dust.txt rates are already g m-2 yr-1.
func dustIntegral(runDir, feedstock string, opt DissolutionOptions, target *table.Table) ([]float64, error) {
	dust, err := table.LoadRunFile(runDir, FluxSubdir, opt.DustFile, table.DustSchema)
	if err != nil {
		return nil, err
	}
	rateCol := "dust1_g_m2_yr"
	for _, label := range []struct{ sp, rate string }{
		{"dustsp1", "dust1_g_m2_yr"},
		{"dustsp2", "dust2_g_m2_yr"},
	} {
		vals, err := dust.Strings(label.sp)
		if err != nil {
			return nil, err
		}
		found := false
		for _, v := range vals {
			if v == feedstock {
				found = true
				break
			}
		}
		if found {
			rateCol = label.rate
			break
		}
	}

	dustTime, err := dust.Time()
	if err != nil {
		return nil, err
	}
	rate, err := dust.Floats(rateCol)
	if err != nil {
		return nil, err
	}
	// Re-application composites repeat boundary time samples; keep the first.
	dt, dr := integrate.KeepFirst(dustTime, rate)
	cum, err := integrate.CumTrapz(dr, dt)
	if err != nil {
		return nil, err
	}

	targetTime, err := target.Time()
	if err != nil {
		return nil, err
	}
	if len(dt) != len(targetTime) {
		cum = integrate.ResampleIntegral(dt, cum, targetTime)
	}
	out := make([]float64, len(cum))
	for i, v := range cum {
		out[i] = v * units.TonHaPerGM2
	}
	return out, nil
}
