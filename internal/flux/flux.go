// Package flux builds the CDR accounting metrics for a single simulation run:
// CO2 gas flux, carbonate-alkalinity flux, cation charge-balance flux, and
// feedstock dissolution fractions. Each assembler consumes the run's
// whitespace-delimited flux tables and produces one reconciled output table.
//
// Fluxes are absolute, per-run quantities; nothing here compares against a
// control scenario.
package flux

import (
	"fmt"

	"cdrflux/pkg/species"
	"cdrflux/pkg/table"
)

// FluxSubdir is the run subdirectory holding flux time-series files.
const FluxSubdir = "flx"

// Config carries the cross-metric settings shared by every assembler.
type Config struct {
	// ToTonHa selects ton ha-1 (yr-1) output units; false selects g m-2
	// (yr-1).
	ToTonHa bool
	// Species is the molar-mass registry for mol-to-mass conversion.
	Species species.Registry
}

// DefaultConfig returns the standard configuration: ton/ha units and the
// standard molar-mass registry.
func DefaultConfig() Config {
	return Config{ToTonHa: true, Species: species.Default}
}

// pair holds the instantaneous and time-integrated variants of one logical
// quantity, loaded from <stem>-<variable>.txt and int_<stem>-<variable>.txt.
type pair struct {
	inst  *table.Table
	integ *table.Table
}

func loadPair(runDir, stem, variable string) (pair, error) {
	fn := fmt.Sprintf("%s-%s.txt", stem, variable)
	inst, err := table.LoadRunFile(runDir, FluxSubdir, fn, table.FluxSchema)
	if err != nil {
		return pair{}, err
	}
	integ, err := table.LoadRunFile(runDir, FluxSubdir, "int_"+fn, table.FluxSchema)
	if err != nil {
		return pair{}, err
	}
	return pair{inst: inst, integ: integ}, nil
}

// tagColumns are the label columns appended to every flux record; they are
// excluded from all numeric transformations.
var tagColumns = []string{"time", "units"}

// tag stamps the record-identity columns onto an assembled table.
func tag(t *table.Table, units, flxType, runName, variable string) {
	t.SetConstText("units", units)
	t.SetConstText("flx_type", flxType)
	t.SetConstText("runname", runName)
	t.SetConstText("var", variable)
}

// finishPair applies the integrated-table time multiplication (the upstream
// int_ files store average rate over elapsed time, not the cumulative
// quantity), tags both variants, and concatenates them into the output
// record table.
func finishPair(inst, integ *table.Table, instUnits, integUnits, runName, variable string) (*table.Table, error) {
	if err := integ.MulByColumnExcept("time", "units"); err != nil {
		return nil, err
	}
	tag(inst, instUnits, "flx", runName, variable)
	tag(integ, integUnits, "int_flx", runName, variable)
	return table.Concat(inst, integ)
}
