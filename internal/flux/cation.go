package flux

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"cdrflux/pkg/table"
	"cdrflux/pkg/units"
)

// Cation pairs a cation identifier with its ionic charge.
type Cation struct {
	ID     string
	Charge float64
}

// CationOptions parameterizes the cation charge-balance metric.
type CationOptions struct {
	Stem string // default flx_aq
	// Cations is the registry of candidate cations; any subset of these may
	// actually be tracked by a given run.
	Cations []Cation
	// CarbonateSources are the carbonate-mineral source columns whose
	// cation release is halved in the charge accounting (two moles of a
	// divalent-sourcing carbonate release one mole of carbonate-bound
	// cation per formula unit).
	CarbonateSources []string
	// NegligibleBelow trims source columns whose absolute value never
	// exceeds it; time, adv, tflx and res are always kept.
	NegligibleBelow float64
	// CO2GramsPerMolCharge converts charge-equivalent molar flux to grams
	// of CO2 potential.
	CO2GramsPerMolCharge float64
}

// DefaultCationOptions returns the standard flx_aq configuration with the
// ca/mg/k/na registry.
func DefaultCationOptions() CationOptions {
	return CationOptions{
		Stem: "flx_aq",
		Cations: []Cation{
			{ID: "ca", Charge: 2},
			{ID: "mg", Charge: 2},
			{ID: "k", Charge: 1},
			{ID: "na", Charge: 1},
		},
		CarbonateSources:     []string{"cc", "dlm", "arg"},
		NegligibleBelow:      1e-7,
		CO2GramsPerMolCharge: units.CO2MolarMass,
	}
}

// CationResult is the output of the cation charge-balance metric: the
// charge-weighted summary across all discovered cations, plus the per-cation
// detail tables retained for audit.
type CationResult struct {
	// Summary accumulates each cation's charge-weighted flux columns,
	// keyed by shared time; its var tag is the +-joined cation list.
	Summary *table.Table
	// PerCation maps cation ID to its detail record table.
	PerCation map[string]*table.Table
	// Present lists the discovered cations in registry order.
	Present []string
}

// FindCations reports which of the candidate cation flux files exist for the
// run, in registry order. Absence is expected: not every simulation
// configuration tracks all four.
func FindCations(runDir string, opt CationOptions) []Cation {
	var out []Cation
	for _, c := range opt.Cations {
		fn := fmt.Sprintf("%s-%s.txt", opt.Stem, c.ID)
		if _, err := os.Stat(filepath.Join(runDir, FluxSubdir, fn)); err == nil {
			out = append(out, c)
		}
	}
	return out
}

// CationBalance assembles the charge-weighted cation flux summary and the
// per-cation detail records for a run.
func CationBalance(runDir, runName string, cfg Config, opt CationOptions) (CationResult, error) {
	present := FindCations(runDir, opt)
	if len(present) == 0 {
		return CationResult{}, &table.MissingInputError{
			Run:  filepath.Base(runDir),
			File: filepath.Join(FluxSubdir, opt.Stem+"-{"+joinIDs(opt.Cations)+"}.txt"),
			Err:  os.ErrNotExist,
		}
	}

	res := CationResult{PerCation: map[string]*table.Table{}}
	var sumInst, sumInteg *table.Table
	for _, cat := range present {
		p, err := loadPair(runDir, opt.Stem, cat.ID)
		if err != nil {
			return CationResult{}, err
		}
		inst, err := buildCationTable(p.inst, cat, cfg, opt, false)
		if err != nil {
			return CationResult{}, fmt.Errorf("cation %s: %w", cat.ID, err)
		}
		integ, err := buildCationTable(p.integ, cat, cfg, opt, true)
		if err != nil {
			return CationResult{}, fmt.Errorf("cation %s: %w", cat.ID, err)
		}

		detail, err := cationDetail(inst, integ, cat, runName)
		if err != nil {
			return CationResult{}, err
		}
		res.PerCation[cat.ID] = detail
		res.Present = append(res.Present, cat.ID)

		ci, err := chargeContribution(inst, cat, cfg, false)
		if err != nil {
			return CationResult{}, err
		}
		cg, err := chargeContribution(integ, cat, cfg, true)
		if err != nil {
			return CationResult{}, err
		}
		if sumInst == nil {
			sumInst, sumInteg = ci, cg
			continue
		}
		if err := accumulate(sumInst, ci); err != nil {
			return CationResult{}, fmt.Errorf("cation %s: %w", cat.ID, err)
		}
		if err := accumulate(sumInteg, cg); err != nil {
			return CationResult{}, fmt.Errorf("cation %s: %w", cat.ID, err)
		}
	}

	variable := strings.Join(res.Present, "+")
	summary, err := finishPair(sumInst, sumInteg,
		"mol m-2 yr x charge", "mol m-2 x charge", runName, variable)
	if err != nil {
		return CationResult{}, err
	}
	res.Summary = summary
	return res, nil
}

// buildCationTable cleans one raw cation table and derives the charge-balance
// columns: negligible columns trimmed, sources split into carbonate and
// non-carbonate groups, the advective-equivalent flux
// (-tflx - noncarb - carb/2) and its advective+storage variant
// (-noncarb - carb/2), each folded into a CO2 potential.
func buildCationTable(raw *table.Table, cat Cation, cfg Config, opt CationOptions, integrated bool) (*table.Table, error) {
	t, err := raw.Select(raw.Names()...)
	if err != nil {
		return nil, err
	}
	t.TrimNegligible(opt.NegligibleBelow, "time", "adv", "tflx", "res")

	carb := t.Present(opt.CarbonateSources)
	var noncarb []string
	reserved := append([]string{"time", "tflx", "adv", "res"}, carb...)
	for _, name := range t.Names() {
		c := t.Column(name)
		if c.Kind != table.Numeric {
			continue
		}
		if !slices.Contains(reserved, name) {
			noncarb = append(noncarb, name)
		}
	}
	if err := t.SumInto("noncarbsld_source", noncarb); err != nil {
		return nil, err
	}
	if err := t.SumInto("carbsld_source", carb); err != nil {
		return nil, err
	}

	tflx, err := t.Floats("tflx")
	if err != nil {
		return nil, err
	}
	noncarbSum, err := t.Floats("noncarbsld_source")
	if err != nil {
		return nil, err
	}
	carbSum, err := t.Floats("carbsld_source")
	if err != nil {
		return nil, err
	}

	n := t.Len()
	advCat := make([]float64, n)
	totCat := make([]float64, n)
	for i := 0; i < n; i++ {
		advCat[i] = -tflx[i] - noncarbSum[i] - carbSum[i]/2
		totCat[i] = -noncarbSum[i] - carbSum[i]/2
	}

	factor := cat.Charge * opt.CO2GramsPerMolCharge
	if cfg.ToTonHa {
		factor *= units.TonHaPerGM2
	}
	suffix := potSuffix(cfg.ToTonHa, integrated)
	pot := func(src []float64) []float64 {
		out := make([]float64, len(src))
		for i, v := range src {
			out[i] = v * factor
		}
		return out
	}
	if err := t.AddNumeric("co2pot_adv_"+suffix, pot(advCat)); err != nil {
		return nil, err
	}
	if err := t.AddNumeric("co2pot_tot_"+suffix, pot(totCat)); err != nil {
		return nil, err
	}
	return t, nil
}

// cationDetail tags and concatenates the cleaned instantaneous/integrated
// tables into the per-cation audit record. The detail record keeps the
// upstream average-rate convention for its int_flx rows; only the summary
// applies the time multiplication.
func cationDetail(inst, integ *table.Table, cat Cation, runName string) (*table.Table, error) {
	di, err := inst.Select(inst.Names()...)
	if err != nil {
		return nil, err
	}
	dg, err := integ.Select(integ.Names()...)
	if err != nil {
		return nil, err
	}
	charge := strconv.FormatFloat(cat.Charge, 'g', -1, 64)
	for _, d := range []*table.Table{di, dg} {
		d.SetConstText("runname", runName)
		d.SetConstText("cation", cat.ID)
		d.SetConstText("charge", charge)
	}
	di.SetConstText("units", "mol m-2 yr")
	di.SetConstText("flx_type", "flx")
	dg.SetConstText("units", "mol m-2")
	dg.SetConstText("flx_type", "int_flx")
	return table.Concat(di, dg)
}

// chargeContribution extracts one cation's contribution to the running
// summary: the raw balance columns renamed *_charge and multiplied by ionic
// charge, plus the already charge-weighted CO2 potential columns.
func chargeContribution(t *table.Table, cat Cation, cfg Config, integrated bool) (*table.Table, error) {
	out, err := t.Select("time", "tflx", "adv", "carbsld_source", "noncarbsld_source")
	if err != nil {
		return nil, err
	}
	renames := [][2]string{
		{"tflx", "tflx_charge"},
		{"adv", "adv_charge"},
		{"carbsld_source", "carbsld_source_charge"},
		{"noncarbsld_source", "noncarbsld_source_charge"},
	}
	for _, r := range renames {
		if err := out.Rename(r[0], r[1]); err != nil {
			return nil, err
		}
	}
	out.ScaleExcept(cat.Charge, tagColumns...)

	suffix := potSuffix(cfg.ToTonHa, integrated)
	for _, name := range []string{"co2pot_adv_" + suffix, "co2pot_tot_" + suffix} {
		vals, err := t.Floats(name)
		if err != nil {
			return nil, err
		}
		if err := out.AddNumeric(name, append([]float64(nil), vals...)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// accumulate adds src's numeric columns into dst row-wise, keyed by the
// shared time grid. Cation files within one run share their grid; a mismatch
// means the inputs cannot be reconciled.
func accumulate(dst, src *table.Table) error {
	dt, err := dst.Time()
	if err != nil {
		return err
	}
	st, err := src.Time()
	if err != nil {
		return err
	}
	if len(dt) != len(st) {
		return fmt.Errorf("time grids differ: %d vs %d samples", len(dt), len(st))
	}
	for i := range dt {
		if dt[i] != st[i] {
			return fmt.Errorf("time grids differ at sample %d: %v vs %v", i, dt[i], st[i])
		}
	}
	for _, name := range dst.Names() {
		if name == "time" {
			continue
		}
		dv, err := dst.Floats(name)
		if err != nil {
			return err
		}
		sv, err := src.Floats(name)
		if err != nil {
			return err
		}
		for i := range dv {
			dv[i] += sv[i]
		}
	}
	return nil
}

func joinIDs(cats []Cation) string {
	ids := make([]string, len(cats))
	for i, c := range cats {
		ids[i] = c.ID
	}
	return strings.Join(ids, ",")
}
