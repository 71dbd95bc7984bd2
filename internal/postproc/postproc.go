// Package postproc runs a configurable subset of the flux assemblers for one
// simulation run and persists each result as an artifact. One metric's
// failure never aborts the others; each failure is scoped to its metric and
// reported alongside the successes.
package postproc

import (
	"context"
	"fmt"

	"cdrflux/internal/artifact"
	"cdrflux/internal/flux"
	"cdrflux/pkg/table"
)

// Metric identifies one of the CDR accounting metrics.
type Metric string

const (
	// MetricCO2 is the CO2 diffusive/advective/storage flux metric.
	MetricCO2 Metric = "co2_flx"
	// MetricCarbAlk is the carbonate-alkalinity flux metric.
	MetricCarbAlk Metric = "carbAlk_adv"
	// MetricCationSum is the cation charge-balance metric.
	MetricCationSum Metric = "sumCat_adv"
	// MetricRock is the feedstock dissolution metric.
	MetricRock Metric = "sld_flx"
)

// AllMetrics lists every metric in canonical execution order.
var AllMetrics = []Metric{MetricCO2, MetricCarbAlk, MetricCationSum, MetricRock}

// Artifact names are fixed per metric; per-cation and per-feedstock
// artifacts derive from these prefixes.
const (
	ArtifactCO2        = "co2_flxs"
	ArtifactCarbAlk    = "carbAlk_flxs"
	ArtifactCationSum  = "cationflx_sum"
	artifactCationPref = "cationflx_"
	artifactRockPref   = "rockflx_"
)

// SaveDir is the default per-run postprocessing subdirectory.
const SaveDir = "postproc_flxs"

// Options selects what to compute for a run.
type Options struct {
	// Metrics is the subset to run; nil means AllMetrics.
	Metrics []Metric
	// Feedstocks are the applied rock species for the dissolution metric.
	Feedstocks []string
	// Config is the shared assembler configuration.
	Config flux.Config
	// CO2, Alkalinity, Cations, Dissolution override the per-metric
	// defaults; zero values select the defaults.
	CO2         *flux.CO2Options
	Alkalinity  *flux.AlkalinityOptions
	Cations     *flux.CationOptions
	Dissolution *flux.DissolutionOptions
}

// Result reports what was persisted and which metrics failed.
type Result struct {
	// Artifacts lists the names persisted to the store.
	Artifacts []string
	// Failures maps a metric to the error that stopped it.
	Failures map[Metric]error
}

// Failed reports whether any selected metric failed.
func (r Result) Failed() bool { return len(r.Failures) > 0 }

// Process computes the selected metrics for runDir and persists each result
// to store. It returns an error only for invocation-level problems; metric
// failures are collected in the Result.
func Process(ctx context.Context, runDir, runName string, store artifact.Store, opt Options, obs *Metrics) (Result, error) {
	if store == nil {
		return Result{}, fmt.Errorf("postproc: nil artifact store")
	}
	metrics := opt.Metrics
	if len(metrics) == 0 {
		metrics = AllMetrics
	}
	res := Result{Failures: map[Metric]error{}}

	save := func(m Metric, name string, t *table.Table) bool {
		if err := store.SaveTable(ctx, name, t); err != nil {
			res.Failures[m] = fmt.Errorf("save %s: %w", name, err)
			return false
		}
		res.Artifacts = append(res.Artifacts, name)
		return true
	}

	for _, m := range metrics {
		switch m {
		case MetricCO2:
			o := flux.DefaultCO2Options()
			if opt.CO2 != nil {
				o = *opt.CO2
			}
			t, err := flux.CO2(runDir, runName, opt.Config, o)
			if err != nil {
				res.Failures[m] = err
				obs.fail(m)
				continue
			}
			if !save(m, ArtifactCO2, t) {
				obs.fail(m)
				continue
			}
			obs.done(m)

		case MetricCarbAlk:
			o := flux.DefaultAlkalinityOptions()
			if opt.Alkalinity != nil {
				o = *opt.Alkalinity
			}
			t, err := flux.Alkalinity(runDir, runName, opt.Config, o)
			if err != nil {
				res.Failures[m] = err
				obs.fail(m)
				continue
			}
			if !save(m, ArtifactCarbAlk, t) {
				obs.fail(m)
				continue
			}
			obs.done(m)

		case MetricCationSum:
			o := flux.DefaultCationOptions()
			if opt.Cations != nil {
				o = *opt.Cations
			}
			cr, err := flux.CationBalance(runDir, runName, opt.Config, o)
			if err != nil {
				res.Failures[m] = err
				obs.fail(m)
				continue
			}
			ok := save(m, ArtifactCationSum, cr.Summary)
			for _, id := range cr.Present {
				ok = save(m, artifactCationPref+id, cr.PerCation[id]) && ok
			}
			if !ok {
				obs.fail(m)
				continue
			}
			obs.done(m)

		case MetricRock:
			o := flux.DefaultDissolutionOptions()
			if opt.Dissolution != nil {
				o = *opt.Dissolution
			}
			if len(opt.Feedstocks) == 0 {
				res.Failures[m] = fmt.Errorf("no feedstock configured")
				obs.fail(m)
				continue
			}
			failed := false
			for _, fs := range opt.Feedstocks {
				t, err := flux.Dissolution(runDir, runName, fs, opt.Config, o)
				if err != nil {
					res.Failures[m] = fmt.Errorf("feedstock %s: %w", fs, err)
					failed = true
					break
				}
				if !save(m, artifactRockPref+fs, t) {
					failed = true
					break
				}
			}
			if failed {
				obs.fail(m)
				continue
			}
			obs.done(m)

		default:
			res.Failures[m] = fmt.Errorf("unknown metric %q", m)
		}
	}
	return res, nil
}
