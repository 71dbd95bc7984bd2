// Command cdrflux postprocesses reactive-transport run output into CDR
// accounting artifacts: CO2 fluxes, carbonate-alkalinity fluxes, cation
// charge balances, and feedstock dissolution budgets. It operates on one or
// more run directories under an output root, persists artifacts to SQLite or
// Postgres, and can optionally run completion diagnostics and push finished
// runs to object storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"cdrflux/internal/artifact"
	artpg "cdrflux/internal/artifact/postgres"
	artsqlite "cdrflux/internal/artifact/sqlite"
	"cdrflux/internal/blob"
	"cdrflux/internal/diag"
	"cdrflux/internal/flux"
	"cdrflux/internal/postproc"
)

const sqliteFile = "fluxes.db"

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

type options struct {
	outDir       string
	runs         string
	metrics      string
	feedstocks   string
	units        string
	dustFromFile bool
	dustFile     string
	backend      string
	dsn          string
	workers      int
	check        bool
	targetYears  float64
	pushDriver   string
	pushRoot     string
	metricsOut   string
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cdrflux", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opt options
	fs.StringVar(&opt.outDir, "outdir", ".", "directory holding the run directories")
	fs.StringVar(&opt.runs, "runs", "", "comma-separated run names (empty means every subdirectory of outdir)")
	fs.StringVar(&opt.metrics, "metrics", "", "comma-separated metrics to compute: co2_flx,carbAlk_adv,sumCat_adv,sld_flx (empty means all)")
	fs.StringVar(&opt.feedstocks, "feedstocks", "", "comma-separated feedstock species for the dissolution metric (e.g. gbas,cc)")
	fs.StringVar(&opt.units, "units", "tonha", "output units: tonha or gm2")
	fs.BoolVar(&opt.dustFromFile, "dust-from-file", true, "integrate the applied dust series from the dust record file")
	fs.StringVar(&opt.dustFile, "dust-file", "", "override the dust record filename")
	fs.StringVar(&opt.backend, "backend", "sqlite", "artifact store backend: sqlite or postgres")
	fs.StringVar(&opt.dsn, "dsn", "", "postgres connection string (backend=postgres)")
	fs.IntVar(&opt.workers, "workers", 4, "number of runs to process concurrently")
	fs.BoolVar(&opt.check, "check", false, "run completion diagnostics and write .res files into each run directory")
	fs.Float64Var(&opt.targetYears, "target-years", 0, "target model duration in years for diagnostics (0 skips the clock check)")
	fs.StringVar(&opt.pushDriver, "push", "", "push finished runs to object storage: fs, s3, or memory (empty disables)")
	fs.StringVar(&opt.pushRoot, "push-root", "", "root directory for the fs push driver")
	fs.StringVar(&opt.metricsOut, "metrics-out", "", "write prometheus counters to this textfile after the batch")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := run(context.Background(), opt, stdout); err != nil {
		fmt.Fprintf(stderr, "cdrflux: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, opt options, stdout io.Writer) error {
	runs, err := resolveRuns(opt.outDir, opt.runs)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return fmt.Errorf("no runs found under %s", opt.outDir)
	}

	procOpt, err := buildOptions(opt)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	obs := postproc.NewMetrics(reg)

	var push blob.Store
	if opt.pushDriver != "" {
		push, err = blob.Open(ctx, blob.Driver(opt.pushDriver), opt.pushRoot)
		if err != nil {
			return err
		}
	}

	workers := opt.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(runs) {
		workers = len(runs)
	}

	logger := log.New(stdout, "", log.LstdFlags)

	type outcome struct {
		run string
		err error
	}
	sem := make(chan struct{}, workers)
	results := make([]outcome, len(runs))
	var wg sync.WaitGroup
	for i, runName := range runs {
		wg.Add(1)
		go func(i int, runName string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = outcome{run: runName, err: processRun(ctx, opt, procOpt, runName, obs, push, logger)}
		}(i, runName)
	}
	wg.Wait()

	if opt.metricsOut != "" {
		if err := prometheus.WriteToTextfile(opt.metricsOut, reg); err != nil {
			return fmt.Errorf("write metrics textfile: %w", err)
		}
	}

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			logger.Printf("run %s: %v", r.run, r.err)
		}
	}
	logger.Printf("processed %d runs, %d failed", len(runs), failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(runs))
	}
	return nil
}

// processRun computes the selected metrics for one run, then optionally runs
// diagnostics and pushes the run directory to object storage.
func processRun(ctx context.Context, opt options, procOpt postproc.Options, runName string, obs *postproc.Metrics, push blob.Store, logger *log.Logger) (err error) {
	runDir := filepath.Join(opt.outDir, runName)

	store, err := openStore(opt, runDir, runName)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	res, err := postproc.Process(ctx, runDir, runName, store, procOpt, obs)
	if err != nil {
		return err
	}
	for m, ferr := range res.Failures {
		logger.Printf("run %s: metric %s: %v", runName, m, ferr)
	}
	logger.Printf("run %s: saved %d artifacts", runName, len(res.Artifacts))

	if opt.check {
		dopt := diag.DefaultOptions(opt.targetYears)
		dopt.CheckDuration = opt.targetYears > 0
		rep, derr := diag.Check(runDir, dopt)
		if derr != nil {
			return derr
		}
		if werr := diag.WriteReport(rep); werr != nil {
			return werr
		}
		if !rep.OK() {
			logger.Printf("run %s: diagnostics flagged problems (see check_results.res)", runName)
		}
	}

	if push != nil {
		n, perr := blob.PushRun(ctx, push, opt.outDir, runName)
		if perr != nil {
			return fmt.Errorf("push run: %w", perr)
		}
		logger.Printf("run %s: pushed %d objects", runName, n)
	}

	if res.Failed() {
		keys := make([]string, 0, len(res.Failures))
		for m := range res.Failures {
			keys = append(keys, string(m))
		}
		sort.Strings(keys)
		return fmt.Errorf("metrics failed: %s", strings.Join(keys, ", "))
	}
	return nil
}

// openStore returns the artifact store for one run. SQLite stores live
// inside the run's postprocessing directory; Postgres prefixes each table
// with the run name so a shared database can hold a whole batch.
func openStore(opt options, runDir, runName string) (artifact.Store, error) {
	switch opt.backend {
	case "sqlite", "":
		return artsqlite.NewStore(filepath.Join(runDir, postproc.SaveDir, sqliteFile))
	case "postgres":
		return artpg.NewStore(opt.dsn, runName)
	default:
		return nil, fmt.Errorf("unknown backend %q", opt.backend)
	}
}

func buildOptions(opt options) (postproc.Options, error) {
	cfg := flux.DefaultConfig()
	switch opt.units {
	case "tonha", "":
		cfg.ToTonHa = true
	case "gm2":
		cfg.ToTonHa = false
	default:
		return postproc.Options{}, fmt.Errorf("unknown units %q", opt.units)
	}

	po := postproc.Options{Config: cfg}
	for _, m := range splitList(opt.metrics) {
		po.Metrics = append(po.Metrics, postproc.Metric(m))
	}
	po.Feedstocks = splitList(opt.feedstocks)

	dopt := flux.DefaultDissolutionOptions()
	dopt.DustFromFile = opt.dustFromFile
	if opt.dustFile != "" {
		dopt.DustFile = opt.dustFile
	}
	po.Dissolution = &dopt
	return po, nil
}

// resolveRuns expands the -runs flag, defaulting to every subdirectory of
// outDir that is not a hidden or postprocessing directory.
func resolveRuns(outDir, runsFlag string) ([]string, error) {
	if runsFlag != "" {
		return splitList(runsFlag), nil
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("read outdir: %w", err)
	}
	var runs []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || e.Name() == postproc.SaveDir {
			continue
		}
		runs = append(runs, e.Name())
	}
	sort.Strings(runs)
	return runs, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
