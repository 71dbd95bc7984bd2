// Package diag inspects finished run directories and records whether the
// simulation produced usable output. Checks cover subdirectory presence,
// empty output files, and whether the model clock reached the target
// duration. Results are written back into the run directory as small
// resource files so downstream tooling can skip incomplete runs.
package diag

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cdrflux/pkg/table"
)

// DurationFile is the flux table read to recover the final model time.
const DurationFile = "flx_aq-ca.txt"

// Options controls which checks run and their thresholds.
type Options struct {
	// TargetDuration is the model duration in years the run was configured
	// for. Ignored when CheckDuration is false.
	TargetDuration float64

	// CheckDuration enables the model-clock comparison. Spinup runs often
	// skip it because their target is not easily known.
	CheckDuration bool

	// DurationTol is the percent overshoot/undershoot tolerance for the
	// duration check. Zero means the 0.1 percent default.
	DurationTol float64

	// DurationFile overrides the flux table used for the clock check.
	DurationFile string

	// KeepSaveFiles treats .save files as allowed to be empty.
	KeepSaveFiles bool
}

// DefaultOptions enables the duration check against targetYears.
func DefaultOptions(targetYears float64) Options {
	return Options{
		TargetDuration: targetYears,
		CheckDuration:  true,
		KeepSaveFiles:  true,
	}
}

func (o Options) tol() float64 {
	if o.DurationTol > 0 {
		return o.DurationTol
	}
	return 0.1
}

func (o Options) durationFile() string {
	if o.DurationFile != "" {
		return o.DurationFile
	}
	return DurationFile
}

// Report holds the outcome of all checks for one run directory.
type Report struct {
	RunDir string

	ProfExists bool
	FlxExists  bool

	// EmptyDirs lists output subdirectories with no content.
	EmptyDirs []string

	// EmptyFiles lists zero-content output files.
	EmptyFiles []string

	// DurationChecked is false when the clock check was skipped.
	DurationChecked bool
	DurationOK      bool
	TargetDuration  float64
	ModelDuration   float64
	DurationErr     error
}

// OK reports whether every check that ran passed.
func (r *Report) OK() bool {
	if !r.ProfExists || !r.FlxExists {
		return false
	}
	if len(r.EmptyDirs) > 0 || len(r.EmptyFiles) > 0 {
		return false
	}
	if r.DurationChecked && (!r.DurationOK || r.DurationErr != nil) {
		return false
	}
	return true
}

// Check runs all diagnostics on runDir.
func Check(runDir string, opt Options) (*Report, error) {
	info, err := os.Stat(runDir)
	if err != nil {
		return nil, fmt.Errorf("diag: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("diag: %s is not a directory", runDir)
	}

	rep := &Report{RunDir: runDir}

	if _, err := os.Stat(filepath.Join(runDir, "prof")); err == nil {
		rep.ProfExists = true
	}
	if _, err := os.Stat(filepath.Join(runDir, "flx")); err == nil {
		rep.FlxExists = true
	}

	rep.EmptyDirs, err = emptySubdirs(runDir)
	if err != nil {
		return nil, err
	}
	rep.EmptyFiles, err = emptyFiles(runDir, opt.KeepSaveFiles)
	if err != nil {
		return nil, err
	}

	if opt.CheckDuration {
		rep.DurationChecked = true
		rep.TargetDuration = opt.TargetDuration
		rep.ModelDuration, rep.DurationErr = modelDuration(runDir, opt.durationFile())
		if rep.DurationErr == nil && opt.TargetDuration > 0 {
			diffPercent := (rep.ModelDuration - opt.TargetDuration) / opt.TargetDuration * 100
			rep.DurationOK = diffPercent < opt.tol() && diffPercent > -opt.tol()
		}
	}

	return rep, nil
}

// emptySubdirs returns immediate subdirectories of runDir that hold nothing.
// Editor checkpoint directories are ignored.
func emptySubdirs(runDir string) ([]string, error) {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		return nil, fmt.Errorf("diag: %w", err)
	}
	var empty []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		sub := filepath.Join(runDir, e.Name())
		children, err := os.ReadDir(sub)
		if err != nil {
			return nil, fmt.Errorf("diag: %w", err)
		}
		n := 0
		for _, c := range children {
			if strings.HasPrefix(c.Name(), ".") {
				continue
			}
			n++
		}
		if n == 0 {
			empty = append(empty, sub)
		}
	}
	sort.Strings(empty)
	return empty, nil
}

// emptyFiles walks the run's subdirectories and returns files whose content
// is blank. Files at the top level drive the simulation rather than record
// output, so they are not inspected. Restart files carry a .save suffix and
// may legitimately be empty.
func emptyFiles(runDir string, keepSave bool) ([]string, error) {
	var empty []string
	err := filepath.WalkDir(runDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != runDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Dir(path) == runDir {
			return nil
		}
		if keepSave && strings.EqualFold(filepath.Ext(d.Name()), ".save") {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if len(strings.TrimSpace(string(b))) == 0 {
			empty = append(empty, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("diag: %w", err)
	}
	sort.Strings(empty)
	return empty, nil
}

// modelDuration reads the last recorded model time from a flux table.
func modelDuration(runDir, file string) (float64, error) {
	tbl, err := table.LoadFile(filepath.Join(runDir, "flx", file), table.FluxSchema)
	if err != nil {
		return 0, err
	}
	times, err := tbl.Time()
	if err != nil {
		return 0, err
	}
	if len(times) == 0 {
		return 0, fmt.Errorf("diag: %s has no rows", file)
	}
	max := times[0]
	for _, t := range times[1:] {
		if t > max {
			max = t
		}
	}
	return max, nil
}

// WriteReport records rep in the run directory: check_results.res with
// pass/fail lines, check_logs.res with the offending paths, and an empty
// completed.res marker.
func WriteReport(rep *Report) error {
	var res strings.Builder
	res.WriteString("*** results of postprocess diagnostic checks\n")
	fmt.Fprintf(&res, "check1 -- Profile subdir exists: \t%v\n", rep.ProfExists)
	fmt.Fprintf(&res, "check2 -- Flx subdir exists: \t%v\n", rep.FlxExists)
	fmt.Fprintf(&res, "check3 -- Output dirs are not empty: \t%v\n", len(rep.EmptyDirs) == 0)
	fmt.Fprintf(&res, "check4 -- No output files are empty: \t%v\n", len(rep.EmptyFiles) == 0)
	switch {
	case !rep.DurationChecked:
		fmt.Fprintf(&res, "check5 -- Model reached target duration: \tNA; check deliberately not run\n")
	case rep.DurationErr != nil:
		fmt.Fprintf(&res, "check5 -- Model reached target duration: \tcould not complete check; %v\n", rep.DurationErr)
	default:
		fmt.Fprintf(&res, "check5 -- Model reached target duration: \t%v\n", rep.DurationOK)
	}
	if err := os.WriteFile(filepath.Join(rep.RunDir, "check_results.res"), []byte(res.String()), 0o644); err != nil {
		return fmt.Errorf("diag: %w", err)
	}

	var log strings.Builder
	log.WriteString("*** log of postprocess diagnostic checks\n\n")
	log.WriteString("check1 -- no output (see check_results.res)\n\n\n")
	log.WriteString("check2 -- no output (see check_results.res)\n\n\n")
	log.WriteString("check3 -- list of empty output directories\n")
	for _, d := range rep.EmptyDirs {
		log.WriteString(d + "\n")
	}
	log.WriteString("\n\n")
	log.WriteString("check4 -- list of empty output files\n")
	for _, f := range rep.EmptyFiles {
		log.WriteString(f + "\n")
	}
	log.WriteString("\n\n")
	log.WriteString("check5 -- target versus model duration (years) \n")
	if rep.DurationChecked && rep.DurationErr == nil {
		fmt.Fprintf(&log, "target: %g\t model: %g", rep.TargetDuration, rep.ModelDuration)
	} else {
		log.WriteString("target: NA\t model: NA")
	}
	if err := os.WriteFile(filepath.Join(rep.RunDir, "check_logs.res"), []byte(log.String()), 0o644); err != nil {
		return fmt.Errorf("diag: %w", err)
	}

	if err := os.WriteFile(filepath.Join(rep.RunDir, "completed.res"), nil, 0o644); err != nil {
		return fmt.Errorf("diag: %w", err)
	}
	return nil
}
