package diag

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// completedRun lays out a run directory whose outputs pass every check. The
// flux table ends at t=10 years.
func completedRun(t *testing.T) string {
	t.Helper()
	runDir := t.TempDir()
	for _, sub := range []string{"prof", "flx"} {
		if err := os.MkdirAll(filepath.Join(runDir, sub), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	files := map[string]string{
		"flx/flx_aq-ca.txt": "time tflx adv\n1 0.1 0.2\n10 0.1 0.2\n",
		"prof/prof_aq.txt":  "z ca\n0 1\n",
		"flx/restart.save":  "",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(runDir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	// Top-level driver files are not output and are never inspected.
	if err := os.WriteFile(filepath.Join(runDir, "frame.in"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return runDir
}

func TestCheckCompletedRun(t *testing.T) {
	runDir := completedRun(t)
	rep, err := Check(runDir, DefaultOptions(10))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !rep.ProfExists || !rep.FlxExists {
		t.Fatalf("subdir flags: prof=%v flx=%v", rep.ProfExists, rep.FlxExists)
	}
	if len(rep.EmptyDirs) != 0 || len(rep.EmptyFiles) != 0 {
		t.Fatalf("unexpected empties: dirs=%v files=%v", rep.EmptyDirs, rep.EmptyFiles)
	}
	if !rep.DurationChecked || !rep.DurationOK {
		t.Fatalf("duration: checked=%v ok=%v model=%v", rep.DurationChecked, rep.DurationOK, rep.ModelDuration)
	}
	if rep.ModelDuration != 10 {
		t.Fatalf("ModelDuration = %v", rep.ModelDuration)
	}
	if !rep.OK() {
		t.Fatalf("report should pass: %+v", rep)
	}
}

func TestCheckFlagsEmptyOutputs(t *testing.T) {
	runDir := completedRun(t)
	// An empty output file and an empty output directory.
	if err := os.WriteFile(filepath.Join(runDir, "flx", "flx_gas-pco2.txt"), []byte("  \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(runDir, "chrg"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	rep, err := Check(runDir, DefaultOptions(10))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(rep.EmptyFiles) != 1 || !strings.HasSuffix(rep.EmptyFiles[0], "flx_gas-pco2.txt") {
		t.Fatalf("EmptyFiles = %v", rep.EmptyFiles)
	}
	if len(rep.EmptyDirs) != 1 || !strings.HasSuffix(rep.EmptyDirs[0], "chrg") {
		t.Fatalf("EmptyDirs = %v", rep.EmptyDirs)
	}
	if rep.OK() {
		t.Fatalf("report should fail")
	}
}

func TestCheckSaveSuffixExempt(t *testing.T) {
	runDir := completedRun(t)
	rep, err := Check(runDir, DefaultOptions(10))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	// restart.save is empty but exempt.
	if len(rep.EmptyFiles) != 0 {
		t.Fatalf("EmptyFiles = %v", rep.EmptyFiles)
	}

	opt := DefaultOptions(10)
	opt.KeepSaveFiles = false
	rep, err = Check(runDir, opt)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(rep.EmptyFiles) != 1 {
		t.Fatalf("EmptyFiles without exemption = %v", rep.EmptyFiles)
	}
}

func TestCheckShortDuration(t *testing.T) {
	runDir := completedRun(t)
	rep, err := Check(runDir, DefaultOptions(50))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.DurationOK {
		t.Fatalf("run reaching 10 of 50 years should fail the clock check")
	}
	if rep.OK() {
		t.Fatalf("report should fail")
	}
}

func TestModelDuration(t *testing.T) {
	runDir := completedRun(t)
	// Restarted runs can append earlier time samples after later ones; the
	// model duration is the maximum, not the last row.
	content := "time tflx adv\n1 0.1 0.2\n25 0.1 0.2\n10 0.1 0.2\n"
	if err := os.WriteFile(filepath.Join(runDir, "flx", "flx_aq-ca.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := modelDuration(runDir, "flx_aq-ca.txt")
	if err != nil {
		t.Fatalf("modelDuration: %v", err)
	}
	if got != 25 {
		t.Fatalf("modelDuration = %v, want 25", got)
	}
}

func TestCheckDurationSkipped(t *testing.T) {
	runDir := completedRun(t)
	rep, err := Check(runDir, Options{KeepSaveFiles: true})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.DurationChecked {
		t.Fatalf("duration check should be skipped")
	}
	if !rep.OK() {
		t.Fatalf("report should pass without the clock check")
	}
}

func TestCheckMissingDurationFile(t *testing.T) {
	runDir := completedRun(t)
	opt := DefaultOptions(10)
	opt.DurationFile = "flx_aq-nope.txt"
	rep, err := Check(runDir, opt)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.DurationErr == nil {
		t.Fatalf("expected duration error for missing file")
	}
	if rep.OK() {
		t.Fatalf("report should fail")
	}
}

func TestWriteReport(t *testing.T) {
	runDir := completedRun(t)
	rep, err := Check(runDir, DefaultOptions(10))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := WriteReport(rep); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}

	results, err := os.ReadFile(filepath.Join(runDir, "check_results.res"))
	if err != nil {
		t.Fatalf("read results: %v", err)
	}
	for _, want := range []string{
		"check1 -- Profile subdir exists: \ttrue",
		"check5 -- Model reached target duration: \ttrue",
	} {
		if !strings.Contains(string(results), want) {
			t.Fatalf("check_results.res missing %q:\n%s", want, results)
		}
	}

	logs, err := os.ReadFile(filepath.Join(runDir, "check_logs.res"))
	if err != nil {
		t.Fatalf("read logs: %v", err)
	}
	if !strings.Contains(string(logs), "target: 10\t model: 10") {
		t.Fatalf("check_logs.res missing duration line:\n%s", logs)
	}

	if _, err := os.Stat(filepath.Join(runDir, "completed.res")); err != nil {
		t.Fatalf("completed.res: %v", err)
	}
}
