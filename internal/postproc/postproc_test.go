package postproc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"cdrflux/internal/flux"
	"cdrflux/pkg/table"
)

// memStore collects saved artifacts in memory; failNames forces persistence
// errors for specific artifacts.
type memStore struct {
	saved     map[string]*table.Table
	order     []string
	failNames map[string]bool
}

func newMemStore() *memStore {
	return &memStore{saved: map[string]*table.Table{}, failNames: map[string]bool{}}
}

func (m *memStore) SaveTable(_ context.Context, name string, t *table.Table) error {
	if m.failNames[name] {
		return fmt.Errorf("forced failure for %s", name)
	}
	m.saved[name] = t
	m.order = append(m.order, name)
	return nil
}

func (m *memStore) Close() error { return nil }

func writeRunFile(t *testing.T, runDir, name, content string) {
	t.Helper()
	dir := filepath.Join(runDir, flux.FluxSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// fullRun writes a run directory covering all four metrics.
func fullRun(t *testing.T) string {
	runDir := t.TempDir()
	gas := "time dif tflx adv cc\n1 -1 0.5 0.4 0.1\n2 -1 0.4 0.5 0.1\n"
	writeRunFile(t, runDir, "flx_gas-pco2.txt", gas)
	writeRunFile(t, runDir, "int_flx_gas-pco2.txt", gas)

	alk := "time tflx adv\n1 0.1 0.3\n2 0.2 0.4\n"
	writeRunFile(t, runDir, "flx_co2sp-ALK.txt", alk)
	writeRunFile(t, runDir, "int_flx_co2sp-ALK.txt", alk)

	aq := "time tflx adv res cc\n1 0.1 0.2 0 0.4\n2 0.1 0.2 0 0.4\n"
	writeRunFile(t, runDir, "flx_aq-ca.txt", aq)
	writeRunFile(t, runDir, "int_flx_aq-ca.txt", aq)

	sld := "time adv rain gbas\n1 1 -3 2\n2 1 -3 2\n"
	writeRunFile(t, runDir, "flx_sld-gbas.txt", sld)
	writeRunFile(t, runDir, "int_flx_sld-gbas.txt", sld)
	writeRunFile(t, runDir, "dust.txt",
		"time dustsp1 dust1_g_m2_yr dustsp2 dust2_g_m2_yr\n1 gbas 100.0 cc 0.0\n2 gbas 100.0 cc 0.0\n")
	return runDir
}

func TestProcessAllMetrics(t *testing.T) {
	runDir := fullRun(t)
	store := newMemStore()
	reg := prometheus.NewRegistry()
	obs := NewMetrics(reg)

	res, err := Process(context.Background(), runDir, "run1", store, Options{
		Feedstocks: []string{"gbas"},
		Config:     flux.DefaultConfig(),
	}, obs)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Failed() {
		t.Fatalf("unexpected failures: %v", res.Failures)
	}
	want := []string{ArtifactCO2, ArtifactCarbAlk, ArtifactCationSum, "cationflx_ca", "rockflx_gbas"}
	if !slices.Equal(res.Artifacts, want) {
		t.Fatalf("Artifacts = %v, want %v", res.Artifacts, want)
	}
	for _, name := range want {
		if store.saved[name] == nil {
			t.Fatalf("artifact %s not persisted", name)
		}
	}
	if got := testutil.ToFloat64(obs.processed.WithLabelValues(string(MetricCO2))); got != 1 {
		t.Fatalf("processed counter = %v", got)
	}
	if got := testutil.ToFloat64(obs.failed.WithLabelValues(string(MetricRock))); got != 0 {
		t.Fatalf("failed counter = %v", got)
	}
}

func TestProcessIsolatesMissingInput(t *testing.T) {
	// Only the CO2 inputs exist; the other metrics must fail individually
	// without aborting the batch.
	runDir := t.TempDir()
	gas := "time dif tflx adv\n1 -1 0.5 0.5\n"
	writeRunFile(t, runDir, "flx_gas-pco2.txt", gas)
	writeRunFile(t, runDir, "int_flx_gas-pco2.txt", gas)

	store := newMemStore()
	res, err := Process(context.Background(), runDir, "run1", store, Options{
		Feedstocks: []string{"gbas"},
		Config:     flux.DefaultConfig(),
	}, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !slices.Equal(res.Artifacts, []string{ArtifactCO2}) {
		t.Fatalf("Artifacts = %v", res.Artifacts)
	}
	for _, m := range []Metric{MetricCarbAlk, MetricCationSum, MetricRock} {
		ferr, ok := res.Failures[m]
		if !ok {
			t.Fatalf("metric %s should have failed", m)
		}
		if m != MetricRock && !table.IsMissingInput(ferr) {
			t.Fatalf("metric %s: want missing-input error, got %v", m, ferr)
		}
	}
}

func TestProcessMetricSubset(t *testing.T) {
	runDir := fullRun(t)
	store := newMemStore()
	res, err := Process(context.Background(), runDir, "run1", store, Options{
		Metrics: []Metric{MetricCarbAlk},
		Config:  flux.DefaultConfig(),
	}, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !slices.Equal(res.Artifacts, []string{ArtifactCarbAlk}) {
		t.Fatalf("Artifacts = %v", res.Artifacts)
	}
	if res.Failed() {
		t.Fatalf("Failures = %v", res.Failures)
	}
}

func TestProcessSaveFailure(t *testing.T) {
	runDir := fullRun(t)
	store := newMemStore()
	store.failNames[ArtifactCO2] = true

	reg := prometheus.NewRegistry()
	obs := NewMetrics(reg)
	res, err := Process(context.Background(), runDir, "run1", store, Options{
		Metrics: []Metric{MetricCO2, MetricCarbAlk},
		Config:  flux.DefaultConfig(),
	}, obs)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	ferr := res.Failures[MetricCO2]
	if ferr == nil || !strings.Contains(ferr.Error(), "save co2_flxs") {
		t.Fatalf("Failures[co2] = %v", ferr)
	}
	if !slices.Equal(res.Artifacts, []string{ArtifactCarbAlk}) {
		t.Fatalf("Artifacts = %v", res.Artifacts)
	}
	if got := testutil.ToFloat64(obs.failed.WithLabelValues(string(MetricCO2))); got != 1 {
		t.Fatalf("failed counter = %v", got)
	}
	if got := testutil.ToFloat64(obs.processed.WithLabelValues(string(MetricCO2))); got != 0 {
		t.Fatalf("processed counter = %v", got)
	}
}

func TestProcessUnknownMetric(t *testing.T) {
	runDir := fullRun(t)
	res, err := Process(context.Background(), runDir, "run1", newMemStore(), Options{
		Metrics: []Metric{"bogus"},
		Config:  flux.DefaultConfig(),
	}, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Failures["bogus"] == nil {
		t.Fatalf("expected failure for unknown metric")
	}
}

func TestProcessNilStore(t *testing.T) {
	if _, err := Process(context.Background(), t.TempDir(), "run1", nil, Options{}, nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}

func TestProcessRockWithoutFeedstock(t *testing.T) {
	runDir := fullRun(t)
	res, err := Process(context.Background(), runDir, "run1", newMemStore(), Options{
		Metrics: []Metric{MetricRock},
		Config:  flux.DefaultConfig(),
	}, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Failures[MetricRock] == nil {
		t.Fatalf("expected failure without configured feedstock")
	}
}
