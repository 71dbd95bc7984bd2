package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"cdrflux/pkg/table"
)

func fixtureTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New()
	if err := tbl.AddNumeric("time", []float64{1, 2, 3}); err != nil {
		t.Fatalf("AddNumeric: %v", err)
	}
	if err := tbl.AddNumeric("co2flx_adv", []float64{0.4, 0.5, 0.6}); err != nil {
		t.Fatalf("AddNumeric: %v", err)
	}
	tbl.SetConstText("runname", "run1")
	return tbl
}

func TestSaveTableRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(filepath.Join(t.TempDir(), "postproc_flxs", "fluxes.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveTable(ctx, "co2_flxs", fixtureTable(t)); err != nil {
		t.Fatalf("SaveTable: %v", err)
	}

	rows, err := store.DB().QueryContext(ctx, `SELECT "time", "co2flx_adv", "runname" FROM "co2_flxs" ORDER BY "time"`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		count    int
		timeVal  float64
		adv      float64
		runname  string
		lastTime float64
	)
	for rows.Next() {
		if err := rows.Scan(&timeVal, &adv, &runname); err != nil {
			t.Fatalf("scan: %v", err)
		}
		if runname != "run1" {
			t.Fatalf("runname = %q", runname)
		}
		lastTime = timeVal
		count++
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	if count != 3 || lastTime != 3 || adv != 0.6 {
		t.Fatalf("unexpected readback count=%d lastTime=%v adv=%v", count, lastTime, adv)
	}
}

func TestSaveTableReplaces(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(filepath.Join(t.TempDir(), "fluxes.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveTable(ctx, "rockflx_gbas", fixtureTable(t)); err != nil {
		t.Fatalf("first save: %v", err)
	}
	small := table.New()
	if err := small.AddNumeric("time", []float64{9}); err != nil {
		t.Fatalf("AddNumeric: %v", err)
	}
	if err := store.SaveTable(ctx, "rockflx_gbas", small); err != nil {
		t.Fatalf("second save: %v", err)
	}

	var n int
	if err := store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "rockflx_gbas"`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows after replace = %d, want 1", n)
	}
}

func TestSaveTableRejectsBadIdentifiers(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(filepath.Join(t.TempDir(), "fluxes.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveTable(ctx, `bad"name`, fixtureTable(t)); err == nil {
		t.Fatalf("expected identifier rejection")
	}
	if err := store.SaveTable(ctx, "empty", table.New()); err == nil {
		t.Fatalf("expected empty table rejection")
	}
}

func TestCationArtifactNameAllowed(t *testing.T) {
	// Summary artifacts embed +-joined cation lists in column values, and
	// per-cation artifact names use underscores; the dissolution summary
	// name may carry a + when multiple feedstocks are configured.
	if err := validIdent("cationflx_sum"); err != nil {
		t.Fatalf("validIdent: %v", err)
	}
	if err := validIdent("ca+mg"); err != nil {
		t.Fatalf("validIdent: %v", err)
	}
}
