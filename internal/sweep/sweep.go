// Package sweep generates batch input tables for parameter sweeps. A sweep
// takes the cartesian product of the varied parameters, repeats it for each
// site, layers on per-site and constant columns, and derives a unique run
// identifier per row. The result is written as CSV for the batch runner.
package sweep

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Param is one swept parameter and the values it takes.
type Param struct {
	Name   string
	Values []string
}

// Spec describes a sweep. Combos are expanded into every unique value
// combination; BySite columns carry one value per entry in Sites; Constants
// repeat on every row.
type Spec struct {
	// Prefix seeds every run identifier, conventionally the feedstock name.
	Prefix string

	// Sites lists the site labels. Each combination is repeated once per
	// site, stored in the "site" column.
	Sites []string

	// Combos are expanded in order, last parameter varying fastest.
	Combos []Param

	// BySite columns hold one value per site, aligned with Sites.
	BySite []Param

	// Constants are fixed columns appended to every row.
	Constants []Param

	// ClimTag optionally names the climate forcing vintage in run IDs.
	ClimTag string

	// AddControl prepends a zero-application control row per site.
	AddControl bool
}

// Batch is the expanded sweep, one row per model run.
type Batch struct {
	Columns []string
	Rows    [][]string
}

// Col returns the index of name, or -1.
func (b *Batch) Col(name string) int {
	for i, c := range b.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// RunIDs returns the newrun_id column.
func (b *Batch) RunIDs() []string {
	idx := b.Col("newrun_id")
	if idx < 0 {
		return nil
	}
	ids := make([]string, len(b.Rows))
	for i, row := range b.Rows {
		ids[i] = row[idx]
	}
	return ids
}

// Build expands the spec into a batch table. Run identifiers must come out
// unique; a duplicate means two rows would write into the same run directory.
func Build(spec Spec) (*Batch, error) {
	if len(spec.Sites) == 0 {
		return nil, fmt.Errorf("sweep: no sites")
	}
	for _, p := range spec.Combos {
		if len(p.Values) == 0 {
			return nil, fmt.Errorf("sweep: parameter %q has no values", p.Name)
		}
	}
	for _, p := range spec.BySite {
		if len(p.Values) != len(spec.Sites) {
			return nil, fmt.Errorf("sweep: per-site parameter %q has %d values for %d sites",
				p.Name, len(p.Values), len(spec.Sites))
		}
	}

	b := &Batch{}
	for _, p := range spec.Combos {
		b.Columns = append(b.Columns, p.Name)
	}
	b.Columns = append(b.Columns, "site")
	for _, p := range spec.BySite {
		b.Columns = append(b.Columns, p.Name)
	}
	for _, p := range spec.Constants {
		b.Columns = append(b.Columns, p.Name)
	}

	combos := cartesian(spec.Combos)
	for si, site := range spec.Sites {
		for _, combo := range combos {
			row := make([]string, 0, len(b.Columns))
			row = append(row, combo...)
			row = append(row, site)
			for _, p := range spec.BySite {
				row = append(row, p.Values[si])
			}
			for _, p := range spec.Constants {
				row = append(row, p.Values[0])
			}
			b.Rows = append(b.Rows, row)
		}
	}

	if spec.AddControl {
		if err := b.addControls(spec.Sites); err != nil {
			return nil, err
		}
	}

	if err := b.addRunIDs(spec.Prefix, spec.ClimTag); err != nil {
		return nil, err
	}
	return b, nil
}

// cartesian expands params in row-major order, the last parameter varying
// fastest.
func cartesian(params []Param) [][]string {
	rows := [][]string{nil}
	for _, p := range params {
		next := make([][]string, 0, len(rows)*len(p.Values))
		for _, row := range rows {
			for _, v := range p.Values {
				r := make([]string, len(row), len(row)+1)
				copy(r, row)
				next = append(next, append(r, v))
			}
		}
		rows = next
	}
	return rows
}

// addControls prepends, per site, a copy of that site's first row with the
// application rate zeroed.
func (b *Batch) addControls(sites []string) error {
	rateIdx := b.Col("dustrate")
	if rateIdx < 0 {
		return fmt.Errorf("sweep: control rows need a dustrate column")
	}
	siteIdx := b.Col("site")
	var controls [][]string
	for _, site := range sites {
		for _, row := range b.Rows {
			if row[siteIdx] != site {
				continue
			}
			ctrl := make([]string, len(row))
			copy(ctrl, row)
			ctrl[rateIdx] = "0.0"
			controls = append(controls, ctrl)
			break
		}
	}
	b.Rows = append(controls, b.Rows...)
	return nil
}

// addRunIDs appends the newrun_id column. IDs embed the site, application
// rate, and particle size, with decimal points rewritten so the ID is safe
// as a directory name.
func (b *Batch) addRunIDs(prefix, climTag string) error {
	siteIdx := b.Col("site")
	rateIdx := b.Col("dustrate")
	radIdx := b.Col("dustrad")

	b.Columns = append(b.Columns, "newrun_id")
	seen := make(map[string]int, len(b.Rows))
	for i, row := range b.Rows {
		parts := make([]string, 0, 5)
		if prefix != "" {
			parts = append(parts, prefix)
		}
		parts = append(parts, row[siteIdx])
		if climTag != "" {
			parts = append(parts, climTag)
		}
		if rateIdx >= 0 {
			parts = append(parts, "app_"+safeToken(row[rateIdx]))
		}
		if radIdx >= 0 {
			parts = append(parts, "psize_"+safeToken(row[radIdx]))
		}
		id := strings.Join(parts, "_")
		if prev, dup := seen[id]; dup {
			return fmt.Errorf("sweep: rows %d and %d share run id %q", prev, i, id)
		}
		seen[id] = i
		b.Rows[i] = append(row, id)
	}
	return nil
}

func safeToken(v string) string {
	return strings.ReplaceAll(v, ".", "p")
}

// WriteCSV writes the batch to path, creating parent directories.
func (b *Batch) WriteCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(b.Columns); err != nil {
		_ = f.Close()
		return fmt.Errorf("sweep: %w", err)
	}
	if err := w.WriteAll(b.Rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("sweep: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	return nil
}

// WriteCSVSplit writes the batch as numbered CSV files of at most maxRows
// rows each, named <base>_setNNN.csv under dir. It returns the file paths.
func (b *Batch) WriteCSVSplit(dir, base string, maxRows int) ([]string, error) {
	if maxRows <= 0 {
		return nil, fmt.Errorf("sweep: maxRows must be positive")
	}
	base = strings.TrimSuffix(base, ".csv")
	var paths []string
	for start, set := 0, 1; start < len(b.Rows); start, set = start+maxRows, set+1 {
		end := start + maxRows
		if end > len(b.Rows) {
			end = len(b.Rows)
		}
		part := &Batch{Columns: b.Columns, Rows: b.Rows[start:end]}
		path := filepath.Join(dir, fmt.Sprintf("%s_set%03d.csv", base, set))
		if err := part.WriteCSV(path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
