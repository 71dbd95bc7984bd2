// Package table implements the column-oriented time-series tables produced by
// the simulator's whitespace-delimited flux output, plus the loader that
// parses them against a declared per-file schema.
package table

import (
	"fmt"
	"math"
	"slices"
)

// Kind distinguishes numeric columns from categorical (text) columns.
type Kind int

const (
	// Numeric columns hold float64 samples, one per row.
	Numeric Kind = iota
	// Text columns hold string labels, one per row (e.g. dust species IDs).
	Text
)

// Column is a single named column. Exactly one of Floats/Strings is populated
// depending on Kind.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
}

// Table is an ordered collection of equal-length columns. The zero value is
// an empty table ready for use.
type Table struct {
	cols  []Column
	index map[string]int
}

// New returns an empty table.
func New() *Table {
	return &Table{index: map[string]int{}}
}

// Len reports the number of rows.
func (t *Table) Len() int {
	if len(t.cols) == 0 {
		return 0
	}
	c := t.cols[0]
	if c.Kind == Text {
		return len(c.Strings)
	}
	return len(c.Floats)
}

// Names returns the column names in table order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column, or nil if absent.
func (t *Table) Column(name string) *Column {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	return &t.cols[i]
}

// Floats returns the values of a numeric column, or an error if the column is
// absent or categorical. The returned slice aliases table storage.
func (t *Table) Floats(name string) ([]float64, error) {
	c := t.Column(name)
	if c == nil {
		return nil, fmt.Errorf("table: no column %q", name)
	}
	if c.Kind != Numeric {
		return nil, fmt.Errorf("table: column %q is not numeric", name)
	}
	return c.Floats, nil
}

// Strings returns the values of a text column, or an error if the column is
// absent or numeric.
func (t *Table) Strings(name string) ([]string, error) {
	c := t.Column(name)
	if c == nil {
		return nil, fmt.Errorf("table: no column %q", name)
	}
	if c.Kind != Text {
		return nil, fmt.Errorf("table: column %q is not text", name)
	}
	return c.Strings, nil
}

// Time returns the time column.
func (t *Table) Time() ([]float64, error) {
	return t.Floats("time")
}

func (t *Table) checkLen(n int) error {
	if t.Len() != 0 && t.Len() != n {
		return fmt.Errorf("table: column length %d does not match row count %d", n, t.Len())
	}
	return nil
}

// AddNumeric appends (or replaces) a numeric column. The slice is not copied.
func (t *Table) AddNumeric(name string, vals []float64) error {
	if err := t.checkLen(len(vals)); err != nil {
		return err
	}
	t.put(Column{Name: name, Kind: Numeric, Floats: vals})
	return nil
}

// AddText appends (or replaces) a text column. The slice is not copied.
func (t *Table) AddText(name string, vals []string) error {
	if err := t.checkLen(len(vals)); err != nil {
		return err
	}
	t.put(Column{Name: name, Kind: Text, Strings: vals})
	return nil
}

// SetConstText appends (or replaces) a text column holding the same value in
// every row, used for record tags such as runname and flx_type.
func (t *Table) SetConstText(name, value string) {
	vals := make([]string, t.Len())
	for i := range vals {
		vals[i] = value
	}
	t.put(Column{Name: name, Kind: Text, Strings: vals})
}

func (t *Table) put(c Column) {
	if t.index == nil {
		t.index = map[string]int{}
	}
	if i, ok := t.index[c.Name]; ok {
		t.cols[i] = c
		return
	}
	t.index[c.Name] = len(t.cols)
	t.cols = append(t.cols, c)
}

// Rename renames a column in place. Renaming a missing column is an error.
func (t *Table) Rename(old, new string) error {
	i, ok := t.index[old]
	if !ok {
		return fmt.Errorf("table: no column %q", old)
	}
	delete(t.index, old)
	t.cols[i].Name = new
	t.index[new] = i
	return nil
}

// Drop removes the named columns, ignoring those that are absent.
func (t *Table) Drop(names ...string) {
	keep := t.cols[:0]
	idx := map[string]int{}
	for _, c := range t.cols {
		if slices.Contains(names, c.Name) {
			continue
		}
		idx[c.Name] = len(keep)
		keep = append(keep, c)
	}
	t.cols = keep
	t.index = idx
}

// Select returns a new table containing copies of the named columns, in the
// given order. A missing column is an error.
func (t *Table) Select(names ...string) (*Table, error) {
	out := New()
	for _, name := range names {
		c := t.Column(name)
		if c == nil {
			return nil, fmt.Errorf("table: no column %q", name)
		}
		cp := Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == Numeric {
			cp.Floats = slices.Clone(c.Floats)
		} else {
			cp.Strings = slices.Clone(c.Strings)
		}
		out.put(cp)
	}
	return out, nil
}

// Present returns the subset of names that exist as columns, preserving the
// order of the input list. Computing the present/absent split once up front
// keeps the assemblers' branching explicit.
func (t *Table) Present(names []string) []string {
	var out []string
	for _, n := range names {
		if t.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

// SumInto creates (or replaces) a numeric column named dst holding the
// row-wise sum of the src columns.
func (t *Table) SumInto(dst string, srcs []string) error {
	sum := make([]float64, t.Len())
	for _, s := range srcs {
		vals, err := t.Floats(s)
		if err != nil {
			return err
		}
		for i, v := range vals {
			sum[i] += v
		}
	}
	return t.AddNumeric(dst, sum)
}

// ScaleExcept multiplies every numeric column by factor, leaving the listed
// columns untouched. Text columns are never scaled.
func (t *Table) ScaleExcept(factor float64, except ...string) {
	for i := range t.cols {
		c := &t.cols[i]
		if c.Kind != Numeric || slices.Contains(except, c.Name) {
			continue
		}
		for j := range c.Floats {
			c.Floats[j] *= factor
		}
	}
}

// MulByColumnExcept multiplies every numeric column, element-wise, by the
// named column's values, leaving that column and the listed exceptions
// untouched. This is the correction that turns the upstream
// average-rate-over-elapsed-time files into true cumulative quantities.
func (t *Table) MulByColumnExcept(by string, except ...string) error {
	mult, err := t.Floats(by)
	if err != nil {
		return err
	}
	for i := range t.cols {
		c := &t.cols[i]
		if c.Kind != Numeric || c.Name == by || slices.Contains(except, c.Name) {
			continue
		}
		for j := range c.Floats {
			c.Floats[j] *= mult[j]
		}
	}
	return nil
}

// TrimNegligible removes numeric columns whose absolute values never exceed
// threshold, except the protected columns.
func (t *Table) TrimNegligible(threshold float64, protected ...string) {
	var drop []string
	for _, c := range t.cols {
		if c.Kind != Numeric || slices.Contains(protected, c.Name) {
			continue
		}
		negligible := true
		for _, v := range c.Floats {
			if math.Abs(v) > threshold {
				negligible = false
				break
			}
		}
		if negligible {
			drop = append(drop, c.Name)
		}
	}
	t.Drop(drop...)
}

// Concat appends the rows of other beneath t and returns the combined table.
// The column set is the union: a column missing from one side is padded with
// NaN (numeric) or the empty string (text) for that side's rows. Neither
// input is modified.
func Concat(a, b *Table) (*Table, error) {
	out := New()
	n, m := a.Len(), b.Len()
	names := a.Names()
	for _, name := range b.Names() {
		if !a.Has(name) {
			names = append(names, name)
		}
	}
	for _, name := range names {
		ca, cb := a.Column(name), b.Column(name)
		kind := Numeric
		if (ca != nil && ca.Kind == Text) || (cb != nil && cb.Kind == Text) {
			kind = Text
		}
		if ca != nil && cb != nil && ca.Kind != cb.Kind {
			return nil, fmt.Errorf("table: column %q kind mismatch in concat", name)
		}
		if kind == Numeric {
			vals := make([]float64, 0, n+m)
			vals = appendFloats(vals, ca, n)
			vals = appendFloats(vals, cb, m)
			out.put(Column{Name: name, Kind: Numeric, Floats: vals})
		} else {
			vals := make([]string, 0, n+m)
			vals = appendStrings(vals, ca, n)
			vals = appendStrings(vals, cb, m)
			out.put(Column{Name: name, Kind: Text, Strings: vals})
		}
	}
	return out, nil
}

func appendFloats(dst []float64, c *Column, n int) []float64 {
	if c == nil {
		for i := 0; i < n; i++ {
			dst = append(dst, math.NaN())
		}
		return dst
	}
	return append(dst, c.Floats...)
}

func appendStrings(dst []string, c *Column, n int) []string {
	if c == nil {
		for i := 0; i < n; i++ {
			dst = append(dst, "")
		}
		return dst
	}
	return append(dst, c.Strings...)
}
