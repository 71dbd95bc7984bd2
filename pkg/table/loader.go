package table

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// ColumnSpec declares one column of a file kind: its name and whether it is
// numeric or categorical.
type ColumnSpec struct {
	Name string
	Kind Kind
}

// Schema declares the shape of a file kind up front. Required columns must be
// present in the header or the load fails fast; columns not covered by the
// schema default to Numeric. The zero value accepts any all-numeric file.
type Schema struct {
	Required []ColumnSpec
}

func (s Schema) kindOf(name string) Kind {
	for _, c := range s.Required {
		if c.Name == name {
			return c.Kind
		}
	}
	return Numeric
}

// FluxSchema is the schema for the ordinary flux time-series files
// (flx_gas-*, flx_co2sp-*, flx_aq-*, flx_sld-* and their int_ counterparts):
// a time column plus arbitrary numeric flux columns.
var FluxSchema = Schema{Required: []ColumnSpec{{Name: "time", Kind: Numeric}}}

// DustSchema is the schema for flx/dust.txt, the one input carrying
// categorical dust-species labels alongside numeric application rates.
var DustSchema = Schema{Required: []ColumnSpec{
	{Name: "time", Kind: Numeric},
	{Name: "dustsp1", Kind: Text},
	{Name: "dustsp2", Kind: Text},
	{Name: "dust1_g_m2_yr", Kind: Numeric},
	{Name: "dust2_g_m2_yr", Kind: Numeric},
}}

// LoadFile parses a whitespace-delimited fixed-header text file into a Table.
// The first non-empty line is the header; every following non-empty line is
// one row. Fields are coerced to float64 unless the schema declares the
// column as Text; a failed coercion is a MalformedTableError.
func LoadFile(path string, schema Schema) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	t, err := Read(f, schema)
	if err != nil {
		var m *MalformedTableError
		if errors.As(err, &m) {
			m.File = path
		}
		return nil, err
	}
	return t, nil
}

// LoadRunFile loads <runDir>/<subdir>/<filename>, translating a
// file-not-found into a MissingInputError tagged with the run name.
func LoadRunFile(runDir, subdir, filename string, schema Schema) (*Table, error) {
	path := filepath.Join(runDir, subdir, filename)
	t, err := LoadFile(path, schema)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &MissingInputError{Run: filepath.Base(runDir), File: filepath.Join(subdir, filename), Err: err}
	}
	return t, err
}

// Read parses header+rows from r. Used directly by tests; LoadFile adds the
// file name to any malformed-table error.
func Read(r io.Reader, schema Schema) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var header []string
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		header = strings.Fields(line)
		break
	}
	if len(header) == 0 {
		return nil, &MalformedTableError{Line: lineNo, Err: fmt.Errorf("empty table: no header line")}
	}
	for _, req := range schema.Required {
		if !slices.Contains(header, req.Name) {
			return nil, &MalformedTableError{Line: lineNo, Err: fmt.Errorf("header missing required column %q", req.Name)}
		}
	}

	kinds := make([]Kind, len(header))
	floats := make([][]float64, len(header))
	strs := make([][]string, len(header))
	for i, name := range header {
		kinds[i] = schema.kindOf(name)
	}

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != len(header) {
			return nil, &MalformedTableError{Line: lineNo, Err: fmt.Errorf("row has %d fields, header has %d", len(fields), len(header))}
		}
		for i, field := range fields {
			if kinds[i] == Text {
				strs[i] = append(strs[i], field)
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, &MalformedTableError{Line: lineNo, Column: header[i], Value: field, Err: err}
			}
			floats[i] = append(floats[i], v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	t := New()
	for i, name := range header {
		if kinds[i] == Text {
			if err := t.AddText(name, strs[i]); err != nil {
				return nil, err
			}
		} else {
			if err := t.AddNumeric(name, floats[i]); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}
