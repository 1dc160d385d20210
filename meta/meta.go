// Package meta reads sample metadata tables and applies case subsets
// to them.
package meta

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Table is a sample metadata table. The first column holds the unique
// sample identifier and is the row key for all subsetting. Row order is
// significant and preserved by every operation.
type Table struct {
	Columns []string
	Rows    [][]string
}

// MissingColumnError reports a case variable absent from the metadata.
// Callers usually skip the case group for that dataset rather than
// abort.
type MissingColumnError struct {
	Column string
}

func (e MissingColumnError) Error() string {
	return fmt.Sprintf("metadata has no column %q", e.Column)
}

// Read loads a tab-separated metadata table. The header row is
// required; ragged rows are an error.
func Read(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, errors.Wrap(err, "read metadata")
	}
	defer f.Close()

	var table Table
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if table.Columns == nil {
			table.Columns = fields
			continue
		}
		if len(fields) != len(table.Columns) {
			return Table{}, errors.Errorf("%s: row %d has %d fields, header has %d",
				path, len(table.Rows)+2, len(fields), len(table.Columns))
		}
		table.Rows = append(table.Rows, fields)
	}
	if err := scanner.Err(); err != nil {
		return Table{}, errors.Wrap(err, "read metadata")
	}
	if table.Columns == nil {
		return Table{}, errors.Errorf("%s: empty metadata table", path)
	}
	return table, nil
}

// Column returns the index of the named column, or a MissingColumnError.
func (t Table) Column(name string) (int, error) {
	for i, col := range t.Columns {
		if col == name {
			return i, nil
		}
	}
	return -1, MissingColumnError{Column: name}
}

// Values returns the named column's cells in row order.
func (t Table) Values(name string) ([]string, error) {
	idx, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	vals := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		vals[i] = row[idx]
	}
	return vals, nil
}

// SampleIDs returns the row keys in row order.
func (t Table) SampleIDs() []string {
	ids := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		ids[i] = row[0]
	}
	return ids
}

// Uniques returns the distinct values of the named column.
func (t Table) Uniques(name string) ([]string, error) {
	idx, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var uniques []string
	for _, row := range t.Rows {
		if _, ok := seen[row[idx]]; !ok {
			seen[row[idx]] = struct{}{}
			uniques = append(uniques, row[idx])
		}
	}
	return uniques, nil
}

// Copy returns a new table sharing no row slices with the receiver.
func (t Table) Copy() Table {
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = append([]string(nil), row...)
	}
	return Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    rows,
	}
}

// Subset applies one case to the table and returns the filtered copy.
//
// A case label containing ALL keeps everything. A value-list holding
// any '<'/'>'-prefixed entry is read entirely as bound expressions
// AND-ed together, with inclusive comparisons: '>x' keeps rows whose
// value is >= x and '<x' keeps rows whose value is <= x. Otherwise the
// value-list is a membership set. The input table is never mutated.
func (t Table) Subset(caseLabel, variable string, vals []string) (Table, error) {
	if strings.Contains(caseLabel, AllLabel) {
		return t.Copy(), nil
	}
	bound := boundOrMembership(vals)
	idx, err := t.Column(variable)
	if err != nil {
		return Table{}, err
	}
	out := Table{Columns: append([]string(nil), t.Columns...)}
	if bound {
		keep := make([]bool, len(t.Rows))
		for i := range keep {
			keep[i] = true
		}
		for _, val := range vals {
			op, threshold, err := parseBound(val)
			if err != nil {
				return Table{}, err
			}
			for i, row := range t.Rows {
				if !keep[i] {
					continue
				}
				cell, err := strconv.ParseFloat(row[idx], 64)
				if err != nil {
					return Table{}, errors.Errorf("column %q: value %q is not numeric", variable, row[idx])
				}
				switch op {
				case '>':
					keep[i] = cell >= threshold
				case '<':
					keep[i] = cell <= threshold
				}
			}
		}
		for i, row := range t.Rows {
			if keep[i] {
				out.Rows = append(out.Rows, append([]string(nil), row...))
			}
		}
		return out, nil
	}
	members := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		members[v] = struct{}{}
	}
	for _, row := range t.Rows {
		if _, ok := members[row[idx]]; ok {
			out.Rows = append(out.Rows, append([]string(nil), row...))
		}
	}
	return out, nil
}

// AllLabel mirrors cases.AllGroup without importing it; the two
// packages are kept independent.
const AllLabel = "ALL"

func boundOrMembership(vals []string) bool {
	for _, v := range vals {
		if strings.HasPrefix(v, "<") || strings.HasPrefix(v, ">") {
			return true
		}
	}
	return false
}

func parseBound(val string) (byte, float64, error) {
	if len(val) < 2 {
		return 0, 0, errors.Errorf("bound expression %q too short", val)
	}
	op := val[0]
	if op != '<' && op != '>' {
		return 0, 0, errors.Errorf("bound expression %q must start with '<' or '>'", val)
	}
	threshold, err := strconv.ParseFloat(val[1:], 64)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "bound expression %q", val)
	}
	return op, threshold, nil
}

// Write saves the table as TSV, creating parent directories as needed.
func (t Table) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "write metadata")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "write metadata")
	}
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrap(err, "write metadata")
	}
	return f.Close()
}
