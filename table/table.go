// Package table holds the raw, heterogeneous tabular input that the forecasting
// pipeline infers a monthly series from.
package table

import (
	"time"

	"github.com/cockroachdb/errors"
)

var (
	ErrNoColumns         = errors.New("table has no columns")
	ErrColumnExists      = errors.New("column already exists in table")
	ErrUnknownColumn     = errors.New("unknown column")
	ErrMismatchedDataLen = errors.New("column data has different length than table rows")
)

// Row maps a column name to a cell value. Cells may be nil, a string, a Go numeric
// type, a bool or a time.Time.
type Row map[string]any

// Kind classifies the cells of a column.
type Kind int

const (
	KindEmpty Kind = iota
	KindNumeric
	KindText
	KindTime
	KindMixed
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	case KindTime:
		return "time"
	case KindMixed:
		return "mixed"
	}
	return "empty"
}

// Table is an ordered set of columns and rows. The table is read-only to the
// forecasting pipeline; anything that needs to add columns works on a Clone.
type Table struct {
	columns []string
	index   map[string]int
	rows    []Row
}

// New returns a table with the given column order and rows. Row keys that are not
// listed in columns are ignored by every accessor.
func New(columns []string, rows []Row) (*Table, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	t := &Table{
		columns: make([]string, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
		rows:    rows,
	}
	for _, c := range columns {
		if _, exists := t.index[c]; exists {
			return nil, errors.Wrapf(ErrColumnExists, "column %q", c)
		}
		t.index[c] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	if t.rows == nil {
		t.rows = []Row{}
	}
	return t, nil
}

// Columns returns a copy of the column names in order
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Has reports whether the column exists
func (t *Table) Has(name string) bool {
	_, exists := t.index[name]
	return exists
}

// Value returns the cell at row i for the named column, nil when absent.
func (t *Table) Value(i int, name string) any {
	if i < 0 || i >= len(t.rows) {
		return nil
	}
	return t.rows[i][name]
}

// Column returns a copy of every cell in the named column in row order.
func (t *Table) Column(name string) ([]any, error) {
	return t.Head(name, len(t.rows))
}

// Head returns up to the first n cells of the named column.
func (t *Table) Head(name string, n int) ([]any, error) {
	if !t.Has(name) {
		return nil, errors.Wrapf(ErrUnknownColumn, "column %q", name)
	}
	if n > len(t.rows) {
		n = len(t.rows)
	}
	if n < 0 {
		n = 0
	}
	vals := make([]any, n)
	for i := 0; i < n; i++ {
		vals[i] = t.rows[i][name]
	}
	return vals, nil
}

// Clone returns a working copy whose rows can be extended without touching the
// original table.
func (t *Table) Clone() *Table {
	c := &Table{
		columns: t.Columns(),
		index:   make(map[string]int, len(t.index)),
		rows:    make([]Row, len(t.rows)),
	}
	for k, v := range t.index {
		c.index[k] = v
	}
	for i, r := range t.rows {
		nr := make(Row, len(r))
		for k, v := range r {
			nr[k] = v
		}
		c.rows[i] = nr
	}
	return c
}

// Limit returns a table holding the first n rows. Rows are shared with t.
func (t *Table) Limit(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.rows) {
		n = len(t.rows)
	}
	l := &Table{
		columns: t.Columns(),
		index:   make(map[string]int, len(t.index)),
		rows:    t.rows[:n:n],
	}
	for k, v := range t.index {
		l.index[k] = v
	}
	return l
}

// AddColumn appends a new column. values must have one entry per row.
func (t *Table) AddColumn(name string, values []any) error {
	if t.Has(name) {
		return errors.Wrapf(ErrColumnExists, "column %q", name)
	}
	if len(values) != len(t.rows) {
		return errors.Wrapf(ErrMismatchedDataLen, "column %q has %d values for %d rows", name, len(values), len(t.rows))
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
	for i, v := range values {
		t.rows[i][name] = v
	}
	return nil
}

// RenameColumns applies rename to every column name. A rename that would collide
// with another column keeps the original name.
func (t *Table) RenameColumns(rename func(string) string) {
	for i, old := range t.columns {
		name := rename(old)
		if name == old {
			continue
		}
		if _, exists := t.index[name]; exists {
			continue
		}
		delete(t.index, old)
		t.index[name] = i
		t.columns[i] = name
		for _, r := range t.rows {
			if v, ok := r[old]; ok {
				delete(r, old)
				r[name] = v
			}
		}
	}
}

// Kind classifies a column from its non-null cells. A column is numeric only when
// every non-null cell is a Go number.
func (t *Table) Kind(name string) Kind {
	var numeric, text, times int
	for _, r := range t.rows {
		switch v := r[name].(type) {
		case nil:
			continue
		case string:
			text++
		case time.Time:
			times++
		default:
			if _, ok := numberValue(v); ok {
				numeric++
			} else {
				text++
			}
		}
	}
	switch {
	case numeric == 0 && text == 0 && times == 0:
		return KindEmpty
	case text == 0 && times == 0:
		return KindNumeric
	case numeric == 0 && times == 0:
		return KindText
	case numeric == 0 && text == 0:
		return KindTime
	}
	return KindMixed
}

// NumericColumns returns the numeric columns in table order
func (t *Table) NumericColumns() []string {
	var cols []string
	for _, c := range t.columns {
		if t.Kind(c) == KindNumeric {
			cols = append(cols, c)
		}
	}
	return cols
}

// Floats returns the numeric values of a column, skipping cells that cannot be
// coerced. The second slice holds the row index of every returned value.
func (t *Table) Floats(name string) ([]float64, []int) {
	vals := make([]float64, 0, len(t.rows))
	idx := make([]int, 0, len(t.rows))
	for i, r := range t.rows {
		f, ok := ToFloat(r[name])
		if !ok {
			continue
		}
		vals = append(vals, f)
		idx = append(idx, i)
	}
	return vals, idx
}
