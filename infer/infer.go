// Package infer selects the date column and the value column of an arbitrary
// table. Selection is a prioritized rule chain: the first rule that yields a
// column wins, and the final rule of each chain synthesizes a column so a
// selection always exists.
package infer

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/srirammulukuntla11/forecastpro-app/table"
	"gonum.org/v1/gonum/stat"
)

const (
	SyntheticDateColumn  = "_synthetic_date"
	SyntheticValueColumn = "_synthetic_value"
)

var (
	DefaultDatePatterns  = []string{"date", "time", "day", "month", "year", "order", "ship", "created", "timestamp"}
	DefaultValuePatterns = []string{"sales", "revenue", "profit", "amount", "total", "price", "value", "cost", "income"}

	// DefaultSyntheticStart is the first day of a synthesized daily date column
	DefaultSyntheticStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Options configures column inference
type Options struct {
	DatePatterns  []string
	ValuePatterns []string

	// SampleSize is the number of leading values checked for date parseability.
	// Strictly more than MinParsedRatio of the sampled values must parse, so a
	// full sample of 100 needs more than 50.
	SampleSize     int
	MinParsedRatio float64

	SyntheticStart time.Time
}

// NewDefaultOptions returns the default inference options
func NewDefaultOptions() *Options {
	return &Options{
		DatePatterns:   slices.Clone(DefaultDatePatterns),
		ValuePatterns:  slices.Clone(DefaultValuePatterns),
		SampleSize:     100,
		MinParsedRatio: 0.5,
		SyntheticStart: DefaultSyntheticStart,
	}
}

// Validate fills any unset option with its default
func (o *Options) Validate() *Options {
	if o == nil {
		return NewDefaultOptions()
	}
	def := NewDefaultOptions()
	if len(o.DatePatterns) == 0 {
		o.DatePatterns = def.DatePatterns
	}
	if len(o.ValuePatterns) == 0 {
		o.ValuePatterns = def.ValuePatterns
	}
	if o.SampleSize <= 0 {
		o.SampleSize = def.SampleSize
	}
	if o.MinParsedRatio <= 0 || o.MinParsedRatio >= 1 {
		o.MinParsedRatio = def.MinParsedRatio
	}
	if o.SyntheticStart.IsZero() {
		o.SyntheticStart = def.SyntheticStart
	}
	return o
}

// Selection names a chosen column and the rule that chose it
type Selection struct {
	Column    string `json:"column"`
	Rule      string `json:"rule"`
	Synthetic bool   `json:"synthetic"`
}

// Result is the outcome of inference. Table is the working copy with normalized
// column names and any synthetic column injected; the input table is not modified.
type Result struct {
	Date  Selection    `json:"date"`
	Value Selection    `json:"value"`
	Table *table.Table `json:"-"`
}

// Rule selects a column from the table or reports that it does not apply
type Rule struct {
	Name   string
	Select func(tbl *table.Table, opt *Options) (string, bool)
}

// DateRules returns the date selection chain without the synthetic fallback
func DateRules() []Rule {
	return []Rule{
		{Name: "date_name_pattern", Select: dateByName},
		{Name: "date_text_shape", Select: dateByShape},
	}
}

// ValueRules returns the value selection chain without the synthetic fallback
func ValueRules() []Rule {
	return []Rule{
		{Name: "value_name_pattern", Select: valueByName},
		{Name: "value_largest_mean", Select: valueByLargestMean},
		{Name: "value_first_numeric", Select: firstNumeric},
	}
}

// NormalizeColumnName strips surrounding whitespace and collapses embedded line
// breaks: newlines become spaces and carriage returns are removed.
func NormalizeColumnName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\n", " ")
	return strings.ReplaceAll(name, "\r", "")
}

// Columns infers the date and value columns of tbl
func Columns(tbl *table.Table, opt *Options) (*Result, error) {
	if tbl == nil {
		return nil, table.ErrNoColumns
	}
	opt = opt.Validate()

	work := tbl.Clone()
	work.RenameColumns(NormalizeColumnName)

	res := &Result{Table: work}

	date, ok := runChain(work, opt, DateRules())
	if !ok {
		if err := work.AddColumn(SyntheticDateColumn, syntheticDates(work.Len(), opt.SyntheticStart)); err != nil {
			return nil, errors.Wrap(err, "unable to add synthetic date column")
		}
		date = Selection{Column: SyntheticDateColumn, Rule: "date_synthetic", Synthetic: true}
		slog.Warn("no date column detected, using synthetic daily dates", "start", opt.SyntheticStart, "rows", work.Len())
	}
	res.Date = date

	value, ok := runChain(work, opt, ValueRules())
	if !ok {
		if err := work.AddColumn(SyntheticValueColumn, syntheticValues(work.Len())); err != nil {
			return nil, errors.Wrap(err, "unable to add synthetic value column")
		}
		value = Selection{Column: SyntheticValueColumn, Rule: "value_synthetic", Synthetic: true}
		slog.Warn("no numeric column detected, using synthetic row sequence", "rows", work.Len())
	}
	res.Value = value

	slog.Debug("inferred columns",
		"date_column", res.Date.Column, "date_rule", res.Date.Rule,
		"value_column", res.Value.Column, "value_rule", res.Value.Rule)
	return res, nil
}

func runChain(tbl *table.Table, opt *Options, rules []Rule) (Selection, bool) {
	for _, r := range rules {
		if col, ok := r.Select(tbl, opt); ok {
			return Selection{Column: col, Rule: r.Name}, true
		}
	}
	return Selection{}, false
}

func containsAny(name string, patterns []string) bool {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func mostlyDates(tbl *table.Table, col string, opt *Options) bool {
	head, err := tbl.Head(col, opt.SampleSize)
	if err != nil {
		return false
	}
	if len(head) == 0 {
		return false
	}
	return float64(table.ParseableDates(head)) > opt.MinParsedRatio*float64(len(head))
}

func dateByName(tbl *table.Table, opt *Options) (string, bool) {
	for _, col := range tbl.Columns() {
		if !containsAny(col, opt.DatePatterns) {
			continue
		}
		if mostlyDates(tbl, col, opt) {
			return col, true
		}
	}
	return "", false
}

func dateByShape(tbl *table.Table, opt *Options) (string, bool) {
	if tbl.Len() == 0 {
		return "", false
	}
	for _, col := range tbl.Columns() {
		kind := tbl.Kind(col)
		if kind != table.KindText && kind != table.KindMixed {
			continue
		}
		sample, ok := tbl.Value(0, col).(string)
		if !ok {
			continue
		}
		if !strings.ContainsAny(sample, "/-") || !strings.ContainsAny(sample, "0123456789") {
			continue
		}
		if mostlyDates(tbl, col, opt) {
			return col, true
		}
	}
	return "", false
}

func valueByName(tbl *table.Table, opt *Options) (string, bool) {
	for _, col := range tbl.Columns() {
		if !containsAny(col, opt.ValuePatterns) {
			continue
		}
		if tbl.Kind(col) == table.KindNumeric {
			return col, true
		}
	}
	return "", false
}

func valueByLargestMean(tbl *table.Table, _ *Options) (string, bool) {
	var (
		best     string
		bestMean float64
		found    bool
	)
	for _, col := range tbl.NumericColumns() {
		vals, _ := tbl.Floats(col)
		if len(vals) == 0 {
			continue
		}
		mean := stat.Mean(vals, nil)
		if mean <= 0 {
			continue
		}
		if !found || mean > bestMean {
			best, bestMean, found = col, mean, true
		}
	}
	return best, found
}

func firstNumeric(tbl *table.Table, _ *Options) (string, bool) {
	cols := tbl.NumericColumns()
	if len(cols) == 0 {
		return "", false
	}
	return cols[0], true
}

func syntheticDates(n int, start time.Time) []any {
	vals := make([]any, n)
	for i := 0; i < n; i++ {
		vals[i] = start.AddDate(0, 0, i)
	}
	return vals
}

func syntheticValues(n int) []any {
	vals := make([]any, n)
	for i := 0; i < n; i++ {
		vals[i] = float64(i + 1)
	}
	return vals
}
