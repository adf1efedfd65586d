package table

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
)

var ErrNoHeader = errors.New("csv input has no header row")

// CSVOptions configures ReadCSV
type CSVOptions struct {
	Delimiter rune
	// MaxRows stops reading after this many data rows; 0 reads everything.
	MaxRows int
}

// NewDefaultCSVOptions returns comma separated options with no row limit
func NewDefaultCSVOptions() *CSVOptions {
	return &CSVOptions{Delimiter: ','}
}

// ReadCSV loads a table from delimited text with a header row. Empty cells become
// nil and cells that parse as numbers become float64 so numeric columns are
// classified the same way as typed input.
func ReadCSV(r io.Reader, opt *CSVOptions) (*Table, error) {
	if opt == nil {
		opt = NewDefaultCSVOptions()
	}
	reader := csv.NewReader(r)
	if opt.Delimiter != 0 {
		reader.Comma = opt.Delimiter
	}
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to read csv header")
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = h
		if columns[i] == "" {
			columns[i] = "column_" + strconv.Itoa(i)
		}
	}

	var rows []Row
	for {
		if opt.MaxRows > 0 && len(rows) >= opt.MaxRows {
			break
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read csv row %d", len(rows)+1)
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			if i >= len(record) {
				row[col] = nil
				continue
			}
			row[col] = csvCell(record[i])
		}
		rows = append(rows, row)
	}
	return New(columns, rows)
}

func csvCell(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return s
}

// Document is the JSON form of a table. Rows may be objects keyed by column or
// arrays in column order.
type Document struct {
	Columns []string          `json:"columns"`
	Rows    []json.RawMessage `json:"rows"`
}

// ReadJSON loads a table from either a Document or a bare array of row objects.
// Columns of a bare array are the union of row keys in sorted order.
func ReadJSON(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read json input")
	}
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) > 0 && data[0] == '[' {
		var records []map[string]any
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, errors.Wrap(err, "unable to decode json rows")
		}
		return FromRecords(nil, records)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "unable to decode json table")
	}
	return doc.Table()
}

// Table converts the document into a Table
func (d Document) Table() (*Table, error) {
	records := make([]map[string]any, 0, len(d.Rows))
	for i, raw := range d.Rows {
		trimmed := strings.TrimSpace(string(raw))
		if strings.HasPrefix(trimmed, "[") {
			var cells []any
			if err := json.Unmarshal(raw, &cells); err != nil {
				return nil, errors.Wrapf(err, "unable to decode row %d", i)
			}
			if len(cells) > len(d.Columns) {
				return nil, errors.Wrapf(ErrMismatchedDataLen, "row %d has %d cells for %d columns", i, len(cells), len(d.Columns))
			}
			rec := make(map[string]any, len(d.Columns))
			for j, c := range cells {
				rec[d.Columns[j]] = c
			}
			records = append(records, rec)
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, errors.Wrapf(err, "unable to decode row %d", i)
		}
		records = append(records, rec)
	}
	return FromRecords(d.Columns, records)
}

// FromRecords builds a table from row maps. When columns is empty the union of
// record keys is used in sorted order.
func FromRecords(columns []string, records []map[string]any) (*Table, error) {
	if len(columns) == 0 {
		seen := make(map[string]struct{})
		for _, rec := range records {
			for k := range rec {
				if _, exists := seen[k]; exists {
					continue
				}
				seen[k] = struct{}{}
				columns = append(columns, k)
			}
		}
		sort.Strings(columns)
	}
	rows := make([]Row, len(records))
	for i, rec := range records {
		rows[i] = Row(rec)
	}
	return New(columns, rows)
}
