// Package loader reads the initial dataset of a grid from disk.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kobzarvs/qgrid/internal/protocol"
)

// DefaultIndexName is the name of the index column added to datasets that
// have none.
const DefaultIndexName = "Index"

var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// Dataset is a table ready to back a model. Columns[0] is the index column.
type Dataset struct {
	IndexName string
	Columns   []protocol.ColumnSpec
	Records   []map[string]any
}

// Load reads a .json or .xlsx dataset.
func Load(path string) (*Dataset, error) {
	var (
		ds  *Dataset
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		ds, err = ParseJSON(data)
	case ".xlsx", ".xlsm":
		ds, err = LoadXLSX(path)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return ds, nil
}

type jsonTable struct {
	Index   string                `json:"index,omitempty"`
	Columns []protocol.ColumnSpec `json:"columns"`
	Rows    []map[string]any      `json:"rows"`
}

// ParseJSON accepts either {"columns": [...], "rows": [...]} or a bare list
// of records. Column order of a bare list follows the first record.
func ParseJSON(data []byte) (*Dataset, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty dataset")
	}
	var ds *Dataset
	if trimmed[0] == '[' {
		var rows []map[string]any
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, err
		}
		order, err := firstRecordKeys(trimmed)
		if err != nil {
			return nil, err
		}
		ds = &Dataset{Records: rows, Columns: specsFor(order, rows)}
	} else {
		var tbl jsonTable
		if err := json.Unmarshal(trimmed, &tbl); err != nil {
			return nil, err
		}
		cols := tbl.Columns
		if len(cols) == 0 && len(tbl.Rows) > 0 {
			order, err := tableRowKeys(trimmed)
			if err != nil {
				return nil, err
			}
			cols = specsFor(order, tbl.Rows)
		}
		ds = &Dataset{IndexName: tbl.Index, Columns: cols, Records: tbl.Rows}
		ds.fillTypes()
	}
	ds.ensureIndex()
	return ds, nil
}

// firstRecordKeys walks the tokens of a record list and returns the keys of
// the first record in document order.
func firstRecordKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if !dec.More() {
		return nil, nil
	}
	return objectKeys(dec)
}

// tableRowKeys finds "rows" in a table object and returns the keys of its
// first record.
func tableRowKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if key, _ := tok.(string); key == "rows" {
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			if !dec.More() {
				return nil, nil
			}
			return objectKeys(dec)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func objectKeys(dec *json.Decoder) ([]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("record is %v, want object", tok)
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// LoadXLSX reads the first sheet of a workbook. The first row is the header.
func LoadXLSX(path string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h, _ = excelize.ColumnNumberToName(i + 1)
		}
		header[i] = h
	}

	records := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]any, len(header))
		empty := true
		for i, name := range header {
			var v any
			if i < len(row) && row[i] != "" {
				v = parseValue(row[i])
				empty = false
			}
			rec[name] = v
		}
		if !empty {
			records = append(records, rec)
		}
	}

	ds := &Dataset{Records: records, Columns: specsFor(header, records)}
	ds.ensureIndex()
	return ds, nil
}

// parseValue reads a sheet cell as a number when it looks like one.
func parseValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return float64(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return s
}

func specsFor(order []string, rows []map[string]any) []protocol.ColumnSpec {
	specs := make([]protocol.ColumnSpec, 0, len(order))
	for _, name := range order {
		specs = append(specs, protocol.ColumnSpec{Field: name, Type: inferType(name, rows)})
	}
	return specs
}

func (ds *Dataset) fillTypes() {
	for i, c := range ds.Columns {
		if c.Type == "" {
			ds.Columns[i].Type = inferType(c.Field, ds.Records)
		}
	}
}

// inferType names the kind of values a column holds: "integer", "float",
// "datetime", "boolean" or "object".
func inferType(field string, rows []map[string]any) string {
	kind := ""
	for _, rec := range rows {
		v, ok := rec[field]
		if !ok || v == nil {
			continue
		}
		k := "object"
		switch x := v.(type) {
		case float64:
			k = "integer"
			if x != math.Trunc(x) {
				k = "float"
			}
		case bool:
			k = "boolean"
		case string:
			if isDate(x) {
				k = "datetime"
			}
		}
		switch {
		case kind == "":
			kind = k
		case kind == k:
		case (kind == "integer" && k == "float") || (kind == "float" && k == "integer"):
			kind = "float"
		default:
			return "object"
		}
	}
	if kind == "" {
		return "object"
	}
	return kind
}

func isDate(s string) bool {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// ensureIndex moves the index column to the front, adding an ordinal one when
// the dataset has none.
func (ds *Dataset) ensureIndex() {
	if ds.IndexName == "" {
		for _, c := range ds.Columns {
			if c.Field == DefaultIndexName {
				ds.IndexName = DefaultIndexName
				break
			}
		}
	}
	if ds.IndexName == "" {
		ds.IndexName = DefaultIndexName
		ds.Columns = append([]protocol.ColumnSpec{{Field: DefaultIndexName, Type: "integer"}}, ds.Columns...)
		for i, rec := range ds.Records {
			rec[DefaultIndexName] = float64(i)
		}
		return
	}
	for i, c := range ds.Columns {
		if c.Field == ds.IndexName {
			if i > 0 {
				cols := make([]protocol.ColumnSpec, 0, len(ds.Columns))
				cols = append(cols, c)
				cols = append(cols, ds.Columns[:i]...)
				cols = append(cols, ds.Columns[i+1:]...)
				ds.Columns = cols
			}
			return
		}
	}
	ds.Columns = append([]protocol.ColumnSpec{{Field: ds.IndexName, Type: inferType(ds.IndexName, ds.Records)}}, ds.Columns...)
}

// WriteJSON writes ds in the table form ParseJSON reads.
func (ds *Dataset) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonTable{Index: ds.IndexName, Columns: ds.Columns, Rows: ds.Records})
}
