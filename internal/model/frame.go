// Package model holds the backing data model a grid stays in sync with.
package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/kobzarvs/qgrid/internal/grid"
	"github.com/kobzarvs/qgrid/internal/logger"
	"github.com/kobzarvs/qgrid/internal/protocol"
)

var (
	ErrEmptyFrame      = errors.New("frame has no rows")
	ErrNonIntegerIndex = errors.New("cannot add a row to a table with a non-integer index")
)

// Frame is a table of records keyed by an index column. The index column is
// the first entry of Columns and its value doubles as the row id.
type Frame struct {
	mu        sync.Mutex
	indexName string
	columns   []protocol.ColumnSpec
	records   []map[string]any
}

func NewFrame(indexName string, columns []protocol.ColumnSpec, records []map[string]any) *Frame {
	return &Frame{
		indexName: indexName,
		columns:   append([]protocol.ColumnSpec(nil), columns...),
		records:   records,
	}
}

func (f *Frame) IndexName() string {
	return f.indexName
}

func (f *Frame) Columns() []protocol.ColumnSpec {
	return append([]protocol.ColumnSpec(nil), f.columns...)
}

func (f *Frame) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// Records returns a copy of the rows.
func (f *Frame) Records() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(f.records))
	for i, rec := range f.records {
		out[i] = cloneRecord(rec)
	}
	return out
}

// SetupMessage builds the handshake a grid is initialized from.
func (f *Frame) SetupMessage(editable bool) protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := make([]map[string]any, len(f.records))
	for i, rec := range f.records {
		row := cloneRecord(rec)
		row[grid.IDField] = rec[f.indexName]
		rows[i] = row
	}
	return protocol.Message{Type: protocol.TypeSetup, Setup: &protocol.Setup{
		Rows:     rows,
		Columns:  append([]protocol.ColumnSpec(nil), f.columns...),
		Editable: editable,
	}}
}

// HandleMessage applies a message from the grid. Values that cannot be stored
// in their column are dropped, and a blank number cell becomes null.
func (f *Frame) HandleMessage(msg protocol.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch msg.Type {
	case protocol.TypeCellChange:
		f.setValue(msg.Row, msg.Column, msg.Value)
	case protocol.TypeRemoveRow:
		f.removeAt(msg.Row, msg.ID)
	case "":
	default:
		logger.Debug("model ignoring message", "type", msg.Type)
	}
}

func (f *Frame) setValue(row int, column string, value any) {
	if row < 0 || row >= len(f.records) {
		logger.Warn("cell_change out of range", "row", row, "rows", len(f.records))
		return
	}
	v, err := f.coerce(column, value)
	if err != nil {
		logger.Warn("cell_change dropped", "row", row, "column", column, "error", err)
		return
	}
	f.records[row][column] = v
	logger.Debug("cell set", "row", row, "column", column, "value", v)
}

func (f *Frame) coerce(column string, value any) (any, error) {
	typ := grid.TypeText
	found := false
	for _, c := range f.columns {
		if c.Field == column {
			typ = grid.ParseColumnType(c.Type)
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("unknown column %q", column)
	}
	if typ != grid.TypeNumber {
		return value, nil
	}
	switch v := value.(type) {
	case nil:
		return nil, nil
	case float64:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid literal %q: %w", v, err)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("cannot store %T in number column", value)
	}
}

// removeAt deletes the row a grid confirmed. A confirmation with an id names
// the row by id; one whose id is already gone is dropped, since another grid
// removed it first. Only an id-less confirmation is applied by position.
func (f *Frame) removeAt(pos int, id any) {
	if id != nil {
		i := f.indexOf(id)
		if i < 0 {
			logger.Warn("remove_row for unknown id dropped", "row", pos, "id", id)
			return
		}
		if i != pos {
			logger.Warn("remove_row position mismatch", "row", pos, "id", id, "found", i)
		}
		pos = i
	}
	if pos < 0 || pos >= len(f.records) {
		logger.Warn("remove_row out of range", "row", pos, "rows", len(f.records))
		return
	}
	f.records = append(f.records[:pos], f.records[pos+1:]...)
	logger.Info("row removed", "row", pos, "id", id)
}

func (f *Frame) indexOf(id any) int {
	want := fmt.Sprint(id)
	for i, rec := range f.records {
		if formatIndex(rec[f.indexName]) == want {
			return i
		}
	}
	return -1
}

// AddRow appends a copy of the last row with the next index and returns the
// add_row directive for the grid.
func (f *Frame) AddRow() (protocol.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.records) == 0 {
		return protocol.Message{}, ErrEmptyFrame
	}
	for _, rec := range f.records {
		if _, ok := asInt(rec[f.indexName]); !ok {
			return protocol.Message{}, ErrNonIntegerIndex
		}
	}
	last := f.records[len(f.records)-1]
	next, _ := asInt(last[f.indexName])
	next++

	rec := cloneRecord(last)
	rec[f.indexName] = float64(next)
	f.records = append(f.records, rec)

	fields := cloneRecord(rec)
	id := strconv.FormatInt(next, 10)
	fields[f.indexName] = id
	fields[grid.IDField] = id
	logger.Info("row added", "index", next)
	return protocol.AddRow(fields), nil
}

// RemoveRow returns the directive asking the grid to drop its active row. The
// row is deleted here once the grid confirms.
func (f *Frame) RemoveRow() protocol.Message {
	return protocol.RemoveRowDirective()
}

func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return int64(x), true
		}
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	}
	return 0, false
}

func formatIndex(v any) string {
	if n, ok := asInt(v); ok {
		return strconv.FormatInt(n, 10)
	}
	return fmt.Sprint(v)
}

func cloneRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
