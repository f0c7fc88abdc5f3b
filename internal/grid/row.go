package grid

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/oklog/ulid/v2"
)

// IDField is the reserved record key that carries a row's identity.
const IDField = "id"

var (
	ErrDuplicateID = errors.New("duplicate row id")
	ErrUnknownID   = errors.New("unknown row id")
	ErrMissingID   = errors.New("row has no id")
)

// Row is one record of the dataset. ID is assigned once and never changes.
type Row struct {
	ID     any
	Values map[string]any
}

// NewRow builds a row from a flat record. A record "id" becomes the row ID;
// otherwise fallback is used.
func NewRow(record map[string]any, fallback any) *Row {
	values := make(map[string]any, len(record))
	id := fallback
	for k, v := range record {
		if k == IDField {
			if v != nil {
				id = v
			}
			continue
		}
		values[k] = v
	}
	return &Row{ID: id, Values: values}
}

// FreshID returns a new unique identifier for rows that arrive without one.
func FreshID() any {
	return ulid.Make().String()
}

func (r *Row) Get(field string) any {
	return r.Values[field]
}

func (r *Row) Set(field string, value any) {
	if r.Values == nil {
		r.Values = make(map[string]any)
	}
	r.Values[field] = value
}

// Record flattens the row back into a record including its id.
func (r *Row) Record() map[string]any {
	out := make(map[string]any, len(r.Values)+1)
	for k, v := range r.Values {
		out[k] = v
	}
	out[IDField] = r.ID
	return out
}

func (r *Row) Clone() *Row {
	values := make(map[string]any, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	return &Row{ID: r.ID, Values: values}
}

// idKey folds an id into its lookup key. Ids are compared by their text form,
// so the number 42 and the string "42" name the same row.
func idKey(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}
