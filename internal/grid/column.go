package grid

import (
	"strings"

	"github.com/kobzarvs/qgrid/internal/protocol"
	"github.com/kobzarvs/qgrid/internal/validate"
)

// ColumnType selects the editor and validator of a column.
type ColumnType string

const (
	TypeText   ColumnType = "text"
	TypeNumber ColumnType = "number"
	TypeDate   ColumnType = "date"
)

// ParseColumnType normalizes the type names a model may send (dtype kinds such
// as "Integer", "float64", "timedelta64" or "Datetime") into a ColumnType.
func ParseColumnType(name string) ColumnType {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case n == "number", n == "numeric", n == "float", n == "floating", n == "complex",
		n == "integer", n == "allinteger", n == "allfloat", n == "unsignedinteger",
		strings.HasPrefix(n, "int"), strings.HasPrefix(n, "uint"), strings.HasPrefix(n, "float"),
		strings.HasPrefix(n, "timedelta"):
		// Durations are edited as numbers.
		return TypeNumber
	case n == "date", strings.HasPrefix(n, "datetime"), n == "timestamp":
		return TypeDate
	default:
		return TypeText
	}
}

// ColumnDescriptor is the fixed configuration of one column.
type ColumnDescriptor struct {
	Field     string
	Name      string
	Type      ColumnType
	Editable  bool
	Validator validate.Func
	NewEditor EditorFactory
}

func buildColumns(specs []protocol.ColumnSpec, editable, lockIndex bool) []*ColumnDescriptor {
	cols := make([]*ColumnDescriptor, 0, len(specs))
	for i, spec := range specs {
		col := &ColumnDescriptor{
			Field: spec.Field,
			Name:  spec.Field,
			Type:  ParseColumnType(spec.Type),
		}
		if editable && !(lockIndex && i == 0) {
			col.Editable = true
			switch col.Type {
			case TypeDate:
				col.NewEditor = NewDateEditor
			default:
				col.NewEditor = NewTextEditor
			}
			if col.Type == TypeNumber {
				col.Validator = validate.Number
			}
		}
		cols = append(cols, col)
	}
	return cols
}
