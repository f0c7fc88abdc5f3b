package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type tags a message.
type Type string

const (
	TypeCellChange Type = "cell_change"
	TypeAddRow     Type = "add_row"
	TypeRemoveRow  Type = "remove_row"
	// TypeSetup carries the initial dataset from the model to a freshly connected grid.
	TypeSetup Type = "setup"
)

// ColumnSpec is one entry of the column-type list, in display order.
type ColumnSpec struct {
	Field string `json:"field"`
	Type  string `json:"type,omitempty"`
}

// Setup is the initial dataset handshake.
type Setup struct {
	Rows     []map[string]any `json:"rows"`
	Columns  []ColumnSpec     `json:"columns"`
	Editable bool             `json:"editable"`
}

// Message is a tagged record exchanged between the grid and the backing model.
//
// Which fields are meaningful depends on Type:
//
//	cell_change  Row, Column, Value
//	remove_row   Row, ID (confirmation); nothing (directive)
//	add_row      Fields (the row record, including "id" when known)
//	setup        Setup
type Message struct {
	Type   Type
	Row    int
	Column string
	Value  any
	ID     any
	Fields map[string]any
	Setup  *Setup
}

var errMissingType = errors.New("message has no type")

// CellChange builds an outbound edit notification.
func CellChange(row int, column string, value any) Message {
	return Message{Type: TypeCellChange, Row: row, Column: column, Value: value}
}

// RemoveRowConfirm builds the confirmation sent after a row was deleted locally.
func RemoveRowConfirm(row int, id any) Message {
	return Message{Type: TypeRemoveRow, Row: row, ID: id}
}

// RemoveRowDirective builds the bare directive asking the grid to drop its active row.
func RemoveRowDirective() Message {
	return Message{Type: TypeRemoveRow}
}

// AddRow builds an add_row message carrying fields.
func AddRow(fields map[string]any) Message {
	return Message{Type: TypeAddRow, Fields: fields, ID: fields["id"]}
}

func (m Message) MarshalJSON() ([]byte, error) {
	out := map[string]any{"type": m.Type}
	switch m.Type {
	case TypeCellChange:
		out["row"] = m.Row
		out["column"] = m.Column
		out["value"] = m.Value
	case TypeRemoveRow:
		if m.ID != nil {
			out["row"] = m.Row
			out["id"] = m.ID
		}
	case TypeAddRow:
		for k, v := range m.Fields {
			if k == "type" {
				continue
			}
			out[k] = v
		}
	case TypeSetup:
		if m.Setup != nil {
			out["rows"] = m.Setup.Rows
			out["columns"] = m.Setup.Columns
			out["editable"] = m.Setup.Editable
		}
	}
	return json.Marshal(out)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	typeRaw, ok := raw["type"]
	if !ok {
		return errMissingType
	}
	var t Type
	if err := json.Unmarshal(typeRaw, &t); err != nil {
		return fmt.Errorf("type: %w", err)
	}
	*m = Message{Type: t}

	switch t {
	case TypeCellChange:
		var body struct {
			Row    int    `json:"row"`
			Column string `json:"column"`
			Value  any    `json:"value"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return fmt.Errorf("cell_change: %w", err)
		}
		m.Row, m.Column, m.Value = body.Row, body.Column, body.Value
	case TypeRemoveRow:
		var body struct {
			Row int `json:"row"`
			ID  any `json:"id"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return fmt.Errorf("remove_row: %w", err)
		}
		m.Row, m.ID = body.Row, body.ID
	case TypeAddRow:
		fields := make(map[string]any, len(raw))
		for k, v := range raw {
			if k == "type" {
				continue
			}
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return fmt.Errorf("add_row field %s: %w", k, err)
			}
			fields[k] = val
		}
		m.Fields = fields
		m.ID = fields["id"]
	case TypeSetup:
		var s Setup
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
		m.Setup = &s
	}
	return nil
}

// Decode parses one frame into a Message.
func Decode(frame []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(frame, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Encode serializes msg into one frame.
func Encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
