package protocol

import (
	"encoding/json"
	"testing"
)

func decodeMap(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return out
}

func TestEncodeCellChange(t *testing.T) {
	data, err := Encode(CellChange(3, "price", "12.5"))
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	got := decodeMap(t, data)
	if got["type"] != "cell_change" || got["row"] != float64(3) || got["column"] != "price" || got["value"] != "12.5" {
		t.Fatalf("cell_change = %v", got)
	}
	if len(got) != 4 {
		t.Fatalf("cell_change has %d keys, want 4: %v", len(got), got)
	}
}

func TestEncodeRemoveRowShapes(t *testing.T) {
	data, err := Encode(RemoveRowDirective())
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if got := decodeMap(t, data); len(got) != 1 || got["type"] != "remove_row" {
		t.Fatalf("directive = %v, want only type", got)
	}

	data, err = Encode(RemoveRowConfirm(2, 42))
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	got := decodeMap(t, data)
	if got["row"] != float64(2) || got["id"] != float64(42) {
		t.Fatalf("confirmation = %v", got)
	}
}

func TestEncodeAddRowFlattensFields(t *testing.T) {
	data, err := Encode(AddRow(map[string]any{"name": "X", "id": "7", "type": "shadowed"}))
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	got := decodeMap(t, data)
	if got["type"] != "add_row" {
		t.Fatalf("type = %v, want add_row", got["type"])
	}
	if got["name"] != "X" || got["id"] != "7" {
		t.Fatalf("add_row = %v", got)
	}
}

func TestDecodeAddRow(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"add_row","name":"X","qty":2}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if msg.Type != TypeAddRow {
		t.Fatalf("type = %q", msg.Type)
	}
	if msg.ID != nil {
		t.Fatalf("id = %v, want nil", msg.ID)
	}
	if msg.Fields["name"] != "X" || msg.Fields["qty"] != float64(2) {
		t.Fatalf("fields = %v", msg.Fields)
	}
	if _, ok := msg.Fields["type"]; ok {
		t.Fatalf("fields keep type key: %v", msg.Fields)
	}
}

func TestDecodeCellChangeAndRemoveRow(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"cell_change","row":1,"column":"a","value":null}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if msg.Row != 1 || msg.Column != "a" || msg.Value != nil {
		t.Fatalf("cell_change = %+v", msg)
	}

	msg, err = Decode([]byte(`{"type":"remove_row"}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if msg.Type != TypeRemoveRow || msg.ID != nil {
		t.Fatalf("remove_row = %+v", msg)
	}
}

func TestDecodeSetup(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"setup","editable":true,"columns":[{"field":"Index","type":"number"},{"field":"name"}],"rows":[{"id":0,"Index":0,"name":"a"}]}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if msg.Setup == nil {
		t.Fatalf("setup payload missing")
	}
	if !msg.Setup.Editable || len(msg.Setup.Columns) != 2 || len(msg.Setup.Rows) != 1 {
		t.Fatalf("setup = %+v", msg.Setup)
	}
	if msg.Setup.Columns[1].Field != "name" || msg.Setup.Columns[1].Type != "" {
		t.Fatalf("column[1] = %+v", msg.Setup.Columns[1])
	}
}

func TestDecodeUnknownTypeIsKept(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"sort","by":"a"}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if msg.Type != "sort" {
		t.Fatalf("type = %q, want sort", msg.Type)
	}
}

func TestDecodeRejectsMissingType(t *testing.T) {
	if _, err := Decode([]byte(`{"row":1}`)); err == nil {
		t.Fatalf("Decode without type succeeded")
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatalf("Decode of garbage succeeded")
	}
}
