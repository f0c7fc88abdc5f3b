package loader

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func fields(ds *Dataset) []string {
	out := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		out[i] = c.Field
	}
	return out
}

func TestParseJSONRecordsKeepsKeyOrder(t *testing.T) {
	ds, err := ParseJSON([]byte(`[
		{"zeta": "a", "alpha": 1, "when": "2024-01-02"},
		{"zeta": "b", "alpha": 2.5, "when": null}
	]`))
	if err != nil {
		t.Fatalf("ParseJSON error: %v", err)
	}
	got := fields(ds)
	want := []string{"Index", "zeta", "alpha", "when"}
	if len(got) != len(want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("columns = %v, want %v", got, want)
		}
	}
	if ds.Columns[2].Type != "float" || ds.Columns[3].Type != "datetime" || ds.Columns[1].Type != "object" {
		t.Fatalf("types = %+v", ds.Columns)
	}
	if ds.IndexName != "Index" || ds.Records[1]["Index"] != float64(1) {
		t.Fatalf("index = %q, record = %v", ds.IndexName, ds.Records[1])
	}
}

func TestParseJSONTableWithIndex(t *testing.T) {
	ds, err := ParseJSON([]byte(`{
		"index": "key",
		"columns": [{"field": "name"}, {"field": "key", "type": "integer"}],
		"rows": [{"key": 10, "name": "a"}, {"key": 11, "name": "b"}]
	}`))
	if err != nil {
		t.Fatalf("ParseJSON error: %v", err)
	}
	if got := fields(ds); got[0] != "key" || got[1] != "name" || len(got) != 2 {
		t.Fatalf("columns = %v, want key first", got)
	}
	if ds.Columns[1].Type != "object" {
		t.Fatalf("name type = %q, want inferred object", ds.Columns[1].Type)
	}
}

func TestParseJSONTableWithoutColumns(t *testing.T) {
	ds, err := ParseJSON([]byte(`{"rows": [{"b": 1, "a": 2}]}`))
	if err != nil {
		t.Fatalf("ParseJSON error: %v", err)
	}
	if got := fields(ds); len(got) != 3 || got[1] != "b" || got[2] != "a" {
		t.Fatalf("columns = %v", got)
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	ds, err := ParseJSON([]byte(`[{"name": "a"}]`))
	if err != nil {
		t.Fatalf("ParseJSON error: %v", err)
	}
	var buf bytes.Buffer
	if err := ds.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON error: %v", err)
	}
	back, err := ParseJSON(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseJSON error: %v", err)
	}
	if back.IndexName != "Index" || len(back.Columns) != 2 || back.Records[0]["name"] != "a" {
		t.Fatalf("round trip = %+v", back)
	}
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := "Sheet1"
	_ = f.SetCellValue(sheet, "A1", "name")
	_ = f.SetCellValue(sheet, "B1", "qty")
	_ = f.SetCellValue(sheet, "A2", "apple")
	_ = f.SetCellValue(sheet, "B2", 100)
	_ = f.SetCellValue(sheet, "A3", "pear")
	_ = f.SetCellValue(sheet, "B3", 2.5)

	path := filepath.Join(t.TempDir(), "data.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs error: %v", err)
	}

	ds, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got := fields(ds); len(got) != 3 || got[0] != "Index" || got[1] != "name" || got[2] != "qty" {
		t.Fatalf("columns = %v", got)
	}
	if ds.Columns[2].Type != "float" {
		t.Fatalf("qty type = %q, want float", ds.Columns[2].Type)
	}
	if len(ds.Records) != 2 || ds.Records[0]["qty"] != float64(100) || ds.Records[1]["name"] != "pear" {
		t.Fatalf("records = %v", ds.Records)
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	if _, err := Load("data.csv"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Load = %v, want ErrUnsupportedFormat", err)
	}
}
