package session

import (
	"path/filepath"
	"testing"
)

func TestGridStatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")
	m := Open(path, 0)
	if _, ok := m.GridState("/data/a.json"); ok {
		t.Fatalf("fresh session has state")
	}
	m.SetGridState("/data/a.json", GridState{ActiveRow: 4, ActiveCol: 2, RowID: "17"})
	if err := m.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	again := Open(path, 0)
	state, ok := again.GridState("/data/a.json")
	if !ok {
		t.Fatalf("state not reloaded")
	}
	if state.ActiveRow != 4 || state.ActiveCol != 2 || state.RowID != "17" {
		t.Fatalf("state = %+v", state)
	}
	if again.ActiveDataset() != "/data/a.json" {
		t.Fatalf("ActiveDataset = %q", again.ActiveDataset())
	}
}

func TestStopSavesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	m := Open(path, 0)
	m.SetGridState("ws://host/grid", GridState{ActiveRow: 1})
	m.Stop()
	m.Stop()
	if _, ok := Open(path, 0).GridState("ws://host/grid"); !ok {
		t.Fatalf("Stop did not save")
	}
}

func TestSessionPathUsesXDGState(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
	got, err := sessionPath()
	if err != nil {
		t.Fatalf("sessionPath error: %v", err)
	}
	if got != filepath.Join(dir, "qgrid", "session.json") {
		t.Fatalf("sessionPath = %q", got)
	}
}
