package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// GridState stores where the user was in one dataset.
type GridState struct {
	ActiveRow int `json:"active_row"`
	ActiveCol int `json:"active_col"`
	ScrollRow int `json:"scroll_row"`
	ScrollCol int `json:"scroll_col"`
	// RowID is the id of the active row; preferred over ActiveRow when the
	// row still exists.
	RowID string `json:"row_id,omitempty"`
}

// Session stores the viewer state across runs, keyed by dataset.
type Session struct {
	Grids         map[string]GridState `json:"grids"`
	ActiveDataset string               `json:"active_dataset,omitempty"`
	LastSaved     time.Time            `json:"last_saved"`
}

// Manager handles session persistence
type Manager struct {
	mu       sync.RWMutex
	session  Session
	path     string
	dirty    bool
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewManager creates a session manager backed by the default state file.
func NewManager() (*Manager, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}
	return Open(path, 15*time.Second), nil
}

// Open creates a manager for path. A positive autosave starts a background
// save loop.
func Open(path string, autosave time.Duration) *Manager {
	m := &Manager{
		session: Session{
			Grids: make(map[string]GridState),
		},
		path:     path,
		stopChan: make(chan struct{}),
	}
	m.load()
	if autosave > 0 {
		go m.autosaveLoop(autosave)
	}
	return m
}

func sessionPath() (string, error) {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	dir := filepath.Join(stateDir, "qgrid")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

func (m *Manager) load() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return // No existing session, start fresh
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return
	}
	if session.Grids == nil {
		session.Grids = make(map[string]GridState)
	}
	m.session = session
}

// Save persists the session to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirty {
		return nil
	}

	m.session.LastSaved = time.Now()
	data, err := json.MarshalIndent(m.session, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return err
	}

	m.dirty = false
	return nil
}

// ForceSave saves even if not dirty
func (m *Manager) ForceSave() error {
	m.mu.Lock()
	m.dirty = true
	m.mu.Unlock()
	return m.Save()
}

// GridState returns the saved state for a dataset key.
func (m *Manager) GridState(key string) (GridState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.session.Grids[key]
	return state, ok
}

// SetGridState updates the state for a dataset key and marks it active.
func (m *Manager) SetGridState(key string, state GridState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.Grids[key] = state
	m.session.ActiveDataset = key
	m.dirty = true
}

// ActiveDataset returns the last dataset shown.
func (m *Manager) ActiveDataset() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.ActiveDataset
}

func (m *Manager) autosaveLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = m.Save()
		case <-m.stopChan:
			return
		}
	}
}

// Stop stops the autosave loop and saves final state
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		_ = m.ForceSave()
	})
}
