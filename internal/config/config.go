package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Keymap struct {
	Grid     map[string]string `toml:"grid"`
	Edit     map[string]string `toml:"edit"`
	Calendar map[string]string `toml:"calendar"`
}

type GridOptions struct {
	DateLayout      string `toml:"date-layout"`
	LockIndexColumn *bool  `toml:"lock-index-column"`
	Editable        *bool  `toml:"editable"`
	ColumnWidth     int    `toml:"column-width"`
	MaxColumnWidth  int    `toml:"max-column-width"`
}

// Remote says where the viewer finds its model when no flag names one.
type Remote struct {
	URL     string   `toml:"url"`
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Addr    string   `toml:"addr"`
}

type Theme struct {
	Theme                string `toml:"theme"`
	Foreground           string `toml:"foreground"`
	Background           string `toml:"background"`
	HeaderForeground     string `toml:"header-foreground"`
	HeaderBackground     string `toml:"header-background"`
	IndexForeground      string `toml:"index-foreground"`
	ActiveForeground     string `toml:"active-foreground"`
	ActiveBackground     string `toml:"active-background"`
	ReadonlyForeground   string `toml:"readonly-foreground"`
	EditorForeground     string `toml:"editor-foreground"`
	EditorBackground     string `toml:"editor-background"`
	CalendarForeground   string `toml:"calendar-foreground"`
	CalendarBackground   string `toml:"calendar-background"`
	CalendarSelected     string `toml:"calendar-selected"`
	StatuslineForeground string `toml:"statusline-foreground"`
	StatuslineBackground string `toml:"statusline-background"`
	ErrorForeground      string `toml:"error-foreground"`
	SeparatorForeground  string `toml:"separator-foreground"`
}

type Config struct {
	Grid   GridOptions `toml:"grid"`
	Theme  Theme       `toml:"theme"`
	Keymap Keymap      `toml:"keymap"`
	Remote Remote      `toml:"remote"`
}

// LockIndex reports whether the first column stays read-only.
func (g GridOptions) LockIndex() bool {
	return g.LockIndexColumn == nil || *g.LockIndexColumn
}

// IsEditable reports whether grids accept edits.
func (g GridOptions) IsEditable() bool {
	return g.Editable == nil || *g.Editable
}

func Default() Config {
	return Config{
		Grid: GridOptions{
			DateLayout:     "2006-01-02",
			ColumnWidth:    12,
			MaxColumnWidth: 32,
		},
		Theme: Theme{
			Theme:                "",
			Foreground:           "#B3B1AD",
			Background:           "#0A0E14",
			HeaderForeground:     "#E6B450",
			HeaderBackground:     "#0F1419",
			IndexForeground:      "#5C6773",
			ActiveForeground:     "#0A0E14",
			ActiveBackground:     "#E6B450",
			ReadonlyForeground:   "#5C6773",
			EditorForeground:     "#B3B1AD",
			EditorBackground:     "#27425A",
			CalendarForeground:   "#B3B1AD",
			CalendarBackground:   "#0F1419",
			CalendarSelected:     "#59C2FF",
			StatuslineForeground: "#B3B1AD",
			StatuslineBackground: "#0F1419",
			ErrorForeground:      "#FF3333",
			SeparatorForeground:  "#3E4B59",
		},
		Keymap: Keymap{
			Grid: map[string]string{
				"h":      "move_left",
				"j":      "move_down",
				"k":      "move_up",
				"l":      "move_right",
				"left":   "move_left",
				"down":   "move_down",
				"up":     "move_up",
				"right":  "move_right",
				"tab":    "move_right",
				"home":   "row_start",
				"end":    "row_end",
				"pgup":   "page_up",
				"pgdn":   "page_down",
				"g":      "first_row",
				"G":      "last_row",
				"enter":  "edit",
				"i":      "edit",
				"ctrl+c": "quit",
				"q":      "quit",
			},
			Edit: map[string]string{
				"enter":     "commit",
				"tab":       "commit_right",
				"esc":       "cancel",
				"left":      "cursor_left",
				"right":     "cursor_right",
				"backspace": "backspace",
				"up":        "commit_up",
				"down":      "commit_down",
				"ctrl+d":    "open_calendar",
				"ctrl+c":    "quit",
			},
			Calendar: map[string]string{
				"left":  "prev_day",
				"right": "next_day",
				"up":    "prev_week",
				"down":  "next_week",
				"pgup":  "prev_month",
				"pgdn":  "next_month",
				"enter": "pick",
				"esc":   "close",
			},
		},
		Remote: Remote{
			Addr: ":8765",
		},
	}
}

func Load() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	var userCfg Config
	if _, err := toml.Decode(string(data), &userCfg); err != nil {
		return cfg, err
	}

	if userCfg.Grid.DateLayout != "" {
		cfg.Grid.DateLayout = userCfg.Grid.DateLayout
	}
	if userCfg.Grid.LockIndexColumn != nil {
		cfg.Grid.LockIndexColumn = userCfg.Grid.LockIndexColumn
	}
	if userCfg.Grid.Editable != nil {
		cfg.Grid.Editable = userCfg.Grid.Editable
	}
	if userCfg.Grid.ColumnWidth > 0 {
		cfg.Grid.ColumnWidth = userCfg.Grid.ColumnWidth
	}
	if userCfg.Grid.MaxColumnWidth > 0 {
		cfg.Grid.MaxColumnWidth = userCfg.Grid.MaxColumnWidth
	}
	if userCfg.Theme.Theme != "" {
		cfg.Theme.Theme = userCfg.Theme.Theme
	}
	if cfg.Theme.Theme != "" {
		theme, err := LoadTheme(cfg.Theme.Theme)
		if err != nil {
			return cfg, err
		}
		mergeTheme(&cfg.Theme, theme)
	}
	mergeTheme(&cfg.Theme, userCfg.Theme)
	mergeKeys(cfg.Keymap.Grid, userCfg.Keymap.Grid)
	mergeKeys(cfg.Keymap.Edit, userCfg.Keymap.Edit)
	mergeKeys(cfg.Keymap.Calendar, userCfg.Keymap.Calendar)
	if userCfg.Remote.URL != "" {
		cfg.Remote.URL = userCfg.Remote.URL
	}
	if userCfg.Remote.Command != "" {
		cfg.Remote.Command = userCfg.Remote.Command
		cfg.Remote.Args = userCfg.Remote.Args
	}
	if userCfg.Remote.Addr != "" {
		cfg.Remote.Addr = userCfg.Remote.Addr
	}

	return cfg, nil
}

func mergeKeys(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}

func mergeTheme(dst *Theme, src Theme) {
	set := func(d *string, s string) {
		if s != "" {
			*d = s
		}
	}
	set(&dst.Foreground, src.Foreground)
	set(&dst.Background, src.Background)
	set(&dst.HeaderForeground, src.HeaderForeground)
	set(&dst.HeaderBackground, src.HeaderBackground)
	set(&dst.IndexForeground, src.IndexForeground)
	set(&dst.ActiveForeground, src.ActiveForeground)
	set(&dst.ActiveBackground, src.ActiveBackground)
	set(&dst.ReadonlyForeground, src.ReadonlyForeground)
	set(&dst.EditorForeground, src.EditorForeground)
	set(&dst.EditorBackground, src.EditorBackground)
	set(&dst.CalendarForeground, src.CalendarForeground)
	set(&dst.CalendarBackground, src.CalendarBackground)
	set(&dst.CalendarSelected, src.CalendarSelected)
	set(&dst.StatuslineForeground, src.StatuslineForeground)
	set(&dst.StatuslineBackground, src.StatuslineBackground)
	set(&dst.ErrorForeground, src.ErrorForeground)
	set(&dst.SeparatorForeground, src.SeparatorForeground)
}

func ThemePath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "theme", name+".toml"), nil
}

func LoadTheme(name string) (Theme, error) {
	path, err := ThemePath(name)
	if err != nil {
		return Theme{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, err
	}
	var t Theme
	if _, err := toml.Decode(string(data), &t); err == nil {
		return t, nil
	}
	var wrap struct {
		Theme Theme `toml:"theme"`
	}
	if _, err := toml.Decode(string(data), &wrap); err != nil {
		return Theme{}, err
	}
	return wrap.Theme, nil
}

func ConfigDir() (string, error) {
	if v := os.Getenv("QGRID_CONFIG_HOME"); v != "" {
		return filepath.Clean(v), nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "qgrid"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "qgrid"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}
