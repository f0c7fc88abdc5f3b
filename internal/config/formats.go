package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ModelServer is a command that serves a dataset over stdin/stdout.
// The argument "{file}" is replaced with the dataset path.
type ModelServer struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// Format maps dataset file types to the model server that can open them.
type Format struct {
	Name        string   `toml:"name"`
	FileTypes   []string `toml:"file-types"`
	ModelServer string   `toml:"model-server"`
}

type Formats struct {
	Formats      []Format               `toml:"format"`
	ModelServers map[string]ModelServer `toml:"model-server"`
}

func (f Formats) Match(path string) *Format {
	base := filepath.Base(path)
	baseLower := strings.ToLower(base)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	for i := range f.Formats {
		format := &f.Formats[i]
		for _, ft := range format.FileTypes {
			ftLower := strings.ToLower(ft)
			if ftLower == ext || ftLower == baseLower {
				return format
			}
			if strings.HasPrefix(ftLower, ".") && strings.TrimPrefix(ftLower, ".") == ext {
				return format
			}
		}
	}
	return nil
}

// ServerFor returns the command and arguments serving path, if any format
// claims it.
func (f Formats) ServerFor(path string) (string, []string, bool) {
	format := f.Match(path)
	if format == nil {
		return "", nil, false
	}
	srv, ok := f.ModelServers[format.ModelServer]
	if !ok || srv.Command == "" {
		return "", nil, false
	}
	args := make([]string, len(srv.Args))
	for i, a := range srv.Args {
		args[i] = strings.ReplaceAll(a, "{file}", path)
	}
	return srv.Command, args, true
}

func LoadFormats() (Formats, error) {
	path, err := FormatsPath()
	if err != nil {
		return Formats{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Formats{}, nil
		}
		return Formats{}, err
	}

	var cfg Formats
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Formats{}, err
	}
	if cfg.ModelServers == nil {
		cfg.ModelServers = map[string]ModelServer{}
	}
	return cfg, nil
}

func FormatsPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "formats.toml"), nil
}
