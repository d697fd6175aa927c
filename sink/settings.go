// Package sink writes export artifacts to disk and owns the on-disk
// settings that control where and how they land.
package sink

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings mirrors the user-editable export preferences.
type Settings struct {
	// BaseFolder is the export root, relative paths resolving against the
	// user's home directory.
	BaseFolder string `yaml:"base_folder"`

	// DefaultFormat is "json" or "md".
	DefaultFormat string `yaml:"default_format"`

	// IncludeLogsByDefault opts log capture in without asking per export.
	IncludeLogsByDefault bool `yaml:"include_logs_by_default"`

	// AllTurnsByDefault sweeps every turn instead of the active one.
	AllTurnsByDefault bool `yaml:"all_turns_by_default"`
}

// LoadSettings reads a YAML settings file. A missing file yields pure
// defaults, not an error.
func LoadSettings(path string) (*Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.applyDefaults()
			return &s, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	s.applyDefaults()
	return &s, nil
}

func (s *Settings) applyDefaults() {
	if s.BaseFolder == "" {
		s.BaseFolder = filepath.Join("Documents", "codex_archive")
	}
	if s.DefaultFormat != "json" && s.DefaultFormat != "md" {
		s.DefaultFormat = "json"
	}
}

// Root resolves BaseFolder to an absolute directory.
func (s *Settings) Root() string {
	if filepath.IsAbs(s.BaseFolder) {
		return s.BaseFolder
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return s.BaseFolder
	}
	return filepath.Join(home, s.BaseFolder)
}
