// Package workspace handles .ib.yaml, an optional convenience file that
// remembers the --cfg and --out_root a project was last built with so a
// bare `ib` invocation can omit them. It plays no part in build semantics;
// every field it stores is also a plain CLI flag, so deleting the file
// never loses anything the build needs.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const FileName = ".ib.yaml"

// Preferences is the persisted shape of .ib.yaml.
type Preferences struct {
	Cfg     string `yaml:"cfg"`
	OutRoot string `yaml:"out_root"`
}

// Default returns the preferences ib falls back to when no .ib.yaml exists,
// matching the root command's flag defaults for --cfg and --out_root.
func Default() *Preferences {
	return &Preferences{Cfg: "debug", OutRoot: "../out"}
}

// Load reads .ib.yaml from srcRoot.
func Load(srcRoot string) (*Preferences, error) {
	path := filepath.Join(srcRoot, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	prefs := Default()
	if err := yaml.Unmarshal(data, prefs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return prefs, nil
}

// LoadOrDefault reads .ib.yaml from srcRoot, falling back to Default if it
// doesn't exist or fails to parse.
func LoadOrDefault(srcRoot string) *Preferences {
	prefs, err := Load(srcRoot)
	if err != nil {
		return Default()
	}
	return prefs
}

// Save writes prefs to .ib.yaml in srcRoot.
func Save(srcRoot string, prefs *Preferences) error {
	data, err := yaml.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	path := filepath.Join(srcRoot, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", FileName, err)
	}
	return nil
}

// Exists reports whether srcRoot has a .ib.yaml.
func Exists(srcRoot string) bool {
	_, err := os.Stat(filepath.Join(srcRoot, FileName))
	return err == nil
}
