// package cfgmodel defines the read-only config facade consumed by header
// discovery, the script emitter, and the planner's wave runner.
// Values are populated by internal/cfgfile's restricted-grammar loader;
// nothing in this package parses files.
package cfgmodel

// CC holds compiler settings.
type CC struct {
	Tool      string
	Flags     []string
	HdrsFlags []string
	InclDirs  []string
}

// Link holds linker settings.
type Link struct {
	Tool          string
	Flags         []string
	Libs          []string
	StaticLibs    []string
	LibDirs       []string
	OutFlagPrefix string
	LibFlagPrefix string
}

// Make holds build-runner settings.
type Make struct {
	Tool            string
	Flags           []string
	ForceFlag       string
	AllPseudoTarget string
}

// Config is a fully composited, read-only configuration: a name, an
// optional base it was derived from, and the set of configs it transitively
// imports.
type Config struct {
	Name    string
	Base    *Config
	Imports map[string]*Config

	CC   CC
	Link Link
	Make Make
}

// Default returns a Config with sane defaults for every list-valued field
// and prefix a .cfg file doesn't set explicitly.
func Default(name string) *Config {
	return &Config{
		Name:    name,
		Imports: map[string]*Config{},
		Link: Link{
			OutFlagPrefix: "-o ",
			LibFlagPrefix: "-l",
		},
		Make: Make{
			AllPseudoTarget: "all",
		},
	}
}

// Uses reports whether this config, its base chain, or any transitively
// imported config is named name. Used by tests that assert a composited
// config pulled in a particular sibling.
func (c *Config) Uses(name string) bool {
	if c == nil {
		return false
	}
	if c.Name == name {
		return true
	}
	for importedName, imported := range c.Imports {
		if importedName == name || imported.Uses(name) {
			return true
		}
	}
	return c.Base.Uses(name)
}
