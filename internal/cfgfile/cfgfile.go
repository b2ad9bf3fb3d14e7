// Package cfgfile loads ib's restricted-grammar .cfg files into a
// cfgmodel.Config. Only imports and (possibly augmented) assignments are
// accepted; the grammar is enforced directly by the lexer/parser
// (lexer.go/ast.go/parser.go) rather than by filtering an open-ended
// expression language after the fact, and every accepted assignment is
// applied to a typed field rather than a dynamic namespace.
package cfgfile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ibuild/ib/internal/cfgmodel"
	"github.com/ibuild/ib/internal/ibex"
)

// Load reads the named configuration from cfgRoot, recursively resolving any
// imports it declares, and returns the composited result. name may contain
// dots, each one descending into a subdirectory of cfgRoot before the final
// ".cfg" file.
func Load(cfgRoot, name string) (*cfgmodel.Config, error) {
	return load(cfgRoot, name, map[string]*cfgmodel.Config{})
}

// load resolves name, consulting and populating seen so that a config
// imported from two different places is parsed once and shared, and so that
// an import cycle resolves to the in-progress config instead of recursing
// forever (no error is reported for the cycle).
func load(cfgRoot, name string, seen map[string]*cfgmodel.Config) (*cfgmodel.Config, error) {
	if cfg, ok := seen[name]; ok {
		return cfg, nil
	}
	path := filepath.Join(append([]string{cfgRoot}, strings.Split(name, ".")...)...) + ".cfg"
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ibex.Wrap(ibex.Config, err,
			"you are trying to build the %q configuration in %q; however, the file %q does not exist",
			name, cfgRoot, path)
	}
	stmts, err := parseStatements(string(raw))
	if err != nil {
		return nil, ibex.Wrap(ibex.Config, err, "%s: invalid config syntax", path)
	}

	cfg := cfgmodel.Default(name)
	seen[name] = cfg // register before recursing so cycles resolve to the in-progress value

	for _, s := range stmts {
		imp, ok := s.(importStmt)
		if !ok {
			continue
		}
		imported, err := load(cfgRoot, imp.Name, seen)
		if err != nil {
			return nil, err
		}
		cfg.Imports[imp.Name] = imported
	}
	for _, s := range stmts {
		a, ok := s.(assignStmt)
		if !ok {
			continue
		}
		if err := apply(cfg, a); err != nil {
			return nil, ibex.Wrap(ibex.Config, err, "%s:%d", path, a.Line)
		}
	}
	return cfg, nil
}

// apply evaluates one assignment and writes it onto the matching field of
// cfg. The target set is a fixed list of dotted names; anything outside it
// is rejected as a config error rather than silently ignored or written to
// an arbitrary field.
func apply(cfg *cfgmodel.Config, a assignStmt) error {
	target := strings.Join(a.Target, ".")
	switch target {
	case "cc.tool":
		return applyStr(&cfg.CC.Tool, a)
	case "cc.flags":
		return applyList(&cfg.CC.Flags, a)
	case "cc.hdrs_flags":
		return applyList(&cfg.CC.HdrsFlags, a)
	case "cc.incl_dirs":
		return applyList(&cfg.CC.InclDirs, a)
	case "link.tool":
		return applyStr(&cfg.Link.Tool, a)
	case "link.flags":
		return applyList(&cfg.Link.Flags, a)
	case "link.libs":
		return applyList(&cfg.Link.Libs, a)
	case "link.static_libs":
		return applyList(&cfg.Link.StaticLibs, a)
	case "link.lib_dirs":
		return applyList(&cfg.Link.LibDirs, a)
	case "link.out_flag_prefix":
		return applyStr(&cfg.Link.OutFlagPrefix, a)
	case "link.lib_flag_prefix":
		return applyStr(&cfg.Link.LibFlagPrefix, a)
	case "make.tool":
		return applyStr(&cfg.Make.Tool, a)
	case "make.flags":
		return applyList(&cfg.Make.Flags, a)
	case "make.force_flag":
		return applyStr(&cfg.Make.ForceFlag, a)
	case "make.all_pseudo_target":
		return applyStr(&cfg.Make.AllPseudoTarget, a)
	default:
		return ibex.New(ibex.Config, "unknown config field %q", target)
	}
}

func applyStr(field *string, a assignStmt) error {
	v, err := evalString(a.Value)
	if err != nil {
		return err
	}
	if a.Augmented {
		*field += v
	} else {
		*field = v
	}
	return nil
}

func applyList(field *[]string, a assignStmt) error {
	v, err := evalList(a.Value)
	if err != nil {
		return err
	}
	if a.Augmented {
		*field = append(*field, v...)
	} else {
		*field = v
	}
	return nil
}
