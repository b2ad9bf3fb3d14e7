// package spec defines the canonical identity of a buildable or built file:
// a branch (repo-relative directory), an atom (stem), and an extension, all
// derived from a fixed kind table so extension resolution is a total
// function rather than runtime reflection over registered subclasses.
package spec

import (
	"path/filepath"
	"strings"

	"github.com/ibuild/ib/internal/ibex"
)

// Kind is the semantic category of a Spec. The zero value is never valid;
// always obtain a Kind through KindByExt or one of the exported constants.
type Kind struct {
	name       string
	defaultExt string
	otherExts  []string
	// prefix is stripped from a file's stem to yield its atom. Every kind
	// in this repo uses the empty prefix; the field exists so a future kind
	// (e.g. a "lib" kind keyed by a "lib" stem prefix) needs no rework of
	// the parsing path.
	prefix string
}

func (k Kind) String() string { return k.name }

// DefaultExt is the canonical output extension for this kind.
func (k Kind) DefaultExt() string { return k.defaultExt }

// StripPrefix removes this kind's atom prefix from a file stem.
func (k Kind) StripPrefix(stem string) string {
	return strings.TrimPrefix(stem, k.prefix)
}

// Exts yields the default extension followed by every other accepted
// extension, in the order a producer should try them.
func (k Kind) Exts() []string {
	exts := make([]string, 0, len(k.otherExts)+1)
	exts = append(exts, k.defaultExt)
	return append(exts, k.otherExts...)
}

var (
	CppSource = Kind{name: "C++source", defaultExt: ".cc", otherExts: []string{".c", ".cpp", ".cxx"}}
	Header    = Kind{name: "header", defaultExt: ".h", otherExts: []string{".hpp", ".hh", ".hxx", ".inl"}}
	Object    = Kind{name: "object", defaultExt: ".o"}
	Exe       = Kind{name: "executable", defaultExt: "", otherExts: []string{".js", ".exe"}}
	SharedLib = Kind{name: "shared-library", defaultExt: ".so"}
)

// allKinds drives extToKind initialization. Order doesn't matter for
// correctness, but keeping it stable makes `init` failures reproducible.
var allKinds = []Kind{CppSource, Header, Object, Exe, SharedLib}

var extToKind map[string]Kind

func init() {
	extToKind = make(map[string]Kind)
	for _, k := range allKinds {
		for _, ext := range k.Exts() {
			if existing, ok := extToKind[ext]; ok {
				panic("spec: extension " + ext + " claimed by both " + existing.name + " and " + k.name)
			}
			extToKind[ext] = k
		}
	}
}

// KindByExt resolves an extension to its kind. The map above is total over
// every extension any Kind claims, so an unrecognized extension is the only
// failure mode.
func KindByExt(ext string) (Kind, error) {
	k, ok := extToKind[ext]
	if !ok {
		return Kind{}, ibex.New(ibex.Resolution, "unknown extension %q", ext)
	}
	return k, nil
}

// Spec is a value object: equality and hashing (via comparability, since all
// fields are plain strings) use branch, atom, and ext. Kind is redundant
// with ext and is not part of the key.
type Spec struct {
	Branch string
	Atom   string
	Ext    string
}

// New constructs a Spec, validating that ext resolves to a known kind.
func New(branch, atom, ext string) (Spec, error) {
	if _, err := KindByExt(ext); err != nil {
		return Spec{}, err
	}
	return Spec{Branch: branch, Atom: atom, Ext: ext}, nil
}

// Kind returns this spec's kind. Panics only if the spec was built by
// hand with an unresolved extension, which New and Parse both prevent.
func (s Spec) Kind() Kind {
	k, err := KindByExt(s.Ext)
	if err != nil {
		panic(err)
	}
	return k
}

// Relpath is the path of this spec relative to whichever root it lives
// under (src_root for a source plan, out_root for a job plan).
func (s Spec) Relpath() string {
	return filepath.Join(s.Branch, s.Atom) + s.Ext
}

// WithKind swaps this spec's extension for k's default extension, keeping
// branch and atom. Used to turn, e.g., a header spec into the object spec
// for the same translation unit.
func (s Spec) WithKind(k Kind) Spec {
	return Spec{Branch: s.Branch, Atom: s.Atom, Ext: k.defaultExt}
}

// Parse splits a path relative to one of the roots into a Spec. The kind's
// prefix hook (unused by any kind in this repo today, but left in place per
// the data model for future kinds that strip a stem prefix) is applied
// before the atom is taken.
func Parse(relpath string) (Spec, error) {
	dir, base := filepath.Split(relpath)
	branch := filepath.Clean(dir)
	if branch == "." {
		branch = ""
	}
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	k, err := KindByExt(ext)
	if err != nil {
		return Spec{}, err
	}
	return Spec{Branch: branch, Atom: k.StripPrefix(stem), Ext: ext}, nil
}
