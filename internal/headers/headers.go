// Package headers discovers the transitive #include set of a source file
// by invoking the configured compiler in dependency-listing mode (cc.flags
// plus cc.hdrs_flags, e.g. clang/gcc's "-MM -MG"), and caches the result in
// a side-car file at the source file's own relpath under out_root so repeat
// builds skip the subprocess.
package headers

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ibuild/ib/internal/ibex"
	"github.com/ibuild/ib/internal/ibos"
	"github.com/ibuild/ib/internal/spec"
)

// Converter resolves an absolute path produced by the compiler's dependency
// output back into a relpath under one of the build's roots. It is
// satisfied by the planner, and kept as a narrow interface here so this
// package never imports internal/planner.
type Converter interface {
	AbspathToRelpath(abspath string) (relpath string, ok bool)
}

// cacheSuffix is the side-car file extension the header cache writes next
// to each source file's relpath under out_root.
const cacheSuffix = ".ib_hdrs"

// Cache memoizes header lists in memory for the lifetime of one build and
// persists them to disk so the next build can skip re-invoking the
// compiler entirely.
type Cache struct {
	outRoot string
	mem     map[string][]string
}

func NewCache(outRoot string) *Cache {
	return &Cache{outRoot: outRoot, mem: map[string][]string{}}
}

// Get returns the relpaths of every header abspath transitively includes.
// ccArgs is the compiler invocation prefix: tool, -I/-D flags and cc.flags
// (Planner's GetCcArgs); hdrsFlags are the config's cc.hdrs_flags.
func (c *Cache) Get(conv Converter, ccArgs, hdrsFlags []string, abspath string) ([]string, error) {
	if hdrs, ok := c.mem[abspath]; ok {
		return hdrs, nil
	}

	ownRelpath, ok := conv.AbspathToRelpath(abspath)
	if !ok {
		return nil, ibex.New(ibex.Resolution, "%s: not under a known root", abspath)
	}
	cachePath := filepath.Join(c.outRoot, ownRelpath+cacheSuffix)

	if hdrs, ok := readCache(cachePath); ok {
		c.mem[abspath] = hdrs
		return hdrs, nil
	}

	hdrs, err := discover(conv, ccArgs, hdrsFlags, abspath)
	if err != nil {
		return nil, err
	}
	c.mem[abspath] = hdrs
	if err := writeCache(cachePath, hdrs); err != nil {
		ibos.Log.Warn("could not persist header cache", "path", cachePath, "err", err)
	}
	return hdrs, nil
}

// readCache loads a side-car file written by writeCache. Any failure —
// missing file, unreadable, a line that no longer parses as a spec — falls
// back to live discovery rather than failing the build.
func readCache(path string) ([]string, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	text := strings.TrimRight(string(raw), "\n")
	if text == "" {
		return []string{}, true
	}
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		if _, err := spec.Parse(line); err != nil {
			return nil, false
		}
	}
	return lines, true
}

// writeCache writes the side-car atomically: to a temp file in the same
// directory, then renamed into place, so a crash mid-write never leaves a
// truncated cache file for the next build to trust.
func writeCache(path string, hdrs []string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".ib_hdrs-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	var content strings.Builder
	for _, h := range hdrs {
		content.WriteString(h)
		content.WriteByte('\n')
	}
	if _, err := tmp.WriteString(content.String()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// discover runs the compiler in dependency-listing mode and parses its
// Make-rule output ("target: dep1 dep2 \\\n  dep3 ...").
func discover(conv Converter, ccArgs, hdrsFlags []string, abspath string) ([]string, error) {
	args := make([]string, 0, len(ccArgs)+len(hdrsFlags)+1)
	args = append(args, ccArgs...)
	args = append(args, hdrsFlags...)
	args = append(args, abspath)

	cmd := exec.Command(args[0], args[1:]...)
	out, err := cmd.Output()
	if err != nil {
		return nil, ibex.Wrap(ibex.Tool, err, "header discovery failed for %s", abspath)
	}

	text := string(out)
	if idx := strings.Index(text, ":"); idx >= 0 {
		text = text[idx+1:]
	}
	text = strings.ReplaceAll(text, "\\", " ")
	fields := strings.Fields(text)

	// The dependency rule always lists the source file itself first;
	// match-and-remove it by identity rather than blindly dropping whatever
	// ends up first in the token list, which would silently eat a real
	// header if the source token were ever absent. If the source path
	// can't be found among the tokens at all, fall back to dropping the
	// first token (the best guess for where it would have been) and warn,
	// since that's a sign the compiler's output format didn't match what
	// was expected.
	removed := false
	filtered := make([]string, 0, len(fields))
	for _, f := range fields {
		if !removed && f == abspath {
			removed = true
			continue
		}
		filtered = append(filtered, f)
	}
	if !removed && len(filtered) > 0 {
		ibos.Log.Warn("header scanner could not find source path among dependency tokens, dropping first token instead", "abspath", abspath, "first", filtered[0])
		filtered = filtered[1:]
	}

	hdrs := make([]string, 0, len(filtered))
	for _, f := range filtered {
		relpath, ok := conv.AbspathToRelpath(f)
		if !ok {
			continue
		}
		hdrs = append(hdrs, relpath)
	}
	return hdrs, nil
}

// CachePath is exposed for tests and for callers that need to invalidate a
// specific entry (e.g. "ib --force" could unlink it) without depending on
// Cache's internals.
func CachePath(outRoot, relpath string) string {
	return filepath.Join(outRoot, relpath+cacheSuffix)
}
