// Package planner ties together spec resolution, job memoization, plan
// discovery, header-based implication, and wave scheduling into the single
// stateful object a build invocation drives.
package planner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ibuild/ib/internal/cfgmodel"
	"github.com/ibuild/ib/internal/headers"
	"github.com/ibuild/ib/internal/ibex"
	"github.com/ibuild/ib/internal/job"
	"github.com/ibuild/ib/internal/plan"
	"github.com/ibuild/ib/internal/spec"
)

type jobKey struct {
	KindName string
	Input    spec.Spec
}

// Planner holds everything one build invocation needs: the resolved
// configuration, the two roots, the branch the user invoked ib from, and
// memoization caches for jobs, plans, and discovered headers.
type Planner struct {
	Cfg     *cfgmodel.Config
	srcRoot string
	outRoot string
	branch  string
	hasBranch bool

	jobs    map[jobKey]*job.Job
	plans   map[spec.Spec]plan.Plan
	headers *headers.Cache
	made    map[spec.Spec]bool
}

// New constructs a Planner rooted at srcRoot/outRoot, resolving cwd to a
// branch within one of those roots if possible (a cwd outside both roots is
// allowed; it only prevents resolving target-relative, non-absolute
// command-line arguments later).
func New(cfg *cfgmodel.Config, srcRoot, outRoot, cwd string) *Planner {
	p := &Planner{
		Cfg:     cfg,
		srcRoot: filepath.Clean(srcRoot),
		outRoot: filepath.Clean(outRoot),
		jobs:    map[jobKey]*job.Job{},
		plans:   map[spec.Spec]plan.Plan{},
		made:    map[spec.Spec]bool{},
	}
	p.headers = headers.NewCache(p.outRoot)
	if branch, ok := p.TryConvAbspathToRelpath(cwd); ok {
		p.branch = branch
		p.hasBranch = true
	}
	return p
}

func (p *Planner) SrcRoot() string { return p.srcRoot }
func (p *Planner) OutRoot() string { return p.outRoot }

// TryConvAbspathToRelpath converts an absolute path into a path relative to
// whichever of src_root/out_root contains it, or reports ok=false if
// neither does.
func (p *Planner) TryConvAbspathToRelpath(abspath string) (relpath string, ok bool) {
	abspath = filepath.Clean(abspath)
	for _, root := range []string{p.srcRoot, p.outRoot} {
		if abspath == root {
			return "", true
		}
		prefix := root + string(filepath.Separator)
		if strings.HasPrefix(abspath, prefix) {
			return abspath[len(prefix):], true
		}
	}
	return "", false
}

// AbspathToRelpath satisfies headers.Converter.
func (p *Planner) AbspathToRelpath(abspath string) (string, bool) {
	return p.TryConvAbspathToRelpath(abspath)
}

func (p *Planner) ConvAbspathToRelpath(abspath string) (string, error) {
	relpath, ok := p.TryConvAbspathToRelpath(abspath)
	if !ok {
		return "", ibex.New(ibex.Resolution,
			"the file %q is not in the source tree or the output tree so I can't compute a relative path for it", abspath)
	}
	return relpath, nil
}

func (p *Planner) ConvAbspathToSpec(abspath string) (spec.Spec, error) {
	relpath, err := p.ConvAbspathToRelpath(abspath)
	if err != nil {
		return spec.Spec{}, err
	}
	return spec.Parse(relpath)
}

// ConvTargetToSpec resolves a command-line target argument — either an
// absolute-from-root path starting with "/", or a path relative to the
// branch ib was invoked from — into a Spec.
func (p *Planner) ConvTargetToSpec(target string) (spec.Spec, error) {
	var relpath string
	switch {
	case strings.HasPrefix(target, "/"):
		relpath = strings.TrimPrefix(target, "/")
	case p.hasBranch:
		relpath = filepath.Join(p.branch, target)
	default:
		return spec.Spec{}, ibex.New(ibex.Resolution,
			"you are trying to build the relative spec %q; however, your current directory is not under "+
				"the source tree or the output tree, so I'm not sure how to resolve the relative path", target)
	}
	resolved, err := p.ConvAbspathToRelpath(filepath.Join(p.srcRoot, relpath))
	if err != nil {
		return spec.Spec{}, err
	}
	return spec.Parse(resolved)
}

// GetCcArgs returns the compiler invocation prefix shared by header
// discovery and compile jobs: the tool, the two root include paths, every
// configured include directory, the root marker defines, then the config's
// raw compiler flags.
func (p *Planner) GetCcArgs() []string {
	args := []string{p.Cfg.CC.Tool, "-I" + p.srcRoot, "-I" + p.outRoot}
	for _, dir := range p.Cfg.CC.InclDirs {
		args = append(args, "-I"+dir)
	}
	args = append(args, "-DIB_SRC_ROOT="+p.srcRoot, "-DIB_OUT_ROOT="+p.outRoot)
	args = append(args, p.Cfg.CC.Flags...)
	return args
}

// HeadersFor returns the specs of every header abspath (a .cc file) pulls
// in, satisfying plan.Resolver. A header relpath that doesn't parse as a
// known spec (a system header outside both roots, already filtered by
// headers.Converter, or a quirky path the compiler emitted) is skipped
// rather than failing the whole lookup.
func (p *Planner) HeadersFor(abspath string) ([]spec.Spec, error) {
	relpaths, err := p.headers.Get(p, p.GetCcArgs(), p.Cfg.CC.HdrsFlags, abspath)
	if err != nil {
		return nil, err
	}
	specs := make([]spec.Spec, 0, len(relpaths))
	for _, relpath := range relpaths {
		s, err := spec.Parse(relpath)
		if err != nil {
			continue
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// GetJob returns the memoized job for (kind, input), constructing it on
// first request.
func (p *Planner) GetJob(kind job.Kind, input spec.Spec) *job.Job {
	key := jobKey{KindName: kind.String(), Input: input}
	if j, ok := p.jobs[key]; ok {
		return j
	}
	j := job.New(kind, input)
	p.jobs[key] = j
	return j
}

// GetPlan resolves output to its unique doable plan, collapsing zero
// candidates to None, one to that plan, and two or more to Ambiguous. The
// result is memoized (invariant: a spec's plan never changes once computed
// in this Planner's lifetime).
func (p *Planner) GetPlan(output spec.Spec) (plan.Plan, error) {
	if pl, ok := p.plans[output]; ok {
		return pl, nil
	}

	var candidates []plan.Plan

	if fileExists(filepath.Join(p.srcRoot, output.Relpath())) {
		candidates = append(candidates, plan.Source{Output: output})
	}

	for _, producer := range job.ProducersFor(output.Kind()) {
		for _, inputSpec := range producer.CandidateInputSpecs(output) {
			j := p.GetJob(producer.Kind, inputSpec)
			if err := j.SetOutputSpec(producer.Slot, output); err != nil {
				return nil, err
			}
			inputPlan, err := p.GetPlan(inputSpec)
			if err != nil {
				return nil, err
			}
			if inputPlan.Understood() {
				candidates = append(candidates, plan.ForJob{Slot: producer.Slot, J: j})
			}
		}
	}

	var result plan.Plan
	switch len(candidates) {
	case 0:
		result = plan.None{Output: output}
	case 1:
		result = candidates[0]
	default:
		result = plan.Ambiguous{Plans: candidates}
	}
	p.plans[output] = result
	return result, nil
}

// IsMade reports whether a spec has already been produced in this build, as
// recorded by YieldWaves.
func (p *Planner) IsMade(s spec.Spec) bool { return p.made[s] }

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
