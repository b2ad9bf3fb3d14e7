package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibuild/ib/internal/job"
	"github.com/ibuild/ib/internal/spec"
)

// fakeResolver is a minimal, hand-rolled Resolver for exercising Plan
// implementations without a real Planner: headers and plans are fixed maps
// populated by the test, and IsMade is driven by a plain set.
type fakeResolver struct {
	srcRoot string
	outRoot string
	made    map[spec.Spec]bool
	plans   map[spec.Spec]Plan
	hdrs    map[string][]spec.Spec
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		srcRoot: "/src",
		outRoot: "/out",
		made:    map[spec.Spec]bool{},
		plans:   map[spec.Spec]Plan{},
		hdrs:    map[string][]spec.Spec{},
	}
}

func (f *fakeResolver) GetPlan(s spec.Spec) (Plan, error) {
	if pl, ok := f.plans[s]; ok {
		return pl, nil
	}
	return None{Output: s}, nil
}
func (f *fakeResolver) IsMade(s spec.Spec) bool   { return f.made[s] }
func (f *fakeResolver) SrcRoot() string           { return f.srcRoot }
func (f *fakeResolver) OutRoot() string           { return f.outRoot }
func (f *fakeResolver) HeadersFor(abspath string) ([]spec.Spec, error) {
	return f.hdrs[abspath], nil
}

func mustSpec(t *testing.T, branch, atom, ext string) spec.Spec {
	t.Helper()
	s, err := spec.New(branch, atom, ext)
	require.NoError(t, err)
	return s
}

func TestSourcePlanIsAlwaysDoableAndReady(t *testing.T) {
	r := newFakeResolver()
	p := Source{Output: mustSpec(t, "examples", "hello", ".cc")}
	assert.True(t, p.Doable())
	assert.True(t, p.Understood())
	assert.True(t, p.IsReady(r))
	_, ok := p.InputSpec()
	assert.False(t, ok)
	assert.Equal(t, "/src/examples/hello.cc", p.OutputAbspath(r))
}

func TestSourcePlanImpliesObjectsForIncludedHeaders(t *testing.T) {
	r := newFakeResolver()
	ccSpec := mustSpec(t, "examples", "hello", ".cc")
	objSpec := mustSpec(t, "examples/hello_world", "util", ".o")
	hdrSpec := mustSpec(t, "examples/hello_world", "util", ".h")

	p := Source{Output: ccSpec}
	abspath := p.OutputAbspath(r)
	r.hdrs[abspath] = []spec.Spec{hdrSpec}
	r.plans[objSpec] = ForJob{Slot: "obj", J: job.New(job.Compile, mustSpec(t, "examples/hello_world", "util", ".cc"))}

	implied := p.ImpliedSpecs(r)
	require.Len(t, implied, 1)
	assert.Equal(t, objSpec, implied[0])
}

func TestSourcePlanDoesNotImplyUndoableObjects(t *testing.T) {
	r := newFakeResolver()
	ccSpec := mustSpec(t, "examples", "hello", ".cc")
	hdrSpec := mustSpec(t, "examples/hello_world", "missing", ".h")

	p := Source{Output: ccSpec}
	r.hdrs[p.OutputAbspath(r)] = []spec.Spec{hdrSpec}
	// no plan registered for missing.o, so GetPlan falls back to None, which
	// is not doable
	assert.Empty(t, p.ImpliedSpecs(r))
}

func TestNonCppOutputNeverImpliesHeaders(t *testing.T) {
	r := newFakeResolver()
	p := Source{Output: mustSpec(t, "examples", "data", ".h")}
	r.hdrs[p.OutputAbspath(r)] = []spec.Spec{mustSpec(t, "examples", "unrelated", ".h")}
	assert.Empty(t, p.ImpliedSpecs(r))
}

func TestForJobPlanIsReadyOnlyWhenInputIsMade(t *testing.T) {
	r := newFakeResolver()
	input := mustSpec(t, "examples", "hello", ".o")
	j := job.New(job.LinkExe, input)
	p := ForJob{Slot: "exe", J: j}

	assert.False(t, p.IsReady(r))
	r.made[input] = true
	assert.True(t, p.IsReady(r))

	inputSpec, ok := p.InputSpec()
	require.True(t, ok)
	assert.Equal(t, input, inputSpec)
	assert.Equal(t, j, p.Job())
}

func TestForJobOutputAbspathIsUnderOutRoot(t *testing.T) {
	r := newFakeResolver()
	input := mustSpec(t, "examples", "hello", ".cc")
	j := job.New(job.Compile, input)
	p := ForJob{Slot: "obj", J: j}
	assert.Equal(t, "/out/examples/hello.o", p.OutputAbspath(r))
}

func TestAmbiguousPlanIsUnderstoodButNotDoable(t *testing.T) {
	r := newFakeResolver()
	output := mustSpec(t, "examples", "hello", ".o")
	a := Ambiguous{Plans: []Plan{
		Source{Output: output},
		ForJob{Slot: "obj", J: job.New(job.Compile, mustSpec(t, "examples", "hello", ".cc"))},
	}}
	assert.False(t, a.Doable())
	assert.True(t, a.Understood())
	assert.False(t, a.IsReady(r))
	assert.Empty(t, a.ImpliedSpecs(r))
	assert.Nil(t, a.Job())
	assert.Equal(t, output, a.OutputSpec())
}

func TestNonePlanIsNeitherDoableNorUnderstood(t *testing.T) {
	r := newFakeResolver()
	output := mustSpec(t, "examples", "ghost", ".o")
	n := None{Output: output}
	assert.False(t, n.Doable())
	assert.False(t, n.Understood())
	assert.False(t, n.IsReady(r))
	assert.Equal(t, "/out/examples/ghost.o", n.OutputAbspath(r))
}
