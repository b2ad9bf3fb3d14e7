// package plan implements the plan lattice: for any output spec, the unique
// doable plan is either a source file on disk, a job that produces it, an
// ambiguous collision between two or more doable plans, or none.
//
// Plan is represented as a tagged sum type, not a class hierarchy dispatched
// by reflection — each concrete type below implements the Plan interface
// exhaustively, so a missing case is a compile error rather than a runtime
// panic.
package plan

import (
	"path/filepath"

	"github.com/ibuild/ib/internal/job"
	"github.com/ibuild/ib/internal/spec"
)

// Resolver is the planner-shaped subset of behavior a Plan needs to answer
// questions about itself. internal/planner.Planner implements this; keeping
// the interface here (rather than importing internal/planner) avoids a
// import cycle between plan and planner.
type Resolver interface {
	GetPlan(s spec.Spec) (Plan, error)
	IsMade(s spec.Spec) bool
	SrcRoot() string
	OutRoot() string
	// HeadersFor returns the specs of every header a C++ source file at
	// abspath transitively includes, used to implement the
	// header-implies-object rule below.
	HeadersFor(abspath string) ([]spec.Spec, error)
}

// Plan is the resolved answer to "how do I obtain the file for this spec".
type Plan interface {
	// Doable reports whether this plan can actually produce its output.
	Doable() bool
	// Understood reports whether this plan is anything but NonePlan.
	Understood() bool
	// OutputSpec is the spec this plan produces.
	OutputSpec() spec.Spec
	// InputSpec is the spec this plan consumes, if any.
	InputSpec() (spec.Spec, bool)
	// Desc is a human-readable description, used in error messages and
	// --print_script diagnostics.
	Desc() string
	// OutputAbspath is the absolute path of this plan's output.
	OutputAbspath(r Resolver) string
	// IsReady reports whether this plan's prerequisites are satisfied.
	IsReady(r Resolver) bool
	// ImpliedSpecs yields specs the planner must fold in even though the
	// user never asked for them (the header-implies-object rule).
	ImpliedSpecs(r Resolver) []spec.Spec
	// Job returns the underlying job for a JobPlan, or nil otherwise.
	Job() *job.Job
}

// impliedSpecsForOutput implements the header-implies-object rule: when a
// plan's own output is a C++ source file (the .cc itself, reached as the
// input spec of some compile plan), every header it transitively includes
// implies its matching object is worth pulling into the build too, so long
// as that object actually has a doable plan of its own. Any other output
// kind implies nothing.
func impliedSpecsForOutput(output spec.Spec, abspath string, r Resolver) []spec.Spec {
	if output.Kind() != spec.CppSource {
		return nil
	}
	hdrs, err := r.HeadersFor(abspath)
	if err != nil {
		return nil
	}
	var implied []spec.Spec
	for _, hdr := range hdrs {
		objSpec := hdr.WithKind(spec.Object)
		objPlan, err := r.GetPlan(objSpec)
		if err != nil || !objPlan.Doable() {
			continue
		}
		implied = append(implied, objSpec)
	}
	return implied
}

// Source is a plan whose output already exists on disk under the source
// root; it consumes no input spec and has no job.
type Source struct {
	Output spec.Spec
}

func (p Source) Doable() bool            { return true }
func (p Source) Understood() bool        { return true }
func (p Source) OutputSpec() spec.Spec   { return p.Output }
func (p Source) InputSpec() (spec.Spec, bool) { return spec.Spec{}, false }
func (p Source) Desc() string            { return "source" }
func (p Source) OutputAbspath(r Resolver) string {
	return filepath.Join(r.SrcRoot(), p.Output.Relpath())
}
func (p Source) IsReady(r Resolver) bool { return true }
func (p Source) ImpliedSpecs(r Resolver) []spec.Spec {
	return impliedSpecsForOutput(p.Output, p.OutputAbspath(r), r)
}
func (p Source) Job() *job.Job { return nil }

// ForJob is a plan whose output is produced by a job reading a given slot.
type ForJob struct {
	Slot string
	J    *job.Job
}

func (p ForJob) Doable() bool          { return true }
func (p ForJob) Understood() bool      { return true }
func (p ForJob) OutputSpec() spec.Spec { return p.J.OutputSpec(p.Slot) }
func (p ForJob) InputSpec() (spec.Spec, bool) {
	return p.J.InputSpec, true
}
func (p ForJob) Desc() string { return p.J.Desc() }
func (p ForJob) OutputAbspath(r Resolver) string {
	return filepath.Join(r.OutRoot(), p.OutputSpec().Relpath())
}
func (p ForJob) IsReady(r Resolver) bool { return r.IsMade(p.J.InputSpec) }
func (p ForJob) ImpliedSpecs(r Resolver) []spec.Spec {
	return impliedSpecsForOutput(p.OutputSpec(), p.OutputAbspath(r), r)
}
func (p ForJob) Job() *job.Job { return p.J }

// Ambiguous is a plan where two or more doable plans collide on the same
// output spec. It is understood (the planner knows what happened) but not
// doable (it cannot pick a winner on the caller's behalf).
type Ambiguous struct {
	Plans []Plan
}

func (p Ambiguous) Doable() bool            { return false }
func (p Ambiguous) Understood() bool        { return true }
func (p Ambiguous) OutputSpec() spec.Spec   { return p.Plans[0].OutputSpec() }
func (p Ambiguous) InputSpec() (spec.Spec, bool) { return spec.Spec{}, false }
func (p Ambiguous) Desc() string            { return "ambiguous plan" }
func (p Ambiguous) OutputAbspath(r Resolver) string {
	return p.Plans[0].OutputAbspath(r)
}

// IsReady always reports false for an ambiguous plan: it is not doable, so
// it can never legitimately be scheduled. Returning false here, rather than
// panicking, lets a stray reference to an ambiguous spec surface as "no
// progress" instead of a crash.
func (p Ambiguous) IsReady(r Resolver) bool            { return false }
func (p Ambiguous) ImpliedSpecs(r Resolver) []spec.Spec { return nil }
func (p Ambiguous) Job() *job.Job                       { return nil }

// None is a plan for which no producer applies and no source file exists.
type None struct {
	Output spec.Spec
}

func (p None) Doable() bool            { return false }
func (p None) Understood() bool        { return false }
func (p None) OutputSpec() spec.Spec   { return p.Output }
func (p None) InputSpec() (spec.Spec, bool) { return spec.Spec{}, false }
func (p None) Desc() string            { return "no plan" }
func (p None) OutputAbspath(r Resolver) string {
	return filepath.Join(r.OutRoot(), p.Output.Relpath())
}
func (p None) IsReady(r Resolver) bool            { return false }
func (p None) ImpliedSpecs(r Resolver) []spec.Spec { return nil }
func (p None) Job() *job.Job                       { return nil }
