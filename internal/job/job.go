// package job defines build actions (compile, link-exe, link-so), their
// output slots, and the static producer registry that maps a desired
// output kind to the (slot, job-kind) pairs able to produce it.
package job

import (
	"fmt"
	"strings"

	"github.com/ibuild/ib/internal/ibex"
	"github.com/ibuild/ib/internal/spec"
)

// Kind identifies a job's action and its single accepted input kind.
type Kind struct {
	name      string
	verb      string
	inputKind spec.Kind
	// outputKinds maps a named output slot to the kind it produces. Most
	// job kinds have exactly one slot.
	outputKinds map[string]spec.Kind
}

func (k Kind) String() string  { return k.name }
func (k Kind) Verb() string    { return k.verb }
func (k Kind) InputKind() spec.Kind { return k.inputKind }

// OutputSlots returns the slot names this kind produces, in a stable order.
func (k Kind) OutputSlots() []string {
	slots := make([]string, 0, len(k.outputKinds))
	for slot := range k.outputKinds {
		slots = append(slots, slot)
	}
	// deterministic order matters for rule serialization; sort lexically.
	for i := 1; i < len(slots); i++ {
		for j := i; j > 0 && slots[j-1] > slots[j]; j-- {
			slots[j-1], slots[j] = slots[j], slots[j-1]
		}
	}
	return slots
}

var (
	Compile = Kind{
		name:        "compile",
		verb:        "Compiling",
		inputKind:   spec.CppSource,
		outputKinds: map[string]spec.Kind{"obj": spec.Object},
	}
	LinkExe = Kind{
		name:        "link-exe",
		verb:        "Linking",
		inputKind:   spec.Object,
		outputKinds: map[string]spec.Kind{"exe": spec.Exe},
	}
	LinkSo = Kind{
		name:        "link-so",
		verb:        "Linking",
		inputKind:   spec.Object,
		outputKinds: map[string]spec.Kind{"so": spec.SharedLib},
	}
)

var allKinds = []Kind{Compile, LinkExe, LinkSo}

// Job is identified by (job-kind, input-spec). It carries explicit output
// overrides per slot; setting a slot is monotonic: two different specs for
// the same slot is a hard error, but re-setting the same spec is idempotent.
type Job struct {
	Kind            Kind
	InputSpec       spec.Spec
	explicitOutputs map[string]spec.Spec

	// RenameOutput overrides the target of the "-main" suffix fix-up link
	// jobs apply to their own executable output. Left empty, script
	// emission falls back to the historical behavior of simply trimming
	// the suffix; set it to backtrack from "foo-main" to some other name
	// without relying on string-slicing the emitted path.
	RenameOutput string
}

// New constructs a job with no explicit output overrides.
func New(kind Kind, input spec.Spec) *Job {
	return &Job{Kind: kind, InputSpec: input, explicitOutputs: map[string]spec.Spec{}}
}

// OutputSpec returns the spec a slot produces: the explicit override if one
// was set, otherwise the default related spec (same branch/atom, the slot
// kind's default extension).
func (j *Job) OutputSpec(slot string) spec.Spec {
	if s, ok := j.explicitOutputs[slot]; ok {
		return s
	}
	k := j.Kind.outputKinds[slot]
	return j.InputSpec.WithKind(k)
}

// SetOutputSpec installs an explicit output override for slot. Setting a
// different spec for an already-set slot is a slot error; setting the same
// spec twice is a no-op.
func (j *Job) SetOutputSpec(slot string, s spec.Spec) error {
	if existing, ok := j.explicitOutputs[slot]; ok {
		if existing != s {
			return ibex.New(ibex.Slot, "%s: cannot replace %s output with %s", j.Desc(), slot, s.Relpath())
		}
		return nil
	}
	j.explicitOutputs[slot] = s
	return nil
}

// Desc renders a human-readable summary of this job, used in plan
// descriptions and --print_script diagnostics.
func (j *Job) Desc() string {
	slots := j.Kind.OutputSlots()
	outputs := make([]string, len(slots))
	for i, slot := range slots {
		outputs[i] = j.OutputSpec(slot).Relpath()
	}
	return fmt.Sprintf("%s %s -> %s", j.Kind.verb, j.InputSpec.Relpath(), strings.Join(outputs, ", "))
}

// Producer is the sole mechanism by which the planner discovers jobs from a
// desired output: a static record of (slot, job-kind) registered under the
// kind of spec that slot produces.
type Producer struct {
	Slot string
	Kind Kind
}

// producersByOutputKind is keyed by kind name rather than by spec.Kind
// itself: Kind carries a slice field (otherExts), which makes it an invalid
// Go map key.
var producersByOutputKind = map[string][]Producer{}

func init() {
	for _, k := range allKinds {
		for slot, outKind := range k.outputKinds {
			producersByOutputKind[outKind.String()] = append(producersByOutputKind[outKind.String()], Producer{Slot: slot, Kind: k})
		}
	}
}

// ProducersFor returns the producers registered for outputKind, or nil if
// none apply.
func ProducersFor(outputKind spec.Kind) []Producer {
	return producersByOutputKind[outputKind.String()]
}

// CandidateInputSpecs yields, for a desired output spec, one input spec per
// extension accepted by the producer's job kind — the set of source specs
// that could plausibly feed this producer.
func (p Producer) CandidateInputSpecs(output spec.Spec) []spec.Spec {
	exts := p.Kind.inputKind.Exts()
	specs := make([]spec.Spec, len(exts))
	for i, ext := range exts {
		specs[i] = spec.Spec{Branch: output.Branch, Atom: output.Atom, Ext: ext}
	}
	return specs
}
