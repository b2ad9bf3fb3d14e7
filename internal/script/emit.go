package script

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/google/uuid"

	"github.com/ibuild/ib/internal/ibex"
	"github.com/ibuild/ib/internal/job"
	"github.com/ibuild/ib/internal/plan"
	"github.com/ibuild/ib/internal/planner"
	"github.com/ibuild/ib/internal/spec"
)

// RuleFor builds the Make rule for a single job, dispatching on its kind.
// Jobs are plain data rather than a type hierarchy with per-kind methods,
// so the dispatch lives here instead of on Job itself.
func RuleFor(p *planner.Planner, j *job.Job) (*Rule, error) {
	switch j.Kind.String() {
	case job.Compile.String():
		return compileRule(p, j)
	case job.LinkExe.String():
		return linkRule(p, j, "-shared-library", []string{}, true)
	case job.LinkSo.String():
		return linkRule(p, j, "-shared-object", []string{"-shared", "-rdynamic"}, false)
	default:
		return nil, ibex.New(ibex.Plan, "no rule builder registered for job kind %s", j.Kind)
	}
}

func baseRule(p *planner.Planner, j *job.Job) (*Rule, error) {
	slots := j.Kind.OutputSlots()
	outputs := make([]string, len(slots))
	for i, slot := range slots {
		outSpec := j.OutputSpec(slot)
		pl, err := p.GetPlan(outSpec)
		if err != nil {
			return nil, err
		}
		outputs[i] = pl.OutputAbspath(p)
	}
	return NewRule(outputs), nil
}

func compileRule(p *planner.Planner, j *job.Job) (*Rule, error) {
	rule, err := baseRule(p, j)
	if err != nil {
		return nil, err
	}
	rule.RecipeAction = "Compiling"

	inputPlan, err := p.GetPlan(j.InputSpec)
	if err != nil {
		return nil, err
	}
	inputAbspath := inputPlan.OutputAbspath(p)
	rule.AddDependency(inputAbspath)

	hdrs, err := p.HeadersFor(inputAbspath)
	if err != nil {
		return nil, err
	}
	for _, hdr := range hdrs {
		hdrPlan, err := p.GetPlan(hdr)
		if err != nil {
			return nil, err
		}
		if hdrPlan.Doable() {
			rule.AddDependency(hdrPlan.OutputAbspath(p))
		}
	}

	args := append(append([]string{}, p.GetCcArgs()...), "-c", "-o", rule.Outputs[0], inputAbspath)
	rule.AppendToRecipe(args)
	return rule, nil
}

// linkRule builds both link-exe and link-so rules; label is only used in error
// messages, extraOpts are prepended link flags ("-shared -rdynamic" for a
// shared object), and stripMainSuffix enables the "-main" executable
// fix-up (SoJob outputs are never named "*-main").
func linkRule(p *planner.Planner, j *job.Job, label string, extraOpts []string, stripMainSuffix bool) (*Rule, error) {
	rule, err := baseRule(p, j)
	if err != nil {
		return nil, err
	}
	rule.RecipeAction = "Linking"

	inputPlan, err := p.GetPlan(j.InputSpec)
	if err != nil {
		return nil, err
	}

	var closure []plan.Plan
	if err := collectClosure(p, inputPlan, map[spec.Spec]bool{}, &closure); err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	for _, cp := range closure {
		if cp.OutputSpec().Kind() == spec.Object {
			rule.AddDependency(cp.OutputAbspath(p))
		}
	}

	cfg := p.Cfg
	recipe := []string{cfg.Link.Tool}
	recipe = append(recipe, extraOpts...)
	recipe = append(recipe, cfg.Link.Flags...)
	recipe = append(recipe, cfg.Link.OutFlagPrefix+rule.Outputs[0])
	recipe = append(recipe, rule.sortedDeps()...)
	for _, dir := range cfg.Link.LibDirs {
		recipe = append(recipe, "-L"+dir)
	}
	for _, lib := range cfg.Link.Libs {
		recipe = append(recipe, cfg.Link.LibFlagPrefix+lib)
	}
	// Static linking needs bracketing flags only on ELF-style linkers;
	// Darwin and Windows toolchains don't understand -Bstatic/-Bdynamic.
	bracketStatic := runtime.GOOS != "darwin" && runtime.GOOS != "windows"
	if bracketStatic {
		recipe = append(recipe, "-Wl,-Bstatic")
	}
	for _, lib := range cfg.Link.StaticLibs {
		recipe = append(recipe, "-l"+lib)
	}
	if bracketStatic {
		recipe = append(recipe, "-Wl,-Bdynamic")
	}
	rule.AppendToRecipe(recipe)

	if stripMainSuffix && strings.HasSuffix(rule.Outputs[0], "-main") {
		target := j.RenameOutput
		if target == "" {
			target = strings.TrimSuffix(rule.Outputs[0], "-main")
		}
		rule.AppendToRecipe([]string{"mv", rule.Outputs[0], target})
	}

	return rule, nil
}

// collectClosure walks the plan graph a link job's input spec sits at,
// following both "what input does this plan consume" and "what does this
// plan's output imply" edges, so an object's whole transitive dependency
// set is discovered even when some of it only surfaces through the
// header-implies-object rule.
func collectClosure(p *planner.Planner, start plan.Plan, visited map[spec.Spec]bool, out *[]plan.Plan) error {
	key := start.OutputSpec()
	if visited[key] {
		return nil
	}
	visited[key] = true
	*out = append(*out, start)

	for _, implied := range start.ImpliedSpecs(p) {
		impliedPlan, err := p.GetPlan(implied)
		if err != nil {
			return err
		}
		if err := collectClosure(p, impliedPlan, visited, out); err != nil {
			return err
		}
	}
	if inputSpec, ok := start.InputSpec(); ok {
		inputPlan, err := p.GetPlan(inputSpec)
		if err != nil {
			return err
		}
		if err := collectClosure(p, inputPlan, visited, out); err != nil {
			return err
		}
	}
	return nil
}

// ConvWaveToScript renders one wave of jobs as a complete Make fragment: a
// pseudo "all" target depending on every rule's outputs, the rules
// themselves, and (when showProgress is set) the preamble that turns a
// dry-run invocation into a percentage counter. Each wave gets a random
// X-Ib-Wave-Id comment purely as a diagnostic breadcrumb for anyone
// inspecting a generated script by hand.
func ConvWaveToScript(p *planner.Planner, wave []*job.Job, showProgress bool) (string, error) {
	rules := make([]*Rule, len(wave))
	for i, j := range wave {
		rule, err := RuleFor(p, j)
		if err != nil {
			return "", err
		}
		rules[i] = rule
	}

	allRule := NewRule([]string{p.Cfg.Make.AllPseudoTarget})
	for _, rule := range rules {
		for _, output := range rule.Outputs {
			allRule.AddDependency(output)
		}
		allRule.RecipeAction = rule.RecipeAction
		allRule.ShowProgress = showProgress
		rule.ShowProgress = showProgress
	}

	allRules := append([]*Rule{allRule}, rules...)

	var preamble strings.Builder
	preamble.WriteString(fmt.Sprintf("# X-Ib-Wave-Id: %s\n", uuid.New().String()))
	if showProgress {
		target := p.Cfg.Make.AllPseudoTarget
		preamble.WriteString("ifndef SHOW_PROGRESS\n")
		preamble.WriteString(fmt.Sprintf(
			"T := $(shell $(MAKE) %s --no-print-directory -nrRf $(firstword $(MAKEFILE_LIST)) SHOW_PROGRESS=\"PROGRESS_IND\" | grep -c \"PROGRESS_IND\")\n",
			target))
		preamble.WriteString("N := x\n")
		preamble.WriteString("C = $(words $N)$(eval N := x $N)\n")
		preamble.WriteString("SHOW_PROGRESS = printf '[%3d%%] %s %s\\n' `expr $C '*' 100 / $T`\n")
		preamble.WriteString("endif\n\n")
	}

	scripts := make([]string, len(allRules))
	for i, rule := range allRules {
		scripts[i] = rule.Script()
	}
	return preamble.String() + strings.Join(scripts, "\n"), nil
}
