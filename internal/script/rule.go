// Package script turns a wave of jobs into a Makefile fragment: one rule
// per job output, plus an aggregating pseudo-target the planner's caller
// actually invokes make against.
package script

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Rule is one Makefile rule: one or more outputs, a dependency set, and a
// recipe (a sequence of shell command lines).
type Rule struct {
	Outputs      []string
	deps         map[string]bool
	RecipeLines  []string
	ShowProgress bool
	RecipeAction string
}

// NewRule creates a rule for the given outputs, creating their parent
// directories immediately so later recipe execution never fails on a
// missing directory.
func NewRule(outputs []string) *Rule {
	for _, output := range outputs {
		dir := filepath.Dir(output)
		if dir != "" && dir != "." {
			os.MkdirAll(dir, 0o755)
		}
	}
	return &Rule{Outputs: outputs, deps: map[string]bool{}, RecipeAction: "Building"}
}

func (r *Rule) AddDependency(path string) { r.deps[path] = true }

func (r *Rule) AppendToRecipe(args []string) {
	r.RecipeLines = append(r.RecipeLines, strings.Join(args, " "))
}

func (r *Rule) sortedDeps() []string {
	deps := make([]string, 0, len(r.deps))
	for d := range r.deps {
		deps = append(deps, d)
	}
	sort.Strings(deps)
	return deps
}

// Script renders this rule as Make syntax.
func (r *Rule) Script() string {
	var deps strings.Builder
	for _, dep := range r.sortedDeps() {
		deps.WriteString(" \\\n")
		deps.WriteString(dep)
	}

	progressRecipe := ""
	if r.ShowProgress {
		if len(r.RecipeLines) > 0 {
			progressRecipe = fmt.Sprintf("\t@$(SHOW_PROGRESS) %s $@\n", r.RecipeAction)
		} else {
			progressRecipe = fmt.Sprintf("\t@$(SHOW_PROGRESS) %s done\n", r.RecipeAction)
		}
	}

	recipeLines := make([]string, len(r.RecipeLines))
	for i, line := range r.RecipeLines {
		recipeLines[i] = "\t" + line
	}

	return fmt.Sprintf("%s:%s\n%s\n",
		strings.Join(r.Outputs, " "), deps.String(), progressRecipe+strings.Join(recipeLines, "\n"))
}
