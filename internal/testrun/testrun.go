// Package testrun executes the built artifacts for specs whose atom ends
// in "-test" and reports pass/fail per target: after a successful build,
// every target whose spec names a test gets invoked directly and
// partitioned by exit status.
package testrun

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ibuild/ib/internal/spec"
)

// Result is the outcome of running one test binary.
type Result struct {
	Spec     spec.Spec
	Passed   bool
	Duration time.Duration
}

// IsTest reports whether s names a test target (its atom ends in "-test"),
// the convention the whole test-discovery and test-running path keys off.
func IsTest(s spec.Spec) bool {
	return strings.HasSuffix(s.Atom, "-test")
}

// Run executes the built artifact for every test spec in specs (specs that
// aren't tests are skipped) and returns one Result per test run, in the
// order given.
func Run(outRoot string, specs []spec.Spec) []Result {
	var results []Result
	for _, s := range specs {
		if !IsTest(s) {
			continue
		}
		path := filepath.Join(outRoot, s.Relpath())
		start := time.Now()
		cmd := exec.Command(path)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		err := cmd.Run()
		results = append(results, Result{Spec: s, Passed: err == nil, Duration: time.Since(start)})
	}
	return results
}

// Summarize partitions results into passing and failing specs, in the order
// they were run.
func Summarize(results []Result) (passed, failed []spec.Spec) {
	for _, r := range results {
		if r.Passed {
			passed = append(passed, r.Spec)
		} else {
			failed = append(failed, r.Spec)
		}
	}
	return passed, failed
}

// DiscoverAll walks root looking for "*-test.cc" files, returning one
// target path per match with the ".cc" extension stripped — the
// --test_all behavior, which builds and runs every test under a subtree
// instead of requiring each to be named explicitly.
func DiscoverAll(root string) ([]string, error) {
	var targets []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		name := info.Name()
		if strings.HasSuffix(name, "-test.cc") {
			targets = append(targets, strings.TrimSuffix(path, ".cc"))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return targets, nil
}
