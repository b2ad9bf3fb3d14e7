package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ibuild/ib/internal/cfgfile"
	"github.com/ibuild/ib/internal/cfgmodel"
	"github.com/ibuild/ib/internal/ibex"
	"github.com/ibuild/ib/internal/ibos"
	"github.com/ibuild/ib/internal/planner"
	"github.com/ibuild/ib/internal/script"
	"github.com/ibuild/ib/internal/spec"
	"github.com/ibuild/ib/internal/testrun"
	"github.com/ibuild/ib/internal/workspace"
)

// markerFile is the empty sentinel file that marks a directory as a source
// root when --src_root isn't given explicitly.
const markerFile = "__ib__"

// buildOptions mirrors the build command's flag set; RunE fills it in from
// cobra's flag bindings in root.go.
type buildOptions struct {
	SrcRoot      string
	OutRoot      string
	CfgRoot      string
	Cfg          string
	PrintArgs    bool
	PrintCfg     bool
	PrintScript  bool
	ShowProgress bool
	NoRun        bool
	Force        bool
	Test         bool
	TestAll      bool
	Verbose      bool
}

func runBuild(cmd *cobra.Command, targets []string, opts *buildOptions) error {
	ibos.SetVerbose(opts.Verbose)

	srcRoot, err := resolveSrcRoot(opts.SrcRoot)
	if err != nil {
		return reportErr(err)
	}
	if info, err := os.Stat(srcRoot); err != nil || !info.IsDir() {
		return reportErr(ibex.New(ibex.Config,
			"you are trying to use %q as the root of the source tree; however, it either doesn't exist or is not a directory", srcRoot))
	}

	prefs := workspace.LoadOrDefault(srcRoot)
	cfgName := firstNonDefault(cmd, "cfg", opts.Cfg, prefs.Cfg)
	outRootFlag := firstNonDefault(cmd, "out_root", opts.OutRoot, prefs.OutRoot)

	cfgRoot := makeAbspath(srcRoot, opts.CfgRoot)
	if info, err := os.Stat(cfgRoot); err != nil || !info.IsDir() {
		return reportErr(ibex.New(ibex.Config,
			"you are trying to use %q as the root of the config tree; however, it either doesn't exist or is not a directory", cfgRoot))
	}
	outRoot := makeAbspath(srcRoot, filepath.Join(outRootFlag, cfgName))

	if err := workspace.Save(srcRoot, &workspace.Preferences{Cfg: cfgName, OutRoot: outRootFlag}); err != nil {
		ibos.Log.Warn("could not persist workspace preferences", "err", err)
	}

	if opts.PrintArgs {
		fmt.Printf("src_root = %q\n", srcRoot)
		fmt.Printf("out_root = %q\n", outRoot)
		fmt.Printf("cfg_root = %q\n", cfgRoot)
		fmt.Printf("cfg = %q\n", cfgName)
	}

	cfg, err := cfgfile.Load(cfgRoot, cfgName)
	if err != nil {
		return reportErr(err)
	}
	if opts.PrintCfg {
		fmt.Println(describeCfg(cfg))
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	p := planner.New(cfg, srcRoot, outRoot, cwd)

	targetList := targets
	if opts.TestAll {
		targetList = nil
		for _, subtree := range targets {
			discovered, err := testrun.DiscoverAll(subtree)
			if err != nil {
				return reportErr(err)
			}
			targetList = append(targetList, discovered...)
		}
	}

	specs := make([]spec.Spec, len(targetList))
	for i, target := range targetList {
		s, err := p.ConvTargetToSpec(target)
		if err != nil {
			return reportErr(err)
		}
		specs[i] = s
	}

	waves, err := p.YieldWaves(specs)
	if err != nil {
		return reportErr(err)
	}

	success := true
	for i, wave := range waves {
		waveScript, err := script.ConvWaveToScript(p, wave, opts.ShowProgress)
		if err != nil {
			return reportErr(err)
		}
		if opts.PrintScript {
			fmt.Printf("# wave %d\n%s\n", i+1, waveScript)
		}
		if opts.NoRun {
			return nil
		}
		ok, err := runScript(cfg, waveScript, opts.Force)
		if err != nil {
			return reportErr(err)
		}
		if !ok {
			success = false
			break
		}
	}

	if success && (opts.Test || opts.TestAll) {
		var testSpecs []spec.Spec
		for _, s := range specs {
			if testrun.IsTest(s) {
				fmt.Printf("running %s\n", s.Relpath())
				testSpecs = append(testSpecs, s)
			}
		}
		results := testrun.Run(outRoot, testSpecs)
		passed, failed := testrun.Summarize(results)
		printSummary(green+"passed"+normal, passed)
		printSummary(red+"failed"+normal, failed)
		success = len(failed) == 0
	}

	if !success {
		os.Exit(-1)
	}
	return nil
}

func printSummary(label string, specs []spec.Spec) {
	if len(specs) == 0 {
		return
	}
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Relpath()
	}
	fmt.Printf("%s %d (%s)\n", label, len(specs), strings.Join(names, ", "))
}

// reportErr prints an ib-domain error to stderr with a "** ib error **"
// banner plus the wrapped message, then returns it unchanged so cobra's own
// error path still sets a nonzero exit status.
func reportErr(err error) error {
	fmt.Fprintln(os.Stderr, "** ib error **")
	fmt.Fprintln(os.Stderr, "  "+err.Error())
	return err
}

func resolveSrcRoot(flagValue string) (string, error) {
	if flagValue != "" {
		return makeAbspath(mustGetwd(), flagValue), nil
	}
	found, ok := findMarkedRoot(mustGetwd())
	if !ok {
		return "", ibex.New(ibex.Config,
			"the root of the source tree was not given and could not be found; "+
				"you must either provide --src_root explicitly, or create an empty file called %q "+
				"in the directory you wish to use as your source root", markerFile)
	}
	return found, nil
}

func findMarkedRoot(start string) (string, bool) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, markerFile)); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func makeAbspath(root, argPath string) string {
	if filepath.IsAbs(argPath) {
		return filepath.Clean(argPath)
	}
	abs, err := filepath.Abs(filepath.Join(root, argPath))
	if err != nil {
		return filepath.Join(root, argPath)
	}
	return abs
}

// firstNonDefault prefers an explicitly-set flag over a persisted workspace
// preference: Changed() tells us the user actually passed --cfg/--out_root
// on this invocation rather than relying on root.go's hard-coded default.
func firstNonDefault(cmd *cobra.Command, flagName, flagValue, prefValue string) string {
	if cmd.Flags().Changed(flagName) || prefValue == "" {
		return flagValue
	}
	return prefValue
}

func runScript(cfg *cfgmodel.Config, scriptText string, force bool) (bool, error) {
	f, err := os.CreateTemp("", "ib-*.mk")
	if err != nil {
		return false, err
	}
	name := f.Name()
	defer os.Remove(name)
	if _, err := f.WriteString(scriptText); err != nil {
		f.Close()
		return false, err
	}
	if err := f.Close(); err != nil {
		return false, err
	}

	args := append([]string{}, cfg.Make.Flags...)
	if force {
		args = append(args, cfg.Make.ForceFlag)
	}
	args = append(args, "-f"+name, cfg.Make.AllPseudoTarget)

	cmd := exec.Command(cfg.Make.Tool, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run() == nil, nil
}

func describeCfg(cfg *cfgmodel.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# name: %s\n", cfg.Name)
	for name := range cfg.Imports {
		fmt.Fprintf(&b, "#   imports: %s\n", name)
	}
	fmt.Fprintf(&b, "cc.tool = %q\n", cfg.CC.Tool)
	fmt.Fprintf(&b, "cc.flags = %v\n", cfg.CC.Flags)
	fmt.Fprintf(&b, "cc.hdrs_flags = %v\n", cfg.CC.HdrsFlags)
	fmt.Fprintf(&b, "cc.incl_dirs = %v\n", cfg.CC.InclDirs)
	fmt.Fprintf(&b, "link.tool = %q\n", cfg.Link.Tool)
	fmt.Fprintf(&b, "link.flags = %v\n", cfg.Link.Flags)
	fmt.Fprintf(&b, "link.libs = %v\n", cfg.Link.Libs)
	fmt.Fprintf(&b, "link.static_libs = %v\n", cfg.Link.StaticLibs)
	fmt.Fprintf(&b, "link.lib_dirs = %v\n", cfg.Link.LibDirs)
	fmt.Fprintf(&b, "make.tool = %q\n", cfg.Make.Tool)
	fmt.Fprintf(&b, "make.flags = %v\n", cfg.Make.Flags)
	return b.String()
}
