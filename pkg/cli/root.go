// package cli implements ib's command-line interface: a single cobra
// command carrying every build flag, with a small banner and minimal ANSI
// theming for the pass/fail test summary, and a Version var set at build
// time via ldflags.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ANSI color codes, used only for the pass/fail test summary — the rest of
// ib's output is plain text.
const (
	red    = "\033[1;31m"
	green  = "\033[1;32m"
	normal = "\033[0m"
)

func banner() string {
	return `
 _ _
(_) |__
| | '_ \
| | |_) |
|_|_.__/

` + `a build planner for mixed C/C++ source trees` + "\n"
}

var opts buildOptions

var rootCmd = &cobra.Command{
	Use:   "ib [targets...]",
	Short: "ib plans and runs a C/C++ build",
	Long: banner() + `
ib resolves each target to a build spec, discovers the producer jobs and
header dependencies needed to make it, schedules the result into waves of
independent jobs, emits a Make script per wave, and runs it.`,
	Version:      Version,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd, args, &opts)
	},
}

func init() {
	rootCmd.SetVersionTemplate("ib version {{.Version}}\n")

	flags := rootCmd.Flags()
	flags.StringVar(&opts.SrcRoot, "src_root", "", "root of the source tree (default: search upward for __ib__)")
	flags.StringVar(&opts.OutRoot, "out_root", "../out", "root of the output tree, relative to src_root unless absolute")
	flags.StringVar(&opts.CfgRoot, "cfg_root", ".", "root of the config tree, relative to src_root unless absolute")
	flags.StringVar(&opts.Cfg, "cfg", "debug", "the configuration to build")
	flags.BoolVar(&opts.PrintArgs, "print_args", false, "print the resolved src_root/out_root/cfg_root/cfg")
	flags.BoolVar(&opts.PrintCfg, "print_cfg", false, "print the composited config")
	flags.BoolVar(&opts.PrintScript, "print_script", false, "print each wave's Make script before running it")
	flags.BoolVar(&opts.ShowProgress, "show_progress", false, "print build progress")
	flags.BoolVar(&opts.NoRun, "no_run", false, "compute waves and scripts but don't run them")
	flags.BoolVar(&opts.Force, "force", false, "force a total rebuild of every target")
	flags.BoolVar(&opts.Test, "test", false, "run each named unit test after building")
	flags.BoolVar(&opts.TestAll, "test_all", false, "build and run every test under the given targets")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug-level logging")
}

// Execute runs the root command, translating a non-nil error into a process
// exit of -1 (observable as status 255), matching the documented exit-code
// contract: 0 on success, -1 on any planner, tool, or test failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}
}
