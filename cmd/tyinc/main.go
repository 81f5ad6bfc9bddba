package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tyinc/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "tyinc",
	Short:         "Incremental type analysis for workspace fixtures",
	Long:          `tyinc lowers, indexes and infers the items of a workspace through an incremental query database`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupEnv(cmd)
	},
}

// main registers subcommands and persistent flags, then executes the root
// command. Errors are printed once and exit with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(implsCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "path to tyinc.toml (default: search upwards from the working directory)")
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.String("log-level", "off", "log level (off|debug|info|warn|error)")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "", "trace storage mode (stream|ring|both)")
	flags.Int("trace-ring-size", 0, "ring buffer capacity in events")
	flags.Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0 disables)")

	err := rootCmd.Execute()
	env.failed = err != nil
	closeEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorText(err))
		os.Exit(1)
	}
}
