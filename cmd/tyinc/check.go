package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tyinc/internal/driver"
	"tyinc/internal/ui"
)

var (
	checkTimings  bool
	checkStats    bool
	checkProgress bool
)

func init() {
	checkCmd.Flags().BoolVar(&checkTimings, "timings", false, "show phase timings")
	checkCmd.Flags().BoolVar(&checkStats, "stats", false, "show per-query statistics")
	checkCmd.Flags().BoolVar(&checkProgress, "progress", false, "show inference progress on stderr (terminals only)")
}

var checkCmd = &cobra.Command{
	Use:   "check <workspace.toml>",
	Short: "Infer every body of a workspace and report diagnostics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, args[0])
		if err != nil {
			return err
		}
		opts := driver.CheckOptions{
			Jobs: jobs(),
			Observer: func(e driver.PhaseEvent) {
				if e.Status == driver.PhaseEnd {
					env.logger.Sugar().Debugf("phase %s done in %s", e.Name, e.Elapsed)
				}
			},
		}
		var report *driver.Report
		if checkProgress && isTerminal(os.Stderr) {
			report, err = runCheckWithUI(cmd.Context(), args[0], s, opts)
		} else {
			report, err = driver.Check(cmd.Context(), s, opts)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printBodies(out, report)
		if checkTimings {
			fmt.Fprint(out, report.Timings.Summary())
		}
		if checkStats {
			fmt.Fprint(out, report.Queries.Summary())
		}
		if n := report.ErrorCount(); n > 0 {
			return errors.Newf("%d diagnostics", n)
		}
		return nil
	},
}

func printBodies(out io.Writer, report *driver.Report) {
	crateColor := color.New(color.FgCyan)
	sigColor := color.New(color.Bold)
	errColor := color.New(color.FgRed, color.Bold)

	width := 0
	for _, b := range report.Bodies {
		width = max(width, ui.Width(b.Crate))
	}
	for _, b := range report.Bodies {
		fmt.Fprintf(out, "%s  %s\n", crateColor.Sprint(ui.PadRight(b.Crate, width)), sigColor.Sprint(b.Signature))
		for _, d := range b.Diagnostics {
			fmt.Fprintf(out, "%s  %s %s\n", ui.PadRight("", width), errColor.Sprint("error:"), d)
		}
	}
}
