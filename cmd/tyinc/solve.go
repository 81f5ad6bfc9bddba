package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tyinc/internal/driver"
)

var solveCrate string

func init() {
	solveCmd.Flags().StringVar(&solveCrate, "crate", "", "crate the goal is asked from (default: the last crate)")
}

var solveCmd = &cobra.Command{
	Use:   "solve <workspace.toml> <Type> <Bound>",
	Short: "Ask the trait solver whether a type satisfies a bound",
	Example: `  tyinc solve ws.toml 'Vec<u32>' 'Clone'
  tyinc solve ws.toml 'Counter' 'Iterator<Item = u32>'`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, args[0])
		if err != nil {
			return err
		}
		crate := solveCrate
		if crate == "" {
			order := s.Workspace.Order
			if len(order) == 0 {
				return errors.New("workspace has no crates")
			}
			crate = s.CrateName(order[len(order)-1])
		}
		results, err := driver.Solve(cmd.Context(), s, crate, args[1], args[2])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		failed := false
		for _, r := range results {
			var verdict string
			switch r.Outcome {
			case driver.OutcomeUnique:
				verdict = color.GreenString(r.Outcome.String())
			case driver.OutcomeAmbiguous:
				verdict = color.YellowString(r.Outcome.String())
			default:
				verdict = color.RedString(r.Outcome.String())
				failed = true
			}
			fmt.Fprintf(out, "%s: %s", r.Goal, verdict)
			if r.Bindings != "" {
				fmt.Fprintf(out, " %s", r.Bindings)
			}
			fmt.Fprintln(out)
		}
		if failed {
			return errors.New("bound does not hold")
		}
		return nil
	},
}
