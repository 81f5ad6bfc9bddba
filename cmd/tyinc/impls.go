package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tyinc/internal/driver"
	"tyinc/internal/ui"
)

var implsCmd = &cobra.Command{
	Use:   "impls <workspace.toml>",
	Short: "List the inherent and trait impl indices of every crate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, args[0])
		if err != nil {
			return err
		}
		rows, err := driver.Impls(cmd.Context(), s)
		if err != nil {
			return err
		}

		crateW, traitW, keyW := len("crate"), len("trait"), len("key")
		for _, r := range rows {
			crateW = max(crateW, ui.Width(r.Crate))
			traitW = max(traitW, ui.Width(traitLabel(r)))
			keyW = max(keyW, ui.Width(r.Key))
		}
		headerW := 0
		if isTerminal(os.Stdout) {
			if cols, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				headerW = cols - crateW - traitW - keyW - 6
			}
		}

		out := cmd.OutOrStdout()
		bold := color.New(color.Bold)
		fmt.Fprintf(out, "%s  %s  %s  %s\n",
			bold.Sprint(ui.PadRight("crate", crateW)), bold.Sprint(ui.PadRight("trait", traitW)),
			bold.Sprint(ui.PadRight("key", keyW)), bold.Sprint("impl"))
		for _, r := range rows {
			fmt.Fprintf(out, "%s  %s  %s  %s\n",
				ui.PadRight(r.Crate, crateW), ui.PadRight(traitLabel(r), traitW),
				ui.PadRight(r.Key, keyW), ui.Truncate(r.Header, headerW))
		}
		return nil
	},
}

func traitLabel(r driver.ImplRow) string {
	if r.Trait == "" {
		return "-"
	}
	return r.Trait
}
