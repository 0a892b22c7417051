package commands

import (
	"bugvault/lib/cookies"
	"bugvault/lib/osutil"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cookiesCmd)
}

var cookiesCmd = &cobra.Command{
	Use:   "cookies <host>",
	Short: "Checks which session cookies can be read for a host (names only).",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustConfig()

		source, err := cookies.FromName(cfg.Browser, cfg.Profile)
		if err != nil {
			osutil.Fatal("failed to resolve cookie source", err)
		}
		found, err := source.Cookies(cmd.Context(), args[0])
		if err != nil {
			osutil.Fatal("failed to read cookies", err)
		}

		names := make([]string, 0, len(found))
		for name := range found {
			names = append(names, name)
		}
		sort.Strings(names)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Cookie"})
		for _, name := range names {
			t.AppendRow(table.Row{name})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
