package commands

import (
	"bugvault/lib/archive"
	"bugvault/lib/osutil"
	"bugvault/lib/scrapers/bugzilla"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(inventoryCmd)
}

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Prints what the archive already holds.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustConfig()

		arc, err := archive.Open(cfg.Archive)
		if err != nil {
			osutil.Fatal("failed to open archive", err)
		}
		batches, err := arc.Batches()
		if err != nil {
			osutil.Fatal("failed to enumerate batches", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Batch", "Bugs", "Attachments", "Size"})

		totalBugs := 0
		for _, batch := range batches {
			bugs, err := bugzilla.ParseBatchFile(batch.Path)
			if err != nil {
				osutil.Fatal("archive is corrupt", err)
			}
			attachments := 0
			for _, bug := range bugs {
				attachments += len(bug.Attachments)
			}
			info, err := os.Stat(batch.Path)
			if err != nil {
				osutil.Fatal("failed to stat batch", err)
			}
			totalBugs += len(bugs)
			t.AppendRow(table.Row{
				batch.Index,
				len(bugs),
				attachments,
				humanize.Bytes(uint64(info.Size())),
			})
		}

		onDisk, err := arc.AttachmentIDs()
		if err != nil {
			osutil.Fatal("failed to enumerate attachments", err)
		}
		t.AppendFooter(table.Row{
			"total",
			totalBugs,
			strconv.Itoa(len(onDisk)) + " on disk",
			"",
		})

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
