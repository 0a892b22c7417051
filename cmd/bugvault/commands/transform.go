package commands

import (
	"bugvault/lib/archive"
	"bugvault/lib/gitlab"
	"bugvault/lib/osutil"
	"log/slog"

	"github.com/spf13/cobra"
)

var transformOut *string

func init() {
	transformOut = transformCmd.Flags().String("out", "gitlab-import.json", "The file to write the import document to.")
	rootCmd.AddCommand(transformCmd)
}

var transformCmd = &cobra.Command{
	Use:   "transform [--out <path/to/import.json>]",
	Short: "Converts the archive into a gitlab issue import document.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustConfig()

		arc, err := archive.Open(cfg.Archive)
		if err != nil {
			osutil.Fatal("failed to open archive", err)
		}

		mapping, err := gitlab.MergeConfig(cfg.Transform)
		if err != nil {
			osutil.Fatal("failed to merge transform config", err)
		}

		doc, err := gitlab.Transform(cmd.Context(), arc, mapping)
		if err != nil {
			osutil.Fatal("transform failed", err)
		}
		if err := gitlab.WriteImportFile(*transformOut, doc); err != nil {
			osutil.Fatal("failed to write import file", err)
		}
		slog.Info("wrote import document", "path", *transformOut, "issues", len(doc.Issues))
	},
}
