package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [subject]",
	Short: "Export all analyses and reports of a subject as one JSON file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(_ context.Context, a *app) error {
		subject := subjectFor(a, args)
		path, doc, err := a.archive.Export(subject)
		if err != nil {
			return err
		}
		cmd.Printf("Exported %d analyses and %d reports for %s\n", len(doc.Analyses), len(doc.Reports), subject)
		cmd.Printf("Export file: %s\n", path)
		return nil
	})
}
