package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dudu/hairline/internal/render"
)

var progressCmd = &cobra.Command{
	Use:   "progress [subject]",
	Short: "Print the progress report for a subject",
	Long: `Compare the subject's first and latest analyses and print the trend with
recommendations. The report text, a progress chart and a full data export
are written under output/.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProgress,
}

func init() {
	rootCmd.AddCommand(progressCmd)
}

func runProgress(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		subject := subjectFor(a, args)
		cmd.Printf("Generating progress report for: %s\n\n", subject)

		report, err := a.tracker.BuildReport(ctx, subject)
		if err != nil {
			return err
		}
		cmd.Println(report.Text())
		if !report.OK() {
			return nil
		}

		path, err := a.archive.SaveReport(report.Text(), subject, "progress")
		if err != nil {
			return err
		}
		cmd.Printf("Progress report saved: %s\n", path)

		chart := a.archive.ChartPath(subject)
		if err := render.WriteProgressChart(chart, report.Series); err != nil {
			return err
		}
		cmd.Printf("Progress chart saved: %s\n", chart)

		export, _, err := a.archive.Export(subject)
		if err != nil {
			return err
		}
		cmd.Printf("User data exported: %s\n", export)
		return nil
	})
}
