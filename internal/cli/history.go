package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [subject]",
	Short: "List a subject's recorded analyses",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		subject := subjectFor(a, args)
		cmd.Printf("Analysis history for: %s\n", subject)

		snaps, err := a.tracker.Series(ctx, subject)
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			cmd.Println("  No analysis history found")
			return nil
		}

		cmd.Printf("  Found %d analyses:\n", len(snaps))
		for i, s := range snaps {
			cmd.Printf("  %d. %s - %s (height %.3f, density %.3f)\n",
				i+1, s.Timestamp, s.HairlineType, s.HairlineHeight, s.DensityScore)
		}

		files, err := a.archive.History(subject)
		if err != nil {
			return err
		}
		if len(files) > 0 {
			cmd.Printf("  %d result files in %s\n", len(files), a.archive.Root())
		}
		return nil
	})
}
