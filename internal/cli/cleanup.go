package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cleanupDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup [subject]",
	Short: "Delete a subject's files older than N days",
	Long: `Delete the subject's photos, results, reports and visualizations that are
older than --days. Recorded snapshots in the history store are kept.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 30, "delete files older than this many days")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	if cleanupDays < 0 {
		return fmt.Errorf("--days must not be negative, got %d", cleanupDays)
	}
	return withApp(cmd, func(_ context.Context, a *app) error {
		subject := subjectFor(a, args)
		n, err := a.archive.Cleanup(subject, time.Duration(cleanupDays)*24*time.Hour)
		if err != nil {
			return err
		}
		cmd.Printf("Removed %d files older than %d days for %s\n", n, cleanupDays, subject)
		return nil
	})
}
