package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dudu/hairline/internal/archive"
)

var batchCmd = &cobra.Command{
	Use:   "batch [dir]",
	Short: "Analyze every valid photo in a folder",
	Long: `Check every image in the folder (default input/raw_images) and analyze
the ones that pass the quality check. Rejected images are listed with the
reason.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		subject := subjectFor(a, nil)
		dir := a.archive.Dir(archive.RawImages)
		if len(args) > 0 {
			dir = args[0]
		}

		cmd.Printf("Processing batch images from: %s\n", dir)
		valid, invalid, err := a.archive.Scan(dir, a.enhancer)
		if err != nil {
			return err
		}
		for _, r := range invalid {
			cmd.Printf("  skipped %s: %s\n", filepath.Base(r.Path), r.Reason)
		}
		if len(valid) == 0 {
			cmd.Println("No valid images found to process")
			return nil
		}

		ok := 0
		for _, path := range valid {
			cmd.Printf("Processing: %s\n", filepath.Base(path))
			// inputs already live in the folder being scanned
			result, err := a.analyzeFile(ctx, path, subject, analyzeOptions{})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				cmd.Printf("  failed: %v\n", err)
				continue
			}
			ok++
			cmd.Printf("  %s (height %.3f, density %.3f)\n",
				result.HairlineType, result.HairlineHeight, result.DensityScore)
		}

		cmd.Println()
		cmd.Println("Batch processing complete!")
		cmd.Printf("Successful analyses: %d\n", ok)
		cmd.Printf("Failed analyses: %d\n", len(valid)-ok)
		return nil
	})
}
