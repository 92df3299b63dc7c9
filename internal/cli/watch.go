package cli

import (
	"context"
	"errors"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dudu/hairline/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Analyze photos as they are added to a folder",
	Long: `Watch a folder and analyze every new photo for the subject. A file is
analyzed once it has stopped changing for the configured settle delay.
Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		subject := subjectFor(a, nil)
		if _, err := a.analyzer(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		settle := time.Duration(a.cfg.Watch.SettleMillis) * time.Millisecond
		w, err := watch.New(args[0], settle, a.watchHandler(cmd, subject), a.log)
		if err != nil {
			return err
		}

		cmd.Printf("Watching %s for subject %s, press Ctrl+C to stop\n", args[0], subject)
		return w.Run(ctx)
	})
}

func (a *app) watchHandler(cmd *cobra.Command, subject string) watch.Handler {
	return func(ctx context.Context, path string) error {
		result, err := a.analyzeFile(ctx, path, subject, analyzeOptions{})
		if err != nil {
			if errors.Is(err, errNoFace) {
				cmd.Printf("%s: no face detected\n", filepath.Base(path))
			}
			return err
		}
		cmd.Printf("%s: %s (height %.3f, density %.3f)\n",
			filepath.Base(path), result.HairlineType, result.HairlineHeight, result.DensityScore)
		return nil
	}
}
