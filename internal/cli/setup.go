package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/dudu/hairline/internal/archive"
	"github.com/dudu/hairline/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the data directories, sample images and a config file",
	Args:  cobra.NoArgs,
	RunE:  runSetup,
}

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "Write synthetic sample faces to input/raw_images",
	Args:  cobra.NoArgs,
	RunE:  runSamples,
}

func init() {
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(samplesCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(_ context.Context, a *app) error {
		cmd.Println("Setting up environment...")
		for _, k := range archive.Kinds {
			cmd.Printf("  %s\n", a.archive.Dir(k))
		}

		path := configPath
		if path == "" {
			path = config.DefaultConfigFile
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := a.cfg.Save(path); err != nil {
				return err
			}
			cmd.Printf("Config written: %s\n", path)
		}

		if err := createSamples(cmd, a); err != nil {
			return err
		}
		cmd.Println("Environment setup complete!")
		return nil
	})
}

func runSamples(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(_ context.Context, a *app) error {
		return createSamples(cmd, a)
	})
}

func createSamples(cmd *cobra.Command, a *app) error {
	paths, err := a.archive.CreateSamples()
	if err != nil {
		return err
	}
	cmd.Printf("Created %d sample images in %s\n", len(paths), a.archive.Dir(archive.RawImages))
	return nil
}
