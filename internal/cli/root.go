// Package cli implements the hairline command line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

var (
	// version is set by SetVersion from the build
	version = "dev"

	configPath  string
	subjectFlag string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "hairline",
	Short: "Track hairline changes across photos",
	Long: `hairline measures the hairline in frontal face photos, classifies its
shape and tracks how the measurements change over time for each subject.

Run "hairline setup" once to create the data directories and a config file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default hairline.toml)")
	rootCmd.PersistentFlags().StringVarP(&subjectFlag, "subject", "s", "", "subject ID (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// subjectFor picks the subject from the first argument, the --subject flag
// or the configured default, in that order.
func subjectFor(a *app, args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	if subjectFlag != "" {
		return subjectFlag
	}
	return a.cfg.Subject
}

var errNoFace = errors.New("no face detected in the photo")
