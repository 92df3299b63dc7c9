package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dudu/hairline/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the history, report and analysis HTTP API",
	Long: `Start the HTTP API. When the landmark models cannot be loaded the server
still serves history and reports, and analysis requests answer 503.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		opts := server.Options{
			Tracker:     a.tracker,
			Enhancer:    a.enhancer,
			Archive:     a.archive,
			Log:         a.log,
			BodyLimitMB: a.cfg.Server.BodyLimitMB,
		}
		if p, err := a.analyzer(); err != nil {
			a.log.WithError(err).Warn("analysis disabled")
		} else {
			opts.Analyzer = p
		}
		srv, err := server.New(opts)
		if err != nil {
			return err
		}

		addr := a.cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Listen(addr)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		a.log.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
