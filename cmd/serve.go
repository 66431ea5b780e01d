package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyeonseo2/hf-translation-hub/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the translation toolbox over HTTP",
	Long: `Expose the workflow's tools as JSON endpoints under /api/v1/tools so
external agents can drive discovery, prompting, validation, saving, and
PR creation remotely.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}
		led, err := openLedger()
		if err != nil {
			return err
		}
		if led != nil {
			defer led.Close()
		}

		cfg := api.Config{
			Registry: registry,
			Ledger:   led,
			Root:     repoRoot,
			Log:      log,
		}
		if pub, err := newPublisher(cmd.Context()); err == nil {
			cfg.Publisher = pub
		} else {
			log.Warn().Err(err).Msg("PR endpoint disabled")
		}

		srv := &http.Server{
			Addr:              serveAddr,
			Handler:           api.NewServer(cfg).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", serveAddr).Msg("listening")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
}
