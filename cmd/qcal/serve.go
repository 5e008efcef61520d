package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aretw0/qcal/internal/cli"
	httpAdapter "github.com/aretw0/qcal/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the environment over HTTP",
	Long: `Builds the environment from the config and exposes reset, step, state,
truncations, an SSE event stream and Prometheus metrics as a JSON API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		streams := httpAdapter.NewStreamManager()
		app, err := loadApp(sc, cmd, httpAdapter.StreamHooks(streams))
		if err != nil {
			return err
		}
		defer app.Close()

		handler := httpAdapter.NewServer(app.Env,
			httpAdapter.WithLogger(app.Logger),
			httpAdapter.WithGatherer(app.Registry),
			httpAdapter.WithStreams(streams),
		).Handler()

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			app.Logger.Info("Starting qcal server", "address", srv.Addr, "run_id", app.Env.RunID())
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err

		case <-sc.Done():
			cli.PrintSystemMessage(cmd.ErrOrStderr(), "Shutting down (signal: %v)", sc.Signal())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				app.Logger.Error("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				return srv.Close()
			}
			app.Logger.Info("qcal server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
