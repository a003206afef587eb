package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/colpool/colpool/colpooltelemetry"
)

// serveCmd starts the websocket telemetry server standalone, so an
// operator can point a dashboard at it before wiring a real colpool
// Runtime's colpool.WithTelemetry option to this same Hub in-process.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pool/collector telemetry websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		hub := colpooltelemetry.NewHub(256, logger)
		defer hub.Close()

		mux := http.NewServeMux()
		mux.Handle("/events", hub)

		srv := &http.Server{Addr: cfg.Serve.Addr, Handler: mux}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			logger.Info("shutting down telemetry server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		logger.Info("telemetry server listening", "addr", cfg.Serve.Addr, "path", "/events")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
