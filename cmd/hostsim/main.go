// hostsim runs the simulated point-of-sale host as a WebSocket service,
// so embedded applications can be developed against a live endpoint
// instead of a real register.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/onshopfront/embedded-go/pkg/config"
	"github.com/onshopfront/embedded-go/pkg/events"
	"github.com/onshopfront/embedded-go/pkg/observability"
	"github.com/onshopfront/embedded-go/pkg/simulator"
)

var rootCmd = &cobra.Command{
	Use:   "hostsim",
	Short: "Simulated Shopfront point-of-sale host",
	Long: `hostsim serves the point-of-sale side of the embedded protocol over
WebSocket. Each connected application gets its own register with a
configurable location, option set, and seeded device database.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulator over WebSocket",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := observability.LoggerFromEnv()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	if cfg.IsDevelopment() {
		logger = observability.NewLogger(observability.LogConfig{
			Level:  observability.LogLevel(cfg.LogLevel),
			Format: observability.LogFormatText,
		})
	}

	ctx := cmd.Context()

	store, err := simulator.OpenStore(ctx, cfg.SimulatorDSN)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer store.Close()

	server := simulator.NewServer(simulator.Options{
		Logger: logger,
		Location: events.Location{
			RegisterID: cfg.RegisterID,
			OutletID:   cfg.OutletID,
			UserID:     cfg.UserID,
		},
		Token:          cfg.SimulatorToken,
		CashoutTenders: cfg.CashoutTenders,
		Store:          store,
		AudioGranted:   true,
	})

	health := observability.NewHealthRegistry()
	health.Register("store", observability.DatabaseHealthChecker(store.Ping))

	mux := http.NewServeMux()
	mux.Handle("/connect", server)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		overall := health.GetOverallHealth(r.Context())
		body, err := overall.ToJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if overall.Status != observability.HealthStatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_, _ = w.Write(body)
	})

	httpServer := &http.Server{
		Addr:              cfg.SimulatorAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("simulator listening", "addr", cfg.SimulatorAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("server failed", "error", err)
		return err
	}
}
