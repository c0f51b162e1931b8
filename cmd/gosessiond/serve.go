package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/prometheus"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the session store service",
		Long:  `Build the tiered session store, start the expiry reaper and serve /healthz, /metrics and /security until interrupted.`,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if r := rt.manager.Reaper(); r != nil {
		r.Start()
	}

	srv := &http.Server{
		Addr:              rt.cfg.Server.Addr,
		Handler:           newMux(rt.manager),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("http server listening", "addr", srv.Addr, "tiers", rt.manager.Tiers())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	rt.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newMux(m *goSession.Manager) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", prometheus.NewPrometheusExporter(m).Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		health := m.Health(r.Context())
		status := http.StatusOK
		for _, h := range health {
			if !h.Healthy {
				status = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, status, map[string]any{"tiers": health})
	})
	mux.HandleFunc("GET /security", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, m.SecurityReport())
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
