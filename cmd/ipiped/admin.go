package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bwHC-gko/ipipe"
	"github.com/bwHC-gko/ipipe/metrics"
)

const shutdownTimeout = 5 * time.Second

type adminServer struct {
	srv      *http.Server
	registry *ipipe.Registry
	logger   *zap.Logger
	started  time.Time
}

func newAdminServer(addr string, registry *ipipe.Registry, logger *zap.Logger) *adminServer {
	a := &adminServer{
		registry: registry,
		logger:   logger,
		started:  time.Now(),
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		metrics.NewCollector(registry),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", a.handleHealth)
	r.Get("/api/v1/pipes", a.handlePipes)
	r.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	a.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a
}

// serve runs the admin API until ctx is cancelled, then shuts down
// gracefully with a timeout.
func (a *adminServer) serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("admin API listening", zap.String("addr", a.srv.Addr))
		errCh <- a.srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.srv.Shutdown(shCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *adminServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, map[string]any{
		"status":         "ok",
		"version":        version,
		"uptime_seconds": int64(time.Since(a.started).Seconds()),
		"pipes":          len(a.registry.Stats()),
	})
}

func (a *adminServer) handlePipes(w http.ResponseWriter, _ *http.Request) {
	type pipeInfo struct {
		Name         string `json:"name"`
		Path         string `json:"path"`
		BytesWritten int64  `json:"bytes_written"`
	}
	stats := a.registry.Stats()
	out := make([]pipeInfo, 0, len(stats))
	for _, s := range stats {
		out = append(out, pipeInfo{Name: s.Name, Path: s.Path, BytesWritten: s.BytesWritten})
	}
	a.writeJSON(w, map[string]any{"pipes": out})
}

func (a *adminServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("write admin response", zap.Error(err))
	}
}
