package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the /metrics handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog: slogErrorLog{m},
	})
}

// LivenessHandler reports that the daemon is up and which state the engine
// is in.
func (m *Metrics) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		s, err := m.Snapshot()
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]any{
				"status": "unknown",
				"error":  err.Error(),
			})
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"status":    "alive",
			"state":     s.State.String(),
			"timestamp": time.Now(),
		})
	})
}

// Serve exposes /metrics and /healthz on addr until ctx is done. It returns once the
// listener is bound, with the address actually used.
func (m *Metrics) Serve(ctx context.Context, addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/healthz", m.LivenessHandler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error("metrics server stopped", "error", err)
		}
	}()

	m.log.Info("serving metrics", "addr", ln.Addr().String())
	return ln.Addr(), nil
}

// StartReporter logs a counter summary every interval. The returned
// function stops the scheduler. A non-positive interval does nothing.
func (m *Metrics) StartReporter(interval time.Duration) (stop func() error, err error) {
	if interval <= 0 {
		return func() error { return nil }, nil
	}

	s, err := gocron.NewScheduler(gocron.WithLogger(m.log))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(m.report),
		gocron.WithName("stats"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("schedule stats job: %w", err)
	}

	s.Start()
	return s.Shutdown, nil
}

func (m *Metrics) report() {
	s, err := m.Snapshot()
	if err != nil {
		m.log.Warn("gather metrics", "error", err)
		return
	}
	m.log.Info("stats",
		"events_read", s.EventsRead,
		"events_written", s.EventsWritten,
		"taps", s.Taps,
		"layer_release", s.LayerRelease,
		"layer_timeout", s.LayerTimeout,
		"buffer_overflows", s.BufferOverflows,
		"state", s.State,
	)
}

// slogErrorLog adapts the logger to promhttp.Logger.
type slogErrorLog struct {
	m *Metrics
}

func (l slogErrorLog) Println(v ...any) {
	l.m.log.Error("metrics handler", "error", fmt.Sprint(v...))
}
