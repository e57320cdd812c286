// Package metrics exposes coordinator activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the coordinator metrics. It satisfies coordinator.Observer.
type Registry struct {
	registry       *prometheus.Registry
	connections    *prometheus.CounterVec
	sends          *prometheus.CounterVec
	sendDuration   prometheus.Histogram
	inFlight       prometheus.Gauge
	transferCount  prometheus.Gauge
	historyRecords prometheus.Gauge
}

// New returns a registry with every metric registered.
func New() *Registry {
	connections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "w3transfer_connections_total",
		Help: "Wallet connection attempts by result",
	}, []string{"result"})

	sends := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "w3transfer_sends_total",
		Help: "Send attempts by outcome",
	}, []string{"outcome"})

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "w3transfer_send_duration_seconds",
		Help:    "Time from submission to settled outcome",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
	})

	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "w3transfer_sends_in_flight",
		Help: "1 while a send is submitting",
	})

	count := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "w3transfer_transfer_count",
		Help: "Last transfer count read from the contract",
	})

	history := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "w3transfer_history_records",
		Help: "Records loaded by the last history refresh",
	})

	r := prometheus.NewRegistry()
	r.MustRegister(connections, sends, duration, inFlight, count, history)

	return &Registry{
		registry:       r,
		connections:    connections,
		sends:          sends,
		sendDuration:   duration,
		inFlight:       inFlight,
		transferCount:  count,
		historyRecords: history,
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Registry) Connected(ok bool) {
	result := "failed"
	if ok {
		result = "connected"
	}
	m.connections.WithLabelValues(result).Inc()
}

func (m *Registry) SendStarted() {
	m.inFlight.Set(1)
}

func (m *Registry) SendFinished(outcome string, elapsed time.Duration) {
	m.sends.WithLabelValues(outcome).Inc()
	if outcome != "not_ready" {
		m.inFlight.Set(0)
		m.sendDuration.Observe(elapsed.Seconds())
	}
}

func (m *Registry) CountRefreshed(n uint64) {
	m.transferCount.Set(float64(n))
}

func (m *Registry) HistoryRefreshed(records int) {
	m.historyRecords.Set(float64(records))
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Registry) Serve(ctx context.Context, addr string, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	log.Debug("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
