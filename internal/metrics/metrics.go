// Package metrics exposes Prometheus instrumentation of the batch runner.
package metrics

import (
	"context"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the screener.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: status
	SymbolsTotal    *prometheus.CounterVec // labels: outcome=buy|sell|none|failed
	RuleErrorsTotal *prometheus.CounterVec // labels: rule
	SymbolDuration  prometheus.Histogram
	RunDuration     prometheus.Histogram
	EnergyScore     prometheus.Histogram
	LastRunTime     prometheus.Gauge
}

// New creates metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_runs_total",
			Help: "Batch runs by final status",
		}, []string{"status"}),
		SymbolsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_symbols_total",
			Help: "Evaluated symbols by outcome",
		}, []string{"outcome"}),
		RuleErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_rule_errors_total",
			Help: "Rules that could not be evaluated",
		}, []string{"rule"}),
		SymbolDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_symbol_duration_seconds",
			Help:    "Time to collect and evaluate one symbol",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_run_duration_seconds",
			Help:    "Wall time of a full batch run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		EnergyScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_energy_score",
			Help:    "Distribution of energy scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		LastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "screener_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
	reg.MustRegister(
		m.RunsTotal, m.SymbolsTotal, m.RuleErrorsTotal,
		m.SymbolDuration, m.RunDuration, m.EnergyScore, m.LastRunTime,
	)
	return m
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics server for the given gatherer.
func NewServer(addr string, g prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	return &Server{addr: addr, srv: &http.Server{Addr: addr, Handler: mux}}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[INFO] metrics server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[ERROR] metrics server: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
