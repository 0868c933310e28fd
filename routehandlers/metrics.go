package routehandlers

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vitalvas/pathway/route"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace. Defaults to "pathway".
	Namespace string

	// Subsystem is the metrics subsystem. Defaults to "router".
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for handler duration. Defaults to
	// prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use. Defaults to
	// prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// Metrics records loader and action invocations. It implements
// route.Middleware.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
}

// NewMetrics creates the collectors described by cfg and registers them.
// Registration errors, such as a second registration on the same
// registry, are returned.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if cfg.Namespace == "" {
		cfg.Namespace = "pathway"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "router"
	}
	if len(cfg.Buckets) == 0 {
		cfg.Buckets = prometheus.DefBuckets
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "handler_calls_total",
			Help:        "Total number of loader and action invocations",
			ConstLabels: cfg.ConstLabels,
		}, []string{"route_id", "kind", "outcome"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "handler_duration_seconds",
			Help:        "Loader and action duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"route_id", "kind"}),

		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "handlers_in_flight",
			Help:        "Number of loaders and actions currently running",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{m.calls, m.duration, m.inFlight} {
		if err := cfg.Registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Middleware implements route.Middleware.
func (m *Metrics) Middleware(next route.HandlerFunc) route.HandlerFunc {
	return func(ctx context.Context, args route.Args) (any, error) {
		kind := string(args.Kind)

		gauge := m.inFlight.WithLabelValues(kind)
		gauge.Inc()
		defer gauge.Dec()

		start := time.Now()
		value, err := next(ctx, args)

		m.duration.WithLabelValues(args.RouteID, kind).Observe(time.Since(start).Seconds())
		m.calls.WithLabelValues(args.RouteID, kind, outcome(value, err)).Inc()

		return value, err
	}
}
