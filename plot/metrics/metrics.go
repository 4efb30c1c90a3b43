// Package metrics exposes the prometheus instrumentation for a plot's
// pipelines. Wiring metrics out-of-band from plot itself keeps plot free
// of any global registry dependency.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the set of collectors a Plot reports through. Construct with
// NewMetrics and register with RegisterMetrics before starting a plot.
type Metrics struct {
	SectorsPlotted  prometheus.Counter
	SolutionsFound  prometheus.Counter
	SlotsSkipped    prometheus.Counter
	SlotsProcessed  prometheus.Counter
	ReadLatency     prometheus.Histogram
	PlottingLatency prometheus.Histogram
}

// NewMetrics constructs a fresh, unregistered set of collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		SectorsPlotted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "subspace",
			Subsystem: "plot",
			Name:      "sectors_plotted_total",
			Help:      "Total number of sectors fully plotted and flushed to disk.",
		}),
		SolutionsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "subspace",
			Subsystem: "plot",
			Name:      "solutions_found_total",
			Help:      "Total number of winning solutions submitted to the node.",
		}),
		SlotsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "subspace",
			Subsystem: "plot",
			Name:      "slots_skipped_total",
			Help:      "Total number of slots dropped because the farming worker was still busy.",
		}),
		SlotsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "subspace",
			Subsystem: "plot",
			Name:      "slots_processed_total",
			Help:      "Total number of slots audited and responded to.",
		}),
		ReadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "subspace",
			Subsystem: "plot",
			Name:      "read_piece_duration_seconds",
			Help:      "Time to decode and return one requested piece.",
			Buckets:   prometheus.DefBuckets,
		}),
		PlottingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "subspace",
			Subsystem: "plot",
			Name:      "plot_sector_duration_seconds",
			Help:      "Time to fetch, encode and flush one sector.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// RegisterMetrics registers every collector in m with reg.
func RegisterMetrics(reg prometheus.Registerer, m *Metrics) error {
	collectors := []prometheus.Collector{
		m.SectorsPlotted,
		m.SolutionsFound,
		m.SlotsSkipped,
		m.SlotsProcessed,
		m.ReadLatency,
		m.PlottingLatency,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
