// Package instrument exposes the collector's own prometheus metrics.
package instrument

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sentrysoftware/metricshub-sub023/internal/compute"
	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/source"
)

const namespace = "metricshub"

// Resolution statuses
const (
	StatusSuccess = "success"
	StatusEmpty   = "empty"
	StatusFailure = "failure"
)

// Monitor states
const (
	StatePresent = "present"
	StateMissing = "missing"
)

const ErrRegister = errors.ErrorCode("instrument_register_failed")

// Recorder records collector self-metrics. A nil Recorder records nothing.
type Recorder struct {
	sourceResolutions *prometheus.CounterVec
	rowErrors         *prometheus.CounterVec
	strategyDuration  *prometheus.HistogramVec
	monitors          *prometheus.GaugeVec
	cycleTimeouts     prometheus.Counter
}

// New creates a recorder and registers its collectors
func New(registry prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		sourceResolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_resolutions_total",
				Help:      "Number of source resolutions by outcome",
			},
			[]string{"status"},
		),
		rowErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compute_row_errors_total",
				Help:      "Number of rows dropped by compute operators",
			},
			[]string{"operator"},
		),
		strategyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "strategy_duration_seconds",
				Help:      "Duration of strategy runs",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"strategy"},
		),
		monitors: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "monitors",
				Help:      "Number of monitors in the telemetry stores by state",
			},
			[]string{"state"},
		),
		cycleTimeouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycle_timeouts_total",
				Help:      "Number of host cycles abandoned on deadline",
			},
		),
	}

	for _, c := range []prometheus.Collector{
		r.sourceResolutions, r.rowErrors, r.strategyDuration, r.monitors, r.cycleTimeouts,
	} {
		if err := registry.Register(c); err != nil {
			return nil, errors.New().Wrap(ErrRegister, err)
		}
	}

	return r, nil
}

// SourceResolved implements source.Observer
func (r *Recorder) SourceResolved(_ source.Kind, rows int, err error, _ time.Duration) {
	if r == nil {
		return
	}

	status := StatusSuccess
	switch {
	case err != nil:
		status = StatusFailure
	case rows == 0:
		status = StatusEmpty
	}
	r.sourceResolutions.WithLabelValues(status).Inc()
}

// RowDropped implements source.Observer
func (r *Recorder) RowDropped(kind compute.Kind) {
	if r == nil {
		return
	}
	r.rowErrors.WithLabelValues(string(kind)).Inc()
}

// StrategyDone records the duration of a strategy run
func (r *Recorder) StrategyDone(strategy string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.strategyDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// SetMonitors publishes monitor counts
func (r *Recorder) SetMonitors(present, missing int) {
	if r == nil {
		return
	}
	r.monitors.WithLabelValues(StatePresent).Set(float64(present))
	r.monitors.WithLabelValues(StateMissing).Set(float64(missing))
}

// CycleTimedOut counts an abandoned host cycle
func (r *Recorder) CycleTimedOut() {
	if r == nil {
		return
	}
	r.cycleTimeouts.Inc()
}
