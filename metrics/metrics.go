package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wippyai/opcua-bridge/binding"
	"github.com/wippyai/opcua-bridge/errors"
	"github.com/wippyai/opcua-bridge/ua"
)

const namespace = "opcua_bridge"

// Transfer outcomes recorded under the status label.
const (
	StatusOK           = "ok"
	StatusTransport    = "transport"
	StatusCodec        = "codec"
	StatusDisconnected = "disconnected"
	StatusOther        = "other"
)

// Metrics holds the collectors of one process. A nil *Metrics records
// nothing, so callers need not check whether metrics are enabled.
type Metrics struct {
	transfers       *prometheus.CounterVec   // session, status
	codecErrors     *prometheus.CounterVec   // session
	resolveDuration *prometheus.HistogramVec // outcome
	boundSignals    *prometheus.GaugeVec     // session
}

// New creates the collectors and registers them with reg. A nil reg
// disables metrics and returns nil.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Transfer cycles by session and outcome",
		}, []string{"session", "status"}),

		codecErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "codec_errors_total",
			Help:      "Structured bodies rejected by the codec",
		}, []string{"session"}),

		resolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Time to resolve one browse path",
			Buckets:   []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),

		boundSignals: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bound_signals",
			Help:      "Signals currently bound by session",
		}, []string{"session"}),
	}

	for _, c := range []prometheus.Collector{m.transfers, m.codecErrors, m.resolveDuration, m.boundSignals} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "register metrics")
		}
	}
	return m, nil
}

// ObserveResolve records one resolution. Its signature matches
// resolver.Options.Observe.
func (m *Metrics) ObserveResolve(_ ua.PathSpec, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "resolved"
	if err != nil {
		outcome = "failed"
	}
	m.resolveDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveTransfer records the outcome of one transfer cycle.
func (m *Metrics) ObserveTransfer(session string, err error) {
	if m == nil {
		return
	}
	status := Status(err)
	m.transfers.WithLabelValues(session, status).Inc()
	if status == StatusCodec {
		m.codecErrors.WithLabelValues(session).Inc()
	}
}

// Status maps a transfer error onto the status label.
func Status(err error) string {
	if err == nil {
		return StatusOK
	}
	if errors.KindOf(err) == errors.KindDisconnected {
		return StatusDisconnected
	}
	switch errors.CategoryOf(err) {
	case errors.CategoryTransport:
		return StatusTransport
	case errors.CategoryCodec:
		return StatusCodec
	default:
		return StatusOther
	}
}

// Bindings returns an observer that keeps the bound-signals gauge of
// session in step with a binding table.
func (m *Metrics) Bindings(session string) binding.Observer {
	if m == nil {
		return nopObserver{}
	}
	return &bindingGauge{gauge: m.boundSignals.WithLabelValues(session)}
}

// Forget drops the series of a session that has shut down.
func (m *Metrics) Forget(session string) {
	if m == nil {
		return
	}
	m.boundSignals.DeleteLabelValues(session)
	m.codecErrors.DeleteLabelValues(session)
	m.transfers.DeletePartialMatch(prometheus.Labels{"session": session})
}

type bindingGauge struct {
	gauge prometheus.Gauge
}

func (g *bindingGauge) OnBindingEvent(e binding.Event) {
	switch e.Type {
	case binding.EventBound:
		g.gauge.Inc()
	case binding.EventUnbound:
		g.gauge.Dec()
	}
}

type nopObserver struct{}

func (nopObserver) OnBindingEvent(binding.Event) {}
