package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type OracleMetrics struct {
	priceRejections *prometheus.CounterVec
	pricesServed    *prometheus.CounterVec
	sequencerChecks *prometheus.CounterVec
	validations     *prometheus.CounterVec
}

var (
	oracleOnce     sync.Once
	oracleRegistry *OracleMetrics
)

// Oracle returns the process-wide price oracle metrics registry.
func Oracle() *OracleMetrics {
	oracleOnce.Do(func() {
		oracleRegistry = &OracleMetrics{
			priceRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "plasmavault",
				Subsystem: "oracle",
				Name:      "price_rejections_total",
				Help:      "Count of rejected price reads by reason.",
			}, []string{"reason"}),
			pricesServed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "plasmavault",
				Subsystem: "oracle",
				Name:      "prices_served_total",
				Help:      "Count of accepted price reads by resolution path.",
			}, []string{"path"}),
			sequencerChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "plasmavault",
				Subsystem: "oracle",
				Name:      "sequencer_checks_total",
				Help:      "Count of sequencer uptime checks by result.",
			}, []string{"result"}),
			validations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "plasmavault",
				Subsystem: "oracle",
				Name:      "price_validations_total",
				Help:      "Count of price change validations by result.",
			}, []string{"result"}),
		}
		prometheus.MustRegister(
			oracleRegistry.priceRejections,
			oracleRegistry.pricesServed,
			oracleRegistry.sequencerChecks,
			oracleRegistry.validations,
		)
	})
	return oracleRegistry
}

func (m *OracleMetrics) ObservePriceRejected(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.priceRejections.WithLabelValues(reason).Inc()
}

func (m *OracleMetrics) ObservePriceServed(path string) {
	if m == nil {
		return
	}
	m.pricesServed.WithLabelValues(path).Inc()
}

func (m *OracleMetrics) ObserveSequencerCheck(result string) {
	if m == nil {
		return
	}
	m.sequencerChecks.WithLabelValues(result).Inc()
}

func (m *OracleMetrics) ObserveValidation(result string) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(result).Inc()
}
