package metrics

import (
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

type FeeMetrics struct {
	harvests     *prometheus.CounterVec
	distributed  *prometheus.CounterVec
	roundingDust *prometheus.GaugeVec
	totalFee     *prometheus.GaugeVec
}

var (
	feesOnce     sync.Once
	feesRegistry *FeeMetrics
)

// Fees returns the process-wide fee metrics registry.
func Fees() *FeeMetrics {
	feesOnce.Do(func() {
		feesRegistry = &FeeMetrics{
			harvests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "plasmavault",
				Subsystem: "fees",
				Name:      "harvests_total",
				Help:      "Count of harvest executions by fee type and outcome.",
			}, []string{"fee_type", "outcome"}),
			distributed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "plasmavault",
				Subsystem: "fees",
				Name:      "distributed_shares_total",
				Help:      "Vault share units transferred out of fee accounts by fee type and party.",
			}, []string{"fee_type", "party"}),
			roundingDust: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "plasmavault",
				Subsystem: "fees",
				Name:      "rounding_dust",
				Help:      "Share units left in the fee account by the latest harvest.",
			}, []string{"fee_type"}),
			totalFee: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "plasmavault",
				Subsystem: "fees",
				Name:      "total_fee_percentage",
				Help:      "Configured total fee percentage (10000 = 100%).",
			}, []string{"fee_type"}),
		}
		prometheus.MustRegister(
			feesRegistry.harvests,
			feesRegistry.distributed,
			feesRegistry.roundingDust,
			feesRegistry.totalFee,
		)
	})
	return feesRegistry
}

func (m *FeeMetrics) ObserveHarvest(feeType, outcome string) {
	if m == nil {
		return
	}
	if feeType == "" {
		feeType = "unknown"
	}
	m.harvests.WithLabelValues(feeType, outcome).Inc()
}

func (m *FeeMetrics) ObserveDistributed(feeType, party string, amount *uint256.Int) {
	if m == nil || amount == nil {
		return
	}
	m.distributed.WithLabelValues(feeType, party).Add(toFloat(amount))
}

func (m *FeeMetrics) SetRoundingDust(feeType string, dust *uint256.Int) {
	if m == nil {
		return
	}
	m.roundingDust.WithLabelValues(feeType).Set(toFloat(dust))
}

func (m *FeeMetrics) SetTotalFee(feeType string, total uint64) {
	if m == nil {
		return
	}
	m.totalFee.WithLabelValues(feeType).Set(float64(total))
}

func toFloat(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
