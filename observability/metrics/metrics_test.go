package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestFeeMetricsRecordDistribution(t *testing.T) {
	m := Fees()
	require.Same(t, m, Fees())

	before := testutil.ToFloat64(m.distributed.WithLabelValues("management", "dao"))
	m.ObserveDistributed("management", "dao", uint256.NewInt(400_000))
	after := testutil.ToFloat64(m.distributed.WithLabelValues("management", "dao"))
	require.Equal(t, float64(400_000), after-before)

	m.SetRoundingDust("performance", uint256.NewInt(2))
	require.Equal(t, float64(2), testutil.ToFloat64(m.roundingDust.WithLabelValues("performance")))

	m.SetTotalFee("management", 500)
	require.Equal(t, float64(500), testutil.ToFloat64(m.totalFee.WithLabelValues("management")))

	var nilMetrics *FeeMetrics
	nilMetrics.ObserveHarvest("management", "ok")
}

func TestOracleMetricsCountRejections(t *testing.T) {
	m := Oracle()
	before := testutil.ToFloat64(m.priceRejections.WithLabelValues("stale_price"))
	m.ObservePriceRejected("stale_price")
	require.Equal(t, before+1, testutil.ToFloat64(m.priceRejections.WithLabelValues("stale_price")))

	m.ObservePriceRejected("")
	require.GreaterOrEqual(t, testutil.ToFloat64(m.priceRejections.WithLabelValues("unknown")), float64(1))
}

func TestKeeperMetricsCountOutcomes(t *testing.T) {
	m := Keeper()
	before := testutil.ToFloat64(m.runs.WithLabelValues("harvest", "error"))
	m.ObserveRun("harvest", time.Second, errors.New("boom"))
	require.Equal(t, before+1, testutil.ToFloat64(m.runs.WithLabelValues("harvest", "error")))

	var nilMetrics *KeeperMetrics
	nilMetrics.ObserveRun("harvest", time.Second, nil)
}
