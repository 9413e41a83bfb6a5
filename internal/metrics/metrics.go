package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors exported by the sync and scan loops.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	SyncCycles      *prometheus.CounterVec
	SyncDuration    prometheus.Histogram
	PoolsRefreshed  *prometheus.CounterVec
	PoolsDiscovered *prometheus.CounterVec
	TrackedPools    prometheus.Gauge
	SyncedBlock     prometheus.Gauge
	RPCRetries      prometheus.Counter
	RPCFailures     prometheus.Counter
	Opportunities   prometheus.Counter
	PairsScanned    prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		SyncCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbscope_sync_cycles_total",
			Help: "Total number of synchronization cycles by result",
		}, []string{"result"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbscope_sync_duration_seconds",
			Help:    "Wall time of one synchronization cycle in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 12),
		}),
		PoolsRefreshed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbscope_pools_refreshed_total",
			Help: "Total number of pool reserve refreshes by exchange",
		}, []string{"kind"}),
		PoolsDiscovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbscope_pools_discovered_total",
			Help: "Total number of newly discovered pools by exchange",
		}, []string{"kind"}),
		TrackedPools: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbscope_tracked_pools",
			Help: "Number of pools in the latest checkpoint",
		}),
		SyncedBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbscope_synced_block",
			Help: "Block number the latest checkpoint is synchronized through",
		}),
		RPCRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbscope_rpc_retries_total",
			Help: "Total number of retried ledger calls",
		}),
		RPCFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbscope_rpc_failures_total",
			Help: "Total number of ledger calls that exhausted their retries",
		}),
		Opportunities: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbscope_opportunities_total",
			Help: "Total number of profitable round trips found",
		}),
		PairsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbscope_pairs_scanned_total",
			Help: "Total number of pool pairs evaluated by the scanner",
		}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.SyncCycles, m.SyncDuration, m.PoolsRefreshed, m.PoolsDiscovered, m.TrackedPools,
		m.SyncedBlock, m.RPCRetries, m.RPCFailures, m.Opportunities, m.PairsScanned,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveCycle(result string, started time.Time) {
	if m == nil {
		return
	}
	m.SyncCycles.WithLabelValues(result).Inc()
	m.SyncDuration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) AddRefreshed(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.PoolsRefreshed.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) AddDiscovered(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.PoolsDiscovered.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) SetCheckpoint(block uint64, pools int) {
	if m == nil {
		return
	}
	m.SyncedBlock.Set(float64(block))
	m.TrackedPools.Set(float64(pools))
}

func (m *Metrics) IncRetry() {
	if m == nil {
		return
	}
	m.RPCRetries.Inc()
}

func (m *Metrics) IncRPCFailure() {
	if m == nil {
		return
	}
	m.RPCFailures.Inc()
}

func (m *Metrics) IncScanned() {
	if m == nil {
		return
	}
	m.PairsScanned.Inc()
}

func (m *Metrics) IncOpportunity() {
	if m == nil {
		return
	}
	m.Opportunities.Inc()
}
