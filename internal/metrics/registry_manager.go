package metrics

import (
	"time"

	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registryScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "scans_total",
		Help:      "Count of chain scan passes.",
	}, []string{"network", "mode", "status"})

	registryScanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "scan_duration_seconds",
		Help:      "Duration of chain scan passes.",
		Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300, 600, 1200},
	}, []string{"network", "mode", "status"})

	registryScanBlocks = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "scan_blocks",
		Help:      "Number of blocks walked per scan pass.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	}, []string{"network", "mode"})

	registryNodes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "nodes",
		Help:      "Number of registered infinity nodes by maturity.",
	}, []string{"network", "maturity"})

	registryLastScanHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "last_scan_height",
		Help:      "Height below which the registry is final.",
	}, []string{"network"})

	registryTipHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "tip_height",
		Help:      "Last chain tip height seen by the registry manager.",
	}, []string{"network"})
)

// RegistryManager tracks scan passes and registry size.
type RegistryManager struct {
	network model.Network
}

// NewRegistryManager constructs a RegistryManager for network.
func NewRegistryManager(network model.Network) *RegistryManager {
	return &RegistryManager{network: networkLabel(network)}
}

// ObserveScan records a scan pass outcome, duration and length.
func (m RegistryManager) ObserveScan(mode string, err error, blocks int, started time.Time) {
	status := statusLabel(err)
	registryScansTotal.WithLabelValues(string(m.network), mode, status).Inc()
	registryScanDuration.WithLabelValues(string(m.network), mode, status).
		Observe(time.Since(started).Seconds())
	registryScanBlocks.WithLabelValues(string(m.network), mode).Observe(float64(blocks))
}

// SetRegistry publishes the current registry size and heights.
func (m RegistryManager) SetRegistry(mature, nonMatured int, lastScanHeight, tip int64) {
	registryNodes.WithLabelValues(string(m.network), "mature").Set(float64(mature))
	registryNodes.WithLabelValues(string(m.network), "non_matured").Set(float64(nonMatured))
	registryLastScanHeight.WithLabelValues(string(m.network)).Set(float64(lastScanHeight))
	registryTipHeight.WithLabelValues(string(m.network)).Set(float64(tip))
}
