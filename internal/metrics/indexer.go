package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	indexerBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "indexer",
		Name:      "blocks_total",
		Help:      "Count of handled blocks by result.",
	}, []string{"chain", "result"})

	indexerTweaksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "indexer",
		Name:      "tweaks_total",
		Help:      "Count of stored tweaks.",
	}, []string{"chain"})

	indexerTxFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "indexer",
		Name:      "transactions_failed_total",
		Help:      "Count of transactions dropped because their tweak could not be computed.",
	}, []string{"chain", "reason"})

	indexerPrevoutFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "indexer",
		Name:      "prevout_fallback_total",
		Help:      "Count of spent outputs resolved through getrawtransaction.",
	}, []string{"chain"})

	indexerIndexedHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "indexer",
		Name:      "indexed_height",
		Help:      "Height of the last indexed block.",
	}, []string{"chain"})
)

// Indexer implements indexer.Metrics.
type Indexer struct {
	chain string
}

func NewIndexer(chain string) *Indexer {
	if chain == "" {
		chain = "unknown"
	}
	return &Indexer{chain: chain}
}

func (m Indexer) ObserveBlock(result string, height uint32, tweaks int) {
	indexerBlocksTotal.WithLabelValues(m.chain, result).Inc()
	if result != "indexed" {
		return
	}
	indexerTweaksTotal.WithLabelValues(m.chain).Add(float64(tweaks))
	indexerIndexedHeight.WithLabelValues(m.chain).Set(float64(height))
}

func (m Indexer) ObserveTxFailure(reason string) {
	indexerTxFailuresTotal.WithLabelValues(m.chain, reason).Inc()
}

func (m Indexer) ObservePrevoutFallback() {
	indexerPrevoutFallbackTotal.WithLabelValues(m.chain).Inc()
}
