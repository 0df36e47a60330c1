package indexer

import "github.com/setavenger/blindbit-tweaks/internal/types"

// TxSource resolves full transactions by id. Used as the fallback when a
// spent output is not part of the prevout batch.
type TxSource interface {
	GetRawTransaction(txid string) (string, error)
}

// NodeSource is everything the indexer needs from the node. Block bodies and
// transactions are handed over as serialised hex.
type NodeSource interface {
	TxSource
	GetBlockCount() (int64, error)
	// GetBlockHash has to return node.ErrHeightOutOfRange for heights above the tip
	GetBlockHash(height int64) (string, error)
	GetBlock(blockHash string) (string, error)
	GetBlockPreviousOutputs(blockHash string) ([]types.PreviousOutputScript, error)
}

type Metrics interface {
	ObserveBlock(result string, height uint32, tweaks int)
	ObserveTxFailure(reason string)
	ObservePrevoutFallback()
}

type noopMetrics struct{}

func (noopMetrics) ObserveBlock(string, uint32, int) {}
func (noopMetrics) ObserveTxFailure(string)          {}
func (noopMetrics) ObservePrevoutFallback()          {}

// block results as reported to Metrics
const (
	BlockResultIndexed = "indexed"
	BlockResultSkipped = "already_indexed"
	BlockResultFailed  = "failed"
)
