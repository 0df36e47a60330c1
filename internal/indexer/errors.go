package indexer

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

// transaction level, the transaction is skipped and siblings continue
var (
	ErrSegwitTooNew      = errors.New("spent output uses segwit version 2 or higher")
	ErrOutputNotFound    = errors.New("previous output not found in transaction")
	ErrPubkeyExtraction  = errors.New("could not extract public key from input")
	ErrTweakComputation  = errors.New("tweak computation failed")
	ErrPrevoutResolution = errors.New("could not resolve previous output")
	ErrTaskPanic         = errors.New("tweak computation panicked")
)

// block level
var (
	ErrBlockDecode = errors.New("failed to decode block")
)

// errPubKeySumInfinity is returned when the input keys cancel each other out.
// Never leaves the pipeline, it results in an empty result.
var errPubKeySumInfinity = errors.New("sum of input public keys is the point at infinity")

// TxError is returned by the tweak pipeline for a single transaction.
type TxError struct {
	Txid     string
	Input    int
	Outpoint wire.OutPoint
	Err      error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("tx %s input %d (%s): %v", e.Txid, e.Input, e.Outpoint.String(), e.Err)
}

func (e *TxError) Unwrap() error { return e.Err }

// Reason is a short label of the failure class, used for metrics.
func (e *TxError) Reason() string {
	return failureReason(e.Err)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrSegwitTooNew):
		return "segwit_too_new"
	case errors.Is(err, ErrOutputNotFound):
		return "output_not_found"
	case errors.Is(err, ErrPubkeyExtraction):
		return "pubkey_extraction"
	case errors.Is(err, ErrTweakComputation):
		return "tweak_computation"
	case errors.Is(err, ErrPrevoutResolution):
		return "prevout_resolution"
	case errors.Is(err, ErrTaskPanic):
		return "task_panic"
	default:
		return "unknown"
	}
}

// BlockError means the block as a whole could not be processed.
// The block is not persisted and indexing continues with the next height.
type BlockError struct {
	BlockHash string
	Err       error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block %s: %v", e.BlockHash, e.Err)
}

func (e *BlockError) Unwrap() error { return e.Err }

// ConsistencyError is raised when the node hands out a transaction whose
// id does not match the id it was requested by. The data source can not be
// trusted anymore, so this always ends the process.
type ConsistencyError struct {
	Expected string
	Got      string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("node returned transaction %s when asked for %s", e.Got, e.Expected)
}

// NodeError wraps failures of the node data source which the indexer can not recover from.
type NodeError struct {
	Op        string
	Height    uint32
	BlockHash string
	Err       error
}

func (e *NodeError) Error() string {
	if e.BlockHash != "" {
		return fmt.Sprintf("%s (height %d, block %s): %v", e.Op, e.Height, e.BlockHash, e.Err)
	}
	return fmt.Sprintf("%s (height %d): %v", e.Op, e.Height, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }
