package indexer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/rs/zerolog"
	"github.com/setavenger/blindbit-tweaks/internal/chain"
	"github.com/setavenger/blindbit-tweaks/internal/types"
)

// Dispatcher computes the tweaks for all transactions of a block.
type Dispatcher struct {
	source  TxSource
	metrics Metrics
	logger  zerolog.Logger

	// maxParallel caps the in-flight tweak computations, 0 means one goroutine per transaction
	maxParallel int
}

func NewDispatcher(source TxSource, metrics Metrics, logger zerolog.Logger, maxParallel int) *Dispatcher {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Dispatcher{
		source:      source,
		metrics:     metrics,
		logger:      logger,
		maxParallel: maxParallel,
	}
}

type txResult struct {
	tweak *types.Tweak
	err   error
}

// ComputeTweaksForBlock decodes the block and runs the tweak pipeline for every
// transaction with a taproot output. Results are in block order. A failing
// transaction is logged and left out, it never fails the block. Only a
// ConsistencyError is handed back to the caller.
func (d *Dispatcher) ComputeTweaksForBlock(
	ctx context.Context,
	blockHex string,
	c *chain.Chain,
) ([]types.Tweak, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	block, err := decodeBlock(blockHex)
	if err != nil {
		return nil, &BlockError{Err: fmt.Errorf("%w: %v", ErrBlockDecode, err)}
	}
	blockHash := block.Hash().String()
	txs := block.Transactions()

	computer := NewTweakComputer(c, d.source, d.metrics, d.logger)

	var semaphore chan struct{}
	if d.maxParallel > 0 {
		semaphore = make(chan struct{}, d.maxParallel)
	}

	// one future per transaction, awaited in submission order
	futures := make([]chan txResult, len(txs))
	for i := range txs {
		futures[i] = make(chan txResult, 1)

		// we only compute tweaks for transactions with taproot outputs
		if !TxHasTaprootOutputs(txs[i].MsgTx()) {
			futures[i] <- txResult{}
			continue
		}

		// stop dispatching once cancelled, started computations finish on their own
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if semaphore != nil {
			select {
			case semaphore <- struct{}{}: // Acquire a slot
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		go func(tx *btcutil.Tx, out chan<- txResult) {
			defer func() {
				if r := recover(); r != nil {
					out <- txResult{err: fmt.Errorf("%w: %v", ErrTaskPanic, r)}
				}
			}()
			defer func() {
				if semaphore != nil {
					<-semaphore // Release the slot
				}
			}()

			tweak, err := computer.ComputeTweakPerTx(tx)
			out <- txResult{tweak: tweak, err: err}
		}(txs[i], futures[i])
	}

	var tweaks []types.Tweak
	for i := range futures {
		result := <-futures[i]
		if result.err != nil {
			var consistencyErr *ConsistencyError
			if errors.As(result.err, &consistencyErr) {
				d.logger.Error().Err(result.err).
					Str("blockhash", blockHash).
					Msg("node returned inconsistent data")
				return nil, result.err
			}

			d.metrics.ObserveTxFailure(failureReason(result.err))
			d.logger.Warn().Err(result.err).
				Str("txid", txs[i].Hash().String()).
				Str("blockhash", blockHash).
				Msg("error processing tx")
			continue
		}
		if result.tweak != nil {
			tweaks = append(tweaks, *result.tweak)
		}
	}

	d.logger.Debug().
		Str("blockhash", blockHash).
		Int("txs", len(txs)).
		Int("tweaks", len(tweaks)).
		Msg("computed tweaks for block")

	return tweaks, nil
}

func decodeBlock(blockHex string) (*btcutil.Block, error) {
	raw, err := hex.DecodeString(blockHex)
	if err != nil {
		return nil, err
	}
	return btcutil.NewBlockFromBytes(raw)
}
