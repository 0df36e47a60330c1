package indexer

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/setavenger/blindbit-tweaks/internal/database"
	"github.com/setavenger/blindbit-tweaks/internal/node"
	"github.com/setavenger/blindbit-tweaks/internal/types"
)

type Options struct {
	// StartHeight and EndHeight are only used if Continuous is false
	StartHeight uint32
	EndHeight   uint32

	// Continuous resolves the range from the store and the node on every pass
	// and polls for new blocks every PollInterval
	Continuous   bool
	PollInterval time.Duration

	// FirstEligibleHeight is where continuous indexing starts on an empty store
	FirstEligibleHeight uint32

	// SeekPrevOuts fetches all spent scripts of a block in one call
	SeekPrevOuts bool

	MaxParallelTweakComputations int
}

// Builder walks the chain height by height and persists the tweaks per block.
// Blocks are processed strictly one after another.
type Builder struct {
	node       NodeSource
	store      database.Store
	dispatcher *Dispatcher
	metrics    Metrics
	logger     zerolog.Logger
	opts       Options
}

func NewBuilder(
	nodeSource NodeSource,
	store database.Store,
	metrics Metrics,
	logger zerolog.Logger,
	opts Options,
) *Builder {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Builder{
		node:       nodeSource,
		store:      store,
		dispatcher: NewDispatcher(nodeSource, metrics, logger, opts.MaxParallelTweakComputations),
		metrics:    metrics,
		logger:     logger,
		opts:       opts,
	}
}

// Run indexes the configured range. In continuous mode it never returns
// unless the context is cancelled or a fatal error occurs.
func (b *Builder) Run(ctx context.Context) error {
	startHeight, endHeight := b.opts.StartHeight, b.opts.EndHeight

	for {
		if b.opts.Continuous {
			var err error
			startHeight, endHeight, err = b.NextRange(ctx)
			if err != nil {
				return err
			}
		}

		b.logger.Info().
			Uint32("start_height", startHeight).
			Uint32("end_height", endHeight).
			Msg("indexing blocks")

		err := b.SyncBlocks(ctx, startHeight, endHeight)
		if err != nil {
			return err
		}

		if !b.opts.Continuous {
			return nil
		}

		b.logger.Info().
			Dur("interval", b.opts.PollInterval).
			Msg("sleeping, then trying again")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.opts.PollInterval):
		}
	}
}

// NextRange resumes after the highest stored block and runs to the chain tip.
func (b *Builder) NextRange(ctx context.Context) (uint32, uint32, error) {
	startHeight := b.opts.FirstEligibleHeight

	highest, ok, err := b.store.HighestBlockHeight(ctx)
	if err != nil {
		b.logger.Err(err).Msg("failed to fetch highest block")
		return 0, 0, err
	}
	if ok && highest+1 > startHeight {
		startHeight = highest + 1
	}

	blockCount, err := b.node.GetBlockCount()
	if err != nil {
		b.logger.Err(err).Msg("error fetching block count")
		return 0, 0, &NodeError{Op: "getblockcount", Err: err}
	}

	endHeight := uint32(blockCount)
	if endHeight < startHeight {
		endHeight = startHeight
	}

	return startHeight, endHeight, nil
}

// SyncBlocks indexes [startHeight, endHeight]. Reaching the tip of the node
// before endHeight ends the pass without an error.
func (b *Builder) SyncBlocks(ctx context.Context, startHeight, endHeight uint32) error {
	for height := startHeight; height <= endHeight; height++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		atTip, err := b.IndexHeight(ctx, height)
		if err != nil {
			return err
		}
		if atTip {
			b.logger.Info().Uint32("height", height).Msg("at current block height")
			return nil
		}

		// guard against wrapping around at the top of the uint32 range
		if height == endHeight {
			break
		}
	}
	return nil
}

// IndexHeight processes a single height. atTip is true if the node does not
// know the height yet. Returned errors are fatal.
func (b *Builder) IndexHeight(ctx context.Context, height uint32) (atTip bool, err error) {
	blockHash, err := b.node.GetBlockHash(int64(height))
	if err != nil {
		if errors.Is(err, node.ErrHeightOutOfRange) {
			return true, nil
		}
		b.logger.Err(err).Uint32("height", height).Msg("error fetching block hash")
		return false, &NodeError{Op: "getblockhash", Height: height, Err: err}
	}

	blocks, err := b.store.BlockByHash(ctx, blockHash)
	if err != nil {
		b.logger.Err(err).Str("blockhash", blockHash).Msg("failed to check for processed block")
		return false, err
	}
	if len(blocks) > 0 {
		b.logger.Info().
			Str("blockhash", blockHash).
			Uint32("height", height).
			Msg("already processed block")
		b.metrics.ObserveBlock(BlockResultSkipped, height, 0)
		return false, nil
	}

	blockHex, c, err := b.pullBlock(height, blockHash)
	if err != nil {
		return false, err
	}

	b.logger.Info().
		Str("blockhash", blockHash).
		Uint32("height", height).
		Msg("processing block")

	tweaks, err := b.dispatcher.ComputeTweaksForBlock(ctx, blockHex, c)
	if err != nil {
		var consistencyErr *ConsistencyError
		if errors.As(err, &consistencyErr) || errors.Is(err, context.Canceled) {
			return false, err
		}
		b.logger.Warn().Err(err).
			Str("blockhash", blockHash).
			Uint32("height", height).
			Msg("not storing block")
		b.metrics.ObserveBlock(BlockResultFailed, height, 0)
		return false, nil
	}

	err = b.storeBlock(ctx, height, blockHash, tweaks)
	if err != nil {
		return false, err
	}

	b.metrics.ObserveBlock(BlockResultIndexed, height, len(tweaks))
	return false, nil
}

func (b *Builder) storeBlock(ctx context.Context, height uint32, blockHash string, tweaks []types.Tweak) error {
	records := make([]types.TweakRecord, len(tweaks))
	for i := range tweaks {
		records[i] = types.TweakRecord{
			BlockHash: blockHash,
			Txid:      tweaks[i].Txid,
			Tweak:     tweaks[i].TweakData,
		}
	}

	block := types.BlockRecord{
		Height:    height,
		Hash:      blockHash,
		HasTweaks: len(tweaks) > 0,
	}

	b.logger.Info().
		Str("blockhash", blockHash).
		Uint32("height", height).
		Int("tweaks", len(records)).
		Msg("recording tweaks")

	err := b.store.InsertBlock(ctx, block, records)
	if err != nil {
		b.logger.Err(err).
			Str("blockhash", blockHash).
			Uint32("height", height).
			Msg("failed storing block")
		return err
	}
	return nil
}
