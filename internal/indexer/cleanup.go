package indexer

import (
	"context"
)

// FillGaps walks from the first eligible height up to the highest stored
// block and indexes every height that is missing in between. Continuous mode
// only ever resumes above the highest block, so gaps left by fixed range runs
// are never visited otherwise.
func (b *Builder) FillGaps(ctx context.Context) error {
	highest, ok, err := b.store.HighestBlockHeight(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	b.logger.Info().
		Uint32("first_eligible_height", b.opts.FirstEligibleHeight).
		Uint32("highest_height", highest).
		Msg("checking for missing heights")

	var filled int
	for height := b.opts.FirstEligibleHeight; height < highest; height++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		exists, err := b.store.HasBlockAtHeight(ctx, height)
		if err != nil {
			return err
		}
		if exists {
			// block is already processed
			continue
		}

		b.logger.Info().
			Uint32("height", height).
			Msg("block is missing, trying to process block")

		atTip, err := b.IndexHeight(ctx, height)
		if err != nil {
			b.logger.Err(err).Uint32("height", height).Msg("failed to process block")
			return err
		}
		if atTip {
			// the node is behind the store, nothing below can be fetched either
			return nil
		}
		filled++
	}

	b.logger.Info().Int("filled", filled).Msg("gap check done")
	return nil
}
