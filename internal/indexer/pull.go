package indexer

import (
	"github.com/setavenger/blindbit-tweaks/internal/chain"
)

// pullBlock fetches the block body and, if enabled, the prevout batch for the block.
// The returned chain context is fresh for every block.
func (b *Builder) pullBlock(height uint32, blockHash string) (string, *chain.Chain, error) {
	blockHex, err := b.node.GetBlock(blockHash)
	if err != nil {
		b.logger.Err(err).
			Uint32("height", height).
			Str("blockhash", blockHash).
			Msg("failed to pull block")
		return "", nil, &NodeError{Op: "getblock", Height: height, BlockHash: blockHash, Err: err}
	}

	c := chain.New()
	if !b.opts.SeekPrevOuts {
		return blockHex, c, nil
	}

	prevouts, err := b.node.GetBlockPreviousOutputs(blockHash)
	if err != nil {
		b.logger.Err(err).
			Uint32("height", height).
			Str("blockhash", blockHash).
			Msg("failed to pull prevout scripts")
		return "", nil, &NodeError{Op: "getblock_prevouts", Height: height, BlockHash: blockHash, Err: err}
	}
	c.SetPreviousScripts(prevouts)

	b.logger.Trace().
		Str("blockhash", blockHash).
		Int("prevouts", len(prevouts)).
		Msg("loaded prevout scripts")

	return blockHex, c, nil
}
