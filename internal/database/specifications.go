// database defines the interfaces for handling db operations
package database

import (
	"context"
	"errors"

	"github.com/setavenger/blindbit-tweaks/internal/types"
)

var ErrBlockExists = errors.New("block already exists at height")

// Store is used by the indexer. It is only ever accessed by a single goroutine.
type Store interface {
	// InsertBlock persists a block and its tweaks atomically. Heights are unique.
	InsertBlock(ctx context.Context, block types.BlockRecord, tweaks []types.TweakRecord) error
	BlockByHash(ctx context.Context, blockHash string) ([]types.BlockRecord, error)
	HasBlockAtHeight(ctx context.Context, height uint32) (bool, error)
	// HighestBlockHeight returns false if no block was stored yet
	HighestBlockHeight(ctx context.Context) (uint32, bool, error)
	Close() error
}

// Reader is the read only projection served by the API.
type Reader interface {
	TweaksByBlockHash(ctx context.Context, blockHash string) ([]types.TweakRecord, error)
	// TweakMetrics returns the tweak count per block, highest count first
	TweakMetrics(ctx context.Context) ([]types.TweakMetrics, error)
	HighestBlockHeight(ctx context.Context) (uint32, bool, error)
	Close() error
}

type DB interface {
	Store
	Reader
}
