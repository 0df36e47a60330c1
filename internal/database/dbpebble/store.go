package dbpebble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/setavenger/blindbit-tweaks/internal/database"
	"github.com/setavenger/blindbit-tweaks/internal/types"
)

type Store struct {
	DB *pebble.DB

	// serialises the existence check with the batch commit
	writeMu sync.Mutex
}

func NewStore(db *pebble.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) InsertBlock(ctx context.Context, block types.BlockRecord, tweaks []types.TweakRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	blockHash, err := decodeFixedHex(block.Hash, SizeHash)
	if err != nil {
		return fmt.Errorf("invalid block hash %q: %w", block.Hash, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	exists, err := s.has(KeyHeight(block.Height))
	if err != nil {
		return err
	}
	if !exists {
		exists, err = s.has(KeyBlock(blockHash))
		if err != nil {
			return err
		}
	}
	if exists {
		return fmt.Errorf("%w: height %d", database.ErrBlockExists, block.Height)
	}

	batch := s.DB.NewBatch()
	defer batch.Close()

	if err = batch.Set(KeyHeight(block.Height), ValHeight(blockHash, uint32(len(tweaks))), nil); err != nil {
		return err
	}
	if err = batch.Set(KeyBlock(blockHash), ValBlock(block.Height), nil); err != nil {
		return err
	}

	for i, t := range tweaks {
		if t.BlockHash != block.Hash {
			return fmt.Errorf("tweak %s belongs to block %s not %s", t.Txid, t.BlockHash, block.Hash)
		}
		txid, err := decodeFixedHex(t.Txid, SizeTxid)
		if err != nil {
			return fmt.Errorf("invalid txid %q: %w", t.Txid, err)
		}
		tweak, err := decodeFixedHex(t.Tweak, SizeTweak)
		if err != nil {
			return fmt.Errorf("invalid tweak for %s: %w", t.Txid, err)
		}
		val, err := ValBlockTweak(txid, tweak)
		if err != nil {
			return err
		}
		if err = batch.Set(KeyBlockTweak(blockHash, uint32(i)), val, nil); err != nil {
			return err
		}
	}

	return batch.Commit(pebble.Sync)
}

func (s *Store) has(key []byte) (bool, error) {
	_, closer, err := s.DB.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	closer.Close()
	return true, nil
}
