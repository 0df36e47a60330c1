package dbsqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/setavenger/blindbit-tweaks/internal/database"
	"github.com/setavenger/blindbit-tweaks/internal/types"
)

func (s *Store) InsertBlock(ctx context.Context, block types.BlockRecord, tweaks []types.TweakRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO blocks (height, hash, has_tweaks) VALUES (?, ?, ?)",
		block.Height, block.Hash, block.HasTweaks,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: height %d: %v", database.ErrBlockExists, block.Height, err)
		}
		return err
	}

	insTweak, err := tx.PrepareContext(ctx, "INSERT INTO tweaks (block_hash, tx_id, tweak) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer insTweak.Close()

	for _, t := range tweaks {
		if _, err = insTweak.ExecContext(ctx, t.BlockHash, t.Txid, t.Tweak); err != nil {
			return err
		}
	}

	return tx.Commit()
}
