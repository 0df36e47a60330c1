package dbsqlite

import (
	"context"
	"database/sql"

	"github.com/setavenger/blindbit-tweaks/internal/types"
)

func (s *Store) BlockByHash(ctx context.Context, blockHash string) ([]types.BlockRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT height, hash, has_tweaks FROM blocks WHERE hash = ?", blockHash,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []types.BlockRecord
	for rows.Next() {
		var b types.BlockRecord
		if err = rows.Scan(&b.Height, &b.Hash, &b.HasTweaks); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

func (s *Store) HasBlockAtHeight(ctx context.Context, height uint32) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM blocks WHERE height = ?)", height,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists == 1, nil
}

func (s *Store) HighestBlockHeight(ctx context.Context) (uint32, bool, error) {
	var height sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MAX(height) FROM blocks").Scan(&height)
	if err != nil {
		return 0, false, err
	}
	if !height.Valid {
		return 0, false, nil
	}
	return uint32(height.Int64), true, nil
}

func (s *Store) TweaksByBlockHash(ctx context.Context, blockHash string) ([]types.TweakRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT block_hash, tx_id, tweak FROM tweaks WHERE block_hash = ? ORDER BY id", blockHash,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tweaks := []types.TweakRecord{}
	for rows.Next() {
		var t types.TweakRecord
		if err = rows.Scan(&t.BlockHash, &t.Txid, &t.Tweak); err != nil {
			return nil, err
		}
		tweaks = append(tweaks, t)
	}
	return tweaks, rows.Err()
}

func (s *Store) TweakMetrics(ctx context.Context) ([]types.TweakMetrics, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT block_hash, COUNT(tweak) FROM tweaks GROUP BY block_hash ORDER BY COUNT(tweak) DESC, block_hash",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metrics := []types.TweakMetrics{}
	for rows.Next() {
		var m types.TweakMetrics
		if err = rows.Scan(&m.BlockHash, &m.TweakCount); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}
