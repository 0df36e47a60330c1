package dbpebble

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"sort"

	"github.com/cockroachdb/pebble"
	"github.com/setavenger/blindbit-tweaks/internal/types"
)

func (s *Store) BlockByHash(ctx context.Context, blockHash string) ([]types.BlockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := decodeFixedHex(blockHash, SizeHash)
	if err != nil {
		// a malformed hash can not be stored
		return nil, nil
	}

	val, closer, err := s.DB.Get(KeyBlock(hash))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	height, err := ParseBlockValue(val)
	closer.Close()
	if err != nil {
		return nil, err
	}

	hval, closer, err := s.DB.Get(KeyHeight(height))
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	_, count, err := ParseHeightValue(hval)
	if err != nil {
		return nil, err
	}

	return []types.BlockRecord{{
		Height:    height,
		Hash:      blockHash,
		HasTweaks: count > 0,
	}}, nil
}

func (s *Store) HasBlockAtHeight(ctx context.Context, height uint32) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.has(KeyHeight(height))
}

func (s *Store) HighestBlockHeight(ctx context.Context) (uint32, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	lb, ub := BoundsHeight()
	it, err := s.DB.NewIter(&pebble.IterOptions{LowerBound: lb, UpperBound: ub})
	if err != nil {
		return 0, false, err
	}
	defer it.Close()

	if !it.Last() {
		return 0, false, it.Error()
	}
	k := it.Key()
	return binary.BigEndian.Uint32(k[1 : 1+SizeHeight]), true, nil
}

func (s *Store) TweaksByBlockHash(ctx context.Context, blockHash string) ([]types.TweakRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tweaks := []types.TweakRecord{}

	hash, err := decodeFixedHex(blockHash, SizeHash)
	if err != nil {
		return tweaks, nil
	}

	lb, ub := BoundsBlockTweak(hash)
	it, err := s.DB.NewIter(&pebble.IterOptions{LowerBound: lb, UpperBound: ub})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	for ok := it.First(); ok; ok = it.Next() {
		txid, tweak, err := ParseBlockTweakValue(it.Value())
		if err != nil {
			return nil, err
		}
		tweaks = append(tweaks, types.TweakRecord{
			BlockHash: blockHash,
			Txid:      hex.EncodeToString(txid),
			Tweak:     hex.EncodeToString(tweak),
		})
	}
	return tweaks, it.Error()
}

func (s *Store) TweakMetrics(ctx context.Context) ([]types.TweakMetrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lb, ub := BoundsHeight()
	it, err := s.DB.NewIter(&pebble.IterOptions{LowerBound: lb, UpperBound: ub})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	metrics := []types.TweakMetrics{}
	for ok := it.First(); ok; ok = it.Next() {
		hash, count, err := ParseHeightValue(it.Value())
		if err != nil {
			return nil, err
		}
		if count == 0 {
			continue
		}
		metrics = append(metrics, types.TweakMetrics{
			BlockHash:  hex.EncodeToString(hash),
			TweakCount: count,
		})
	}
	if err = it.Error(); err != nil {
		return nil, err
	}

	sort.Slice(metrics, func(i, j int) bool {
		if metrics[i].TweakCount != metrics[j].TweakCount {
			return metrics[i].TweakCount > metrics[j].TweakCount
		}
		return metrics[i].BlockHash < metrics[j].BlockHash
	})
	return metrics, nil
}
