// dbtest holds the behaviour every storage backend has to show
package dbtest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/setavenger/blindbit-tweaks/internal/database"
	"github.com/setavenger/blindbit-tweaks/internal/types"
	"github.com/stretchr/testify/require"
)

const (
	HashA = "00000000000000000001e4a7a4e1ec0d8d2e9c6b1b2a9d1e6f9c0b7f4c3a2d10"
	HashB = "00000000000000000002b5c3a1f0e9d8c7b6a5f4e3d2c1b0a9f8e7d6c5b4a321"
	HashC = "00000000000000000003a9b8c7d6e5f4a3b2c1d0e9f8a7b6c5d4e3f2a1b0c9d8"

	TxidA = "f4184fc596403b9d638783cf57adfe4c75c605f6356fbc91338530e9831e9e16"
	TxidB = "a1075db55d416d3ca199f55b6084e2115b9345e16c5cf302fc80e9d5fbf5d48d"
)

var (
	TweakA = "02" + strings.Repeat("ab", 32)
	TweakB = "03" + strings.Repeat("cd", 32)
)

// Run exercises the store returned by open. open is called once per subtest
// and has to return an empty store.
func Run(t *testing.T, open func(t *testing.T) database.DB) {
	t.Run("empty store", func(t *testing.T) {
		db := open(t)
		ctx := context.Background()

		_, ok, err := db.HighestBlockHeight(ctx)
		require.NoError(t, err)
		require.False(t, ok)

		blocks, err := db.BlockByHash(ctx, HashA)
		require.NoError(t, err)
		require.Empty(t, blocks)

		tweaks, err := db.TweaksByBlockHash(ctx, HashA)
		require.NoError(t, err)
		require.Empty(t, tweaks)

		metrics, err := db.TweakMetrics(ctx)
		require.NoError(t, err)
		require.Empty(t, metrics)
	})

	t.Run("insert and read back", func(t *testing.T) {
		db := open(t)
		ctx := context.Background()

		err := db.InsertBlock(ctx,
			types.BlockRecord{Height: 800000, Hash: HashA, HasTweaks: true},
			[]types.TweakRecord{
				{BlockHash: HashA, Txid: TxidA, Tweak: TweakA},
				{BlockHash: HashA, Txid: TxidB, Tweak: TweakB},
			},
		)
		require.NoError(t, err)

		err = db.InsertBlock(ctx, types.BlockRecord{Height: 800001, Hash: HashB}, nil)
		require.NoError(t, err)

		blocks, err := db.BlockByHash(ctx, HashA)
		require.NoError(t, err)
		require.Equal(t, []types.BlockRecord{{Height: 800000, Hash: HashA, HasTweaks: true}}, blocks)

		blocks, err = db.BlockByHash(ctx, HashB)
		require.NoError(t, err)
		require.Equal(t, []types.BlockRecord{{Height: 800001, Hash: HashB, HasTweaks: false}}, blocks)

		highest, ok, err := db.HighestBlockHeight(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, uint32(800001), highest)

		has, err := db.HasBlockAtHeight(ctx, 800001)
		require.NoError(t, err)
		require.True(t, has)
		has, err = db.HasBlockAtHeight(ctx, 799999)
		require.NoError(t, err)
		require.False(t, has)

		tweaks, err := db.TweaksByBlockHash(ctx, HashA)
		require.NoError(t, err)
		require.Equal(t, []types.TweakRecord{
			{BlockHash: HashA, Txid: TxidA, Tweak: TweakA},
			{BlockHash: HashA, Txid: TxidB, Tweak: TweakB},
		}, tweaks)

		tweaks, err = db.TweaksByBlockHash(ctx, HashB)
		require.NoError(t, err)
		require.Empty(t, tweaks)
	})

	t.Run("duplicate height is rejected", func(t *testing.T) {
		db := open(t)
		ctx := context.Background()

		require.NoError(t, db.InsertBlock(ctx, types.BlockRecord{Height: 10, Hash: HashA}, nil))

		err := db.InsertBlock(ctx,
			types.BlockRecord{Height: 10, Hash: HashB, HasTweaks: true},
			[]types.TweakRecord{{BlockHash: HashB, Txid: TxidA, Tweak: TweakA}},
		)
		require.Error(t, err)
		require.True(t, errors.Is(err, database.ErrBlockExists), "got %v", err)

		// nothing of the rejected block is visible
		tweaks, err := db.TweaksByBlockHash(ctx, HashB)
		require.NoError(t, err)
		require.Empty(t, tweaks)
		blocks, err := db.BlockByHash(ctx, HashB)
		require.NoError(t, err)
		require.Empty(t, blocks)
	})

	t.Run("tweak metrics ordered by count", func(t *testing.T) {
		db := open(t)
		ctx := context.Background()

		require.NoError(t, db.InsertBlock(ctx,
			types.BlockRecord{Height: 1, Hash: HashA, HasTweaks: true},
			[]types.TweakRecord{{BlockHash: HashA, Txid: TxidA, Tweak: TweakA}},
		))
		require.NoError(t, db.InsertBlock(ctx,
			types.BlockRecord{Height: 2, Hash: HashB, HasTweaks: true},
			[]types.TweakRecord{
				{BlockHash: HashB, Txid: TxidA, Tweak: TweakA},
				{BlockHash: HashB, Txid: TxidB, Tweak: TweakB},
			},
		))
		require.NoError(t, db.InsertBlock(ctx, types.BlockRecord{Height: 3, Hash: HashC}, nil))

		metrics, err := db.TweakMetrics(ctx)
		require.NoError(t, err)
		require.Equal(t, []types.TweakMetrics{
			{BlockHash: HashB, TweakCount: 2},
			{BlockHash: HashA, TweakCount: 1},
		}, metrics)
	})
}
