package indexer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/rs/zerolog"
	"github.com/setavenger/blindbit-tweaks/internal/chain"
	"github.com/setavenger/blindbit-tweaks/internal/types"
	"github.com/stretchr/testify/require"
)

type recordingMetrics struct {
	noopMetrics
	mu        sync.Mutex
	failures  map[string]int
	fallbacks int
	blocks    map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{failures: map[string]int{}, blocks: map[string]int{}}
}

func (m *recordingMetrics) ObserveTxFailure(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[reason]++
}

func (m *recordingMetrics) ObservePrevoutFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks++
}

func (m *recordingMetrics) ObserveBlock(result string, _ uint32, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[result]++
}

// blockFixture is a block with a coinbase, two eligible transactions around a
// transaction without taproot outputs
type blockFixture struct {
	blockHex  string
	blockHash string
	spends    []spend
	txs       []*wire.MsgTx
	want      []types.Tweak
}

func newBlockFixture(t *testing.T, label string) blockFixture {
	t.Helper()

	k1, k2, k3 := privKey(label+"1"), privKey(label+"2"), privKey(label+"3")
	s1 := spendP2TR(outpoint(label+"a", 0), k1)
	s2 := spendP2WPKH(outpoint(label+"b", 1), k2)
	s3 := spendP2WPKH(outpoint(label+"c", 2), k3)

	tx1 := buildTx([]spend{s1})
	noTaproot := buildTx([]spend{s2}, p2wpkhScript(privKey("change").PubKey()))
	tx3 := buildTx([]spend{s3})

	blockHex, blockHash := buildBlock(t, chainhash.HashH([]byte(label)), coinbaseTx(), tx1, noTaproot, tx3)

	return blockFixture{
		blockHex:  blockHex,
		blockHash: blockHash,
		// the no-taproot spend is left out of the cache on purpose, resolving
		// it would hit the node
		spends: []spend{s1, s3},
		txs:    []*wire.MsgTx{tx1, noTaproot, tx3},
		want: []types.Tweak{
			{Txid: tx1.TxHash().String(), TweakData: expectedTweak(t, outpointsOf(s1), evenKey(k1))},
			{Txid: tx3.TxHash().String(), TweakData: expectedTweak(t, outpointsOf(s3), k3)},
		},
	}
}

func TestDispatcherBlockOrderAndPrefilter(t *testing.T) {
	fx := newBlockFixture(t, "order")

	for _, maxParallel := range []int{0, 1, 4} {
		source := newFakeNode()
		d := NewDispatcher(source, nil, zerolog.Nop(), maxParallel)

		tweaks, err := d.ComputeTweaksForBlock(context.Background(), fx.blockHex, chainWith(fx.spends...))
		require.NoError(t, err)
		require.Equal(t, fx.want, tweaks, "max parallel %d", maxParallel)
		require.Zero(t, source.totalRawTxCalls(), "max parallel %d", maxParallel)
	}
}

func TestDispatcherSkipsFailingTransactions(t *testing.T) {
	priv := privKey("good")
	good := spendP2TR(outpoint("good", 0), priv)
	missing := spendP2TR(outpoint("missing", 0), privKey("missing"))

	goodTx := buildTx([]spend{good})
	badTx := buildTx([]spend{missing})
	blockHex, _ := buildBlock(t, chainhash.Hash{}, coinbaseTx(), badTx, goodTx)

	metrics := newRecordingMetrics()
	d := NewDispatcher(newFakeNode(), metrics, zerolog.Nop(), 0)

	// missing is neither cached nor known by the node
	tweaks, err := d.ComputeTweaksForBlock(context.Background(), blockHex, chainWith(good))
	require.NoError(t, err)
	require.Equal(t, []types.Tweak{
		{Txid: goodTx.TxHash().String(), TweakData: expectedTweak(t, outpointsOf(good), evenKey(priv))},
	}, tweaks)
	require.Equal(t, 1, metrics.failures["prevout_resolution"])
	require.Equal(t, 1, metrics.fallbacks)
}

func TestDispatcherConsistencyErrorFailsBlock(t *testing.T) {
	priv := privKey("liar")
	op := outpoint("liar", 0)
	s := spendP2TR(op, priv)
	blockHex, _ := buildBlock(t, chainhash.Hash{}, coinbaseTx(), buildTx([]spend{s}))

	source := newFakeNode()
	source.rawTxs[op.Hash.String()] = txHex(t, prevTxPaying("not it", p2trScript(priv.PubKey())))

	d := NewDispatcher(source, nil, zerolog.Nop(), 0)
	tweaks, err := d.ComputeTweaksForBlock(context.Background(), blockHex, chain.New())
	require.Nil(t, tweaks)
	var consistencyErr *ConsistencyError
	require.True(t, errors.As(err, &consistencyErr), "got %v", err)
}

func TestDispatcherRecoversPanics(t *testing.T) {
	fx := newBlockFixture(t, "panic")
	priv := privKey("panics")
	op := outpoint("panics", 0)
	panicking := buildTx([]spend{spendP2TR(op, priv)})

	blockHex, _ := buildBlock(t, chainhash.Hash{}, coinbaseTx(), fx.txs[0], panicking, fx.txs[2])

	source := newFakeNode()
	source.onRawTx = func(txid string) {
		if txid == op.Hash.String() {
			panic("boom")
		}
	}
	metrics := newRecordingMetrics()
	d := NewDispatcher(source, metrics, zerolog.Nop(), 1)

	tweaks, err := d.ComputeTweaksForBlock(context.Background(), blockHex, chainWith(fx.spends...))
	require.NoError(t, err)
	require.Equal(t, fx.want, tweaks)
	require.Equal(t, 1, metrics.failures["task_panic"])
}

func TestDispatcherBadBlock(t *testing.T) {
	d := NewDispatcher(nil, nil, zerolog.Nop(), 0)

	for _, blockHex := range []string{"zz", "00"} {
		_, err := d.ComputeTweaksForBlock(context.Background(), blockHex, chain.New())
		require.True(t, errors.Is(err, ErrBlockDecode), "got %v", err)
		var blockErr *BlockError
		require.True(t, errors.As(err, &blockErr))
	}
}

func TestDispatcherCancelled(t *testing.T) {
	fx := newBlockFixture(t, "cancel")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDispatcher(nil, nil, zerolog.Nop(), 0)
	_, err := d.ComputeTweaksForBlock(ctx, fx.blockHex, chainWith(fx.spends...))
	require.True(t, errors.Is(err, context.Canceled))
}

func TestDispatcherCancelledWhileWaitingForSlot(t *testing.T) {
	fx := newBlockFixture(t, "cancel in flight")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the first computation holds the only slot until the dispatcher returned
	release := make(chan struct{})
	source := newFakeNode()
	source.onRawTx = func(string) {
		cancel()
		<-release
	}

	d := NewDispatcher(source, nil, zerolog.Nop(), 1)
	_, err := d.ComputeTweaksForBlock(ctx, fx.blockHex, chain.New())
	close(release)

	require.True(t, errors.Is(err, context.Canceled), "got %v", err)
	require.Equal(t, 1, source.totalRawTxCalls())
}

func TestDispatcherEmptyBlock(t *testing.T) {
	blockHex, _ := buildBlock(t, chainhash.Hash{}, coinbaseTx())
	d := NewDispatcher(nil, nil, zerolog.Nop(), 0)

	tweaks, err := d.ComputeTweaksForBlock(context.Background(), blockHex, chain.New())
	require.NoError(t, err)
	require.Empty(t, tweaks)
}
