package indexer

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/setavenger/blindbit-tweaks/internal/chain"
	"github.com/setavenger/blindbit-tweaks/internal/node"
	"github.com/setavenger/blindbit-tweaks/internal/types"
	"github.com/stretchr/testify/require"
)

var dummySig = bytes.Repeat([]byte{0x01}, 64)

func privKey(label string) *btcec.PrivateKey {
	priv, _ := btcec.PrivKeyFromBytes(chainhash.HashB([]byte(label)))
	return priv
}

func negatedKey(priv *btcec.PrivateKey) *btcec.PrivateKey {
	k := priv.Key
	k.Negate()
	b := k.Bytes()
	neg, _ := btcec.PrivKeyFromBytes(b[:])
	return neg
}

// evenKey is the key as it contributes to the sum for taproot inputs
func evenKey(priv *btcec.PrivateKey) *btcec.PrivateKey {
	if priv.PubKey().SerializeCompressed()[0] == 0x03 {
		return negatedKey(priv)
	}
	return priv
}

func outpoint(label string, vout uint32) wire.OutPoint {
	return wire.OutPoint{Hash: chainhash.HashH([]byte(label)), Index: vout}
}

func p2trScript(pub *btcec.PublicKey) []byte {
	return append([]byte{0x51, 0x20}, schnorr.SerializePubKey(pub)...)
}

func p2wpkhScript(pub *btcec.PublicKey) []byte {
	return append([]byte{0x00, 0x14}, btcutil.Hash160(pub.SerializeCompressed())...)
}

func p2pkhScript(pub *btcec.PublicKey) []byte {
	script := []byte{0x76, 0xa9, 0x14}
	script = append(script, btcutil.Hash160(pub.SerializeCompressed())...)
	return append(script, 0x88, 0xac)
}

func p2shScript(redeem []byte) []byte {
	script := []byte{0xa9, 0x14}
	script = append(script, btcutil.Hash160(redeem)...)
	return append(script, 0x87)
}

// spend is one input together with the script of the output it spends
type spend struct {
	txIn     *wire.TxIn
	pkScript []byte
}

func spendP2TR(op wire.OutPoint, priv *btcec.PrivateKey) spend {
	txIn := wire.NewTxIn(&op, nil, wire.TxWitness{dummySig})
	return spend{txIn: txIn, pkScript: p2trScript(priv.PubKey())}
}

func spendP2WPKH(op wire.OutPoint, priv *btcec.PrivateKey) spend {
	txIn := wire.NewTxIn(&op, nil, wire.TxWitness{dummySig, priv.PubKey().SerializeCompressed()})
	return spend{txIn: txIn, pkScript: p2wpkhScript(priv.PubKey())}
}

func spendP2PKH(t *testing.T, op wire.OutPoint, priv *btcec.PrivateKey) spend {
	t.Helper()
	scriptSig, err := txscript.NewScriptBuilder().
		AddData(append(dummySig, 0x01)).
		AddData(priv.PubKey().SerializeCompressed()).
		Script()
	require.NoError(t, err)
	return spend{txIn: wire.NewTxIn(&op, scriptSig, nil), pkScript: p2pkhScript(priv.PubKey())}
}

func spendP2SHP2WPKH(op wire.OutPoint, priv *btcec.PrivateKey) spend {
	redeem := p2wpkhScript(priv.PubKey())
	scriptSig := append([]byte{byte(len(redeem))}, redeem...)
	txIn := wire.NewTxIn(&op, scriptSig, wire.TxWitness{dummySig, priv.PubKey().SerializeCompressed()})
	return spend{txIn: txIn, pkScript: p2shScript(redeem)}
}

// buildTx spends the inputs and pays to a single taproot output
func buildTx(spends []spend, outScripts ...[]byte) *wire.MsgTx {
	tx := wire.NewMsgTx(2)
	for _, s := range spends {
		tx.AddTxIn(s.txIn)
	}
	if len(outScripts) == 0 {
		outScripts = [][]byte{p2trScript(privKey("receiver").PubKey())}
	}
	for _, script := range outScripts {
		tx.AddTxOut(wire.NewTxOut(10_000, script))
	}
	return tx
}

// prevTxPaying is a funding transaction with one plain input
func prevTxPaying(label string, outScripts ...[]byte) *wire.MsgTx {
	op := outpoint(label, 0)
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(&op, []byte{0x51}, nil))
	for _, script := range outScripts {
		tx.AddTxOut(wire.NewTxOut(20_000, script))
	}
	return tx
}

func coinbaseTx() *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, wire.MaxPrevOutIndex), []byte{0x03, 0x01, 0x02, 0x03}, nil))
	tx.AddTxOut(wire.NewTxOut(50_0000_0000, p2trScript(privKey("miner").PubKey())))
	return tx
}

func prevoutEntries(spends []spend) []types.PreviousOutputScript {
	entries := make([]types.PreviousOutputScript, len(spends))
	for i, s := range spends {
		entries[i] = types.PreviousOutputScript{
			Txid:   s.txIn.PreviousOutPoint.Hash.String(),
			Vout:   s.txIn.PreviousOutPoint.Index,
			Script: hex.EncodeToString(s.pkScript),
		}
	}
	return entries
}

func chainWith(spends ...spend) *chain.Chain {
	c := chain.New()
	c.SetPreviousScripts(prevoutEntries(spends))
	return c
}

// expectedTweak computes input_hash·a·G from the private keys. Taproot keys
// have to be passed through evenKey by the caller.
func expectedTweak(t *testing.T, outpoints []wire.OutPoint, keys ...*btcec.PrivateKey) string {
	t.Helper()

	var a btcec.ModNScalar
	for _, k := range keys {
		a.Add(&k.Key)
	}
	aBytes := a.Bytes()
	_, sumPub := btcec.PrivKeyFromBytes(aBytes[:])

	var smallest []byte
	for _, op := range outpoints {
		ser := make([]byte, 36)
		copy(ser, op.Hash[:])
		binary.LittleEndian.PutUint32(ser[32:], op.Index)
		if smallest == nil || bytes.Compare(ser, smallest) < 0 {
			smallest = ser
		}
	}

	h := chainhash.TaggedHash([]byte("BIP0352/Inputs"), smallest, sumPub.SerializeCompressed())
	var s btcec.ModNScalar
	s.SetByteSlice(h[:])
	s.Mul(&a)
	sBytes := s.Bytes()
	_, tweakPub := btcec.PrivKeyFromBytes(sBytes[:])
	return hex.EncodeToString(tweakPub.SerializeCompressed())
}

func outpointsOf(spends ...spend) []wire.OutPoint {
	ops := make([]wire.OutPoint, len(spends))
	for i, s := range spends {
		ops[i] = s.txIn.PreviousOutPoint
	}
	return ops
}

func txHex(t *testing.T, tx *wire.MsgTx) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))
	return hex.EncodeToString(buf.Bytes())
}

func buildBlock(t *testing.T, prev chainhash.Hash, txs ...*wire.MsgTx) (string, string) {
	t.Helper()
	block := wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:   0x20000000,
			PrevBlock: prev,
			Timestamp: time.Unix(1_700_000_000, 0),
			Bits:      0x207fffff,
		},
		Transactions: txs,
	}
	var buf bytes.Buffer
	require.NoError(t, block.Serialize(&buf))
	return hex.EncodeToString(buf.Bytes()), block.BlockHash().String()
}

var errNotFound = errors.New("No such mempool or blockchain transaction")

// fakeNode serves blocks by height and raw transactions by id
type fakeNode struct {
	mu sync.Mutex

	tip       int64
	hashes    map[int64]string
	blocks    map[string]string
	prevouts  map[string][]types.PreviousOutputScript
	rawTxs    map[string]string
	failBlock map[string]error

	// hooks
	onBlockCount func(calls int)
	onRawTx      func(txid string)

	blockCountCalls int
	getBlockCalls   map[string]int
	rawTxCalls      map[string]int
	prevoutCalls    int
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		hashes:        map[int64]string{},
		blocks:        map[string]string{},
		prevouts:      map[string][]types.PreviousOutputScript{},
		rawTxs:        map[string]string{},
		failBlock:     map[string]error{},
		getBlockCalls: map[string]int{},
		rawTxCalls:    map[string]int{},
	}
}

func (f *fakeNode) addBlock(height int64, blockHex, blockHash string, prevouts []types.PreviousOutputScript) {
	f.hashes[height] = blockHash
	f.blocks[blockHash] = blockHex
	f.prevouts[blockHash] = prevouts
	if height > f.tip {
		f.tip = height
	}
}

func (f *fakeNode) GetBlockCount() (int64, error) {
	f.mu.Lock()
	f.blockCountCalls++
	calls := f.blockCountCalls
	f.mu.Unlock()
	if f.onBlockCount != nil {
		f.onBlockCount(calls)
	}
	return f.tip, nil
}

func (f *fakeNode) GetBlockHash(height int64) (string, error) {
	hash, ok := f.hashes[height]
	if !ok {
		return "", node.ErrHeightOutOfRange
	}
	return hash, nil
}

func (f *fakeNode) GetBlock(blockHash string) (string, error) {
	f.mu.Lock()
	f.getBlockCalls[blockHash]++
	f.mu.Unlock()
	if err := f.failBlock[blockHash]; err != nil {
		return "", err
	}
	blockHex, ok := f.blocks[blockHash]
	if !ok {
		return "", errors.New("Block not found")
	}
	return blockHex, nil
}

func (f *fakeNode) GetBlockPreviousOutputs(blockHash string) ([]types.PreviousOutputScript, error) {
	f.mu.Lock()
	f.prevoutCalls++
	f.mu.Unlock()
	return f.prevouts[blockHash], nil
}

func (f *fakeNode) GetRawTransaction(txid string) (string, error) {
	f.mu.Lock()
	f.rawTxCalls[txid]++
	f.mu.Unlock()
	if f.onRawTx != nil {
		f.onRawTx(txid)
	}
	raw, ok := f.rawTxs[txid]
	if !ok {
		return "", errNotFound
	}
	return raw, nil
}

func (f *fakeNode) totalRawTxCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.rawTxCalls {
		n += c
	}
	return n
}
