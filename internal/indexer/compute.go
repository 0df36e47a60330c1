package indexer

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/rs/zerolog"
	"github.com/setavenger/blindbit-tweaks/internal/chain"
	"github.com/setavenger/blindbit-tweaks/internal/types"
)

// TweakComputer runs the tweak pipeline for the transactions of one block.
// It only reads from the chain context and is safe for concurrent use.
type TweakComputer struct {
	chain   *chain.Chain
	source  TxSource
	metrics Metrics
	logger  zerolog.Logger
}

func NewTweakComputer(c *chain.Chain, source TxSource, metrics Metrics, logger zerolog.Logger) *TweakComputer {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &TweakComputer{
		chain:   c,
		source:  source,
		metrics: metrics,
		logger:  logger,
	}
}

// ComputeTweakPerTx returns the tweak of the transaction or nil if the
// transaction is not eligible. Coinbase spends and input keys summing up to
// the point at infinity are not errors.
func (c *TweakComputer) ComputeTweakPerTx(tx *btcutil.Tx) (*types.Tweak, error) {
	txid := tx.Hash().String()
	msgTx := tx.MsgTx()

	pubKeys := make([]*btcec.PublicKey, 0, len(msgTx.TxIn))
	for i, txIn := range msgTx.TxIn {
		prevOut := txIn.PreviousOutPoint
		if isNullOutpoint(prevOut) {
			// coinbase, nothing of this transaction is eligible
			return nil, nil
		}

		prevPkScript, err := c.resolvePrevPkScript(txid, prevOut)
		if err != nil {
			return nil, &TxError{Txid: txid, Input: i, Outpoint: prevOut, Err: err}
		}

		if IsSegwitGtV1(prevPkScript) {
			c.logger.Warn().
				Str("txid", txid).
				Hex("script", prevPkScript).
				Msg("segwit > v1")
			return nil, &TxError{Txid: txid, Input: i, Outpoint: prevOut, Err: ErrSegwitTooNew}
		}

		pubKey, err := ExtractPubKey(txIn, prevPkScript)
		if err != nil {
			return nil, &TxError{Txid: txid, Input: i, Outpoint: prevOut, Err: err}
		}
		if pubKey == nil {
			c.logger.Trace().
				Str("txid", txid).
				Str("prevout", prevOut.String()).
				Msg("no public key found in input")
			continue
		}
		pubKeys = append(pubKeys, pubKey)
	}

	if len(pubKeys) == 0 {
		return nil, nil
	}

	tweak, err := ComputeTweak(pubKeys, txOutpoints(msgTx))
	if err != nil {
		if errors.Is(err, errPubKeySumInfinity) {
			c.logger.Debug().Str("txid", txid).Msg("invalid public key sum")
			return nil, nil
		}
		if !errors.Is(err, ErrTweakComputation) {
			err = fmt.Errorf("%w: %v", ErrTweakComputation, err)
		}
		return nil, &TxError{Txid: txid, Input: -1, Err: err}
	}

	result := types.NewTweak(txid, tweak)
	return &result, nil
}

// resolvePrevPkScript checks the prevout cache first and falls back to
// fetching the full previous transaction from the node.
func (c *TweakComputer) resolvePrevPkScript(txid string, prevOut wire.OutPoint) ([]byte, error) {
	prevTxid := prevOut.Hash.String()

	if scriptHex, ok := c.chain.FindPreviousScript(prevTxid, prevOut.Index); ok {
		script, err := hex.DecodeString(scriptHex)
		if err != nil {
			return nil, fmt.Errorf("%w: cached script: %v", ErrPrevoutResolution, err)
		}
		return script, nil
	}

	if c.source == nil {
		return nil, fmt.Errorf("%w: not in prevout cache and no node available", ErrPrevoutResolution)
	}

	c.logger.Debug().
		Str("txid", txid).
		Str("prevout", prevOut.String()).
		Msg("had to fetch previous transaction from node")
	c.metrics.ObservePrevoutFallback()

	rawTx, err := c.source.GetRawTransaction(prevTxid)
	if err != nil {
		return nil, fmt.Errorf("%w: getrawtransaction %s: %v", ErrPrevoutResolution, prevTxid, err)
	}

	prevTx, err := decodeTx(rawTx)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrPrevoutResolution, prevTxid, err)
	}

	if gotHash := prevTx.TxHash(); !gotHash.IsEqual(&prevOut.Hash) {
		return nil, &ConsistencyError{Expected: prevTxid, Got: gotHash.String()}
	}

	if int(prevOut.Index) >= len(prevTx.TxOut) {
		return nil, fmt.Errorf("%w: %s has %d outputs", ErrOutputNotFound, prevTxid, len(prevTx.TxOut))
	}

	return prevTx.TxOut[prevOut.Index].PkScript, nil
}

func decodeTx(rawHex string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, err
	}
	var tx wire.MsgTx
	if err = tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return &tx, nil
}

func isNullOutpoint(op wire.OutPoint) bool {
	return op.Index == wire.MaxPrevOutIndex && op.Hash == (chainhash.Hash{})
}
