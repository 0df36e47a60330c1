package indexer

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

var (
	P2TrPrefix   = []byte{0x51, 0x20}
	P2WpkhPrefix = []byte{0x00, 0x14}
)

// IsSegwitGtV1 reports whether the spent script is a witness program of version 2 or above.
// Such inputs might get new spending rules with a future soft fork, so BIP352
// scanners have to skip the whole transaction. Non witness scripts pass.
func IsSegwitGtV1(pkScript []byte) bool {
	if !txscript.IsWitnessProgram(pkScript) {
		return false
	}
	version, _, err := txscript.ExtractWitnessProgramInfo(pkScript)
	if err != nil {
		return false
	}
	return version > 1
}

// TxHasTaprootOutputs is the cheap pre filter run before the pipeline.
// Silent payment outputs are always taproot outputs, a transaction without a
// single valid one can not be a silent payment and is not worth any RPC calls.
func TxHasTaprootOutputs(tx *wire.MsgTx) bool {
	for _, txOut := range tx.TxOut {
		if !IsP2TR(txOut.PkScript) {
			continue
		}
		// the output key has to be a valid x-only key
		if _, err := schnorr.ParsePubKey(txOut.PkScript[2:]); err == nil {
			return true
		}
	}
	return false
}

func IsP2TR(script []byte) bool {
	// pkScripts for taproot outputs are exactly 34 bytes
	return len(script) == 34 && bytes.Equal(script[:2], P2TrPrefix)
}

func IsP2Wpkh(script []byte) bool {
	return len(script) == 22 && bytes.Equal(script[:2], P2WpkhPrefix)
}

func IsP2Sh(script []byte) bool {
	return len(script) == 23 && script[0] == 0xa9 && script[1] == 0x14 && script[22] == 0x87
}

func IsP2Pkh(script []byte) bool {
	return len(script) == 25 &&
		script[0] == 0x76 && // OP_DUP
		script[1] == 0xa9 && // OP_HASH160
		script[2] == 0x14 && // OP_PUSHBYTES_20
		script[23] == 0x88 && // OP_EQUALVERIFY
		script[24] == 0xac // OP_CHECKSIG
}
