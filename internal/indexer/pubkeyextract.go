package indexer

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/wire"
	"github.com/setavenger/go-bip352"
)

const taprootAnnexTag = 0x50

// ExtractPubKey determines the public key an input contributes to the tweak.
// It returns (nil, nil) if the input is not eligible, e.g. a script path spend
// with the NUMS internal key or a non standard script. An error wrapping
// ErrPubkeyExtraction means the input data is malformed: an empty scriptSig or
// witness where the spent script needs one, a non empty one where it must be
// empty, or an invalid taproot output key.
func ExtractPubKey(txIn *wire.TxIn, prevPkScript []byte) (*btcec.PublicKey, error) {
	scriptSig, witness := txIn.SignatureScript, txIn.Witness

	switch {
	case IsP2Pkh(prevPkScript):
		if len(scriptSig) == 0 {
			return nil, fmt.Errorf("%w: empty scriptSig spending p2pkh", ErrPubkeyExtraction)
		}
		if len(witness) != 0 {
			return nil, fmt.Errorf("%w: witness spending p2pkh", ErrPubkeyExtraction)
		}
		return extractPubKeyFromP2PKH(scriptSig, prevPkScript)
	case IsP2Sh(prevPkScript):
		if len(scriptSig) == 0 {
			return nil, fmt.Errorf("%w: empty scriptSig spending p2sh", ErrPubkeyExtraction)
		}
		if len(witness) == 0 {
			// legacy p2sh, not eligible
			return nil, nil
		}
		return extractPubKeyFromP2SH(scriptSig, witness)
	case IsP2Wpkh(prevPkScript):
		if err := checkSegwitSpend(scriptSig, witness); err != nil {
			return nil, err
		}
		return extractPubKeyFromWitness(witness), nil
	case IsP2TR(prevPkScript):
		if err := checkSegwitSpend(scriptSig, witness); err != nil {
			return nil, err
		}
		return extractPubKeyFromP2TR(witness, prevPkScript)
	default:
		return nil, nil
	}
}

func checkSegwitSpend(scriptSig []byte, witness wire.TxWitness) error {
	if len(scriptSig) != 0 {
		return fmt.Errorf("%w: scriptSig spending a segwit output", ErrPubkeyExtraction)
	}
	if len(witness) == 0 {
		return fmt.Errorf("%w: empty witness spending a segwit output", ErrPubkeyExtraction)
	}
	return nil
}

// extractPubKeyFromP2PKH scans the scriptSig from the back for a 33 byte key
// which hashes to the pubkey hash of the spent output. Uncompressed keys are
// never matched and therefore skipped.
func extractPubKeyFromP2PKH(scriptSig, prevPkScript []byte) (*btcec.PublicKey, error) {
	spkHash := prevPkScript[3:23] // Skip op_codes and grab the hash

	for i := len(scriptSig); i >= 33; i-- {
		pubKeyBytes := scriptSig[i-33 : i]
		if !bytes.Equal(bip352.Hash160(pubKeyBytes), spkHash) {
			continue
		}
		pubKey, err := btcec.ParsePubKey(pubKeyBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: p2pkh key: %v", ErrPubkeyExtraction, err)
		}
		return pubKey, nil
	}

	return nil, nil
}

// only P2SH-P2WPKH is eligible, any other redeem script is skipped
func extractPubKeyFromP2SH(scriptSig []byte, witness wire.TxWitness) (*btcec.PublicKey, error) {
	if len(scriptSig) != 23 || scriptSig[0] != 0x16 {
		return nil, nil
	}
	if !IsP2Wpkh(scriptSig[1:]) {
		return nil, nil
	}
	return extractPubKeyFromWitness(witness), nil
}

// extractPubKeyFromWitness takes the last witness element, which for p2wpkh
// spends is the public key. Uncompressed and unparsable keys are skipped.
func extractPubKeyFromWitness(witness wire.TxWitness) *btcec.PublicKey {
	if len(witness) == 0 {
		return nil
	}
	last := witness[len(witness)-1]
	if len(last) != btcec.PubKeyBytesLenCompressed {
		return nil
	}
	pubKey, err := btcec.ParsePubKey(last)
	if err != nil {
		return nil
	}
	return pubKey
}

func extractPubKeyFromP2TR(witness wire.TxWitness, prevPkScript []byte) (*btcec.PublicKey, error) {
	witnessStack := witness
	// Remove annex if present
	last := witnessStack[len(witnessStack)-1]
	if len(witnessStack) > 1 && len(last) > 0 && last[0] == taprootAnnexTag {
		witnessStack = witnessStack[:len(witnessStack)-1]
	}

	if len(witnessStack) > 1 {
		// Script-path spend
		// Control block format: <control byte> <32-byte internal key> [<32-byte hash>...]
		controlBlock := witnessStack[len(witnessStack)-1]
		if len(controlBlock) >= 33 && bytes.Equal(controlBlock[1:33], bip352.NumsH) {
			// provably unspendable key path, nothing to contribute
			return nil, nil
		}
	}

	// x-only keys are always lifted with even parity
	pubKey, err := schnorr.ParsePubKey(prevPkScript[2:])
	if err != nil {
		return nil, fmt.Errorf("%w: taproot output key: %v", ErrPubkeyExtraction, err)
	}
	return pubKey, nil
}
