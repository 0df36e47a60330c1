package indexer

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/wire"
	"github.com/setavenger/blindbit-lib/utils"
	"github.com/setavenger/blindbit-tweaks/internal/types"
	"github.com/setavenger/go-bip352"
	golibsecp256k1 "github.com/setavenger/go-libsecp256k1"
)

// ComputeTweak derives the BIP352 tweak input_hash·A from the eligible input
// keys and all outpoints spent by the transaction.
func ComputeTweak(pubKeys []*btcec.PublicKey, outpoints []wire.OutPoint) ([types.TweakDataLength]byte, error) {
	var tweak [types.TweakDataLength]byte

	summedKey, err := SumPublicKeys(pubKeys)
	if err != nil {
		return tweak, err
	}
	copy(tweak[:], summedKey.SerializeCompressed())

	inputHash, err := bip352.ComputeInputHash(outpointVins(outpoints), &tweak)
	if err != nil {
		return tweak, fmt.Errorf("%w: %v", ErrTweakComputation, err)
	}

	var scalar btcec.ModNScalar
	if overflow := scalar.SetByteSlice(inputHash[:]); overflow || scalar.IsZero() {
		return tweak, fmt.Errorf("%w: input hash is not a valid scalar", ErrTweakComputation)
	}

	if err = golibsecp256k1.PubKeyTweakMul(&tweak, inputHash); err != nil {
		return tweak, fmt.Errorf("%w: %v", ErrTweakComputation, err)
	}
	return tweak, nil
}

// SumPublicKeys adds up all keys. Returns errPubKeySumInfinity if the
// keys cancel out. Partial sums may pass through the point at infinity,
// only the final sum has to be a valid key.
func SumPublicKeys(pubKeys []*btcec.PublicKey) (*btcec.PublicKey, error) {
	if len(pubKeys) == 0 {
		return nil, fmt.Errorf("%w: no public keys to sum", ErrTweakComputation)
	}

	var sum btcec.JacobianPoint
	pubKeys[0].AsJacobian(&sum)

	for _, pubKey := range pubKeys[1:] {
		var point, result btcec.JacobianPoint
		pubKey.AsJacobian(&point)
		btcec.AddNonConst(&sum, &point, &result)
		sum = result
	}

	if isInfinity(&sum) {
		return nil, errPubKeySumInfinity
	}

	sum.ToAffine()
	return btcec.NewPublicKey(&sum.X, &sum.Y), nil
}

func isInfinity(p *btcec.JacobianPoint) bool {
	p.X.Normalize()
	p.Y.Normalize()
	p.Z.Normalize()
	return (p.X.IsZero() && p.Y.IsZero()) || p.Z.IsZero()
}

// outpointVins converts outpoints into the vins ComputeInputHash expects,
// txids in display byte order.
func outpointVins(outpoints []wire.OutPoint) []*bip352.Vin {
	vins := make([]*bip352.Vin, len(outpoints))
	for i := range outpoints {
		vins[i] = &bip352.Vin{
			Txid: utils.ConvertToFixedLength32(utils.ReverseBytesCopy(outpoints[i].Hash[:])),
			Vout: outpoints[i].Index,
		}
	}
	return vins
}

// txOutpoints collects the outpoints of all inputs in their on-chain order
func txOutpoints(tx *wire.MsgTx) []wire.OutPoint {
	outpoints := make([]wire.OutPoint, len(tx.TxIn))
	for i, txIn := range tx.TxIn {
		outpoints[i] = txIn.PreviousOutPoint
	}
	return outpoints
}
