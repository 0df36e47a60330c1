package types

import "encoding/hex"

const TweakDataLength = 33

// Tweak is the result of the tweak pipeline for a single transaction.
// TweakData is the compressed point input_hash·A serialised as hex.
type Tweak struct {
	Txid      string `json:"tx_id"`
	TweakData string `json:"tweak"`
}

// NewTweak hex encodes the 33 byte compressed tweak point
func NewTweak(txid string, tweak [TweakDataLength]byte) Tweak {
	return Tweak{
		Txid:      txid,
		TweakData: hex.EncodeToString(tweak[:]),
	}
}

// TweakRecord is a tweak as it is persisted, keyed by the block it was found in.
type TweakRecord struct {
	BlockHash string `json:"block_hash"`
	Txid      string `json:"tx_id"`
	Tweak     string `json:"tweak"`
}

// TweakMetrics is the per block aggregate served by the read API
type TweakMetrics struct {
	BlockHash  string `json:"block_hash"`
	TweakCount uint32 `json:"tweak_count"`
}
