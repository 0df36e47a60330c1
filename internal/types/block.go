package types

// BlockRecord marks a block as indexed. HasTweaks is false for blocks
// which were processed but did not contain a single eligible transaction.
type BlockRecord struct {
	Height    uint32 `json:"height"`
	Hash      string `json:"hash"`
	HasTweaks bool   `json:"has_tweaks"`
}

// PreviousOutputScript is one entry of the bulk prevout batch for a block.
// Script is the hex encoded scriptPubKey of the spent output.
type PreviousOutputScript struct {
	Txid   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Script string `json:"script"`
}
