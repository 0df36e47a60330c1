package indexer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/wire"
	"github.com/setavenger/go-bip352"
	"github.com/stretchr/testify/require"
)

func TestExtractPubKey(t *testing.T) {
	priv := privKey("extract")
	pub := priv.PubKey()
	compressed := pub.SerializeCompressed()
	uncompressed := pub.SerializeUncompressed()
	op := outpoint("extract", 0)

	numsControl := append([]byte{0xc0}, bip352.NumsH...)
	otherControl := append([]byte{0xc0}, schnorr.SerializePubKey(pub)...)
	annex := []byte{0x50, 0x01}

	tests := []struct {
		name     string
		txIn     *wire.TxIn
		pkScript []byte
		wantKey  []byte
		wantErr  error
	}{
		{
			name:     "p2wpkh",
			txIn:     wire.NewTxIn(&op, nil, wire.TxWitness{dummySig, compressed}),
			pkScript: p2wpkhScript(pub),
			wantKey:  compressed,
		},
		{
			name:     "p2wpkh uncompressed key is skipped",
			txIn:     wire.NewTxIn(&op, nil, wire.TxWitness{dummySig, uncompressed}),
			pkScript: p2wpkhScript(pub),
		},
		{
			name:     "p2wpkh empty witness",
			txIn:     wire.NewTxIn(&op, nil, nil),
			pkScript: p2wpkhScript(pub),
			wantErr:  ErrPubkeyExtraction,
		},
		{
			name:     "p2wpkh unparsable 33 byte key is skipped",
			txIn:     wire.NewTxIn(&op, nil, wire.TxWitness{dummySig, bytes.Repeat([]byte{0x05}, 33)}),
			pkScript: p2wpkhScript(pub),
		},
		{
			name:     "p2wpkh with scriptSig",
			txIn:     wire.NewTxIn(&op, []byte{0x51}, wire.TxWitness{dummySig, compressed}),
			pkScript: p2wpkhScript(pub),
			wantErr:  ErrPubkeyExtraction,
		},
		{
			name:     "p2pkh",
			txIn:     spendP2PKH(t, op, priv).txIn,
			pkScript: p2pkhScript(pub),
			wantKey:  compressed,
		},
		{
			name:     "p2pkh key not matching the hash",
			txIn:     spendP2PKH(t, op, privKey("someone else")).txIn,
			pkScript: p2pkhScript(pub),
		},
		{
			name:     "p2pkh short scriptSig",
			txIn:     wire.NewTxIn(&op, []byte{0x01, 0x02}, nil),
			pkScript: p2pkhScript(pub),
		},
		{
			name:     "p2pkh empty scriptSig",
			txIn:     wire.NewTxIn(&op, nil, nil),
			pkScript: p2pkhScript(pub),
			wantErr:  ErrPubkeyExtraction,
		},
		{
			name: "p2pkh with witness",
			txIn: func() *wire.TxIn {
				txIn := spendP2PKH(t, op, priv).txIn
				txIn.Witness = wire.TxWitness{dummySig}
				return txIn
			}(),
			pkScript: p2pkhScript(pub),
			wantErr:  ErrPubkeyExtraction,
		},
		{
			name:     "p2sh-p2wpkh",
			txIn:     spendP2SHP2WPKH(op, priv).txIn,
			pkScript: p2shScript(p2wpkhScript(pub)),
			wantKey:  compressed,
		},
		{
			name:     "p2sh with other redeem script",
			txIn:     wire.NewTxIn(&op, []byte{0x01, 0x51}, wire.TxWitness{compressed}),
			pkScript: p2shScript([]byte{0x51}),
		},
		{
			name:     "p2sh empty scriptSig",
			txIn:     wire.NewTxIn(&op, nil, wire.TxWitness{dummySig, compressed}),
			pkScript: p2shScript(p2wpkhScript(pub)),
			wantErr:  ErrPubkeyExtraction,
		},
		{
			name:     "legacy p2sh without witness is skipped",
			txIn:     wire.NewTxIn(&op, []byte{0x01, 0x51}, nil),
			pkScript: p2shScript([]byte{0x51}),
		},
		{
			name:     "p2tr key path",
			txIn:     wire.NewTxIn(&op, nil, wire.TxWitness{dummySig}),
			pkScript: p2trScript(pub),
			wantKey:  evenKey(priv).PubKey().SerializeCompressed(),
		},
		{
			name:     "p2tr key path with annex",
			txIn:     wire.NewTxIn(&op, nil, wire.TxWitness{dummySig, annex}),
			pkScript: p2trScript(pub),
			wantKey:  evenKey(priv).PubKey().SerializeCompressed(),
		},
		{
			name:     "p2tr script path with other internal key",
			txIn:     wire.NewTxIn(&op, nil, wire.TxWitness{dummySig, {0x51}, otherControl}),
			pkScript: p2trScript(pub),
			wantKey:  evenKey(priv).PubKey().SerializeCompressed(),
		},
		{
			name:     "p2tr script path with nums internal key",
			txIn:     wire.NewTxIn(&op, nil, wire.TxWitness{dummySig, {0x51}, numsControl}),
			pkScript: p2trScript(pub),
		},
		{
			name:     "p2tr script path with nums internal key and annex",
			txIn:     wire.NewTxIn(&op, nil, wire.TxWitness{{0x51}, numsControl, annex}),
			pkScript: p2trScript(pub),
		},
		{
			name:     "p2tr empty witness",
			txIn:     wire.NewTxIn(&op, nil, nil),
			pkScript: p2trScript(pub),
			wantErr:  ErrPubkeyExtraction,
		},
		{
			name:     "p2tr invalid x-only key",
			txIn:     wire.NewTxIn(&op, nil, wire.TxWitness{dummySig}),
			pkScript: append([]byte{0x51, 0x20}, bytes.Repeat([]byte{0xff}, 32)...),
			wantErr:  ErrPubkeyExtraction,
		},
		{
			name:     "p2tr with scriptSig",
			txIn:     wire.NewTxIn(&op, []byte{0x51}, wire.TxWitness{dummySig}),
			pkScript: p2trScript(pub),
			wantErr:  ErrPubkeyExtraction,
		},
		{
			name:     "p2wsh is not eligible",
			txIn:     wire.NewTxIn(&op, nil, wire.TxWitness{dummySig, {0x51}}),
			pkScript: append([]byte{0x00, 0x20}, make([]byte, 32)...),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ExtractPubKey(tt.txIn, tt.pkScript)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			if tt.wantKey == nil {
				require.Nil(t, key)
				return
			}
			require.NotNil(t, key)
			require.Equal(t, tt.wantKey, key.SerializeCompressed())
		})
	}
}
