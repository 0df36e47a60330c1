package dbpebble

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// ---------------- Keys ----------------

func KeyHeight(height uint32) []byte {
	k := make([]byte, 1+SizeHeight)
	k[0] = KHeight
	be32(height, k[1:])
	return k
}

// BoundsHeight covers every height key
func BoundsHeight() (lb, ub []byte) {
	return []byte{KHeight}, []byte{KHeight + 1}
}

func KeyBlock(blockHash []byte) []byte {
	k := make([]byte, 1+SizeHash)
	k[0] = KBlock
	copy(k[1:], blockHash)
	return k
}

func KeyBlockTweak(blockHash []byte, pos uint32) []byte {
	k := make([]byte, 1+SizeHash+SizePos)
	k[0] = KBlockTweak
	copy(k[1:1+SizeHash], blockHash)
	be32(pos, k[1+SizeHash:])
	return k
}

func BoundsBlockTweak(blockHash []byte) (lb, ub []byte) {
	lb = make([]byte, 1+SizeHash)
	lb[0] = KBlockTweak
	copy(lb[1:], blockHash)
	ub = make([]byte, 1+SizeHash+SizePos+1)
	copy(ub, lb)
	for i := 1 + SizeHash; i < len(ub); i++ {
		ub[i] = 0xFF
	}
	return
}

// ---------------- Values ----------------

func ValHeight(blockHash []byte, tweakCount uint32) []byte {
	v := make([]byte, SizeHash+SizeCount)
	copy(v[:SizeHash], blockHash)
	be32(tweakCount, v[SizeHash:])
	return v
}

func ParseHeightValue(v []byte) (blockHash []byte, tweakCount uint32, err error) {
	if len(v) != SizeHash+SizeCount {
		return nil, 0, errors.New("bad height value length")
	}
	blockHash = make([]byte, SizeHash)
	copy(blockHash, v[:SizeHash])
	return blockHash, binary.BigEndian.Uint32(v[SizeHash:]), nil
}

func ValBlock(height uint32) []byte {
	v := make([]byte, SizeHeight)
	be32(height, v)
	return v
}

func ParseBlockValue(v []byte) (uint32, error) {
	if len(v) != SizeHeight {
		return 0, errors.New("bad block value length")
	}
	return binary.BigEndian.Uint32(v), nil
}

func ValBlockTweak(txid, tweak []byte) ([]byte, error) {
	if len(txid) != SizeTxid {
		return nil, errors.New("txid must be 32 bytes")
	}
	if len(tweak) != SizeTweak {
		return nil, errors.New("tweak must be 33 bytes")
	}
	v := make([]byte, SizeTxid+SizeTweak)
	copy(v[:SizeTxid], txid)
	copy(v[SizeTxid:], tweak)
	return v, nil
}

func ParseBlockTweakValue(v []byte) (txid, tweak []byte, err error) {
	if len(v) != SizeTxid+SizeTweak {
		return nil, nil, errors.New("bad block tweak value length")
	}
	txid = make([]byte, SizeTxid)
	tweak = make([]byte, SizeTweak)
	copy(txid, v[:SizeTxid])
	copy(tweak, v[SizeTxid:])
	return txid, tweak, nil
}

// decodeFixedHex decodes a hex string of exactly size bytes
func decodeFixedHex(s string, size int) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, fmt.Errorf("expected %d bytes, got %d", size, len(b))
	}
	return b, nil
}
