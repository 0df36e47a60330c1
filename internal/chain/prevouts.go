// Package chain holds the per block state shared by all tweak computations of a block.
package chain

import (
	"strings"

	"github.com/setavenger/blindbit-tweaks/internal/types"
)

type outpointKey struct {
	txid string
	vout uint32
}

// PrevoutCache maps a spent outpoint to the scriptPubKey it locked.
// It is built once from the bulk batch of a block and never modified afterwards,
// so it can be read from any number of goroutines without locking.
type PrevoutCache struct {
	scripts map[outpointKey]string
}

func NewPrevoutCache(entries []types.PreviousOutputScript) *PrevoutCache {
	c := &PrevoutCache{
		scripts: make(map[outpointKey]string, len(entries)),
	}
	for i := range entries {
		key := outpointKey{txid: strings.ToLower(entries[i].Txid), vout: entries[i].Vout}
		c.scripts[key] = entries[i].Script
	}
	return c
}

// Lookup returns the hex script for the exact (txid, vout) pair.
func (c *PrevoutCache) Lookup(txid string, vout uint32) (string, bool) {
	if c == nil {
		return "", false
	}
	script, ok := c.scripts[outpointKey{txid: strings.ToLower(txid), vout: vout}]
	return script, ok
}
