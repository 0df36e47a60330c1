package chain

import "github.com/setavenger/blindbit-tweaks/internal/types"

// Chain is the context for the block currently being processed.
// A new Chain is created for every block. The prevout cache is optional,
// without it every spent output is resolved through the node.
type Chain struct {
	prevouts *PrevoutCache
}

func New() *Chain {
	return &Chain{}
}

// SetPreviousScripts replaces the cache wholesale. Must be called before
// the block is dispatched, never while computations are in flight.
func (c *Chain) SetPreviousScripts(entries []types.PreviousOutputScript) {
	c.prevouts = NewPrevoutCache(entries)
}

// FindPreviousScript is the fast path of prevout resolution.
// A miss is not an error, the caller falls back to the node.
func (c *Chain) FindPreviousScript(txid string, vout uint32) (string, bool) {
	if c == nil {
		return "", false
	}
	return c.prevouts.Lookup(txid, vout)
}
