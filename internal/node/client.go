package node

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/setavenger/blindbit-tweaks/internal/types"
)

// ErrHeightOutOfRange is returned by GetBlockHash for heights the node has
// not seen yet.
var ErrHeightOutOfRange = errors.New("block height out of range")

type (
	// RPCMetrics records metrics for RPC calls.
	RPCMetrics interface {
		Observe(operation string, err error, started time.Time)
	}
)

type Config struct {
	// Endpoint is host:port, an http:// or https:// prefix is accepted
	Endpoint string
	User     string
	Pass     string
}

// Client talks JSON-RPC over HTTP POST to a bitcoin core node.
type Client struct {
	client     *rpcclient.Client
	rpcMetrics RPCMetrics
}

func New(cfg Config, rpcMetrics RPCMetrics) (*Client, error) {
	host, disableTLS := splitEndpoint(cfg.Endpoint)
	client, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   disableTLS,
	}, nil)
	if err != nil {
		return nil, err
	}
	if rpcMetrics == nil {
		rpcMetrics = noopRPCMetrics{}
	}
	return &Client{client: client, rpcMetrics: rpcMetrics}, nil
}

func (r *Client) Shutdown() {
	r.client.Shutdown()
}

func (r *Client) GetBlockCount() (count int64, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_block_count", err, started)
	}()
	return r.client.GetBlockCount()
}

func (r *Client) GetBlockHash(height int64) (hash string, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_block_hash", err, started)
	}()
	h, err := r.client.GetBlockHash(height)
	if err != nil {
		if isOutOfRange(err) {
			return "", fmt.Errorf("%w: %d", ErrHeightOutOfRange, height)
		}
		return "", err
	}
	return h.String(), nil
}

// GetBlock returns the serialised block as hex.
func (r *Client) GetBlock(blockHash string) (blockHex string, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_block", err, started)
	}()
	err = r.rawRequest("getblock", &blockHex, blockHash, 0)
	return blockHex, err
}

// GetRawTransaction returns the serialised transaction as hex.
func (r *Client) GetRawTransaction(txid string) (txHex string, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_raw_transaction", err, started)
	}()
	err = r.rawRequest("getrawtransaction", &txHex, txid, false)
	return txHex, err
}

type verboseBlockPrevouts struct {
	Tx []struct {
		Vin []struct {
			Coinbase string `json:"coinbase"`
			Txid     string `json:"txid"`
			Vout     uint32 `json:"vout"`
			Prevout  *struct {
				ScriptPubKey struct {
					Hex string `json:"hex"`
				} `json:"scriptPubKey"`
			} `json:"prevout"`
		} `json:"vin"`
	} `json:"tx"`
}

// GetBlockPreviousOutputs lists the script of every output spent in the
// block. It relies on getblock verbosity 3 which needs bitcoin core 25+.
func (r *Client) GetBlockPreviousOutputs(blockHash string) (prevouts []types.PreviousOutputScript, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_block_prevouts", err, started)
	}()

	var block verboseBlockPrevouts
	if err = r.rawRequest("getblock", &block, blockHash, 3); err != nil {
		return nil, err
	}

	for _, tx := range block.Tx {
		for _, vin := range tx.Vin {
			if vin.Coinbase != "" || vin.Prevout == nil {
				continue
			}
			prevouts = append(prevouts, types.PreviousOutputScript{
				Txid:   vin.Txid,
				Vout:   vin.Vout,
				Script: vin.Prevout.ScriptPubKey.Hex,
			})
		}
	}
	return prevouts, nil
}

func (r *Client) rawRequest(method string, result any, params ...any) error {
	rawParams := make([]json.RawMessage, len(params))
	for i, p := range params {
		b, err := json.Marshal(p)
		if err != nil {
			return err
		}
		rawParams[i] = b
	}

	resp, err := r.client.RawRequest(method, rawParams)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(resp, result); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	return nil
}

func isOutOfRange(err error) bool {
	var rpcErr *btcjson.RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	return rpcErr.Code == btcjson.ErrRPCInvalidParameter &&
		strings.Contains(strings.ToLower(rpcErr.Message), "out of range")
}

func splitEndpoint(endpoint string) (host string, disableTLS bool) {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimPrefix(endpoint, "https://"), false
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimPrefix(endpoint, "http://"), true
	default:
		return endpoint, true
	}
}

type noopRPCMetrics struct{}

func (noopRPCMetrics) Observe(string, error, time.Time) {}
