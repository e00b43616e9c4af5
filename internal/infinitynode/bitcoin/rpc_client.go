package bitcoin

import (
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"go.uber.org/ratelimit"
)

// ObservedClient wraps an RPC client with metrics and a request rate limit.
type ObservedClient struct {
	client     RPCClient
	rpcMetrics RPCMetrics
	rl         ratelimit.Limiter
}

// NewObservedClient constructs an instrumented RPC client. rps <= 0 disables rate limiting.
func NewObservedClient(client RPCClient, rpcMetrics RPCMetrics, rps int) *ObservedClient {
	rl := ratelimit.NewUnlimited()
	if rps > 0 {
		rl = ratelimit.New(rps)
	}
	return &ObservedClient{
		client:     client,
		rpcMetrics: rpcMetrics,
		rl:         rl,
	}
}

// GetBlockCount returns the height of the best chain tip.
func (r *ObservedClient) GetBlockCount() (count int64, err error) {
	r.rl.Take()
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_block_count", err, started)
	}()
	return r.client.GetBlockCount()
}

// GetBlockHash returns the block hash for a height.
func (r *ObservedClient) GetBlockHash(blockHeight int64) (hash *chainhash.Hash, err error) {
	r.rl.Take()
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_block_hash", err, started)
	}()
	return r.client.GetBlockHash(blockHeight)
}

// GetBlock returns the raw block for a hash.
func (r *ObservedClient) GetBlock(blockHash *chainhash.Hash) (block *wire.MsgBlock, err error) {
	r.rl.Take()
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_block", err, started)
	}()
	return r.client.GetBlock(blockHash)
}

// GetRawTransactionVerbose returns a decoded transaction. The node needs a transaction index.
func (r *ObservedClient) GetRawTransactionVerbose(txHash *chainhash.Hash) (tx *btcjson.TxRawResult, err error) {
	r.rl.Take()
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_raw_transaction_verbose", err, started)
	}()
	return r.client.GetRawTransactionVerbose(txHash)
}
