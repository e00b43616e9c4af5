package bitcoin

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/chain"
)

// BlockSource implements chain.BlockSource over node RPC.
type BlockSource struct {
	rpc RPCClient
}

// NewBlockSource creates a BlockSource.
func NewBlockSource(rpc RPCClient) *BlockSource {
	return &BlockSource{rpc: rpc}
}

// LatestHeight returns the height of the node's best chain tip.
func (s *BlockSource) LatestHeight(_ context.Context) (int64, error) {
	count, err := s.rpc.GetBlockCount()
	if err != nil {
		return 0, fmt.Errorf("get block count: %w", err)
	}
	return count, nil
}

// BlockHash returns the hash of the active-chain block at height.
func (s *BlockSource) BlockHash(ctx context.Context, height int64) (*chainhash.Hash, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := s.rpc.GetBlockHash(height)
	if err != nil {
		return nil, fmt.Errorf("get block hash at height %d: %w", height, translateRPCError(err))
	}
	return hash, nil
}

// Block reads the block with the given hash.
func (s *BlockSource) Block(ctx context.Context, hash *chainhash.Hash) (*wire.MsgBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	block, err := s.rpc.GetBlock(hash)
	if err != nil {
		return nil, fmt.Errorf("get block %s: %w", hash, translateRPCError(err))
	}
	return block, nil
}

// translateRPCError maps node "not found" codes to chain.ErrNotFound.
func translateRPCError(err error) error {
	var rpcErr *btcjson.RPCError
	if !errors.As(err, &rpcErr) {
		return err
	}
	switch rpcErr.Code {
	case btcjson.ErrRPCBlockNotFound, btcjson.ErrRPCOutOfRange, btcjson.ErrRPCInvalidParameter:
		return fmt.Errorf("%s: %w", rpcErr.Message, chain.ErrNotFound)
	default:
		return err
	}
}
