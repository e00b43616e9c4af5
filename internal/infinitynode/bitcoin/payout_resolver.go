package bitcoin

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/chain"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/model"
)

// PayoutResolver implements chain.PayoutResolver and chain.OutputResolver with
// getrawtransaction lookups.
type PayoutResolver struct {
	rpc     RPCClient
	decoder *ScriptDecoder
}

// NewPayoutResolver creates a PayoutResolver.
func NewPayoutResolver(rpc RPCClient, decoder *ScriptDecoder) *PayoutResolver {
	return &PayoutResolver{rpc: rpc, decoder: decoder}
}

// ResolveAddress returns the single address paid by outpoint.
func (r *PayoutResolver) ResolveAddress(ctx context.Context, outpoint wire.OutPoint) (string, error) {
	output, err := r.ResolveOutput(ctx, outpoint)
	if err != nil {
		return "", err
	}
	if len(output.Addresses) != 1 {
		return "", fmt.Errorf("output %s has %d addresses: %w", outpoint, len(output.Addresses), chain.ErrNoDestination)
	}
	return output.Addresses[0], nil
}

// ResolveOutput returns the value and decoded addresses of outpoint. Network is left for the caller.
func (r *PayoutResolver) ResolveOutput(ctx context.Context, outpoint wire.OutPoint) (model.OutputLookup, error) {
	if err := ctx.Err(); err != nil {
		return model.OutputLookup{}, err
	}
	tx, err := r.rpc.GetRawTransactionVerbose(&outpoint.Hash)
	if err != nil {
		return model.OutputLookup{}, fmt.Errorf("get transaction %s: %w", outpoint.Hash, translateRPCError(err))
	}

	for _, vout := range tx.Vout {
		if vout.N != outpoint.Index {
			continue
		}
		addrs, err := r.decoder.decodeAddresses(vout)
		if err != nil {
			return model.OutputLookup{}, fmt.Errorf("decode output %s: %w", outpoint, err)
		}
		amount, err := btcutil.NewAmount(vout.Value)
		if err != nil {
			return model.OutputLookup{}, fmt.Errorf("output %s value: %w", outpoint, err)
		}
		return model.OutputLookup{
			TxID:      outpoint.Hash.String(),
			Index:     outpoint.Index,
			Value:     uint64(amount),
			Addresses: addrs,
		}, nil
	}
	return model.OutputLookup{}, fmt.Errorf("output %s: %w", outpoint, chain.ErrNotFound)
}
