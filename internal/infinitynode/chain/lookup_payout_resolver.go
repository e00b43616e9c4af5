package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/model"
	"go.uber.org/zap"
)

// LookupPayoutResolver resolves payout addresses from the indexed output lookup table.
// Outputs missing from the table are read through source and written back, so a rebuild
// over the same range is served from the table.
type LookupPayoutResolver struct {
	repo    OutputLookupRepository
	network model.Network
	source  OutputResolver
	logger  *zap.Logger
}

// NewLookupPayoutResolver constructs a LookupPayoutResolver for a specific network.
// source may be nil, in which case misses are reported as ErrNotFound.
func NewLookupPayoutResolver(repo OutputLookupRepository, network model.Network, source OutputResolver, logger *zap.Logger) *LookupPayoutResolver {
	return &LookupPayoutResolver{
		repo:    repo,
		network: network,
		source:  source,
		logger:  logger,
	}
}

// ResolveAddress returns the single address paid by outpoint.
func (r *LookupPayoutResolver) ResolveAddress(ctx context.Context, outpoint wire.OutPoint) (string, error) {
	address, err := r.lookup(ctx, outpoint)
	if errors.Is(err, ErrNotFound) && r.source != nil {
		return r.resolveAndStore(ctx, outpoint)
	}
	return address, err
}

func (r *LookupPayoutResolver) lookup(ctx context.Context, outpoint wire.OutPoint) (string, error) {
	txid := outpoint.Hash.String()
	outputs, err := r.repo.TransactionOutputsLookupByTxIDs(ctx, r.network, []string{txid})
	if err != nil {
		return "", fmt.Errorf("query outputs for tx %s: %w", txid, err)
	}

	found, ok := outputs[txid]
	if !ok || len(found) == 0 {
		return "", fmt.Errorf("tx %s: %w", txid, ErrNotFound)
	}
	for _, output := range found {
		if output.Index != outpoint.Index {
			continue
		}
		return singleAddress(outpoint, output)
	}
	return "", fmt.Errorf("output %s: %w", outpoint, ErrNotFound)
}

func (r *LookupPayoutResolver) resolveAndStore(ctx context.Context, outpoint wire.OutPoint) (string, error) {
	output, err := r.source.ResolveOutput(ctx, outpoint)
	if err != nil {
		return "", err
	}
	output.Network = r.network

	// A failed write only costs a node round trip on the next rebuild.
	if err := r.repo.InsertTransactionOutputsLookup(ctx, []model.OutputLookup{output}); err != nil {
		r.logger.Warn("store resolved output failed",
			zap.Stringer("outpoint", &outpoint),
			zap.Error(err),
		)
	}
	return singleAddress(outpoint, output)
}

func singleAddress(outpoint wire.OutPoint, output model.OutputLookup) (string, error) {
	if len(output.Addresses) != 1 {
		return "", fmt.Errorf("output %s has %d addresses: %w", outpoint, len(output.Addresses), ErrNoDestination)
	}
	return output.Addresses[0], nil
}
