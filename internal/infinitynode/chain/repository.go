package chain

import (
	"context"

	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

// OutputLookupRepository reads and fills the indexed output lookup table.
type OutputLookupRepository interface {
	TransactionOutputsLookupByTxIDs(ctx context.Context, network model.Network, txids []string) (map[string][]model.OutputLookup, error)
	InsertTransactionOutputsLookup(ctx context.Context, outputs []model.OutputLookup) error
}
