// Package chain defines the collaborator contracts the registry is built from.
package chain

import (
	"context"
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/model"
)

var (
	// ErrNotFound is returned when a block or transaction is unknown to the source.
	ErrNotFound = errors.New("not found")
	// ErrNoDestination is returned when an output script has no single decodable address.
	ErrNoDestination = errors.New("no destination")
)

// BlockSource reads blocks of the active chain.
type BlockSource interface {
	LatestHeight(ctx context.Context) (int64, error)
	BlockHash(ctx context.Context, height int64) (*chainhash.Hash, error)
	Block(ctx context.Context, hash *chainhash.Hash) (*wire.MsgBlock, error)
}

// PayoutResolver finds the address a previous transaction output paid to.
type PayoutResolver interface {
	ResolveAddress(ctx context.Context, outpoint wire.OutPoint) (string, error)
}

// OutputResolver reads a previous transaction output with its decoded addresses.
type OutputResolver interface {
	ResolveOutput(ctx context.Context, outpoint wire.OutPoint) (model.OutputLookup, error)
}

// ScriptDecoder translates between output scripts and encoded addresses.
type ScriptDecoder interface {
	Destination(pkScript []byte) (string, error)
	PayToAddress(address string) ([]byte, error)
}
