package transport

import (
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/consensus"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/model"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/ranking"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/service"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

// Registry is the read side of the infinity node manager.
type Registry interface {
	State() service.State
	CachedTipHeight() int64
	LastScanHeight() int64
	Count() int
	Nodes() []model.Node
	Node(outpoint wire.OutPoint) (model.Node, bool)
	LastPaid(script []byte) (int64, bool)
	Ranks(height int64) []ranking.Assignment
	DeterministicPayee(height int64, tier model.Tier) (model.Node, bool)
	Params() *consensus.Params
}
