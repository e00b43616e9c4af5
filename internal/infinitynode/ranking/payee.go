package ranking

import (
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/model"
)

// SelectPayee picks the node of a tier whose turn it is to be paid at height.
//
// nodes must hold only nodes of one tier created strictly before height. With total = len(nodes),
// nodes created after height-total wait for a later round. Among the remaining ranked nodes the one
// paid least recently wins, with ties to the lower rank, so each eligible node is paid once before
// any node is paid again. LastRewardHeight is compared as recorded, however old.
func SelectPayee(nodes []model.Node, height int64) (model.Node, bool) {
	total := int64(len(nodes))
	if total == 0 {
		return model.Node{}, false
	}

	ranked := Apply(nodes, Order(nodes, height))
	cutoff := height - total

	var (
		best      model.Node
		bestPaid  int64
		bestFound bool
	)
	for _, node := range ranked {
		if node.Rank == 0 || node.Height > cutoff {
			continue
		}
		paid := node.LastRewardHeight
		if !bestFound || paid < bestPaid || (paid == bestPaid && node.Rank < best.Rank) {
			best, bestPaid, bestFound = node, paid, true
		}
	}
	return best, bestFound
}
