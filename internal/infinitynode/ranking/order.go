// Package ranking orders infinity nodes for payment eligibility.
package ranking

import (
	"sort"

	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/model"
)

// Assignment pairs a node with its 1-based rank.
type Assignment struct {
	Outpoint wire.OutPoint
	Height   int64
	Rank     int
}

// Order ranks the nodes not expired at height by creation height, ties broken by outpoint.
// Expired nodes are left out and implicitly carry rank 0. nodes is not modified.
func Order(nodes []model.Node, height int64) []Assignment {
	eligible := make([]Assignment, 0, len(nodes))
	for _, node := range nodes {
		if node.Expired(height) {
			continue
		}
		eligible = append(eligible, Assignment{Outpoint: node.Outpoint, Height: node.Height})
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Height != eligible[j].Height {
			return eligible[i].Height < eligible[j].Height
		}
		return model.CompareOutpoints(eligible[i].Outpoint, eligible[j].Outpoint) < 0
	})

	for i := range eligible {
		eligible[i].Rank = i + 1
	}
	return eligible
}

// Apply returns copies of nodes with ranks from assignments; unranked nodes get 0.
func Apply(nodes []model.Node, assignments []Assignment) []model.Node {
	ranks := make(map[wire.OutPoint]int, len(assignments))
	for _, a := range assignments {
		ranks[a.Outpoint] = a.Rank
	}

	out := make([]model.Node, len(nodes))
	for i, node := range nodes {
		node = node.Clone()
		node.Rank = ranks[node.Outpoint]
		out[i] = node
	}
	return out
}
