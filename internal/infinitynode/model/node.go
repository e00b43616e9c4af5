// Package model defines domain models for the infinity node registry.
package model

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// Tier buckets a node by the size of its collateral burn.
type Tier int

const (
	Tier1  Tier = 1
	Tier5  Tier = 5
	Tier10 Tier = 10
)

// Tiers lists every tier in ascending order.
var Tiers = []Tier{Tier1, Tier5, Tier10}

// tierBucket is the number of whole coins per tier step.
const tierBucket = 100_000

// TierFromBurnValue derives the tier bucket from a burn amount in base units.
// The whole-coin amount is rounded up by one before the truncating division.
func TierFromBurnValue(value btcutil.Amount) Tier {
	coins := int64(value)/btcutil.SatoshiPerBitcoin + 1
	return Tier(coins / tierBucket)
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case Tier1, Tier5, Tier10:
		return true
	default:
		return false
	}
}

// CompareOutpoints orders collateral references by tx hash bytes, then by output index.
func CompareOutpoints(a, b wire.OutPoint) int {
	if c := bytes.Compare(a.Hash[:], b.Hash[:]); c != 0 {
		return c
	}
	switch {
	case a.Index < b.Index:
		return -1
	case a.Index > b.Index:
		return 1
	default:
		return 0
	}
}

// Node is an infinity node discovered from a collateral burn output.
type Node struct {
	// Outpoint is the burn output that created the node; unique across the registry.
	Outpoint          wire.OutPoint
	Height            int64
	BurnValue         btcutil.Amount
	Tier              Tier
	CollateralAddress string
	PayoutScript      []byte
	LastRewardHeight  int64
	// Rank is 0 for expired or not yet ranked nodes, 1-based otherwise.
	Rank         int
	ExpiryHeight int64
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.PayoutScript = append([]byte(nil), n.PayoutScript...)
	return n
}

// Expired reports whether the node is no longer eligible at height.
func (n Node) Expired(height int64) bool {
	return n.ExpiryHeight < height
}

func (n Node) String() string {
	return fmt.Sprintf("InfinityNode(%s, height=%d, tier=%d, address=%s, rank=%d)",
		n.Outpoint, n.Height, n.Tier, n.CollateralAddress, n.Rank)
}
