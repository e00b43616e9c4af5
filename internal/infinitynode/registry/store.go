// Package registry keeps the in-memory projection of infinity nodes derived from the chain.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/model"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/ranking"
)

// Store owns mature and non-matured nodes plus the last-paid height of every payout script.
//
// mu guards both node maps, the scan state and ranks. lastPaidMu guards only lastPaid and is
// always acquired after mu when both are needed.
type Store struct {
	mu             sync.RWMutex
	nodes          map[wire.OutPoint]model.Node
	nonMatured     map[wire.OutPoint]model.Node
	lastScanHeight int64
	// built is set by the first completed scan; lastScanHeight stays 0 while the tip is inside
	// the maturity window.
	built bool

	lastPaidMu sync.RWMutex
	lastPaid   map[string]int64
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		nodes:      make(map[wire.OutPoint]model.Node),
		nonMatured: make(map[wire.OutPoint]model.Node),
		lastPaid:   make(map[string]int64),
	}
}

// Add inserts a mature node. It returns false without mutation when the outpoint is known.
func (s *Store) Add(node model.Node) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(node)
}

func (s *Store) add(node model.Node) bool {
	if _, ok := s.nodes[node.Outpoint]; ok {
		return false
	}
	s.nodes[node.Outpoint] = node.Clone()
	return true
}

// Find returns a copy of the node or nil.
func (s *Store) Find(outpoint wire.OutPoint) *model.Node {
	node, ok := s.Get(outpoint)
	if !ok {
		return nil
	}
	return &node
}

// Get returns a copy of the node and whether it exists.
func (s *Store) Get(outpoint wire.OutPoint) (model.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	node, ok := s.nodes[outpoint]
	if !ok {
		return model.Node{}, false
	}
	return node.Clone(), true
}

// Has reports whether a mature node exists for outpoint.
func (s *Store) Has(outpoint wire.OutPoint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[outpoint]
	return ok
}

// Count returns the number of mature nodes.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// NonMaturedCount returns the number of nodes still inside the maturity window.
func (s *Store) NonMaturedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nonMatured)
}

// LastScanHeight returns the highest height incorporated into the mature map.
func (s *Store) LastScanHeight() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastScanHeight
}

// Built reports whether a scan has completed since the store was created or cleared.
func (s *Store) Built() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.built
}

// Nodes returns a snapshot of every mature node ordered by height and outpoint.
func (s *Store) Nodes() []model.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(func(model.Node) bool { return true })
}

// NodesOfTier returns a snapshot of the mature nodes of tier created strictly before height.
func (s *Store) NodesOfTier(tier model.Tier, height int64) []model.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(func(n model.Node) bool {
		return n.Tier == tier && n.Height < height
	})
}

func (s *Store) snapshot(keep func(model.Node) bool) []model.Node {
	out := make([]model.Node, 0, len(s.nodes))
	for _, node := range s.nodes {
		if keep(node) {
			out = append(out, node.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Height != out[j].Height {
			return out[i].Height < out[j].Height
		}
		return model.CompareOutpoints(out[i].Outpoint, out[j].Outpoint) < 0
	})
	return out
}

// RecordPayment raises the last-paid height of script to height if it is higher.
func (s *Store) RecordPayment(script []byte, height int64) {
	s.lastPaidMu.Lock()
	defer s.lastPaidMu.Unlock()
	key := string(script)
	if current, ok := s.lastPaid[key]; ok && current >= height {
		return
	}
	s.lastPaid[key] = height
}

// HasPayee reports whether script has received a tracked payment.
func (s *Store) HasPayee(script []byte) bool {
	_, ok := s.LastPaid(script)
	return ok
}

// LastPaid returns the last-paid height of script.
func (s *Store) LastPaid(script []byte) (int64, bool) {
	s.lastPaidMu.RLock()
	defer s.lastPaidMu.RUnlock()
	height, ok := s.lastPaid[string(script)]
	return height, ok
}

// Clear drops every node, every payment record and resets the scan height.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
}

func (s *Store) clear() {
	s.nodes = make(map[wire.OutPoint]model.Node)
	s.nonMatured = make(map[wire.OutPoint]model.Node)
	s.lastScanHeight = 0
	s.built = false

	s.lastPaidMu.Lock()
	s.lastPaid = make(map[string]int64)
	s.lastPaidMu.Unlock()
}

// ComputeRanks assigns ranks 1..N to nodes still eligible at height and 0 to every other node.
func (s *Store) ComputeRanks(height int64) []ranking.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := make([]model.Node, 0, len(s.nodes))
	for _, node := range s.nodes {
		nodes = append(nodes, node)
	}
	assignments := ranking.Order(nodes, height)

	ranks := make(map[wire.OutPoint]int, len(assignments))
	for _, a := range assignments {
		ranks[a.Outpoint] = a.Rank
	}
	for outpoint, node := range s.nodes {
		node.Rank = ranks[outpoint]
		s.nodes[outpoint] = node
	}
	return assignments
}

// Batch runs fn while holding the node-map lock for its whole duration.
func (s *Store) Batch(fn func(w *Writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&Writer{s: s})
}

func (s *Store) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("InfinityNode: %d, lastScanHeight: %d", len(s.nodes), s.lastScanHeight)
}
