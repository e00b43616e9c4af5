package registry

import (
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/model"
)

// Writer mutates a Store whose node-map lock is already held by Store.Batch.
// It must not be retained after the batch function returns.
type Writer struct {
	s *Store
}

// Add inserts a mature node, returning false for a known outpoint.
func (w *Writer) Add(node model.Node) bool {
	return w.s.add(node)
}

// AddNonMatured records a node that is still inside the maturity window.
func (w *Writer) AddNonMatured(node model.Node) {
	w.s.nonMatured[node.Outpoint] = node.Clone()
}

// ResetNonMatured forgets every non-matured node; each scan pass rediscovers them.
func (w *Writer) ResetNonMatured() {
	w.s.nonMatured = make(map[wire.OutPoint]model.Node)
}

// Clear empties the store.
func (w *Writer) Clear() {
	w.s.clear()
}

// RecordPayment raises the last-paid height of script.
func (w *Writer) RecordPayment(script []byte, height int64) {
	w.s.RecordPayment(script, height)
}

// LastScanHeight returns the highest height incorporated into the mature map.
func (w *Writer) LastScanHeight() int64 {
	return w.s.lastScanHeight
}

// SetLastScanHeight records the end of a completed scan and marks the store built.
func (w *Writer) SetLastScanHeight(height int64) {
	w.s.lastScanHeight = height
	w.s.built = true
}

// Built reports whether a scan has completed since the store was created or cleared.
func (w *Writer) Built() bool {
	return w.s.built
}

// Count returns the number of mature nodes.
func (w *Writer) Count() int {
	return len(w.s.nodes)
}

// NonMaturedCount returns the number of nodes still inside the maturity window.
func (w *Writer) NonMaturedCount() int {
	return len(w.s.nonMatured)
}

// RefreshLastRewards copies last-paid heights onto the mature nodes paying to a known script.
func (w *Writer) RefreshLastRewards() {
	w.s.lastPaidMu.RLock()
	defer w.s.lastPaidMu.RUnlock()

	for outpoint, node := range w.s.nodes {
		height, ok := w.s.lastPaid[string(node.PayoutScript)]
		if !ok {
			continue
		}
		node.LastRewardHeight = height
		w.s.nodes[outpoint] = node
	}
}
