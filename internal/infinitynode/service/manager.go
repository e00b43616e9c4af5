// Package service keeps the infinity node registry in step with the active chain.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/clock"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/consensus"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/model"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/ranking"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/registry"
	"go.uber.org/zap"
)

const (
	ModeFull        = "full"
	ModeIncremental = "incremental"

	defaultPollInterval = 10 * time.Second
	defaultRetryBackoff = 30 * time.Second
)

// State describes where the registry stands relative to the cached tip.
type State int

const (
	StateUninitialized State = iota
	StateScanning
	StateSteady
	StateLagging
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateScanning:
		return "scanning"
	case StateSteady:
		return "steady"
	case StateLagging:
		return "lagging"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Manager decides when the registry is built or extended and answers ranking queries over it.
type Manager struct {
	store   *registry.Store
	scanner Scanner
	tips    TipSource
	params  *consensus.Params
	metrics Metrics
	logger  *zap.Logger

	tip      atomic.Int64
	scanning atomic.Bool

	wait         func(context.Context, time.Duration) error
	pollInterval time.Duration
	retryBackoff time.Duration
}

// NewManager builds a Manager. blockSignal may be nil, in which case Run polls the tip source.
func NewManager(
	store *registry.Store,
	scanner Scanner,
	tips TipSource,
	params *consensus.Params,
	metrics Metrics,
	logger *zap.Logger,
	blockSignal <-chan struct{},
) (*Manager, error) {
	if metrics == nil {
		return nil, errors.New("infinity node manager metrics is required")
	}
	if params == nil {
		return nil, errors.New("consensus params are required")
	}

	return &Manager{
		store:        store,
		scanner:      scanner,
		tips:         tips,
		params:       params,
		metrics:      metrics,
		logger:       logger.With(zap.String("network", string(params.Network))),
		wait:         clock.Waiter(blockSignal),
		pollInterval: defaultPollInterval,
		retryBackoff: defaultRetryBackoff,
	}, nil
}

// NotifyNewTip records the height of the active chain tip.
func (m *Manager) NotifyNewTip(height int64) {
	m.tip.Store(height)
	m.logger.Debug("new tip", zap.Int64("height", height))
}

// CachedTipHeight returns the last height passed to NotifyNewTip.
func (m *Manager) CachedTipHeight() int64 {
	return m.tip.Load()
}

// CheckAndRemove brings the registry up to the cached tip: a full build when the registry was never
// built, an incremental scan when the tip has moved past the maturity window of the last scan.
func (m *Manager) CheckAndRemove(ctx context.Context) error {
	tip := m.tip.Load()
	if tip <= 0 {
		return nil
	}

	return m.store.Batch(func(w *registry.Writer) error {
		last := w.LastScanHeight()
		switch {
		case !w.Built():
			if tip < m.params.BeginHeight {
				m.logger.Debug("chain below registry start height",
					zap.Int64("tip", tip),
					zap.Int64("begin_height", m.params.BeginHeight),
				)
				return nil
			}
			return m.build(ctx, w, ModeFull, m.params.BeginHeight, tip)
		case tip-m.params.MaturedLimit > last:
			return m.build(ctx, w, ModeIncremental, max(last, m.params.BeginHeight), tip)
		default:
			return nil
		}
	})
}

// InitialBuild clears the registry and rebuilds it from the start height up to height.
// It panics when height is below the start height.
func (m *Manager) InitialBuild(ctx context.Context, height int64) error {
	if height < m.params.BeginHeight {
		panic(fmt.Sprintf("initial build at %d below begin height %d", height, m.params.BeginHeight))
	}
	return m.store.Batch(func(w *registry.Writer) error {
		return m.build(ctx, w, ModeFull, m.params.BeginHeight, height)
	})
}

// Update rescans from the last scan height up to height without clearing the registry.
// It panics when height is below the last scan height.
func (m *Manager) Update(ctx context.Context, height int64) error {
	return m.store.Batch(func(w *registry.Writer) error {
		last := w.LastScanHeight()
		if height < last {
			panic(fmt.Sprintf("update at %d below last scan height %d", height, last))
		}
		return m.build(ctx, w, ModeIncremental, max(last, m.params.BeginHeight), height)
	})
}

func (m *Manager) build(ctx context.Context, w *registry.Writer, mode string, low, high int64) error {
	m.scanning.Store(true)
	defer m.scanning.Store(false)

	started := time.Now()
	if mode == ModeFull {
		w.Clear()
	}

	m.logger.Info("scanning chain for infinity nodes",
		zap.String("mode", mode),
		zap.Int64("low", low),
		zap.Int64("high", high),
	)
	res, err := m.scanner.Scan(ctx, w, low, high)
	m.metrics.ObserveScan(mode, err, res.Blocks, started)
	m.metrics.SetRegistry(w.Count(), w.NonMaturedCount(), w.LastScanHeight(), m.tip.Load())
	if err != nil {
		return fmt.Errorf("%s scan [%d, %d]: %w", mode, low, high, err)
	}
	return nil
}

// State reports the registry state against the cached tip.
func (m *Manager) State() State {
	if m.scanning.Load() {
		return StateScanning
	}
	if !m.store.Built() {
		return StateUninitialized
	}
	if m.store.LastScanHeight() >= m.tip.Load()-m.params.MaturedLimit {
		return StateSteady
	}
	return StateLagging
}

// Run follows the chain tip until the context is canceled, waking on block signals when available.
func (m *Manager) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := m.pollInterval
		if err := m.run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Warn("registry update failed, retrying", zap.Error(err), zap.Duration("sleep", m.retryBackoff))
			delay = m.retryBackoff
		}
		if err := m.wait(ctx, delay); err != nil {
			return err
		}
	}
}

func (m *Manager) run(ctx context.Context) error {
	tip, err := m.tips.LatestHeight(ctx)
	if err != nil {
		return fmt.Errorf("fetch latest height: %w", err)
	}
	if tip != m.tip.Load() {
		m.NotifyNewTip(tip)
	}
	return m.CheckAndRemove(ctx)
}

// Node returns a copy of the mature node registered for outpoint.
func (m *Manager) Node(outpoint wire.OutPoint) (model.Node, bool) {
	return m.store.Get(outpoint)
}

// Nodes returns every mature node ordered by creation height, then outpoint.
func (m *Manager) Nodes() []model.Node {
	return m.store.Nodes()
}

// LastScanHeight returns the height below which the registry is final.
func (m *Manager) LastScanHeight() int64 {
	return m.store.LastScanHeight()
}

// Count returns the number of mature nodes.
func (m *Manager) Count() int {
	return m.store.Count()
}

// LastPaid returns the height at which script last received a node reward.
func (m *Manager) LastPaid(script []byte) (int64, bool) {
	return m.store.LastPaid(script)
}

// Ranks recomputes node ranks at height and returns the ranked nodes.
func (m *Manager) Ranks(height int64) []ranking.Assignment {
	return m.store.ComputeRanks(height)
}

// DeterministicPayee returns the node of tier due for a reward at height.
// It panics when height precedes the first rewarded height.
func (m *Manager) DeterministicPayee(height int64, tier model.Tier) (model.Node, bool) {
	if height < m.params.BeginRewardHeight {
		panic(fmt.Sprintf("payee requested at %d before reward height %d", height, m.params.BeginRewardHeight))
	}
	if !tier.Valid() {
		return model.Node{}, false
	}
	nodes := m.store.NodesOfTier(tier, height)
	return ranking.SelectPayee(nodes, height)
}

// Params returns the consensus parameters the manager runs with.
func (m *Manager) Params() *consensus.Params {
	return m.params
}

func (m *Manager) String() string {
	return fmt.Sprintf("%s, state: %s, tip: %d", m.store, m.State(), m.tip.Load())
}
