// Package scanner walks chain blocks and feeds collateral burns and reward payments into the registry.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/chain"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/consensus"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/model"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/registry"
	"github.com/goodnatureofminers/infinitynode-indexer/pkg/safe"
	"github.com/goodnatureofminers/infinitynode-indexer/pkg/workerpool"
	"go.uber.org/zap"
)

// ErrPayoutUnresolved is returned when the funding output of a burn cannot be turned into a payout address.
var ErrPayoutUnresolved = errors.New("payout address unresolved")

// Result summarises one scan pass.
type Result struct {
	Blocks     int
	Mature     int
	NonMatured int
	Payments   int
}

// Scanner classifies block transactions into collateral burns and coinbase node payments.
type Scanner struct {
	blocks  chain.BlockSource
	payouts chain.PayoutResolver
	decoder chain.ScriptDecoder
	params  *consensus.Params
	workers int
	logger  *zap.Logger
}

// New constructs a Scanner. workers bounds the concurrent payout lookups of one block.
func New(
	blocks chain.BlockSource,
	payouts chain.PayoutResolver,
	decoder chain.ScriptDecoder,
	params *consensus.Params,
	workers int,
	logger *zap.Logger,
) *Scanner {
	return &Scanner{
		blocks:  blocks,
		payouts: payouts,
		decoder: decoder,
		params:  params,
		workers: max(workers, 1),
		logger:  logger,
	}
}

type burn struct {
	tx    *wire.MsgTx
	index int
	out   *wire.TxOut
}

// Scan walks the active chain from high down to low inclusive, following previous-block links
// from the block at high. The caller holds the registry lock through w for the whole pass.
//
// A failed pass leaves the nodes and payments of fully processed blocks in place; re-adding them
// on the next pass is a no-op.
func (s *Scanner) Scan(ctx context.Context, w *registry.Writer, low, high int64) (Result, error) {
	if high < low {
		panic(fmt.Sprintf("scanner: high %d below low %d", high, low))
	}

	var res Result
	started := time.Now()

	hash, err := s.blocks.BlockHash(ctx, high)
	if err != nil {
		return res, fmt.Errorf("read block hash at height %d: %w", high, err)
	}
	w.ResetNonMatured()

	paidFloor := high - s.params.MaxLastPaidScanDepth()
	for height := high; height >= low; height-- {
		block, err := s.blocks.Block(ctx, hash)
		if err != nil {
			return res, fmt.Errorf("read block %s at height %d: %w", hash, height, err)
		}
		if err := s.scanBlock(ctx, w, block, height, high, paidFloor, &res); err != nil {
			return res, err
		}
		res.Blocks++

		prev := block.Header.PrevBlock
		hash = &prev
	}

	w.SetLastScanHeight(max(high-s.params.MaturedLimit, 0))
	w.RefreshLastRewards()

	s.logger.Info("infinity node list built from blockchain",
		zap.Int64("low", low),
		zap.Int64("high", high),
		zap.Int("blocks", res.Blocks),
		zap.Int("nodes", w.Count()),
		zap.Int("non_matured", w.NonMaturedCount()),
		zap.Int("payments", res.Payments),
		zap.Duration("took", time.Since(started)),
	)
	return res, nil
}

func (s *Scanner) scanBlock(
	ctx context.Context,
	w *registry.Writer,
	block *wire.MsgBlock,
	height, tip, paidFloor int64,
	res *Result,
) error {
	var burns []burn
	for _, tx := range block.Transactions {
		if blockchain.IsCoinBaseTx(tx) {
			if height >= paidFloor {
				res.Payments += s.recordPayments(w, tx, height)
			}
			continue
		}
		for i, out := range tx.TxOut {
			if s.isBurn(out) {
				burns = append(burns, burn{tx: tx, index: i, out: out})
			}
		}
	}
	if len(burns) == 0 {
		return nil
	}

	nodes, err := workerpool.Map(ctx, s.workers, burns, func(ctx context.Context, b burn) (model.Node, error) {
		return s.buildNode(ctx, b.tx, b.index, b.out, height)
	})
	if err != nil {
		return err
	}

	for _, node := range nodes {
		if tip-height <= s.params.MaturedLimit {
			w.AddNonMatured(node)
			res.NonMatured++
			continue
		}
		if w.Add(node) {
			res.Mature++
		}
	}
	return nil
}

func (s *Scanner) isBurn(out *wire.TxOut) bool {
	if !s.params.InBurnBand(btcutil.Amount(out.Value)) {
		return false
	}
	dest, err := s.decoder.Destination(out.PkScript)
	if err != nil {
		return false
	}
	return dest == s.params.BurnAddress
}

func (s *Scanner) buildNode(ctx context.Context, tx *wire.MsgTx, i int, out *wire.TxOut, height int64) (model.Node, error) {
	index, err := safe.Uint32(i)
	if err != nil {
		return model.Node{}, fmt.Errorf("tx %s output index: %w", tx.TxHash(), err)
	}
	outpoint := wire.NewOutPoint(ptr(tx.TxHash()), index)

	// The funding input of a burn is always the first one.
	if len(tx.TxIn) == 0 {
		return model.Node{}, fmt.Errorf("%w: burn %s has no inputs", ErrPayoutUnresolved, outpoint)
	}
	funding := tx.TxIn[0].PreviousOutPoint
	address, err := s.payouts.ResolveAddress(ctx, funding)
	if err != nil {
		return model.Node{}, fmt.Errorf("%w: burn %s funded by %s: %w", ErrPayoutUnresolved, outpoint, funding, err)
	}
	script, err := s.decoder.PayToAddress(address)
	if err != nil {
		return model.Node{}, fmt.Errorf("%w: burn %s: %w", ErrPayoutUnresolved, outpoint, err)
	}

	value := btcutil.Amount(out.Value)
	tier := model.TierFromBurnValue(value)

	s.logger.Debug("collateral burn found",
		zap.Stringer("outpoint", outpoint),
		zap.Int64("height", height),
		zap.Int("tier", int(tier)),
		zap.String("address", address),
	)

	return model.Node{
		Outpoint:          *outpoint,
		Height:            height,
		BurnValue:         value,
		Tier:              tier,
		CollateralAddress: address,
		PayoutScript:      script,
		ExpiryHeight:      s.params.ExpiryHeight(height, tier),
	}, nil
}

func (s *Scanner) recordPayments(w *registry.Writer, coinbase *wire.MsgTx, height int64) int {
	payments := make(map[btcutil.Amount]struct{}, len(model.Tiers))
	for _, tier := range model.Tiers {
		if amount := s.params.RewardForHeight(height, tier); amount > 0 {
			payments[amount] = struct{}{}
		}
	}

	recorded := 0
	for _, out := range coinbase.TxOut {
		if _, ok := payments[btcutil.Amount(out.Value)]; !ok {
			continue
		}
		w.RecordPayment(out.PkScript, height)
		recorded++
	}
	return recorded
}

func ptr[T any](v T) *T {
	return &v
}
