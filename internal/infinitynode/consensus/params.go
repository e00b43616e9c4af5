// Package consensus holds the per-network parameters the registry is derived from.
package consensus

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/model"
)

// Params are the read-only consensus values of one network.
type Params struct {
	Network model.Network
	Chain   *chaincfg.Params

	// BurnAddress is the unspendable destination collateral burns pay to.
	BurnAddress string
	// BurnThresholds are the upper bounds, in whole coins, of each tier's burn band.
	BurnThresholds map[model.Tier]int64
	// NodeLifetime is the number of blocks a node stays eligible after creation.
	NodeLifetime map[model.Tier]int64
	// Payments are the per-tier node rewards before halvings.
	Payments               map[model.Tier]btcutil.Amount
	SubsidyHalvingInterval int64
	// LastPaidScanDepth is the per-tier lookback used when tracking reward payments.
	LastPaidScanDepth map[model.Tier]int64

	BeginHeight       int64
	MaturedLimit      int64
	BeginRewardHeight int64
}

// InBurnBand reports whether value falls into one of the (threshold-1, threshold] coin bands.
func (p *Params) InBurnBand(value btcutil.Amount) bool {
	for _, tier := range model.Tiers {
		upper := p.BurnThresholds[tier] * btcutil.SatoshiPerBitcoin
		lower := (p.BurnThresholds[tier] - 1) * btcutil.SatoshiPerBitcoin
		if lower < int64(value) && int64(value) <= upper {
			return true
		}
	}
	return false
}

// RewardForHeight returns the coinbase payment a node of tier receives at height.
func (p *Params) RewardForHeight(height int64, tier model.Tier) btcutil.Amount {
	payment := p.Payments[tier]
	if p.SubsidyHalvingInterval <= 0 || height <= 0 {
		return payment
	}
	halvings := height / p.SubsidyHalvingInterval
	if halvings >= 63 {
		return 0
	}
	return payment >> uint(halvings)
}

// MaxLastPaidScanDepth is the largest per-tier lookback.
func (p *Params) MaxLastPaidScanDepth() int64 {
	var depth int64
	for _, tier := range model.Tiers {
		depth = max(depth, p.LastPaidScanDepth[tier])
	}
	return depth
}

// ExpiryHeight returns the last height at which a node created at height is eligible.
func (p *Params) ExpiryHeight(height int64, tier model.Tier) int64 {
	return height + p.NodeLifetime[tier]
}

// ForNetwork returns the parameters of a named network.
func ForNetwork(network model.Network) (*Params, error) {
	switch strings.ToLower(string(network)) {
	case "main", "mainnet":
		return MainNetParams(), nil
	case "testnet", "testnet3":
		return TestNetParams(), nil
	case "regtest":
		return RegtestParams(), nil
	default:
		return nil, fmt.Errorf("unsupported network %q", network)
	}
}

func defaultThresholds() map[model.Tier]int64 {
	return map[model.Tier]int64{
		model.Tier1:  100_000,
		model.Tier5:  500_000,
		model.Tier10: 1_000_000,
	}
}

func uniform(v int64) map[model.Tier]int64 {
	return map[model.Tier]int64{model.Tier1: v, model.Tier5: v, model.Tier10: v}
}

// MainNetParams returns the production network parameters.
func MainNetParams() *Params {
	chain := chaincfg.MainNetParams
	chain.Name = "sinmain"
	chain.PubKeyHashAddrID = 63
	chain.ScriptHashAddrID = 5
	chain.PrivateKeyID = 191

	return &Params{
		Network:        model.Mainnet,
		Chain:          &chain,
		BurnAddress:    "SinBurnAddress123456789SuqaXbx3AMC",
		BurnThresholds: defaultThresholds(),
		NodeLifetime:   uniform(720 * 365),
		Payments: map[model.Tier]btcutil.Amount{
			model.Tier1:  1752 * btcutil.SatoshiPerBitcoin,
			model.Tier5:  838 * btcutil.SatoshiPerBitcoin,
			model.Tier10: 1934 * btcutil.SatoshiPerBitcoin,
		},
		SubsidyHalvingInterval: 720 * 365 * 4,
		LastPaidScanDepth: map[model.Tier]int64{
			model.Tier1:  375,
			model.Tier5:  375,
			model.Tier10: 375,
		},
		BeginHeight:       160_000,
		MaturedLimit:      55,
		BeginRewardHeight: 170_000,
	}
}

// TestNetParams returns the public test network parameters.
func TestNetParams() *Params {
	p := MainNetParams()
	p.Network = model.Testnet
	p.Chain = &chaincfg.TestNet3Params
	p.BurnAddress = zeroKeyHashAddress(p.Chain)
	p.NodeLifetime = uniform(720 * 7)
	p.SubsidyHalvingInterval = 720 * 30
	p.BeginHeight = 1_000
	p.MaturedLimit = 15
	p.BeginRewardHeight = 2_000
	return p
}

// RegtestParams returns parameters for local regression testing.
func RegtestParams() *Params {
	p := MainNetParams()
	p.Network = model.Regtest
	p.Chain = &chaincfg.RegressionNetParams
	p.BurnAddress = zeroKeyHashAddress(p.Chain)
	p.NodeLifetime = uniform(1_000)
	p.SubsidyHalvingInterval = 150
	p.LastPaidScanDepth = uniform(100)
	p.BeginHeight = 1
	p.MaturedLimit = 50
	p.BeginRewardHeight = 100
	return p
}

// zeroKeyHashAddress is the P2PKH address of an all-zero key hash, which nobody can spend.
func zeroKeyHashAddress(chain *chaincfg.Params) string {
	addr, err := btcutil.NewAddressPubKeyHash(make([]byte, 20), chain)
	if err != nil {
		panic(fmt.Sprintf("zero key hash address: %v", err))
	}
	return addr.EncodeAddress()
}
