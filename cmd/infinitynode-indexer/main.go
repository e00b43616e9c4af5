// Package main runs the infinity node registry indexer.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/bitcoin"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/chain"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/consensus"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/model"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/registry"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/repository/clickhouse"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/scanner"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/service"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/metrics"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type config struct {
	Network       model.Network `long:"network" env:"INFINITYNODE_NETWORK" description:"network name (mainnet, testnet, regtest)" default:"mainnet"`
	RPCURL        string        `long:"rpc-url" env:"INFINITYNODE_RPC_URL" description:"node RPC URL" default:"http://127.0.0.1:20971"`
	RPCUser       string        `long:"rpc-user" env:"INFINITYNODE_RPC_USER" description:"node RPC username"`
	RPCPassword   string        `long:"rpc-password" env:"INFINITYNODE_RPC_PASSWORD" description:"node RPC password"`
	RPCRate       int           `long:"rpc-rate" env:"INFINITYNODE_RPC_RATE" description:"max node RPC requests per second, 0 for unlimited" default:"0"`
	ScanWorkers   int           `long:"scan-workers" env:"INFINITYNODE_SCAN_WORKERS" description:"concurrent payout lookups per block" default:"4"`
	ZMQAddr       string        `long:"zmq-addr" env:"INFINITYNODE_ZMQ_ADDR" description:"node zmq hashblock endpoint"`
	ClickhouseDSN string        `long:"clickhouse-dsn" env:"INFINITYNODE_CLICKHOUSE_DSN" description:"ClickHouse DSN of the output lookup table; empty resolves payouts over RPC only"`
	Coin          string        `long:"coin" env:"INFINITYNODE_COIN" description:"coin name in the output lookup table" default:"sin"`
	GRPCAddr      string        `long:"grpc-addr" env:"INFINITYNODE_GRPC_ADDR" description:"gRPC listen address" default:":8000"`
	RestAddr      string        `long:"rest-addr" env:"INFINITYNODE_REST_ADDR" description:"REST and metrics listen address" default:":8001"`
	LogJSON       bool          `long:"log-json" env:"INFINITYNODE_LOG_JSON" description:"emit production JSON logs"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "failed to parse flags: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogJSON)
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("infinitynode indexer failed", zap.Error(err))
	}
}

func newLogger(json bool) (*zap.Logger, error) {
	if json {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	params, err := consensus.ForNetwork(cfg.Network)
	if err != nil {
		return err
	}
	logger = logger.With(zap.String("network", string(params.Network)))

	rpcClient, err := newRPCClient(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword)
	if err != nil {
		return fmt.Errorf("init rpc client: %w", err)
	}
	defer func() {
		rpcClient.Shutdown()
		rpcClient.WaitForShutdown()
	}()
	rpc := bitcoin.NewObservedClient(rpcClient, metrics.NewRPCClient(params.Network), cfg.RPCRate)

	decoder := bitcoin.NewScriptDecoder(params.Chain)
	blocks := bitcoin.NewBlockSource(rpc)
	outputs := bitcoin.NewPayoutResolver(rpc, decoder)
	var payouts chain.PayoutResolver = outputs
	if cfg.ClickhouseDSN != "" {
		repo, err := clickhouse.NewRepository(cfg.ClickhouseDSN, cfg.Coin, metrics.NewClickhouseRepository())
		if err != nil {
			return fmt.Errorf("init repository: %w", err)
		}
		defer func() {
			if err := repo.Close(); err != nil {
				logger.Warn("close clickhouse repository", zap.Error(err))
			}
		}()
		payouts = chain.NewLookupPayoutResolver(repo, params.Network, outputs, logger.Named("lookup"))
	}

	blockSignal, err := startBlockSignal(ctx, cfg.ZMQAddr, logger.Named("zmq"))
	if err != nil {
		return fmt.Errorf("start block signal: %w", err)
	}

	manager, err := service.NewManager(
		registry.New(),
		scanner.New(blocks, payouts, decoder, params, cfg.ScanWorkers, logger.Named("scanner")),
		blocks,
		params,
		metrics.NewRegistryManager(params.Network),
		logger.Named("manager"),
		blockSignal,
	)
	if err != nil {
		return fmt.Errorf("init manager: %w", err)
	}

	srv, err := startServers(ctx, cfg, manager, logger)
	if err != nil {
		return err
	}
	defer srv.shutdown(logger)

	logger.Info("following chain tip", zap.Int64("begin_height", params.BeginHeight))
	return manager.Run(ctx)
}

func newRPCClient(rawURL, user, password string) (*rpcclient.Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	if parsed.Scheme != "http" {
		return nil, fmt.Errorf("rpc url scheme %q not supported, use http", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("rpc url missing host")
	}

	return rpcclient.New(&rpcclient.ConnConfig{
		Host:         parsed.Host,
		User:         user,
		Pass:         password,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil)
}
