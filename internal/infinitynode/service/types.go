package service

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

import (
	"context"
	"time"

	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/registry"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/scanner"
)

type (
	// Scanner populates the registry from a height range of the active chain.
	Scanner interface {
		Scan(ctx context.Context, w *registry.Writer, low, high int64) (scanner.Result, error)
	}

	// TipSource reports the active chain height.
	TipSource interface {
		LatestHeight(ctx context.Context) (int64, error)
	}

	// Metrics tracks scan passes and registry size.
	Metrics interface {
		ObserveScan(mode string, err error, blocks int, started time.Time)
		SetRegistry(mature, nonMatured int, lastScanHeight, tip int64)
	}
)
