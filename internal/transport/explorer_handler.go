// Package transport exposes gRPC/HTTP handlers.
package transport

import (
	"context"
	"fmt"

	blockinsight7000v1 "github.com/goodnatureofminers/blockinsight7000-proto/pkg/blockinsight7000/v1"
)

// ExplorerHandler implements ExplorerServiceServer.
type ExplorerHandler struct {
	blockinsight7000v1.UnimplementedExplorerServiceServer
	registry Registry
}

// NewExplorerHandler returns an ExplorerHandler instance.
func NewExplorerHandler(registry Registry) blockinsight7000v1.ExplorerServiceServer {
	return &ExplorerHandler{registry: registry}
}

// Health reports server health. The server stays healthy while the registry is still being
// built; the description carries the registry state.
func (h *ExplorerHandler) Health(_ context.Context, _ *blockinsight7000v1.HealthRequest) (*blockinsight7000v1.HealthResponse, error) {
	return &blockinsight7000v1.HealthResponse{
		Status: blockinsight7000v1.HealthStatus_HEALTH_STATUS_HEALTHY,
		Description: fmt.Sprintf("infinitynodes: %s, nodes: %d, lastScanHeight: %d, tip: %d",
			h.registry.State(),
			h.registry.Count(),
			h.registry.LastScanHeight(),
			h.registry.CachedTipHeight(),
		),
	}, nil
}
