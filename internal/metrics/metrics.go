// Package metrics exposes Prometheus collectors for the indexer components.
package metrics

import "github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/model"

const namespace = "infinitynode"

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func networkLabel(network model.Network) model.Network {
	if network == "" {
		return "unknown"
	}
	return network
}
