package transport

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/model"
	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

type (
	nodeResponse struct {
		TxID              string `json:"txid"`
		Index             uint32 `json:"index"`
		Height            int64  `json:"height"`
		BurnValue         int64  `json:"burn_value"`
		Tier              int    `json:"tier"`
		CollateralAddress string `json:"collateral_address"`
		PayoutScript      string `json:"payout_script"`
		LastRewardHeight  int64  `json:"last_reward_height"`
		Rank              int    `json:"rank"`
		ExpiryHeight      int64  `json:"expiry_height"`
	}

	nodesResponse struct {
		State          string         `json:"state"`
		TipHeight      int64          `json:"tip_height"`
		LastScanHeight int64          `json:"last_scan_height"`
		Count          int            `json:"count"`
		Nodes          []nodeResponse `json:"nodes"`
	}

	rankResponse struct {
		TxID   string `json:"txid"`
		Index  uint32 `json:"index"`
		Height int64  `json:"height"`
		Rank   int    `json:"rank"`
	}

	ranksResponse struct {
		Height int64          `json:"height"`
		Ranks  []rankResponse `json:"ranks"`
	}

	payeeResponse struct {
		Height int64         `json:"height"`
		Tier   int           `json:"tier"`
		Payee  *nodeResponse `json:"payee"`
	}

	lastPaidResponse struct {
		Script string `json:"script"`
		Height int64  `json:"height"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}
)

// RegistryHandler serves read-only REST views of the infinity node registry.
type RegistryHandler struct {
	registry Registry
	logger   *zap.Logger
}

// NewRegistryHandler returns a RegistryHandler instance.
func NewRegistryHandler(registry Registry, logger *zap.Logger) *RegistryHandler {
	return &RegistryHandler{registry: registry, logger: logger}
}

// Register mounts the registry routes on the gateway mux.
func (h *RegistryHandler) Register(mux *gwruntime.ServeMux) error {
	routes := []struct {
		path    string
		handler gwruntime.HandlerFunc
	}{
		{path: "/v1/infinitynodes", handler: h.nodes},
		{path: "/v1/infinitynodes/{txid}/{index}", handler: h.node},
		{path: "/v1/ranks/{height}", handler: h.ranks},
		{path: "/v1/payee/{height}/{tier}", handler: h.payee},
		{path: "/v1/lastpaid/{script}", handler: h.lastPaid},
	}
	for _, route := range routes {
		if err := mux.HandlePath(http.MethodGet, route.path, route.handler); err != nil {
			return fmt.Errorf("register %s: %w", route.path, err)
		}
	}
	return nil
}

func (h *RegistryHandler) nodes(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	nodes := h.registry.Nodes()
	resp := nodesResponse{
		State:          h.registry.State().String(),
		TipHeight:      h.registry.CachedTipHeight(),
		LastScanHeight: h.registry.LastScanHeight(),
		Count:          len(nodes),
		Nodes:          make([]nodeResponse, 0, len(nodes)),
	}
	for _, node := range nodes {
		resp.Nodes = append(resp.Nodes, toNodeResponse(node))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *RegistryHandler) node(w http.ResponseWriter, _ *http.Request, params map[string]string) {
	hash, err := chainhash.NewHashFromStr(params["txid"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid txid: %w", err))
		return
	}
	index, err := strconv.ParseUint(params["index"], 10, 32)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid output index: %w", err))
		return
	}

	node, ok := h.registry.Node(wire.OutPoint{Hash: *hash, Index: uint32(index)})
	if !ok {
		h.writeError(w, http.StatusNotFound, fmt.Errorf("infinity node %s:%d not found", hash, index))
		return
	}
	h.writeJSON(w, http.StatusOK, toNodeResponse(node))
}

func (h *RegistryHandler) ranks(w http.ResponseWriter, _ *http.Request, params map[string]string) {
	height, err := parseHeight(params["height"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	assignments := h.registry.Ranks(height)
	resp := ranksResponse{Height: height, Ranks: make([]rankResponse, 0, len(assignments))}
	for _, a := range assignments {
		resp.Ranks = append(resp.Ranks, rankResponse{
			TxID:   a.Outpoint.Hash.String(),
			Index:  a.Outpoint.Index,
			Height: a.Height,
			Rank:   a.Rank,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *RegistryHandler) payee(w http.ResponseWriter, _ *http.Request, params map[string]string) {
	height, err := parseHeight(params["height"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if begin := h.registry.Params().BeginRewardHeight; height < begin {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("height %d precedes first reward height %d", height, begin))
		return
	}
	tierValue, err := strconv.Atoi(params["tier"])
	if err != nil || !model.Tier(tierValue).Valid() {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid tier %q", params["tier"]))
		return
	}
	tier := model.Tier(tierValue)

	resp := payeeResponse{Height: height, Tier: int(tier)}
	if node, ok := h.registry.DeterministicPayee(height, tier); ok {
		payee := toNodeResponse(node)
		resp.Payee = &payee
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *RegistryHandler) lastPaid(w http.ResponseWriter, _ *http.Request, params map[string]string) {
	script, err := hex.DecodeString(params["script"])
	if err != nil || len(script) == 0 {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid script %q", params["script"]))
		return
	}

	height, ok := h.registry.LastPaid(script)
	if !ok {
		h.writeError(w, http.StatusNotFound, fmt.Errorf("no payment recorded for script %s", params["script"]))
		return
	}
	h.writeJSON(w, http.StatusOK, lastPaidResponse{Script: hex.EncodeToString(script), Height: height})
}

func (h *RegistryHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("write response failed", zap.Error(err))
	}
}

func (h *RegistryHandler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func parseHeight(raw string) (int64, error) {
	height, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || height <= 0 {
		return 0, fmt.Errorf("invalid height %q", raw)
	}
	return height, nil
}

func toNodeResponse(node model.Node) nodeResponse {
	return nodeResponse{
		TxID:              node.Outpoint.Hash.String(),
		Index:             node.Outpoint.Index,
		Height:            node.Height,
		BurnValue:         int64(node.BurnValue),
		Tier:              int(node.Tier),
		CollateralAddress: node.CollateralAddress,
		PayoutScript:      hex.EncodeToString(node.PayoutScript),
		LastRewardHeight:  node.LastRewardHeight,
		Rank:              node.Rank,
		ExpiryHeight:      node.ExpiryHeight,
	}
}
