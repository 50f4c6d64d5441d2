package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/huangsam/leadscore/core"
	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager
	engine  *core.Engine
}

// frameworkInfo is the list_frameworks view of one framework.
type frameworkInfo struct {
	Framework   schema.FrameworkID  `json:"framework_id"`
	Description string              `json:"description"`
	Version     int                 `json:"version"`
	Thresholds  schema.ThresholdSet `json:"thresholds"`
	Dimensions  []dimensionInfo     `json:"dimensions"`
}

type dimensionInfo struct {
	Key       schema.DimensionKey  `json:"dimension"`
	Evaluator schema.EvaluatorKind `json:"evaluator"`
	Weight    int                  `json:"weight"`
}

// weightUpdate is the set_dimension_weight response.
type weightUpdate struct {
	Saved    bool                   `json:"saved"`
	Advisory string                 `json:"advisory,omitempty"`
	Config   schema.FrameworkConfig `json:"config"`
}

func (h *toolHandler) service() *core.ConfigService {
	var store contract.ConfigStore
	if h.mgr != nil {
		store = h.mgr.GetConfigStore()
	}
	return core.NewConfigService(store, h.baseCfg.FrameworkConfigs)
}

func (h *toolHandler) tenant(request mcp.CallToolRequest) string {
	if t := request.GetString("tenant", ""); t != "" {
		return t
	}
	return h.baseCfg.Tenant
}

func (h *toolHandler) handleListFrameworks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfgs, err := h.service().LoadAll(ctx, h.tenant(request), schema.AllFrameworks)
	if err != nil {
		return toolError("failed to load frameworks", err), nil
	}

	infos := make([]frameworkInfo, 0, len(cfgs))
	for _, fc := range cfgs {
		info := frameworkInfo{
			Framework:   fc.Framework,
			Description: schema.FrameworkDescription(fc.Framework),
			Version:     fc.Version,
			Thresholds:  fc.Thresholds,
		}
		specs, _ := schema.Dimensions(fc.Framework)
		for _, spec := range specs {
			weight, _ := fc.Weights.Get(spec.Key)
			info.Dimensions = append(info.Dimensions, dimensionInfo{Key: spec.Key, Evaluator: spec.Kind, Weight: weight})
		}
		infos = append(infos, info)
	}
	return jsonResult(infos)
}

func (h *toolHandler) handleGetFrameworkConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fw, err := schema.ParseFrameworkID(request.GetString("framework", ""))
	if err != nil {
		return toolError("invalid framework", err), nil
	}
	fc, err := h.service().Load(ctx, h.tenant(request), fw)
	if err != nil {
		return toolError("failed to load configuration", err), nil
	}
	return jsonResult(fc)
}

func (h *toolHandler) handleScoreContact(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fields, ok := request.GetArguments()["payload"].(map[string]any)
	if !ok {
		return mcp.NewToolResultError("payload must be a JSON object"), nil
	}
	frameworks, err := contract.ParseFrameworkList(request.GetString("framework", ""))
	if err != nil {
		return toolError("invalid framework", err), nil
	}

	cfgs, err := h.service().LoadAll(ctx, h.tenant(request), frameworks)
	if err != nil {
		return toolError("failed to load configuration", err), nil
	}

	payload := core.PayloadFromMap(fields)
	if id := request.GetString("contact_id", ""); id != "" {
		payload.ContactID = id
	}
	results, err := h.engine.ScoreFrameworks(payload, cfgs...)
	if err != nil {
		return toolError("scoring failed", err), nil
	}
	return jsonResult(results)
}

func (h *toolHandler) handleSetDimensionWeight(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fw, err := schema.ParseFrameworkID(request.GetString("framework", ""))
	if err != nil {
		return toolError("invalid framework", err), nil
	}
	key := schema.DimensionKey(request.GetString("dimension", ""))
	weight := request.GetFloat("weight", -1)
	if weight != math.Trunc(weight) {
		return mcp.NewToolResultError(fmt.Sprintf("weight must be a whole number (got %g)", weight)), nil
	}
	accept := request.GetBool("accept_clamped", false)

	fc, err := h.service().SetWeight(ctx, h.tenant(request), fw, key, int(weight), accept)
	update := weightUpdate{Saved: err == nil, Config: fc}
	if unbalanced, ok := schema.AsUnbalanced(err); ok {
		update.Advisory = unbalanced.Error()
		update.Saved = accept
		err = nil
	}
	if err != nil {
		return toolError("failed to set weight", err), nil
	}
	return jsonResult(update)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// toolError turns domain errors into tool errors the caller can act on.
func toolError(msg string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, schema.ErrPersistenceDisabled):
		msg += " (no config backend is configured)"
	case errors.Is(err, schema.ErrVersionConflict):
		msg += " (configuration changed concurrently, retry)"
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", msg, err))
}
