// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/leadscore/core"
	"github.com/huangsam/leadscore/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the lead scoring MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager, engine *core.Engine) *server.MCPServer {
	s := server.NewMCPServer(
		"Lead Scoring Server",
		"1.0.0",
		server.WithLogging(),
	)

	if engine == nil {
		engine = core.NewEngine(core.WithWorkers(baseCfg.Workers))
	}
	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
		engine:  engine,
	}

	// --- 1. Tool: list_frameworks ---
	s.AddTool(mcp.NewTool("list_frameworks",
		mcp.WithDescription("List the qualification frameworks with their dimensions, effective weights and tier thresholds."),
		mcp.WithString("tenant", mcp.Description("Tenant whose stored weights are shown. Defaults to the server's tenant.")),
	), h.handleListFrameworks)

	// --- 2. Tool: get_framework_config ---
	s.AddTool(mcp.NewTool("get_framework_config",
		mcp.WithDescription("Get a tenant's effective configuration for one framework."),
		mcp.WithString("framework", mcp.Description("Framework id."), mcp.Required(), mcp.Enum("APEX", "MDCP", "BANT", "SPICE")),
		mcp.WithString("tenant", mcp.Description("Tenant id. Defaults to the server's tenant.")),
	), h.handleGetFrameworkConfig)

	// --- 3. Tool: score_contact ---
	s.AddTool(mcp.NewTool("score_contact",
		mcp.WithDescription("Score one contact's enrichment payload against one or more frameworks."),
		mcp.WithObject("payload", mcp.Description("Enrichment fields such as title, industry, revenue, budget, pain_points, timeline."), mcp.Required()),
		mcp.WithString("framework", mcp.Description("Framework id, a comma separated list, or 'all'. Defaults to all.")),
		mcp.WithString("contact_id", mcp.Description("Contact id echoed in the result.")),
		mcp.WithString("tenant", mcp.Description("Tenant id. Defaults to the server's tenant.")),
	), h.handleScoreContact)

	// --- 4. Tool: set_dimension_weight ---
	s.AddTool(mcp.NewTool("set_dimension_weight",
		mcp.WithDescription("Set one dimension's weight; the other dimensions are rebalanced so the weights sum to 100."),
		mcp.WithString("framework", mcp.Description("Framework id."), mcp.Required(), mcp.Enum("APEX", "MDCP", "BANT", "SPICE")),
		mcp.WithString("dimension", mcp.Description("Dimension key, for example budget or pain."), mcp.Required()),
		mcp.WithNumber("weight", mcp.Description("New weight between 0 and 100."), mcp.Required()),
		mcp.WithBoolean("accept_clamped", mcp.Description("Save even if other dimensions had to be clamped.")),
		mcp.WithString("tenant", mcp.Description("Tenant id. Defaults to the server's tenant.")),
	), h.handleSetDimensionWeight)

	return s
}

// StartMCPServer starts the lead scoring MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s := NewMCPServer(baseCfg, mgr, nil)
	return server.ServeStdio(s)
}
