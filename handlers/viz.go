// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides generate_graph tool for intro path and contact graphs
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/db"
	"github.com/harperreed/introengine/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type VizHandlers struct {
	store  *db.Store
	userID uuid.UUID
}

func NewVizHandlers(store *db.Store, userID uuid.UUID) *VizHandlers {
	return &VizHandlers{store: store, userID: userID}
}

type GenerateGraphInput struct {
	Type     string `json:"type" jsonschema:"Graph type: paths or contact"`
	EntityID string `json:"entity_id,omitempty" jsonschema:"Target company UUID for paths (optional), contact UUID for contact (required)"`
}

type GenerateGraphOutput struct {
	GraphType string `json:"graph_type"`
	DOTSource string `json:"dot_source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) GenerateGraph(ctx context.Context, request *mcp.CallToolRequest, input GenerateGraphInput) (*mcp.CallToolResult, GenerateGraphOutput, error) {
	if input.Type == "" {
		return nil, GenerateGraphOutput{}, fmt.Errorf("type is required")
	}

	generator := viz.NewGraphGenerator(h.store)
	var dot string
	var err error

	switch input.Type {
	case "paths":
		var targetID *uuid.UUID
		if input.EntityID != "" {
			id, perr := uuid.Parse(input.EntityID)
			if perr != nil {
				return nil, GenerateGraphOutput{}, fmt.Errorf("invalid entity_id: %w", perr)
			}
			targetID = &id
		}
		dot, err = generator.GeneratePathGraph(ctx, h.userID, targetID)

	case "contact":
		if input.EntityID == "" {
			return nil, GenerateGraphOutput{}, fmt.Errorf("entity_id required for contact graph")
		}
		contactID, perr := uuid.Parse(input.EntityID)
		if perr != nil {
			return nil, GenerateGraphOutput{}, fmt.Errorf("invalid entity_id: %w", perr)
		}
		dot, err = generator.GenerateContactGraph(ctx, h.userID, contactID)

	default:
		return nil, GenerateGraphOutput{}, fmt.Errorf("unknown graph type: %s (valid types: paths, contact)", input.Type)
	}

	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	return nil, GenerateGraphOutput{
		GraphType: input.Type,
		DOTSource: dot,
		NodeCount: strings.Count(dot, "shape="),
		EdgeCount: strings.Count(dot, "->"),
	}, nil
}
