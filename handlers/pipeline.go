// ABOUTME: Pipeline MCP tool handler
// ABOUTME: Implements run_pipeline, triggering one stage or a full run for the account
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/models"
	"github.com/harperreed/introengine/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PipelineHandlers struct {
	runner *pipeline.Runner
	userID uuid.UUID
}

func NewPipelineHandlers(runner *pipeline.Runner, userID uuid.UUID) *PipelineHandlers {
	return &PipelineHandlers{runner: runner, userID: userID}
}

type RunPipelineInput struct {
	Stage string `json:"stage,omitempty" jsonschema:"inference, outbound, scoring, followup or full (default full)"`
}

type RunPipelineOutput struct {
	Stage   string `json:"stage"`
	Summary string `json:"summary"`
}

func (h *PipelineHandlers) RunPipeline(ctx context.Context, request *mcp.CallToolRequest, input RunPipelineInput) (*mcp.CallToolResult, RunPipelineOutput, error) {
	stage := strings.ToLower(strings.TrimSpace(input.Stage))
	if stage == "" {
		stage = models.StageFull
	}
	summary, err := RunStage(ctx, h.runner, h.userID, stage)
	if err != nil {
		return nil, RunPipelineOutput{}, err
	}
	return nil, RunPipelineOutput{Stage: stage, Summary: summary}, nil
}

// RunStage dispatches a stage name to the runner and returns its summary line.
func RunStage(ctx context.Context, runner *pipeline.Runner, userID uuid.UUID, stage string) (string, error) {
	var (
		summary fmt.Stringer
		err     error
	)
	switch stage {
	case models.StageInference:
		summary, err = runner.RunInference(ctx, userID)
	case models.StageOutbound:
		summary, err = runner.RunOutbound(ctx, userID)
	case models.StageScoring:
		summary, err = runner.RunScoring(ctx, userID)
	case models.StageFollowUp:
		summary, err = runner.RunFollowUps(ctx, userID)
	case models.StageFull:
		summary, err = runner.RunAccount(ctx, userID)
	default:
		return "", fmt.Errorf("unknown stage %q (valid: inference, outbound, scoring, followup, full)", stage)
	}
	if err != nil {
		return "", fmt.Errorf("%s run failed: %w", stage, err)
	}
	return summary.String(), nil
}
