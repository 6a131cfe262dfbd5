// ABOUTME: MCP prompt handlers for reusable prospecting workflow templates
// ABOUTME: Provides intro-request, target-briefing and pipeline-review prompts
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/db"
	"github.com/harperreed/introengine/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	store  *db.Store
	userID uuid.UUID
}

func NewPromptHandlers(store *db.Store, userID uuid.UUID) *PromptHandlers {
	return &PromptHandlers{store: store, userID: userID}
}

// Prompts lists the prompt definitions for registration.
func Prompts() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        "intro-request",
			Description: "Draft a message asking a contact for a warm introduction",
			Arguments:   []*mcp.PromptArgument{{Name: "opportunity_id", Description: "Opportunity UUID", Required: true}},
		},
		{
			Name:        "target-briefing",
			Description: "Brief on a target company and every path into it",
			Arguments:   []*mcp.PromptArgument{{Name: "company_id", Description: "Company UUID", Required: true}},
		},
		{
			Name:        "pipeline-review",
			Description: "Review the opportunity pipeline and suggest next actions",
		},
	}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := request.Params.Arguments
	switch request.Params.Name {
	case "intro-request":
		return h.introRequestPrompt(ctx, args)
	case "target-briefing":
		return h.targetBriefingPrompt(ctx, args)
	case "pipeline-review":
		return h.pipelineReviewPrompt(ctx)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func userMessage(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}
}

func parseArg(args map[string]string, name string) (uuid.UUID, error) {
	raw, ok := args[name]
	if !ok {
		return uuid.Nil, fmt.Errorf("%s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return id, nil
}

func (h *PromptHandlers) introRequestPrompt(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	id, err := parseArg(args, "opportunity_id")
	if err != nil {
		return nil, err
	}
	opp, err := h.store.GetOpportunity(ctx, h.userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch opportunity: %w", err)
	}
	if opp.ContactID == nil {
		return nil, fmt.Errorf("%s is an outbound target with no contact to ask", opp.TargetName)
	}
	contact, err := h.store.GetContact(ctx, h.userID, *opp.ContactID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contact: %w", err)
	}

	var text strings.Builder
	text.WriteString("Please draft a short, friendly message asking for an introduction.\n\n")
	text.WriteString(fmt.Sprintf("Ask: %s", contact.Name))
	if contact.Title != "" {
		text.WriteString(fmt.Sprintf(" (%s)", contact.Title))
	}
	text.WriteString("\n")
	text.WriteString(fmt.Sprintf("Introduction to: %s\n", opp.TargetName))
	text.WriteString(fmt.Sprintf("Why they can help: %s\n", opp.Rationale))
	if icpDef, err := h.store.GetICP(ctx, h.userID); err == nil {
		if len(icpDef.TargetRoles) > 0 {
			text.WriteString(fmt.Sprintf("Who we want to meet: %s\n", strings.Join(icpDef.TargetRoles, ", ")))
		}
		if icpDef.PainPoints != "" {
			text.WriteString(fmt.Sprintf("What we help with: %s\n", icpDef.PainPoints))
		}
	}
	text.WriteString("\nKeep it under 120 words and make it easy to forward.")

	return userMessage(fmt.Sprintf("Intro request via %s to %s", contact.Name, opp.TargetName), text.String()), nil
}

func (h *PromptHandlers) targetBriefingPrompt(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	id, err := parseArg(args, "company_id")
	if err != nil {
		return nil, err
	}
	company, err := h.store.GetCompany(ctx, h.userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company: %w", err)
	}
	opps, err := h.store.ListOpportunities(ctx, h.userID, db.OpportunityFilter{TargetID: id, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch opportunities: %w", err)
	}

	var text strings.Builder
	text.WriteString("Please brief me on this target account:\n\n")
	text.WriteString(fmt.Sprintf("Company: %s\n", company.Name))
	if company.Industry != "" {
		text.WriteString(fmt.Sprintf("Industry: %s\n", company.Industry))
	}
	text.WriteString(fmt.Sprintf("Size: %s employees\n", company.SizeBucket()))
	text.WriteString(fmt.Sprintf("ICP fit: %d/100\n", company.ICPScore))
	for _, s := range company.Signals {
		text.WriteString(fmt.Sprintf("Signal: %s (%d)\n", s.Kind, s.Strength))
	}
	if len(opps) > 0 {
		text.WriteString("\nPaths in:\n")
		for _, o := range opps {
			text.WriteString(fmt.Sprintf("  - %s, score %d, %s: %s\n", o.Type, o.Scores.Total, o.Status, o.Rationale))
		}
	}
	text.WriteString("\nPlease provide:")
	text.WriteString("\n1. Why this account fits now")
	text.WriteString("\n2. The best path in and what to say")
	text.WriteString("\n3. Risks or reasons it might not fit")

	return userMessage(fmt.Sprintf("Briefing for %s", company.Name), text.String()), nil
}

func (h *PromptHandlers) pipelineReviewPrompt(ctx context.Context) (*mcp.GetPromptResult, error) {
	opps, err := h.store.ListOpportunities(ctx, h.userID, db.OpportunityFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch opportunities: %w", err)
	}

	byStatus := make(map[models.Status]int)
	for _, o := range opps {
		byStatus[o.Status]++
	}

	var text strings.Builder
	text.WriteString("Please review my prospecting pipeline:\n\n")
	text.WriteString(fmt.Sprintf("Total opportunities: %d\n", len(opps)))
	for _, st := range models.AllStatuses() {
		if n := byStatus[st]; n > 0 {
			text.WriteString(fmt.Sprintf("  - %s: %d\n", st, n))
		}
	}
	shown := 0
	for _, o := range opps {
		if !o.Status.IsActive() || shown == 10 {
			continue
		}
		if shown == 0 {
			text.WriteString("\nTop active:\n")
		}
		text.WriteString(fmt.Sprintf("  - %s (%s, %d): %s\n", o.TargetName, o.Type, o.Scores.Total, o.Status))
		shown++
	}
	text.WriteString("\nPlease provide:")
	text.WriteString("\n1. Which opportunities to work this week")
	text.WriteString("\n2. Anything stuck that needs a nudge or should be closed")

	return userMessage("Pipeline review", text.String()), nil
}
