// ABOUTME: Opportunity MCP tool handlers
// ABOUTME: Implements list_opportunities, update_opportunity_status, request_intro and draft_follow_up
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/db"
	"github.com/harperreed/introengine/followup"
	"github.com/harperreed/introengine/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type OpportunityHandlers struct {
	store   *db.Store
	advisor *followup.Advisor
	userID  uuid.UUID
	now     func() time.Time
}

func NewOpportunityHandlers(store *db.Store, advisor *followup.Advisor, userID uuid.UUID) *OpportunityHandlers {
	return &OpportunityHandlers{store: store, advisor: advisor, userID: userID, now: time.Now}
}

type OpportunityOutput struct {
	ID            string  `json:"id"`
	TargetID      string  `json:"target_id"`
	Target        string  `json:"target"`
	ContactID     *string `json:"contact_id,omitempty"`
	Contact       string  `json:"contact,omitempty"`
	Type          string  `json:"type"`
	Status        string  `json:"status"`
	ScoreTotal    int     `json:"score_total"`
	IndustryFit   int     `json:"industry_fit"`
	BuyingSignal  int     `json:"buying_signal"`
	IntroStrength int     `json:"intro_strength"`
	LeadPotential int     `json:"lead_potential"`
	Rationale     string  `json:"rationale,omitempty"`
	UpdatedAt     string  `json:"updated_at"`
}

func opportunityToOutput(o *models.Opportunity) OpportunityOutput {
	out := OpportunityOutput{
		ID:            o.ID.String(),
		TargetID:      o.TargetID.String(),
		Target:        o.TargetName,
		Contact:       o.ContactName,
		Type:          string(o.Type),
		Status:        string(o.Status),
		ScoreTotal:    o.Scores.Total,
		IndustryFit:   o.Scores.IndustryFit,
		BuyingSignal:  o.Scores.BuyingSignal,
		IntroStrength: o.Scores.IntroStrength,
		LeadPotential: o.Scores.LeadPotential,
		Rationale:     o.Rationale,
		UpdatedAt:     o.UpdatedAt.Format(time.RFC3339),
	}
	if o.ContactID != nil {
		id := o.ContactID.String()
		out.ContactID = &id
	}
	return out
}

type ListOpportunitiesInput struct {
	Status        string `json:"status,omitempty" jsonschema:"Filter by status"`
	Type          string `json:"type,omitempty" jsonschema:"Filter by type: direct, second_level, inferred or outbound"`
	MinScore      int    `json:"min_score,omitempty" jsonschema:"Only opportunities scoring at least this total"`
	IncludeClosed bool   `json:"include_closed,omitempty" jsonschema:"Include won and lost opportunities"`
	Limit         int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 20)"`
}

type ListOpportunitiesOutput struct {
	Opportunities []OpportunityOutput `json:"opportunities"`
}

// ListOpportunities returns opportunities best score first.
func (h *OpportunityHandlers) ListOpportunities(ctx context.Context, request *mcp.CallToolRequest, input ListOpportunitiesInput) (*mcp.CallToolResult, ListOpportunitiesOutput, error) {
	filter := db.OpportunityFilter{
		ActiveOnly: !input.IncludeClosed,
		MinScore:   input.MinScore,
		Limit:      input.Limit,
	}
	if filter.Limit == 0 {
		filter.Limit = 20
	}
	if input.Status != "" {
		st, err := models.ParseStatus(input.Status)
		if err != nil {
			return nil, ListOpportunitiesOutput{}, err
		}
		filter.Status = st
		if st.IsTerminal() {
			filter.ActiveOnly = false
		}
	}
	if input.Type != "" {
		typ := models.OpportunityType(input.Type)
		if !typ.Valid() {
			return nil, ListOpportunitiesOutput{}, fmt.Errorf("unknown type %q (valid: direct, second_level, inferred, outbound)", input.Type)
		}
		filter.Type = typ
	}

	opps, err := h.store.ListOpportunities(ctx, h.userID, filter)
	if err != nil {
		return nil, ListOpportunitiesOutput{}, fmt.Errorf("failed to list opportunities: %w", err)
	}

	result := make([]OpportunityOutput, len(opps))
	for i := range opps {
		result[i] = opportunityToOutput(&opps[i])
	}
	return nil, ListOpportunitiesOutput{Opportunities: result}, nil
}

type UpdateOpportunityStatusInput struct {
	OpportunityID string `json:"opportunity_id" jsonschema:"Opportunity UUID (required)"`
	Status        string `json:"status" jsonschema:"New status: new, contacted, intro_requested, meeting_booked, demo_scheduled, won or lost"`
}

func (h *OpportunityHandlers) UpdateOpportunityStatus(ctx context.Context, request *mcp.CallToolRequest, input UpdateOpportunityStatusInput) (*mcp.CallToolResult, OpportunityOutput, error) {
	id, err := uuid.Parse(input.OpportunityID)
	if err != nil {
		return nil, OpportunityOutput{}, fmt.Errorf("invalid opportunity_id: %w", err)
	}
	next, err := models.ParseStatus(input.Status)
	if err != nil {
		return nil, OpportunityOutput{}, err
	}
	opp, err := h.store.UpdateOpportunityStatus(ctx, h.userID, id, next)
	if err != nil {
		return nil, OpportunityOutput{}, fmt.Errorf("failed to update status: %w", err)
	}
	return nil, opportunityToOutput(opp), nil
}

type RequestIntroInput struct {
	OpportunityID string `json:"opportunity_id" jsonschema:"Opportunity UUID of a warm path (required)"`
}

// RequestIntro marks that the user asked the connecting contact for an introduction.
func (h *OpportunityHandlers) RequestIntro(ctx context.Context, request *mcp.CallToolRequest, input RequestIntroInput) (*mcp.CallToolResult, OpportunityOutput, error) {
	id, err := uuid.Parse(input.OpportunityID)
	if err != nil {
		return nil, OpportunityOutput{}, fmt.Errorf("invalid opportunity_id: %w", err)
	}
	opp, err := h.store.GetOpportunity(ctx, h.userID, id)
	if err != nil {
		return nil, OpportunityOutput{}, err
	}
	if !opp.Type.IsIntro() {
		return nil, OpportunityOutput{}, apperr.Validation("request_intro", "%s is an outbound target; there is no contact to ask for an intro", opp.TargetName)
	}
	opp, err = h.store.UpdateOpportunityStatus(ctx, h.userID, id, models.StatusIntroRequested)
	if err != nil {
		return nil, OpportunityOutput{}, fmt.Errorf("failed to request intro: %w", err)
	}
	return nil, opportunityToOutput(opp), nil
}

type DraftFollowUpInput struct {
	OpportunityID string `json:"opportunity_id" jsonschema:"Opportunity UUID (required)"`
}

type DraftFollowUpOutput struct {
	OpportunityID string `json:"opportunity_id"`
	Subject       string `json:"subject,omitempty"`
	Body          string `json:"body,omitempty"`
	DaysWaiting   int    `json:"days_waiting"`
	Empty         bool   `json:"empty"`
}

// DraftFollowUp asks the completion service for a nudge. An empty draft is a
// normal outcome when the service is unavailable. Closed opportunities are
// rejected.
func (h *OpportunityHandlers) DraftFollowUp(ctx context.Context, request *mcp.CallToolRequest, input DraftFollowUpInput) (*mcp.CallToolResult, DraftFollowUpOutput, error) {
	id, err := uuid.Parse(input.OpportunityID)
	if err != nil {
		return nil, DraftFollowUpOutput{}, fmt.Errorf("invalid opportunity_id: %w", err)
	}
	opp, err := h.store.GetOpportunity(ctx, h.userID, id)
	if err != nil {
		return nil, DraftFollowUpOutput{}, err
	}
	if opp.Status.IsTerminal() {
		return nil, DraftFollowUpOutput{}, apperr.Validation("draft_follow_up", "opportunity for %s is closed (%s); nothing to follow up", opp.TargetName, opp.Status)
	}

	days := int(h.now().Sub(opp.StatusChangedAt).Hours() / 24)
	draft := h.advisor.GenerateFollowUps(ctx, *opp, days)
	out := DraftFollowUpOutput{OpportunityID: opp.ID.String(), DaysWaiting: days, Empty: draft.IsEmpty()}
	if draft.IsEmpty() {
		return nil, out, nil
	}
	if err := h.store.SaveFollowUpDraft(ctx, &draft); err != nil {
		return nil, DraftFollowUpOutput{}, fmt.Errorf("failed to save draft: %w", err)
	}
	out.Subject = draft.Subject
	out.Body = draft.Body
	return nil, out, nil
}
