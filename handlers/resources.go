// ABOUTME: MCP resource handlers for exposing network and pipeline data
// ABOUTME: Provides read-only JSON views of the ICP, companies, contacts, opportunities and runs
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/db"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const resourceScheme = "introengine://"

type ResourceHandlers struct {
	store  *db.Store
	userID uuid.UUID
}

func NewResourceHandlers(store *db.Store, userID uuid.UUID) *ResourceHandlers {
	return &ResourceHandlers{store: store, userID: userID}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", resourceScheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, resourceScheme), "/")
	var (
		data any
		err  error
	)
	switch parts[0] {
	case "icp":
		data, err = h.store.GetICP(ctx, h.userID)
	case "companies":
		data, err = h.store.GetCompanies(ctx, h.userID)
	case "contacts":
		if len(parts) == 1 {
			data, err = h.store.GetContacts(ctx, h.userID)
			break
		}
		var id uuid.UUID
		if id, err = uuid.Parse(parts[1]); err == nil {
			data, err = h.store.GetContact(ctx, h.userID, id)
		}
	case "opportunities":
		if len(parts) == 1 {
			data, err = h.store.ListOpportunities(ctx, h.userID, db.OpportunityFilter{ActiveOnly: true})
			break
		}
		var id uuid.UUID
		if id, err = uuid.Parse(parts[1]); err == nil {
			data, err = h.opportunityDetail(ctx, id)
		}
	case "runs":
		data, err = h.store.ListRuns(ctx, h.userID, 20)
	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", uri, err)
	}

	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		},
	}}, nil
}

// opportunityDetail bundles an opportunity with its drafted follow-ups.
func (h *ResourceHandlers) opportunityDetail(ctx context.Context, id uuid.UUID) (any, error) {
	opp, err := h.store.GetOpportunity(ctx, h.userID, id)
	if err != nil {
		return nil, err
	}
	drafts, err := h.store.ListFollowUpDrafts(ctx, h.userID, &id, 10)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"opportunity": opp,
		"follow_ups":  drafts,
	}, nil
}

// Resources lists the fixed resources for registration.
func Resources() []*mcp.Resource {
	return []*mcp.Resource{
		{URI: resourceScheme + "icp", Name: "icp", Description: "Ideal customer profile", MIMEType: "application/json"},
		{URI: resourceScheme + "companies", Name: "companies", Description: "Companies with ICP scores", MIMEType: "application/json"},
		{URI: resourceScheme + "contacts", Name: "contacts", Description: "Contacts with work history", MIMEType: "application/json"},
		{URI: resourceScheme + "opportunities", Name: "opportunities", Description: "Active opportunities, best first", MIMEType: "application/json"},
		{URI: resourceScheme + "runs", Name: "runs", Description: "Recent pipeline runs", MIMEType: "application/json"},
	}
}

// ResourceTemplates lists the per-entity resources.
func ResourceTemplates() []*mcp.ResourceTemplate {
	return []*mcp.ResourceTemplate{
		{URITemplate: resourceScheme + "contacts/{id}", Name: "contact", Description: "One contact", MIMEType: "application/json"},
		{URITemplate: resourceScheme + "opportunities/{id}", Name: "opportunity", Description: "One opportunity with its follow-up drafts", MIMEType: "application/json"},
	}
}
