// ABOUTME: Contact MCP tool handlers
// ABOUTME: Implements add_contact and record_interaction tools
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/db"
	"github.com/harperreed/introengine/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ContactHandlers struct {
	store  *db.Store
	userID uuid.UUID
}

func NewContactHandlers(store *db.Store, userID uuid.UUID) *ContactHandlers {
	return &ContactHandlers{store: store, userID: userID}
}

type EmploymentInput struct {
	Company   string `json:"company" jsonschema:"Past employer name"`
	Domain    string `json:"domain,omitempty" jsonschema:"Past employer domain"`
	Title     string `json:"title,omitempty" jsonschema:"Title held there"`
	StartYear *int   `json:"start_year,omitempty" jsonschema:"Year they joined"`
	EndYear   *int   `json:"end_year,omitempty" jsonschema:"Year they left"`
}

type AddContactInput struct {
	Name          string            `json:"name" jsonschema:"Contact name (required)"`
	Email         string            `json:"email,omitempty" jsonschema:"Contact email address"`
	LinkedIn      string            `json:"linkedin,omitempty" jsonschema:"LinkedIn profile URL"`
	Company       string            `json:"company,omitempty" jsonschema:"Current employer name"`
	CompanyDomain string            `json:"company_domain,omitempty" jsonschema:"Current employer domain, used to match target companies"`
	Title         string            `json:"title,omitempty" jsonschema:"Current job title"`
	History       []EmploymentInput `json:"history,omitempty" jsonschema:"Previous employers"`
	Strength      *int              `json:"strength,omitempty" jsonschema:"How well you know them, 0-100 (default 50)"`
}

type ContactOutput struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Company  string `json:"company,omitempty"`
	Title    string `json:"title,omitempty"`
	Strength int    `json:"strength"`
	Created  bool   `json:"created"`
}

// AddContact creates a contact or merges into the one with the same email.
func (h *ContactHandlers) AddContact(ctx context.Context, request *mcp.CallToolRequest, input AddContactInput) (*mcp.CallToolResult, ContactOutput, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ContactOutput{}, fmt.Errorf("name is required")
	}

	contact := &models.Contact{
		UserID:               h.userID,
		Name:                 input.Name,
		Email:                input.Email,
		LinkedIn:             input.LinkedIn,
		CurrentCompany:       input.Company,
		CurrentCompanyDomain: input.CompanyDomain,
		Title:                input.Title,
	}
	for _, e := range input.History {
		contact.History = append(contact.History, models.Employment{
			Company:   e.Company,
			Domain:    e.Domain,
			Title:     e.Title,
			StartYear: e.StartYear,
			EndYear:   e.EndYear,
		})
	}

	created, err := h.store.UpsertContact(ctx, contact)
	if err != nil {
		return nil, ContactOutput{}, fmt.Errorf("failed to save contact: %w", err)
	}

	strength := models.DefaultStrength
	conns, err := h.store.GetConnections(ctx, h.userID)
	if err != nil {
		return nil, ContactOutput{}, fmt.Errorf("failed to load connection: %w", err)
	}
	if c, ok := conns[contact.ID]; ok {
		strength = c.Strength
	}
	if input.Strength != nil {
		conn := conns[contact.ID]
		conn.UserID = h.userID
		conn.ContactID = contact.ID
		conn.Strength = *input.Strength
		if err := h.store.UpsertConnection(ctx, &conn); err != nil {
			return nil, ContactOutput{}, fmt.Errorf("failed to save connection: %w", err)
		}
		strength = conn.Strength
	}

	return nil, ContactOutput{
		ID:       contact.ID.String(),
		Name:     contact.Name,
		Email:    contact.Email,
		Company:  contact.CurrentCompany,
		Title:    contact.Title,
		Strength: strength,
		Created:  created,
	}, nil
}

type RecordInteractionInput struct {
	ContactID string `json:"contact_id" jsonschema:"Contact UUID (required)"`
	Type      string `json:"type" jsonschema:"Interaction type: meeting, call, email, message or event"`
	Notes     string `json:"notes,omitempty" jsonschema:"What happened"`
	Timestamp string `json:"timestamp,omitempty" jsonschema:"When it happened, RFC3339 (default now)"`
}

type ConnectionOutput struct {
	ContactID         string  `json:"contact_id"`
	Strength          int     `json:"strength"`
	InteractionCount  int     `json:"interaction_count"`
	LastInteractionAt *string `json:"last_interaction_at,omitempty"`
}

func (h *ContactHandlers) RecordInteraction(ctx context.Context, request *mcp.CallToolRequest, input RecordInteractionInput) (*mcp.CallToolResult, ConnectionOutput, error) {
	contactID, err := uuid.Parse(input.ContactID)
	if err != nil {
		return nil, ConnectionOutput{}, fmt.Errorf("invalid contact_id: %w", err)
	}

	entry := &models.InteractionLog{
		UserID:          h.userID,
		ContactID:       contactID,
		InteractionType: strings.ToLower(strings.TrimSpace(input.Type)),
		Notes:           input.Notes,
	}
	if input.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, input.Timestamp)
		if err != nil {
			return nil, ConnectionOutput{}, fmt.Errorf("invalid timestamp: %w", err)
		}
		entry.Timestamp = ts
	}

	conn, err := h.store.LogInteraction(ctx, entry)
	if err != nil {
		return nil, ConnectionOutput{}, fmt.Errorf("failed to record interaction: %w", err)
	}

	out := ConnectionOutput{
		ContactID:        conn.ContactID.String(),
		Strength:         conn.Strength,
		InteractionCount: conn.InteractionCount,
	}
	if conn.LastInteractionAt != nil {
		ts := conn.LastInteractionAt.Format(time.RFC3339)
		out.LastInteractionAt = &ts
	}
	return nil, out, nil
}
