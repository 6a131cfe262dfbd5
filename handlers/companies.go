// ABOUTME: Company and ICP MCP tool handlers
// ABOUTME: Implements add_company, set_icp and get_icp tools
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/db"
	"github.com/harperreed/introengine/icp"
	"github.com/harperreed/introengine/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type CompanyHandlers struct {
	store  *db.Store
	userID uuid.UUID
}

func NewCompanyHandlers(store *db.Store, userID uuid.UUID) *CompanyHandlers {
	return &CompanyHandlers{store: store, userID: userID}
}

type SignalInput struct {
	Kind     string `json:"kind" jsonschema:"funding, hiring, leadership_change, expansion or tech_adoption"`
	Strength int    `json:"strength" jsonschema:"Signal strength 0-100"`
}

type AddCompanyInput struct {
	Name            string        `json:"name" jsonschema:"Company name (required)"`
	Domain          string        `json:"domain,omitempty" jsonschema:"Company website domain"`
	Industry        string        `json:"industry,omitempty" jsonschema:"Industry"`
	Employees       *int          `json:"employees,omitempty" jsonschema:"Headcount"`
	Technologies    []string      `json:"technologies,omitempty" jsonschema:"Technologies in use"`
	Location        string        `json:"location,omitempty" jsonschema:"Headquarters location"`
	DigitalMaturity string        `json:"digital_maturity,omitempty" jsonschema:"low, medium or high"`
	Signals         []SignalInput `json:"signals,omitempty" jsonschema:"Buying signals"`
}

type CompanyOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Domain    string `json:"domain,omitempty"`
	Industry  string `json:"industry,omitempty"`
	Employees *int   `json:"employees,omitempty"`
	ICPScore  int    `json:"icp_score"`
	Created   bool   `json:"created"`
}

func (h *CompanyHandlers) AddCompany(ctx context.Context, request *mcp.CallToolRequest, input AddCompanyInput) (*mcp.CallToolResult, CompanyOutput, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, CompanyOutput{}, fmt.Errorf("name is required")
	}
	if input.Employees != nil && *input.Employees < 0 {
		return nil, CompanyOutput{}, fmt.Errorf("employees must not be negative")
	}

	company := &models.Company{
		UserID:          h.userID,
		Name:            input.Name,
		Domain:          input.Domain,
		Industry:        input.Industry,
		Employees:       input.Employees,
		Technologies:    input.Technologies,
		Location:        input.Location,
		DigitalMaturity: input.DigitalMaturity,
	}
	for _, s := range input.Signals {
		company.Signals = append(company.Signals, models.Signal{
			Kind:     strings.ToLower(strings.TrimSpace(s.Kind)),
			Strength: models.ClampScore(s.Strength),
		})
	}

	created, err := h.store.UpsertCompany(ctx, company)
	if err != nil {
		return nil, CompanyOutput{}, fmt.Errorf("failed to save company: %w", err)
	}
	saved, err := h.store.GetCompany(ctx, h.userID, company.ID)
	if err != nil {
		return nil, CompanyOutput{}, fmt.Errorf("failed to reload company: %w", err)
	}

	return nil, CompanyOutput{
		ID:        saved.ID.String(),
		Name:      saved.Name,
		Domain:    saved.Domain,
		Industry:  saved.Industry,
		Employees: saved.Employees,
		ICPScore:  saved.ICPScore,
		Created:   created,
	}, nil
}

type ICPInput struct {
	Industries      []string `json:"industries,omitempty" jsonschema:"Target industries"`
	MinEmployees    *int     `json:"min_employees,omitempty" jsonschema:"Smallest headcount that fits"`
	MaxEmployees    *int     `json:"max_employees,omitempty" jsonschema:"Largest headcount that fits"`
	Technologies    []string `json:"technologies,omitempty" jsonschema:"Technologies a good fit uses"`
	DigitalMaturity string   `json:"digital_maturity,omitempty" jsonschema:"Expected digital maturity: low, medium or high"`
	Locations       []string `json:"locations,omitempty" jsonschema:"Target locations"`
	TargetRoles     []string `json:"target_roles,omitempty" jsonschema:"Buyer roles to reach"`
	PainPoints      string   `json:"pain_points,omitempty" jsonschema:"Problems the product solves"`
	Triggers        string   `json:"triggers,omitempty" jsonschema:"Events that signal readiness to buy"`
	AntiCriteria    string   `json:"anti_criteria,omitempty" jsonschema:"Who is a bad fit"`
}

type ICPOutput struct {
	Profile   ICPInput `json:"profile"`
	UpdatedAt string   `json:"updated_at"`
}

// SetICP replaces the ideal customer profile. Scores refresh on the next inference run.
func (h *CompanyHandlers) SetICP(ctx context.Context, request *mcp.CallToolRequest, input ICPInput) (*mcp.CallToolResult, ICPOutput, error) {
	def := &models.ICPDefinition{
		UserID:          h.userID,
		Industries:      input.Industries,
		MinEmployees:    input.MinEmployees,
		MaxEmployees:    input.MaxEmployees,
		Technologies:    input.Technologies,
		DigitalMaturity: input.DigitalMaturity,
		Locations:       input.Locations,
		TargetRoles:     input.TargetRoles,
		PainPoints:      input.PainPoints,
		Triggers:        input.Triggers,
		AntiCriteria:    input.AntiCriteria,
	}
	if err := icp.ValidateICP(def); err != nil {
		return nil, ICPOutput{}, err
	}
	if err := h.store.SaveICP(ctx, def); err != nil {
		return nil, ICPOutput{}, fmt.Errorf("failed to save ICP: %w", err)
	}
	return nil, icpToOutput(def), nil
}

type GetICPInput struct{}

func (h *CompanyHandlers) GetICP(ctx context.Context, request *mcp.CallToolRequest, input GetICPInput) (*mcp.CallToolResult, ICPOutput, error) {
	def, err := h.store.GetICP(ctx, h.userID)
	if err != nil {
		return nil, ICPOutput{}, fmt.Errorf("failed to load ICP: %w", err)
	}
	return nil, icpToOutput(def), nil
}

func icpToOutput(def *models.ICPDefinition) ICPOutput {
	return ICPOutput{
		Profile: ICPInput{
			Industries:      def.Industries,
			MinEmployees:    def.MinEmployees,
			MaxEmployees:    def.MaxEmployees,
			Technologies:    def.Technologies,
			DigitalMaturity: def.DigitalMaturity,
			Locations:       def.Locations,
			TargetRoles:     def.TargetRoles,
			PainPoints:      def.PainPoints,
			Triggers:        def.Triggers,
			AntiCriteria:    def.AntiCriteria,
		},
		UpdatedAt: def.UpdatedAt.Format(time.RFC3339),
	}
}
