// ABOUTME: Data models for network and opportunity entities
// ABOUTME: Defines Contact, Connection, Company, ICP, Opportunity and run records
package models

import (
	"time"

	"github.com/google/uuid"
)

type Employment struct {
	Company   string `json:"company"`
	Domain    string `json:"domain,omitempty"`
	Title     string `json:"title,omitempty"`
	StartYear *int   `json:"start_year,omitempty"`
	EndYear   *int   `json:"end_year,omitempty"`
}

type Contact struct {
	ID                   uuid.UUID    `json:"id"`
	UserID               uuid.UUID    `json:"user_id"`
	Name                 string       `json:"name"`
	Email                string       `json:"email,omitempty"`
	LinkedIn             string       `json:"linkedin,omitempty"`
	CurrentCompany       string       `json:"current_company,omitempty"`
	CurrentCompanyDomain string       `json:"current_company_domain,omitempty"`
	Title                string       `json:"title,omitempty"`
	History              []Employment `json:"history,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
	DeletedAt            *time.Time   `json:"deleted_at,omitempty"`
}

// Connection is the user's aggregated edge to one contact.
type Connection struct {
	UserID            uuid.UUID  `json:"user_id"`
	ContactID         uuid.UUID  `json:"contact_id"`
	Strength          int        `json:"strength"` // 0..100
	InteractionCount  int        `json:"interaction_count"`
	LastInteractionAt *time.Time `json:"last_interaction_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Signal kinds used as buying-signal enrichment.
const (
	SignalFunding          = "funding"
	SignalHiring           = "hiring"
	SignalLeadershipChange = "leadership_change"
	SignalExpansion        = "expansion"
	SignalTechAdoption     = "tech_adoption"
)

type Signal struct {
	Kind     string `json:"kind"`
	Strength int    `json:"strength"` // 0..100
}

// Digital maturity buckets, ordered low to high.
const (
	MaturityLow    = "low"
	MaturityMedium = "medium"
	MaturityHigh   = "high"
)

type Company struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	Name            string    `json:"name"`
	Domain          string    `json:"domain,omitempty"`
	Industry        string    `json:"industry,omitempty"`
	Employees       *int      `json:"employees,omitempty"`
	Technologies    []string  `json:"technologies,omitempty"`
	Location        string    `json:"location,omitempty"`
	DigitalMaturity string    `json:"digital_maturity,omitempty"`
	ICPScore        int       `json:"icp_score"`
	Signals         []Signal  `json:"signals,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SizeBucket labels the company headcount.
func (c Company) SizeBucket() string {
	if c.Employees == nil {
		return "unknown"
	}
	switch n := *c.Employees; {
	case n >= 1000:
		return "1000+"
	case n >= 250:
		return "250-999"
	case n >= 50:
		return "50-249"
	case n >= 10:
		return "10-49"
	default:
		return "1-9"
	}
}

// ICPDefinition is the single ideal customer profile of a user.
type ICPDefinition struct {
	UserID          uuid.UUID `json:"user_id"`
	Industries      []string  `json:"industries,omitempty"`
	MinEmployees    *int      `json:"min_employees,omitempty"`
	MaxEmployees    *int      `json:"max_employees,omitempty"`
	Technologies    []string  `json:"technologies,omitempty"`
	DigitalMaturity string    `json:"digital_maturity,omitempty"`
	Locations       []string  `json:"locations,omitempty"`
	TargetRoles     []string  `json:"target_roles,omitempty"`
	PainPoints      string    `json:"pain_points,omitempty"`
	Triggers        string    `json:"triggers,omitempty"`
	AntiCriteria    string    `json:"anti_criteria,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type OpportunityType string

const (
	TypeDirect      OpportunityType = "direct"
	TypeSecondLevel OpportunityType = "second_level"
	TypeInferred    OpportunityType = "inferred"
	TypeOutbound    OpportunityType = "outbound"
)

// IsIntro reports whether the type represents a warm path through a contact.
func (t OpportunityType) IsIntro() bool {
	return t == TypeDirect || t == TypeSecondLevel || t == TypeInferred
}

func (t OpportunityType) Valid() bool {
	return t.IsIntro() || t == TypeOutbound
}

type Scores struct {
	IndustryFit   int `json:"industry_fit"`
	BuyingSignal  int `json:"buying_signal"`
	IntroStrength int `json:"intro_strength"`
	LeadPotential int `json:"lead_potential"`
	Total         int `json:"score_total"`
}

type Opportunity struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	TargetID        uuid.UUID       `json:"target_id"`
	ContactID       *uuid.UUID      `json:"contact_id,omitempty"`
	Type            OpportunityType `json:"type"`
	Status          Status          `json:"status"`
	Scores          Scores          `json:"scores"`
	Rationale       string          `json:"rationale,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	StatusChangedAt time.Time       `json:"status_changed_at"`

	// Display names joined in by listing queries.
	TargetName  string `json:"target_name,omitempty"`
	ContactName string `json:"contact_name,omitempty"`
}

// Key returns the natural key the store upserts on.
func (o Opportunity) Key() OpportunityKey {
	return OpportunityKey{UserID: o.UserID, TargetID: o.TargetID, ContactID: o.ContactID}
}

// OpportunityKey is the (user, target, contact-or-none) natural key.
type OpportunityKey struct {
	UserID    uuid.UUID
	TargetID  uuid.UUID
	ContactID *uuid.UUID
}

// ContactKey is the contact id string, or "" for outbound keys.
func (k OpportunityKey) ContactKey() string {
	if k.ContactID == nil {
		return ""
	}
	return k.ContactID.String()
}

func (k OpportunityKey) String() string {
	return k.UserID.String() + "/" + k.TargetID.String() + "/" + k.ContactKey()
}

// AccountSettings holds per-user pipeline switches.
type AccountSettings struct {
	UserID        uuid.UUID `json:"user_id"`
	Name          string    `json:"name,omitempty"`
	AllowInferred bool      `json:"allow_inferred"`
	OutboundQuota int       `json:"outbound_quota"` // 0 means use the configured default
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// InteractionType constants.
const (
	InteractionMeeting = "meeting"
	InteractionCall    = "call"
	InteractionEmail   = "email"
	InteractionMessage = "message"
	InteractionEvent   = "event"
)

type InteractionLog struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	ContactID       uuid.UUID `json:"contact_id"`
	InteractionType string    `json:"interaction_type"`
	Timestamp       time.Time `json:"timestamp"`
	Notes           string    `json:"notes,omitempty"`
}

type FollowUpDraft struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	OpportunityID uuid.UUID `json:"opportunity_id"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	DaysWaiting   int       `json:"days_waiting"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsEmpty reports whether no follow-up was produced.
func (d FollowUpDraft) IsEmpty() bool {
	return d.Subject == "" && d.Body == ""
}

// Pipeline stages.
const (
	StageInference = "inference"
	StageOutbound  = "outbound"
	StageScoring   = "scoring"
	StageFollowUp  = "followup"
	StageFull      = "full"
)

// Run status constants.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusRejected  = "rejected"
)

type PipelineRun struct {
	ID         string     `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Stage      string     `json:"stage"`
	Status     string     `json:"status"`
	Summary    string     `json:"summary,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
