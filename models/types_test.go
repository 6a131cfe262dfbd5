// ABOUTME: Tests for network and opportunity data models
// ABOUTME: Validates status transitions, normalisation and connection bookkeeping
package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/apperr"
)

func TestParseStatusLegacyValues(t *testing.T) {
	tests := []struct {
		input    string
		expected Status
	}{
		{"new", StatusNew},
		{"Contacted", StatusContacted},
		{"meeting_booked", StatusMeetingBooked},
		{"closed", StatusWon},
		{"closed_lost", StatusLost},
		{" intro_requested ", StatusIntroRequested},
	}

	for _, tt := range tests {
		got, err := ParseStatus(tt.input)
		if err != nil {
			t.Fatalf("ParseStatus(%q) failed: %v", tt.input, err)
		}
		if got != tt.expected {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}

	if _, err := ParseStatus("archived"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for unknown status, got %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusSuggested, StatusNew, true},
		{StatusNew, StatusIntroRequested, true},
		{StatusContacted, StatusNew, false},
		{StatusNew, StatusWon, false},
		{StatusMeetingBooked, StatusWon, true},
		{StatusDemoScheduled, StatusWon, true},
		{StatusSuggested, StatusLost, true},
		{StatusWon, StatusLost, false},
		{StatusLost, StatusNew, false},
		{StatusNew, StatusSuggested, false},
		{StatusContacted, StatusContacted, true},
	}

	for _, tt := range tests {
		err := tt.from.CanTransitionTo(tt.to)
		if tt.ok && err != nil {
			t.Errorf("%s -> %s should be allowed, got %v", tt.from, tt.to, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%s -> %s should be rejected", tt.from, tt.to)
		}
	}
}

func TestStatusActiveAndTerminal(t *testing.T) {
	for _, s := range AllStatuses() {
		if s.IsTerminal() == s.IsActive() {
			t.Errorf("status %s must be exactly one of active/terminal", s)
		}
	}
	if Status("bogus").IsActive() {
		t.Error("unknown status must not be active")
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://www.Acme.com/about", "acme.com"},
		{"acme.com", "acme.com"},
		{"HTTP://acme.io:8080", "acme.io"},
		{"  www.example.co.uk. ", "example.co.uk"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeDomain(tt.input); got != tt.expected {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizeCompanyName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Acme Corp", "acme"},
		{"Acme, Inc.", "acme"},
		{"  Globex   Corporation ", "globex"},
		{"Initech", "initech"},
	}

	for _, tt := range tests {
		if got := NormalizeCompanyName(tt.input); got != tt.expected {
			t.Errorf("NormalizeCompanyName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSameCompany(t *testing.T) {
	acme := Company{Name: "Acme Corp", Domain: "acme.com"}

	if !SameCompany("ACME", "https://www.acme.com", acme) {
		t.Error("expected domain match")
	}
	if SameCompany("Acme Corp", "acme.io", acme) {
		t.Error("differing domains must not match even when names agree")
	}
	if !SameCompany("acme corp.", "", acme) {
		t.Error("expected name match when no domain is known")
	}
	if SameCompany("", "", acme) {
		t.Error("empty reference must not match")
	}
}

func TestRecordInteraction(t *testing.T) {
	conn := &Connection{UserID: uuid.New(), ContactID: uuid.New(), Strength: 95}
	first := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	earlier := first.AddDate(0, 0, -3)

	conn.RecordInteraction(InteractionMeeting, first)
	conn.RecordInteraction(InteractionEmail, earlier)

	if conn.InteractionCount != 2 {
		t.Errorf("expected 2 interactions, got %d", conn.InteractionCount)
	}
	if conn.Strength != 100 {
		t.Errorf("expected strength capped at 100, got %d", conn.Strength)
	}
	if !conn.LastInteractionAt.Equal(first) {
		t.Errorf("older interaction must not move recency back, got %v", conn.LastInteractionAt)
	}
	if conn.StrengthLabel() != StrengthStrong {
		t.Errorf("expected strong label, got %s", conn.StrengthLabel())
	}
}

func TestOpportunityKey(t *testing.T) {
	contactID := uuid.New()
	opp := Opportunity{UserID: uuid.New(), TargetID: uuid.New(), ContactID: &contactID}

	if opp.Key().ContactKey() != contactID.String() {
		t.Error("contact key should be the contact id")
	}

	opp.ContactID = nil
	if opp.Key().ContactKey() != "" {
		t.Error("outbound key should have empty contact key")
	}
}

func TestCompanySizeBucket(t *testing.T) {
	n := 200
	c := Company{Employees: &n}
	if c.SizeBucket() != "50-249" {
		t.Errorf("expected 50-249, got %s", c.SizeBucket())
	}
	if (Company{}).SizeBucket() != "unknown" {
		t.Error("expected unknown bucket for missing headcount")
	}
}
