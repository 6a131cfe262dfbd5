// ABOUTME: Tests for contact matching during import
// ABOUTME: Covers email, name and company lookups
package sync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/models"
	"github.com/stretchr/testify/assert"
)

func TestMatchContactByEmail(t *testing.T) {
	existing := []models.Contact{
		{ID: uuid.New(), Name: "Alice", Email: "alice@example.com"},
		{ID: uuid.New(), Name: "Bob", Email: "bob@example.com"},
	}
	matcher := NewContactMatcher(existing)

	match, found := matcher.FindMatch("Alice@Example.com ", "", "")
	assert.True(t, found)
	assert.Equal(t, existing[0].ID, match.ID)

	_, found = matcher.FindMatch("charlie@example.com", "Alice", "")
	assert.False(t, found, "an email miss does not fall back to name")
}

func TestMatchContactByNameAndCompany(t *testing.T) {
	existing := []models.Contact{
		{ID: uuid.New(), Name: "Dana  Scully", CurrentCompany: "FBI Inc"},
		{ID: uuid.New(), Name: "Fox Mulder"},
	}
	matcher := NewContactMatcher(existing)

	match, found := matcher.FindMatch("", "dana scully", "fbi")
	assert.True(t, found)
	assert.Equal(t, existing[0].ID, match.ID)

	_, found = matcher.FindMatch("", "Fox Mulder", "")
	assert.False(t, found, "a bare name is too ambiguous")
	_, found = matcher.FindMatch("", "Dana Scully", "CIA")
	assert.False(t, found)
}

func TestAddContactPreventsSessionDuplicates(t *testing.T) {
	matcher := NewContactMatcher(nil)
	c := &models.Contact{ID: uuid.New(), Name: "Eve", Email: "eve@acme.com", CurrentCompany: "Acme"}
	matcher.AddContact(c)

	match, found := matcher.FindMatch("EVE@acme.com", "", "")
	assert.True(t, found)
	assert.Equal(t, c.ID, match.ID)
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"alice@example.com", "example.com"},
		{"bob@ACME.co.uk", "acme.co.uk"},
		{"invalid", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, extractDomain(tt.email), tt.email)
	}
}
