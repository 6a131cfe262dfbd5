// ABOUTME: Contact deduplication and matching logic
// ABOUTME: Finds existing contacts by email, then by name at the same employer
package sync

import (
	"strings"

	"github.com/harperreed/introengine/models"
)

type ContactMatcher struct {
	byEmail       map[string]*models.Contact
	byNameCompany map[string]*models.Contact
}

// NewContactMatcher creates a matcher from existing contacts.
func NewContactMatcher(contacts []models.Contact) *ContactMatcher {
	m := &ContactMatcher{
		byEmail:       make(map[string]*models.Contact),
		byNameCompany: make(map[string]*models.Contact),
	}
	for i := range contacts {
		m.AddContact(&contacts[i])
	}
	return m
}

// FindMatch looks for an existing contact by email. Contacts without email
// match on name plus current company, since a bare name is too ambiguous.
func (m *ContactMatcher) FindMatch(email, name, company string) (*models.Contact, bool) {
	if e := models.NormalizeEmail(email); e != "" {
		c, found := m.byEmail[e]
		return c, found
	}
	key := nameCompanyKey(name, company)
	if key == "" {
		return nil, false
	}
	c, found := m.byNameCompany[key]
	return c, found
}

// AddContact adds a contact so later records in the same import match it.
func (m *ContactMatcher) AddContact(contact *models.Contact) {
	if e := models.NormalizeEmail(contact.Email); e != "" {
		m.byEmail[e] = contact
	}
	if key := nameCompanyKey(contact.Name, contact.CurrentCompany); key != "" {
		m.byNameCompany[key] = contact
	}
}

func nameCompanyKey(name, company string) string {
	n := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	c := models.NormalizeCompanyName(company)
	if n == "" || c == "" {
		return ""
	}
	return n + "|" + c
}

// extractDomain extracts domain from email address.
func extractDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return models.NormalizeDomain(parts[1])
}
