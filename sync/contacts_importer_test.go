// ABOUTME: Tests for Google Contacts import
// ABOUTME: A fake People source feeds pages of connections
package sync

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/db"
	"github.com/harperreed/introengine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/people/v1"
)

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	conn, err := db.OpenDatabase(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return db.NewStore(conn)
}

// pagedSource serves fixed pages keyed by page token.
type pagedSource struct {
	pages map[string]*people.ListConnectionsResponse
	err   error
	calls int
}

func (p *pagedSource) ListConnections(ctx context.Context, pageToken string) (*people.ListConnectionsResponse, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.pages[pageToken], nil
}

func person(resource, name, email string, orgs ...*people.Organization) *people.Person {
	p := &people.Person{ResourceName: resource, Organizations: orgs}
	if name != "" {
		p.Names = []*people.Name{{DisplayName: name}}
	}
	if email != "" {
		p.EmailAddresses = []*people.EmailAddress{{Value: email}}
	}
	return p
}

func TestConvertPersonSplitsCurrentAndHistory(t *testing.T) {
	p := person("people/1", " Alice Smith ", "",
		&people.Organization{Name: "Initech", Title: "Engineer", StartDate: &people.Date{Year: 2012}, EndDate: &people.Date{Year: 2016}},
		&people.Organization{Name: "Acme", Title: "VP Sales", Domain: "acme.com", Current: true},
		&people.Organization{Name: "Globex", EndDate: &people.Date{Year: 2020}},
	)
	p.EmailAddresses = []*people.EmailAddress{
		{Value: "alice@personal.dev"},
		{Value: "alice@acme.com", Metadata: &people.FieldMetadata{Primary: true}},
	}
	p.Urls = []*people.Url{{Value: "https://example.com"}, {Value: "https://www.LinkedIn.com/in/alice"}}

	gc := convertPerson(p)
	assert.Equal(t, "Alice Smith", gc.Name)
	assert.Equal(t, "alice@acme.com", gc.Email)
	assert.Equal(t, "https://www.LinkedIn.com/in/alice", gc.LinkedIn)
	assert.Equal(t, "Acme", gc.Company)
	assert.Equal(t, "acme.com", gc.CompanyDomain)
	assert.Equal(t, "VP Sales", gc.JobTitle)
	require.Len(t, gc.History, 2)
	assert.Equal(t, "Globex", gc.History[0].Company, "most recent first")
	assert.Equal(t, "Initech", gc.History[1].Company)
	require.NotNil(t, gc.History[1].StartYear)
	assert.Equal(t, 2012, *gc.History[1].StartYear)
}

func TestConvertPersonFallsBackToOpenEndedOrganization(t *testing.T) {
	gc := convertPerson(person("people/2", "Bob", "bob@hooli.com",
		&people.Organization{Name: "Pied Piper", EndDate: &people.Date{Year: 2019}},
		&people.Organization{Name: "Hooli"},
	))
	assert.Equal(t, "Hooli", gc.Company)
	assert.Equal(t, "hooli.com", gc.CompanyDomain, "email domain that spells the employer")
	require.Len(t, gc.History, 1)
	assert.Nil(t, gc.History[0].StartYear)
}

func TestEmployerDomain(t *testing.T) {
	assert.Equal(t, "acme.com", employerDomain("x@acme.com", "Acme Inc"))
	assert.Equal(t, "", employerDomain("x@gmail.com", "Gmail"))
	assert.Equal(t, "", employerDomain("x@personal.dev", "Acme"))
	assert.Equal(t, "", employerDomain("", "Acme"))
}

func TestImportContactsPagesAndRecordsState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()

	src := &pagedSource{pages: map[string]*people.ListConnectionsResponse{
		"": {
			Connections: []*people.Person{
				person("people/1", "Alice", "alice@acme.com", &people.Organization{Name: "Acme", Current: true}),
				person("people/2", "", "nameless@acme.com"),
			},
			NextPageToken: "p2",
		},
		"p2": {
			Connections: []*people.Person{
				person("people/3", "Carol", "", &people.Organization{Name: "Globex", Current: true}),
			},
		},
	}}

	res, err := NewContactsImporter(s, nil).ImportContacts(ctx, user, src)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Fetched: 3, Created: 2, Skipped: 1}, res)
	assert.Equal(t, 2, src.calls)

	contacts, err := s.GetContacts(ctx, user)
	require.NoError(t, err)
	assert.Len(t, contacts, 2)

	state, err := s.GetSyncState(ctx, user, ContactsService)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, db.SyncIdle, state.Status)
	assert.NotNil(t, state.LastSyncTime)
}

func TestReimportUpdatesJobChange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()

	first := &pagedSource{pages: map[string]*people.ListConnectionsResponse{"": {Connections: []*people.Person{
		person("people/1", "Alice", "alice@acme.com", &people.Organization{Name: "Acme", Current: true}),
		person("people/3", "Carol", "", &people.Organization{Name: "Globex", Current: true}),
	}}}}
	_, err := NewContactsImporter(s, nil).ImportContacts(ctx, user, first)
	require.NoError(t, err)

	// Alice moved to Initech with a new address; Carol still has no email.
	second := &pagedSource{pages: map[string]*people.ListConnectionsResponse{"": {Connections: []*people.Person{
		person("people/1", "Alice", "alice@initech.com",
			&people.Organization{Name: "Initech", Current: true},
			&people.Organization{Name: "Acme", EndDate: &people.Date{Year: 2026}}),
		person("people/3", "Carol", "", &people.Organization{Name: "Globex", Current: true}),
	}}}}
	res, err := NewContactsImporter(s, nil).ImportContacts(ctx, user, second)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 2, res.Updated)

	contacts, err := s.GetContacts(ctx, user)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	var alice models.Contact
	for _, c := range contacts {
		if c.Name == "Alice" {
			alice = c
		}
	}
	assert.Equal(t, "Initech", alice.CurrentCompany)
	assert.Equal(t, "alice@initech.com", alice.Email)
	require.Len(t, alice.History, 1)
	assert.Equal(t, "Acme", alice.History[0].Company)
}

func TestImportMatchesManuallyAddedContact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()

	manual := &models.Contact{UserID: user, Name: "Dana Scully", CurrentCompany: "FBI"}
	_, err := s.UpsertContact(ctx, manual)
	require.NoError(t, err)

	src := &pagedSource{pages: map[string]*people.ListConnectionsResponse{"": {Connections: []*people.Person{
		person("people/9", "Dana Scully", "", &people.Organization{Name: "FBI", Title: "Agent", Current: true}),
	}}}}
	res, err := NewContactsImporter(s, nil).ImportContacts(ctx, user, src)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	got, err := s.GetContact(ctx, user, manual.ID)
	require.NoError(t, err)
	assert.Equal(t, "Agent", got.Title)
}

func TestImportSourceFailureMarksError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := NewContactsImporter(s, nil).ImportContacts(ctx, user, &pagedSource{err: errors.New("quota exceeded")})
	require.Error(t, err)

	state, err := s.GetSyncState(ctx, user, ContactsService)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, db.SyncError, state.Status)
	require.NotNil(t, state.ErrorMessage)
	assert.Contains(t, *state.ErrorMessage, "quota exceeded")
}
