// ABOUTME: Tests for the SQLite store
// ABOUTME: Covers contacts, companies, ICP, interactions, drafts and runs
package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenDatabase(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func seedCompany(t *testing.T, s *Store, userID uuid.UUID, name, domain string) *models.Company {
	t.Helper()
	employees := 200
	c := &models.Company{UserID: userID, Name: name, Domain: domain, Industry: "SaaS", Employees: &employees}
	_, err := s.UpsertCompany(context.Background(), c)
	require.NoError(t, err)
	return c
}

func seedContact(t *testing.T, s *Store, userID uuid.UUID, name, email, company string) *models.Contact {
	t.Helper()
	c := &models.Contact{UserID: userID, Name: name, Email: email, CurrentCompany: company}
	_, err := s.UpsertContact(context.Background(), c)
	require.NoError(t, err)
	return c
}

func TestUpsertContactMergesOnEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()

	first := &models.Contact{UserID: user, Name: "Ada", Email: "Ada@Example.com", Title: "Engineer"}
	created, err := s.UpsertContact(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ada@example.com", first.Email)

	start := 2019
	again := &models.Contact{
		UserID:         user,
		Name:           "Ada Lovelace",
		Email:          "ada@example.com",
		CurrentCompany: "Acme",
		History:        []models.Employment{{Company: "Initech", StartYear: &start}},
	}
	created, err = s.UpsertContact(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	got, err := s.GetContact(ctx, user, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Equal(t, "Engineer", got.Title, "empty incoming fields keep stored values")
	assert.Equal(t, "Acme", got.CurrentCompany)
	require.Len(t, got.History, 1)
	assert.Equal(t, "Initech", got.History[0].Company)
	require.NotNil(t, got.History[0].StartYear)
	assert.Equal(t, 2019, *got.History[0].StartYear)

	all, err := s.GetContacts(ctx, user)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsertContactValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertContact(ctx, &models.Contact{Name: "No User"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.UpsertContact(ctx, &models.Contact{UserID: uuid.New(), Name: "  "})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSoftDeleteAndRestoreContact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()

	c := seedContact(t, s, user, "Grace", "grace@example.com", "Navy")
	require.NoError(t, s.SoftDeleteContact(ctx, user, c.ID))

	live, err := s.GetContacts(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, live)

	kept, err := s.GetContact(ctx, user, c.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept.DeletedAt)

	err = s.SoftDeleteContact(ctx, user, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	restored := &models.Contact{UserID: user, Name: "Grace Hopper", Email: "grace@example.com"}
	created, err := s.UpsertContact(ctx, restored)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, c.ID, restored.ID)
	assert.Nil(t, restored.DeletedAt)

	live, err = s.GetContacts(ctx, user)
	require.NoError(t, err)
	assert.Len(t, live, 1)
}

func TestCrossUserIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := uuid.New()
	other := uuid.New()

	c := seedContact(t, s, owner, "Ada", "ada@example.com", "Acme")
	co := seedCompany(t, s, owner, "Acme", "acme.com")

	_, err := s.GetContact(ctx, other, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = s.GetCompany(ctx, other, co.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	contacts, err := s.GetContacts(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, contacts)

	_, err = s.UpsertOpportunity(ctx, models.OpportunityKey{UserID: other, TargetID: co.ID}, OpportunityFields{Type: models.TypeOutbound})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = s.GetContacts(ctx, uuid.Nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpsertCompanyDedupesOnDomain(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()

	a := &models.Company{UserID: user, Name: "Acme", Domain: "https://www.acme.com/about", Technologies: []string{"go"}}
	created, err := s.UpsertCompany(ctx, a)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "acme.com", a.Domain)

	require.NoError(t, s.UpdateCompanyICPScore(ctx, user, a.ID, 77))

	b := &models.Company{UserID: user, Name: "Acme Inc", Domain: "acme.com", Industry: "SaaS",
		Signals: []models.Signal{{Kind: models.SignalFunding, Strength: 80}}}
	created, err = s.UpsertCompany(ctx, b)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, b.ID)

	got, err := s.GetCompany(ctx, user, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Inc", got.Name)
	assert.Equal(t, 77, got.ICPScore, "upsert must not reset icp_score")
	require.Len(t, got.Signals, 1)
	assert.Equal(t, models.SignalFunding, got.Signals[0].Kind)

	err = s.UpdateCompanyICPScore(ctx, user, uuid.New(), 50)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpsertCompanyKeepsKnownFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()

	full := &models.Company{UserID: user, Name: "Acme", Domain: "acme.com", Location: "Chicago",
		Technologies: []string{"go", "postgres"}, Signals: []models.Signal{{Kind: models.SignalHiring, Strength: 60}}}
	_, err := s.UpsertCompany(ctx, full)
	require.NoError(t, err)
	n := 180
	require.NoError(t, s.FillCompanyFirmographics(ctx, user, full.ID, "SaaS", &n))

	partial := &models.Company{UserID: user, Name: "Acme Corp", Domain: "acme.com"}
	created, err := s.UpsertCompany(ctx, partial)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := s.GetCompany(ctx, user, full.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Name)
	assert.Equal(t, "SaaS", got.Industry)
	require.NotNil(t, got.Employees)
	assert.Equal(t, 180, *got.Employees)
	assert.Equal(t, []string{"go", "postgres"}, got.Technologies)
	assert.Equal(t, "Chicago", got.Location)
	require.Len(t, got.Signals, 1)
	assert.Equal(t, models.SignalHiring, got.Signals[0].Kind)

	update := &models.Company{UserID: user, Name: "Acme Corp", Domain: "acme.com", Location: "Austin"}
	_, err = s.UpsertCompany(ctx, update)
	require.NoError(t, err)
	got, err = s.GetCompany(ctx, user, full.ID)
	require.NoError(t, err)
	assert.Equal(t, "Austin", got.Location)
	assert.Equal(t, "SaaS", got.Industry)
}

func TestFillCompanyFirmographics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()

	c := &models.Company{UserID: user, Name: "Bare"}
	_, err := s.UpsertCompany(ctx, c)
	require.NoError(t, err)

	n := 40
	require.NoError(t, s.FillCompanyFirmographics(ctx, user, c.ID, "Fintech", &n))
	m := 900
	require.NoError(t, s.FillCompanyFirmographics(ctx, user, c.ID, "Retail", &m))

	got, err := s.GetCompany(ctx, user, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fintech", got.Industry)
	require.NotNil(t, got.Employees)
	assert.Equal(t, 40, *got.Employees)
}

func TestLogInteractionUpdatesConnection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()
	c := seedContact(t, s, user, "Ada", "ada@example.com", "Acme")

	earlier := time.Now().Add(-48 * time.Hour)
	conn, err := s.LogInteraction(ctx, &models.InteractionLog{UserID: user, ContactID: c.ID, InteractionType: models.InteractionMeeting, Timestamp: earlier})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultStrength+8, conn.Strength)
	assert.Equal(t, 1, conn.InteractionCount)

	_, err = s.LogInteraction(ctx, &models.InteractionLog{UserID: user, ContactID: c.ID, InteractionType: models.InteractionEmail})
	require.NoError(t, err)

	conns, err := s.GetConnections(ctx, user)
	require.NoError(t, err)
	got := conns[c.ID]
	assert.Equal(t, 2, got.InteractionCount)
	assert.Equal(t, models.DefaultStrength+10, got.Strength)
	require.NotNil(t, got.LastInteractionAt)
	assert.WithinDuration(t, time.Now(), *got.LastInteractionAt, time.Minute)

	logs, err := s.ListInteractions(ctx, user, c.ID, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	_, err = s.LogInteraction(ctx, &models.InteractionLog{UserID: user, ContactID: c.ID, InteractionType: "carrier_pigeon"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.LogInteraction(ctx, &models.InteractionLog{UserID: user, ContactID: uuid.New(), InteractionType: models.InteractionCall})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestICPRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := s.GetICP(ctx, user)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	minE, maxE := 50, 500
	require.NoError(t, s.SaveICP(ctx, &models.ICPDefinition{
		UserID: user, Industries: []string{"SaaS"}, MinEmployees: &minE, MaxEmployees: &maxE,
		Locations: []string{"Berlin"}, PainPoints: "manual reporting",
	}))
	require.NoError(t, s.SaveICP(ctx, &models.ICPDefinition{
		UserID: user, Industries: []string{"SaaS", "Fintech"}, MinEmployees: &minE, MaxEmployees: &maxE,
	}))

	got, err := s.GetICP(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"SaaS", "Fintech"}, got.Industries)
	assert.Nil(t, got.Locations)
	assert.Empty(t, got.PainPoints)
	require.NotNil(t, got.MaxEmployees)
	assert.Equal(t, 500, *got.MaxEmployees)

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{user}, accounts)
}

func TestAccountSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()

	defaults, err := s.GetAccountSettings(ctx, user)
	require.NoError(t, err)
	assert.False(t, defaults.AllowInferred)
	assert.Zero(t, defaults.OutboundQuota)

	require.NoError(t, s.SaveAccountSettings(ctx, &models.AccountSettings{UserID: user, AllowInferred: true, OutboundQuota: 3}))
	got, err := s.GetAccountSettings(ctx, user)
	require.NoError(t, err)
	assert.True(t, got.AllowInferred)
	assert.Equal(t, 3, got.OutboundQuota)

	err = s.SaveAccountSettings(ctx, &models.AccountSettings{UserID: user, OutboundQuota: -1})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRunLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()

	first, err := s.RecordRun(ctx, user, models.StageInference, models.RunStatusRunning)
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, first, models.RunStatusSucceeded, `{"created":1}`, nil))

	time.Sleep(2 * time.Millisecond)
	second, err := s.RecordRun(ctx, user, models.StageScoring, models.RunStatusRejected)
	require.NoError(t, err)
	assert.NotNil(t, second.FinishedAt)

	runs, err := s.ListRuns(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID, "newest run first")
	assert.Equal(t, models.RunStatusSucceeded, runs[1].Status)
	assert.Equal(t, `{"created":1}`, runs[1].Summary)
}

func TestSyncStateAndLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()

	state, err := s.GetSyncState(ctx, user, "google_contacts")
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, s.UpdateSyncStatus(ctx, user, "google_contacts", SyncSyncing, nil))
	require.NoError(t, s.UpdateSyncStatus(ctx, user, "google_contacts", SyncIdle, nil))

	state, err = s.GetSyncState(ctx, user, "google_contacts")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, SyncIdle, state.Status)
	assert.NotNil(t, state.LastSyncTime)

	c := seedContact(t, s, user, "Ada", "ada@example.com", "Acme")
	require.NoError(t, s.RecordSync(ctx, user, "google_contacts", "people/c1", c.ID))

	id, ok, err := s.SyncedContact(ctx, user, "google_contacts", "people/c1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, c.ID, id)

	_, ok, err = s.SyncedContact(ctx, uuid.New(), "google_contacts", "people/c1")
	require.NoError(t, err)
	assert.False(t, ok)
}
