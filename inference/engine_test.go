// ABOUTME: Tests for the relationship inference engine
// ABOUTME: Runs against a temp SQLite store with fake enrichment
package inference

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/db"
	"github.com/harperreed/introengine/enrichment"
	"github.com/harperreed/introengine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	conn, err := db.OpenDatabase(filepath.Join(t.TempDir(), "inference.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return db.NewStore(conn)
}

func intp(v int) *int { return &v }

// seedScenario stores a SaaS ICP bounded to 50..500 employees, Acme (SaaS,
// 200 employees) and a contact who currently works there.
func seedScenario(t *testing.T, s *db.Store) (uuid.UUID, *models.Company, *models.Contact) {
	t.Helper()
	ctx := context.Background()
	user := uuid.New()

	require.NoError(t, s.SaveICP(ctx, &models.ICPDefinition{
		UserID:       user,
		Industries:   []string{"SaaS"},
		MinEmployees: intp(50),
		MaxEmployees: intp(500),
	}))
	acme := &models.Company{UserID: user, Name: "Acme", Domain: "acme.com", Industry: "SaaS", Employees: intp(200)}
	_, err := s.UpsertCompany(ctx, acme)
	require.NoError(t, err)
	x := &models.Contact{UserID: user, Name: "Xena", Email: "xena@acme.com", CurrentCompany: "Acme"}
	_, err = s.UpsertContact(ctx, x)
	require.NoError(t, err)
	return user, acme, x
}

func TestDirectPathCreatesOpportunity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, acme, x := seedScenario(t, s)

	res, err := NewEngine(s, Options{}).RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 1}, res)

	company, err := s.GetCompany(ctx, user, acme.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, company.ICPScore, 80)

	opps, err := s.ListActiveOpportunities(ctx, user)
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, models.TypeDirect, opps[0].Type)
	assert.Equal(t, models.StatusSuggested, opps[0].Status)
	require.NotNil(t, opps[0].ContactID)
	assert.Equal(t, x.ID, *opps[0].ContactID)
	assert.Equal(t, acme.ID, opps[0].TargetID)
}

func TestSecondRunIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, _, _ := seedScenario(t, s)
	engine := NewEngine(s, Options{Parallelism: 4})

	_, err := engine.RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)

	res, err := engine.RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 0, res.Retired)
	assert.Equal(t, 1, res.Unchanged)
}

func TestContactLeavingRetiresOpportunity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, _, x := seedScenario(t, s)
	engine := NewEngine(s, Options{})

	_, err := engine.RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)

	moved := &models.Contact{UserID: user, Name: "Xena", Email: x.Email, CurrentCompany: "Globex"}
	_, err = s.UpsertContact(ctx, moved)
	require.NoError(t, err)

	res, err := engine.RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 1, res.Retired)

	all, err := s.ListOpportunities(ctx, user, db.OpportunityFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1, "no duplicate opportunity is created")
	assert.Equal(t, models.StatusLost, all[0].Status)
}

func TestPastEmployerDowngradesToSecondLevel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, _, x := seedScenario(t, s)
	engine := NewEngine(s, Options{})

	_, err := engine.RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)

	moved := &models.Contact{
		UserID: user, Name: "Xena", Email: x.Email, CurrentCompany: "Globex",
		History: []models.Employment{{Company: "Acme", StartYear: intp(2018), EndYear: intp(2025)}},
	}
	_, err = s.UpsertContact(ctx, moved)
	require.NoError(t, err)

	res, err := engine.RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, Result{Updated: 1}, res)

	opps, err := s.ListActiveOpportunities(ctx, user)
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, models.TypeSecondLevel, opps[0].Type)
	assert.Contains(t, opps[0].Rationale, "previously worked at Acme (2018-2025)")
}

func TestUnqualifiedTargetsGetNoOpportunity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, _, _ := seedScenario(t, s)

	far := &models.Company{UserID: user, Name: "Bank", Industry: "Banking", Employees: intp(90000)}
	_, err := s.UpsertCompany(ctx, far)
	require.NoError(t, err)
	_, err = s.UpsertContact(ctx, &models.Contact{UserID: user, Name: "Bo", Email: "bo@bank.com", CurrentCompany: "Bank"})
	require.NoError(t, err)

	// Bank only earns the unconstrained technology, location and maturity criteria.
	res, err := NewEngine(s, Options{MinScore: 50}).RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	got, err := s.GetCompany(ctx, user, far.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.ICPScore, "scores are persisted for unqualified companies too")
}

func TestMissingICPIsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := NewEngine(s, Options{}).RecalculateIntroOpportunities(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInferredPathsRequireAccountFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()

	require.NoError(t, s.SaveICP(ctx, &models.ICPDefinition{UserID: user, Industries: []string{"SaaS"}}))
	target := &models.Company{UserID: user, Name: "Target", Industry: "SaaS", Location: "Berlin"}
	peer := &models.Company{UserID: user, Name: "Peer", Industry: "SaaS", Location: "Berlin"}
	for _, c := range []*models.Company{target, peer} {
		_, err := s.UpsertCompany(ctx, c)
		require.NoError(t, err)
	}
	_, err := s.UpsertContact(ctx, &models.Contact{UserID: user, Name: "Pat", Email: "pat@peer.com", CurrentCompany: "Peer"})
	require.NoError(t, err)

	engine := NewEngine(s, Options{})
	res, err := engine.RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created, "only the direct path into Peer")

	require.NoError(t, s.SaveAccountSettings(ctx, &models.AccountSettings{UserID: user, AllowInferred: true}))
	res, err = engine.RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Unchanged)

	opps, err := s.ListOpportunities(ctx, user, db.OpportunityFilter{Type: models.TypeInferred})
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, target.ID, opps[0].TargetID)
}

type fakeEnricher struct {
	result enrichment.Enrichment
	err    error
	calls  int
}

func (f *fakeEnricher) Enrich(ctx context.Context, company models.Company) (enrichment.Enrichment, error) {
	f.calls++
	return f.result, f.err
}

func TestEnrichmentFillsMissingFirmographics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, _, _ := seedScenario(t, s)

	bare := &models.Company{UserID: user, Name: "Bare"}
	_, err := s.UpsertCompany(ctx, bare)
	require.NoError(t, err)

	enricher := &fakeEnricher{result: enrichment.Enrichment{Industry: "SaaS", Employees: intp(120)}}
	_, err = NewEngine(s, Options{Enricher: enricher}).RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, enricher.calls, "complete companies are not enriched")

	got, err := s.GetCompany(ctx, user, bare.ID)
	require.NoError(t, err)
	assert.Equal(t, "SaaS", got.Industry)
	require.NotNil(t, got.Employees)
	assert.Equal(t, 120, *got.Employees)
	assert.Equal(t, 100, got.ICPScore)
}

func TestEnrichmentFailureDoesNotAbortRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, _, _ := seedScenario(t, s)

	_, err := s.UpsertCompany(ctx, &models.Company{UserID: user, Name: "Bare"})
	require.NoError(t, err)

	enricher := &fakeEnricher{err: apperr.Service("enrich", errors.New("unavailable"))}
	res, err := NewEngine(s, Options{Enricher: enricher}).RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
}

// conflictOnce fails the first upsert the way a lost race would.
type conflictOnce struct {
	*db.Store
	failed bool
}

func (c *conflictOnce) UpsertOpportunity(ctx context.Context, key models.OpportunityKey, fields db.OpportunityFields) (db.UpsertResult, error) {
	if !c.failed {
		c.failed = true
		return db.UpsertResult{}, apperr.Conflict("upsert_opportunity", errors.New("UNIQUE constraint failed"))
	}
	return c.Store.UpsertOpportunity(ctx, key, fields)
}

func TestConflictIsRetriedOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, _, _ := seedScenario(t, s)

	store := &conflictOnce{Store: s}
	res, err := NewEngine(store, Options{}).RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	assert.True(t, store.failed)
	assert.Equal(t, Result{Created: 1}, res)
}

// failingUpsert makes every upsert fail.
type failingUpsert struct {
	*db.Store
}

func (f failingUpsert) UpsertOpportunity(ctx context.Context, key models.OpportunityKey, fields db.OpportunityFields) (db.UpsertResult, error) {
	return db.UpsertResult{}, errors.New("disk I/O error")
}

func TestTargetFailureIsSkippedAndKeepsExistingRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, _, _ := seedScenario(t, s)

	_, err := NewEngine(s, Options{}).RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)

	res, err := NewEngine(failingUpsert{s}, Options{}).RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 1}, res)

	opps, err := s.ListActiveOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Len(t, opps, 1)
}

func TestStrongerContactKeepsWorkedOpportunity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, acme, x := seedScenario(t, s)
	engine := NewEngine(s, Options{})

	_, err := engine.RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	opps, err := s.ListActiveOpportunities(ctx, user)
	require.NoError(t, err)
	require.Len(t, opps, 1)
	_, err = s.UpdateOpportunityStatus(ctx, user, opps[0].ID, models.StatusMeetingBooked)
	require.NoError(t, err)

	y := &models.Contact{UserID: user, Name: "Yuri", Email: "yuri@acme.com", CurrentCompany: "Acme"}
	_, err = s.UpsertContact(ctx, y)
	require.NoError(t, err)
	require.NoError(t, s.UpsertConnection(ctx, &models.Connection{UserID: user, ContactID: y.ID, Strength: 90}))

	res, err := engine.RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 1, Unchanged: 1}, res)

	kept, err := s.GetOpportunity(ctx, user, opps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusMeetingBooked, kept.Status)
	require.NotNil(t, kept.ContactID)
	assert.Equal(t, x.ID, *kept.ContactID)

	active, err := s.ListOpportunities(ctx, user, db.OpportunityFilter{TargetID: acme.ID, ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	res, err = engine.RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, Result{Unchanged: 2}, res)
}

func TestKeptOpportunityFollowsContactTier(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, _, x := seedScenario(t, s)
	engine := NewEngine(s, Options{})

	_, err := engine.RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)

	y := &models.Contact{UserID: user, Name: "Yuri", Email: "yuri@acme.com", CurrentCompany: "Acme"}
	_, err = s.UpsertContact(ctx, y)
	require.NoError(t, err)
	moved := &models.Contact{UserID: user, Name: "Xena", Email: x.Email, CurrentCompany: "Globex",
		History: []models.Employment{{Company: "Acme", StartYear: intp(2018), EndYear: intp(2023)}}}
	_, err = s.UpsertContact(ctx, moved)
	require.NoError(t, err)

	res, err := engine.RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 1, Updated: 1}, res)

	second, err := s.ListOpportunities(ctx, user, db.OpportunityFilter{Type: models.TypeSecondLevel, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, x.ID, *second[0].ContactID)
}

// seedOutbound adds Globex, which nobody in the network knows, with an
// outbound opportunity for it.
func seedOutbound(t *testing.T, s *db.Store, user uuid.UUID) (*models.Company, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	globex := &models.Company{UserID: user, Name: "Globex", Domain: "globex.com", Industry: "SaaS", Employees: intp(200)}
	_, err := s.UpsertCompany(ctx, globex)
	require.NoError(t, err)
	res, err := s.UpsertOpportunity(ctx, models.OpportunityKey{UserID: user, TargetID: globex.ID},
		db.OpportunityFields{Type: models.TypeOutbound, Rationale: "Globex matches your ICP"})
	require.NoError(t, err)
	return globex, res.ID
}

func TestICPDropRetiresOutboundAndIntro(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, _, _ := seedScenario(t, s)
	_, outboundID := seedOutbound(t, s, user)
	engine := NewEngine(s, Options{MinScore: 50})

	res, err := engine.RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 1}, res, "a qualified outbound row is left alone")

	require.NoError(t, s.SaveICP(ctx, &models.ICPDefinition{
		UserID:       user,
		Industries:   []string{"Banking"},
		MinEmployees: intp(5000),
	}))
	res, err = engine.RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, Result{Retired: 2}, res)

	ob, err := s.GetOpportunity(ctx, user, outboundID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLost, ob.Status)

	active, err := s.ListActiveOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestWarmPathSupersedesUntouchedOutbound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, _, _ := seedScenario(t, s)
	globex, outboundID := seedOutbound(t, s, user)
	engine := NewEngine(s, Options{})

	_, err := s.UpsertContact(ctx, &models.Contact{UserID: user, Name: "Gil", Email: "gil@globex.com", CurrentCompany: "Globex"})
	require.NoError(t, err)

	res, err := engine.RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 2, Retired: 1}, res)

	ob, err := s.GetOpportunity(ctx, user, outboundID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLost, ob.Status)

	active, err := s.ListOpportunities(ctx, user, db.OpportunityFilter{TargetID: globex.ID, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, models.TypeDirect, active[0].Type)
}

func TestWarmPathKeepsOutboundUserActedOn(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, _, _ := seedScenario(t, s)
	_, outboundID := seedOutbound(t, s, user)
	_, err := s.UpdateOpportunityStatus(ctx, user, outboundID, models.StatusContacted)
	require.NoError(t, err)

	_, err = s.UpsertContact(ctx, &models.Contact{UserID: user, Name: "Gil", Email: "gil@globex.com", CurrentCompany: "Globex"})
	require.NoError(t, err)

	res, err := NewEngine(s, Options{}).RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 2}, res)

	ob, err := s.GetOpportunity(ctx, user, outboundID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusContacted, ob.Status)
}

func TestConcurrentRunsCreateNoDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	open := func() *db.Store {
		conn, err := db.OpenDatabase(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		return db.NewStore(conn)
	}
	first, second := open(), open()
	ctx := context.Background()
	user, _, _ := seedScenario(t, first)

	for _, name := range []string{"Globex", "Initech", "Hooli", "Umbrella", "Stark"} {
		_, err := first.UpsertCompany(ctx, &models.Company{UserID: user, Name: name, Industry: "SaaS", Employees: intp(120)})
		require.NoError(t, err)
		_, err = first.UpsertContact(ctx, &models.Contact{UserID: user, Name: "Rep " + name, CurrentCompany: name})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		store := first
		if i%2 == 1 {
			store = second
		}
		wg.Add(1)
		go func(store *db.Store) {
			defer wg.Done()
			_, err := NewEngine(store, Options{Parallelism: 4}).RecalculateIntroOpportunities(ctx, user)
			errs <- err
		}(store)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// A serial run fills in anything a lost race skipped.
	_, err := NewEngine(first, Options{}).RecalculateIntroOpportunities(ctx, user)
	require.NoError(t, err)

	active, err := first.ListActiveOpportunities(ctx, user)
	require.NoError(t, err)
	assert.Len(t, active, 6)
	keys := make(map[string]bool)
	for _, o := range active {
		assert.False(t, keys[o.Key().String()], "duplicate active opportunity for %s", o.Key())
		keys[o.Key().String()] = true
	}

	all, err := first.ListOpportunities(ctx, user, db.OpportunityFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 6, "no row was created and then retired")
}
