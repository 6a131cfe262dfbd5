// ABOUTME: Relationship inference: turns ICP targets and discovered paths into opportunities
// ABOUTME: Upserts on the natural key and retires opportunities whose path or ICP fit disappeared
package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/db"
	"github.com/harperreed/introengine/enrichment"
	"github.com/harperreed/introengine/icp"
	"github.com/harperreed/introengine/logger"
	"github.com/harperreed/introengine/models"
	"github.com/harperreed/introengine/paths"
	"golang.org/x/sync/errgroup"
)

// Store is the slice of the network store inference reads and writes.
type Store interface {
	GetICP(ctx context.Context, userID uuid.UUID) (*models.ICPDefinition, error)
	GetCompanies(ctx context.Context, userID uuid.UUID) ([]models.Company, error)
	GetContacts(ctx context.Context, userID uuid.UUID) ([]models.Contact, error)
	GetConnections(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]models.Connection, error)
	GetAccountSettings(ctx context.Context, userID uuid.UUID) (*models.AccountSettings, error)
	ListActiveOpportunities(ctx context.Context, userID uuid.UUID) ([]models.Opportunity, error)
	FillCompanyFirmographics(ctx context.Context, userID, id uuid.UUID, industry string, employees *int) error
	UpdateCompanyICPScore(ctx context.Context, userID, id uuid.UUID, score int) error
	UpsertOpportunity(ctx context.Context, key models.OpportunityKey, fields db.OpportunityFields) (db.UpsertResult, error)
	RetireOpportunity(ctx context.Context, userID, id uuid.UUID) (bool, error)
}

type Options struct {
	// Enricher is optional; without it companies are matched as stored.
	Enricher      enrichment.Enricher
	EnrichTimeout time.Duration
	Parallelism   int
	MinScore      int
	Logger        *logger.Logger
}

type Engine struct {
	store         Store
	enricher      enrichment.Enricher
	enrichTimeout time.Duration
	parallelism   int
	minScore      int
	log           *logger.Logger
}

func NewEngine(store Store, opts Options) *Engine {
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	if opts.EnrichTimeout <= 0 {
		opts.EnrichTimeout = 10 * time.Second
	}
	if opts.MinScore <= 0 {
		opts.MinScore = icp.MinScore
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	return &Engine{
		store:         store,
		enricher:      opts.Enricher,
		enrichTimeout: opts.EnrichTimeout,
		parallelism:   opts.Parallelism,
		minScore:      opts.MinScore,
		log:           opts.Logger,
	}
}

// Result counts what one recalculation did.
type Result struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Retired   int `json:"retired"`
	Skipped   int `json:"skipped"`
}

func (r Result) String() string {
	return fmt.Sprintf("created=%d updated=%d unchanged=%d retired=%d skipped=%d",
		r.Created, r.Updated, r.Unchanged, r.Retired, r.Skipped)
}

func (r *Result) count(res db.UpsertResult) {
	switch {
	case res.Created:
		r.Created++
	case res.Changed:
		r.Updated++
	default:
		r.Unchanged++
	}
}

// RecalculateIntroOpportunities reconciles the user's intro opportunities
// with the paths currently present in their network, and retires any
// opportunity, outbound included, whose target no longer meets the ICP
// threshold. A user without an ICP
// gets a NotFound error. Failures on single targets are logged and counted
// as skipped.
func (e *Engine) RecalculateIntroOpportunities(ctx context.Context, userID uuid.UUID) (Result, error) {
	var result Result
	log := e.log.With("user_id", userID.String(), "stage", models.StageInference)

	def, err := e.store.GetICP(ctx, userID)
	if err != nil {
		return result, err
	}
	companies, err := e.store.GetCompanies(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("failed to load companies: %w", err)
	}
	contacts, err := e.store.GetContacts(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("failed to load contacts: %w", err)
	}
	connections, err := e.store.GetConnections(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("failed to load connections: %w", err)
	}
	settings, err := e.store.GetAccountSettings(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("failed to load account settings: %w", err)
	}
	active, err := e.store.ListActiveOpportunities(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("failed to load opportunities: %w", err)
	}

	e.enrich(ctx, log, userID, companies)

	ranked := icp.MatchTargets(*def, companies)
	var targets []models.Company
	for _, r := range ranked {
		if err := e.store.UpdateCompanyICPScore(ctx, userID, r.Company.ID, r.Score); err != nil {
			log.Warn("failed to persist icp score", "company", r.Company.Name, "error", err)
		}
		if r.Score >= e.minScore {
			targets = append(targets, r.Company)
		}
	}

	network := paths.NewNetwork(contacts, connections, companies)
	opts := paths.Options{AllowInferred: settings.AllowInferred}
	found, err := e.discover(ctx, network, targets, opts)
	if err != nil {
		return result, err
	}

	seen := make(map[string]bool)
	failedTargets := make(map[uuid.UUID]bool)
	warm := make(map[uuid.UUID]bool)
	qualified := make(map[uuid.UUID]models.Company, len(targets))
	for i, target := range targets {
		qualified[target.ID] = target
		path := found[i]
		if !path.Found() {
			continue
		}
		warm[target.ID] = true
		contactID := path.Contact.ID
		key := models.OpportunityKey{UserID: userID, TargetID: target.ID, ContactID: &contactID}
		seen[key.String()] = true

		res, err := e.upsert(ctx, key, db.OpportunityFields{Type: path.Type, Rationale: path.Rationale})
		if err != nil {
			log.Warn("skipping target", "company", target.Name, "error", err)
			failedTargets[target.ID] = true
			result.Skipped++
			continue
		}
		result.count(res)
	}

	for _, opp := range active {
		if seen[opp.Key().String()] || failedTargets[opp.TargetID] {
			continue
		}
		target, ok := qualified[opp.TargetID]
		switch {
		case !ok:
			// Target fell below the ICP threshold or is gone.
		case opp.Type.IsIntro():
			// A stronger contact may have taken the best path; the
			// existing one survives while its own contact still connects.
			if opp.ContactID == nil {
				break
			}
			path := network.PathVia(*opp.ContactID, target, opts)
			if !path.Found() {
				break
			}
			res, err := e.upsert(ctx, opp.Key(), db.OpportunityFields{Type: path.Type, Rationale: path.Rationale})
			if err != nil {
				log.Warn("failed to refresh opportunity", "opportunity_id", opp.ID.String(), "error", err)
				result.Skipped++
				continue
			}
			result.count(res)
			continue
		default:
			// Outbound gives way to a warm path only before the user acted on it.
			if !warm[opp.TargetID] || opp.Status != models.StatusSuggested {
				continue
			}
		}

		retired, err := e.store.RetireOpportunity(ctx, userID, opp.ID)
		if err != nil {
			log.Warn("failed to retire opportunity", "opportunity_id", opp.ID.String(), "error", err)
			result.Skipped++
			continue
		}
		if retired {
			result.Retired++
		}
	}

	log.Info("intro opportunities recalculated",
		"targets", len(targets), "created", result.Created, "updated", result.Updated,
		"unchanged", result.Unchanged, "retired", result.Retired, "skipped", result.Skipped)
	return result, nil
}

// upsert retries once when a concurrent writer claimed the key first.
func (e *Engine) upsert(ctx context.Context, key models.OpportunityKey, fields db.OpportunityFields) (db.UpsertResult, error) {
	res, err := e.store.UpsertOpportunity(ctx, key, fields)
	if errors.Is(err, apperr.ErrConflict) {
		res, err = e.store.UpsertOpportunity(ctx, key, fields)
	}
	return res, err
}

func (e *Engine) discover(ctx context.Context, network *paths.Network, targets []models.Company, opts paths.Options) ([]paths.PathResult, error) {
	found := make([]paths.PathResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i := range targets {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			found[i] = network.FindPath(targets[i], opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("path discovery interrupted: %w", err)
	}
	return found, nil
}

// enrich fills missing industry and headcount in place. Every failure is
// logged and leaves the company as it was.
func (e *Engine) enrich(ctx context.Context, log *logger.Logger, userID uuid.UUID, companies []models.Company) {
	if e.enricher == nil {
		return
	}

	fetched := make([]enrichment.Enrichment, len(companies))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i := range companies {
		if !enrichment.NeedsEnrichment(companies[i]) {
			continue
		}
		i := i
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, e.enrichTimeout)
			defer cancel()
			got, err := e.enricher.Enrich(cctx, companies[i])
			if err != nil {
				log.Warn("enrichment failed", "company", companies[i].Name, "error", err)
				return nil
			}
			fetched[i] = got
			return nil
		})
	}
	_ = g.Wait()

	for i := range companies {
		got := fetched[i]
		if got.IsEmpty() {
			continue
		}
		c := &companies[i]
		industry := ""
		if c.Industry == "" {
			industry = got.Industry
		}
		var employees *int
		if c.Employees == nil {
			employees = got.Employees
		}
		if industry == "" && employees == nil {
			continue
		}
		if err := e.store.FillCompanyFirmographics(ctx, userID, c.ID, industry, employees); err != nil {
			log.Warn("failed to store enrichment", "company", c.Name, "error", err)
			continue
		}
		if industry != "" {
			c.Industry = industry
		}
		if employees != nil {
			c.Employees = employees
		}
	}
}
