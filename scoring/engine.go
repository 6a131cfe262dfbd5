// ABOUTME: Batch rescoring of a user's active opportunities
// ABOUTME: Fans out per opportunity and writes only scores that changed
package scoring

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/logger"
	"github.com/harperreed/introengine/models"
	"golang.org/x/sync/errgroup"
)

type Store interface {
	GetICP(ctx context.Context, userID uuid.UUID) (*models.ICPDefinition, error)
	GetCompanies(ctx context.Context, userID uuid.UUID) ([]models.Company, error)
	GetContacts(ctx context.Context, userID uuid.UUID) ([]models.Contact, error)
	GetConnections(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]models.Connection, error)
	ListActiveOpportunities(ctx context.Context, userID uuid.UUID) ([]models.Opportunity, error)
	UpdateOpportunityScores(ctx context.Context, userID, id uuid.UUID, scores models.Scores) (bool, error)
}

type Engine struct {
	store       Store
	parallelism int
	log         *logger.Logger
}

func NewEngine(store Store, parallelism int, log *logger.Logger) *Engine {
	if parallelism < 1 {
		parallelism = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{store: store, parallelism: parallelism, log: log}
}

type Result struct {
	Scored  int `json:"scored"`
	Changed int `json:"changed"`
	Skipped int `json:"skipped"`
}

func (r Result) String() string {
	return fmt.Sprintf("scored=%d changed=%d skipped=%d", r.Scored, r.Changed, r.Skipped)
}

// ScoreAll rescores every active opportunity of the user. Status is never
// touched and unchanged scores are not rewritten.
func (e *Engine) ScoreAll(ctx context.Context, userID uuid.UUID) (Result, error) {
	var result Result
	log := e.log.With("user_id", userID.String(), "stage", models.StageScoring)

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
	opps, err := e.store.ListActiveOpportunities(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("failed to load opportunities: %w", err)
	}

	companyByID := make(map[uuid.UUID]models.Company, len(companies))
	for _, c := range companies {
		companyByID[c.ID] = c
	}
	contactByID := make(map[uuid.UUID]models.Contact, len(contacts))
	for _, c := range contacts {
		contactByID[c.ID] = c
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for _, opp := range opps {
		opp := opp
		g.Go(func() error {
			target, ok := companyByID[opp.TargetID]
			if !ok {
				log.Warn("opportunity target missing", "opportunity_id", opp.ID.String())
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				return nil
			}
			sc := Context{Target: target, ICP: *def}
			if opp.ContactID != nil {
				if c, ok := contactByID[*opp.ContactID]; ok {
					sc.Contact = &c
				}
				if conn, ok := connections[*opp.ContactID]; ok {
					sc.Connection = &conn
				}
			}

			scores := ScoreOpportunity(opp, sc)
			changed, err := e.store.UpdateOpportunityScores(gctx, userID, opp.ID, scores)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn("failed to write scores", "opportunity_id", opp.ID.String(), "error", err)
				result.Skipped++
				return nil
			}
			result.Scored++
			if changed {
				result.Changed++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	log.Info("opportunities scored", "scored", result.Scored, "changed", result.Changed, "skipped", result.Skipped)
	return result, nil
}
