// ABOUTME: Outbound lead generation for ICP targets without a warm introduction path
// ABOUTME: Creates at most one active outbound opportunity per target, bounded by a per-run quota
package outbound

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/db"
	"github.com/harperreed/introengine/icp"
	"github.com/harperreed/introengine/logger"
	"github.com/harperreed/introengine/models"
)

type Store interface {
	GetCompanies(ctx context.Context, userID uuid.UUID) ([]models.Company, error)
	GetAccountSettings(ctx context.Context, userID uuid.UUID) (*models.AccountSettings, error)
	ListActiveOpportunities(ctx context.Context, userID uuid.UUID) ([]models.Opportunity, error)
	UpsertOpportunity(ctx context.Context, key models.OpportunityKey, fields db.OpportunityFields) (db.UpsertResult, error)
}

type Generator struct {
	store        Store
	defaultQuota int
	minScore     int
	log          *logger.Logger
}

// NewGenerator uses defaultQuota for accounts that have not set their own.
func NewGenerator(store Store, defaultQuota, minScore int, log *logger.Logger) *Generator {
	if minScore <= 0 {
		minScore = icp.MinScore
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Generator{store: store, defaultQuota: defaultQuota, minScore: minScore, log: log}
}

type Result struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
	Deferred int `json:"deferred"`
	// Covered counts targets that already have an intro opportunity.
	Covered int `json:"covered"`
	Skipped int `json:"skipped"`
}

func (r Result) String() string {
	return fmt.Sprintf("created=%d existing=%d deferred=%d covered=%d skipped=%d",
		r.Created, r.Existing, r.Deferred, r.Covered, r.Skipped)
}

// AutoGenerateOutbound fills the gaps inference left: qualified targets with
// no active intro opportunity get an outbound one, best icp_score first,
// until the account's quota for this run is used up.
func (g *Generator) AutoGenerateOutbound(ctx context.Context, userID uuid.UUID) (Result, error) {
	var result Result
	log := g.log.With("user_id", userID.String(), "stage", models.StageOutbound)

	companies, err := g.store.GetCompanies(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("failed to load companies: %w", err)
	}
	settings, err := g.store.GetAccountSettings(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("failed to load account settings: %w", err)
	}
	active, err := g.store.ListActiveOpportunities(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("failed to load opportunities: %w", err)
	}

	quota := settings.OutboundQuota
	if quota <= 0 {
		quota = g.defaultQuota
	}

	intro := make(map[uuid.UUID]bool)
	outbound := make(map[uuid.UUID]bool)
	for _, o := range active {
		if o.Type == models.TypeOutbound {
			outbound[o.TargetID] = true
		} else {
			intro[o.TargetID] = true
		}
	}

	for _, target := range rankTargets(companies, g.minScore) {
		switch {
		case intro[target.ID]:
			result.Covered++
			continue
		case outbound[target.ID]:
			result.Existing++
			continue
		case quota <= 0:
			result.Deferred++
			continue
		}

		key := models.OpportunityKey{UserID: userID, TargetID: target.ID}
		fields := db.OpportunityFields{Type: models.TypeOutbound, Rationale: rationale(target)}
		res, err := g.store.UpsertOpportunity(ctx, key, fields)
		if errors.Is(err, apperr.ErrConflict) {
			res, err = g.store.UpsertOpportunity(ctx, key, fields)
		}
		if err != nil {
			log.Warn("skipping outbound target", "company", target.Name, "error", err)
			result.Skipped++
			continue
		}
		if res.Created {
			result.Created++
			quota--
		} else {
			result.Existing++
		}
	}

	log.Info("outbound opportunities generated", "created", result.Created, "existing", result.Existing,
		"deferred", result.Deferred, "covered", result.Covered, "skipped", result.Skipped)
	return result, nil
}

// rankTargets orders qualified companies by icp_score, then name.
func rankTargets(companies []models.Company, minScore int) []models.Company {
	var out []models.Company
	for _, c := range companies {
		if c.ICPScore >= minScore {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ICPScore != out[j].ICPScore {
			return out[i].ICPScore > out[j].ICPScore
		}
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func rationale(c models.Company) string {
	detail := []string{}
	if c.Industry != "" {
		detail = append(detail, c.Industry)
	}
	if c.Employees != nil {
		detail = append(detail, c.SizeBucket()+" employees")
	}
	if c.Location != "" {
		detail = append(detail, c.Location)
	}
	msg := fmt.Sprintf("%s matches your ICP (score %d) but nobody in your network is connected to it", c.Name, c.ICPScore)
	if len(detail) > 0 {
		msg += "; " + strings.Join(detail, ", ")
	}
	return msg
}
