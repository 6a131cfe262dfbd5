// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Summarises the opportunity pipeline, top targets and recent runs for one user
package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/db"
	"github.com/harperreed/introengine/models"
)

// DashboardSource extends Source with the run ledger.
type DashboardSource interface {
	Source
	GetContacts(ctx context.Context, userID uuid.UUID) ([]models.Contact, error)
	ListRuns(ctx context.Context, userID uuid.UUID, limit int) ([]models.PipelineRun, error)
}

type DashboardStats struct {
	PipelineByStatus map[models.Status]int
	ByType           map[models.OpportunityType]int

	TotalContacts  int
	TotalCompanies int
	TargetCount    int // companies at or above the ICP threshold

	TopOpportunities []models.Opportunity
	StaleCount       int
	RecentRuns       []models.PipelineRun
}

// GenerateDashboardStats collects the numbers RenderDashboard prints.
// Opportunities in contacted or intro_requested untouched for staleAfter count as stale.
func GenerateDashboardStats(ctx context.Context, src DashboardSource, userID uuid.UUID, minICP int, staleAfter time.Duration, now time.Time) (*DashboardStats, error) {
	stats := &DashboardStats{
		PipelineByStatus: make(map[models.Status]int),
		ByType:           make(map[models.OpportunityType]int),
	}

	opps, err := src.ListOpportunities(ctx, userID, db.OpportunityFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch opportunities: %w", err)
	}
	for _, o := range opps {
		stats.PipelineByStatus[o.Status]++
		if !o.Status.IsActive() {
			continue
		}
		stats.ByType[o.Type]++
		if len(stats.TopOpportunities) < 5 {
			stats.TopOpportunities = append(stats.TopOpportunities, o)
		}
		if (o.Status == models.StatusContacted || o.Status == models.StatusIntroRequested) &&
			now.Sub(o.StatusChangedAt) >= staleAfter {
			stats.StaleCount++
		}
	}

	contacts, err := src.GetContacts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}
	stats.TotalContacts = len(contacts)

	companies, err := src.GetCompanies(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch companies: %w", err)
	}
	stats.TotalCompanies = len(companies)
	for _, c := range companies {
		if c.ICPScore >= minICP {
			stats.TargetCount++
		}
	}

	stats.RecentRuns, err = src.ListRuns(ctx, userID, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch runs: %w", err)
	}
	return stats, nil
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  INTROENGINE DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("PIPELINE\n")
	renderPipeline(&out, stats.PipelineByStatus)
	out.WriteString("\n")

	out.WriteString("NETWORK\n")
	out.WriteString(fmt.Sprintf("  📇 %d contacts  🏢 %d companies  🎯 %d targets\n",
		stats.TotalContacts, stats.TotalCompanies, stats.TargetCount))
	out.WriteString(fmt.Sprintf("  🤝 %d direct  🔗 %d second level  💭 %d inferred  📣 %d outbound\n\n",
		stats.ByType[models.TypeDirect], stats.ByType[models.TypeSecondLevel],
		stats.ByType[models.TypeInferred], stats.ByType[models.TypeOutbound]))

	if len(stats.TopOpportunities) > 0 {
		out.WriteString("TOP OPPORTUNITIES\n")
		for _, o := range stats.TopOpportunities {
			via := "outbound"
			if o.ContactName != "" {
				via = "via " + o.ContactName
			}
			out.WriteString(fmt.Sprintf("  %3d  %-24s %s\n", o.Scores.Total, o.TargetName, via))
		}
		out.WriteString("\n")
	}

	if stats.StaleCount > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		out.WriteString(fmt.Sprintf("  ⚠️  %d opportunities waiting on a reply\n\n", stats.StaleCount))
	}

	if len(stats.RecentRuns) > 0 {
		out.WriteString("RECENT RUNS\n")
		for _, r := range stats.RecentRuns {
			out.WriteString(fmt.Sprintf("  %s  %-10s %-9s %s\n",
				r.StartedAt.Local().Format("Jan 02 15:04"), r.Stage, r.Status, r.Summary))
		}
	}

	return out.String()
}

func renderPipeline(out *strings.Builder, pipeline map[models.Status]int) {
	maxCount := 0
	for _, n := range pipeline {
		if n > maxCount {
			maxCount = n
		}
	}
	if maxCount == 0 {
		out.WriteString("  no opportunities yet\n")
		return
	}

	for _, status := range models.AllStatuses() {
		n, exists := pipeline[status]
		if !exists {
			continue
		}
		barLength := (n * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-16s %s  %2d\n", status, bar, n))
	}
}
