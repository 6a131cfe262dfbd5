// ABOUTME: Opportunity CLI commands
// ABOUTME: List ranked opportunities, move them through the lifecycle, request intros
package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/handlers"
	"github.com/harperreed/introengine/models"
)

// OppsCommand routes the opps subcommands.
func OppsCommand(ctx context.Context, app *App, args []string) error {
	if len(args) == 0 {
		return listOpportunities(ctx, app, nil)
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "list":
		return listOpportunities(ctx, app, rest)
	case "show":
		return showOpportunity(ctx, app, rest)
	case "status":
		return setOpportunityStatus(ctx, app, rest)
	case "intro":
		return requestIntro(ctx, app, rest)
	default:
		return fmt.Errorf("unknown opps command: %s", sub)
	}
}

func listOpportunities(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "opps list")
	status := fs.String("status", "", "Filter by status")
	typ := fs.String("type", "", "Filter by type: direct, second_level, inferred or outbound")
	minScore := fs.Int("min-score", 0, "Only opportunities scoring at least this total")
	all := fs.Bool("all", false, "Include won and lost opportunities")
	limit := fs.Int("limit", 20, "Maximum number of results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	h := handlers.NewOpportunityHandlers(app.Store, app.Advisor, app.UserID)
	_, out, err := h.ListOpportunities(ctx, nil, handlers.ListOpportunitiesInput{
		Status:        *status,
		Type:          *typ,
		MinScore:      *minScore,
		IncludeClosed: *all,
		Limit:         *limit,
	})
	if err != nil {
		return err
	}

	if len(out.Opportunities) == 0 {
		_, _ = fmt.Fprintln(app.Out, "No opportunities. Set an ICP, add your network, then run 'introengine run'.")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTARGET\tVIA\tTYPE\tSTATUS\tSCORE\tFIT/SIG/INTRO/LEAD")
	_, _ = fmt.Fprintln(w, "--\t------\t---\t----\t------\t-----\t------------------")
	for _, o := range out.Opportunities {
		via := o.Contact
		if via == "" {
			via = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d/%d/%d/%d\n",
			o.ID, o.Target, via,
			typeBadge(models.OpportunityType(o.Type)),
			statusBadge(models.Status(o.Status)),
			scoreBadge(o.ScoreTotal),
			o.IndustryFit, o.BuyingSignal, o.IntroStrength, o.LeadPotential)
	}
	_ = w.Flush()
	return nil
}

func showOpportunity(ctx context.Context, app *App, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("opportunity ID required")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid opportunity ID: %w", err)
	}
	opp, err := app.Store.GetOpportunity(ctx, app.UserID, id)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(app.Out, headerStyle.Render(opp.TargetName))
	_, _ = fmt.Fprintf(app.Out, "  Type:      %s\n", typeBadge(opp.Type))
	_, _ = fmt.Fprintf(app.Out, "  Status:    %s\n", statusBadge(opp.Status))
	if opp.ContactName != "" {
		_, _ = fmt.Fprintf(app.Out, "  Via:       %s\n", opp.ContactName)
	}
	_, _ = fmt.Fprintf(app.Out, "  Score:     %s (fit %d, signal %d, intro %d, lead %d)\n",
		scoreBadge(opp.Scores.Total), opp.Scores.IndustryFit, opp.Scores.BuyingSignal,
		opp.Scores.IntroStrength, opp.Scores.LeadPotential)
	if opp.Rationale != "" {
		_, _ = fmt.Fprintf(app.Out, "  Rationale: %s\n", opp.Rationale)
	}
	_, _ = fmt.Fprintf(app.Out, "  Updated:   %s\n", opp.UpdatedAt.Format("2006-01-02 15:04"))

	drafts, err := app.Store.ListFollowUpDrafts(ctx, app.UserID, &id, 3)
	if err != nil {
		return fmt.Errorf("failed to load follow-ups: %w", err)
	}
	for _, d := range drafts {
		_, _ = fmt.Fprintf(app.Out, "\n  Follow-up (%s, after %d days): %s\n    %s\n",
			d.CreatedAt.Format("2006-01-02"), d.DaysWaiting, d.Subject, d.Body)
	}
	return nil
}

func setOpportunityStatus(ctx context.Context, app *App, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: opps status <id> <status>")
	}
	h := handlers.NewOpportunityHandlers(app.Store, app.Advisor, app.UserID)
	_, out, err := h.UpdateOpportunityStatus(ctx, nil, handlers.UpdateOpportunityStatusInput{
		OpportunityID: args[0],
		Status:        args[1],
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(app.Out, "%s is now %s\n", out.Target, statusBadge(models.Status(out.Status)))
	return nil
}

func requestIntro(ctx context.Context, app *App, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("opportunity ID required")
	}
	h := handlers.NewOpportunityHandlers(app.Store, app.Advisor, app.UserID)
	_, out, err := h.RequestIntro(ctx, nil, handlers.RequestIntroInput{OpportunityID: args[0]})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(app.Out, "Intro to %s requested via %s\n", out.Target, out.Contact)
	return nil
}
