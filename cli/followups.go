// ABOUTME: Follow-up CLI commands
// ABOUTME: Draft nudges for quiet opportunities and review the drafts already produced
package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/handlers"
)

// FollowupsCommand routes the followups subcommands.
func FollowupsCommand(ctx context.Context, app *App, args []string) error {
	if len(args) == 0 {
		return listFollowUps(ctx, app, nil)
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "list":
		return listFollowUps(ctx, app, rest)
	case "draft":
		return draftFollowUp(ctx, app, rest)
	case "run":
		result, err := app.Runner.RunFollowUps(ctx, app.UserID)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(app.Out, "%s follow-ups: %s\n", okStyle.Render("✓"), result)
		return nil
	default:
		return fmt.Errorf("unknown followups command: %s", sub)
	}
}

func listFollowUps(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "followups list")
	opp := fs.String("opp", "", "Only drafts for this opportunity ID")
	limit := fs.Int("limit", 10, "Maximum number of drafts to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var oppID *uuid.UUID
	if *opp != "" {
		id, err := uuid.Parse(*opp)
		if err != nil {
			return fmt.Errorf("invalid opportunity ID: %w", err)
		}
		oppID = &id
	}

	drafts, err := app.Store.ListFollowUpDrafts(ctx, app.UserID, oppID, *limit)
	if err != nil {
		return fmt.Errorf("failed to list follow-ups: %w", err)
	}
	if len(drafts) == 0 {
		_, _ = fmt.Fprintln(app.Out, "No follow-up drafts yet.")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CREATED\tOPPORTUNITY\tWAITING\tSUBJECT")
	_, _ = fmt.Fprintln(w, "-------\t-----------\t-------\t-------")
	for _, d := range drafts {
		indicator := "🟡"
		if d.DaysWaiting > 2*app.Config.FollowUpAfterDays {
			indicator = "🔴"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s %dd\t%s\n",
			d.CreatedAt.Format("2006-01-02"), d.OpportunityID, indicator, d.DaysWaiting, d.Subject)
	}
	_ = w.Flush()
	return nil
}

func draftFollowUp(ctx context.Context, app *App, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("opportunity ID required")
	}
	h := handlers.NewOpportunityHandlers(app.Store, app.Advisor, app.UserID)
	_, out, err := h.DraftFollowUp(ctx, nil, handlers.DraftFollowUpInput{OpportunityID: args[0]})
	if err != nil {
		return err
	}
	if out.Empty {
		_, _ = fmt.Fprintln(app.Out, mutedStyle.Render("No draft produced. Is OPENAI_API_KEY set?"))
		return nil
	}

	_, _ = fmt.Fprintf(app.Out, "%s\n\n%s\n", headerStyle.Render("Subject: "+out.Subject), strings.TrimSpace(out.Body))
	_, _ = fmt.Fprintln(app.Out, mutedStyle.Render(fmt.Sprintf("(%d days since the last touch)", out.DaysWaiting)))
	return nil
}
