// ABOUTME: Pipeline CLI commands
// ABOUTME: One-off stage runs for the current account and the recurring scheduler for all accounts
package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/harperreed/introengine/handlers"
	"github.com/harperreed/introengine/models"
	"github.com/harperreed/introengine/pipeline"
)

// RunCommand runs one pipeline stage for the current account.
func RunCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "run")
	stage := fs.String("stage", models.StageFull, "Stage: inference, outbound, scoring, followup or full")
	history := fs.Bool("history", false, "Show recent runs instead of running")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *history {
		return listRuns(ctx, app)
	}

	summary, err := handlers.RunStage(ctx, app.Runner, app.UserID, *stage)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(app.Out, "%s %s: %s\n", okStyle.Render("✓"), *stage, summary)
	return nil
}

func listRuns(ctx context.Context, app *App) error {
	runs, err := app.Store.ListRuns(ctx, app.UserID, 20)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(app.Out, "No runs yet.")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STARTED\tSTAGE\tSTATUS\tSUMMARY")
	_, _ = fmt.Fprintln(w, "-------\t-----\t------\t-------")
	for _, r := range runs {
		status := r.Status
		switch r.Status {
		case models.RunStatusSucceeded:
			status = okStyle.Render(r.Status)
		case models.RunStatusFailed:
			status = errStyle.Render(r.Status)
		case models.RunStatusRejected:
			status = warnStyle.Render(r.Status)
		}
		detail := r.Summary
		if r.Error != "" {
			detail = r.Error
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.StartedAt.Format("2006-01-02 15:04"), r.Stage, status, detail)
	}
	_ = w.Flush()
	return nil
}

// ScheduleCommand re-evaluates every account on the configured intervals
// until interrupted. With --once it makes a single pass and exits.
func ScheduleCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "schedule")
	once := fs.Bool("once", false, "Run every account once and exit")
	followUps := fs.Bool("followups", true, "Include follow-up drafting in a --once pass")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := app.Config
	scheduler := pipeline.NewScheduler(app.Runner, app.Store,
		cfg.ScheduleInterval, cfg.FollowUpInterval, cfg.Parallelism, app.Log)

	if *once {
		if err := scheduler.RunOnce(ctx, *followUps); err != nil {
			return fmt.Errorf("scheduled pass failed: %w", err)
		}
		_, _ = fmt.Fprintln(app.Out, okStyle.Render("✓ All accounts processed"))
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, _ = fmt.Fprintf(app.Out, "Scheduler running every %s (follow-ups every %s). Ctrl-C to stop.\n",
		cfg.ScheduleInterval, cfg.FollowUpInterval)
	return scheduler.Run(ctx)
}
