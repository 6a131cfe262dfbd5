// ABOUTME: Visualization CLI commands
// ABOUTME: Handles viz dashboard and graph generation commands
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/viz"
)

// VizCommand routes the viz subcommands.
func VizCommand(ctx context.Context, app *App, args []string) error {
	if len(args) == 0 {
		return vizDashboard(ctx, app)
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "dashboard":
		return vizDashboard(ctx, app)
	case "paths":
		return vizPaths(ctx, app, rest)
	case "contact":
		return vizContact(ctx, app, rest)
	default:
		return fmt.Errorf("unknown viz command: %s", sub)
	}
}

func vizDashboard(ctx context.Context, app *App) error {
	staleAfter := time.Duration(app.Config.FollowUpAfterDays) * 24 * time.Hour
	stats, err := viz.GenerateDashboardStats(ctx, app.Store, app.UserID, app.Config.ICPMinScore, staleAfter, time.Now())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprint(app.Out, viz.RenderDashboard(stats))
	return nil
}

// vizPaths renders every intro path, or only those into one target.
func vizPaths(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "viz paths")
	target := fs.String("target", "", "Only paths into this company ID")
	output := fs.String("output", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var targetID *uuid.UUID
	if *target != "" {
		id, err := uuid.Parse(*target)
		if err != nil {
			return fmt.Errorf("invalid company ID: %w", err)
		}
		targetID = &id
	}

	dot, err := viz.NewGraphGenerator(app.Store).GeneratePathGraph(ctx, app.UserID, targetID)
	if err != nil {
		return err
	}
	return writeDOT(app, *output, dot)
}

func vizContact(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "viz contact")
	output := fs.String("output", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("contact ID required")
	}
	contactID, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid contact ID: %w", err)
	}

	dot, err := viz.NewGraphGenerator(app.Store).GenerateContactGraph(ctx, app.UserID, contactID)
	if err != nil {
		return err
	}
	return writeDOT(app, *output, dot)
}

func writeDOT(app *App, path, dot string) error {
	if path != "" {
		return os.WriteFile(path, []byte(dot), 0644)
	}
	_, _ = fmt.Fprintln(app.Out, dot)
	return nil
}
