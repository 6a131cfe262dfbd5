// ABOUTME: ICP and account settings CLI commands
// ABOUTME: Set or show the ideal customer profile, toggle inferred paths and the outbound quota
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/handlers"
	"github.com/harperreed/introengine/icp"
)

// ICPCommand routes the icp subcommands.
func ICPCommand(ctx context.Context, app *App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("icp requires a subcommand (set, show, settings)")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "set":
		return setICP(ctx, app, rest)
	case "show":
		return showICP(ctx, app, rest)
	case "settings":
		return accountSettings(ctx, app, rest)
	default:
		return fmt.Errorf("unknown icp command: %s", sub)
	}
}

func setICP(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "icp set")
	industries := fs.String("industries", "", "Target industries, comma separated")
	minEmp := fs.Int("min-employees", -1, "Smallest headcount that fits")
	maxEmp := fs.Int("max-employees", -1, "Largest headcount that fits")
	tech := fs.String("tech", "", "Technologies a good fit uses, comma separated")
	maturity := fs.String("maturity", "", "Expected digital maturity: low, medium or high")
	locations := fs.String("locations", "", "Target locations, comma separated")
	roles := fs.String("roles", "", "Buyer roles to reach, comma separated")
	pains := fs.String("pain-points", "", "Problems the product solves")
	triggers := fs.String("triggers", "", "Events that signal readiness to buy")
	anti := fs.String("anti-criteria", "", "Who is a bad fit")
	file := fs.String("file", "", "Load the whole profile from a YAML file instead of flags")
	if err := fs.Parse(args); err != nil {
		return err
	}

	input := handlers.ICPInput{
		Industries:      splitList(*industries),
		MinEmployees:    optInt(*minEmp),
		MaxEmployees:    optInt(*maxEmp),
		Technologies:    splitList(*tech),
		DigitalMaturity: *maturity,
		Locations:       splitList(*locations),
		TargetRoles:     splitList(*roles),
		PainPoints:      *pains,
		Triggers:        *triggers,
		AntiCriteria:    *anti,
	}
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			return fmt.Errorf("failed to read profile: %w", err)
		}
		def, err := icp.ParseYAML(data)
		if err != nil {
			return err
		}
		input = handlers.ICPInput{
			Industries:      def.Industries,
			MinEmployees:    def.MinEmployees,
			MaxEmployees:    def.MaxEmployees,
			Technologies:    def.Technologies,
			DigitalMaturity: def.DigitalMaturity,
			Locations:       def.Locations,
			TargetRoles:     def.TargetRoles,
			PainPoints:      def.PainPoints,
			Triggers:        def.Triggers,
			AntiCriteria:    def.AntiCriteria,
		}
	}

	h := handlers.NewCompanyHandlers(app.Store, app.UserID)
	_, out, err := h.SetICP(ctx, nil, input)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(app.Out, okStyle.Render("✓ ICP saved"))
	printICP(app, out)
	_, _ = fmt.Fprintln(app.Out, mutedStyle.Render("Run 'introengine run' to rescore targets."))
	return nil
}

func showICP(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "icp show")
	asYAML := fs.Bool("yaml", false, "Print the profile as YAML, ready for 'icp set --file'")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *asYAML {
		def, err := app.Store.GetICP(ctx, app.UserID)
		if err != nil {
			return err
		}
		data, err := icp.MarshalYAML(def)
		if err != nil {
			return err
		}
		_, _ = app.Out.Write(data)
		return nil
	}

	h := handlers.NewCompanyHandlers(app.Store, app.UserID)
	_, out, err := h.GetICP(ctx, nil, handlers.GetICPInput{})
	if errors.Is(err, apperr.ErrNotFound) {
		_, _ = fmt.Fprintln(app.Out, "No ICP defined yet. Use 'introengine icp set' to create one.")
		return nil
	}
	if err != nil {
		return err
	}
	printICP(app, out)
	return nil
}

func printICP(app *App, out handlers.ICPOutput) {
	p := out.Profile
	field := func(label, value string) {
		if value != "" {
			_, _ = fmt.Fprintf(app.Out, "  %-16s %s\n", label+":", value)
		}
	}

	_, _ = fmt.Fprintln(app.Out, headerStyle.Render("IDEAL CUSTOMER PROFILE"))
	field("Industries", strings.Join(p.Industries, ", "))
	field("Employees", employeeRange(p.MinEmployees, p.MaxEmployees))
	field("Technologies", strings.Join(p.Technologies, ", "))
	field("Maturity", p.DigitalMaturity)
	field("Locations", strings.Join(p.Locations, ", "))
	field("Target roles", strings.Join(p.TargetRoles, ", "))
	field("Pain points", p.PainPoints)
	field("Triggers", p.Triggers)
	field("Anti-criteria", p.AntiCriteria)
	field("Updated", out.UpdatedAt)
}

func employeeRange(lo, hi *int) string {
	switch {
	case lo != nil && hi != nil:
		return fmt.Sprintf("%d-%d", *lo, *hi)
	case lo != nil:
		return fmt.Sprintf("%d+", *lo)
	case hi != nil:
		return fmt.Sprintf("up to %d", *hi)
	default:
		return ""
	}
}

func accountSettings(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "icp settings")
	name := fs.String("name", "", "Account display name")
	inferred := fs.String("allow-inferred", "", "Allow inferred intro paths: true or false")
	quota := fs.Int("outbound-quota", -1, "New outbound targets per run (0 uses the configured default)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := app.Store.GetAccountSettings(ctx, app.UserID)
	if err != nil {
		return err
	}

	changed := false
	if *name != "" {
		settings.Name = *name
		changed = true
	}
	switch strings.ToLower(*inferred) {
	case "":
	case "true", "yes", "on":
		settings.AllowInferred = true
		changed = true
	case "false", "no", "off":
		settings.AllowInferred = false
		changed = true
	default:
		return fmt.Errorf("--allow-inferred must be true or false, got %q", *inferred)
	}
	if *quota >= 0 {
		settings.OutboundQuota = *quota
		changed = true
	}

	if changed {
		if err := app.Store.SaveAccountSettings(ctx, settings); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(app.Out, okStyle.Render("✓ Settings saved"))
	}

	quotaLabel := fmt.Sprintf("%d", settings.OutboundQuota)
	if settings.OutboundQuota == 0 {
		quotaLabel = fmt.Sprintf("default (%d)", app.Config.OutboundQuota)
	}
	_, _ = fmt.Fprintf(app.Out, "Account:         %s %s\n", app.UserID, settings.Name)
	_, _ = fmt.Fprintf(app.Out, "Inferred paths:  %t\n", settings.AllowInferred)
	_, _ = fmt.Fprintf(app.Out, "Outbound quota:  %s\n", quotaLabel)
	return nil
}
