// ABOUTME: Network CLI commands
// ABOUTME: Add contacts and companies, log interactions, list what the engine knows about
package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/handlers"
)

// NetCommand routes the net subcommands.
func NetCommand(ctx context.Context, app *App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("net requires a subcommand (add-contact, add-company, log, contacts, companies, remove-contact)")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "add-contact":
		return addContact(ctx, app, rest)
	case "add-company":
		return addCompany(ctx, app, rest)
	case "log":
		return logInteraction(ctx, app, rest)
	case "contacts":
		return listContacts(ctx, app, rest)
	case "companies":
		return listCompanies(ctx, app, rest)
	case "remove-contact":
		return removeContact(ctx, app, rest)
	default:
		return fmt.Errorf("unknown net command: %s", sub)
	}
}

// historyFlag collects repeated --worked-at values of the form
// "Company[@domain][:title][:start-end]".
type historyFlag []handlers.EmploymentInput

func (h *historyFlag) String() string { return fmt.Sprintf("%d entries", len(*h)) }

func (h *historyFlag) Set(v string) error {
	e, err := parseEmployment(v)
	if err != nil {
		return err
	}
	*h = append(*h, e)
	return nil
}

func parseEmployment(v string) (handlers.EmploymentInput, error) {
	parts := strings.Split(v, ":")
	company := strings.TrimSpace(parts[0])
	if company == "" {
		return handlers.EmploymentInput{}, fmt.Errorf("worked-at needs a company: %q", v)
	}
	e := handlers.EmploymentInput{Company: company}
	if name, domain, ok := strings.Cut(company, "@"); ok {
		e.Company, e.Domain = strings.TrimSpace(name), strings.TrimSpace(domain)
	}

	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		start, end, _ := strings.Cut(p, "-")
		if !yearOrEmpty(start) || !yearOrEmpty(end) || start+end == "" {
			e.Title = p
			continue
		}
		var err error
		if e.StartYear, err = optYear(start); err != nil {
			return e, err
		}
		if e.EndYear, err = optYear(end); err != nil {
			return e, err
		}
	}
	return e, nil
}

func yearOrEmpty(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	n, err := strconv.Atoi(s)
	return err == nil && n > 1900 && n < 3000
}

func optYear(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid year %q", s)
	}
	return &n, nil
}

// optInt turns a -1 "unset" flag value into nil.
func optInt(v int) *int {
	if v < 0 {
		return nil
	}
	return &v
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newFlagSet(app *App, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(app.Out)
	return fs
}

func addContact(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "add-contact")
	name := fs.String("name", "", "Contact name (required)")
	email := fs.String("email", "", "Email address")
	linkedin := fs.String("linkedin", "", "LinkedIn profile URL")
	company := fs.String("company", "", "Current employer")
	domain := fs.String("domain", "", "Current employer domain")
	title := fs.String("title", "", "Current job title")
	strength := fs.Int("strength", -1, "How well you know them, 0-100 (default 50)")
	var history historyFlag
	fs.Var(&history, "worked-at", "Past employer as Company[@domain][:title][:start-end], repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	h := handlers.NewContactHandlers(app.Store, app.UserID)
	_, out, err := h.AddContact(ctx, nil, handlers.AddContactInput{
		Name:          *name,
		Email:         *email,
		LinkedIn:      *linkedin,
		Company:       *company,
		CompanyDomain: *domain,
		Title:         *title,
		History:       history,
		Strength:      optInt(*strength),
	})
	if err != nil {
		return err
	}

	verb := "Updated"
	if out.Created {
		verb = "Created"
	}
	_, _ = fmt.Fprintf(app.Out, "%s contact: %s (ID: %s, strength %d)\n", verb, out.Name, out.ID, out.Strength)
	return nil
}

func addCompany(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "add-company")
	name := fs.String("name", "", "Company name (required)")
	domain := fs.String("domain", "", "Company domain")
	industry := fs.String("industry", "", "Industry")
	employees := fs.Int("employees", -1, "Headcount")
	tech := fs.String("tech", "", "Technologies in use, comma separated")
	location := fs.String("location", "", "Headquarters location")
	maturity := fs.String("maturity", "", "Digital maturity: low, medium or high")
	signals := fs.String("signals", "", "Buying signals as kind=strength, comma separated")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		return fmt.Errorf("--name is required")
	}
	parsedSignals, err := parseSignals(*signals)
	if err != nil {
		return err
	}

	h := handlers.NewCompanyHandlers(app.Store, app.UserID)
	_, out, err := h.AddCompany(ctx, nil, handlers.AddCompanyInput{
		Name:            *name,
		Domain:          *domain,
		Industry:        *industry,
		Employees:       optInt(*employees),
		Technologies:    splitList(*tech),
		Location:        *location,
		DigitalMaturity: *maturity,
		Signals:         parsedSignals,
	})
	if err != nil {
		return err
	}

	verb := "Updated"
	if out.Created {
		verb = "Created"
	}
	_, _ = fmt.Fprintf(app.Out, "%s company: %s (ID: %s)\n", verb, out.Name, out.ID)
	return nil
}

func parseSignals(s string) ([]handlers.SignalInput, error) {
	var out []handlers.SignalInput
	for _, item := range splitList(s) {
		kind, raw, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("signal %q must be kind=strength", item)
		}
		strength, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("signal %q: invalid strength: %w", item, err)
		}
		out = append(out, handlers.SignalInput{Kind: strings.TrimSpace(kind), Strength: strength})
	}
	return out, nil
}

func logInteraction(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "log")
	kind := fs.String("type", "meeting", "Interaction type: meeting, call, email, message or event")
	notes := fs.String("notes", "", "What happened")
	at := fs.String("at", "", "When it happened, RFC3339 (default now)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("contact ID required")
	}

	h := handlers.NewContactHandlers(app.Store, app.UserID)
	_, out, err := h.RecordInteraction(ctx, nil, handlers.RecordInteractionInput{
		ContactID: fs.Arg(0),
		Type:      *kind,
		Notes:     *notes,
		Timestamp: *at,
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(app.Out, "Logged %s: strength now %d after %d interactions\n", *kind, out.Strength, out.InteractionCount)
	return nil
}

func listContacts(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "contacts")
	company := fs.String("company", "", "Filter by current employer")
	if err := fs.Parse(args); err != nil {
		return err
	}

	contacts, err := app.Store.GetContacts(ctx, app.UserID)
	if err != nil {
		return fmt.Errorf("failed to list contacts: %w", err)
	}
	conns, err := app.Store.GetConnections(ctx, app.UserID)
	if err != nil {
		return fmt.Errorf("failed to load connections: %w", err)
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCOMPANY\tTITLE\tSTRENGTH\tPAST EMPLOYERS")
	_, _ = fmt.Fprintln(w, "--\t----\t-------\t-----\t--------\t--------------")
	shown := 0
	for _, c := range contacts {
		if *company != "" && !strings.EqualFold(c.CurrentCompany, *company) {
			continue
		}
		strength := "-"
		if conn, ok := conns[c.ID]; ok {
			strength = strconv.Itoa(conn.Strength)
		}
		past := make([]string, 0, len(c.History))
		for _, h := range c.History {
			past = append(past, h.Company)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Name, c.CurrentCompany, c.Title, strength, strings.Join(past, ", "))
		shown++
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(app.Out, "\n%d contacts\n", shown)
	return nil
}

func listCompanies(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "companies")
	minICP := fs.Int("min-icp", 0, "Only companies with at least this ICP score")
	if err := fs.Parse(args); err != nil {
		return err
	}

	companies, err := app.Store.GetCompanies(ctx, app.UserID)
	if err != nil {
		return fmt.Errorf("failed to list companies: %w", err)
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tDOMAIN\tINDUSTRY\tSIZE\tICP")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t--------\t----\t---")
	for _, c := range companies {
		if c.ICPScore < *minICP {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Name, c.Domain, c.Industry, c.SizeBucket(), scoreBadge(c.ICPScore))
	}
	_ = w.Flush()
	return nil
}

func removeContact(ctx context.Context, app *App, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("contact ID required")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid contact ID: %w", err)
	}
	if err := app.Store.SoftDeleteContact(ctx, app.UserID, id); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(app.Out, "Removed contact %s; their intro paths retire on the next run\n", id)
	return nil
}
