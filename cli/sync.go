// ABOUTME: Google import CLI commands
// ABOUTME: Handles OAuth setup and importing Google Contacts into the network
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"github.com/harperreed/introengine/db"
	"github.com/harperreed/introengine/sync"
	"golang.org/x/oauth2"
)

// ImportGoogleCommand routes the import-google subcommands.
func ImportGoogleCommand(ctx context.Context, app *App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("import-google requires a subcommand (init, contacts, status)")
	}
	sub := args[0]
	switch sub {
	case "init":
		return googleInit(ctx, app)
	case "contacts":
		return googleContacts(ctx, app)
	case "status":
		return googleStatus(ctx, app)
	default:
		return fmt.Errorf("unknown import-google command: %s", sub)
	}
}

// googleInit runs the browser OAuth flow and stores the token.
func googleInit(ctx context.Context, app *App) error {
	config, err := sync.OAuthConfig()
	if err != nil {
		return fmt.Errorf("failed to get OAuth config: %w", err)
	}

	// Buffered so a late callback never blocks the handler goroutine.
	callbackChan := make(chan *oauth2.Token, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no authorization code received")
			return
		}

		token, err := config.Exchange(ctx, code)
		if err != nil {
			errChan <- fmt.Errorf("failed to exchange code: %w", err)
			return
		}

		callbackChan <- token
		_, _ = fmt.Fprintf(w, "Authorization successful! You can close this window.")
	})

	server := &http.Server{Addr: ":8080", Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	authURL := config.AuthCodeURL("state", oauth2.AccessTypeOffline)

	_, _ = fmt.Fprintln(app.Out, "Opening browser for Google OAuth...")
	_, _ = fmt.Fprintf(app.Out, "\nIf browser doesn't open, visit this URL:\n%s\n\n", authURL)

	_ = openBrowser(authURL)

	select {
	case token := <-callbackChan:
		_ = server.Shutdown(ctx)

		if err := sync.SaveToken(token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}

		_, _ = fmt.Fprintf(app.Out, "\n✓ Authenticated successfully\n")
		_, _ = fmt.Fprintf(app.Out, "✓ Tokens saved to %s\n\n", sync.TokenPath())
		_, _ = fmt.Fprintln(app.Out, "Ready to import! Run 'introengine import-google contacts'.")
		return nil

	case err := <-errChan:
		_ = server.Shutdown(ctx)
		return fmt.Errorf("OAuth flow failed: %w", err)

	case <-ctx.Done():
		_ = server.Shutdown(context.Background())
		return ctx.Err()
	}
}

// googleContacts imports every Google contact, then recalculates paths so
// job changes show up as new or retired opportunities straight away.
func googleContacts(ctx context.Context, app *App) error {
	token, err := sync.LoadToken()
	if err != nil {
		return fmt.Errorf("no authentication token found. Run 'introengine import-google init' first: %w", err)
	}
	config, err := sync.OAuthConfig()
	if err != nil {
		return fmt.Errorf("failed to get OAuth config: %w", err)
	}

	client, err := sync.NewPeopleClient(ctx, config, token)
	if err != nil {
		return fmt.Errorf("failed to create People client: %w", err)
	}

	_, _ = fmt.Fprintln(app.Out, "Importing Google Contacts...")
	result, err := sync.NewContactsImporter(app.Store, app.Log).ImportContacts(ctx, app.UserID, client)
	if err != nil {
		return fmt.Errorf("contacts import failed: %w", err)
	}
	_, _ = fmt.Fprintf(app.Out, "  ✓ %d fetched, %d new, %d updated, %d skipped, %d failed\n",
		result.Fetched, result.Created, result.Updated, result.Skipped, result.Failed)

	summary, err := app.Runner.RunInference(ctx, app.UserID)
	if err != nil {
		_, _ = fmt.Fprintf(app.Out, "  %s\n", warnStyle.Render("path recalculation skipped: "+err.Error()))
		return nil
	}
	_, _ = fmt.Fprintf(app.Out, "  ✓ paths: %s\n", summary)
	return nil
}

func googleStatus(ctx context.Context, app *App) error {
	state, err := app.Store.GetSyncState(ctx, app.UserID, sync.ContactsService)
	if err != nil {
		return err
	}
	if state == nil {
		_, _ = fmt.Fprintln(app.Out, "Google Contacts: never imported")
		return nil
	}

	status := state.Status
	switch state.Status {
	case db.SyncIdle:
		status = okStyle.Render(state.Status)
	case db.SyncSyncing:
		status = warnStyle.Render(state.Status)
	case db.SyncError:
		status = errStyle.Render(state.Status)
	}
	_, _ = fmt.Fprintf(app.Out, "Google Contacts: %s\n", status)
	if state.LastSyncTime != nil {
		_, _ = fmt.Fprintf(app.Out, "  Last import: %s\n", state.LastSyncTime.Format("2006-01-02 15:04"))
	}
	if state.ErrorMessage != nil {
		_, _ = fmt.Fprintf(app.Out, "  Error: %s\n", *state.ErrorMessage)
	}
	return nil
}

// openBrowser attempts to open URL in default browser
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		cmd = "xdg-open"
		args = []string{url}
	}

	command := exec.Command(cmd, args...)
	return command.Start()
}
