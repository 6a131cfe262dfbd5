// ABOUTME: OAuth configuration and token management for Google APIs
// ABOUTME: Handles the contacts read-only scope and token storage at XDG paths
package sync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const contactsScope = "https://www.googleapis.com/auth/contacts.readonly"

// NewOAuthConfig creates OAuth2 config for the People API from
// GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.
func NewOAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  "http://localhost:8080/oauth/callback",
		Scopes:       []string{contactsScope},
		Endpoint:     google.Endpoint,
	}
}

// OAuthConfig returns the config, or an error when credentials are missing.
func OAuthConfig() (*oauth2.Config, error) {
	config := NewOAuthConfig()
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("google OAuth credentials not configured. Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET environment variables")
	}
	return config, nil
}

// TokenPath returns XDG-compliant path for storing OAuth tokens.
func TokenPath() string {
	return filepath.Join(xdg.DataHome, "introengine", "google-credentials.json")
}

// SaveToken saves OAuth token to XDG data directory.
func SaveToken(token *oauth2.Token) error {
	return saveTokenTo(TokenPath(), token)
}

func saveTokenTo(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}

// LoadToken loads OAuth token from XDG data directory.
func LoadToken() (*oauth2.Token, error) {
	return loadTokenFrom(TokenPath())
}

func loadTokenFrom(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &token, nil
}
