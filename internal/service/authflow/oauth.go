package authflow

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Read-only access to the user's calendar
const ScopeCalendarReadonly = "https://www.googleapis.com/auth/calendar.readonly"

// Google OAuth client settings
// Client secrets file (credentials.json downloaded from Google console) wins over id and secret
type ClientConfig struct {
	SecretsFile  string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// NewOAuthConfig builds Google OAuth config
func NewOAuthConfig(cfg ClientConfig) (*oauth2.Config, error) {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{ScopeCalendarReadonly}
	}

	var oauthCfg *oauth2.Config

	switch {
	case cfg.SecretsFile != "":
		data, err := os.ReadFile(cfg.SecretsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read client secrets file: %w", err)
		}
		oauthCfg, err = google.ConfigFromJSON(data, cfg.Scopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse client secrets file: %w", err)
		}
	case cfg.ClientID != "":
		oauthCfg = &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       cfg.Scopes,
		}
	default:
		return nil, errors.New("either client secrets file or client id must be set")
	}

	if cfg.RedirectURL != "" {
		oauthCfg.RedirectURL = cfg.RedirectURL
	}

	return oauthCfg, nil
}
