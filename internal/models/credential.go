package models

import (
	"time"
)

// Credential issued by the identity provider for a single user
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"` // empty if provider did not grant offline access
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry"` // zero value means the token never expires
	Scopes       []string  `json:"scopes,omitempty"`
}

// Expired reports whether the access token is unusable at 'now'
// Leeway makes token expire a bit earlier to not send almost dead tokens to providers
func (c Credential) Expired(now time.Time, leeway time.Duration) bool {
	if c.Expiry.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(c.Expiry)
}

func (c Credential) CanRefresh() bool {
	return c.RefreshToken != ""
}

// Pending authorization request
// State is the CSRF nonce round-tripped through the provider redirect
type AuthState struct {
	State       string    `json:"state"`
	Scopes      []string  `json:"scopes,omitempty"`
	RedirectURL string    `json:"redirect_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Authorization status of the user as reported by authflow
type AuthStatus string

const (
	AuthStatusUnauthenticated  AuthStatus = "UNAUTHENTICATED"
	AuthStatusAwaitingCallback AuthStatus = "AWAITING_CALLBACK"
	AuthStatusAuthenticated    AuthStatus = "AUTHENTICATED"
)
