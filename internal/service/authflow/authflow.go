package authflow

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/nkiryanov/dailybrief/internal/apperrors"
	"github.com/nkiryanov/dailybrief/internal/logger"
	"github.com/nkiryanov/dailybrief/internal/models"
	"github.com/nkiryanov/dailybrief/internal/repository"
)

const (
	defaultStateTTL       = 10 * time.Minute
	defaultRefreshTimeout = 30 * time.Second
	stateBytes            = 32
)

type observer interface {
	ObserveRefresh(err error)
	ObserveAuthorization(err error)
}

type noopObserver struct{}

func (noopObserver) ObserveRefresh(error)       {}
func (noopObserver) ObserveAuthorization(error) {}

// Authorization flow controller with sensible defaults
type Config struct {
	// OAuth client config: endpoints, client id and secret, redirect url, default scopes
	// Required to be set
	OAuth *oauth2.Config

	// How long pending authorization state is accepted by Complete
	// If not set than default is used
	StateTTL time.Duration

	// Credential treated as expired that much earlier than its expiry
	Leeway time.Duration

	// Upper bound of one refresh call, it does not depend on the caller's context
	// If not set than default is used
	RefreshTimeout time.Duration

	// Clock, time.Now if not set
	Now func() time.Time

	// Client used to call provider token endpoint
	// If not set than http.DefaultClient is used
	HTTPClient *http.Client

	Metrics observer
}

// Controller drives user through UNAUTHENTICATED -> AWAITING_CALLBACK -> AUTHENTICATED
type Controller struct {
	oauth      *oauth2.Config
	stateTTL   time.Duration
	leeway     time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	httpClient *http.Client
	metrics    observer

	credentials repository.CredentialRepo
	states      repository.StateRepo
	logger      logger.Logger

	// Refreshes of the same user run once at a time
	refreshes singleflight.Group
}

func New(cfg Config, storage repository.Storage, log logger.Logger) (*Controller, error) {
	if cfg.OAuth == nil {
		return nil, errors.New("oauth config must be set")
	}
	if storage == nil {
		return nil, errors.New("storage must be set")
	}

	if cfg.StateTTL == 0 {
		cfg.StateTTL = defaultStateTTL
	}
	if cfg.RefreshTimeout == 0 {
		cfg.RefreshTimeout = defaultRefreshTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopObserver{}
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Controller{
		oauth:       cfg.OAuth,
		stateTTL:    cfg.StateTTL,
		leeway:      cfg.Leeway,
		refreshTTL:  cfg.RefreshTimeout,
		now:         cfg.Now,
		httpClient:  cfg.HTTPClient,
		metrics:     cfg.Metrics,
		credentials: storage.Credential(),
		states:      storage.State(),
		logger:      log,
	}, nil
}

// Begin starts authorization: persists fresh nonce and returns url the user has to visit
// Previous pending state of the user (if any) is replaced
func (c *Controller) Begin(ctx context.Context, userID uuid.UUID, scopes ...string) (string, error) {
	if len(scopes) == 0 {
		scopes = c.oauth.Scopes
	}

	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error while generating state. Err: %w", err)
	}
	nonce := hex.EncodeToString(b)

	err := c.states.SaveState(ctx, userID, models.AuthState{
		State:       nonce,
		Scopes:      scopes,
		RedirectURL: c.oauth.RedirectURL,
		CreatedAt:   c.now(),
	})
	if err != nil {
		return "", fmt.Errorf("error while saving state. Err: %w", err)
	}

	cfg := *c.oauth
	cfg.Scopes = scopes

	return cfg.AuthCodeURL(
		nonce,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

// Complete handles provider callback
// Pending state is consumed before anything else, so it never used twice
func (c *Controller) Complete(ctx context.Context, userID uuid.UUID, code string, state string) (cred models.Credential, err error) {
	if code == "" {
		return cred, apperrors.ErrMissingCode
	}

	defer func() { c.metrics.ObserveAuthorization(err) }()

	pending, err := c.states.PopState(ctx, userID)
	switch {
	case errors.Is(err, apperrors.ErrStateNotFound):
		return cred, fmt.Errorf("no pending authorization: %w", apperrors.ErrCsrfMismatch)
	case err != nil:
		return cred, fmt.Errorf("error while reading state. Err: %w", err)
	}

	if c.now().Sub(pending.CreatedAt) > c.stateTTL {
		return cred, fmt.Errorf("authorization state expired: %w", apperrors.ErrCsrfMismatch)
	}
	if subtle.ConstantTimeCompare([]byte(pending.State), []byte(state)) != 1 {
		return cred, apperrors.ErrCsrfMismatch
	}

	token, err := c.oauth.Exchange(c.withClient(ctx), code)
	if err != nil {
		return cred, fmt.Errorf("%w: %w", apperrors.ErrTokenExchange, err)
	}
	if token.AccessToken == "" {
		return cred, fmt.Errorf("%w: provider returned empty access token", apperrors.ErrTokenExchange)
	}

	cred = toCredential(token, pending.Scopes)
	if err := c.credentials.Save(ctx, userID, cred); err != nil {
		return models.Credential{}, fmt.Errorf("error while saving credential. Err: %w", err)
	}

	c.logger.Info("user authorized", "user_id", userID)
	return cred, nil
}

// EnsureValid returns credential usable for provider calls
// Expired credential is refreshed once, rejected refresh clears it and is never retried
// Refresh that did not reach the provider keeps the credential for the next call
func (c *Controller) EnsureValid(ctx context.Context, userID uuid.UUID) (models.Credential, error) {
	cred, err := c.load(ctx, userID)
	if err != nil {
		return cred, err
	}

	if !cred.Expired(c.now(), c.leeway) {
		return cred, nil
	}

	if !cred.CanRefresh() {
		if err := c.credentials.Clear(ctx, userID); err != nil {
			return models.Credential{}, fmt.Errorf("error while clearing credential. Err: %w", err)
		}
		return models.Credential{}, fmt.Errorf("credential expired and can't be refreshed: %w", apperrors.ErrNotAuthenticated)
	}

	// Flight is shared by all waiters of the user, so it must not stop when its starter goes away
	flight := c.refreshes.DoChan(userID.String(), func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTTL)
		defer cancel()
		return c.refresh(flightCtx, userID)
	})

	select {
	case <-ctx.Done():
		return models.Credential{}, fmt.Errorf("%w: waiting for token refresh: %w", apperrors.ErrProviderUnavailable, ctx.Err())
	case res := <-flight:
		if res.Err != nil {
			return models.Credential{}, res.Err
		}
		return res.Val.(models.Credential), nil
	}
}

// Revoke forgets user credential
func (c *Controller) Revoke(ctx context.Context, userID uuid.UUID) error {
	if err := c.credentials.Clear(ctx, userID); err != nil {
		return fmt.Errorf("error while clearing credential. Err: %w", err)
	}
	c.logger.Info("user credential revoked", "user_id", userID)
	return nil
}

// Status reports where the user is in the authorization flow
func (c *Controller) Status(ctx context.Context, userID uuid.UUID) (models.AuthStatus, error) {
	cred, err := c.load(ctx, userID)
	switch {
	case err == nil && (!cred.Expired(c.now(), c.leeway) || cred.CanRefresh()):
		return models.AuthStatusAuthenticated, nil
	case err != nil && !errors.Is(err, apperrors.ErrNotAuthenticated):
		return "", err
	}

	pending, err := c.states.PeekState(ctx, userID)
	switch {
	case errors.Is(err, apperrors.ErrStateNotFound):
		return models.AuthStatusUnauthenticated, nil
	case err != nil:
		return "", fmt.Errorf("error while reading state. Err: %w", err)
	case c.now().Sub(pending.CreatedAt) > c.stateTTL:
		return models.AuthStatusUnauthenticated, nil
	default:
		return models.AuthStatusAwaitingCallback, nil
	}
}

func (c *Controller) load(ctx context.Context, userID uuid.UUID) (models.Credential, error) {
	cred, err := c.credentials.Load(ctx, userID)
	switch {
	case errors.Is(err, apperrors.ErrCredentialNotFound):
		return cred, fmt.Errorf("%w: %w", apperrors.ErrNotAuthenticated, err)
	case err != nil:
		return cred, fmt.Errorf("error while loading credential. Err: %w", err)
	}
	return cred, nil
}

func (c *Controller) refresh(ctx context.Context, userID uuid.UUID) (cred models.Credential, err error) {
	// Concurrent flight may have refreshed credential already
	cred, err = c.load(ctx, userID)
	if err != nil {
		return cred, err
	}
	if !cred.Expired(c.now(), c.leeway) {
		return cred, nil
	}

	defer func() { c.metrics.ObserveRefresh(err) }()

	// Token without access token is invalid, so token source goes to provider straight away
	src := c.oauth.TokenSource(c.withClient(ctx), &oauth2.Token{RefreshToken: cred.RefreshToken})
	token, err := src.Token()
	if err != nil && notDelivered(err) {
		c.logger.Warn("token refresh did not reach provider, credential kept", "user_id", userID, "error", err)
		return models.Credential{}, fmt.Errorf("%w: token refresh: %w", apperrors.ErrProviderUnavailable, err)
	}
	if err != nil {
		c.logger.Warn("token refresh failed, credential cleared", "user_id", userID, "error", err)
		if clearErr := c.credentials.Clear(ctx, userID); clearErr != nil {
			return models.Credential{}, fmt.Errorf("error while clearing credential. Err: %w", clearErr)
		}
		return models.Credential{}, fmt.Errorf("%w: %w: %w", apperrors.ErrNotAuthenticated, apperrors.ErrRefreshFailed, err)
	}

	refreshed := toCredential(token, cred.Scopes)
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = cred.RefreshToken
	}

	if err := c.credentials.Save(ctx, userID, refreshed); err != nil {
		return models.Credential{}, fmt.Errorf("error while saving credential. Err: %w", err)
	}

	c.logger.Debug("access token refreshed", "user_id", userID, "expiry", refreshed.Expiry)
	return refreshed, nil
}

// notDelivered reports refresh errors that carry no provider verdict on the grant:
// cancelled or timed out context and transport failures
func notDelivered(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func (c *Controller) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// Granted scopes come in 'scope' field, requested ones used if provider omitted it
func toCredential(token *oauth2.Token, requested []string) models.Credential {
	scopes := requested
	if granted, ok := token.Extra("scope").(string); ok && granted != "" {
		scopes = strings.Fields(granted)
	}

	return models.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
		Expiry:       token.Expiry,
		Scopes:       scopes,
	}
}
