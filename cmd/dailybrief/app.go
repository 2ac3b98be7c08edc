package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nkiryanov/dailybrief/internal/db"
	"github.com/nkiryanov/dailybrief/internal/handlers"
	"github.com/nkiryanov/dailybrief/internal/logger"
	"github.com/nkiryanov/dailybrief/internal/metrics"
	"github.com/nkiryanov/dailybrief/internal/repository"
	"github.com/nkiryanov/dailybrief/internal/repository/filestore"
	"github.com/nkiryanov/dailybrief/internal/repository/memory"
	"github.com/nkiryanov/dailybrief/internal/repository/postgres"
	"github.com/nkiryanov/dailybrief/internal/secret"
	"github.com/nkiryanov/dailybrief/internal/service/authflow"
	"github.com/nkiryanov/dailybrief/internal/service/calendar"
	"github.com/nkiryanov/dailybrief/internal/service/dashboard"
	"github.com/nkiryanov/dailybrief/internal/service/news"
	"github.com/nkiryanov/dailybrief/internal/service/session"
	"github.com/nkiryanov/dailybrief/internal/service/summarizer"
	"github.com/nkiryanov/dailybrief/internal/service/weather"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
	closer func()
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("error while loading timezone. Err: %w", err)
	}

	cipher, err := secret.NewCipher(c.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("error while creating cipher. Err: %w", err)
	}

	storage, closer, err := newStorage(ctx, c, cipher)
	if err != nil {
		return nil, err
	}

	app, err := newServerApp(c, storage, loc, log)
	if err != nil {
		closer()
		return nil, err
	}
	app.closer = closer

	return app, nil
}

func newStorage(ctx context.Context, c *Config, cipher *secret.Cipher) (repository.Storage, func(), error) {
	noop := func() {}

	switch c.Storage {
	case StorageMemory:
		return memory.NewStorage(), noop, nil
	case StoragePostgres:
		// Connect to the database and run migrations
		pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("error while connecting to db. Err: %w", err)
		}
		storage, err := postgres.NewStorage(pool, cipher)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("error while creating postgres storage. Err: %w", err)
		}
		return storage, pool.Close, nil
	case StorageFile:
		storage, err := filestore.NewStorage(c.DataDir, cipher)
		if err != nil {
			return nil, nil, fmt.Errorf("error while creating file storage. Err: %w", err)
		}
		return storage, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage %q", c.Storage)
	}
}

func newServerApp(c *Config, storage repository.Storage, loc *time.Location, log logger.Logger) (*ServerApp, error) {
	m := metrics.New()

	oauthCfg, err := authflow.NewOAuthConfig(authflow.ClientConfig{
		SecretsFile:  c.ClientSecretsFile,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating oauth config. Err: %w", err)
	}

	// Initialize services
	authFlow, err := authflow.New(authflow.Config{OAuth: oauthCfg, Metrics: m}, storage, log.With("component", "authflow"))
	if err != nil {
		return nil, fmt.Errorf("error while creating auth flow. Err: %w", err)
	}
	sessions, err := session.New(session.Config{SecretKey: c.SecretKey})
	if err != nil {
		return nil, fmt.Errorf("error while creating session manager. Err: %w", err)
	}

	events := calendar.New(calendar.Config{Location: loc}, log.With("component", "calendar"))
	headlines := news.NewClient(news.Config{APIKey: c.NewsAPIKey}, log.With("component", "news"))
	forecast := weather.NewClient(weather.Config{APIKey: c.WeatherAPIKey}, log.With("component", "weather"))
	summary := summarizer.NewClient(summarizer.Config{
		URL:     c.SummarizerURL,
		Token:   c.SummarizerToken,
		Metrics: m,
	}, log.With("component", "summarizer"))

	dash, err := dashboard.New(dashboard.Config{
		DefaultCity: c.DefaultCity,
		Country:     c.NewsCountry,
		Location:    loc,
		Metrics:     m,
	}, dashboard.Deps{
		Auth:       authFlow,
		Events:     events,
		News:       headlines,
		Weather:    forecast,
		Summarizer: summary,
	}, log.With("component", "dashboard"))
	if err != nil {
		return nil, fmt.Errorf("error while creating dashboard. Err: %w", err)
	}

	mux := handlers.NewRouter(handlers.Config{
		SecureCookies: isHTTPS(c.RedirectURL),
	}, handlers.Deps{
		Auth:       authFlow,
		Dashboard:  dash,
		Summarizer: summary,
		Sessions:   sessions,
		Metrics:    m.Handler(),
	}, log)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     log,
		closer:     func() {},
	}, nil
}

// Session cookie gets Secure flag only when the app is reached over https
func isHTTPS(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && u.Scheme == "https"
}

// Run starts http server and closes gracefully on context cancellation
// Returns nil when stopped by the context
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.closer()

	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
