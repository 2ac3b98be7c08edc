package handlers

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/nkiryanov/dailybrief/internal/handlers/middleware"
	"github.com/nkiryanov/dailybrief/internal/logger"
)

const (
	defaultRateLimit = rate.Limit(5)
	defaultRateBurst = 10
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type Config struct {
	// Set Secure flag on session cookie, enable when served over https
	SecureCookies bool

	// Requests per second and burst per client IP on /api/
	// If not set than default is used
	RateLimit rate.Limit
	RateBurst int
}

// Services behind the router, all required
type Deps struct {
	Auth       authFlow
	Dashboard  dashboardService
	Summarizer summarizer
	Sessions   middleware.SessionManager

	// Prometheus handler served on /metrics
	Metrics http.Handler
}

func NewRouter(cfg Config, deps Deps, log logger.Logger) http.Handler {
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}

	withSession := middleware.SessionMiddleware(deps.Sessions, cfg.SecureCookies)
	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)

	api := http.NewServeMux()
	api.Handle("GET /dashboard", handleDashboard(deps.Dashboard, log))
	api.Handle("POST /summarize", handleSummarize(deps.Summarizer))

	root := http.NewServeMux()
	root.Handle("GET /{$}", withSession(handleIndex(deps.Dashboard, log)))
	root.Handle("/auth/", http.StripPrefix("/auth", withSession(NewAuth(deps.Auth, log).Handler())))
	root.Handle("/api/", http.StripPrefix("/api", chain(api, limiter.Middleware, withSession)))
	root.Handle("GET /health", handleHealth())
	if deps.Metrics != nil {
		root.Handle("GET /metrics", deps.Metrics)
	}

	handler := chain(root,
		middleware.LoggerMiddleware(log),
	)

	return handler
}
