package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"expensetracker/internal/auth"
	"expensetracker/internal/cache"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
)

const tokenCookie = "token"

// Pinger is checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Addr      string
	RateLimit ratelimit.Config
	// SecureCookies marks the session cookie Secure; enable behind TLS.
	SecureCookies bool
	// CacheCleanupInterval defaults to 10 minutes.
	CacheCleanupInterval time.Duration
	Logger               *log.Logger
}

type Server struct {
	http.Server
	transactions  *services.TransactionService
	auth          *auth.Service
	store         Pinger
	logger        *log.Logger
	secureCookies bool
	started       time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	cacheManager     *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, transactions *services.TransactionService, authSvc *auth.Service, store Pinger) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.CacheCleanupInterval <= 0 {
		cfg.CacheCleanupInterval = 10 * time.Minute
	}

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		transactions:     transactions,
		auth:             authSvc,
		store:            store,
		logger:           logger.WithComponent(log.ComponentHTTP),
		secureCookies:    cfg.SecureCookies,
		started:          time.Now(),
		rateLimiter:      ratelimit.NewLimiter(cfg.RateLimit),
		securityDetector: security.NewDetector(),
		cacheManager:     cache.NewManager(logger),
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	s.cacheManager.Register(authSvc.UserCache())
	s.cacheManager.StartCleanup(cfg.CacheCleanupInterval)

	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/auth/me", s.requireAuth(s.handleMe))

	mux.HandleFunc("GET /api/categories", s.requireAuth(s.handleCategories))
	mux.HandleFunc("GET /api/transactions/categories", s.requireAuth(s.handleCategories))

	mux.HandleFunc("GET /api/transactions", s.requireAuth(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.requireAuth(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/summary", s.requireAuth(s.handleSummary))
	mux.HandleFunc("GET /api/transactions/monthly", s.requireAuth(s.handleMonthly))
	mux.HandleFunc("GET /api/transactions/export", s.requireAuth(s.handleExport))
	mux.HandleFunc("GET /api/transactions/{id}", s.requireAuth(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.requireAuth(s.handleUpdateTransaction))
	mux.HandleFunc("PATCH /api/transactions/{id}", s.requireAuth(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.requireAuth(s.handleDeleteTransaction))

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Route not found").Write(w)
	})

	var h http.Handler = mux
	h = s.rateLimitAPI(h)
	h = s.securityDetector.Middleware(s.logger)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.traceMiddleware.Middleware(h)
	return h
}

// rateLimitAPI applies the limiter to /api/ only, so probes are never
// throttled.
func (s *Server) rateLimitAPI(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldComponent, log.ComponentRateLimit, log.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth resolves the caller before next runs. The owner id comes only
// from the credential, never from the request body or query.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := s.auth.Resolve(r.Context(), bearerToken(r))
		if err != nil {
			s.writeError(w, r, err, "")
			return
		}
		ctx := auth.WithOwner(r.Context(), owner)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldOwner, owner))
		next(w, r.WithContext(ctx))
	}
}

// Shutdown stops background cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		s.cacheManager.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
