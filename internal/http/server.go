package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Consumer-side views of the services the gateway dispatches to.
type (
	IdentityService interface {
		Register(ctx context.Context, email, password, name string) (services.Session, error)
		Authenticate(ctx context.Context, email, password string) (services.Session, error)
		VerifyToken(ctx context.Context, token string) (int64, error)
		Logout(ctx context.Context, token string) error
		Me(ctx context.Context, userID int64) (core.User, error)
		ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword, confirm string) (string, error)
		DeleteAccount(ctx context.Context, userID int64) error
	}

	BudgetService interface {
		Create(ctx context.Context, userID int64, nb core.NewBudget) (core.Budget, error)
		List(ctx context.Context, userID int64, f core.BudgetFilter) ([]core.Budget, error)
		Get(ctx context.Context, userID, id int64) (core.Budget, error)
		Delete(ctx context.Context, userID, id int64) error
	}

	TransactionService interface {
		Create(ctx context.Context, userID int64, nt core.NewTransaction) (core.Transaction, error)
		List(ctx context.Context, userID int64, f core.TransactionFilter) ([]core.Transaction, error)
		Delete(ctx context.Context, userID, id int64) error
	}

	CategoryService interface {
		List(ctx context.Context, typ core.TransactionType) ([]core.Category, error)
	}

	AnalyticsService interface {
		CategoryBreakdown(ctx context.Context, userID int64, r core.DateRange) ([]core.CategoryTotal, error)
		CategoryCounts(ctx context.Context, userID int64, r core.DateRange) ([]core.CategoryCount, error)
		IncomeExpenseSummary(ctx context.Context, userID int64, r core.DateRange) (core.Summary, error)
	}

	// Pinger reports whether a dependency is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// CacheStats is implemented by cache.LRUCache.
	CacheStats interface {
		Stats() cache.Stats
		Size() int
	}
)

// Services bundles the handlers' dependencies.
type Services struct {
	Identity     IdentityService
	Budgets      BudgetService
	Transactions TransactionService
	Categories   CategoryService
	Analytics    AnalyticsService
}

type Options struct {
	Logger             *log.Logger
	AllowedOrigins     []string
	RateLimitPerMinute int
	// Ready is pinged by /readyz; nil means always ready.
	Ready Pinger
	// Caches are reported by /metrics under their map key.
	Caches map[string]CacheStats
}

type Server struct {
	http.Server

	svc     Services
	opts    Options
	logger  *log.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	guard   *security.Detector

	shutdownOnce sync.Once
}

// NewServer wires the router and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	guard := security.NewDetector()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		svc:     svc,
		opts:    opts,
		logger:  opts.Logger,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:  trace.NewMiddleware(guard.ExtractClientIP),
		guard:   guard,
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(log.Middleware(s.logger))
	r.Use(s.tracer.Middleware)
	r.Use(s.guard.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", trace.HeaderRequestID},
		ExposedHeaders:   []string{trace.HeaderRequestID},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.With(s.requireAuth).Get("/metrics", s.handleMetrics)

	limited := s.limiter.Middleware(s.guard.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(),
			"Rate limit exceeded", log.FieldPath, r.URL.Path)
		writeMessage(w, http.StatusTooManyRequests, "too many requests")
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(a chi.Router) {
			a.Use(log.ComponentMiddleware(log.ComponentIdentity))
			a.With(limited).Post("/register", s.handleRegister)
			a.With(limited).Post("/login", s.handleLogin)
			a.Group(func(p chi.Router) {
				p.Use(s.requireAuth)
				p.Post("/logout", s.handleLogout)
				p.Get("/me", s.handleMe)
				p.With(limited).Post("/change-password", s.handleChangePassword)
				p.Delete("/delete-account", s.handleDeleteAccount)
			})
		})

		api.Group(func(p chi.Router) {
			p.Use(s.requireAuth)

			p.Route("/budget", func(b chi.Router) {
				b.Use(log.ComponentMiddleware(log.ComponentBudget))
				b.Get("/", s.handleListBudgets)
				b.Post("/", s.handleCreateBudget)
				b.Get("/{id}", s.handleGetBudget)
				b.Delete("/{id}", s.handleDeleteBudget)
			})

			p.Route("/categories", func(c chi.Router) {
				c.Get("/", s.handleListCategories)
				c.With(log.ComponentMiddleware(log.ComponentAnalytics)).Get("/counts", s.handleCategoryCounts)
			})

			p.Route("/transactions", func(t chi.Router) {
				t.Use(log.ComponentMiddleware(log.ComponentTransaction))
				t.Get("/", s.handleListTransactions)
				t.Post("/", s.handleCreateTransaction)
				t.Delete("/{id}", s.handleDeleteTransaction)
				t.Route("/analytics", func(a chi.Router) {
					a.Use(log.ComponentMiddleware(log.ComponentAnalytics))
					a.Get("/categories", s.handleCategoryBreakdown)
					a.Get("/summary", s.handleSummary)
				})
			})
		})
	})

	return r
}

// Shutdown stops background helpers and drains the HTTP server. It runs
// once; later calls return nil.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
