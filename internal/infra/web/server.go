package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"notes-credit-ledger/internal/domain/ports/repository"
	"notes-credit-ledger/internal/infra/i18n"
	red "notes-credit-ledger/internal/infra/redis"
	"notes-credit-ledger/internal/infra/security"
	"notes-credit-ledger/internal/usecase"
)

// Server exposes the credit API: balance and transaction reads for users,
// subscription activation and bonus grants for admins.
type Server struct {
	balanceUC  *usecase.BalanceUseCase
	ledgerUC   *usecase.LedgerUseCase
	subUC      *usecase.SubscriptionUseCase
	noteRepo   repository.NoteRepository
	planRepo   repository.PlanRepository
	enc        *security.EncryptionService
	translator *i18n.Translator
	limiter    *red.RateLimiter
	auth       *AuthManager
	apiKey     string
	rateLimit  int
	log        *zerolog.Logger
}

func NewServer(
	balanceUC *usecase.BalanceUseCase,
	ledgerUC *usecase.LedgerUseCase,
	subUC *usecase.SubscriptionUseCase,
	noteRepo repository.NoteRepository,
	planRepo repository.PlanRepository,
	enc *security.EncryptionService,
	translator *i18n.Translator,
	limiter *red.RateLimiter,
	auth *AuthManager,
	apiKey string,
	rateLimit int,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "web").Logger()
	return &Server{
		balanceUC:  balanceUC,
		ledgerUC:   ledgerUC,
		subUC:      subUC,
		noteRepo:   noteRepo,
		planRepo:   planRepo,
		enc:        enc,
		translator: translator,
		limiter:    limiter,
		auth:       auth,
		apiKey:     apiKey,
		rateLimit:  rateLimit,
		log:        &l,
	}
}

// Router builds the full route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plans", s.plansListHandler)

		r.Post("/admin/auth/login", s.loginHandler)
		r.Post("/admin/auth/logout", s.logoutHandler)

		// User routes: bearer token, rate limited per user and route.
		r.Group(func(r chi.Router) {
			r.Use(s.userAuthMiddleware)
			r.Use(s.rateLimitMiddleware)
			r.Get("/credits/balance", s.balanceHandler)
			r.Get("/credits/transactions", s.transactionsHandler)
			r.Get("/notes/{id}", s.noteGetHandler)
			r.Get("/notes/{id}/credit-check", s.creditCheckHandler)
		})

		// Admin routes: session cookie or admin JWT.
		r.Group(func(r chi.Router) {
			r.Use(s.adminAuthMiddleware)
			r.Post("/admin/subscriptions/activate", s.activateSubscriptionHandler)
			r.Post("/admin/subscriptions/{id}/cancel", s.cancelSubscriptionHandler)
			r.Post("/admin/credits/bonus", s.bonusHandler)
			r.Post("/admin/plans", s.planCreateHandler)
		})
	})
	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type ctxKey string

const ctxUserID ctxKey = "user_id"

func userIDFrom(r *http.Request) string {
	if v := r.Context().Value(ctxUserID); v != nil {
		return v.(string)
	}
	return ""
}

func (s *Server) userAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			s.log.Error().Msg("auth manager is not configured")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		userID, err := s.auth.ParseUserFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUserID, userID)))
	})
}

func (s *Server) adminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			s.log.Error().Msg("auth manager is not configured")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware applies a fixed-window limit per user and route. Redis
// being unreachable fails open: serving without a limit beats serving 500s.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || s.rateLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		key := red.ClientRouteKey(userIDFrom(r), r.URL.Path)
		ok, err := s.limiter.Allow(r.Context(), key, s.rateLimit, time.Minute)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
