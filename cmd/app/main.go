// File: cmd/app/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"notes-credit-ledger/internal/config"
	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/domain/ports/adapter"
	aiAdapters "notes-credit-ledger/internal/infra/adapters/ai"
	pg "notes-credit-ledger/internal/infra/db/postgres"
	"notes-credit-ledger/internal/infra/i18n"
	"notes-credit-ledger/internal/infra/logging"
	"notes-credit-ledger/internal/infra/media"
	"notes-credit-ledger/internal/infra/metrics"
	red "notes-credit-ledger/internal/infra/redis"
	"notes-credit-ledger/internal/infra/sched"
	"notes-credit-ledger/internal/infra/security"
	"notes-credit-ledger/internal/infra/web"
	"notes-credit-ledger/internal/infra/worker"
	"notes-credit-ledger/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	maxConns := cfg.Database.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	pool, err := pg.NewPool(ctx, cfg.Database.URL, maxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer func() { _ = redisClient.Close() }()
	rateLimiter := red.NewRateLimiter(redisClient)
	balanceCache := red.NewBalanceCache(redisClient, cfg.Redis.TTL)

	// ---- Encryption ----
	encKey := cfg.Security.EncryptionKey
	if len(encKey) != 32 {
		logger.Warn().Msg("security.encryption_key not set or not 32 bytes; falling back to dev key (INSECURE)")
		encKey = "0123456789abcdef0123456789abcdef"
	}
	encSvc, err := security.NewEncryptionService(encKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption")
	}

	// ---- i18n ----
	translator, err := i18n.NewTranslator(i18n.LocalesFS, cfg.I18n.DefaultLocale)
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}

	// ---- Repositories ----
	tm := pg.NewTxManager(pool, cfg.Ledger.LockTimeout)
	userRepo := pg.NewUserRepo(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPlanRepo(pool), redisClient)
	subRepo := pg.NewSubscriptionRepo(pool)
	txnRepo := pg.NewCreditTransactionRepo(pool)
	noteRepo := pg.NewNoteRepo(pool, tm)

	// ---- Use cases ----
	prober := media.NewFFprobeProber(cfg.Media.FFprobePath, cfg.Media.ProbeTimeout, logger)
	balanceUC := usecase.NewBalanceUseCase(subRepo, balanceCache, logger)
	costUC := usecase.NewCostUseCase(noteRepo, prober, model.MinutesFromFloat(cfg.Media.ImageCost), logger)
	ledgerUC := usecase.NewLedgerUseCase(userRepo, subRepo, txnRepo, tm, costUC, balanceUC, balanceCache,
		usecase.RefundPolicy(cfg.Ledger.RefundPolicy), logger)
	subUC := usecase.NewSubscriptionUseCase(userRepo, planRepo, subRepo, txnRepo, tm, balanceCache, logger)

	// ---- Transcriber ----
	transcriber, err := buildTranscriber(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("transcriber")
	}
	transcriber = aiAdapters.NewLimitedTranscriber(transcriber, cfg.Worker.Workers)

	// ---- Workers ----
	pool2 := worker.NewPool(cfg.Worker.Workers)
	pool2.Start(ctx)
	defer pool2.Stop()

	processor := worker.NewNoteProcessor(noteRepo, costUC, ledgerUC, transcriber, encSvc, cfg.Worker.MaxRetries, logger)
	go processor.Start(ctx, pool2, cfg.Worker.PollInterval)

	expiry := sched.NewExpiryWorker(cfg.Scheduler.ExpiryCheckInterval, subRepo, subUC, logger)
	go func() { _ = expiry.Run(ctx) }()

	// Feed pool gauges from pgx at a slow cadence.
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := pool.Stat()
				metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
			}
		}
	}()

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Web.JWTSecret, !cfg.Runtime.Dev, "", 30*time.Minute)
	server := web.NewServer(balanceUC, ledgerUC, subUC, noteRepo, planRepo, encSvc, translator,
		rateLimiter, auth, cfg.Web.AdminAPIKey, cfg.Web.RateLimit, logger)
	go func() {
		if err := server.Run(ctx, fmt.Sprintf(":%d", cfg.Web.Port)); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
}

// buildTranscriber picks providers per config. When both keys are present the
// configured provider goes first and the other becomes the fallback.
func buildTranscriber(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (adapter.NoteTranscriber, error) {
	var providers []adapter.NoteTranscriber

	addGemini := func() error {
		if cfg.AI.GeminiKey == "" {
			return nil
		}
		g, err := aiAdapters.NewGeminiTranscriber(ctx, cfg.AI.GeminiKey, cfg.AI.DefaultModel)
		if err != nil {
			return fmt.Errorf("gemini: %w", err)
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("transcriber: gemini")
		providers = append(providers, g)
		return nil
	}
	addOpenAI := func() error {
		if cfg.AI.OpenAIKey == "" {
			return nil
		}
		o, err := aiAdapters.NewOpenAITranscriber(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			return fmt.Errorf("openai: %w", err)
		}
		logger.Info().Msg("transcriber: openai")
		providers = append(providers, o)
		return nil
	}

	switch cfg.AI.Provider {
	case "noop":
		logger.Warn().Msg("transcriber: noop (no real notes will be generated)")
		return aiAdapters.NewNoopTranscriber(), nil
	case "openai":
		if err := addOpenAI(); err != nil {
			return nil, err
		}
		if err := addGemini(); err != nil {
			return nil, err
		}
	default: // gemini
		if err := addGemini(); err != nil {
			return nil, err
		}
		if err := addOpenAI(); err != nil {
			return nil, err
		}
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no AI provider configured: set ai.gemini_key or ai.openai_key")
	}
	if len(providers) == 1 {
		return providers[0], nil
	}
	return aiAdapters.NewFallbackTranscriber(providers...), nil
}
