// File: cmd/app/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/config"
	"commerce-chat-bot/internal/domain/fsm"
	"commerce-chat-bot/internal/domain/ports/adapter"
	"commerce-chat-bot/internal/infra/adapters/ai"
	"commerce-chat-bot/internal/infra/adapters/messenger"
	"commerce-chat-bot/internal/infra/adapters/shop"
	pg "commerce-chat-bot/internal/infra/db/postgres"
	"commerce-chat-bot/internal/infra/logging"
	"commerce-chat-bot/internal/infra/metrics"
	"commerce-chat-bot/internal/infra/queue"
	red "commerce-chat-bot/internal/infra/redis"
	"commerce-chat-bot/internal/infra/security"
	"commerce-chat-bot/internal/infra/web"
	"commerce-chat-bot/internal/usecase"
	"commerce-chat-bot/internal/webhook"
)

// Set at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}

	log := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		log.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect failed")
	}
	locker := red.NewLocker(redisClient, 30*time.Second)
	rateLimiter := red.NewRateLimiter(redisClient)
	convCache := red.NewConversationCache(redisClient, cfg.Redis.TTL)

	// ---- Encryption ----
	var encSvc *security.EncryptionService
	if key := cfg.Security.EncryptionKey; key != "" {
		encSvc, err = security.NewEncryptionService(key)
		if err != nil {
			log.Fatal().Err(err).Msg("encryption service init failed")
		}
	} else {
		log.Warn().Msg("security.encryption_key not set; conversation context stored in plaintext")
	}

	// ---- Repositories ----
	convRepo := pg.NewConversationRepoCacheDecorator(pg.NewConversationRepo(pool, encSvc), convCache)
	claimRepo := pg.NewEventClaimRepo(pool)
	jobRepo := pg.NewJobRepo(pool, tm)

	// ---- Shop collaborators ----
	var (
		catalog adapter.CatalogService
		cart    adapter.CartService
		orders  adapter.OrderService
	)
	if cfg.Shop.BaseURL == "" {
		demo := shop.NewDemoShop()
		catalog, cart, orders = demo, demo, demo
		log.Warn().Msg("shop.base_url not set; using in-memory demo shop")
	} else {
		client, err := shop.NewStorefrontClient(cfg.Shop.BaseURL, cfg.Shop.APIKey, cfg.Shop.Timeout)
		if err != nil {
			log.Fatal().Err(err).Msg("storefront client init failed")
		}
		catalog, cart, orders = client, client, client
		log.Info().Str("base_url", cfg.Shop.BaseURL).Msg("storefront client ready")
	}

	// ---- Intent model ----
	intentModel := buildIntentModel(ctx, cfg, log)
	classifier := usecase.NewClassifyUseCase(intentModel, cfg.Classifier.Threshold, cfg.Classifier.Timeout, log)

	// ---- Actions ----
	registry := usecase.NewActionRegistry(rateLimiter, log)
	usecase.NewCommerceActions(catalog, cart, orders, log).RegisterAll(registry)
	registry.Freeze()

	// ---- Job queue ----
	q := queue.New(jobRepo, rateLimiter, queue.Limits{
		AdminRate:     cfg.Queue.AdminRate,
		AutomatedRate: cfg.Queue.AutomatedRate,
		Window:        cfg.Queue.RateWindow,
	}, log)

	// ---- Pipeline ----
	pipeline := usecase.NewPipelineUseCase(
		claimRepo, convRepo, locker, classifier,
		fsm.New(), registry, q, log,
	)

	// ---- Messenger ----
	var out adapter.Messenger
	var tg *messenger.TelegramMessenger
	if strings.ToLower(cfg.Bot.Mode) == "polling" {
		tg, err = messenger.NewTelegramMessenger(&cfg.Bot, pipeline, log)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram init failed")
		}
		out = tg
	} else {
		out = messenger.NewNoopMessenger(log)
	}

	// ---- Hooks + workers ----
	queue.NewStandardHooks(out, catalog, cart, convRepo, log).RegisterAll(q)
	q.ScheduleRecurring(queue.HookSyncCatalog, nil, time.Hour)

	workerPool := queue.NewPool(cfg.Queue.Workers, log)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	processor := queue.NewProcessor(q, jobRepo, cfg.Queue.PollInterval, log)
	go processor.Start(ctx, workerPool)

	recurring := queue.NewRecurringScheduler(q, log)
	recurring.Start(ctx)
	defer recurring.Stop()

	// ---- Inbound ----
	if tg != nil {
		go func() {
			if err := tg.StartPolling(ctx); err != nil {
				log.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
		defer tg.StopPolling()
	}

	// The webhook server also carries /healthz and /metrics, so it runs in
	// both modes.
	verifier := webhook.NewVerifier(cfg.Webhook.Secret, cfg.Webhook.MaxBytes)
	whServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Webhook.Port),
		Handler:      webhook.NewServer(verifier, pipeline, log).Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
	}
	go func() {
		log.Info().Str("addr", whServer.Addr).Msg("webhook server listening")
		if err := whServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("webhook server failed")
		}
	}()

	// ---- Admin API ----
	if cfg.Admin.Port > 0 && cfg.Admin.JWTSecret != "" {
		auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, "", 24*time.Hour)
		admin := web.NewServer(jobRepo, convRepo, q, auth, cfg.Admin.Username, cfg.Admin.Password, log)
		go func() {
			if err := admin.Serve(fmt.Sprintf(":%d", cfg.Admin.Port)); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("admin server failed")
			}
		}()
	} else {
		log.Warn().Msg("admin api disabled (admin.port or admin.jwt_secret not set)")
	}

	// ---- DB pool gauge ----
	go func() {
		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				st := pool.Stat()
				metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
			}
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = whServer.Shutdown(shutdownCtx)
}

// buildIntentModel picks the external model per config. With both keys set
// the OpenAI-compatible endpoint is primary and Gemini the fallback.
func buildIntentModel(ctx context.Context, cfg *config.Config, log *zerolog.Logger) adapter.IntentModel {
	var primary, fallback adapter.IntentModel

	switch strings.ToLower(cfg.Classifier.Provider) {
	case "none", "":
		log.Info().Msg("intent model disabled; structured replies and keywords only")
		return nil
	case "openai":
		m, err := ai.NewOpenAIClassifier(cfg.Classifier.OpenAIKey, cfg.Classifier.OpenAIURL, cfg.Classifier.Model)
		if err != nil {
			log.Fatal().Err(err).Msg("openai classifier init failed")
		}
		primary = m
	case "gemini":
		m, err := ai.NewGeminiClassifier(ctx, cfg.Classifier.GeminiKey, cfg.Classifier.Model)
		if err != nil {
			log.Fatal().Err(err).Msg("gemini classifier init failed")
		}
		primary = m
	case "multi":
		m, err := ai.NewOpenAIClassifier(cfg.Classifier.OpenAIKey, cfg.Classifier.OpenAIURL, cfg.Classifier.Model)
		if err != nil {
			log.Fatal().Err(err).Msg("openai classifier init failed")
		}
		primary = m
		g, err := ai.NewGeminiClassifier(ctx, cfg.Classifier.GeminiKey, cfg.Classifier.Model)
		if err != nil {
			log.Fatal().Err(err).Msg("gemini classifier init failed")
		}
		fallback = g
	default:
		log.Fatal().Str("provider", cfg.Classifier.Provider).Msg("unknown classifier provider")
	}

	if fallback != nil {
		return ai.NewMultiClassifier(primary, fallback, log)
	}
	return primary
}
