package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"issue-service/config"
	"issue-service/internal/cache"
	"issue-service/internal/geocoding"
	"issue-service/internal/handler"
	"issue-service/internal/messaging"
	"issue-service/internal/ratelimit"
	"issue-service/internal/repository"
	"issue-service/internal/routing"
	"issue-service/internal/search"
	"issue-service/internal/service"
	"issue-service/pkg/logger"

	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.json"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := repository.Open(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	defer db.Close()

	applied, err := repository.ApplyMigrations(ctx, db, cfg.Database.MigrationsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}
	log.Info().Strs("applied", applied).Msg("database ready")

	// Initialize repositories
	issueRepo := repository.NewIssueRepository(db)
	upvoteRepo := repository.NewUpvoteRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	authorityRepo := repository.NewAuthorityRepository(db)
	officialRepo := repository.NewOfficialRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	// Redis backs the routing table cache and the issue rate limit.
	graphs := routing.NewStoreSource(categoryRepo)
	var (
		graphCache   *cache.GraphCache
		issueLimiter *ratelimit.Limiter
		redisClient  *redis.Client
	)
	if cfg.Redis.URL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, running without cache and rate limit")
		} else {
			defer redisClient.Close()
			graphCache = cache.NewGraphCache(log, redisClient, categoryRepo, cache.DefaultGraphTTL)
			graphs = graphCache
			issueLimiter = ratelimit.New(redisClient, "ratelimit:issues", cfg.RateLimit.Limit(), ratelimit.DefaultWindow)
		}
	}

	// Geocoding
	httpClient := &http.Client{Timeout: cfg.Geocoding.Timeout()}
	resolver := geocoding.NewResolver(log,
		geocoding.Options{Timeout: cfg.Geocoding.Timeout(), ProviderTimeout: cfg.Geocoding.ProviderTimeout()},
		geocoding.NewBigDataCloud(cfg.Geocoding.ReverseURL, cfg.Geocoding.UserAgent, httpClient),
		geocoding.NewNominatim(cfg.Geocoding.FallbackURL, cfg.Geocoding.UserAgent, httpClient),
	)
	forward := geocoding.NewForward(log, cfg.Geocoding.ForwardURL, cfg.Geocoding.UserAgent, cfg.Geocoding.Timeout(), httpClient)
	constituencies := geocoding.NewConstituencyLookup(log, cfg.Geocoding.ConstituencyURL, cfg.Geocoding.UserAgent, cfg.Geocoding.Timeout(), httpClient)

	// Initialize services
	router := routing.NewRouter(log, graphs, authorityRepo)
	assigner := routing.NewAssigner(officialRepo, routing.DefaultAssignLimit)

	issueService := service.NewIssueService(log, issueRepo, graphs, router, assigner, officialRepo, cfg.Moderation.Enabled)
	upvoteService := service.NewUpvoteService(log, upvoteRepo, issueRepo)
	categoryService := service.NewCategoryService(log, categoryRepo, graphs)
	if graphCache != nil {
		categoryService.SetCache(graphCache)
	}
	authorityService := service.NewAuthorityService(log, authorityRepo)
	officialService := service.NewOfficialService(log, officialRepo)
	locationService := service.NewLocationService(resolver, forward, constituencies)

	var index *search.Meili
	if cfg.Search.MeiliURL != "" {
		index = search.NewMeili(log, cfg.Search.MeiliURL, cfg.Search.MeiliKey)
		defer index.Close()
		issueService.SetSearch(index)
	}

	healthHandler := handler.NewHealthHandler(log, db)

	// Events leave through the outbox; the indexer needs both the broker
	// and the search index.
	if cfg.RabbitMQ.Enabled() {
		rmq, err := messaging.NewRabbitMQ(log, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port, cfg.RabbitMQ.User, cfg.RabbitMQ.Password)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, events stay in the outbox")
		} else {
			defer rmq.Close()

			outboxWorker := messaging.NewOutboxWorker(log, outboxRepo, rmq)
			outboxWorker.Start()
			defer outboxWorker.Stop()
			healthHandler.SetOutbox(outboxWorker)

			if index != nil {
				indexer := messaging.NewSearchIndexer(log, rmq, issueRepo, index)
				indexer.Start()
				defer indexer.Stop()
			}
		}
	}

	engine := handler.NewRouter(log, handler.RouterConfig{
		Env:          cfg.Server.Env,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Auth:         handler.NewAuthenticator(log, cfg.JWT.Secret),
		IssueLimiter: issueLimiter,
	}, handler.Handlers{
		Health:     healthHandler,
		Issues:     handler.NewIssueHandler(log, issueService, upvoteService),
		Categories: handler.NewCategoryHandler(log, categoryService),
		Authority:  handler.NewAuthorityHandler(log, authorityService),
		Officials:  handler.NewOfficialHandler(log, officialService),
		Locations:  handler.NewLocationHandler(log, locationService),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("issue service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}
