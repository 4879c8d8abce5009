package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/gatherly/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/gatherly/internal/adapters/mongo"
	"github.com/robertarktes/gatherly/internal/adapters/rabbit"
	redisadapter "github.com/robertarktes/gatherly/internal/adapters/redis"
	"github.com/robertarktes/gatherly/internal/booking"
	"github.com/robertarktes/gatherly/internal/catalog"
	"github.com/robertarktes/gatherly/internal/config"
	httphandler "github.com/robertarktes/gatherly/internal/http"
	"github.com/robertarktes/gatherly/internal/idempotency"
	"github.com/robertarktes/gatherly/internal/observability"
	"github.com/robertarktes/gatherly/internal/rateLimit"
	"github.com/robertarktes/gatherly/internal/realtime"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := observability.SetupOTel(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger(cfg.LogLevel)
	observability.InitMetrics()

	pool, err := pgxpool.New(ctx, cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	crdbRepo := crdb.NewRepository(pool)
	if err := crdbRepo.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate crdb: %v", err)
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(cfg.MongoDB)
	catalogRepo := mongoadapter.NewCatalogRepository(mongoDB, logger)
	audit := mongoadapter.NewAuditLogger(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	redisCache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), cfg.IdempotencyTTL)
	rl := rateLimit.NewRateLimiter(redisClient)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	consumer, err := rabbit.NewConsumer(rabbitConn, cfg.ChangeQueue, rabbit.ChangeBindings...)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}
	defer consumer.Close()

	cat := catalog.NewCatalog(catalogRepo, logger)
	if err := cat.Refresh(ctx); err != nil {
		// The catalog stays stale, so the first query retries the load.
		logger.Error("initial catalog load failed: ", err)
	}

	availability := booking.NewCachedAvailability(crdbRepo, redisCache, cfg.AvailabilityTTL, logger)
	store := booking.WithAudit(crdbRepo, audit, logger)
	sessions := booking.NewSessions(func() *booking.Flow {
		return booking.NewFlow(cat, availability, store, logger)
	})

	listener := realtime.NewListener(consumer, logger, cat, availability)

	handlers := httphandler.NewHandlers(cat, sessions, availability, crdbRepo, map[string]httphandler.Pinger{
		"crdb":  crdbRepo,
		"mongo": catalogRepo,
		"redis": redisCache,
	}, logger)
	r := httphandler.SetupRouter(handlers, logger, httphandler.RouterOptions{
		Limiter:            rl,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Idempotency:        idemp,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", cfg.HTTPAddr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		cat.RunRefresher(gctx, cfg.CatalogRefreshInterval)
		return nil
	})
	g.Go(func() error {
		return listener.Run(gctx)
	})
	g.Go(func() error {
		sweepSessions(gctx, sessions, cfg.SessionIdleTTL, logger)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown Server ...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error: ", err)
	}
	logger.Info("Server exiting")
}

// sweepSessions drops drafts that have been idle for longer than ttl.
func sweepSessions(ctx context.Context, sessions *booking.Sessions, ttl time.Duration, logger observability.Logger) {
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := sessions.Sweep(now.Add(-ttl)); n > 0 {
				logger.WithField("dropped", n).WithField("remaining", sessions.Len()).Debug("idle drafts swept")
			}
		}
	}
}
