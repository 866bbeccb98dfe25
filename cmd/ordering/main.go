package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/zxc1031408077/line-bot-ordering/internal/cart"
	"github.com/zxc1031408077/line-bot-ordering/internal/catalog"
	"github.com/zxc1031408077/line-bot-ordering/internal/config"
	"github.com/zxc1031408077/line-bot-ordering/internal/dispatch"
	h "github.com/zxc1031408077/line-bot-ordering/internal/http"
	"github.com/zxc1031408077/line-bot-ordering/internal/notify"
	"github.com/zxc1031408077/line-bot-ordering/internal/orders"
	"github.com/zxc1031408077/line-bot-ordering/pkg/logger"
	"github.com/zxc1031408077/line-bot-ordering/pkg/shutdown"
)

const serviceName = "line-bot-ordering"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Service: serviceName,
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("service stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Warn("close failed", "error", err)
			}
		}
	}()

	// Catalog
	catalogRepo, err := catalog.NewSQLiteRepository(cfg.CatalogDBPath)
	if err != nil {
		return err
	}
	closers = append(closers, catalogRepo)
	if err := catalogRepo.RunMigrations(); err != nil {
		return err
	}
	menu, err := catalogRepo.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	log.Info("catalog loaded", "path", cfg.CatalogDBPath)

	// Redis backs the cart cache and webhook dedupe when configured
	var cache cart.Cache = cart.NopCache{}
	var idempotency h.IdempotencyStore = h.NewMemoryIdempotencyStore()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		closers = append(closers, redisClient)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		cache = cart.NewRedisCache(redisClient)
		idempotency = h.NewRedisIdempotencyStore(redisClient)
		log.Info("redis ping succeeded", "addr", cfg.RedisAddr)
	}

	cartRepo, err := newCartRepository(ctx, cfg, log, &closers)
	if err != nil {
		return err
	}

	orderRepo, err := newOrderRepository(cfg, log, &closers)
	if err != nil {
		return err
	}

	var sink notify.Sink = notify.NewLogSink(log)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink := notify.NewKafkaSink(cfg.KafkaTopic, log, cfg.KafkaBrokers...)
		closers = append(closers, kafkaSink)
		sink = notify.Multi{sink, kafkaSink}
		log.Info("publishing status changes to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	carts := cart.NewService(cartRepo, menu,
		cart.WithCache(cache),
		cart.WithLogger(log),
	)
	ledger := orders.NewService(orderRepo, carts, cfg.Pricing,
		orders.WithSink(sink),
		orders.WithCurrency(cfg.Currency),
		orders.WithLogger(log),
	)
	dispatcher := dispatch.NewDispatcher(menu, carts, ledger, cfg.Pricing, log)

	router := h.NewRouter(h.RouterConfig{
		Catalog:            menu,
		CatalogEditor:      catalog.NewEditor(catalogRepo, menu),
		Carts:              carts,
		Orders:             ledger,
		Dispatcher:         dispatcher,
		Replier:            h.NewLogReplier(log),
		Idempotency:        idempotency,
		Policy:             cfg.Pricing,
		ChannelSecret:      cfg.LineChannelSecret,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		Logger:             log,
	})
	if cfg.LineChannelSecret == "" {
		log.Warn("LINE_CHANNEL_SECRET not set, webhook signatures are not verified")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("grpc health server starting", "port", cfg.GRPCPort)
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	if cfg.CatalogReloadInterval > 0 {
		g.Go(func() error {
			reloadCatalog(gctx, catalogRepo, menu, cfg.CatalogReloadInterval, log)
			return nil
		})
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaConsumerGroup != "" {
		consumer := notify.NewConsumer(cfg.KafkaTopic, cfg.KafkaConsumerGroup,
			notify.NewLogSink(log.With("component", "status-push")), log, cfg.KafkaBrokers...)
		g.Go(func() error {
			defer consumer.Close()
			log.Info("status event consumer starting", "group", cfg.KafkaConsumerGroup)
			consumer.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		grpcServer.GracefulStop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func newCartRepository(ctx context.Context, cfg *config.Config, log *slog.Logger, closers *[]io.Closer) (cart.Repository, error) {
	if cfg.CartStore != config.StoreMongo {
		log.Info("using in-memory cart store")
		return cart.NewMemoryRepository(), nil
	}

	mongoDB, err := cart.ConnectMongoDB(ctx, cfg.Mongo)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	*closers = append(*closers, closerFunc(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return mongoDB.Client().Disconnect(ctx)
	}))

	repo := cart.NewMongoRepository(mongoDB)
	if err := repo.CreateIndexes(ctx); err != nil {
		return nil, fmt.Errorf("create cart indexes: %w", err)
	}
	log.Info("connected to MongoDB", "db", cfg.Mongo.Database, "max_pool", cfg.Mongo.MaxPoolSize)
	return repo, nil
}

func newOrderRepository(cfg *config.Config, log *slog.Logger, closers *[]io.Closer) (orders.Repository, error) {
	if cfg.OrderStore != config.StorePostgres {
		log.Info("using in-memory order ledger")
		return orders.NewMemoryRepository(), nil
	}

	repo, err := orders.NewPostgresRepository(&cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	*closers = append(*closers, repo)
	if err := repo.RunMigrations(); err != nil {
		return nil, err
	}
	log.Info("connected to postgres", "host", cfg.Postgres.Host, "db", cfg.Postgres.DBName)
	return repo, nil
}

// reloadCatalog refreshes the in-memory menu from the database until ctx
// ends. Open carts keep the prices they captured.
func reloadCatalog(ctx context.Context, repo *catalog.SQLiteRepository, menu *catalog.MemoryCatalog, every time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := repo.ReloadInto(ctx, menu); err != nil {
				log.WarnContext(ctx, "catalog reload failed", "error", err)
				continue
			}
			log.DebugContext(ctx, "catalog reloaded")
		}
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
