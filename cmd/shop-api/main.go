package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/config"
	"github.com/fjod/go_shop/internal/consumer"
	shopgrpc "github.com/fjod/go_shop/internal/grpc"
	shophttp "github.com/fjod/go_shop/internal/http"
	"github.com/fjod/go_shop/internal/logger"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/seed"
	"github.com/fjod/go_shop/internal/service"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type stores struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	users    repository.UserRepository
	pinger   shopgrpc.Pinger
	db       *mongo.Database
}

type alwaysUp struct{}

func (alwaysUp) Ping(context.Context) error { return nil }

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	if err := run(cfg, log); err != nil {
		log.Error("shop-api stopped with error", "error", err)
		os.Exit(1)
	}
}

func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	if cfg.StoreBackend == config.BackendMemory {
		log.Info("using in-memory store")
		return &stores{
			carts:    repository.NewMemoryCartRepository(),
			products: repository.NewMemoryProductRepository(),
			users:    repository.NewMemoryUserRepository(),
			pinger:   alwaysUp{},
		}, nil
	}

	db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return nil, err
	}
	if err := repository.CreateIndexes(ctx, db); err != nil {
		_ = db.Client().Disconnect(ctx)
		return nil, err
	}
	log.Info("connected to MongoDB", "database", cfg.MongoDBName)

	settings := repository.BreakerSettings("cart-store", 30*time.Second, log)
	carts := repository.NewBreakerCartRepository(repository.NewMongoCartRepository(db), settings)
	return &stores{
		carts:    carts,
		products: repository.NewMongoProductRepository(db),
		users:    repository.NewMongoUserRepository(db),
		pinger:   repository.BreakerPinger{Breaker: carts, Next: repository.MongoPinger{DB: db}},
		db:       db,
	}, nil
}

func openCache(ctx context.Context, cfg *config.Config, log *slog.Logger) (cache.CartCache, func()) {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, cart cache disabled")
		return cache.NopCache{}, func() {}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	rc := cache.NewRedisCache(redisClient)
	if err := rc.Ping(ctx); err != nil {
		// the breaker keeps a dead Redis off the request path
		log.Warn("redis ping failed, continuing", "addr", cfg.RedisAddr, "error", err)
	} else {
		log.Info("redis ping succeeded", "addr", cfg.RedisAddr)
	}

	settings := repository.BreakerSettings("cart-cache", 15*time.Second, log)
	return cache.NewBreakerCache(rc, settings), func() { _ = redisClient.Close() }
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	st, err := openStores(startCtx, cfg, log)
	cancel()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if st.db != nil {
			_ = st.db.Client().Disconnect(context.Background())
		}
	}()

	cartCache, closeCache := openCache(ctx, cfg, log)
	defer closeCache()

	carts := service.NewCartService(st.carts, cartCache, log)
	products := service.NewProductService(st.products, log)
	users := service.NewUserService(st.users, carts, log)

	if cfg.SeedProducts > 0 {
		n, err := seed.Seed(ctx, products, cfg.SeedProducts)
		if err != nil {
			return fmt.Errorf("seed products: %w", err)
		}
		log.Info("seeded products", "count", n)
	}

	if len(cfg.KafkaBrokers) > 0 {
		checkout := consumer.NewCheckoutConsumer(consumer.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		}, carts, log)
		defer func() {
			if err := checkout.Close(); err != nil {
				log.Warn("failed to close checkout consumer", "error", err)
			}
		}()
		go checkout.Run(ctx)
		log.Info("checkout consumer started", "topic", cfg.KafkaTopic)
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	healthServer := shopgrpc.NewHealthServer(st.pinger, 10*time.Second, log)
	go healthServer.Watch(ctx)
	go func() {
		log.Info("grpc health server listening", "port", cfg.GRPCPort)
		if err := healthServer.Serve(lis); err != nil {
			log.Error("grpc server error", "error", err)
		}
	}()

	router := shophttp.NewRouter(shophttp.RouterConfig{
		Carts:          carts,
		Products:       products,
		Users:          users,
		Health:         st.pinger.Ping,
		Logger:         log,
		RequestTimeout: cfg.RequestTimeout,
		StaticDir:      cfg.StaticDir,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("shop-api starting", "port", cfg.HTTPPort, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			healthServer.GracefulStop()
			return fmt.Errorf("http server: %w", err)
		}
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		shutdownErr = fmt.Errorf("server forced to shutdown: %w", err)
	}
	healthServer.GracefulStop()

	log.Info("server exited")
	return shutdownErr
}
