package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/checkout-backend/internal/cfg"
	v1Grpc "github.com/DRSN-tech/checkout-backend/internal/delivery/v1/grpc"
	v1Http "github.com/DRSN-tech/checkout-backend/internal/delivery/v1/http"
	"github.com/DRSN-tech/checkout-backend/internal/infrastructure/auth"
	"github.com/DRSN-tech/checkout-backend/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/checkout-backend/internal/infrastructure/minio"
	"github.com/DRSN-tech/checkout-backend/internal/infrastructure/outbox"
	s3Repo "github.com/DRSN-tech/checkout-backend/internal/repository/minio"
	"github.com/DRSN-tech/checkout-backend/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/checkout-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/checkout-backend/internal/repository/redis"
	redisConv "github.com/DRSN-tech/checkout-backend/internal/repository/redis/converter"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/clients"
	"github.com/DRSN-tech/checkout-backend/pkg/closer"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/DRSN-tech/checkout-backend/pkg/metrics"
	"github.com/DRSN-tech/checkout-backend/pkg/postgres"
	"github.com/DRSN-tech/checkout-backend/pkg/telemetry"
	"github.com/DRSN-tech/checkout-backend/pkg/tr"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	initTimeout         = 10 * time.Second
	shutdownTimeout     = 15 * time.Second
	healthCheckInterval = 5 * time.Second
	kafkaTopicTimeout   = 10 * time.Second
)

type App struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	db      *postgres.PgDatabase
	httpSrv *v1Http.Server
	grpcSrv *v1Grpc.GRPCServer
	worker  *outbox.Worker
}

// NewApp поднимает зависимости и собирает приложение.
// При ошибке уже открытые ресурсы закрываются.
func NewApp(cfg *config.Config, log logger.Logger) (_ *App, err error) {
	a := &App{
		cfg:    cfg,
		logger: log,
		closer: closer.NewCloser(0),
	}
	defer func() {
		if err != nil {
			if cerr := a.closer.Close(context.Background()); cerr != nil {
				log.Warnf("cleanup after failed init: %v", cerr)
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("tracer", shutdownTracer)

	db, err := initPGDB(ctx, log, cfg)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closer.AddFunc("postgres", db.Close)

	redisClient := clients.NewRedisClient(cfg.Redis)
	a.closer.Add("redis", func(context.Context) error { return redisClient.Close() })
	if err := redisClient.Ping(ctx); err != nil {
		return nil, e.Wrap("failed to connect to redis", err)
	}

	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		return nil, e.Wrap("failed to initialize minio client", err)
	}
	if err := clients.EnsureBucket(ctx, minioClient, cfg.Minio.BucketName); err != nil {
		return nil, e.Wrap("failed to initialize MinIO bucket", err)
	}

	producer := kafka.NewProducer(log, cfg.Kafka)
	a.closer.Add("kafka producer", func(context.Context) error { return producer.Close() })
	if err := producer.EnsureTopic(kafkaTopicTimeout); err != nil {
		// Событие останется в outbox и уйдёт, когда брокер станет доступен
		log.Warnf("kafka topic %s is not ready: %v", cfg.Kafka.Topic, err)
	}

	txManager := tr.NewManager(db.Pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})

	productRepo := pgdb.NewProductRepo(db.Pool, pgdbConv.ProductConverterImpl{})
	cartRepo := pgdb.NewCartRepo(db.Pool, pgdbConv.CartConverterImpl{})
	orderRepo := pgdb.NewOrderRepo(db.Pool, pgdbConv.OrderConverterImpl{})
	outboxRepo := pgdb.NewOutboxEventRepo(db.Pool, pgdbConv.OutboxEventConverterImpl{})
	cacheRepo := redis.NewCacheRepo(redisClient, redisConv.ProductInfoConverterImpl{}, cfg.Redis, log)
	receiptRepo := s3Repo.NewReceiptRepo(minioClient, cfg.Minio)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)
	serverMetrics := metrics.NewServerMetrics(registry)

	productUC := usecase.NewProductUC(productRepo, cacheRepo, log)
	cartUC := usecase.NewCartUC(txManager, cartRepo, productRepo, checkoutMetrics, log)
	checkoutUC := usecase.NewCheckoutUC(txManager, cartRepo, productRepo, orderRepo, outboxRepo, productUC,
		usecase.RetryPolicy{
			MaxRetries: cfg.Checkout.MaxRetries,
			BaseDelay:  cfg.Checkout.RetryBaseDelay,
			MaxDelay:   cfg.Checkout.RetryMaxDelay,
		},
		checkoutMetrics, log)
	orderUC := usecase.NewOrderUC(orderRepo, receiptRepo, log)

	a.worker = outbox.NewWorker(outboxRepo, []usecase.EventHandler{
		kafka.NewOrderEventPublisher(producer),
		minioInfra.NewReceiptArchiver(receiptRepo, log),
	}, log, cfg.Outbox, db.Dsn)

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, log)
	router.Init(v1Http.Deps{
		Products: productUC,
		Carts:    cartUC,
		Checkout: checkoutUC,
		Orders:   orderUC,
		Verifier: auth.NewJWTVerifier(cfg.Auth),
		Metrics:  serverMetrics,
		Gatherer: registry,
		Health:   db,
	})
	a.httpSrv = v1Http.NewServer(router.Handler(), cfg.Http)
	a.grpcSrv = v1Grpc.NewGRPCServer(cfg.Grpc, log)

	return a, nil
}

// Run запускает серверы и outbox и блокируется до сигнала остановки или падения сервера.
func (a *App) Run() error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	a.worker.Start(ctx)
	a.closer.AddFunc("outbox worker", a.worker.Stop)

	go a.grpcSrv.WatchHealth(ctx, a.db, healthCheckInterval)

	errCh := make(chan error, 2)
	go func() {
		a.logger.Infof("gRPC server starting on %s:%s", a.cfg.Grpc.NetworkMode, a.cfg.Grpc.Port)
		if err := a.grpcSrv.Start(); err != nil {
			errCh <- e.Wrap("gRPC server failed", err)
		}
	}()
	a.closer.Add("gRPC server", a.grpcSrv.Stop)

	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil {
			errCh <- e.Wrap("HTTP server failed", err)
		}
	}()
	a.closer.Add("HTTP server", a.httpSrv.Stop)

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "server fatal error")
	case sig := <-shutdown:
		a.logger.Infof("Received %s, stopping gracefully...", sig)
	}

	// === Graceful shutdown ===
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	stop()
	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Warnf("%v", err)
		appErr = errors.Join(appErr, err)
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

func initPGDB(ctx context.Context, logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		logger.Errorf(err, "failed to run migrations")
		db.Close()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
