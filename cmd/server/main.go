package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"prospect-platform/backend/internal/audit"
	audithandler "prospect-platform/backend/internal/audit/handler"
	auditrepo "prospect-platform/backend/internal/audit/repository"
	"prospect-platform/backend/internal/config"
	"prospect-platform/backend/internal/db"
	devicerepo "prospect-platform/backend/internal/device/repository"
	"prospect-platform/backend/internal/health"
	healthhandler "prospect-platform/backend/internal/health/handler"
	identityhandler "prospect-platform/backend/internal/identity/handler"
	identityservice "prospect-platform/backend/internal/identity/service"
	leadhandler "prospect-platform/backend/internal/lead/handler"
	leadrepo "prospect-platform/backend/internal/lead/repository"
	leadservice "prospect-platform/backend/internal/lead/service"
	"prospect-platform/backend/internal/lock"
	"prospect-platform/backend/internal/notification"
	"prospect-platform/backend/internal/platform/background"
	"prospect-platform/backend/internal/platform/logger"
	"prospect-platform/backend/internal/platform/metrics"
	"prospect-platform/backend/internal/platform/rbac"
	"prospect-platform/backend/internal/policy/engine"
	propertyrepo "prospect-platform/backend/internal/property/repository"
	"prospect-platform/backend/internal/security"
	"prospect-platform/backend/internal/server"
	"prospect-platform/backend/internal/server/middleware"
	"prospect-platform/backend/internal/telemetry"
	otelsetup "prospect-platform/backend/internal/telemetry/otel"
	"prospect-platform/backend/internal/telemetry/producer"
	userrepo "prospect-platform/backend/internal/user/repository"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, ServiceName: cfg.ServiceName})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	providers, err := otelsetup.NewProviders(ctx, otelsetup.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()
	defer shutdownWith(zl, "otel providers", providers.Shutdown)

	mongoClient, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	defer shutdownWith(zl, "mongo", mongoClient.Disconnect)
	database := mongoClient.Database(cfg.MongoDatabase)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}

	checks := health.NewChecker(2 * time.Second).Add("mongo", db.MongoPinger{Client: mongoClient})
	runner := background.NewRunner(zl.Named("background"), background.DefaultTimeout)

	var (
		auditLogger  audit.AuditLogger = audit.Noop{}
		auditHandler *audithandler.Handler
	)
	if cfg.DatabaseURL != "" {
		pg, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer closeWith(zl, "postgres", pg)
		repo := auditrepo.NewPostgresRepository(pg)
		auditLogger = audit.NewLogger(repo, middleware.ClientIPFromContext, zl.Named("audit"))
		auditHandler = audithandler.NewHandler(repo)
		checks.Add("postgres", pg)
	} else {
		zl.Info("DATABASE_URL not set; audit trail disabled")
	}

	var locker lock.Locker
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer closeWith(zl, "redis", rdb)
		locker = lock.NewRedis(rdb, "prospect", cfg.LockTTL(), lock.DefaultRetry)
		checks.Add("redis", health.PingerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
	} else {
		zl.Warn("REDIS_ADDR not set; lead locks are process-local")
		locker = lock.NewLocal(lock.DefaultRetry)
	}

	events := telemetry.Fanout{otelsetup.NewEventEmitter(providers.LoggerProvider)}
	var publisher notification.Publisher = notification.Noop{}
	if brokers := cfg.KafkaBrokersList(); len(brokers) > 0 {
		kp := producer.NewKafkaProducer(brokers, cfg.TelemetryKafkaTopic, zl.Named("telemetry"))
		defer closeWith(zl, "telemetry producer", kp)
		events = append(events, kp)

		np := notification.NewKafkaPublisher(brokers, cfg.NotificationKafkaTopic)
		defer closeWith(zl, "notification publisher", np)
		publisher = np
	}

	tokens, err := tokenProvider(cfg)
	if err != nil {
		return err
	}
	signer, err := urlSigner(cfg)
	if err != nil {
		return err
	}

	authz := engine.NewOPAEvaluator(rbac.Table(), "", zl.Named("policy"))
	checks.Add("policy", health.PingerFunc(authz.HealthCheck))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg, cfg.ServiceName)

	users := userrepo.NewMongoRepository(database)
	devices := devicerepo.NewMongoRepository(database)

	authSvc := identityservice.NewAuthService(identityservice.Deps{
		Users:   users,
		Devices: devices,
		Hasher:  security.NewHasher(cfg.BcryptCost),
		Tokens:  tokens,
		Audit:   auditLogger,
		Events:  events,
		Metrics: collector,
		Runner:  runner,
	})
	leadSvc := leadservice.NewLeadService(leadservice.Deps{
		Leads:      leadrepo.NewMongoRepository(database),
		Properties: propertyrepo.NewMongoRepository(database),
		Devices:    devices,
		Locker:     locker,
		Signer:     signer,
		Publisher:  publisher,
		Audit:      auditLogger,
		Events:     events,
		Metrics:    collector,
		Runner:     runner,
	})

	limiter := middleware.NewRateLimiter(cfg.AuthRatePerMinute, 5*time.Minute)
	defer limiter.Stop()

	httpSrv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewRouter(server.RouterDeps{
			Log:         zl,
			Auth:        identityhandler.NewHandler(authSvc),
			Leads:       leadhandler.NewHandler(leadSvc),
			Audit:       auditHandler,
			Tokens:      tokens,
			Authz:       authz,
			AuthLimiter: limiter,
			Metrics:     collector,
			Health:      checks,
			Telemetry:   events,
			Runner:      runner,
			CORSOrigins: cfg.CORSOrigins(),
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	healthSrv := healthhandler.NewGRPCServer(checks, zl.Named("health"))
	grpcSrv := server.NewGRPCServer(server.GRPCDeps{Health: healthSrv, Reflection: cfg.Env != "production"})
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	probeCtx, stopProbes := context.WithCancel(ctx)
	defer stopProbes()
	go healthSrv.Run(probeCtx, 15*time.Second)

	errCh := make(chan error, 2)
	go func() {
		zl.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		zl.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		zl.Info("shutting down")
	case serveErr = <-errCh:
		zl.Error("server failed", zap.Error(serveErr))
	}

	stopProbes()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("http shutdown", zap.Error(err))
	}
	grpcSrv.GracefulStop()
	runner.Wait()
	zl.Info("stopped")
	return serveErr
}

// tokenProvider loads the access key pair and the refresh pair, which falls back to the access keys.
func tokenProvider(cfg *config.Config) (*security.TokenProvider, error) {
	access, err := security.LoadKeyPair(cfg.JWTAccessPrivateKey, cfg.JWTAccessPublicKey)
	if err != nil {
		return nil, fmt.Errorf("access token keys: %w", err)
	}
	refresh := access
	if cfg.JWTRefreshPrivateKey != "" || cfg.JWTRefreshPublicKey != "" {
		refresh, err = security.LoadKeyPair(cfg.JWTRefreshPrivateKey, cfg.JWTRefreshPublicKey)
		if err != nil {
			return nil, fmt.Errorf("refresh token keys: %w", err)
		}
	}
	return security.NewTokenProvider(access, refresh, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL()), nil
}

func urlSigner(cfg *config.Config) (security.URLSigner, error) {
	if cfg.CloudFrontPrivateKey == "" {
		return security.PassthroughSigner{BaseURL: cfg.CloudFrontDomain}, nil
	}
	key, err := security.ParseRSAPrivateKey(cfg.CloudFrontPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("cloudfront key: %w", err)
	}
	return security.NewCloudFrontSigner(cfg.CloudFrontDomain, cfg.CloudFrontKeyID, key, cfg.URLTTL()), nil
}

func shutdownWith(zl *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		zl.Warn("shutdown "+name, zap.Error(err))
	}
}

func closeWith(zl *zap.Logger, name string, c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		zl.Warn("close "+name, zap.Error(err))
	}
}
