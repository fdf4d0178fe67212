package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-billing/app/auth"
	"github.com/vibast-solutions/ms-go-billing/app/controller"
	billinggrpc "github.com/vibast-solutions/ms-go-billing/app/grpc"
	"github.com/vibast-solutions/ms-go-billing/app/lock"
	"github.com/vibast-solutions/ms-go-billing/app/metrics"
	"github.com/vibast-solutions/ms-go-billing/app/notification"
	"github.com/vibast-solutions/ms-go-billing/app/provider"
	"github.com/vibast-solutions/ms-go-billing/app/repository"
	"github.com/vibast-solutions/ms-go-billing/app/service"
	"github.com/vibast-solutions/ms-go-billing/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start both HTTP (Echo) and gRPC servers for the billing service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, billingService, checks, cleanup := mustCreateBillingService()
	defer cleanup()

	metrics.MustRegister()

	billingController := controller.NewBillingController(billingService)
	healthServer := billinggrpc.NewHealthServer(cfg.App.ServiceName, checks...)
	tokenVerifier := auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if cfg.Auth.JWTSecret == "" {
		logrus.Warn("AUTH_JWT_SECRET is not set; user routes will reject every request")
	}

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()

	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)
	grpcInternalAuthMiddleware := authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService)

	e := setupHTTPServer(cfg, billingController, tokenVerifier, echoInternalAuthMiddleware)
	grpcSrv, lis := setupGRPCServer(cfg, healthServer, grpcInternalAuthMiddleware, cfg.App.ServiceName)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	grpcSrv.GracefulStop()

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	cfg *config.Config,
	billingController *controller.BillingController,
	tokenVerifier *auth.TokenVerifier,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"request_id": v.RequestID,
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", billingController.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	requireUser := auth.RequireUser(tokenVerifier)
	e.POST("/users/me", billingController.ProvisionUser, requireUser)
	e.GET("/subscriptions/me", billingController.GetMySubscription, requireUser)
	e.POST("/subscriptions/me/cancel", billingController.CancelMySubscription, requireUser)
	e.POST("/payments", billingController.CreatePayment, requireUser)
	e.GET("/payments", billingController.ListMyTransactions, requireUser)

	admin := e.Group("/admin", requireUser)
	admin.GET("/users", billingController.ListUsers)
	admin.GET("/actions", billingController.ListAdminActions)
	admin.POST("/actions", billingController.LogAdminAction)

	// Gateway redirects and webhooks carry no user token.
	verifyLimiter := echomiddleware.RateLimiter(
		echomiddleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Payments.VerifyRateLimit)),
	)
	e.GET("/payments/verify", billingController.VerifyLookup, verifyLimiter)
	e.POST("/payments/:id/verify", billingController.VerifyPayment, verifyLimiter)
	e.POST("/webhooks/mayar", billingController.MayarWebhook, verifyLimiter)

	internal := e.Group("/internal", internalAuthMiddleware.RequireInternalAccess(cfg.App.ServiceName))
	internal.POST("/jobs/reconcile", billingController.RunReconcile)
	internal.POST("/payments/:id/verify", billingController.VerifyPayment)

	return e
}

func setupGRPCServer(
	cfg *config.Config,
	healthServer *billinggrpc.HealthServer,
	internalAuthMiddleware *authmiddleware.GRPCInternalAuthMiddleware,
	appServiceName string,
) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			billinggrpc.RecoveryInterceptor(),
			billinggrpc.RequestIDInterceptor(),
			billinggrpc.LoggingInterceptor(),
			internalAuthMiddleware.UnaryRequireInternalAccess(appServiceName),
		),
	)
	healthpb.RegisterHealthServer(grpcSrv, healthServer)

	return grpcSrv, lis
}

func mustCreateBillingService() (*config.Config, *service.BillingService, []billinggrpc.Check, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	checks := []billinggrpc.Check{{Name: "mysql", Fn: db.PingContext}}

	var verifyLocker lock.Locker = lock.NoopLocker{}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logrus.WithError(err).Warn("Redis ping failed; verification lock will retry per request")
		}
		verifyLocker = lock.NewRedisLocker(redisClient, cfg.App.ServiceName+":")
		checks = append(checks, billinggrpc.Check{Name: "redis", Fn: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	} else {
		logrus.Info("REDIS_ADDR not set; verification lock disabled")
	}

	gateway := provider.NewMayarGateway(provider.MayarConfig{
		APIKey:      cfg.Mayar.APIKey,
		BaseURL:     cfg.Mayar.BaseURL,
		HTTPTimeout: cfg.Mayar.HTTPTimeout,
	})
	sender := notification.NewResendSender(notification.ResendConfig{
		APIKey:      cfg.Resend.APIKey,
		BaseURL:     cfg.Resend.BaseURL,
		From:        cfg.Resend.From,
		HTTPTimeout: cfg.Resend.HTTPTimeout,
	})

	billingService := service.NewBillingService(
		repository.NewTransactionRepository(db),
		repository.NewSubscriptionRepository(db),
		repository.NewUserRepository(db),
		repository.NewAdminActionRepository(db),
		gateway,
		sender,
		verifyLocker,
		cfg.Payments,
		cfg.App.PublicURL,
		cfg.Redis.LockTTL,
	)

	cleanup := func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close redis client")
			}
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, billingService, checks, cleanup
}
