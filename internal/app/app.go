package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pagebrief/entitlement-service/internal/config"
	"github.com/pagebrief/entitlement-service/internal/handler"
	"github.com/pagebrief/entitlement-service/internal/payments"
	"github.com/pagebrief/entitlement-service/internal/repository"
	"github.com/pagebrief/entitlement-service/internal/service"
	"github.com/pagebrief/entitlement-service/internal/utils"
	"github.com/pagebrief/entitlement-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra   Infrastructure
	config  *config.Config
	router  *gin.Engine
	server  *http.Server
	sweeper *CredentialSweeper
}

func NewApp(infra Infrastructure, cfg *config.Config) *App {
	repos := repository.NewRepositories(infra.Postgres())

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.CredentialTTL.Duration)
	revocationCache := service.NewRevocationCache(infra.Redis())
	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra)

	paymentClient := payments.NewClient(payments.Config{
		SecretKey:       cfg.Stripe.SecretKey,
		WebhookSecret:   cfg.Stripe.WebhookSecret,
		MonthlyPriceID:  cfg.Stripe.MonthlyPriceID,
		AnnualPriceID:   cfg.Stripe.AnnualPriceID,
		SuccessURL:      cfg.Stripe.SuccessURL,
		CancelURL:       cfg.Stripe.CancelURL,
		PortalReturnURL: cfg.Stripe.PortalReturnURL,
	})

	entitlements := service.NewEntitlementService(
		repos.User,
		repos.Credential,
		repos.Usage,
		repos.Subscription,
		jwtManager,
		revocationCache,
		infra.Logger(),
		cfg.Security.BCryptCost,
		cfg.Usage.FreeDomainLimit,
	)

	billing := service.NewBillingService(
		paymentClient,
		repos.User,
		repos.Subscription,
		infra.Logger(),
	)

	authHandler := handler.NewAuthHandler(entitlements)
	usageHandler := handler.NewUsageHandler(entitlements)
	billingHandler := handler.NewBillingHandler(billing)
	webhookHandler := handler.NewWebhookHandler(billing)

	sweeper := NewCredentialSweeper(
		repos.Credential,
		cfg.Security.CredentialSweepInterval.Duration,
		infra.Logger(),
	)

	router := gin.Default()
	router.Use(otelgin.Middleware("entitlement-service"))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, authHandler, usageHandler, billingHandler, webhookHandler, entitlements, rateLimiter, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:   infra,
		config:  cfg,
		router:  router,
		server:  srv,
		sweeper: sweeper,
	}
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	usageHandler *handler.UsageHandler,
	billingHandler *handler.BillingHandler,
	webhookHandler *handler.WebhookHandler,
	entitlements service.EntitlementService,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register",
				handler.RateLimitMiddleware(rateLimiter, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration, handler.IPBasedKey),
				authHandler.Register,
			)
			auth.POST("/login",
				handler.RateLimitMiddleware(rateLimiter, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration, handler.IPBasedKey),
				authHandler.Login,
			)
			auth.POST("/logout", handler.AuthMiddleware(entitlements), authHandler.Logout)
			auth.GET("/me", handler.AuthMiddleware(entitlements), authHandler.GetMe)
		}

		usage := api.Group("/usage", handler.AuthMiddleware(entitlements))
		{
			usage.GET("", usageHandler.CheckEntitlement)
			usage.POST("", usageHandler.RecordUsage)
		}

		billing := api.Group("/billing", handler.AuthMiddleware(entitlements))
		{
			billing.POST("/checkout", billingHandler.CreateCheckout)
			billing.POST("/portal", billingHandler.OpenPortal)
			billing.GET("/subscription", billingHandler.GetSubscription)
		}

		// Authenticated by signature over the raw body, not by bearer
		// token, so it stays outside the billing group's middleware
		api.POST("/billing/webhook", webhookHandler.HandleEvent)
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go a.sweeper.Run(ctx)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
