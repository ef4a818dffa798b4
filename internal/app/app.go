package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/media-favourites/internal/config"
	"github.com/prperemyshlev/media-favourites/internal/handler"
	"github.com/prperemyshlev/media-favourites/internal/mail"
	"github.com/prperemyshlev/media-favourites/internal/repository"
	"github.com/prperemyshlev/media-favourites/internal/service"
	"github.com/prperemyshlev/media-favourites/internal/utils"
	"github.com/prperemyshlev/media-favourites/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 5 * time.Second
	mailRetryDelay  = 2 * time.Second
)

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
	worker *mail.Worker
}

// Option customises NewApp
type Option func(*options)

type options struct {
	sender mail.Sender
}

// WithMailSender replaces the SMTP sender, e.g. with one that captures messages
func WithMailSender(sender mail.Sender) Option {
	return func(o *options) {
		o.sender = sender
	}
}

func NewApp(infra Infrastructure, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sender == nil {
		o.sender = mail.NewSMTPSender(cfg.Mail.SMTPHost, cfg.Mail.SMTPPort, cfg.Mail.SMTPUser, cfg.Mail.SMTPPassword, cfg.Mail.From)
	}

	logger := infra.Logger()

	metrics, err := observability.NewMetrics(infra.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	repos := repository.NewRepositories(infra.Postgres())

	tokenManager := utils.NewTokenManager(
		utils.TokenSettings{Secret: cfg.JWT.AccessSecret, Expiry: cfg.JWT.AccessTokenExpiry.Duration},
		utils.TokenSettings{Secret: cfg.JWT.RefreshSecret, Expiry: cfg.JWT.RefreshTokenExpiry.Duration},
		utils.TokenSettings{Secret: cfg.JWT.ResetSecret, Expiry: cfg.JWT.ResetTokenExpiry.Duration},
	)

	templates := &mail.Templates{
		VerifyURL: cfg.Mail.VerifyURL,
		ResetURL:  cfg.Mail.ResetURL,
	}

	var (
		mailer service.Mailer
		worker *mail.Worker
		queue  *mail.Queue
	)
	switch cfg.Mail.Delivery {
	case config.MailDeliveryQueue:
		queue = mail.NewQueue(infra.Redis().Client)
		mailer = mail.NewQueuedMailer(queue)
		worker = mail.NewWorker(queue, templates, o.sender, mail.WorkerOptions{
			MaxAttempts: cfg.Mail.MaxAttempts,
			PollTimeout: cfg.Mail.PollTimeout.Duration,
			RetryDelay:  mailRetryDelay,
		}, metrics, logger.Named("mail"))
	default:
		mailer = mail.NewDirectMailer(templates, o.sender, metrics, logger.Named("mail"))
	}

	authService := service.NewAuthService(repos.User, tokenManager, mailer, metrics, logger, cfg.Security.BCryptCost)
	favouriteService := service.NewFavouriteService(repos.Favourite)
	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra, queue)

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, routes{
		cfg:         cfg,
		auth:        handler.NewAuthHandler(authService, logger),
		user:        handler.NewUserHandler(authService, logger),
		favourite:   handler.NewFavouriteHandler(favouriteService, logger),
		tokens:      tokenManager,
		rateLimiter: rateLimiter,
		health:      healthChecker,
		metrics:     infra.MetricsHandler(),
		logger:      logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
		worker: worker,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

type routes struct {
	cfg         *config.Config
	auth        *handler.AuthHandler
	user        *handler.UserHandler
	favourite   *handler.FavouriteHandler
	tokens      handler.TokenValidator
	rateLimiter handler.Limiter
	health      *HealthChecker
	metrics     http.Handler
	logger      *zap.Logger
}

func setupRoutes(router *gin.Engine, r routes) {
	router.GET("/metrics", observability.PrometheusHandler(r.metrics))
	router.GET("/health", r.health.Handler)

	rateLimit := handler.RateLimitMiddleware(
		r.rateLimiter,
		r.cfg.Security.RateLimitRequests,
		r.cfg.Security.RateLimitWindow.Duration,
		handler.RouteAndIPKey,
		r.logger,
	)
	requireAuth := handler.AuthMiddleware(r.tokens)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", rateLimit, r.auth.Signup)
			auth.POST("/login", rateLimit, r.auth.Login)
			auth.GET("/verify-email", r.auth.VerifyEmail)
			auth.POST("/check-verification-status", r.auth.CheckVerificationStatus)
			auth.POST("/initiate-password-reset", rateLimit, r.auth.InitiatePasswordReset)
			auth.POST("/complete-password-reset", r.auth.CompletePasswordReset)
		}

		user := api.Group("/user", requireAuth)
		{
			user.GET("/profile", r.user.Profile)
		}

		favourite := api.Group("/favourite", requireAuth)
		{
			favourite.GET("", r.favourite.List)
			favourite.GET("/ids", r.favourite.ListIDs)
			favourite.GET("/top", r.favourite.Top)
			favourite.POST("", r.favourite.Add)
			favourite.DELETE("/:mediaId", r.favourite.Remove)
		}
	}
}

// Run starts the mail worker, when mail is queued, and the HTTP server, then
// blocks until ctx is done or the server fails.
func (a *App) Run(ctx context.Context) error {
	logger := a.infra.Logger()

	if a.worker != nil {
		if err := a.worker.Start(ctx); err != nil {
			return fmt.Errorf("failed to start mail worker: %w", err)
		}
	}

	errChan := make(chan error, 1)

	go func() {
		logger.Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
			zap.String("mail_delivery", a.config.Mail.Delivery),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		logger.Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		logger.Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

// Shutdown drains HTTP first, then lets the mail worker finish its job, then
// closes the infrastructure both depend on.
func (a *App) Shutdown() error {
	logger := a.infra.Logger()
	logger.Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	serverErr := a.server.Shutdown(ctx)

	if a.worker != nil {
		a.worker.Stop()
	}

	err := errors.Join(serverErr, a.infra.Shutdown(ctx))
	if err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
		return err
	}

	logger.Info("Application exited successfully")
	return nil
}
