package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/notara/billing/internal/api"
	"github.com/notara/billing/internal/api/cron"
	v1 "github.com/notara/billing/internal/api/v1"
	"github.com/notara/billing/internal/config"
	"github.com/notara/billing/internal/domain/billing"
	"github.com/notara/billing/internal/integration/stripe"
	"github.com/notara/billing/internal/logger"
	"github.com/notara/billing/internal/repository/sqlite"
	"github.com/notara/billing/internal/sentry"
	"github.com/notara/billing/internal/service"
	"github.com/notara/billing/internal/types"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Monitoring
	opts = append(opts, sentry.Module())

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Storage
			sqlite.NewDB,
			sqlite.NewBillingRepository,

			// Payment processor
			stripe.NewClient,
			stripe.NewLedgerReader,
			stripe.NewSubscriptionVerifier,
			stripe.NewCheckoutClient,

			// Access control
			billing.NewAllowAllAccessChecker,

			// Services
			service.NewServiceParams,
			service.NewCheckoutService,
			service.NewVerificationService,
			service.NewReconciliationService,
		),
	)

	opts = append(opts,
		fx.Provide(
			provideHandlers,
			api.NewRouter,
		),
		fx.Invoke(
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideHandlers(
	logger *logger.Logger,
	checkoutService service.CheckoutService,
	verificationService service.VerificationService,
	reconciliationService service.ReconciliationService,
) api.Handlers {
	return api.Handlers{
		Health:             v1.NewHealthHandler(logger),
		Billing:            v1.NewBillingHandler(checkoutService, verificationService, reconciliationService, logger),
		ReconciliationCron: cron.NewReconciliationCronHandler(logger, reconciliationService),
	}
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeAPI
	}

	switch mode {
	case types.ModeLocal, types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting API server...")
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}
