package api

import (
	"github.com/gin-gonic/gin"
	"github.com/notara/billing/internal/api/cron"
	v1 "github.com/notara/billing/internal/api/v1"
	"github.com/notara/billing/internal/config"
	"github.com/notara/billing/internal/logger"
	"github.com/notara/billing/internal/rest/middleware"
)

type Handlers struct {
	Health             *v1.HealthHandler
	Billing            *v1.BillingHandler
	ReconciliationCron *cron.ReconciliationCronHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.ErrorHandler())

	limiter := middleware.NewRateLimiter(log)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers, limiter, cfg)

	cronGroup := router.Group("/cron")
	registerCronRoutes(cronGroup, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers, limiter *middleware.RateLimiter, cfg *config.Configuration) {
	billing := router.Group("/billing")
	{
		// Checkout initiation carries its own, stricter limit than the rest
		// of the API so an abusive origin can not mint sessions freely.
		billing.POST("/checkout",
			middleware.RateLimit(limiter, middleware.RateLimitPolicy{
				Name:     "billing_checkout",
				Requests: cfg.RateLimit.CheckoutRequests,
				Window:   cfg.RateLimit.CheckoutWindow,
			}),
			handlers.Billing.InitiateCheckout,
		)
		billing.POST("/verify", handlers.Billing.VerifyPlan)
		billing.POST("/reconcile", handlers.Billing.Reconcile)
	}
}

func registerCronRoutes(router *gin.RouterGroup, handlers Handlers) {
	reconciliation := router.Group("/reconciliation")
	{
		reconciliation.POST("/run", handlers.ReconciliationCron.RunReconciliation)
	}
}
