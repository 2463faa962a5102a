package service

import (
	"github.com/notara/billing/internal/config"
	"github.com/notara/billing/internal/domain/billing"
	"github.com/notara/billing/internal/domain/ledger"
	"github.com/notara/billing/internal/logger"
	sentryService "github.com/notara/billing/internal/sentry"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	Sentry *sentryService.Service

	// Repositories
	BillingRepo billing.Repository

	// External collaborators
	LedgerReader         ledger.Reader
	SubscriptionVerifier ledger.SubscriptionVerifier
	CheckoutClient       ledger.CheckoutClient
	AccessChecker        billing.AccessChecker
}

// NewServiceParams assembles the common service dependencies for fx.
func NewServiceParams(
	logger *logger.Logger,
	cfg *config.Configuration,
	sentry *sentryService.Service,
	billingRepo billing.Repository,
	ledgerReader ledger.Reader,
	subscriptionVerifier ledger.SubscriptionVerifier,
	checkoutClient ledger.CheckoutClient,
	accessChecker billing.AccessChecker,
) ServiceParams {
	return ServiceParams{
		Logger:               logger,
		Config:               cfg,
		Sentry:               sentry,
		BillingRepo:          billingRepo,
		LedgerReader:         ledgerReader,
		SubscriptionVerifier: subscriptionVerifier,
		CheckoutClient:       checkoutClient,
		AccessChecker:        accessChecker,
	}
}
