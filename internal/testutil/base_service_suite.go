package testutil

import (
	"context"
	"time"

	"github.com/notara/billing/internal/config"
	"github.com/notara/billing/internal/logger"
	sentryService "github.com/notara/billing/internal/sentry"
	"github.com/notara/billing/internal/types"
	"github.com/stretchr/testify/suite"
)

// BaseServiceTestSuite provides common functionality for service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	logger *logger.Logger
	config *config.Configuration
	sentry *sentryService.Service
	now    time.Time

	store    *InMemoryBillingStore
	ledger   *FakeLedger
	verifier *FakeSubscriptionVerifier
	checkout *FakeCheckoutClient
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	cfg := config.GetDefaultConfig()
	log, err := logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
	s.config = cfg
	s.logger = log
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = context.WithValue(context.Background(), types.CtxUserID, "user_test")
	s.now = time.Now().UTC()
	s.store = NewInMemoryBillingStore()
	s.ledger = NewFakeLedger()
	s.verifier = NewFakeSubscriptionVerifier()
	s.checkout = NewFakeCheckoutClient()

	// Fresh config per test so flag flips don't leak between tests
	cfg := config.GetDefaultConfig()
	cfg.Logging = s.config.Logging
	s.config = cfg
	s.sentry = sentryService.NewSentryService(cfg, s.logger)
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetSentry() *sentryService.Service {
	return s.sentry
}

func (s *BaseServiceTestSuite) GetStore() *InMemoryBillingStore {
	return s.store
}

func (s *BaseServiceTestSuite) GetLedger() *FakeLedger {
	return s.ledger
}

func (s *BaseServiceTestSuite) SetLedger(l *FakeLedger) {
	s.ledger = l
}

func (s *BaseServiceTestSuite) GetVerifier() *FakeSubscriptionVerifier {
	return s.verifier
}

func (s *BaseServiceTestSuite) GetCheckout() *FakeCheckoutClient {
	return s.checkout
}
