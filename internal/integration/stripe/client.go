package stripe

import (
	"github.com/notara/billing/internal/config"
	ierr "github.com/notara/billing/internal/errors"
	"github.com/notara/billing/internal/logger"
	"github.com/stripe/stripe-go/v82"
)

// Client handles Stripe API client setup and configuration
type Client struct {
	cfg    *config.Configuration
	api    *stripe.Client
	logger *logger.Logger
}

// NewClient creates a new Stripe client from the application configuration
func NewClient(cfg *config.Configuration, logger *logger.Logger) (*Client, error) {
	if cfg.Stripe.SecretKey == "" {
		return nil, ierr.NewError("stripe secret key not configured").
			WithHint("Set stripe.secret_key or NOTARA_STRIPE_SECRET_KEY").
			Mark(ierr.ErrValidation)
	}

	return &Client{
		cfg:    cfg,
		api:    stripe.NewClient(cfg.Stripe.SecretKey, nil),
		logger: logger,
	}, nil
}

// API returns the configured Stripe API client
func (c *Client) API() *stripe.Client {
	return c.api
}

// pageSize returns the configured ledger page size with a sane floor
func (c *Client) pageSize() int64 {
	if c.cfg.Billing.LedgerPageSize > 0 {
		return c.cfg.Billing.LedgerPageSize
	}
	return 100
}
