package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/notara/billing/internal/config"
	"github.com/notara/billing/internal/domain/billing"
	ierr "github.com/notara/billing/internal/errors"
	"github.com/notara/billing/internal/logger"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS billing_records (
	entity_id                 TEXT PRIMARY KEY,
	plan                      TEXT NOT NULL,
	external_customer_ref     TEXT,
	external_subscription_ref TEXT,
	plan_started_at           TIMESTAMP,
	plan_ended_at             TIMESTAMP,
	dev_override              BOOLEAN NOT NULL DEFAULT FALSE,
	created_at                TIMESTAMP NOT NULL,
	updated_at                TIMESTAMP NOT NULL,
	created_by                TEXT NOT NULL DEFAULT '',
	updated_by                TEXT NOT NULL DEFAULT ''
);
`

// NewDB opens the billing database and bootstraps the schema.
func NewDB(cfg *config.Configuration, log *logger.Logger) (*sqlx.DB, error) {
	dsn := cfg.SQLite.GetDSN()
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to open the billing database").
			Mark(ierr.ErrDatabase)
	}
	// An in-memory database exists per connection, so the pool must not open
	// a second one or half the queries land on an empty database.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to initialize the billing schema").
			Mark(ierr.ErrDatabase)
	}
	log.Infow("billing database ready", "path", dsn)
	return db, nil
}

type billingRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewBillingRepository returns a billing.Repository backed by SQLite. Every
// operation is a single statement, so each read and each write is atomic on
// its own.
func NewBillingRepository(db *sqlx.DB, logger *logger.Logger) billing.Repository {
	return &billingRepository{
		db:     db,
		logger: logger,
	}
}

func (r *billingRepository) Get(ctx context.Context, entityID string) (*billing.Record, error) {
	var record billing.Record
	err := r.db.GetContext(ctx, &record,
		`SELECT * FROM billing_records WHERE entity_id = ?`, entityID)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("billing record not found").
			WithHintf("No billing record for entity: %s", entityID).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load billing record").
			Mark(ierr.ErrDatabase)
	}
	return &record, nil
}

// Create inserts a new record, first write wins: a concurrent insert for the
// same entity surfaces as an already-exists error instead of overwriting.
func (r *billingRepository) Create(ctx context.Context, record *billing.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	res, err := r.db.NamedExecContext(ctx, `
		INSERT INTO billing_records (
			entity_id, plan, external_customer_ref, external_subscription_ref,
			plan_started_at, plan_ended_at, dev_override,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:entity_id, :plan, :external_customer_ref, :external_subscription_ref,
			:plan_started_at, :plan_ended_at, :dev_override,
			:created_at, :updated_at, :created_by, :updated_by
		)
		ON CONFLICT(entity_id) DO NOTHING`, record)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create billing record").
			Mark(ierr.ErrDatabase)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	if affected == 0 {
		return ierr.NewError("billing record already exists").
			WithHintf("A billing record already exists for entity: %s", record.EntityID).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (r *billingRepository) Update(ctx context.Context, record *billing.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE billing_records SET
			plan = :plan,
			external_customer_ref = :external_customer_ref,
			external_subscription_ref = :external_subscription_ref,
			plan_started_at = :plan_started_at,
			plan_ended_at = :plan_ended_at,
			dev_override = :dev_override,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE entity_id = :entity_id`, record)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update billing record").
			Mark(ierr.ErrDatabase)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	if affected == 0 {
		return ierr.NewError("billing record not found").
			WithHintf("No billing record for entity: %s", record.EntityID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
