package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joho/godotenv"
	"github.com/notara/billing/internal/api/dto"
	"github.com/notara/billing/internal/config"
	"github.com/notara/billing/internal/domain/billing"
	ierr "github.com/notara/billing/internal/errors"
	"github.com/notara/billing/internal/integration/stripe"
	"github.com/notara/billing/internal/logger"
	"github.com/notara/billing/internal/repository/sqlite"
	sentryService "github.com/notara/billing/internal/sentry"
	"github.com/notara/billing/internal/service"
	"github.com/notara/billing/internal/types"
)

func init() {
	time.Local = time.UTC
}

// reconcile is the operator entrypoint for one-off ledger scans. It retries
// transient ledger outages and exits non-zero when the run could not finish.
func main() {
	mode := flag.String("mode", string(types.ReconcileModeAudit), "reconciliation mode: audit or correct")
	maxRetries := flag.Uint("max-retries", 3, "retries for transient ledger failures")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	db, err := sqlite.NewDB(cfg, log)
	if err != nil {
		log.Fatalf("failed to open billing store: %v", err)
	}
	defer db.Close()

	stripeClient, err := stripe.NewClient(cfg, log)
	if err != nil {
		log.Fatalf("failed to initialize payment processor client: %v", err)
	}

	sentry := sentryService.NewSentryService(cfg, log)

	params := service.NewServiceParams(
		log,
		cfg,
		sentry,
		sqlite.NewBillingRepository(db, log),
		stripe.NewLedgerReader(stripeClient, sentry, log),
		stripe.NewSubscriptionVerifier(stripeClient, log),
		stripe.NewCheckoutClient(stripeClient, log),
		billing.NewAllowAllAccessChecker(),
	)
	reconciliationService := service.NewReconciliationService(params)

	ctx := context.Background()
	runMode := types.ReconcileMode(*mode)

	var report *dto.DriftReport
	operation := func() error {
		var runErr error
		report, runErr = reconciliationService.Reconcile(ctx, runMode)
		if runErr == nil {
			return nil
		}
		if ierr.IsLedgerUnavailable(runErr) {
			log.Warnw("ledger unavailable, retrying", "error", runErr)
			return runErr
		}
		return backoff.Permanent(runErr)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(*maxRetries))
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		log.Fatalf("reconciliation failed: %v", err)
	}

	log.Infow("reconciliation complete",
		"run_id", report.RunID,
		"mode", report.Mode,
		"scanned_events", report.ScannedEvents,
		"unlinked_events", report.UnlinkedEvents,
		"drift_count", report.DriftCount,
		"corrected_count", report.CorrectedCount,
		"failed_count", report.FailedCount,
	)

	for _, entry := range report.Entries {
		log.Infow("drift entry",
			"entity_id", entry.EntityID,
			"expected_plan", entry.Expected.Plan,
			"actual_plan", actualPlan(entry),
		)
	}
	for _, failure := range report.Errors {
		log.Warnw("drift failure",
			"entity_id", failure.EntityID,
			"stage", failure.Stage,
			"error", failure.Error,
		)
	}

	if report.FailedCount > 0 {
		os.Exit(1)
	}
}

func actualPlan(entry *dto.DriftEntry) string {
	if entry.Actual == nil {
		return "absent"
	}
	return string(entry.Actual.Plan)
}
