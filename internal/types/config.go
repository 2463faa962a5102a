package types

type RunMode string

const (
	// ModeLocal is the mode for local development without a real payment processor
	ModeLocal RunMode = "local"
	// ModeAPI is the mode for running the API server
	ModeAPI RunMode = "api"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
)

// ReconcileMode selects whether a reconciliation run only reports drift
// or also applies corrections to the billing store.
type ReconcileMode string

const (
	ReconcileModeAudit   ReconcileMode = "audit"
	ReconcileModeCorrect ReconcileMode = "correct"
)

func (m ReconcileMode) Validate() bool {
	return m == ReconcileModeAudit || m == ReconcileModeCorrect
}
