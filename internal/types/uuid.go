package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex run_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	// UUID_PREFIX_RECONCILIATION_RUN is the prefix for reconciliation run ids
	UUID_PREFIX_RECONCILIATION_RUN = "run"
	// UUID_PREFIX_REQUEST is the prefix for request ids
	UUID_PREFIX_REQUEST = "req"
)
