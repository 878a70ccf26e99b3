// Package sheets defines the outbound port used by the export worker.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// TransactionExporter appends a transaction to an external ledger and returns
// a reference to the written row.
type TransactionExporter interface {
	Export(ctx context.Context, tx core.Transaction) (rowRef string, err error)
}
