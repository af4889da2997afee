// Package mirror defines the outbound port for copying appended transactions
// to an external spreadsheet. Mirroring is best effort: the local table is
// the source of truth and mirror failures never fail an append.
package mirror

import (
	"context"

	"ledgerfusion/internal/core"
)

// TransactionMirror appends one transaction to an external copy and returns
// a reference to the written row.
type TransactionMirror interface {
	Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
}
