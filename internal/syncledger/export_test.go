package syncledger

import (
	"context"
	"database/sql"
)

// Exec runs raw SQL against the ledger for tests.
func (l *Ledger) Exec(ctx context.Context, query string) (sql.Result, error) {
	return l.db.ExecContext(ctx, query)
}
