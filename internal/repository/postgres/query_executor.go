package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"ledgerlens/internal/config"
	"ledgerlens/internal/port"
)

type queryExecutor struct {
	db  *sqlx.DB
	cfg config.AnalyticsConfig
}

// NewQueryExecutor creates the read-only executor used by the analytics
// query guard. Every query runs inside a read-only transaction under a
// statement timeout; there is no retry path.
func NewQueryExecutor(db *sqlx.DB, cfg config.AnalyticsConfig) port.ReadOnlyQueryExecutor {
	return &queryExecutor{db: db, cfg: cfg}
}

func (e *queryExecutor) RunReadOnly(ctx context.Context, query string) (*port.QueryRows, error) {
	tx, err := e.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("queryExecutor.RunReadOnly begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	timeoutMS := e.cfg.StatementTimeout.Milliseconds()
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("SET LOCAL statement_timeout = %d", timeoutMS)); err != nil {
		return nil, fmt.Errorf("queryExecutor.RunReadOnly timeout: %w", err)
	}

	rows, err := tx.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("queryExecutor.RunReadOnly: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("queryExecutor.RunReadOnly columns: %w", err)
	}

	result := &port.QueryRows{Columns: columns}
	for rows.Next() {
		if e.cfg.MaxRows > 0 && len(result.Rows) >= e.cfg.MaxRows {
			break
		}
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("queryExecutor.RunReadOnly scan: %w", err)
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("queryExecutor.RunReadOnly rows: %w", err)
	}
	return result, nil
}
