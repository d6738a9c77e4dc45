package warehouse

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/warehouse-agent/internal/config"
	"github.com/sells-group/warehouse-agent/internal/db"
	"github.com/sells-group/warehouse-agent/internal/model"
	"github.com/sells-group/warehouse-agent/internal/resilience"
)

const (
	pgSchemasQuery = `SELECT DISTINCT table_schema FROM information_schema.tables
WHERE table_schema NOT IN ('information_schema', 'pg_catalog')
ORDER BY table_schema`
	pgTablesQuery  = `SELECT table_name FROM information_schema.tables WHERE table_schema = $1 ORDER BY table_name`
	pgColumnsQuery = `SELECT column_name, data_type FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`
)

// PostgresWarehouse serves postgres through a pgx pool.
type PostgresWarehouse struct {
	pool db.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool db.Pool) *PostgresWarehouse {
	return &PostgresWarehouse{pool: pool}
}

// OpenPostgres creates a pool for cfg.DSN. With ReadOnly set every session
// defaults to read-only transactions.
func OpenPostgres(ctx context.Context, cfg config.WarehouseConfig) (*PostgresWarehouse, error) {
	poolCfg := db.PoolConfig{}
	if cfg.ReadOnly {
		poolCfg.RuntimeParams = map[string]string{"default_transaction_read_only": "on"}
	}
	if _, err := pgxpool.ParseConfig(cfg.DSN); err != nil {
		return nil, eris.Wrap(err, "warehouse: open postgres")
	}
	pool, err := db.NewPool(ctx, cfg.DSN, poolCfg)
	if err != nil {
		return nil, connectionError(err)
	}
	return &PostgresWarehouse{pool: pool}, nil
}

// isPgFault reports whether err is a connection-level failure rather than a
// server-reported SQL error.
func isPgFault(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return false
	}
	if pgconn.Timeout(err) || resilience.IsNetworkFault(err) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "conn closed") || strings.Contains(msg, "closed pool") || strings.Contains(msg, "failed to connect")
}

// Close closes the pool.
func (w *PostgresWarehouse) Close() error {
	w.pool.Close()
	return nil
}

// Summary implements Catalog.
func (w *PostgresWarehouse) Summary(ctx context.Context, schemas []string) (model.SchemaSummary, error) {
	return buildSummary(ctx, w, schemas)
}

// Schemas implements Catalog.
func (w *PostgresWarehouse) Schemas(ctx context.Context) ([]string, error) {
	return userSchemas(ctx, w)
}

// Run implements Executor.
func (w *PostgresWarehouse) Run(ctx context.Context, query string) (model.ExecutionOutcome, error) {
	rows, err := w.pool.Query(ctx, query)
	if err != nil {
		return failureOrFault(ctx, err, isPgFault)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	columns := uniqueColumns(names)

	var out []model.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return failureOrFault(ctx, err, isPgFault)
		}
		out = append(out, toRow(columns, values))
	}
	if err := rows.Err(); err != nil {
		return failureOrFault(ctx, err, isPgFault)
	}

	return model.Succeeded(columns, out), nil
}

func (w *PostgresWarehouse) listSchemas(ctx context.Context) ([]string, error) {
	return w.queryStrings(ctx, "list schemas", pgSchemasQuery)
}

func (w *PostgresWarehouse) listTables(ctx context.Context, schema string) ([]string, error) {
	return w.queryStrings(ctx, "list tables", pgTablesQuery, schema)
}

func (w *PostgresWarehouse) listColumns(ctx context.Context, schema, table string) ([]model.Column, error) {
	rows, err := w.pool.Query(ctx, pgColumnsQuery, schema, table)
	if err != nil {
		return nil, catalogError(err, isPgFault, "list columns")
	}
	defer rows.Close()

	var cols []model.Column
	for rows.Next() {
		var c model.Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, eris.Wrap(err, "warehouse: scan column")
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, catalogError(err, isPgFault, "list columns")
	}
	return cols, nil
}

func (w *PostgresWarehouse) countRows(ctx context.Context, schema, table string) (int64, error) {
	var n int64
	if err := w.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+db.QuoteIdent(schema, table)).Scan(&n); err != nil {
		return 0, catalogError(err, isPgFault, "count "+schema+"."+table)
	}
	return n, nil
}

func (w *PostgresWarehouse) queryStrings(ctx context.Context, action, q string, args ...any) ([]string, error) {
	rows, err := w.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, catalogError(err, isPgFault, action)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, eris.Wrapf(err, "warehouse: %s: scan", action)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, catalogError(err, isPgFault, action)
	}
	return out, nil
}
