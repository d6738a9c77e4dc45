package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2" // duckdb driver
	_ "github.com/microsoft/go-mssqldb"   // sqlserver driver
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/sells-group/warehouse-agent/internal/config"
	"github.com/sells-group/warehouse-agent/internal/model"
	"github.com/sells-group/warehouse-agent/internal/resilience"
)

// dialect holds the catalog queries of one database/sql engine.
type dialect struct {
	name       string
	driverName string
	schemas    string
	tables     func(schema string) (string, []any)
	columns    func(schema, table string) (string, []any)
	count      func(schema, table string) string
}

func doubleQuote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func bracketQuote(v string) string {
	return "[" + strings.ReplaceAll(v, "]", "]]") + "]"
}

var dialects = map[string]dialect{
	"duckdb": {
		name:       "duckdb",
		driverName: "duckdb",
		schemas: `SELECT DISTINCT table_schema FROM information_schema.tables
WHERE table_schema NOT IN ('information_schema', 'pg_catalog')
ORDER BY table_schema`,
		tables: func(schema string) (string, []any) {
			return `SELECT table_name FROM information_schema.tables WHERE table_schema = ? ORDER BY table_name`, []any{schema}
		},
		columns: func(schema, table string) (string, []any) {
			return `SELECT column_name, data_type FROM information_schema.columns
WHERE table_schema = ? AND table_name = ?
ORDER BY ordinal_position`, []any{schema, table}
		},
		count: func(schema, table string) string {
			return "SELECT COUNT(*) FROM " + doubleQuote(schema) + "." + doubleQuote(table)
		},
	},
	"sqlite": {
		name:       "sqlite",
		driverName: "sqlite",
		schemas:    `SELECT name FROM pragma_database_list WHERE name <> 'temp' ORDER BY seq`,
		tables: func(schema string) (string, []any) {
			return fmt.Sprintf(`SELECT name FROM %s.sqlite_master
WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%%'
ORDER BY name`, doubleQuote(schema)), nil
		},
		columns: func(schema, table string) (string, []any) {
			return `SELECT name, type FROM pragma_table_info(?, ?) ORDER BY cid`, []any{table, schema}
		},
		count: func(schema, table string) string {
			return "SELECT COUNT(*) FROM " + doubleQuote(schema) + "." + doubleQuote(table)
		},
	},
	"sqlserver": {
		name:       "sqlserver",
		driverName: "sqlserver",
		schemas: `SELECT DISTINCT TABLE_SCHEMA FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_SCHEMA NOT IN ('INFORMATION_SCHEMA', 'sys')
ORDER BY TABLE_SCHEMA`,
		tables: func(schema string) (string, []any) {
			return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @p1 ORDER BY TABLE_NAME`, []any{schema}
		},
		columns: func(schema, table string) (string, []any) {
			return `SELECT COLUMN_NAME, DATA_TYPE FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
ORDER BY ORDINAL_POSITION`, []any{schema, table}
		},
		count: func(schema, table string) string {
			return "SELECT COUNT_BIG(*) FROM " + bracketQuote(schema) + "." + bracketQuote(table)
		},
	},
}

// SQLWarehouse serves duckdb, sqlite and sqlserver through database/sql.
type SQLWarehouse struct {
	db      *sql.DB
	dialect dialect
}

// NewSQL wraps an open *sql.DB using the catalog queries of driver.
func NewSQL(db *sql.DB, driver string) (*SQLWarehouse, error) {
	if driver == "" {
		driver = "duckdb"
	}
	d, ok := dialects[driver]
	if !ok {
		return nil, eris.Errorf("warehouse: unsupported driver %q", driver)
	}
	return &SQLWarehouse{db: db, dialect: d}, nil
}

// OpenSQL opens and pings a database/sql warehouse.
func OpenSQL(ctx context.Context, cfg config.WarehouseConfig) (*SQLWarehouse, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "duckdb"
	}
	d, ok := dialects[driver]
	if !ok {
		return nil, eris.Errorf("warehouse: unsupported driver %q", driver)
	}

	dsn := cfg.DSN
	if cfg.ReadOnly {
		dsn = readOnlyDSN(driver, dsn)
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, eris.Wrapf(err, "warehouse: open %s", driver)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, connectionError(err)
	}
	return &SQLWarehouse{db: db, dialect: d}, nil
}

// readOnlyDSN adds the engine's read-only flag to file-backed DSNs. In-memory
// databases and engines without a DSN-level switch are returned unchanged.
func readOnlyDSN(driver, dsn string) string {
	if dsn == "" || dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	switch driver {
	case "duckdb":
		if strings.Contains(strings.ToLower(dsn), "access_mode=") {
			return dsn
		}
		return dsn + sep + "access_mode=READ_ONLY"
	case "sqlite":
		if strings.Contains(dsn, "mode=") {
			return dsn
		}
		if !strings.HasPrefix(dsn, "file:") {
			dsn = "file:" + dsn
		}
		return dsn + sep + "mode=ro"
	}
	return dsn
}

// Close closes the underlying database.
func (w *SQLWarehouse) Close() error {
	return w.db.Close()
}

// Driver returns the dialect name.
func (w *SQLWarehouse) Driver() string {
	return w.dialect.name
}

// Summary implements Catalog.
func (w *SQLWarehouse) Summary(ctx context.Context, schemas []string) (model.SchemaSummary, error) {
	return buildSummary(ctx, w, schemas)
}

// Schemas implements Catalog.
func (w *SQLWarehouse) Schemas(ctx context.Context) ([]string, error) {
	return userSchemas(ctx, w)
}

// Run implements Executor.
func (w *SQLWarehouse) Run(ctx context.Context, query string) (model.ExecutionOutcome, error) {
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return failureOrFault(ctx, err, resilience.IsNetworkFault)
	}
	defer rows.Close() //nolint:errcheck

	names, err := rows.Columns()
	if err != nil {
		return failureOrFault(ctx, err, resilience.IsNetworkFault)
	}
	columns := uniqueColumns(names)

	var out []model.Row
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return failureOrFault(ctx, err, resilience.IsNetworkFault)
		}
		out = append(out, toRow(columns, values))
	}
	if err := rows.Err(); err != nil {
		return failureOrFault(ctx, err, resilience.IsNetworkFault)
	}

	return model.Succeeded(columns, out), nil
}

func (w *SQLWarehouse) listSchemas(ctx context.Context) ([]string, error) {
	return w.queryStrings(ctx, "list schemas", w.dialect.schemas)
}

func (w *SQLWarehouse) listTables(ctx context.Context, schema string) ([]string, error) {
	q, args := w.dialect.tables(schema)
	return w.queryStrings(ctx, "list tables", q, args...)
}

func (w *SQLWarehouse) listColumns(ctx context.Context, schema, table string) ([]model.Column, error) {
	q, args := w.dialect.columns(schema, table)
	rows, err := w.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, catalogError(err, resilience.IsNetworkFault, "list columns")
	}
	defer rows.Close() //nolint:errcheck

	var cols []model.Column
	for rows.Next() {
		var c model.Column
		var typ sql.NullString
		if err := rows.Scan(&c.Name, &typ); err != nil {
			return nil, eris.Wrap(err, "warehouse: scan column")
		}
		c.Type = typ.String
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, catalogError(err, resilience.IsNetworkFault, "list columns")
	}
	return cols, nil
}

func (w *SQLWarehouse) countRows(ctx context.Context, schema, table string) (int64, error) {
	var n int64
	if err := w.db.QueryRowContext(ctx, w.dialect.count(schema, table)).Scan(&n); err != nil {
		return 0, catalogError(err, resilience.IsNetworkFault, "count "+schema+"."+table)
	}
	return n, nil
}

func (w *SQLWarehouse) queryStrings(ctx context.Context, action, q string, args ...any) ([]string, error) {
	rows, err := w.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, catalogError(err, resilience.IsNetworkFault, action)
	}
	defer rows.Close() //nolint:errcheck

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, eris.Wrapf(err, "warehouse: %s: scan", action)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, catalogError(err, resilience.IsNetworkFault, action)
	}
	return out, nil
}
