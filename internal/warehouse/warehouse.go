// Package warehouse discovers the catalog of an analytical database and runs
// generated SQL against it. Engine failures come back as failed outcomes;
// only connection faults are returned as errors.
package warehouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/warehouse-agent/internal/config"
	"github.com/sells-group/warehouse-agent/internal/model"
)

// ErrConnection marks failures to reach the warehouse.
var ErrConnection = errors.New("warehouse: connection failed")

// Catalog discovers schemas, tables and columns.
type Catalog interface {
	// Summary renders the catalog restricted to schemas. An empty list means
	// every non-system schema.
	Summary(ctx context.Context, schemas []string) (model.SchemaSummary, error)
	Schemas(ctx context.Context) ([]string, error)
}

// Executor runs one SQL statement.
type Executor interface {
	Run(ctx context.Context, sql string) (model.ExecutionOutcome, error)
}

// Warehouse is an open connection serving both roles.
type Warehouse interface {
	Catalog
	Executor
	Close() error
}

type connError struct {
	err error
}

func (e *connError) Error() string {
	return fmt.Sprintf("warehouse: connection failed: %v", e.err)
}

func (e *connError) Unwrap() error { return e.err }

func (e *connError) Is(target error) bool { return target == ErrConnection }

func connectionError(err error) error {
	return &connError{err: err}
}

// Open connects to the configured warehouse and verifies connectivity.
func Open(ctx context.Context, cfg config.WarehouseConfig) (Warehouse, error) {
	switch cfg.Driver {
	case "postgres":
		return OpenPostgres(ctx, cfg)
	case "duckdb", "sqlite", "sqlserver", "":
		return OpenSQL(ctx, cfg)
	default:
		return nil, eris.Errorf("warehouse: unsupported driver %q", cfg.Driver)
	}
}

// failureOrFault turns an execution error into a failed outcome, or returns
// it when the connection itself broke or ctx ended.
func failureOrFault(ctx context.Context, err error, fault func(error) bool) (model.ExecutionOutcome, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return model.ExecutionOutcome{}, eris.Wrap(ctxErr, "warehouse: run")
	}
	if fault(err) {
		return model.ExecutionOutcome{}, connectionError(err)
	}
	return model.Failed(err.Error()), nil
}

// catalogError wraps an introspection failure, marking connection faults.
func catalogError(err error, fault func(error) bool, action string) error {
	if fault(err) {
		return connectionError(err)
	}
	return eris.Wrap(err, "warehouse: "+action)
}
