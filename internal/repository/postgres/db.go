package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/queosk/queosk/internal/domain"
	"github.com/queosk/queosk/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate creates the queue schema if it does not exist yet. The statement
// set is chosen from the driver name so tests can run on sqlite.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	file := "migrations/postgres.sql"
	if strings.HasPrefix(db.DriverName(), "sqlite") {
		file = "migrations/sqlite.sql"
	}

	raw, err := migrationFS.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	for _, stmt := range strings.Split(string(raw), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	logger.Info("Database schema ready", logger.String("driver", db.DriverName()))
	return nil
}

type txKey struct{}

// executor returns the transaction carried by ctx, or the pool.
func executor(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

// Transactor implements domain.Transactor on top of sqlx
type Transactor struct {
	db                *sqlx.DB
	readOnlySupported bool
}

var _ domain.Transactor = (*Transactor)(nil)

// NewTransactor creates a new transactor
func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{
		db:                db,
		readOnlySupported: db.DriverName() == "postgres",
	}
}

// WithinTransaction runs fn in a read-write transaction
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.run(ctx, nil, fn)
}

// WithinReadOnlyTransaction runs fn in a read-only transaction where the driver supports it
func (t *Transactor) WithinReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	var opts *sql.TxOptions
	if t.readOnlySupported {
		opts = &sql.TxOptions{ReadOnly: true}
	}
	return t.run(ctx, opts, fn)
}

func (t *Transactor) run(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) (err error) {
	// Nested calls join the outer transaction.
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("Failed to roll back transaction", logger.ErrorField(rbErr))
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, tx))
}
