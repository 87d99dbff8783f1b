// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/queosk/queosk/internal/repository/postgres"
)

// NewSQLiteDB opens a private in-memory database with the queue schema applied.
// A single connection keeps every statement on the same in-memory database.
func NewSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, postgres.Migrate(context.Background(), db))
	return db
}
