// Package dbtest provides a migrated in-memory database for store and handler tests.
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"ms-admission/internal/database"
	"ms-admission/internal/database/migrations"
	"ms-admission/internal/logger"
)

func New(t testing.TB) *bun.DB {
	t.Helper()

	db, err := database.OpenSQLiteMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.NewRunner(db, logger.Nop()).RunMigrations())
	return db
}
