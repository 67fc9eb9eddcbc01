package sqlite

import (
	"testing"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/database"
	"github.com/stretchr/testify/require"
)

// newTestDB opens a fresh in-memory database with the schema applied. Each
// test gets its own store, so no truncation between tests is needed.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
