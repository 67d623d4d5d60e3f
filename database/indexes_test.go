package database_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmms_backend/database"
	"cmms_backend/testutils"
)

func TestCreateIndexes(t *testing.T) {
	db := testutils.SetupTestDB(t)

	require.NoError(t, database.CreateIndexes(db))
	// Повторный вызов не падает благодаря IF NOT EXISTS
	require.NoError(t, database.CreateIndexes(db))

	var count int64
	db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?", "idx_pm_org_active_due").Scan(&count)
	assert.Equal(t, int64(1), count)

	// GIN индекс в SQLite пропускается
	db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?", "idx_pm_search").Scan(&count)
	assert.Equal(t, int64(0), count)

	require.NoError(t, database.DropIndex(db, "idx_pm_org_active_due"))
	db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?", "idx_pm_org_active_due").Scan(&count)
	assert.Equal(t, int64(0), count)
}

func TestGenerateCacheKey(t *testing.T) {
	orgID := uuid.MustParse("5f1c6d5e-6a3b-4a8e-9c1f-2d7b0e4a9f10")

	assert.Equal(t, "tenant:5f1c6d5e-6a3b-4a8e-9c1f-2d7b0e4a9f10:pm_due:all", database.GenerateCacheKey(orgID, "pm_due", "all"))
	assert.Equal(t, "tenant:5f1c6d5e-6a3b-4a8e-9c1f-2d7b0e4a9f10:pm_due:*", database.TenantKeyPattern(orgID, "pm_due"))
}
