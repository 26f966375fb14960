package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"commentboard/internal/config"
	"commentboard/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestOpenSQLite_AppliesAllMigrations(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"comments", "comment_votes", "translations", "migration_logs"} {
		assert.True(t, db.Migrator().HasTable(table), "expected table %s", table)
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(context.Background())
	require.NoError(t, err)
	assert.Len(t, applied, len(GetMigrations()))

	// Re-running is a no-op.
	require.NoError(t, RunMigrations(context.Background(), db))
}

func TestMigrations_ForeignKeysCascade(t *testing.T) {
	db := openTestDB(t)
	now := time.Now().UTC()

	require.NoError(t, db.Create(&models.Comment{
		ID: "11111111-1111-4111-8111-111111111111", Username: "ana", Content: "hi",
		City: "Lisbon", Country: "Portugal", CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, db.Create(&models.Translation{
		CommentID: "11111111-1111-4111-8111-111111111111", TargetLanguage: "es",
		OriginalText: "hi", TranslatedText: "hola",
	}).Error)

	err := db.Create(&models.CommentVote{
		CommentID: "22222222-2222-4222-8222-222222222222", VoterID: "v1", Kind: models.VoteLike,
	}).Error
	assert.Error(t, err, "vote for a missing comment must violate the foreign key")

	require.NoError(t, db.Exec("DELETE FROM comments WHERE id = ?", "11111111-1111-4111-8111-111111111111").Error)

	var remaining int64
	require.NoError(t, db.Model(&models.Translation{}).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestMigrations_VoteKindConstraint(t *testing.T) {
	db := openTestDB(t)
	now := time.Now().UTC()
	require.NoError(t, db.Create(&models.Comment{
		ID: "33333333-3333-4333-8333-333333333333", Username: "ana", Content: "hi", CreatedAt: now, UpdatedAt: now,
	}).Error)

	err := db.Create(&models.CommentVote{
		CommentID: "33333333-3333-4333-8333-333333333333", VoterID: "v1", Kind: models.VoteKind("meh"),
	}).Error
	assert.Error(t, err)
}

func TestRollbackMigration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, db, 3))
	assert.False(t, db.Migrator().HasTable("translations"))

	err := RollbackMigration(ctx, db, 3)
	assert.ErrorContains(t, err, "has not been applied")

	assert.ErrorContains(t, RollbackMigration(ctx, db, 999), "not found")

	require.NoError(t, RunMigrations(ctx, db))
	assert.True(t, db.Migrator().HasTable("translations"))
}

func TestLoadMigrations_Ordered(t *testing.T) {
	ms := GetMigrations()
	require.NotEmpty(t, ms)
	for i := 1; i < len(ms); i++ {
		assert.Less(t, ms[i-1].Version, ms[i].Version)
	}
	assert.Equal(t, "000001_create_comments", ms[0].String())
	assert.NotEmpty(t, ms[0].DownScript)
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}

	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))
	assert.ErrorContains(t, validateAppliedVersions([]int{1, 7}, registered), "000007")
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{"hybrid dev postgres", config.Config{Env: "development", DBDriver: "postgres", DBSchemaMode: "hybrid"}, true, true, false},
		{"hybrid dev sqlite", config.Config{Env: "development", DBDriver: "sqlite", DBSchemaMode: "hybrid"}, true, false, false},
		{"hybrid prod", config.Config{Env: "production", DBDriver: "postgres", DBSchemaMode: "hybrid"}, true, false, false},
		{"empty mode defaults to hybrid", config.Config{Env: "development", DBDriver: "postgres"}, true, true, false},
		{"sql", config.Config{Env: "development", DBSchemaMode: "sql"}, true, false, false},
		{"auto dev", config.Config{Env: "development", DBSchemaMode: "auto"}, false, true, false},
		{"auto prod refused", config.Config{Env: "prod", DBSchemaMode: "auto"}, false, false, true},
		{"unknown", config.Config{DBSchemaMode: "yolo"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL)
			assert.Equal(t, tt.wantAuto, runAuto)
		})
	}
}

func TestGetSchemaStatus_ReportsNothingPendingAfterMigrate(t *testing.T) {
	db := openTestDB(t)

	status, err := GetSchemaStatus(context.Background(), db, &config.Config{Env: "development", DBDriver: "sqlite", DBSchemaMode: "sql"})
	require.NoError(t, err)
	assert.True(t, status.WillRunSQL)
	assert.Empty(t, status.PendingMigrations)
	assert.Len(t, status.AppliedVersions, len(GetMigrations()))
}

func TestConfigurePool_SQLiteUsesSingleConnection(t *testing.T) {
	db := openTestDB(t)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	assert.NoError(t, Ping(context.Background(), db))
}

func TestPersistentModels_IncludesVotes(t *testing.T) {
	found := false
	for _, model := range PersistentModels() {
		if _, ok := model.(*models.CommentVote); ok {
			found = true
		}
	}
	assert.True(t, found, "PersistentModels should include CommentVote")
}
