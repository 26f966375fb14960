package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commentboard/internal/config"
	"commentboard/internal/database"
	"commentboard/internal/models"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:          "development",
		DBDriver:     "sqlite",
		SQLitePath:   t.TempDir() + "/board.db",
		DBSchemaMode: database.SchemaModeSQL,
		VoterIDSalt:  "bootstrap-test",
	}
}

func TestInitRuntime_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := sqliteConfig(t)
	cfg.RedisURL = mr.Addr()

	rt, err := InitRuntime(context.Background(), cfg, Options{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = rt.Redis.Close()
		_ = database.Close(rt.DB)
	})

	require.NotNil(t, rt.Redis)
	assert.NoError(t, rt.Redis.Ping(context.Background()).Err())
	assert.NoError(t, rt.ShutdownTracing(context.Background()))
}

func TestInitRuntime_RedisUnavailableIsTolerated(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.RedisURL = "127.0.0.1:1"

	rt, err := InitRuntime(context.Background(), cfg, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(rt.DB) })

	assert.Nil(t, rt.Redis)
	assert.NoError(t, database.Ping(context.Background(), rt.DB))
}

func TestInitRuntime_SeedsEmptyDevelopmentBoardOnce(t *testing.T) {
	cfg := sqliteConfig(t)

	rt, err := InitRuntime(context.Background(), cfg, Options{SeedDemo: true})
	require.NoError(t, err)

	var first int64
	require.NoError(t, rt.DB.Model(&models.Comment{}).Count(&first).Error)
	assert.Positive(t, first)
	require.NoError(t, database.Close(rt.DB))

	rt, err = InitRuntime(context.Background(), cfg, Options{SeedDemo: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(rt.DB) })

	var second int64
	require.NoError(t, rt.DB.Model(&models.Comment{}).Count(&second).Error)
	assert.Equal(t, first, second)
}
