//go:build integration

package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"imagegen-server/internal/config"
	"imagegen-server/internal/database"
	"imagegen-server/internal/models"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("imagegen_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := zap.NewNop()
	require.NoError(t, database.ApplyMigrations(dsn, logger))
	// Повторный запуск не должен падать
	require.NoError(t, database.ApplyMigrations(dsn, logger))

	pool, err := database.NewPool(ctx, config.DatabaseConfig{
		URL:            dsn,
		MaxConns:       4,
		MaxIdleTime:    time.Minute,
		ConnectRetries: 3,
		RetryDelay:     time.Second,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func newResource(name string, agentID *string, createdAt time.Time) *models.Resource {
	return &models.Resource{
		ID:          uuid.New(),
		Name:        name,
		Path:        "workspace/output/" + name,
		StorageType: models.StorageTypeFile,
		Channel:     models.ChannelOutput,
		Size:        1024,
		Type:        "image/png",
		AgentID:     agentID,
		CreatedAt:   createdAt.UTC().Truncate(time.Microsecond),
	}
}

func TestPgResourceRepository_Integration(t *testing.T) {
	pool := setupPostgres(t)
	repo := database.NewPgResourceRepository(pool, zap.NewNop())
	ctx := context.Background()

	agent := "agent-42"
	base := time.Now()
	first := newResource("image1.png", &agent, base.Add(-time.Minute))
	second := newResource("image2.png", &agent, base)
	orphan := newResource("orphan.png", nil, base)

	for _, r := range []*models.Resource{first, second, orphan} {
		require.NoError(t, repo.Save(ctx, r))
	}

	t.Run("GetByID", func(t *testing.T) {
		got, err := repo.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.Name, got.Name)
		assert.Equal(t, first.Path, got.Path)
		assert.Equal(t, models.StorageTypeFile, got.StorageType)
		assert.Equal(t, models.ChannelOutput, got.Channel)
		require.NotNil(t, got.AgentID)
		assert.Equal(t, agent, *got.AgentID)
		assert.True(t, first.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("GetByID not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("ListByAgent newest first", func(t *testing.T) {
		list, err := repo.ListByAgent(ctx, agent, 10, 0)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, first.ID, list[1].ID)

		page, err := repo.ListByAgent(ctx, agent, 1, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, first.ID, page[0].ID)
	})

	t.Run("ListByAgent unknown agent", func(t *testing.T) {
		list, err := repo.ListByAgent(ctx, "nobody", 10, 0)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("GetByIDs skips missing", func(t *testing.T) {
		list, err := repo.GetByIDs(ctx, []uuid.UUID{orphan.ID, uuid.New(), first.ID})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, first.ID, list[0].ID)
		assert.Equal(t, orphan.ID, list[1].ID)
		assert.Nil(t, list[1].AgentID)

		empty, err := repo.GetByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("Save duplicate id fails", func(t *testing.T) {
		assert.Error(t, repo.Save(ctx, first))
	})
}
