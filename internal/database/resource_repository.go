package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"imagegen-server/internal/models"
)

// ResourceRepository хранит записи о сгенерированных файлах.
type ResourceRepository interface {
	Save(ctx context.Context, res *models.Resource) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Resource, error)
	ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]*models.Resource, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Resource, error)
}

const (
	resourceColumns = `id, name, path, storage_type, channel, size, type, agent_id, created_at`

	insertResourceQuery = `
        INSERT INTO resources (` + resourceColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `

	getResourceByIDQuery = `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`

	listResourcesByAgentQuery = `
        SELECT ` + resourceColumns + ` FROM resources
        WHERE agent_id = $1
        ORDER BY created_at DESC, id
        LIMIT $2 OFFSET $3
    `

	getResourcesByIDsQuery = `SELECT ` + resourceColumns + ` FROM resources WHERE id = ANY($1::uuid[]) ORDER BY created_at, id`
)

// Максимальный размер страницы для ListByAgent.
const maxListLimit = 100

var _ ResourceRepository = (*pgResourceRepository)(nil)

type pgResourceRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgResourceRepository создает репозиторий ресурсов поверх пула или транзакции.
func NewPgResourceRepository(db DBTX, logger *zap.Logger) ResourceRepository {
	return &pgResourceRepository{
		db:     db,
		logger: logger.Named("PgResourceRepo"),
	}
}

// Save вставляет новую запись ресурса.
func (r *pgResourceRepository) Save(ctx context.Context, res *models.Resource) error {
	if res == nil {
		return fmt.Errorf("%w: resource is nil", models.ErrInvalidInput)
	}
	log := r.logger.With(zap.String("resource_id", res.ID.String()), zap.String("name", res.Name))

	_, err := r.db.Exec(ctx, insertResourceQuery,
		res.ID, res.Name, res.Path, res.StorageType, res.Channel,
		res.Size, res.Type, res.AgentID, res.CreatedAt,
	)
	if err != nil {
		log.Error("Failed to insert resource", zap.Error(err))
		return fmt.Errorf("database error saving resource %s: %w", res.ID, err)
	}

	log.Debug("Resource saved", zap.String("storage_type", string(res.StorageType)))
	return nil
}

// GetByID возвращает ресурс по ID или models.ErrNotFound.
func (r *pgResourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	var res models.Resource
	err := pgxscan.Get(ctx, r.db, &res, getResourceByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Resource not found", zap.String("resource_id", id.String()))
			return nil, fmt.Errorf("%w: resource %s", models.ErrNotFound, id)
		}
		r.logger.Error("Error querying resource by id", zap.String("resource_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("database error querying resource %s: %w", id, err)
	}
	return &res, nil
}

// ListByAgent возвращает ресурсы агента, новые первыми.
func (r *pgResourceRepository) ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]*models.Resource, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	resources := make([]*models.Resource, 0)
	if err := pgxscan.Select(ctx, r.db, &resources, listResourcesByAgentQuery, agentID, limit, offset); err != nil {
		r.logger.Error("Error listing resources by agent", zap.String("agent_id", agentID), zap.Error(err))
		return nil, fmt.Errorf("database error listing resources for agent %s: %w", agentID, err)
	}
	return resources, nil
}

// GetByIDs возвращает найденные ресурсы из списка ID. Отсутствующие ID пропускаются.
func (r *pgResourceRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Resource, error) {
	resources := make([]*models.Resource, 0, len(ids))
	if len(ids) == 0 {
		return resources, nil
	}

	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	if err := pgxscan.Select(ctx, r.db, &resources, getResourcesByIDsQuery, pq.Array(strIDs)); err != nil {
		r.logger.Error("Error querying resources by ids", zap.Int("id_count", len(ids)), zap.Error(err))
		return nil, fmt.Errorf("database error querying resources by ids: %w", err)
	}
	return resources, nil
}
