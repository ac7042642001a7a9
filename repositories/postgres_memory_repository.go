package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/arena-hub/models"
	"github.com/lib/pq"
)

const memoryColumns = `id, title, video_url, description, author_id, likes, shares, created_at`

type postgresMemoryRepository struct {
	db *sql.DB
}

func NewPostgresMemoryRepository(db *sql.DB) MemoryRepository {
	return &postgresMemoryRepository{db: db}
}

func scanMemory(row rowScanner) (*models.Memory, error) {
	var m models.Memory
	err := row.Scan(
		&m.ID,
		&m.Title,
		&m.VideoURL,
		&m.Description,
		&m.AuthorID,
		pq.Array(&m.Likes),
		&m.Shares,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.LikeCount = len(m.Likes)
	return &m, nil
}

func (r *postgresMemoryRepository) Create(ctx context.Context, m *models.Memory) error {
	query := `
		INSERT INTO memories (` + memoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.Title,
		m.VideoURL,
		m.Description,
		m.AuthorID,
		pq.Array(nonNil(m.Likes)),
		m.Shares,
		m.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (r *postgresMemoryRepository) GetByID(ctx context.Context, id string) (*models.Memory, error) {
	query := `SELECT ` + memoryColumns + ` FROM memories WHERE id = $1`
	m, err := scanMemory(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemoryNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMemoryRepository) List(ctx context.Context, filter ListMemoriesFilter) ([]models.Memory, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + memoryColumns + ` FROM memories`)

	args := []any{}
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		queryBuilder.WriteString(fmt.Sprintf(" WHERE author_id = $%d", len(args)))
	}
	queryBuilder.WriteString(" ORDER BY created_at DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memories := make([]models.Memory, 0)
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, *m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return memories, nil
}

func (r *postgresMemoryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM memories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMemoryNotFound)
}

func (r *postgresMemoryRepository) SetLike(ctx context.Context, id, userID string, liked bool) (*models.Memory, error) {
	set := `array_remove(likes, $2)`
	if liked {
		set = `CASE WHEN $2 = ANY(likes) THEN likes ELSE array_append(likes, $2) END`
	}
	query := `UPDATE memories SET likes = ` + set + ` WHERE id = $1 RETURNING ` + memoryColumns

	m, err := scanMemory(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemoryNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMemoryRepository) IncrementShares(ctx context.Context, id string) (int64, error) {
	var shares int64
	err := r.db.QueryRowContext(ctx, `UPDATE memories SET shares = shares + 1 WHERE id = $1 RETURNING shares`, id).Scan(&shares)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrMemoryNotFound
		}
		return 0, err
	}
	return shares, nil
}
