package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/arena-hub/models"
	"github.com/lib/pq"
)

const tournamentColumns = `id, slug, title, starts_at, prize, description, format, status, subscribers, teams, image_key, created_at, updated_at`

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func scanTournament(row rowScanner) (*models.Tournament, error) {
	var t models.Tournament
	var teams []byte
	var imageKey sql.NullString
	err := row.Scan(
		&t.ID,
		&t.Slug,
		&t.Title,
		&t.StartsAt,
		&t.Prize,
		&t.Description,
		&t.Format,
		&t.Status,
		pq.Array(&t.Subscribers),
		&teams,
		&imageKey,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(teams) > 0 {
		if err := json.Unmarshal(teams, &t.Teams); err != nil {
			return nil, fmt.Errorf("failed to decode teams: %w", err)
		}
	}
	if imageKey.Valid {
		t.ImageKey = &imageKey.String
	}
	return &t, nil
}

func encodeTeams(teams []models.Team) ([]byte, error) {
	if teams == nil {
		teams = []models.Team{}
	}
	return json.Marshal(teams)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	teams, err := encodeTeams(t.Teams)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO tournaments (` + tournamentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.db.ExecContext(ctx, query,
		t.ID,
		t.Slug,
		t.Title,
		t.StartsAt,
		t.Prize,
		t.Description,
		t.Format,
		t.Status,
		pq.Array(nonNil(t.Subscribers)),
		teams,
		t.ImageKey,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "tournaments_slug_key" {
			return ErrTournamentSlugConflict
		}
		return err
	}
	return nil
}

func (r *postgresTournamentRepository) getOne(ctx context.Context, where string, arg any) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE ` + where
	t, err := scanTournament(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *postgresTournamentRepository) GetBySlug(ctx context.Context, slug string) (*models.Tournament, error) {
	return r.getOne(ctx, `slug = $1`, slug)
}

func (r *postgresTournamentRepository) list(ctx context.Context, query string, args ...any) ([]models.Tournament, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, err
		}
		tournaments = append(tournaments, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + tournamentColumns + ` FROM tournaments`)

	args := []any{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		queryBuilder.WriteString(fmt.Sprintf(" WHERE status = $%d", len(args)))
	}
	queryBuilder.WriteString(" ORDER BY starts_at DESC, created_at DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	return r.list(ctx, queryBuilder.String(), args...)
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	teams, err := encodeTeams(t.Teams)
	if err != nil {
		return err
	}
	query := `
		UPDATE tournaments
		SET title = $1, starts_at = $2, prize = $3, description = $4, format = $5, status = $6,
			subscribers = $7, teams = $8, image_key = $9, updated_at = $10
		WHERE id = $11`

	result, err := r.db.ExecContext(ctx, query,
		t.Title,
		t.StartsAt,
		t.Prize,
		t.Description,
		t.Format,
		t.Status,
		pq.Array(nonNil(t.Subscribers)),
		teams,
		t.ImageKey,
		t.UpdatedAt,
		t.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, id string, status models.TournamentStatus) error {
	query := `UPDATE tournaments SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateImageKey(ctx context.Context, id string, imageKey *string) error {
	query := `UPDATE tournaments SET image_key = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, imageKey, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) ListStartingBefore(ctx context.Context, status models.TournamentStatus, before time.Time) ([]models.Tournament, error) {
	query := `
		SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE status = $1 AND starts_at <= $2
		ORDER BY starts_at`
	return r.list(ctx, query, status, before)
}
