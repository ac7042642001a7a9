package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/arena-hub/models"
	"github.com/lib/pq"
)

const userColumns = `id, external_id, username, username_key, avatar_url, role, nickname, social_links, skills, tournaments, created_at, updated_at`

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var links []byte
	err := row.Scan(
		&user.ID,
		&user.ExternalID,
		&user.Username,
		&user.UsernameKey,
		&user.AvatarURL,
		&user.Role,
		&user.Nickname,
		&links,
		pq.Array(&user.Skills),
		pq.Array(&user.Tournaments),
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(links) > 0 {
		if err := json.Unmarshal(links, &user.SocialLinks); err != nil {
			return nil, fmt.Errorf("failed to decode social links: %w", err)
		}
	}
	return &user, nil
}

func mapUserWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "users_external_id_key", "users_username_key_key":
			return ErrUserConflict
		}
	}
	return err
}

func encodeLinks(links map[string]string) ([]byte, error) {
	if links == nil {
		links = map[string]string{}
	}
	return json.Marshal(links)
}

func (r *postgresUserRepository) Create(ctx context.Context, user *models.User) error {
	links, err := encodeLinks(user.SocialLinks)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.db.ExecContext(ctx, query,
		user.ID,
		user.ExternalID,
		user.Username,
		user.UsernameKey,
		user.AvatarURL,
		user.Role,
		user.Nickname,
		links,
		pq.Array(nonNil(user.Skills)),
		pq.Array(nonNil(user.Tournaments)),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return mapUserWriteError(err)
	}
	return nil
}

func (r *postgresUserRepository) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *postgresUserRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return r.getOne(ctx, `external_id = $1`, externalID)
}

func (r *postgresUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `username_key = $1`, NormalizeKey(username))
}

func (r *postgresUserRepository) list(ctx context.Context, query string, args ...any) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *postgresUserRepository) ListByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`
	return r.list(ctx, query, pq.Array(ids))
}

func (r *postgresUserRepository) Search(ctx context.Context, q string, limit int) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username_key LIKE $1 OR LOWER(nickname) LIKE $1
		ORDER BY username_key
		LIMIT $2`
	return r.list(ctx, query, containsPattern(NormalizeKey(q)), limit)
}

func (r *postgresUserRepository) Update(ctx context.Context, user *models.User) error {
	links, err := encodeLinks(user.SocialLinks)
	if err != nil {
		return err
	}
	query := `
		UPDATE users
		SET username = $1, username_key = $2, avatar_url = $3, role = $4, nickname = $5,
			social_links = $6, skills = $7, tournaments = $8, updated_at = $9
		WHERE id = $10`

	result, err := r.db.ExecContext(ctx, query,
		user.Username,
		user.UsernameKey,
		user.AvatarURL,
		user.Role,
		user.Nickname,
		links,
		pq.Array(nonNil(user.Skills)),
		pq.Array(nonNil(user.Tournaments)),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return mapUserWriteError(err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) AddTournament(ctx context.Context, userID, tournamentID string) error {
	query := `
		UPDATE users
		SET tournaments = CASE WHEN $2 = ANY(tournaments) THEN tournaments ELSE array_append(tournaments, $2) END,
			updated_at = $3
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, userID, tournamentID, time.Now().UTC())
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) RemoveTournament(ctx context.Context, userID, tournamentID string) error {
	query := `UPDATE users SET tournaments = array_remove(tournaments, $2), updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, userID, tournamentID, time.Now().UTC())
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrUserNotFound)
}
