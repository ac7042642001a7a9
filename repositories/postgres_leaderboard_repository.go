package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/arena-hub/models"
)

type postgresLeaderboardRepository struct {
	db *sql.DB
}

func NewPostgresLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &postgresLeaderboardRepository{db: db}
}

func (r *postgresLeaderboardRepository) List(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	query := `
		SELECT username_key, username, points, wins, losses, kills, updated_at
		FROM leaderboard
		ORDER BY points DESC, wins DESC, username_key
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.LeaderboardEntry, 0)
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UsernameKey, &e.Username, &e.Points, &e.Wins, &e.Losses, &e.Kills, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *postgresLeaderboardRepository) GetByUsername(ctx context.Context, username string) (*models.LeaderboardEntry, error) {
	query := `
		SELECT username_key, username, points, wins, losses, kills, updated_at
		FROM leaderboard
		WHERE username_key = $1`

	var e models.LeaderboardEntry
	err := r.db.QueryRowContext(ctx, query, NormalizeKey(username)).
		Scan(&e.UsernameKey, &e.Username, &e.Points, &e.Wins, &e.Losses, &e.Kills, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeaderboardEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *postgresLeaderboardRepository) Upsert(ctx context.Context, e *models.LeaderboardEntry) error {
	e.UsernameKey = NormalizeKey(e.Username)
	query := `
		INSERT INTO leaderboard (username_key, username, points, wins, losses, kills, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (username_key) DO UPDATE
		SET username = EXCLUDED.username, points = EXCLUDED.points, wins = EXCLUDED.wins,
			losses = EXCLUDED.losses, kills = EXCLUDED.kills, updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query, e.UsernameKey, e.Username, e.Points, e.Wins, e.Losses, e.Kills, e.UpdatedAt)
	return err
}
