package repositories

import (
	"context"
	"errors"

	"github.com/Dosada05/arena-hub/models"
)

var ErrLeaderboardEntryNotFound = errors.New("leaderboard entry not found")

type LeaderboardRepository interface {
	// List returns entries ordered by points, then wins, then username.
	List(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	GetByUsername(ctx context.Context, username string) (*models.LeaderboardEntry, error)
	// Upsert keys on the normalized username.
	Upsert(ctx context.Context, entry *models.LeaderboardEntry) error
}
