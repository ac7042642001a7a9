package repositories

import (
	"context"
	"errors"

	"github.com/Dosada05/arena-hub/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserConflict = errors.New("user external id or username conflict")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	// GetByUsername ищет без учёта регистра.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.User, error)
	// Search returns users whose username or nickname contains query, case-insensitively.
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	// AddTournament is idempotent.
	AddTournament(ctx context.Context, userID, tournamentID string) error
	RemoveTournament(ctx context.Context, userID, tournamentID string) error
}
