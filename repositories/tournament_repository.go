package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/Dosada05/arena-hub/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentSlugConflict = errors.New("tournament slug conflict")
)

type ListTournamentsFilter struct {
	Status *models.TournamentStatus
	Limit  int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id string) (*models.Tournament, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	// Update перезаписывает документ целиком, включая подписчиков и команды.
	Update(ctx context.Context, tournament *models.Tournament) error
	UpdateStatus(ctx context.Context, id string, status models.TournamentStatus) error
	UpdateImageKey(ctx context.Context, id string, imageKey *string) error
	Delete(ctx context.Context, id string) error
	ListStartingBefore(ctx context.Context, status models.TournamentStatus, before time.Time) ([]models.Tournament, error)
}
