package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/relay"
	"github.com/Dosada05/arena-hub/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store     repositories.Store
	recorder  *relay.Recorder
	subs      SubscriptionService
	tourneys  TournamentService
	memories  MemoryService
	users     UserService
	publisher relay.Publisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repositories.NewInMemoryStore()
	rec := &relay.Recorder{}
	logger := testLogger()
	return &fixture{
		store:     store,
		recorder:  rec,
		publisher: rec,
		subs:      NewSubscriptionService(store.Tournaments, store.Users, rec, logger),
		tourneys:  NewTournamentService(store.Tournaments, store.Users, nil, rec, logger),
		memories:  NewMemoryService(store.Memories, store.Users, rec, logger),
		users:     NewUserService(store.Users, rec, logger),
	}
}

// addUser регистрирует пользователя; при пустом nickname профиль остаётся без ника.
func (f *fixture) addUser(t *testing.T, username, nickname string) *models.User {
	t.Helper()
	now := time.Now().UTC()
	u := &models.User{
		ID:          uuid.NewString(),
		ExternalID:  "ext-" + username,
		Username:    username,
		UsernameKey: repositories.NormalizeKey(username),
		Nickname:    nickname,
		Role:        models.RoleUser,
		Tournaments: []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, f.store.Users.Create(context.Background(), u))
	return u
}

func (f *fixture) addTournament(t *testing.T, format models.TournamentFormat, status models.TournamentStatus) *models.Tournament {
	t.Helper()
	now := time.Now().UTC()
	tour := &models.Tournament{
		ID:          uuid.NewString(),
		Slug:        "cup-" + uuid.NewString()[:8],
		Title:       "Cup",
		StartsAt:    now.Add(24 * time.Hour),
		Format:      format,
		Status:      status,
		Subscribers: []string{},
		Teams:       []models.Team{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, f.store.Tournaments.Create(context.Background(), tour))
	return tour
}

func (f *fixture) reloadTournament(t *testing.T, id string) *models.Tournament {
	t.Helper()
	tour, err := f.store.Tournaments.GetByID(context.Background(), id)
	require.NoError(t, err)
	return tour
}

func (f *fixture) reloadUser(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := f.store.Users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}
