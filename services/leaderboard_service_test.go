package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/relay"
	"github.com/Dosada05/arena-hub/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboard_UpsertAndOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewLeaderboardService(f.store.Leaderboard, f.recorder)

	_, err := svc.Upsert(ctx, " ", LeaderboardInput{})
	assert.ErrorIs(t, err, ErrValidationFailed)
	_, err = svc.Upsert(ctx, "neo", LeaderboardInput{Wins: -1})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.Upsert(ctx, "neo", LeaderboardInput{Points: 10, Wins: 1})
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, "trinity", LeaderboardInput{Points: 30, Wins: 3})
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, "NEO", LeaderboardInput{Points: 50, Wins: 5, Kills: 12})
	require.NoError(t, err)

	entries, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(50), entries[0].Points)
	assert.Equal(t, "trinity", entries[1].Username)

	entry, err := svc.Get(ctx, "neo")
	require.NoError(t, err)
	assert.Equal(t, 12, entry.Kills)

	_, err = svc.Get(ctx, "smith")
	assert.ErrorIs(t, err, ErrLeaderboardEntryNotFound)

	assert.Len(t, f.recorder.Events(relay.EventLeaderboard), 3)
}

type brokenUserRepo struct {
	repositories.UserRepository
	err error
}

func (r *brokenUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == "broken" {
		return nil, r.err
	}
	return r.UserRepository.GetByUsername(ctx, username)
}

func TestStaffRoster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "owner", "Boss")
	f.addUser(t, "helper1", "Help")

	roster := []StaffRosterEntry{
		{Username: "owner", Title: "Owner"},
		{Username: "absent", Title: "Moderator"},
		{Username: "Helper1", Title: "Helper"},
	}
	members, err := NewStaffService(roster, f.store.Users).Roster(ctx)
	require.NoError(t, err)
	require.Len(t, members, 3)

	assert.Equal(t, "owner", members[0].Username)
	assert.True(t, members[0].Registered)
	require.NotNil(t, members[0].User)
	assert.Equal(t, "Boss", members[0].User.Nickname)

	assert.Equal(t, "absent", members[1].Username)
	assert.False(t, members[1].Registered)
	assert.Nil(t, members[1].User)

	assert.Equal(t, "Helper", members[2].Title)
	assert.True(t, members[2].Registered)

	empty, err := NewStaffService(nil, f.store.Users).Roster(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	boom := errors.New("timeout")
	_, err = NewStaffService([]StaffRosterEntry{{Username: "broken"}}, &brokenUserRepo{UserRepository: f.store.Users, err: boom}).Roster(ctx)
	assert.ErrorIs(t, err, boom)
}
