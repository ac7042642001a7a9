package services

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/relay"
	"github.com/Dosada05/arena-hub/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTournamentCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	startsAt := time.Now().Add(48 * time.Hour)
	bad := models.TournamentStatus("archived")

	tests := []struct {
		name  string
		input CreateTournamentInput
		want  error
	}{
		{"empty title", CreateTournamentInput{Title: "  ", StartsAt: startsAt, Format: models.FormatSolo}, ErrTournamentTitleRequired},
		{"bad format", CreateTournamentInput{Title: "Cup", StartsAt: startsAt, Format: "squad"}, ErrTournamentInvalidFormat},
		{"no date", CreateTournamentInput{Title: "Cup", Format: models.FormatDuo}, ErrTournamentDateRequired},
		{"bad status", CreateTournamentInput{Title: "Cup", StartsAt: startsAt, Format: models.FormatDuo, Status: &bad}, ErrTournamentInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tourneys.Create(ctx, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.recorder.Messages())
}

func TestTournamentCreate_SlugAndEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	startsAt := time.Date(2026, 11, 1, 18, 0, 0, 0, time.UTC)

	first, err := f.tourneys.Create(ctx, CreateTournamentInput{
		Title: " Winter Cup 2026 ", StartsAt: startsAt, Format: models.FormatTrio, Prize: "100$",
	})
	require.NoError(t, err)
	assert.Equal(t, "Winter Cup 2026", first.Title)
	assert.Equal(t, "winter-cup-2026", first.Slug)
	assert.Equal(t, models.StatusOpen, first.Status)
	assert.Empty(t, first.Subscribers)

	second, err := f.tourneys.Create(ctx, CreateTournamentInput{Title: "Winter Cup 2026", StartsAt: startsAt, Format: models.FormatSolo})
	require.NoError(t, err)
	assert.NotEqual(t, first.Slug, second.Slug)
	assert.True(t, strings.HasPrefix(second.Slug, "winter-cup-2026-"))

	events := f.recorder.Events(relay.EventTournaments)
	require.Len(t, events, 2)
	ev, ok := events[0].Payload.(relay.TournamentEvent)
	require.True(t, ok)
	assert.Equal(t, relay.ActionCreate, ev.Action)
	assert.Equal(t, first.ID, ev.TournamentID)
	assert.Equal(t, "winter-cup-2026", ev.Slug)
	require.NotNil(t, ev.StartsAt)
	assert.True(t, startsAt.Equal(*ev.StartsAt))
}

func TestTournamentGet_ByIDOrSlugWithProfiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addUser(t, "userA", "NickA")
	f.addUser(t, "userB", "NickB")

	created, err := f.tourneys.Create(ctx, CreateTournamentInput{Title: "Duo Night", StartsAt: time.Now().Add(time.Hour), Format: models.FormatDuo})
	require.NoError(t, err)
	_, err = f.subs.Join(ctx, created.ID, a.ID, []string{"userB"})
	require.NoError(t, err)

	byID, err := f.tourneys.Get(ctx, created.ID)
	require.NoError(t, err)
	bySlug, err := f.tourneys.Get(ctx, "duo-night")
	require.NoError(t, err)
	assert.Equal(t, byID.ID, bySlug.ID)

	require.Len(t, byID.SubscriberProfiles, 1)
	assert.Equal(t, "NickA", byID.SubscriberProfiles[0].Nickname)
	require.Len(t, byID.TeamViews, 1)
	assert.Equal(t, "userA", byID.TeamViews[0].Captain.Username)
	require.Len(t, byID.TeamViews[0].Members, 1)
	assert.Equal(t, "userB", byID.TeamViews[0].Members[0].Username)
	assert.Equal(t, models.MemberInvited, byID.TeamViews[0].Members[0].Status)

	_, err = f.tourneys.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestTournamentList_FilterByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTournament(t, models.FormatSolo, models.StatusOpen)
	f.addTournament(t, models.FormatSolo, models.StatusConcluded)

	all, err := f.tourneys.List(ctx, TournamentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open := models.StatusOpen
	onlyOpen, err := f.tourneys.List(ctx, TournamentFilter{Status: &open})
	require.NoError(t, err)
	require.Len(t, onlyOpen, 1)
	assert.Equal(t, models.StatusOpen, onlyOpen[0].Status)

	bad := models.TournamentStatus("weird")
	_, err = f.tourneys.List(ctx, TournamentFilter{Status: &bad})
	assert.ErrorIs(t, err, ErrTournamentInvalidStatus)
}

func TestTournamentUpdateStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to models.TournamentStatus
		ok       bool
	}{
		{models.StatusOpen, models.StatusInProgress, true},
		{models.StatusOpen, models.StatusPaused, true},
		{models.StatusOpen, models.StatusConcluded, true},
		{models.StatusPaused, models.StatusOpen, true},
		{models.StatusInProgress, models.StatusPaused, true},
		{models.StatusInProgress, models.StatusConcluded, true},
		{models.StatusInProgress, models.StatusOpen, false},
		{models.StatusConcluded, models.StatusOpen, false},
		{models.StatusConcluded, models.StatusInProgress, false},
		{models.StatusConcluded, models.StatusConcluded, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			f := newFixture(t)
			tour := f.addTournament(t, models.FormatSolo, tt.from)

			got, err := f.tourneys.UpdateStatus(context.Background(), tour.ID, tt.to)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)
				assert.Equal(t, tt.from, f.reloadTournament(t, tour.ID).Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, got.Status)
			assert.Equal(t, tt.to, f.reloadTournament(t, tour.ID).Status)
		})
	}
}

func TestTournamentDelete_KeepsUserMemberships(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addUser(t, "userA", "NickA")
	tour := f.addTournament(t, models.FormatSolo, models.StatusOpen)
	_, err := f.subs.Join(ctx, tour.ID, a.ID, nil)
	require.NoError(t, err)

	require.NoError(t, f.tourneys.Delete(ctx, tour.ID))
	assert.ErrorIs(t, f.tourneys.Delete(ctx, tour.ID), ErrTournamentNotFound)

	// список турниров пользователя не чистится
	assert.Equal(t, []string{tour.ID}, f.reloadUser(t, a.ID).Tournaments)
}

func TestTournamentUploadImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uploader, err := storage.NewMemoryUploader("https://cdn.example.com/media")
	require.NoError(t, err)
	svc := NewTournamentService(f.store.Tournaments, f.store.Users, uploader, f.recorder, testLogger())
	tour := f.addTournament(t, models.FormatSolo, models.StatusOpen)

	_, err = svc.UploadImage(ctx, tour.ID, "application/pdf", bytes.NewReader([]byte("%PDF")))
	assert.ErrorIs(t, err, ErrInvalidImage)

	first, err := svc.UploadImage(ctx, tour.ID, "image/png", bytes.NewReader([]byte("png-1")))
	require.NoError(t, err)
	require.NotNil(t, first.ImageKey)
	require.NotNil(t, first.ImageURL)
	assert.True(t, strings.HasPrefix(*first.ImageKey, "tournaments/"+tour.ID+"/"))
	assert.True(t, strings.HasSuffix(*first.ImageKey, ".png"))
	assert.Equal(t, "https://cdn.example.com/media/"+*first.ImageKey, *first.ImageURL)
	assert.True(t, uploader.Has(*first.ImageKey))

	second, err := svc.UploadImage(ctx, tour.ID, "image/jpeg", bytes.NewReader([]byte("jpg-2")))
	require.NoError(t, err)
	assert.False(t, uploader.Has(*first.ImageKey))
	assert.True(t, uploader.Has(*second.ImageKey))
	assert.Equal(t, 1, uploader.Len())

	require.NoError(t, svc.Delete(ctx, tour.ID))
	assert.Equal(t, 0, uploader.Len())

	_, err = f.tourneys.UploadImage(ctx, tour.ID, "image/png", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrStorageNotConfigured)
}

func TestStartDueTournaments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	due := f.addTournament(t, models.FormatSolo, models.StatusOpen)
	due.StartsAt = now.Add(-time.Minute)
	require.NoError(t, f.store.Tournaments.Update(ctx, due))

	pausedDue := f.addTournament(t, models.FormatSolo, models.StatusPaused)
	pausedDue.StartsAt = now.Add(-time.Minute)
	require.NoError(t, f.store.Tournaments.Update(ctx, pausedDue))

	later := f.addTournament(t, models.FormatSolo, models.StatusOpen)

	started, err := f.tourneys.StartDueTournaments(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, started)
	assert.Equal(t, models.StatusInProgress, f.reloadTournament(t, due.ID).Status)
	assert.Equal(t, models.StatusPaused, f.reloadTournament(t, pausedDue.ID).Status)
	assert.Equal(t, models.StatusOpen, f.reloadTournament(t, later.ID).Status)

	// повторный проход ничего не делает
	started, err = f.tourneys.StartDueTournaments(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, started)
}

func TestStatusSweeper_Sweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tour := f.addTournament(t, models.FormatDuo, models.StatusOpen)

	sweeper, err := NewStatusSweeper(f.tourneys, time.Hour, testLogger())
	require.NoError(t, err)

	assert.Zero(t, sweeper.Sweep(ctx, time.Now()))
	assert.Equal(t, 1, sweeper.Sweep(ctx, tour.StartsAt.Add(time.Second)))
	assert.Equal(t, models.StatusInProgress, f.reloadTournament(t, tour.ID).Status)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(runCtx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestGetExtensionFromContentType(t *testing.T) {
	ext, err := GetExtensionFromContentType("image/JPEG; charset=binary")
	require.NoError(t, err)
	assert.Equal(t, ".jpg", ext)

	_, err = GetExtensionFromContentType("text/html")
	assert.Error(t, err)
}
