package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignIn_CreatesThenSyncs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.SignIn(ctx, models.ExternalIdentity{ExternalID: "42"})
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	created, err := f.users.SignIn(ctx, models.ExternalIdentity{ExternalID: "42", Username: "Neo", AvatarURL: "https://cdn/a.png"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, created.Role)
	assert.Equal(t, "neo", created.UsernameKey)
	assert.Empty(t, created.Nickname)

	again, err := f.users.SignIn(ctx, models.ExternalIdentity{ExternalID: "42", Username: "Neo", AvatarURL: "https://cdn/a.png"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	renamed, err := f.users.SignIn(ctx, models.ExternalIdentity{ExternalID: "42", Username: "TheOne", AvatarURL: "https://cdn/b.png"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, renamed.ID)
	assert.Equal(t, "TheOne", f.reloadUser(t, created.ID).Username)

	events := f.recorder.Events(relay.EventUser)
	require.Len(t, events, 2)
	assert.Equal(t, relay.UserEvent{Action: relay.ActionCreate, UserID: created.ID}, events[0].Payload)
	assert.Equal(t, relay.UserEvent{Action: relay.ActionUpdate, UserID: created.ID}, events[1].Payload)

	// другой внешний аккаунт с тем же именем
	_, err = f.users.SignIn(ctx, models.ExternalIdentity{ExternalID: "43", Username: "theone"})
	assert.ErrorIs(t, err, ErrUsernameConflict)
}

func TestSignIn_KeepsUsernameWhenProviderNameIsTaken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	taken := f.addUser(t, "trinity", "")

	neo, err := f.users.SignIn(ctx, models.ExternalIdentity{ExternalID: "42", Username: "Neo", AvatarURL: "https://cdn/a.png"})
	require.NoError(t, err)

	again, err := f.users.SignIn(ctx, models.ExternalIdentity{ExternalID: "42", Username: "Trinity", AvatarURL: "https://cdn/b.png"})
	require.NoError(t, err)
	assert.Equal(t, neo.ID, again.ID)
	assert.Equal(t, "Neo", again.Username)

	stored := f.reloadUser(t, neo.ID)
	assert.Equal(t, "Neo", stored.Username)
	assert.Equal(t, "neo", stored.UsernameKey)
	assert.Equal(t, "https://cdn/b.png", stored.AvatarURL)
	assert.Equal(t, "trinity", f.reloadUser(t, taken.ID).Username)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "player", "")

	bad := "a b"
	_, err := f.users.UpdateProfile(ctx, u.ID, UpdateProfileInput{Nickname: &bad})
	assert.ErrorIs(t, err, ErrInvalidNickname)

	short := "ab"
	_, err = f.users.UpdateProfile(ctx, u.ID, UpdateProfileInput{Nickname: &short})
	assert.ErrorIs(t, err, ErrInvalidNickname)

	_, err = f.users.UpdateProfile(ctx, u.ID, UpdateProfileInput{SocialLinks: map[string]string{"twitch": "twitch.tv/x"}})
	assert.ErrorIs(t, err, ErrValidationFailed)

	nick := " Pro_Gamer "
	got, err := f.users.UpdateProfile(ctx, u.ID, UpdateProfileInput{
		Nickname:    &nick,
		SocialLinks: map[string]string{" Twitch ": "https://twitch.tv/x", "empty": ""},
		Skills:      []string{"aim", "AIM", " ", "clutch"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Pro_Gamer", got.Nickname)
	assert.Equal(t, map[string]string{"twitch": "https://twitch.tv/x"}, got.SocialLinks)
	assert.Equal(t, []string{"aim", "clutch"}, got.Skills)
	assert.True(t, f.reloadUser(t, u.ID).HasNickname())

	require.Len(t, f.recorder.Events(relay.EventProfile), 1)

	_, err = f.users.UpdateProfile(ctx, "ghost", UpdateProfileInput{Nickname: &nick})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "alexander", "Sasha")
	f.addUser(t, "alexey", "Lyosha")
	f.addUser(t, "boris", "Bob")

	_, err := f.users.Search(ctx, "  ", 0)
	assert.ErrorIs(t, err, ErrValidationFailed)

	got, err := f.users.Search(ctx, "alex", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	names := []string{got[0].Username, got[1].Username}
	assert.ElementsMatch(t, []string{"alexander", "alexey"}, names)

	// совпадение по нику
	got, err = f.users.Search(ctx, "sasha", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alexander", got[0].Username)

	got, err = f.users.Search(ctx, "alex", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestUserSearch_BeyondCandidateWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < searchCandidateLimit+100; i++ {
		f.addUser(t, fmt.Sprintf("aaa%03d", i), "")
	}
	zeta := f.addUser(t, "zeta", "ZetaMC")
	f.addUser(t, "omega", "MrZeta")

	got, err := f.users.Search(ctx, "zeta", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, zeta.ID, got[0].ID)

	got, err = f.users.Search(ctx, "mrzeta", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "omega", got[0].Username)
}

func TestSetRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "admin", "Adm")
	admin.Role = models.RoleAdmin
	mod := f.addUser(t, "mod", "Mod")
	mod.Role = models.RoleModerator
	f.addUser(t, "target", "Tgt")

	_, err := f.users.SetRole(ctx, mod, "target", models.RoleHelper)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	_, err = f.users.SetRole(ctx, admin, "target", "overlord")
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.users.SetRole(ctx, admin, "ghost", models.RoleHelper)
	assert.ErrorIs(t, err, ErrUserNotFound)

	got, err := f.users.SetRole(ctx, admin, "Target", models.RoleHelper)
	require.NoError(t, err)
	assert.Equal(t, models.RoleHelper, got.Role)
	assert.True(t, got.Role.IsStaff())
}
