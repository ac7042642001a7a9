package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/arena-hub/middleware"
	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/relay"
	"github.com/Dosada05/arena-hub/repositories"
	"github.com/Dosada05/arena-hub/services"
	"github.com/Dosada05/arena-hub/storage"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// testUserHeader подставляет пользователя по id вместо настоящей сессии.
const testUserHeader = "X-Test-User"

type testEnv struct {
	router      chi.Router
	store       repositories.Store
	recorder    *relay.Recorder
	users       services.UserService
	tournaments services.TournamentService
	memories    services.MemoryService
}

func newTestEnv(t *testing.T, uploader storage.FileUploader) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repositories.NewInMemoryStore()
	rec := &relay.Recorder{}

	users := services.NewUserService(store.Users, rec, logger)
	tournaments := services.NewTournamentService(store.Tournaments, store.Users, uploader, rec, logger)
	subscriptions := services.NewSubscriptionService(store.Tournaments, store.Users, rec, logger)
	memories := services.NewMemoryService(store.Memories, store.Users, rec, logger)
	leaderboard := services.NewLeaderboardService(store.Leaderboard, rec)
	staff := services.NewStaffService([]services.StaffRosterEntry{
		{Username: "owner", Title: "Founder"},
		{Username: "ghost", Title: "Helper"},
	}, store.Users)

	th := NewTournamentHandler(tournaments, subscriptions)
	mh := NewMemoryHandler(memories)
	uh := NewUserHandler(users, memories)
	lh := NewLeaderboardHandler(leaderboard)
	sh := NewStaffHandler(staff)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if id := req.Header.Get(testUserHeader); id != "" {
				user, err := users.GetByID(req.Context(), id)
				if err == nil {
					req = req.WithContext(middleware.WithUser(req.Context(), user))
				}
			}
			next.ServeHTTP(w, req)
		})
	})

	r.Route("/tournaments", func(r chi.Router) {
		r.Get("/", th.List)
		r.Post("/", th.Create)
		r.Get("/{tournamentID}", th.Get)
		r.Delete("/{tournamentID}", th.Delete)
		r.Patch("/{tournamentID}/status", th.UpdateStatus)
		r.Post("/{tournamentID}/image", th.UploadImage)
		r.Post("/{tournamentID}/join", th.Join)
		r.Post("/{tournamentID}/unsubscribe", th.Unsubscribe)
		r.Post("/{tournamentID}/invitation", th.RespondToInvitation)
	})
	r.Route("/memories", func(r chi.Router) {
		r.Get("/", mh.List)
		r.Post("/", mh.Create)
		r.Delete("/{memoryID}", mh.Delete)
		r.Post("/{memoryID}/like", mh.Like)
		r.Post("/{memoryID}/share", mh.Share)
	})
	r.Route("/users", func(r chi.Router) {
		r.Get("/search", uh.Search)
		r.Get("/me", uh.Me)
		r.Put("/me", uh.UpdateMe)
		r.Get("/{username}", uh.GetByUsername)
		r.Get("/{username}/memories", uh.Memories)
		r.Put("/{username}/role", uh.SetRole)
	})
	r.Route("/leaderboard", func(r chi.Router) {
		r.Get("/", lh.List)
		r.Get("/{username}", lh.Get)
		r.Put("/{username}", lh.Upsert)
	})
	r.Get("/staff", sh.Roster)

	return &testEnv{
		router:      r,
		store:       store,
		recorder:    rec,
		users:       users,
		tournaments: tournaments,
		memories:    memories,
	}
}

func (e *testEnv) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(testUserHeader, userID)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// addUser регистрирует пользователя; пустой nickname оставляет профиль незаполненным.
func (e *testEnv) addUser(t *testing.T, username, nickname string) *models.User {
	t.Helper()
	ctx := context.Background()
	user, err := e.users.SignIn(ctx, models.ExternalIdentity{ExternalID: "ext-" + username, Username: username})
	require.NoError(t, err)
	if nickname != "" {
		user, err = e.users.UpdateProfile(ctx, user.ID, services.UpdateProfileInput{Nickname: &nickname})
		require.NoError(t, err)
	}
	return user
}

func (e *testEnv) promote(t *testing.T, username string, role models.UserRole) *models.User {
	t.Helper()
	root := &models.User{ID: "root", Role: models.RoleAdmin}
	user, err := e.users.SetRole(context.Background(), root, username, role)
	require.NoError(t, err)
	return user
}

func (e *testEnv) addTournament(t *testing.T, title string, format models.TournamentFormat) *models.Tournament {
	t.Helper()
	tournament, err := e.tournaments.Create(context.Background(), services.CreateTournamentInput{
		Title:    title,
		StartsAt: time.Now().Add(48 * time.Hour),
		Format:   format,
	})
	require.NoError(t, err)
	return tournament
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}
