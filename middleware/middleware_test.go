package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/relay"
	"github.com/Dosada05/arena-hub/repositories"
	"github.com/Dosada05/arena-hub/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	auth  services.AuthService
	users services.UserService
	mw    *Authenticator
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repositories.NewInMemoryStore()
	hash, err := bcrypt.GenerateFromPassword([]byte("bot-key"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := services.NewAuthService("secret", time.Hour, repositories.NewInMemorySessionRepository(), []services.APIKey{
		{Name: "bot", Hash: hash, Scopes: []string{services.ScopeLeaderboardWrite}},
	})
	users := services.NewUserService(store.Users, relay.Nop{}, logger)
	return &authFixture{auth: auth, users: users, mw: NewAuthenticator(auth, users, logger)}
}

func (f *authFixture) login(t *testing.T, username string, role models.UserRole) (*models.User, string) {
	t.Helper()
	ctx := context.Background()
	user, err := f.users.SignIn(ctx, models.ExternalIdentity{ExternalID: "ext-" + username, Username: username})
	require.NoError(t, err)
	if role != models.RoleUser {
		admin := &models.User{ID: "root", Role: models.RoleAdmin}
		user, err = f.users.SetRole(ctx, admin, username, role)
		require.NoError(t, err)
	}
	session, err := f.auth.IssueSession(ctx, user)
	require.NoError(t, err)
	return user, session.Token
}

func whoami(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{}
	if user, ok := UserFromContext(r.Context()); ok {
		resp["user"] = user.Username
		resp["role"] = user.Role
	}
	if key, ok := APIKeyFromContext(r.Context()); ok {
		resp["key"] = key.Name
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func serve(h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	body := map[string]any{}
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	return rr, body
}

func TestAuthenticate_Sources(t *testing.T) {
	f := newAuthFixture(t)
	_, token := f.login(t, "neo", models.RoleUser)
	h := f.mw.Authenticate(http.HandlerFunc(whoami))

	// cookie
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rr, body := serve(h, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "neo", body["user"])

	// bearer
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	_, body = serve(h, req)
	assert.Equal(t, "neo", body["user"])

	// мусорный токен: запрос анонимный
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rr, body = serve(h, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, body, "user")

	// api key
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(APIKeyHeader, "bot-key")
	_, body = serve(h, req)
	assert.Equal(t, "bot", body["key"])

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(APIKeyHeader, "wrong")
	rr, body = serve(h, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "invalid api key", body["error"])
}

func TestAuthenticate_RoleIsReadFromLiveRecord(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, token := f.login(t, "trinity", models.RoleUser)
	h := f.mw.Authenticate(RequireRole(models.RoleModerator)(http.HandlerFunc(whoami)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr, _ := serve(h, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// повышение роли действует без перевыпуска токена
	_, err := f.users.SetRole(ctx, &models.User{ID: "root", Role: models.RoleAdmin}, "trinity", models.RoleModerator)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr, body := serve(h, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "moderator", body["role"])
}

func TestAuthenticate_RevokedSessionIsAnonymous(t *testing.T) {
	f := newAuthFixture(t)
	_, token := f.login(t, "morpheus", models.RoleUser)
	require.NoError(t, f.auth.RevokeSession(context.Background(), token))

	h := f.mw.Authenticate(RequireUser(http.HandlerFunc(whoami)))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rr, body := serve(h, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "authentication required", body["error"])
}

func TestRequireScopeOrRole(t *testing.T) {
	f := newAuthFixture(t)
	_, userToken := f.login(t, "user1", models.RoleUser)
	_, modToken := f.login(t, "mod1", models.RoleModerator)

	leaderboard := f.mw.Authenticate(RequireScopeOrRole(services.ScopeLeaderboardWrite, models.RoleModerator)(http.HandlerFunc(whoami)))
	tournaments := f.mw.Authenticate(RequireScopeOrRole(services.ScopeTournamentsWrite, models.RoleModerator)(http.HandlerFunc(whoami)))

	tests := []struct {
		name    string
		handler http.Handler
		setup   func(*http.Request)
		want    int
	}{
		{"anonymous", leaderboard, func(*http.Request) {}, http.StatusUnauthorized},
		{"key with scope", leaderboard, func(r *http.Request) { r.Header.Set(APIKeyHeader, "bot-key") }, http.StatusOK},
		{"key without scope", tournaments, func(r *http.Request) { r.Header.Set(APIKeyHeader, "bot-key") }, http.StatusForbidden},
		{"plain user", leaderboard, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+userToken) }, http.StatusForbidden},
		{"moderator", tournaments, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+modToken) }, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			tt.setup(req)
			rr, _ := serve(tt.handler, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(60, 2)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	h := limiter.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	hit := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/share", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusNoContent, hit("10.0.0.1:1111").Code)
	assert.Equal(t, http.StatusNoContent, hit("10.0.0.1:2222").Code)
	rr := hit("10.0.0.1:3333")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))

	// другой IP со своим бакетом
	assert.Equal(t, http.StatusNoContent, hit("10.0.0.2:1111").Code)

	// через секунду токен восстанавливается
	now = now.Add(time.Second)
	assert.Equal(t, http.StatusNoContent, hit("10.0.0.1:4444").Code)
}
