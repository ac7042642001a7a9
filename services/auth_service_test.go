package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	sessions := repositories.NewInMemorySessionRepository()
	auth := NewAuthService("test-secret", time.Hour, sessions, nil)
	user := &models.User{ID: "user-1"}

	session, err := auth.IssueSession(ctx, user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)

	claims, err := auth.ParseSession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.NotEmpty(t, claims.ID)

	require.NoError(t, auth.RevokeSession(ctx, session.Token))
	_, err = auth.ParseSession(ctx, session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// отзыв мусорного токена не ошибка
	assert.NoError(t, auth.RevokeSession(ctx, "garbage"))
}

func TestParseSession_Rejects(t *testing.T) {
	ctx := context.Background()
	auth := NewAuthService("test-secret", time.Hour, nil, nil)

	other := NewAuthService("other-secret", time.Hour, nil, nil)
	foreign, err := other.IssueSession(ctx, &models.User{ID: "u"})
	require.NoError(t, err)
	_, err = auth.ParseSession(ctx, foreign.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewAuthService("test-secret", -time.Minute, nil, nil)
	old, err := expired.IssueSession(ctx, &models.User{ID: "u"})
	require.NoError(t, err)
	_, err = auth.ParseSession(ctx, old.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u", ID: "x"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.ParseSession(ctx, unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAPIKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-key"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := NewAuthService("x", time.Hour, nil, []APIKey{
		{Name: "bot", Hash: hash, Scopes: []string{ScopeLeaderboardWrite}},
	})

	key, ok := auth.VerifyAPIKey("s3cret-key")
	require.True(t, ok)
	assert.Equal(t, "bot", key.Name)
	assert.True(t, key.HasScope(ScopeLeaderboardWrite))
	assert.False(t, key.HasScope(ScopeTournamentsWrite))

	// второй вызов идёт через кэш
	key, ok = auth.VerifyAPIKey("s3cret-key")
	require.True(t, ok)
	assert.Equal(t, "bot", key.Name)

	_, ok = auth.VerifyAPIKey("wrong")
	assert.False(t, ok)
	_, ok = auth.VerifyAPIKey("")
	assert.False(t, ok)

	var nilKey *APIKey
	assert.False(t, nilKey.HasScope(ScopeLeaderboardWrite))
}

func TestVerifyAPIKey_RemembersRejectedKeys(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-key"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := NewAuthService("x", time.Hour, nil, []APIKey{
		{Name: "bot", Hash: hash, Scopes: []string{ScopeLeaderboardWrite}},
	}).(*authService)

	_, ok := auth.VerifyAPIKey("made-up")
	assert.False(t, ok)
	assert.Len(t, auth.rejected, 1)

	// повторный отказ берётся из кэша, bcrypt не вызывается
	_, ok = auth.VerifyAPIKey("made-up")
	assert.False(t, ok)
	assert.Len(t, auth.rejected, 1)

	for i := 0; i < maxRejectedKeys; i++ {
		auth.rejected[fmt.Sprintf("junk-%d", i)] = struct{}{}
	}
	_, ok = auth.VerifyAPIKey("one-more")
	assert.False(t, ok)
	assert.Len(t, auth.rejected, 1)

	key, ok := auth.VerifyAPIKey("s3cret-key")
	require.True(t, ok)
	assert.Equal(t, "bot", key.Name)
	assert.NotContains(t, auth.rejected, hexDigest("s3cret-key"))
}

func hexDigest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
