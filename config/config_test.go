package config

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"STORE_DRIVER":   "memory",
		"JWT_SECRET_KEY": "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Minute, cfg.StatusSweepInterval)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, []string{"identify"}, cfg.OAuth.Scopes)
	assert.Equal(t, float64(30), cfg.ShareRatePerMinute)
	assert.False(t, cfg.OAuthConfigured())
	assert.False(t, cfg.DiscordConfigured())
	assert.Empty(t, cfg.APIKeys)
}

func TestFromLookup_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"STORE_DRIVER": "memory"}},
		{"mongo without uri", map[string]string{"JWT_SECRET_KEY": "s"}},
		{"postgres without dsn", map[string]string{"JWT_SECRET_KEY": "s", "STORE_DRIVER": "postgres"}},
		{"unknown driver", map[string]string{"JWT_SECRET_KEY": "s", "STORE_DRIVER": "sqlite"}},
		{"bad port", map[string]string{"JWT_SECRET_KEY": "s", "STORE_DRIVER": "memory", "SERVER_PORT": "70000"}},
		{"bad ttl", map[string]string{"JWT_SECRET_KEY": "s", "STORE_DRIVER": "memory", "SESSION_TTL": "-1h"}},
		{"bad rate", map[string]string{"JWT_SECRET_KEY": "s", "STORE_DRIVER": "memory", "SHARE_RATE_LIMIT": "0"}},
		{"bad api key", map[string]string{"JWT_SECRET_KEY": "s", "STORE_DRIVER": "memory", "API_KEYS": "bot::xx"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromLookup(lookupFrom(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestParseAPIKeys(t *testing.T) {
	hash := "$2a$10$abcdefghijklmnopqrstuu5Y8s3Q1wE6rYbS8bq5kC6oZ2bHn1m2S"
	encoded := base64.StdEncoding.EncodeToString([]byte(hash))

	keys, err := ParseAPIKeys(" stats-bot:leaderboard:write|tournaments:write:" + encoded + " ;admin-tool:all:" + encoded + ";")
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "stats-bot", keys[0].Name)
	assert.Equal(t, []string{"leaderboard:write", "tournaments:write"}, keys[0].Scopes)
	assert.Equal(t, []byte(hash), keys[0].Hash)
	assert.Equal(t, "admin-tool", keys[1].Name)
	assert.Equal(t, []string{"all"}, keys[1].Scopes)

	_, err = ParseAPIKeys("bot:scope:not base64!")
	assert.Error(t, err)

	_, err = ParseAPIKeys("bot:" + encoded)
	assert.Error(t, err)
}

func TestParseStaffRoster(t *testing.T) {
	roster, err := ParseStaffRoster("owner:Founder, helper1 : Helper ,plain")
	require.NoError(t, err)
	assert.Equal(t, []StaffEntry{
		{Username: "owner", Title: "Founder"},
		{Username: "helper1", Title: "Helper"},
		{Username: "plain", Title: ""},
	}, roster)

	_, err = ParseStaffRoster(":Nobody")
	assert.Error(t, err)
}
