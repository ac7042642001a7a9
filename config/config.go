package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// APIKeyConfig описывает ключ автоматизации: имя, bcrypt-хэш и права.
type APIKeyConfig struct {
	Name   string
	Hash   []byte
	Scopes []string
}

type StaffEntry struct {
	Username string
	Title    string
}

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
}

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	ServerPort int
	LogLevel   string

	StoreDriver   string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string

	JWTSecretKey     string
	SessionTTL       time.Duration
	CookieSecure     bool
	CORSOrigins      []string
	AfterLoginURL    string
	PublicSiteURL    string
	OAuth            OAuthConfig
	APIKeys          []APIKeyConfig
	StaffRoster      []StaffEntry
	RedisURL         string
	RedisChannel     string
	R2               R2Config
	DiscordWebhookID string
	DiscordToken     string

	StatusSweepInterval time.Duration
	ShareRatePerMinute  float64
	ShareRateBurst      int
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Ошибку не считаем фатальной: .env может не быть
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup собирает конфигурацию из произвольного источника переменных.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		LogLevel:         get("LOG_LEVEL", "info"),
		StoreDriver:      strings.ToLower(get("STORE_DRIVER", StoreMongo)),
		MongoURI:         get("MONGO_URI", ""),
		MongoDatabase:    get("MONGO_DATABASE", "arena_hub"),
		DatabaseURL:      get("DATABASE_URL", ""),
		JWTSecretKey:     get("JWT_SECRET_KEY", ""),
		AfterLoginURL:    get("AFTER_LOGIN_URL", "/"),
		PublicSiteURL:    get("PUBLIC_SITE_URL", ""),
		RedisURL:         get("REDIS_URL", ""),
		RedisChannel:     get("REDIS_CHANNEL", ""),
		DiscordWebhookID: get("DISCORD_WEBHOOK_ID", ""),
		DiscordToken:     get("DISCORD_WEBHOOK_TOKEN", ""),
		CORSOrigins:      splitList(get("CORS_ORIGINS", "")),
		OAuth: OAuthConfig{
			ClientID:     get("OAUTH_CLIENT_ID", ""),
			ClientSecret: get("OAUTH_CLIENT_SECRET", ""),
			AuthURL:      get("OAUTH_AUTH_URL", "https://discord.com/oauth2/authorize"),
			TokenURL:     get("OAUTH_TOKEN_URL", "https://discord.com/api/oauth2/token"),
			UserInfoURL:  get("OAUTH_USERINFO_URL", "https://discord.com/api/users/@me"),
			RedirectURL:  get("OAUTH_REDIRECT_URL", ""),
			Scopes:       splitList(get("OAUTH_SCOPES", "identify")),
		},
		R2: R2Config{
			AccountID:       get("R2_ACCOUNT_ID", ""),
			AccessKeyID:     get("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: get("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      get("R2_BUCKET_NAME", ""),
			PublicBaseURL:   get("R2_PUBLIC_BASE_URL", ""),
		},
	}

	port, err := strconv.Atoi(get("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	switch cfg.StoreDriver {
	case StoreMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI environment variable is not set")
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (expected mongo, postgres or memory)", cfg.StoreDriver)
	}

	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	if cfg.SessionTTL, err = parseDuration(get("SESSION_TTL", "168h"), "SESSION_TTL"); err != nil {
		return nil, err
	}
	if cfg.StatusSweepInterval, err = parseDuration(get("STATUS_SWEEP_INTERVAL", "1m"), "STATUS_SWEEP_INTERVAL"); err != nil {
		return nil, err
	}

	if cfg.CookieSecure, err = strconv.ParseBool(get("COOKIE_SECURE", "true")); err != nil {
		return nil, fmt.Errorf("invalid COOKIE_SECURE environment variable: %w", err)
	}

	if cfg.ShareRatePerMinute, err = strconv.ParseFloat(get("SHARE_RATE_LIMIT", "30"), 64); err != nil || cfg.ShareRatePerMinute <= 0 {
		return nil, fmt.Errorf("SHARE_RATE_LIMIT must be a positive number of requests per minute")
	}
	if cfg.ShareRateBurst, err = strconv.Atoi(get("SHARE_RATE_BURST", "10")); err != nil || cfg.ShareRateBurst <= 0 {
		return nil, fmt.Errorf("SHARE_RATE_BURST must be a positive integer")
	}

	if cfg.APIKeys, err = ParseAPIKeys(get("API_KEYS", "")); err != nil {
		return nil, err
	}
	if cfg.StaffRoster, err = ParseStaffRoster(get("STAFF_ROSTER", "")); err != nil {
		return nil, err
	}

	return cfg, nil
}

// OAuthConfigured reports whether login through the provider is possible.
func (c *Config) OAuthConfigured() bool {
	return c.OAuth.ClientID != "" && c.OAuth.ClientSecret != "" && c.OAuth.RedirectURL != ""
}

func (c *Config) DiscordConfigured() bool {
	return c.DiscordWebhookID != "" && c.DiscordToken != ""
}

// ParseAPIKeys разбирает строку вида "name:scope1|scope2:base64(bcrypt);name2:...".
// Хэш в base64: godotenv раскрывает '$' внутри bcrypt-хэша как переменную.
func ParseAPIKeys(raw string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	for _, item := range strings.Split(raw, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		// Права сами содержат ':', поэтому имя режем по первому двоеточию, хэш по последнему.
		first, last := strings.Index(item, ":"), strings.LastIndex(item, ":")
		if first < 0 || first == last {
			return nil, fmt.Errorf("invalid API_KEYS entry %q: expected name:scopes:hash", item)
		}
		name := strings.TrimSpace(item[:first])
		scopes := splitScopes(item[first+1 : last])
		if name == "" || len(scopes) == 0 {
			return nil, fmt.Errorf("invalid API_KEYS entry %q: name and at least one scope are required", item)
		}
		hash, err := base64.StdEncoding.DecodeString(strings.TrimSpace(item[last+1:]))
		if err != nil || len(hash) == 0 {
			return nil, fmt.Errorf("invalid API_KEYS entry %q: hash must be base64 of a bcrypt hash", name)
		}
		keys = append(keys, APIKeyConfig{Name: name, Hash: hash, Scopes: scopes})
	}
	return keys, nil
}

// ParseStaffRoster разбирает "username:Title,username2:Title 2". Порядок сохраняется.
func ParseStaffRoster(raw string) ([]StaffEntry, error) {
	var roster []StaffEntry
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		username, title, _ := strings.Cut(item, ":")
		username = strings.TrimSpace(username)
		if username == "" {
			return nil, fmt.Errorf("invalid STAFF_ROSTER entry %q: username is required", item)
		}
		roster = append(roster, StaffEntry{Username: username, Title: strings.TrimSpace(title)})
	}
	return roster, nil
}

func parseDuration(raw, name string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, raw)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func splitScopes(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, "|") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
