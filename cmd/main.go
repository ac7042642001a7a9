package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/arena-hub/config"
	"github.com/Dosada05/arena-hub/db"
	_ "github.com/Dosada05/arena-hub/docs"
	"github.com/Dosada05/arena-hub/handlers"
	"github.com/Dosada05/arena-hub/middleware"
	"github.com/Dosada05/arena-hub/relay"
	"github.com/Dosada05/arena-hub/repositories"
	api "github.com/Dosada05/arena-hub/routes"
	"github.com/Dosada05/arena-hub/services"
	"github.com/Dosada05/arena-hub/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"
)

const (
	connectTimeout  = 5 * time.Second
	shutdownTimeout = 15 * time.Second
)

// @title Arena Hub API
// @version 1.0
// @description Tournaments, memories, leaderboard and staff of the community.
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	// Настройка логгера. Уровень уточняется после загрузки конфигурации.
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(logger, level); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(logger *slog.Logger, level *slog.LevelVar) error {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logger.Warn("unknown LOG_LEVEL, using info", slog.String("level", cfg.LogLevel))
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("store", cfg.StoreDriver))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Хранилище
	var checks []func(context.Context) error
	var store repositories.Store
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, database, err := db.ConnectMongo(cfg.MongoURI, cfg.MongoDatabase, connectTimeout)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Error("failed to disconnect from mongo", slog.Any("error", err))
			} else {
				logger.Info("mongo connection closed")
			}
		}()
		if store, err = repositories.NewMongoStore(ctx, database); err != nil {
			return err
		}
		checks = append(checks, db.MongoHealthCheck(client))
		logger.Info("mongo connection established", slog.String("database", cfg.MongoDatabase))
	case config.StorePostgres:
		dbConn, err := db.Connect(cfg.DatabaseURL, connectTimeout)
		if err != nil {
			return err
		}
		defer func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		}()
		if err := db.EnsureSchema(ctx, dbConn); err != nil {
			return err
		}
		store = repositories.NewPostgresStore(dbConn)
		checks = append(checks, db.HealthCheck(dbConn))
		logger.Info("database connection established")
	default:
		logger.Warn("using in-memory store, data is lost on restart")
		store = repositories.NewInMemoryStore()
	}

	// Redis: сессии и межинстансная доставка событий
	sessions := repositories.NewInMemorySessionRepository()
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err = redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		sessions = repositories.NewRedisSessionRepository(redisClient)
		checks = append(checks, func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
		logger.Info("redis connection established")
	} else {
		logger.Warn("REDIS_URL is not set: sessions are kept in memory and events stay on this instance")
	}

	// Инициализация загрузчика файлов (Cloudflare R2)
	var uploader storage.FileUploader
	if cfg.R2.BucketName != "" {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			BucketName:      cfg.R2.BucketName,
			PublicBaseURL:   cfg.R2.PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 is not configured: tournament image upload is disabled")
	}

	// Event relay
	hub := relay.NewHub(logger)
	var redisRelay *relay.RedisPublisher
	publishers := relay.Fanout{}
	if redisClient != nil {
		channel := cfg.RedisChannel
		if channel == "" {
			channel = relay.DefaultRedisChannel
		}
		redisRelay = relay.NewRedisPublisher(redisClient, channel, logger)
		publishers = append(publishers, redisRelay)
	} else {
		publishers = append(publishers, hub)
	}
	var announcer *relay.DiscordAnnouncer
	if cfg.DiscordConfigured() {
		announcer, err = relay.NewDiscordWebhookAnnouncer(cfg.DiscordWebhookID, cfg.DiscordToken, cfg.PublicSiteURL, logger)
		if err != nil {
			return err
		}
		publishers = append(publishers, announcer)
		logger.Info("discord announcements enabled")
	}

	// Инициализация сервисов
	apiKeys := make([]services.APIKey, 0, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		apiKeys = append(apiKeys, services.APIKey{Name: k.Name, Hash: k.Hash, Scopes: k.Scopes})
	}
	roster := make([]services.StaffRosterEntry, 0, len(cfg.StaffRoster))
	for _, e := range cfg.StaffRoster {
		roster = append(roster, services.StaffRosterEntry{Username: e.Username, Title: e.Title})
	}

	authService := services.NewAuthService(cfg.JWTSecretKey, cfg.SessionTTL, sessions, apiKeys)
	userService := services.NewUserService(store.Users, publishers, logger)
	tournamentService := services.NewTournamentService(store.Tournaments, store.Users, uploader, publishers, logger)
	subscriptionService := services.NewSubscriptionService(store.Tournaments, store.Users, publishers, logger)
	memoryService := services.NewMemoryService(store.Memories, store.Users, publishers, logger)
	leaderboardService := services.NewLeaderboardService(store.Leaderboard, publishers)
	staffService := services.NewStaffService(roster, store.Users)

	sweeper, err := services.NewStatusSweeper(tournamentService, cfg.StatusSweepInterval, logger)
	if err != nil {
		return err
	}
	logger.Info("Services initialized")

	var provider services.IdentityProvider
	if cfg.OAuthConfigured() {
		provider = services.NewOAuthProvider(services.OAuthProviderConfig{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			AuthURL:      cfg.OAuth.AuthURL,
			TokenURL:     cfg.OAuth.TokenURL,
			UserInfoURL:  cfg.OAuth.UserInfoURL,
			RedirectURL:  cfg.OAuth.RedirectURL,
			Scopes:       cfg.OAuth.Scopes,
		})
	} else {
		logger.Warn("OAuth is not configured: /auth/login is disabled")
	}

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth: handlers.NewAuthHandler(provider, userService, authService, handlers.CookieSettings{
			Secure:             cfg.CookieSecure,
			RedirectAfterLogin: cfg.AfterLoginURL,
		}),
		Tournaments: handlers.NewTournamentHandler(tournamentService, subscriptionService),
		Memories:    handlers.NewMemoryHandler(memoryService),
		Leaderboard: handlers.NewLeaderboardHandler(leaderboardService),
		Users:       handlers.NewUserHandler(userService, memoryService),
		Staff:       handlers.NewStaffHandler(staffService),
		WebSocket:   handlers.NewWebSocketHandler(hub, cfg.CORSOrigins),
	}, api.Options{
		Logger:         logger,
		Authenticator:  middleware.NewAuthenticator(authService, userService, logger),
		ShareLimiter:   middleware.NewIPRateLimiter(cfg.ShareRatePerMinute, cfg.ShareRateBurst),
		AllowedOrigins: cfg.CORSOrigins,
		Health: func(r *http.Request) error {
			for _, check := range checks {
				if err := check(r.Context()); err != nil {
					return err
				}
			}
			return nil
		},
	})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return sweeper.Run(gctx) })
	if redisRelay != nil {
		g.Go(func() error { return redisRelay.Run(gctx, hub) })
	}
	if announcer != nil {
		g.Go(func() error { return announcer.Run(gctx) })
	}
	g.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return err
		}
		logger.Info("server shutdown complete")
		return nil
	})

	return g.Wait()
}
