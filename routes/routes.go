package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/arena-hub/handlers"
	"github.com/Dosada05/arena-hub/middleware"
	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/services"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

const requestTimeout = 30 * time.Second

// Handlers собирает обработчики для роутера.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Tournaments *handlers.TournamentHandler
	Memories    *handlers.MemoryHandler
	Leaderboard *handlers.LeaderboardHandler
	Users       *handlers.UserHandler
	Staff       *handlers.StaffHandler
	WebSocket   *handlers.WebSocketHandler
}

type Options struct {
	Logger         *slog.Logger
	Authenticator  *middleware.Authenticator
	ShareLimiter   *middleware.IPRateLimiter
	AllowedOrigins []string
	// Health проверяет зависимости для /healthz. При nil всегда ok.
	Health func(r *http.Request) error
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(chiMiddleware.Recoverer)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.APIKeyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Health != nil {
			if err := opts.Health(r); err != nil {
				opts.Logger.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable\n"))
				return
			}
		}
		_, _ = w.Write([]byte("ok\n"))
	})
	router.Get("/swagger/*", httpSwagger.WrapHandler)

	// websocket живёт дольше requestTimeout, поэтому вне группы с таймаутом
	router.Get("/ws", h.WebSocket.ServeWs)

	router.Route("/auth", func(r chi.Router) {
		r.Use(opts.Authenticator.Authenticate)
		r.Get("/login", h.Auth.Login)
		r.Get("/callback", h.Auth.Callback)
		r.Post("/logout", h.Auth.Logout)
	})

	router.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(requestTimeout))
		r.Use(opts.Authenticator.Authenticate)

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.Tournaments.List)
			r.Get("/{tournamentID}", h.Tournaments.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireScopeOrRole(services.ScopeTournamentsWrite, models.RoleModerator))
				r.Post("/", h.Tournaments.Create)
				r.Delete("/{tournamentID}", h.Tournaments.Delete)
				r.Patch("/{tournamentID}/status", h.Tournaments.UpdateStatus)
				r.Post("/{tournamentID}/image", h.Tournaments.UploadImage)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireUser)
				r.Post("/{tournamentID}/join", h.Tournaments.Join)
				r.Post("/{tournamentID}/unsubscribe", h.Tournaments.Unsubscribe)
				r.Post("/{tournamentID}/invitation", h.Tournaments.RespondToInvitation)
			})
		})

		r.Route("/memories", func(r chi.Router) {
			r.Get("/", h.Memories.List)
			if opts.ShareLimiter != nil {
				r.With(opts.ShareLimiter.Limit).Post("/{memoryID}/share", h.Memories.Share)
			} else {
				r.Post("/{memoryID}/share", h.Memories.Share)
			}

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireUser)
				r.Post("/", h.Memories.Create)
				r.Delete("/{memoryID}", h.Memories.Delete)
				r.Post("/{memoryID}/like", h.Memories.Like)
			})
		})

		r.Route("/leaderboard", func(r chi.Router) {
			r.Get("/", h.Leaderboard.List)
			r.Get("/{username}", h.Leaderboard.Get)
			r.With(middleware.RequireScopeOrRole(services.ScopeLeaderboardWrite, models.RoleModerator)).
				Put("/{username}", h.Leaderboard.Upsert)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/search", h.Users.Search)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireUser)
				r.Get("/me", h.Users.Me)
				r.Put("/me", h.Users.UpdateMe)
			})

			r.Get("/{username}", h.Users.GetByUsername)
			r.Get("/{username}/memories", h.Users.Memories)
			r.With(middleware.RequireRole(models.RoleAdmin)).Put("/{username}/role", h.Users.SetRole)
		})

		r.Get("/staff", h.Staff.Roster)
	})
}
