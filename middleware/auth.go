package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/services"
)

type contextKey string

const (
	userContextKey   contextKey = "user"
	apiKeyContextKey contextKey = "api_key"
)

const (
	SessionCookieName = "session"
	APIKeyHeader      = "X-API-Key"
)

// Authenticator определяет, кто делает запрос: пользователь по сессии или API-ключ.
type Authenticator struct {
	auth   services.AuthService
	users  services.UserService
	logger *slog.Logger
}

func NewAuthenticator(auth services.AuthService, users services.UserService, logger *slog.Logger) *Authenticator {
	return &Authenticator{auth: auth, users: users, logger: logger}
}

// Authenticate кладёт в контекст пользователя и/или API-ключ, если они есть.
// Запросы без учётных данных проходят дальше анонимно.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if raw := strings.TrimSpace(r.Header.Get(APIKeyHeader)); raw != "" {
			key, ok := a.auth.VerifyAPIKey(raw)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			ctx = context.WithValue(ctx, apiKeyContextKey, key)
		}

		if token := SessionToken(r); token != "" {
			user, err := a.resolveUser(ctx, token)
			if err != nil {
				a.logger.ErrorContext(ctx, "failed to resolve session user", slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if user != nil {
				ctx = context.WithValue(ctx, userContextKey, user)
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveUser возвращает nil без ошибки, если токен недействителен или пользователя больше нет.
// Роль берётся из текущей записи, а не из токена.
func (a *Authenticator) resolveUser(ctx context.Context, token string) (*models.User, error) {
	claims, err := a.auth.ParseSession(ctx, token)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			return nil, nil
		}
		return nil, err
	}
	user, err := a.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// SessionToken достаёт JWT из cookie session или из заголовка Authorization: Bearer.
func SessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok && user != nil
}

func APIKeyFromContext(ctx context.Context) (*services.APIKey, bool) {
	key, ok := ctx.Value(apiKeyContextKey).(*services.APIKey)
	return key, ok && key != nil
}

// WithUser возвращает контекст с пользователем. Нужен тестам обработчиков.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole пропускает пользователей с ролью не ниже min.
func RequireRole(min models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !user.Role.AtLeast(min) {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireScopeOrRole пропускает API-ключ с нужным правом или пользователя с ролью не ниже min.
func RequireScopeOrRole(scope string, min models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, hasKey := APIKeyFromContext(r.Context())
			if hasKey && key.HasScope(scope) {
				next.ServeHTTP(w, r)
				return
			}
			user, hasUser := UserFromContext(r.Context())
			if hasUser && user.Role.AtLeast(min) {
				next.ServeHTTP(w, r)
				return
			}
			if !hasKey && !hasUser {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			writeError(w, http.StatusForbidden, "missing scope "+scope)
		})
	}
}
