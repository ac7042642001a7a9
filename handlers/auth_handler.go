package handlers

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/arena-hub/middleware"
	"github.com/Dosada05/arena-hub/services"
	"github.com/google/uuid"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

type CookieSettings struct {
	Secure bool
	// Куда отправить браузер после успешного входа.
	RedirectAfterLogin string
}

type AuthHandler struct {
	provider    services.IdentityProvider
	userService services.UserService
	authService services.AuthService
	cookies     CookieSettings
}

func NewAuthHandler(provider services.IdentityProvider, us services.UserService, as services.AuthService, cookies CookieSettings) *AuthHandler {
	if cookies.RedirectAfterLogin == "" {
		cookies.RedirectAfterLogin = "/"
	}
	return &AuthHandler{
		provider:    provider,
		userService: us,
		authService: as,
		cookies:     cookies,
	}
}

// Login godoc
// @Summary Начать вход через OAuth
// @Tags auth
// @Success 307
// @Failure 503 {object} map[string]string
// @Router /auth/login [get]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		errorResponse(w, r, http.StatusServiceUnavailable, "login is not configured")
		return
	}
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// Callback godoc
// @Summary OAuth callback: создаёт сессию и ставит cookie
// @Tags auth
// @Param code query string true "Код авторизации"
// @Param state query string true "State"
// @Success 303
// @Failure 401 {object} map[string]string
// @Router /auth/callback [get]
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		errorResponse(w, r, http.StatusServiceUnavailable, "login is not configured")
		return
	}
	query := r.URL.Query()
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" ||
		subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(query.Get("state"))) != 1 {
		unauthorizedResponse(w, r, "invalid oauth state")
		return
	}
	// state одноразовый
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/auth", MaxAge: -1, HttpOnly: true, Secure: h.cookies.Secure})

	if providerErr := query.Get("error"); providerErr != "" {
		unauthorizedResponse(w, r, "login was cancelled: "+providerErr)
		return
	}
	code := query.Get("code")
	if code == "" {
		badRequestResponse(w, r, errors.New("missing authorization code"))
		return
	}

	identity, err := h.provider.Identify(r.Context(), code)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	user, err := h.userService.SignIn(r.Context(), *identity)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	session, err := h.authService.IssueSession(r.Context(), user)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	slog.InfoContext(r.Context(), "user signed in", slog.String("user_id", user.ID))
	http.Redirect(w, r, h.cookies.RedirectAfterLogin, http.StatusSeeOther)
}

// Logout godoc
// @Summary Выйти: отзывает сессию и удаляет cookie
// @Tags auth
// @Success 204
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		if err := h.authService.RevokeSession(r.Context(), token); err != nil {
			serverErrorResponse(w, r, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
