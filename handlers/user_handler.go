package handlers

import (
	"net/http"

	"github.com/Dosada05/arena-hub/middleware"
	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/services"
)

type UserHandler struct {
	userService   services.UserService
	memoryService services.MemoryService
}

func NewUserHandler(us services.UserService, ms services.MemoryService) *UserHandler {
	return &UserHandler{
		userService:   us,
		memoryService: ms,
	}
}

// userProfile is the public user card.
type userProfile struct {
	models.PublicUser
	SocialLinks map[string]string `json:"social_links,omitempty"`
	Skills      []string          `json:"skills,omitempty"`
	Tournaments []string          `json:"tournaments"`
}

func newUserProfile(u *models.User) userProfile {
	tournaments := u.Tournaments
	if tournaments == nil {
		tournaments = []string{}
	}
	return userProfile{
		PublicUser:  u.Public(),
		SocialLinks: u.SocialLinks,
		Skills:      u.Skills,
		Tournaments: tournaments,
	}
}

type setRoleRequest struct {
	Role models.UserRole `json:"role"`
}

// Search godoc
// @Summary Поиск пользователей
// @Tags users
// @Produce json
// @Param q query string true "Запрос"
// @Param limit query int false "Лимит (по умолчанию 10)"
// @Success 200 {object} map[string]interface{}
// @Router /users/search [get]
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	users, err := h.userService.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"users": users}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByUsername godoc
// @Summary Профиль пользователя
// @Tags users
// @Produce json
// @Param username path string true "Имя пользователя"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /users/{username} [get]
func (h *UserHandler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	username, err := getParam(r, "username")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	user, err := h.userService.GetByUsername(r.Context(), username)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": newUserProfile(user)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Memories godoc
// @Summary Memories пользователя
// @Tags users
// @Produce json
// @Param username path string true "Имя пользователя"
// @Success 200 {object} map[string]interface{}
// @Router /users/{username}/memories [get]
func (h *UserHandler) Memories(w http.ResponseWriter, r *http.Request) {
	username, err := getParam(r, "username")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	filter, err := memoryFilterFromQuery(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	memories, err := h.memoryService.ListByUsername(r.Context(), username, filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"memories": memories}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Me godoc
// @Summary Текущий пользователь
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /users/me [get]
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateMe godoc
// @Summary Обновить свой профиль
// @Tags users
// @Accept json
// @Produce json
// @Param input body services.UpdateProfileInput true "Ник, соцсети, навыки"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /users/me [put]
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	var input services.UpdateProfileInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	updated, err := h.userService.UpdateProfile(r.Context(), user.ID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SetRole godoc
// @Summary Назначить роль (только admin)
// @Tags users
// @Accept json
// @Produce json
// @Param username path string true "Имя пользователя"
// @Param input body setRoleRequest true "Роль"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /users/{username}/role [put]
func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	username, err := getParam(r, "username")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	var input setRoleRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, err := h.userService.SetRole(r.Context(), actor, username, input.Role)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": newUserProfile(user)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
