package handlers

import (
	"net/http"

	"github.com/Dosada05/arena-hub/middleware"
	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/services"
)

type MemoryHandler struct {
	memoryService services.MemoryService
}

func NewMemoryHandler(ms services.MemoryService) *MemoryHandler {
	return &MemoryHandler{memoryService: ms}
}

func memoryFilterFromQuery(r *http.Request) (services.MemoryFilter, error) {
	var filter services.MemoryFilter
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return filter, err
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	filter.Offset = offset
	if user, ok := middleware.UserFromContext(r.Context()); ok {
		filter.ViewerID = user.ID
	}
	return filter, nil
}

// List godoc
// @Summary Лента memories
// @Tags memories
// @Produce json
// @Param author query string false "Имя автора"
// @Param limit query int false "Лимит (по умолчанию 50, максимум 100)"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]interface{}
// @Router /memories [get]
func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := memoryFilterFromQuery(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var memories []models.Memory
	if author := r.URL.Query().Get("author"); author != "" {
		memories, err = h.memoryService.ListByUsername(r.Context(), author, filter)
	} else {
		memories, err = h.memoryService.List(r.Context(), filter)
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"memories": memories}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Create godoc
// @Summary Опубликовать memory
// @Tags memories
// @Accept json
// @Produce json
// @Param input body services.CreateMemoryInput true "title, videoUrl, description"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /memories [post]
func (h *MemoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	var input services.CreateMemoryInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	memory, err := h.memoryService.Create(r.Context(), user.ID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"memory": memory}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Delete godoc
// @Summary Удалить memory (автор или персонал)
// @Tags memories
// @Param memoryID path string true "Memory ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /memories/{memoryID} [delete]
func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getParam(r, "memoryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := h.memoryService.Delete(r.Context(), id, user); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Like godoc
// @Summary Поставить или снять лайк
// @Tags memories
// @Produce json
// @Param memoryID path string true "Memory ID"
// @Success 200 {object} services.LikeResult
// @Security BearerAuth
// @Router /memories/{memoryID}/like [post]
func (h *MemoryHandler) Like(w http.ResponseWriter, r *http.Request) {
	id, err := getParam(r, "memoryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	result, err := h.memoryService.ToggleLike(r.Context(), id, user.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Share godoc
// @Summary Увеличить счётчик репостов
// @Tags memories
// @Produce json
// @Param memoryID path string true "Memory ID"
// @Success 200 {object} map[string]interface{}
// @Failure 429 {object} map[string]string
// @Router /memories/{memoryID}/share [post]
func (h *MemoryHandler) Share(w http.ResponseWriter, r *http.Request) {
	id, err := getParam(r, "memoryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	shares, err := h.memoryService.IncrementShare(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"shares": shares}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
