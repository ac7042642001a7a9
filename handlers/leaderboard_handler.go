package handlers

import (
	"net/http"

	"github.com/Dosada05/arena-hub/services"
)

type LeaderboardHandler struct {
	leaderboardService services.LeaderboardService
}

func NewLeaderboardHandler(ls services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls}
}

// List godoc
// @Summary Таблица лидеров
// @Tags leaderboard
// @Produce json
// @Param limit query int false "Лимит (по умолчанию 100)"
// @Success 200 {object} map[string]interface{}
// @Router /leaderboard [get]
func (h *LeaderboardHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	entries, err := h.leaderboardService.List(r.Context(), limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	username, err := getParam(r, "username")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	entry, err := h.leaderboardService.Get(r.Context(), username)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"entry": entry}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Upsert godoc
// @Summary Записать результат игрока
// @Tags leaderboard
// @Accept json
// @Produce json
// @Param username path string true "Имя игрока"
// @Param input body services.LeaderboardInput true "Статистика"
// @Success 200 {object} map[string]interface{}
// @Security ApiKeyAuth
// @Security BearerAuth
// @Router /leaderboard/{username} [put]
func (h *LeaderboardHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	username, err := getParam(r, "username")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.LeaderboardInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	entry, err := h.leaderboardService.Upsert(r.Context(), username, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"entry": entry}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
