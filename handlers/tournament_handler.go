package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/arena-hub/middleware"
	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/services"
	"github.com/Dosada05/arena-hub/storage"
)

type TournamentHandler struct {
	tournamentService   services.TournamentService
	subscriptionService services.SubscriptionService
}

func NewTournamentHandler(ts services.TournamentService, ss services.SubscriptionService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService:   ts,
		subscriptionService: ss,
	}
}

type joinTournamentRequest struct {
	Teammates []string `json:"teammates"`
}

type updateStatusRequest struct {
	Status models.TournamentStatus `json:"status"`
}

type invitationResponseRequest struct {
	Accept *bool `json:"accept"`
}

// List godoc
// @Summary Список турниров
// @Tags tournaments
// @Produce json
// @Param status query string false "open | in_progress | concluded | paused"
// @Param limit query int false "Лимит"
// @Success 200 {object} map[string]interface{}
// @Router /tournaments [get]
func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter services.TournamentFilter
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := models.TournamentStatus(statusStr)
		filter.Status = &status
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	filter.Limit = limit

	tournaments, err := h.tournamentService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get godoc
// @Summary Турнир по id или slug
// @Tags tournaments
// @Produce json
// @Param tournamentID path string true "Tournament ID or slug"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID} [get]
func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := getParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Get(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Create godoc
// @Summary Создать турнир
// @Tags tournaments
// @Accept json
// @Produce json
// @Param input body services.CreateTournamentInput true "Турнир"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Security ApiKeyAuth
// @Security BearerAuth
// @Router /tournaments [post]
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Delete godoc
// @Summary Удалить турнир
// @Tags tournaments
// @Param tournamentID path string true "Tournament ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Security ApiKeyAuth
// @Security BearerAuth
// @Router /tournaments/{tournamentID} [delete]
func (h *TournamentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.tournamentService.Delete(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus godoc
// @Summary Сменить статус турнира
// @Tags tournaments
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param input body updateStatusRequest true "Новый статус"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Недопустимый переход"
// @Security ApiKeyAuth
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/status [patch]
func (h *TournamentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := getParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input updateStatusRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.UpdateStatus(r.Context(), id, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadImage godoc
// @Summary Загрузить картинку турнира
// @Tags tournaments
// @Accept multipart/form-data
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param image formData file true "Картинка (jpeg, png, gif, webp до 5MB)"
// @Success 200 {object} map[string]interface{}
// @Security ApiKeyAuth
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/image [post]
func (h *TournamentHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := getParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxImageSize+1024)
	if err := r.ParseMultipartForm(storage.MaxImageSize); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			errorResponse(w, r, http.StatusRequestEntityTooLarge, "image must not be larger than 5MB")
			return
		}
		badRequestResponse(w, r, errors.New("invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		badRequestResponse(w, r, errors.New("missing image file"))
		return
	}
	defer file.Close()

	tournament, err := h.tournamentService.UploadImage(r.Context(), id, header.Header.Get("Content-Type"), file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Join godoc
// @Summary Вступить в турнир
// @Description Для duo нужен 1 тиммейт, для trio 2. Тиммейты указываются по имени пользователя.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param input body joinTournamentRequest false "Тиммейты"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Нарушено правило вступления"
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string "Регистрация закрыта"
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Уже участвует"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/join [post]
func (h *TournamentHandler) Join(w http.ResponseWriter, r *http.Request) {
	id, err := getParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input joinTournamentRequest
	// пустое тело допустимо для solo
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	tournament, err := h.subscriptionService.Join(r.Context(), id, user.ID, input.Teammates)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Unsubscribe godoc
// @Summary Выйти из турнира
// @Description Капитан выходит вместе со всей командой.
// @Tags subscriptions
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Не участвует"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/unsubscribe [post]
func (h *TournamentHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := getParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	tournament, err := h.subscriptionService.Leave(r.Context(), id, user.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RespondToInvitation godoc
// @Summary Принять или отклонить приглашение в команду
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param input body invitationResponseRequest true "accept: true | false"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Приглашения нет"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/invitation [post]
func (h *TournamentHandler) RespondToInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := getParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input invitationResponseRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Accept == nil {
		badRequestResponse(w, r, errors.New("accept is required"))
		return
	}

	tournament, err := h.subscriptionService.RespondToInvitation(r.Context(), id, user.ID, *input.Accept)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
