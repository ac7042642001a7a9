package handlers

import (
	"net/http"

	"github.com/Dosada05/arena-hub/services"
)

type StaffHandler struct {
	staffService services.StaffService
}

func NewStaffHandler(ss services.StaffService) *StaffHandler {
	return &StaffHandler{staffService: ss}
}

// Roster godoc
// @Summary Состав команды проекта
// @Tags staff
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /staff [get]
func (h *StaffHandler) Roster(w http.ResponseWriter, r *http.Request) {
	staff, err := h.staffService.Roster(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"staff": staff}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
