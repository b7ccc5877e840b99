// nightpass.go — обработчики ночных пропусков.
// POST /api/v1/night-pass — подача запроса (аутентифицированный)
// POST /api/v1/approve-night-pass — одобрение комендантом (роль warden)
// GET /api/v1/night-passes — все запросы (публичный)
package handlers

import (
	"net/http"

	apierrors "github.com/hostelms/key-module/internal/api/errors"
	"github.com/hostelms/key-module/internal/api/middleware"
	"github.com/hostelms/key-module/internal/domain/model"
	"github.com/hostelms/key-module/internal/service"
)

// nightPassRequest — тело запроса ночного пропуска.
type nightPassRequest struct {
	StudentName        string `json:"studentName"`
	RegistrationNumber string `json:"registrationNumber"`
	RoomNumber         string `json:"roomNumber"`
	Date               string `json:"date"`
	ArrivalTime        string `json:"arrivalTime,omitempty"`
	DispatchTime       string `json:"dispatchTime,omitempty"`
	Reason             string `json:"reason,omitempty"`
}

// SubmitNightPass — POST /api/v1/night-pass.
// Подаёт запрос ночного пропуска для комнаты. У комнаты одна ячейка
// запроса — повторная подача перезаписывает предыдущий.
func (h *APIHandler) SubmitNightPass(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	var req nightPassRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pass, err := h.nightPasses.Submit(r.Context(), &service.NightPassInput{
		StudentName:        req.StudentName,
		RegistrationNumber: req.RegistrationNumber,
		RoomNumber:         req.RoomNumber,
		Date:               req.Date,
		ArrivalTime:        req.ArrivalTime,
		DispatchTime:       req.DispatchTime,
		Reason:             req.Reason,
	})
	if err != nil {
		h.writeServiceError(w, err, "Ошибка подачи запроса ночного пропуска")
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Success          bool          `json:"success"`
		NightPassRequest nightPassJSON `json:"nightPassRequest"`
	}{Success: true, NightPassRequest: mapNightPass(pass)})
}

// approveNightPassRequest — тело запроса одобрения.
type approveNightPassRequest struct {
	RoomNumber string `json:"roomNumber"`
}

// approveNightPassResponse — результат одобрения. При отсутствии записи
// запроса nightPassRequest опущен: флаг комнаты уже сброшен.
type approveNightPassResponse struct {
	Success          bool           `json:"success"`
	NightPassRequest *nightPassJSON `json:"nightPassRequest,omitempty"`
}

// ApproveNightPass — POST /api/v1/approve-night-pass.
// Одобряет запрос ночного пропуска комнаты. Доступ: warden.
// Флаг комнаты опускается даже при отсутствии записи запроса.
func (h *APIHandler) ApproveNightPass(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}
	if !claims.HasRole(model.RoleWarden) {
		apierrors.Forbidden(w, "Недостаточно прав: требуется роль warden")
		return
	}

	var req approveNightPassRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pass, err := h.nightPasses.Approve(r.Context(), req.RoomNumber, claims.Subject)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка одобрения ночного пропуска")
		return
	}

	resp := approveNightPassResponse{Success: true}
	if pass != nil {
		mapped := mapNightPass(pass)
		resp.NightPassRequest = &mapped
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListNightPasses — GET /api/v1/night-passes.
// Все запросы ночных пропусков, новые первыми.
func (h *APIHandler) ListNightPasses(w http.ResponseWriter, r *http.Request) {
	passes, err := h.nightPasses.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения списка ночных пропусков")
		return
	}

	out := make([]nightPassJSON, 0, len(passes))
	for _, np := range passes {
		out = append(out, mapNightPass(np))
	}
	writeJSON(w, http.StatusOK, struct {
		NightPasses []nightPassJSON `json:"nightPasses"`
	}{NightPasses: out})
}
