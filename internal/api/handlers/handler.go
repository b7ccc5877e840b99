// handler.go — основной обработчик API Key Module.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/hostelms/key-module/internal/api/errors"
	"github.com/hostelms/key-module/internal/domain/custody"
	"github.com/hostelms/key-module/internal/domain/model"
	"github.com/hostelms/key-module/internal/service"
)

// APIHandler — основной обработчик API Key Module.
type APIHandler struct {
	health      *HealthHandler
	accounts    *service.AccountService
	custody     *service.CustodyService
	nightPasses *service.NightPassService
	rooms       *service.RoomService
	seed        *service.SeedService
	logger      *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	accounts *service.AccountService,
	custodySvc *service.CustodyService,
	nightPasses *service.NightPassService,
	rooms *service.RoomService,
	seed *service.SeedService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:      health,
		accounts:    accounts,
		custody:     custodySvc,
		nightPasses: nightPasses,
		rooms:       rooms,
		seed:        seed,
		logger:      logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON разбирает тело запроса в dst.
// При ошибке пишет 400 и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// writeServiceError отображает ошибку сервисного слоя в HTTP-ответ.
// Неизвестные ошибки логируются и отдаются как 500 с fallback-сообщением.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var terr *custody.TransitionError
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrAccessNotGranted):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrNotApproved):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		apierrors.Unauthorized(w, err.Error())
	case errors.Is(err, service.ErrIDPUnavailable):
		apierrors.IDPUnavailable(w, err.Error())
	case errors.As(err, &terr):
		apierrors.InvalidTransition(w, terr.Message)
	default:
		h.logger.Error(fallback, "error", err)
		apierrors.InternalError(w, fallback)
	}
}

// --- JSON-представления доменных моделей ---

// userJSON — карточка пользователя в API.
type userJSON struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Role               string `json:"role"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`
	Username           string `json:"username,omitempty"`
	PhoneNumber        string `json:"phoneNumber,omitempty"`
	RoomNumber         string `json:"roomNumber,omitempty"`
	Approved           bool   `json:"approved"`
}

func mapUser(u *model.User) userJSON {
	out := userJSON{
		ID:                 u.ID,
		Name:               u.Name,
		Role:               u.Role,
		RegistrationNumber: u.RegistrationNumber,
		Username:           u.Username,
		RoomNumber:         u.RoomNumber,
		Approved:           u.Approved,
	}
	if u.PhoneNumber != nil {
		out.PhoneNumber = *u.PhoneNumber
	}
	return out
}

// roomJSON — комната в API. Идентификатор комнаты — её номер.
type roomJSON struct {
	ID                  string             `json:"id"`
	KeyAvailable        bool               `json:"keyAvailable"`
	HasNightPassRequest bool               `json:"hasNightPassRequest"`
	Students            []model.StudentRef `json:"students"`
}

func mapRoom(v *service.RoomView) roomJSON {
	return roomJSON{
		ID:                  v.Number,
		KeyAvailable:        v.KeyAvailable,
		HasNightPassRequest: v.HasNightPassRequest,
		Students:            v.Students,
	}
}

// nightPassJSON — запрос ночного пропуска в API.
type nightPassJSON struct {
	ID                 string `json:"id"`
	StudentName        string `json:"studentName"`
	RegistrationNumber string `json:"registrationNumber"`
	RoomNumber         string `json:"roomNumber"`
	Date               string `json:"date"`
	ArrivalTime        string `json:"arrivalTime,omitempty"`
	DispatchTime       string `json:"dispatchTime,omitempty"`
	Reason             string `json:"reason,omitempty"`
	Status             string `json:"status"`
	SubmittedAt        string `json:"submittedAt"`
	ApprovedAt         string `json:"approvedAt,omitempty"`
	ApprovedBy         string `json:"approvedBy,omitempty"`
}

func mapNightPass(np *model.NightPassRequest) nightPassJSON {
	out := nightPassJSON{
		ID:                 np.ID,
		StudentName:        np.StudentName,
		RegistrationNumber: np.RegistrationNumber,
		RoomNumber:         np.RoomNumber,
		Date:               np.Date,
		ArrivalTime:        np.ArrivalTime,
		DispatchTime:       np.DispatchTime,
		Reason:             np.Reason,
		Status:             np.Status,
		SubmittedAt:        np.SubmittedAt.UTC().Format(timeFormat),
	}
	if np.ApprovedAt != nil {
		out.ApprovedAt = np.ApprovedAt.UTC().Format(timeFormat)
	}
	if np.ApprovedBy != nil {
		out.ApprovedBy = *np.ApprovedBy
	}
	return out
}

// keyTransactionJSON — запись журнала передач в API.
type keyTransactionJSON struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	Name               string `json:"name"`
	RegistrationNumber string `json:"registrationNumber"`
	RoomNumber         string `json:"roomNumber"`
	Date               string `json:"date"`
	Time               string `json:"time"`
	SubmittedAt        string `json:"submittedAt"`
}

func mapKeyTransaction(tx *model.KeyTransaction) keyTransactionJSON {
	return keyTransactionJSON{
		ID:                 tx.ID,
		Type:               tx.Type,
		Name:               tx.Name,
		RegistrationNumber: tx.RegistrationNumber,
		RoomNumber:         tx.RoomNumber,
		Date:               tx.Date,
		Time:               tx.Time,
		SubmittedAt:        tx.SubmittedAt.UTC().Format(timeFormat),
	}
}

// timeFormat — формат временных меток в ответах API.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"
