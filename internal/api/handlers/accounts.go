// accounts.go — обработчики учётных записей.
// GET /api/v1/students — все студенты (публичный)
// GET /api/v1/securities — все сотрудники охраны (публичный)
// POST /api/v1/manage-student — одобрение/блокировка студента (роль warden)
// POST /api/v1/add-security — заведение сотрудника охраны (роль warden)
package handlers

import (
	"net/http"

	apierrors "github.com/hostelms/key-module/internal/api/errors"
	"github.com/hostelms/key-module/internal/api/middleware"
	"github.com/hostelms/key-module/internal/domain/model"
	"github.com/hostelms/key-module/internal/service"
)

// ListStudents — GET /api/v1/students.
func (h *APIHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.accounts.ListStudents(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения списка студентов")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Students []userJSON `json:"students"`
	}{Students: mapUsers(students)})
}

// ListSecurities — GET /api/v1/securities.
func (h *APIHandler) ListSecurities(w http.ResponseWriter, r *http.Request) {
	securities, err := h.accounts.ListSecurities(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения списка охраны")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Securities []userJSON `json:"securities"`
	}{Securities: mapUsers(securities)})
}

func mapUsers(users []*model.User) []userJSON {
	out := make([]userJSON, 0, len(users))
	for _, u := range users {
		out = append(out, mapUser(u))
	}
	return out
}

// manageStudentRequest — тело запроса управления студентом.
type manageStudentRequest struct {
	StudentID string `json:"studentId"`
	// Action — activate (одобрить) или cancel (отозвать одобрение)
	Action string `json:"action"`
}

// ManageStudent — POST /api/v1/manage-student.
// Переключает флаг одобрения студента. Доступ: warden.
func (h *APIHandler) ManageStudent(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}
	if !claims.HasRole(model.RoleWarden) {
		apierrors.Forbidden(w, "Недостаточно прав: требуется роль warden")
		return
	}

	var req manageStudentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.StudentID == "" {
		apierrors.ValidationError(w, "Идентификатор студента обязателен")
		return
	}

	user, err := h.accounts.ManageStudent(r.Context(), req.StudentID, req.Action)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка управления студентом")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool     `json:"success"`
		User    userJSON `json:"user"`
	}{Success: true, User: mapUser(user)})
}

// addSecurityRequest — тело запроса заведения охраны.
type addSecurityRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Password    string `json:"password"`
}

// AddSecurity — POST /api/v1/add-security.
// Заводит сотрудника охраны. Доступ: warden.
func (h *APIHandler) AddSecurity(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}
	if !claims.HasRole(model.RoleWarden) {
		apierrors.Forbidden(w, "Недостаточно прав: требуется роль warden")
		return
	}

	var req addSecurityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.accounts.AddSecurity(r.Context(), &service.AddSecurityInput{
		ID:          req.ID,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	})
	if err != nil {
		h.writeServiceError(w, err, "Ошибка заведения сотрудника охраны")
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Success  bool     `json:"success"`
		Security userJSON `json:"security"`
	}{Success: true, Security: mapUser(user)})
}
