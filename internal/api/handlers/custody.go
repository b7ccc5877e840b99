// custody.go — обработчики владения ключами.
// POST /api/v1/give-access — выдача разрешения охраной (роль security)
// GET /api/v1/check-access/{roomNumber} — проверка разрешения (публичный)
// POST /api/v1/key-transaction — операция передачи ключа (аутентифицированный)
// GET /api/v1/transactions — журнал передач (публичный)
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/hostelms/key-module/internal/api/errors"
	"github.com/hostelms/key-module/internal/api/middleware"
	"github.com/hostelms/key-module/internal/domain/model"
	"github.com/hostelms/key-module/internal/service"
)

// giveAccessRequest — тело запроса выдачи разрешения.
type giveAccessRequest struct {
	RoomNumber string `json:"roomNumber"`
}

// accessGrantJSON — разрешение на операцию с ключом в API.
type accessGrantJSON struct {
	RoomNumber string `json:"roomNumber"`
	Granted    bool   `json:"granted"`
	GrantedBy  string `json:"grantedBy,omitempty"`
	GrantedAt  string `json:"grantedAt,omitempty"`
}

func mapAccessGrant(g *model.AccessGrant) accessGrantJSON {
	return accessGrantJSON{
		RoomNumber: g.RoomNumber,
		Granted:    g.Granted,
		GrantedBy:  g.GrantedBy,
		GrantedAt:  g.GrantedAt.UTC().Format(timeFormat),
	}
}

// GiveAccess — POST /api/v1/give-access.
// Выдаёт разрешение на операцию с ключом комнаты. Доступ: security.
func (h *APIHandler) GiveAccess(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}
	if !claims.HasRole(model.RoleSecurity) {
		apierrors.Forbidden(w, "Недостаточно прав: требуется роль security")
		return
	}

	var req giveAccessRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	grant, err := h.custody.GrantAccess(r.Context(), req.RoomNumber, claims.Subject)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка выдачи разрешения")
		return
	}

	writeJSON(w, http.StatusOK, giveAccessResponse{
		Success:     true,
		AccessGrant: mapAccessGrant(grant),
	})
}

// giveAccessResponse — результат выдачи разрешения.
type giveAccessResponse struct {
	Success     bool            `json:"success"`
	AccessGrant accessGrantJSON `json:"accessGrant"`
}

// checkAccessResponse — результат проверки разрешения.
type checkAccessResponse struct {
	HasAccess   bool             `json:"hasAccess"`
	AccessGrant *accessGrantJSON `json:"accessGrant,omitempty"`
}

// CheckAccess — GET /api/v1/check-access/{roomNumber}.
// Возвращает живое разрешение комнаты. Отсутствие разрешения — не ошибка.
func (h *APIHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "roomNumber")

	granted, grant, err := h.custody.CheckAccess(r.Context(), number)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка проверки разрешения")
		return
	}

	resp := checkAccessResponse{HasAccess: granted}
	if granted {
		mapped := mapAccessGrant(grant)
		resp.AccessGrant = &mapped
	}
	writeJSON(w, http.StatusOK, resp)
}

// keyTransactionRequest — тело запроса операции передачи ключа.
type keyTransactionRequest struct {
	// Type — giving или receiving (допустим старый алиас taking)
	Type               string `json:"type"`
	Name               string `json:"name"`
	RegistrationNumber string `json:"registrationNumber"`
	RoomNumber         string `json:"roomNumber"`
	Date               string `json:"date"`
	Time               string `json:"time"`
}

// RecordKeyTransaction — POST /api/v1/key-transaction.
// Операция передачи ключа. Доступ: любой аутентифицированный пользователь.
// Требует живого разрешения охраны и корректного направления передачи.
func (h *APIHandler) RecordKeyTransaction(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	var req keyTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	record, err := h.custody.RecordKeyTransaction(r.Context(), &service.KeyTransactionInput{
		Type:               req.Type,
		Name:               req.Name,
		RegistrationNumber: req.RegistrationNumber,
		RoomNumber:         req.RoomNumber,
		Date:               req.Date,
		Time:               req.Time,
	})
	if err != nil {
		h.writeServiceError(w, err, "Ошибка записи операции с ключом")
		return
	}

	writeJSON(w, http.StatusCreated, keyTransactionResponse{
		Success:     true,
		Transaction: mapKeyTransaction(record),
	})
}

// keyTransactionResponse — результат операции передачи ключа.
type keyTransactionResponse struct {
	Success     bool               `json:"success"`
	Transaction keyTransactionJSON `json:"transaction"`
}

// ListTransactions — GET /api/v1/transactions.
// Последние записи журнала передач, новые первыми.
func (h *APIHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	records, err := h.custody.ListTransactions(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения журнала передач")
		return
	}

	out := make([]keyTransactionJSON, 0, len(records))
	for _, tx := range records {
		out = append(out, mapKeyTransaction(tx))
	}
	writeJSON(w, http.StatusOK, struct {
		Transactions []keyTransactionJSON `json:"transactions"`
	}{Transactions: out})
}
