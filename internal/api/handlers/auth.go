// auth.go — обработчики регистрации и входа.
// POST /api/v1/register — регистрация студента (публичный)
// POST /api/v1/login — вход по идентификатору и паролю (публичный)
package handlers

import (
	"net/http"

	"github.com/hostelms/key-module/internal/keycloak"
	"github.com/hostelms/key-module/internal/service"
)

// registerRequest — тело запроса регистрации студента.
type registerRequest struct {
	Name               string `json:"name"`
	RegistrationNumber string `json:"registrationNumber"`
	RoomNumber         string `json:"roomNumber"`
	PhoneNumber        string `json:"phoneNumber,omitempty"`
	Password           string `json:"password"`
}

// Register — POST /api/v1/register.
// Регистрирует студента: учётные данные в Keycloak + карточка,
// ожидающая одобрения коменданта.
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.accounts.Register(r.Context(), &service.RegisterInput{
		Name:               req.Name,
		RegistrationNumber: req.RegistrationNumber,
		RoomNumber:         req.RoomNumber,
		PhoneNumber:        req.PhoneNumber,
		Password:           req.Password,
	})
	if err != nil {
		h.writeServiceError(w, err, "Ошибка регистрации студента")
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Success: true,
		User:    mapUser(user),
	})
}

// registerResponse — результат регистрации: карточка ожидает одобрения.
type registerResponse struct {
	Success bool     `json:"success"`
	User    userJSON `json:"user"`
}

// loginRequest — тело запроса входа.
type loginRequest struct {
	// Identifier — регистрационный номер студента или идентификатор сотрудника
	Identifier string `json:"identifier"`
	// LegacyID — старые формы отправляли поле id вместо identifier
	LegacyID string `json:"id"`
	Password string `json:"password"`
}

// identifier возвращает идентификатор входа с учётом старого поля id.
func (r *loginRequest) identifier() string {
	if r.Identifier != "" {
		return r.Identifier
	}
	return r.LegacyID
}

// sessionJSON — токены сессии в ответе входа.
type sessionJSON struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken,omitempty"`
	TokenType        string `json:"tokenType"`
	ExpiresIn        int    `json:"expiresIn"`
	RefreshExpiresIn int    `json:"refreshExpiresIn,omitempty"`
}

// loginResponse — ответ входа: карточка пользователя и токены.
type loginResponse struct {
	Success bool        `json:"success"`
	User    userJSON    `json:"user"`
	Session sessionJSON `json:"session"`
}

func mapSession(tr *keycloak.TokenResponse) sessionJSON {
	return sessionJSON{
		AccessToken:      tr.AccessToken,
		RefreshToken:     tr.RefreshToken,
		TokenType:        tr.TokenType,
		ExpiresIn:        tr.ExpiresIn,
		RefreshExpiresIn: tr.RefreshExpiresIn,
	}
}

// Login — POST /api/v1/login.
// Порядок проверок: карточка существует (404), студент одобрен (403),
// учётные данные верны в Keycloak (401).
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, session, err := h.accounts.Login(r.Context(), req.identifier(), req.Password)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка входа")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Success: true,
		User:    mapUser(user),
		Session: mapSession(session),
	})
}
