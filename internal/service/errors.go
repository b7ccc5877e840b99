// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrAccessNotGranted — операция с ключом без живого разрешения охраны.
	ErrAccessNotGranted = errors.New("разрешение на операцию с ключом не выдано")
	// ErrInvalidCredentials — неверные учётные данные при входе.
	ErrInvalidCredentials = errors.New("неверные учётные данные")
	// ErrNotApproved — учётная запись не одобрена комендантом.
	ErrNotApproved = errors.New("учётная запись не одобрена")
	// ErrIDPUnavailable — Identity Provider (Keycloak) недоступен.
	ErrIDPUnavailable = errors.New("Identity Provider недоступен")
)
