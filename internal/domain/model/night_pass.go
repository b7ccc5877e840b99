package model

import (
	"fmt"
	"time"
)

// Статусы запроса ночного пропуска.
const (
	// NightPassPending — ожидает решения коменданта.
	NightPassPending = "pending"
	// NightPassApproved — одобрен комендантом.
	NightPassApproved = "approved"
)

// NightPassRequest — запрос ночного пропуска.
// Одна ячейка на комнату: новый запрос перезаписывает предыдущий
// (last-write-wins, очереди запросов нет).
type NightPassRequest struct {
	// ID — ключ записи в формате <unix_millis>-<регистрационный номер>
	ID string
	// StudentName — имя студента
	StudentName string
	// RegistrationNumber — регистрационный номер студента
	RegistrationNumber string
	// RoomNumber — номер комнаты (первичный ключ хранения)
	RoomNumber string
	// Date — дата, на которую запрошен пропуск (YYYY-MM-DD)
	Date string
	// ArrivalTime — ожидаемое время возвращения (HH:MM)
	ArrivalTime string
	// DispatchTime — время ухода (HH:MM)
	DispatchTime string
	// Reason — причина запроса
	Reason string
	// Status — статус (pending, approved)
	Status string
	// SubmittedAt — время подачи запроса
	SubmittedAt time.Time
	// ApprovedAt — время одобрения (nil, пока pending)
	ApprovedAt *time.Time
	// ApprovedBy — идентификатор одобрившего (sub из JWT)
	ApprovedBy *string
}

// NightPassID формирует ключ запроса из времени подачи и регистрационного номера.
func NightPassID(submittedAt time.Time, registrationNumber string) string {
	return fmt.Sprintf("%d-%s", submittedAt.UnixMilli(), registrationNumber)
}
