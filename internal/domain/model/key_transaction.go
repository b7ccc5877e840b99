package model

import (
	"fmt"
	"time"
)

// KeyTransaction — запись журнала передачи ключа.
// Append-only: создаётся ровно один раз на принятый переход,
// никогда не изменяется и не удаляется.
type KeyTransaction struct {
	// ID — ключ записи в формате <unix_millis>-<регистрационный номер>.
	// Используется только как ключ хранения; уникальность при одновременных
	// отправках в одну миллисекунду не гарантируется.
	ID string
	// Type — направление передачи (giving, receiving)
	Type string
	// Name — имя студента
	Name string
	// RegistrationNumber — регистрационный номер студента
	RegistrationNumber string
	// RoomNumber — номер комнаты
	RoomNumber string
	// Date — дата передачи (как введена в форме, YYYY-MM-DD)
	Date string
	// Time — время передачи (как введено в форме, HH:MM)
	Time string
	// SubmittedAt — время регистрации записи сервером
	SubmittedAt time.Time
}

// KeyTransactionID формирует ключ записи журнала из времени отправки
// и регистрационного номера.
func KeyTransactionID(submittedAt time.Time, registrationNumber string) string {
	return fmt.Sprintf("%d-%s", submittedAt.UnixMilli(), registrationNumber)
}
