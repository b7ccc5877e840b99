package model

import "time"

// AccessGrant — разрешение охраны на передачу ключа для одной комнаты.
// Не более одного живого разрешения на комнату: повторный grant перезаписывает
// существующий, первый принятый KeyTransaction удаляет его.
type AccessGrant struct {
	// RoomNumber — номер комнаты (первичный ключ)
	RoomNumber string
	// Granted — разрешение активно
	Granted bool
	// GrantedBy — идентификатор выдавшего (sub из JWT)
	GrantedBy string
	// GrantedAt — время выдачи
	GrantedAt time.Time
}
