package model

import "time"

// Room — комната общежития.
// Хранится в таблице rooms, номер комнаты — первичный ключ (ID == Number).
//
// Инвариант: HasNightPassRequest == true тогда и только тогда, когда для
// комнаты существует ночной пропуск в статусе pending.
type Room struct {
	// Number — номер комнаты (первичный ключ)
	Number string
	// KeyAvailable — где находится ключ: true — у охраны, false — у студентов
	KeyAvailable bool
	// HasNightPassRequest — есть ли необработанный запрос ночного пропуска
	HasNightPassRequest bool
	// Students — упорядоченный список регистрационных номеров проживающих
	Students []string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
