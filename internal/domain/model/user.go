// Пакет model — доменные модели Key Module.
package model

import "time"

// Роли пользователей системы.
const (
	// RoleStudent — студент общежития.
	RoleStudent = "student"
	// RoleSecurity — сотрудник охраны.
	RoleSecurity = "security"
	// RoleWarden — комендант общежития.
	RoleWarden = "warden"
)

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleSecurity, RoleWarden:
		return true
	default:
		return false
	}
}

// User — учётная запись пользователя.
// Хранится в таблице users. Credentials хранятся в Identity Provider,
// локально — только ссылка на него через AuthID.
type User struct {
	// ID — идентификатор: регистрационный номер для студентов,
	// username для охраны и коменданта
	ID string
	// Name — полное имя
	Name string
	// Role — роль (student, security, warden)
	Role string
	// RegistrationNumber — регистрационный номер (для студентов)
	RegistrationNumber string
	// Username — имя для входа (для охраны и коменданта)
	Username string
	// PhoneNumber — контактный телефон (для охраны, опционально)
	PhoneNumber *string
	// RoomNumber — номер комнаты (для студентов)
	RoomNumber string
	// Approved — одобрена ли регистрация комендантом.
	// Имеет смысл только для role=student; вход запрещён, пока false.
	Approved bool
	// AuthID — идентификатор учётной записи в Identity Provider
	AuthID *string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// StudentRef — краткая карточка студента для списков комнат.
type StudentRef struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	RegistrationNumber string `json:"registrationNumber"`
}

// Ref возвращает краткую карточку студента.
func (u *User) Ref() StudentRef {
	return StudentRef{
		ID:                 u.ID,
		Name:               u.Name,
		RegistrationNumber: u.RegistrationNumber,
	}
}
