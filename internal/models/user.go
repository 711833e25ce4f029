// Package models содержит доменные сущности access-сервиса.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User: учётная запись пользователя.
//
// Описание:
//   - Email и Phone уникальны среди всех записей; Phone хранится в E.164;
//   - PasswordHash пустой у заранее заведённых (импортированных) аккаунтов;
//   - IsDeleted: мягкое удаление, такие записи не видны обычным запросам
//     и не могут аутентифицироваться;
//   - Protected: системная учётная запись (bootstrap super admin).
type User struct {
	ID              uuid.UUID
	FirstName       string
	LastName        string
	MiddleName      string
	Email           string
	Phone           string
	PasswordHash    string
	RoleID          uuid.UUID
	ProfileImg      string
	IsPhoneVerified bool
	IsEmailVerified bool
	Active          bool
	FirstTimeLogin  bool
	LastLogin       *time.Time
	LastFailedLogin *time.Time
	Protected       bool
	IsDeleted       bool
	DeletedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FullName возвращает имя для писем и логов.
func (u *User) FullName() string {
	if u.MiddleName != "" {
		return u.FirstName + " " + u.MiddleName + " " + u.LastName
	}

	return u.FirstName + " " + u.LastName
}

// UserFilter: параметры выборки пользователей.
//   - RoleID: только пользователи роли (uuid.Nil означает любые);
//   - Active: nil отключает фильтр;
//   - Search: подстрока в имени/фамилии/e-mail/телефоне (без учёта регистра);
//   - IncludeProtected: включать защищённые записи (нужно bootstrap-логике);
//   - IDs: ограничить выборку конкретными идентификаторами.
type UserFilter struct {
	RoleID           uuid.UUID
	Active           *bool
	Search           string
	IncludeProtected bool
	IDs              []uuid.UUID
	Page
}

// Page: параметры постраничной выдачи. Limit <= 0 снимает ограничение.
type Page struct {
	Limit  int
	Offset int
}
