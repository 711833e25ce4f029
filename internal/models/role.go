package models

import (
	"time"

	"github.com/google/uuid"
)

// Системные значения ролей.
const (
	RoleSuperAdmin = "super_admin"
	RoleUser       = "user"
)

// Role: именованный набор прав.
// Permissions хранится в минимальной форме (см. permissions.Normalize).
// Protected-роли нельзя удалить и нельзя поменять им Value.
type Role struct {
	ID          uuid.UUID
	Name        string
	Value       string
	Active      bool
	Permissions []string
	Protected   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoleFilter: параметры выборки ролей.
type RoleFilter struct {
	Active        *bool
	Search        string
	ExcludeValues []string
	Page
}
