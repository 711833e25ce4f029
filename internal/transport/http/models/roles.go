package models

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/pribylovaa/go-access-service/internal/service"
)

// Ограничения ролей.
const (
	maxRoleName    = 64
	maxPermissions = 128
)

type CreateRoleRequest struct {
	Name        string   `json:"name"`
	Value       string   `json:"value"`
	Permissions []string `json:"permissions"`
	Active      *bool    `json:"active"`
}

func (r CreateRoleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, maxRoleName)),
		validation.Field(&r.Value, validation.Length(0, maxRoleName)),
		validation.Field(&r.Permissions, validation.Length(0, maxPermissions)),
	)
}

// ToInput: роль по умолчанию создаётся активной.
func (r CreateRoleRequest) ToInput() service.RoleInput {
	active := true
	if r.Active != nil {
		active = *r.Active
	}

	perms := r.Permissions
	if perms == nil {
		perms = []string{}
	}

	return service.RoleInput{
		Name:        r.Name,
		Value:       r.Value,
		Permissions: perms,
		Active:      active,
	}
}

type UpdateRoleRequest struct {
	Name        *string   `json:"name"`
	Value       *string   `json:"value"`
	Permissions *[]string `json:"permissions"`
	Active      *bool     `json:"active"`
}

func (r UpdateRoleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, maxRoleName)),
		validation.Field(&r.Value, validation.NilOrNotEmpty, validation.Length(1, maxRoleName)),
		validation.Field(&r.Permissions, validation.Length(0, maxPermissions)),
	)
}

func (r UpdateRoleRequest) ToPatch() service.RolePatch {
	return service.RolePatch{
		Name:        r.Name,
		Value:       r.Value,
		Permissions: r.Permissions,
		Active:      r.Active,
	}
}
