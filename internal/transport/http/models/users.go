package models

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-access-service/internal/service"
)

type CreateUserRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	MiddleName string `json:"middle_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	RoleID     string `json:"role_id"`
}

func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, maxName)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, maxName)),
		validation.Field(&r.MiddleName, validation.Length(0, maxName)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, maxEmail), is.Email),
		validation.Field(&r.Phone, validation.Length(0, maxPhone)),
		validation.Field(&r.RoleID, validation.Required, is.UUID),
	)
}

// ToInput вызывается после Validate, RoleID уже проверен.
func (r CreateUserRequest) ToInput() service.CreateUserInput {
	return service.CreateUserInput{
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		MiddleName: r.MiddleName,
		Email:      r.Email,
		Phone:      r.Phone,
		RoleID:     uuid.MustParse(r.RoleID),
	}
}

type UpdateUserRequest struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	MiddleName *string `json:"middle_name"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	RoleID     *string `json:"role_id"`
	Active     *bool   `json:"active"`
}

func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.NilOrNotEmpty, validation.Length(1, maxName)),
		validation.Field(&r.LastName, validation.NilOrNotEmpty, validation.Length(1, maxName)),
		validation.Field(&r.MiddleName, validation.Length(0, maxName)),
		validation.Field(&r.Email, validation.NilOrNotEmpty, validation.Length(3, maxEmail), is.Email),
		validation.Field(&r.Phone, validation.Length(0, maxPhone)),
		validation.Field(&r.RoleID, validation.NilOrNotEmpty, is.UUID),
	)
}

func (r UpdateUserRequest) ToPatch() (service.UserPatch, error) {
	patch := service.UserPatch{
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		MiddleName: r.MiddleName,
		Email:      r.Email,
		Phone:      r.Phone,
		Active:     r.Active,
	}

	if r.RoleID != nil {
		id, err := uuid.Parse(*r.RoleID)
		if err != nil {
			return service.UserPatch{}, fmt.Errorf("role_id: %w", service.ErrValidation)
		}
		patch.RoleID = &id
	}

	return patch, nil
}
