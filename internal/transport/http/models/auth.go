// Package models: входные/выходные модели REST API и их валидация.
// Валидация здесь проверяет только форму запроса; бизнес-правила
// (политика пароля, формат телефона, уникальность) остаются за service.
package models

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-access-service/internal/service"
)

// Ограничения длины строковых полей.
const (
	maxName     = 100
	maxEmail    = 254
	maxPhone    = 32
	maxPassword = 128
	maxToken    = 4096
)

type RegisterRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	MiddleName string `json:"middle_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, maxName)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, maxName)),
		validation.Field(&r.MiddleName, validation.Length(0, maxName)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, maxEmail), is.Email),
		validation.Field(&r.Phone, validation.Length(0, maxPhone)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, maxPassword)),
	)
}

func (r RegisterRequest) ToInput() service.RegisterInput {
	return service.RegisterInput{
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		MiddleName: r.MiddleName,
		Email:      r.Email,
		Phone:      r.Phone,
		Password:   r.Password,
	}
}

// TokenRequest: запрос с одноразовым токеном из письма.
// UserID необязателен: если передан, токен должен принадлежать ему.
type TokenRequest struct {
	Token  string `json:"token"`
	UserID string `json:"user_id,omitempty"`
}

func (r TokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required, validation.Length(1, maxToken)),
		validation.Field(&r.UserID, is.UUID),
	)
}

// ExpectedUserID: владелец токена из запроса или uuid.Nil.
func (r TokenRequest) ExpectedUserID() uuid.UUID {
	id, err := uuid.Parse(r.UserID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

type ResendRegistrationRequest struct {
	UserID string `json:"user_id"`
}

func (r ResendRegistrationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required, is.UUID),
	)
}

// LoginRequest: вход по e-mail или телефону.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required, validation.Length(1, maxEmail)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, maxPassword)),
	)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required, validation.Length(1, maxToken)),
	)
}

type ResetPasswordRequest struct {
	Identifier string `json:"identifier"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required, validation.Length(1, maxEmail)),
	)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required, validation.Length(1, maxPassword)),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(1, maxPassword)),
	)
}

// ProfilePatchRequest: изменяемые владельцем поля. Отсутствующее поле не меняется,
// пустой phone удаляет номер.
type ProfilePatchRequest struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	MiddleName *string `json:"middle_name"`
	Phone      *string `json:"phone"`
}

func (r ProfilePatchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.NilOrNotEmpty, validation.Length(1, maxName)),
		validation.Field(&r.LastName, validation.NilOrNotEmpty, validation.Length(1, maxName)),
		validation.Field(&r.MiddleName, validation.Length(0, maxName)),
		validation.Field(&r.Phone, validation.Length(0, maxPhone)),
	)
}

func (r ProfilePatchRequest) ToPatch() service.ProfilePatch {
	return service.ProfilePatch{
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		MiddleName: r.MiddleName,
		Phone:      r.Phone,
	}
}
