package models

import (
	"time"

	domain "github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/permissions"
)

// TokenResponse: пара токенов после входа или обновления.
// Сроки: Unix-время UTC.
type TokenResponse struct {
	AccessToken      string        `json:"access_token"`
	AccessExpiresAt  int64         `json:"access_expires_at"`
	RefreshToken     string        `json:"refresh_token"`
	RefreshExpiresAt int64         `json:"refresh_expires_at"`
	User             *UserResponse `json:"user,omitempty"`
}

func TokenFromDomain(p *domain.TokenPair, u *domain.User) TokenResponse {
	out := TokenResponse{
		AccessToken:      p.AccessToken,
		AccessExpiresAt:  p.AccessExpiresAt.Unix(),
		RefreshToken:     p.RefreshToken,
		RefreshExpiresAt: p.RefreshExpiresAt.Unix(),
	}
	if u != nil {
		user := UserFromDomain(u)
		out.User = &user
	}
	return out
}

// UserResponse: публичное представление пользователя (без хэша пароля).
type UserResponse struct {
	ID              string     `json:"id"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	MiddleName      string     `json:"middle_name,omitempty"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone,omitempty"`
	RoleID          string     `json:"role_id"`
	ProfileImg      string     `json:"profile_img,omitempty"`
	IsEmailVerified bool       `json:"is_email_verified"`
	IsPhoneVerified bool       `json:"is_phone_verified"`
	Active          bool       `json:"active"`
	FirstTimeLogin  bool       `json:"first_time_login"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func UserFromDomain(u *domain.User) UserResponse {
	return UserResponse{
		ID:              u.ID.String(),
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		MiddleName:      u.MiddleName,
		Email:           u.Email,
		Phone:           u.Phone,
		RoleID:          u.RoleID.String(),
		ProfileImg:      u.ProfileImg,
		IsEmailVerified: u.IsEmailVerified,
		IsPhoneVerified: u.IsPhoneVerified,
		Active:          u.Active,
		FirstTimeLogin:  u.FirstTimeLogin,
		LastLogin:       u.LastLogin,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func UsersFromDomain(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, UserFromDomain(&users[i]))
	}
	return out
}

type RoleResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Value       string    `json:"value"`
	Active      bool      `json:"active"`
	Permissions []string  `json:"permissions"`
	Protected   bool      `json:"protected"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func RoleFromDomain(r *domain.Role) RoleResponse {
	perms := r.Permissions
	if perms == nil {
		perms = []string{}
	}

	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Value:       r.Value,
		Active:      r.Active,
		Permissions: perms,
		Protected:   r.Protected,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func RolesFromDomain(roles []domain.Role) []RoleResponse {
	out := make([]RoleResponse, 0, len(roles))
	for i := range roles {
		out = append(out, RoleFromDomain(&roles[i]))
	}
	return out
}

// LookupItem: элемент выпадающего списка.
type LookupItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func RoleLookups(roles []domain.Role) []LookupItem {
	out := make([]LookupItem, 0, len(roles))
	for _, r := range roles {
		out = append(out, LookupItem{ID: r.ID.String(), Name: r.Name})
	}
	return out
}

func UserLookups(users []domain.User) []LookupItem {
	out := make([]LookupItem, 0, len(users))
	for i := range users {
		out = append(out, LookupItem{ID: users[i].ID.String(), Name: users[i].FullName()})
	}
	return out
}

type UploadResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Category  string    `json:"category"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

func UploadFromDomain(u *domain.Upload) UploadResponse {
	return UploadResponse{
		ID:        u.ID.String(),
		URL:       u.URL,
		Category:  u.Category,
		OwnerID:   u.OwnerID.String(),
		CreatedAt: u.CreatedAt,
	}
}

// ListResponse: страница выдачи.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// PermissionModule: модуль каталога и его права.
type PermissionModule struct {
	Module      string   `json:"module"`
	Permissions []string `json:"permissions"`
}

// PermissionCatalog: каталог прав для редактора ролей.
func PermissionCatalog() []PermissionModule {
	modules := permissions.Modules()
	out := make([]PermissionModule, 0, len(modules))
	for _, m := range modules {
		out = append(out, PermissionModule{Module: m, Permissions: permissions.Children(m)})
	}
	return out
}

// MessageResponse: ответ без данных.
type MessageResponse struct {
	Message string `json:"message"`
}
