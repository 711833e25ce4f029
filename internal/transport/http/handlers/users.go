package handlers

import (
	"net/http"

	"github.com/google/uuid"

	domain "github.com/pribylovaa/go-access-service/internal/models"
	apierrors "github.com/pribylovaa/go-access-service/internal/transport/http/errors"
	"github.com/pribylovaa/go-access-service/internal/transport/http/models"
)

func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in models.CreateUserRequest
	if err := decode(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.CreateUser(r.Context(), in.ToInput())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.UserFromDomain(user))
}

// ListUsers поддерживает параметры search, role_id, active, limit, offset.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	active, err := queryBool(r, "active")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	filter := domain.UserFilter{
		Active: active,
		Search: r.URL.Query().Get("search"),
		Page:   page,
	}

	if raw := r.URL.Query().Get("role_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
			return
		}
		filter.RoleID = id
	}

	users, err := h.svc.ListUsers(r.Context(), filter)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ListResponse[models.UserResponse]{
		Items:  models.UsersFromDomain(users),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

// GetUser: владелец видит себя, остальным нужен USER_MANAGEMENT.READ_USER.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	ac, err := caller(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	id, err := pathUUID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.GetUser(r.Context(), ac, id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.UserFromDomain(user))
}

func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in models.UpdateUserRequest
	if err := decode(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	patch, err := in.ToPatch()
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.UpdateUser(r.Context(), id, patch)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.UserFromDomain(user))
}

func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.DeleteUser(r.Context(), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LookupUsers: id и полное имя для выпадающих списков; параметр active.
func (h *Handlers) LookupUsers(w http.ResponseWriter, r *http.Request) {
	ac, err := caller(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	active, err := queryBool(r, "active")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	users, err := h.svc.LookupUsers(r.Context(), ac, active)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.UserLookups(users))
}
