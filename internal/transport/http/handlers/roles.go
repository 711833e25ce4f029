package handlers

import (
	"net/http"

	domain "github.com/pribylovaa/go-access-service/internal/models"
	apierrors "github.com/pribylovaa/go-access-service/internal/transport/http/errors"
	"github.com/pribylovaa/go-access-service/internal/transport/http/models"
)

func (h *Handlers) CreateRole(w http.ResponseWriter, r *http.Request) {
	var in models.CreateRoleRequest
	if err := decode(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	role, err := h.svc.CreateRole(r.Context(), in.ToInput())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.RoleFromDomain(role))
}

// ListRoles поддерживает параметры search, active, limit, offset.
func (h *Handlers) ListRoles(w http.ResponseWriter, r *http.Request) {
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

	roles, err := h.svc.ListRoles(r.Context(), domain.RoleFilter{
		Active: active,
		Search: r.URL.Query().Get("search"),
		Page:   page,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ListResponse[models.RoleResponse]{
		Items:  models.RolesFromDomain(roles),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func (h *Handlers) GetRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	role, err := h.svc.GetRole(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.RoleFromDomain(role))
}

func (h *Handlers) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in models.UpdateRoleRequest
	if err := decode(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	role, err := h.svc.UpdateRole(r.Context(), id, in.ToPatch())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.RoleFromDomain(role))
}

func (h *Handlers) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.DeleteRole(r.Context(), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) LookupRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.svc.LookupRoles(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.RoleLookups(roles))
}

// Permissions отдаёт каталог прав, сгруппированный по модулям.
func (h *Handlers) Permissions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.PermissionCatalog())
}
