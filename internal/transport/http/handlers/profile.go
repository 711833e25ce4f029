package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/go-access-service/internal/transport/http/errors"
	"github.com/pribylovaa/go-access-service/internal/transport/http/models"
)

func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	ac, err := caller(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.Profile(r.Context(), ac.UserID())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.UserFromDomain(user))
}

func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ac, err := caller(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in models.ProfilePatchRequest
	if err := decode(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), ac.UserID(), in.ToPatch())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.UserFromDomain(user))
}

// RequestDeleteProfile начинает удаление и отправляет письмо со ссылкой подтверждения.
func (h *Handlers) RequestDeleteProfile(w http.ResponseWriter, r *http.Request) {
	ac, err := caller(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.RequestDeleteProfile(r.Context(), ac.UserID()); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, models.MessageResponse{Message: "confirmation email sent"})
}

func (h *Handlers) VerifyDeleteProfile(w http.ResponseWriter, r *http.Request) {
	var in models.TokenRequest
	if err := decode(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.VerifyDeleteProfile(r.Context(), in.Token); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
