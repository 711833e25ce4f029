package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-access-service/internal/service"
	apierrors "github.com/pribylovaa/go-access-service/internal/transport/http/errors"
	"github.com/pribylovaa/go-access-service/internal/transport/http/middleware"
	"github.com/pribylovaa/go-access-service/internal/transport/http/models"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterRequest
	if err := decode(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.Register(r.Context(), in.ToInput())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.UserFromDomain(user))
}

func (h *Handlers) VerifyRegistration(w http.ResponseWriter, r *http.Request) {
	var in models.TokenRequest
	if err := decode(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.VerifyRegistration(r.Context(), in.Token, in.ExpectedUserID())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.UserFromDomain(user))
}

func (h *Handlers) ResendRegistration(w http.ResponseWriter, r *http.Request) {
	var in models.ResendRegistrationRequest
	if err := decode(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.ResendRegistration(r.Context(), uuid.MustParse(in.UserID)); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, models.MessageResponse{Message: "activation email sent"})
}

// Login не различает для клиента "нет пользователя" и "неверный пароль".
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := decode(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	pair, user, err := h.svc.Login(r.Context(), in.Identifier, in.Password)
	if err != nil {
		if isNotFound(err) {
			err = service.ErrInvalidCredentials
		}
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.TokenFromDomain(pair, user))
}

// Logout всегда отвечает 202: исход завершения сессии клиенту не сообщается.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.svc.Logout(r.Context(), middleware.BearerToken(r))

	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var in models.RefreshRequest
	if err := decode(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	pair, err := h.svc.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.TokenFromDomain(pair, nil))
}

// ResetPassword отвечает 202 и для неизвестного идентификатора.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in models.ResetPasswordRequest
	if err := decode(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.ResetPassword(r.Context(), in.Identifier); err != nil && !isNotFound(err) {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, models.MessageResponse{Message: "if the account exists, a temporary password was sent"})
}

func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ac, err := caller(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in models.ChangePasswordRequest
	if err := decode(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), ac.UserID(), in.CurrentPassword, in.NewPassword); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
