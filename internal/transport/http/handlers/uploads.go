package handlers

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-access-service/internal/service"
	"github.com/pribylovaa/go-access-service/internal/storage"
	apierrors "github.com/pribylovaa/go-access-service/internal/transport/http/errors"
	"github.com/pribylovaa/go-access-service/internal/transport/http/models"
)

// UploadProfileImage принимает multipart/form-data с полем file.
// Необязательное поле owner_id задаёт владельца (по умолчанию: вызывающий).
func (h *Handlers) UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	ac, err := caller(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	// Запас на служебные части multipart поверх самого файла.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+64<<10)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.WriteError(w, r, fmt.Errorf("%w: file too large", service.ErrInvalidUpload))
			return
		}
		apierrors.WriteError(w, r, fmt.Errorf("%w: %w", apierrors.ErrInvalidArgument, err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	owner := ac.UserID()
	if raw := strings.TrimSpace(r.FormValue("owner_id")); raw != "" {
		owner, err = uuid.Parse(raw)
		if err != nil {
			apierrors.WriteError(w, r, fmt.Errorf("owner_id: %w", apierrors.ErrInvalidArgument))
			return
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.WriteError(w, r, fmt.Errorf("file: %w", apierrors.ErrInvalidArgument))
		return
	}
	defer file.Close()

	// Тип определяем по содержимому: заголовку клиента не доверяем.
	body := bufio.NewReader(file)
	head, _ := body.Peek(512)

	upload, err := h.svc.UploadProfileImage(r.Context(), ac, owner, storage.Object{
		Name:        header.Filename,
		ContentType: http.DetectContentType(head),
		Size:        header.Size,
		Body:        body,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.UploadFromDomain(upload))
}

func (h *Handlers) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	ac, err := caller(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	owner, err := pathUUID(r, "owner")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	uploadID, err := pathUUID(r, "uploadID")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.DeleteUpload(r.Context(), ac, owner, uploadID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) DeleteUploads(w http.ResponseWriter, r *http.Request) {
	ac, err := caller(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	owner, err := pathUUID(r, "owner")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.DeleteUploads(r.Context(), ac, owner, chi.URLParam(r, "category")); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
