package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/model"
	"github.com/sakif/fitlog/internal/service"
)

// multipartMemory is how much of a multipart form is held in memory before
// parts spill to temp files.
const multipartMemory = 1 << 20

// PhotoHandler serves photo uploads, their metadata and their bytes.
type PhotoHandler struct {
	service  *service.PhotoService
	maxBytes int64
	logger   *slog.Logger
}

func NewPhotoHandler(svc *service.PhotoService, maxUploadBytes int64, logger *slog.Logger) *PhotoHandler {
	return &PhotoHandler{service: svc, maxBytes: maxUploadBytes, logger: logger}
}

func photoID(p model.Photo) string { return p.ID }

// HandleUpload stores an image.
//
// HTTP: POST /photos (multipart/form-data)
// FORM: file (required), date, time
func (h *PhotoHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	// The form overhead on top of the file is small; allow for it.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, apperror.ValidationFailed("file", "the file is too large"))
			return
		}
		writeError(w, apperror.ValidationFailed("file", "expected a multipart form with a file"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperror.ValidationFailed("file", "file is required"))
		return
	}
	defer file.Close()
	if header.Size > h.maxBytes {
		writeError(w, apperror.ValidationFailed("file", "the file is too large"))
		return
	}

	p, err := h.service.Upload(r.Context(), userID, service.Upload{
		Body: file,
		Size: header.Size,
		Date: r.FormValue("date"),
		Time: r.FormValue("time"),
	})
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entities("photo", []model.Photo{*p}, photoID))
}

// HandleList returns the caller's photos, optionally for one date.
//
// HTTP: GET /photos?date=YYYY-MM-DD
func (h *PhotoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	photos, err := h.service.List(r.Context(), userID, r.URL.Query().Get("date"))
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities("photo", photos, photoID))
}

// HandleGet returns photo metadata.
//
// HTTP: GET /photos/{id}
func (h *PhotoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities("photo", []model.Photo{*p}, photoID))
}

// HandleData streams the image bytes.
//
// HTTP: GET /photos/{id}/data
func (h *PhotoHandler) HandleData(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	p, rc, err := h.service.Open(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", p.ContentType)
	if p.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(p.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("streaming photo", slog.String("id", p.ID), slog.String("error", err.Error()))
	}
}

// HandleUpdate changes the date, time or food entry of a photo.
//
// HTTP: PUT /photos/{id}
func (h *PhotoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	raw, err := readFields(r)
	if err != nil {
		writeError(w, err)
		return
	}
	patch, err := model.DecodePhotoPatch(raw)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), patch)
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities("photo", []model.Photo{*p}, photoID))
}

// HandleDelete removes a photo, its labels and its bytes.
//
// HTTP: DELETE /photos/{id}
func (h *PhotoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted("photo", id))
}
