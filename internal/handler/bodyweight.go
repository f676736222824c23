package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fitlog/internal/model"
	"github.com/sakif/fitlog/internal/service"
)

// BodyweightHandler serves weigh-ins.
type BodyweightHandler struct {
	service *service.BodyweightService
	logger  *slog.Logger
}

func NewBodyweightHandler(svc *service.BodyweightService, logger *slog.Logger) *BodyweightHandler {
	return &BodyweightHandler{service: svc, logger: logger}
}

func bodyweightID(b model.Bodyweight) string { return b.ID }

// HTTP: GET /bodyweight?date=YYYY-MM-DD
func (h *BodyweightHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	weights, err := h.service.List(r.Context(), userID, r.URL.Query().Get("date"))
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities("bodyweight", weights, bodyweightID))
}

// HTTP: POST /bodyweight
// BODY: {"bodyweight": 72.5, "date": "2024-05-07", "time": "07:00"}
func (h *BodyweightHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	patch, err := decodeBodyweightPatch(r)
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := h.service.Create(r.Context(), userID, patch)
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entities("bodyweight", []model.Bodyweight{*b}, bodyweightID))
}

// HTTP: GET /bodyweight/{id}
func (h *BodyweightHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	b, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities("bodyweight", []model.Bodyweight{*b}, bodyweightID))
}

// HTTP: PUT /bodyweight/{id}
func (h *BodyweightHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	patch, err := decodeBodyweightPatch(r)
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), patch)
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities("bodyweight", []model.Bodyweight{*b}, bodyweightID))
}

// HTTP: DELETE /bodyweight/{id}
func (h *BodyweightHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted("bodyweight", id))
}

func decodeBodyweightPatch(r *http.Request) (model.BodyweightPatch, error) {
	raw, err := readFields(r)
	if err != nil {
		return model.BodyweightPatch{}, err
	}
	return model.DecodeBodyweightPatch(raw)
}
