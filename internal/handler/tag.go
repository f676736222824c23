package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fitlog/internal/model"
	"github.com/sakif/fitlog/internal/service"
)

// TagHandler serves tags and the labels that place them on photos.
type TagHandler struct {
	service *service.TagService
	logger  *slog.Logger
}

func NewTagHandler(svc *service.TagService, logger *slog.Logger) *TagHandler {
	return &TagHandler{service: svc, logger: logger}
}

func tagID(t model.Tag) string          { return t.ID }
func labelID(l model.PhotoLabel) string { return l.ID }

// ===== TAGS =====

// HTTP: GET /tags
func (h *TagHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	tags, err := h.service.List(r.Context(), userID)
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities("tag", tags, tagID))
}

// HTTP: POST /tags
// BODY: {"tag": "Fruit", "parent_id": null, "description": "..."}
func (h *TagHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	patch, err := decodeTagPatch(r)
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := h.service.Create(r.Context(), userID, patch)
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entities("tag", []model.Tag{*t}, tagID))
}

// HTTP: GET /tags/{id}
func (h *TagHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	t, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities("tag", []model.Tag{*t}, tagID))
}

// HTTP: PUT /tags/{id}
func (h *TagHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	patch, err := decodeTagPatch(r)
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), patch)
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities("tag", []model.Tag{*t}, tagID))
}

// HTTP: DELETE /tags/{id}
func (h *TagHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted("tag", id))
}

// ===== LABELS =====

// HTTP: GET /photos/{id}/labels
func (h *TagHandler) HandleListLabels(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	labels, err := h.service.Labels(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities("label", labels, labelID))
}

// HTTP: POST /photos/{id}/labels
// BODY: {"tag_id": "...", "bounding_box": {"left": 0.1, "top": 0.2, "width": 0.3, "height": 0.4}}
func (h *TagHandler) HandleCreateLabel(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	patch, err := decodeLabelPatch(r)
	if err != nil {
		writeError(w, err)
		return
	}
	l, err := h.service.CreateLabel(r.Context(), userID, chi.URLParam(r, "id"), patch)
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entities("label", []model.PhotoLabel{*l}, labelID))
}

// HandleDetect labels a photo automatically.
//
// HTTP: POST /photos/{id}/labels/detect
func (h *TagHandler) HandleDetect(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	labels, err := h.service.Detect(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entities("label", labels, labelID))
}

// HTTP: PUT /labels/{id}
func (h *TagHandler) HandleUpdateLabel(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	patch, err := decodeLabelPatch(r)
	if err != nil {
		writeError(w, err)
		return
	}
	l, err := h.service.UpdateLabel(r.Context(), userID, chi.URLParam(r, "id"), patch)
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities("label", []model.PhotoLabel{*l}, labelID))
}

// HTTP: DELETE /labels/{id}
func (h *TagHandler) HandleDeleteLabel(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteLabel(r.Context(), userID, id); err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted("label", id))
}

func decodeTagPatch(r *http.Request) (model.TagPatch, error) {
	raw, err := readFields(r)
	if err != nil {
		return model.TagPatch{}, err
	}
	return model.DecodeTagPatch(raw)
}

func decodeLabelPatch(r *http.Request) (model.LabelPatch, error) {
	raw, err := readFields(r)
	if err != nil {
		return model.LabelPatch{}, err
	}
	return model.DecodeLabelPatch(raw)
}
