package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/model"
	"github.com/sakif/fitlog/internal/service"
)

// FoodHandler serves the food log, its search, the calorie summary and
// the nutrition lookup.
type FoodHandler struct {
	service *service.FoodService
	logger  *slog.Logger
}

func NewFoodHandler(svc *service.FoodService, logger *slog.Logger) *FoodHandler {
	return &FoodHandler{service: svc, logger: logger}
}

func foodID(f model.Food) string { return f.ID }

// HandleList returns the entries of one day, or all of them.
//
// HTTP: GET /food?date=YYYY-MM-DD
func (h *FoodHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	foods, err := h.service.List(r.Context(), userID, r.URL.Query().Get("date"))
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities("food", foods, foodID))
}

// HandleCreate logs a new entry.
//
// HTTP: POST /food
// BODY: {"name": "Egg", "quantity": "1 large", "calories": 70, "photo_ids": ["..."]}
func (h *FoodHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	patch, err := decodeFoodPatch(r)
	if err != nil {
		writeError(w, err)
		return
	}
	f, err := h.service.Create(r.Context(), userID, patch)
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entities("food", []model.Food{*f}, foodID))
}

// HandleGet returns the entry and the rest of its group.
//
// HTTP: GET /food/{id}
func (h *FoodHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	group, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities("food", group, foodID))
}

// HandleUpdate merges the body into the entry. Absent fields are kept and
// null clears a field.
//
// HTTP: PUT /food/{id}
func (h *FoodHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	patch, err := decodeFoodPatch(r)
	if err != nil {
		writeError(w, err)
		return
	}
	f, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), patch)
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities("food", []model.Food{*f}, foodID))
}

// HandleDelete removes one entry and its children.
//
// HTTP: DELETE /food/{id}
func (h *FoodHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, []string{chi.URLParam(r, "id")})
}

// HandleBulkDelete removes a list of entries in one transaction.
//
// HTTP: DELETE /food
// BODY: [{"id": "..."}, {"id": "..."}]
func (h *FoodHandler) HandleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var body []struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	ids := make([]string, len(body))
	for i, b := range body {
		ids[i] = b.ID
	}
	h.delete(w, r, ids)
}

func (h *FoodHandler) delete(w http.ResponseWriter, r *http.Request, ids []string) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	removed, err := h.service.Delete(r.Context(), userID, ids)
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted("food", removed...))
}

// HandleSearch returns the caller's most logged foods matching q.
//
// HTTP: GET /food/search?q=egg
func (h *FoodHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	if !query.Has("q") {
		serverError(h.logger, w, r, apperror.ValidationFailed("q", "a search query is required"))
		return
	}
	results, err := h.service.Search(r.Context(), userID, query.Get("q"))
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// HandleSummary returns the calorie history of the last week, its trend
// and the caller's goal.
//
// HTTP: GET /food/summary?date=YYYY-MM-DD
func (h *FoodHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summary(r.Context(), userID, r.URL.Query().Get("date"))
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleNutrition averages the nutrition values of past entries.
//
// HTTP: GET /nutrition/search?name=rice&units=cup
func (h *FoodHandler) HandleNutrition(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	n, err := h.service.Nutrition(r.Context(), userID, q.Get("name"), q.Get("units"))
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	body := entities("food", n.Foods, foodID)
	body["mean"] = n.Mean
	body["count"] = n.Count
	writeJSON(w, http.StatusOK, body)
}

// decodeFoodPatch reads the body. user_id and id are never decoded, so a
// body cannot move an entry to another owner.
func decodeFoodPatch(r *http.Request) (model.FoodPatch, error) {
	raw, err := readFields(r)
	if err != nil {
		return model.FoodPatch{}, err
	}
	return model.DecodeFoodPatch(raw)
}
