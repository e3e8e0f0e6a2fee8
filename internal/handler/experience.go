// Package handler holds the HTTP handlers of the JSON API.
//
// Handlers parse the request, call the service, and answer through
// writeJSON / writeError. They never touch the journal or the storage
// backend directly.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/sakif/cultural-expo/internal/apperror"
	"github.com/sakif/cultural-expo/internal/model"
	"github.com/sakif/cultural-expo/internal/service"
)

// maxBodyBytes caps JSON request bodies. Imports of a large journal use
// maxImportBytes instead.
const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 32 << 20
)

// ExperienceHandler serves the experience CRUD and query routes.
type ExperienceHandler struct {
	svc *service.ExperienceService
	log zerolog.Logger
}

// NewExperienceHandler creates a new ExperienceHandler.
func NewExperienceHandler(svc *service.ExperienceService, log zerolog.Logger) *ExperienceHandler {
	return &ExperienceHandler{svc: svc, log: log}
}

// HandleList returns experiences, optionally filtered.
//
// HTTP: GET /api/experiences?date=2024-01-15
//
//	GET /api/experiences?year=2024&month=1      (month is 1..12 here)
//	GET /api/experiences?country=jp
//
// date takes precedence over year/month; country combines with either.
func (h *ExperienceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	records, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, records)
}

func parseListFilter(r *http.Request) (service.ListFilter, error) {
	q := r.URL.Query()
	filter := service.ListFilter{
		Date:      q.Get("date"),
		CountryID: q.Get("country"),
	}

	yearStr, monthStr := q.Get("year"), q.Get("month")
	if yearStr == "" && monthStr == "" {
		return filter, nil
	}
	if yearStr == "" || monthStr == "" {
		return filter, apperror.ValidationFailed("month", "year and month must be given together")
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return filter, apperror.ValidationFailed("year", "year must be a number")
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return filter, apperror.ValidationFailed("month", "month must be a number from 1 to 12")
	}

	filter.Year = year
	filter.Month = month - 1
	filter.HasMonth = true
	return filter, nil
}

// HandleGet returns one experience.
//
// HTTP: GET /api/experiences/{id}
func (h *ExperienceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}

// HandleFindForCountryOnDate returns the experience logged for a country on
// a date.
//
// HTTP: GET /api/countries/{countryID}/experiences/{date}
func (h *ExperienceHandler) HandleFindForCountryOnDate(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.FindForCountryOnDate(r.Context(), chi.URLParam(r, "countryID"), chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}

// HandleCreate stores a new experience.
//
// HTTP: POST /api/experiences
// REQUEST BODY: an ExperienceRecord without id or timestamps.
// RESPONSE: 201 Created with the stored record.
func (h *ExperienceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var rec model.ExperienceRecord
	if err := decodeJSON(w, r, &rec); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.svc.Create(r.Context(), rec)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/experiences/"+created.ID)
	writeJSON(w, r, http.StatusCreated, created)
}

// HandleUpdate replaces an experience wholesale.
//
// HTTP: PUT /api/experiences/{id}
// The id in the body, if any, is ignored in favour of the path.
func (h *ExperienceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var rec model.ExperienceRecord
	if err := decodeJSON(w, r, &rec); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), rec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

// HandleDelete removes an experience.
//
// HTTP: DELETE /api/experiences/{id}
// RESPONSE: 204 No Content.
func (h *ExperienceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
