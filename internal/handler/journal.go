package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sakif/cultural-expo/internal/apperror"
	"github.com/sakif/cultural-expo/internal/model"
	"github.com/sakif/cultural-expo/internal/service"
)

// JournalHandler serves the whole-journal routes: statistics, preferences,
// export, import, and clear.
type JournalHandler struct {
	svc *service.ExperienceService
	log zerolog.Logger
	now func() time.Time
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(svc *service.ExperienceService, log zerolog.Logger) *JournalHandler {
	return &JournalHandler{svc: svc, log: log, now: time.Now}
}

// HandleStatistics returns the statistics snapshot.
//
// HTTP: GET /api/statistics
func (h *JournalHandler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.svc.Statistics(r.Context()))
}

// HandleGetPreferences returns the stored preferences or the defaults.
//
// HTTP: GET /api/preferences
func (h *JournalHandler) HandleGetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.svc.Preferences(r.Context()))
}

// HandlePutPreferences replaces the preferences.
//
// HTTP: PUT /api/preferences
func (h *JournalHandler) HandlePutPreferences(w http.ResponseWriter, r *http.Request) {
	var prefs model.UserPreferences
	if err := decodeJSON(w, r, &prefs); err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := h.svc.UpdatePreferences(r.Context(), prefs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, saved)
}

// HandleExport downloads the export document as an attachment named
// cultural-expo-backup-YYYY-MM-DD.json.
//
// HTTP: GET /api/export
func (h *JournalHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	raw, err := h.svc.Export(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	name := fmt.Sprintf("cultural-expo-backup-%s.json", h.now().Format(model.DateLayout))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(raw); err != nil {
		h.log.Warn().Err(err).Msg("export download interrupted")
	}
}

// HandleImport replaces the journal with an uploaded export document.
//
// HTTP: POST /api/import
// RESPONSE: 204 No Content; 400 when the document is rejected, in which case
// nothing has changed.
func (h *JournalHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, r, apperror.ValidationFailed("document", "import document is too large or unreadable"))
		return
	}

	if err := h.svc.Import(r.Context(), blob); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleClear erases experiences, preferences, and earned achievements.
//
// HTTP: DELETE /api/data
func (h *JournalHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	h.svc.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// HandleHealth reports liveness.
//
// HTTP: GET /healthz
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
