// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Journal (Data layer)     → reads/writes the experience collection
//
// The journal store never returns errors and treats an update of an unknown
// id as a no-op. This layer turns those outcomes into apperror values
// ("not found", "invalid date", "quota exceeded") for API and CLI callers.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sakif/cultural-expo/internal/apperror"
	"github.com/sakif/cultural-expo/internal/journal"
	"github.com/sakif/cultural-expo/internal/model"
)

// Validation constants.
const (
	MaxItemsPerCategory = 50
	MaxNameLength       = 200
	MaxNotesLength      = 5000
	MinMovieYear        = 1888
)

// ListFilter narrows List. Zero values mean "no filter".
// Month is 0-based (January = 0) and only applies when HasMonth is set.
type ListFilter struct {
	Date      string
	Year      int
	Month     int
	HasMonth  bool
	CountryID string
}

// ExperienceService handles business logic for journal entries.
type ExperienceService struct {
	store *journal.Store
	log   zerolog.Logger
}

// NewExperienceService creates a new ExperienceService.
func NewExperienceService(store *journal.Store, log zerolog.Logger) *ExperienceService {
	return &ExperienceService{
		store: store,
		log:   log.With().Str("component", "experience_service").Logger(),
	}
}

// Create validates rec and stores it as a new record. Any ID or timestamps
// on rec are ignored.
func (s *ExperienceService) Create(ctx context.Context, rec model.ExperienceRecord) (*model.ExperienceRecord, error) {
	if err := validateRecord(&rec); err != nil {
		return nil, err
	}
	rec.ID = ""

	ctx, failure := journal.TrackFailure(ctx)
	id, ok := s.store.Save(ctx, rec)
	if !ok {
		return nil, storageError("save experience", failure())
	}

	created := s.store.GetByID(ctx, id)
	if created == nil {
		return nil, apperror.StorageFailed("read back experience")
	}
	return created, nil
}

// Get returns the record with the given id.
func (s *ExperienceService) Get(ctx context.Context, id string) (*model.ExperienceRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "experience ID is required")
	}

	rec := s.store.GetByID(ctx, id)
	if rec == nil {
		return nil, apperror.NotFound("experience", id)
	}
	return rec, nil
}

// List returns the records matching filter, in stored order.
func (s *ExperienceService) List(ctx context.Context, filter ListFilter) ([]model.ExperienceRecord, error) {
	var records []model.ExperienceRecord

	switch {
	case filter.Date != "":
		if err := validateDate(filter.Date); err != nil {
			return nil, err
		}
		records = s.store.GetByDate(ctx, filter.Date)
	case filter.HasMonth:
		if filter.Month < 0 || filter.Month > 11 {
			return nil, apperror.ValidationFailed("month", "month must be between 0 and 11")
		}
		if filter.Year < 1 || filter.Year > 9999 {
			return nil, apperror.ValidationFailed("year", "year must be between 1 and 9999")
		}
		records = s.store.GetByMonth(ctx, filter.Year, filter.Month)
	default:
		records = s.store.GetAll(ctx)
	}

	if filter.CountryID == "" {
		return records, nil
	}
	out := make([]model.ExperienceRecord, 0, len(records))
	for _, r := range records {
		if r.Country.ID == filter.CountryID {
			out = append(out, r)
		}
	}
	return out, nil
}

// FindForCountryOnDate returns the first record for countryID on date.
func (s *ExperienceService) FindForCountryOnDate(ctx context.Context, countryID, date string) (*model.ExperienceRecord, error) {
	countryID = strings.TrimSpace(countryID)
	if countryID == "" {
		return nil, apperror.ValidationFailed("country", "country ID is required")
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}

	rec := s.store.GetForCountryOnDate(ctx, countryID, date)
	if rec == nil {
		return nil, apperror.NotFound("experience", countryID+" on "+date)
	}
	return rec, nil
}

// Update replaces the record with the given id by rec.
//
// Unlike the store, which ignores updates of unknown ids, Update reports
// apperror.ErrNotFound so the caller learns that nothing was saved.
func (s *ExperienceService) Update(ctx context.Context, id string, rec model.ExperienceRecord) (*model.ExperienceRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "experience ID is required")
	}
	if err := validateRecord(&rec); err != nil {
		return nil, err
	}

	if s.store.GetByID(ctx, id) == nil {
		return nil, apperror.NotFound("experience", id)
	}

	rec.ID = id
	ctx, failure := journal.TrackFailure(ctx)
	if _, ok := s.store.Save(ctx, rec); !ok {
		return nil, storageError("update experience", failure())
	}

	updated := s.store.GetByID(ctx, id)
	if updated == nil {
		// Deleted between the save and the read.
		return nil, apperror.NotFound("experience", id)
	}
	return updated, nil
}

// Delete removes the record with the given id.
func (s *ExperienceService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "experience ID is required")
	}
	if s.store.GetByID(ctx, id) == nil {
		return apperror.NotFound("experience", id)
	}
	ctx, failure := journal.TrackFailure(ctx)
	if !s.store.DeleteByID(ctx, id) {
		return storageError("delete experience", failure())
	}
	return nil
}

// Statistics returns the current statistics snapshot.
func (s *ExperienceService) Statistics(ctx context.Context) model.Statistics {
	return s.store.Statistics(ctx)
}

// Export returns the export document for the whole journal.
func (s *ExperienceService) Export(ctx context.Context) ([]byte, error) {
	raw, ok := s.store.ExportAll(ctx)
	if !ok {
		return nil, apperror.StorageFailed("export journal")
	}
	return raw, nil
}

// Import replaces the journal with the content of an export document.
func (s *ExperienceService) Import(ctx context.Context, blob []byte) error {
	if len(blob) == 0 {
		return apperror.ValidationFailed("document", "import document is empty")
	}
	ctx, failure := journal.TrackFailure(ctx)
	if !s.store.ImportAll(ctx, blob) {
		if err := failure(); err != nil {
			return storageError("import journal", err)
		}
		return apperror.ValidationFailed("document",
			"import rejected: expected an export document with an \"experiences\" array")
	}
	return nil
}

// Clear erases the journal.
func (s *ExperienceService) Clear(ctx context.Context) {
	s.store.ClearAll(ctx)
	s.log.Warn().Msg("journal cleared on request")
}

// storageError turns the failure recorded by the store into an apperror.
// A quota overflow keeps its own error so the caller can tell "full" from
// "broken".
func storageError(op string, cause error) error {
	var appErr *apperror.AppError
	if errors.Is(cause, apperror.ErrQuotaExceeded) && errors.As(cause, &appErr) {
		return appErr
	}
	return apperror.StorageFailed(op)
}

// =========================================================================
// VALIDATION
// =========================================================================

func validateDate(date string) error {
	if date == "" {
		return apperror.ValidationFailed("date", "date is required")
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return apperror.ValidationFailed("date", "date must be formatted YYYY-MM-DD")
	}
	return nil
}

func validateRating(field string, rating int) error {
	if rating < 0 || rating > model.MaxRating {
		return apperror.ValidationFailed(field, fmt.Sprintf("rating must be between 0 and %d", model.MaxRating))
	}
	return nil
}

func validateText(field, value string, max int) error {
	if len(value) > max {
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be %d characters or less", field, max))
	}
	return nil
}

// validateName trims *name in place and checks it.
func validateName(field string, name *string) error {
	*name = strings.TrimSpace(*name)
	if *name == "" {
		return apperror.ValidationFailed(field, field+" is required")
	}
	return validateText(field, *name, MaxNameLength)
}

// validateRecord checks rec and trims its text fields in place.
func validateRecord(rec *model.ExperienceRecord) error {
	rec.Date = strings.TrimSpace(rec.Date)
	if err := validateDate(rec.Date); err != nil {
		return err
	}

	rec.Country.ID = strings.TrimSpace(rec.Country.ID)
	if rec.Country.ID == "" {
		return apperror.ValidationFailed("country.id", "country is required")
	}
	if err := validateName("country.name", &rec.Country.Name); err != nil {
		return err
	}

	if len(rec.Dishes) > MaxItemsPerCategory ||
		len(rec.Drinks) > MaxItemsPerCategory ||
		len(rec.Movies) > MaxItemsPerCategory {
		return apperror.ValidationFailed("items",
			fmt.Sprintf("at most %d dishes, drinks, or movies per experience", MaxItemsPerCategory))
	}

	for i := range rec.Dishes {
		d := &rec.Dishes[i]
		if err := validateName(fmt.Sprintf("dishes[%d].name", i), &d.Name); err != nil {
			return err
		}
		if err := validateRating(fmt.Sprintf("dishes[%d].rating", i), d.Rating); err != nil {
			return err
		}
		if err := validateText(fmt.Sprintf("dishes[%d].notes", i), d.Notes, MaxNotesLength); err != nil {
			return err
		}
	}
	for i := range rec.Drinks {
		d := &rec.Drinks[i]
		if err := validateName(fmt.Sprintf("drinks[%d].name", i), &d.Name); err != nil {
			return err
		}
		if err := validateRating(fmt.Sprintf("drinks[%d].rating", i), d.Rating); err != nil {
			return err
		}
		if err := validateText(fmt.Sprintf("drinks[%d].notes", i), d.Notes, MaxNotesLength); err != nil {
			return err
		}
	}
	for i := range rec.Movies {
		m := &rec.Movies[i]
		if err := validateName(fmt.Sprintf("movies[%d].name", i), &m.Name); err != nil {
			return err
		}
		if err := validateRating(fmt.Sprintf("movies[%d].rating", i), m.Rating); err != nil {
			return err
		}
		if err := validateText(fmt.Sprintf("movies[%d].notes", i), m.Notes, MaxNotesLength); err != nil {
			return err
		}
		if m.Year != 0 && m.Year < MinMovieYear {
			return apperror.ValidationFailed(fmt.Sprintf("movies[%d].year", i),
				fmt.Sprintf("year must be %d or later", MinMovieYear))
		}
	}

	return validateText("overall_notes", rec.OverallNotes, MaxNotesLength)
}
