package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sakif/cultural-expo/internal/apperror"
	"github.com/sakif/cultural-expo/internal/journal"
	"github.com/sakif/cultural-expo/internal/model"
	"github.com/sakif/cultural-expo/internal/repository"
	"github.com/sakif/cultural-expo/internal/repository/memory"
)

// =========================================================================
// TEST HELPERS
// =========================================================================

// newTestService wires the service to a real journal over the in-memory
// backend.
func newTestService(t *testing.T) *ExperienceService {
	t.Helper()
	return newTestServiceWith(t, memory.New())
}

func newTestServiceWith(t *testing.T, kv repository.KeyValueStore) *ExperienceService {
	t.Helper()
	store := journal.New(kv, zerolog.Nop())
	return NewExperienceService(store, zerolog.Nop())
}

func validRecord() model.ExperienceRecord {
	return model.ExperienceRecord{
		Date:    "2024-01-15",
		Country: model.Country{ID: "jp", Name: "Japan"},
		Dishes:  []model.Dish{{Name: "Ramen", Attempted: true, Rating: 5}},
		Drinks:  []model.Drink{{Name: "Sake", Attempted: true, Rating: 3, Type: "rice wine"}},
		Movies:  []model.Movie{{Name: "Tampopo", Watched: true, Rating: 4, Year: 1985}},
	}
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error matching %v, got nil", target)
	}
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreate_Success(t *testing.T) {
	svc := newTestService(t)

	rec, err := svc.Create(context.Background(), validRecord())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if rec.ID == "" {
		t.Error("expected record to have an ID")
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
	if rec.Country.Name != "Japan" {
		t.Errorf("Country.Name = %q, want %q", rec.Country.Name, "Japan")
	}
}

func TestCreate_IgnoresCallerID(t *testing.T) {
	svc := newTestService(t)

	in := validRecord()
	in.ID = "chosen-by-client"
	rec, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if rec.ID == "chosen-by-client" {
		t.Error("Create() must generate its own ID")
	}
}

func TestCreate_TrimsWhitespace(t *testing.T) {
	svc := newTestService(t)

	in := validRecord()
	in.Date = " 2024-01-15 "
	in.Country.Name = "  Japan  "
	in.Dishes[0].Name = "  Ramen "

	rec, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if rec.Date != "2024-01-15" || rec.Country.Name != "Japan" || rec.Dishes[0].Name != "Ramen" {
		t.Errorf("fields not trimmed: %+v", rec)
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.ExperienceRecord)
		field  string
	}{
		{"missing date", func(r *model.ExperienceRecord) { r.Date = "" }, "date"},
		{"bad date", func(r *model.ExperienceRecord) { r.Date = "15/01/2024" }, "date"},
		{"impossible date", func(r *model.ExperienceRecord) { r.Date = "2024-02-30" }, "date"},
		{"missing country", func(r *model.ExperienceRecord) { r.Country = model.Country{} }, "country.id"},
		{"missing country name", func(r *model.ExperienceRecord) { r.Country.Name = " " }, "country.name"},
		{"dish rating too high", func(r *model.ExperienceRecord) { r.Dishes[0].Rating = 6 }, "dishes[0].rating"},
		{"drink rating negative", func(r *model.ExperienceRecord) { r.Drinks[0].Rating = -1 }, "drinks[0].rating"},
		{"movie without name", func(r *model.ExperienceRecord) { r.Movies[0].Name = "" }, "movies[0].name"},
		{"movie before cinema", func(r *model.ExperienceRecord) { r.Movies[0].Year = 1500 }, "movies[0].year"},
		{"notes too long", func(r *model.ExperienceRecord) { r.OverallNotes = strings.Repeat("x", MaxNotesLength+1) }, "overall_notes"},
		{"too many dishes", func(r *model.ExperienceRecord) {
			r.Dishes = make([]model.Dish, MaxItemsPerCategory+1)
		}, "items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			rec := validRecord()
			tt.mutate(&rec)

			_, err := svc.Create(context.Background(), rec)
			wantErr(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.field)
			}
		})
	}
}

// brokenKV fails every write.
type brokenKV struct{ *memory.Store }

func (brokenKV) Set(context.Context, string, []byte) error { return errors.New("disk unplugged") }

func TestCreate_QuotaExceeded(t *testing.T) {
	svc := newTestServiceWith(t, repository.WithQuota(memory.New(), 10))

	_, err := svc.Create(context.Background(), validRecord())
	wantErr(t, err, apperror.ErrQuotaExceeded)
}

func TestCreate_StorageFailure(t *testing.T) {
	svc := newTestServiceWith(t, brokenKV{memory.New()})

	_, err := svc.Create(context.Background(), validRecord())
	wantErr(t, err, apperror.ErrStorage)
	if strings.Contains(err.Error(), "unplugged") {
		t.Errorf("storage error leaks backend detail: %v", err)
	}
}

// =========================================================================
// GET / LIST TESTS
// =========================================================================

func TestGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validRecord())
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	found, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}

	_, err = svc.Get(ctx, "nonexistent")
	wantErr(t, err, apperror.ErrNotFound)

	_, err = svc.Get(ctx, "  ")
	wantErr(t, err, apperror.ErrValidation)
}

func TestList_Filters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, seed := range []struct{ date, country string }{
		{"2024-01-15", "jp"},
		{"2024-01-20", "it"},
		{"2024-02-01", "jp"},
		{"2023-01-05", "jp"},
	} {
		rec := validRecord()
		rec.Date = seed.date
		rec.Country = model.Country{ID: seed.country, Name: strings.ToUpper(seed.country)}
		if _, err := svc.Create(ctx, rec); err != nil {
			t.Fatalf("setup: Create() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		filter ListFilter
		want   int
	}{
		{"all", ListFilter{}, 4},
		{"by date", ListFilter{Date: "2024-01-15"}, 1},
		{"by month", ListFilter{Year: 2024, Month: 0, HasMonth: true}, 2},
		{"by country", ListFilter{CountryID: "jp"}, 3},
		{"by month and country", ListFilter{Year: 2024, Month: 0, HasMonth: true, CountryID: "it"}, 1},
		{"empty month", ListFilter{Year: 2025, Month: 5, HasMonth: true}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("List() returned %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestList_BadFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.List(ctx, ListFilter{Date: "yesterday"})
	wantErr(t, err, apperror.ErrValidation)

	_, err = svc.List(ctx, ListFilter{Year: 2024, Month: 12, HasMonth: true})
	wantErr(t, err, apperror.ErrValidation)

	_, err = svc.List(ctx, ListFilter{Year: 0, Month: 1, HasMonth: true})
	wantErr(t, err, apperror.ErrValidation)
}

func TestFindForCountryOnDate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validRecord())
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	found, err := svc.FindForCountryOnDate(ctx, "jp", "2024-01-15")
	if err != nil {
		t.Fatalf("FindForCountryOnDate() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}

	_, err = svc.FindForCountryOnDate(ctx, "it", "2024-01-15")
	wantErr(t, err, apperror.ErrNotFound)

	_, err = svc.FindForCountryOnDate(ctx, "", "2024-01-15")
	wantErr(t, err, apperror.ErrValidation)
}

// =========================================================================
// UPDATE / DELETE TESTS
// =========================================================================

func TestUpdate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validRecord())
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	change := validRecord()
	change.OverallNotes = "second visit"
	change.Dishes = nil

	updated, err := svc.Update(ctx, created.ID, change)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.OverallNotes != "second visit" {
		t.Errorf("OverallNotes = %q, want %q", updated.OverallNotes, "second visit")
	}
	if len(updated.Dishes) != 0 {
		t.Errorf("Dishes = %v, want empty after full replacement", updated.Dishes)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt changed from %v to %v", created.CreatedAt, updated.CreatedAt)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Update(context.Background(), "999", validRecord())
	wantErr(t, err, apperror.ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validRecord())
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, err = svc.Get(ctx, created.ID)
	wantErr(t, err, apperror.ErrNotFound)

	wantErr(t, svc.Delete(ctx, created.ID), apperror.ErrNotFound)
	wantErr(t, svc.Delete(ctx, ""), apperror.ErrValidation)
}

// =========================================================================
// STATISTICS / TRANSFER / PREFERENCES TESTS
// =========================================================================

func TestStatistics(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, validRecord()); err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	st := svc.Statistics(ctx)
	if st.TotalExperiences != 1 || st.TotalDishesAttempted != 1 || st.TotalMoviesWatched != 1 {
		t.Errorf("unexpected statistics: %+v", st)
	}
}

func TestExportImport(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, validRecord()); err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	raw, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	svc.Clear(ctx)
	if got, _ := svc.List(ctx, ListFilter{}); len(got) != 0 {
		t.Fatalf("Clear() left %d records", len(got))
	}

	if err := svc.Import(ctx, raw); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if got, _ := svc.List(ctx, ListFilter{}); len(got) != 1 {
		t.Errorf("after import: %d records, want 1", len(got))
	}

	wantErr(t, svc.Import(ctx, []byte(`{"version":"1.0"}`)), apperror.ErrValidation)
	wantErr(t, svc.Import(ctx, nil), apperror.ErrValidation)
}

func TestUpdatePreferences(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	got, err := svc.UpdatePreferences(ctx, model.UserPreferences{Theme: "dark", AutoSave: true})
	if err != nil {
		t.Fatalf("UpdatePreferences() error = %v", err)
	}
	if got.Theme != "dark" || got.CalendarView != "month" || got.Language != "en" {
		t.Errorf("defaults not applied: %+v", got)
	}
	if stored := svc.Preferences(ctx); stored != got {
		t.Errorf("Preferences() = %+v, want %+v", stored, got)
	}

	_, err = svc.UpdatePreferences(ctx, model.UserPreferences{DefaultRatings: model.DefaultRatings{Movies: 9}})
	wantErr(t, err, apperror.ErrValidation)
}
