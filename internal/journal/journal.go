// Package journal is the experience store: CRUD and queries over the
// collection of ExperienceRecords, plus preferences, export / import, and the
// achievement ledger.
//
// STORAGE MODEL:
// The whole collection lives as ONE JSON array under repository.KeyExperiences.
// Every operation reads the full array, works on it in memory, and (for
// writes) stores the full array back. There is no index; queries are linear
// scans. At personal-journal scale this is simpler than anything smarter.
//
// FAIL-SOFT CONTRACT:
// No method returns an error. Storage failures are logged and turned into a
// benign result: an empty slice, a nil record, or ok == false. Callers that
// need to distinguish "absent" from "failed" (the HTTP layer) do so from the
// ok flags.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/sakif/cultural-expo/internal/apperror"
	"github.com/sakif/cultural-expo/internal/model"
	"github.com/sakif/cultural-expo/internal/repository"
)

// Store owns the experience collection in a repository.KeyValueStore.
//
// The mutex serialises read-modify-write cycles inside one process. Two
// processes sharing a backend are still last-write-wins.
type Store struct {
	kv  repository.KeyValueStore
	log zerolog.Logger
	mu  sync.Mutex

	now   func() time.Time
	newID func() string
}

// New returns a Store persisting to kv.
func New(kv repository.KeyValueStore, log zerolog.Logger) *Store {
	return &Store{
		kv:    kv,
		log:   log.With().Str("component", "journal").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return xid.New().String() },
	}
}

// errCorrupt marks a stored value that exists but cannot be decoded.
var errCorrupt = errors.New("stored value is corrupt")

// load reads and decodes the collection.
//
// An absent key is an empty collection. A read failure or a value that does
// not decode is returned as an error so that writers can refuse to overwrite
// data they could not read; readers log it and carry on with an empty slice.
func (s *Store) load(ctx context.Context) ([]model.ExperienceRecord, error) {
	raw, err := s.kv.Get(ctx, repository.KeyExperiences)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return []model.ExperienceRecord{}, nil
		}
		return []model.ExperienceRecord{}, fmt.Errorf("journal: reading experiences: %w", err)
	}

	var records []model.ExperienceRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return []model.ExperienceRecord{}, fmt.Errorf("journal: decoding experiences: %w: %v", errCorrupt, err)
	}
	if records == nil {
		records = []model.ExperienceRecord{}
	}
	for i := range records {
		records[i].Normalize()
	}
	return records, nil
}

// loadOrEmpty is load for read paths: failures are logged and yield an empty
// collection.
func (s *Store) loadOrEmpty(ctx context.Context) []model.ExperienceRecord {
	records, err := s.load(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("treating experience collection as empty")
	}
	return records
}

func (s *Store) persist(ctx context.Context, records []model.ExperienceRecord) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("journal: encoding experiences: %w", err)
	}
	return s.kv.Set(ctx, repository.KeyExperiences, raw)
}

// GetAll returns every record in stored order. Nothing stored, a read
// failure, or an undecodable value all yield an empty slice.
func (s *Store) GetAll(ctx context.Context) []model.ExperienceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadOrEmpty(ctx)
}

// Save creates or replaces a record and returns its id.
//
//   - rec.ID empty: a new id is generated, both timestamps are set to now,
//     and the record is appended.
//   - rec.ID matches a stored record: that record is replaced wholesale. Its
//     original CreatedAt is kept and UpdatedAt is set to now.
//   - rec.ID matches nothing: nothing is written and (rec.ID, true) is
//     returned.
//
// ok is false when the collection could not be read or written; the failure
// has been logged.
func (s *Store) Save(ctx context.Context, rec model.ExperienceRecord) (id string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		// Writing now would replace data we could not read.
		s.log.Error().Err(err).Str("id", rec.ID).Msg("refusing to save over unreadable collection")
		noteFailure(ctx, err)
		return "", false
	}

	now := s.now()
	rec.Normalize()

	if rec.ID == "" {
		rec.ID = s.uniqueID(records)
		rec.CreatedAt = now
		rec.UpdatedAt = now
		records = append(records, rec)
	} else {
		idx := indexOf(records, rec.ID)
		if idx < 0 {
			s.log.Debug().Str("id", rec.ID).Msg("update for unknown experience ignored")
			return rec.ID, true
		}
		rec.CreatedAt = records[idx].CreatedAt
		rec.UpdatedAt = now
		records[idx] = rec
	}

	if err := s.persist(ctx, records); err != nil {
		s.log.Error().Stack().Err(err).Str("id", rec.ID).Msg("failed to save experience")
		noteFailure(ctx, err)
		return "", false
	}

	s.log.Info().Str("id", rec.ID).Str("date", rec.Date).Str("country", rec.Country.ID).Msg("experience saved")
	return rec.ID, true
}

// uniqueID draws ids until one is not already in use.
func (s *Store) uniqueID(records []model.ExperienceRecord) string {
	for {
		id := s.newID()
		if indexOf(records, id) < 0 {
			return id
		}
	}
}

func indexOf(records []model.ExperienceRecord, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}

// DeleteByID removes the record with the given id. An unknown id is a no-op.
// It reports whether the collection is in the requested state afterwards.
func (s *Store) DeleteByID(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("id", id).Msg("refusing to delete from unreadable collection")
		noteFailure(ctx, err)
		return false
	}

	kept := records[:0]
	for _, r := range records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return true
	}

	if err := s.persist(ctx, kept); err != nil {
		s.log.Error().Stack().Err(err).Str("id", id).Msg("failed to delete experience")
		noteFailure(ctx, err)
		return false
	}

	s.log.Info().Str("id", id).Msg("experience deleted")
	return true
}

// GetByID returns the record with the given id, or nil.
func (s *Store) GetByID(ctx context.Context, id string) *model.ExperienceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.loadOrEmpty(ctx)
	if idx := indexOf(records, id); idx >= 0 {
		return &records[idx]
	}
	return nil
}

// GetByDate returns the records whose Date equals date exactly.
func (s *Store) GetByDate(ctx context.Context, date string) []model.ExperienceRecord {
	return s.filter(ctx, func(r model.ExperienceRecord) bool {
		return r.Date == date
	})
}

// GetByMonth returns the records dated in the given month. month is 0-based:
// January is 0.
func (s *Store) GetByMonth(ctx context.Context, year, month int) []model.ExperienceRecord {
	prefix := MonthPrefix(year, month)
	return s.filter(ctx, func(r model.ExperienceRecord) bool {
		return strings.HasPrefix(r.Date, prefix)
	})
}

// MonthPrefix returns the "YYYY-MM" date prefix for a 0-based month.
func MonthPrefix(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month+1)
}

// GetForCountryOnDate returns the first record for countryID on date, or nil.
func (s *Store) GetForCountryOnDate(ctx context.Context, countryID, date string) *model.ExperienceRecord {
	matches := s.filter(ctx, func(r model.ExperienceRecord) bool {
		return r.Date == date && r.Country.ID == countryID
	})
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

func (s *Store) filter(ctx context.Context, keep func(model.ExperienceRecord) bool) []model.ExperienceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []model.ExperienceRecord{}
	for _, r := range s.loadOrEmpty(ctx) {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// ClearAll erases experiences, preferences, and the achievement ledger.
func (s *Store) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{repository.KeyExperiences, repository.KeyPreferences, repository.KeyAchievements} {
		if err := s.kv.Delete(ctx, key); err != nil {
			s.log.Error().Err(err).Str("key", key).Msg("failed to clear key")
		}
	}
	s.log.Warn().Msg("journal cleared")
}
