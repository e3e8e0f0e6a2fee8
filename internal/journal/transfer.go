package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sakif/cultural-expo/internal/apperror"
	"github.com/sakif/cultural-expo/internal/model"
	"github.com/sakif/cultural-expo/internal/repository"
	"github.com/sakif/cultural-expo/internal/stats"
)

// ExportAll serialises the collection, a fresh statistics snapshot, and the
// preferences into one indented model.ExportDocument.
func (s *Store) ExportAll(ctx context.Context) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.loadOrEmpty(ctx)
	doc := model.ExportDocument{
		ExportDate:  s.now(),
		Version:     model.ExportVersion,
		Experiences: records,
		Statistics:  s.statistics(ctx, records),
		Preferences: s.loadPreferences(ctx),
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode export")
		return nil, false
	}

	s.log.Info().Int("experiences", len(records)).Msg("journal exported")
	return raw, true
}

// importDocument is the subset of an export document an import reads.
// Statistics are recomputed on demand; only their earned dates are kept.
type importDocument struct {
	Experiences json.RawMessage `json:"experiences"`
	Preferences json.RawMessage `json:"preferences"`
	Statistics  json.RawMessage `json:"statistics"`
}

// importBatch is a decoded import, ready to be written.
type importBatch struct {
	records []model.ExperienceRecord
	prefs   *model.UserPreferences
	earned  ledger
}

// snapshot is a stored value read before an import overwrites it.
type snapshot struct {
	key   string
	value []byte
	err   error
}

// ImportAll replaces the collection (and the preferences, when the document
// carries them) with the content of blob.
//
// The document is rejected, and nothing is written, unless it is valid JSON
// whose "experiences" member is an array of records with distinct ids.
// Records without an id are given one; records without timestamps are
// stamped with now.
//
// The achievement ledger is replaced by the earned dates found in the
// document's statistics, so first-earned dates survive an export / import
// round trip and never leak over from the journal being replaced.
func (s *Store) ImportAll(ctx context.Context, blob []byte) bool {
	batch, err := s.decodeImport(blob)
	if err != nil {
		s.log.Warn().Err(err).Msg("import rejected")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Keep the current values so a failed later write can be rolled back.
	var saved []snapshot
	for _, key := range []string{repository.KeyExperiences, repository.KeyAchievements} {
		value, err := s.kv.Get(ctx, key)
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			s.log.Error().Err(err).Str("key", key).Msg("import aborted: cannot read current value")
			noteFailure(ctx, err)
			return false
		}
		saved = append(saved, snapshot{key: key, value: value, err: err})
	}

	if err := s.persist(ctx, batch.records); err != nil {
		s.log.Error().Stack().Err(err).Msg("import failed writing experiences")
		noteFailure(ctx, err)
		return false
	}

	if err := s.replaceLedger(ctx, batch.earned); err != nil {
		s.log.Error().Stack().Err(err).Msg("import failed writing achievement ledger, rolling back")
		noteFailure(ctx, err)
		s.restore(ctx, saved)
		return false
	}

	if batch.prefs != nil {
		if err := s.savePreferences(ctx, *batch.prefs); err != nil {
			s.log.Error().Stack().Err(err).Msg("import failed writing preferences, rolling back")
			noteFailure(ctx, err)
			s.restore(ctx, saved)
			return false
		}
	}

	s.log.Info().
		Int("experiences", len(batch.records)).
		Int("achievements", len(batch.earned)).
		Bool("preferences", batch.prefs != nil).
		Msg("journal imported")
	return true
}

func (s *Store) replaceLedger(ctx context.Context, l ledger) error {
	if len(l) == 0 {
		return s.kv.Delete(ctx, repository.KeyAchievements)
	}
	return s.saveLedger(ctx, l)
}

func (s *Store) restore(ctx context.Context, saved []snapshot) {
	for _, snap := range saved {
		var err error
		if snap.err != nil {
			err = s.kv.Delete(ctx, snap.key)
		} else {
			err = s.kv.Set(ctx, snap.key, snap.value)
		}
		if err != nil {
			s.log.Error().Err(err).Str("key", snap.key).Msg("rollback failed")
		}
	}
}

func (s *Store) decodeImport(blob []byte) (importBatch, error) {
	var doc importDocument
	if err := json.Unmarshal(blob, &doc); err != nil {
		return importBatch{}, fmt.Errorf("journal: decoding import: %w", err)
	}

	trimmed := bytes.TrimSpace(doc.Experiences)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return importBatch{}, errors.New("journal: import has no experiences array")
	}

	var records []model.ExperienceRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return importBatch{}, fmt.Errorf("journal: decoding imported experiences: %w", err)
	}

	now := s.now()
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		r := &records[i]
		r.Normalize()
		if r.ID == "" {
			r.ID = s.uniqueID(records)
		}
		if _, dup := seen[r.ID]; dup {
			return importBatch{}, fmt.Errorf("journal: import has duplicate id %s", r.ID)
		}
		seen[r.ID] = struct{}{}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = r.CreatedAt
		}
	}

	var prefs *model.UserPreferences
	if p := bytes.TrimSpace(doc.Preferences); len(p) > 0 && !bytes.Equal(p, []byte("null")) {
		decoded := model.DefaultPreferences()
		if err := json.Unmarshal(p, &decoded); err != nil {
			return importBatch{}, fmt.Errorf("journal: decoding imported preferences: %w", err)
		}
		prefs = &decoded
	}

	return importBatch{records: records, prefs: prefs, earned: s.importedLedger(doc.Statistics, records)}, nil
}

// importedLedger collects the earned dates from an imported statistics
// snapshot, keeping only achievements the imported records actually earn.
// A missing or malformed snapshot yields an empty ledger.
func (s *Store) importedLedger(raw json.RawMessage, records []model.ExperienceRecord) ledger {
	l := ledger{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return l
	}

	var snap struct {
		Achievements []model.Achievement `json:"achievements"`
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		s.log.Warn().Err(err).Msg("ignoring unreadable statistics in import")
		return l
	}
	earnable := map[string]bool{}
	for _, a := range stats.Compute(records, s.now()).Achievements {
		earnable[a.ID] = a.Earned
	}
	for _, a := range snap.Achievements {
		if !earnable[a.ID] || !a.Earned || a.EarnedAt == nil || a.EarnedAt.IsZero() {
			continue
		}
		l[a.ID] = a.EarnedAt.UTC()
	}
	return l
}
