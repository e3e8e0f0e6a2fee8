package journal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sakif/cultural-expo/internal/apperror"
	"github.com/sakif/cultural-expo/internal/model"
	"github.com/sakif/cultural-expo/internal/repository"
	"github.com/sakif/cultural-expo/internal/stats"
)

// ledger maps achievement id to the time it was first seen earned.
type ledger map[string]time.Time

// Statistics computes the statistics snapshot over the current collection.
//
// EARNED DATES:
// stats.Compute stamps every earned achievement with the evaluation time.
// Here that stamp is replaced by the first time the achievement was ever
// observed as earned, kept in the ledger under repository.KeyAchievements.
// Newly earned achievements are added to the ledger. A ledger write failure
// is logged and the snapshot is still returned.
func (s *Store) Statistics(ctx context.Context) model.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statistics(ctx, s.loadOrEmpty(ctx))
}

func (s *Store) statistics(ctx context.Context, records []model.ExperienceRecord) model.Statistics {
	now := s.now()
	snap := stats.Compute(records, now)

	earned := s.loadLedger(ctx)
	changed := false
	for i := range snap.Achievements {
		a := &snap.Achievements[i]
		if !a.Earned {
			continue
		}
		if first, ok := earned[a.ID]; ok {
			first := first
			a.EarnedAt = &first
			continue
		}
		earned[a.ID] = now
		changed = true
		s.log.Info().Str("achievement", a.ID).Msg("achievement earned")
	}

	if changed {
		if err := s.saveLedger(ctx, earned); err != nil {
			s.log.Error().Err(err).Msg("failed to record earned achievements")
		}
	}
	return snap
}

func (s *Store) loadLedger(ctx context.Context) ledger {
	l := ledger{}

	raw, err := s.kv.Get(ctx, repository.KeyAchievements)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.log.Error().Err(err).Msg("failed to read achievement ledger")
		}
		return l
	}
	if err := json.Unmarshal(raw, &l); err != nil {
		s.log.Error().Err(err).Msg("achievement ledger is corrupt, starting over")
		return ledger{}
	}
	if l == nil {
		l = ledger{}
	}
	return l
}

func (s *Store) saveLedger(ctx context.Context, l ledger) error {
	raw, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, repository.KeyAchievements, raw)
}
