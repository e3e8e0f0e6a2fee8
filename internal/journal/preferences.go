package journal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sakif/cultural-expo/internal/apperror"
	"github.com/sakif/cultural-expo/internal/model"
	"github.com/sakif/cultural-expo/internal/repository"
)

// Preferences returns the stored preferences. Fields never saved, or a value
// that cannot be read, fall back to model.DefaultPreferences.
func (s *Store) Preferences(ctx context.Context) model.UserPreferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadPreferences(ctx)
}

func (s *Store) loadPreferences(ctx context.Context) model.UserPreferences {
	prefs := model.DefaultPreferences()

	raw, err := s.kv.Get(ctx, repository.KeyPreferences)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.log.Error().Err(err).Msg("failed to read preferences, using defaults")
		}
		return prefs
	}

	if err := json.Unmarshal(raw, &prefs); err != nil {
		s.log.Error().Err(err).Msg("stored preferences are corrupt, using defaults")
		return model.DefaultPreferences()
	}
	return prefs
}

// SavePreferences replaces the stored preferences.
func (s *Store) SavePreferences(ctx context.Context, prefs model.UserPreferences) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.savePreferences(ctx, prefs); err != nil {
		s.log.Error().Stack().Err(err).Msg("failed to save preferences")
		noteFailure(ctx, err)
		return false
	}
	return true
}

func (s *Store) savePreferences(ctx context.Context, prefs model.UserPreferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, repository.KeyPreferences, raw)
}
