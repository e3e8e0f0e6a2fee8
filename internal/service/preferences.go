package service

import (
	"context"

	"github.com/sakif/cultural-expo/internal/journal"
	"github.com/sakif/cultural-expo/internal/model"
)

// Preferences returns the stored preferences, or the defaults.
func (s *ExperienceService) Preferences(ctx context.Context) model.UserPreferences {
	return s.store.Preferences(ctx)
}

// UpdatePreferences validates and stores prefs. Empty text fields are
// filled from model.DefaultPreferences.
func (s *ExperienceService) UpdatePreferences(ctx context.Context, prefs model.UserPreferences) (model.UserPreferences, error) {
	defaults := model.DefaultPreferences()
	if prefs.Theme == "" {
		prefs.Theme = defaults.Theme
	}
	if prefs.CalendarView == "" {
		prefs.CalendarView = defaults.CalendarView
	}
	if prefs.Language == "" {
		prefs.Language = defaults.Language
	}

	for field, r := range map[string]int{
		"defaultRatings.dishes": prefs.DefaultRatings.Dishes,
		"defaultRatings.drinks": prefs.DefaultRatings.Drinks,
		"defaultRatings.movies": prefs.DefaultRatings.Movies,
	} {
		if err := validateRating(field, r); err != nil {
			return model.UserPreferences{}, err
		}
	}

	ctx, failure := journal.TrackFailure(ctx)
	if !s.store.SavePreferences(ctx, prefs) {
		return model.UserPreferences{}, storageError("save preferences", failure())
	}
	return prefs, nil
}
