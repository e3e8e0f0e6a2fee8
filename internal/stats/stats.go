// Package stats derives the journal's statistics snapshot.
//
// Compute is a pure function of the record collection and the evaluation
// time. It keeps no state between calls: every snapshot is rebuilt from the
// full collection.
package stats

import (
	"sort"
	"time"

	"github.com/sakif/cultural-expo/internal/model"
)

// RecentLimit is how many records Statistics.RecentExperiences holds.
const RecentLimit = 5

// Rule is one row of the achievement table.
type Rule struct {
	ID          string
	Name        string
	Description string
	Threshold   int
	Measure     func(model.Statistics) int
}

// Rules is the fixed achievement table, evaluated in order.
var Rules = []Rule{
	{
		ID: "first-experience", Name: "First Steps",
		Description: "Record your first cultural experience",
		Threshold:   1,
		Measure:     func(s model.Statistics) int { return s.TotalExperiences },
	},
	{
		ID: "globe-trotter", Name: "Globe Trotter",
		Description: "Explore 5 different countries",
		Threshold:   5,
		Measure:     func(s model.Statistics) int { return s.CountriesExplored },
	},
	{
		ID: "world-explorer", Name: "World Explorer",
		Description: "Explore 10 different countries",
		Threshold:   10,
		Measure:     func(s model.Statistics) int { return s.CountriesExplored },
	},
	{
		ID: "food-adventurer", Name: "Food Adventurer",
		Description: "Try 10 dishes",
		Threshold:   10,
		Measure:     func(s model.Statistics) int { return s.TotalDishesAttempted },
	},
	{
		ID: "master-chef", Name: "Master Chef",
		Description: "Try 25 dishes",
		Threshold:   25,
		Measure:     func(s model.Statistics) int { return s.TotalDishesAttempted },
	},
	{
		ID: "drink-connoisseur", Name: "Drink Connoisseur",
		Description: "Try 15 drinks",
		Threshold:   15,
		Measure:     func(s model.Statistics) int { return s.TotalDrinksAttempted },
	},
	{
		ID: "film-buff", Name: "Film Buff",
		Description: "Watch 20 movies",
		Threshold:   20,
		Measure:     func(s model.Statistics) int { return s.TotalMoviesWatched },
	},
}

// ratingSum accumulates ratings > 0 for one category.
type ratingSum struct {
	total, n int
}

func (r *ratingSum) add(rating int) {
	if rating > 0 {
		r.total += rating
		r.n++
	}
}

func (r ratingSum) mean() float64 {
	if r.n == 0 {
		return 0
	}
	return float64(r.total) / float64(r.n)
}

// Compute builds the statistics snapshot for records. Earned achievements are
// stamped with now.
func Compute(records []model.ExperienceRecord, now time.Time) model.Statistics {
	s := model.Statistics{
		TotalExperiences: len(records),
		FavoriteCuisines: make(map[string]model.CuisineStats),
		MostActiveMonths: make(map[string]int),
	}

	countries := make(map[string]struct{})
	var dishes, drinks, movies ratingSum

	for _, r := range records {
		if r.Country.ID != "" {
			countries[r.Country.ID] = struct{}{}
		}

		for _, d := range r.Dishes {
			if !d.Attempted {
				continue
			}
			s.TotalDishesAttempted++
			dishes.add(d.Rating)

			c, seen := s.FavoriteCuisines[r.Country.Name]
			if !seen {
				c.FirstSeen = len(s.FavoriteCuisines)
			}
			c.Count++
			c.TotalRating += d.Rating
			c.AvgRating = float64(c.TotalRating) / float64(c.Count)
			s.FavoriteCuisines[r.Country.Name] = c
		}

		for _, d := range r.Drinks {
			if d.Attempted {
				s.TotalDrinksAttempted++
				drinks.add(d.Rating)
			}
		}

		for _, m := range r.Movies {
			if m.Watched {
				s.TotalMoviesWatched++
				movies.add(m.Rating)
			}
		}

		if month := r.Month(); month != "" {
			s.MostActiveMonths[month]++
		}
	}

	s.CountriesExplored = len(countries)
	s.AverageRatings = model.RatingAverages{
		Dishes: dishes.mean(),
		Drinks: drinks.mean(),
		Movies: movies.mean(),
	}
	s.RecentExperiences = Recent(records, RecentLimit)
	s.Achievements = Evaluate(s, now)

	return s
}

// Recent returns up to n records ordered by Date, newest first. Records that
// share a date keep their collection order. The input is not modified.
func Recent(records []model.ExperienceRecord, n int) []model.ExperienceRecord {
	sorted := make([]model.ExperienceRecord, len(records))
	copy(sorted, records)

	// YYYY-MM-DD strings order the same way as the dates they spell.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date > sorted[j].Date
	})

	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// Evaluate checks every rule against s. An achievement is earned iff its
// measured value is at least its threshold.
func Evaluate(s model.Statistics, now time.Time) []model.Achievement {
	out := make([]model.Achievement, 0, len(Rules))
	for _, rule := range Rules {
		a := model.Achievement{
			ID:          rule.ID,
			Name:        rule.Name,
			Description: rule.Description,
			Threshold:   rule.Threshold,
			Value:       rule.Measure(s),
		}
		if a.Value >= a.Threshold {
			earnedAt := now
			a.Earned = true
			a.EarnedAt = &earnedAt
		}
		out = append(out, a)
	}
	return out
}
