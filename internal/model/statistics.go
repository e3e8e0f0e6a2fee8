package model

import (
	"sort"
	"time"
)

// RatingAverages is the mean rating per category, over rated items only.
type RatingAverages struct {
	Dishes float64 `json:"dishes"`
	Drinks float64 `json:"drinks"`
	Movies float64 `json:"movies"`
}

// CuisineStats accumulates the attempted dishes of one country.
type CuisineStats struct {
	Count       int     `json:"count"`
	TotalRating int     `json:"totalRating"`
	AvgRating   float64 `json:"avgRating"`

	// FirstSeen is the order in which the cuisine was first encountered
	// while aggregating; it breaks ties in TopCuisines.
	FirstSeen int `json:"-"`
}

// CuisineRank is one entry of Statistics.TopCuisines.
type CuisineRank struct {
	Country string `json:"country"`
	CuisineStats
}

// Achievement is a threshold badge. Value is the measured statistic at
// evaluation time; EarnedAt is nil until Value reaches Threshold.
type Achievement struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Threshold   int        `json:"threshold"`
	Value       int        `json:"value"`
	Earned      bool       `json:"earned"`
	EarnedAt    *time.Time `json:"earnedAt,omitempty"`
}

// Statistics is a read-only snapshot derived from the full experience
// collection. It is recomputed from scratch on every request.
type Statistics struct {
	TotalExperiences     int                     `json:"totalExperiences"`
	CountriesExplored    int                     `json:"countriesExplored"`
	TotalDishesAttempted int                     `json:"totalDishesAttempted"`
	TotalDrinksAttempted int                     `json:"totalDrinksAttempted"`
	TotalMoviesWatched   int                     `json:"totalMoviesWatched"`
	AverageRatings       RatingAverages          `json:"averageRatings"`
	FavoriteCuisines     map[string]CuisineStats `json:"favoriteCuisines"`
	MostActiveMonths     map[string]int          `json:"mostActiveMonths"`
	RecentExperiences    []ExperienceRecord      `json:"recentExperiences"`
	Achievements         []Achievement           `json:"achievements"`
}

// Earned returns the achievements whose threshold has been reached, in table
// order.
func (s Statistics) Earned() []Achievement {
	earned := make([]Achievement, 0, len(s.Achievements))
	for _, a := range s.Achievements {
		if a.Earned {
			earned = append(earned, a)
		}
	}
	return earned
}

// TopCuisines ranks FavoriteCuisines by average rating, then by dish count,
// then by the order the cuisines first appeared. n <= 0 returns all of them.
func (s Statistics) TopCuisines(n int) []CuisineRank {
	ranks := make([]CuisineRank, 0, len(s.FavoriteCuisines))
	for country, c := range s.FavoriteCuisines {
		ranks = append(ranks, CuisineRank{Country: country, CuisineStats: c})
	}

	sort.Slice(ranks, func(i, j int) bool {
		a, b := ranks[i], ranks[j]
		if a.AvgRating != b.AvgRating {
			return a.AvgRating > b.AvgRating
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.FirstSeen != b.FirstSeen {
			return a.FirstSeen < b.FirstSeen
		}
		return a.Country < b.Country
	})

	if n > 0 && n < len(ranks) {
		ranks = ranks[:n]
	}
	return ranks
}
