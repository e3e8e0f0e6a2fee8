// Package model defines the data structures used throughout the application.
//
// Every persisted value is plain JSON: the experience collection is stored as
// a single JSON array, so the `json:"..."` tags below ARE the storage format.
// Changing a tag changes what older exports and stored collections decode to.
package model

import "time"

// MaxRating is the top of the 0..5 rating scale. A rating of 0 means "unrated".
const MaxRating = 5

// DateLayout is the calendar-date format used for ExperienceRecord.Date.
const DateLayout = "2006-01-02"

// Country is a snapshot of the country an experience belongs to.
//
// DENORMALISED ON PURPOSE:
// The record keeps its own copy of the country as it looked when the entry
// was written. If a country catalogue later renames a country or changes its
// flag, historical records keep the old values. Nothing re-synchronises them.
type Country struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Flag    string `json:"flag,omitempty"`
	Region  string `json:"region,omitempty"`
	Capital string `json:"capital,omitempty"`
	Cuisine string `json:"cuisine,omitempty"`
}

// Dish is a food sub-entry. Difficulty is free text such as "easy" or "hard".
type Dish struct {
	Name       string `json:"name"`
	Attempted  bool   `json:"attempted"`
	Rating     int    `json:"rating"`
	Notes      string `json:"notes,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// Drink is a beverage sub-entry. Type is free text such as "tea" or "wine".
type Drink struct {
	Name      string `json:"name"`
	Attempted bool   `json:"attempted"`
	Rating    int    `json:"rating"`
	Notes     string `json:"notes,omitempty"`
	Type      string `json:"type,omitempty"`
}

// Movie is a film sub-entry.
type Movie struct {
	Name    string `json:"name"`
	Watched bool   `json:"watched"`
	Rating  int    `json:"rating"`
	Notes   string `json:"notes,omitempty"`
	Year    int    `json:"year,omitempty"`
}

// ExperienceRecord is one journal entry: a date, a country, and any number of
// dishes, drinks, and movies experienced that day.
//
// ID, CreatedAt, and UpdatedAt belong to the store. Callers leave ID empty to
// create a record and set it to update one; the timestamps they send are
// always overwritten.
type ExperienceRecord struct {
	ID           string    `json:"id"`
	Date         string    `json:"date"`
	Country      Country   `json:"country"`
	Dishes       []Dish    `json:"dishes"`
	Drinks       []Drink   `json:"drinks"`
	Movies       []Movie   `json:"movies"`
	OverallNotes string    `json:"overall_notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Normalize replaces nil sub-record slices with empty ones so the record
// always serialises `[]` rather than `null`.
func (r *ExperienceRecord) Normalize() {
	if r.Dishes == nil {
		r.Dishes = []Dish{}
	}
	if r.Drinks == nil {
		r.Drinks = []Drink{}
	}
	if r.Movies == nil {
		r.Movies = []Movie{}
	}
}

// Month returns the "YYYY-MM" prefix of Date, or "" when Date is too short
// to carry one.
func (r ExperienceRecord) Month() string {
	if len(r.Date) < 7 {
		return ""
	}
	return r.Date[:7]
}
