package model

// DefaultRatings holds the rating pre-filled for new sub-entries, per category.
type DefaultRatings struct {
	Dishes int `json:"dishes"`
	Drinks int `json:"drinks"`
	Movies int `json:"movies"`
}

// UserPreferences is stored under its own key, independent of the experience
// collection.
type UserPreferences struct {
	Theme               string         `json:"theme"`
	LastSelectedCountry string         `json:"lastSelectedCountry"`
	CalendarView        string         `json:"calendarView"`
	DefaultRatings      DefaultRatings `json:"defaultRatings"`
	Notifications       bool           `json:"notifications"`
	AutoSave            bool           `json:"autoSave"`
	Language            string         `json:"language"`
}

// DefaultPreferences is what a journal reports before the user has saved any
// preferences.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		Theme:         "light",
		CalendarView:  "month",
		Notifications: true,
		AutoSave:      true,
		Language:      "en",
	}
}
