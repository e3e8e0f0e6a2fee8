package model

import "time"

// ExportVersion is written into every export document.
const ExportVersion = "1.0"

// ExportDocument is the versioned backup format produced by an export and
// accepted by an import. Statistics are informational: an import ignores
// them and they are recomputed on demand.
type ExportDocument struct {
	ExportDate  time.Time          `json:"exportDate"`
	Version     string             `json:"version"`
	Experiences []ExperienceRecord `json:"experiences"`
	Statistics  Statistics         `json:"statistics"`
	Preferences UserPreferences    `json:"preferences"`
}
