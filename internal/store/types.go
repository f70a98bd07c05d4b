package store

import "database/sql"

type Jurisdiction struct {
	Index        int64  `json:"index"`
	FullID       string `json:"full_id"`
	FullName     string `json:"full_name"`
	SegmentCount int    `json:"segment_count"`
	// LanguageIndex is invalid for the default language.
	LanguageIndex sql.NullInt64 `json:"-"`
	Language      string        `json:"language,omitempty"`
}

type Court struct {
	Index         int64         `json:"index"`
	CountryIndex  int64         `json:"country_index"`
	CourtID       string        `json:"court_id"`
	CourtName     string        `json:"court_name"`
	LanguageIndex sql.NullInt64 `json:"-"`
	// Language is the association's raw tag, empty for the default language.
	Language string `json:"language,omitempty"`
}

type Version struct {
	JurisdictionID string `json:"jurisdiction_id"`
	Timestamp      int64  `json:"timestamp"`
}

type Stats struct {
	Jurisdictions int `json:"jurisdictions"`
	Courts        int `json:"courts"`
	Associations  int `json:"associations"`
	Countries     int `json:"countries"`
	Languages     int `json:"languages"`
	Versions      int `json:"versions"`
}
