package store

const SchemaVersion = 1

const schemaSQL = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

-- Last imported manifest timestamp per top-level jurisdiction
CREATE TABLE IF NOT EXISTS jurisVersion (
    schema TEXT PRIMARY KEY,
    version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS uiLanguages (
    langIdx INTEGER PRIMARY KEY AUTOINCREMENT,
    lang TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS countries (
    countryIdx INTEGER PRIMARY KEY AUTOINCREMENT,
    countryID TEXT UNIQUE NOT NULL
);

-- Jurisdiction and court indices are assigned by the importer, not by SQLite
CREATE TABLE IF NOT EXISTS jurisdictions (
    jurisdictionIdx INTEGER PRIMARY KEY,
    jurisdictionID TEXT NOT NULL,
    jurisdictionName TEXT NOT NULL,
    segmentCount INTEGER NOT NULL,
    langIdx INTEGER REFERENCES uiLanguages(langIdx)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_jurisdictions_id_lang ON jurisdictions(jurisdictionID, IFNULL(langIdx, 0));
CREATE INDEX IF NOT EXISTS idx_jurisdictions_id ON jurisdictions(jurisdictionID);

CREATE TABLE IF NOT EXISTS courts (
    courtIdx INTEGER PRIMARY KEY,
    countryIdx INTEGER NOT NULL REFERENCES countries(countryIdx),
    courtID TEXT NOT NULL,
    courtName TEXT NOT NULL,
    langIdx INTEGER REFERENCES uiLanguages(langIdx)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_courts_key ON courts(countryIdx, courtID, IFNULL(langIdx, 0));

CREATE TABLE IF NOT EXISTS jurisdictionCourts (
    jurisdictionCourtIdx INTEGER PRIMARY KEY AUTOINCREMENT,
    jurisdictionIdx INTEGER NOT NULL REFERENCES jurisdictions(jurisdictionIdx) ON DELETE CASCADE,
    courtIdx INTEGER NOT NULL REFERENCES courts(courtIdx),
    lang TEXT
);

CREATE INDEX IF NOT EXISTS idx_jurisdiction_courts_juris ON jurisdictionCourts(jurisdictionIdx);
CREATE INDEX IF NOT EXISTS idx_jurisdiction_courts_court ON jurisdictionCourts(courtIdx);
`

func GetSchema() string {
	return schemaSQL
}

func GetSchemaVersion() int {
	return SchemaVersion
}
