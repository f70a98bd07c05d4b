package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries binds the statements of the store to either the database or an
// open transaction.
type Queries struct {
	q querier
}

func (q *Queries) Version(ctx context.Context, jurisdictionID string) (int64, bool, error) {
	var version int64
	err := q.q.QueryRowContext(ctx, "SELECT version FROM jurisVersion WHERE schema = ?", jurisdictionID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get version: %w", err)
	}
	return version, true, nil
}

func (q *Queries) Versions(ctx context.Context) ([]Version, error) {
	rows, err := q.q.QueryContext(ctx, "SELECT schema, version FROM jurisVersion ORDER BY schema ASC")
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.JurisdictionID, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (q *Queries) UpsertVersion(ctx context.Context, jurisdictionID string, timestamp int64) error {
	_, err := q.q.ExecContext(ctx, "INSERT OR REPLACE INTO jurisVersion (schema, version) VALUES (?, ?)", jurisdictionID, timestamp)
	if err != nil {
		return fmt.Errorf("upsert version: %w", err)
	}
	return nil
}

// LanguageIndex resolves a language tag, creating its row on first use.
func (q *Queries) LanguageIndex(ctx context.Context, tag string) (int64, error) {
	return q.resolve(ctx,
		"SELECT langIdx FROM uiLanguages WHERE lang = ?",
		"INSERT INTO uiLanguages (lang) VALUES (?)",
		tag)
}

// CountryIndex resolves a country ID, creating its row on first use.
func (q *Queries) CountryIndex(ctx context.Context, countryID string) (int64, error) {
	return q.resolve(ctx,
		"SELECT countryIdx FROM countries WHERE countryID = ?",
		"INSERT INTO countries (countryID) VALUES (?)",
		countryID)
}

func (q *Queries) resolve(ctx context.Context, selectSQL, insertSQL, key string) (int64, error) {
	var idx int64
	err := q.q.QueryRowContext(ctx, selectSQL, key).Scan(&idx)
	if err == nil {
		return idx, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("resolve %q: %w", key, err)
	}

	result, err := q.q.ExecContext(ctx, insertSQL, key)
	if err != nil {
		return 0, fmt.Errorf("insert %q: %w", key, err)
	}
	idx, err = result.LastInsertId()
	if err != nil {
		if err := q.q.QueryRowContext(ctx, selectSQL, key).Scan(&idx); err != nil {
			return 0, fmt.Errorf("resolve %q: %w", key, err)
		}
	}
	return idx, nil
}

func (q *Queries) InsertJurisdiction(ctx context.Context, j *Jurisdiction) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO jurisdictions (jurisdictionIdx, jurisdictionID, jurisdictionName, segmentCount, langIdx)
		VALUES (?, ?, ?, ?, ?)
	`, j.Index, j.FullID, j.FullName, j.SegmentCount, j.LanguageIndex)
	if err != nil {
		return fmt.Errorf("insert jurisdiction %s: %w", j.FullID, err)
	}
	return nil
}

// FindCourt looks a court up by its uniqueness key. An invalid langIdx
// selects the default-language bucket.
func (q *Queries) FindCourt(ctx context.Context, countryIdx int64, courtID string, langIdx sql.NullInt64) (int64, bool, error) {
	var row *sql.Row
	if langIdx.Valid {
		row = q.q.QueryRowContext(ctx,
			"SELECT courtIdx FROM courts WHERE countryIdx = ? AND courtID = ? AND langIdx = ?",
			countryIdx, courtID, langIdx.Int64)
	} else {
		row = q.q.QueryRowContext(ctx,
			"SELECT courtIdx FROM courts WHERE countryIdx = ? AND courtID = ? AND langIdx IS NULL",
			countryIdx, courtID)
	}

	var idx int64
	err := row.Scan(&idx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find court %s: %w", courtID, err)
	}
	return idx, true, nil
}

func (q *Queries) InsertCourt(ctx context.Context, c *Court) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO courts (courtIdx, countryIdx, courtID, courtName, langIdx)
		VALUES (?, ?, ?, ?, ?)
	`, c.Index, c.CountryIndex, c.CourtID, c.CourtName, c.LanguageIndex)
	if err != nil {
		return fmt.Errorf("insert court %s: %w", c.CourtID, err)
	}
	return nil
}

// InsertJurisdictionCourt links a jurisdiction to a court. An invalid lang
// stores NULL for the default language.
func (q *Queries) InsertJurisdictionCourt(ctx context.Context, jurisdictionIdx, courtIdx int64, lang sql.NullString) error {
	_, err := q.q.ExecContext(ctx,
		"INSERT INTO jurisdictionCourts (jurisdictionIdx, courtIdx, lang) VALUES (?, ?, ?)",
		jurisdictionIdx, courtIdx, lang)
	if err != nil {
		return fmt.Errorf("insert jurisdiction court: %w", err)
	}
	return nil
}

// Jurisdiction returns the row for fullID in the given language, or nil
// when there is none. An empty or "default" language selects the default
// rows.
func (q *Queries) Jurisdiction(ctx context.Context, fullID, lang string) (*Jurisdiction, error) {
	var row *sql.Row
	if lang == "" || lang == "default" {
		row = q.q.QueryRowContext(ctx, `
			SELECT jurisdictionIdx, jurisdictionID, jurisdictionName, segmentCount, langIdx, ''
			FROM jurisdictions WHERE jurisdictionID = ? AND langIdx IS NULL
		`, fullID)
	} else {
		row = q.q.QueryRowContext(ctx, `
			SELECT j.jurisdictionIdx, j.jurisdictionID, j.jurisdictionName, j.segmentCount, j.langIdx, l.lang
			FROM jurisdictions j INNER JOIN uiLanguages l ON j.langIdx = l.langIdx
			WHERE j.jurisdictionID = ? AND l.lang = ?
		`, fullID, lang)
	}

	j := &Jurisdiction{}
	err := row.Scan(&j.Index, &j.FullID, &j.FullName, &j.SegmentCount, &j.LanguageIndex, &j.Language)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get jurisdiction: %w", err)
	}
	return j, nil
}

// Subtree lists every row of a top-level jurisdiction across languages,
// ordered by index.
func (q *Queries) Subtree(ctx context.Context, jurisdictionID string) ([]*Jurisdiction, error) {
	lo, hi := subtreeRange(jurisdictionID)
	rows, err := q.q.QueryContext(ctx, `
		SELECT j.jurisdictionIdx, j.jurisdictionID, j.jurisdictionName, j.segmentCount, j.langIdx, IFNULL(l.lang, '')
		FROM jurisdictions j LEFT JOIN uiLanguages l ON j.langIdx = l.langIdx
		WHERE j.jurisdictionID = ? OR (j.jurisdictionID >= ? AND j.jurisdictionID < ?)
		ORDER BY j.jurisdictionIdx ASC
	`, jurisdictionID, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("list subtree: %w", err)
	}
	defer rows.Close()

	var out []*Jurisdiction
	for rows.Next() {
		j := &Jurisdiction{}
		if err := rows.Scan(&j.Index, &j.FullID, &j.FullName, &j.SegmentCount, &j.LanguageIndex, &j.Language); err != nil {
			return nil, fmt.Errorf("scan jurisdiction: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// Courts lists the courts linked to a jurisdiction row.
func (q *Queries) Courts(ctx context.Context, jurisdictionIdx int64) ([]*Court, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT c.courtIdx, c.countryIdx, c.courtID, c.courtName, c.langIdx, IFNULL(jc.lang, '')
		FROM jurisdictionCourts jc INNER JOIN courts c ON jc.courtIdx = c.courtIdx
		WHERE jc.jurisdictionIdx = ?
		ORDER BY jc.jurisdictionCourtIdx ASC
	`, jurisdictionIdx)
	if err != nil {
		return nil, fmt.Errorf("list courts: %w", err)
	}
	defer rows.Close()

	var out []*Court
	for rows.Next() {
		c := &Court{}
		if err := rows.Scan(&c.Index, &c.CountryIndex, &c.CourtID, &c.CourtName, &c.LanguageIndex, &c.Language); err != nil {
			return nil, fmt.Errorf("scan court: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := q.q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM jurisdictions),
			(SELECT COUNT(*) FROM courts),
			(SELECT COUNT(*) FROM jurisdictionCourts),
			(SELECT COUNT(*) FROM countries),
			(SELECT COUNT(*) FROM uiLanguages),
			(SELECT COUNT(*) FROM jurisVersion)
	`).Scan(&stats.Jurisdictions, &stats.Courts, &stats.Associations, &stats.Countries, &stats.Languages, &stats.Versions)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}
