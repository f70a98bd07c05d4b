package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "data", "jurismap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func insertJurisdiction(t *testing.T, q *Queries, idx int64, fullID, fullName string, lang sql.NullInt64) {
	t.Helper()
	require.NoError(t, q.InsertJurisdiction(context.Background(), &Jurisdiction{
		Index:         idx,
		FullID:        fullID,
		FullName:      fullName,
		SegmentCount:  1,
		LanguageIndex: lang,
	}))
}

func TestMigrateIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.Migrate(context.Background()))

	var version int
	require.NoError(t, st.DB().QueryRow("SELECT version FROM schema_version").Scan(&version))
	assert.Equal(t, SchemaVersion, version)
}

func TestVersions(t *testing.T) {
	st := openTestStore(t)
	q := st.Queries()
	ctx := context.Background()

	_, ok, err := q.Version(ctx, "us")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, q.UpsertVersion(ctx, "us", 100))
	require.NoError(t, q.UpsertVersion(ctx, "de", 5))
	require.NoError(t, q.UpsertVersion(ctx, "us", 200))

	v, ok, err := q.Version(ctx, "us")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(200), v)

	versions, err := q.Versions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Version{{"de", 5}, {"us", 200}}, versions)
}

func TestSelectOrInsertLookups(t *testing.T) {
	st := openTestStore(t)
	q := st.Queries()
	ctx := context.Background()

	fr, err := q.LanguageIndex(ctx, "fr")
	require.NoError(t, err)
	again, err := q.LanguageIndex(ctx, "fr")
	require.NoError(t, err)
	de, err := q.LanguageIndex(ctx, "de")
	require.NoError(t, err)

	assert.Equal(t, fr, again)
	assert.NotEqual(t, fr, de)

	us, err := q.CountryIndex(ctx, "us")
	require.NoError(t, err)
	usAgain, err := q.CountryIndex(ctx, "us")
	require.NoError(t, err)
	assert.Equal(t, us, usAgain)
}

func TestJurisdictionLookupByLanguage(t *testing.T) {
	st := openTestStore(t)
	q := st.Queries()
	ctx := context.Background()

	fr, err := q.LanguageIndex(ctx, "fr")
	require.NoError(t, err)

	insertJurisdiction(t, q, 2, "us", "United States|US", sql.NullInt64{})
	insertJurisdiction(t, q, 3, "us", "États-Unis|US", sql.NullInt64{Int64: fr, Valid: true})

	j, err := q.Jurisdiction(ctx, "us", "")
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, int64(2), j.Index)
	assert.False(t, j.LanguageIndex.Valid)

	j, err = q.Jurisdiction(ctx, "us", "fr")
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, "États-Unis|US", j.FullName)
	assert.Equal(t, "fr", j.Language)

	j, err = q.Jurisdiction(ctx, "us", "de")
	assert.NoError(t, err)
	assert.Nil(t, j)
}

func TestJurisdictionUniquePerLanguage(t *testing.T) {
	st := openTestStore(t)
	q := st.Queries()

	insertJurisdiction(t, q, 2, "us", "United States|US", sql.NullInt64{})
	err := q.InsertJurisdiction(context.Background(), &Jurisdiction{Index: 3, FullID: "us", FullName: "x", SegmentCount: 1})
	assert.Error(t, err)
}

func TestFindCourtSeparatesDefaultLanguage(t *testing.T) {
	st := openTestStore(t)
	q := st.Queries()
	ctx := context.Background()

	country, err := q.CountryIndex(ctx, "us")
	require.NoError(t, err)
	fr, err := q.LanguageIndex(ctx, "fr")
	require.NoError(t, err)
	frIdx := sql.NullInt64{Int64: fr, Valid: true}

	require.NoError(t, q.InsertCourt(ctx, &Court{Index: 2, CountryIndex: country, CourtID: "supreme.court", CourtName: "Supreme Court"}))

	idx, ok, err := q.FindCourt(ctx, country, "supreme.court", sql.NullInt64{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), idx)

	_, ok, err = q.FindCourt(ctx, country, "supreme.court", frIdx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, q.InsertCourt(ctx, &Court{Index: 3, CountryIndex: country, CourtID: "supreme.court", CourtName: "Cour suprême", LanguageIndex: frIdx}))
	idx, ok, err = q.FindCourt(ctx, country, "supreme.court", frIdx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), idx)
}

func TestPurgeSubtree(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	err := st.WithTx(ctx, func(q *Queries) error {
		country, err := q.CountryIndex(ctx, "us")
		require.NoError(t, err)

		insertJurisdiction(t, q, 5, "us", "United States|US", sql.NullInt64{})
		insertJurisdiction(t, q, 2, "us:ca", "United States|US|California", sql.NullInt64{})
		insertJurisdiction(t, q, 9, "us:ca:la", "United States|US|California|Los Angeles", sql.NullInt64{})
		insertJurisdiction(t, q, 3, "usa", "USA|USA", sql.NullInt64{})
		insertJurisdiction(t, q, 4, "US:NY", "x", sql.NullInt64{})

		require.NoError(t, q.InsertCourt(ctx, &Court{Index: 2, CountryIndex: country, CourtID: "own", CourtName: "Own"}))
		require.NoError(t, q.InsertCourt(ctx, &Court{Index: 3, CountryIndex: country, CourtID: "shared", CourtName: "Shared"}))
		require.NoError(t, q.InsertJurisdictionCourt(ctx, 5, 2, sql.NullString{}))
		require.NoError(t, q.InsertJurisdictionCourt(ctx, 2, 3, sql.NullString{}))
		require.NoError(t, q.InsertJurisdictionCourt(ctx, 3, 3, sql.NullString{}))
		return nil
	})
	require.NoError(t, err)

	var holes, courtHoles []int64
	err = st.WithTx(ctx, func(q *Queries) error {
		var err error
		if holes, err = q.PurgeJurisdictions(ctx, "us"); err != nil {
			return err
		}
		courtHoles, err = q.PurgeOrphanCourts(ctx)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 5, 9}, holes)
	assert.Equal(t, []int64{2}, courtHoles)

	q := st.Queries()
	remaining, err := q.JurisdictionIndices(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{3, 4}, remaining)

	courts, err := q.CourtIndices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, courts)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Jurisdictions)
	assert.Equal(t, 1, stats.Associations)
}

func TestSubtreeAndCourts(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	q := st.Queries()

	country, err := q.CountryIndex(ctx, "us")
	require.NoError(t, err)
	insertJurisdiction(t, q, 2, "us", "United States|US", sql.NullInt64{})
	insertJurisdiction(t, q, 3, "us:ca", "United States|US|California", sql.NullInt64{})
	require.NoError(t, q.InsertCourt(ctx, &Court{Index: 2, CountryIndex: country, CourtID: "c", CourtName: "C"}))
	require.NoError(t, q.InsertJurisdictionCourt(ctx, 3, 2, sql.NullString{}))

	rows, err := q.Subtree(ctx, "us")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "us:ca", rows[1].FullID)

	courts, err := q.Courts(ctx, 3)
	require.NoError(t, err)
	require.Len(t, courts, 1)
	assert.Equal(t, "C", courts[0].CourtName)
	assert.Empty(t, courts[0].Language)
}

func TestWithTxRollsBack(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	err := st.WithTx(ctx, func(q *Queries) error {
		require.NoError(t, q.UpsertVersion(ctx, "us", 1))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, ok, err := st.Queries().Version(ctx, "us")
	require.NoError(t, err)
	assert.False(t, ok)
}
