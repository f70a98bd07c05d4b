package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/jurismap/internal/descriptor"
)

type versionMap map[string]int64

func (m versionMap) Version(_ context.Context, id string) (int64, bool, error) {
	v, ok := m[id]
	return v, ok, nil
}

type failingVersions struct{}

func (failingVersions) Version(context.Context, string) (int64, bool, error) {
	return 0, false, errors.New("database is locked")
}

func manifestOf(entries ...descriptor.ManifestEntry) descriptor.Manifest {
	m := make(descriptor.Manifest, len(entries))
	for _, e := range entries {
		m[e.JurisdictionID] = e
	}
	return m
}

func TestDiffSchedulesNewAndNewer(t *testing.T) {
	manifest := manifestOf(
		descriptor.ManifestEntry{JurisdictionID: "us", Timestamp: 100, RowCount: 2},
		descriptor.ManifestEntry{JurisdictionID: "de", Timestamp: 7, RowCount: 10},
		descriptor.ManifestEntry{JurisdictionID: "fr", Timestamp: 50, RowCount: 4},
		descriptor.ManifestEntry{JurisdictionID: "ca", Timestamp: 3, RowCount: 1},
	)
	stored := versionMap{"us": 100, "de": 6, "fr": 60}

	work, err := Diff(context.Background(), manifest, stored)
	require.NoError(t, err)

	assert.Equal(t, []string{"ca", "de"}, work.IDs())
	assert.Equal(t, 11, work.TotalRows)
	assert.False(t, work.Empty())
}

func TestDiffNothingToDo(t *testing.T) {
	manifest := manifestOf(descriptor.ManifestEntry{JurisdictionID: "us", Timestamp: 100, RowCount: 2})

	work, err := Diff(context.Background(), manifest, versionMap{"us": 100})
	require.NoError(t, err)
	assert.True(t, work.Empty())
	assert.Zero(t, work.TotalRows)
}

func TestDiffPropagatesStoreErrors(t *testing.T) {
	manifest := manifestOf(descriptor.ManifestEntry{JurisdictionID: "us", Timestamp: 1})

	_, err := Diff(context.Background(), manifest, failingVersions{})
	assert.ErrorContains(t, err, "database is locked")
}
