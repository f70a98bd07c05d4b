package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		ok   bool
	}{
		{"juris-us-map.json", "us", true},
		{"juris-de-map.json", "de", true},
		{"us.json", "us", true},
		{"juris--map.json", "", false},
		{"juris-us.json", "", false},
		{"readme.txt", "", false},
		{".json", "", false},
	}
	for _, tt := range tests {
		id, ok := MapID(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.id, id, tt.name)
	}
}

func TestGetBeforeScan(t *testing.T) {
	r := New(DefaultConfig())

	_, _, err := r.Get("us")
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.False(t, r.Loaded())
}

func TestScanListerDuplicatesAndFiltering(t *testing.T) {
	r := New(Config{ManifestFile: "versions.json", BatchSize: 2, ExcludePatterns: []string{"versions*.json"}})

	lister := NewSliceLister([]Entry{
		{Name: "versions.json", Path: "/maps/versions.json"},
		{Name: "versions-zz.json", Path: "/maps/versions-zz.json"},
		{Name: "juris-us-map.json", Path: "/maps/juris-us-map.json"},
		{Name: ".juris-xx-map.json", Path: "/maps/.juris-xx-map.json"},
		{Name: "archive", Path: "/maps/archive", IsDir: true},
		{Name: "us.json", Path: "/maps/us.json"},
		{Name: "juris-fr-map.json", Path: "/maps/juris-fr-map.json"},
		{Name: "notes.txt", Path: "/maps/notes.txt"},
	})

	n, err := r.ScanLister(context.Background(), lister)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, r.Count())

	m, ok, err := r.Get("us")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "juris-us-map.json", m.FileName)

	assert.Equal(t, []Duplicate{{ID: "us", Kept: "juris-us-map.json", Ignored: "us.json"}}, r.Duplicates())

	path, ok := r.ManifestPath()
	assert.True(t, ok)
	assert.Equal(t, "/maps/versions.json", path)

	m, ok, err = r.Get("xx")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, m)

	ids := []string{}
	for _, m := range r.List() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"fr", "us"}, ids)
}

func TestScanReplacesIndex(t *testing.T) {
	r := New(DefaultConfig())
	ctx := context.Background()

	_, err := r.ScanLister(ctx, NewSliceLister([]Entry{{Name: "juris-us-map.json", Path: "a"}}))
	require.NoError(t, err)
	_, err = r.ScanLister(ctx, NewSliceLister([]Entry{{Name: "juris-de-map.json", Path: "b"}}))
	require.NoError(t, err)

	_, ok, _ := r.Get("us")
	assert.False(t, ok)
	_, ok, _ = r.Get("de")
	assert.True(t, ok)
}

func TestScanDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"versions.json", "juris-us-map.json", "juris-de-map.json", "ca.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0755))

	r := New(Config{BatchSize: 1})
	n, err := r.Scan(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	m, ok, err := r.Get("de")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "juris-de-map.json"), m.Path)
}

func TestScanMissingDirectory(t *testing.T) {
	r := New(DefaultConfig())
	_, err := r.Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
	assert.False(t, r.Loaded())
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(DefaultConfig())
	_, err := r.ScanLister(ctx, NewSliceLister(nil))
	assert.ErrorIs(t, err, context.Canceled)
}
