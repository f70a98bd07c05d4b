package importer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/jurismap/internal/descriptor"
	"github.com/alucardeht/jurismap/internal/metrics"
	"github.com/alucardeht/jurismap/internal/registry"
)

func TestServiceNotLoaded(t *testing.T) {
	f := newFixture(t)
	svc := f.service(DefaultOptions(), nil)
	ctx := context.Background()

	assert.False(t, svc.Initialized())
	assert.Equal(t, LatchIdle, svc.LatchState())

	_, _, err := svc.Get("us")
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = svc.Maps()
	assert.True(t, IsNotLoaded(err))
	_, err = svc.Lookup(ctx, "us", "")
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestServiceLookup(t *testing.T) {
	f := newFixture(t)
	f.manifest(t, map[string][2]int64{"us": {100, 2}})
	f.descriptor(t, "us", usMap)
	svc := f.service(DefaultOptions(), nil)
	ctx := context.Background()

	_, err := svc.Init(ctx)
	require.NoError(t, err)
	assert.True(t, svc.Initialized())
	assert.Equal(t, LatchDone, svc.LatchState())
	require.NotNil(t, svc.LastReport())
	assert.Equal(t, 1, svc.LastReport().Imported)

	m, ok, err := svc.Get("us")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "juris-us-map.json", m.FileName)

	maps, err := svc.Maps()
	require.NoError(t, err)
	assert.Len(t, maps, 1)

	lookup, err := svc.Lookup(ctx, "us:ca", "")
	require.NoError(t, err)
	require.NotNil(t, lookup)
	assert.Equal(t, "United States|US|California", lookup.Jurisdiction.FullName)
	assert.Empty(t, lookup.Courts)

	lookup, err = svc.Lookup(ctx, "us:tx", "")
	require.NoError(t, err)
	assert.Nil(t, lookup)

	versions, err := svc.Versions(ctx)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, int64(100), versions[0].Timestamp)
}

func TestServiceMissingManifest(t *testing.T) {
	f := newFixture(t)
	f.descriptor(t, "us", usMap)
	svc := f.service(DefaultOptions(), nil)

	_, err := svc.Init(context.Background())
	assert.ErrorIs(t, err, descriptor.ErrManifest)

	// The registry scan still happened, so queries are answered.
	assert.True(t, svc.Initialized())
	_, ok, err := svc.Get("us")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestServiceReinitPicksUpNewDescriptors(t *testing.T) {
	f := newFixture(t)
	f.manifest(t, map[string][2]int64{"us": {100, 2}})
	f.descriptor(t, "us", usMap)
	svc := f.service(DefaultOptions(), nil)
	ctx := context.Background()

	_, err := svc.Init(ctx)
	require.NoError(t, err)

	f.manifest(t, map[string][2]int64{"us": {100, 2}, "de": {5, 1}})
	f.descriptor(t, "de", `{"jurisdictions": {"default": [["de", "Germany", null]]}}`)

	// Init shares the completed run and does not notice the change.
	report, err := svc.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"us"}, report.Scheduled)

	report, err = svc.Reinit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"de"}, report.Scheduled)
	assert.Equal(t, 1, report.Imported)

	_, ok, err := svc.Get("de")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestServiceUsesScannedManifest(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "versions-zz.json"),
		[]byte(`{"us": {"timestamp": 7, "rowcount": 2}}`), 0644))
	f.descriptor(t, "us", usMap)

	reg := registry.DefaultConfig()
	reg.ManifestFile = "versions-zz.json"
	svc := NewService(ServiceConfig{MapsDir: f.dir, Registry: reg, Import: DefaultOptions()}, f.store, nil, nil)

	report, err := svc.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)

	path, ok := svc.Registry().ManifestPath()
	require.True(t, ok)
	assert.Equal(t, filepath.Join(f.dir, "versions-zz.json"), path)
	assert.Equal(t, path, svc.manifestPath())

	v, _ := f.version(t, "us")
	assert.Equal(t, int64(7), v)
}

func TestServiceManifestPathFallsBackToConfig(t *testing.T) {
	f := newFixture(t)
	svc := f.service(DefaultOptions(), nil)

	_, err := svc.Init(context.Background())
	assert.ErrorIs(t, err, descriptor.ErrManifest)

	_, ok := svc.Registry().ManifestPath()
	assert.False(t, ok)
	assert.Equal(t, filepath.Join(f.dir, "versions.json"), svc.manifestPath())
}

func TestServiceConcurrentInitRunsOnce(t *testing.T) {
	f := newFixture(t)
	f.manifest(t, map[string][2]int64{"us": {100, 2}})
	f.descriptor(t, "us", usMap)
	m := metrics.New()
	svc := f.service(DefaultOptions(), m)

	const callers = 8
	reports := make([]*PopulateReport, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := svc.Init(context.Background())
			assert.NoError(t, err)
			reports[i] = r
		}()
	}
	wg.Wait()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PopulateRuns.WithLabelValues("success")))
	for _, r := range reports[1:] {
		assert.Same(t, reports[0], r)
	}
	assert.Len(t, f.subtree(t, "us"), 2)
}
