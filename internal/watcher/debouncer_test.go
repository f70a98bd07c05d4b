package watcher

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flushRecorder struct {
	mu      sync.Mutex
	batches [][]FileEvent
}

func (r *flushRecorder) flush(events []FileEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, events)
}

func (r *flushRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *flushRecorder) batch(i int) []FileEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches[i]
}

func TestDebouncerCoalescesPerPath(t *testing.T) {
	rec := &flushRecorder{}
	d := NewDebouncer(30*time.Millisecond, 100, rec.flush)

	d.Add(FileEvent{Path: "/maps/b.json", Type: EventCreate})
	d.Add(FileEvent{Path: "/maps/a.json", Type: EventCreate})
	d.Add(FileEvent{Path: "/maps/b.json", Type: EventModify})
	assert.Equal(t, 2, d.Pending())

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	batch := rec.batch(0)
	require.Len(t, batch, 2)
	assert.Equal(t, "/maps/a.json", batch[0].Path)
	assert.Equal(t, "/maps/b.json", batch[1].Path)
	assert.Equal(t, EventModify, batch[1].Type)
	assert.Zero(t, d.Pending())
}

func TestDebouncerFlushesFullBatch(t *testing.T) {
	rec := &flushRecorder{}
	d := NewDebouncer(time.Hour, 2, rec.flush)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.json"})
	assert.Equal(t, 1, d.Pending())
	assert.Zero(t, rec.count())
	d.Add(FileEvent{Path: "b.json"})
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, rec.batch(0), 2)
	assert.Zero(t, d.Pending())
}

func TestDebouncerStopFlushesPending(t *testing.T) {
	rec := &flushRecorder{}
	d := NewDebouncer(time.Hour, 100, rec.flush)

	d.Add(FileEvent{Path: "a.json"})
	d.Stop()
	require.Equal(t, 1, rec.count())

	d.Add(FileEvent{Path: "b.json"})
	d.Stop()
	assert.Equal(t, 1, rec.count())
	assert.Zero(t, d.Pending())
}

func TestEventClassifier(t *testing.T) {
	c := NewEventClassifier("versions.json")

	assert.Equal(t, ImpactManifest, c.Classify(FileEvent{Path: "/maps/versions.json"}))
	assert.Equal(t, ImpactDescriptors, c.Classify(FileEvent{Path: "/maps/juris-us-map.json"}))
	assert.Equal(t, ImpactDescriptors, c.Classify(FileEvent{Path: "/maps/DE.JSON"}))
	assert.Equal(t, ImpactNone, c.Classify(FileEvent{Path: "/maps/README.md"}))

	assert.Equal(t, ImpactManifest, c.ClassifyBatch([]FileEvent{
		{Path: "/maps/juris-us-map.json"},
		{Path: "/maps/versions.json"},
	}))
	assert.Equal(t, ImpactNone, c.ClassifyBatch(nil))
}
