package watcher

import (
	"sort"
	"sync"
	"time"
)

// Debouncer coalesces events per path and hands them to onFlush once no
// event has arrived for the window, or as soon as maxBatch distinct paths
// are pending. A single goroutine owns the pending set and calls onFlush.
type Debouncer struct {
	window   time.Duration
	maxBatch int
	onFlush  func([]FileEvent)

	events   chan FileEvent
	query    chan chan int
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewDebouncer(window time.Duration, maxBatch int, onFlush func([]FileEvent)) *Debouncer {
	if maxBatch <= 0 {
		maxBatch = 1
	}
	d := &Debouncer{
		window:   window,
		maxBatch: maxBatch,
		onFlush:  onFlush,
		events:   make(chan FileEvent),
		query:    make(chan chan int),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go d.loop()
	return d
}

// Add queues an event. Events added after Stop are dropped.
func (d *Debouncer) Add(event FileEvent) {
	select {
	case d.events <- event:
	case <-d.stop:
	}
}

// Pending returns the number of distinct paths waiting for a flush.
func (d *Debouncer) Pending() int {
	reply := make(chan int, 1)
	select {
	case d.query <- reply:
		return <-reply
	case <-d.done:
		return 0
	}
}

// Stop flushes whatever is pending and waits for the loop to exit.
func (d *Debouncer) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
	<-d.done
}

func (d *Debouncer) loop() {
	defer close(d.done)

	pending := make(map[string]FileEvent)
	var timer *time.Timer
	var fire <-chan time.Time

	flush := func() {
		if timer != nil {
			timer.Stop()
			timer, fire = nil, nil
		}
		if len(pending) == 0 {
			return
		}

		batch := make([]FileEvent, 0, len(pending))
		for _, e := range pending {
			batch = append(batch, e)
		}
		sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
		pending = make(map[string]FileEvent)

		if d.onFlush != nil {
			d.onFlush(batch)
		}
	}

	for {
		select {
		case e := <-d.events:
			pending[e.Path] = e
			if len(pending) >= d.maxBatch {
				flush()
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(d.window)
			fire = timer.C

		case <-fire:
			flush()

		case reply := <-d.query:
			reply <- len(pending)

		case <-d.stop:
			flush()
			return
		}
	}
}
