package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/alucardeht/jurismap/internal/logger"
)

var log = logger.ForComponent("watcher")

// Reinitializer is what the watcher pokes when the maps directory changes.
type Reinitializer interface {
	Reinit(ctx context.Context) error
}

// ReinitFunc adapts a function to Reinitializer.
type ReinitFunc func(ctx context.Context) error

func (f ReinitFunc) Reinit(ctx context.Context) error { return f(ctx) }

// Watcher observes the maps directory and triggers a reinit after a quiet
// period following any change to the manifest or a descriptor. Reinits
// requested while one is running collapse into a single follow-up.
type Watcher struct {
	config     Config
	dir        string
	fsWatcher  *fsnotify.Watcher
	debouncer  *Debouncer
	classifier *EventClassifier
	target     Reinitializer
	reinits    chan Impact

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(config Config, dir, manifestFile string, target Reinitializer) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		config:     config,
		dir:        dir,
		fsWatcher:  fsWatcher,
		classifier: NewEventClassifier(manifestFile),
		target:     target,
		reinits:    make(chan Impact, 1),
	}
	w.debouncer = NewDebouncer(config.DebounceWindow, config.MaxBatchSize, w.schedule)
	return w, nil
}

func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return err
	}
	log.Info("watching maps directory", "path", w.dir)

	ctx, w.cancel = context.WithCancel(ctx)
	w.running = true

	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.receive(ctx)
	}()
	go func() {
		defer w.wg.Done()
		w.reinitLoop(ctx)
	}()
	return nil
}

var opTypes = []struct {
	op fsnotify.Op
	t  EventType
}{
	{fsnotify.Create, EventCreate},
	{fsnotify.Write, EventModify},
	{fsnotify.Remove, EventDelete},
	{fsnotify.Rename, EventRename},
}

func toFileEvent(event fsnotify.Event) (FileEvent, bool) {
	for _, m := range opTypes {
		if event.Has(m.op) {
			return FileEvent{Path: event.Name, Type: m.t, Timestamp: time.Now()}, true
		}
	}
	return FileEvent{}, false
}

func (w *Watcher) receive(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.config.Ignored(event.Name) {
				continue
			}
			if fe, ok := toFileEvent(event); ok {
				log.Debug("file event", "path", fe.Path, "type", fe.Type.String())
				w.debouncer.Add(fe)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn("watcher error", "error", err)
		}
	}
}

// schedule runs on the debouncer goroutine and must not block.
func (w *Watcher) schedule(batch []FileEvent) {
	impact := w.classifier.ClassifyBatch(batch)
	log.Debug("change batch", "paths", len(batch), "impact", impact.String())
	if impact == ImpactNone {
		return
	}

	select {
	case w.reinits <- impact:
	default:
	}
}

func (w *Watcher) reinitLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case impact := <-w.reinits:
			log.Info("maps directory changed", "impact", impact.String())
			if err := w.target.Reinit(ctx); err != nil {
				log.Error("reinit after change failed", "error", err)
			}
		}
	}
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.debouncer.Stop()
		return nil
	}
	w.running = false
	w.cancel()
	w.mu.Unlock()

	log.Info("stopping watcher")
	w.debouncer.Stop()
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}
