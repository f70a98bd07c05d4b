package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alucardeht/jurismap/internal/config"
	"github.com/alucardeht/jurismap/internal/importer"
	"github.com/alucardeht/jurismap/internal/logger"
	"github.com/alucardeht/jurismap/internal/metrics"
	"github.com/alucardeht/jurismap/internal/progress"
	"github.com/alucardeht/jurismap/internal/rpc"
	"github.com/alucardeht/jurismap/internal/store"
	"github.com/alucardeht/jurismap/internal/watcher"
)

var log = logger.ForComponent("daemon")

const shutdownTimeout = 5 * time.Second

// Daemon keeps the store in sync with the maps directory and serves the
// control socket.
type Daemon struct {
	cfg       *config.Config
	lifecycle *Lifecycle
	store     *store.Store
	metrics   *metrics.Metrics
	service   *importer.Service
	server    *rpc.Server
	watcher   *watcher.Watcher

	listener     net.Listener
	httpServer   *http.Server
	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
	startTime    time.Time
}

func New(cfg *config.Config) (*Daemon, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	d := &Daemon{
		cfg:       cfg,
		lifecycle: NewLifecycle(cfg.LockPath(), cfg.PIDPath(), cfg.SocketPath),
		metrics:   metrics.New(),
		shutdown:  make(chan struct{}),
		startTime: time.Now(),
	}

	if err := d.lifecycle.AcquireInstanceLock(); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		d.lifecycle.Cleanup()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	d.store = st

	sink := progress.LogSink{Logger: log}
	d.service = importer.NewService(cfg.Service(), st, d.metrics, sink)
	d.server = rpc.NewServer(d.service)

	if cfg.Watcher.Enabled {
		w, err := watcher.New(cfg.Watcher, cfg.MapsDir, cfg.ManifestName(), watcher.ReinitFunc(d.reinit))
		if err != nil {
			d.close()
			return nil, fmt.Errorf("failed to create watcher: %w", err)
		}
		d.watcher = w
	}

	return d, nil
}

func (d *Daemon) reinit(ctx context.Context) error {
	_, err := d.service.Reinit(ctx)
	return err
}

// Run serves until ctx is cancelled, a termination signal arrives or
// Shutdown is called.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.lifecycle.RegisterRunningDaemon(); err != nil {
		log.Warn("failed to write pid file", "error", err)
	}

	listener, err := ListenUnix(d.cfg.SocketPath)
	if err != nil {
		d.Shutdown()
		d.close()
		return fmt.Errorf("failed to listen: %w", err)
	}
	d.listener = listener
	log.Info("listening", "socket", d.cfg.SocketPath)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.server.Serve(ctx, listener); err != nil {
			log.Error("rpc server stopped", "error", err)
		}
	}()

	if d.cfg.MetricsAddr != "" {
		d.startMetrics()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		report, err := d.service.Init(ctx)
		if err != nil {
			log.Error("initial populate failed", "error", err)
			return
		}
		log.Info("initial populate done", "imported", report.Imported, "failed", report.Failed)
	}()

	if d.watcher != nil {
		if err := d.watcher.Start(ctx); err != nil {
			log.Warn("watcher disabled", "path", d.cfg.MapsDir, "error", err)
		}
	}

	select {
	case <-ctx.Done():
	case <-d.shutdown:
	}

	d.Shutdown()
	d.wg.Wait()

	drain(d.service, shutdownTimeout)
	d.close()
	return nil
}

type waiter interface {
	Wait(ctx context.Context) error
}

// drain blocks until w is idle. A populate that outlives the grace period is
// logged and still waited for, so the store is never closed under it.
func drain(w waiter, grace time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	err := w.Wait(ctx)
	cancel()
	if err == nil {
		return
	}
	log.Warn("populate still running at shutdown, waiting for it to finish", "grace", grace)
	if err := w.Wait(context.Background()); err != nil {
		log.Warn("waiting for populate failed", "error", err)
	}
}

func (d *Daemon) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", d.metrics.Handler())
	d.httpServer = &http.Server{Addr: d.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		log.Info("serving metrics", "addr", d.cfg.MetricsAddr)
		if err := d.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "error", err)
		}
	}()
}

// Shutdown stops accepting work. It is safe to call more than once.
func (d *Daemon) Shutdown() {
	d.shutdownOnce.Do(func() {
		log.Info("shutting down", "uptime", d.Uptime())
		close(d.shutdown)

		if d.watcher != nil {
			if err := d.watcher.Stop(); err != nil {
				log.Warn("failed to stop watcher", "error", err)
			}
		}

		if d.listener != nil {
			d.listener.Close()
		}
		d.server.Close()

		if d.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			d.httpServer.Shutdown(ctx)
		}
	})
}

// close releases the store and instance files once every goroutine is done.
func (d *Daemon) close() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			log.Warn("failed to close store", "error", err)
		}
	}
	d.lifecycle.Cleanup()
	os.Remove(d.cfg.SocketPath)
}

func (d *Daemon) Service() *importer.Service {
	return d.service
}

func (d *Daemon) Metrics() *metrics.Metrics {
	return d.metrics
}

func (d *Daemon) Uptime() time.Duration {
	return time.Since(d.startTime)
}
