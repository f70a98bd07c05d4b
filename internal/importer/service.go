package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/alucardeht/jurismap/internal/descriptor"
	"github.com/alucardeht/jurismap/internal/metrics"
	"github.com/alucardeht/jurismap/internal/progress"
	"github.com/alucardeht/jurismap/internal/registry"
	"github.com/alucardeht/jurismap/internal/store"
)

// ErrNotLoaded is returned when the registry is queried before the first
// initialization has completed.
var ErrNotLoaded = registry.ErrNotLoaded

type ServiceConfig struct {
	MapsDir       string
	Registry      registry.Config
	Import        Options
	ProgressEvery int
}

// PopulateReport summarizes one populate pass.
type PopulateReport struct {
	Scheduled    []string        `json:"scheduled"`
	Imported     int             `json:"imported"`
	Failed       int             `json:"failed"`
	Missing      []string        `json:"missing,omitempty"`
	ExpectedRows int             `json:"expected_rows"`
	Results      []*ImportResult `json:"results,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	Duration     time.Duration   `json:"duration"`
}

// Lookup is a jurisdiction row together with its courts.
type Lookup struct {
	Jurisdiction *store.Jurisdiction `json:"jurisdiction"`
	Courts       []*store.Court      `json:"courts"`
}

// Service owns the descriptor registry and keeps the store in sync with
// the maps directory.
type Service struct {
	cfg      ServiceConfig
	store    *store.Store
	registry *registry.Registry
	importer *Importer
	metrics  *metrics.Metrics
	sink     progress.Sink
	latch    Latch[*PopulateReport]

	mu          sync.RWMutex
	initialized bool
	last        *PopulateReport
}

func NewService(cfg ServiceConfig, st *store.Store, m *metrics.Metrics, sink progress.Sink) *Service {
	if sink == nil {
		sink = progress.NopSink{}
	}
	if m != nil {
		sink = progress.MultiSink{sink, metrics.ProgressSink{Metrics: m}}
	}
	return &Service{
		cfg:      cfg,
		store:    st,
		registry: registry.New(cfg.Registry),
		importer: New(st, cfg.Import, m),
		metrics:  m,
		sink:     sink,
	}
}

// Init scans the maps directory and imports whatever is out of date. A
// caller arriving while initialization runs waits for that same run; later
// callers get its result without doing any work.
func (s *Service) Init(ctx context.Context) (*PopulateReport, error) {
	return s.latch.Join(ctx, s.initialize)
}

// Reinit discards the registry and runs initialization again, after any run
// already in progress.
func (s *Service) Reinit(ctx context.Context) (*PopulateReport, error) {
	log.Info("reinitializing", "maps_dir", s.cfg.MapsDir)
	return s.latch.Restart(ctx, s.initialize)
}

func (s *Service) initialize(ctx context.Context) (*PopulateReport, error) {
	n, err := s.registry.Scan(ctx, s.cfg.MapsDir)
	if err != nil {
		return nil, fmt.Errorf("scan maps: %w", err)
	}
	if s.metrics != nil {
		s.metrics.DescriptorsKnown.Set(float64(n))
	}

	report, err := s.populate(ctx)

	s.mu.Lock()
	s.initialized = true
	if report != nil {
		s.last = report
	}
	s.mu.Unlock()

	return report, err
}

// populate reads the manifest, diffs it against the stored versions and
// imports every stale top-level jurisdiction. A failed import is logged and
// counted; the remaining ones still run. Only the latch may call it.
func (s *Service) populate(ctx context.Context) (*PopulateReport, error) {
	report := &PopulateReport{StartedAt: time.Now()}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	manifest, err := descriptor.LoadManifest(s.manifestPath())
	if err != nil {
		s.countRun("error")
		return nil, err
	}

	work, err := Diff(ctx, manifest, s.store.Queries())
	if err != nil {
		s.countRun("error")
		return nil, err
	}
	report.Scheduled = work.IDs()
	report.ExpectedRows = work.TotalRows

	if work.Empty() {
		log.Info("jurisdictions up to date", "manifest_entries", len(manifest))
		s.countRun("noop")
		return report, nil
	}

	log.Info("populating", "scheduled", len(work.Entries), "expected_rows", work.TotalRows)

	reporter := progress.NewReporter(s.sink, work.TotalRows, s.cfg.ProgressEvery)
	reporter.Begin(fmt.Sprintf("Installing %d jurisdictions", len(work.Entries)))
	defer reporter.End()

	for _, entry := range work.Entries {
		if err := ctx.Err(); err != nil {
			s.countRun("cancelled")
			return report, err
		}

		m, ok, err := s.registry.Get(entry.JurisdictionID)
		if err != nil {
			return report, err
		}
		if !ok {
			log.Warn("no descriptor for manifest entry", "jurisdiction", entry.JurisdictionID)
			report.Missing = append(report.Missing, entry.JurisdictionID)
			continue
		}

		res := s.importer.ImportOne(ctx, entry, m.Path, reporter)
		report.Results = append(report.Results, res)
		if res.Succeeded() {
			report.Imported++
		} else {
			report.Failed++
		}
	}

	log.Info("populate finished",
		"imported", report.Imported,
		"failed", report.Failed,
		"missing", len(report.Missing),
		"rows", reporter.Processed())

	if report.Failed > 0 || len(report.Missing) > 0 {
		s.countRun("partial")
	} else {
		s.countRun("success")
	}
	return report, nil
}

func (s *Service) countRun(result string) {
	if s.metrics != nil {
		s.metrics.PopulateRuns.WithLabelValues(result).Inc()
	}
}

// manifestPath prefers the manifest found by the last scan and falls back
// to the configured name inside the maps directory.
func (s *Service) manifestPath() string {
	if path, ok := s.registry.ManifestPath(); ok {
		return path
	}
	name := s.cfg.Registry.ManifestFile
	if name == "" {
		name = registry.DefaultConfig().ManifestFile
	}
	return filepath.Join(s.cfg.MapsDir, name)
}

func (s *Service) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

func (s *Service) LastReport() *PopulateReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Get returns the descriptor registered for a top-level jurisdiction ID.
// It fails with ErrNotLoaded until the first initialization has
// completed.
func (s *Service) Get(id string) (*registry.Map, bool, error) {
	if !s.Initialized() {
		return nil, false, ErrNotLoaded
	}
	return s.registry.Get(id)
}

func (s *Service) Maps() ([]*registry.Map, error) {
	if !s.Initialized() {
		return nil, ErrNotLoaded
	}
	return s.registry.List(), nil
}

// Lookup returns a stored jurisdiction and its courts, or nil when the
// store has no such row.
func (s *Service) Lookup(ctx context.Context, fullID, lang string) (*Lookup, error) {
	if !s.Initialized() {
		return nil, ErrNotLoaded
	}

	q := s.store.Queries()
	j, err := q.Jurisdiction(ctx, fullID, lang)
	if err != nil || j == nil {
		return nil, err
	}

	courts, err := q.Courts(ctx, j.Index)
	if err != nil {
		return nil, err
	}
	return &Lookup{Jurisdiction: j, Courts: courts}, nil
}

func (s *Service) Stats(ctx context.Context) (*store.Stats, error) {
	return s.store.Queries().Stats(ctx)
}

func (s *Service) Versions(ctx context.Context) ([]store.Version, error) {
	return s.store.Queries().Versions(ctx)
}

func (s *Service) Registry() *registry.Registry { return s.registry }

func (s *Service) LatchState() LatchState { return s.latch.State() }

// Wait blocks until a running initialization has finished.
func (s *Service) Wait(ctx context.Context) error { return s.latch.Wait(ctx) }

// IsNotLoaded reports whether err stems from querying before initialization.
func IsNotLoaded(err error) bool {
	return errors.Is(err, ErrNotLoaded)
}
