package importer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alucardeht/jurismap/internal/allocator"
	"github.com/alucardeht/jurismap/internal/descriptor"
	"github.com/alucardeht/jurismap/internal/logger"
	"github.com/alucardeht/jurismap/internal/metrics"
	"github.com/alucardeht/jurismap/internal/progress"
	"github.com/alucardeht/jurismap/internal/store"
)

var log = logger.ForComponent("importer")

// State is the stage a top-level import reached.
type State int

const (
	Loading State = iota
	Purging
	Allocating
	WalkingLanguages
	Finalized
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Purging:
		return "purging"
	case Allocating:
		return "allocating"
	case WalkingLanguages:
		return "walking_languages"
	case Finalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Options struct {
	// Atomic runs purge and import in one transaction. Otherwise the purge
	// commits on its own and a failed import leaves the subtree absent.
	Atomic         bool
	ValidateSchema bool
}

func DefaultOptions() Options {
	return Options{Atomic: true, ValidateSchema: true}
}

// ImportResult describes one top-level import.
type ImportResult struct {
	JurisdictionID      string          `json:"jurisdiction_id"`
	Timestamp           int64           `json:"timestamp"`
	State               State           `json:"-"`
	Rows                int             `json:"rows"`
	Jurisdictions       int             `json:"jurisdictions"`
	Courts              int             `json:"courts"`
	Associations        int             `json:"associations"`
	JurisdictionIndices allocator.Stats `json:"jurisdiction_indices"`
	CourtIndices        allocator.Stats `json:"court_indices"`
	Duration            time.Duration   `json:"duration"`
	Err                 error           `json:"-"`
}

func (r *ImportResult) Succeeded() bool {
	return r.Err == nil && r.State == Finalized
}

// Importer replaces the persisted subtree of one top-level jurisdiction
// with the contents of its descriptor.
type Importer struct {
	store   *store.Store
	opts    Options
	metrics *metrics.Metrics
}

func New(st *store.Store, opts Options, m *metrics.Metrics) *Importer {
	return &Importer{store: st, opts: opts, metrics: m}
}

// ImportOne imports the descriptor at path for entry. Errors are reported
// in the result; they never abort the caller's batch.
func (im *Importer) ImportOne(ctx context.Context, entry descriptor.ManifestEntry, path string, reporter *progress.Reporter) *ImportResult {
	start := time.Now()
	res := &ImportResult{JurisdictionID: entry.JurisdictionID, Timestamp: entry.Timestamp, State: Loading}
	if reporter == nil {
		reporter = progress.NewReporter(nil, 0, 0)
	}

	res.Err = im.importOne(ctx, entry, path, reporter, res)
	res.Duration = time.Since(start)

	if res.Err != nil {
		log.Error("import failed", "jurisdiction", entry.JurisdictionID, "state", res.State.String(), "error", res.Err)
		im.observe("failure", res)
		return res
	}

	log.Info("import finished",
		"jurisdiction", entry.JurisdictionID,
		"rows", res.Rows,
		"manifest_rows", entry.RowCount,
		"jurisdictions", res.Jurisdictions,
		"courts", res.Courts,
		"associations", res.Associations,
		"duration", res.Duration)
	im.observe("success", res)
	return res
}

func (im *Importer) importOne(ctx context.Context, entry descriptor.ManifestEntry, path string, reporter *progress.Reporter, res *ImportResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Once started, an import runs to completion or failure.
	ctx = context.WithoutCancel(ctx)

	desc, err := descriptor.Load(path, descriptor.Options{ValidateSchema: im.opts.ValidateSchema})
	if err != nil {
		return err
	}
	res.Rows = desc.RowCount()
	if res.Rows != entry.RowCount {
		log.Warn("descriptor row count differs from manifest",
			"jurisdiction", entry.JurisdictionID,
			"manifest_rows", entry.RowCount,
			"descriptor_rows", res.Rows)
	}

	r := &run{
		jurisdictionID: entry.JurisdictionID,
		timestamp:      entry.Timestamp,
		desc:           desc,
		reporter:       reporter,
		juris:          allocator.New(),
		courts:         allocator.New(),
		res:            res,
	}

	if im.opts.Atomic {
		return im.store.WithTx(ctx, func(q *store.Queries) error {
			purged, err := r.purge(ctx, q)
			if err != nil {
				return err
			}
			return r.populate(ctx, q, purged)
		})
	}

	var purged *PurgeResult
	err = im.store.WithTx(ctx, func(q *store.Queries) error {
		purged, err = r.purge(ctx, q)
		return err
	})
	if err != nil {
		return err
	}
	return im.store.WithTx(ctx, func(q *store.Queries) error {
		return r.populate(ctx, q, purged)
	})
}

func (im *Importer) observe(result string, res *ImportResult) {
	if im.metrics == nil {
		return
	}
	im.metrics.ObserveImport(result, res.Duration)
	if result != "success" {
		return
	}
	im.metrics.RowsWritten.WithLabelValues("jurisdictions").Add(float64(res.Jurisdictions))
	im.metrics.RowsWritten.WithLabelValues("courts").Add(float64(res.Courts))
	im.metrics.RowsWritten.WithLabelValues("jurisdiction_courts").Add(float64(res.Associations))
	im.metrics.IndicesReused.WithLabelValues("jurisdiction").Add(float64(res.JurisdictionIndices.Reused))
	im.metrics.IndicesMinted.WithLabelValues("jurisdiction").Add(float64(res.JurisdictionIndices.Minted))
	im.metrics.IndicesReused.WithLabelValues("court").Add(float64(res.CourtIndices.Reused))
	im.metrics.IndicesMinted.WithLabelValues("court").Add(float64(res.CourtIndices.Minted))
}

// run holds the state of one import while it walks the descriptor.
type run struct {
	jurisdictionID string
	timestamp      int64
	desc           *descriptor.Descriptor
	reporter       *progress.Reporter
	juris          *allocator.Allocator
	courts         *allocator.Allocator
	countryIdx     int64
	res            *ImportResult
}

func (r *run) purge(ctx context.Context, q *store.Queries) (*PurgeResult, error) {
	r.res.State = Purging
	purged, err := Purge(ctx, q, r.jurisdictionID)
	if err != nil {
		return nil, fmt.Errorf("purge %s: %w", r.jurisdictionID, err)
	}
	log.Debug("subtree purged",
		"jurisdiction", r.jurisdictionID,
		"jurisdiction_holes", len(purged.JurisdictionHoles),
		"court_holes", len(purged.CourtHoles))
	return purged, nil
}

func (r *run) populate(ctx context.Context, q *store.Queries, purged *PurgeResult) error {
	r.res.State = Allocating
	purged.Seed(r.juris, r.courts)

	r.res.State = WalkingLanguages
	idx, err := q.CountryIndex(ctx, CountryID(r.jurisdictionID))
	if err != nil {
		return err
	}
	r.countryIdx = idx

	for _, lang := range r.desc.Languages() {
		if err := r.walk(ctx, q, lang); err != nil {
			return fmt.Errorf("language %s: %w", lang, err)
		}
	}

	if err := q.UpsertVersion(ctx, r.jurisdictionID, r.timestamp); err != nil {
		return err
	}

	r.res.JurisdictionIndices = r.juris.Stats()
	r.res.CourtIndices = r.courts.Stats()
	log.Debug("indices allocated",
		"jurisdiction", r.jurisdictionID,
		"jurisdiction_last", r.juris.LastIndex(),
		"jurisdiction_holes_left", len(r.juris.Holes()),
		"court_last", r.courts.LastIndex(),
		"court_holes_left", len(r.courts.Holes()))
	r.res.State = Finalized
	return nil
}

// walk inserts the entries of one language in declaration order. Parents
// always precede their children, so a single pass resolves every path.
func (r *run) walk(ctx context.Context, q *store.Queries, lang string) error {
	var langIdx sql.NullInt64
	var langTag sql.NullString
	if lang != descriptor.DefaultLanguage {
		idx, err := q.LanguageIndex(ctx, lang)
		if err != nil {
			return err
		}
		langIdx = sql.NullInt64{Int64: idx, Valid: true}
		langTag = sql.NullString{String: lang, Valid: true}
	}

	entries := r.desc.Jurisdictions[lang]
	fullIDs := make([]string, len(entries))
	fullNames := make([]string, len(entries))

	for i, e := range entries {
		if e.IsRoot() {
			fullIDs[i], fullNames[i] = RootNames(e.LocalID, e.LocalName)
		} else {
			fullIDs[i], fullNames[i] = ChildNames(fullIDs[e.Parent], fullNames[e.Parent], e.LocalID, e.LocalName)
		}

		j := &store.Jurisdiction{
			Index:         r.juris.Next(),
			FullID:        fullIDs[i],
			FullName:      fullNames[i],
			SegmentCount:  SegmentCount(fullNames[i]),
			LanguageIndex: langIdx,
		}
		if err := q.InsertJurisdiction(ctx, j); err != nil {
			return err
		}
		r.res.Jurisdictions++

		for _, pos := range e.Courts {
			courtIdx, err := r.court(ctx, q, r.desc.Courts[pos], langIdx)
			if err != nil {
				return err
			}
			if err := q.InsertJurisdictionCourt(ctx, j.Index, courtIdx, langTag); err != nil {
				return err
			}
			r.res.Associations++
		}

		r.reporter.Tick()
	}

	return nil
}

// court returns the index of the court keyed by (country, ID, language),
// inserting it with a fresh index when absent.
func (r *run) court(ctx context.Context, q *store.Queries, c descriptor.Court, langIdx sql.NullInt64) (int64, error) {
	idx, ok, err := q.FindCourt(ctx, r.countryIdx, c.ID, langIdx)
	if err != nil {
		return 0, err
	}
	if ok {
		return idx, nil
	}

	row := &store.Court{
		Index:         r.courts.Next(),
		CountryIndex:  r.countryIdx,
		CourtID:       c.ID,
		CourtName:     CourtName(c.Name),
		LanguageIndex: langIdx,
	}
	if err := q.InsertCourt(ctx, row); err != nil {
		return 0, err
	}
	r.res.Courts++
	return row.Index, nil
}
