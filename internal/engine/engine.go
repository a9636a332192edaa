package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/beauty-engine/backend/internal/catalog"
	"github.com/beauty-engine/backend/internal/config"
	"github.com/beauty-engine/backend/internal/export"
	"github.com/beauty-engine/backend/internal/images"
	"github.com/beauty-engine/backend/internal/metrics"
	"github.com/beauty-engine/backend/internal/recommend"
	"github.com/beauty-engine/backend/internal/search"
	"github.com/beauty-engine/backend/internal/storage"
)

// ErrNoSnapshot is returned when a query arrives before any catalog is loaded.
var ErrNoSnapshot = errors.New("no catalog loaded")

// Snapshot is an immutable catalog and the index fitted over it.
type Snapshot struct {
	Catalog  *catalog.Catalog
	Index    *search.Index
	Source   string
	LoadedAt time.Time
	Version  int64
}

// Engine serves recommendations from the current snapshot
type Engine struct {
	Config  *config.Config
	Logger  *logrus.Entry
	Storage storage.ReportStorage
	Images  *images.Resolver

	snapshot atomic.Pointer[Snapshot]
	reloadMu sync.Mutex

	statsMu sync.RWMutex
	stats   EngineStats
}

type EngineStats struct {
	Queries      int64     `json:"queries"`
	EmptyResults int64     `json:"empty_results"`
	Reloads      int64     `json:"reloads"`
	LastError    string    `json:"last_error,omitempty"`
	StartTime    time.Time `json:"start_time"`
}

// NewEngine wires the engine. store and resolver may be nil, which disables
// report archiving and image resolution respectively.
func NewEngine(cfg *config.Config, logger *logrus.Entry, store storage.ReportStorage, resolver *images.Resolver) *Engine {
	if logger == nil {
		logger = logrus.WithField("component", "engine")
	}
	return &Engine{
		Config:  cfg,
		Logger:  logger,
		Storage: store,
		Images:  resolver,
		stats:   EngineStats{StartTime: time.Now()},
	}
}

// LoadCatalog normalizes a CSV catalog, fits a new index and swaps the
// snapshot. Queries already running keep the previous snapshot.
func (e *Engine) LoadCatalog(r io.Reader, source string) (*Snapshot, error) {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	cat, err := catalog.Load(r)
	if err != nil {
		var schemaErr *catalog.SchemaError
		if errors.As(err, &schemaErr) {
			metrics.RecordCatalogLoad("schema_error", 0, 0, 0)
		} else {
			metrics.RecordCatalogLoad("error", 0, 0, 0)
		}
		e.recordError(err)
		return nil, fmt.Errorf("failed to load catalog %s: %w", source, err)
	}

	idx := search.Fit(cat.Corpus(),
		search.WithMaxFeatures(e.Config.Index.MaxFeatures),
		search.WithNGramMax(e.Config.Index.NGramMax),
	)

	var version int64 = 1
	if prev := e.snapshot.Load(); prev != nil {
		version = prev.Version + 1
	}
	snap := &Snapshot{
		Catalog:  cat,
		Index:    idx,
		Source:   source,
		LoadedAt: time.Now(),
		Version:  version,
	}
	e.snapshot.Store(snap)

	warnings := cat.Warnings()
	for _, w := range warnings {
		e.Logger.WithFields(logrus.Fields{
			"row":    w.Row,
			"column": w.Column,
			"value":  w.Value,
		}).Debug(w.Reason)
	}
	e.Logger.WithFields(logrus.Fields{
		"source":     source,
		"products":   cat.Len(),
		"vocabulary": idx.VocabularySize(),
		"warnings":   len(warnings),
		"version":    version,
	}).Info("Catalog loaded")
	metrics.RecordCatalogLoad("success", cat.Len(), idx.VocabularySize(), len(warnings))

	e.statsMu.Lock()
	e.stats.Reloads++
	e.statsMu.Unlock()

	return snap, nil
}

// LoadCatalogFile loads the CSV catalog at path.
func (e *Engine) LoadCatalogFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		e.recordError(err)
		metrics.RecordCatalogLoad("error", 0, 0, 0)
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return e.LoadCatalog(f, path)
}

// Reload rebuilds the snapshot from the configured catalog path.
func (e *Engine) Reload() (*Snapshot, error) {
	return e.LoadCatalogFile(e.Config.Catalog.Path)
}

// Snapshot returns the current snapshot, or nil before the first load.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Recommend validates q, ranks the current snapshot, resolves images and
// archives the resulting report.
func (e *Engine) Recommend(ctx context.Context, q recommend.Query) (*export.Report, error) {
	start := time.Now()

	if err := q.Validate(); err != nil {
		metrics.RecordRecommend("invalid", -1, time.Since(start))
		return nil, err
	}
	snap := e.snapshot.Load()
	if snap == nil {
		metrics.RecordRecommend("error", -1, time.Since(start))
		return nil, ErrNoSnapshot
	}

	rows := recommend.Filter(snap.Catalog, q)
	results := recommend.Rank(snap.Catalog, snap.Index, q, rows)

	report := export.NewReport(q, results)
	report.Source = snap.Source
	if e.Images != nil {
		for i := range report.Items {
			report.Items[i].ImageURL = e.resolveImage(ctx, report.Items[i].Product)
		}
	}

	if e.Storage != nil {
		if err := e.Storage.Save(report); err != nil {
			e.Logger.WithError(err).WithField("report", report.ID).Error("Failed to archive report")
		}
	}

	outcome := "ok"
	e.statsMu.Lock()
	e.stats.Queries++
	if len(results) == 0 {
		e.stats.EmptyResults++
		outcome = "empty"
	}
	e.statsMu.Unlock()

	metrics.RecordRecommend(outcome, len(rows), time.Since(start))
	e.Logger.WithFields(logrus.Fields{
		"report":     report.ID,
		"skin_type":  q.SkinType,
		"candidates": len(rows),
		"results":    len(results),
		"duration":   time.Since(start),
	}).Debug("Recommendation served")

	return report, nil
}

func (e *Engine) resolveImage(ctx context.Context, p catalog.Product) string {
	ref := e.Images.Resolve(ctx, p)
	switch {
	case ref == images.Placeholder:
		metrics.ImageResolutions.WithLabelValues("placeholder").Inc()
	case strings.HasPrefix(ref, "data:"):
		metrics.ImageResolutions.WithLabelValues("data_uri").Inc()
	default:
		metrics.ImageResolutions.WithLabelValues("url").Inc()
	}
	return ref
}

// SearchHit is a free-text search match against the catalog.
type SearchHit struct {
	Index   int             `json:"index"`
	Score   float64         `json:"score"`
	Product catalog.Product `json:"product"`
}

// Search ranks catalog products by text similarity alone.
func (e *Engine) Search(query string, topK int) ([]SearchHit, error) {
	snap := e.snapshot.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}

	results := snap.Index.Search(query, topK)
	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{Index: r.Row, Score: r.Score, Product: snap.Catalog.Product(r.Row)}
	}
	return hits, nil
}

// Export returns an archived report.
func (e *Engine) Export(id string) (*export.Report, error) {
	if e.Storage == nil {
		return nil, storage.ErrNotFound
	}
	return e.Storage.Get(id)
}

// Summary describes the current catalog.
func (e *Engine) Summary() (catalog.Summary, error) {
	snap := e.snapshot.Load()
	if snap == nil {
		return catalog.Summary{}, ErrNoSnapshot
	}
	return snap.Catalog.Summary(), nil
}

// ImageAudit lists products of the current catalog without a usable image.
func (e *Engine) ImageAudit() ([]images.Issue, error) {
	snap := e.snapshot.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	if e.Images == nil {
		return nil, nil
	}
	return e.Images.Audit(snap.Catalog), nil
}

// DefaultQuery returns a query carrying the configured scoring defaults.
func (e *Engine) DefaultQuery(skinType string) recommend.Query {
	return e.Config.DefaultQuery(skinType)
}

// Stats returns a copy of the engine counters.
func (e *Engine) Stats() EngineStats {
	e.statsMu.RLock()
	defer e.statsMu.RUnlock()
	return e.stats
}

func (e *Engine) recordError(err error) {
	e.statsMu.Lock()
	e.stats.LastError = err.Error()
	e.statsMu.Unlock()
}
