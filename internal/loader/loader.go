// Package loader bulk-loads KGX node and edge files into the store and
// derives the hierarchy closure and predicate index from them.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"kgmicrobe/kgreason/internal/db"
	"kgmicrobe/kgreason/internal/kgx"
)

const (
	DefaultBatchSize = 50_000
	// DefaultHierarchyPredicate is closed over when no hierarchy predicates are configured
	DefaultHierarchyPredicate = "biolink:subclass_of"
)

// edgeNamespace seeds deterministic ids for edges that arrive without one
var edgeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("kgreason:edge"))

// Options tunes a load. Zero values take the defaults.
type Options struct {
	BatchSize           int
	MaxDepth            int
	HierarchyPredicates db.PredicateSet
	SkipHierarchy       bool
	GenerateEdgeIDs     bool
	Meta                map[string]db.PredicateMeta
}

// Loader writes to a single store. It is not safe for concurrent use.
type Loader struct {
	store  *db.DB
	opts   Options
	logger *zap.Logger
}

// New returns a Loader with defaults filled in
func New(store *db.DB, logger *zap.Logger, opts Options) (*Loader, error) {
	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = db.MaxHierarchyDepth
	}
	if len(opts.HierarchyPredicates) == 0 {
		opts.HierarchyPredicates = db.Predicates(DefaultHierarchyPredicate)
	}
	if opts.BatchSize < 0 {
		return nil, fmt.Errorf("batch size %d must be positive", opts.BatchSize)
	}
	if opts.MaxDepth < 1 || opts.MaxDepth > db.MaxHierarchyDepth {
		return nil, fmt.Errorf("max depth %d outside 1..%d", opts.MaxDepth, db.MaxHierarchyDepth)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{store: store, opts: opts, logger: logger.Named("loader")}, nil
}

// PhaseReport summarizes one file ingestion
type PhaseReport struct {
	Path     string        `json:"path"`
	Skipped  bool          `json:"skipped,omitempty"` // file absent
	Read     int64         `json:"read"`
	Batches  int           `json:"batches"`
	Inserted int64         `json:"inserted"`
	Ignored  int64         `json:"ignored"`
	Duration time.Duration `json:"duration_ns"`
}

// HierarchyReport summarizes the closure build
type HierarchyReport struct {
	Skipped  bool          `json:"skipped,omitempty"`
	Rows     int64         `json:"rows"`
	MaxHop   int           `json:"max_hop"` // deepest hop that added rows
	ByDepth  map[int]int64 `json:"by_depth,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Report is the outcome of Run
type Report struct {
	Nodes      PhaseReport     `json:"nodes"`
	Edges      PhaseReport     `json:"edges"`
	Hierarchy  HierarchyReport `json:"hierarchy"`
	Predicates int64           `json:"predicates"`
	Duration   time.Duration   `json:"duration_ns"`
}

// Run loads nodes, then edges, then builds the hierarchy closure (unless
// skipped) and the predicate index. The schema is created if missing.
func (l *Loader) Run(ctx context.Context, nodesPath, edgesPath string) (*Report, error) {
	start := time.Now()
	report := &Report{}

	if err := l.store.CreateSchema(ctx, true); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	var err error
	if report.Nodes, err = l.LoadNodes(ctx, nodesPath); err != nil {
		return report, err
	}
	if report.Edges, err = l.LoadEdges(ctx, edgesPath); err != nil {
		return report, err
	}

	if l.opts.SkipHierarchy {
		report.Hierarchy.Skipped = true
		l.logger.Info("hierarchy build skipped")
	} else if report.Hierarchy, err = l.BuildHierarchies(ctx); err != nil {
		return report, err
	}

	if report.Predicates, err = l.BuildPredicateIndex(ctx); err != nil {
		return report, err
	}

	report.Duration = time.Since(start)
	l.logger.Info("load complete",
		zap.Int64("nodes", report.Nodes.Inserted),
		zap.Int64("edges", report.Edges.Inserted),
		zap.Int64("hierarchy_rows", report.Hierarchy.Rows),
		zap.Int64("predicates", report.Predicates),
		zap.Duration("elapsed", report.Duration))
	return report, nil
}

// LoadNodes streams path into the nodes table in batches. A missing file is
// logged and skipped. A row without id or category halts the load.
func (l *Loader) LoadNodes(ctx context.Context, path string) (PhaseReport, error) {
	b := newBatcher(l, "nodes", path, l.store.InsertNodes)
	err := kgx.EachNode(path, func(n db.Node, line int) error {
		if err := db.ValidateNode(n); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		return b.add(ctx, n)
	})
	return b.finish(ctx, err)
}

// LoadEdges streams path into the edges table. Subjects and objects are not
// checked against nodes.
func (l *Loader) LoadEdges(ctx context.Context, path string) (PhaseReport, error) {
	b := newBatcher(l, "edges", path, l.store.InsertEdges)
	err := kgx.EachEdge(path, func(e db.Edge, line int) error {
		if e.ID == "" && l.opts.GenerateEdgeIDs {
			e.ID = EdgeID(e, line)
		}
		if err := db.ValidateEdge(e); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		return b.add(ctx, e)
	})
	return b.finish(ctx, err)
}

// EdgeID derives a stable id from an edge's triple and its source line, so a
// reload of the same file regenerates the same ids.
func EdgeID(e db.Edge, line int) string {
	key := e.Subject + db.ListSeparator + e.Predicate + db.ListSeparator + e.Object + db.ListSeparator + strconv.Itoa(line)
	return uuid.NewSHA1(edgeNamespace, []byte(key)).String()
}

// batcher accumulates rows and flushes them through insert every BatchSize rows
type batcher[T any] struct {
	l      *Loader
	table  string
	insert func(context.Context, []T) (db.InsertResult, error)
	buf    []T
	report PhaseReport
	start  time.Time
}

func newBatcher[T any](l *Loader, table, path string, insert func(context.Context, []T) (db.InsertResult, error)) *batcher[T] {
	return &batcher[T]{
		l:      l,
		table:  table,
		insert: insert,
		buf:    make([]T, 0, min(l.opts.BatchSize, 4096)),
		report: PhaseReport{Path: path},
		start:  time.Now(),
	}
}

func (b *batcher[T]) add(ctx context.Context, row T) error {
	b.buf = append(b.buf, row)
	b.report.Read++
	if len(b.buf) >= b.l.opts.BatchSize {
		return b.flush(ctx)
	}
	return nil
}

func (b *batcher[T]) flush(ctx context.Context) error {
	if len(b.buf) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := b.insert(ctx, b.buf)
	if err != nil {
		return fmt.Errorf("batch %d: %w", b.report.Batches+1, err)
	}
	b.report.Batches++
	b.report.Inserted += res.Inserted
	b.report.Ignored += res.Ignored
	b.buf = b.buf[:0]

	b.l.logger.Debug("batch committed",
		zap.String("table", b.table),
		zap.Int("batch", b.report.Batches),
		zap.String("rows", humanize.Comma(b.report.Read)))
	return nil
}

func (b *batcher[T]) finish(ctx context.Context, err error) (PhaseReport, error) {
	if errors.Is(err, fs.ErrNotExist) || b.report.Path == "" {
		b.l.logger.Warn("source file not found, skipping", zap.String("table", b.table), zap.String("path", b.report.Path))
		return PhaseReport{Path: b.report.Path, Skipped: true}, nil
	}
	if err == nil {
		err = b.flush(ctx)
	}
	b.report.Duration = time.Since(b.start)
	if err != nil {
		return b.report, fmt.Errorf("loading %s: %w", b.table, err)
	}

	b.l.logger.Info("table loaded",
		zap.String("table", b.table),
		zap.String("path", b.report.Path),
		zap.String("read", humanize.Comma(b.report.Read)),
		zap.String("inserted", humanize.Comma(b.report.Inserted)),
		zap.String("ignored", humanize.Comma(b.report.Ignored)),
		zap.Duration("elapsed", b.report.Duration))
	return b.report, nil
}
