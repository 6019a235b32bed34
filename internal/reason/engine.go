package reason

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"kgmicrobe/kgreason/internal/config"
	"kgmicrobe/kgreason/internal/db"
	"kgmicrobe/kgreason/internal/graph"
)

// Engine is a query session over one store. It owns the in-memory graphs it
// builds, so callers wanting to amortize build cost keep one Engine alive.
// Safe for concurrent use.
type Engine struct {
	store   *db.DB
	builder *graph.Builder
	roles   config.Roles
	logger  *zap.Logger
	metrics *Metrics
	tracer  trace.Tracer

	mu     sync.RWMutex
	graphs map[string]*graph.GraphSnapshot // "scope:category"
	builds singleflight.Group
}

// Option configures an Engine
type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRoles sets the predicates used by the composite queries
func WithRoles(roles config.Roles) Option {
	return func(e *Engine) { e.roles = roles }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// New creates an Engine. A nil builder makes path, centrality and subgraph
// fail with graph_unavailable while relational queries keep working.
func New(store *db.DB, builder *graph.Builder, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		builder: builder,
		roles:   config.DefaultCatalog().Roles,
		graphs:  make(map[string]*graph.GraphSnapshot),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.logger = e.logger.Named("reason")
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("kgmicrobe/kgreason/reason")
	}
	return e
}

// Run parses and executes a single-line query
func (e *Engine) Run(ctx context.Context, line string, opts map[string]string) Result {
	q, err := Parse(line, opts)
	if err != nil {
		res := failure(commandOf(line), err)
		e.observe(res, 0)
		return res
	}
	return e.Execute(ctx, q)
}

// Execute runs a parsed query. Every failure, including a panic in a graph
// algorithm, comes back as a failed Result.
func (e *Engine) Execute(ctx context.Context, q Query) (res Result) {
	kind := q.Kind()
	ctx, span := e.tracer.Start(ctx, "reason."+string(kind),
		trace.WithAttributes(attribute.String("query.type", string(kind))))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("query panicked", zap.String("query_type", string(kind)), zap.Any("panic", r))
			res = failure(string(kind), fmt.Errorf("internal error: %v", r))
		}
		elapsed := time.Since(start)
		e.observe(res, elapsed)
		if res.Success {
			span.SetStatus(codes.Ok, "")
		} else {
			span.SetAttributes(attribute.String("query.error_kind", string(res.ErrorKind)))
			span.SetStatus(codes.Error, res.Error)
		}
		span.End()
	}()

	data, err := e.dispatch(ctx, q)
	if err != nil {
		span.RecordError(err)
		return failure(string(kind), err)
	}
	return success(kind, data)
}

func (e *Engine) dispatch(ctx context.Context, q Query) (any, error) {
	switch q := q.(type) {
	case LookupQuery:
		return e.lookup(ctx, q)
	case NeighborsQuery:
		return e.neighbors(ctx, q)
	case PathQuery:
		return e.path(ctx, q)
	case FilterQuery:
		return e.filter(ctx, q)
	case EnzymesUsingQuery:
		return e.enzymesUsing(ctx, q)
	case MediaIngredientsQuery:
		return e.mediaIngredients(ctx, q)
	case PhenotypeMediaQuery:
		return e.phenotypeMedia(ctx, q)
	case CentralityQuery:
		return e.centrality(ctx, q)
	case SubgraphQuery:
		return e.subgraph(ctx, q)
	case HierarchyQuery:
		return e.hierarchy(ctx, q)
	default:
		return nil, fmt.Errorf("%w %T", ErrUnknownQuery, q)
	}
}

func (e *Engine) observe(res Result, elapsed time.Duration) {
	queryType := res.QueryType
	if queryType == "" {
		queryType = "unknown"
	}
	if res.ErrorKind == UnknownQuery {
		// free-form command names would explode label cardinality
		queryType = "unknown"
	}
	e.metrics.Queries.WithLabelValues(queryType, res.Outcome()).Inc()
	if elapsed > 0 {
		e.metrics.QueryDuration.WithLabelValues(queryType).Observe(elapsed.Seconds())
	}
	if !res.Success {
		e.logger.Debug("query failed",
			zap.String("query_type", queryType),
			zap.String("error_kind", string(res.ErrorKind)),
			zap.String("error", res.Error))
	}
}

// Reset drops every cached graph. The next graph query rebuilds.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.graphs = make(map[string]*graph.GraphSnapshot)
}

// Graph returns the full graph, building it on first use
func (e *Engine) Graph(ctx context.Context) (*graph.GraphSnapshot, error) {
	return e.snapshot(ctx, ScopeFull, "", func(ctx context.Context) (*graph.GraphSnapshot, error) {
		return e.builder.Build(ctx)
	})
}

// CategoryGraph returns the graph restricted to one category, building it on first use
func (e *Engine) CategoryGraph(ctx context.Context, category string) (*graph.GraphSnapshot, error) {
	return e.snapshot(ctx, ScopeCategory, category, func(ctx context.Context) (*graph.GraphSnapshot, error) {
		return e.builder.BuildCategory(ctx, category)
	})
}

func (e *Engine) cached(key string) *graph.GraphSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graphs[key]
}

// snapshot serves key from the cache or builds it. Concurrent misses on the
// same key share one build.
func (e *Engine) snapshot(ctx context.Context, scope, category string, fn func(context.Context) (*graph.GraphSnapshot, error)) (*graph.GraphSnapshot, error) {
	key := scope + ":" + category
	if snap := e.cached(key); snap != nil {
		return snap, nil
	}
	if e.builder == nil {
		return nil, fmt.Errorf("%w: no graph builder configured", ErrGraphUnavailable)
	}

	// the build is shared by every waiter, so one caller leaving must not cancel it
	builds := e.builds.DoChan(key, func() (any, error) {
		if snap := e.cached(key); snap != nil {
			return snap, nil
		}

		ctx, span := e.tracer.Start(context.WithoutCancel(ctx), "reason.graph_build", trace.WithAttributes(
			attribute.String("graph.scope", scope),
			attribute.String("graph.category", category),
			attribute.String("graph.strategy", e.builder.Strategy()),
		))
		defer span.End()

		start := time.Now()
		snap, err := fn(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.logger.Warn("graph build failed", zap.String("scope", scope), zap.String("category", category), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrGraphUnavailable, err)
		}
		e.metrics.Builds.WithLabelValues(scope).Inc()
		e.metrics.BuildDuration.WithLabelValues(scope).Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.Int("graph.nodes", snap.NodeCount()), attribute.Int("graph.edges", snap.EdgeCount()))

		e.mu.Lock()
		e.graphs[key] = snap
		e.mu.Unlock()
		return snap, nil
	})

	select {
	case r := <-builds:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*graph.GraphSnapshot), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrGraphUnavailable, ctx.Err())
	}
}

func commandOf(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
