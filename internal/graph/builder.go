package graph

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kgmicrobe/kgreason/internal/db"
	"kgmicrobe/kgreason/internal/kgx"
)

// Construction strategies, in priority order
const (
	StrategyFiles    = "files"
	StrategyDatabase = "database"
)

// ErrNoSource is returned when neither source files nor a store are available
var ErrNoSource = errors.New("no graph source: source files absent and no database")

// Builder constructs snapshots either straight from the KGX source files, when
// both are present, or by exporting the nodes and edges tables.
// A Builder holds no state between builds; caching is up to the caller.
type Builder struct {
	Store     *db.DB
	NodesPath string
	EdgesPath string
	Logger    *zap.Logger
}

// Strategy reports which source the next build will read
func (b *Builder) Strategy() string {
	if fileExists(b.NodesPath) && fileExists(b.EdgesPath) {
		return StrategyFiles
	}
	return StrategyDatabase
}

// Build returns a snapshot of the whole graph. Edge endpoints that are not
// known nodes become stub nodes.
func (b *Builder) Build(ctx context.Context) (*GraphSnapshot, error) {
	nodes, edges, err := b.load(ctx, nil)
	if err != nil {
		return nil, err
	}
	snap := NewSnapshot(withStubs(nodes, edges), edges)
	b.logBuilt("", snap)
	return snap, nil
}

// BuildCategory returns a snapshot holding only nodes whose category equals
// category, and the edges among them
func (b *Builder) BuildCategory(ctx context.Context, category string) (*GraphSnapshot, error) {
	nodes, edges, err := b.load(ctx, func(n *NodeInfo) bool { return n.Category == category })
	if err != nil {
		return nil, err
	}
	snap := NewSnapshot(nodes, edges)
	b.logBuilt(category, snap)
	return snap, nil
}

func (b *Builder) load(ctx context.Context, keep func(*NodeInfo) bool) ([]*NodeInfo, []EdgeInfo, error) {
	start := time.Now()
	strategy := b.Strategy()
	b.logger().Debug("building graph", zap.String("strategy", strategy))

	switch {
	case strategy == StrategyFiles:
		nodes, edges, err := b.parseFiles(ctx, keep)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing source files: %w", err)
		}
		b.logger().Debug("source files parsed", zap.Duration("elapsed", time.Since(start)))
		return nodes, edges, nil
	case b.Store != nil:
		nodes, edges, err := exportFromDB(ctx, b.Store, keep)
		if err != nil {
			return nil, nil, fmt.Errorf("exporting tables: %w", err)
		}
		b.logger().Debug("tables exported", zap.Duration("elapsed", time.Since(start)))
		return nodes, edges, nil
	}
	return nil, nil, ErrNoSource
}

// parseFiles reads the node and edge files concurrently
func (b *Builder) parseFiles(ctx context.Context, keep func(*NodeInfo) bool) ([]*NodeInfo, []EdgeInfo, error) {
	var nodes []*NodeInfo
	var edges []EdgeInfo

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return kgx.EachNode(b.NodesPath, func(n db.Node, _ int) error {
			info := NodeInfoFrom(n)
			if keep == nil || keep(info) {
				nodes = append(nodes, info)
			}
			return ctx.Err()
		})
	})
	g.Go(func() error {
		return kgx.EachEdge(b.EdgesPath, func(e db.Edge, _ int) error {
			edges = append(edges, EdgeInfoFrom(e))
			return ctx.Err()
		})
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}

func (b *Builder) logBuilt(category string, snap *GraphSnapshot) {
	fields := []zap.Field{zap.Int("nodes", snap.NodeCount()), zap.Int("edges", snap.EdgeCount())}
	if category != "" {
		fields = append(fields, zap.String("category", category))
	}
	b.logger().Info("graph built", fields...)
}

func (b *Builder) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
