package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// BuildHierarchies rebuilds the closure of the hierarchy predicates from the
// edges table, one hop at a time, up to MaxDepth. Expansion stops early at
// the first hop that adds no rows.
func (l *Loader) BuildHierarchies(ctx context.Context) (HierarchyReport, error) {
	start := time.Now()
	var report HierarchyReport
	preds := l.opts.HierarchyPredicates

	if err := l.store.ClearHierarchy(ctx); err != nil {
		return report, fmt.Errorf("clearing hierarchy: %w", err)
	}

	n, err := l.store.SeedHierarchy(ctx, preds)
	if err != nil {
		return report, err
	}
	report.Rows = n
	if n > 0 {
		report.MaxHop = 1
	}
	l.logger.Debug("hierarchy hop", zap.Int("hop", 1), zap.String("rows", humanize.Comma(n)))

	for hop := 2; hop <= l.opts.MaxDepth && n > 0; hop++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		n, err = l.store.ExtendHierarchy(ctx, preds, hop)
		if err != nil {
			return report, err
		}
		if n > 0 {
			report.Rows += n
			report.MaxHop = hop
		}
		l.logger.Debug("hierarchy hop", zap.Int("hop", hop), zap.String("rows", humanize.Comma(n)))
	}

	if report.ByDepth, err = l.store.HierarchyDepthCounts(ctx); err != nil {
		return report, fmt.Errorf("counting hierarchy depths: %w", err)
	}
	report.Duration = time.Since(start)

	l.logger.Info("hierarchy built",
		zap.Strings("predicates", preds),
		zap.String("rows", humanize.Comma(report.Rows)),
		zap.Int("max_hop", report.MaxHop),
		zap.Duration("elapsed", report.Duration))
	return report, nil
}

// BuildPredicateIndex recounts edges per predicate and applies the configured
// predicate descriptions. Returns the number of indexed predicates.
func (l *Loader) BuildPredicateIndex(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := l.store.RebuildPredicateIndex(ctx, l.opts.Meta)
	if err != nil {
		return 0, fmt.Errorf("building predicate index: %w", err)
	}
	l.logger.Info("predicate index built", zap.Int64("predicates", n), zap.Duration("elapsed", time.Since(start)))
	return n, nil
}
