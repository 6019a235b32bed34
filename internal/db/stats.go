package db

import (
	"context"
	"fmt"
)

// Stats summarizes table sizes
type Stats struct {
	Nodes      int64            `json:"nodes"`
	Edges      int64            `json:"edges"`
	Hierarchy  int64            `json:"hierarchy"`
	Predicates int64            `json:"predicates"`
	Categories map[string]int64 `json:"categories"`
}

// Stats counts rows in every table and nodes per category
func (d *DB) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{}
	for _, c := range []struct {
		table string
		dest  *int64
	}{
		{"nodes", &s.Nodes},
		{"edges", &s.Edges},
		{"hierarchies", &s.Hierarchy},
		{"predicate_index", &s.Predicates},
	} {
		if err := d.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.table).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", c.table, err)
		}
	}

	categories, err := d.CategoryCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}
	s.Categories = categories
	return s, nil
}
