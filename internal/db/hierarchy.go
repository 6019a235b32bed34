package db

import (
	"context"
	"fmt"
)

// MaxHierarchyDepth is the hard cap on closure path length, enforced by the schema
const MaxHierarchyDepth = 10

// ClearHierarchy removes the materialized closure before a rebuild
func (d *DB) ClearHierarchy(ctx context.Context) error {
	_, err := d.conn.ExecContext(ctx, `DELETE FROM hierarchies`)
	return err
}

// SeedHierarchy records every direct subject->object pair of the hierarchy
// predicates as a path of length 1. Returns the number of rows added.
func (d *DB) SeedHierarchy(ctx context.Context, preds PredicateSet) (int64, error) {
	if len(preds) == 0 {
		return 0, nil
	}
	res, err := d.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO hierarchies (ancestor_id, descendant_id, path_length, path)
		SELECT subject, object, 1, subject || '`+ListSeparator+`' || object
		FROM edges
		WHERE predicate IN (`+placeholders(len(preds))+`) AND subject <> object
	`, preds.args()...)
	if err != nil {
		return 0, fmt.Errorf("seeding hierarchy: %w", err)
	}
	return res.RowsAffected()
}

// ExtendHierarchy extends every path of length hop-1 by one more hierarchy
// edge whose object is the path's first node, prepending that edge's subject.
// Pairs already present keep their shorter path. A path never revisits a node.
func (d *DB) ExtendHierarchy(ctx context.Context, preds PredicateSet, hop int) (int64, error) {
	if hop < 2 || hop > MaxHierarchyDepth {
		return 0, fmt.Errorf("hierarchy hop %d outside 2..%d", hop, MaxHierarchyDepth)
	}
	if len(preds) == 0 {
		return 0, nil
	}
	args := append([]any{hop}, preds.args()...)
	args = append(args, hop-1)
	res, err := d.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO hierarchies (ancestor_id, descendant_id, path_length, path)
		SELECT e.subject, h.descendant_id, ?, e.subject || '`+ListSeparator+`' || h.path
		FROM hierarchies h
		JOIN edges e
		  ON e.object = h.ancestor_id
		 AND e.predicate IN (`+placeholders(len(preds))+`)
		WHERE h.path_length = ?
		  AND e.subject <> h.descendant_id
		  AND instr('`+ListSeparator+`' || h.path || '`+ListSeparator+`',
		            '`+ListSeparator+`' || e.subject || '`+ListSeparator+`') = 0
	`, args...)
	if err != nil {
		return 0, fmt.Errorf("extending hierarchy to hop %d: %w", hop, err)
	}
	return res.RowsAffected()
}

const hierarchyColumns = `ancestor_id, descendant_id, path_length, path`

func (d *DB) queryHierarchy(ctx context.Context, q string, args ...any) ([]HierarchyEntry, error) {
	rows, err := d.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HierarchyEntry
	for rows.Next() {
		var h HierarchyEntry
		if err := rows.Scan(&h.AncestorID, &h.DescendantID, &h.PathLength, &h.Path); err != nil {
			return nil, err
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

// HierarchyFrom returns the closure rows whose ancestor_id is id, nearest first.
// Served by idx_hierarchies_ancestor.
func (d *DB) HierarchyFrom(ctx context.Context, id string) ([]HierarchyEntry, error) {
	return d.queryHierarchy(ctx, `
		SELECT `+hierarchyColumns+` FROM hierarchies
		WHERE ancestor_id = ?
		ORDER BY path_length, descendant_id
	`, id)
}

// HierarchyTo returns the closure rows whose descendant_id is id, nearest first
func (d *DB) HierarchyTo(ctx context.Context, id string) ([]HierarchyEntry, error) {
	return d.queryHierarchy(ctx, `
		SELECT `+hierarchyColumns+` FROM hierarchies
		WHERE descendant_id = ?
		ORDER BY path_length, ancestor_id
	`, id)
}

// GetHierarchyEntry returns the closure row for one pair, or ErrNotFound
func (d *DB) GetHierarchyEntry(ctx context.Context, ancestorID, descendantID string) (*HierarchyEntry, error) {
	entries, err := d.queryHierarchy(ctx, `
		SELECT `+hierarchyColumns+` FROM hierarchies
		WHERE ancestor_id = ? AND descendant_id = ?
	`, ancestorID, descendantID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return &entries[0], nil
}

// HierarchyDepthCounts returns the number of closure rows per path length
func (d *DB) HierarchyDepthCounts(ctx context.Context) (map[int]int64, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT path_length, COUNT(*) FROM hierarchies GROUP BY path_length`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int64)
	for rows.Next() {
		var depth int
		var n int64
		if err := rows.Scan(&depth, &n); err != nil {
			return nil, err
		}
		counts[depth] = n
	}
	return counts, rows.Err()
}

// CountHierarchy returns the number of rows in hierarchies
func (d *DB) CountHierarchy(ctx context.Context) (int64, error) {
	var n int64
	err := d.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM hierarchies`).Scan(&n)
	return n, err
}
