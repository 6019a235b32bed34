package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PredicateMeta is externally supplied descriptive data for a predicate
type PredicateMeta struct {
	Description    string `yaml:"description" json:"description,omitempty"`
	DomainCategory string `yaml:"domain" json:"domain_category,omitempty"`
	RangeCategory  string `yaml:"range" json:"range_category,omitempty"`
}

// RebuildPredicateIndex recounts edges per predicate and upserts the counts.
// Predicates that no longer occur are removed. meta is keyed by predicate and
// matched against every spelling from Predicates(); nil leaves descriptions untouched.
func (d *DB) RebuildPredicateIndex(ctx context.Context, meta map[string]PredicateMeta) (int64, error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning predicate index: %w", err)
	}
	defer tx.Rollback()

	// WHERE true disambiguates the upsert clause from a join constraint
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO predicate_index (predicate, edge_count)
		SELECT predicate, COUNT(*) FROM edges WHERE true GROUP BY predicate
		ON CONFLICT(predicate) DO UPDATE SET edge_count = excluded.edge_count
	`); err != nil {
		return 0, fmt.Errorf("counting predicates: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM predicate_index
		WHERE predicate NOT IN (SELECT DISTINCT predicate FROM edges)
	`); err != nil {
		return 0, fmt.Errorf("pruning predicates: %w", err)
	}

	for predicate, m := range meta {
		set := Predicates(predicate)
		args := []any{nullable(&m.Description), nullable(&m.DomainCategory), nullable(&m.RangeCategory)}
		args = append(args, set.args()...)
		if _, err := tx.ExecContext(ctx, `
			UPDATE predicate_index SET
				description     = COALESCE(?, description),
				domain_category = COALESCE(?, domain_category),
				range_category  = COALESCE(?, range_category)
			WHERE predicate IN (`+placeholders(len(set))+`)
		`, args...); err != nil {
			return 0, fmt.Errorf("describing predicate %s: %w", predicate, err)
		}
	}

	var n int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM predicate_index`).Scan(&n); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing predicate index: %w", err)
	}
	return n, nil
}

func scanPredicateStat(scanner interface{ Scan(dest ...any) error }) (PredicateStat, error) {
	var p PredicateStat
	err := scanner.Scan(&p.Predicate, &p.EdgeCount, &p.Description, &p.DomainCategory, &p.RangeCategory)
	return p, err
}

// PredicateStats returns the predicate index, most frequent first
func (d *DB) PredicateStats(ctx context.Context) ([]PredicateStat, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT predicate, edge_count, description, domain_category, range_category
		FROM predicate_index
		ORDER BY edge_count DESC, predicate
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []PredicateStat
	for rows.Next() {
		p, err := scanPredicateStat(rows)
		if err != nil {
			return nil, err
		}
		stats = append(stats, p)
	}
	return stats, rows.Err()
}

// GetPredicateStat returns the index row for one predicate, or ErrNotFound
func (d *DB) GetPredicateStat(ctx context.Context, predicate string) (*PredicateStat, error) {
	row := d.conn.QueryRowContext(ctx, `
		SELECT predicate, edge_count, description, domain_category, range_category
		FROM predicate_index WHERE predicate = ?
	`, predicate)
	p, err := scanPredicateStat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CountPredicateEdges sums the indexed edge counts over a predicate set.
// ok is false when the index is empty and cannot answer.
func (d *DB) CountPredicateEdges(ctx context.Context, preds PredicateSet) (count int64, ok bool, err error) {
	var indexed int64
	if err := d.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM predicate_index`).Scan(&indexed); err != nil {
		return 0, false, err
	}
	if indexed == 0 || len(preds) == 0 {
		return 0, false, nil
	}
	err = d.conn.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(edge_count), 0) FROM predicate_index
		WHERE predicate IN (`+placeholders(len(preds))+`)
	`, preds.args()...).Scan(&count)
	return count, err == nil, err
}
