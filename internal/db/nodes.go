package db

import (
	"context"
	"database/sql"
	"errors"
)

const nodeColumns = `id, category, name, description, xref, synonym, iri, provided_by, deprecated, subsets`

// scanNode scans a row into a Node. The row must have all 10 columns in standard order.
func scanNode(scanner interface{ Scan(dest ...any) error }) (Node, error) {
	var n Node
	err := scanner.Scan(
		&n.ID, &n.Category, &n.Name, &n.Description, &n.Xref,
		&n.Synonym, &n.IRI, &n.ProvidedBy, &n.Deprecated, &n.Subsets,
	)
	return n, err
}

func collectNodes(rows *sql.Rows) ([]Node, error) {
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// AllNodes returns all nodes ordered by id
func (d *DB) AllNodes(ctx context.Context) ([]Node, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collectNodes(rows)
}

// GetNode returns a single node by ID, or ErrNotFound
func (d *DB) GetNode(ctx context.Context, id string) (*Node, error) {
	row := d.conn.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)

	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// NodesByCategory returns up to limit nodes whose category equals category.
// A non-positive limit returns every match.
func (d *DB) NodesByCategory(ctx context.Context, category string, limit int) ([]Node, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.conn.QueryContext(ctx, `
		SELECT `+nodeColumns+` FROM nodes
		WHERE category = ?
		ORDER BY id
		LIMIT ?
	`, category, limit)
	if err != nil {
		return nil, err
	}
	return collectNodes(rows)
}

// NodesByName returns up to limit nodes with exactly this name
func (d *DB) NodesByName(ctx context.Context, name string, limit int) ([]Node, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.conn.QueryContext(ctx, `
		SELECT `+nodeColumns+` FROM nodes
		WHERE name = ?
		ORDER BY id
		LIMIT ?
	`, name, limit)
	if err != nil {
		return nil, err
	}
	return collectNodes(rows)
}

// CountNodes returns the number of rows in nodes
func (d *DB) CountNodes(ctx context.Context) (int64, error) {
	var n int64
	err := d.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&n)
	return n, err
}

// CategoryCounts returns node counts per category
func (d *DB) CategoryCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT category, COUNT(*) FROM nodes GROUP BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var category string
		var n int64
		if err := rows.Scan(&category, &n); err != nil {
			return nil, err
		}
		counts[category] = n
	}
	return counts, rows.Err()
}
