package db

import (
	"context"
	"fmt"
)

// Tables lists the four relations in creation order
var Tables = []string{"nodes", "edges", "hierarchies", "predicate_index"}

const tablesDDL = `
CREATE TABLE %[1]snodes (
	id          TEXT PRIMARY KEY,
	category    TEXT NOT NULL,
	name        TEXT,
	description TEXT,
	xref        TEXT,
	synonym     TEXT,
	iri         TEXT,
	provided_by TEXT,
	deprecated  INTEGER NOT NULL DEFAULT 0,
	subsets     TEXT
);
CREATE TABLE %[1]sedges (
	id                       TEXT PRIMARY KEY,
	subject                  TEXT NOT NULL,
	predicate                TEXT NOT NULL,
	object                   TEXT NOT NULL,
	relation                 TEXT,
	knowledge_source         TEXT,
	primary_knowledge_source TEXT
);
CREATE TABLE %[1]shierarchies (
	ancestor_id   TEXT NOT NULL,
	descendant_id TEXT NOT NULL,
	path_length   INTEGER NOT NULL CHECK (path_length BETWEEN 1 AND 10),
	path          TEXT NOT NULL,
	UNIQUE (ancestor_id, descendant_id)
);
CREATE TABLE %[1]spredicate_index (
	predicate       TEXT PRIMARY KEY,
	edge_count      INTEGER NOT NULL DEFAULT 0,
	description     TEXT,
	domain_category TEXT,
	range_category  TEXT
);
`

// Indexes maps each index name to its definition. The composite edge indexes
// serve "outgoing edges of type P from N" and "incoming edges of type P into N".
var Indexes = []struct{ Name, On string }{
	{"idx_nodes_category", "nodes(category)"},
	{"idx_nodes_name", "nodes(name)"},
	{"idx_edges_subject", "edges(subject)"},
	{"idx_edges_object", "edges(object)"},
	{"idx_edges_predicate", "edges(predicate)"},
	{"idx_edges_subject_predicate", "edges(subject, predicate)"},
	{"idx_edges_predicate_object", "edges(predicate, object)"},
	{"idx_hierarchies_ancestor", "hierarchies(ancestor_id)"},
}

// CreateSchema creates the four relations and their indexes. With ifNotExists
// a repeated call is a no-op; without it, an existing schema is ErrSchemaExists.
func (d *DB) CreateSchema(ctx context.Context, ifNotExists bool) error {
	if !ifNotExists {
		exists, err := d.SchemaExists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return ErrSchemaExists
		}
	}

	clause := ""
	if ifNotExists {
		clause = "IF NOT EXISTS "
	}

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(tablesDDL, clause)); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	for _, idx := range Indexes {
		stmt := fmt.Sprintf("CREATE INDEX %s%s ON %s", clause, idx.Name, idx.On)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating index %s: %w", idx.Name, err)
		}
	}
	return tx.Commit()
}

// DropSchema removes all four relations. Their indexes go with them.
func (d *DB) DropSchema(ctx context.Context) error {
	for i := len(Tables) - 1; i >= 0; i-- {
		if _, err := d.conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+Tables[i]); err != nil {
			return fmt.Errorf("dropping %s: %w", Tables[i], err)
		}
	}
	return nil
}

// SchemaExists reports whether any of the four relations is present
func (d *DB) SchemaExists(ctx context.Context) (bool, error) {
	var n int
	err := d.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name IN ('nodes', 'edges', 'hierarchies', 'predicate_index')
	`).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspecting schema: %w", err)
	}
	return n > 0, nil
}

// IndexNames returns the names of the schema's indexes currently present
func (d *DB) IndexNames(ctx context.Context) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'index' AND name LIKE 'idx_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
