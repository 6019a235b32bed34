package db

import (
	"context"
	"database/sql"
	"strings"
)

const edgeColumns = `id, subject, predicate, object, relation, knowledge_source, primary_knowledge_source`

// BiolinkPrefix is the CURIE prefix assumed for bare predicate names
const BiolinkPrefix = "biolink:"

// PredicateSet is a set of equivalent predicate spellings. Source files mix
// CURIE predicates ("biolink:has_part") with bare local names ("has_part").
type PredicateSet []string

// Predicates expands each name to both its CURIE and bare spelling
func Predicates(names ...string) PredicateSet {
	seen := make(map[string]bool)
	var set PredicateSet
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			set = append(set, p)
		}
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		add(name)
		if i := strings.LastIndex(name, ":"); i >= 0 {
			add(name[i+1:])
		} else if name != "" {
			add(BiolinkPrefix + name)
		}
	}
	return set
}

// Contains reports whether predicate is one of the set's spellings
func (p PredicateSet) Contains(predicate string) bool {
	for _, s := range p {
		if s == predicate {
			return true
		}
	}
	return false
}

// placeholders returns "?, ?, ?" for n parameters
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func (p PredicateSet) args() []any {
	args := make([]any, len(p))
	for i, s := range p {
		args[i] = s
	}
	return args
}

// scanEdge scans a row into an Edge. The row must have all 7 columns in standard order.
func scanEdge(scanner interface{ Scan(dest ...any) error }) (Edge, error) {
	var e Edge
	err := scanner.Scan(
		&e.ID, &e.Subject, &e.Predicate, &e.Object,
		&e.Relation, &e.KnowledgeSource, &e.PrimaryKnowledgeSource,
	)
	return e, err
}

func collectEdges(rows *sql.Rows) ([]Edge, error) {
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// AllEdges returns all edges
func (d *DB) AllEdges(ctx context.Context) ([]Edge, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT `+edgeColumns+` FROM edges`)
	if err != nil {
		return nil, err
	}
	return collectEdges(rows)
}

// ForEachEdge streams every edge to fn without materializing the table
func (d *DB) ForEachEdge(ctx context.Context, fn func(Edge) error) error {
	rows, err := d.conn.QueryContext(ctx, `SELECT `+edgeColumns+` FROM edges`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ForEachNode streams every node to fn
func (d *DB) ForEachNode(ctx context.Context, fn func(Node) error) error {
	rows, err := d.conn.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return err
		}
		if err := fn(n); err != nil {
			return err
		}
	}
	return rows.Err()
}

// OutgoingEdges returns edges whose subject is nodeID. An empty predicate set
// means every predicate; otherwise the (subject, predicate) index serves the scan.
func (d *DB) OutgoingEdges(ctx context.Context, nodeID string, preds PredicateSet) ([]Edge, error) {
	q := `SELECT ` + edgeColumns + ` FROM edges WHERE subject = ?`
	args := []any{nodeID}
	if len(preds) > 0 {
		q += ` AND predicate IN (` + placeholders(len(preds)) + `)`
		args = append(args, preds.args()...)
	}
	rows, err := d.conn.QueryContext(ctx, q+` ORDER BY predicate, object, id`, args...)
	if err != nil {
		return nil, err
	}
	return collectEdges(rows)
}

// IncomingEdges returns edges whose object is nodeID, served by the
// (predicate, object) index when preds is non-empty.
func (d *DB) IncomingEdges(ctx context.Context, nodeID string, preds PredicateSet) ([]Edge, error) {
	q := `SELECT ` + edgeColumns + ` FROM edges WHERE object = ?`
	args := []any{nodeID}
	if len(preds) > 0 {
		q += ` AND predicate IN (` + placeholders(len(preds)) + `)`
		args = append(args, preds.args()...)
	}
	rows, err := d.conn.QueryContext(ctx, q+` ORDER BY predicate, subject, id`, args...)
	if err != nil {
		return nil, err
	}
	return collectEdges(rows)
}

// EdgesByPredicate returns every edge carrying one of the given predicates
func (d *DB) EdgesByPredicate(ctx context.Context, preds PredicateSet) ([]Edge, error) {
	if len(preds) == 0 {
		return nil, nil
	}
	rows, err := d.conn.QueryContext(ctx, `
		SELECT `+edgeColumns+` FROM edges
		WHERE predicate IN (`+placeholders(len(preds))+`)
		ORDER BY subject, object, id
	`, preds.args()...)
	if err != nil {
		return nil, err
	}
	return collectEdges(rows)
}

// CountEdges returns the number of rows in edges
func (d *DB) CountEdges(ctx context.Context) (int64, error) {
	var n int64
	err := d.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&n)
	return n, err
}
