package db

import (
	"context"
	"fmt"
)

// InsertResult counts the outcome of one batch insert
type InsertResult struct {
	Inserted int64 `json:"inserted"`
	Ignored  int64 `json:"ignored"` // id already present
}

// Add accumulates another batch's counts
func (r *InsertResult) Add(o InsertResult) {
	r.Inserted += o.Inserted
	r.Ignored += o.Ignored
}

// ValidateNode checks the non-null columns of a node
func ValidateNode(n Node) error {
	switch {
	case n.ID == "":
		return fmt.Errorf("%w: node id is required", ErrConstraint)
	case n.Category == "":
		return fmt.Errorf("%w: node %s: category is required", ErrConstraint, n.ID)
	}
	return nil
}

// ValidateEdge checks the non-null columns of an edge
func ValidateEdge(e Edge) error {
	switch {
	case e.ID == "":
		return fmt.Errorf("%w: edge id is required", ErrConstraint)
	case e.Subject == "":
		return fmt.Errorf("%w: edge %s: subject is required", ErrConstraint, e.ID)
	case e.Predicate == "":
		return fmt.Errorf("%w: edge %s: predicate is required", ErrConstraint, e.ID)
	case e.Object == "":
		return fmt.Errorf("%w: edge %s: object is required", ErrConstraint, e.ID)
	}
	return nil
}

// InsertNodes inserts one batch of nodes in a single transaction.
// Rows whose id already exists are ignored, so reloading the same file is
// idempotent; a missing required field fails the whole batch.
func (d *DB) InsertNodes(ctx context.Context, nodes []Node) (InsertResult, error) {
	var res InsertResult
	for _, n := range nodes {
		if err := ValidateNode(n); err != nil {
			return res, err
		}
	}

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("beginning node batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (`+nodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return res, fmt.Errorf("preparing node insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range nodes {
		r, err := stmt.ExecContext(ctx,
			n.ID, n.Category, nullable(n.Name), nullable(n.Description), nullable(n.Xref),
			nullable(n.Synonym), nullable(n.IRI), nullable(n.ProvidedBy), n.Deprecated, nullable(n.Subsets),
		)
		if err != nil {
			return InsertResult{}, fmt.Errorf("inserting node %s: %w", n.ID, err)
		}
		res.count(r)
	}

	if err := tx.Commit(); err != nil {
		return InsertResult{}, fmt.Errorf("committing node batch: %w", err)
	}
	return res, nil
}

// InsertEdges inserts one batch of edges in a single transaction with the
// same insert-or-ignore semantics as InsertNodes. Subject and object are not
// checked against nodes: edges may arrive before their endpoints.
func (d *DB) InsertEdges(ctx context.Context, edges []Edge) (InsertResult, error) {
	var res InsertResult
	for _, e := range edges {
		if err := ValidateEdge(e); err != nil {
			return res, err
		}
	}

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("beginning edge batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (`+edgeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return res, fmt.Errorf("preparing edge insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		r, err := stmt.ExecContext(ctx,
			e.ID, e.Subject, e.Predicate, e.Object,
			nullable(e.Relation), nullable(e.KnowledgeSource), nullable(e.PrimaryKnowledgeSource),
		)
		if err != nil {
			return InsertResult{}, fmt.Errorf("inserting edge %s: %w", e.ID, err)
		}
		res.count(r)
	}

	if err := tx.Commit(); err != nil {
		return InsertResult{}, fmt.Errorf("committing edge batch: %w", err)
	}
	return res, nil
}

func (r *InsertResult) count(res interface{ RowsAffected() (int64, error) }) {
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		r.Ignored++
		return
	}
	r.Inserted += n
}
