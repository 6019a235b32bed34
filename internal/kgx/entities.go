package kgx

import (
	"fmt"
	"io"
	"strings"

	"kgmicrobe/kgreason/internal/db"
)

// Columns a file must carry in its header. Optional columns may be absent and
// read as null; columns outside the entity model are ignored.
var (
	RequiredNodeColumns = []string{"id", "category"}
	RequiredEdgeColumns = []string{"subject", "predicate", "object"}
)

// ParseBool reads the deprecated column: true/false, 1/0, yes/no, t/f, blank is false
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false", "0", "no", "n", "f":
		return false, nil
	case "true", "1", "yes", "y", "t":
		return true, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// NodeFromRow maps a row onto a Node. Required fields are not checked here.
func NodeFromRow(r Row) (db.Node, error) {
	deprecated, err := ParseBool(r.Get("deprecated"))
	if err != nil {
		return db.Node{}, fmt.Errorf("line %d: deprecated: %w", r.Line, err)
	}
	return db.Node{
		ID:          r.Get("id"),
		Category:    r.Get("category"),
		Name:        r.Opt("name"),
		Description: r.Opt("description"),
		Xref:        r.Opt("xref"),
		Synonym:     r.Opt("synonym"),
		IRI:         r.Opt("iri"),
		ProvidedBy:  r.Opt("provided_by"),
		Deprecated:  deprecated,
		Subsets:     r.Opt("subsets"),
	}, nil
}

// EdgeFromRow maps a row onto an Edge
func EdgeFromRow(r Row) db.Edge {
	return db.Edge{
		ID:                     r.Get("id"),
		Subject:                r.Get("subject"),
		Predicate:              r.Get("predicate"),
		Object:                 r.Get("object"),
		Relation:               r.Opt("relation"),
		KnowledgeSource:        r.Opt("knowledge_source"),
		PrimaryKnowledgeSource: r.Opt("primary_knowledge_source"),
	}
}

// EachNode streams every node row of path to fn along with its file line
func EachNode(path string, fn func(n db.Node, line int) error) error {
	return each(path, RequiredNodeColumns, func(r Row) error {
		n, err := NodeFromRow(r)
		if err != nil {
			return err
		}
		return fn(n, r.Line)
	})
}

// EachEdge streams every edge row of path to fn along with its file line
func EachEdge(path string, fn func(e db.Edge, line int) error) error {
	return each(path, RequiredEdgeColumns, func(r Row) error {
		return fn(EdgeFromRow(r), r.Line)
	})
}

func each(path string, required []string, fn func(Row) error) error {
	r, err := Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, col := range required {
		if !r.Has(col) {
			return fmt.Errorf("%s: %w: missing column %q", path, db.ErrConstraint, col)
		}
	}

	for {
		row, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := fn(row); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
}
