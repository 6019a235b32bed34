package db

import "strings"

// ListSeparator joins multi-valued cells (xref, synonym, subsets, hierarchy path)
const ListSeparator = "|"

// Node represents a row in the nodes table
type Node struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`    // "biolink:ChemicalSubstance", "biolink:OrganismTaxon", ...
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Xref        *string `json:"xref"`    // pipe-delimited
	Synonym     *string `json:"synonym"` // pipe-delimited
	IRI         *string `json:"iri"`
	ProvidedBy  *string `json:"provided_by"`
	Deprecated  bool    `json:"deprecated"`
	Subsets     *string `json:"subsets"` // pipe-delimited
}

// Xrefs returns the cross-references as a list
func (n Node) Xrefs() []string { return SplitList(n.Xref) }

// Synonyms returns the synonyms as a list
func (n Node) Synonyms() []string { return SplitList(n.Synonym) }

// DisplayName returns the name, falling back to the id
func (n Node) DisplayName() string {
	if n.Name != nil && *n.Name != "" {
		return *n.Name
	}
	return n.ID
}

// Edge represents a row in the edges table
type Edge struct {
	ID                     string  `json:"id"`
	Subject                string  `json:"subject"`
	Predicate              string  `json:"predicate"` // "biolink:subclass_of", "biolink:has_part", ...
	Object                 string  `json:"object"`
	Relation               *string `json:"relation"`
	KnowledgeSource        *string `json:"knowledge_source"`
	PrimaryKnowledgeSource *string `json:"primary_knowledge_source"`
}

// HierarchyEntry represents a row in the hierarchies table: one pair of the
// materialized closure over the hierarchy predicate.
type HierarchyEntry struct {
	AncestorID   string `json:"ancestor_id"`
	DescendantID string `json:"descendant_id"`
	PathLength   int    `json:"path_length"`
	Path         string `json:"path"` // pipe-delimited, ancestor first
}

// Nodes returns the path as an ordered list of node ids
func (h HierarchyEntry) Nodes() []string { return SplitList(&h.Path) }

// PredicateStat represents a row in the predicate_index table
type PredicateStat struct {
	Predicate      string  `json:"predicate"`
	EdgeCount      int64   `json:"edge_count"`
	Description    *string `json:"description"`
	DomainCategory *string `json:"domain_category"`
	RangeCategory  *string `json:"range_category"`
}

// SplitList splits a pipe-delimited cell, dropping empty items
func SplitList(s *string) []string {
	if s == nil || *s == "" {
		return nil
	}
	parts := strings.Split(*s, ListSeparator)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
