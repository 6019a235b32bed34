package reason

import (
	"errors"
	"fmt"

	"kgmicrobe/kgreason/internal/db"
	"kgmicrobe/kgreason/internal/graph"
)

var (
	ErrMalformed        = errors.New("malformed query")
	ErrUnknownQuery     = errors.New("unknown query type")
	ErrNotFound         = errors.New("not found")
	ErrExceedsLimit     = errors.New("exceeds limit")
	ErrGraphUnavailable = errors.New("graph unavailable")
)

// ErrorKind classifies a failed Result so callers can branch without parsing messages
type ErrorKind string

const (
	Malformed        ErrorKind = "malformed"
	UnknownQuery     ErrorKind = "unknown_query"
	NotFound         ErrorKind = "not_found"
	ExceedsLimit     ErrorKind = "exceeds_limit"
	GraphUnavailable ErrorKind = "graph_unavailable"
	Internal         ErrorKind = "internal"
)

// ErrorKindOf maps an error from parsing or handling to its kind
func ErrorKindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrMalformed), errors.Is(err, graph.ErrUnknownAlgorithm):
		return Malformed
	case errors.Is(err, ErrUnknownQuery):
		return UnknownQuery
	case errors.Is(err, ErrNotFound), errors.Is(err, db.ErrNotFound),
		errors.Is(err, graph.ErrNodeNotInGraph), errors.Is(err, graph.ErrNoPath):
		return NotFound
	case errors.Is(err, ErrExceedsLimit):
		return ExceedsLimit
	case errors.Is(err, ErrGraphUnavailable):
		return GraphUnavailable
	default:
		return Internal
	}
}

// Result is the uniform envelope returned for every query. Data holds the
// payload type matching QueryType and is nil on failure.
type Result struct {
	Success   bool      `json:"success"`
	QueryType string    `json:"query_type"`
	Error     string    `json:"error,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Data      any       `json:"data,omitempty"`
}

func success(kind Kind, data any) Result {
	return Result{Success: true, QueryType: string(kind), Data: data}
}

func failure(queryType string, err error) Result {
	return Result{QueryType: queryType, Error: err.Error(), ErrorKind: ErrorKindOf(err)}
}

// Outcome is the metrics label for the result: "success" or the error kind
func (r Result) Outcome() string {
	if r.Success {
		return "success"
	}
	return string(r.ErrorKind)
}

// Err returns the failure as an error, nil on success
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	return fmt.Errorf("%s: %s", r.QueryType, r.Error)
}

type LookupResult struct {
	Node     db.Node  `json:"node"`
	Xrefs    []string `json:"xrefs,omitempty"`
	Synonyms []string `json:"synonyms,omitempty"`
}

// Directions of a neighbor edge relative to the queried node
const (
	Outgoing = "outgoing"
	Incoming = "incoming"
)

type Neighbor struct {
	Direction  string  `json:"direction"`
	NeighborID string  `json:"neighbor_id"`
	Edge       db.Edge `json:"edge"`
}

// NeighborsResult lists the edges at NodeID. MatchedPredicates holds every
// spelling the predicate filter accepted, CURIE and bare.
type NeighborsResult struct {
	NodeID            string     `json:"node_id"`
	Predicate         string     `json:"predicate,omitempty"`
	MatchedPredicates []string   `json:"matched_predicates,omitempty"`
	Count             int        `json:"count"`
	Neighbors         []Neighbor `json:"neighbors"`
}

type PathResult struct {
	Source  string   `json:"source"`
	Target  string   `json:"target"`
	Path    []string `json:"path"`
	Length  int      `json:"length"`
	MaxHops int      `json:"max_hops"`
}

type FilterResult struct {
	Category string    `json:"category"`
	Limit    int       `json:"limit"`
	Count    int       `json:"count"`
	Nodes    []db.Node `json:"nodes"`
}

type EnzymesUsingResult struct {
	SubstrateID string          `json:"substrate_id"`
	Substrate   *db.Node        `json:"substrate,omitempty"`
	Count       int             `json:"count"`
	Enzymes     []db.LinkedNode `json:"enzymes"`
}

type MediaIngredientsResult struct {
	MediaID     string          `json:"media_id"`
	Medium      *db.Node        `json:"medium,omitempty"`
	Count       int             `json:"count"`
	Ingredients []db.LinkedNode `json:"ingredients"`
}

type PhenotypeMediaResult struct {
	PhenotypeIDs []string               `json:"phenotype_ids"`
	Organisms    []db.PhenotypeOrganism `json:"organisms"`
	Media        []db.MediumUsage       `json:"media"`
}

type CentralityResult struct {
	Category  string             `json:"category"`
	Algorithm string             `json:"algorithm"`
	NodeCount int                `json:"node_count"`
	EdgeCount int                `json:"edge_count"`
	Scores    map[string]float64 `json:"scores"`
	Top       []graph.Score      `json:"top"`
}

type SubgraphResult struct {
	Centers []string          `json:"centers"`
	Radius  int               `json:"radius"`
	Missing []string          `json:"missing,omitempty"`
	Nodes   []*graph.NodeInfo `json:"nodes"`
	Edges   []graph.EdgeInfo  `json:"edges"`
}

type HierarchyResult struct {
	NodeID    string              `json:"node_id"`
	Direction string              `json:"direction"`
	Count     int                 `json:"count"`
	Entries   []db.HierarchyEntry `json:"entries"`
}
