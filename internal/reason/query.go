// Package reason answers structural queries over the knowledge graph: relational
// lookups against the store and graph algorithms against lazily built snapshots.
package reason

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"kgmicrobe/kgreason/internal/graph"
)

// Kind names a query type. It is echoed back as Result.QueryType.
type Kind string

const (
	KindLookup           Kind = "lookup"
	KindNeighbors        Kind = "neighbors"
	KindPath             Kind = "path"
	KindFilter           Kind = "filter"
	KindEnzymesUsing     Kind = "enzymes_using"
	KindMediaIngredients Kind = "media_ingredients"
	KindPhenotypeMedia   Kind = "phenotype_media"
	KindCentrality       Kind = "centrality"
	KindSubgraph         Kind = "subgraph"
	KindHierarchy        Kind = "hierarchy"
)

// Kinds lists every supported query type in documentation order
var Kinds = []Kind{
	KindLookup, KindNeighbors, KindPath, KindFilter, KindEnzymesUsing,
	KindMediaIngredients, KindPhenotypeMedia, KindCentrality, KindSubgraph, KindHierarchy,
}

// Defaults for optional arguments
const (
	DefaultMaxHops         = 10
	DefaultFilterLimit     = 100
	DefaultCentralityLimit = 20
	DefaultRadius          = 1
	DefaultAlgorithm       = graph.Betweenness

	maxRadius = 5
)

// Hierarchy directions, named after the hierarchies table columns
const (
	DirectionDescendants = "descendants" // rows where the node is ancestor_id
	DirectionAncestors   = "ancestors"   // rows where the node is descendant_id
)

// Query is one parsed query. The concrete type selects the handler.
type Query interface {
	Kind() Kind
}

type LookupQuery struct {
	NodeID string
}

// NeighborsQuery returns edges touching NodeID, optionally restricted to one predicate
type NeighborsQuery struct {
	NodeID    string
	Predicate string
}

type PathQuery struct {
	Source  string
	Target  string
	MaxHops int
}

type FilterQuery struct {
	Category string
	Limit    int
}

type EnzymesUsingQuery struct {
	SubstrateID string
}

type MediaIngredientsQuery struct {
	MediaID string
}

// PhenotypeMediaQuery matches organisms having any of the phenotypes
type PhenotypeMediaQuery struct {
	PhenotypeIDs []string
}

// CentralityQuery scores the graph restricted to Category. Limit bounds the ranked list only.
type CentralityQuery struct {
	Category  string
	Algorithm string
	Limit     int
}

type SubgraphQuery struct {
	NodeIDs []string
	Radius  int
}

type HierarchyQuery struct {
	NodeID    string
	Direction string
}

func (LookupQuery) Kind() Kind           { return KindLookup }
func (NeighborsQuery) Kind() Kind        { return KindNeighbors }
func (PathQuery) Kind() Kind             { return KindPath }
func (FilterQuery) Kind() Kind           { return KindFilter }
func (EnzymesUsingQuery) Kind() Kind     { return KindEnzymesUsing }
func (MediaIngredientsQuery) Kind() Kind { return KindMediaIngredients }
func (PhenotypeMediaQuery) Kind() Kind   { return KindPhenotypeMedia }
func (CentralityQuery) Kind() Kind       { return KindCentrality }
func (SubgraphQuery) Kind() Kind         { return KindSubgraph }
func (HierarchyQuery) Kind() Kind        { return KindHierarchy }

// grammar describes the positional arguments of a query type. Optional
// positionals may also be given as named options.
type grammar struct {
	required []string
	optional []string
	build    func(a *args) (Query, error)
}

var grammars = map[Kind]grammar{
	KindLookup: {
		required: []string{"node_id"},
		build: func(a *args) (Query, error) {
			return LookupQuery{NodeID: a.str("node_id")}, nil
		},
	},
	KindNeighbors: {
		required: []string{"node_id"},
		optional: []string{"predicate"},
		build: func(a *args) (Query, error) {
			return NeighborsQuery{NodeID: a.str("node_id"), Predicate: a.str("predicate")}, nil
		},
	},
	KindPath: {
		required: []string{"source_id", "target_id"},
		optional: []string{"max_hops"},
		build: func(a *args) (Query, error) {
			hops, err := a.integer("max_hops", DefaultMaxHops, 1, -1)
			if err != nil {
				return nil, err
			}
			return PathQuery{Source: a.str("source_id"), Target: a.str("target_id"), MaxHops: hops}, nil
		},
	},
	KindFilter: {
		required: []string{"category"},
		optional: []string{"limit"},
		build: func(a *args) (Query, error) {
			limit, err := a.integer("limit", DefaultFilterLimit, 1, -1)
			if err != nil {
				return nil, err
			}
			return FilterQuery{Category: a.str("category"), Limit: limit}, nil
		},
	},
	KindEnzymesUsing: {
		required: []string{"substrate_id"},
		build: func(a *args) (Query, error) {
			return EnzymesUsingQuery{SubstrateID: a.str("substrate_id")}, nil
		},
	},
	KindMediaIngredients: {
		required: []string{"media_id"},
		build: func(a *args) (Query, error) {
			return MediaIngredientsQuery{MediaID: a.str("media_id")}, nil
		},
	},
	KindPhenotypeMedia: {
		required: []string{"phenotype_ids"},
		build: func(a *args) (Query, error) {
			ids := splitIDs(a.str("phenotype_ids"))
			if len(ids) == 0 {
				return nil, fmt.Errorf("%w: phenotype_media needs at least one phenotype id", ErrMalformed)
			}
			return PhenotypeMediaQuery{PhenotypeIDs: ids}, nil
		},
	},
	KindCentrality: {
		required: []string{"category"},
		optional: []string{"algorithm", "limit"},
		build: func(a *args) (Query, error) {
			algorithm := strings.ToLower(a.str("algorithm"))
			if algorithm == "" {
				algorithm = DefaultAlgorithm
			}
			if !supported(algorithm) {
				return nil, fmt.Errorf("%w: algorithm %q not one of %s", ErrMalformed, algorithm, strings.Join(graph.Algorithms, ", "))
			}
			limit, err := a.integer("limit", DefaultCentralityLimit, 1, -1)
			if err != nil {
				return nil, err
			}
			return CentralityQuery{Category: a.str("category"), Algorithm: algorithm, Limit: limit}, nil
		},
	},
	KindSubgraph: {
		required: []string{"node_ids"},
		optional: []string{"radius"},
		build: func(a *args) (Query, error) {
			ids := splitIDs(a.str("node_ids"))
			if len(ids) == 0 {
				return nil, fmt.Errorf("%w: subgraph needs at least one node id", ErrMalformed)
			}
			radius, err := a.integer("radius", DefaultRadius, 0, maxRadius)
			if err != nil {
				return nil, err
			}
			return SubgraphQuery{NodeIDs: ids, Radius: radius}, nil
		},
	},
	KindHierarchy: {
		required: []string{"node_id"},
		optional: []string{"direction"},
		build: func(a *args) (Query, error) {
			dir := strings.ToLower(a.str("direction"))
			switch dir {
			case "":
				dir = DirectionDescendants
			case DirectionDescendants, DirectionAncestors:
			default:
				return nil, fmt.Errorf("%w: direction %q not one of %s, %s", ErrMalformed, dir, DirectionDescendants, DirectionAncestors)
			}
			return HierarchyQuery{NodeID: a.str("node_id"), Direction: dir}, nil
		},
	},
}

// optionNames are the keys accepted as inline key=value tokens. Any other
// token containing "=" is positional, since node ids may contain "=".
var optionNames = func() map[string]bool {
	names := make(map[string]bool)
	for _, g := range grammars {
		for _, name := range g.optional {
			names[name] = true
		}
	}
	return names
}()

// inlineOption splits tok into a named option when its key is an option name
func inlineOption(tok string) (key, val string, ok bool) {
	key, val, ok = strings.Cut(tok, "=")
	key = strings.ToLower(key)
	return key, val, ok && optionNames[key]
}

// Parse turns a single-line command into a typed Query. Named options may be
// written inline as key=value tokens or passed in opts; opts wins on conflict.
// Options that do not apply to the query type are ignored.
func Parse(line string, opts map[string]string) (Query, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty query", ErrMalformed)
	}

	kind := Kind(strings.ToLower(fields[0]))
	g, ok := grammars[kind]
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnknownQuery, fields[0], supportedList())
	}

	a := &args{values: make(map[string]string)}
	var positional []string
	for _, tok := range fields[1:] {
		if key, val, ok := inlineOption(tok); ok {
			a.values[key] = val
			continue
		}
		positional = append(positional, tok)
	}
	for k, v := range opts {
		a.values[strings.ToLower(k)] = v
	}

	names := append(append([]string{}, g.required...), g.optional...)
	for i, val := range positional {
		if i >= len(names) {
			if kind == KindPhenotypeMedia {
				// space separated ids are accepted as well as commas
				a.values["phenotype_ids"] += "," + val
				continue
			}
			return nil, fmt.Errorf("%w: unexpected argument %q for %s", ErrMalformed, val, kind)
		}
		if i >= len(g.required) {
			// positional optional loses to an explicit option
			if _, set := a.values[names[i]]; set {
				continue
			}
		}
		a.values[names[i]] = val
	}

	var missing []string
	for _, name := range g.required {
		if a.str(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s requires %s", ErrMalformed, kind, strings.Join(missing, ", "))
	}

	return g.build(a)
}

type args struct {
	values map[string]string
}

func (a *args) str(name string) string {
	return strings.TrimSpace(a.values[name])
}

// integer parses an option, falling back to def when unset. hi < 0 means unbounded.
func (a *args) integer(name string, def, lo, hi int) (int, error) {
	raw := a.str(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrMalformed, name, raw)
	}
	if n < lo || (hi >= 0 && n > hi) {
		if hi < 0 {
			return 0, fmt.Errorf("%w: %s=%d must be at least %d", ErrMalformed, name, n, lo)
		}
		return 0, fmt.Errorf("%w: %s=%d outside %d..%d", ErrMalformed, name, n, lo, hi)
	}
	return n, nil
}

func splitIDs(s string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		ids = append(ids, part)
	}
	return ids
}

func supported(algorithm string) bool {
	for _, a := range graph.Algorithms {
		if a == algorithm {
			return true
		}
	}
	return false
}

func supportedList() string {
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = string(k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
