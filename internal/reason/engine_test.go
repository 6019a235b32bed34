package reason

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"kgmicrobe/kgreason/internal/db"
	"kgmicrobe/kgreason/internal/graph"
	"kgmicrobe/kgreason/internal/loader"
)

const (
	fixtureNodes = "id\tcategory\tname\txref\n" +
		"CHEBI:16828\tbiolink:ChemicalSubstance\theme\tKEGG:C00032|CAS:14875-96-8\n" +
		"CHEBI:15841\tbiolink:ChemicalSubstance\tpolypeptide\t\n" +
		"CHEBI:24431\tbiolink:ChemicalSubstance\tchemical entity\t\n" +
		"NCBITaxon:562\tbiolink:OrganismTaxon\tEscherichia coli\t\n" +
		"EC:1.11.1.6\tbiolink:Enzyme\tcatalase\t\n" +
		"medium:65\tbiolink:GrowthMedium\tLB\t\n" +
		"pato:aerobic\tbiolink:PhenotypicQuality\taerobic\t\n"
	fixtureEdges = "id\tsubject\tpredicate\tobject\n" +
		"e1\tCHEBI:16828\tbiolink:subclass_of\tCHEBI:15841\n" +
		"e2\tCHEBI:15841\tbiolink:subclass_of\tCHEBI:24431\n" +
		"e3\tEC:1.11.1.6\tbiolink:has_input\tCHEBI:16828\n" +
		"e4\tmedium:65\tbiolink:has_part\tCHEBI:16828\n" +
		"e5\tNCBITaxon:562\tbiolink:has_phenotype\tpato:aerobic\n" +
		"e6\tNCBITaxon:562\tbiolink:occurs_in\tmedium:65\n" +
		"e7\tNCBITaxon:562\tbiolink:produces\tCHEBI:16828\n"
)

type fixture struct {
	store   *db.DB
	builder *graph.Builder
	metrics *Metrics
	engine  *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	nodes := filepath.Join(dir, "nodes.tsv")
	edges := filepath.Join(dir, "edges.tsv")
	require.NoError(t, os.WriteFile(nodes, []byte(fixtureNodes), 0o644))
	require.NoError(t, os.WriteFile(edges, []byte(fixtureEdges), 0o644))

	store, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	l, err := loader.New(store, zaptest.NewLogger(t), loader.Options{})
	require.NoError(t, err)
	_, err = l.Run(ctx, nodes, edges)
	require.NoError(t, err)

	builder := &graph.Builder{Store: store, NodesPath: nodes, EdgesPath: edges}
	metrics := NewMetrics(prometheus.NewRegistry())
	engine := New(store, builder, WithLogger(zaptest.NewLogger(t)), WithMetrics(metrics))
	return &fixture{store: store, builder: builder, metrics: metrics, engine: engine}
}

func (f *fixture) run(t *testing.T, line string, opts map[string]string) Result {
	t.Helper()
	return f.engine.Run(context.Background(), line, opts)
}

func TestEngine_HemeScenario(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, "path CHEBI:16828 CHEBI:24431", nil)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "path", res.QueryType)
	p := res.Data.(*PathResult)
	assert.Equal(t, []string{"CHEBI:16828", "CHEBI:15841", "CHEBI:24431"}, p.Path)
	assert.Equal(t, 2, p.Length)

	res = f.run(t, "path CHEBI:16828 CHEBI:24431", map[string]string{"max_hops": "1"})
	assert.False(t, res.Success)
	assert.Equal(t, ExceedsLimit, res.ErrorKind)
	assert.Nil(t, res.Data)

	res = f.run(t, "centrality biolink:ChemicalSubstance", nil)
	require.True(t, res.Success, res.Error)
	c := res.Data.(*CentralityResult)
	assert.Equal(t, "betweenness", c.Algorithm)
	assert.Equal(t, 3, c.NodeCount)
	assert.Greater(t, c.Scores["CHEBI:15841"], 0.0)
	require.NotEmpty(t, c.Top)
	assert.Equal(t, "CHEBI:15841", c.Top[0].ID)
}

func TestEngine_Lookup(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, "lookup CHEBI:16828", nil)
	require.True(t, res.Success, res.Error)
	l := res.Data.(*LookupResult)
	assert.Equal(t, "CHEBI:16828", l.Node.ID)
	assert.Equal(t, "biolink:ChemicalSubstance", l.Node.Category)
	require.NotNil(t, l.Node.Name)
	assert.Equal(t, "heme", *l.Node.Name)
	assert.Equal(t, []string{"KEGG:C00032", "CAS:14875-96-8"}, l.Xrefs)

	res = f.run(t, "lookup CHEBI:0000", nil)
	assert.False(t, res.Success)
	assert.Equal(t, NotFound, res.ErrorKind)
	assert.Contains(t, res.Error, "CHEBI:0000")
}

func TestEngine_LookupIDWithEquals(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.InsertNodes(context.Background(), []db.Node{{ID: "X=1", Category: "biolink:Thing"}})
	require.NoError(t, err)

	res := f.run(t, "lookup X=1", nil)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "X=1", res.Data.(*LookupResult).Node.ID)
	assert.Equal(t, "biolink:Thing", res.Data.(*LookupResult).Node.Category)
}

func TestEngine_Neighbors(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, "neighbors CHEBI:16828", nil)
	require.True(t, res.Success, res.Error)
	n := res.Data.(*NeighborsResult)
	assert.Equal(t, 4, n.Count)

	assert.Empty(t, n.MatchedPredicates)

	res = f.run(t, "neighbors CHEBI:15841 subclass_of", nil)
	require.True(t, res.Success, res.Error)
	n = res.Data.(*NeighborsResult)
	assert.ElementsMatch(t, []string{"biolink:subclass_of", "subclass_of"}, n.MatchedPredicates)
	require.Len(t, n.Neighbors, 2)
	for _, nb := range n.Neighbors {
		assert.Equal(t, "biolink:subclass_of", nb.Edge.Predicate)
		switch nb.Direction {
		case Outgoing:
			assert.Equal(t, "CHEBI:15841", nb.Edge.Subject)
			assert.Equal(t, "CHEBI:24431", nb.NeighborID)
		case Incoming:
			assert.Equal(t, "CHEBI:15841", nb.Edge.Object)
			assert.Equal(t, "CHEBI:16828", nb.NeighborID)
		default:
			t.Errorf("unexpected direction %q", nb.Direction)
		}
	}

	// a predicate that never occurs is an empty success
	res = f.run(t, "neighbors CHEBI:16828 biolink:interacts_with", nil)
	require.True(t, res.Success, res.Error)
	assert.Empty(t, res.Data.(*NeighborsResult).Neighbors)

	res = f.run(t, "neighbors CHEBI:0000", nil)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 0, res.Data.(*NeighborsResult).Count)
}

func TestEngine_Filter(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, "filter biolink:ChemicalSubstance limit=2", nil)
	require.True(t, res.Success, res.Error)
	fr := res.Data.(*FilterResult)
	require.Len(t, fr.Nodes, 2)
	assert.Equal(t, "CHEBI:15841", fr.Nodes[0].ID)
	assert.Equal(t, "CHEBI:16828", fr.Nodes[1].ID)

	res = f.run(t, "filter biolink:Nothing", nil)
	require.True(t, res.Success, res.Error)
	assert.Empty(t, res.Data.(*FilterResult).Nodes)
}

func TestEngine_CompositeQueries(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, "enzymes_using CHEBI:16828", nil)
	require.True(t, res.Success, res.Error)
	ez := res.Data.(*EnzymesUsingResult)
	require.Len(t, ez.Enzymes, 1)
	assert.Equal(t, "EC:1.11.1.6", ez.Enzymes[0].ID)
	require.NotNil(t, ez.Substrate)

	res = f.run(t, "media_ingredients medium:65", nil)
	require.True(t, res.Success, res.Error)
	mi := res.Data.(*MediaIngredientsResult)
	require.NotNil(t, mi.Medium)
	assert.Equal(t, "LB", *mi.Medium.Name)
	require.Len(t, mi.Ingredients, 1)
	assert.Equal(t, "CHEBI:16828", mi.Ingredients[0].ID)

	res = f.run(t, "phenotype_media pato:aerobic", nil)
	require.True(t, res.Success, res.Error)
	pm := res.Data.(*PhenotypeMediaResult)
	require.Len(t, pm.Organisms, 1)
	assert.Equal(t, "NCBITaxon:562", pm.Organisms[0].ID)
	require.Len(t, pm.Media, 1)
	assert.Equal(t, "medium:65", pm.Media[0].ID)
	assert.Equal(t, int64(1), pm.Media[0].OrganismCount)
}

func TestEngine_Subgraph(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, "subgraph CHEBI:16828", nil)
	require.True(t, res.Success, res.Error)
	sg := res.Data.(*SubgraphResult)
	assert.Len(t, sg.Nodes, 5)
	assert.Len(t, sg.Edges, 5) // includes the organism to medium edge among kept nodes

	res = f.run(t, "subgraph CHEBI:16828,CHEBI:0000", map[string]string{"radius": "0"})
	require.True(t, res.Success, res.Error)
	sg = res.Data.(*SubgraphResult)
	assert.Equal(t, []string{"CHEBI:0000"}, sg.Missing)
	assert.Len(t, sg.Nodes, 1)

	res = f.run(t, "subgraph CHEBI:0000", nil)
	assert.Equal(t, NotFound, res.ErrorKind)
}

func TestEngine_Hierarchy(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, "hierarchy CHEBI:16828", nil)
	require.True(t, res.Success, res.Error)
	h := res.Data.(*HierarchyResult)
	require.Len(t, h.Entries, 2)
	assert.Equal(t, "CHEBI:15841", h.Entries[0].DescendantID)
	assert.Equal(t, 1, h.Entries[0].PathLength)
	assert.Equal(t, "CHEBI:16828|CHEBI:15841|CHEBI:24431", h.Entries[1].Path)

	res = f.run(t, "hierarchy CHEBI:24431 direction=ancestors", nil)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Data.(*HierarchyResult).Count)

	res = f.run(t, "hierarchy NCBITaxon:562", nil)
	require.True(t, res.Success, res.Error)
	assert.Empty(t, res.Data.(*HierarchyResult).Entries)

	res = f.run(t, "hierarchy CHEBI:0000", nil)
	assert.Equal(t, NotFound, res.ErrorKind)
}

func TestEngine_PathFailures(t *testing.T) {
	f := newFixture(t)

	// edges are followed in their direction only
	res := f.run(t, "path CHEBI:24431 CHEBI:16828", nil)
	assert.Equal(t, NotFound, res.ErrorKind)

	res = f.run(t, "path CHEBI:16828 CHEBI:0000", nil)
	assert.Equal(t, NotFound, res.ErrorKind)
}

func TestEngine_MalformedQueries(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, "", nil)
	assert.False(t, res.Success)
	assert.Equal(t, Malformed, res.ErrorKind)
	assert.Equal(t, "", res.QueryType)

	res = f.run(t, "frobnicate CHEBI:16828", nil)
	assert.Equal(t, UnknownQuery, res.ErrorKind)
	assert.Contains(t, res.Error, "enzymes_using")

	res = f.run(t, "lookup", nil)
	assert.Equal(t, Malformed, res.ErrorKind)
	assert.Equal(t, "lookup", res.QueryType)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Queries.WithLabelValues("unknown", "unknown_query")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Queries.WithLabelValues("lookup", "malformed")))
}

func TestEngine_WithoutGraphBuilder(t *testing.T) {
	f := newFixture(t)
	e := New(f.store, nil)

	for _, line := range []string{"path CHEBI:16828 CHEBI:24431", "centrality biolink:ChemicalSubstance", "subgraph CHEBI:16828"} {
		res := e.Run(context.Background(), line, nil)
		assert.Equal(t, GraphUnavailable, res.ErrorKind, line)
	}

	// relational queries are unaffected
	assert.True(t, e.Run(context.Background(), "lookup CHEBI:16828", nil).Success)
	assert.True(t, e.Run(context.Background(), "filter biolink:ChemicalSubstance", nil).Success)
}

func TestEngine_BrokenSourceIsGraphUnavailable(t *testing.T) {
	e := New(nil, &graph.Builder{})
	res := e.Run(context.Background(), "path A B", nil)
	assert.Equal(t, GraphUnavailable, res.ErrorKind)
}

func TestEngine_GraphIsBuiltOnce(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := f.engine.Run(context.Background(), "path CHEBI:16828 CHEBI:24431", nil)
			assert.True(t, res.Success, res.Error)
		}()
	}
	wg.Wait()

	f.run(t, "subgraph CHEBI:16828", nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Builds.WithLabelValues(ScopeFull)))
	assert.Equal(t, 8.0, testutil.ToFloat64(f.metrics.Queries.WithLabelValues("path", "success")))

	f.run(t, "centrality biolink:ChemicalSubstance", nil)
	f.run(t, "centrality biolink:ChemicalSubstance algorithm=degree", nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Builds.WithLabelValues(ScopeCategory)))

	f.engine.Reset()
	f.run(t, "path CHEBI:16828 CHEBI:24431", nil)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Builds.WithLabelValues(ScopeFull)))
}

func TestEngine_CancelledCallerDoesNotFailSharedBuild(t *testing.T) {
	e := New(nil, &graph.Builder{}, WithMetrics(NewMetrics(prometheus.NewRegistry())))

	var calls atomic.Int32
	started, release := make(chan struct{}), make(chan struct{})
	build := func(ctx context.Context) (*graph.GraphSnapshot, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return graph.NewSnapshot(nil, nil), nil
	}

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := e.snapshot(first, ScopeFull, "", build)
		firstErr <- err
	}()
	<-started
	cancel()
	assert.ErrorIs(t, <-firstErr, ErrGraphUnavailable)

	second := make(chan error, 1)
	go func() {
		snap, err := e.snapshot(context.Background(), ScopeFull, "", build)
		if err == nil && snap == nil {
			err = errors.New("nil snapshot")
		}
		second <- err
	}()
	close(release)
	require.NoError(t, <-second)
	assert.EqualValues(t, 1, calls.Load())
	assert.NotNil(t, e.cached(ScopeFull+":"))
}

func TestEngine_ExecuteTypedQuery(t *testing.T) {
	f := newFixture(t)

	res := f.engine.Execute(context.Background(), CentralityQuery{Category: "biolink:ChemicalSubstance", Algorithm: "eigenvector", Limit: 5})
	assert.Equal(t, Malformed, res.ErrorKind)

	res = f.engine.Execute(context.Background(), FilterQuery{Category: "biolink:Enzyme", Limit: 10})
	require.True(t, res.Success, res.Error)
	assert.NoError(t, res.Err())
	assert.Equal(t, 1, res.Data.(*FilterResult).Count)
}
