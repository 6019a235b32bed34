package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// newTestDB returns an in-memory database with the schema created
func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, d.CreateSchema(context.Background(), true))
	return d
}

func node(id, category, name string) Node {
	n := Node{ID: id, Category: category}
	if name != "" {
		n.Name = strPtr(name)
	}
	return n
}

func edge(id, subject, predicate, object string) Edge {
	return Edge{ID: id, Subject: subject, Predicate: predicate, Object: object}
}

func seed(t *testing.T, d *DB, nodes []Node, edges []Edge) {
	t.Helper()
	ctx := context.Background()
	if len(nodes) > 0 {
		_, err := d.InsertNodes(ctx, nodes)
		require.NoError(t, err)
	}
	if len(edges) > 0 {
		_, err := d.InsertEdges(ctx, edges)
		require.NoError(t, err)
	}
}

func TestCreateSchema_IfNotExistsIsNoop(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.CreateSchema(ctx, true))

	err := d.CreateSchema(ctx, false)
	assert.ErrorIs(t, err, ErrSchemaExists)
}

func TestCreateSchema_Indexes(t *testing.T) {
	d := newTestDB(t)

	names, err := d.IndexNames(context.Background())
	require.NoError(t, err)

	var want []string
	for _, idx := range Indexes {
		want = append(want, idx.Name)
	}
	assert.ElementsMatch(t, want, names)
	assert.Len(t, names, 8)
}

func TestDropSchema(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.DropSchema(ctx))
	exists, err := d.SchemaExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	// Fresh create without IF NOT EXISTS works again after a drop
	require.NoError(t, d.CreateSchema(ctx, false))
}

func TestInsertNodes_DuplicateIDsIgnored(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	batch := []Node{
		node("CHEBI:16828", "biolink:ChemicalSubstance", "heme"),
		node("CHEBI:15841", "biolink:ChemicalSubstance", "polypeptide"),
	}

	res, err := d.InsertNodes(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, InsertResult{Inserted: 2}, res)

	res, err = d.InsertNodes(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, InsertResult{Ignored: 2}, res)

	n, err := d.CountNodes(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestInsertNodes_MissingCategory(t *testing.T) {
	d := newTestDB(t)

	_, err := d.InsertNodes(context.Background(), []Node{
		node("A", "biolink:ChemicalSubstance", ""),
		{ID: "B"},
	})
	assert.ErrorIs(t, err, ErrConstraint)

	n, err := d.CountNodes(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "a rejected batch inserts nothing")
}

func TestInsertEdges_EndpointsNeedNotExist(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	res, err := d.InsertEdges(ctx, []Edge{
		edge("e1", "X", "biolink:related_to", "Y"),
		edge("e2", "X", "biolink:related_to", "Y"),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Inserted, "parallel edges with distinct ids are kept")

	_, err = d.InsertEdges(ctx, []Edge{{ID: "e3", Subject: "X", Object: "Y"}})
	assert.ErrorIs(t, err, ErrConstraint)
}

func TestGetNode_RoundTrip(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	want := Node{
		ID:         "CHEBI:16828",
		Category:   "biolink:ChemicalSubstance",
		Name:       strPtr("heme"),
		Xref:       strPtr("KEGG:C00032|CAS:14875-96-8"),
		Synonym:    strPtr("haem"),
		Deprecated: true,
	}
	seed(t, d, []Node{want}, nil)

	got, err := d.GetNode(ctx, "CHEBI:16828")
	require.NoError(t, err)
	assert.Equal(t, want, *got)
	assert.Equal(t, []string{"KEGG:C00032", "CAS:14875-96-8"}, got.Xrefs())

	_, err = d.GetNode(ctx, "CHEBI:0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNodesByCategory_Limit(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	seed(t, d, []Node{
		node("C1", "biolink:ChemicalSubstance", ""),
		node("C2", "biolink:ChemicalSubstance", ""),
		node("C3", "biolink:ChemicalSubstance", ""),
		node("T1", "biolink:OrganismTaxon", ""),
	}, nil)

	got, err := d.NodesByCategory(ctx, "biolink:ChemicalSubstance", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "C1", got[0].ID)

	all, err := d.NodesByCategory(ctx, "biolink:ChemicalSubstance", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	counts, err := d.CategoryCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"biolink:ChemicalSubstance": 3, "biolink:OrganismTaxon": 1}, counts)
}

func TestOutgoingIncomingEdges_PredicateSpellings(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	seed(t, d, nil, []Edge{
		edge("e1", "M", "biolink:has_part", "I1"),
		edge("e2", "M", "has_part", "I2"),
		edge("e3", "M", "biolink:related_to", "I3"),
		edge("e4", "O", "biolink:occurs_in", "M"),
	})

	out, err := d.OutgoingEdges(ctx, "M", Predicates("has_part"))
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, e := range out {
		assert.Contains(t, []string{"I1", "I2"}, e.Object)
	}

	all, err := d.OutgoingEdges(ctx, "M", nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	in, err := d.IncomingEdges(ctx, "M", nil)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, "O", in[0].Subject)
}

func TestPredicates(t *testing.T) {
	assert.Equal(t, PredicateSet{"biolink:has_part", "has_part"}, Predicates("biolink:has_part"))
	assert.Equal(t, PredicateSet{"subclass_of", "biolink:subclass_of"}, Predicates("subclass_of"))
	assert.Equal(t, PredicateSet{"rdfs:subClassOf", "subClassOf", "biolink:subclass_of", "subclass_of"},
		Predicates("rdfs:subClassOf", "biolink:subclass_of"))
	assert.Nil(t, Predicates(""))
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(nil))
	assert.Nil(t, SplitList(strPtr("")))
	assert.Equal(t, []string{"a", "b"}, SplitList(strPtr("a| |b|")))
}
