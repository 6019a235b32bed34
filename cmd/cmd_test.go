package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgmicrobe/kgreason/internal/db"
)

func strPtr(s string) *string { return &s }

func TestParseOpts(t *testing.T) {
	opts, err := parseOpts([]string{"max_hops=3", "predicate=biolink:subclass_of", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"max_hops":  "3",
		"predicate": "biolink:subclass_of",
		"empty":     "",
	}, opts)

	for _, bad := range []string{"max_hops", "=3"} {
		_, err := parseOpts([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestReadQueryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.txt")
	content := "# smoke queries\nlookup CHEBI:30413\n\n  path CHEBI:30413 CHEBI:24431  \n# trailing\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	lines, err := readQueryFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"lookup CHEBI:30413", "path CHEBI:30413 CHEBI:24431"}, lines)
}

func TestReadQueryFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.txt")
	require.NoError(t, os.WriteFile(path, []byte("# nothing\n\n"), 0o644))

	_, err := readQueryFile(path)
	assert.ErrorContains(t, err, "no queries")

	_, err = readQueryFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestResolveNode(t *testing.T) {
	ctx := context.Background()
	d, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, d.CreateSchema(ctx, true))

	_, err = d.InsertNodes(ctx, []db.Node{
		{ID: "CHEBI:30413", Category: "biolink:ChemicalEntity", Name: strPtr("heme")},
		{ID: "NCBITaxon:562", Category: "biolink:OrganismTaxon", Name: strPtr("E. coli")},
		{ID: "NCBITaxon:83333", Category: "biolink:OrganismTaxon", Name: strPtr("E. coli")},
	})
	require.NoError(t, err)

	node, err := ResolveNode(ctx, d, "CHEBI:30413")
	require.NoError(t, err)
	assert.Equal(t, "heme", *node.Name)

	node, err = ResolveNode(ctx, d, "heme")
	require.NoError(t, err)
	assert.Equal(t, "CHEBI:30413", node.ID)

	_, err = ResolveNode(ctx, d, "E. coli")
	assert.ErrorContains(t, err, "ambiguous reference")
	assert.ErrorContains(t, err, "NCBITaxon:83333")

	_, err = ResolveNode(ctx, d, "hemoglobin")
	assert.ErrorContains(t, err, "node not found")
}

func TestTruncName(t *testing.T) {
	assert.Equal(t, "heme", truncName("heme", 10))
	assert.Equal(t, "polyp...", truncName("polypeptide", 5))
	// multi-byte rune is not split
	assert.Equal(t, "ab...", truncName("abé", 3))
}
