package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgmicrobe/kgreason/internal/db"
	"kgmicrobe/kgreason/internal/graph"
	"kgmicrobe/kgreason/internal/reason"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()

	store, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.CreateSchema(ctx, true))

	name := func(s string) *string { return &s }
	_, err = store.InsertNodes(ctx, []db.Node{
		{ID: "CHEBI:16828", Category: "biolink:ChemicalSubstance", Name: name("heme")},
		{ID: "CHEBI:15841", Category: "biolink:ChemicalSubstance", Name: name("polypeptide")},
		{ID: "CHEBI:24431", Category: "biolink:ChemicalSubstance", Name: name("chemical entity")},
	})
	require.NoError(t, err)
	_, err = store.InsertEdges(ctx, []db.Edge{
		{ID: "e1", Subject: "CHEBI:16828", Predicate: "biolink:subclass_of", Object: "CHEBI:15841"},
		{ID: "e2", Subject: "CHEBI:15841", Predicate: "biolink:subclass_of", Object: "CHEBI:24431"},
	})
	require.NoError(t, err)
	_, err = store.RebuildPredicateIndex(ctx, nil)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	engine := reason.New(store, &graph.Builder{Store: store}, reason.WithMetrics(reason.NewMetrics(reg)))
	return New(engine, store, reg, nil)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestQuery_Path(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/query", `{"query": "path CHEBI:16828 CHEBI:24431"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	out := decode(t, w)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "path", out["query_type"])
	data := out["data"].(map[string]any)
	assert.Equal(t, []any{"CHEBI:16828", "CHEBI:15841", "CHEBI:24431"}, data["path"])
	assert.Equal(t, float64(2), data["length"])
}

func TestQuery_StatusByErrorKind(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		body string
		code int
		kind string
	}{
		{`{"query": "lookup CHEBI:0000"}`, http.StatusNotFound, "not_found"},
		{`{"query": "frobnicate x"}`, http.StatusBadRequest, "unknown_query"},
		{`{"query": "path CHEBI:16828"}`, http.StatusBadRequest, "malformed"},
		{`{"query": "path CHEBI:16828 CHEBI:24431", "options": {"max_hops": "1"}}`, http.StatusUnprocessableEntity, "exceeds_limit"},
	}
	for _, tt := range tests {
		w := do(t, s, http.MethodPost, "/v1/query", tt.body)
		assert.Equal(t, tt.code, w.Code, tt.body)
		out := decode(t, w)
		assert.Equal(t, false, out["success"], tt.body)
		assert.Equal(t, tt.kind, out["error_kind"], tt.body)
	}
}

func TestQuery_BadBody(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/query", `{"options": {}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "malformed", decode(t, w)["error_kind"])

	w = do(t, s, http.MethodPost, "/v1/query", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatch_KeepsRequestOrder(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/queries", `{"queries": [
		{"query": "lookup CHEBI:16828"},
		{"query": "lookup CHEBI:0000"},
		{"query": "filter biolink:ChemicalSubstance", "options": {"limit": "1"}}
	]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	results := decode(t, w)["results"].([]any)
	require.Len(t, results, 3)
	assert.Equal(t, true, results[0].(map[string]any)["success"])
	assert.Equal(t, false, results[1].(map[string]any)["success"])
	assert.Equal(t, "filter", results[2].(map[string]any)["query_type"])

	w = do(t, s, http.MethodPost, "/v1/queries", `{"queries": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredicatesAndStats(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/v1/predicates", "")
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, float64(1), out["count"])
	first := out["predicates"].([]any)[0].(map[string]any)
	assert.Equal(t, "biolink:subclass_of", first["predicate"])
	assert.Equal(t, float64(2), first["edge_count"])

	w = do(t, s, http.MethodGet, "/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w)["nodes"])

	w = do(t, s, http.MethodGet, "/v1/query-types", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["query_types"], len(reason.Kinds))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	do(t, s, http.MethodPost, "/v1/query", `{"query": "lookup CHEBI:16828"}`)
	w = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `kgreason_queries_total{outcome="success",query_type="lookup"} 1`), body)
}
