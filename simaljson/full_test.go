package simaljson_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simal-lang/simal/internal/testutil"
	"github.com/simal-lang/simal/parser"
	"github.com/simal-lang/simal/simaljson"
)

const roundTripSrc = `system {
  type: microservices
  mail: { driver: smtp, port: 587 }
  @OWNER(core)
  service users {
    langs: [go, rust]
    components: [
      database UserRepo { engine: postgres-12 }
    ]
    fields: [ +ID: UUID  -Hash: string ]
    methods: [
      +GetUser(uuid string) -> User { description: fetches }
    ]
    api: {
      endpoints: [
        GET /users/{id} -> JSON{user: User?, error: str?} [auth:true]
        GetUser(Req{uuid str}) -> (user: User?, error: str?)
      ]
    }
  }
}`

func TestFullGolden(t *testing.T) {
	sys, err := parser.Parse("t.simal", []byte("system { a: x }"))
	require.NoError(t, err)
	out, err := simaljson.Full(sys)
	require.NoError(t, err)
	testutil.RequireJSONEq(t, []byte(`{
		"__type__": "System",
		"attributes": [{"key": "a", "value": "x"}],
		"services": []
	}`), out)
}

func TestFullRoundTrip(t *testing.T) {
	sys, err := parser.Parse("t.simal", []byte(roundTripSrc), parser.WithoutEnrichment())
	require.NoError(t, err)

	data, err := simaljson.Full(sys)
	require.NoError(t, err)

	back, err := simaljson.FromFull(data)
	require.NoError(t, err)

	if diff := cmp.Diff(sys, back); diff != "" {
		t.Fatalf("round trip changed the AST (-orig +back):\n%s", diff)
	}
}

func TestFullRoundTripIsStable(t *testing.T) {
	sys, err := parser.Parse("t.simal", []byte(roundTripSrc), parser.WithoutEnrichment())
	require.NoError(t, err)

	first, err := simaljson.Full(sys)
	require.NoError(t, err)
	back, err := simaljson.FromFull(first)
	require.NoError(t, err)
	second, err := simaljson.Full(back)
	require.NoError(t, err)

	testutil.RequireJSONEq(t, first, second)
}

func TestFullPreservesOrderAndAnnotations(t *testing.T) {
	sys, err := parser.Parse("t.simal", []byte("system {\n  z: 1\n  @A(2)\n  a: 2\n  m: 3\n}"))
	require.NoError(t, err)
	out, err := simaljson.Full(sys)
	require.NoError(t, err)

	var doc struct {
		Attributes []struct {
			Key         string `json:"key"`
			Annotations []struct {
				Type string   `json:"__type__"`
				Name string   `json:"name"`
				Args []string `json:"args"`
			} `json:"annotations"`
		} `json:"attributes"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))

	keys := make([]string, 0, len(doc.Attributes))
	for _, a := range doc.Attributes {
		keys = append(keys, a.Key)
	}
	assert.Equal(t, []string{"z", "a", "m"}, keys)

	// the annotation sits on 'a' and nowhere else
	assert.Empty(t, doc.Attributes[0].Annotations)
	require.Len(t, doc.Attributes[1].Annotations, 1)
	assert.Equal(t, "Annotation", doc.Attributes[1].Annotations[0].Type)
	assert.Equal(t, "A", doc.Attributes[1].Annotations[0].Name)
	assert.Equal(t, []string{"2"}, doc.Attributes[1].Annotations[0].Args)
	assert.Empty(t, doc.Attributes[2].Annotations)
}

func TestFullEndpointFields(t *testing.T) {
	sys, err := parser.Parse("t.simal", []byte(
		"system { service s { api: { endpoints: [\n  GET /x/{id} -> str [cache:60]\n] } } }"))
	require.NoError(t, err)
	out, err := simaljson.Full(sys)
	require.NoError(t, err)

	assert.Contains(t, string(out), `"__type__": "Endpoint"`)
	assert.Contains(t, string(out), `"style": "http"`)
	assert.Contains(t, string(out), `"method": "GET"`)
	assert.Contains(t, string(out), `"path": "/x/{id}"`)
	// derived enrichment fields are recomputable and not stored
	assert.NotContains(t, string(out), `"inputs"`)
}

func TestFromFullRejectsWrongRoot(t *testing.T) {
	_, err := simaljson.FromFull([]byte(`{"__type__": "Service", "name": "x"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `expected root __type__ "System"`)
}

func TestFromFullUnknownType(t *testing.T) {
	_, err := simaljson.FromFull([]byte(`{
		"__type__": "System",
		"attributes": [{"key": "a", "value": {"__type__": "Mystery"}}],
		"services": []
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown __type__ "Mystery"`)
}
