package simaljson_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simal-lang/simal/internal/testutil"
	"github.com/simal-lang/simal/parser"
	"github.com/simal-lang/simal/simaljson"
)

func simpleDoc(t *testing.T, src string) map[string]any {
	t.Helper()
	sys, err := parser.Parse("t.simal", []byte(src))
	require.NoError(t, err)
	out, err := simaljson.Simple(sys)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	return doc
}

func maxSimpleDoc(t *testing.T, src string) map[string]any {
	t.Helper()
	sys, err := parser.Parse("t.simal", []byte(src))
	require.NoError(t, err)
	out, err := simaljson.MaxSimple(sys)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	return doc
}

func firstService(t *testing.T, doc map[string]any) map[string]any {
	t.Helper()
	services, ok := doc["services"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, services)
	svc, ok := services[0].(map[string]any)
	require.True(t, ok)
	return svc
}

func TestSimpleSystemAndServices(t *testing.T) {
	doc := simpleDoc(t, "system { type: microservices  service s { langs: [go] } }")

	assert.Equal(t, "microservices", doc["type"])
	svc := firstService(t, doc)
	assert.Equal(t, "s", svc["name"])
	assert.Equal(t, []any{"go"}, svc["langs"])
}

func TestSimpleNestedMapKeepsStrings(t *testing.T) {
	doc := simpleDoc(t, "system { mail: { driver: smtp, port: 587 } }")
	assert.Equal(t, map[string]any{"driver": "smtp", "port": "587"}, doc["mail"])
}

func TestSimpleComponents(t *testing.T) {
	doc := simpleDoc(t, `system { service u { components: [ database UserRepo { engine: postgres-12 } cache S { engine: redis-6 } ] } }`)
	svc := firstService(t, doc)
	comps, ok := svc["components"].([]any)
	require.True(t, ok)
	require.Len(t, comps, 2)
	assert.Equal(t, map[string]any{"kind": "database", "name": "UserRepo", "engine": "postgres-12"}, comps[0])
	assert.Equal(t, map[string]any{"kind": "cache", "name": "S", "engine": "redis-6"}, comps[1])
}

func TestSimpleMethod(t *testing.T) {
	doc := simpleDoc(t, "system { service s { methods: [\n+GetUser(uuid string) -> User { description: x }\n] } }")
	svc := firstService(t, doc)
	methods := svc["methods"].([]any)
	require.Len(t, methods, 1)
	assert.Equal(t, map[string]any{
		"visibility": "public",
		"name":       "GetUser",
		"params":     "uuid string",
		"returns":    "User",
		"attributes": map[string]any{"description": "x"},
	}, methods[0])
}

func TestSimpleFields(t *testing.T) {
	doc := simpleDoc(t, "system { service s { fields: [ +ID: UUID  -PasswordHash: string  #Internal: JSON  Flex: any string type ] } }")
	svc := firstService(t, doc)
	fields := svc["fields"].([]any)
	require.Len(t, fields, 4)
	assert.Equal(t, map[string]any{"visibility": "public", "name": "ID", "type": "UUID"}, fields[0])
	assert.Equal(t, map[string]any{"visibility": "private", "name": "PasswordHash", "type": "string"}, fields[1])
	assert.Equal(t, map[string]any{"visibility": "protected", "name": "Internal", "type": "JSON"}, fields[2])
	assert.Equal(t, map[string]any{"visibility": "none", "name": "Flex", "type": "any string type"}, fields[3])
}

func TestSimpleEndpoint(t *testing.T) {
	doc := simpleDoc(t, "system { service s { api: { endpoints: [\nGET /api/comments/{id} -> JSON{comments: list?, error: str?} [auth:false]\n] } } }")
	svc := firstService(t, doc)
	api := svc["api"].(map[string]any)
	eps := api["endpoints"].([]any)
	require.Len(t, eps, 1)
	ep := eps[0].(map[string]any)

	assert.Equal(t, "http", ep["style"])
	assert.Equal(t, "GET", ep["method"])
	assert.Equal(t, "/api/comments/{id}", ep["path"])
	assert.Equal(t, "JSON{comments: list?, error: str?}", ep["response"])
	assert.Equal(t, map[string]any{"auth": "false"}, ep["attributes"])
	assert.NotContains(t, ep, "request")

	assert.Equal(t, []any{
		map[string]any{"name": "id", "type": "str"},
	}, ep["inputs"])
	assert.Equal(t, []any{
		map[string]any{"name": "comments", "type": "list", "optional": true},
		map[string]any{"name": "error", "type": "str", "optional": true},
	}, ep["outputs"])
}

func TestSimpleAttributeAnnotations(t *testing.T) {
	doc := simpleDoc(t, "system {\n  @DEPRECATED\n  old: 1\n  new: 2\n}")
	assert.Equal(t, map[string]any{
		"value":       "1",
		"annotations": []any{"DEPRECATED"},
	}, doc["old"])
	assert.Equal(t, "2", doc["new"])
}

func TestSimpleServiceAnnotations(t *testing.T) {
	doc := simpleDoc(t, "system {\n  @OWNER(core, billing)\n  service s { a: 1 }\n}")
	svc := firstService(t, doc)
	assert.Equal(t, []any{"OWNER(core, billing)"}, svc["annotations"])
}

func TestSimpleGolden(t *testing.T) {
	sys, err := parser.Parse("t.simal", []byte("system {\n  type: microservices\n  mail: { driver: smtp, port: 587 }\n  service s {\n    langs: [go]\n  }\n}"))
	require.NoError(t, err)
	out, err := simaljson.Simple(sys)
	require.NoError(t, err)
	// key order is source order
	testutil.RequireJSONEq(t, []byte(`{
		"type": "microservices",
		"mail": {"driver": "smtp", "port": "587"},
		"services": [{"name": "s", "langs": ["go"]}]
	}`), out)
}

func TestMaxSimpleMethodDef(t *testing.T) {
	doc := maxSimpleDoc(t, "system { service s { methods: [\n+GetUser(uuid string) -> User\n-save(u User) -> error { description: persists }\n] } }")
	svc := firstService(t, doc)
	methods := svc["methods"].([]any)
	require.Len(t, methods, 2)

	// a bare signature collapses to a string
	assert.Equal(t, "+GetUser(uuid string) -> User", methods[0])

	// attributes become siblings of def
	assert.Equal(t, map[string]any{
		"def":         "-save(u User) -> error",
		"description": "persists",
	}, methods[1])
}

func TestMaxSimpleEndpointDef(t *testing.T) {
	doc := maxSimpleDoc(t, "system { service s { api: { endpoints: [\nGET /api/comments/{id} -> JSON{comments: list?, error: str?} [auth:false]\n] } } }")
	svc := firstService(t, doc)
	api := svc["api"].(map[string]any)
	eps := api["endpoints"].([]any)
	require.Len(t, eps, 1)

	// attributes already inside [...] stay in def; nothing else remains,
	// so the endpoint collapses to its definition string
	assert.Equal(t, "GET /api/comments/{id} -> JSON{comments: list?, error: str?} [auth: false]", eps[0])
}

func TestMaxSimpleLeavesFieldsAlone(t *testing.T) {
	doc := maxSimpleDoc(t, "system { service s { fields: [ +ID: UUID ] } }")
	svc := firstService(t, doc)
	fields := svc["fields"].([]any)
	assert.Equal(t, map[string]any{"visibility": "public", "name": "ID", "type": "UUID"}, fields[0])
}

func TestSimpleDeterministicOutput(t *testing.T) {
	src := "system {\n  b: 1\n  a: 2\n  c: { z: 1, y: 2 }\n}"
	sys, err := parser.Parse("t.simal", []byte(src))
	require.NoError(t, err)
	first, err := simaljson.Simple(sys)
	require.NoError(t, err)
	second, err := simaljson.Simple(sys)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	// source order, not sorted order
	assert.Less(t, strings.Index(string(first), `"b"`), strings.Index(string(first), `"a"`))
	assert.Less(t, strings.Index(string(first), `"z"`), strings.Index(string(first), `"y"`))
}
