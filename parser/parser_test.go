package parser

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/simal-lang/simal/ast"
)

func mustParse(t *testing.T, src string, opts ...Option) *ast.System {
	t.Helper()
	sys, err := Parse("test.simal", []byte(src), opts...)
	require.NoError(t, err)
	return sys
}

func scalar(t *testing.T, v ast.Value) string {
	t.Helper()
	s, ok := v.(ast.Scalar)
	require.True(t, ok, "expected scalar, got %T", v)
	return string(s)
}

func TestParseOneLineSystem(t *testing.T) {
	sys := mustParse(t, "system { type: microservices  service s { langs: [go] } }")

	require.Equal(t, 1, sys.Attributes.Len())
	assert.Equal(t, "microservices", scalar(t, sys.Attributes.Get("type").Value))

	require.Len(t, sys.Services, 1)
	svc := sys.Services[0]
	assert.Equal(t, "s", svc.Name)
	langs, ok := svc.Attributes.Get("langs").Value.(*ast.List)
	require.True(t, ok)
	require.Len(t, langs.Items, 1)
	assert.Equal(t, "go", scalar(t, langs.Items[0]))
}

func TestParseNestedMap(t *testing.T) {
	sys := mustParse(t, "system { mail: { driver: smtp, port: 587 } }")

	mail, ok := sys.Attributes.Get("mail").Value.(*ast.Map)
	require.True(t, ok)
	require.Equal(t, 2, mail.Len())
	assert.Equal(t, "driver", mail.Entries[0].Key)
	assert.Equal(t, "smtp", scalar(t, mail.Entries[0].Value))
	assert.Equal(t, "port", mail.Entries[1].Key)
	// numbers stay strings
	assert.Equal(t, "587", scalar(t, mail.Entries[1].Value))
}

func TestParseComponents(t *testing.T) {
	sys := mustParse(t, `system { service u { components: [ database UserRepo { engine: postgres-12 } cache S { engine: redis-6 } ] } }`)

	comps, ok := sys.Services[0].Attributes.Get("components").Value.(*ast.List)
	require.True(t, ok)
	require.Len(t, comps.Items, 2)

	db, ok := comps.Items[0].(*ast.Block)
	require.True(t, ok)
	assert.Equal(t, "database", db.Kind)
	assert.Equal(t, "UserRepo", db.Name)
	assert.Equal(t, "postgres-12", scalar(t, db.Attributes.Get("engine").Value))

	cache, ok := comps.Items[1].(*ast.Block)
	require.True(t, ok)
	assert.Equal(t, "cache", cache.Kind)
	assert.Equal(t, "S", cache.Name)
	assert.Equal(t, "redis-6", scalar(t, cache.Attributes.Get("engine").Value))
}

func TestParseFields(t *testing.T) {
	sys := mustParse(t, `system { service s { fields: [ +ID: UUID  -PasswordHash: string  #Internal: JSON  Flex: any string type ] } }`)

	fields, ok := sys.Services[0].Attributes.Get("fields").Value.(*ast.List)
	require.True(t, ok)
	require.Len(t, fields.Items, 4)

	want := []struct {
		vis  ast.Visibility
		name string
		typ  string
	}{
		{ast.VisibilityPublic, "ID", "UUID"},
		{ast.VisibilityPrivate, "PasswordHash", "string"},
		{ast.VisibilityProtected, "Internal", "JSON"},
		{ast.VisibilityNone, "Flex", "any string type"},
	}
	for i, w := range want {
		f, ok := fields.Items[i].(*ast.Field)
		require.True(t, ok)
		assert.Equal(t, w.vis, f.Visibility, "field %d", i)
		assert.Equal(t, w.name, f.Name, "field %d", i)
		assert.Equal(t, w.typ, f.Type, "field %d", i)
	}
}

func TestParseMethods(t *testing.T) {
	sys := mustParse(t, `system { service s { methods: [
		+GetUser(uuid string) -> User { description: x }
		-save(u User) -> error
	] } }`)

	methods, ok := sys.Services[0].Attributes.Get("methods").Value.(*ast.List)
	require.True(t, ok)
	require.Len(t, methods.Items, 2)

	get, ok := methods.Items[0].(*ast.Method)
	require.True(t, ok)
	assert.Equal(t, ast.VisibilityPublic, get.Visibility)
	assert.Equal(t, "GetUser", get.Name)
	assert.Equal(t, "uuid string", get.Params)
	assert.Equal(t, "User", get.Returns)
	require.Equal(t, 1, get.Attributes.Len())
	assert.Equal(t, "x", scalar(t, get.Attributes.Get("description").Value))

	save, ok := methods.Items[1].(*ast.Method)
	require.True(t, ok)
	assert.Equal(t, ast.VisibilityPrivate, save.Visibility)
	assert.Equal(t, "u User", save.Params)
	assert.Equal(t, "error", save.Returns)
	assert.Equal(t, 0, save.Attributes.Len())
}

func TestParseQuotedStringsAndHeredocs(t *testing.T) {
	sys := mustParse(t, "system {\n  motto: \"exact: content, here\"\n  desc: <<TXT\n    first\n    second\n  TXT\n}")

	assert.Equal(t, "exact: content, here", scalar(t, sys.Attributes.Get("motto").Value))
	assert.Equal(t, "first\nsecond", scalar(t, sys.Attributes.Get("desc").Value))
}

func TestParseScalarReconstruction(t *testing.T) {
	sys := mustParse(t, "system {\n  selector: meta[name=csrf-token]\n}")
	// bare scalars re-join tokens with single spaces
	assert.Equal(t, "meta [ name = csrf-token ]", scalar(t, sys.Attributes.Get("selector").Value))
}

func TestParseBracketLiteralValue(t *testing.T) {
	sys := mustParse(t, "system {\n  sel: [name=csrf] input\n  tags: [a, b]\n}")

	// a [...] run followed by more tokens on the line is a scalar
	assert.Equal(t, "[ name = csrf ] input", scalar(t, sys.Attributes.Get("sel").Value))

	tags, ok := sys.Attributes.Get("tags").Value.(*ast.List)
	require.True(t, ok)
	require.Len(t, tags.Items, 2)
	assert.Equal(t, "a", scalar(t, tags.Items[0]))
	assert.Equal(t, "b", scalar(t, tags.Items[1]))
}

func TestParseAnnotations(t *testing.T) {
	sys := mustParse(t, `system {
		@DEPRECATED
		old: 1
		@OWNER(core, "billing team")
		service s {
			api: [
				@DELETED
				{ note: gone }
			]
		}
	}`)

	old := sys.Attributes.Get("old")
	require.Len(t, old.Annotations, 1)
	assert.Equal(t, "DEPRECATED", old.Annotations[0].Name)
	assert.Empty(t, old.Annotations[0].Args)

	svc := sys.Services[0]
	require.Len(t, svc.Annotations, 1)
	assert.Equal(t, "OWNER", svc.Annotations[0].Name)
	// a wholly-quoted argument keeps its quotes
	assert.Equal(t, []string{"core", `"billing team"`}, svc.Annotations[0].Args)

	api, ok := svc.Attributes.Get("api").Value.(*ast.List)
	require.True(t, ok)
	require.Len(t, api.Items, 1)
	item, ok := api.Items[0].(*ast.Attribute)
	require.True(t, ok, "annotated map item should be wrapped, got %T", api.Items[0])
	require.Len(t, item.Annotations, 1)
	assert.Equal(t, "DELETED", item.Annotations[0].Name)
	_, ok = item.Value.(*ast.Map)
	assert.True(t, ok)
}

func TestParseAnnotationStacking(t *testing.T) {
	sys := mustParse(t, "system {\n  @A\n  @B(1)\n  k: v\n}")
	anns := sys.Attributes.Get("k").Annotations
	require.Len(t, anns, 2)
	assert.Equal(t, "A", anns[0].Name)
	assert.Equal(t, "B", anns[1].Name)
	assert.Equal(t, []string{"1"}, anns[1].Args)
}

func TestParseRawOnlyMapCollapses(t *testing.T) {
	sys := mustParse(t, "system {\n  pipeline: {\n    -> fetch\n    -> parse\n  }\n}")
	assert.Equal(t, "-> fetch\n-> parse", scalar(t, sys.Attributes.Get("pipeline").Value))
}

func TestParseMixedRawAndEntriesKeepsMap(t *testing.T) {
	sys := mustParse(t, "system {\n  cfg: {\n    -> raw line\n    mode: fast\n  }\n}")
	m, ok := sys.Attributes.Get("cfg").Value.(*ast.Map)
	require.True(t, ok)
	require.Equal(t, 2, m.Len())
	assert.Equal(t, "__raw__", m.Entries[0].Key)
	raw, ok := m.Entries[0].Value.(*ast.List)
	require.True(t, ok)
	require.Len(t, raw.Items, 1)
	assert.Equal(t, "-> raw line", scalar(t, raw.Items[0]))
	assert.Equal(t, "fast", scalar(t, m.Entries[1].Value))
}

func TestParseCommaNewlineEquivalence(t *testing.T) {
	commas := mustParse(t, "system { mail: { driver: smtp, port: 587 }\nlangs: [go, rust] }")
	newlines := mustParse(t, "system { mail: {\n driver: smtp\n port: 587\n}\nlangs: [go\nrust] }")
	if diff := cmp.Diff(commas, newlines); diff != "" {
		t.Fatalf("ASTs differ (-commas +newlines):\n%s", diff)
	}
}

func TestParseOrderPreserved(t *testing.T) {
	sys := mustParse(t, "system {\n  z: 1\n  a: 2\n  m: 3\n}")
	keys := make([]string, 0, sys.Attributes.Len())
	for _, e := range sys.Attributes.Entries {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"z", "a", "m"}, keys)
}

func TestParseDuplicateKeyFails(t *testing.T) {
	_, err := Parse("test.simal", []byte("system {\n  a: 1\n  a: 2\n}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate attribute key "a"`)
}

func TestParseMergeDuplicateKeys(t *testing.T) {
	src := "system {\n  a: 1\n  a: 2\n  langs: [go]\n  langs: [rust]\n  cfg: { x: 1, y: 2 }\n  cfg: { y: 3, z: 4 }\n}"
	sys := mustParse(t, src, MergeDuplicateKeys())

	// scalars: the later occurrence wins
	assert.Equal(t, "2", scalar(t, sys.Attributes.Get("a").Value))

	// lists concatenate
	langs := sys.Attributes.Get("langs").Value.(*ast.List)
	require.Len(t, langs.Items, 2)
	assert.Equal(t, "go", scalar(t, langs.Items[0]))
	assert.Equal(t, "rust", scalar(t, langs.Items[1]))

	// maps shallow-merge, later entries winning, original order kept
	cfg := sys.Attributes.Get("cfg").Value.(*ast.Map)
	require.Equal(t, 3, cfg.Len())
	assert.Equal(t, "x", cfg.Entries[0].Key)
	assert.Equal(t, "3", scalar(t, cfg.Entries[1].Value))
	assert.Equal(t, "z", cfg.Entries[2].Key)
}

func TestParseColonlessComponentAttribute(t *testing.T) {
	sys := mustParse(t, "system { service s {\n  database UserRepo {\n    engine: postgres\n  }\n} }")
	attr := sys.Services[0].Attributes.Get("database")
	require.NotNil(t, attr)
	blk, ok := attr.Value.(*ast.Block)
	require.True(t, ok)
	assert.Equal(t, "database", blk.Kind)
	assert.Equal(t, "UserRepo", blk.Name)
	assert.Equal(t, "postgres", scalar(t, blk.Attributes.Get("engine").Value))
}

func TestParseQuotedMapKeys(t *testing.T) {
	sys := mustParse(t, "system {\n  deps: {\n    \"@testing/dom\": \"^8.0.0\"\n  }\n}")
	deps := sys.Attributes.Get("deps").Value.(*ast.Map)
	require.Equal(t, 1, deps.Len())
	assert.Equal(t, "@testing/dom", deps.Entries[0].Key)
	assert.Equal(t, "^8.0.0", scalar(t, deps.Entries[0].Value))
}

func TestParseErrorsTable(t *testing.T) {
	data, err := os.ReadFile("testdata/errors.yaml")
	require.NoError(t, err)

	var cases []struct {
		Name    string `yaml:"name"`
		Input   string `yaml:"input"`
		WantErr string `yaml:"wantErr"`
	}
	require.NoError(t, yaml.Unmarshal(data, &cases))
	require.NotEmpty(t, cases)

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			_, err := Parse("test.simal", []byte(tc.Input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.WantErr)
		})
	}
}

func TestParseErrorCarriesPosition(t *testing.T) {
	_, err := Parse("bad.simal", []byte("system {\n  a: 1\n  a: 2\n}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.simal:3:3")
}

func TestParseReuseAcrossCalls(t *testing.T) {
	src := []byte("system { a: 1 }")
	first := mustParse(t, string(src))
	second := mustParse(t, string(src))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("parses differ:\n%s", diff)
	}
}
