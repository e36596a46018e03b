package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "schema.json", outputPath("schema.simal", ".json"))
	assert.Equal(t, "schema_simple.json", outputPath("schema.siml", "_simple.json"))
	assert.Equal(t, filepath.Join("a", "b_max_simple.json"),
		outputPath(filepath.Join("a", "b.simal"), "_max_simple.json"))
}

func TestConvertFileDefaultOutputs(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "sys.simal")
	require.NoError(t, os.WriteFile(in, []byte("system { type: microservices }"), 0o644))

	outputs, err := convertFile(in)
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	assert.FileExists(t, filepath.Join(dir, "sys.json"))
	assert.FileExists(t, filepath.Join(dir, "sys_simple.json"))

	full, err := os.ReadFile(filepath.Join(dir, "sys.json"))
	require.NoError(t, err)
	assert.Contains(t, string(full), `"__type__": "System"`)

	simple, err := os.ReadFile(filepath.Join(dir, "sys_simple.json"))
	require.NoError(t, err)
	assert.Contains(t, string(simple), `"type": "microservices"`)
}

func TestConvertFileMaxSimple(t *testing.T) {
	flagMaxSimple = true
	defer func() { flagMaxSimple = false }()

	dir := t.TempDir()
	in := filepath.Join(dir, "sys.siml")
	require.NoError(t, os.WriteFile(in, []byte("system { a: 1 }"), 0o644))

	outputs, err := convertFile(in)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.FileExists(t, filepath.Join(dir, "sys_max_simple.json"))
}

func TestConvertFileParseFailure(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.simal")
	require.NoError(t, os.WriteFile(in, []byte("nope { }"), 0o644))

	_, err := convertFile(in)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "bad.json"))
}

func TestExpandArgsPlainPathPassesThrough(t *testing.T) {
	paths, err := expandArgs([]string{"plain.simal"})
	require.NoError(t, err)
	assert.Equal(t, []string{"plain.simal"}, paths)
}

func TestExpandArgsGlob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.simal"), []byte("system { }"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.siml"), []byte("system { }"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), nil, 0o644))

	paths, err := expandArgs([]string{filepath.Join(dir, "*.sim*")})
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}
