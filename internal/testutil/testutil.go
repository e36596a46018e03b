// Package testutil contains helpers shared by the package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

// RequireJSONEq fails the test when the two JSON documents differ,
// printing a unified diff of their indented forms. Key order is
// significant: the lowerings guarantee source ordering, so two
// documents with the same keys in a different order do not match.
func RequireJSONEq(t *testing.T, want, got []byte) {
	t.Helper()
	wantNorm, err := normalizeJSON(want)
	if err != nil {
		t.Fatalf("want is not valid JSON: %v\n%s", err, want)
	}
	gotNorm, err := normalizeJSON(got)
	if err != nil {
		t.Fatalf("got is not valid JSON: %v\n%s", err, got)
	}
	if bytes.Equal(wantNorm, gotNorm) {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(wantNorm)),
		B:        difflib.SplitLines(string(gotNorm)),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	})
	if err != nil {
		t.Fatalf("failed to diff JSON: %v", err)
	}
	t.Fatalf("JSON documents differ:\n%s", diff)
}

func normalizeJSON(data []byte) ([]byte, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return nil, err
	}
	var indented bytes.Buffer
	if err := json.Indent(&indented, compact.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	return indented.Bytes(), nil
}
