package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gqlite/gqlite/pkg/graph"
	"github.com/gqlite/gqlite/pkg/storage"
	"github.com/gqlite/gqlite/pkg/testutil"
)

func newTestGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New(storage.NewMemoryEngine())
	require.NoError(t, testutil.SeedFixture(g))
	return g
}

func TestRunQueryTableOutput(t *testing.T) {
	g := newTestGraph(t)
	var buf bytes.Buffer

	err := runQuery(&buf, g, "MATCH (a)-[:FRIEND]->(b) WHERE a.id = 'Mark' RETURN b.id", false)
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "b.id")
	require.Contains(t, out, "(2 rows)")
}

func TestRunQueryJSONOutput(t *testing.T) {
	g := newTestGraph(t)
	var buf bytes.Buffer

	err := runQuery(&buf, g, "MATCH (a)-[:FRIEND]->(b) WHERE a.id = 'Mark' RETURN b.id", true)
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, `"columns"`)
	require.Contains(t, out, `"rows"`)
}

func TestRunQueryEmptyResultTable(t *testing.T) {
	g := newTestGraph(t)
	var buf bytes.Buffer

	err := runQuery(&buf, g, "MATCH (a)-[:FRIEND]->(b) WHERE a.id = 'NoSuchPerson' RETURN b.id", false)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "(0 rows)")
}

func TestRunQueryUnparsableReturnsError(t *testing.T) {
	g := newTestGraph(t)
	var buf bytes.Buffer

	err := runQuery(&buf, g, "NOT A QUERY", false)
	require.Error(t, err)
}

func TestRunShellExitsOnQuitKeyword(t *testing.T) {
	g := newTestGraph(t)
	in := strings.NewReader("MATCH (a)-[:FRIEND]->(b) WHERE a.id='Mark' RETURN b.id\nquit\n")
	var out bytes.Buffer

	err := runShell(in, &out)(g)
	require.NoError(t, err)
	require.Contains(t, out.String(), "b.id")
}

func TestRunShellReportsQueryErrorsAndContinues(t *testing.T) {
	g := newTestGraph(t)
	in := strings.NewReader("NOT A QUERY\nexit\n")
	var out bytes.Buffer

	err := runShell(in, &out)(g)
	require.NoError(t, err)
	require.Contains(t, out.String(), "error:")
}

func TestRunShellEOFReturnsNil(t *testing.T) {
	g := newTestGraph(t)
	in := strings.NewReader("")
	var out bytes.Buffer

	err := runShell(in, &out)(g)
	require.NoError(t, err)
}
