package graph

import (
	"bytes"
	"log"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gqlite/gqlite/pkg/storage"
)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	return New(storage.NewMemoryEngine())
}

func TestSetLoggerReceivesMalformedKeyDiagnostics(t *testing.T) {
	orig := logger
	defer func() { logger = orig }()

	var buf bytes.Buffer
	SetLogger(log.New(&buf, "", 0))

	g := newTestGraph(t)
	require.NoError(t, g.AddNode("x", "Person"))

	// Shares the "Person" label-index prefix but truncates the id field's
	// length-prefix, so decodeLabelIndexKey must fail and the entry is
	// skipped rather than corrupting the result.
	malformed := append(labelIndexPrefix("Person"), 0, 0, 0, 9) // claims a 9-byte id, supplies none
	require.NoError(t, g.engine.Put(malformed, nil))

	_, err := g.GetNodesByLabel("Person")
	require.NoError(t, err)
	require.Contains(t, buf.String(), "malformed")
}

func TestSetLoggerNilSilencesLogging(t *testing.T) {
	orig := logger
	defer func() { logger = orig }()
	require.NotPanics(t, func() { SetLogger(nil) })
}

func TestAddNodeAndGetLabel(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode("mark", "Person"))

	label, err := g.GetNodeLabel("mark")
	require.NoError(t, err)
	require.Equal(t, "Person", label)

	_, err = g.GetNodeLabel("nobody")
	require.ErrorIs(t, err, ErrNodeNotFound)
}

func TestAddNodeEmptyIDRejected(t *testing.T) {
	g := newTestGraph(t)
	require.ErrorIs(t, g.AddNode("", "Person"), ErrInvalidID)
}

func TestRelabelingLeavesStaleLabelIndexEntry(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode("mark", "Person"))
	require.NoError(t, g.AddNode("mark", "Admin"))

	label, err := g.GetNodeLabel("mark")
	require.NoError(t, err)
	require.Equal(t, "Admin", label)

	persons, err := g.GetNodesByLabel("Person")
	require.NoError(t, err)
	require.Contains(t, persons, "mark", "stale label-index entry must survive a relabel")

	admins, err := g.GetNodesByLabel("Admin")
	require.NoError(t, err)
	require.Contains(t, admins, "mark")
}

func TestAddEdgeIndexesBothDirections(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode("mark", "Person"))
	require.NoError(t, g.AddNode("alex", "Person"))
	require.NoError(t, g.AddEdge("mark", "FRIEND", "alex"))

	out, err := g.GetOutgoing("mark", "FRIEND")
	require.NoError(t, err)
	require.Equal(t, []neighbor{{ID: "alex", Type: "FRIEND"}}, out)

	in, err := g.GetIncoming("alex", "FRIEND")
	require.NoError(t, err)
	require.Equal(t, []neighbor{{ID: "mark", Type: "FRIEND"}}, in)
}

func TestGetOutgoingAnyType(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddEdge("felipe", "UNCLE", "mark"))
	require.NoError(t, g.AddEdge("felipe", "COUSIN", "alex"))

	out, err := g.GetOutgoing("felipe", "")
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestAddEdgeIsIdempotent(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddEdge("a", "KNOWS", "b"))
	require.NoError(t, g.AddEdge("a", "KNOWS", "b"))

	out, err := g.GetOutgoing("a", "KNOWS")
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestDeleteEdgeRemovesBothDirections(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddEdge("a", "KNOWS", "b"))
	require.NoError(t, g.DeleteEdge("a", "KNOWS", "b"))

	out, err := g.GetOutgoing("a", "KNOWS")
	require.NoError(t, err)
	require.Empty(t, out)

	in, err := g.GetIncoming("b", "KNOWS")
	require.NoError(t, err)
	require.Empty(t, in)
}

func TestDeleteNodeCascades(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode("mark", "Person"))
	require.NoError(t, g.AddNode("alex", "Person"))
	require.NoError(t, g.AddNode("felipe", "Person"))
	require.NoError(t, g.AddEdge("mark", "FRIEND", "alex"))
	require.NoError(t, g.AddEdge("felipe", "UNCLE", "mark"))

	require.NoError(t, g.DeleteNode("mark"))

	_, err := g.GetNodeLabel("mark")
	require.ErrorIs(t, err, ErrNodeNotFound)

	out, err := g.GetOutgoing("mark", "")
	require.NoError(t, err)
	require.Empty(t, out)

	in, err := g.GetIncoming("alex", "FRIEND")
	require.NoError(t, err)
	require.Empty(t, in)

	feOut, err := g.GetOutgoing("felipe", "UNCLE")
	require.NoError(t, err)
	require.Empty(t, feOut)

	persons, err := g.GetNodesByLabel("Person")
	require.NoError(t, err)
	require.NotContains(t, persons, "mark")
}

func TestDeleteNodeMissingIsNotError(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.DeleteNode("ghost"))
}

func TestGetAllNodesAndByLabelOrdering(t *testing.T) {
	g := newTestGraph(t)
	ids := []string{"c", "a", "b"}
	for _, id := range ids {
		require.NoError(t, g.AddNode(id, "Person"))
	}

	all, err := g.GetAllNodes()
	require.NoError(t, err)
	sortedIDs := append([]string(nil), ids...)
	sort.Strings(sortedIDs)
	require.Equal(t, sortedIDs, all)

	byLabel, err := g.GetNodesByLabel("Person")
	require.NoError(t, err)
	require.Equal(t, sortedIDs, byLabel)
}
