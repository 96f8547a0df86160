package cypher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gqlite/gqlite/pkg/graph"
	"github.com/gqlite/gqlite/pkg/storage"
	"github.com/gqlite/gqlite/pkg/testutil"
)

func newFixtureGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New(storage.NewMemoryEngine())
	require.NoError(t, testutil.SeedFixture(g))
	return g
}

func lastIDs(paths []MatchPath) []string {
	ids := make([]string, len(paths))
	for i, p := range paths {
		ids[i] = p.NodeIDs[len(p.NodeIDs)-1]
	}
	return ids
}

func TestMatchSingleHop(t *testing.T) {
	g := newFixtureGraph(t)
	q, err := Parse("MATCH (a)-[:FRIEND]->(b) WHERE a.id = 'Mark' RETURN b.id")
	require.NoError(t, err)

	all, err := Match(g, q.Pattern)
	require.NoError(t, err)

	nodeVarIdx, relVarIdx := varIndices(q.Pattern)
	var matched []string
	for _, p := range all {
		ok, err := passesFilters(g, q.Pattern, p, nodeVarIdx, relVarIdx, q.Filters)
		require.NoError(t, err)
		if ok {
			matched = append(matched, p.NodeIDs[len(p.NodeIDs)-1])
		}
	}
	require.ElementsMatch(t, []string{"Alex", "Felipe"}, matched)
}

func TestMatchSortedByLastNodeID(t *testing.T) {
	g := newFixtureGraph(t)
	q, err := Parse("MATCH (a)-[:FRIEND]->(b) RETURN b.id")
	require.NoError(t, err)

	paths, err := Match(g, q.Pattern)
	require.NoError(t, err)

	ids := lastIDs(paths)
	for i := 1; i < len(ids); i++ {
		require.LessOrEqual(t, ids[i-1], ids[i])
	}
}

func TestMatchTwoHopChain(t *testing.T) {
	g := newFixtureGraph(t)
	q, err := Parse("MATCH (a:Person)-[:FRIEND]->(b:Person)-[:FRIEND]->(c:Person) WHERE a.id='Mark' RETURN a.id,b.id,c.id")
	require.NoError(t, err)

	paths, err := Match(g, q.Pattern)
	require.NoError(t, err)

	nodeVarIdx, relVarIdx := varIndices(q.Pattern)
	var rows [][]string
	for _, p := range paths {
		ok, err := passesFilters(g, q.Pattern, p, nodeVarIdx, relVarIdx, q.Filters)
		require.NoError(t, err)
		if ok {
			rows = append(rows, p.NodeIDs)
		}
	}
	require.Len(t, rows, 1)
	require.Equal(t, []string{"Mark", "Alex", "Felipe"}, rows[0])
}

func TestMatchVariableLengthRange(t *testing.T) {
	g := newFixtureGraph(t)
	q, err := Parse("MATCH (a)-[*1..2]->(b) WHERE a.id='Mark' RETURN b.id")
	require.NoError(t, err)

	paths, err := Match(g, q.Pattern)
	require.NoError(t, err)

	nodeVarIdx, relVarIdx := varIndices(q.Pattern)
	found := map[string]bool{}
	for _, p := range paths {
		ok, err := passesFilters(g, q.Pattern, p, nodeVarIdx, relVarIdx, q.Filters)
		require.NoError(t, err)
		if ok {
			found[p.NodeIDs[len(p.NodeIDs)-1]] = true
		}
	}
	require.True(t, found["Alex"])
	require.True(t, found["Felipe"])
}

func TestMatchIncomingDirection(t *testing.T) {
	g := newFixtureGraph(t)
	q, err := Parse("MATCH (a)<-[:UNCLE]-(b) WHERE a.id='Mark' RETURN b.id")
	require.NoError(t, err)

	paths, err := Match(g, q.Pattern)
	require.NoError(t, err)
	nodeVarIdx, relVarIdx := varIndices(q.Pattern)
	var matched []string
	for _, p := range paths {
		ok, err := passesFilters(g, q.Pattern, p, nodeVarIdx, relVarIdx, q.Filters)
		require.NoError(t, err)
		if ok {
			matched = append(matched, p.NodeIDs[len(p.NodeIDs)-1])
		}
	}
	require.Equal(t, []string{"Felipe"}, matched)
}

func TestMatchLabelFilter(t *testing.T) {
	g := newFixtureGraph(t)
	q, err := Parse("MATCH (a:Person)-[:CONTACT_INFO]->(b:Email) WHERE a.id = 'Felipe' RETURN b.id")
	require.NoError(t, err)

	paths, err := Match(g, q.Pattern)
	require.NoError(t, err)
	nodeVarIdx, relVarIdx := varIndices(q.Pattern)
	var matched []string
	for _, p := range paths {
		ok, err := passesFilters(g, q.Pattern, p, nodeVarIdx, relVarIdx, q.Filters)
		require.NoError(t, err)
		if ok {
			matched = append(matched, p.NodeIDs[len(p.NodeIDs)-1])
		}
	}
	require.Equal(t, []string{"research@felipebonetto.com"}, matched)
}
