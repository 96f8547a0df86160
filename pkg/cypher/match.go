package cypher

import (
	"sort"

	"github.com/gqlite/gqlite/pkg/graph"
)

// edgeStep is one realized edge in a matching path: the concrete
// (from, to, type) triple as it is actually stored, which may have the
// opposite endpoint order from the relationship pattern's arrow when
// the pattern is `<-...-` or undirected-and-traversed-via-incoming.
type edgeStep struct {
	From, To, Type string
}

// MatchPath is one realized path through the graph that satisfies a
// PathPattern, before WHERE filtering and projection.
type MatchPath struct {
	NodeIDs []string
	Edges   []edgeStep
	// PatternPos[k] is the index into NodeIDs of the k-th node pattern.
	PatternPos []int
}

// Match runs the Path Matcher against g, returning every path satisfying
// pattern, sorted by last-node id (tie-broken by the remaining ids in
// order) and deduplicated by the full node/edge sequence. WHERE filtering
// and projection happen downstream in the executor.
func Match(g *graph.Graph, pattern PathPattern) ([]MatchPath, error) {
	m := &matcher{g: g, pattern: pattern}
	candidates, err := m.seedCandidates(pattern.Nodes[0])
	if err != nil {
		return nil, err
	}

	var results []MatchPath
	for _, id := range candidates {
		label, err := g.GetNodeLabel(id)
		if err != nil && err != graph.ErrNodeNotFound {
			return nil, err
		}
		if !nodeSatisfies(pattern.Nodes[0], id, label, false) {
			continue
		}
		start := MatchPath{
			NodeIDs:    []string{id},
			PatternPos: []int{0},
		}
		paths, err := m.extend(start, 1)
		if err != nil {
			return nil, err
		}
		results = append(results, paths...)
	}

	results = dedupPaths(results)
	sort.Slice(results, func(i, j int) bool { return comparePaths(results[i], results[j]) < 0 })
	return results, nil
}

type matcher struct {
	g       *graph.Graph
	pattern PathPattern
}

// seedCandidates produces the k==0 candidate set per spec.md §4.6.
func (m *matcher) seedCandidates(n NodePattern) ([]string, error) {
	if n.HasID {
		return []string{n.ID}, nil
	}
	if n.Label != "" {
		return m.g.GetNodesByLabel(n.Label)
	}
	return m.g.GetAllNodes()
}

// nodeSatisfies checks a candidate node id/label against a node
// pattern's constraints. When varLengthQuirk is set, an unlabeled
// pattern is treated as if it required label "Person", reproducing the
// reference implementation's variable-length terminal-check bug
// (spec.md §9).
func nodeSatisfies(n NodePattern, id, label string, varLengthQuirk bool) bool {
	if n.HasID && id != n.ID {
		return false
	}
	wantLabel := n.Label
	if wantLabel == "" && varLengthQuirk {
		wantLabel = "Person"
	}
	if wantLabel != "" && label != wantLabel {
		return false
	}
	return true
}

// extend recurses from a realized prefix into pattern.Rels[k-1:], where
// path already satisfies pattern.Nodes[0:k].
func (m *matcher) extend(path MatchPath, k int) ([]MatchPath, error) {
	if k >= len(m.pattern.Nodes) {
		return []MatchPath{path}, nil
	}

	rel := m.pattern.Rels[k-1]
	nextPattern := m.pattern.Nodes[k]

	if rel.IsFixedSingleHop() {
		return m.extendFixedHop(path, k, rel, nextPattern)
	}
	return m.extendVariableLength(path, k, rel, nextPattern)
}

// extendFixedHop implements the single-edge-hop sub-algorithm.
func (m *matcher) extendFixedHop(path MatchPath, k int, rel RelPattern, nextPattern NodePattern) ([]MatchPath, error) {
	last := path.NodeIDs[len(path.NodeIDs)-1]
	steps, err := m.neighbors(last, rel)
	if err != nil {
		return nil, err
	}

	var results []MatchPath
	for _, step := range steps {
		to := step.To
		if step.From != last {
			to = step.From
		}
		label, err := m.g.GetNodeLabel(to)
		if err != nil && err != graph.ErrNodeNotFound {
			return nil, err
		}
		if !nodeSatisfies(nextPattern, to, label, false) {
			continue
		}
		extended := path.clone()
		extended.NodeIDs = append(extended.NodeIDs, to)
		extended.Edges = append(extended.Edges, step)
		extended.PatternPos = append(extended.PatternPos, len(extended.NodeIDs)-1)

		sub, err := m.extend(extended, k+1)
		if err != nil {
			return nil, err
		}
		results = append(results, sub...)
	}
	return results, nil
}

// varLengthFrame is one entry in the variable-length BFS sub-matcher's
// queue: the realized path so far and how many local hops it has taken
// within the current relationship segment.
type varLengthFrame struct {
	path      MatchPath
	localHops int
}

// extendVariableLength implements the bounded BFS sub-matcher for
// `*min..max` relationship segments (spec.md §4.6).
func (m *matcher) extendVariableLength(path MatchPath, k int, rel RelPattern, nextPattern NodePattern) ([]MatchPath, error) {
	queue := []varLengthFrame{{path: path, localHops: 0}}
	var results []MatchPath

	for len(queue) > 0 {
		frame := queue[0]
		queue = queue[1:]

		last := frame.path.NodeIDs[len(frame.path.NodeIDs)-1]

		if frame.localHops >= rel.MinHops && frame.localHops <= rel.MaxHops {
			label, err := m.g.GetNodeLabel(last)
			if err != nil && err != graph.ErrNodeNotFound {
				return nil, err
			}
			if nodeSatisfies(nextPattern, last, label, true) {
				realized := frame.path.clone()
				realized.PatternPos = append(realized.PatternPos, len(realized.NodeIDs)-1)
				sub, err := m.extend(realized, k+1)
				if err != nil {
					return nil, err
				}
				results = append(results, sub...)
			}
		}

		if frame.localHops >= rel.MaxHops {
			continue
		}

		steps, err := m.neighbors(last, rel)
		if err != nil {
			return nil, err
		}
		inPath := map[string]bool{}
		for _, id := range frame.path.NodeIDs {
			inPath[id] = true
		}
		seen := map[string]bool{}
		for _, step := range steps {
			to := step.To
			if step.From != last {
				to = step.From
			}
			if inPath[to] || seen[to] {
				continue
			}
			seen[to] = true

			next := frame.path.clone()
			next.NodeIDs = append(next.NodeIDs, to)
			next.Edges = append(next.Edges, step)
			queue = append(queue, varLengthFrame{path: next, localHops: frame.localHops + 1})
		}
	}
	return results, nil
}

// neighbors resolves the raw edge steps reachable from node in the
// direction and type rel specifies. For an undirected pattern
// (DirBoth), outgoing and incoming are unioned and deduplicated by the
// neighbor id, with outgoing preferred, per spec.md §4.5/§4.6.
func (m *matcher) neighbors(node string, rel RelPattern) ([]edgeStep, error) {
	switch rel.Dir {
	case DirOut:
		out, err := m.g.GetOutgoing(node, rel.Type)
		if err != nil {
			return nil, err
		}
		steps := make([]edgeStep, 0, len(out))
		for _, n := range out {
			steps = append(steps, edgeStep{From: node, To: n.ID, Type: n.Type})
		}
		return steps, nil
	case DirIn:
		in, err := m.g.GetIncoming(node, rel.Type)
		if err != nil {
			return nil, err
		}
		steps := make([]edgeStep, 0, len(in))
		for _, n := range in {
			steps = append(steps, edgeStep{From: n.ID, To: node, Type: n.Type})
		}
		return steps, nil
	default:
		out, err := m.g.GetOutgoing(node, rel.Type)
		if err != nil {
			return nil, err
		}
		in, err := m.g.GetIncoming(node, rel.Type)
		if err != nil {
			return nil, err
		}
		seen := map[string]bool{}
		var steps []edgeStep
		for _, n := range out {
			steps = append(steps, edgeStep{From: node, To: n.ID, Type: n.Type})
			seen[n.ID] = true
		}
		for _, n := range in {
			if seen[n.ID] {
				continue
			}
			steps = append(steps, edgeStep{From: n.ID, To: node, Type: n.Type})
		}
		return steps, nil
	}
}

func (p MatchPath) clone() MatchPath {
	return MatchPath{
		NodeIDs:    append([]string(nil), p.NodeIDs...),
		Edges:      append([]edgeStep(nil), p.Edges...),
		PatternPos: append([]int(nil), p.PatternPos...),
	}
}

func comparePaths(a, b MatchPath) int {
	last := func(p MatchPath) string { return p.NodeIDs[len(p.NodeIDs)-1] }
	if la, lb := last(a), last(b); la != lb {
		if la < lb {
			return -1
		}
		return 1
	}
	for i := 0; i < len(a.NodeIDs) && i < len(b.NodeIDs); i++ {
		if a.NodeIDs[i] != b.NodeIDs[i] {
			if a.NodeIDs[i] < b.NodeIDs[i] {
				return -1
			}
			return 1
		}
	}
	return len(a.NodeIDs) - len(b.NodeIDs)
}

func pathKey(p MatchPath) string {
	s := ""
	for _, id := range p.NodeIDs {
		s += id + "\x1f"
	}
	for _, e := range p.Edges {
		s += e.From + "\x1e" + e.Type + "\x1e" + e.To + "\x1f"
	}
	return s
}

func dedupPaths(paths []MatchPath) []MatchPath {
	seen := map[string]bool{}
	out := make([]MatchPath, 0, len(paths))
	for _, p := range paths {
		k := pathKey(p)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return out
}
