package cypher

import (
	"errors"

	"github.com/gqlite/gqlite/pkg/graph"
)

// Execute runs a parsed query against g and builds its result, dispatching
// on the query kind: CREATE bypasses the matcher and writes directly;
// MATCH...DELETE and MATCH...RETURN both run the Path Matcher, apply the
// WHERE conjunction, and either mutate the graph or project rows
// (spec.md §4.7, §4.8). Every stage that can fail without invalidating
// the whole query (an unresolved filter variable, a vanished node)
// collapses that one row rather than the whole result.
func Execute(g *graph.Graph, q ParsedQuery) (Result, error) {
	switch q.Kind {
	case QueryCreate:
		return Result{}, executeCreate(g, q.Pattern)
	case QueryMatchDelete:
		return Result{}, executeMatchDelete(g, q)
	case QueryMatchReturn:
		return executeMatchReturn(g, q)
	default:
		return Result{}, ErrUnparsable
	}
}

func executeCreate(g *graph.Graph, pattern PathPattern) error {
	for _, n := range pattern.Nodes {
		if n.HasID && n.Label != "" {
			if err := g.AddNode(n.ID, n.Label); err != nil {
				return err
			}
		}
	}
	for i, rel := range pattern.Rels {
		from := pattern.Nodes[i].ID
		to := pattern.Nodes[i+1].ID
		if rel.Dir == DirIn {
			from, to = to, from
		}
		if err := g.AddEdge(from, rel.Type, to); err != nil {
			return err
		}
	}
	return nil
}

func executeMatchDelete(g *graph.Graph, q ParsedQuery) error {
	paths, err := Match(g, q.Pattern)
	if err != nil {
		return err
	}
	nodeVarIdx, relVarIdx := varIndices(q.Pattern)

	for _, path := range paths {
		ok, err := passesFilters(g, q.Pattern, path, nodeVarIdx, relVarIdx, q.Filters)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for _, v := range q.Deletes {
			if idx, found := nodeVarIdx[v]; found {
				id := path.NodeIDs[path.PatternPos[idx]]
				if err := g.DeleteNode(id); err != nil {
					return err
				}
				continue
			}
			if idx, found := relVarIdx[v]; found {
				edge, ok := edgeForRel(path, idx)
				if !ok {
					continue
				}
				if err := g.DeleteEdge(edge.From, edge.Type, edge.To); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func executeMatchReturn(g *graph.Graph, q ParsedQuery) (Result, error) {
	paths, err := Match(g, q.Pattern)
	if err != nil {
		return Result{}, err
	}
	nodeVarIdx, relVarIdx := varIndices(q.Pattern)

	columns := make([]string, len(q.Returns))
	for i, item := range q.Returns {
		columns[i] = returnColumnName(item)
	}

	var rows []Row
	seen := map[string]bool{}
	for _, path := range paths {
		ok, err := passesFilters(g, q.Pattern, path, nodeVarIdx, relVarIdx, q.Filters)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			continue
		}

		row, ok, err := projectRow(g, q.Pattern, path, nodeVarIdx, relVarIdx, q.Returns)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			continue
		}
		key := row.key()
		if seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, row)
	}

	return Result{Columns: columns, Rows: rows}, nil
}

func returnColumnName(item ReturnItem) string {
	if item.Prop == "" {
		return item.Var
	}
	return item.Var + "." + item.Prop
}

// varIndices maps each bound variable name to its position in
// pattern.Nodes / pattern.Rels.
func varIndices(pattern PathPattern) (nodes map[string]int, rels map[string]int) {
	nodes = make(map[string]int)
	rels = make(map[string]int)
	for i, n := range pattern.Nodes {
		if n.Var != "" {
			nodes[n.Var] = i
		}
	}
	for i, r := range pattern.Rels {
		if r.Var != "" {
			rels[r.Var] = i
		}
	}
	return nodes, rels
}

// edgeForRel resolves the single realized edge a relationship-pattern
// variable refers to. It only resolves when the pattern position spans
// exactly one realized edge (the ordinary case for a fixed hop, and for
// a variable-length segment that happened to realize as one hop);
// spanning more than one edge leaves the variable unresolved.
func edgeForRel(path MatchPath, relIdx int) (edgeStep, bool) {
	start := path.PatternPos[relIdx]
	end := path.PatternPos[relIdx+1]
	if end-start != 1 {
		return edgeStep{}, false
	}
	return path.Edges[start], true
}

func passesFilters(g *graph.Graph, pattern PathPattern, path MatchPath, nodeVarIdx, relVarIdx map[string]int, filters []Filter) (bool, error) {
	for _, f := range filters {
		val, ok, err := resolveAttr(g, path, nodeVarIdx, relVarIdx, f.Var, f.Prop)
		if err != nil {
			return false, err
		}
		if !ok || val != f.Val {
			return false, nil
		}
	}
	return true, nil
}

// resolveAttr reads one variable.property value out of a realized path.
// ok is false if the variable or property cannot be resolved, which the
// caller treats as "this row fails," not a query-level error.
func resolveAttr(g *graph.Graph, path MatchPath, nodeVarIdx, relVarIdx map[string]int, v, prop string) (string, bool, error) {
	if idx, found := nodeVarIdx[v]; found {
		id := path.NodeIDs[path.PatternPos[idx]]
		switch prop {
		case "", "id":
			return id, true, nil
		case "label":
			label, err := g.GetNodeLabel(id)
			if errors.Is(err, graph.ErrNodeNotFound) {
				return "", false, nil
			}
			if err != nil {
				return "", false, err
			}
			return label, true, nil
		default:
			return "", false, nil
		}
	}
	if idx, found := relVarIdx[v]; found {
		edge, ok := edgeForRel(path, idx)
		if !ok {
			return "", false, nil
		}
		switch prop {
		case "", "type":
			return edge.Type, true, nil
		default:
			return "", false, nil
		}
	}
	return "", false, nil
}

// projectRow builds one result row from a realized path. ok is false when
// a return item names a variable that cannot be resolved — e.g. a
// relationship variable spanning more than one realized edge in a
// variable-length match — in which case the row is dropped rather than
// projected with an empty cell, matching the WHERE-clause behavior in
// passesFilters.
func projectRow(g *graph.Graph, pattern PathPattern, path MatchPath, nodeVarIdx, relVarIdx map[string]int, items []ReturnItem) (Row, bool, error) {
	row := Row{Cells: make([]Cell, len(items))}
	for i, item := range items {
		if pattern.PathVar != "" && item.Var == pattern.PathVar && item.Prop == "" {
			pv, err := buildPathValue(g, pattern, path)
			if err != nil {
				return Row{}, false, err
			}
			row.Cells[i] = pathCell(pv)
			continue
		}
		val, ok, err := resolveAttr(g, path, nodeVarIdx, relVarIdx, item.Var, item.Prop)
		if err != nil {
			return Row{}, false, err
		}
		if !ok {
			return Row{}, false, nil
		}
		row.Cells[i] = scalarCell(val)
	}
	return row, true, nil
}

// buildPathValue renders every realized node and edge on path, in
// order, labeling the positions that correspond to a named pattern
// variable and tagging each edge with the arrow direction its governing
// relationship pattern was written with (spec.md §4.7).
func buildPathValue(g *graph.Graph, pattern PathPattern, path MatchPath) (PathValue, error) {
	varAtPos := make(map[int]string)
	for i, n := range pattern.Nodes {
		if n.Var != "" {
			varAtPos[path.PatternPos[i]] = n.Var
		}
	}

	// dirAtEdge[i] is the direction of the relationship pattern that
	// realized path.Edges[i]; a variable-length segment spanning several
	// edges shares the one pattern direction across all of them.
	dirAtEdge := make([]Direction, len(path.Edges))
	for i, rel := range pattern.Rels {
		for edgeIdx := path.PatternPos[i]; edgeIdx < path.PatternPos[i+1]; edgeIdx++ {
			dirAtEdge[edgeIdx] = rel.Dir
		}
	}

	var pv PathValue
	for i, id := range path.NodeIDs {
		label, err := g.GetNodeLabel(id)
		if err != nil && !errors.Is(err, graph.ErrNodeNotFound) {
			return PathValue{}, err
		}
		pv.Nodes = append(pv.Nodes, NodeRef{Var: varAtPos[i], ID: id, Label: label})
	}
	for i, e := range path.Edges {
		pv.Edges = append(pv.Edges, EdgeRef{From: e.From, To: e.To, Type: e.Type, Dir: dirAtEdge[i]})
	}
	return pv, nil
}
