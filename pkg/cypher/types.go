// Package cypher implements the restricted Cypher-like query dialect:
// pattern parsing, path matching (fixed- and variable-length), filter
// evaluation, and CREATE/MATCH...DELETE/MATCH...RETURN execution against
// the graph package.
package cypher

import (
	"errors"

	"github.com/gqlite/gqlite/pkg/pool"
)

// ErrUnparsable is returned by Parse when a query does not match the
// recognised grammar. Per the error-handling policy, callers driving a
// query end-to-end should treat this as "empty result," not a fatal
// condition.
var ErrUnparsable = errors.New("cypher: unparsable query")

// Direction is the arrow direction of a relationship pattern.
type Direction int

const (
	DirOut Direction = iota
	DirIn
	DirBoth
)

func (d Direction) String() string {
	switch d {
	case DirOut:
		return "->"
	case DirIn:
		return "<-"
	default:
		return "-"
	}
}

// NodePattern is one `(var:Label {id:'...'})` node in a path pattern.
type NodePattern struct {
	Var   string
	Label string
	ID    string
	HasID bool
}

// RelPattern is one `-[var:TYPE*min..max]->` relationship segment between
// two node patterns.
type RelPattern struct {
	Var     string
	Type    string
	Dir     Direction
	MinHops int
	MaxHops int
}

// IsFixedSingleHop reports whether this relationship is a single-edge
// hop (min == max == 1: no `*`, or `*1` / `*1..1`), which the matcher
// resolves by direct
// neighbor lookup rather than the variable-length BFS sub-matcher.
func (r RelPattern) IsFixedSingleHop() bool {
	return r.MinHops == 1 && r.MaxHops == 1
}

// PathPattern is the parsed pattern clause: an alternating sequence of
// node patterns and relationship patterns, len(Rels) == len(Nodes)-1.
type PathPattern struct {
	PathVar string // set if the whole path is bound, e.g. `p = (a)-[:R]->(b)`
	Nodes   []NodePattern
	Rels    []RelPattern
}

// Filter is one `var.prop = 'literal'` WHERE conjunct.
type Filter struct {
	Var  string
	Prop string
	Val  string
}

// ReturnItem is one projected column: either `var.prop` or a bare `var`
// (equivalent to `var.id` for a node variable and `var.type` for a
// relationship variable), or the path variable itself.
type ReturnItem struct {
	Var  string
	Prop string // "", "id", "label", or "type"
}

// QueryKind discriminates the three supported statement shapes.
type QueryKind int

const (
	QueryCreate QueryKind = iota
	QueryMatchReturn
	QueryMatchDelete
)

// ParsedQuery is the output of Parse: a path pattern plus whatever the
// trailing clause needs to execute.
type ParsedQuery struct {
	Kind    QueryKind
	Pattern PathPattern
	Filters []Filter
	Returns []ReturnItem
	Deletes []string // variable names named in a DELETE clause
}

// NodeRef identifies one realized node in a projected row.
type NodeRef struct {
	Var   string
	ID    string
	Label string
}

// EdgeRef identifies one realized edge in a projected row. Dir is the
// arrow direction of the relationship pattern that produced this edge,
// not necessarily the direction the edge is actually stored in.
type EdgeRef struct {
	Var  string
	From string
	To   string
	Type string
	Dir  Direction
}

// PathValue is the structured value produced when a RETURN clause names
// the path variable.
type PathValue struct {
	Nodes []NodeRef
	Edges []EdgeRef
}

// String renders a path the way the CLI displays it, with arrows
// dictated by each edge's relationship pattern direction:
// "(id:label)-[:type]->(id:label)<-[:type]-(...)".
func (p PathValue) String() string {
	b := pool.GetStringBuilder()
	defer pool.PutStringBuilder(b)
	for i, n := range p.Nodes {
		b.WriteByte('(')
		b.WriteString(n.ID)
		if n.Label != "" {
			b.WriteByte(':')
			b.WriteString(n.Label)
		}
		b.WriteByte(')')
		if i < len(p.Edges) {
			e := p.Edges[i]
			switch e.Dir {
			case DirIn:
				b.WriteString("<-[:")
				b.WriteString(e.Type)
				b.WriteString("]-")
			case DirBoth:
				b.WriteString("-[:")
				b.WriteString(e.Type)
				b.WriteString("]-")
			default:
				b.WriteString("-[:")
				b.WriteString(e.Type)
				b.WriteString("]->")
			}
		}
	}
	return b.String()
}

// Cell is one value in a projected row: either a scalar string (the
// common case: an id, label or type) or a structured path value.
type Cell struct {
	Scalar string
	Path   *PathValue
}

func scalarCell(s string) Cell  { return Cell{Scalar: s} }
func pathCell(p PathValue) Cell { return Cell{Path: &p} }

func (c Cell) key() string {
	if c.Path != nil {
		return "p:" + c.Path.String()
	}
	return "s:" + c.Scalar
}

// Row is one result row: one Cell per ReturnItem, in order.
type Row struct {
	Cells []Cell
}

func (r Row) key() string {
	b := pool.GetStringBuilder()
	defer pool.PutStringBuilder(b)
	for _, c := range r.Cells {
		b.WriteString(c.key())
		b.WriteByte('\x1f')
	}
	return b.String()
}

// Result is the outcome of executing a query: empty for CREATE and
// MATCH...DELETE (absent a returning clause), column-named for
// MATCH...RETURN.
type Result struct {
	Columns []string
	Rows    []Row
}
