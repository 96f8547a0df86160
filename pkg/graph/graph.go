// Package graph implements the property-graph data model on top of the
// pkg/storage ordered key-value contract: nodes carrying a single label,
// typed directed edges indexed in both directions, and a label index for
// label-scoped lookups. See keys.go for the on-disk key layout.
package graph

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/gqlite/gqlite/pkg/storage"
)

var (
	// ErrInvalidID is returned when a caller passes an empty node id.
	ErrInvalidID = errors.New("graph: node id must not be empty")
	// ErrNodeNotFound is returned when an operation requires an existing node.
	ErrNodeNotFound = errors.New("graph: node not found")
)

// logger receives diagnostics for malformed index entries skipped during a
// scan — a recoverable condition (spec.md §7: logging, not failure, is the
// response to a corrupted key the decoder can't parse). Swappable with
// SetLogger so tests can silence or assert on it.
var logger = log.New(os.Stderr, "", log.LstdFlags)

// SetLogger replaces the package-level logger used for malformed-key
// diagnostics. Passing nil silences logging entirely.
func SetLogger(l *log.Logger) {
	if l == nil {
		logger = log.New(io.Discard, "", 0)
		return
	}
	logger = l
}

// Graph is the embedded property-graph store. It is safe for concurrent
// use: reads may run in parallel, writes are serialized by an internal
// mutex (the single-writer model spec.md §5 assumes the caller enforces is
// enforced here instead, since pkg/storage itself allows concurrent
// writers).
type Graph struct {
	mu     sync.RWMutex
	engine storage.Engine
}

// New wraps engine as a property graph. The Graph does not own the
// engine's lifecycle; callers are responsible for calling engine.Close.
func New(engine storage.Engine) *Graph {
	return &Graph{engine: engine}
}

// AddNode creates a node with the given id and label, or, if the id
// already exists, overwrites the label stored in its node record.
//
// Relabeling quirk: calling AddNode again with a different label updates
// the primary node record but does not remove the old label-index entry,
// reproducing the reference implementation's behavior (spec.md §4.3, §9).
// GetNodesByLabel can therefore return a stale id after a relabel; this is
// a documented bug, not a defect introduced here.
func (g *Graph) AddNode(id, label string) error {
	if id == "" {
		return ErrInvalidID
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.engine.Put(nodeKey(id), []byte(label)); err != nil {
		return fmt.Errorf("graph: add node %q: %w", id, err)
	}
	if err := g.engine.Put(labelIndexKey(label, id), nil); err != nil {
		return fmt.Errorf("graph: add node %q: index label: %w", id, err)
	}
	return nil
}

// GetNodeLabel returns the label currently stored for id.
func (g *Graph) GetNodeLabel(id string) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.getNodeLabelLocked(id)
}

func (g *Graph) getNodeLabelLocked(id string) (string, error) {
	v, err := g.engine.Get(nodeKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrNodeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("graph: get node %q: %w", id, err)
	}
	return string(v), nil
}

// NodeExists reports whether id currently has a node record.
func (g *Graph) NodeExists(id string) bool {
	_, err := g.GetNodeLabel(id)
	return err == nil
}

// GetNodesByLabel returns every node id indexed under label, in
// lexicographic id order. Per the relabeling quirk documented on
// AddNode, this may include ids whose current primary label differs.
func (g *Graph) GetNodesByLabel(label string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	it := g.engine.Iterator(labelIndexPrefix(label))
	defer it.Close()

	var ids []string
	for it.Next() {
		_, id, ok := decodeLabelIndexKey(it.Key())
		if !ok {
			logger.Printf("graph: skipping malformed label-index key under %q", label)
			continue
		}
		ids = append(ids, id)
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("graph: get nodes by label %q: %w", label, err)
	}
	// The id field is length-prefixed in the key, so the scan yields
	// shorter ids first; sort to return plain lexicographic order.
	sort.Strings(ids)
	return ids, nil
}

// GetAllNodes returns every node id, in key order.
func (g *Graph) GetAllNodes() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	it := g.engine.Iterator([]byte{tagNode})
	defer it.Close()

	var ids []string
	for it.Next() {
		id, ok := decodeNodeKey(it.Key())
		if !ok {
			logger.Printf("graph: skipping malformed node key")
			continue
		}
		ids = append(ids, id)
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("graph: get all nodes: %w", err)
	}
	return ids, nil
}

// AddEdge creates a directed edge from -> to labeled edgeType, writing
// both the outgoing and incoming index entries so traversal works in
// either direction. Adding the same (from, edgeType, to) triple twice is
// idempotent. Endpoints are not required to already exist as nodes,
// matching the reference implementation, which never validated endpoint
// existence before indexing an edge.
func (g *Graph) AddEdge(from, edgeType, to string) error {
	if from == "" || to == "" {
		return ErrInvalidID
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.engine.Put(outgoingKey(from, edgeType, to), nil); err != nil {
		return fmt.Errorf("graph: add edge %s-%s->%s: %w", from, edgeType, to, err)
	}
	if err := g.engine.Put(incomingKey(to, edgeType, from), nil); err != nil {
		return fmt.Errorf("graph: add edge %s-%s->%s: %w", from, edgeType, to, err)
	}
	return nil
}

// DeleteEdge removes one directed edge. Deleting an edge that does not
// exist is not an error.
func (g *Graph) DeleteEdge(from, edgeType, to string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deleteEdgeLocked(from, edgeType, to)
}

func (g *Graph) deleteEdgeLocked(from, edgeType, to string) error {
	if err := g.engine.Delete(outgoingKey(from, edgeType, to)); err != nil {
		return fmt.Errorf("graph: delete edge %s-%s->%s: %w", from, edgeType, to, err)
	}
	if err := g.engine.Delete(incomingKey(to, edgeType, from)); err != nil {
		return fmt.Errorf("graph: delete edge %s-%s->%s: %w", from, edgeType, to, err)
	}
	return nil
}

// DeleteNode removes id's node record and every edge touching it, in
// either direction, cascading exactly as the reference implementation's
// graphdb_delete_node does. The label-index entry under id's current
// label is removed; stale label-index entries left behind by a prior
// relabel (see AddNode) are not cleaned up, since DeleteNode has no
// record of which labels id was ever indexed under.
func (g *Graph) DeleteNode(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	label, err := g.getNodeLabelLocked(id)
	if errors.Is(err, ErrNodeNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	outIt := g.engine.Iterator(outgoingNodePrefix(id))
	var outEdges []neighbor
	for outIt.Next() {
		_, edgeType, to, ok := decodeOutgoingKey(outIt.Key())
		if ok {
			outEdges = append(outEdges, neighbor{ID: to, Type: edgeType})
		}
	}
	outErr := outIt.Err()
	outIt.Close()
	if outErr != nil {
		return fmt.Errorf("graph: delete node %q: scan outgoing: %w", id, outErr)
	}

	inIt := g.engine.Iterator(incomingNodePrefix(id))
	var inEdges []neighbor
	for inIt.Next() {
		_, edgeType, from, ok := decodeIncomingKey(inIt.Key())
		if ok {
			inEdges = append(inEdges, neighbor{ID: from, Type: edgeType})
		}
	}
	inErr := inIt.Err()
	inIt.Close()
	if inErr != nil {
		return fmt.Errorf("graph: delete node %q: scan incoming: %w", id, inErr)
	}

	for _, e := range outEdges {
		if err := g.deleteEdgeLocked(id, e.Type, e.ID); err != nil {
			return err
		}
	}
	for _, e := range inEdges {
		if err := g.deleteEdgeLocked(e.ID, e.Type, id); err != nil {
			return err
		}
	}

	if err := g.engine.Delete(labelIndexKey(label, id)); err != nil {
		return fmt.Errorf("graph: delete node %q: delete label index: %w", id, err)
	}
	if err := g.engine.Delete(nodeKey(id)); err != nil {
		return fmt.Errorf("graph: delete node %q: %w", id, err)
	}
	return nil
}

// GetOutgoing returns the neighbors reachable from node over outgoing
// edges of type edgeType. An empty edgeType matches edges of any type.
func (g *Graph) GetOutgoing(node, edgeType string) ([]neighbor, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	it := g.engine.Iterator(outgoingPrefix(node, edgeType))
	defer it.Close()

	var out []neighbor
	for it.Next() {
		_, typ, to, ok := decodeOutgoingKey(it.Key())
		if !ok {
			logger.Printf("graph: skipping malformed outgoing-edge key for %q", node)
			continue
		}
		out = append(out, neighbor{ID: to, Type: typ})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("graph: get outgoing of %q: %w", node, err)
	}
	return out, nil
}

// GetIncoming returns the neighbors that reach node over incoming edges
// of type edgeType. An empty edgeType matches edges of any type.
func (g *Graph) GetIncoming(node, edgeType string) ([]neighbor, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	it := g.engine.Iterator(incomingPrefix(node, edgeType))
	defer it.Close()

	var in []neighbor
	for it.Next() {
		_, typ, from, ok := decodeIncomingKey(it.Key())
		if !ok {
			logger.Printf("graph: skipping malformed incoming-edge key for %q", node)
			continue
		}
		in = append(in, neighbor{ID: from, Type: typ})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("graph: get incoming of %q: %w", node, err)
	}
	return in, nil
}
