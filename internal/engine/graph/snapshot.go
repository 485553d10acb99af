package graph

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Snapshot is an immutable point-in-time view of the graph. Holding one is
// always safe while the store keeps committing: node and edge values are
// never mutated after insertion, and the index slices are copied out, so a
// later commit cannot reach into a snapshot.
type Snapshot struct {
	handle  string
	version uint64

	nodes map[NodeID]*Node
	edges map[EdgeID]*Edge

	byFile map[string][]NodeID
	byKind map[Kind][]NodeID

	out map[NodeID][]EdgeID
	in  map[NodeID][]EdgeID

	degraded map[string][]string

	nameOnce  sync.Once
	nameIndex map[string][]NodeID
}

// Snapshot captures the current graph state under a read lock.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		handle:   uuid.NewString(),
		version:  s.version,
		nodes:    make(map[NodeID]*Node, len(s.nodes)),
		edges:    make(map[EdgeID]*Edge, len(s.edges)),
		byFile:   make(map[string][]NodeID, len(s.byFile)),
		byKind:   make(map[Kind][]NodeID, len(s.byKind)),
		out:      make(map[NodeID][]EdgeID, len(s.out)),
		in:       make(map[NodeID][]EdgeID, len(s.in)),
		degraded: make(map[string][]string, len(s.degraded)),
	}
	for id, n := range s.nodes {
		snap.nodes[id] = n
	}
	for id, e := range s.edges {
		snap.edges[id] = e
	}
	for file, contrib := range s.byFile {
		snap.byFile[file] = append([]NodeID(nil), contrib.nodes...)
	}
	for kind, set := range s.byKind {
		ids := make([]NodeID, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		snap.byKind[kind] = ids
	}
	// Adjacency slices must be copied, not shared: insertSorted and removeID
	// shift elements of the live slices in place, which would rewrite a
	// shared backing array under the snapshot.
	for id, edges := range s.out {
		snap.out[id] = append([]EdgeID(nil), edges...)
	}
	for id, edges := range s.in {
		snap.in[id] = append([]EdgeID(nil), edges...)
	}
	for file, errs := range s.degraded {
		snap.degraded[file] = errs
	}
	return snap
}

// Handle is the opaque identifier callers quote when comparing results
// between reads.
func (sn *Snapshot) Handle() string { return sn.handle }

// Version is the store commit counter this snapshot was taken at.
func (sn *Snapshot) Version() uint64 { return sn.version }

// Node returns a defensive copy of the node, or false if absent.
func (sn *Snapshot) Node(id NodeID) (*Node, bool) {
	n, ok := sn.nodes[id]
	if !ok {
		return nil, false
	}
	return cloneNode(n), true
}

// Contains reports whether the node exists in this snapshot.
func (sn *Snapshot) Contains(id NodeID) bool {
	_, ok := sn.nodes[id]
	return ok
}

// NodeRef is the non-copying lookup for traversal-heavy callers. The result
// is shared and must not be mutated.
func (sn *Snapshot) NodeRef(id NodeID) *Node { return sn.nodes[id] }

// Outgoing returns the node's outgoing edges in deterministic order. The
// returned values are shared and must not be mutated.
func (sn *Snapshot) Outgoing(id NodeID) []*Edge {
	return sn.resolveEdges(sn.out[id])
}

// Incoming returns the node's incoming edges in deterministic order. The
// returned values are shared and must not be mutated.
func (sn *Snapshot) Incoming(id NodeID) []*Edge {
	return sn.resolveEdges(sn.in[id])
}

func (sn *Snapshot) resolveEdges(ids []EdgeID) []*Edge {
	if len(ids) == 0 {
		return nil
	}
	edges := make([]*Edge, 0, len(ids))
	for _, id := range ids {
		if e, ok := sn.edges[id]; ok {
			edges = append(edges, e)
		}
	}
	return edges
}

// Neighbors lists the edges touching the node in the given direction,
// optionally filtered to a set of relations.
func (sn *Snapshot) Neighbors(id NodeID, dir Direction, relations ...Relation) []*Edge {
	var all []*Edge
	if dir == DirOutgoing {
		all = sn.Outgoing(id)
	} else {
		all = sn.Incoming(id)
	}
	if len(relations) == 0 {
		return all
	}
	want := make(map[Relation]bool, len(relations))
	for _, r := range relations {
		want[r] = true
	}
	filtered := all[:0:0]
	for _, e := range all {
		if want[e.Relation] {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// Record is a node together with its incident edges, for single-node
// inspection.
type Record struct {
	Node     *Node
	Outgoing []*Edge
	Incoming []*Edge
}

// NodeRecord returns the full record for one node: a defensive copy of the
// node plus its incident edges in deterministic order.
func (sn *Snapshot) NodeRecord(id NodeID) (*Record, bool) {
	n, ok := sn.Node(id)
	if !ok {
		return nil, false
	}
	return &Record{
		Node:     n,
		Outgoing: sn.Outgoing(id),
		Incoming: sn.Incoming(id),
	}, true
}

// NodesByKind returns the ids of all nodes of the kind, sorted.
func (sn *Snapshot) NodesByKind(kind Kind) []NodeID {
	return append([]NodeID(nil), sn.byKind[kind]...)
}

// NodesInFile returns the ids of the nodes a file contributed, sorted.
func (sn *Snapshot) NodesInFile(file string) []NodeID {
	ids := append([]NodeID(nil), sn.byFile[file]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// FindByName returns every node carrying the exact name, sorted by id.
func (sn *Snapshot) FindByName(name string) []NodeID {
	sn.nameOnce.Do(func() {
		sn.nameIndex = make(map[string][]NodeID)
		for id, n := range sn.nodes {
			sn.nameIndex[n.Name] = append(sn.nameIndex[n.Name], id)
		}
		for _, ids := range sn.nameIndex {
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		}
	})
	return append([]NodeID(nil), sn.nameIndex[name]...)
}

// NodeIDs returns every node id in the snapshot, sorted.
func (sn *Snapshot) NodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(sn.nodes))
	for id := range sn.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// EdgeByID returns the edge, shared and read-only, or false if absent.
func (sn *Snapshot) EdgeByID(id EdgeID) (*Edge, bool) {
	e, ok := sn.edges[id]
	return e, ok
}

// Files lists every file contributing nodes, sorted.
func (sn *Snapshot) Files() []string {
	files := make([]string, 0, len(sn.byFile))
	for f := range sn.byFile {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// DegradedFiles maps each file that failed extraction to its errors.
func (sn *Snapshot) DegradedFiles() map[string][]string {
	out := make(map[string][]string, len(sn.degraded))
	for f, errs := range sn.degraded {
		out[f] = append([]string(nil), errs...)
	}
	return out
}
