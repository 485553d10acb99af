package graph

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"reachgraph/internal/shared/observability"
)

// SyntheticPrefix marks ids of placeholder nodes the store owns itself.
// References that resolve to no declared entity point at one of these.
const SyntheticPrefix = "unresolved:"

// FileDiff is one file's complete contribution to the graph. Applying it
// atomically replaces whatever the file contributed before.
type FileDiff struct {
	File  string
	Nodes []*Node
	Edges []*Edge
	// Errors marks the file degraded: its facts are partial but still
	// committed, and the messages stay queryable on the snapshot.
	Errors []string
}

type fileContribution struct {
	nodes []NodeID
	edges []EdgeID
}

// Store is the authoritative indexed holder of nodes and edges. It follows a
// single-writer discipline: the change coordinator commits diffs, everyone
// else reads immutable snapshots. Node and Edge values are never mutated in
// place after insertion; every correction is copy-on-write.
type Store struct {
	mu sync.RWMutex

	nodes map[NodeID]*Node
	edges map[EdgeID]*Edge

	byFile    map[string]*fileContribution
	byKind    map[Kind]map[NodeID]bool
	edgeOwner map[EdgeID]string

	out map[NodeID][]EdgeID
	in  map[NodeID][]EdgeID

	// Reference counts for synthetic unresolved nodes, by id.
	syntheticRefs map[NodeID]int

	// Files whose extraction failed entirely, with the reported errors.
	degraded map[string][]string

	version uint64
}

func NewStore() *Store {
	return &Store{
		nodes:         make(map[NodeID]*Node),
		edges:         make(map[EdgeID]*Edge),
		byFile:        make(map[string]*fileContribution),
		byKind:        make(map[Kind]map[NodeID]bool),
		edgeOwner:     make(map[EdgeID]string),
		out:           make(map[NodeID][]EdgeID),
		in:            make(map[NodeID][]EdgeID),
		syntheticRefs: make(map[NodeID]int),
		degraded:      make(map[string][]string),
	}
}

// ApplyFileDiff atomically replaces the file's previous contribution with the
// given nodes and edges. Readers holding a snapshot are unaffected; readers
// taking a new snapshot see either none or all of the diff.
func (s *Store) ApplyFileDiff(diff FileDiff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(diff)
	s.version++
	s.publishGauges()
}

// ApplyBatch commits several file diffs as one write, so a burst touching
// many files never becomes visible half-applied.
func (s *Store) ApplyBatch(diffs []FileDiff) {
	if len(diffs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, diff := range diffs {
		s.applyLocked(diff)
	}
	s.version++
	s.publishGauges()
}

// RemoveFile drops the file's contribution entirely, equivalent to applying
// an empty diff.
func (s *Store) RemoveFile(file string) {
	s.ApplyFileDiff(FileDiff{File: file})
}

// MarkDegraded records that a file could not be tokenized at all. Its prior
// contribution is removed rather than left stale.
func (s *Store) MarkDegraded(file string, errs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(FileDiff{File: file})
	s.degraded[file] = append([]string(nil), errs...)
	s.version++
	s.publishGauges()
}

func (s *Store) applyLocked(diff FileDiff) {
	s.removeContributionLocked(diff.File)
	delete(s.degraded, diff.File)
	if len(diff.Errors) > 0 {
		s.degraded[diff.File] = append([]string(nil), diff.Errors...)
	}

	if len(diff.Nodes) == 0 && len(diff.Edges) == 0 {
		return
	}

	contrib := &fileContribution{}
	s.byFile[diff.File] = contrib

	for _, n := range diff.Nodes {
		s.insertNodeLocked(n)
		contrib.nodes = append(contrib.nodes, n.ID)
	}

	for _, e := range diff.Edges {
		s.ensureEndpointLocked(e.Source, e.Meta)
		s.ensureEndpointLocked(e.Target, e.Meta)
		s.insertEdgeLocked(e, diff.File)
		contrib.edges = append(contrib.edges, e.ID)
	}

	// A contribution of only dangling edges can legally be empty after
	// normalization; never keep an entry for a file with zero nodes.
	if len(contrib.nodes) == 0 && len(contrib.edges) == 0 {
		delete(s.byFile, diff.File)
	}
}

func (s *Store) insertNodeLocked(n *Node) {
	// A declared node may land on an id already held by a placeholder,
	// e.g. when another file's edges were applied first in the batch.
	// The real node takes over and must not stay registered as synthetic,
	// or a later edge removal would garbage-collect it.
	if prev, ok := s.nodes[n.ID]; ok && prev.Kind != n.Kind {
		if kindSet, ok := s.byKind[prev.Kind]; ok {
			delete(kindSet, n.ID)
			if len(kindSet) == 0 {
				delete(s.byKind, prev.Kind)
			}
		}
	}
	if n.Kind != KindUnresolved {
		delete(s.syntheticRefs, n.ID)
	}
	s.nodes[n.ID] = n
	kindSet, ok := s.byKind[n.Kind]
	if !ok {
		kindSet = make(map[NodeID]bool)
		s.byKind[n.Kind] = kindSet
	}
	kindSet[n.ID] = true
}

func (s *Store) insertEdgeLocked(e *Edge, owner string) {
	s.edges[e.ID] = e
	s.edgeOwner[e.ID] = owner
	s.out[e.Source] = insertSorted(s.out[e.Source], e.ID)
	s.in[e.Target] = insertSorted(s.in[e.Target], e.ID)
	s.retainSyntheticLocked(e.Source)
	s.retainSyntheticLocked(e.Target)
}

func (s *Store) removeEdgeLocked(id EdgeID) {
	e, ok := s.edges[id]
	if !ok {
		return
	}
	delete(s.edges, id)
	delete(s.edgeOwner, id)
	s.out[e.Source] = removeID(s.out[e.Source], id)
	if len(s.out[e.Source]) == 0 {
		delete(s.out, e.Source)
	}
	s.in[e.Target] = removeID(s.in[e.Target], id)
	if len(s.in[e.Target]) == 0 {
		delete(s.in, e.Target)
	}
	s.releaseSyntheticLocked(e.Source)
	s.releaseSyntheticLocked(e.Target)
}

func (s *Store) removeContributionLocked(file string) {
	contrib, ok := s.byFile[file]
	if !ok {
		return
	}
	delete(s.byFile, file)

	for _, id := range contrib.edges {
		s.removeEdgeLocked(id)
	}

	removed := make(map[NodeID]bool, len(contrib.nodes))
	for _, id := range contrib.nodes {
		node, ok := s.nodes[id]
		if !ok {
			continue
		}
		delete(s.nodes, id)
		if kindSet, ok := s.byKind[node.Kind]; ok {
			delete(kindSet, id)
			if len(kindSet) == 0 {
				delete(s.byKind, node.Kind)
			}
		}
		removed[id] = true
	}

	// Foreign edges that pointed into this file are no longer satisfied;
	// redirect each one to a fresh synthetic placeholder instead of leaving
	// a dangling endpoint.
	for id := range removed {
		for _, edgeID := range append([]EdgeID(nil), s.in[id]...) {
			s.redirectEdgeLocked(edgeID, id)
		}
		delete(s.in, id)
		delete(s.out, id)
	}
}

// redirectEdgeLocked rewrites an edge whose target vanished so that it points
// at a synthetic unresolved node named after the old target.
func (s *Store) redirectEdgeLocked(edgeID EdgeID, gone NodeID) {
	old, ok := s.edges[edgeID]
	if !ok || old.Target != gone {
		return
	}
	name := targetName(old, gone)
	synthetic := SyntheticID(name)

	replacement := cloneEdge(old)
	replacement.Target = synthetic
	replacement.Confidence = ConfidenceAmbiguous
	replacement.Candidates = nil

	owner := s.edgeOwner[edgeID]
	s.removeEdgeLocked(edgeID)
	s.ensureSyntheticLocked(synthetic, name)
	s.insertEdgeLocked(replacement, owner)
}

func (s *Store) ensureEndpointLocked(id NodeID, meta map[string]string) {
	if _, ok := s.nodes[id]; ok {
		return
	}
	name := strings.TrimPrefix(string(id), SyntheticPrefix)
	if meta != nil && meta["target-name"] != "" {
		name = meta["target-name"]
	}
	s.ensureSyntheticLocked(id, name)
}

func (s *Store) ensureSyntheticLocked(id NodeID, name string) {
	if _, ok := s.nodes[id]; ok {
		return
	}
	s.insertNodeLocked(&Node{
		ID:         id,
		Kind:       KindUnresolved,
		Name:       name,
		Confidence: ConfidenceAmbiguous,
	})
	s.syntheticRefs[id] = 0
}

func (s *Store) retainSyntheticLocked(id NodeID) {
	if _, ok := s.syntheticRefs[id]; ok {
		s.syntheticRefs[id]++
	}
}

// releaseSyntheticLocked garbage-collects a placeholder once nothing
// references it anymore.
func (s *Store) releaseSyntheticLocked(id NodeID) {
	refs, ok := s.syntheticRefs[id]
	if !ok {
		return
	}
	refs--
	if refs > 0 {
		s.syntheticRefs[id] = refs
		return
	}
	delete(s.syntheticRefs, id)
	if node, ok := s.nodes[id]; ok {
		delete(s.nodes, id)
		if kindSet, ok := s.byKind[node.Kind]; ok {
			delete(kindSet, id)
			if len(kindSet) == 0 {
				delete(s.byKind, node.Kind)
			}
		}
	}
}

// RetargetUnresolved upgrades synthetic placeholders whose name now matches
// freshly committed declarations. A unique match yields one Medium edge; a
// collision yields one Low edge per candidate, each listing all siblings.
// It returns the number of edges rewritten.
func (s *Store) RetargetUnresolved(matches map[string][]NodeID) int {
	if len(matches) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rewired := 0
	for id, node := range s.nodes {
		if node.Kind != KindUnresolved {
			continue
		}
		candidates := matches[node.Name]
		if len(candidates) == 0 {
			continue
		}
		live := make([]NodeID, 0, len(candidates))
		for _, c := range candidates {
			if _, ok := s.nodes[c]; ok {
				live = append(live, c)
			}
		}
		if len(live) == 0 {
			continue
		}
		sort.Slice(live, func(i, j int) bool { return live[i] < live[j] })

		for _, edgeID := range append([]EdgeID(nil), s.in[id]...) {
			old, ok := s.edges[edgeID]
			if !ok || old.Target != id {
				continue
			}
			owner := s.edgeOwner[edgeID]
			narrowed := s.narrowCandidatesLocked(old, live)
			if len(narrowed) == 0 {
				continue
			}
			s.removeEdgeLocked(edgeID)

			if len(narrowed) == 1 {
				upgraded := cloneEdge(old)
				upgraded.Target = narrowed[0]
				upgraded.Confidence = s.upgradeConfidenceLocked(old, narrowed[0])
				upgraded.Candidates = nil
				s.insertEdgeLocked(upgraded, owner)
			} else {
				conf := ConfidenceLow
				if old.Meta["bridge"] == "true" {
					conf = ConfidenceMedium
				}
				replacements := make([]EdgeID, 0, len(narrowed))
				for i, candidate := range narrowed {
					upgraded := cloneEdge(old)
					upgraded.ID = candidateEdgeID(old.ID, i)
					upgraded.Target = candidate
					upgraded.Confidence = conf
					upgraded.Candidates = append([]NodeID(nil), narrowed...)
					s.insertEdgeLocked(upgraded, owner)
					replacements = append(replacements, upgraded.ID)
				}
				s.replaceContributionEdgeLocked(owner, edgeID, replacements)
			}
			rewired++
		}
	}

	if rewired > 0 {
		s.version++
		s.publishGauges()
		observability.ReresolveUpgradesTotal.Add(float64(rewired))
	}
	return rewired
}

// replaceContributionEdgeLocked swaps one recorded edge id in a file's
// contribution for its fan-out replacements. Without this, removing or
// re-applying the file would miss the rewired edges and leave them dangling.
func (s *Store) replaceContributionEdgeLocked(owner string, old EdgeID, replacements []EdgeID) {
	contrib, ok := s.byFile[owner]
	if !ok {
		return
	}
	for i, id := range contrib.edges {
		if id != old {
			continue
		}
		edges := make([]EdgeID, 0, len(contrib.edges)+len(replacements)-1)
		edges = append(edges, contrib.edges[:i]...)
		edges = append(edges, replacements...)
		edges = append(edges, contrib.edges[i+1:]...)
		contrib.edges = edges
		return
	}
}

// narrowCandidatesLocked drops candidates the edge's metadata rules out: a
// path-resolved edge accepts only the file at that exact path.
func (s *Store) narrowCandidatesLocked(e *Edge, live []NodeID) []NodeID {
	if path := e.Meta["target-path"]; path != "" {
		var out []NodeID
		for _, c := range live {
			if n, ok := s.nodes[c]; ok && n.Origin.File == path {
				out = append(out, c)
			}
		}
		return out
	}
	if e.Meta["bridge"] == "true" {
		var out []NodeID
		for _, c := range live {
			n, ok := s.nodes[c]
			if !ok || n.Origin.Dialect != DialectService {
				continue
			}
			if n.Kind != KindFunction && n.Kind != KindAPICall {
				continue
			}
			out = append(out, c)
		}
		return out
	}
	return live
}

// upgradeConfidenceLocked mirrors resolution-time scoring for a unique
// late-arriving match: exact path hit or a receiver naming the target's file
// is certain, a bare-name bridge or global match stays Medium.
func (s *Store) upgradeConfidenceLocked(e *Edge, target NodeID) Confidence {
	n, ok := s.nodes[target]
	if !ok {
		return ConfidenceMedium
	}
	if path := e.Meta["target-path"]; path != "" && n.Origin.File == path {
		return ConfidenceHigh
	}
	if recv := e.Meta["receiver"]; recv != "" && strings.EqualFold(recv, fileStemOf(n.Origin.File)) {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}

func fileStemOf(path string) string {
	base := path
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndexByte(base, '.'); idx > 0 {
		base = base[:idx]
	}
	return base
}

func (s *Store) publishGauges() {
	observability.GraphNodes.Set(float64(len(s.nodes)))
	observability.GraphEdges.Set(float64(len(s.edges)))
}

// SyntheticID builds the placeholder id for an unresolvable name.
func SyntheticID(name string) NodeID {
	return NodeID(SyntheticPrefix + name)
}

func targetName(e *Edge, gone NodeID) string {
	if e.Meta != nil && e.Meta["target-name"] != "" {
		return e.Meta["target-name"]
	}
	id := string(gone)
	if idx := strings.LastIndex(id, ":"); idx >= 0 && idx+1 < len(id) {
		tail := id[idx+1:]
		if hash := strings.LastIndex(tail, "#"); hash > 0 {
			tail = tail[:hash]
		}
		if slash := strings.LastIndex(tail, "/"); slash >= 0 && slash+1 < len(tail) {
			tail = tail[slash+1:]
		}
		return tail
	}
	return id
}

func candidateEdgeID(base EdgeID, i int) EdgeID {
	return EdgeID(fmt.Sprintf("%s~c%d", base, i))
}

func insertSorted(ids []EdgeID, id EdgeID) []EdgeID {
	pos := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	ids = append(ids, "")
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = id
	return ids
}

func removeID(ids []EdgeID, id EdgeID) []EdgeID {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// FileCount reports how many files currently contribute to the graph.
func (s *Store) FileCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byFile)
}

// NodeCount reports the current number of nodes, synthetic included.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Version is the monotonically increasing commit counter.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
