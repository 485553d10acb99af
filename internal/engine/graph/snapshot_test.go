package graph

import "testing"

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	s.ApplyBatch([]FileDiff{
		{
			File: "player.gd",
			Nodes: []*Node{
				testNode("gdscript:player.gd:class:Player#0", "Player", KindClass, "player.gd"),
				testNode("gdscript:player.gd:function:_ready#0", "_ready", KindFunction, "player.gd"),
				testNode("gdscript:player.gd:signal:died#0", "died", KindSignal, "player.gd"),
			},
			Edges: []*Edge{
				testEdge("c1", "gdscript:player.gd:class:Player#0", "gdscript:player.gd:function:_ready#0", RelContains, ConfidenceHigh),
				testEdge("c2", "gdscript:player.gd:class:Player#0", "gdscript:player.gd:signal:died#0", RelContains, ConfidenceHigh),
				testEdge("e1", "gdscript:player.gd:function:_ready#0", "gdscript:player.gd:signal:died#0", RelEmits, ConfidenceHigh),
			},
		},
		{
			File: "hud.gd",
			Nodes: []*Node{
				testNode("gdscript:hud.gd:function:_ready#0", "_ready", KindFunction, "hud.gd"),
			},
		},
	})
	return s
}

func TestSnapshotUnaffectedByLaterCommits(t *testing.T) {
	s := seededStore(t)
	snap := s.Snapshot()
	nodesBefore := len(snap.NodeIDs())

	s.RemoveFile("player.gd")

	if got := len(snap.NodeIDs()); got != nodesBefore {
		t.Errorf("snapshot shrank from %d to %d after a later commit", nodesBefore, got)
	}
	if !snap.Contains("gdscript:player.gd:signal:died#0") {
		t.Error("snapshot lost a node removed after it was taken")
	}

	fresh := s.Snapshot()
	if fresh.Contains("gdscript:player.gd:signal:died#0") {
		t.Error("fresh snapshot still shows the removed file")
	}
	if snap.Handle() == fresh.Handle() {
		t.Error("two snapshots share a handle")
	}
}

func TestSnapshotAdjacencyStableAfterRemoval(t *testing.T) {
	s := NewStore()
	s.ApplyBatch([]FileDiff{
		{
			File:  "target.gd",
			Nodes: []*Node{testNode("gdscript:target.gd:function:hit#0", "hit", KindFunction, "target.gd")},
		},
		{
			File:  "a.gd",
			Nodes: []*Node{testNode("gdscript:a.gd:function:f#0", "f", KindFunction, "a.gd")},
			Edges: []*Edge{
				testEdge("e-a", "gdscript:a.gd:function:f#0", "gdscript:target.gd:function:hit#0", RelCalls, ConfidenceHigh),
			},
		},
		{
			File:  "b.gd",
			Nodes: []*Node{testNode("gdscript:b.gd:function:g#0", "g", KindFunction, "b.gd")},
			Edges: []*Edge{
				testEdge("e-b", "gdscript:b.gd:function:g#0", "gdscript:target.gd:function:hit#0", RelCalls, ConfidenceHigh),
			},
		},
	})

	snap := s.Snapshot()
	s.RemoveFile("b.gd")

	in := snap.Incoming("gdscript:target.gd:function:hit#0")
	if len(in) != 2 {
		t.Fatalf("snapshot incoming edges = %d, want 2", len(in))
	}
	if in[0].ID != "e-a" || in[1].ID != "e-b" {
		t.Errorf("snapshot incoming = [%s %s], want [e-a e-b]", in[0].ID, in[1].ID)
	}
}

func TestNeighborsRelationFilter(t *testing.T) {
	snap := seededStore(t).Snapshot()

	all := snap.Neighbors("gdscript:player.gd:class:Player#0", DirOutgoing)
	if len(all) != 2 {
		t.Fatalf("unfiltered neighbors = %d, want 2", len(all))
	}

	contains := snap.Neighbors("gdscript:player.gd:class:Player#0", DirOutgoing, RelContains)
	if len(contains) != 2 {
		t.Errorf("contains neighbors = %d, want 2", len(contains))
	}

	emits := snap.Neighbors("gdscript:player.gd:signal:died#0", DirIncoming, RelEmits)
	if len(emits) != 1 {
		t.Fatalf("incoming emits = %d, want 1", len(emits))
	}
	if emits[0].Source != "gdscript:player.gd:function:_ready#0" {
		t.Errorf("emit source = %q", emits[0].Source)
	}
}

func TestFindByNameSpansFiles(t *testing.T) {
	snap := seededStore(t).Snapshot()

	ids := snap.FindByName("_ready")
	if len(ids) != 2 {
		t.Fatalf("FindByName(_ready) = %v, want two hits", ids)
	}
	// Sorted by id, hud.gd sorts before player.gd.
	if ids[0] != "gdscript:hud.gd:function:_ready#0" {
		t.Errorf("first hit = %q, want deterministic sorted order", ids[0])
	}
}

func TestNodeReturnsCopy(t *testing.T) {
	snap := seededStore(t).Snapshot()

	n, ok := snap.Node("gdscript:player.gd:signal:died#0")
	if !ok {
		t.Fatal("node missing")
	}
	n.Name = "mutated"

	again, _ := snap.Node("gdscript:player.gd:signal:died#0")
	if again.Name != "died" {
		t.Error("mutating a returned node leaked into the snapshot")
	}
}

func TestNodeRecord(t *testing.T) {
	snap := seededStore(t).Snapshot()

	rec, ok := snap.NodeRecord("gdscript:player.gd:function:_ready#0")
	if !ok {
		t.Fatal("record missing")
	}
	if rec.Node.Name != "_ready" {
		t.Errorf("node name = %q", rec.Node.Name)
	}
	if len(rec.Outgoing) != 1 || rec.Outgoing[0].Relation != RelEmits {
		t.Errorf("outgoing = %+v, want one emits edge", rec.Outgoing)
	}
	if len(rec.Incoming) != 1 || rec.Incoming[0].Relation != RelContains {
		t.Errorf("incoming = %+v, want one contains edge", rec.Incoming)
	}

	if _, ok := snap.NodeRecord("gdscript:player.gd:function:missing#0"); ok {
		t.Error("record for absent node")
	}
}

func TestStatsTallies(t *testing.T) {
	snap := seededStore(t).Snapshot()
	st := snap.Stats()

	if st.Nodes != 4 || st.Edges != 3 || st.Files != 2 {
		t.Errorf("Stats = %d nodes, %d edges, %d files; want 4/3/2", st.Nodes, st.Edges, st.Files)
	}
	if st.NodesByKind[KindFunction] != 2 {
		t.Errorf("function count = %d, want 2", st.NodesByKind[KindFunction])
	}
	if st.EdgesByRelation[RelContains] != 2 {
		t.Errorf("contains count = %d, want 2", st.EdgesByRelation[RelContains])
	}
	if st.EdgesByConfidence["high"] != 3 {
		t.Errorf("high-confidence edges = %d, want 3", st.EdgesByConfidence["high"])
	}
	if st.Unresolved != 0 {
		t.Errorf("unresolved = %d, want 0", st.Unresolved)
	}
}
