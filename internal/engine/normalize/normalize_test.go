package normalize

import (
	"strings"
	"testing"

	"reachgraph/internal/engine/extract"
	"reachgraph/internal/engine/graph"
)

// normalizeAll extracts and commits files in order, resolving each against
// the state built so far, then runs the late re-resolution pass.
func normalizeAll(t *testing.T, files map[string]string, order ...string) *graph.Store {
	t.Helper()
	store := graph.NewStore()
	for _, path := range order {
		res, ok := extract.Extract(path, []byte(files[path]))
		if !ok {
			t.Fatalf("no extractor for %s", path)
		}
		diff := File(res, store.Snapshot())
		store.ApplyFileDiff(diff)

		matches := map[string][]graph.NodeID{}
		for _, n := range diff.Nodes {
			matches[n.Name] = append(matches[n.Name], n.ID)
		}
		store.RetargetUnresolved(matches)
	}
	return store
}

func edgeBetweenNamed(t *testing.T, snap *graph.Snapshot, fromName, toName string, rel graph.Relation) *graph.Edge {
	t.Helper()
	for _, fromID := range snap.FindByName(fromName) {
		for _, e := range snap.Outgoing(fromID) {
			if e.Relation != rel {
				continue
			}
			if target := snap.NodeRef(e.Target); target != nil && target.Name == toName {
				return e
			}
		}
	}
	return nil
}

func TestSameFileResolutionIsHigh(t *testing.T) {
	files := map[string]string{
		"inventory.gd": "var items = []\n\nfunc add_item(it):\n\titems = items + [it]\n\nfunc save():\n\tvar n = items\n",
	}
	snap := normalizeAll(t, files, "inventory.gd").Snapshot()

	write := edgeBetweenNamed(t, snap, "add_item", "items", graph.RelWrites)
	if write == nil {
		t.Fatal("no write edge from add_item to items")
	}
	if write.Confidence != graph.ConfidenceHigh {
		t.Errorf("same-file write confidence = %v, want high", write.Confidence)
	}

	// Reads flow from the variable to the reader.
	read := edgeBetweenNamed(t, snap, "items", "save", graph.RelReads)
	if read == nil {
		t.Fatal("no read edge from items to save")
	}
	if read.Confidence != graph.ConfidenceHigh {
		t.Errorf("read confidence = %v, want high", read.Confidence)
	}
}

func TestReceiverScopedResolutionIsHigh(t *testing.T) {
	files := map[string]string{
		"inventory.gd": "func add_item(it):\n\tpass\n",
		"player.gd":    "func pickup(it):\n\tinventory.add_item(it)\n",
	}
	snap := normalizeAll(t, files, "inventory.gd", "player.gd").Snapshot()

	call := edgeBetweenNamed(t, snap, "pickup", "add_item", graph.RelCalls)
	if call == nil {
		t.Fatal("no call edge from pickup to add_item")
	}
	if call.Confidence != graph.ConfidenceHigh {
		t.Errorf("receiver-scoped call confidence = %v, want high", call.Confidence)
	}
}

func TestGlobalUniqueResolutionIsMedium(t *testing.T) {
	files := map[string]string{
		"inventory.gd": "func add_item(it):\n\tpass\n",
		"player.gd":    "func pickup(it):\n\tadd_item(it)\n",
	}
	snap := normalizeAll(t, files, "inventory.gd", "player.gd").Snapshot()

	call := edgeBetweenNamed(t, snap, "pickup", "add_item", graph.RelCalls)
	if call == nil {
		t.Fatal("no call edge from pickup to add_item")
	}
	if call.Confidence != graph.ConfidenceMedium {
		t.Errorf("bare-name unique call confidence = %v, want medium", call.Confidence)
	}
}

func TestThreeCandidatesFanOutLow(t *testing.T) {
	files := map[string]string{
		"a.gd":      "func update():\n\tpass\n",
		"b.gd":      "func update():\n\tpass\n",
		"c.gd":      "func update():\n\tpass\n",
		"caller.gd": "func tick():\n\tupdate()\n",
	}
	snap := normalizeAll(t, files, "a.gd", "b.gd", "c.gd", "caller.gd").Snapshot()

	var fanout []*graph.Edge
	for _, fromID := range snap.FindByName("tick") {
		for _, e := range snap.Outgoing(fromID) {
			if e.Relation == graph.RelCalls {
				fanout = append(fanout, e)
			}
		}
	}
	if len(fanout) != 3 {
		t.Fatalf("fan-out edges = %d, want 3", len(fanout))
	}
	for _, e := range fanout {
		if e.Confidence != graph.ConfidenceLow {
			t.Errorf("candidate edge confidence = %v, want low", e.Confidence)
		}
		if len(e.Candidates) != 3 {
			t.Errorf("candidate list = %v, want all 3 siblings", e.Candidates)
		}
	}
}

func TestNoMatchYieldsSyntheticAmbiguous(t *testing.T) {
	files := map[string]string{
		"lonely.gd": "func act():\n\tsummon_dragon()\n",
	}
	snap := normalizeAll(t, files, "lonely.gd").Snapshot()

	call := edgeBetweenNamed(t, snap, "act", "summon_dragon", graph.RelCalls)
	if call == nil {
		t.Fatal("no edge to placeholder")
	}
	if call.Confidence != graph.ConfidenceAmbiguous {
		t.Errorf("unresolved confidence = %v, want ambiguous", call.Confidence)
	}
	target := snap.NodeRef(call.Target)
	if target.Kind != graph.KindUnresolved {
		t.Errorf("target kind = %v, want unresolved", target.Kind)
	}
}

func TestBridgeToServiceHandler(t *testing.T) {
	files := map[string]string{
		"backend/api.ts": "export function save_game(req) {\n  return 1\n}\n",
		"player.gd":      "func quit():\n\trpc(\"save_game\")\n",
	}
	snap := normalizeAll(t, files, "backend/api.ts", "player.gd").Snapshot()

	var bridge *graph.Edge
	for _, id := range snap.NodesByKind(graph.KindAPICall) {
		for _, e := range snap.Outgoing(id) {
			if e.Relation == graph.RelDataFlow {
				bridge = e
			}
		}
	}
	if bridge == nil {
		t.Fatal("no data-flow bridge edge")
	}
	if bridge.Confidence != graph.ConfidenceMedium {
		t.Errorf("bridge confidence = %v, want medium", bridge.Confidence)
	}
	handler := snap.NodeRef(bridge.Target)
	if handler.Origin.Dialect != graph.DialectService || handler.Name != "save_game" {
		t.Errorf("bridge landed on %+v", handler)
	}
}

func TestBridgeTieListsAllHandlers(t *testing.T) {
	files := map[string]string{
		"backend/a.ts": "export function sync_state(req) {\n  return 1\n}\n",
		"backend/b.ts": "export function sync_state(req) {\n  return 1\n}\n",
		"game.gd":      "func push():\n\trpc(\"sync_state\")\n",
	}
	snap := normalizeAll(t, files, "backend/a.ts", "backend/b.ts", "game.gd").Snapshot()

	var bridges []*graph.Edge
	for _, id := range snap.NodesByKind(graph.KindAPICall) {
		for _, e := range snap.Outgoing(id) {
			if e.Relation == graph.RelDataFlow {
				bridges = append(bridges, e)
			}
		}
	}
	if len(bridges) != 2 {
		t.Fatalf("bridge edges = %d, want one per handler", len(bridges))
	}
	for _, e := range bridges {
		if e.Confidence != graph.ConfidenceMedium {
			t.Errorf("tie confidence = %v, want medium (not collapsed)", e.Confidence)
		}
		if len(e.Candidates) != 2 {
			t.Errorf("candidates = %v, want both handlers", e.Candidates)
		}
	}
}

func TestSceneAttachmentResolvesByPath(t *testing.T) {
	files := map[string]string{
		"scripts/player.gd": "func _ready():\n\tpass\n",
		"scenes/player.tscn": "[gd_scene load_steps=2 format=3]\n\n" +
			"[ext_resource type=\"Script\" path=\"res://scripts/player.gd\" id=\"1_a\"]\n\n" +
			"[node name=\"Player\" type=\"CharacterBody2D\"]\nscript = ExtResource(\"1_a\")\n",
	}
	snap := normalizeAll(t, files, "scripts/player.gd", "scenes/player.tscn").Snapshot()

	rootID, ok := RootID("scripts/player.gd")
	if !ok {
		t.Fatal("no root id for script")
	}
	var pathEdge *graph.Edge
	for _, e := range snap.Incoming(rootID) {
		if e.Relation == graph.RelReferences {
			pathEdge = e
		}
	}
	if pathEdge == nil {
		t.Fatal("no reference edge into the attached script's root")
	}
	if pathEdge.Confidence != graph.ConfidenceHigh {
		t.Errorf("exact path confidence = %v, want high", pathEdge.Confidence)
	}
}

func TestDiffSequenceMatchesRebuildOrder(t *testing.T) {
	files := map[string]string{
		"inventory.gd": "var items = []\n\nfunc add_item(it):\n\titems.append(it)\n",
		"player.gd":    "func pickup(it):\n\tinventory.add_item(it)\n",
	}

	forward := normalizeAll(t, files, "inventory.gd", "player.gd").Snapshot()
	reverse := normalizeAll(t, files, "player.gd", "inventory.gd").Snapshot()

	fIDs := forward.NodeIDs()
	rIDs := reverse.NodeIDs()
	if len(fIDs) != len(rIDs) {
		t.Fatalf("node counts differ: %d vs %d", len(fIDs), len(rIDs))
	}
	for i := range fIDs {
		if fIDs[i] != rIDs[i] {
			t.Errorf("node id %d differs: %s vs %s", i, fIDs[i], rIDs[i])
		}
	}

	fCall := edgeBetweenNamed(t, forward, "pickup", "add_item", graph.RelCalls)
	rCall := edgeBetweenNamed(t, reverse, "pickup", "add_item", graph.RelCalls)
	if fCall == nil || rCall == nil {
		t.Fatal("call edge missing in one ordering")
	}
	if fCall.ID != rCall.ID {
		t.Errorf("edge ids differ across orderings: %s vs %s", fCall.ID, rCall.ID)
	}
	if fCall.Confidence != rCall.Confidence {
		t.Errorf("confidence differs across orderings: %v vs %v", fCall.Confidence, rCall.Confidence)
	}
}

func TestStableIDsAcrossReExtraction(t *testing.T) {
	src := "signal hit\n\nfunc fire():\n\thit.emit()\n"
	resA, _ := extract.Extract("gun.gd", []byte(src))
	resB, _ := extract.Extract("gun.gd", []byte(src))

	store := graph.NewStore()
	diffA := File(resA, store.Snapshot())
	diffB := File(resB, store.Snapshot())

	if len(diffA.Nodes) != len(diffB.Nodes) || len(diffA.Edges) != len(diffB.Edges) {
		t.Fatalf("re-extraction changed set sizes")
	}
	for i := range diffA.Nodes {
		if diffA.Nodes[i].ID != diffB.Nodes[i].ID {
			t.Errorf("node id unstable: %s vs %s", diffA.Nodes[i].ID, diffB.Nodes[i].ID)
		}
	}
	for i := range diffA.Edges {
		if diffA.Edges[i].ID != diffB.Edges[i].ID {
			t.Errorf("edge id unstable: %s vs %s", diffA.Edges[i].ID, diffB.Edges[i].ID)
		}
	}
	if !strings.Contains(string(diffA.Nodes[0].ID), "gdscript:gun.gd:module:gun#0") {
		t.Errorf("root id = %s", diffA.Nodes[0].ID)
	}
}

func TestContainmentGenerated(t *testing.T) {
	files := map[string]string{
		"hud.gd": "signal refreshed\n\nfunc refresh():\n\tpass\n",
	}
	snap := normalizeAll(t, files, "hud.gd").Snapshot()

	rootID, _ := RootID("hud.gd")
	var contained []string
	for _, e := range snap.Outgoing(rootID) {
		if e.Relation == graph.RelContains {
			contained = append(contained, string(snap.NodeRef(e.Target).Name))
		}
	}
	if len(contained) != 2 {
		t.Errorf("containment edges = %v, want signal and function", contained)
	}
}
