package normalize

import (
	"strings"

	"reachgraph/internal/engine/extract"
	"reachgraph/internal/engine/graph"
)

// resolution is the outcome of the ladder for one reference: one target for
// a clean match, several for a candidate fan-out, always at least one id
// (the synthetic placeholder in the worst case).
type resolution struct {
	ids  []graph.NodeID
	conf graph.Confidence
}

func single(id graph.NodeID, conf graph.Confidence) resolution {
	return resolution{ids: []graph.NodeID{id}, conf: conf}
}

func synthetic(name string) resolution {
	return single(graph.SyntheticID(name), graph.ConfidenceAmbiguous)
}

// declKinds are the kinds a bare name reference may legitimately land on.
var declKinds = map[graph.Kind]bool{
	graph.KindFunction:  true,
	graph.KindVariable:  true,
	graph.KindSignal:    true,
	graph.KindClass:     true,
	graph.KindModule:    true,
	graph.KindContainer: true,
}

// resolve runs the ladder: exact match in the declared scope, then unique
// global match, then candidate fan-out, then the synthetic placeholder.
func (fx *fileIndex) resolve(ref extract.Ref, snap *graph.Snapshot) resolution {
	if ref.TargetLocal {
		if ref.TargetDecl >= 0 && ref.TargetDecl < len(fx.ids) {
			return single(fx.ids[ref.TargetDecl], graph.ConfidenceHigh)
		}
		return synthetic(ref.Target)
	}
	if ref.Attrs["resolve"] == "path" {
		return fx.resolveByPath(ref, snap)
	}
	if ref.Bridge {
		return fx.resolveBridge(ref, snap)
	}
	if ref.Dynamic {
		return fx.resolveDynamic(ref, snap)
	}
	return fx.resolveName(ref, snap)
}

func (fx *fileIndex) resolveName(ref extract.Ref, snap *graph.Snapshot) resolution {
	// Rung 1: the reference's own file is its enclosing scope.
	if local := fx.localMatches(ref.Target, ref.TargetKind); len(local) > 0 {
		if len(local) == 1 {
			return single(local[0], graph.ConfidenceHigh)
		}
		if sibling, ok := fx.siblingMatch(ref, local); ok {
			return single(sibling, graph.ConfidenceHigh)
		}
		sortIDs(local)
		return resolution{ids: local, conf: graph.ConfidenceLow}
	}

	// Rung 1b: a receiver names the scope to search in.
	if recv := ref.Attrs["receiver"]; recv != "" && snap != nil {
		if id, ok := receiverMatch(snap, recv, ref.Target, ref.TargetKind); ok {
			return single(id, graph.ConfidenceHigh)
		}
	}

	// Rungs 2 and 3: the whole project by bare name.
	global := globalMatches(snap, ref.Target, ref.TargetKind, fx.res.File)
	switch len(global) {
	case 0:
		return synthetic(ref.Target)
	case 1:
		return single(global[0], graph.ConfidenceMedium)
	default:
		sortIDs(global)
		return resolution{ids: global, conf: graph.ConfidenceLow}
	}
}

// localMatches finds declarations in the current file by bare name.
func (fx *fileIndex) localMatches(name string, hint graph.Kind) []graph.NodeID {
	var out []graph.NodeID
	for _, idx := range fx.byName[name] {
		d := fx.res.Decls[idx]
		if !kindOK(d.Kind, hint) {
			continue
		}
		out = append(out, fx.ids[idx])
	}
	return out
}

// siblingMatch prefers the local candidate declared in the same scope as the
// reference site.
func (fx *fileIndex) siblingMatch(ref extract.Ref, local []graph.NodeID) (graph.NodeID, bool) {
	var refScope []string
	if len(ref.From) > 1 {
		refScope = ref.From[:len(ref.From)-1]
	}
	want := strings.Join(refScope, "/")

	var match graph.NodeID
	found := 0
	for _, idx := range fx.byName[ref.Target] {
		if !kindOK(fx.res.Decls[idx].Kind, ref.TargetKind) {
			continue
		}
		if strings.Join(fx.res.Decls[idx].Scope, "/") == want {
			match = fx.ids[idx]
			found++
		}
	}
	return match, found == 1
}

// receiverMatch searches the file named by the receiver: a module or scene
// root whose stem matches, or a uniquely named class.
func receiverMatch(snap *graph.Snapshot, receiver, target string, hint graph.Kind) (graph.NodeID, bool) {
	var scopeFile string
	for _, name := range []string{receiver, strings.ToLower(receiver)} {
		for _, id := range snap.FindByName(name) {
			n := snap.NodeRef(id)
			if n == nil {
				continue
			}
			if n.Attrs["root"] == "true" || n.Kind == graph.KindClass {
				scopeFile = n.Origin.File
				break
			}
		}
		if scopeFile != "" {
			break
		}
	}
	if scopeFile == "" {
		return "", false
	}

	var match graph.NodeID
	found := 0
	for _, id := range snap.NodesInFile(scopeFile) {
		n := snap.NodeRef(id)
		if n == nil || n.Name != target || !kindOK(n.Kind, hint) {
			continue
		}
		match = id
		found++
	}
	if found == 1 {
		return match, true
	}
	return "", false
}

func globalMatches(snap *graph.Snapshot, name string, hint graph.Kind, ownFile string) []graph.NodeID {
	if snap == nil {
		return nil
	}
	var out []graph.NodeID
	for _, id := range snap.FindByName(name) {
		n := snap.NodeRef(id)
		if n == nil || n.Origin.File == ownFile {
			continue
		}
		if !declKinds[n.Kind] || !kindOK(n.Kind, hint) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// resolveByPath links a resource reference to the root node of the file at
// that project path. An exact path hit is certain.
func (fx *fileIndex) resolveByPath(ref extract.Ref, snap *graph.Snapshot) resolution {
	if ref.Target == fx.res.File {
		return single(fx.ids[0], graph.ConfidenceHigh)
	}
	if snap != nil {
		if id, ok := RootID(ref.Target); ok && snap.Contains(id) {
			return single(id, graph.ConfidenceHigh)
		}
	}
	return synthetic(fileStem(ref.Target))
}

// resolveBridge links an outbound service call to handler declarations in
// the service dialect by literal name only. Ties are all surfaced at Medium,
// never collapsed to one.
func (fx *fileIndex) resolveBridge(ref extract.Ref, snap *graph.Snapshot) resolution {
	if snap == nil {
		return synthetic(ref.Target)
	}
	var out []graph.NodeID
	for _, id := range snap.FindByName(ref.Target) {
		n := snap.NodeRef(id)
		if n == nil || n.Origin.Dialect != graph.DialectService {
			continue
		}
		if n.Kind != graph.KindFunction && n.Kind != graph.KindAPICall {
			continue
		}
		out = append(out, id)
	}
	switch len(out) {
	case 0:
		return synthetic(ref.Target)
	case 1:
		return single(out[0], graph.ConfidenceMedium)
	default:
		sortIDs(out)
		return resolution{ids: out, conf: graph.ConfidenceMedium}
	}
}

// resolveDynamic handles runtime-computed references. Enumerated literals
// resolve like names but never rise above Ambiguous; without candidates the
// reference goes straight to the placeholder.
func (fx *fileIndex) resolveDynamic(ref extract.Ref, snap *graph.Snapshot) resolution {
	if len(ref.Candidates) == 0 {
		return synthetic(ref.Target)
	}
	var out []graph.NodeID
	for _, cand := range ref.Candidates {
		if local := fx.localMatches(cand, ref.TargetKind); len(local) > 0 {
			out = append(out, local...)
			continue
		}
		out = append(out, globalMatches(snap, cand, ref.TargetKind, fx.res.File)...)
	}
	if len(out) == 0 {
		return synthetic(ref.Target)
	}
	sortIDs(out)
	return resolution{ids: out, conf: graph.ConfidenceAmbiguous}
}

func kindOK(kind, hint graph.Kind) bool {
	if hint == "" {
		return true
	}
	if kind == hint {
		return true
	}
	// Scenes stand in for modules when a module is asked for.
	if hint == graph.KindModule && kind == graph.KindContainer {
		return true
	}
	return false
}
