// Package normalize turns extraction facts into graph nodes and edges with
// durable identities and resolved targets.
package normalize

import (
	"fmt"
	"sort"
	"strings"

	"reachgraph/internal/engine/extract"
	"reachgraph/internal/engine/graph"
)

// NodeID is a deterministic function of dialect, file, kind, qualified scope
// path and intra-scope declaration ordinal. Identical source always produces
// identical ids, which is what makes per-file diffing sound.
func NodeID(dialect graph.Dialect, file string, kind graph.Kind, path string, ordinal int) graph.NodeID {
	return graph.NodeID(fmt.Sprintf("%s:%s:%s:%s#%d", dialect, file, kind, path, ordinal))
}

// EdgeID is keyed on the reference literal, not the resolved target, so an
// edge keeps its identity when resolution improves later.
func EdgeID(source graph.NodeID, relation graph.Relation, targetLiteral string, ordinal int) graph.EdgeID {
	return graph.EdgeID(fmt.Sprintf("%s|%s|%s#%d", source, relation, targetLiteral, ordinal))
}

// RootID computes the id the root node of a file will carry once extracted,
// without extracting it.
func RootID(file string) (graph.NodeID, bool) {
	ex, ok := extract.ForPath(file)
	if !ok {
		return "", false
	}
	kind := graph.KindModule
	if ex.Dialect() == graph.DialectScene {
		kind = graph.KindContainer
	}
	return NodeID(ex.Dialect(), file, kind, fileStem(file), 0), true
}

type fileIndex struct {
	res    *extract.Result
	ids    []graph.NodeID
	nodes  []*graph.Node
	byPath map[string]int   // qualified scope path -> first decl index
	byName map[string][]int // bare name -> decl indexes
}

// File normalizes one extraction result against a snapshot of the rest of
// the graph and returns the file's complete contribution.
func File(res *extract.Result, snap *graph.Snapshot) graph.FileDiff {
	fx := &fileIndex{
		res:    res,
		ids:    make([]graph.NodeID, len(res.Decls)),
		nodes:  make([]*graph.Node, 0, len(res.Decls)),
		byPath: make(map[string]int, len(res.Decls)),
		byName: make(map[string][]int, len(res.Decls)),
	}

	ordinals := map[string]int{}
	for i, d := range res.Decls {
		path := declPath(d)
		key := string(d.Kind) + "\x00" + path
		ord := ordinals[key]
		ordinals[key]++

		id := NodeID(res.Dialect, res.File, d.Kind, path, ord)
		fx.ids[i] = id
		if _, seen := fx.byPath[path]; !seen {
			fx.byPath[path] = i
		}
		fx.byName[d.Name] = append(fx.byName[d.Name], i)

		fx.nodes = append(fx.nodes, &graph.Node{
			ID:         id,
			Kind:       d.Kind,
			Name:       d.Name,
			Origin:     graph.Origin{File: res.File, Line: d.Line, Dialect: res.Dialect},
			Snippet:    d.Snippet,
			Attrs:      cloneAttrs(d.Attrs),
			Confidence: graph.ConfidenceHigh,
		})
	}

	edgeOrdinals := map[string]int{}
	var edges []*graph.Edge
	addEdge := func(source graph.NodeID, relation graph.Relation, literal string, target graph.NodeID,
		conf graph.Confidence, context string, meta map[string]string, candidates []graph.NodeID) {
		key := string(source) + "|" + string(relation) + "|" + literal
		ord := edgeOrdinals[key]
		edgeOrdinals[key]++
		base := EdgeID(source, relation, literal, ord)
		if len(candidates) > 1 {
			for ci, c := range candidates {
				edges = append(edges, &graph.Edge{
					ID:         graph.EdgeID(fmt.Sprintf("%s~c%d", base, ci)),
					Source:     source,
					Target:     c,
					Relation:   relation,
					Context:    context,
					Confidence: conf,
					Meta:       cloneAttrs(meta),
					Candidates: append([]graph.NodeID(nil), candidates...),
				})
			}
			return
		}
		edges = append(edges, &graph.Edge{
			ID:         base,
			Source:     source,
			Target:     target,
			Relation:   relation,
			Context:    context,
			Confidence: conf,
			Meta:       meta,
		})
	}

	// Containment edges for declarations that don't carry an explicit one.
	explicit := map[int]bool{}
	for _, r := range res.Refs {
		if r.Relation == graph.RelContains && r.TargetLocal {
			explicit[r.TargetDecl] = true
		}
	}
	for i, d := range res.Decls {
		if i == 0 || explicit[i] {
			continue
		}
		parent := fx.ids[0]
		if len(d.Scope) > 0 {
			if pidx, ok := fx.byPath[strings.Join(d.Scope, "/")]; ok {
				parent = fx.ids[pidx]
			}
		}
		addEdge(parent, graph.RelContains, declPath(d), fx.ids[i],
			graph.ConfidenceHigh, fmt.Sprintf("declared at line %d", d.Line), nil, nil)
	}

	for _, ref := range res.Refs {
		source, ok := fx.sourceOf(ref)
		if !ok {
			continue
		}
		targets := fx.resolve(ref, snap)
		meta := cloneAttrs(ref.Attrs)
		if meta == nil {
			meta = map[string]string{}
		}
		meta["target-name"] = targetName(ref)
		if ref.Attrs["resolve"] == "path" {
			meta["target-path"] = ref.Target
		}
		if ref.Bridge {
			meta["bridge"] = "true"
		}

		if len(targets.ids) > 1 {
			// Fan out, one edge per candidate, siblings listed on each.
			src, rel := source, ref.Relation
			if flipped(ref) {
				// Reversed multi-candidate edges originate at each
				// candidate instead.
				for ci, c := range targets.ids {
					key := string(c) + "|" + string(rel) + "|" + ref.Target
					ord := edgeOrdinals[key]
					edgeOrdinals[key]++
					base := EdgeID(c, rel, ref.Target, ord)
					edges = append(edges, &graph.Edge{
						ID:         graph.EdgeID(fmt.Sprintf("%s~c%d", base, ci)),
						Source:     c,
						Target:     source,
						Relation:   rel,
						Context:    ref.Context,
						Confidence: targets.conf,
						Meta:       cloneAttrs(meta),
						Candidates: append([]graph.NodeID(nil), targets.ids...),
					})
				}
				continue
			}
			addEdge(src, rel, ref.Target, "", targets.conf, ref.Context, meta, targets.ids)
			continue
		}

		target := targets.ids[0]
		if flipped(ref) {
			source, target = target, source
		}
		addEdge(source, ref.Relation, ref.Target, target, targets.conf, ref.Context, meta, nil)
	}

	return graph.FileDiff{File: res.File, Nodes: fx.nodes, Edges: edges, Errors: res.Errors}
}

// flipped reports whether the edge runs target-to-source. Reads flow data
// from the variable to the reader, so path traversal can continue through
// a variable into its consumers.
func flipped(ref extract.Ref) bool {
	return ref.Reverse || ref.Relation == graph.RelReads
}

func (fx *fileIndex) sourceOf(ref extract.Ref) (graph.NodeID, bool) {
	if ref.FromLocal {
		if ref.FromDecl < 0 || ref.FromDecl >= len(fx.ids) {
			return "", false
		}
		return fx.ids[ref.FromDecl], true
	}
	if len(ref.From) == 0 {
		return fx.ids[0], true
	}
	if idx, ok := fx.byPath[strings.Join(ref.From, "/")]; ok {
		return fx.ids[idx], true
	}
	// Unattributable reference sites fall back to the file root.
	return fx.ids[0], true
}

func declPath(d extract.Decl) string {
	if len(d.Scope) == 0 {
		return d.Name
	}
	return strings.Join(d.Scope, "/") + "/" + d.Name
}

func targetName(ref extract.Ref) string {
	if ref.Attrs["resolve"] == "path" {
		return fileStem(ref.Target)
	}
	return ref.Target
}

func cloneAttrs(attrs map[string]string) map[string]string {
	if attrs == nil {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

func fileStem(path string) string {
	base := path
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndexByte(base, '.'); idx > 0 {
		base = base[:idx]
	}
	return base
}

func sortIDs(ids []graph.NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
