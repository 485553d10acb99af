package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"reachgraph/internal/engine/graph"
)

// sceneExtractor reads the tree description format: external resources,
// the node tree, script attachments, sub-scene instancing and editor-declared
// signal connections. Declaration order is a deterministic tie-break only,
// never semantic ordering.
type sceneExtractor struct{}

var (
	scHeader  = regexp.MustCompile(`\[gd_scene\s+load_steps=(\d+)\s+format=(\d+)(?:\s+uid="([^"]+)")?\]`)
	scExtRes  = regexp.MustCompile(`\[ext_resource\s+type="([^"]+)"(?:\s+uid="([^"]+)")?\s+path="([^"]+)"\s+id="([^"]+)"\]`)
	scExtResAlt = regexp.MustCompile(`\[ext_resource\s+path="([^"]+)"\s+type="([^"]+)"\s+id="?([^"\]\s]+)"?\]`)
	scSubRes  = regexp.MustCompile(`\[sub_resource\s+type="([^"]+)"\s+id="?([^"\]]+)"?\]`)

	scNode        = regexp.MustCompile(`\[node\s+name="([^"]+)"\s+type="([^"]+)"(?:\s+parent="([^"]*)")?`)
	scNodeInst    = regexp.MustCompile(`\[node\s+name="([^"]+)"(?:\s+parent="([^"]*)")?\s+instance=ExtResource\(\s*"?([^")]+?)"?\s*\)\]`)
	scScript      = regexp.MustCompile(`^script\s*=\s*ExtResource\(\s*"?([^")]+?)"?\s*\)`)
	scConnection  = regexp.MustCompile(`\[connection\s+signal="([^"]+)"\s+from="([^"]+)"\s+to="([^"]+)"\s+method="([^"]+)"`)
)

func (sceneExtractor) Dialect() graph.Dialect { return graph.DialectScene }

type extResource struct {
	id   string
	typ  string
	path string
}

type sceneNode struct {
	name     string
	typ      string
	parent   string
	instance string
	script   string
	line     int
}

func (sceneExtractor) Extract(path string, content []byte) *Result {
	res, lines := newResult(path, graph.DialectScene, content)
	if lines == nil {
		return res
	}

	sceneName := fileStem(path)
	res.Decls = append(res.Decls, Decl{
		Kind:    graph.KindContainer,
		Name:    sceneName,
		Line:    1,
		Snippet: firstLine(lines),
		Attrs:   map[string]string{"path": path, "root": "true", "godot_path": "res://" + path},
	})

	resources := map[string]extResource{}
	var nodes []*sceneNode
	var current *sceneNode

	type connection struct {
		signal, from, to, method string
		line                     int
	}
	var connections []connection

	for i, raw := range lines {
		line := i + 1
		stripped := strings.TrimSpace(raw)
		if stripped == "" {
			continue
		}

		if m := scHeader.FindStringSubmatch(stripped); m != nil {
			if m[3] != "" {
				res.Decls[0].Attrs["uid"] = m[3]
			}
			continue
		}
		if m := scExtRes.FindStringSubmatch(stripped); m != nil {
			resources[m[4]] = extResource{id: m[4], typ: m[1], path: m[3]}
			continue
		}
		if m := scExtResAlt.FindStringSubmatch(stripped); m != nil {
			resources[m[3]] = extResource{id: m[3], typ: m[2], path: m[1]}
			continue
		}
		if m := scNodeInst.FindStringSubmatch(stripped); m != nil {
			current = &sceneNode{name: m[1], typ: "(instance)", parent: m[2], instance: m[3], line: line}
			nodes = append(nodes, current)
			continue
		}
		if m := scNode.FindStringSubmatch(stripped); m != nil {
			current = &sceneNode{name: m[1], typ: m[2], parent: m[3], line: line}
			nodes = append(nodes, current)
			continue
		}
		if m := scConnection.FindStringSubmatch(stripped); m != nil {
			connections = append(connections, connection{
				signal: m[1], from: m[2], to: m[3], method: m[4], line: line,
			})
			current = nil
			continue
		}
		if strings.HasPrefix(stripped, "[") {
			current = nil
			if scSubRes.MatchString(stripped) {
				continue
			}
			if strings.HasPrefix(stripped, "[node") || strings.HasPrefix(stripped, "[ext_resource") ||
				strings.HasPrefix(stripped, "[connection") {
				res.Errors = append(res.Errors, fmt.Sprintf("line %d: unrecognized section header %q", line, stripped))
			}
			continue
		}
		if current != nil {
			if m := scScript.FindStringSubmatch(stripped); m != nil {
				current.script = m[1]
			}
		}
	}

	declIndex := map[string]int{} // tree path -> Decls index

	for _, n := range nodes {
		treePath := n.name
		switch {
		case n.parent == "" && len(declIndex) == 0:
			// scene root node
		case n.parent == "" || n.parent == ".":
			// direct child of root
		default:
			treePath = n.parent + "/" + n.name
		}

		attrs := map[string]string{"node_type": n.typ}
		if n.parent != "" {
			attrs["parent_path"] = n.parent
		}

		idx := len(res.Decls)
		res.Decls = append(res.Decls, Decl{
			Kind:    graph.KindNodeReference,
			Name:    n.name,
			Scope:   treeScope(treePath),
			Line:    n.line,
			Snippet: fmt.Sprintf("[node name=%q type=%q]", n.name, n.typ),
			Attrs:   attrs,
		})
		declIndex[treePath] = idx

		// Containment: declared parent first, scene root as fallback.
		parentRef := Ref{
			Relation:    graph.RelContains,
			TargetLocal: true,
			TargetDecl:  0,
			Target:      sceneName,
			Line:        n.line,
			Context:     fmt.Sprintf("node %q in scene tree", n.name),
		}
		if n.parent != "" && n.parent != "." {
			if pidx, ok := declIndex[n.parent]; ok {
				parentRef.FromLocal = true
				parentRef.FromDecl = pidx
				parentRef.TargetDecl = idx
				parentRef.Target = n.name
				res.Refs = append(res.Refs, parentRef)
			} else {
				res.Errors = append(res.Errors, fmt.Sprintf("line %d: node %q declares unknown parent %q", n.line, n.name, n.parent))
				res.Refs = append(res.Refs, Ref{
					Relation:    graph.RelContains,
					TargetLocal: true,
					TargetDecl:  idx,
					Target:      n.name,
					Line:        n.line,
					Context:     fmt.Sprintf("node %q, parent %q missing", n.name, n.parent),
				})
			}
		} else {
			parentRef.TargetDecl = idx
			parentRef.Target = n.name
			res.Refs = append(res.Refs, parentRef)
		}

		if n.script != "" {
			sceneScriptAttach(res, n, idx, resources)
		}
		if n.instance != "" {
			sceneInstance(res, n, resources)
		}
	}

	// Remaining external resources: referenced by the scene but neither
	// attached nor instanced (textures, fonts, materials).
	used := map[string]bool{}
	for _, n := range nodes {
		used[n.script] = true
		used[n.instance] = true
	}
	for _, id := range sortedResourceIDs(resources) {
		r := resources[id]
		if used[id] || r.typ == "Script" {
			continue
		}
		idx := len(res.Decls)
		res.Decls = append(res.Decls, Decl{
			Kind: graph.KindResource,
			Name: pathLeaf(r.path),
			Line: 1,
			Attrs: map[string]string{
				"resource_path":   r.path,
				"resource_type":   r.typ,
				"ext_resource_id": r.id,
			},
		})
		res.Refs = append(res.Refs, Ref{
			Relation:    graph.RelReferences,
			TargetLocal: true,
			TargetDecl:  idx,
			Target:      pathLeaf(r.path),
			Line:        1,
			Context:     fmt.Sprintf("external resource: %s", r.typ),
		})
		// Only source formats get cross-file linkage; binary assets are
		// leaves of the graph.
		if _, ok := ForPath(r.path); ok {
			res.Refs = append(res.Refs, Ref{
				FromLocal: true, FromDecl: idx,
				Relation: graph.RelReferences,
				Target:   projectPath(r.path),
				Attrs:    map[string]string{"resolve": "path"},
				Line:     1,
				Context:  fmt.Sprintf("external resource %q", r.path),
			})
		}
	}

	for _, c := range connections {
		connIdx := len(res.Decls)
		res.Decls = append(res.Decls, Decl{
			Kind:    graph.KindSignalConnection,
			Name:    fmt.Sprintf("%s.%s -> %s.%s", c.from, c.signal, c.to, c.method),
			Line:    c.line,
			Snippet: fmt.Sprintf("[connection signal=%q from=%q to=%q method=%q]", c.signal, c.from, c.to, c.method),
			Attrs: map[string]string{
				"signal": c.signal, "from_node": c.from,
				"to_node": c.to, "method": c.method,
			},
		})
		res.Refs = append(res.Refs,
			Ref{
				Relation:    graph.RelContains,
				TargetLocal: true,
				TargetDecl:  connIdx,
				Target:      res.Decls[connIdx].Name,
				Line:        c.line,
				Context:     fmt.Sprintf("scene connection at line %d", c.line),
			},
			Ref{
				FromLocal: true, FromDecl: connIdx,
				Relation:   graph.RelConnectsTo,
				Target:     c.signal,
				TargetKind: graph.KindSignal,
				Reverse:    true,
				Line:       c.line,
				Context:    fmt.Sprintf("signal %q from %q", c.signal, c.from),
			},
			Ref{
				FromLocal: true, FromDecl: connIdx,
				Relation:   graph.RelConnectsTo,
				Target:     c.method,
				TargetKind: graph.KindFunction,
				Line:       c.line,
				Context:    fmt.Sprintf("handler %q on %q", c.method, c.to),
			},
		)
	}

	return res
}

func sceneScriptAttach(res *Result, n *sceneNode, nodeIdx int, resources map[string]extResource) {
	script, ok := resources[n.script]
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("line %d: node %q attaches unknown resource id %q", n.line, n.name, n.script))
		return
	}
	idx := len(res.Decls)
	res.Decls = append(res.Decls, Decl{
		Kind: graph.KindResource,
		Name: pathLeaf(script.path),
		Line: n.line,
		Attrs: map[string]string{
			"resource_path": script.path,
			"resource_type": script.typ,
			"attached_to":   n.name,
			"project_path":  projectPath(script.path),
		},
	})
	res.Refs = append(res.Refs,
		Ref{
			FromLocal: true, FromDecl: nodeIdx,
			Relation:    graph.RelAttachesTo,
			TargetLocal: true,
			TargetDecl:  idx,
			Target:      pathLeaf(script.path),
			Line:        n.line,
			Context:     fmt.Sprintf("script attached to %q", n.name),
		},
		Ref{
			FromLocal: true, FromDecl: idx,
			Relation: graph.RelReferences,
			Target:   projectPath(script.path),
			Attrs:    map[string]string{"resolve": "path"},
			Line:     n.line,
			Context:  fmt.Sprintf("attachment source %q", script.path),
		},
	)
}

func sceneInstance(res *Result, n *sceneNode, resources map[string]extResource) {
	inst, ok := resources[n.instance]
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("line %d: node %q instances unknown resource id %q", n.line, n.name, n.instance))
		return
	}
	idx := len(res.Decls)
	res.Decls = append(res.Decls, Decl{
		Kind: graph.KindResource,
		Name: pathLeaf(inst.path),
		Line: n.line,
		Attrs: map[string]string{
			"resource_path": inst.path,
			"resource_type": inst.typ,
			"instanced_as":  n.name,
			"project_path":  projectPath(inst.path),
		},
	})
	res.Refs = append(res.Refs,
		Ref{
			Relation:    graph.RelInstantiates,
			TargetLocal: true,
			TargetDecl:  idx,
			Target:      pathLeaf(inst.path),
			Line:        n.line,
			Context:     fmt.Sprintf("scene instances %q as %q", inst.path, n.name),
		},
		Ref{
			FromLocal: true, FromDecl: idx,
			Relation: graph.RelReferences,
			Target:   projectPath(inst.path),
			Attrs:    map[string]string{"resolve": "path"},
			Line:     n.line,
			Context:  fmt.Sprintf("instanced sub-scene %q", inst.path),
		},
	)
}

func sortedResourceIDs(resources map[string]extResource) []string {
	ids := make([]string, 0, len(resources))
	for id := range resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func treeScope(treePath string) []string {
	parts := strings.Split(treePath, "/")
	if len(parts) <= 1 {
		return nil
	}
	return parts[:len(parts)-1]
}

func firstLine(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}
