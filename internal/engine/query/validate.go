package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"reachgraph/internal/engine/graph"
)

type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Finding is one structural problem. Missing required references are
// errors; ambiguous resolutions and degraded extractions are warnings.
type Finding struct {
	File    string
	Level   Level
	Node    graph.NodeID
	Message string
}

type ValidationReport struct {
	Findings []Finding
}

func (r ValidationReport) Errors() int {
	n := 0
	for _, f := range r.Findings {
		if f.Level == LevelError {
			n++
		}
	}
	return n
}

type sceneTreeNode struct {
	path string
	root bool
}

type sceneTree struct {
	paths  map[string]bool
	byName map[string]sceneTreeNode
}

type scriptAttachment struct {
	scene    string
	nodeName string
}

// Validate checks every scene file in the snapshot: attachment and
// sub-scene targets must exist, declared signal connections must land on a
// real handler, and node-path references in attached scripts must point at
// a node that exists in the owning tree.
func (e *Engine) Validate(sn *graph.Snapshot) ValidationReport {
	defer observe("validate", time.Now())

	var report ValidationReport

	degraded := sn.DegradedFiles()
	files := make([]string, 0, len(degraded))
	for file := range degraded {
		files = append(files, file)
	}
	sort.Strings(files)
	for _, file := range files {
		for _, msg := range degraded[file] {
			report.Findings = append(report.Findings, Finding{
				File: file, Level: LevelWarning,
				Message: fmt.Sprintf("extraction degraded: %s", msg),
			})
		}
	}

	trees := map[string]*sceneTree{}
	attachments := map[string][]scriptAttachment{}
	var sceneFiles []string

	for _, file := range sn.Files() {
		tree := buildSceneTree(sn, file)
		if tree == nil {
			continue
		}
		sceneFiles = append(sceneFiles, file)
		trees[file] = tree

		for _, id := range sn.NodesInFile(file) {
			node := sn.NodeRef(id)
			if node.Kind != graph.KindResource {
				continue
			}
			if target := node.Attrs["project_path"]; target != "" && node.Attrs["attached_to"] != "" {
				attachments[target] = append(attachments[target], scriptAttachment{
					scene: file, nodeName: node.Attrs["attached_to"],
				})
			}
		}
	}

	for _, file := range sceneFiles {
		e.validateScene(sn, file, &report)
	}
	e.validateNodePaths(sn, trees, attachments, &report)
	return report
}

func buildSceneTree(sn *graph.Snapshot, file string) *sceneTree {
	isScene := false
	tree := &sceneTree{paths: map[string]bool{}, byName: map[string]sceneTreeNode{}}
	for _, id := range sn.NodesInFile(file) {
		node := sn.NodeRef(id)
		switch node.Kind {
		case graph.KindContainer:
			isScene = true
		case graph.KindNodeReference:
			parent := node.Attrs["parent_path"]
			path := node.Name
			root := false
			switch parent {
			case "":
				root = true
			case ".":
			default:
				path = parent + "/" + node.Name
			}
			tree.paths[path] = true
			if _, seen := tree.byName[node.Name]; !seen {
				tree.byName[node.Name] = sceneTreeNode{path: path, root: root}
			}
		}
	}
	if !isScene {
		return nil
	}
	return tree
}

func (e *Engine) validateScene(sn *graph.Snapshot, file string, report *ValidationReport) {
	for _, id := range sn.NodesInFile(file) {
		node := sn.NodeRef(id)
		switch node.Kind {
		case graph.KindResource:
			e.validateResource(sn, file, node, report)
		case graph.KindSignalConnection:
			e.validateConnection(sn, file, node, report)
		}
	}
}

func (e *Engine) validateResource(sn *graph.Snapshot, file string, node *graph.Node, report *ValidationReport) {
	role := ""
	switch {
	case node.Attrs["attached_to"] != "":
		role = fmt.Sprintf("script attached to node %q", node.Attrs["attached_to"])
	case node.Attrs["instanced_as"] != "":
		role = fmt.Sprintf("sub-scene instanced as %q", node.Attrs["instanced_as"])
	default:
		// Plain asset references (textures, fonts) are not required to be
		// watched sources.
		return
	}
	for _, edge := range sn.Outgoing(node.ID) {
		if edge.Relation != graph.RelReferences {
			continue
		}
		target := sn.NodeRef(edge.Target)
		if target != nil && target.Kind == graph.KindUnresolved {
			report.Findings = append(report.Findings, Finding{
				File: file, Level: LevelError, Node: node.ID,
				Message: fmt.Sprintf("%s: target %q not found", role, node.Attrs["resource_path"]),
			})
		}
	}
}

func (e *Engine) validateConnection(sn *graph.Snapshot, file string, node *graph.Node, report *ValidationReport) {
	for _, edge := range sn.Outgoing(node.ID) {
		if edge.Relation != graph.RelConnectsTo {
			continue
		}
		target := sn.NodeRef(edge.Target)
		switch {
		case target != nil && target.Kind == graph.KindUnresolved:
			report.Findings = append(report.Findings, Finding{
				File: file, Level: LevelError, Node: node.ID,
				Message: fmt.Sprintf("connection %q: handler %q not found", node.Name, target.Name),
			})
		case edge.Confidence < graph.ConfidenceMedium:
			report.Findings = append(report.Findings, Finding{
				File: file, Level: LevelWarning, Node: node.ID,
				Message: fmt.Sprintf("connection %q: handler resolution is ambiguous", node.Name),
			})
		}
	}
	for _, edge := range sn.Incoming(node.ID) {
		if edge.Relation != graph.RelConnectsTo {
			continue
		}
		// The signal side may legitimately be an engine builtin with no
		// declaration in project code, so only ambiguity is reported.
		source := sn.NodeRef(edge.Source)
		switch {
		case source != nil && source.Kind == graph.KindUnresolved:
		case edge.Confidence < graph.ConfidenceMedium:
			report.Findings = append(report.Findings, Finding{
				File: file, Level: LevelWarning, Node: node.ID,
				Message: fmt.Sprintf("connection %q: signal resolution is ambiguous", node.Name),
			})
		}
	}
}

// validateNodePaths checks every literal node-path reference in a script
// against the trees of the scenes the script is attached to. Absolute,
// parent-relative and unique-name paths depend on the runtime tree and are
// skipped.
func (e *Engine) validateNodePaths(sn *graph.Snapshot, trees map[string]*sceneTree, attachments map[string][]scriptAttachment, report *ValidationReport) {
	scripts := make([]string, 0, len(attachments))
	for script := range attachments {
		scripts = append(scripts, script)
	}
	sort.Strings(scripts)

	for _, script := range scripts {
		for _, id := range sn.NodesInFile(script) {
			node := sn.NodeRef(id)
			if node.Kind != graph.KindNodeReference {
				continue
			}
			np := node.Attrs["node_path"]
			if np == "" || strings.HasPrefix(np, "/") || strings.HasPrefix(np, "%") || strings.Contains(np, "..") {
				continue
			}
			for _, attach := range attachments[script] {
				tree := trees[attach.scene]
				if tree == nil {
					continue
				}
				anchor, ok := tree.byName[attach.nodeName]
				if !ok {
					continue
				}
				candidate := np
				if !anchor.root {
					candidate = anchor.path + "/" + np
				}
				if !tree.paths[candidate] {
					report.Findings = append(report.Findings, Finding{
						File: script, Level: LevelError, Node: id,
						Message: fmt.Sprintf("node path %q not found in scene %s", np, attach.scene),
					})
				}
			}
		}
	}
}
