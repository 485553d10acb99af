// Package output renders snapshots into export formats for external
// tooling. Exports are lossless over edge identity: every row or edge
// carries the ids, relation and confidence tier from the graph.
package output

import (
	"fmt"
	"strings"

	"reachgraph/internal/engine/graph"
)

type DOTGenerator struct {
	snap *graph.Snapshot
}

func NewDOTGenerator(snap *graph.Snapshot) *DOTGenerator {
	return &DOTGenerator{snap: snap}
}

var confidenceColors = map[graph.Confidence]string{
	graph.ConfidenceHigh:      "black",
	graph.ConfidenceMedium:    "gray40",
	graph.ConfidenceLow:       "orange3",
	graph.ConfidenceAmbiguous: "red3",
}

// Generate renders the whole snapshot, one cluster per source file, with
// edges colored by confidence tier. Cycle edges are drawn bold.
func (d *DOTGenerator) Generate(cycles [][]graph.NodeID) (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph reachgraph {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8];\n")
	buf.WriteString("  ranksep=1.2;\n")
	buf.WriteString("  nodesep=0.5;\n")
	buf.WriteString("  splines=polyline;\n\n")

	cycleEdges := make(map[graph.NodeID]map[graph.NodeID]bool)
	for _, cycle := range cycles {
		for i := range cycle {
			from := cycle[i]
			to := cycle[(i+1)%len(cycle)]
			if cycleEdges[from] == nil {
				cycleEdges[from] = make(map[graph.NodeID]bool)
			}
			cycleEdges[from][to] = true
		}
	}

	for i, file := range d.snap.Files() {
		ids := d.snap.NodesInFile(file)
		if len(ids) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&buf, "    label=%q;\n", file)
		buf.WriteString("    style=filled;\n")
		buf.WriteString("    color=\"whitesmoke\";\n")
		for _, id := range ids {
			node := d.snap.NodeRef(id)
			fmt.Fprintf(&buf, "    %q [label=%q, tooltip=%q];\n", id, nodeLabel(node), id)
		}
		buf.WriteString("  }\n\n")
	}

	// Synthetic placeholders sit outside every file cluster.
	for _, id := range d.snap.NodeIDs() {
		node := d.snap.NodeRef(id)
		if node.Kind == graph.KindUnresolved {
			fmt.Fprintf(&buf, "  %q [label=%q, style=dashed, color=red3];\n", id, node.Name+"?")
		}
	}
	buf.WriteString("\n")

	for _, id := range d.snap.NodeIDs() {
		for _, e := range d.snap.Outgoing(id) {
			attrs := []string{
				fmt.Sprintf("label=%q", e.Relation),
				fmt.Sprintf("color=%q", confidenceColors[e.Confidence]),
			}
			if cycleEdges[e.Source][e.Target] {
				attrs = append(attrs, "penwidth=2.4")
			}
			if e.Relation == graph.RelContains {
				attrs = append(attrs, "style=dotted")
			}
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.Source, e.Target, strings.Join(attrs, ", "))
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

func nodeLabel(n *graph.Node) string {
	return fmt.Sprintf("%s\n(%s)", n.Name, n.Kind)
}
