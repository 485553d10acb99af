package output

import (
	"fmt"
	"sort"
	"strings"

	"reachgraph/internal/engine/graph"
)

type TSVGenerator struct {
	snap *graph.Snapshot
}

func NewTSVGenerator(snap *graph.Snapshot) *TSVGenerator {
	return &TSVGenerator{snap: snap}
}

// Generate emits one row per edge, carrying every edge field so the graph
// can be rebuilt from the export. Free-text columns are tab- and
// newline-stripped to keep one record per line.
func (t *TSVGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("EdgeID\tSource\tTarget\tRelation\tConfidence\tCandidates\tMeta\tContext\n")
	for _, id := range t.snap.NodeIDs() {
		for _, e := range t.snap.Outgoing(id) {
			buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				e.ID, e.Source, e.Target, e.Relation, e.Confidence,
				joinIDs(e.Candidates), encodePairs(e.Meta), flatten(e.Context)))
		}
	}
	return buf.String(), nil
}

// GenerateNodes emits one row per node, including synthetic placeholders.
func (t *TSVGenerator) GenerateNodes() (string, error) {
	var buf strings.Builder

	buf.WriteString("NodeID\tKind\tName\tFile\tLine\tDialect\tConfidence\tAttrs\tSnippet\n")
	for _, id := range t.snap.NodeIDs() {
		n := t.snap.NodeRef(id)
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			n.ID, n.Kind, n.Name, n.Origin.File, n.Origin.Line, n.Origin.Dialect,
			n.Confidence, encodePairs(n.Attrs), flatten(n.Snippet)))
	}
	return buf.String(), nil
}

func joinIDs(ids []graph.NodeID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, string(id))
	}
	return strings.Join(parts, ",")
}

// encodePairs renders a metadata map as sorted key=value pairs so identical
// maps always export identically.
func encodePairs(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+flatten(m[k]))
	}
	return strings.Join(parts, ";")
}

func flatten(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
