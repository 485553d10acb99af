package query

import (
	"sort"
	"time"

	"reachgraph/internal/core/errors"
	"reachgraph/internal/engine/graph"
)

// ImpactEntry is one node discovered by an impact traversal. Confidence is
// the weakest edge seen along the breadth-first discovery path, a
// weakest-link score for how trustworthy the dependency chain is.
type ImpactEntry struct {
	ID         graph.NodeID
	Depth      int
	Confidence graph.Confidence
}

type ImpactReport struct {
	Root      graph.NodeID
	Direction graph.Direction
	Depth     int
	Entries   []ImpactEntry
	Truncated bool
}

// Impact computes the set of nodes reachable from root within the given
// depth. DirOutgoing answers "what does this depend on / affect downstream",
// DirIncoming answers "what would break if this changed". The root itself is
// not listed. Traversal stops enqueueing once maxResults entries have been
// collected and flags the report as truncated.
func (e *Engine) Impact(sn *graph.Snapshot, root graph.NodeID, dir graph.Direction, depth, maxResults int) (ImpactReport, error) {
	defer observe("impact", time.Now())

	if depth <= 0 || depth > e.bounds.MaxHops {
		depth = e.bounds.MaxHops
	}
	if maxResults <= 0 || maxResults > e.bounds.MaxResults {
		maxResults = e.bounds.MaxResults
	}
	if !sn.Contains(root) {
		return ImpactReport{}, errors.AddContext(errors.New(errors.CodeNotFound, "impact root not in snapshot"), errors.CtxNode, string(root))
	}

	report := ImpactReport{Root: root, Direction: dir, Depth: depth}

	type visit struct {
		id   graph.NodeID
		conf graph.Confidence
	}
	seen := map[graph.NodeID]bool{root: true}
	frontier := []visit{{id: root, conf: graph.ConfidenceHigh}}

	for d := 1; d <= depth && len(frontier) > 0; d++ {
		sort.Slice(frontier, func(i, j int) bool { return frontier[i].id < frontier[j].id })
		var next []visit
		for _, v := range frontier {
			for _, edge := range sn.Neighbors(v.id, dir) {
				neighbor := edge.Target
				if dir == graph.DirIncoming {
					neighbor = edge.Source
				}
				if seen[neighbor] {
					continue
				}
				if len(report.Entries) >= maxResults {
					report.Truncated = true
					return report, nil
				}
				seen[neighbor] = true
				conf := graph.MinConfidence(v.conf, edge.Confidence)
				report.Entries = append(report.Entries, ImpactEntry{ID: neighbor, Depth: d, Confidence: conf})
				next = append(next, visit{id: neighbor, conf: conf})
			}
		}
		frontier = next
	}
	return report, nil
}

// Contains reports whether the impact set includes the node.
func (r ImpactReport) Contains(id graph.NodeID) bool {
	for _, entry := range r.Entries {
		if entry.ID == id {
			return true
		}
	}
	return false
}
