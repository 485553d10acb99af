package query

import (
	"time"

	"reachgraph/internal/engine/graph"
)

// Cycle is one simple directed cycle. Nodes starts at the smallest node id
// in the cycle and omits the repeated closing node. BreakPoint is the
// lowest-confidence edge in the cycle, the natural place to cut it.
type Cycle struct {
	Nodes      []graph.NodeID
	Edges      []graph.EdgeID
	BreakPoint graph.EdgeID
}

type CycleReport struct {
	Cycles    []Cycle
	Truncated bool
}

type cycleFrame struct {
	node  graph.NodeID
	edges []*graph.Edge
	next  int
}

// Cycles enumerates simple directed cycles up to the configured maximum
// length. Each cycle is discovered exactly once, rooted at its smallest
// node id: the search from a root only walks nodes with larger ids, so a
// cycle can never be found twice from two different roots.
func (e *Engine) Cycles(sn *graph.Snapshot, maxLen, maxResults int) (CycleReport, error) {
	defer observe("cycles", time.Now())

	if maxLen <= 0 || maxLen > e.bounds.MaxCycleLen {
		maxLen = e.bounds.MaxCycleLen
	}
	if maxResults <= 0 || maxResults > e.bounds.MaxResults {
		maxResults = e.bounds.MaxResults
	}

	var report CycleReport
	for _, root := range sn.NodeIDs() {
		if e.cyclesFrom(sn, root, maxLen, maxResults, &report) {
			report.Truncated = true
			return report, nil
		}
	}
	return report, nil
}

// cyclesFrom runs one bounded iterative depth-first search rooted at root,
// keeping an on-stack marker set so only simple cycles are reported.
// Returns true once the result bound is hit.
func (e *Engine) cyclesFrom(sn *graph.Snapshot, root graph.NodeID, maxLen, maxResults int, report *CycleReport) bool {
	stack := []cycleFrame{{node: root, edges: sn.Outgoing(root)}}
	onStack := map[graph.NodeID]bool{root: true}
	var pathEdges []*graph.Edge

	for len(stack) > 0 {
		frame := &stack[len(stack)-1]
		if frame.next >= len(frame.edges) {
			onStack[frame.node] = false
			stack = stack[:len(stack)-1]
			if len(pathEdges) > 0 {
				pathEdges = pathEdges[:len(pathEdges)-1]
			}
			continue
		}

		edge := frame.edges[frame.next]
		frame.next++

		if edge.Target == root {
			if len(report.Cycles) >= maxResults {
				return true
			}
			report.Cycles = append(report.Cycles, buildCycle(stack, pathEdges, edge))
			continue
		}
		// Nodes at or below the root id belong to searches rooted there;
		// on-stack nodes would make the cycle non-simple.
		if edge.Target <= root || onStack[edge.Target] {
			continue
		}
		if len(stack) >= maxLen {
			continue
		}
		onStack[edge.Target] = true
		pathEdges = append(pathEdges, edge)
		stack = append(stack, cycleFrame{node: edge.Target, edges: sn.Outgoing(edge.Target)})
	}
	return false
}

func buildCycle(stack []cycleFrame, pathEdges []*graph.Edge, closing *graph.Edge) Cycle {
	c := Cycle{
		Nodes: make([]graph.NodeID, 0, len(stack)),
		Edges: make([]graph.EdgeID, 0, len(stack)),
	}
	for _, frame := range stack {
		c.Nodes = append(c.Nodes, frame.node)
	}
	var weakest *graph.Edge
	for _, edge := range append(append([]*graph.Edge{}, pathEdges...), closing) {
		c.Edges = append(c.Edges, edge.ID)
		if weakest == nil || edge.Confidence < weakest.Confidence {
			weakest = edge
		}
	}
	c.BreakPoint = weakest.ID
	return c
}
