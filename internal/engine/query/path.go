package query

import (
	"sort"
	"strings"
	"time"

	"reachgraph/internal/core/errors"
	"reachgraph/internal/engine/graph"
)

// Path is the result of a shortest-path query. Found is false when the
// target is unreachable within the hop bound; the bound actually applied is
// echoed back in MaxHops so callers can distinguish "disconnected" from
// "too far for this bound".
type Path struct {
	Found       bool
	Nodes       []graph.NodeID
	Edges       []graph.EdgeID
	Confidences []graph.Confidence
	Weakest     graph.Confidence
	MaxHops     int
}

type pathState struct {
	nodes []graph.NodeID
	edges []graph.EdgeID
	conf  graph.Confidence
}

// FindPath returns the shortest directed path from one node to another.
// Among equal-length paths the one whose weakest edge confidence is highest
// wins; remaining ties break on the lexical order of the node-id sequence,
// so repeated queries on the same snapshot always agree.
func (e *Engine) FindPath(sn *graph.Snapshot, from, to graph.NodeID, maxHops int) (Path, error) {
	defer observe("path", time.Now())

	if maxHops <= 0 || maxHops > e.bounds.MaxHops {
		maxHops = e.bounds.MaxHops
	}
	if !sn.Contains(from) {
		return Path{}, errors.AddContext(errors.New(errors.CodeNotFound, "path source not in snapshot"), errors.CtxNode, string(from))
	}
	if !sn.Contains(to) {
		return Path{}, errors.AddContext(errors.New(errors.CodeNotFound, "path target not in snapshot"), errors.CtxNode, string(to))
	}
	if from == to {
		return Path{
			Found:   true,
			Nodes:   []graph.NodeID{from},
			Weakest: graph.ConfidenceHigh,
			MaxHops: maxHops,
		}, nil
	}

	// Bounded relaxation. Cost is lexicographic (hops, then weakest edge,
	// then node sequence), and every edge strictly increases the hop count,
	// so repeated full relaxation converges on the optimum.
	best := map[graph.NodeID]*pathState{
		from: {nodes: []graph.NodeID{from}, conf: graph.ConfidenceHigh},
	}
	for round := 0; round < maxHops; round++ {
		changed := false
		ids := make([]graph.NodeID, 0, len(best))
		for id := range best {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for _, u := range ids {
			st := best[u]
			if len(st.nodes)-1 >= maxHops {
				continue
			}
			for _, edge := range sn.Outgoing(u) {
				cand := extendPath(st, edge)
				if cur, ok := best[edge.Target]; !ok || betterPath(cand, cur) {
					best[edge.Target] = cand
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	st, ok := best[to]
	if !ok {
		return Path{MaxHops: maxHops}, nil
	}

	p := Path{
		Found:   true,
		Nodes:   st.nodes,
		Edges:   st.edges,
		Weakest: st.conf,
		MaxHops: maxHops,
	}
	p.Confidences = make([]graph.Confidence, 0, len(st.edges))
	for _, id := range st.edges {
		edge, _ := sn.EdgeByID(id)
		p.Confidences = append(p.Confidences, edge.Confidence)
	}
	return p, nil
}

func extendPath(st *pathState, edge *graph.Edge) *pathState {
	nodes := make([]graph.NodeID, len(st.nodes)+1)
	copy(nodes, st.nodes)
	nodes[len(st.nodes)] = edge.Target

	edges := make([]graph.EdgeID, len(st.edges)+1)
	copy(edges, st.edges)
	edges[len(st.edges)] = edge.ID

	return &pathState{nodes: nodes, edges: edges, conf: graph.MinConfidence(st.conf, edge.Confidence)}
}

func betterPath(a, b *pathState) bool {
	if len(a.nodes) != len(b.nodes) {
		return len(a.nodes) < len(b.nodes)
	}
	if a.conf != b.conf {
		return a.conf > b.conf
	}
	return nodeSequence(a.nodes) < nodeSequence(b.nodes)
}

func nodeSequence(ids []graph.NodeID) string {
	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(0)
		}
		sb.WriteString(string(id))
	}
	return sb.String()
}
