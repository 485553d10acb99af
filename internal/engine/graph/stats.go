package graph

// Stats summarizes a snapshot for status output and dead-code denominators.
type Stats struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
	Files int `json:"files"`

	NodesByKind     map[Kind]int     `json:"nodes_by_kind"`
	EdgesByRelation map[Relation]int `json:"edges_by_relation"`
	FilesByDialect  map[Dialect]int  `json:"files_by_dialect"`

	EdgesByConfidence map[string]int `json:"edges_by_confidence"`

	Unresolved    int `json:"unresolved"`
	DegradedFiles int `json:"degraded_files"`
}

// Stats walks the snapshot once and tallies everything.
func (sn *Snapshot) Stats() Stats {
	st := Stats{
		Nodes:             len(sn.nodes),
		Edges:             len(sn.edges),
		Files:             len(sn.byFile),
		NodesByKind:       make(map[Kind]int),
		EdgesByRelation:   make(map[Relation]int),
		FilesByDialect:    make(map[Dialect]int),
		EdgesByConfidence: make(map[string]int),
		DegradedFiles:     len(sn.degraded),
	}
	dialectSeen := make(map[string]Dialect)
	for _, n := range sn.nodes {
		st.NodesByKind[n.Kind]++
		if n.Kind == KindUnresolved {
			st.Unresolved++
		}
		if n.Origin.File != "" {
			dialectSeen[n.Origin.File] = n.Origin.Dialect
		}
	}
	for _, d := range dialectSeen {
		st.FilesByDialect[d]++
	}
	for _, e := range sn.edges {
		st.EdgesByRelation[e.Relation]++
		st.EdgesByConfidence[e.Confidence.String()]++
	}
	return st
}
