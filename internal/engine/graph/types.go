package graph

// Dialect identifies the source language a node was extracted from.
type Dialect string

const (
	DialectGDScript Dialect = "gdscript"
	DialectScene    Dialect = "scene"
	DialectService  Dialect = "service"
)

// Kind classifies a node in the code graph.
type Kind string

const (
	KindFunction         Kind = "function"
	KindVariable         Kind = "variable"
	KindSignal           Kind = "signal"
	KindSignalConnection Kind = "signal-connection"
	KindContainer        Kind = "structural-container"
	KindClass            Kind = "class"
	KindNodeReference    Kind = "node-reference"
	KindResource         Kind = "resource"
	KindAPICall          Kind = "api-call"
	KindModule           Kind = "module"
	KindUnresolved       Kind = "unresolved"
)

// Relation classifies an edge between two nodes.
type Relation string

const (
	RelCalls        Relation = "calls"
	RelReads        Relation = "reads"
	RelWrites       Relation = "writes"
	RelEmits        Relation = "emits"
	RelConnectsTo   Relation = "connects-to"
	RelInstantiates Relation = "instantiates"
	RelInherits     Relation = "inherits"
	RelReferences   Relation = "references"
	RelImports      Relation = "imports"
	RelDataFlow     Relation = "data-flow"
	RelContains     Relation = "contains"
	RelAttachesTo   Relation = "attaches-to"
)

// Confidence grades how certain a resolved node or relationship is.
// The ordering matters: weakest-link scoring takes the minimum along a path.
type Confidence int

const (
	ConfidenceAmbiguous Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "ambiguous"
	}
}

// MinConfidence returns the weaker of two tiers.
func MinConfidence(a, b Confidence) Confidence {
	if a < b {
		return a
	}
	return b
}

type NodeID string

type EdgeID string

// Origin records where a node was extracted from.
type Origin struct {
	File    string
	Line    int
	Dialect Dialect
}

// Node is a resolved graph entity. Identity is derived from dialect,
// qualified path, kind and declaration order, so an unchanged declaration
// keeps its id across re-parses.
type Node struct {
	ID         NodeID
	Kind       Kind
	Name       string
	Origin     Origin
	Snippet    string
	Attrs      map[string]string
	Confidence Confidence
	// Candidates lists sibling candidate ids when a reference resolved to
	// several same-named declarations.
	Candidates []NodeID
}

// Edge is a directed relationship between two nodes. The graph is a
// multigraph: several edges with distinct relation or context may connect
// the same ordered pair.
type Edge struct {
	ID         EdgeID
	Source     NodeID
	Target     NodeID
	Relation   Relation
	Context    string
	Confidence Confidence
	Meta       map[string]string
	// Candidates mirrors Node.Candidates for multi-candidate resolutions.
	Candidates []NodeID
}

// Direction selects edge orientation for adjacency queries.
type Direction int

const (
	DirOutgoing Direction = iota
	DirIncoming
)

func (d Direction) String() string {
	if d == DirIncoming {
		return "incoming"
	}
	return "outgoing"
}

func cloneNode(n *Node) *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Attrs != nil {
		c.Attrs = make(map[string]string, len(n.Attrs))
		for k, v := range n.Attrs {
			c.Attrs[k] = v
		}
	}
	c.Candidates = append([]NodeID(nil), n.Candidates...)
	return &c
}

func cloneEdge(e *Edge) *Edge {
	if e == nil {
		return nil
	}
	c := *e
	if e.Meta != nil {
		c.Meta = make(map[string]string, len(e.Meta))
		for k, v := range e.Meta {
			c.Meta[k] = v
		}
	}
	c.Candidates = append([]NodeID(nil), e.Candidates...)
	return &c
}
