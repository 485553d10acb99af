package extract

import (
	"path/filepath"
	"strings"

	"reachgraph/internal/engine/graph"
)

// Decl is a single extracted declaration, before identity resolution.
type Decl struct {
	Kind    graph.Kind
	Name    string
	Scope   []string // enclosing declarations, outermost first; nil for top level
	Line    int
	Snippet string
	Attrs   map[string]string
}

// Ref is a single extracted reference occurrence. The normalizer turns it
// into an edge once the target is resolved.
type Ref struct {
	// From is the scope path of the declaration the reference occurs in,
	// including that declaration's own name. Nil attributes the reference
	// to the file's root node. FromLocal overrides the path lookup with a
	// direct index into the result's Decls.
	From      []string
	FromLocal bool
	FromDecl  int

	Relation   graph.Relation
	Target     string     // literal name, tree path, or resource path
	TargetKind graph.Kind // expected kind of the target; empty means any

	// TargetLocal resolves the reference against this file's own
	// declarations by Decls index, skipping the global resolution ladder.
	TargetLocal bool
	TargetDecl  int

	// Reverse flips the edge so it points from the resolved target back to
	// the source declaration. Scene signal wiring needs this: the signal
	// points at the connection record, not the other way round.
	Reverse bool

	// Bridge marks an outbound service reference resolved across dialects
	// by literal name only.
	Bridge bool

	// Dynamic marks a reference built from runtime-computed data. It never
	// resolves above Ambiguous; Candidates holds the statically enumerable
	// possibilities, if any.
	Dynamic    bool
	Candidates []string

	Line    int
	Context string
	Attrs   map[string]string
}

// Result is one file's extraction output. Errors are per-construct findings;
// Partial is set only when the file could not be tokenized at all.
type Result struct {
	File    string
	Dialect graph.Dialect
	Decls   []Decl
	Refs    []Ref
	Errors  []string
	Partial bool
}

// Extractor turns raw file text into ordered facts. Implementations never
// abort on malformed input: a failing construct is reported in Errors and
// extraction continues.
type Extractor interface {
	Dialect() graph.Dialect
	Extract(path string, content []byte) *Result
}

// ForPath dispatches on file extension. The dialect set is closed and known
// at build time.
func ForPath(path string) (Extractor, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gd":
		return gdscriptExtractor{}, true
	case ".tscn":
		return sceneExtractor{}, true
	case ".ts":
		return serviceExtractor{}, true
	}
	return nil, false
}

// Extract is the package-level convenience used by the coordinator.
func Extract(path string, content []byte) (*Result, bool) {
	ex, ok := ForPath(path)
	if !ok {
		return nil, false
	}
	return ex.Extract(path, content), true
}
