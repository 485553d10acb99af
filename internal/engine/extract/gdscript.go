package extract

import (
	"fmt"
	"regexp"
	"strings"

	"reachgraph/internal/engine/graph"
)

// gdscriptExtractor recognizes the game scripting dialect: declarations,
// calls, variable usage, signal wiring, node-path lookups, resource loads and
// outbound service calls. Pure line-oriented pattern matching; a line that
// fits no pattern is simply skipped, never fatal.
type gdscriptExtractor struct{}

var (
	gdClassName = regexp.MustCompile(`^class_name\s+(\w+)`)
	gdExtends   = regexp.MustCompile(`^extends\s+(\w+)`)
	gdInnerCls  = regexp.MustCompile(`^(\s*)class\s+(\w+)(?:\s+extends\s+(\w+))?:`)

	gdFuncDef = regexp.MustCompile(`^(\s*)(static\s+)?func\s+(\w+)\s*\(([^)]*)\)(?:\s*->\s*(\w+))?\s*:`)

	gdVarDecl     = regexp.MustCompile(`^(\s*)var\s+(\w+)(?:\s*:\s*(\w+))?(?:\s*=\s*(.+))?`)
	gdConstDecl   = regexp.MustCompile(`^(\s*)const\s+(\w+)(?:\s*:\s*(\w+))?\s*=\s*(.+)`)
	gdExportVar   = regexp.MustCompile(`^(\s*)@export(?:_\w+)?\s+var\s+(\w+)(?:\s*:\s*(\w+))?(?:\s*=\s*(.+))?`)
	gdOnreadyVar  = regexp.MustCompile(`^(\s*)@onready\s+var\s+(\w+)(?:\s*:\s*(\w+))?\s*=\s*(.+)`)
	gdSignalDef   = regexp.MustCompile(`^signal\s+(\w+)(?:\s*\(([^)]*)\))?`)

	gdEmitNew    = regexp.MustCompile(`(\w+)\.emit\s*\(`)
	gdEmitOld    = regexp.MustCompile(`emit_signal\s*\(\s*["'](\w+)["']`)
	gdConnectNew = regexp.MustCompile(`(\w+)\.connect\s*\(\s*(\w+)`)
	gdConnectOld = regexp.MustCompile(`connect\s*\(\s*["'](\w+)["'](?:\s*,\s*(?:self\s*,\s*)?["']?(\w+))?`)

	gdPreload = regexp.MustCompile(`preload\s*\(\s*["']([^"']+)["']\s*\)`)
	gdLoad    = regexp.MustCompile(`\bload\s*\(\s*["']([^"']+)["']\s*\)`)

	gdDollarPath = regexp.MustCompile(`\$([A-Za-z0-9_/]+)`)
	gdGetNode    = regexp.MustCompile(`get_node\s*\(\s*["']([^"']+)["']\s*\)`)
	gdGetNodeVar = regexp.MustCompile(`get_node\s*\(\s*(\w+)\s*\)`)

	gdMethodCall = regexp.MustCompile(`(\w+)\s*\(`)
	gdIdent      = regexp.MustCompile(`[A-Za-z_]\w*`)

	gdDynamicCall = regexp.MustCompile(`\bcall\s*\(\s*["']?(\w+)`)
	gdDynamicGet  = regexp.MustCompile(`\bget\s*\(\s*["'](\w+)["']\s*\)`)
	gdDynamicSet  = regexp.MustCompile(`\bset\s*\(\s*["'](\w+)["']\s*,`)

	gdRPC     = regexp.MustCompile(`\brpc\s*\(\s*["'](\w+)["']`)
	gdRPCID   = regexp.MustCompile(`\brpc_id\s*\(\s*[^,]+,\s*["'](\w+)["']`)
	gdRequest = regexp.MustCompile(`\.request\s*\(\s*["']([\w/]+)["']`)
)

func (gdscriptExtractor) Dialect() graph.Dialect { return graph.DialectGDScript }

type gdFunc struct {
	name   string
	scope  []string
	indent int
}

func (gdscriptExtractor) Extract(path string, content []byte) *Result {
	res, lines := newResult(path, graph.DialectGDScript, content)
	if lines == nil {
		return res
	}

	res.Decls = append(res.Decls, Decl{
		Kind:    graph.KindModule,
		Name:    fileStem(path),
		Line:    1,
		Snippet: snippet(lines, 1, snippetContext),
		Attrs:   map[string]string{"path": path, "root": "true"},
	})

	classVars := map[string]int{} // name -> Decls index
	var innerClass string
	var innerIndent int
	var current *gdFunc

	declScope := func(indent int) []string {
		if innerClass != "" && indent > innerIndent {
			return []string{innerClass}
		}
		return nil
	}

	// First pass: declarations.
	for i, raw := range lines {
		line := i + 1
		stripped := strings.TrimSpace(raw)
		if stripped == "" || strings.HasPrefix(stripped, "#") {
			continue
		}
		indent := len(raw) - len(strings.TrimLeft(raw, " \t"))

		if current != nil && indent <= current.indent {
			current = nil
		}
		if innerClass != "" && indent <= innerIndent && !strings.HasPrefix(stripped, "#") {
			if gdInnerCls.FindStringSubmatch(raw) == nil {
				innerClass = ""
			}
		}

		if m := gdClassName.FindStringSubmatch(stripped); m != nil {
			res.Decls = append(res.Decls, Decl{
				Kind:    graph.KindClass,
				Name:    m[1],
				Line:    line,
				Snippet: snippet(lines, line, snippetContext),
				Attrs:   map[string]string{"is_class_name": "true"},
			})
			continue
		}

		if m := gdExtends.FindStringSubmatch(stripped); m != nil {
			res.Refs = append(res.Refs, Ref{
				Relation:   graph.RelInherits,
				Target:     m[1],
				TargetKind: graph.KindClass,
				Line:       line,
				Context:    refContext(line, stripped),
			})
			continue
		}

		if m := gdInnerCls.FindStringSubmatch(raw); m != nil {
			innerClass = m[2]
			innerIndent = len(m[1])
			decl := Decl{
				Kind:    graph.KindClass,
				Name:    innerClass,
				Line:    line,
				Snippet: snippet(lines, line, snippetContext),
			}
			res.Decls = append(res.Decls, decl)
			if m[3] != "" {
				res.Refs = append(res.Refs, Ref{
					From:       []string{innerClass},
					Relation:   graph.RelInherits,
					Target:     m[3],
					TargetKind: graph.KindClass,
					Line:       line,
					Context:    refContext(line, stripped),
				})
			}
			continue
		}

		if m := gdSignalDef.FindStringSubmatch(stripped); m != nil {
			attrs := map[string]string{}
			if m[2] != "" {
				attrs["params"] = strings.TrimSpace(m[2])
			}
			res.Decls = append(res.Decls, Decl{
				Kind:    graph.KindSignal,
				Name:    m[1],
				Scope:   declScope(indent),
				Line:    line,
				Snippet: snippet(lines, line, snippetContext),
				Attrs:   attrs,
			})
			continue
		}

		if m := gdFuncDef.FindStringSubmatch(raw); m != nil {
			scope := declScope(len(m[1]))
			attrs := map[string]string{}
			if params := strings.TrimSpace(m[4]); params != "" {
				attrs["params"] = params
			}
			if m[5] != "" {
				attrs["return_type"] = m[5]
			}
			if m[2] != "" {
				attrs["is_static"] = "true"
			}
			if strings.HasPrefix(m[3], "_") {
				attrs["is_private"] = "true"
			}
			res.Decls = append(res.Decls, Decl{
				Kind:    graph.KindFunction,
				Name:    m[3],
				Scope:   scope,
				Line:    line,
				Snippet: snippet(lines, line, snippetContextFunc),
				Attrs:   attrs,
			})
			current = &gdFunc{name: m[3], scope: scope, indent: len(m[1])}
			continue
		}

		// Class-level variables only; function locals stay out of the graph.
		if current == nil {
			if idx, ok := gdVariableDecl(res, lines, line, stripped, declScope(indent)); ok {
				decl := res.Decls[idx]
				if len(decl.Scope) == 0 {
					classVars[decl.Name] = idx
				}
				continue
			}
		}
	}

	// Second pass: references, attributed to the enclosing function.
	current = nil
	innerClass = ""
	for i, raw := range lines {
		line := i + 1
		stripped := strings.TrimSpace(raw)
		if stripped == "" || strings.HasPrefix(stripped, "#") {
			continue
		}
		indent := len(raw) - len(strings.TrimLeft(raw, " \t"))

		if m := gdInnerCls.FindStringSubmatch(raw); m != nil {
			innerClass = m[2]
			innerIndent = len(m[1])
			continue
		}
		if innerClass != "" && indent <= innerIndent {
			innerClass = ""
		}
		if m := gdFuncDef.FindStringSubmatch(raw); m != nil {
			scope := []string(nil)
			if innerClass != "" && len(m[1]) > innerIndent {
				scope = []string{innerClass}
			}
			current = &gdFunc{name: m[3], scope: scope, indent: len(m[1])}
			continue
		}
		if current != nil && indent <= current.indent {
			current = nil
		}
		if current == nil {
			continue
		}
		from := append(append([]string(nil), current.scope...), current.name)

		gdSignalRefs(res, lines, line, stripped, from)
		gdCallRefs(res, line, stripped, from, current.name)
		gdVariableRefs(res, line, stripped, from, classVars)
		gdResourceRefs(res, lines, line, stripped, from)
		gdNodeRefs(res, lines, line, stripped, from)
		gdDynamicRefs(res, line, stripped, from)
		gdServiceRefs(res, lines, line, stripped, from)
	}

	return res
}

// gdVariableDecl matches the export/onready/const/var forms in priority
// order. Constants initialized with preload additionally yield a resource
// record.
func gdVariableDecl(res *Result, lines []string, line int, stripped string, scope []string) (int, bool) {
	type form struct {
		re      *regexp.Regexp
		marker  string
	}
	forms := []form{
		{gdExportVar, "is_exported"},
		{gdOnreadyVar, "is_onready"},
		{gdConstDecl, "is_constant"},
		{gdVarDecl, ""},
	}
	for _, f := range forms {
		m := f.re.FindStringSubmatch(stripped)
		if m == nil {
			continue
		}
		attrs := map[string]string{}
		if f.marker != "" {
			attrs[f.marker] = "true"
		}
		if m[3] != "" {
			attrs["type"] = m[3]
		}
		initial := ""
		if len(m) > 4 && m[4] != "" {
			initial = strings.TrimSpace(m[4])
			if len(initial) > 50 {
				attrs["initial_value"] = initial[:50]
			} else {
				attrs["initial_value"] = initial
			}
		}
		idx := len(res.Decls)
		res.Decls = append(res.Decls, Decl{
			Kind:    graph.KindVariable,
			Name:    m[2],
			Scope:   scope,
			Line:    line,
			Snippet: snippet(lines, line, snippetContext),
			Attrs:   attrs,
		})

		if pm := gdPreload.FindStringSubmatch(initial); pm != nil {
			addResourceRef(res, lines, line, nil, pm[1], "preload")
		} else if dm := gdDollarPath.FindStringSubmatch(initial); dm != nil && f.marker == "is_onready" {
			addNodeRef(res, lines, line, nil, dm[1])
		}
		return idx, true
	}
	return 0, false
}

func gdSignalRefs(res *Result, lines []string, line int, stripped string, from []string) {
	for _, m := range gdEmitNew.FindAllStringSubmatch(stripped, -1) {
		res.Refs = append(res.Refs, Ref{
			From:       from,
			Relation:   graph.RelEmits,
			Target:     m[1],
			TargetKind: graph.KindSignal,
			Line:       line,
			Context:    refContext(line, stripped),
		})
	}
	for _, m := range gdEmitOld.FindAllStringSubmatch(stripped, -1) {
		res.Refs = append(res.Refs, Ref{
			From:       from,
			Relation:   graph.RelEmits,
			Target:     m[1],
			TargetKind: graph.KindSignal,
			Line:       line,
			Context:    refContext(line, stripped),
		})
	}

	for _, m := range gdConnectNew.FindAllStringSubmatch(stripped, -1) {
		signalName, handler := m[1], m[2]
		connIdx := len(res.Decls)
		res.Decls = append(res.Decls, Decl{
			Kind:    graph.KindSignalConnection,
			Name:    fmt.Sprintf("%s -> %s", signalName, handler),
			Line:    line,
			Snippet: snippet(lines, line, snippetContext),
			Attrs:   map[string]string{"signal": signalName, "handler": handler},
		})
		res.Refs = append(res.Refs,
			Ref{
				FromLocal: true, FromDecl: connIdx,
				Relation:   graph.RelConnectsTo,
				Target:     signalName,
				TargetKind: graph.KindSignal,
				Reverse:    true,
				Line:       line,
				Context:    refContext(line, stripped),
			},
			Ref{
				FromLocal: true, FromDecl: connIdx,
				Relation:   graph.RelConnectsTo,
				Target:     handler,
				TargetKind: graph.KindFunction,
				Line:       line,
				Context:    refContext(line, stripped),
			},
		)
	}
	for _, m := range gdConnectOld.FindAllStringSubmatch(stripped, -1) {
		res.Refs = append(res.Refs, Ref{
			From:       from,
			Relation:   graph.RelConnectsTo,
			Target:     m[1],
			TargetKind: graph.KindSignal,
			Line:       line,
			Context:    refContext(line, stripped),
		})
		if m[2] != "" {
			res.Refs = append(res.Refs, Ref{
				From:       from,
				Relation:   graph.RelConnectsTo,
				Target:     m[2],
				TargetKind: graph.KindFunction,
				Line:       line,
				Context:    refContext(line, stripped),
			})
		}
	}
}

func gdCallRefs(res *Result, line int, stripped string, from []string, funcName string) {
	for _, m := range gdMethodCall.FindAllStringSubmatchIndex(stripped, -1) {
		name := stripped[m[2]:m[3]]
		if builtinCalls[name] || name == funcName {
			continue
		}
		// Receiver construction like Node.new() is not a project call.
		if m[2] > 0 && stripped[m[2]-1] == '.' && name == "new" {
			continue
		}
		ref := Ref{
			From:       from,
			Relation:   graph.RelCalls,
			Target:     name,
			TargetKind: graph.KindFunction,
			Line:       line,
			Context:    refContext(line, stripped),
		}
		// A dotted call keeps its receiver as a scope signal for
		// resolution: inventory.add_item() looks inside inventory first.
		if m[2] > 0 && stripped[m[2]-1] == '.' {
			if recv := receiverBefore(stripped, m[2]-1); recv != "" && recv != "self" {
				ref.Attrs = map[string]string{"receiver": recv}
			}
		}
		res.Refs = append(res.Refs, ref)
	}
}

// gdVariableRefs finds reads and writes of class-level variables. Heuristic:
// an identifier directly followed by an assignment operator is a write,
// any other occurrence is a read.
func gdVariableRefs(res *Result, line int, stripped string, from []string, classVars map[string]int) {
	for _, loc := range gdIdent.FindAllStringIndex(stripped, -1) {
		name := stripped[loc[0]:loc[1]]
		if _, ok := classVars[name]; !ok {
			continue
		}
		if loc[0] > 0 {
			prev := stripped[loc[0]-1]
			if prev == '.' || prev == '"' || prev == '\'' || prev == '$' {
				continue
			}
		}
		rest := strings.TrimLeft(stripped[loc[1]:], " \t")
		relation := graph.RelReads
		if isAssignment(rest) {
			relation = graph.RelWrites
		}
		res.Refs = append(res.Refs, Ref{
			From:       from,
			Relation:   relation,
			Target:     name,
			TargetKind: graph.KindVariable,
			Line:       line,
			Context:    refContext(line, stripped),
		})
	}
}

// receiverBefore walks back from the dot to recover the receiver identifier.
func receiverBefore(s string, dot int) string {
	end := dot
	start := end
	for start > 0 {
		c := s[start-1]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			start--
			continue
		}
		break
	}
	if start == end {
		return ""
	}
	return s[start:end]
}

func isAssignment(rest string) bool {
	if rest == "" {
		return false
	}
	if rest[0] == '=' {
		return len(rest) < 2 || rest[1] != '='
	}
	if len(rest) >= 2 && strings.ContainsRune("+-*/", rune(rest[0])) && rest[1] == '=' {
		return true
	}
	return false
}

func gdResourceRefs(res *Result, lines []string, line int, stripped string, from []string) {
	for _, m := range gdPreload.FindAllStringSubmatch(stripped, -1) {
		addResourceRef(res, lines, line, from, m[1], "preload")
	}
	for _, m := range gdLoad.FindAllStringSubmatch(stripped, -1) {
		addResourceRef(res, lines, line, from, m[1], "load")
	}
}

func gdNodeRefs(res *Result, lines []string, line int, stripped string, from []string) {
	for _, m := range gdDollarPath.FindAllStringSubmatch(stripped, -1) {
		addNodeRef(res, lines, line, from, m[1])
	}
	for _, m := range gdGetNode.FindAllStringSubmatch(stripped, -1) {
		addNodeRef(res, lines, line, from, m[1])
	}
}

func gdDynamicRefs(res *Result, line int, stripped string, from []string) {
	for _, m := range gdDynamicCall.FindAllStringSubmatchIndex(stripped, -1) {
		name := stripped[m[2]:m[3]]
		ref := Ref{
			From:       from,
			Relation:   graph.RelCalls,
			Target:     name,
			TargetKind: graph.KindFunction,
			Dynamic:    true,
			Line:       line,
			Context:    refContext(line, stripped),
		}
		// A quoted literal is a statically enumerable candidate; a bare
		// identifier is runtime data with no candidates at all.
		if m[2] > 0 && (stripped[m[2]-1] == '"' || stripped[m[2]-1] == '\'') {
			ref.Candidates = []string{name}
		}
		res.Refs = append(res.Refs, ref)
	}
	for _, m := range gdDynamicGet.FindAllStringSubmatch(stripped, -1) {
		res.Refs = append(res.Refs, Ref{
			From:       from,
			Relation:   graph.RelReads,
			Target:     m[1],
			TargetKind: graph.KindVariable,
			Dynamic:    true,
			Candidates: []string{m[1]},
			Line:       line,
			Context:    refContext(line, stripped),
		})
	}
	for _, m := range gdDynamicSet.FindAllStringSubmatch(stripped, -1) {
		res.Refs = append(res.Refs, Ref{
			From:       from,
			Relation:   graph.RelWrites,
			Target:     m[1],
			TargetKind: graph.KindVariable,
			Dynamic:    true,
			Candidates: []string{m[1]},
			Line:       line,
			Context:    refContext(line, stripped),
		})
	}
	for _, m := range gdGetNodeVar.FindAllStringSubmatch(stripped, -1) {
		res.Refs = append(res.Refs, Ref{
			From:       from,
			Relation:   graph.RelReferences,
			Target:     m[1],
			TargetKind: graph.KindNodeReference,
			Dynamic:    true,
			Line:       line,
			Context:    refContext(line, stripped),
		})
	}
}

// gdServiceRefs captures outbound calls to the remote backend. The literal
// name is bridged to a handler declaration in the service dialect later.
func gdServiceRefs(res *Result, lines []string, line int, stripped string, from []string) {
	emit := func(name, transport string) {
		idx := len(res.Decls)
		res.Decls = append(res.Decls, Decl{
			Kind:    graph.KindAPICall,
			Name:    name,
			Line:    line,
			Snippet: snippet(lines, line, snippetContext),
			Attrs:   map[string]string{"transport": transport},
		})
		res.Refs = append(res.Refs,
			Ref{
				From:        from,
				Relation:    graph.RelCalls,
				TargetLocal: true,
				TargetDecl:  idx,
				Target:      name,
				Line:        line,
				Context:     refContext(line, stripped),
			},
			Ref{
				FromLocal: true, FromDecl: idx,
				Relation:   graph.RelDataFlow,
				Target:     name,
				TargetKind: graph.KindFunction,
				Bridge:     true,
				Line:       line,
				Context:    refContext(line, stripped),
			},
		)
	}
	for _, m := range gdRPC.FindAllStringSubmatch(stripped, -1) {
		emit(m[1], "rpc")
	}
	for _, m := range gdRPCID.FindAllStringSubmatch(stripped, -1) {
		emit(m[1], "rpc")
	}
	for _, m := range gdRequest.FindAllStringSubmatch(stripped, -1) {
		emit(pathLeaf(m[1]), "http")
	}
}

func addResourceRef(res *Result, lines []string, line int, from []string, resPath, loadType string) {
	idx := len(res.Decls)
	attrs := map[string]string{
		"resource_path": resPath,
		"load_type":     loadType,
	}
	if strings.HasPrefix(resPath, "res://") {
		attrs["project_path"] = projectPath(resPath)
	}
	res.Decls = append(res.Decls, Decl{
		Kind:    graph.KindResource,
		Name:    pathLeaf(resPath),
		Line:    line,
		Snippet: snippet(lines, line, snippetContext),
		Attrs:   attrs,
	})
	res.Refs = append(res.Refs, Ref{
		From:        from,
		Relation:    graph.RelReferences,
		TargetLocal: true,
		TargetDecl:  idx,
		Target:      pathLeaf(resPath),
		Line:        line,
		Context:     fmt.Sprintf("%s(%q) at line %d", loadType, resPath, line),
	})
	if pp, ok := attrs["project_path"]; ok {
		res.Refs = append(res.Refs, Ref{
			FromLocal: true, FromDecl: idx,
			Relation: graph.RelReferences,
			Target:   pp,
			Attrs:    map[string]string{"resolve": "path"},
			Line:     line,
			Context:  fmt.Sprintf("%s(%q) at line %d", loadType, resPath, line),
		})
	}
}

func addNodeRef(res *Result, lines []string, line int, from []string, nodePath string) {
	idx := len(res.Decls)
	res.Decls = append(res.Decls, Decl{
		Kind:    graph.KindNodeReference,
		Name:    pathLeaf(nodePath),
		Line:    line,
		Snippet: snippet(lines, line, snippetContext),
		Attrs:   map[string]string{"node_path": nodePath},
	})
	res.Refs = append(res.Refs, Ref{
		From:        from,
		Relation:    graph.RelReferences,
		TargetLocal: true,
		TargetDecl:  idx,
		Target:      pathLeaf(nodePath),
		Line:        line,
		Context:     fmt.Sprintf("$%s at line %d", nodePath, line),
	})
}
