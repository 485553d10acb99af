package extract

import (
	"fmt"
	"regexp"
	"strings"

	"reachgraph/internal/engine/graph"
)

// serviceExtractor covers the remote backend's scripting dialect: handler
// declarations, module linkage and endpoint registrations. Endpoint literals
// are what gdscript-side service calls bridge to.
type serviceExtractor struct{}

var (
	svImport    = regexp.MustCompile(`^import\s+(?:[\w{}\s,*]+\s+from\s+)?["']([^"']+)["']`)
	svFuncDecl  = regexp.MustCompile(`^(export\s+)?(?:async\s+)?function\s+(\w+)\s*\(([^)]*)\)`)
	svArrowDecl = regexp.MustCompile(`^(export\s+)?const\s+(\w+)\s*(?::\s*[\w<>,\s.\[\]]+)?=\s*(?:async\s+)?\(([^)]*)\)\s*(?::\s*[\w<>,\s.\[\]]+)?=>`)
	svClassDecl = regexp.MustCompile(`^(export\s+)?class\s+(\w+)`)
	svMethod    = regexp.MustCompile(`^(?:public\s+|private\s+|protected\s+)?(?:async\s+)?(\w+)\s*\(([^)]*)\)\s*(?::\s*[\w<>,\s.\[\]|]+)?\s*\{`)
	svConstVar  = regexp.MustCompile(`^(export\s+)?(?:const|let|var)\s+(\w+)\s*(?::\s*[\w<>,\s.\[\]]+)?=`)

	svRoute    = regexp.MustCompile(`\b(?:router|app)\.(?:get|post|put|delete|patch)\s*\(\s*["']([^"']+)["']\s*,\s*(\w+)`)
	svRegister = regexp.MustCompile(`\b(?:register|handle)\s*\(\s*["'](\w+)["']\s*,\s*(\w+)`)

	svCall = regexp.MustCompile(`(\w+)\s*\(`)
)

// serviceBuiltins are runtime and keyword names never worth a call edge.
var serviceBuiltins = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"return": true, "function": true, "constructor": true, "super": true,
	"typeof": true, "require": true, "console": true, "log": true,
	"error": true, "warn": true, "parse": true, "stringify": true,
	"resolve": true, "reject": true, "then": true, "map": true,
	"filter": true, "reduce": true, "forEach": true, "push": true,
	"join": true, "split": true, "get": true, "post": true, "put": true,
	"delete": true, "patch": true, "register": true, "handle": true,
	"String": true, "Number": true, "Boolean": true, "Array": true,
	"Object": true, "Promise": true, "JSON": true, "Error": true,
}

func (serviceExtractor) Dialect() graph.Dialect { return graph.DialectService }

func (serviceExtractor) Extract(path string, content []byte) *Result {
	res, lines := newResult(path, graph.DialectService, content)
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

	type svScope struct {
		name   string
		scope  []string
		indent int
	}
	var currentClass string
	var classIndent int
	var current *svScope

	for i, raw := range lines {
		line := i + 1
		stripped := strings.TrimSpace(raw)
		if stripped == "" || strings.HasPrefix(stripped, "//") || strings.HasPrefix(stripped, "*") ||
			strings.HasPrefix(stripped, "/*") {
			continue
		}
		indent := len(raw) - len(strings.TrimLeft(raw, " \t"))

		if current != nil && strings.HasPrefix(stripped, "}") && indent <= current.indent {
			current = nil
		}
		if currentClass != "" && strings.HasPrefix(stripped, "}") && indent <= classIndent {
			currentClass = ""
		}

		if m := svImport.FindStringSubmatch(stripped); m != nil {
			res.Refs = append(res.Refs, Ref{
				Relation:   graph.RelImports,
				Target:     fileStem(m[1]),
				TargetKind: graph.KindModule,
				Line:       line,
				Context:    refContext(line, stripped),
				Attrs:      map[string]string{"module_path": m[1]},
			})
			continue
		}

		if m := svClassDecl.FindStringSubmatch(stripped); m != nil {
			currentClass = m[2]
			classIndent = indent
			attrs := map[string]string{}
			if m[1] != "" {
				attrs["is_exported"] = "true"
			}
			res.Decls = append(res.Decls, Decl{
				Kind:    graph.KindClass,
				Name:    currentClass,
				Line:    line,
				Snippet: snippet(lines, line, snippetContext),
				Attrs:   attrs,
			})
			continue
		}

		if decl, ok := svFunctionDecl(stripped, currentClass, indent, classIndent); ok {
			decl.Line = line
			decl.Snippet = snippet(lines, line, snippetContextFunc)
			res.Decls = append(res.Decls, decl)
			current = &svScope{name: decl.Name, scope: decl.Scope, indent: indent}
			continue
		}

		svEndpointRefs(res, lines, line, stripped)

		if current == nil {
			// Top-level state worth tracking, endpoints aside.
			if m := svConstVar.FindStringSubmatch(stripped); m != nil && currentClass == "" {
				attrs := map[string]string{}
				if m[1] != "" {
					attrs["is_exported"] = "true"
				}
				res.Decls = append(res.Decls, Decl{
					Kind:    graph.KindVariable,
					Name:    m[2],
					Line:    line,
					Snippet: snippet(lines, line, snippetContext),
					Attrs:   attrs,
				})
			}
			continue
		}

		from := append(append([]string(nil), current.scope...), current.name)
		for _, m := range svCall.FindAllStringSubmatchIndex(stripped, -1) {
			name := stripped[m[2]:m[3]]
			if serviceBuiltins[name] || name == current.name {
				continue
			}
			res.Refs = append(res.Refs, Ref{
				From:       from,
				Relation:   graph.RelCalls,
				Target:     name,
				TargetKind: graph.KindFunction,
				Line:       line,
				Context:    refContext(line, stripped),
			})
		}
	}

	return res
}

func svFunctionDecl(stripped, currentClass string, indent, classIndent int) (Decl, bool) {
	var scope []string
	if currentClass != "" && indent > classIndent {
		scope = []string{currentClass}
	}

	if m := svFuncDecl.FindStringSubmatch(stripped); m != nil {
		attrs := map[string]string{}
		if m[1] != "" {
			attrs["is_exported"] = "true"
		}
		if params := strings.TrimSpace(m[3]); params != "" {
			attrs["params"] = params
		}
		return Decl{Kind: graph.KindFunction, Name: m[2], Scope: scope, Attrs: attrs}, true
	}
	if m := svArrowDecl.FindStringSubmatch(stripped); m != nil {
		attrs := map[string]string{}
		if m[1] != "" {
			attrs["is_exported"] = "true"
		}
		if params := strings.TrimSpace(m[3]); params != "" {
			attrs["params"] = params
		}
		return Decl{Kind: graph.KindFunction, Name: m[2], Scope: scope, Attrs: attrs}, true
	}
	if currentClass != "" {
		if m := svMethod.FindStringSubmatch(stripped); m != nil && !serviceBuiltins[m[1]] {
			attrs := map[string]string{}
			if params := strings.TrimSpace(m[2]); params != "" {
				attrs["params"] = params
			}
			return Decl{Kind: graph.KindFunction, Name: m[1], Scope: []string{currentClass}, Attrs: attrs}, true
		}
	}
	return Decl{}, false
}

// svEndpointRefs records route and handler registrations. The endpoint name
// is the bridge anchor for cross-dialect service calls.
func svEndpointRefs(res *Result, lines []string, line int, stripped string) {
	emit := func(endpoint, handler, transport string) {
		idx := len(res.Decls)
		res.Decls = append(res.Decls, Decl{
			Kind:    graph.KindAPICall,
			Name:    endpoint,
			Line:    line,
			Snippet: snippet(lines, line, snippetContext),
			Attrs:   map[string]string{"transport": transport, "handler": handler, "endpoint": "true"},
		})
		res.Refs = append(res.Refs, Ref{
			FromLocal: true, FromDecl: idx,
			Relation:   graph.RelConnectsTo,
			Target:     handler,
			TargetKind: graph.KindFunction,
			Line:       line,
			Context:    fmt.Sprintf("endpoint %q handled by %q", endpoint, handler),
		})
	}
	for _, m := range svRoute.FindAllStringSubmatch(stripped, -1) {
		emit(pathLeaf(strings.Trim(m[1], "/")), m[2], "http")
	}
	for _, m := range svRegister.FindAllStringSubmatch(stripped, -1) {
		emit(m[1], m[2], "rpc")
	}
}
