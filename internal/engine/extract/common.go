package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"reachgraph/internal/engine/graph"
)

const (
	snippetContext     = 2
	snippetContextFunc = 5
	contextMaxLen      = 60
)

// newResult sets up a result and checks that the content is tokenizable at
// all. A nil second return means the caller should stop immediately.
func newResult(path string, dialect graph.Dialect, content []byte) (*Result, []string) {
	res := &Result{File: path, Dialect: dialect}
	if bytes.IndexByte(content, 0) >= 0 {
		res.Partial = true
		res.Errors = append(res.Errors, "binary or truncated content, cannot tokenize")
		return res, nil
	}
	if !utf8.Valid(content) {
		res.Partial = true
		res.Errors = append(res.Errors, "invalid UTF-8 encoding, cannot tokenize")
		return res, nil
	}
	return res, strings.Split(string(content), "\n")
}

// snippet returns the line plus surrounding context, 1-based.
func snippet(lines []string, line, context int) string {
	if line < 1 || line > len(lines) {
		return ""
	}
	start := line - 1 - context
	if start < 0 {
		start = 0
	}
	end := line + context
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

// refContext is the human-readable occurrence description carried on edges.
func refContext(line int, text string) string {
	text = strings.TrimSpace(text)
	if len(text) > contextMaxLen {
		cut := contextMaxLen
		// Back off to a rune boundary so the cut never leaves a partial
		// UTF-8 sequence in the context string.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return fmt.Sprintf("line %d: %s", line, text)
}

// projectPath strips the engine's resource scheme so resource references can
// be matched against watched file paths.
func projectPath(resPath string) string {
	return strings.TrimPrefix(resPath, "res://")
}

func fileStem(path string) string {
	base := path
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndexByte(base, '.'); idx > 0 {
		base = base[:idx]
	}
	return base
}

// pathLeaf is the last component of a slash path.
func pathLeaf(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// builtinCalls are engine-provided functions never worth an edge.
var builtinCalls = map[string]bool{
	"_init": true, "_ready": true, "_process": true, "_physics_process": true,
	"_input": true, "_unhandled_input": true, "_notification": true,
	"_enter_tree": true, "_exit_tree": true,

	"print": true, "push_error": true, "push_warning": true, "str": true,
	"int": true, "float": true, "bool": true, "typeof": true, "len": true,
	"range": true, "abs": true, "min": true, "max": true, "clamp": true,
	"lerp": true, "get": true, "set": true, "has": true, "keys": true,
	"values": true, "append": true, "remove": true, "erase": true,
	"is_instance_valid": true, "is_instance_of": true, "await": true,

	"sin": true, "cos": true, "tan": true, "sqrt": true, "pow": true,
	"floor": true, "ceil": true, "round": true,

	"add_child": true, "remove_child": true, "get_parent": true,
	"get_children": true, "queue_free": true, "get_tree": true,
	"get_viewport": true,

	// Handled by dedicated patterns, never as plain calls.
	"func": true, "if": true, "elif": true, "while": true, "for": true,
	"match": true, "return": true, "assert": true, "preload": true,
	"load": true, "get_node": true, "find_child": true, "call": true,
	"connect": true, "emit_signal": true, "emit": true, "rpc": true,
	"rpc_id": true, "Vector2": true, "Vector3": true, "Color": true,
}
