package extract

import (
	"testing"

	"reachgraph/internal/engine/graph"
)

const sampleService = `import { Database } from "./database"
import express from "express"

const MAX_SLOTS = 3

export async function save_game(req, res) {
  const data = validate(req.body)
  await persist(data)
}

export function load_game(req, res) {
  return fetch_save(req.params.id)
}

function persist(data) {
  Database.write(data)
}

router.post("/api/save_game", save_game)
register("load_game", load_game)

export class SaveService {
  constructor(db) {
    this.db = db
  }

  async fetch_save(id) {
    return this.db.query(id)
  }
}
`

func TestServiceDeclarations(t *testing.T) {
	res := serviceExtractor{}.Extract("backend/saves.ts", []byte(sampleService))
	if res.Partial {
		t.Fatalf("unexpected partial: %v", res.Errors)
	}

	if res.Decls[0].Kind != graph.KindModule || res.Decls[0].Name != "saves" {
		t.Fatalf("root decl = %+v", res.Decls[0])
	}

	funcs := findDecls(res.Decls, graph.KindFunction)
	names := map[string]Decl{}
	for _, f := range funcs {
		names[f.Name] = f
	}
	if _, ok := names["save_game"]; !ok {
		t.Error("save_game not declared")
	}
	if names["save_game"].Attrs["is_exported"] != "true" {
		t.Error("save_game not flagged exported")
	}
	if _, ok := names["persist"]; !ok {
		t.Error("non-exported persist not declared")
	}
	if fetch, ok := names["fetch_save"]; !ok {
		t.Error("class method fetch_save not declared")
	} else if len(fetch.Scope) != 1 || fetch.Scope[0] != "SaveService" {
		t.Errorf("fetch_save scope = %v", fetch.Scope)
	}

	classes := findDecls(res.Decls, graph.KindClass)
	if len(classes) != 1 || classes[0].Name != "SaveService" {
		t.Errorf("classes = %+v", classes)
	}
}

func TestServiceImports(t *testing.T) {
	res := serviceExtractor{}.Extract("backend/saves.ts", []byte(sampleService))

	imports := findRefs(res.Refs, graph.RelImports)
	if len(imports) != 2 {
		t.Fatalf("imports = %d, want 2", len(imports))
	}
	if imports[0].Target != "database" {
		t.Errorf("import target = %q", imports[0].Target)
	}
	if imports[0].Attrs["module_path"] != "./database" {
		t.Errorf("module_path = %q", imports[0].Attrs["module_path"])
	}
}

func TestServiceEndpoints(t *testing.T) {
	res := serviceExtractor{}.Extract("backend/saves.ts", []byte(sampleService))

	endpoints := findDecls(res.Decls, graph.KindAPICall)
	if len(endpoints) != 2 {
		t.Fatalf("endpoints = %+v, want 2", endpoints)
	}
	if endpoints[0].Name != "save_game" || endpoints[0].Attrs["transport"] != "http" {
		t.Errorf("route endpoint = %+v", endpoints[0])
	}
	if endpoints[1].Name != "load_game" || endpoints[1].Attrs["transport"] != "rpc" {
		t.Errorf("registered endpoint = %+v", endpoints[1])
	}

	handlers := findRefs(res.Refs, graph.RelConnectsTo)
	if len(handlers) != 2 {
		t.Fatalf("handler refs = %d, want 2", len(handlers))
	}
	if handlers[0].Target != "save_game" || handlers[0].TargetKind != graph.KindFunction {
		t.Errorf("handler ref = %+v", handlers[0])
	}
}

func TestServiceCalls(t *testing.T) {
	res := serviceExtractor{}.Extract("backend/saves.ts", []byte(sampleService))

	calls := findRefs(res.Refs, graph.RelCalls)
	byTarget := map[string][]Ref{}
	for _, c := range calls {
		byTarget[c.Target] = append(byTarget[c.Target], c)
	}
	if len(byTarget["persist"]) != 1 {
		t.Errorf("persist calls = %+v", byTarget["persist"])
	}
	if got := byTarget["persist"][0].From; len(got) != 1 || got[0] != "save_game" {
		t.Errorf("persist called from %v", got)
	}
	if len(byTarget["fetch_save"]) != 1 {
		t.Errorf("fetch_save calls = %+v", byTarget["fetch_save"])
	}
	if len(byTarget["console"]) != 0 || len(byTarget["require"]) != 0 {
		t.Error("runtime builtins leaked into calls")
	}
}
