package main

import (
	"strings"
	"testing"

	"reachgraph/internal/engine/graph"
	"reachgraph/internal/engine/query"
)

func TestFormatPathFound(t *testing.T) {
	out := formatPath(query.Path{
		Found:       true,
		Nodes:       []graph.NodeID{"a", "b", "c"},
		Edges:       []graph.EdgeID{"a|calls|b#0", "b|calls|c#0"},
		Confidences: []graph.Confidence{graph.ConfidenceHigh, graph.ConfidenceMedium},
		Weakest:     graph.ConfidenceMedium,
		MaxHops:     10,
	})

	if !strings.Contains(out, "2 hops") {
		t.Errorf("hop count missing:\n%s", out)
	}
	if !strings.Contains(out, "weakest link: medium") {
		t.Errorf("weakest link missing:\n%s", out)
	}
	for _, id := range []string{"a", "b", "c"} {
		if !strings.Contains(out, "  "+id+"\n") {
			t.Errorf("node %s missing:\n%s", id, out)
		}
	}
}

func TestFormatPathNotFound(t *testing.T) {
	out := formatPath(query.Path{MaxHops: 6})
	if !strings.Contains(out, "No path within 6 hops") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestFormatImpact(t *testing.T) {
	out := formatImpact(query.ImpactReport{
		Root:      "gd:player.gd:function:shoot#0",
		Direction: graph.DirIncoming,
		Depth:     3,
		Entries: []query.ImpactEntry{
			{ID: "gd:hud.gd:function:update#0", Depth: 1, Confidence: graph.ConfidenceHigh},
		},
		Truncated: true,
	})

	if !strings.Contains(out, "incoming") {
		t.Errorf("direction missing:\n%s", out)
	}
	if !strings.Contains(out, "[1] gd:hud.gd:function:update#0 (high)") {
		t.Errorf("entry missing:\n%s", out)
	}
	if !strings.Contains(out, "truncated") {
		t.Errorf("truncation marker missing:\n%s", out)
	}
}

func TestFormatNodeRecord(t *testing.T) {
	out := formatNodeRecord(&graph.Record{
		Node: &graph.Node{
			ID:         "gd:player.gd:function:shoot#0",
			Kind:       graph.KindFunction,
			Name:       "shoot",
			Origin:     graph.Origin{File: "player.gd", Line: 12, Dialect: graph.DialectGDScript},
			Attrs:      map[string]string{"static": "false"},
			Confidence: graph.ConfidenceHigh,
		},
		Outgoing: []*graph.Edge{
			{Source: "gd:player.gd:function:shoot#0", Target: "gd:weapon.gd:function:fire#0", Relation: graph.RelCalls, Confidence: graph.ConfidenceMedium},
		},
	})

	if !strings.Contains(out, "origin: player.gd:12 (gdscript)") {
		t.Errorf("origin missing:\n%s", out)
	}
	if !strings.Contains(out, "attr: static=false") {
		t.Errorf("attrs missing:\n%s", out)
	}
	if !strings.Contains(out, "--calls (medium)--> gd:weapon.gd:function:fire#0") {
		t.Errorf("outgoing edge missing:\n%s", out)
	}
	if !strings.Contains(out, "incoming (0):") {
		t.Errorf("incoming section missing:\n%s", out)
	}
}

func TestFormatValidation(t *testing.T) {
	out := formatValidation(query.ValidationReport{
		Findings: []query.Finding{
			{File: "main.tscn", Level: query.LevelError, Message: "script not found: res://gone.gd"},
			{File: "main.tscn", Level: query.LevelWarning, Message: "ambiguous handler"},
		},
	})

	if !strings.Contains(out, "1 errors, 2 findings total") {
		t.Errorf("counts wrong:\n%s", out)
	}
	if !strings.Contains(out, "[error] main.tscn: script not found") {
		t.Errorf("error line missing:\n%s", out)
	}
}
