package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"reachgraph/internal/core/config"
	"reachgraph/internal/engine/graph"
)

func writeProjectFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestApp(t *testing.T, root string) *App {
	t.Helper()
	cfg := config.Default()
	cfg.ProjectRoot = root
	cfg.WatchPaths = []string{root}

	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

func TestAppScanAndQuery(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "scripts/player.gd", `extends CharacterBody2D

func _ready():
	take_damage(10)

func take_damage(amount):
	hp -= amount
`)
	writeProjectFile(t, root, "scripts/hud.gd", `extends Control

func _ready():
	pass
`)

	a := newTestApp(t, root)
	ctx := context.Background()
	if err := a.InitialScan(ctx); err != nil {
		t.Fatalf("InitialScan failed: %v", err)
	}

	snap := a.Store.Snapshot()
	ready := snap.FindByName("_ready")
	if len(ready) == 0 {
		t.Fatal("no _ready declarations after scan")
	}

	var from, to graph.NodeID
	for _, id := range ready {
		if n := snap.NodeRef(id); n.Origin.File == "scripts/player.gd" && n.Kind == graph.KindFunction {
			from = id
		}
	}
	damage := snap.FindByName("take_damage")
	for _, id := range damage {
		if snap.NodeRef(id).Kind == graph.KindFunction {
			to = id
		}
	}
	if from == "" || to == "" {
		t.Fatalf("endpoints not found: from=%q to=%q", from, to)
	}

	path, err := a.Queries.FindPath(ctx, from, to, 0)
	if err != nil {
		t.Fatalf("FindPath failed: %v", err)
	}
	if !path.Found {
		t.Error("no path from _ready to take_damage")
	}
}

func TestAppDeadCodeAndValidate(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "game.gd", `extends Node

func _ready():
	start()

func start():
	pass

func forgotten():
	pass
`)

	a := newTestApp(t, root)
	ctx := context.Background()
	if err := a.InitialScan(ctx); err != nil {
		t.Fatalf("InitialScan failed: %v", err)
	}

	dead, err := a.Queries.DeadCode(ctx)
	if err != nil {
		t.Fatalf("DeadCode failed: %v", err)
	}
	found := false
	for _, id := range dead.Candidates {
		if a.Store.Snapshot().NodeRef(id).Name == "forgotten" {
			found = true
		}
	}
	if !found {
		t.Errorf("forgotten not reported dead, candidates = %v", dead.Candidates)
	}

	report, err := a.Queries.Validate(ctx)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(report.Findings) != 0 {
		t.Errorf("clean project produced findings: %v", report.Findings)
	}
}

func TestAppQueryHonorsCanceledContext(t *testing.T) {
	a := newTestApp(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.Queries.Cycles(ctx); err == nil {
		t.Error("canceled context did not fail the query")
	}
}
