package extract

import (
	"testing"

	"reachgraph/internal/engine/graph"
)

const sampleScene = `[gd_scene load_steps=4 format=3 uid="uid://abc123"]

[ext_resource type="Script" path="res://scripts/player.gd" id="1_x0"]
[ext_resource type="PackedScene" uid="uid://def" path="res://scenes/weapon.tscn" id="2_y1"]
[ext_resource path="res://art/player.png" type="Texture2D" id="3_z2"]

[sub_resource type="RectangleShape2D" id="shape_1"]

[node name="Player" type="CharacterBody2D"]
script = ExtResource("1_x0")

[node name="Sprite" type="Sprite2D" parent="."]

[node name="Hitbox" type="Area2D" parent="Sprite"]

[node name="Weapon" parent="." instance=ExtResource("2_y1")]

[connection signal="body_entered" from="Hitbox" to="." method="_on_hitbox_body_entered"]
`

func TestSceneTree(t *testing.T) {
	res := sceneExtractor{}.Extract("scenes/player.tscn", []byte(sampleScene))
	if res.Partial {
		t.Fatalf("unexpected partial: %v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}

	if res.Decls[0].Kind != graph.KindContainer || res.Decls[0].Name != "player" {
		t.Fatalf("root decl = %+v", res.Decls[0])
	}
	if res.Decls[0].Attrs["uid"] != "uid://abc123" {
		t.Errorf("uid = %q", res.Decls[0].Attrs["uid"])
	}

	treeNodes := findDecls(res.Decls, graph.KindNodeReference)
	wantNames := []string{"Player", "Sprite", "Hitbox", "Weapon"}
	if len(treeNodes) != len(wantNames) {
		t.Fatalf("tree nodes = %d, want %d", len(treeNodes), len(wantNames))
	}
	for i, want := range wantNames {
		if treeNodes[i].Name != want {
			t.Errorf("node[%d] = %q, want %q", i, treeNodes[i].Name, want)
		}
	}
	// Hitbox is nested under Sprite, so its scope carries the tree path.
	if len(treeNodes[2].Scope) != 1 || treeNodes[2].Scope[0] != "Sprite" {
		t.Errorf("Hitbox scope = %v", treeNodes[2].Scope)
	}

	contains := findRefs(res.Refs, graph.RelContains)
	if len(contains) != 5 { // 4 tree nodes + 1 connection record
		t.Errorf("contains refs = %d, want 5", len(contains))
	}
}

func TestSceneScriptAttachment(t *testing.T) {
	res := sceneExtractor{}.Extract("scenes/player.tscn", []byte(sampleScene))

	attaches := findRefs(res.Refs, graph.RelAttachesTo)
	if len(attaches) != 1 {
		t.Fatalf("attaches-to refs = %d, want 1", len(attaches))
	}

	var scriptRes *Decl
	for i, d := range res.Decls {
		if d.Kind == graph.KindResource && d.Attrs["resource_type"] == "Script" {
			scriptRes = &res.Decls[i]
		}
	}
	if scriptRes == nil {
		t.Fatal("no script resource decl")
	}
	if scriptRes.Attrs["project_path"] != "scripts/player.gd" {
		t.Errorf("project_path = %q", scriptRes.Attrs["project_path"])
	}
	if scriptRes.Attrs["attached_to"] != "Player" {
		t.Errorf("attached_to = %q", scriptRes.Attrs["attached_to"])
	}

	// Cross-file linkage resolves by project path.
	var pathRefs []Ref
	for _, r := range res.Refs {
		if r.Attrs["resolve"] == "path" {
			pathRefs = append(pathRefs, r)
		}
	}
	if len(pathRefs) != 2 { // script source + instanced sub-scene
		t.Errorf("path-resolved refs = %d, want 2", len(pathRefs))
	}
}

func TestSceneInstancing(t *testing.T) {
	res := sceneExtractor{}.Extract("scenes/player.tscn", []byte(sampleScene))

	inst := findRefs(res.Refs, graph.RelInstantiates)
	if len(inst) != 1 {
		t.Fatalf("instantiates refs = %d, want 1", len(inst))
	}
	target := res.Decls[inst[0].TargetDecl]
	if target.Attrs["resource_path"] != "res://scenes/weapon.tscn" {
		t.Errorf("instanced path = %q", target.Attrs["resource_path"])
	}
	if target.Attrs["instanced_as"] != "Weapon" {
		t.Errorf("instanced_as = %q", target.Attrs["instanced_as"])
	}
}

func TestSceneConnections(t *testing.T) {
	res := sceneExtractor{}.Extract("scenes/player.tscn", []byte(sampleScene))

	conns := findDecls(res.Decls, graph.KindSignalConnection)
	if len(conns) != 1 {
		t.Fatalf("connections = %d, want 1", len(conns))
	}
	c := conns[0]
	if c.Attrs["signal"] != "body_entered" || c.Attrs["method"] != "_on_hitbox_body_entered" {
		t.Errorf("connection attrs = %v", c.Attrs)
	}

	connRefs := findRefs(res.Refs, graph.RelConnectsTo)
	if len(connRefs) != 2 {
		t.Fatalf("connects-to refs = %d, want 2", len(connRefs))
	}
	if !connRefs[0].Reverse || connRefs[0].Target != "body_entered" {
		t.Errorf("signal side = %+v", connRefs[0])
	}
	if connRefs[1].Target != "_on_hitbox_body_entered" || connRefs[1].TargetKind != graph.KindFunction {
		t.Errorf("handler side = %+v", connRefs[1])
	}
}

func TestSceneBothResourceOrderings(t *testing.T) {
	res := sceneExtractor{}.Extract("scenes/player.tscn", []byte(sampleScene))
	// The texture uses the historical path-first attribute ordering.
	if len(res.Errors) != 0 {
		t.Errorf("errors = %v", res.Errors)
	}
	var texture *Decl
	for i, d := range res.Decls {
		if d.Kind == graph.KindResource && d.Attrs["resource_type"] == "Texture2D" {
			texture = &res.Decls[i]
		}
	}
	if texture == nil {
		t.Fatal("path-first ext_resource not collected")
	}
	if texture.Attrs["resource_path"] != "res://art/player.png" {
		t.Errorf("texture path = %q", texture.Attrs["resource_path"])
	}
}

func TestSceneUnknownParentReported(t *testing.T) {
	src := "[gd_scene load_steps=1 format=3]\n\n[node name=\"Root\" type=\"Node2D\"]\n\n[node name=\"Orphan\" type=\"Node2D\" parent=\"Missing\"]\n"
	res := sceneExtractor{}.Extract("scenes/broken.tscn", []byte(src))
	if res.Partial {
		t.Fatal("local damage must not degrade the whole file")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %v, want the unknown-parent finding", res.Errors)
	}
	// The orphan still gets a containment edge to the scene root.
	if len(findDecls(res.Decls, graph.KindNodeReference)) != 2 {
		t.Error("orphan node dropped instead of contained")
	}
}
