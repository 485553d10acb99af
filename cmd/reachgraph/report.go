package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"reachgraph/internal/core/app"
	"reachgraph/internal/engine/graph"
	"reachgraph/internal/engine/query"
	"reachgraph/internal/output"
)

func formatPath(p query.Path) string {
	var b strings.Builder

	if !p.Found {
		b.WriteString(fmt.Sprintf("No path within %d hops\n", p.MaxHops))
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Path (%d hops, weakest link: %s)\n", len(p.Edges), p.Weakest))
	for i, id := range p.Nodes {
		b.WriteString(fmt.Sprintf("  %s\n", id))
		if i < len(p.Confidences) {
			b.WriteString(fmt.Sprintf("    --(%s)-->\n", p.Confidences[i]))
		}
	}
	return b.String()
}

func formatImpact(r query.ImpactReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Impact of %s (%s, depth %d)\n", r.Root, r.Direction, r.Depth))
	for _, entry := range r.Entries {
		b.WriteString(fmt.Sprintf("  [%d] %s (%s)\n", entry.Depth, entry.ID, entry.Confidence))
	}
	if r.Truncated {
		b.WriteString("  ... truncated\n")
	}
	return b.String()
}

func formatDeadCode(sn *graph.Snapshot, r query.DeadCodeReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Unreachable declarations (%d, from %d entry points)\n",
		len(r.Candidates), len(r.Entries)))
	byFile := make(map[string][]*graph.Node)
	for _, id := range r.Candidates {
		n := sn.NodeRef(id)
		byFile[n.Origin.File] = append(byFile[n.Origin.File], n)
	}
	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		b.WriteString(fmt.Sprintf("  %s\n", f))
		for _, n := range byFile[f] {
			b.WriteString(fmt.Sprintf("    %s %s (line %d)\n", n.Kind, n.Name, n.Origin.Line))
		}
	}
	if r.Truncated {
		b.WriteString("  ... truncated\n")
	}
	return b.String()
}

func formatNodeRecord(r *graph.Record) string {
	var b strings.Builder

	n := r.Node
	b.WriteString(fmt.Sprintf("%s\n", n.ID))
	b.WriteString(fmt.Sprintf("  kind: %s  name: %s  confidence: %s\n", n.Kind, n.Name, n.Confidence))
	if n.Origin.File != "" {
		b.WriteString(fmt.Sprintf("  origin: %s:%d (%s)\n", n.Origin.File, n.Origin.Line, n.Origin.Dialect))
	}
	attrs := make([]string, 0, len(n.Attrs))
	for k, v := range n.Attrs {
		attrs = append(attrs, k+"="+v)
	}
	sort.Strings(attrs)
	for _, a := range attrs {
		b.WriteString(fmt.Sprintf("  attr: %s\n", a))
	}
	b.WriteString(fmt.Sprintf("  outgoing (%d):\n", len(r.Outgoing)))
	for _, e := range r.Outgoing {
		b.WriteString(fmt.Sprintf("    --%s (%s)--> %s\n", e.Relation, e.Confidence, e.Target))
	}
	b.WriteString(fmt.Sprintf("  incoming (%d):\n", len(r.Incoming)))
	for _, e := range r.Incoming {
		b.WriteString(fmt.Sprintf("    <--%s (%s)-- %s\n", e.Relation, e.Confidence, e.Source))
	}
	return b.String()
}

func formatValidation(r query.ValidationReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Validation: %d errors, %d findings total\n", r.Errors(), len(r.Findings)))
	for _, f := range r.Findings {
		b.WriteString(fmt.Sprintf("  [%s] %s: %s\n", f.Level, f.File, f.Message))
	}
	return b.String()
}

func writeExports(ctx context.Context, a *app.App) error {
	if *dotPath == "" && *tsvPath == "" {
		return nil
	}
	snap := a.Store.Snapshot()

	if *dotPath != "" {
		cycles, err := a.Queries.Cycles(ctx)
		if err != nil {
			return err
		}
		nodeCycles := make([][]graph.NodeID, 0, len(cycles.Cycles))
		for _, c := range cycles.Cycles {
			nodeCycles = append(nodeCycles, c.Nodes)
		}
		dot, err := output.NewDOTGenerator(snap).Generate(nodeCycles)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*dotPath, []byte(dot), 0o644); err != nil {
			return err
		}
	}
	if *tsvPath != "" {
		tsv, err := output.NewTSVGenerator(snap).Generate()
		if err != nil {
			return err
		}
		if err := os.WriteFile(*tsvPath, []byte(tsv), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(ctx context.Context, a *app.App, elapsed time.Duration) {
	snap := a.Store.Snapshot()
	stats := snap.Stats()

	fmt.Printf("Scanned %d files in %v: %d nodes, %d edges", stats.Files, elapsed.Round(time.Millisecond), stats.Nodes, stats.Edges)
	if stats.Unresolved > 0 {
		fmt.Printf(", %d unresolved", stats.Unresolved)
	}
	if stats.DegradedFiles > 0 {
		fmt.Printf(", %d degraded files", stats.DegradedFiles)
	}
	fmt.Println()

	cycles, err := a.Queries.Cycles(ctx)
	if err == nil && len(cycles.Cycles) > 0 {
		fmt.Printf("Cycles: %d\n", len(cycles.Cycles))
		for _, c := range cycles.Cycles {
			ids := make([]string, 0, len(c.Nodes))
			for _, id := range c.Nodes {
				ids = append(ids, string(id))
			}
			fmt.Printf("  %s (break at %s)\n", strings.Join(ids, " -> "), c.BreakPoint)
		}
	}

	validation, err := a.Queries.Validate(ctx)
	if err == nil && len(validation.Findings) > 0 {
		fmt.Print(formatValidation(validation))
	}
}
