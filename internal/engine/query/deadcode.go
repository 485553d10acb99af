package query

import (
	"sort"
	"time"

	"reachgraph/internal/engine/graph"
)

// EntryConfig describes which nodes anchor liveness. Names are function
// names treated as externally invoked hooks; Files are project paths of
// entry scenes or autoload scripts whose root node seeds the whole file.
type EntryConfig struct {
	Names []string
	Files []string
}

// DefaultEntryNames lists the engine lifecycle hooks that are invoked by
// the runtime rather than by project code.
func DefaultEntryNames() []string {
	return []string{
		"_ready", "_process", "_physics_process", "_init",
		"_input", "_unhandled_input", "_enter_tree", "_exit_tree",
		"main",
	}
}

type DeadCodeReport struct {
	Entries    []graph.NodeID
	Candidates []graph.NodeID
	Truncated  bool
}

// Kinds that exist only as containment scaffolding or as call-site markers.
// They are never reported as dead on their own.
var deadCodeExcluded = map[graph.Kind]bool{
	graph.KindNodeReference:    true,
	graph.KindSignalConnection: true,
	graph.KindResource:         true,
	graph.KindAPICall:          true,
	graph.KindUnresolved:       true,
}

// DeadCode reports every node not forward-reachable from the entry set.
// Containment edges count as reachability, so seeding a file's root keeps
// everything declared in that file alive.
func (e *Engine) DeadCode(sn *graph.Snapshot, cfg EntryConfig, maxResults int) (DeadCodeReport, error) {
	defer observe("deadcode", time.Now())

	if maxResults <= 0 || maxResults > e.bounds.MaxResults {
		maxResults = e.bounds.MaxResults
	}

	report := DeadCodeReport{Entries: e.entrySet(sn, cfg)}

	reached := make(map[graph.NodeID]bool, len(report.Entries))
	queue := make([]graph.NodeID, 0, len(report.Entries))
	for _, id := range report.Entries {
		if !reached[id] {
			reached[id] = true
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, edge := range sn.Outgoing(curr) {
			if reached[edge.Target] {
				continue
			}
			reached[edge.Target] = true
			queue = append(queue, edge.Target)
		}
	}

	for _, id := range sn.NodeIDs() {
		if reached[id] {
			continue
		}
		node := sn.NodeRef(id)
		if deadCodeExcluded[node.Kind] {
			continue
		}
		if len(report.Candidates) >= maxResults {
			report.Truncated = true
			break
		}
		report.Candidates = append(report.Candidates, id)
	}
	return report, nil
}

func (e *Engine) entrySet(sn *graph.Snapshot, cfg EntryConfig) []graph.NodeID {
	names := cfg.Names
	if len(names) == 0 {
		names = DefaultEntryNames()
	}

	set := map[graph.NodeID]bool{}
	for _, name := range names {
		for _, id := range sn.FindByName(name) {
			node := sn.NodeRef(id)
			if node.Kind == graph.KindFunction {
				set[id] = true
			}
		}
	}
	for _, file := range cfg.Files {
		for _, id := range sn.NodesInFile(file) {
			node := sn.NodeRef(id)
			if node.Attrs["root"] == "true" {
				set[id] = true
			}
		}
	}

	entries := make([]graph.NodeID, 0, len(set))
	for id := range set {
		entries = append(entries, id)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i] < entries[j] })
	return entries
}
