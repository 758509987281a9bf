package resolver

import (
	"sort"

	"github.com/prompthub/prompthub/pkg/apperrors"
	"github.com/prompthub/prompthub/pkg/models"
)

// graph accumulates the nodes and edges a Resolve call discovers before
// they are topologically sorted.
type graph struct {
	nodes   map[string]*Node // keyed by promptID; a later addRoot overwrites the step/variable metadata
	order   []string         // insertion order of promptID, for deterministic tie-breaking
	seqHint map[string]int   // promptID -> pipeline step index that first referenced it
	edges   map[string][]string
}

func newGraph() *graph {
	return &graph{
		nodes:   make(map[string]*Node),
		seqHint: make(map[string]int),
		edges:   make(map[string][]string),
	}
}

func (g *graph) ensureNode(promptID string, seq int) *Node {
	if n, ok := g.nodes[promptID]; ok {
		return n
	}
	n := &Node{PromptID: promptID}
	g.nodes[promptID] = n
	g.order = append(g.order, promptID)
	g.seqHint[promptID] = seq
	return n
}

// addRoot registers a pipeline step's own target as a graph node.
func (g *graph) addRoot(seq int, stepID, promptID, version string, vars map[string]any, cond *models.Condition) error {
	n := g.ensureNode(promptID, seq)
	n.StepID = stepID
	n.Version = version
	n.StepVariable = vars
	n.Condition = cond
	return nil
}

// addDependency registers that fromPromptID depends on toPromptID, i.e. toPromptID must render first.
func (g *graph) addDependency(fromPromptID, toPromptID, version string, refType models.RefType, override map[string]any) {
	n := g.ensureNode(toPromptID, g.seqHint[fromPromptID])
	if n.Version == "" {
		n.Version = version
	}
	n.RefType = refType
	if override != nil {
		n.Override = override
	}
	g.edges[fromPromptID] = append(g.edges[fromPromptID], toPromptID)
}

// topoSort runs Kahn's algorithm: toPromptID must appear before
// fromPromptID in the output, since fromPromptID depends on it. Ties are
// broken by (pipeline step index, prompt id) so the order is deterministic
// across runs with the same plan.
func (g *graph) topoSort() ([]Node, error) {
	inDegree := make(map[string]int, len(g.order))
	for _, id := range g.order {
		inDegree[id] = 0
	}
	// fromPromptID -> toPromptID means toPromptID must precede fromPromptID,
	// so in Kahn's terms the edge direction for readiness is to -> from.
	dependents := make(map[string][]string)
	for from, tos := range g.edges {
		for _, to := range tos {
			dependents[to] = append(dependents[to], from)
			inDegree[from]++
		}
	}

	ready := make([]string, 0)
	for _, id := range g.order {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sortReady(ready, g.seqHint)

	var out []Node
	visited := make(map[string]bool)
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		out = append(out, *g.nodes[id])

		var newlyReady []string
		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				newlyReady = append(newlyReady, dep)
			}
		}
		sortReady(newlyReady, g.seqHint)
		ready = mergeSorted(ready, newlyReady, g.seqHint)
	}

	if len(out) != len(g.order) {
		return nil, apperrors.NewCircularDependencyError(unresolvedCycleMembers(g.order, visited))
	}

	return out, nil
}

func sortReady(ids []string, seqHint map[string]int) {
	sort.Slice(ids, func(i, j int) bool {
		if seqHint[ids[i]] != seqHint[ids[j]] {
			return seqHint[ids[i]] < seqHint[ids[j]]
		}
		return ids[i] < ids[j]
	})
}

func mergeSorted(a, b []string, seqHint map[string]int) []string {
	merged := append(a, b...)
	sortReady(merged, seqHint)
	return merged
}

func unresolvedCycleMembers(order []string, visited map[string]bool) []string {
	var remaining []string
	for _, id := range order {
		if !visited[id] {
			remaining = append(remaining, id)
		}
	}
	sort.Strings(remaining)
	return remaining
}
