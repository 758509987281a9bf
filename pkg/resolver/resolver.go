// Package resolver builds and topologically sorts the dependency graph of a
// scene's pipeline: each step's target prompt, plus every prompt that target
// transitively extends/includes/composes, ordered so that every dependency
// comes before the prompts that reference it.
package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/prompthub/prompthub/pkg/apperrors"
	"github.com/prompthub/prompthub/pkg/models"
)

// PromptLookup is the read surface the resolver needs from storage. It is
// satisfied by *store.Store through the methods in store/resolverview.go, kept
// narrow so the resolver can be unit tested against an in-memory fake.
type PromptLookup interface {
	GetPrompt(ctx context.Context, id string) (models.Prompt, error)
	OutEdgesForPrompt(ctx context.Context, promptID string) ([]models.PromptRef, error)
}

// Node is one resolved prompt@version in dependency order.
type Node struct {
	StepID       string // empty for a transitive dependency, not a pipeline step itself
	PromptID     string
	Version      string
	RefType      models.RefType
	Override     map[string]any
	StepVariable map[string]any
	Condition    *models.Condition
}

// Plan is the ordered, cycle-free rendering schedule for a scene resolve.
type Plan struct {
	Nodes []Node
	// FingerprintTuples is the sorted (prompt_id, version) list the Resolve
	// Cache hashes into its fingerprint, so a plan change always invalidates cache hits.
	FingerprintTuples [][2]string
}

// Resolver builds Plans from a scene's pipeline.
type Resolver struct {
	lookup PromptLookup
}

// New constructs a Resolver over the given lookup surface.
func New(lookup PromptLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve expands a scene's pipeline into a topologically sorted Plan.
// callerProjectID is the project the resolving caller belongs to; any
// target prompt from a different project must have IsShared set or
// resolution fails with apperrors.ErrPermissionDenied.
func (r *Resolver) Resolve(ctx context.Context, scene models.Scene, callerProjectID string) (*Plan, error) {
	g := newGraph()

	for i, step := range scene.Pipeline {
		target, err := r.lookup.GetPrompt(ctx, step.PromptRef.PromptID)
		if err != nil {
			return nil, fmt.Errorf("load prompt %s: %w", step.PromptRef.PromptID, err)
		}
		if target.ProjectID != callerProjectID && !target.IsShared {
			return nil, fmt.Errorf("prompt %s is not shared: %w", target.ID, apperrors.ErrPermissionDenied)
		}
		version := resolveVersionRef(step.PromptRef.Version)
		if err := g.addRoot(i, step.StepID, step.PromptRef.PromptID, version, step.Variables, step.Condition); err != nil {
			return nil, err
		}
		if err := r.expand(ctx, g, step.PromptRef.PromptID, callerProjectID, []string{step.PromptRef.PromptID}); err != nil {
			return nil, err
		}
	}

	order, err := g.topoSort()
	if err != nil {
		return nil, err
	}

	// Concretize every "latest" node to the prompt's current_version here,
	// before the fingerprint tuples are built (spec.md §4.4 step 2, §4.6): the
	// cache fingerprint must carry concrete versions so a publish that moves
	// current_version always changes the fingerprint for a latest-bound step,
	// rather than depending solely on explicit cache invalidation. Prompts are
	// fetched at most once per distinct id (§4.4 "one query per distinct
	// prompt_id per resolution").
	prompts := make(map[string]models.Prompt)
	plan := &Plan{}
	for _, n := range order {
		if n.Version == models.LatestVersion {
			p, ok := prompts[n.PromptID]
			if !ok {
				var err error
				p, err = r.lookup.GetPrompt(ctx, n.PromptID)
				if err != nil {
					return nil, fmt.Errorf("load prompt %s: %w", n.PromptID, err)
				}
				prompts[n.PromptID] = p
			}
			n.Version = p.CurrentVersion
		}
		plan.Nodes = append(plan.Nodes, n)
		plan.FingerprintTuples = append(plan.FingerprintTuples, [2]string{n.PromptID, n.Version})
	}
	sortTuples(plan.FingerprintTuples)

	return plan, nil
}

func resolveVersionRef(v *string) string {
	if v == nil || *v == "" {
		return models.LatestVersion
	}
	return *v
}

// expand walks promptID's declared extends/includes/composes edges,
// recursively adding transitive dependencies to g and failing on a cycle or
// an unauthorized cross-project reference.
func (r *Resolver) expand(ctx context.Context, g *graph, promptID, callerProjectID string, path []string) error {
	edges, err := r.lookup.OutEdgesForPrompt(ctx, promptID)
	if err != nil {
		return fmt.Errorf("load edges for prompt %s: %w", promptID, err)
	}

	for _, edge := range edges {
		target, err := r.lookup.GetPrompt(ctx, edge.TargetPrompt)
		if err != nil {
			return fmt.Errorf("load target prompt %s: %w", edge.TargetPrompt, err)
		}
		if target.ProjectID != callerProjectID && !target.IsShared {
			return fmt.Errorf("prompt %s is not shared: %w", target.ID, apperrors.ErrPermissionDenied)
		}

		for _, p := range path {
			if p == target.ID {
				return apperrors.NewCircularDependencyError(append(append([]string{}, path...), target.ID))
			}
		}

		version := models.LatestVersion
		if edge.PinnedVer != nil {
			version = *edge.PinnedVer
		}

		g.addDependency(promptID, target.ID, version, edge.RefType, edge.Override)

		if err := r.expand(ctx, g, target.ID, callerProjectID, append(path, target.ID)); err != nil {
			return err
		}
	}
	return nil
}

func sortTuples(tuples [][2]string) {
	sort.Slice(tuples, func(i, j int) bool {
		if tuples[i][0] != tuples[j][0] {
			return tuples[i][0] < tuples[j][0]
		}
		return tuples[i][1] < tuples[j][1]
	})
}
