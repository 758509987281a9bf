// Package sceneengine implements the Scene Composition Engine: it resolves
// a scene's pipeline into a dependency-ordered plan, renders each
// non-skipped step under its merged variable scope, merges the results
// according to the scene's strategy, and writes a call log through.
package sceneengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prompthub/prompthub/pkg/apperrors"
	"github.com/prompthub/prompthub/pkg/models"
	"github.com/prompthub/prompthub/pkg/render"
	"github.com/prompthub/prompthub/pkg/resolver"
)

// PromptReader is the read surface the engine needs beyond dependency
// resolution: fetching a prompt's metadata and a concrete version's content.
type PromptReader interface {
	GetPrompt(ctx context.Context, id string) (models.Prompt, error)
	GetVersionContent(ctx context.Context, promptID, version string) (models.Version, error)
}

// Resolver builds a dependency-ordered Plan for a scene.
type Resolver interface {
	Resolve(ctx context.Context, scene models.Scene, callerProjectID string) (*resolver.Plan, error)
}

// ResultCache collapses concurrent identical resolves and serves cached results within TTL.
type ResultCache interface {
	GetOrCompute(key, sceneID string, tuples [][2]string, compute func() (any, error)) (any, error, bool)
}

// CallLogger records a resolve's outcome asynchronously.
type CallLogger interface {
	Submit(entry models.CallLog)
}

// StepResult is the per-step outcome of a scene resolve.
type StepResult struct {
	StepID        string `json:"step_id"`
	PromptID      string `json:"prompt_id"`
	Version       string `json:"version"`
	Skipped       bool   `json:"skipped"`
	SkipReason    string `json:"skip_reason,omitempty"`
	RenderedText  string `json:"rendered_content,omitempty"`
	TokenEstimate int    `json:"token_estimate,omitempty"`
}

// SceneResolveResult is the top-level output of Engine.Resolve.
type SceneResolveResult struct {
	FinalContent       string       `json:"final_content"`
	Steps              []StepResult `json:"steps"`
	TotalTokenEstimate int          `json:"total_token_estimate"`
	CacheHit           bool         `json:"cache_hit"`
	Warnings           []string     `json:"warnings,omitempty"`
}

// FingerprintFunc computes the Resolve Cache key for a scene resolve call.
// Production wiring passes cache.Fingerprint; this package stays independent
// of pkg/cache's hashing choices.
type FingerprintFunc func(sceneID string, variables map[string]any, callerProjectID string, tuples [][2]string) string

// Engine is the Scene Composition Engine.
type Engine struct {
	prompts     PromptReader
	resolve     Resolver
	cache       ResultCache
	callLogger  CallLogger
	fingerprint FingerprintFunc
}

// New constructs a scene Engine wired to its collaborators.
func New(prompts PromptReader, resolve Resolver, cache ResultCache, callLogger CallLogger, fingerprint FingerprintFunc) *Engine {
	return &Engine{prompts: prompts, resolve: resolve, cache: cache, callLogger: callLogger, fingerprint: fingerprint}
}

// Resolve runs the full scene pipeline: fetch -> resolve plan -> evaluate
// conditions -> render -> merge -> log. The plan is built on every call;
// the condition/render/merge steps run behind the resolve cache.
func (e *Engine) Resolve(ctx context.Context, scene models.Scene, variables map[string]any, caller models.Caller) (*SceneResolveResult, error) {
	plan, err := e.resolve.Resolve(ctx, scene, caller.ProjectID)
	if err != nil {
		// Plan-build failures (cycle detection, the cross-project permission
		// gate) happen before any step is rendered, so no resolve was actually
		// attempted yet; spec.md Testable Property 4 requires no CallLog for
		// the cycle case in particular, and the same reasoning covers the
		// permission-denied case here.
		return nil, err
	}

	varsJSON, _ := json.Marshal(variables)
	key := e.fingerprint(scene.ID, variables, caller.ProjectID, plan.FingerprintTuples)

	start := time.Now()
	raw, err, cacheHit := e.cache.GetOrCompute(key, scene.ID, plan.FingerprintTuples, func() (any, error) {
		return e.execute(ctx, scene, plan, variables)
	})
	if err != nil {
		// A resolve was attempted (the plan built cleanly) but failed partway
		// through rendering — spec.md §7: "CallLog is written on success and
		// on expected business errors where a resolve was attempted; internal
		// errors are not logged to call_logs."
		if isBusinessError(err) {
			e.callLogger.Submit(models.CallLog{
				SceneID:        &scene.ID,
				CallerIdentity: caller.ID,
				InputVariables: string(varsJSON),
				ElapsedMillis:  time.Since(start).Milliseconds(),
			})
		}
		return nil, err
	}
	result := raw.(*SceneResolveResult)
	result.CacheHit = cacheHit

	e.callLogger.Submit(models.CallLog{
		SceneID:         &scene.ID,
		CallerIdentity:  caller.ID,
		InputVariables:  string(varsJSON),
		RenderedContent: result.FinalContent,
		TokenEstimate:   result.TotalTokenEstimate,
		ElapsedMillis:   time.Since(start).Milliseconds(),
	})

	return result, nil
}

// isBusinessError reports whether err is one of the typed, expected failures
// a resolve attempt can surface (as opposed to an unexpected internal error,
// which spec.md §7 says must never be written to call_logs).
func isBusinessError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrPermissionDenied) {
		return true
	}
	if apperrors.IsValidationError(err) {
		return true
	}
	if apperrors.IsCircularDependencyError(err) {
		return true
	}
	_, ok := apperrors.AsTemplateRenderError(err)
	return ok
}

// execute performs the uncached condition/render/merge pipeline for a
// resolved plan. The cache's single-flight collapse runs it once for
// concurrent identical requests; it runs again after the cached entry
// expires or is invalidated, or when a previous run returned an error.
func (e *Engine) execute(ctx context.Context, scene models.Scene, plan *resolver.Plan, callerVars map[string]any) (*SceneResolveResult, error) {
	var steps []StepResult
	var outputs []string
	var priorOutput string
	totalTokens := 0

	for _, node := range plan.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scene resolve: %w", err)
		}

		prompt, err := e.prompts.GetPrompt(ctx, node.PromptID)
		if err != nil {
			return nil, err
		}

		// node.Version is already concrete: resolver.Resolve resolves "latest"
		// to the prompt's current_version as of plan-build time, and that
		// concrete version is what's baked into the cache fingerprint.
		version := node.Version
		ver, err := e.prompts.GetVersionContent(ctx, node.PromptID, version)
		if err != nil {
			return nil, err
		}

		scope := render.MergeVars(
			defaultsOf(prompt.VariableSpec),
			node.StepVariable,
			node.Override,
			callerVars,
		)
		if scene.MergeStrategy == models.MergeChain {
			scope["prior_output"] = priorOutput
		}

		// Transitive dependency nodes (not themselves a pipeline step) are
		// not conditioned, rendered or reported; their content is not
		// injected into the scope of the steps that reference them.
		if node.StepID == "" {
			continue
		}

		ok, err := evaluateCondition(node.Condition, scope)
		if err != nil {
			return nil, apperrors.NewValidationError("condition", err.Error())
		}
		if !ok {
			steps = append(steps, StepResult{StepID: node.StepID, PromptID: node.PromptID, Version: version, Skipped: true, SkipReason: "condition false"})
			continue
		}

		if err := render.Validate(ver.VariableSpec, scope); err != nil {
			return nil, err
		}

		engine, err := render.ForEngine(prompt.TemplateEngine)
		if err != nil {
			return nil, err
		}
		rendered, err := engine.Render(ver.Content, scope, ver.VariableSpec)
		if err != nil {
			return nil, err
		}

		tokens := render.EstimateTokens(rendered)
		totalTokens += tokens
		priorOutput = rendered
		outputs = append(outputs, rendered)
		steps = append(steps, StepResult{
			StepID: node.StepID, PromptID: node.PromptID, Version: version,
			RenderedText: rendered, TokenEstimate: tokens,
		})
	}

	final, warning := merge(scene.MergeStrategy, outputs, scene.Separator)
	var warnings []string
	if warning != "" {
		warnings = []string{warning}
	}

	return &SceneResolveResult{
		FinalContent:       final,
		Steps:              steps,
		TotalTokenEstimate: totalTokens,
		Warnings:           warnings,
	}, nil
}

func defaultsOf(spec []models.VariableDeclaration) map[string]any {
	out := make(map[string]any, len(spec))
	for _, d := range spec {
		if d.Default != nil {
			out[d.Name] = d.Default
		}
	}
	return out
}
