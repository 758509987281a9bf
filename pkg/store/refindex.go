package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prompthub/prompthub/pkg/models"
)

// RefIndexStore persists the directed edges (scene step -> prompt, or
// prompt -> prompt) that the Dependency Resolver walks.
type RefIndexStore struct {
	q querier
}

const refColumns = `
	id, scene_id, step_id, source_prompt_id, target_prompt_id, ref_type,
	override_config, pinned_version, created_at
`

func scanRef(row interface {
	Scan(dest ...any) error
}) (models.PromptRef, error) {
	var r models.PromptRef
	var override []byte
	if err := row.Scan(
		&r.ID, &r.SceneID, &r.StepID, &r.SourcePrompt, &r.TargetPrompt, &r.RefType,
		&override, &r.PinnedVer, &r.CreatedAt,
	); err != nil {
		return models.PromptRef{}, err
	}
	if len(override) > 0 {
		if err := json.Unmarshal(override, &r.Override); err != nil {
			return models.PromptRef{}, fmt.Errorf("unmarshal override_config: %w", err)
		}
	}
	return r, nil
}

// ReplaceSceneRefs atomically replaces every out-edge for a scene (one per
// pipeline step) with the given set. Called whenever a scene's pipeline is saved.
func (s *RefIndexStore) ReplaceSceneRefs(ctx context.Context, sceneID string, refs []models.PromptRef) error {
	beginner, ok := s.q.(interface {
		Begin(context.Context) (pgx.Tx, error)
	})
	if !ok {
		return fmt.Errorf("replace scene refs: querier cannot begin a transaction")
	}
	tx, err := beginner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `DELETE FROM prompt_refs WHERE scene_id = $1`, sceneID); err != nil {
		return fmt.Errorf("clear scene refs: %w", err)
	}
	for _, r := range refs {
		override, err := marshalJSON(r.Override)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO prompt_refs (id, scene_id, step_id, target_prompt_id, ref_type, override_config, pinned_version)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, uuid.NewString(), sceneID, r.StepID, r.TargetPrompt, r.RefType, override, r.PinnedVer); err != nil {
			return fmt.Errorf("insert scene ref: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// ReplacePromptExtends atomically replaces every prompt-to-prompt edge
// (extends/includes/composes) sourced from promptID.
func (s *RefIndexStore) ReplacePromptExtends(ctx context.Context, promptID string, refs []models.PromptRef) error {
	beginner, ok := s.q.(interface {
		Begin(context.Context) (pgx.Tx, error)
	})
	if !ok {
		return fmt.Errorf("replace prompt refs: querier cannot begin a transaction")
	}
	tx, err := beginner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `DELETE FROM prompt_refs WHERE source_prompt_id = $1`, promptID); err != nil {
		return fmt.Errorf("clear prompt refs: %w", err)
	}
	for _, r := range refs {
		override, err := marshalJSON(r.Override)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO prompt_refs (id, source_prompt_id, target_prompt_id, ref_type, override_config, pinned_version)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.NewString(), promptID, r.TargetPrompt, r.RefType, override, r.PinnedVer); err != nil {
			return fmt.Errorf("insert prompt ref: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// OutEdgesForScene returns the ordered set of refs a scene's pipeline declares.
func (s *RefIndexStore) OutEdgesForScene(ctx context.Context, sceneID string) ([]models.PromptRef, error) {
	rows, err := s.q.Query(ctx, `SELECT `+refColumns+` FROM prompt_refs WHERE scene_id = $1`, sceneID)
	if err != nil {
		return nil, fmt.Errorf("out edges for scene: %w", err)
	}
	defer rows.Close()
	return collectRefs(rows)
}

// OutEdgesForPrompt returns the refs a prompt declares toward other prompts
// (extends/includes/composes), used when a step's target itself has dependencies.
func (s *RefIndexStore) OutEdgesForPrompt(ctx context.Context, promptID string) ([]models.PromptRef, error) {
	rows, err := s.q.Query(ctx, `SELECT `+refColumns+` FROM prompt_refs WHERE source_prompt_id = $1`, promptID)
	if err != nil {
		return nil, fmt.Errorf("out edges for prompt: %w", err)
	}
	defer rows.Close()
	return collectRefs(rows)
}

// InEdgesForPrompt returns every ref (from any scene or prompt) that targets promptID,
// used to block deletion of prompts still referenced elsewhere.
func (s *RefIndexStore) InEdgesForPrompt(ctx context.Context, promptID string) ([]models.PromptRef, error) {
	rows, err := s.q.Query(ctx, `SELECT `+refColumns+` FROM prompt_refs WHERE target_prompt_id = $1`, promptID)
	if err != nil {
		return nil, fmt.Errorf("in edges for prompt: %w", err)
	}
	defer rows.Close()
	return collectRefs(rows)
}

func collectRefs(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]models.PromptRef, error) {
	var out []models.PromptRef
	for rows.Next() {
		r, err := scanRef(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ref: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
