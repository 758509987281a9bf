package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/prompthub/prompthub/pkg/models"
)

// CallLogStore persists models.CallLog telemetry rows.
type CallLogStore struct {
	q querier
}

// Insert writes one call log record. Called from the Call Log Sink's
// background worker, never from the request path directly.
func (s *CallLogStore) Insert(ctx context.Context, l models.CallLog) error {
	l.ID = uuid.NewString()
	_, err := s.q.Exec(ctx, `
		INSERT INTO call_logs (id, prompt_id, scene_id, resolved_version, caller_identity,
			input_variables, rendered_content, token_estimate, elapsed_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, l.ID, l.PromptID, l.SceneID, nullableString(l.ResolvedVersion), l.CallerIdentity,
		l.InputVariables, l.RenderedContent, l.TokenEstimate, l.ElapsedMillis)
	if err != nil {
		return fmt.Errorf("insert call log: %w", err)
	}
	return nil
}

// ListForPrompt returns the most recent call logs for a prompt, newest first.
func (s *CallLogStore) ListForPrompt(ctx context.Context, promptID string, limit int) ([]models.CallLog, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := s.q.Query(ctx, `
		SELECT id, prompt_id, scene_id, resolved_version, caller_identity, input_variables,
			rendered_content, token_estimate, elapsed_ms, created_at
		FROM call_logs WHERE prompt_id = $1 ORDER BY created_at DESC LIMIT $2
	`, promptID, limit)
	if err != nil {
		return nil, fmt.Errorf("list call logs: %w", err)
	}
	defer rows.Close()

	var out []models.CallLog
	for rows.Next() {
		var l models.CallLog
		var resolvedVersion *string
		if err := rows.Scan(&l.ID, &l.PromptID, &l.SceneID, &resolvedVersion, &l.CallerIdentity,
			&l.InputVariables, &l.RenderedContent, &l.TokenEstimate, &l.ElapsedMillis, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan call log: %w", err)
		}
		if resolvedVersion != nil {
			l.ResolvedVersion = *resolvedVersion
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
