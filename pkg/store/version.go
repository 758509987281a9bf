package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/prompthub/prompthub/pkg/apperrors"
	"github.com/prompthub/prompthub/pkg/models"
)

// VersionStore persists immutable models.Version snapshots.
type VersionStore struct {
	q querier
}

const versionColumns = `id, prompt_id, version, content, variable_spec, changelog, status, created_at`

func scanVersion(row interface {
	Scan(dest ...any) error
}) (models.Version, error) {
	var v models.Version
	var varSpec []byte
	if err := row.Scan(&v.ID, &v.PromptID, &v.Version, &v.Content, &varSpec, &v.Changelog, &v.Status, &v.CreatedAt); err != nil {
		return models.Version{}, err
	}
	if len(varSpec) > 0 {
		if err := json.Unmarshal(varSpec, &v.VariableSpec); err != nil {
			return models.Version{}, fmt.Errorf("unmarshal variable_spec: %w", err)
		}
	}
	return v, nil
}

// Create inserts a new version row for a prompt.
func (s *VersionStore) Create(ctx context.Context, v models.Version) (models.Version, error) {
	v.ID = uuid.NewString()
	if v.Status == "" {
		v.Status = models.StatusDraft
	}
	varSpec, err := marshalJSON(v.VariableSpec)
	if err != nil {
		return models.Version{}, err
	}

	row := s.q.QueryRow(ctx, `
		INSERT INTO prompt_versions (id, prompt_id, version, content, variable_spec, changelog, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+versionColumns, v.ID, v.PromptID, v.Version, v.Content, varSpec, v.Changelog, v.Status)

	out, err := scanVersion(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Version{}, fmt.Errorf("version %q for prompt %s: %w", v.Version, v.PromptID, apperrors.ErrConflict)
		}
		return models.Version{}, fmt.Errorf("create version: %w", err)
	}
	return out, nil
}

// Get fetches one version of a prompt by its literal semver string.
func (s *VersionStore) Get(ctx context.Context, promptID, version string) (models.Version, error) {
	row := s.q.QueryRow(ctx, `
		SELECT `+versionColumns+` FROM prompt_versions WHERE prompt_id = $1 AND version = $2
	`, promptID, version)
	out, err := scanVersion(row)
	if err != nil {
		return models.Version{}, wrapNotFound("version", err)
	}
	return out, nil
}

// List returns every version of a prompt, newest semver first.
func (s *VersionStore) List(ctx context.Context, promptID string) ([]models.Version, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+versionColumns+` FROM prompt_versions WHERE prompt_id = $1
	`, promptID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []models.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	SortBySemverDesc(out)
	return out, nil
}

// SortBySemverDesc orders versions from newest to oldest using strict semver
// comparison, matching the natural-sort behaviour the API exposes for
// current_version listing.
func SortBySemverDesc(versions []models.Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		a, b := versions[i], versions[j]
		av, aerr := semver.StrictNewVersion(a.Version)
		bv, berr := semver.StrictNewVersion(b.Version)
		if aerr != nil || berr != nil {
			return a.Version > b.Version
		}
		return av.GreaterThan(bv)
	})
}

// NextVersion computes the next semver string for a bump kind, given the
// prompt's current version (empty means this is the first draft, 0.1.0).
func NextVersion(current string, bump models.SemverBump) (string, error) {
	if current == "" {
		return "0.1.0", nil
	}
	cur, err := semver.StrictNewVersion(current)
	if err != nil {
		return "", fmt.Errorf("invalid current version %q: %w", current, err)
	}

	var next semver.Version
	switch bump {
	case models.BumpMajor:
		next = cur.IncMajor()
	case models.BumpMinor:
		next = cur.IncMinor()
	default:
		next = cur.IncPatch()
	}
	return next.String(), nil
}
