// Package models defines the wire and persistence types shared across
// PromptHub's storage, rendering, resolution and API layers.
package models

import "time"

// Format is the rendered output shape a prompt declares.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatChat Format = "chat"
)

// TemplateEngine selects the renderer a prompt's content is evaluated with.
type TemplateEngine string

const (
	EngineA    TemplateEngine = "engine_a"
	EngineB    TemplateEngine = "engine_b"
	EngineNone TemplateEngine = "none"
)

// VariableType enumerates the allowed types for a variable declaration.
type VariableType string

const (
	VarString  VariableType = "string"
	VarInteger VariableType = "integer"
	VarNumber  VariableType = "number"
	VarBoolean VariableType = "boolean"
	VarEnum    VariableType = "enum"
	VarObject  VariableType = "object"
	VarArray   VariableType = "array"
)

// VersionStatus is the lifecycle stage of a prompt version.
type VersionStatus string

const (
	StatusDraft      VersionStatus = "draft"
	StatusPublished  VersionStatus = "published"
	StatusDeprecated VersionStatus = "deprecated"
)

// RefType enumerates the kinds of edges a PromptRef can represent.
type RefType string

const (
	RefExtends  RefType = "extends"
	RefIncludes RefType = "includes"
	RefComposes RefType = "composes"
)

// MergeStrategy controls how a scene's rendered steps are combined.
type MergeStrategy string

const (
	MergeConcat     MergeStrategy = "concat"
	MergeChain      MergeStrategy = "chain"
	MergeSelectBest MergeStrategy = "select_best"
)

// ConditionOperator enumerates the comparison operators available to a step condition.
type ConditionOperator string

const (
	OpEq        ConditionOperator = "eq"
	OpNeq       ConditionOperator = "neq"
	OpIn        ConditionOperator = "in"
	OpNotIn     ConditionOperator = "not_in"
	OpGt        ConditionOperator = "gt"
	OpGte       ConditionOperator = "gte"
	OpLt        ConditionOperator = "lt"
	OpLte       ConditionOperator = "lte"
	OpExists    ConditionOperator = "exists"
	OpNotExists ConditionOperator = "not_exists"
)

// LatestVersion is the sentinel that selects a prompt's current_version at resolve time.
const LatestVersion = "latest"

// Project is the owning identity for prompts and scenes.
type Project struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VariableDeclaration describes one entry of a prompt's variable_spec.
type VariableDeclaration struct {
	Name        string       `json:"name"`
	Type        VariableType `json:"type"`
	Required    bool         `json:"required"`
	Default     any          `json:"default,omitempty"`
	EnumValues  []string     `json:"enum_values,omitempty"`
	Description string       `json:"description,omitempty"`
}

// Prompt is the logical, versioned artifact.
type Prompt struct {
	ID             string                `json:"id"`
	ProjectID      string                `json:"project_id"`
	Slug           string                `json:"slug"`
	Name           string                `json:"name"`
	Description    string                `json:"description"`
	CurrentVersion string                `json:"current_version"`
	Format         Format                `json:"format"`
	TemplateEngine TemplateEngine        `json:"template_engine"`
	VariableSpec   []VariableDeclaration `json:"variable_spec"`
	Tags           []string              `json:"tags"`
	Category       string                `json:"category"`
	IsShared       bool                  `json:"is_shared"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	DeletedAt      *time.Time            `json:"deleted_at,omitempty"`
}

// Version is an immutable snapshot of a prompt's renderable content.
type Version struct {
	ID           string                `json:"id"`
	PromptID     string                `json:"prompt_id"`
	Version      string                `json:"version"`
	Content      string                `json:"content"`
	VariableSpec []VariableDeclaration `json:"variable_spec"`
	Changelog    string                `json:"changelog"`
	Status       VersionStatus         `json:"status"`
	CreatedAt    time.Time             `json:"created_at"`
}

// PromptRef is a directed edge between a referencing entity (a scene step, or
// a prompt that explicitly extends another) and a target prompt.
type PromptRef struct {
	ID           string         `json:"id"`
	SceneID      *string        `json:"scene_id,omitempty"`
	StepID       *string        `json:"step_id,omitempty"`
	SourcePrompt *string        `json:"source_prompt_id,omitempty"`
	TargetPrompt string         `json:"target_prompt_id"`
	RefType      RefType        `json:"ref_type"`
	Override     map[string]any `json:"override_config,omitempty"`
	PinnedVer    *string        `json:"pinned_version,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Condition is a three-term predicate evaluated over a step's merged variable scope.
type Condition struct {
	Variable string            `json:"variable"`
	Operator ConditionOperator `json:"operator"`
	Value    any               `json:"value,omitempty"`
}

// PromptReference pins a step to a prompt id and an optional version (a
// literal semver or "latest").
type PromptReference struct {
	PromptID string  `json:"prompt_id"`
	Version  *string `json:"version,omitempty"`
}

// Step is one element of a scene's pipeline.
type Step struct {
	StepID    string         `json:"id"`
	PromptRef PromptReference `json:"prompt_ref"`
	Variables map[string]any `json:"variables,omitempty"`
	Condition *Condition     `json:"condition,omitempty"`
}

// Scene is a named, ordered pipeline of steps yielding one rendered text.
type Scene struct {
	ID            string        `json:"id"`
	ProjectID     string        `json:"project_id"`
	Slug          string        `json:"slug"`
	Name          string        `json:"name"`
	Pipeline      []Step        `json:"pipeline"`
	MergeStrategy MergeStrategy `json:"merge_strategy"`
	Separator     string        `json:"separator"`
	OutputFormat  string        `json:"output_format"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	DeletedAt     *time.Time    `json:"deleted_at,omitempty"`
}

// CallLog is a telemetry record of a resolved render or scene resolve.
type CallLog struct {
	ID              string    `json:"id"`
	PromptID        *string   `json:"prompt_id,omitempty"`
	SceneID         *string   `json:"scene_id,omitempty"`
	ResolvedVersion string    `json:"resolved_version,omitempty"`
	CallerIdentity  string    `json:"caller_identity"`
	InputVariables  string    `json:"input_variables"`
	RenderedContent string    `json:"rendered_content"`
	TokenEstimate   int       `json:"token_estimate"`
	ElapsedMillis   int64     `json:"elapsed_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

// Caller is the authenticated identity a request carries, produced by the
// API-key middleware (out of scope for the core; consumed as an opaque value).
type Caller struct {
	ID        string
	ProjectID string
}

// ListFilters narrows a Prompt Store listing.
type ListFilters struct {
	ProjectID string
	Slug      string
	Tags      []string
	Category  string
	IsShared  *bool
	Search    string
	SortBy    string
	Order     string
	Page      int
	PageSize  int
}

// Page wraps a page of results with pagination metadata.
type Page[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	TotalCount int
}

// SemverBump is the kind of version increment publish() performs.
type SemverBump string

const (
	BumpPatch SemverBump = "patch"
	BumpMinor SemverBump = "minor"
	BumpMajor SemverBump = "major"
)
