// Package e2e wires the real Dependency Resolver, Resolve Cache, and Scene
// Composition Engine together over an in-memory store fake, exercising the
// same literal scenarios the API surface is expected to satisfy end to end
// rather than against the stubbed collaborators the unit suites use.
package e2e

import (
	"context"

	"github.com/prompthub/prompthub/pkg/apperrors"
	"github.com/prompthub/prompthub/pkg/models"
)

// fakeStore is the minimal in-memory backing satisfying both
// resolver.PromptLookup and sceneengine.PromptReader, so the same fixture
// drives the resolver and the engine without a database.
type fakeStore struct {
	prompts  map[string]models.Prompt
	versions map[string]models.Version // keyed by promptID+"@"+version
	edges    map[string][]models.PromptRef
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		prompts:  make(map[string]models.Prompt),
		versions: make(map[string]models.Version),
		edges:    make(map[string][]models.PromptRef),
	}
}

func (s *fakeStore) GetPrompt(_ context.Context, id string) (models.Prompt, error) {
	p, ok := s.prompts[id]
	if !ok {
		return models.Prompt{}, apperrors.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) OutEdgesForPrompt(_ context.Context, promptID string) ([]models.PromptRef, error) {
	return s.edges[promptID], nil
}

func (s *fakeStore) GetVersionContent(_ context.Context, promptID, version string) (models.Version, error) {
	v, ok := s.versions[promptID+"@"+version]
	if !ok {
		return models.Version{}, apperrors.ErrNotFound
	}
	return v, nil
}

// putVersion registers a version's content and, when makeCurrent is true,
// repoints the prompt's current_version to it (simulating a publish).
func (s *fakeStore) putVersion(promptID, version, content string, makeCurrent bool) {
	s.versions[promptID+"@"+version] = models.Version{PromptID: promptID, Version: version, Content: content, Status: models.StatusPublished}
	if makeCurrent {
		p := s.prompts[promptID]
		p.CurrentVersion = version
		s.prompts[promptID] = p
	}
}

// recordingLogger captures every CallLog submitted during a test so
// assertions can check both that one was written and what it contains.
type recordingLogger struct{ entries []models.CallLog }

func (l *recordingLogger) Submit(entry models.CallLog) { l.entries = append(l.entries, entry) }
