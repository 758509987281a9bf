// Package cache implements the Resolve Cache: a TTL cache over scene
// resolve results keyed by a canonical fingerprint of (scene, variables,
// caller project, plan version tuple), with concurrent identical lookups
// collapsed through golang.org/x/sync/singleflight.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// entry is one cached resolve result.
type entry struct {
	value     any
	expiresAt time.Time
	// sceneID and tuples are kept so invalidation can find every entry
	// touched by a prompt or scene write without re-hashing.
	sceneID string
	tuples  [][2]string
}

// Cache is a process-local TTL cache with single-flight collapse.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	group   singleflight.Group

	hits   uint64
	misses uint64
}

// New constructs a Cache with the given default TTL.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
}

// Fingerprint deterministically hashes a scene resolve's cache key inputs:
// the scene id, its sorted variable map, the caller's project id, and the
// plan's (prompt_id, version) tuples. Any change to the resolved plan
// (e.g. a referenced prompt publishing a new version) changes the
// fingerprint, which is how publish-triggered invalidation is made
// unnecessary for version bumps that change the plan shape; explicit
// Invalidate calls handle same-shape content changes.
func Fingerprint(sceneID string, variables map[string]any, callerProjectID string, planTuples [][2]string) string {
	type canonical struct {
		SceneID   string         `json:"scene_id"`
		Variables map[string]any `json:"variables"`
		Caller    string         `json:"caller_project_id"`
		Plan      [][2]string    `json:"plan"`
	}

	tuples := append([][2]string{}, planTuples...)
	sort.Slice(tuples, func(i, j int) bool {
		if tuples[i][0] != tuples[j][0] {
			return tuples[i][0] < tuples[j][0]
		}
		return tuples[i][1] < tuples[j][1]
	})

	payload, _ := json.Marshal(canonical{
		SceneID:   sceneID,
		Variables: variables,
		Caller:    callerProjectID,
		Plan:      tuples,
	})

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// GetOrCompute returns the cached value for key if present and unexpired;
// otherwise it calls compute exactly once even under concurrent callers
// requesting the same key, stores the result, and returns it.
func (c *Cache) GetOrCompute(key, sceneID string, tuples [][2]string, compute func() (any, error)) (any, error, bool) {
	if v, ok := c.get(key); ok {
		return v, nil, true
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.get(key); ok {
			return v, nil
		}
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(key, sceneID, tuples, result)
		return result, nil
	})
	if err != nil {
		return nil, err, false
	}
	return v, nil, false
}

func (c *Cache) get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	return e.value, true
}

func (c *Cache) set(key, sceneID string, tuples [][2]string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
		sceneID:   sceneID,
		tuples:    tuples,
	}
}

func (c *Cache) recordHit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
}

func (c *Cache) recordMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}

// Stats reports cumulative hit/miss counters, exposed on the health endpoint.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// InvalidateScene removes every cached entry for a scene, called when its
// pipeline is saved.
func (c *Cache) InvalidateScene(sceneID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if e.sceneID == sceneID {
			delete(c.entries, k)
		}
	}
}

// InvalidatePrompt removes every cached entry whose plan referenced promptID,
// called when a prompt's content, version set, or sharing flag changes.
func (c *Cache) InvalidatePrompt(promptID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		for _, t := range e.tuples {
			if t[0] == promptID {
				delete(c.entries, k)
				break
			}
		}
	}
}
