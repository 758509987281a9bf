package calllog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompthub/prompthub/pkg/models"
)

type fakeWriter struct {
	mu      sync.Mutex
	entries []models.CallLog
}

func (w *fakeWriter) Insert(_ context.Context, l models.CallLog) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, l)
	return nil
}

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

func TestSink_SubmitAndDrain(t *testing.T) {
	w := &fakeWriter{}
	s := New(w, 10, 2)
	s.Start(context.Background())
	defer s.Stop()

	for i := 0; i < 5; i++ {
		s.Submit(models.CallLog{CallerIdentity: "caller"})
	}

	require.Eventually(t, func() bool { return w.count() == 5 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(0), s.DroppedCount())
}

func TestSink_DropsOldestOnFullQueue(t *testing.T) {
	w := &fakeWriter{}
	s := New(w, 1, 0) // workers clamped to 1 by New, but we start it manually below to control timing
	// Fill the queue without starting workers so entries actually queue up.
	s.Submit(models.CallLog{CallerIdentity: "first"})
	s.Submit(models.CallLog{CallerIdentity: "second"})
	s.Submit(models.CallLog{CallerIdentity: "third"})

	assert.Equal(t, uint64(2), s.DroppedCount())

	s.Start(context.Background())
	defer s.Stop()
	require.Eventually(t, func() bool { return w.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestSink_StopDrainsRemainingQueue(t *testing.T) {
	w := &fakeWriter{}
	s := New(w, 10, 2)
	s.Start(context.Background())

	for i := 0; i < 3; i++ {
		s.Submit(models.CallLog{CallerIdentity: "caller"})
	}
	s.Stop()

	assert.Equal(t, 3, w.count())
}
