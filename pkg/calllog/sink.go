// Package calllog is the Call Log Sink: a bounded, fire-and-forget queue
// that decouples request-path latency from persisting telemetry, in the
// manner of the teacher's worker pool lifecycle (Start/Stop, health
// reporting) but simplified to a single-process producer/consumer queue
// rather than a DB-polling multi-replica orchestrator.
package calllog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prompthub/prompthub/pkg/models"
)

// Writer persists a single call log record.
type Writer interface {
	Insert(ctx context.Context, l models.CallLog) error
}

// Sink buffers CallLog records in a bounded channel and drains them with a
// small worker pool. When the buffer is full, the oldest queued record is
// dropped to make room — call volume must never push back on the request path.
type Sink struct {
	writer  Writer
	queue   chan models.CallLog
	workers int
	dropped atomic.Uint64
	wg      sync.WaitGroup
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

// New constructs a Sink with the given queue capacity and worker count.
func New(writer Writer, queueSize, workers int) *Sink {
	if workers < 1 {
		workers = 1
	}
	return &Sink{
		writer:  writer,
		queue:   make(chan models.CallLog, queueSize),
		workers: workers,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the worker pool. Idempotent.
func (s *Sink) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.runWorker(ctx)
	}
}

func (s *Sink) runWorker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			s.drain(ctx)
			return
		case entry := <-s.queue:
			s.write(ctx, entry)
		}
	}
}

func (s *Sink) drain(ctx context.Context) {
	for {
		select {
		case entry := <-s.queue:
			s.write(ctx, entry)
		default:
			return
		}
	}
}

func (s *Sink) write(ctx context.Context, entry models.CallLog) {
	if err := s.writer.Insert(ctx, entry); err != nil {
		slog.Error("call log insert failed", "error", err, "prompt_id", entry.PromptID, "scene_id", entry.SceneID)
	}
}

// Stop signals every worker to drain the remaining queue and return, then
// blocks until they do.
func (s *Sink) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
}

// Submit enqueues a call log entry without blocking the caller. If the
// queue is full, the oldest buffered entry is evicted to make room for the
// new one and the drop counter is incremented — this never blocks or
// returns an error to the request path.
func (s *Sink) Submit(entry models.CallLog) {
	select {
	case s.queue <- entry:
		return
	default:
	}

	select {
	case <-s.queue:
		s.dropped.Add(1)
		slog.Warn("call log queue full, dropping oldest entry", "prompt_id", entry.PromptID, "scene_id", entry.SceneID)
	default:
	}

	select {
	case s.queue <- entry:
	default:
		// A concurrent Submit refilled the slot first; this entry is dropped instead.
		s.dropped.Add(1)
	}
}

// DroppedCount returns the cumulative number of entries dropped for a full queue.
func (s *Sink) DroppedCount() uint64 {
	return s.dropped.Load()
}

// QueueDepth returns the number of entries currently buffered, for health reporting.
func (s *Sink) QueueDepth() int {
	return len(s.queue)
}

// QueueCapacity returns the configured buffer size.
func (s *Sink) QueueCapacity() int {
	return cap(s.queue)
}
