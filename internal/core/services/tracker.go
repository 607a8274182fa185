package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/corpora/internal/core/domain"
	"github.com/custodia-labs/corpora/internal/core/ports/driving"
	"github.com/custodia-labs/corpora/internal/logger"
)

// Tracker defaults.
const (
	DefaultAcquireTimeout = 2 * time.Second
	DefaultAcquireRetries = 3
	DefaultMaxBatchAge    = 30 * time.Minute
	sweepInterval         = time.Minute
)

// batchOp records an in-flight ingestion for one source scope.
type batchOp struct {
	sourceType domain.SourceType
	sourceName string
	startedAt  time.Time
	processed  int
	errors     int
}

// BatchTracker serialises ingestion batches. Only one batch runs at a time;
// concurrent attempts block briefly and then fail with ErrLockTimeout rather
// than queueing unbounded work behind a long ingest.
//
// A background sweep force-finishes batches older than maxAge so a crashed
// or hung ingestion cannot wedge the tracker for the process lifetime.
type BatchTracker struct {
	sem chan struct{}

	acquireTimeout time.Duration
	acquireRetries int
	maxAge         time.Duration

	mu   sync.Mutex
	ops  map[string]batchOp
	stop chan struct{}
	done chan struct{}
}

// NewBatchTracker creates a tracker with the given limits. Zero values pick
// defaults.
func NewBatchTracker(acquireTimeout time.Duration, acquireRetries int, maxAge time.Duration) *BatchTracker {
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}
	if acquireRetries <= 0 {
		acquireRetries = DefaultAcquireRetries
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxBatchAge
	}

	t := &BatchTracker{
		sem:            make(chan struct{}, 1),
		acquireTimeout: acquireTimeout,
		acquireRetries: acquireRetries,
		maxAge:         maxAge,
		ops:            make(map[string]batchOp),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	go t.sweep()
	return t
}

func scopeKey(sourceType domain.SourceType, sourceName string) string {
	return string(sourceType) + "/" + sourceName
}

// Begin acquires the ingestion slot for a source scope. It retries the
// acquire a bounded number of times before giving up with ErrLockTimeout.
func (t *BatchTracker) Begin(sourceType domain.SourceType, sourceName string) error {
	key := scopeKey(sourceType, sourceName)

	for attempt := 0; attempt < t.acquireRetries; attempt++ {
		select {
		case t.sem <- struct{}{}:
			t.mu.Lock()
			t.ops[key] = batchOp{
				sourceType: sourceType,
				sourceName: sourceName,
				startedAt:  time.Now(),
			}
			t.mu.Unlock()
			return nil
		case <-time.After(t.acquireTimeout):
			logger.Debug("Ingestion slot busy, attempt %d/%d for %s",
				attempt+1, t.acquireRetries, key)
		}
	}

	return fmt.Errorf("%w: ingestion already running, gave up after %d attempts",
		domain.ErrLockTimeout, t.acquireRetries)
}

// Finish releases the slot acquired by Begin. Calling Finish for a scope
// that was already swept is a no-op.
func (t *BatchTracker) Finish(sourceType domain.SourceType, sourceName string) {
	key := scopeKey(sourceType, sourceName)

	t.mu.Lock()
	_, active := t.ops[key]
	delete(t.ops, key)
	t.mu.Unlock()

	if active {
		select {
		case <-t.sem:
		default:
		}
	}
}

// Update records pipeline progress for a running batch.
func (t *BatchTracker) Update(sourceType domain.SourceType, sourceName string, processed, errors int) {
	key := scopeKey(sourceType, sourceName)

	t.mu.Lock()
	defer t.mu.Unlock()

	if op, ok := t.ops[key]; ok {
		op.processed = processed
		op.errors = errors
		t.ops[key] = op
	}
}

// Status reports the batch for a source scope. Running is false when no
// batch holds the slot for that scope.
func (t *BatchTracker) Status(sourceType domain.SourceType, sourceName string) driving.IngestStatus {
	key := scopeKey(sourceType, sourceName)

	t.mu.Lock()
	defer t.mu.Unlock()

	op, ok := t.ops[key]
	if !ok {
		return driving.IngestStatus{SourceType: sourceType, SourceName: sourceName}
	}
	return driving.IngestStatus{
		SourceType:         op.sourceType,
		SourceName:         op.sourceName,
		Running:            true,
		StartedAt:          op.startedAt,
		DocumentsProcessed: op.processed,
		ErrorCount:         op.errors,
	}
}

// sweep force-finishes batches that exceed maxAge.
func (t *BatchTracker) sweep() {
	defer close(t.done)
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			for key, op := range t.ops {
				if time.Since(op.startedAt) > t.maxAge {
					logger.Warn("Force-finishing stale ingestion batch %s (running %s)",
						key, time.Since(op.startedAt).Round(time.Second))
					delete(t.ops, key)
					select {
					case <-t.sem:
					default:
					}
				}
			}
			t.mu.Unlock()
		}
	}
}

// Stop terminates the background sweep.
func (t *BatchTracker) Stop() {
	close(t.stop)
	<-t.done
}
