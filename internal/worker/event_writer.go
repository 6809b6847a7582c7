// Package worker runs background jobs of the gateway.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aghostraa/oli-frontend/internal/logging"
	"github.com/Aghostraa/oli-frontend/internal/models"
)

// Default event writer settings
const (
	DefaultFlushInterval = 5 * time.Second
	DefaultBatchSize     = 500
	DefaultBufferSize    = 10000

	finalFlushTimeout = 10 * time.Second
)

// ErrBufferFull is returned by Record when the pending buffer is full
var ErrBufferFull = errors.New("search event buffer is full")

// ErrNotRunning is returned by Record before Start or after Stop
var ErrNotRunning = errors.New("event writer is not running")

// BatchRecorder stores a batch of search events
type BatchRecorder interface {
	RecordBatch(ctx context.Context, events []*models.SearchEvent) error
}

// EventWriter buffers search events and writes them in batches, on a timer
// or whenever a batch fills up
type EventWriter struct {
	recorder      BatchRecorder
	flushInterval time.Duration
	batchSize     int
	events        chan *models.SearchEvent
	running       bool
	mu            sync.RWMutex
	stopCh        chan struct{}
	doneCh        chan struct{}
	lastFlushTime time.Time
	written       int64
	dropped       atomic.Int64
	failed        int64
	logger        *logging.Logger
}

// EventWriterConfig holds configuration for an event writer
type EventWriterConfig struct {
	Recorder      BatchRecorder
	FlushInterval time.Duration // default 5s
	BatchSize     int           // events per insert, default 500
	BufferSize    int           // pending events before Record drops, default 10000
}

// NewEventWriter creates a new event writer
func NewEventWriter(cfg *EventWriterConfig) (*EventWriter, error) {
	if cfg == nil || cfg.Recorder == nil {
		return nil, fmt.Errorf("batch recorder cannot be nil")
	}

	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if bufferSize < batchSize {
		return nil, fmt.Errorf("buffer size (%d) must be at least the batch size (%d)", bufferSize, batchSize)
	}

	return &EventWriter{
		recorder:      cfg.Recorder,
		flushInterval: flushInterval,
		batchSize:     batchSize,
		events:        make(chan *models.SearchEvent, bufferSize),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
		logger:        logging.GetGlobalLogger().WithField("component", "event_writer"),
	}, nil
}

// Start begins the flush loop
func (w *EventWriter) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("event writer is already running")
	}
	select {
	case <-w.stopCh:
		return fmt.Errorf("event writer cannot be restarted")
	case <-w.doneCh:
		return fmt.Errorf("event writer cannot be restarted")
	default:
	}
	w.running = true

	w.logger.WithFields(map[string]interface{}{
		"flushInterval": w.flushInterval.String(),
		"batchSize":     w.batchSize,
		"bufferSize":    cap(w.events),
	}).Info("Starting search event writer")

	go w.flushLoop(ctx)
	return nil
}

// Stop flushes pending events and stops the flush loop
func (w *EventWriter) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		if w.endedByContext() {
			return nil
		}
		return fmt.Errorf("event writer is not running")
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		status := w.GetStatus()
		w.logger.WithFields(map[string]interface{}{
			"written": status.Written,
			"dropped": status.Dropped,
			"failed":  status.Failed,
		}).Info("Search event writer stopped")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Search event writer stop timed out")
		return ctx.Err()
	}
}

// endedByContext reports whether the Start context ended the loop, which
// flushes like Stop does
func (w *EventWriter) endedByContext() bool {
	select {
	case <-w.stopCh:
		return false
	default:
	}
	select {
	case <-w.doneCh:
		return true
	default:
		return false
	}
}

// Record queues an event without blocking
func (w *EventWriter) Record(ctx context.Context, event *models.SearchEvent) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.running {
		return ErrNotRunning
	}

	select {
	case w.events <- event:
		return nil
	default:
		w.dropped.Add(1)
		return ErrBufferFull
	}
}

// flushLoop is the main loop that runs in a goroutine
func (w *EventWriter) flushLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	batch := make([]*models.SearchEvent, 0, w.batchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		w.flush(ctx, batch)
		batch = make([]*models.SearchEvent, 0, w.batchSize)
	}

	for {
		select {
		case <-ctx.Done():
			// refuse new events first so nothing is queued after the drain
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			w.drain(&batch)
			w.finalFlush(batch)
			return
		case <-w.stopCh:
			w.drain(&batch)
			w.finalFlush(batch)
			return
		case event := <-w.events:
			batch = append(batch, event)
			if len(batch) >= w.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		}
	}
}

// drain moves every queued event into batch
func (w *EventWriter) drain(batch *[]*models.SearchEvent) {
	for {
		select {
		case event := <-w.events:
			*batch = append(*batch, event)
		default:
			return
		}
	}
}

// finalFlush writes what is left with its own deadline, since the loop's
// context may already be canceled
func (w *EventWriter) finalFlush(batch []*models.SearchEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
	defer cancel()

	for start := 0; start < len(batch); start += w.batchSize {
		end := start + w.batchSize
		if end > len(batch) {
			end = len(batch)
		}
		w.flush(ctx, batch[start:end])
	}
}

func (w *EventWriter) flush(ctx context.Context, batch []*models.SearchEvent) {
	err := w.recorder.RecordBatch(ctx, batch)

	w.mu.Lock()
	w.lastFlushTime = time.Now()
	if err != nil {
		w.failed += int64(len(batch))
	} else {
		w.written += int64(len(batch))
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.WithError(err).WithField("events", len(batch)).Warn("Failed to write search events")
		return
	}
	w.logger.WithField("events", len(batch)).Debug("Search events written")
}

// GetStatus returns the current status of the event writer
func (w *EventWriter) GetStatus() *EventWriterStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return &EventWriterStatus{
		Running:       w.running,
		Pending:       len(w.events),
		Written:       w.written,
		Dropped:       w.dropped.Load(),
		Failed:        w.failed,
		LastFlushTime: w.lastFlushTime,
	}
}

// EventWriterStatus represents the status of an event writer
type EventWriterStatus struct {
	Running       bool      `json:"running"`
	Pending       int       `json:"pending"`
	Written       int64     `json:"written"`
	Dropped       int64     `json:"dropped"`
	Failed        int64     `json:"failed"`
	LastFlushTime time.Time `json:"lastFlushTime"`
}
