// Package recorder forwards finished verifications to best-effort sinks. Nothing in
// here may fail or delay a verification response.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"image-verify/internal/logging"
	"image-verify/internal/model"
)

// Recorder is one sink for verification records.
type Recorder interface {
	Name() string
	Record(ctx context.Context, rec model.VerificationRecord) error
}

// LoggingError wraps a sink failure. It is logged, never returned to clients.
type LoggingError struct {
	Sink string
	Err  error
}

func (e *LoggingError) Error() string {
	return fmt.Sprintf("recorder %s: %v", e.Sink, e.Err)
}

func (e *LoggingError) Unwrap() error { return e.Err }

// Multi fans a record out to every sink and joins their failures.
type Multi []Recorder

func (m Multi) Name() string {
	return fmt.Sprintf("multi%v", lo.Map(m, func(r Recorder, _ int) string { return r.Name() }))
}

func (m Multi) Record(ctx context.Context, rec model.VerificationRecord) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, rec); err != nil {
			errs = append(errs, &LoggingError{Sink: r.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
)

// Dispatcher feeds records to a fixed pool of workers through a bounded queue.
// Notify never blocks; when the queue is full the record is dropped and logged.
type Dispatcher struct {
	rec     Recorder
	log     *logging.Logger
	timeout time.Duration
	queue   chan model.VerificationRecord

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
}

// NewDispatcher starts workers goroutines draining a queue of queueSize records.
// Non-positive values fall back to the defaults.
func NewDispatcher(rec Recorder, log *logging.Logger, timeout time.Duration, workers, queueSize int) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	d := &Dispatcher{
		rec:     rec,
		log:     log,
		timeout: timeout,
		queue:   make(chan model.VerificationRecord, queueSize),
	}
	if rec == nil {
		return d
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) Notify(rec model.VerificationRecord) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed || d.rec == nil {
		return
	}
	select {
	case d.queue <- rec:
	default:
		d.dropped.Add(1)
		err := &LoggingError{Sink: d.rec.Name(), Err: fmt.Errorf("queue full (%d pending)", cap(d.queue))}
		d.log.Errorf("recorder: %s dropped: %v", rec.ID, err)
	}
}

// Dropped returns how many records were discarded because the queue was full.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Close stops accepting records and waits for queued ones to be recorded.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for rec := range d.queue {
		d.record(rec)
	}
}

func (d *Dispatcher) record(rec model.VerificationRecord) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorf("recorder: panic while recording %s: %v", rec.ID, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.rec.Record(ctx, rec); err != nil {
		d.log.Errorf("recorder: %s not logged: %v", rec.ID, err)
		return
	}
	d.log.Infof("recorder: verification %s logged to %s", rec.ID, d.rec.Name())
}
