package bridge

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"atomdeck/api/internal/engine"
	"atomdeck/api/internal/operation"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultQueueSize      = 256
	DefaultPublishTimeout = 5 * time.Second
)

type Stats struct {
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// Dispatcher delivers records to its sinks on a single worker, one record at
// a time, so every sink sees records in the order they were enqueued.
type Dispatcher struct {
	sinks   []Sink
	queue   chan Record
	log     *zap.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	start  sync.Once

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

func NewDispatcher(logger *zap.Logger, queueSize int, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Dispatcher{
		sinks:   sinks,
		queue:   make(chan Record, queueSize),
		log:     logger.Named("bridge"),
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Start launches the worker. It stops once Close drains the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	d.start.Do(func() {
		go d.run(context.WithoutCancel(ctx))
	})
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	for rec := range d.queue {
		d.deliver(ctx, rec)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, rec Record) {
	var g errgroup.Group
	for _, sink := range d.sinks {
		g.Go(func() error {
			pubCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			if err := sink.Publish(pubCtx, rec); err != nil {
				d.log.Warn("publish operation record",
					zap.String("sink", sink.Name()),
					zap.String("presentation_id", rec.PresentationID),
					zap.String("op", string(rec.Operation.Op)),
					zap.Error(err),
				)
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		d.failed.Add(1)
		return
	}
	d.delivered.Add(1)
}

// Enqueue never blocks. A full queue drops the record.
func (d *Dispatcher) Enqueue(rec Record) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- rec:
		return true
	default:
		d.dropped.Add(1)
		d.log.Warn("bridge queue full, dropping record",
			zap.String("presentation_id", rec.PresentationID),
			zap.String("op", string(rec.Operation.Op)),
		)
		return false
	}
}

// Listener returns an engine listener that forwards applied operations of
// one presentation.
func (d *Dispatcher) Listener(presentationID string) engine.Listener {
	return func(op operation.AtomicOperation, res engine.Result) {
		if !res.Applied {
			return
		}
		d.Enqueue(NewRecord(presentationID, op, res))
	}
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}

// Close stops intake, waits for queued records to be delivered and closes
// every sink that holds resources.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.Start(ctx)
	var err error
	select {
	case <-d.done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	for _, sink := range d.sinks {
		if closer, ok := sink.(io.Closer); ok {
			err = multierr.Append(err, closer.Close())
		}
	}
	return err
}
