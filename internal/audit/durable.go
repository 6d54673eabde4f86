package audit

import (
	"context"
	"log/slog"
	"time"
)

// DurableRecorder is the zero-loss recorder: entries are queued on a bounded
// channel and flushed to the store in batches by a single background
// goroutine, so batch order matches acceptance order. Flush failures retry
// with exponential backoff and never drop entries.
//
// Record never blocks the business request beyond a short bounded wait for
// critical entries; producers on a saturated queue shed non-critical entries
// to the structured log instead of growing memory unbounded.
type DurableRecorder struct {
	store    Store
	logger   *slog.Logger
	fallback *LogRecorder

	queue chan Entry

	flushInterval   time.Duration
	batchSize       int
	retryBase       time.Duration
	retryMax        time.Duration
	criticalTimeout time.Duration
}

// DurableOption configures a DurableRecorder.
type DurableOption func(*DurableRecorder)

// WithQueueSize bounds the in-flight queue. Defaults to 4096.
func WithQueueSize(n int) DurableOption {
	return func(r *DurableRecorder) {
		if n > 0 {
			r.queue = make(chan Entry, n)
		}
	}
}

// WithFlushInterval sets how long the flusher waits before writing a partial batch.
func WithFlushInterval(d time.Duration) DurableOption {
	return func(r *DurableRecorder) {
		if d > 0 {
			r.flushInterval = d
		}
	}
}

// WithBatchSize caps entries per store write.
func WithBatchSize(n int) DurableOption {
	return func(r *DurableRecorder) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithRetryBackoff sets the flush retry backoff bounds.
func WithRetryBackoff(base, max time.Duration) DurableOption {
	return func(r *DurableRecorder) {
		if base > 0 {
			r.retryBase = base
		}
		if max > 0 {
			r.retryMax = max
		}
	}
}

// NewDurableRecorder builds a zero-loss recorder over the given store.
func NewDurableRecorder(store Store, logger *slog.Logger, opts ...DurableOption) *DurableRecorder {
	r := &DurableRecorder{
		store:    store,
		logger:   logger,
		fallback: NewLogRecorder(logger),

		queue: make(chan Entry, 4096),

		flushInterval:   200 * time.Millisecond,
		batchSize:       128,
		retryBase:       500 * time.Millisecond,
		retryMax:        30 * time.Second,
		criticalTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record queues an entry for durable persistence. Entries already queued are
// not cancelled when the request context is; the flusher runs on the process
// context, so a client disconnect never loses its audit trail.
//
// Backpressure: non-critical entries are shed to the structured log when the
// queue is full; critical entries block up to criticalTimeout first. Either
// way the business request proceeds.
func (r *DurableRecorder) Record(ctx context.Context, entry Entry) {
	entriesRecorded.WithLabelValues("zero_loss", string(entry.Action)).Inc()

	select {
	case r.queue <- entry:
		queueDepth.Set(float64(len(r.queue)))
		return
	default:
	}

	if !entry.IsCriticalAction {
		entriesDropped.Inc()
		r.fallback.Record(ctx, entry)
		return
	}

	timer := time.NewTimer(r.criticalTimeout)
	defer timer.Stop()
	select {
	case r.queue <- entry:
		queueDepth.Set(float64(len(r.queue)))
	case <-timer.C:
		// Last resort: the entry survives in the log stream even though the
		// durable queue rejected it.
		persistFailures.Inc()
		r.logger.ErrorContext(ctx, "audit queue saturated, critical entry diverted to log",
			"event_id", entry.EventID.String(),
			"action", string(entry.Action),
			"correlation_id", entry.CorrelationID,
		)
		r.fallback.Record(ctx, entry)
	}
}

// Run consumes the queue until ctx is cancelled, then drains and flushes what
// remains with a detached shutdown context so accepted entries still land.
func (r *DurableRecorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	var pending []Entry

	for {
		select {
		case <-ctx.Done():
			pending = append(pending, r.drain()...)
			if len(pending) > 0 {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				r.flush(shutdownCtx, pending)
				cancel()
			}
			return ctx.Err()

		case entry := <-r.queue:
			pending = append(pending, entry)
			pending = append(pending, r.drainUpTo(r.batchSize-len(pending))...)
			queueDepth.Set(float64(len(r.queue)))
			if len(pending) >= r.batchSize {
				r.flush(ctx, pending)
				pending = nil
			}

		case <-ticker.C:
			if len(pending) > 0 {
				r.flush(ctx, pending)
				pending = nil
			}
		}
	}
}

// flush writes a batch, retrying with exponential backoff until the write
// succeeds or ctx is cancelled. Entries are never discarded on failure; the
// stable EventID makes the eventual duplicate-free retry safe.
func (r *DurableRecorder) flush(ctx context.Context, batch []Entry) {
	backoff := r.retryBase
	for {
		start := time.Now()
		err := r.store.AppendBatch(ctx, batch)
		flushDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			return
		}

		persistFailures.Inc()
		r.logger.ErrorContext(ctx, "audit flush failed, retrying",
			"error", err,
			"batch_size", len(batch),
			"backoff", backoff.String(),
		)

		select {
		case <-ctx.Done():
			// Give up retrying but keep the trail: every entry lands in the
			// structured log before we return.
			for _, e := range batch {
				r.fallback.Record(ctx, e)
			}
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > r.retryMax {
			backoff = r.retryMax
		}
	}
}

func (r *DurableRecorder) drain() []Entry {
	var out []Entry
	for {
		select {
		case e := <-r.queue:
			out = append(out, e)
		default:
			return out
		}
	}
}

func (r *DurableRecorder) drainUpTo(n int) []Entry {
	var out []Entry
	for len(out) < n {
		select {
		case e := <-r.queue:
			out = append(out, e)
		default:
			return out
		}
	}
	return out
}

// RunRetention deletes entries older than the regulatory retention window on
// a fixed cadence. Default retention is 2555 days (~7 years).
func (r *DurableRecorder) RunRetention(ctx context.Context, every time.Duration, retentionDays int) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -retentionDays)
			deleted, err := r.store.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				r.logger.ErrorContext(ctx, "audit retention sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				r.logger.InfoContext(ctx, "audit retention sweep completed",
					"deleted", deleted,
					"cutoff", cutoff.Format(time.RFC3339),
				)
			}
		}
	}
}
