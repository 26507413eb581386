package outbox

import (
	"context"
	"sync"

	"github.com/sandevgo/cupido/internal/core"
	"github.com/sandevgo/cupido/pkg/log"
	"github.com/sandevgo/cupido/pkg/retry"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Appender persists a prepared turn.
type Appender interface {
	AppendPrepared(ctx context.Context, turn core.Turn) (core.Turn, error)
}

// maxFailedEntries bounds how many failed entries the status map retains.
// During a long storage outage the oldest failures are forgotten first.
const maxFailedEntries = 1024

// Outbox is the write-behind queue for turn persistence: callers get the
// turn back immediately (authoritative in-memory state) while a background
// flusher writes it through with backoff. A failed flush never rolls the
// caller's view back; it only marks the entry failed.
type Outbox struct {
	appender Appender
	retrier  *retry.Retrier

	ch chan core.Turn

	mu          sync.Mutex
	entries     map[string]Status // message id -> pending/failed; confirmed entries are evicted
	failedOrder []string          // failed ids oldest-first, for capped eviction
	maxFailed   int
}

func New(appender Appender, queueSize int) *Outbox {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Outbox{
		appender:  appender,
		retrier:   retry.NewDefaultRetrier(),
		ch:        make(chan core.Turn, queueSize),
		entries:   make(map[string]Status),
		maxFailed: maxFailedEntries,
	}
}

// Enqueue hands a prepared turn to the flusher. It only blocks when the
// queue is saturated.
func (o *Outbox) Enqueue(ctx context.Context, turn core.Turn) error {
	o.mu.Lock()
	o.entries[turn.MessageID] = StatusPending
	o.mu.Unlock()

	select {
	case o.ch <- turn:
		return nil
	case <-ctx.Done():
		o.setStatus(turn.MessageID, StatusFailed)
		return ctx.Err()
	}
}

// Status reports the flush state of a queued turn. Confirmed entries are
// evicted, so an unknown id means either flushed long ago or never queued.
func (o *Outbox) Status(messageID string) (Status, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.entries[messageID]
	return st, ok
}

func (o *Outbox) setStatus(messageID string, st Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if st == StatusConfirmed {
		delete(o.entries, messageID)
		return
	}
	if st == StatusFailed && o.entries[messageID] != StatusFailed {
		o.failedOrder = append(o.failedOrder, messageID)
	}
	o.entries[messageID] = st

	// Cap the failed set so an extended outage cannot grow the map forever.
	for len(o.failedOrder) > o.maxFailed {
		oldest := o.failedOrder[0]
		o.failedOrder = o.failedOrder[1:]
		if o.entries[oldest] == StatusFailed {
			delete(o.entries, oldest)
		}
	}
}

// Start runs the flush loop until ctx is cancelled.
func (o *Outbox) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting outbox flusher")
	for {
		select {
		case <-ctx.Done():
			return nil
		case turn := <-o.ch:
			o.flush(ctx, turn)
		}
	}
}

// Shutdown drains whatever is still queued. Each remaining turn gets one
// full retry budget; anything that still fails is logged and dropped.
func (o *Outbox) Shutdown(ctx context.Context) error {
	// The start loop has exited by now; drain without blocking.
	drainCtx := context.WithoutCancel(ctx)
	for {
		select {
		case turn := <-o.ch:
			o.flush(drainCtx, turn)
		default:
			o.mu.Lock()
			remaining := len(o.entries)
			o.mu.Unlock()
			if remaining > 0 {
				log.FromCtx(ctx).Warn().Int("count", remaining).Msg("outbox shut down with unflushed turns")
			}
			return nil
		}
	}
}

func (o *Outbox) flush(ctx context.Context, turn core.Turn) {
	err := o.retrier.Do(ctx, func() error {
		_, err := o.appender.AppendPrepared(ctx, turn)
		return err
	})
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).
			Str("message_id", turn.MessageID).
			Str("conversation", turn.ConversationID).
			Msg("failed to flush turn")
		o.setStatus(turn.MessageID, StatusFailed)
		return
	}
	o.setStatus(turn.MessageID, StatusConfirmed)
}
