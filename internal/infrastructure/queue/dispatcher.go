package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/securetransact/escrow-api/internal/api/metrics"
	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Sink receives messages from the dispatcher workers.
type Sink interface {
	Deliver(m domain.Message)
}

// Dispatcher fans appended chat messages out to live subscribers. Messages are
// routed to a fixed set of workers using consistent hashing on the
// transaction id, which keeps per-transaction ordering.
type Dispatcher struct {
	workers []chan domain.Message
	sink    Sink
	dropped atomic.Uint64
	log     zerolog.Logger
}

var _ ports.MessagePublisher = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sink Sink, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.Message, numWorkers),
		sink:    sink,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Message, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Publish hands m to the worker responsible for its transaction. It never
// blocks: when the shard is full the message is dropped for live delivery
// only; it is already persisted.
func (d *Dispatcher) Publish(m domain.Message) {
	idx := d.shardIndex(m.TransactionID)
	select {
	case d.workers[idx] <- m:
		metrics.ChatQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		d.dropped.Add(1)
		metrics.ChatDroppedTotal.Inc()
		d.log.Warn().
			Str("transaction_id", m.TransactionID).
			Int("worker_id", idx).
			Msg("chat shard full, message not fanned out")
	}
}

// Dropped returns how many messages were not fanned out.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// shardIndex maps a transaction id deterministically to a worker index.
func (d *Dispatcher) shardIndex(transactionID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(transactionID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Message) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			metrics.ChatQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			start := time.Now()
			d.sink.Deliver(m)
			metrics.ChatDeliveryDuration.Observe(time.Since(start).Seconds())
		}
	}
}
