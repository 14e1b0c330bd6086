package queue

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/securetransact/escrow-api/internal/core/domain"
)

type recordingSink struct {
	mu   sync.Mutex
	got  map[string][]string
	done chan struct{}
	want int
	n    int
}

func newRecordingSink(want int) *recordingSink {
	return &recordingSink{got: make(map[string][]string), done: make(chan struct{}), want: want}
}

func (s *recordingSink) Deliver(m domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got[m.TransactionID] = append(s.got[m.TransactionID], m.Message)
	s.n++
	if s.n == s.want {
		close(s.done)
	}
}

func TestDispatcher_PreservesPerTransactionOrder(t *testing.T) {
	const perTx = 50
	txs := []string{"t1", "t2", "t3", "t4"}
	sink := newRecordingSink(perTx * len(txs))
	d := NewDispatcher(3, sink, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	for i := 0; i < perTx; i++ {
		for _, tx := range txs {
			d.Publish(domain.Message{TransactionID: tx, Message: strconv.Itoa(i)})
		}
	}

	select {
	case <-sink.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for delivery")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for _, tx := range txs {
		got := sink.got[tx]
		if len(got) != perTx {
			t.Fatalf("%s: expected %d messages, got %d", tx, perTx, len(got))
		}
		for i, m := range got {
			if m != strconv.Itoa(i) {
				t.Fatalf("%s: message %d out of order: %s", tx, i, m)
			}
		}
	}
	if d.Dropped() != 0 {
		t.Fatalf("expected no drops, got %d", d.Dropped())
	}
}

func TestDispatcher_DropsWhenShardIsFull(t *testing.T) {
	d := NewDispatcher(1, newRecordingSink(-1), zerolog.Nop())

	// Workers are not started, so the single shard fills up.
	for i := 0; i < channelBuffer+3; i++ {
		d.Publish(domain.Message{TransactionID: "t1"})
	}
	if d.Dropped() != 3 {
		t.Fatalf("expected 3 drops, got %d", d.Dropped())
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(0, newRecordingSink(-1), zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
	first := d.shardIndex("transaction-42")
	for i := 0; i < 10; i++ {
		if d.shardIndex("transaction-42") != first {
			t.Fatalf("shard index changed between calls")
		}
	}
}
