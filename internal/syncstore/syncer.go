package syncstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ringline/ringline/internal/convo"
)

// Syncer is the fire-and-forget bridge between convo stores and the
// durable store. It implements convo.SyncSink: mutations enqueue write
// tasks and return immediately; a worker drains the queue. Tasks survive
// their triggering request being abandoned.
type Syncer struct {
	store *Store
	tasks chan syncTask

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

type syncTask struct {
	callID string
	turn   *convo.Turn
	ctx    *convo.Context
}

// NewSyncer starts the syncer's worker goroutine.
func NewSyncer(store *Store) *Syncer {
	s := &Syncer{
		store: store,
		tasks: make(chan syncTask, 256),
		done:  make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// TurnDirty queues a turn write. Never blocks: when the queue is full the
// task is dropped and logged; persistence is at-least-once only while the
// process is healthy.
func (s *Syncer) TurnDirty(callID string, turn convo.Turn) {
	s.enqueue(syncTask{callID: callID, turn: &turn})
}

// ContextDirty queues a call context write (last writer wins).
func (s *Syncer) ContextDirty(callID string, ctx convo.Context) {
	s.enqueue(syncTask{callID: callID, ctx: &ctx})
}

func (s *Syncer) enqueue(t syncTask) {
	select {
	case <-s.done:
	case s.tasks <- t:
	default:
		slog.Warn("call store sync queue full, dropping write", "call", t.callID)
	}
}

func (s *Syncer) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			// Drain what is already queued before exiting.
			for {
				select {
				case t := <-s.tasks:
					s.flush(t)
				default:
					return
				}
			}
		case t := <-s.tasks:
			s.flush(t)
		}
	}
}

func (s *Syncer) flush(t syncTask) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch {
	case t.turn != nil:
		err = s.store.UpsertTurn(ctx, *t.turn)
	case t.ctx != nil:
		err = s.store.UpdateContext(ctx, t.callID, *t.ctx)
	}
	if err != nil {
		slog.Error("call store sync failed", "call", t.callID, "error", err)
	}
}

// Stop drains pending tasks and stops the worker.
func (s *Syncer) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
	s.wg.Wait()
}
