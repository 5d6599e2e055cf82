package dialog

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
)

// Handler processes one event.
type Handler func(ctx context.Context, ev Event)

type envelopedEvent struct {
	ctx context.Context
	ev  Event
}

type mailbox struct {
	queue []envelopedEvent
}

// Dispatcher runs one logical actor per session id. Events of a session are
// handled one at a time in arrival order; sessions never wait for each other.
// An actor's goroutine lives only while its mailbox has work.
type Dispatcher struct {
	handle Handler

	mu    sync.Mutex
	boxes map[int64]*mailbox
	wg    sync.WaitGroup
}

func NewDispatcher(h Handler) *Dispatcher {
	return &Dispatcher{handle: h, boxes: make(map[int64]*mailbox)}
}

// Submit queues ev on the mailbox of its session.
func (d *Dispatcher) Submit(ctx context.Context, ev Event) {
	id := ev.Source().SessionID
	item := envelopedEvent{ctx: ctx, ev: ev}

	d.mu.Lock()
	if mb, ok := d.boxes[id]; ok {
		mb.queue = append(mb.queue, item)
		d.mu.Unlock()
		return
	}
	mb := &mailbox{queue: []envelopedEvent{item}}
	d.boxes[id] = mb
	d.wg.Add(1)
	d.mu.Unlock()

	go d.drain(id, mb)
}

func (d *Dispatcher) drain(id int64, mb *mailbox) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(mb.queue) == 0 {
			delete(d.boxes, id)
			d.mu.Unlock()
			return
		}
		item := mb.queue[0]
		mb.queue[0] = envelopedEvent{}
		mb.queue = mb.queue[1:]
		d.mu.Unlock()

		d.dispatch(id, item)
	}
}

func (d *Dispatcher) dispatch(id int64, item envelopedEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ panic while handling event for session %d: %v\n%s", id, r, debug.Stack())
		}
	}()
	d.handle(item.ctx, item.ev)
}

// Active returns the number of sessions with queued or running events.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.boxes)
}

// Wait blocks until every mailbox is drained.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
