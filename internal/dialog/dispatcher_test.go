package dialog

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestDispatcher_OrdersEventsPerSession(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[int64][]string{}
	)
	d := NewDispatcher(func(_ context.Context, ev Event) {
		txt := ev.(Text)
		// Give other events a chance to overtake if ordering were broken.
		time.Sleep(time.Millisecond)
		mu.Lock()
		seen[txt.SessionID] = append(seen[txt.SessionID], txt.Body)
		mu.Unlock()
	})

	bodies := []string{"a", "b", "c", "d", "e"}
	for _, b := range bodies {
		for id := int64(1); id <= 3; id++ {
			d.Submit(context.Background(), Text{Envelope: Envelope{SessionID: id}, Body: b})
		}
	}
	d.Wait()

	for id := int64(1); id <= 3; id++ {
		got := seen[id]
		if len(got) != len(bodies) {
			t.Fatalf("session %d: want %d events, got %v", id, len(bodies), got)
		}
		for i := range bodies {
			if got[i] != bodies[i] {
				t.Fatalf("session %d: out of order: %v", id, got)
			}
		}
	}
	if n := d.Active(); n != 0 {
		t.Fatalf("mailboxes left behind: %d", n)
	}
}

func TestDispatcher_NoConcurrentHandlingWithinSession(t *testing.T) {
	var (
		mu      sync.Mutex
		running = map[int64]int{}
		overlap bool
	)
	d := NewDispatcher(func(_ context.Context, ev Event) {
		id := ev.Source().SessionID
		mu.Lock()
		running[id]++
		if running[id] > 1 {
			overlap = true
		}
		mu.Unlock()
		time.Sleep(200 * time.Microsecond)
		mu.Lock()
		running[id]--
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				d.Submit(context.Background(), Action{Envelope: Envelope{SessionID: int64(g % 2)}, Token: "x"})
			}
		}(g)
	}
	wg.Wait()
	d.Wait()

	if overlap {
		t.Fatalf("two events of one session were handled at the same time")
	}
}

func TestDispatcher_RecoversFromPanics(t *testing.T) {
	var (
		mu      sync.Mutex
		handled []string
	)
	d := NewDispatcher(func(_ context.Context, ev Event) {
		txt := ev.(Text)
		if txt.Body == "boom" {
			panic("boom")
		}
		mu.Lock()
		handled = append(handled, txt.Body)
		mu.Unlock()
	})

	d.Submit(context.Background(), Text{Envelope: Envelope{SessionID: 1}, Body: "boom"})
	d.Submit(context.Background(), Text{Envelope: Envelope{SessionID: 1}, Body: "after"})
	d.Submit(context.Background(), Text{Envelope: Envelope{SessionID: 2}, Body: "other"})
	d.Wait()

	if len(handled) != 2 {
		t.Fatalf("events after a panic were lost: %v", handled)
	}
}
