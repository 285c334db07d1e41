package service

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/martijnmoret-ds/OrderOctopus/internal/config"
	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
)

func TestAcquireSerializesPerCustomer(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(time.Hour)
	var inCritical atomic.Int32
	var overlaps atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, release := store.Acquire("cust-1")
			defer release()
			if inCritical.Add(1) > 1 {
				overlaps.Add(1)
			}
			entry.Session.SetContext("k", "v", config.MaxContextKeys)
			time.Sleep(time.Millisecond)
			inCritical.Add(-1)
		}()
	}
	wg.Wait()

	if overlaps.Load() != 0 {
		t.Fatalf("critical section overlapped %d times", overlaps.Load())
	}
	if store.Len() != 1 {
		t.Fatalf("Len = %d, want 1", store.Len())
	}
}

func TestAcquireDistinctCustomersIndependent(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(time.Hour)

	// Hold one customer's entry; another customer must not block.
	_, releaseA := store.Acquire("a")
	defer releaseA()

	done := make(chan struct{})
	go func() {
		_, releaseB := store.Acquire("b")
		releaseB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("acquire of a different customer blocked")
	}
}

func TestExpiredSessionResetsOnAcquire(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(30 * time.Minute)
	current := time.Now()
	store.now = func() time.Time { return current }

	entry, release := store.Acquire("cust-1")
	entry.Session.State = domain.StateBuilding
	entry.Session.Draft = []domain.OrderLineItem{{Name: "Fries", Quantity: 1}}
	entry.StoreReplay("k1", domain.Response{Text: "cached"})
	entry.Touch(current)
	release()

	current = current.Add(31 * time.Minute)

	entry, release = store.Acquire("cust-1")
	defer release()
	if entry.Session.State != domain.StateGreeting {
		t.Errorf("state = %s, want greeting", entry.Session.State)
	}
	if len(entry.Session.Draft) != 0 {
		t.Errorf("expired draft survived: %v", entry.Session.Draft)
	}
	if _, ok := entry.Replay("k1"); ok {
		t.Error("replay cache survived expiry")
	}
}

func TestSweepRemovesIdleSessions(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(30 * time.Minute)
	current := time.Now()
	store.now = func() time.Time { return current }

	for i := 0; i < 5; i++ {
		entry, release := store.Acquire(fmt.Sprintf("idle-%d", i))
		entry.Touch(current)
		release()
	}
	current = current.Add(31 * time.Minute)

	entry, release := store.Acquire("fresh")
	entry.Touch(current)
	release()

	if removed := store.Sweep(); removed != 5 {
		t.Fatalf("Sweep removed %d, want 5", removed)
	}
	if store.Len() != 1 {
		t.Fatalf("Len = %d, want 1", store.Len())
	}
}

func TestSweepSkipsEntriesInUse(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(30 * time.Minute)
	current := time.Now()
	store.now = func() time.Time { return current }

	entry, release := store.Acquire("busy")
	entry.Touch(current)
	current = current.Add(31 * time.Minute)

	if removed := store.Sweep(); removed != 0 {
		t.Fatalf("Sweep removed a held entry")
	}
	release()

	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("Sweep after release removed %d, want 1", removed)
	}
}

func TestReplayCacheBounded(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(time.Hour)
	entry, release := store.Acquire("cust-1")
	defer release()

	for i := 0; i < config.ReplayCacheSize+1; i++ {
		entry.StoreReplay(fmt.Sprintf("k%d", i), domain.Response{Text: fmt.Sprintf("r%d", i)})
	}

	if _, ok := entry.Replay("k0"); ok {
		t.Error("oldest key not evicted")
	}
	if resp, ok := entry.Replay(fmt.Sprintf("k%d", config.ReplayCacheSize)); !ok || resp.Text == "" {
		t.Error("newest key missing")
	}
	if len(entry.replays) != config.ReplayCacheSize {
		t.Errorf("cache size = %d, want %d", len(entry.replays), config.ReplayCacheSize)
	}
}

func TestStoreReplayOverwriteKeepsOrder(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(time.Hour)
	entry, release := store.Acquire("cust-1")
	defer release()

	entry.StoreReplay("k1", domain.Response{Text: "first"})
	entry.StoreReplay("k1", domain.Response{Text: "second"})

	resp, ok := entry.Replay("k1")
	if !ok || resp.Text != "second" {
		t.Fatalf("replay = %+v, %v", resp, ok)
	}
	if len(entry.replayOrder) != 1 {
		t.Errorf("replayOrder grew on overwrite: %v", entry.replayOrder)
	}
}
