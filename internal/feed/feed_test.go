package feed

import (
	"fmt"
	"sync"
	"testing"
)

func TestPushEvictsOldestBeyondCapacity(t *testing.T) {
	f := New(3)
	for i := 1; i <= 5; i++ {
		f.Push(Event{Kind: KindBidPlaced, CycleID: fmt.Sprintf("c%d", i)})
	}

	if got := f.Len(); got != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", got)
	}

	snapshot := f.Snapshot(3)
	want := []string{"c5", "c4", "c3"}
	for i, cycleID := range want {
		if snapshot[i].CycleID != cycleID {
			t.Errorf("entry %d: expected %q, got %q", i, cycleID, snapshot[i].CycleID)
		}
	}
}

func TestSnapshotNewestFirst(t *testing.T) {
	f := New(10)
	for _, cycleID := range []string{"c1", "c2", "c3"} {
		f.Push(Event{Kind: KindBidPlaced, CycleID: cycleID})
	}

	snapshot := f.Snapshot(2)
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snapshot))
	}
	if snapshot[0].CycleID != "c3" || snapshot[1].CycleID != "c2" {
		t.Errorf("expected [c3 c2], got [%s %s]", snapshot[0].CycleID, snapshot[1].CycleID)
	}
}

func TestSnapshotClampsLimit(t *testing.T) {
	f := New(5)
	f.Push(Event{CycleID: "c1"})
	f.Push(Event{CycleID: "c2"})

	tests := []struct {
		limit int
		want  int
	}{
		{-1, 0},
		{0, 0},
		{1, 1},
		{2, 2},
		{100, 2},
	}
	for _, tt := range tests {
		if got := len(f.Snapshot(tt.limit)); got != tt.want {
			t.Errorf("Snapshot(%d): expected %d entries, got %d", tt.limit, tt.want, got)
		}
	}
}

func TestDefaultCapacityFallback(t *testing.T) {
	f := New(0)
	for i := 0; i < DefaultCapacity+10; i++ {
		f.Push(Event{CycleID: fmt.Sprintf("c%d", i)})
	}
	if got := f.Len(); got != DefaultCapacity {
		t.Errorf("expected capacity %d, got %d", DefaultCapacity, got)
	}
}

func TestListenersRunInRegistrationOrder(t *testing.T) {
	f := New(5)

	var order []string
	f.AddListener(func(Event) { order = append(order, "first") })
	f.AddListener(func(Event) { order = append(order, "second") })
	f.AddListener(func(Event) { order = append(order, "third") })

	f.Push(Event{CycleID: "c1"})

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("expected %d invocations, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("invocation %d: expected %q, got %q", i, want[i], order[i])
		}
	}
}

func TestPanickingListenerDoesNotBlockOthers(t *testing.T) {
	f := New(5)

	var before, after bool
	f.AddListener(func(Event) { before = true })
	f.AddListener(func(Event) { panic("listener exploded") })
	f.AddListener(func(Event) { after = true })

	f.Push(Event{CycleID: "c1"})

	if !before || !after {
		t.Errorf("expected surrounding listeners to run (before=%v after=%v)", before, after)
	}
	if got := f.Len(); got != 1 {
		t.Errorf("expected event stored despite panic, got %d entries", got)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	f := New(5)

	var calls int
	unsubscribe := f.AddListener(func(Event) { calls++ })

	f.Push(Event{CycleID: "c1"})
	unsubscribe()
	f.Push(Event{CycleID: "c2"})

	if calls != 1 {
		t.Errorf("expected 1 call after unsubscribe, got %d", calls)
	}
}

func TestBufferIsUpdatedBeforeListenersRun(t *testing.T) {
	f := New(5)

	var seenInBuffer bool
	f.AddListener(func(ev Event) {
		snapshot := f.Snapshot(1)
		seenInBuffer = len(snapshot) == 1 && snapshot[0].CycleID == ev.CycleID
	})

	f.Push(Event{CycleID: "c1"})

	if !seenInBuffer {
		t.Error("expected push to be visible in snapshot before listeners run")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	f := New(5)
	f.Push(Event{CycleID: "c1", TxHash: "0x1"})

	snapshot := f.Snapshot(1)
	snapshot[0].TxHash = "0xmutated"

	if got := f.Snapshot(1)[0].TxHash; got != "0x1" {
		t.Errorf("expected stored entry unchanged, got %q", got)
	}
}

func TestConcurrentPushAndSnapshot(t *testing.T) {
	f := New(20)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				f.Push(Event{CycleID: fmt.Sprintf("g%d-%d", n, j)})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got := len(f.Snapshot(20)); got > 20 {
					t.Errorf("snapshot exceeded capacity: %d", got)
				}
			}
		}()
	}
	wg.Wait()

	if got := f.Len(); got != 20 {
		t.Errorf("expected feed at capacity 20, got %d", got)
	}
}
