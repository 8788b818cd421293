package alarm

import (
	"sync"
	"testing"
	"time"
)

func TestAlarmFiresInOrder(t *testing.T) {
	exec := NewWorkerPoolExecutor(2)
	defer exec.Shutdown()

	a := New(exec, nil)
	defer a.Stop()

	var mu sync.Mutex
	var fired []int
	done := make(chan struct{})

	a.Add(time.Now().Add(30*time.Millisecond), func() {
		mu.Lock()
		fired = append(fired, 2)
		mu.Unlock()
	})
	a.Add(time.Now().Add(10*time.Millisecond), func() {
		mu.Lock()
		fired = append(fired, 1)
		mu.Unlock()
	})
	a.Add(time.Now().Add(50*time.Millisecond), func() {
		mu.Lock()
		fired = append(fired, 3)
		mu.Unlock()
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for scheduled operations")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 3 {
		t.Fatalf("fired = %v, want 3 entries", fired)
	}
	for i, v := range fired {
		if v != i+1 {
			t.Fatalf("fired out of order: %v", fired)
		}
	}
}

func TestAlarmStopDrainsWithoutRunningLateEntries(t *testing.T) {
	exec := NewWorkerPoolExecutor(1)
	defer exec.Shutdown()

	a := New(exec, nil)

	ran := false
	a.Add(time.Now().Add(time.Hour), func() { ran = true })

	stopped := make(chan struct{})
	go func() {
		a.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop() did not return")
	}
	if ran {
		t.Fatalf("future operation should not have run before its wake time")
	}
}
