// Package alarm implements the timer priority queue of spec.md §4.10: a
// min-heap of (wake_at, operation) pairs drained by a dedicated worker
// that posts due operations onto an I/O executor, never executing them
// inline.
package alarm

import (
	"container/heap"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Operation is scheduled work posted to the executor when its wake time
// arrives. A nil Operation is the shutdown sentinel (spec.md §4.10).
type Operation func()

type entry struct {
	wakeAt time.Time
	op     Operation
	index  int
}

type entryHeap []*entry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return h[i].wakeAt.Before(h[j].wakeAt) }
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Executor posts an operation to run asynchronously, decoupling an
// alarm's own worker from actually executing the scheduled work (spec.md
// §4.10: "Operations are posted to the I/O executor when due, never
// executed inline").
type Executor interface {
	Post(func())
}

// Alarm is a single dedicated worker draining a min-priority queue of
// timers, matching spec.md §5's "A dedicated worker for the alarm."
type Alarm struct {
	log *logrus.Entry

	mu       sync.Mutex
	pq       entryHeap
	executor Executor

	wake chan struct{}
	done chan struct{}
}

// New builds an Alarm posting due operations to executor.
func New(executor Executor, log *logrus.Entry) *Alarm {
	if log == nil {
		l := logrus.New()
		log = logrus.NewEntry(l)
	}
	a := &Alarm{
		log:      log,
		executor: executor,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go a.run()
	return a
}

// Add schedules op to run at wakeAt, waking the worker so it can
// re-evaluate the new earliest entry.
func (a *Alarm) Add(wakeAt time.Time, op Operation) {
	a.mu.Lock()
	heap.Push(&a.pq, &entry{wakeAt: wakeAt, op: op})
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Stop pushes the shutdown sentinel (spec.md §4.10: "A sentinel op (null)
// at the current time signals shutdown") and waits for the worker to
// drain the remaining queue and exit.
func (a *Alarm) Stop() {
	a.Add(time.Now(), nil)
	<-a.done
}

func (a *Alarm) run() {
	defer close(a.done)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		a.mu.Lock()
		var sleep time.Duration
		if a.pq.Len() == 0 {
			sleep = time.Hour
		} else {
			sleep = time.Until(a.pq[0].wakeAt)
			if sleep < 0 {
				sleep = 0
			}
		}
		a.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(sleep)

		select {
		case <-timer.C:
		case <-a.wake:
		}

		a.mu.Lock()
		for a.pq.Len() > 0 && !a.pq[0].wakeAt.After(time.Now()) {
			due := heap.Pop(&a.pq).(*entry)
			a.mu.Unlock()

			if due.op == nil {
				return
			}
			a.executor.Post(due.op)

			a.mu.Lock()
		}
		a.mu.Unlock()
	}
}
