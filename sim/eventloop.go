package sim

import (
	"container/heap"
	"time"

	"github.com/encodeous/lrr/state"
)

type event struct {
	at    time.Duration
	seq   uint64
	fn    func()
	index int
	loop  *EventLoop
}

// Cancel removes the event if it has not run yet
func (e *event) Cancel() {
	if e.index < 0 {
		return
	}
	heap.Remove(&e.loop.queue, e.index)
}

type eventQueue []*event

func (q eventQueue) Len() int {
	return len(q)
}

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x any) {
	e := x.(*event)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}

// EventLoop is a discrete event scheduler on virtual time. Every callback runs on the goroutine calling Run or Step,
// events due at the same instant run in the order they were scheduled.
type EventLoop struct {
	now   time.Duration
	seq   uint64
	queue eventQueue
}

func NewEventLoop() *EventLoop {
	return &EventLoop{}
}

func (l *EventLoop) Now() time.Duration {
	return l.now
}

func (l *EventLoop) ScheduleOnce(delay time.Duration, fn func()) state.Handle {
	l.seq++
	e := &event{
		at:   l.now + max(delay, 0),
		seq:  l.seq,
		fn:   fn,
		loop: l,
	}
	heap.Push(&l.queue, e)
	return e
}

// Step runs the next event and returns false when none is left
func (l *EventLoop) Step() bool {
	if len(l.queue) == 0 {
		return false
	}
	e := heap.Pop(&l.queue).(*event)
	l.now = e.at
	e.fn()
	return true
}

// Run executes every event due up to and including until, then advances the clock to until.
func (l *EventLoop) Run(until time.Duration) {
	for len(l.queue) > 0 && l.queue[0].at <= until {
		l.Step()
	}
	if until > l.now {
		l.now = until
	}
}

func (l *EventLoop) Pending() int {
	return len(l.queue)
}
