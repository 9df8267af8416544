package engine

import (
	"container/heap"
	"time"

	"github.com/yourusername/keiba-engine/internal/events"
)

// queueItem pairs an event with the sequence number that breaks timestamp
// ties. Regular events take ascending numbers from zero so equal timestamps
// process in insertion order. Priority events (ticks and reactive
// confirmations) take descending numbers from minus one, which sorts them
// ahead of every regular event at the same timestamp, newest first.
type queueItem struct {
	event events.Event
	at    time.Time
	seq   int64
}

type eventHeap []*queueItem

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(a, b int) bool {
	if !h[a].at.Equal(h[b].at) {
		return h[a].at.Before(h[b].at)
	}
	return h[a].seq < h[b].seq
}

func (h eventHeap) Swap(a, b int) { h[a], h[b] = h[b], h[a] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(*queueItem)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// eventQueue is the engine's two-lane priority queue keyed on event time
type eventQueue struct {
	heap     eventHeap
	backSeq  int64 // next regular sequence number, counts up from 0
	frontSeq int64 // next priority sequence number, counts down from -1
}

func newEventQueue() *eventQueue {
	q := &eventQueue{frontSeq: -1}
	heap.Init(&q.heap)
	return q
}

// Push enqueues a regular event behind earlier arrivals at the same time
func (q *eventQueue) Push(ev events.Event) {
	heap.Push(&q.heap, &queueItem{event: ev, at: ev.When().UTC(), seq: q.backSeq})
	q.backSeq++
}

// PushFront enqueues a priority event ahead of everything else at its time
func (q *eventQueue) PushFront(ev events.Event) {
	heap.Push(&q.heap, &queueItem{event: ev, at: ev.When().UTC(), seq: q.frontSeq})
	q.frontSeq--
}

// Pop removes and returns the earliest event, or nil when empty
func (q *eventQueue) Pop() events.Event {
	if len(q.heap) == 0 {
		return nil
	}
	return heap.Pop(&q.heap).(*queueItem).event
}

func (q *eventQueue) Len() int { return len(q.heap) }

// EarliestNonTick returns the time of the soonest queued event that is not a
// tick, scanning the heap without disturbing it.
func (q *eventQueue) EarliestNonTick() (time.Time, bool) {
	var best time.Time
	found := false
	for _, item := range q.heap {
		if _, isTick := item.event.(*events.TimeEvent); isTick {
			continue
		}
		if !found || item.at.Before(best) {
			best = item.at
			found = true
		}
	}
	return best, found
}

// HasNonTick reports whether any queued event is not a tick
func (q *eventQueue) HasNonTick() bool {
	_, found := q.EarliestNonTick()
	return found
}
