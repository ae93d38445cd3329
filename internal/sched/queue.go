package sched

import (
	"context"
	"sort"
	"time"
)

// Task is a deferred callback. now is the frame time it runs at.
type Task func(ctx context.Context, now time.Time)

type entry struct {
	due  time.Time
	seq  uint64
	task Task
}

// Queue holds single-shot tasks that run on the host's frame callback rather
// than on their own goroutine, so they never race the event handlers.
// Tasks due at the same instant run in the order they were scheduled.
type Queue struct {
	entries []entry
	seq     uint64
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// After schedules task to run on the first RunDue call at or after now+d.
func (q *Queue) After(now time.Time, d time.Duration, task Task) {
	q.seq++
	q.entries = append(q.entries, entry{due: now.Add(d), seq: q.seq, task: task})
	sort.SliceStable(q.entries, func(i, j int) bool {
		if q.entries[i].due.Equal(q.entries[j].due) {
			return q.entries[i].seq < q.entries[j].seq
		}
		return q.entries[i].due.Before(q.entries[j].due)
	})
}

// RunDue runs every task due at or before now and returns how many ran.
// Tasks scheduled by a running task are picked up in the same call if due.
func (q *Queue) RunDue(ctx context.Context, now time.Time) int {
	ran := 0
	for len(q.entries) > 0 && !q.entries[0].due.After(now) {
		e := q.entries[0]
		q.entries = q.entries[1:]
		e.task(ctx, now)
		ran++
	}
	return ran
}

// NextDue returns the earliest due time. ok is false when the queue is empty.
func (q *Queue) NextDue() (time.Time, bool) {
	if len(q.entries) == 0 {
		return time.Time{}, false
	}
	return q.entries[0].due, true
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Clear drops every pending task without running it.
func (q *Queue) Clear() {
	q.entries = nil
}
