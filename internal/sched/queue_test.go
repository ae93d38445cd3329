package sched

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestQueue_RunsOnlyDueTasks(t *testing.T) {
	q := NewQueue()
	var ran []string

	q.After(epoch, 100*time.Millisecond, func(context.Context, time.Time) { ran = append(ran, "a") })
	q.After(epoch, 300*time.Millisecond, func(context.Context, time.Time) { ran = append(ran, "b") })

	assert.Equal(t, 0, q.RunDue(context.Background(), epoch.Add(99*time.Millisecond)))
	assert.Equal(t, 1, q.RunDue(context.Background(), epoch.Add(100*time.Millisecond)))
	assert.Equal(t, []string{"a"}, ran)
	assert.Equal(t, 1, q.Len())

	next, ok := q.NextDue()
	assert.True(t, ok)
	assert.Equal(t, epoch.Add(300*time.Millisecond), next)

	q.RunDue(context.Background(), epoch.Add(time.Second))
	assert.Equal(t, []string{"a", "b"}, ran)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_SameDueKeepsScheduleOrder(t *testing.T) {
	q := NewQueue()
	var ran []int
	for i := 0; i < 5; i++ {
		i := i
		q.After(epoch, 50*time.Millisecond, func(context.Context, time.Time) { ran = append(ran, i) })
	}
	q.RunDue(context.Background(), epoch.Add(time.Second))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, ran)
}

func TestQueue_TaskReceivesFrameTime(t *testing.T) {
	q := NewQueue()
	var got time.Time
	q.After(epoch, 10*time.Millisecond, func(_ context.Context, now time.Time) { got = now })

	frame := epoch.Add(16 * time.Millisecond)
	q.RunDue(context.Background(), frame)
	assert.Equal(t, frame, got)
}

func TestQueue_NestedScheduling(t *testing.T) {
	q := NewQueue()
	var ran []string
	q.After(epoch, 0, func(_ context.Context, now time.Time) {
		ran = append(ran, "outer")
		q.After(now, 0, func(context.Context, time.Time) { ran = append(ran, "inner") })
		q.After(now, time.Minute, func(context.Context, time.Time) { ran = append(ran, "later") })
	})

	assert.Equal(t, 2, q.RunDue(context.Background(), epoch))
	assert.Equal(t, []string{"outer", "inner"}, ran)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_Clear(t *testing.T) {
	q := NewQueue()
	q.After(epoch, 0, func(context.Context, time.Time) { t.Fatal("cleared task ran") })
	q.Clear()
	assert.Equal(t, 0, q.RunDue(context.Background(), epoch.Add(time.Hour)))
	_, ok := q.NextDue()
	assert.False(t, ok)
}
