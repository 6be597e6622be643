package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventLoopOrder(t *testing.T) {
	loop := NewEventLoop()
	order := make([]string, 0)
	record := func(name string) func() {
		return func() {
			order = append(order, name)
		}
	}
	loop.ScheduleOnce(2*time.Second, record("c"))
	loop.ScheduleOnce(time.Second, record("a"))
	loop.ScheduleOnce(time.Second, record("b"))
	loop.ScheduleOnce(-time.Second, record("now"))

	loop.Run(time.Second)
	assert.Equal(t, []string{"now", "a", "b"}, order)
	assert.Equal(t, time.Second, loop.Now())
	assert.Equal(t, 1, loop.Pending())

	loop.Run(5 * time.Second)
	assert.Equal(t, []string{"now", "a", "b", "c"}, order)
	assert.Equal(t, 5*time.Second, loop.Now())
	assert.False(t, loop.Step())
}

func TestEventLoopCancel(t *testing.T) {
	loop := NewEventLoop()
	fired := 0
	h1 := loop.ScheduleOnce(time.Second, func() { fired++ })
	loop.ScheduleOnce(time.Second, func() { fired += 10 })
	h3 := loop.ScheduleOnce(3*time.Second, func() { fired += 100 })

	h1.Cancel()
	h1.Cancel()
	assert.Equal(t, 2, loop.Pending())
	loop.Run(2 * time.Second)
	assert.Equal(t, 10, fired)

	h3.Cancel()
	loop.Run(time.Hour)
	assert.Equal(t, 10, fired)
	assert.Zero(t, loop.Pending())
}

func TestEventLoopNested(t *testing.T) {
	loop := NewEventLoop()
	ticks := make([]time.Duration, 0)
	var tick func()
	tick = func() {
		ticks = append(ticks, loop.Now())
		if len(ticks) < 4 {
			loop.ScheduleOnce(100*time.Millisecond, tick)
		}
	}
	loop.ScheduleOnce(0, tick)

	// the clock never moves backwards
	loop.Run(250 * time.Millisecond)
	assert.Equal(t, []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}, ticks)
	loop.Run(100 * time.Millisecond)
	assert.Equal(t, 250*time.Millisecond, loop.Now())

	assert.True(t, loop.Step())
	assert.Equal(t, 300*time.Millisecond, loop.Now())
	assert.Len(t, ticks, 4)
}
