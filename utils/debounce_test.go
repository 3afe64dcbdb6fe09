package utils

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_CoalescesBurst(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	var runs int64

	for i := 0; i < 5; i++ {
		d.Trigger("key", func() { atomic.AddInt64(&runs, 1) })
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&runs), "burst should collapse into one execution")
}

func TestDebouncer_RunsAgainAfterQuietPeriod(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var runs int64

	d.Trigger("key", func() { atomic.AddInt64(&runs, 1) })
	time.Sleep(50 * time.Millisecond)
	d.Trigger("key", func() { atomic.AddInt64(&runs, 1) })
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int64(2), atomic.LoadInt64(&runs))
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var runs int64

	d.Trigger("key", func() { atomic.AddInt64(&runs, 1) })
	assert.True(t, d.Pending("key"))
	d.Cancel("key")
	assert.False(t, d.Pending("key"))

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt64(&runs))
}

func TestDebouncer_KeysAreIndependent(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var a, b int64

	d.Trigger("a", func() { atomic.AddInt64(&a, 1) })
	d.Trigger("b", func() { atomic.AddInt64(&b, 1) })

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&a))
	assert.Equal(t, int64(1), atomic.LoadInt64(&b))
}

func TestDebouncer_RearmReplacesPendingFunc(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var got int64

	d.Trigger("key", func() { atomic.StoreInt64(&got, 1) })
	d.Trigger("key", func() { atomic.StoreInt64(&got, 2) })

	time.Sleep(70 * time.Millisecond)
	assert.Equal(t, int64(2), atomic.LoadInt64(&got), "latest function should win")
}
