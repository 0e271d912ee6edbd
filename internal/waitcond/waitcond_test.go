package waitcond

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitSatisfiedImmediately(t *testing.T) {
	c := New()
	err := c.WaitTimeout(time.Second, func() bool { return true })
	assert.NoError(t, err)
}

func TestWaitWokenByUpdate(t *testing.T) {
	c := New()
	ready := false

	go func() {
		time.Sleep(20 * time.Millisecond)
		c.Update(func() { ready = true })
	}()

	start := time.Now()
	err := c.WaitTimeout(2*time.Second, func() bool { return ready })
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitTimeout(t *testing.T) {
	c := New()
	start := time.Now()
	err := c.WaitTimeout(50*time.Millisecond, func() bool { return false })
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestSpuriousWakeupsKeepDeadline(t *testing.T) {
	c := New()
	stop := make(chan struct{})
	defer close(stop)

	// unrelated updates every 10ms must not push the deadline out
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.Update(nil)
			}
		}
	}()

	start := time.Now()
	err := c.WaitTimeout(100*time.Millisecond, func() bool { return false })
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestCloseWakesAllWaiters(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	errs := make(chan error, 5)

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.WaitTimeout(10*time.Second, func() bool { return false })
		}()
	}

	time.Sleep(20 * time.Millisecond)
	c.Close()
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.ErrorIs(t, err, ErrClosed)
	}
	assert.True(t, c.Closed())

	// waits after close fail fast
	assert.ErrorIs(t, c.WaitTimeout(time.Second, func() bool { return false }), ErrClosed)
	// but a satisfied predicate still wins
	assert.NoError(t, c.WaitTimeout(time.Second, func() bool { return true }))
}

func TestWaitContextCancel(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := c.Wait(ctx, func() bool { return false })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPredicateConsumesState(t *testing.T) {
	c := New()
	queue := []int{}

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Update(func() { queue = append(queue, 7) })
	}()

	var got int
	err := c.WaitTimeout(time.Second, func() bool {
		if len(queue) == 0 {
			return false
		}
		got, queue = queue[0], queue[1:]
		return true
	})
	assert.NoError(t, err)
	assert.Equal(t, 7, got)

	c.View(func() { assert.Empty(t, queue) })
}
