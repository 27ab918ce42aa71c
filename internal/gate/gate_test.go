package gate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_Ceiling(t *testing.T) {
	const (
		size  = 4
		tasks = 60
	)
	g := New(size)

	var (
		active  int32
		peak    int32
		done    int32
		wg      sync.WaitGroup
		release = make(chan struct{})
	)

	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.WithSlot(context.Background(), func(context.Context) error {
				n := atomic.AddInt32(&active, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				<-release
				atomic.AddInt32(&active, -1)
				atomic.AddInt32(&done, 1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}

	// let the first wave fill the gate before unblocking everyone
	require.Eventually(t, func() bool { return atomic.LoadInt32(&active) == size }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(tasks), atomic.LoadInt32(&done))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(size))
	assert.Equal(t, int32(size), atomic.LoadInt32(&peak))
}

func TestGate_ErrorReleasesSlot(t *testing.T) {
	g := New(1)
	boom := errors.New("boom")

	err := g.WithSlot(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	ran := false
	err = g.WithSlot(context.Background(), func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestGate_PanicReleasesSlot(t *testing.T) {
	g := New(1)

	assert.Panics(t, func() {
		_ = g.WithSlot(context.Background(), func(context.Context) error { panic("page handler") })
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, g.WithSlot(ctx, func(context.Context) error { return nil }))
}

func TestGate_ContextCanceledWhileWaiting(t *testing.T) {
	g := New(1)
	hold := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = g.WithSlot(context.Background(), func(context.Context) error {
			close(started)
			<-hold
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	err := g.WithSlot(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
	close(hold)
}

func TestNew_MinimumSize(t *testing.T) {
	assert.Equal(t, 1, New(0).Size())
	assert.Equal(t, 1, New(-3).Size())
	assert.Equal(t, 100, New(100).Size())
}
