package refresh

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

func TestCoalescer_BurstCollapsesIntoOneFollowUp(t *testing.T) {
	// Arrange
	c := NewCoalescer(10 * time.Millisecond)
	defer c.Close()
	release := make(chan struct{})
	var runs atomic.Int32
	var lastTag atomic.Value
	refresh := func(tag string) Func {
		return func(ctx context.Context) error {
			if runs.Add(1) == 1 {
				<-release
			}
			lastTag.Store(tag)
			return nil
		}
	}

	// Act
	started := c.Trigger("WIP/3/42/6/9", refresh("first"))
	joined := []bool{
		c.Trigger("WIP/3/42/6/9", refresh("second")),
		c.Trigger("WIP/3/42/6/9", refresh("third")),
		c.Trigger("WIP/3/42/6/9", refresh("fourth")),
	}
	close(release)

	// Assert
	require.True(t, started)
	assert.Equal(t, []bool{false, false, false}, joined)
	require.Eventually(t, func() bool { return !c.InFlight("WIP/3/42/6/9") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), runs.Load())
	assert.Equal(t, "fourth", lastTag.Load())
}

func TestCoalescer_KeysAreIndependent(t *testing.T) {
	c := NewCoalescer(time.Millisecond)
	defer c.Close()
	var wg sync.WaitGroup
	wg.Add(2)
	done := func(context.Context) error { wg.Done(); return nil }

	assert.True(t, c.Trigger("a", done))
	assert.True(t, c.Trigger("b", done))

	wg.Wait()
}

func TestCoalescer_FailedRefreshStillRunsFollowUp(t *testing.T) {
	c := NewCoalescer(time.Millisecond)
	defer c.Close()
	release := make(chan struct{})
	followed := make(chan struct{})

	c.Trigger("k", func(context.Context) error {
		<-release
		return errors.New("list throttled")
	})
	c.Trigger("k", func(context.Context) error {
		close(followed)
		return nil
	})
	close(release)

	select {
	case <-followed:
	case <-time.After(time.Second):
		t.Fatal("follow-up did not run")
	}
}

func TestCoalescer_CloseDropsPendingFollowUp(t *testing.T) {
	c := NewCoalescer(time.Hour)
	release := make(chan struct{})
	var followUps atomic.Int32

	c.Trigger("k", func(context.Context) error { <-release; return nil })
	c.Trigger("k", func(context.Context) error { followUps.Add(1); return nil })
	close(release)
	c.Close()

	assert.Equal(t, int32(0), followUps.Load())
	assert.False(t, c.Trigger("k", func(context.Context) error { return nil }))
}
