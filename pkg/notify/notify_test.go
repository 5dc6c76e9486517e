package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/trust-graph/pkg/pubsub"
)

type fakeTimer struct {
	fire    func()
	stopped bool
}

func (f *fakeTimer) Stop() bool {
	f.stopped = true
	return true
}

type fakeClock struct {
	timers []*fakeTimer
	delays []time.Duration
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{fire: f}
	c.timers = append(c.timers, t)
	c.delays = append(c.delays, d)
	return t
}

func TestRaise(t *testing.T) {
	clock := &fakeClock{}
	n := New(0, nil).WithAfterFunc(clock.AfterFunc)

	got := n.Raise("Edge from A to B added")

	assert.Equal(t, uint64(1), got.ID)
	assert.True(t, got.Visible)
	assert.Equal(t, got, n.Current())
	require.Len(t, clock.delays, 1)
	assert.Equal(t, 3*time.Second, clock.delays[0])
}

func TestExpireClears(t *testing.T) {
	clock := &fakeClock{}
	n := New(time.Second, nil).WithAfterFunc(clock.AfterFunc)

	n.Raise("hello")
	clock.timers[0].fire()

	assert.False(t, n.Current().Visible)
	assert.Empty(t, n.Current().Message)
}

func TestStaleTimerDoesNotClearNewerNotification(t *testing.T) {
	clock := &fakeClock{}
	n := New(time.Second, nil).WithAfterFunc(clock.AfterFunc)

	n.Raise("first")
	n.Raise("second")

	assert.True(t, clock.timers[0].stopped, "superseded timer should be stopped")

	// A timer that fires anyway must not clear the newer message
	clock.timers[0].fire()
	current := n.Current()
	assert.True(t, current.Visible)
	assert.Equal(t, "second", current.Message)
	assert.Equal(t, uint64(2), current.ID)

	clock.timers[1].fire()
	assert.False(t, n.Current().Visible)
}

func TestRealTimer(t *testing.T) {
	n := New(20*time.Millisecond, nil)
	n.Raise("short lived")

	assert.Eventually(t, func() bool { return !n.Current().Visible }, time.Second, 5*time.Millisecond)
}

func TestPublishesShowAndClear(t *testing.T) {
	pub := pubsub.NewSSEPublisher()
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sub, err := pub.Subscribe(ctx, Topic)
	require.NoError(t, err)
	defer sub.Close()

	clock := &fakeClock{}
	n := New(time.Second, pub).WithAfterFunc(clock.AfterFunc)
	n.Raise("Reference node set to B")
	clock.timers[0].fire()

	show := <-sub.Events()
	assert.Equal(t, "show", show.Type)
	var payload Notification
	require.NoError(t, json.Unmarshal(show.Data, &payload))
	assert.Equal(t, "Reference node set to B", payload.Message)

	cleared := <-sub.Events()
	assert.Equal(t, "clear", cleared.Type)
}
