package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/netshark/netshark/model"
)

func TestBroadcasterPublishDeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcaster()
	a := b.Subscribe()
	c := b.Subscribe()

	b.Publish(model.Stats{TotalPackets: 1})

	select {
	case s := <-a:
		assert.Equal(t, uint64(1), s.TotalPackets)
	case <-time.After(time.Second):
		t.Fatal("subscriber a never received a publish")
	}
	select {
	case s := <-c:
		assert.Equal(t, uint64(1), s.TotalPackets)
	case <-time.After(time.Second):
		t.Fatal("subscriber c never received a publish")
	}
}

func TestBroadcasterPublishDropsOldestWhenFull(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()

	for i := uint64(0); i < subscriberBacklog+10; i++ {
		b.Publish(model.Stats{TotalPackets: i})
	}

	// The channel never blocks the publisher regardless of backlog size.
	assert.LessOrEqual(t, len(sub), subscriberBacklog)

	// The most recent publish is recoverable by draining to the end.
	var last model.Stats
	for {
		select {
		case s := <-sub:
			last = s
		default:
			assert.Equal(t, uint64(subscriberBacklog+9), last.TotalPackets)
			return
		}
	}
}

func TestBroadcasterUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()

	b.Unsubscribe(sub)

	_, ok := <-sub
	assert.False(t, ok, "channel should be closed after unsubscribe")

	// Safe to call a second time.
	b.Unsubscribe(sub)
}

func TestBroadcasterCloseClosesAllAndResets(t *testing.T) {
	b := NewBroadcaster()
	a := b.Subscribe()
	c := b.Subscribe()

	b.Close()

	_, ok := <-a
	assert.False(t, ok)
	_, ok = <-c
	assert.False(t, ok)

	// A Broadcaster is reusable after Close: new subscribers work fine.
	fresh := b.Subscribe()
	b.Publish(model.Stats{TotalPackets: 42})
	select {
	case s := <-fresh:
		assert.Equal(t, uint64(42), s.TotalPackets)
	case <-time.After(time.Second):
		t.Fatal("fresh subscriber after Close never received a publish")
	}
}
