package stats

import (
	"sync"

	"github.com/netshark/netshark/model"
)

// subscriberBacklog is the default bounded per-subscriber queue depth.
const subscriberBacklog = 100

// Broadcaster is a multi-producer / multi-consumer fan-out of stats
// snapshots. Publish is lossy on a slow consumer: when a subscriber's
// queue is full, the oldest queued message is dropped to make room for
// the new one, since a snapshot supersedes everything before it.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan model.Stats]struct{}
}

// NewBroadcaster returns an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[chan model.Stats]struct{})}
}

// Subscribe returns a fresh receive channel whose queue starts empty. The
// caller must eventually call Unsubscribe.
func (b *Broadcaster) Subscribe() <-chan model.Stats {
	ch := make(chan model.Stats, subscriberBacklog)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes ch. Safe to call more than once.
func (b *Broadcaster) Unsubscribe(ch <-chan model.Stats) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		if sub == ch {
			delete(b.subscribers, sub)
			close(sub)
			return
		}
	}
}

// Publish enqueues stats to every live subscriber, dropping the oldest
// queued snapshot for any subscriber whose queue is currently full.
func (b *Broadcaster) Publish(s model.Stats) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subscribers {
		select {
		case sub <- s:
		default:
			// Drop the oldest queued snapshot to make room, then retry
			// once; if it's still full a concurrent publisher won the
			// race and s is simply dropped, which is within the lossy
			// contract.
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- s:
			default:
			}
		}
	}
}

// Close closes every live subscriber channel; used when the broadcaster is
// being rebuilt for a new capture session so stale receivers stop
// receiving.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = make(map[chan model.Stats]struct{})
}
