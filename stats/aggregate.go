// Package stats holds the Stats Aggregate and the Stats Broadcaster.
package stats

import (
	"sync"
	"time"

	"github.com/netshark/netshark/model"
)

// Aggregate is the single mutable traffic-statistics value, guarded by one
// mutex whose critical section is strictly arithmetic and small-map
// updates, per the capture manager's concurrency model.
type Aggregate struct {
	mu    sync.Mutex
	stats model.Stats
}

// NewAggregate returns a freshly reset Aggregate.
func NewAggregate() *Aggregate {
	a := &Aggregate{}
	a.Reset()
	return a
}

// Reset clears all counters and records a new StartTime, as done at the
// Starting->Running transition of a new capture session.
func (a *Aggregate) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := time.Now().UTC()
	a.stats = model.Stats{
		Protocols:    map[string]uint64{},
		Sources:      map[string]uint64{},
		Destinations: map[string]uint64{},
		StartTime:    &now,
	}
}

// Update folds one decoded packet of the given byte length into the
// aggregate and recomputes the rate fields.
func (a *Aggregate) Update(p model.Packet, byteLen int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.TotalPackets++
	a.stats.TotalBytes += uint64(byteLen)
	a.stats.Protocols[p.Protocol]++
	if p.SourceIP != nil {
		a.stats.Sources[p.SourceIP.String()]++
	}
	if p.DestinationIP != nil {
		a.stats.Destinations[p.DestinationIP.String()]++
	}
	a.recomputeRatesLocked(time.Now().UTC())
}

// IncrementErrors bumps the error counter on a local decode failure.
func (a *Aggregate) IncrementErrors() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.Errors++
}

// Freeze sets EndTime and computes final rates, as done at the
// Stopping->Idle transition.
func (a *Aggregate) Freeze() {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := time.Now().UTC()
	a.stats.EndTime = &now
	a.recomputeRatesLocked(now)
}

func (a *Aggregate) recomputeRatesLocked(now time.Time) {
	if a.stats.StartTime == nil {
		return
	}
	elapsed := now.Sub(*a.stats.StartTime).Seconds()
	if elapsed <= 0 {
		elapsed = 0.001
	}
	a.stats.PacketRate = float64(a.stats.TotalPackets) / elapsed
	a.stats.DataRate = float64(a.stats.TotalBytes) / elapsed
}

// Snapshot returns a cloned copy of the aggregate, holding the mutex only
// for the duration of the clone.
func (a *Aggregate) Snapshot() model.Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats.Clone()
}
