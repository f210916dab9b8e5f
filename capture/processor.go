package capture

import (
	"sync/atomic"
	"time"

	"github.com/netshark/netshark/stats"
	"github.com/netshark/netshark/store"
)

// publishInterval is the stats broadcaster's source-side rate limit: the
// processor publishes at most once per this interval regardless of packet
// rate.
const publishInterval = 1000 * time.Millisecond

// processor is the single cooperative consumer of a capture loop's item
// channel. It is constructed with clones of the shared handles it needs
// (store, aggregate, broadcaster, id counter) rather than a reference back
// to the manager, breaking the manager/broadcaster/processor reference
// cycle at spawn time.
type processor struct {
	in          <-chan item
	ifaceName   string
	bufferSize  int
	nextID      *atomic.Uint64
	store       *store.Store
	aggregate   *stats.Aggregate
	broadcaster *stats.Broadcaster
	lastPublish time.Time
	done        chan struct{}
}

func newProcessor(in <-chan item, ifaceName string, bufferSize int, nextID *atomic.Uint64, st *store.Store, agg *stats.Aggregate, bc *stats.Broadcaster) *processor {
	return &processor{
		in:          in,
		ifaceName:   ifaceName,
		bufferSize:  bufferSize,
		nextID:      nextID,
		store:       st,
		aggregate:   agg,
		broadcaster: bc,
		done:        make(chan struct{}),
	}
}

// run drains in until it closes, which happens when the capture loop
// terminates.
func (p *processor) run() {
	defer close(p.done)
	for it := range p.in {
		p.process(it)
	}
}

func (p *processor) process(it item) {
	pkt, err := DecodePacket(it.data, p.ifaceName, it.timestamp)
	if err != nil {
		p.aggregate.IncrementErrors()
		return
	}

	pkt.ID = p.nextID.Add(1)
	pkt.Timestamp = it.timestamp

	p.store.Insert(pkt.ID, pkt)
	p.store.EnforceLimit(p.bufferSize)

	p.aggregate.Update(pkt, len(it.data))

	now := time.Now()
	if now.Sub(p.lastPublish) >= publishInterval {
		p.lastPublish = now
		p.broadcaster.Publish(p.aggregate.Snapshot())
	}
}
