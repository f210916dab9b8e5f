// Package store holds the bounded, concurrent Packet Store.
package store

import (
	"container/heap"
	"sync"

	"github.com/netshark/netshark/model"
)

// Store is a thread-safe mapping from packet id to decoded packet, bounded
// to a configured maximum cardinality by timestamp-oldest-first eviction.
type Store struct {
	mu      sync.RWMutex
	packets map[uint64]model.Packet
	order   *ageHeap
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		packets: make(map[uint64]model.Packet),
		order:   &ageHeap{},
	}
}

// Insert adds packet under id. O(log n): the packet is pushed onto the
// age-ordered heap used by EnforceLimit as well as the map.
func (s *Store) Insert(id uint64, packet model.Packet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packets[id] = packet
	heap.Push(s.order, ageEntry{id: id, ts: packet.Timestamp.UnixNano()})
}

// Get returns a copy of the packet stored under id.
func (s *Store) Get(id uint64) (model.Packet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.packets[id]
	return p, ok
}

// Count returns the number of packets currently held.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.packets)
}

// Clear empties the store, e.g. at the start of a new capture session.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packets = make(map[uint64]model.Packet)
	s.order = &ageHeap{}
}

// Page returns up to limit summaries starting at offset, in ascending id
// order.
func (s *Store) Page(offset, limit int) []model.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint64, 0, len(s.packets))
	for id := range s.packets {
		ids = append(ids, id)
	}
	sortUint64s(ids)

	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) {
		return []model.Summary{}
	}
	end := offset + limit
	if limit <= 0 || end > len(ids) {
		end = len(ids)
	}

	out := make([]model.Summary, 0, end-offset)
	for _, id := range ids[offset:end] {
		out = append(out, s.packets[id].ToSummary())
	}
	return out
}

// EnforceLimit evicts the oldest-by-timestamp packets (ties broken by
// lower id) until count() == cap. It runs in O((count-cap) log count).
func (s *Store) EnforceLimit(cap int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.packets) > cap && s.order.Len() > 0 {
		oldest := heap.Pop(s.order).(ageEntry)
		// The heap may carry stale entries for ids already evicted by a
		// prior call; skip those without counting them toward cap.
		if _, ok := s.packets[oldest.id]; ok {
			delete(s.packets, oldest.id)
		}
	}
}

func sortUint64s(ids []uint64) {
	// Small, allocation-free insertion sort is sufficient here: pages are
	// bounded by the store's own cap, never the whole packet universe.
	for i := 1; i < len(ids); i++ {
		v := ids[i]
		j := i - 1
		for j >= 0 && ids[j] > v {
			ids[j+1] = ids[j]
			j--
		}
		ids[j+1] = v
	}
}

type ageEntry struct {
	id uint64
	ts int64
}

// ageHeap is a min-heap ordered by timestamp, ties broken by id.
type ageHeap []ageEntry

func (h ageHeap) Len() int { return len(h) }
func (h ageHeap) Less(i, j int) bool {
	if h[i].ts != h[j].ts {
		return h[i].ts < h[j].ts
	}
	return h[i].id < h[j].id
}
func (h ageHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *ageHeap) Push(x interface{}) {
	*h = append(*h, x.(ageEntry))
}
func (h *ageHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
