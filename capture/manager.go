// Package capture implements the Capture Engine: the Frame Decoder, the
// capture-handle contract, the Capture Loop / Processor Loop pair, and the
// Capture Manager state machine that wires them together.
package capture

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/netshark/netshark/captureerr"
	"github.com/netshark/netshark/iface"
	"github.com/netshark/netshark/model"
	"github.com/netshark/netshark/printer"
	"github.com/netshark/netshark/stats"
	"github.com/netshark/netshark/store"
)

// State is one of the Capture Manager's four lifecycle states.
type State int

const (
	Idle State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// joinTimeout bounds how long stop() waits for the capture goroutine to
// exit on its own before forcing the manager back to Idle anyway.
const joinTimeout = 5 * time.Second

// publicEnvelope bounds start()/stop() as a whole, per the spec's 10 s
// public envelope; callers of the HTTP adapter additionally enforce this
// via context.WithTimeout, but the manager honours it directly too.
const publicEnvelope = 10 * time.Second

// Status is the snapshot returned by Manager.Status.
type Status struct {
	State       State
	IsRunning   bool
	Interface   string
	PacketCount int
}

// Manager is the Capture Engine's public facade and state machine. One
// Manager owns exactly one session's worth of Capture Loop, Processor
// Loop, Packet Store, Stats Aggregate, and Stats Broadcaster at a time.
type Manager struct {
	mu     sync.RWMutex
	state  State
	config model.Config

	store       *store.Store
	aggregate   *stats.Aggregate
	broadcaster *stats.Broadcaster

	opener   Opener
	provider iface.Provider

	nextID *atomic.Uint64

	stopped *atomic.Bool
	loop    *captureLoop
	proc    *processor
}

// NewManager returns an Idle Manager. opener supplies live capture
// handles (capture.PcapOpener{} in production, a synthetic Opener in
// tests); provider answers list_interfaces().
func NewManager(opener Opener, provider iface.Provider) *Manager {
	return &Manager{
		state:       Idle,
		config:      model.Config{BufferSize: model.MinBufferSize},
		store:       store.New(),
		aggregate:   stats.NewAggregate(),
		broadcaster: stats.NewBroadcaster(),
		opener:      opener,
		provider:    provider,
		nextID:      new(atomic.Uint64),
	}
}

// Start transitions Idle -> Starting -> Running. It is idempotent:
// calling Start while already Running (or Starting/Stopping) returns
// ErrAlreadyRunning without disturbing the existing session.
func (m *Manager) Start() error {
	done := make(chan error, 1)
	go func() { done <- m.start() }()
	select {
	case err := <-done:
		return err
	case <-time.After(publicEnvelope):
		return captureerr.New(captureerr.Timeout, "start() exceeded its 10s envelope")
	}
}

func (m *Manager) start() error {
	m.mu.Lock()
	if m.state != Idle {
		m.mu.Unlock()
		return captureerr.ErrAlreadyRunning
	}
	if m.config.Interface == "" {
		m.mu.Unlock()
		return captureerr.ErrNoInterface
	}
	cfg := m.config.Normalized()
	m.state = Starting
	m.mu.Unlock()

	handle, err := m.opener.Open(cfg.Interface, cfg.Promiscuous, cfg.Filter)
	if err != nil {
		m.mu.Lock()
		m.state = Idle
		m.mu.Unlock()
		return err
	}

	m.store.Clear()
	m.aggregate.Reset()
	m.broadcaster.Close()

	stopped := new(atomic.Bool)
	loop := newCaptureLoop(handle, cfg.Interface, stopped)
	proc := newProcessor(loop.out, cfg.Interface, cfg.BufferSize, m.nextID, m.store, m.aggregate, m.broadcaster)

	m.mu.Lock()
	m.stopped = stopped
	m.loop = loop
	m.proc = proc
	m.state = Running
	m.mu.Unlock()

	go loop.run()
	go proc.run()

	printer.Infof("capture: started on %s\n", cfg.Interface)
	return nil
}

// Stop transitions Running -> Stopping -> Idle. It is idempotent:
// calling Stop while Idle returns ErrNotRunning.
func (m *Manager) Stop() error {
	done := make(chan error, 1)
	go func() { done <- m.stop() }()
	select {
	case err := <-done:
		return err
	case <-time.After(publicEnvelope):
		return captureerr.New(captureerr.Timeout, "stop() exceeded its 10s envelope")
	}
}

func (m *Manager) stop() error {
	m.mu.Lock()
	if m.state != Running {
		m.mu.Unlock()
		return captureerr.ErrNotRunning
	}
	m.state = Stopping
	stopped := m.stopped
	loop := m.loop
	m.mu.Unlock()

	stopped.Store(true)

	select {
	case <-loop.done:
	case <-time.After(joinTimeout):
		printer.Warningf("capture: stop timed out waiting for the capture thread to join; forcing idle\n")
	}
	// The processor's done channel closes once loop.out closes, which
	// happens either when the loop joined above or, on a forced
	// timeout, whenever it eventually exits on its own; waiting here
	// too would risk blocking past the join timeout, so it is not
	// re-awaited.

	m.aggregate.Freeze()
	m.broadcaster.Publish(m.aggregate.Snapshot())
	m.broadcaster.Close()

	m.mu.Lock()
	m.state = Idle
	m.loop = nil
	m.proc = nil
	m.mu.Unlock()

	printer.Infof("capture: stopped\n")
	return nil
}

// SetInterface is valid only in Idle.
func (m *Manager) SetInterface(name string) error {
	return m.setConfig(func(c *model.Config) { c.Interface = name })
}

// SetPromiscuous is valid only in Idle.
func (m *Manager) SetPromiscuous(v bool) error {
	return m.setConfig(func(c *model.Config) { c.Promiscuous = v })
}

// SetFilter is valid only in Idle.
func (m *Manager) SetFilter(expr string) error {
	return m.setConfig(func(c *model.Config) { c.Filter = expr })
}

// SetBufferSize is valid only in Idle; it floors at model.MinBufferSize.
func (m *Manager) SetBufferSize(n int) error {
	return m.setConfig(func(c *model.Config) { c.BufferSize = n })
}

func (m *Manager) setConfig(mutate func(*model.Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Idle {
		return captureerr.ErrSetterWhileRunning
	}
	mutate(&m.config)
	m.config = m.config.Normalized()
	return nil
}

// Config returns a copy of the current configuration.
func (m *Manager) Config() model.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Status returns the current state and a running count of stored packets.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		State:       m.state,
		IsRunning:   m.state == Running,
		Interface:   m.config.Interface,
		PacketCount: m.store.Count(),
	}
}

// Stats returns a snapshot of the current traffic statistics.
func (m *Manager) Stats() model.Stats {
	return m.aggregate.Snapshot()
}

// Packet looks up one decoded packet by id.
func (m *Manager) Packet(id uint64) (model.Packet, error) {
	p, ok := m.store.Get(id)
	if !ok {
		return model.Packet{}, captureerr.ErrNotFound
	}
	return p, nil
}

// Packets returns a page of packet summaries.
func (m *Manager) Packets(offset, limit int) []model.Summary {
	return m.store.Page(offset, limit)
}

// Count returns the number of packets currently held in the store.
func (m *Manager) Count() int {
	return m.store.Count()
}

// SubscribeStats returns a fresh stats-snapshot receiver. Callers must
// eventually call UnsubscribeStats.
func (m *Manager) SubscribeStats() <-chan model.Stats {
	return m.broadcaster.Subscribe()
}

// UnsubscribeStats releases a subscription obtained from SubscribeStats.
func (m *Manager) UnsubscribeStats(ch <-chan model.Stats) {
	m.broadcaster.Unsubscribe(ch)
}

// ListInterfaces delegates to the configured InterfaceProvider, which is
// itself responsible for the 60s result cache.
func (m *Manager) ListInterfaces() ([]model.InterfaceInfo, error) {
	return m.provider.List()
}
