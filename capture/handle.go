package capture

import (
	"time"

	"github.com/google/gopacket/pcap"
	"github.com/pkg/errors"

	"github.com/netshark/netshark/captureerr"
)

// defaultSnapLen matches the spec's capture-handle contract (65535), large
// enough to capture full frames on any interface MTU this system targets.
const defaultSnapLen = 65535

// kernelTimeout is the blocking-read timeout handed to the capture
// library; it bounds how long next_packet() can block before returning
// ErrTimeout, which the capture loop treats as "continue".
const kernelTimeout = 1000 * time.Millisecond

// ErrTimeout is returned by Handle.Next when the kernel read timed out
// without a frame arriving; this is not a failure.
var ErrTimeout = errors.New("capture: read timeout")

// Frame is one frame handed back by a Handle, timestamped by the kernel
// (or, absent kernel timestamps, by the moment the handle observed it).
type Frame struct {
	Data      []byte
	Timestamp time.Time
}

// Handle is the core's bottom-edge capability: open a live capture, read
// one frame at a time, and close when done. No assumption beyond this
// three-operation contract is made about the underlying capture library,
// so a synthetic or replay-backed Handle can substitute in tests.
type Handle interface {
	Next() (Frame, error)
	Close()
}

// Opener opens a Handle for a named interface.
type Opener interface {
	Open(interfaceName string, promiscuous bool, filter string) (Handle, error)
}

// PcapOpener opens live handles via libpcap.
type PcapOpener struct{}

// Open implements Opener using github.com/google/gopacket/pcap.
func (PcapOpener) Open(interfaceName string, promiscuous bool, filter string) (Handle, error) {
	inactive, err := pcap.NewInactiveHandle(interfaceName)
	if err != nil {
		return nil, captureerr.Wrapf(captureerr.Capture, err, "failed to prepare capture on %s", interfaceName)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(defaultSnapLen); err != nil {
		return nil, captureerr.Wrap(captureerr.Capture, err, "failed to set snap length")
	}
	if err := inactive.SetPromisc(promiscuous); err != nil {
		return nil, captureerr.Wrap(captureerr.Capture, err, "failed to set promiscuous mode")
	}
	if err := inactive.SetTimeout(kernelTimeout); err != nil {
		return nil, captureerr.Wrap(captureerr.Capture, err, "failed to set read timeout")
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, captureerr.Wrapf(captureerr.Capture, err, "failed to open pcap handle on %s", interfaceName)
	}

	if filter != "" {
		if err := handle.SetBPFFilter(filter); err != nil {
			handle.Close()
			return nil, captureerr.Wrapf(captureerr.Capture, err, "failed to apply filter %q", filter)
		}
	}

	return &pcapHandle{handle: handle}, nil
}

type pcapHandle struct {
	handle *pcap.Handle
}

func (h *pcapHandle) Next() (Frame, error) {
	data, captureInfo, err := h.handle.ReadPacketData()
	if err != nil {
		if err == pcap.NextErrorTimeoutExpired {
			return Frame{}, ErrTimeout
		}
		return Frame{}, err
	}
	ts := captureInfo.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return Frame{Data: buf, Timestamp: ts.UTC()}, nil
}

func (h *pcapHandle) Close() {
	h.handle.Close()
}
