package capture

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/netshark/netshark/printer"
)

// channelCapacity is the bounded-channel size between the capture loop and
// the processor loop; it provides backpressure so a slow processor causes
// the capture loop to block in its send rather than letting memory grow
// without bound.
const channelCapacity = 100

// maxConsecutiveErrors is how many non-timeout read errors in a row the
// capture loop tolerates before giving up.
const maxConsecutiveErrors = 5

// errorBackoff is the sleep between consecutive non-timeout read errors.
const errorBackoff = 100 * time.Millisecond

// item is one frame handed from the capture loop to the processor loop.
type item struct {
	data      []byte
	timestamp time.Time
}

// captureLoop owns handle exclusively and runs on a dedicated OS thread,
// because the underlying read is blocking and must never stall the Go
// scheduler's other goroutines. It forwards frames on out until stopped
// is set or the handle becomes unusable.
type captureLoop struct {
	handle   Handle
	iface    string
	out      chan item
	stopped  *atomic.Bool
	done     chan struct{}
}

func newCaptureLoop(handle Handle, iface string, stopped *atomic.Bool) *captureLoop {
	return &captureLoop{
		handle:  handle,
		iface:   iface,
		out:     make(chan item, channelCapacity),
		stopped: stopped,
		done:    make(chan struct{}),
	}
}

// run blocks until the loop terminates. Call it from its own goroutine;
// it locks that goroutine to its OS thread for its whole lifetime.
func (l *captureLoop) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.done)
	defer close(l.out)
	defer l.handle.Close()

	consecutiveErrors := 0
	for {
		if l.stopped.Load() {
			return
		}

		frame, err := l.handle.Next()
		if err == ErrTimeout {
			continue
		}
		if err != nil {
			consecutiveErrors++
			printer.Debugf("capture: read error on %s: %v\n", l.iface, err)
			if consecutiveErrors >= maxConsecutiveErrors {
				printer.Warningf("capture: giving up on %s after %d consecutive errors\n", l.iface, consecutiveErrors)
				return
			}
			time.Sleep(errorBackoff)
			continue
		}
		consecutiveErrors = 0

		// Blocking send: backpressure here is deliberate. If the
		// processor loop falls behind, this send stalls and subsequent
		// frames queue (and eventually drop) on the kernel side instead
		// of growing process memory without bound.
		l.out <- item{data: frame.Data, timestamp: frame.Timestamp}

		if l.stopped.Load() {
			return
		}
	}
}
