// Package stub implements an in-process, deterministic Transport variant
// used by tests: a no-op sender and a slow synthetic receiver that emits one
// fixed frame every 100ms when nothing has been explicitly queued. Callers
// can enqueue specific frames with Inject to drive targeted test cases.
package stub

import (
	"sync"
	"time"

	canservo "github.com/samsamfire/canservo"
	"github.com/samsamfire/canservo/pkg/transport"
)

func init() {
	transport.Register("stub", New)
}

// DefaultFrame is the fixed content synthesized every 100ms when no frame
// has been explicitly injected.
var DefaultFrame = canservo.Frame{
	ID:  canservo.ExtendedID{MotorID: 1, CommType: canservo.CommFeedback}.Pack(),
	DLC: 8,
}

// Transport is an in-process, deterministic stand-in for a real bus.
type Transport struct {
	name string
	tick *time.Ticker

	mu       sync.Mutex
	injected []canservo.Frame
	sent     []canservo.Frame
	closed   chan struct{}
	cleared  chan struct{}
}

// New satisfies transport.NewFunc; channel becomes the stub's Port().
func New(channel string) (transport.Transport, error) {
	return &Transport{
		name:    channel,
		tick:    time.NewTicker(100 * time.Millisecond),
		closed:  make(chan struct{}),
		cleared: make(chan struct{}, 1),
	}, nil
}

func (t *Transport) Kind() string { return "stub" }
func (t *Transport) Port() string { return t.name }

// Send records frame and returns immediately; the stub never actually
// writes to a bus.
func (t *Transport) Send(frame canservo.Frame) error {
	t.mu.Lock()
	t.sent = append(t.sent, frame)
	t.mu.Unlock()
	return nil
}

// Sent returns every frame handed to Send so far, for test assertions.
func (t *Transport) Sent() []canservo.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]canservo.Frame, len(t.sent))
	copy(out, t.sent)
	return out
}

// Inject queues frame to be returned by the next Recv, ahead of the
// synthetic 100ms tick.
func (t *Transport) Inject(frame canservo.Frame) {
	t.mu.Lock()
	t.injected = append(t.injected, frame)
	t.mu.Unlock()
}

// Recv returns the next injected frame immediately, or blocks until the
// next 100ms tick and returns DefaultFrame.
func (t *Transport) Recv() (canservo.Frame, error) {
	t.mu.Lock()
	if len(t.injected) > 0 {
		frame := t.injected[0]
		t.injected = t.injected[1:]
		t.mu.Unlock()
		return frame, nil
	}
	t.mu.Unlock()

	select {
	case <-t.cleared:
		return canservo.Frame{}, transport.ErrCleared
	case <-t.closed:
		return canservo.Frame{}, canservo.ErrEOF
	case <-t.tick.C:
		return DefaultFrame, nil
	}
}

// ClearBuffer discards pending injected frames and interrupts a blocked
// Recv.
func (t *Transport) ClearBuffer() {
	t.mu.Lock()
	t.injected = nil
	t.mu.Unlock()
	select {
	case t.cleared <- struct{}{}:
	default:
	}
}

func (t *Transport) Close() error {
	t.tick.Stop()
	close(t.closed)
	return nil
}
