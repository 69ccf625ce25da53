// Package nativecan implements the Transport variant that reaches the CAN
// bus through a native SocketCAN interface, writing and decoding extended-ID
// frames directly, built on github.com/brutella/can. That library exposes a
// callback-based Subscribe, which this package turns into a buffered
// channel so Recv can block like every other Transport variant.
package nativecan

import (
	"sync"

	sockcan "github.com/brutella/can"

	canservo "github.com/samsamfire/canservo"
	"github.com/samsamfire/canservo/pkg/transport"
)

func init() {
	transport.Register("nativecan", New)
}

const recvQueueDepth = 256

// Transport implements transport.Transport over a SocketCAN interface.
type Transport struct {
	iface   string
	bus     *sockcan.Bus
	frames  chan canservo.Frame
	once    sync.Once
	done    chan struct{}
	cleared chan struct{}
}

// New satisfies transport.NewFunc; channel is the SocketCAN interface name,
// e.g. "can0".
func New(channel string) (transport.Transport, error) {
	bus, err := sockcan.NewBusForInterfaceWithName(channel)
	if err != nil {
		return nil, canservo.NewError(canservo.KindTransport, "nativecan.New", err)
	}
	t := &Transport{
		iface:   channel,
		bus:     bus,
		frames:  make(chan canservo.Frame, recvQueueDepth),
		done:    make(chan struct{}),
		cleared: make(chan struct{}, 1),
	}
	bus.Subscribe(t)
	go func() {
		_ = bus.ConnectAndPublish()
	}()
	return t, nil
}

// Handle implements brutella/can's frame-handler interface, adapting its
// callback delivery into the buffered channel Recv drains.
func (t *Transport) Handle(frame sockcan.Frame) {
	select {
	case t.frames <- canservo.Frame{ID: frame.ID, Data: frame.Data, DLC: frame.Length}:
	default:
		// Receiver is not keeping up; drop rather than block the bus
		// callback goroutine. The drop is silent: it is not counted or
		// reported to the supervisor.
	}
}

func (t *Transport) Kind() string { return "nativecan" }
func (t *Transport) Port() string { return t.iface }

// Send writes frame.ID/Data/DLC as an extended-ID CAN frame.
func (t *Transport) Send(frame canservo.Frame) error {
	err := t.bus.Publish(sockcan.Frame{
		ID:     frame.ID | 0x8000_0000, // SocketCAN CAN_EFF_FLAG: 29-bit extended id
		Length: frame.DLC,
		Data:   frame.Data,
	})
	if err != nil {
		return canservo.NewError(canservo.KindTransport, "nativecan.Send", err)
	}
	return nil
}

// Recv blocks until a frame is delivered, the transport is closed, or
// ClearBuffer interrupts it.
func (t *Transport) Recv() (canservo.Frame, error) {
	select {
	case frame, ok := <-t.frames:
		if !ok {
			return canservo.Frame{}, canservo.ErrEOF
		}
		return frame, nil
	case <-t.cleared:
		return canservo.Frame{}, transport.ErrCleared
	case <-t.done:
		return canservo.Frame{}, canservo.ErrEOF
	}
}

// ClearBuffer drops any frames queued ahead of the next Recv and interrupts
// a pending Recv, matching the other Transport variants.
func (t *Transport) ClearBuffer() {
	draining := true
	for draining {
		select {
		case <-t.frames:
		default:
			draining = false
		}
	}
	select {
	case t.cleared <- struct{}{}:
	default:
	}
}

func (t *Transport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.done)
		err = t.bus.Disconnect()
	})
	return err
}
