// Package transport implements the frame-level bus I/O abstraction the
// supervisor depends on: a small, closed set of variants (serial-framed
// USB-to-CAN bridge, native CAN, and an in-memory stub for tests) behind one
// blocking send/recv interface, with a constructor registry keyed by kind so
// the supervisor never imports a concrete transport directly.
package transport

import (
	"errors"
	"fmt"

	canservo "github.com/samsamfire/canservo"
)

// Frame is an alias for the wire-level frame shared across the module.
type Frame = canservo.Frame

// Transport is implemented by each of the three bounded variants
// {SerialFramed, NativeCan, Stub}. Implementations must be safe for
// concurrent use from one sender and one receiver goroutine.
type Transport interface {
	// Send transmits a single frame. It does not block waiting for a reply.
	Send(frame Frame) error
	// Recv yields exactly one frame per call; it blocks until a frame
	// arrives, an I/O error occurs, or the transport reaches EOF. It may be
	// interrupted by ClearBuffer.
	Recv() (Frame, error)
	// Kind names the transport variant, e.g. "serialframed", "nativecan".
	Kind() string
	// Port names the underlying device or channel, e.g. "/dev/ttyUSB0".
	Port() string
	// ClearBuffer discards any buffered partial frame and unblocks a
	// pending Recv with io.EOF-like ErrCleared.
	ClearBuffer()
	// Close releases the underlying device or connection.
	Close() error
}

// ErrCleared is returned by a pending Recv interrupted by ClearBuffer.
var ErrCleared = errors.New("transport: buffer cleared")

// NewFunc constructs a Transport for a channel string (e.g. a serial device
// path or CAN interface name).
type NewFunc func(channel string) (Transport, error)

var registry = make(map[string]NewFunc)

// Register makes a transport kind available to New. Implementations call
// this from an init() function.
func Register(kind string, ctor NewFunc) {
	registry[kind] = ctor
}

// New constructs a Transport of the named kind. Currently registered kinds:
// "serialframed", "nativecan", "stub".
func New(kind string, channel string) (Transport, error) {
	ctor, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("transport: unsupported kind %q", kind)
	}
	return ctor(channel)
}

// Registered lists every transport kind currently registered.
func Registered() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	return kinds
}
